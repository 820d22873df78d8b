package models

import "time"

// Message is a decoded email message
type Message struct {
	Subject     string
	From        *Address
	To          []*Address
	Cc          []*Address
	Date        time.Time // zero when the Date header is absent
	BodyHTML    string
	BodyText    string
	Attachments []Attachment
}

// Address represents an email address
type Address struct {
	Name    string
	Address string
}

// Attachment is a single attachment part of a Message
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Content     []byte
}
