package parser

import (
	"bytes"
	"io"
	"log/slog"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/CarlosOrtiz/mail-pdf-backend/internal/errs"
	"github.com/CarlosOrtiz/mail-pdf-backend/pkg/models"
)

// EMLParser decodes raw .eml bytes into structured messages
type EMLParser struct {
	logger *slog.Logger
}

// NewEMLParser creates a new EML parser
func NewEMLParser(logger *slog.Logger) *EMLParser {
	return &EMLParser{logger: logger.With("component", "parser")}
}

// Parse decodes a MIME email. The first text/html inline part becomes the
// HTML body, the first text/plain part the text body; every attachment part
// is extracted with its declared filename, content type and raw bytes.
func (p *EMLParser) Parse(raw []byte) (*models.Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errs.Wrap(errs.KindMalformedMessage, "not a decodable MIME message", err)
	}

	msg := &models.Message{}

	h := mr.Header
	if subject, err := h.Subject(); err == nil {
		msg.Subject = subject
	}
	if date, err := h.Date(); err == nil {
		msg.Date = date
	}
	msg.From = firstAddress(&h, "From")
	msg.To = addressList(&h, "To")
	msg.Cc = addressList(&h, "Cc")

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.KindMalformedMessage, "broken MIME part", err)
		}

		switch ph := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := ph.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, errs.Wrap(errs.KindMalformedMessage, "unreadable body part", err)
			}
			switch {
			case strings.HasPrefix(ct, "text/html") && msg.BodyHTML == "":
				msg.BodyHTML = string(body)
			case strings.HasPrefix(ct, "text/plain") && msg.BodyText == "":
				msg.BodyText = string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := ph.Filename()
			ct, _, _ := ph.ContentType()
			content, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, errs.Wrap(errs.KindMalformedMessage, "unreadable attachment "+filename, err)
			}
			msg.Attachments = append(msg.Attachments, models.Attachment{
				Filename:    filename,
				ContentType: ct,
				Size:        int64(len(content)),
				Content:     content,
			})
		}
	}

	p.logger.Debug("parsed message",
		"subject", msg.Subject,
		"attachments", len(msg.Attachments),
		"has_html", msg.BodyHTML != "")

	return msg, nil
}

func firstAddress(h *mail.Header, field string) *models.Address {
	addrs := addressList(h, field)
	if len(addrs) == 0 {
		return nil
	}
	return addrs[0]
}

func addressList(h *mail.Header, field string) []*models.Address {
	list, err := h.AddressList(field)
	if err != nil || len(list) == 0 {
		return nil
	}

	addrs := make([]*models.Address, 0, len(list))
	for _, a := range list {
		addrs = append(addrs, &models.Address{Name: a.Name, Address: a.Address})
	}
	return addrs
}
