package models

// RemoteItem is a listing entry from the remote drive
type RemoteItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	IsFolder bool   `json:"isFolder"`
	WebURL   string `json:"webUrl"`
}
