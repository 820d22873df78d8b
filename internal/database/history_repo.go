package database

import (
	"context"
	"fmt"
	"time"

	"github.com/CarlosOrtiz/mail-pdf-backend/pkg/models"
)

// ConversionRecord is one row of the conversion history. This is a
// diagnostic audit log; nothing reads it back to drive or resume work.
type ConversionRecord struct {
	ID            int64     `db:"id" json:"id"`
	OriginalFile  string    `db:"original_file" json:"originalFile"`
	ConvertedFile string    `db:"converted_file" json:"convertedFile,omitempty"`
	RemoteID      string    `db:"remote_id" json:"remoteId,omitempty"`
	WebURL        string    `db:"web_url" json:"webUrl,omitempty"`
	Size          int64     `db:"size" json:"size,omitempty"`
	Folder        string    `db:"folder" json:"folder,omitempty"`
	Success       bool      `db:"success" json:"success"`
	ErrorKind     string    `db:"error_kind" json:"errorKind,omitempty"`
	ErrorMessage  string    `db:"error_message" json:"errorMessage,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// Record stores the outcome of one conversion
func (db *DB) Record(ctx context.Context, res *models.ConversionResult) error {
	query := `
		INSERT INTO conversions (original_file, converted_file, remote_id, web_url, size, folder, success, error_kind, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var errKind, errMessage string
	if res.Error != nil {
		errKind = res.Error.Kind
		errMessage = res.Error.Message
	}
	_, err := db.ExecContext(ctx, query,
		res.OriginalFile,
		res.ConvertedFile,
		res.FileID,
		res.WebURL,
		res.Size,
		res.Folder,
		res.Success,
		errKind,
		errMessage,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record conversion: %w", err)
	}
	return nil
}

// Recent returns the most recent conversion records, newest first
func (db *DB) Recent(ctx context.Context, limit int) ([]ConversionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []ConversionRecord
	query := `SELECT * FROM conversions ORDER BY created_at DESC, id DESC LIMIT ?`
	if err := db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to load conversion history: %w", err)
	}
	return records, nil
}
