package drive

import (
	"context"
	"log/slog"
	"time"

	"github.com/CarlosOrtiz/mail-pdf-backend/internal/errs"
)

// FolderResolver maps calendar dates to destination folders in the drive
// root, creating them when absent. Folder names carry month and day but no
// year, so a folder from a prior year with the same name is found and reused.
type FolderResolver struct {
	client *Client
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewFolderResolver creates a resolver using the given time zone for "today"
func NewFolderResolver(client *Client, loc *time.Location, logger *slog.Logger) *FolderResolver {
	if loc == nil {
		loc = time.Local
	}
	return &FolderResolver{
		client: client,
		loc:    loc,
		now:    time.Now,
		logger: logger.With("component", "folders"),
	}
}

// TodayName returns the canonical folder name for today, e.g. "November 12"
func (r *FolderResolver) TodayName() string {
	return r.now().In(r.loc).Format("January 2")
}

// ResolveToday returns the id of today's folder, creating it when absent
func (r *FolderResolver) ResolveToday(ctx context.Context) (string, error) {
	return r.Ensure(ctx, r.TodayName())
}

// Ensure returns the id of the root folder with the given name, creating it
// when absent. The create uses conflict-behavior rename, so two racing
// callers end up with one canonical folder and a suffixed duplicate rather
// than an error.
func (r *FolderResolver) Ensure(ctx context.Context, name string) (string, error) {
	id, found, err := r.Lookup(ctx, name)
	if err != nil {
		return "", err
	}
	if found {
		return id, nil
	}

	created, err := r.client.CreateFolder(ctx, name, "")
	if err != nil {
		return "", resolutionError("failed to create folder "+name, err)
	}
	return created.ID, nil
}

// Lookup finds a root folder by exact, case-sensitive name match
func (r *FolderResolver) Lookup(ctx context.Context, name string) (string, bool, error) {
	items, err := r.client.ListRoot(ctx)
	if err != nil {
		return "", false, resolutionError("failed to list drive root", err)
	}

	for _, item := range items {
		if item.IsFolder && item.Name == name {
			return item.ID, true, nil
		}
	}
	return "", false, nil
}

// resolutionError wraps a drive failure as a folder-resolution failure.
// Credential exhaustion passes through untouched so callers can still tell
// "log in again" apart from "the drive call broke".
func resolutionError(message string, err error) error {
	switch errs.KindOf(err) {
	case errs.KindAuthUnavailable, errs.KindReauthRequired:
		return err
	}
	return errs.WithStage("resolve_folder", errs.Wrap(errs.KindFolderResolutionFailed, message, err))
}
