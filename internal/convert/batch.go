package convert

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/CarlosOrtiz/mail-pdf-backend/internal/errs"
	"github.com/CarlosOrtiz/mail-pdf-backend/pkg/models"
)

// Converter runs one message through the conversion pipeline
type Converter interface {
	ConvertAndUpload(ctx context.Context, fileID, targetFolder string) (*models.ConversionResult, error)
}

// BatchOrchestrator converts every message found in today's folder. One bad
// message never aborts its siblings; each becomes a failed entry in the
// report instead.
type BatchOrchestrator struct {
	converter Converter
	drive     Drive
	folders   Folders
	workers   int
	logger    *slog.Logger
	running   atomic.Bool
}

// NewBatchOrchestrator creates an orchestrator fanning out over a bounded
// pool of workers
func NewBatchOrchestrator(converter Converter, drive Drive, folders Folders, workers int, logger *slog.Logger) *BatchOrchestrator {
	if workers < 1 {
		workers = 1
	}
	return &BatchOrchestrator{
		converter: converter,
		drive:     drive,
		folders:   folders,
		workers:   workers,
		logger:    logger.With("component", "batch"),
	}
}

// Running reports whether a batch run is currently in progress
func (b *BatchOrchestrator) Running() bool {
	return b.running.Load()
}

// RunToday resolves today's folder and converts its contents. An absent
// folder means there is no work, not an error. Report entries follow the
// folder listing order at call time; conversions run concurrently, queued
// FIFO into the worker pool. A second call while a run is in progress is
// rejected.
func (b *BatchOrchestrator) RunToday(ctx context.Context) (*models.BatchReport, error) {
	if !b.running.CompareAndSwap(false, true) {
		return nil, errs.New(errs.KindBatchInProgress, "a batch run is already in progress")
	}
	defer b.running.Store(false)

	folderName := b.folders.TodayName()
	report := &models.BatchReport{
		Folder:  folderName,
		Results: []models.ConversionResult{},
	}

	folderID, found, err := b.folders.Lookup(ctx, folderName)
	if err != nil {
		return nil, err
	}
	if !found {
		b.logger.Info("no folder for today, nothing to convert", "folder", folderName)
		return report, nil
	}

	items, err := b.drive.ListChildren(ctx, folderID)
	if err != nil {
		switch errs.KindOf(err) {
		case errs.KindAuthUnavailable, errs.KindReauthRequired:
			return nil, err
		}
		return nil, errs.Wrap(errs.KindBatchListingFailed, "failed to list folder "+folderName, err)
	}

	files := make([]models.RemoteItem, 0, len(items))
	for _, item := range items {
		if !item.IsFolder {
			files = append(files, item)
		}
	}

	report.Total = len(files)
	if len(files) == 0 {
		b.logger.Info("folder is empty", "folder", folderName)
		return report, nil
	}
	b.logger.Info("starting batch", "folder", folderName, "files", len(files), "workers", b.workers)

	results := make([]models.ConversionResult, len(files))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(b.workers, len(files)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = b.convertOne(ctx, files[i], folderName)
			}
		}()
	}

	// submission order is listing order; a worker picks up the next index
	// as soon as it frees up
	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, res := range results {
		if res.Success {
			report.Converted++
		} else {
			report.Failed++
		}
	}
	report.Results = results

	b.logger.Info("batch finished", "folder", folderName, "converted", report.Converted, "failed", report.Failed)
	return report, nil
}

func (b *BatchOrchestrator) convertOne(ctx context.Context, item models.RemoteItem, folderName string) models.ConversionResult {
	// a cancelled batch leaves no half-attributed work behind; remaining
	// queued files are reported as not converted
	if err := ctx.Err(); err != nil {
		return FailureResult(item.Name, errs.Wrap(errs.KindRemoteStore, "batch cancelled before conversion", err))
	}

	res, err := b.converter.ConvertAndUpload(ctx, item.ID, folderName)
	if err != nil {
		b.logger.Error("conversion failed", "file", item.Name, "error", err)
		return FailureResult(item.Name, err)
	}
	return *res
}
