package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/CarlosOrtiz/mail-pdf-backend/internal/convert"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/errs"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/notify"
)

// Scheduler triggers the daily batch run at a fixed local time. The
// orchestrator's own guard keeps a slow run from overlapping the next one;
// the scheduler just logs the skip.
type Scheduler struct {
	cron     *cron.Cron
	batch    *convert.BatchOrchestrator
	notifier *notify.Notifier // optional
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a scheduler firing spec (standard 5-field cron) in the named
// time zone
func New(spec, timezone string, batch *convert.BatchOrchestrator, notifier *notify.Notifier, logger *slog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", timezone, err)
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		batch:    batch,
		notifier: notifier,
		timeout:  2 * time.Hour,
		logger:   logger.With("component", "schedule"),
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing the schedule
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("daily batch scheduled")
}

// Stop stops the schedule and waits for a triggered run to return
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.logger.Info("scheduled batch starting")
	report, err := s.batch.RunToday(ctx)
	if err != nil {
		if errs.KindOf(err) == errs.KindBatchInProgress {
			s.logger.Warn("previous batch still running, skipping this trigger")
			return
		}
		s.logger.Error("scheduled batch failed", "error", err)
		if s.notifier != nil {
			s.notifier.BatchFailed(ctx, err)
		}
		return
	}

	s.logger.Info("scheduled batch finished",
		"folder", report.Folder,
		"converted", report.Converted,
		"failed", report.Failed)
	if s.notifier != nil {
		s.notifier.BatchCompleted(ctx, report)
	}
}
