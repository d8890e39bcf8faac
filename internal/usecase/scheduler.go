package usecase

import (
	"context"
	"log/slog"
	"time"

	"MentionScanner/internal/logging"
	"MentionScanner/internal/ports"
)

// Scheduler wires the interval driver with the feed ingestion job.
type Scheduler struct {
	driver ports.Scheduler
	job    *FeedIngestionJob
	feeds  []string
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring ingestion over feeds.
func NewScheduler(driver ports.Scheduler, job *FeedIngestionJob, feeds []string, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, job: job, feeds: feeds, logger: logging.OrDefault(logger)}
}

// Start registers the ingestion job with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.job == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info("scheduled ingestion", "trigger", trigger.UTC().Format(time.RFC3339))
		s.job.Run(ctx, s.feeds)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
