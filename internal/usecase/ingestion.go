package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"MentionScanner/internal/domain"
	"MentionScanner/internal/logging"
	"MentionScanner/internal/ports"
)

const defaultMaxEntriesPerFeed = 10

// Report summarizes one ingestion run.
type Report struct {
	RunID      string `json:"run_id"`
	Considered int    `json:"considered"`
	Saved      int    `json:"saved"`
	Duplicates int    `json:"duplicates"`
}

// FeedJobDeps wires a FeedIngestionJob.
type FeedJobDeps struct {
	Reader            ports.FeedReader
	Extractor         ports.TextExtractor
	Pipeline          *Pipeline
	MaxEntriesPerFeed int
	PacingDelay       time.Duration
	// Sleep waits between page fetches; defaults to a context-aware timer.
	Sleep  func(ctx context.Context, d time.Duration)
	Logger *slog.Logger
}

// FeedIngestionJob crawls a batch of feeds end to end, one entry at a time.
type FeedIngestionJob struct {
	reader     ports.FeedReader
	extractor  ports.TextExtractor
	pipeline   *Pipeline
	maxEntries int
	pacing     time.Duration
	sleep      func(ctx context.Context, d time.Duration)
	logger     *slog.Logger
}

// NewFeedIngestionJob constructs the job.
func NewFeedIngestionJob(deps FeedJobDeps) *FeedIngestionJob {
	job := &FeedIngestionJob{
		reader:     deps.Reader,
		extractor:  deps.Extractor,
		pipeline:   deps.Pipeline,
		maxEntries: deps.MaxEntriesPerFeed,
		pacing:     deps.PacingDelay,
		sleep:      deps.Sleep,
		logger:     logging.OrDefault(deps.Logger),
	}
	if job.maxEntries <= 0 {
		job.maxEntries = defaultMaxEntriesPerFeed
	}
	if job.sleep == nil {
		job.sleep = sleepContext
	}
	return job
}

// Run processes every feed in order and always returns a report. Per-feed and
// per-entry failures are logged and skipped; only context cancellation stops
// the run early.
func (j *FeedIngestionJob) Run(ctx context.Context, feedURLs []string) Report {
	report := Report{RunID: uuid.NewString()}
	logger := j.logger.With("run_id", report.RunID)
	started := time.Now()

	for _, feedURL := range feedURLs {
		if ctx.Err() != nil {
			logger.Warn("ingestion cancelled", "error", ctx.Err())
			break
		}
		feedURL = strings.TrimSpace(feedURL)
		if feedURL == "" {
			continue
		}
		j.runFeed(ctx, logger, feedURL, &report)
	}

	logger.Info("ingestion finished",
		"feeds", len(feedURLs),
		"considered", report.Considered,
		"saved", report.Saved,
		"duplicates", report.Duplicates,
		"elapsed", time.Since(started),
	)
	return report
}

func (j *FeedIngestionJob) runFeed(ctx context.Context, logger *slog.Logger, feedURL string, report *Report) {
	logger = logger.With("feed", feedURL)

	items, err := j.reader.Read(ctx, feedURL)
	if err != nil {
		logger.Warn("feed skipped", "error", err)
		return
	}
	if len(items) > j.maxEntries {
		items = items[:j.maxEntries]
	}
	source := feedHost(feedURL)

	for i, item := range items {
		if ctx.Err() != nil {
			return
		}
		if i > 0 && j.pacing > 0 {
			j.sleep(ctx, j.pacing)
		}
		report.Considered++

		switch j.processEntry(ctx, logger, source, item) {
		case Saved:
			report.Saved++
		case Duplicate:
			report.Duplicates++
		}
	}
}

func (j *FeedIngestionJob) processEntry(ctx context.Context, logger *slog.Logger, source string, item domain.FeedItem) (result Disposition) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("entry panicked", "url", item.URL, "panic", fmt.Sprint(r))
			result = StoreFailed
		}
	}()

	if item.URL == "" {
		logger.Debug("entry without link skipped", "title", item.Title)
		return Irrelevant
	}

	extraction := j.extractor.Extract(ctx, item.URL)
	if extraction.Empty() {
		logger.Debug("no text extracted", "url", item.URL, "error", extraction.Err)
		return Irrelevant
	}

	article := domain.Article{
		URL:         item.URL,
		Source:      source,
		Title:       item.Title,
		PublishedAt: item.PublishedAt,
		Content:     extraction.Text,
	}
	return j.pipeline.Process(ctx, article, item.Title+" "+extraction.Text)
}

// feedHost is the provenance label for feed-origin records.
func feedHost(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
