package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"MentionScanner/internal/domain"
	"MentionScanner/internal/logging"
	"MentionScanner/internal/ports"
)

// PollResult is the outcome of one poll iteration. Cursor is the value to
// pass to the next iteration; a failed fetch returns the input cursor.
type PollResult struct {
	Cursor  *int64
	Updates int
	Saved   int
	Err     error
}

// PollerDeps wires a ChatPoller.
type PollerDeps struct {
	Source          ports.UpdateSource
	Pipeline        *Pipeline
	BatchLimit      int
	LongPollTimeout time.Duration
	// Interval is waited after every iteration, successful or not.
	Interval time.Duration
	Now      func() time.Time
	Sleep    func(ctx context.Context, d time.Duration)
	Logger   *slog.Logger
}

// ChatPoller pulls chat updates and feeds relevant messages into the pipeline.
type ChatPoller struct {
	source   ports.UpdateSource
	pipeline *Pipeline
	limit    int
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration)
	logger   *slog.Logger
}

// NewChatPoller constructs the poller with the original defaults for zero knobs.
func NewChatPoller(deps PollerDeps) *ChatPoller {
	p := &ChatPoller{
		source:   deps.Source,
		pipeline: deps.Pipeline,
		limit:    deps.BatchLimit,
		timeout:  deps.LongPollTimeout,
		interval: deps.Interval,
		now:      deps.Now,
		sleep:    deps.Sleep,
		logger:   logging.OrDefault(deps.Logger),
	}
	if p.limit <= 0 {
		p.limit = 50
	}
	if p.timeout <= 0 {
		p.timeout = 20 * time.Second
	}
	if p.interval <= 0 {
		p.interval = 5 * time.Second
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	return p
}

// Run polls until ctx is cancelled. Failures never end the loop; they are
// logged and followed by the regular interval with the cursor held.
func (p *ChatPoller) Run(ctx context.Context) error {
	p.logger.Info("chat poller started", "interval", p.interval, "batch_limit", p.limit)

	var cursor *int64
	for {
		if err := ctx.Err(); err != nil {
			p.logger.Info("chat poller stopped")
			return err
		}

		result := p.Poll(ctx, cursor)
		if result.Err != nil && ctx.Err() == nil {
			p.logger.Warn("poll failed, backing off", "error", result.Err, "delay", p.interval)
		}
		cursor = result.Cursor

		p.sleep(ctx, p.interval)
	}
}

// Poll fetches one batch starting at cursor and processes it. The cursor
// advances past each update before the update is processed, so a failing
// message never causes its own redelivery.
func (p *ChatPoller) Poll(ctx context.Context, cursor *int64) (result PollResult) {
	result.Cursor = cursor
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("poll panicked: %v", r)
		}
	}()

	updates, err := p.source.GetUpdates(ctx, cursor, p.limit, p.timeout)
	if err != nil {
		result.Err = fmt.Errorf("get updates: %w", err)
		return result
	}

	for _, update := range updates {
		next := update.ID + 1
		if result.Cursor == nil || next > *result.Cursor {
			result.Cursor = &next
		}
		result.Updates++

		msg := update.Payload()
		if msg == nil || msg.Text == "" {
			continue
		}
		if p.process(ctx, update.ID, msg.ToArticle(p.now()), msg.RelevanceText()) == Saved {
			result.Saved++
		}
	}
	return result
}

func (p *ChatPoller) process(ctx context.Context, updateID int64, article domain.Article, relevance string) (d Disposition) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("message panicked", "update_id", updateID, "panic", fmt.Sprint(r))
			d = StoreFailed
		}
	}()
	return p.pipeline.Process(ctx, article, relevance)
}
