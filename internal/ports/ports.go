package ports

import (
	"context"
	"time"

	"MentionScanner/internal/domain"
)

// TextExtractor turns a page URL into cleaned, length-bounded text.
type TextExtractor interface {
	Extract(ctx context.Context, pageURL string) domain.Extraction
}

// FeedReader turns a feed URL into its candidate entries, in document order.
type FeedReader interface {
	Read(ctx context.Context, feedURL string) ([]domain.FeedItem, error)
}

// Classifier judges article text. It never fails: failures come back as the
// sentinel classification with Err set.
type Classifier interface {
	Classify(ctx context.Context, text, sourceURL string) domain.ClassificationOutcome
}

// CompletionRequest is a single deterministic structured-completion call.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
}

// Completer talks to a remote language model.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ArticleStore is the deduplicated sink and the read path for presentation.
type ArticleStore interface {
	// Save inserts the article unless its URL is already stored. inserted is
	// false for a duplicate, which is not an error.
	Save(ctx context.Context, article domain.Article) (inserted bool, err error)
	Query(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error)
	Recent(ctx context.Context, limit int) ([]domain.Article, error)
	Get(ctx context.Context, id int64) (domain.Article, error)
}

// UpdateSource is the messaging backend's long-poll endpoint. A nil offset
// asks for every pending update.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset *int64, limit int, timeout time.Duration) ([]domain.ChatUpdate, error)
}

// Notifier streams alerts to Telegram or other channels.
type Notifier interface {
	Publish(ctx context.Context, text string) error
}

// Scheduler controls when periodic jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
