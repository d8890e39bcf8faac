package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"MentionScanner/internal/domain"
	"MentionScanner/internal/logging"
	"MentionScanner/internal/ports"
)

// Alerter forwards newly stored claimed operations to a chat.
// A nil *Alerter is valid and does nothing.
type Alerter struct {
	notifier      ports.Notifier
	minConfidence float64
	logger        *slog.Logger
}

// NewAlerter returns nil when notifier is nil.
func NewAlerter(notifier ports.Notifier, minConfidence float64, logger *slog.Logger) *Alerter {
	if notifier == nil {
		return nil
	}
	return &Alerter{
		notifier:      notifier,
		minConfidence: minConfidence,
		logger:        logging.OrDefault(logger),
	}
}

// Consider publishes an alert for article if it qualifies. Delivery errors are logged only.
func (a *Alerter) Consider(ctx context.Context, article domain.Article) {
	if a == nil || !a.qualifies(article) {
		return
	}
	if err := a.notifier.Publish(ctx, formatAlert(article)); err != nil {
		a.logger.Warn("alert delivery failed", "url", article.URL, "error", err)
		return
	}
	a.logger.Info("alert sent", "url", article.URL)
}

func (a *Alerter) qualifies(article domain.Article) bool {
	return article.Category == domain.CategoryClaimedOperation && article.Confidence >= a.minConfidence
}

func formatAlert(article domain.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claimed operation (%.2f)\n", article.Confidence)
	if article.Title != "" {
		b.WriteString(article.Title)
		b.WriteByte('\n')
	}
	if article.Summary != "" {
		b.WriteString(article.Summary)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%s | %s", article.Source, article.URL)
	return b.String()
}
