package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"MentionScanner/internal/domain"
	"MentionScanner/internal/logging"
	"MentionScanner/internal/ports"
)

// ErrMalformedFeed marks a document gofeed could not parse.
var ErrMalformedFeed = errors.New("malformed feed document")

// FeedReader implements ports.FeedReader with gofeed.
type FeedReader struct {
	client    *http.Client
	parser    *gofeed.Parser
	userAgent string
	logger    *slog.Logger
}

var _ ports.FeedReader = (*FeedReader)(nil)

// NewFeedReader wires an HTTP client; nil gets a 20 second default.
func NewFeedReader(client *http.Client, userAgent string, logger *slog.Logger) *FeedReader {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &FeedReader{
		client:    client,
		parser:    gofeed.NewParser(),
		userAgent: userAgent,
		logger:    logging.OrDefault(logger),
	}
}

// Read fetches and parses feedURL. A malformed document yields an empty
// sequence together with ErrMalformedFeed so callers can log and move on.
func (r *FeedReader) Read(ctx context.Context, feedURL string) ([]domain.FeedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return []domain.FeedItem{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return []domain.FeedItem{}, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return []domain.FeedItem{}, fmt.Errorf("feed returned %s", resp.Status)
	}

	return r.parse(resp.Body)
}

func (r *FeedReader) parse(body io.Reader) ([]domain.FeedItem, error) {
	feed, err := r.parser.Parse(body)
	if err != nil {
		return []domain.FeedItem{}, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}

	items := make([]domain.FeedItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		link := pickLink(entry)
		if link == "" {
			r.logger.Debug("feed entry without link or guid", "title", entry.Title)
			continue
		}
		items = append(items, domain.FeedItem{
			URL:         link,
			Title:       strings.TrimSpace(entry.Title),
			PublishedAt: pickPublished(entry),
		})
	}
	return items, nil
}

func pickLink(entry *gofeed.Item) string {
	if link := strings.TrimSpace(entry.Link); link != "" {
		return link
	}
	return strings.TrimSpace(entry.GUID)
}

func pickPublished(entry *gofeed.Item) string {
	if entry.Published != "" {
		return entry.Published
	}
	return entry.Updated
}
