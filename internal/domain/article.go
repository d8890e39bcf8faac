package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by lookups that match no stored article.
var ErrNotFound = errors.New("article not found")

const (
	// MaxSummaryChars bounds the model-produced summary.
	MaxSummaryChars = 1000

	// SourceTelegram labels chat-origin records.
	SourceTelegram = "telegram"

	// FailedSummary is stored when classification could not be obtained.
	FailedSummary = "(summary failed)"
)

// Category enumerates the classifier's verdicts.
type Category string

const (
	CategoryNews             Category = "news"
	CategoryAnalysis         Category = "analysis"
	CategoryClaimedOperation Category = "claimed_operation"
	CategoryHistorical       Category = "historical"
	CategoryOpinion          Category = "opinion"
	CategoryOther            Category = "other"
)

// Categories lists every valid category in prompt order.
var Categories = []Category{
	CategoryNews,
	CategoryAnalysis,
	CategoryClaimedOperation,
	CategoryHistorical,
	CategoryOpinion,
	CategoryOther,
}

// ParseCategory maps free-form model output onto a known category, defaulting to other.
func ParseCategory(raw string) Category {
	value := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, c := range Categories {
		if c == value {
			return c
		}
	}
	return CategoryOther
}

// Article is the unit of persistence. URL is the canonical, globally unique key.
type Article struct {
	ID          int64
	URL         string
	Source      string
	Title       string
	PublishedAt string
	Content     string
	Summary     string
	Category    Category
	Confidence  float64
	FetchedAt   time.Time
}

// ApplyClassification copies a classification verdict onto the article.
func (a *Article) ApplyClassification(c Classification) {
	a.Summary = c.Summary
	a.Category = c.Category
	a.Confidence = c.Confidence
}

// ExportHeader is the canonical column order for delimited exports.
var ExportHeader = []string{"title", "source", "published_at", "summary", "category", "confidence", "url"}

// FeedItem is a single candidate entry read from a feed.
type FeedItem struct {
	URL         string
	Title       string
	PublishedAt string
}

// ArticleFilter narrows ArticleStore queries. Zero values disable a filter.
type ArticleFilter struct {
	Text          string
	Source        string
	Category      string
	MinConfidence float64
	PublishedFrom string
	PublishedTo   string
	Limit         int
}

const (
	// QueryLimit bounds interactive listings.
	QueryLimit = 500
	// ExportLimit bounds delimited exports.
	ExportLimit = 5000
	// RecentLimit bounds the latest-fetched listing.
	RecentLimit = 50
)

// TruncateRunes cuts s to at most n characters without splitting a rune.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
