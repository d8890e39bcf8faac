package usecase

import (
	"context"
	"log/slog"

	"MentionScanner/internal/domain"
	"MentionScanner/internal/logging"
	"MentionScanner/internal/ports"
)

// Disposition is what happened to a candidate handed to the pipeline.
type Disposition int

const (
	Irrelevant Disposition = iota
	Saved
	Duplicate
	StoreFailed
)

func (d Disposition) String() string {
	switch d {
	case Irrelevant:
		return "irrelevant"
	case Saved:
		return "saved"
	case Duplicate:
		return "duplicate"
	default:
		return "store_failed"
	}
}

// PipelineDeps wires the collaborators shared by both ingestion drivers.
type PipelineDeps struct {
	Keywords   domain.KeywordSet
	Classifier ports.Classifier
	Store      ports.ArticleStore
	Alerts     *Alerter
	Logger     *slog.Logger
}

// Pipeline is the common tail of feed and chat ingestion: relevance gate,
// classification, deduplicated save and optional alert.
type Pipeline struct {
	keywords   domain.KeywordSet
	classifier ports.Classifier
	store      ports.ArticleStore
	alerts     *Alerter
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		keywords:   deps.Keywords,
		classifier: deps.Classifier,
		store:      deps.Store,
		alerts:     deps.Alerts,
		logger:     logging.OrDefault(deps.Logger),
	}
}

// Process classifies and stores article when relevanceText mentions a
// tracked keyword. The classifier is never called for irrelevant input.
// No failure propagates: store errors are logged and reported as StoreFailed.
func (p *Pipeline) Process(ctx context.Context, article domain.Article, relevanceText string) Disposition {
	if !p.keywords.Matches(relevanceText) {
		p.logger.Debug("not relevant", "url", article.URL)
		return Irrelevant
	}

	outcome := p.classifier.Classify(ctx, article.Content, article.URL)
	if outcome.Failed() {
		p.logger.Warn("classification failed, storing sentinel", "url", article.URL, "error", outcome.Err)
	}
	article.ApplyClassification(outcome.Classification)
	article.Confidence = domain.ClampConfidence(article.Confidence)

	inserted, err := p.store.Save(ctx, article)
	if err != nil {
		p.logger.Error("save article", "url", article.URL, "error", err)
		return StoreFailed
	}
	if !inserted {
		p.logger.Debug("duplicate article", "url", article.URL)
		return Duplicate
	}

	p.logger.Info("article saved",
		"url", article.URL,
		"source", article.Source,
		"category", article.Category,
		"confidence", article.Confidence,
	)
	p.alerts.Consider(ctx, article)
	return Saved
}
