package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"MentionScanner/internal/domain"
	"MentionScanner/internal/logging"
	"MentionScanner/internal/ports"
)

// ErrMalformedResponse covers every deviation from the three-field JSON shape.
var ErrMalformedResponse = errors.New("malformed classification response")

const defaultMaxTokens = 400

// Classifier implements ports.Classifier on top of a completion backend.
type Classifier struct {
	completer    ports.Completer
	systemPrompt string
	maxTokens    int
	logger       *slog.Logger
}

var _ ports.Classifier = (*Classifier)(nil)

// NewClassifier wraps a completer.
func NewClassifier(completer ports.Completer, systemPrompt string, maxTokens int, logger *slog.Logger) *Classifier {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Classifier{
		completer:    completer,
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
		logger:       logging.OrDefault(logger),
	}
}

// Classify asks the model for a summary, category and confidence. Any failure
// is logged and returned as the sentinel classification with Err set.
func (c *Classifier) Classify(ctx context.Context, text, sourceURL string) domain.ClassificationOutcome {
	if c.completer == nil {
		return c.failed(sourceURL, errors.New("no completion backend configured"))
	}

	raw, err := c.completer.Complete(ctx, ports.CompletionRequest{
		SystemPrompt: c.systemPrompt,
		UserPrompt:   buildPrompt(text, sourceURL),
		MaxTokens:    c.maxTokens,
	})
	if err != nil {
		return c.failed(sourceURL, fmt.Errorf("complete: %w", err))
	}

	verdict, rawConfidence, err := parseVerdict(raw)
	if err != nil {
		return c.failed(sourceURL, err)
	}
	if verdict.Confidence != rawConfidence {
		c.logger.Warn("confidence out of range, clamped", "url", sourceURL, "confidence", rawConfidence)
	}

	return domain.ClassificationOutcome{Classification: verdict}
}

func (c *Classifier) failed(sourceURL string, err error) domain.ClassificationOutcome {
	c.logger.Error("classification failed", "url", sourceURL, "error", err)
	return domain.ClassificationOutcome{
		Classification: domain.FailedClassification(),
		Err:            err,
	}
}

type verdictPayload struct {
	Summary    json.RawMessage `json:"summary"`
	Category   json.RawMessage `json:"category"`
	Confidence json.RawMessage `json:"confidence"`
}

// parseVerdict decodes the model output. Missing fields take their defaults,
// fields of the wrong type are malformed. It also returns the unclamped confidence.
func parseVerdict(raw string) (domain.Classification, float64, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return domain.Classification{}, 0, fmt.Errorf("%w: not a json object", ErrMalformedResponse)
	}

	var payload verdictPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return domain.Classification{}, 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	summary, err := optionalString(payload.Summary)
	if err != nil {
		return domain.Classification{}, 0, fmt.Errorf("%w: summary: %v", ErrMalformedResponse, err)
	}
	category, err := optionalString(payload.Category)
	if err != nil {
		return domain.Classification{}, 0, fmt.Errorf("%w: category: %v", ErrMalformedResponse, err)
	}
	confidence, err := optionalFloat(payload.Confidence)
	if err != nil {
		return domain.Classification{}, 0, fmt.Errorf("%w: confidence: %v", ErrMalformedResponse, err)
	}

	return domain.Classification{
		Summary:    domain.TruncateRunes(summary, domain.MaxSummaryChars),
		Category:   domain.ParseCategory(category),
		Confidence: domain.ClampConfidence(confidence),
	}, confidence, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func optionalString(raw json.RawMessage) (string, error) {
	if isAbsent(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

// optionalFloat accepts a JSON number or a numeric string.
func optionalFloat(raw json.RawMessage) (float64, error) {
	if isAbsent(raw) {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not a number: %s", raw)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return f, nil
}
