package ml

import (
	"fmt"
	"strings"

	"MentionScanner/internal/domain"
)

const promptTemplate = `You are a security/OSINT summarizer. Given the following publicly available article text and its URL,
produce a JSON object with these fields:
- summary: one short paragraph (max 70 words) describing key facts.
- category: one of [%s] where "claimed_operation" indicates the article explicitly reports an ongoing hacktivist operation by name.
- confidence: a float between 0.0 and 1.0 indicating confidence the article actually describes an ongoing publicly-declared hacktivist operation.
Return ONLY valid JSON.

URL: %s

ARTICLE TEXT:
"""%s"""
`

func buildPrompt(text, sourceURL string) string {
	quoted := make([]string, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		quoted = append(quoted, `"`+string(c)+`"`)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(quoted, ","), sourceURL, text)
}
