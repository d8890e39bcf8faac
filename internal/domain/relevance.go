package domain

import "strings"

// KeywordSet is an ordered set of case-insensitive substrings.
type KeywordSet struct {
	folded []string
}

// NewKeywordSet folds and de-duplicates keywords, dropping blanks.
func NewKeywordSet(keywords []string) KeywordSet {
	seen := make(map[string]struct{}, len(keywords))
	folded := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		k := strings.ToLower(strings.TrimSpace(kw))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		folded = append(folded, k)
	}
	return KeywordSet{folded: folded}
}

// Matches reports whether text contains at least one keyword.
func (k KeywordSet) Matches(text string) bool {
	if text == "" || len(k.folded) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range k.folded {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsRelevant is the functional form of KeywordSet.Matches.
func IsRelevant(text string, keywords []string) bool {
	return NewKeywordSet(keywords).Matches(text)
}
