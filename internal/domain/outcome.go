package domain

import "math"

// Extraction is the result of turning a page into text. An empty Text is a
// valid "nothing usable" result; Err records why, when there was a reason.
type Extraction struct {
	Text string
	Err  error
}

// Empty reports whether the extraction produced no usable text.
func (e Extraction) Empty() bool {
	return e.Text == ""
}

// Classification is the classifier's structured judgement.
type Classification struct {
	Summary    string
	Category   Category
	Confidence float64
}

// FailedClassification is substituted whenever the completion backend fails.
func FailedClassification() Classification {
	return Classification{
		Summary:    FailedSummary,
		Category:   CategoryOther,
		Confidence: 0,
	}
}

// ClassificationOutcome carries either a parsed verdict or the sentinel plus
// the failure that caused it. Classification is always safe to store.
type ClassificationOutcome struct {
	Classification Classification
	Err            error
}

// Failed reports whether the sentinel classification was substituted.
func (o ClassificationOutcome) Failed() bool {
	return o.Err != nil
}

// ClampConfidence forces a confidence score into [0, 1].
func ClampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
