package pipeline

import (
	"strings"

	"github.com/ApxllxCartxr/ROSETTA/internal/parse"
)

// Region is one retained text span in the final output.
type Region struct {
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"`
	Box        *parse.Box `json:"bbox"`
	Language   string     `json:"language"`
	PageNumber int        `json:"page_number"`
}

// Metadata summarizes one extraction run.
type Metadata struct {
	ProcessingTimeMS           int64  `json:"processing_time_ms"`
	FilteredLowConfidenceCount int    `json:"filtered_low_confidence_count"`
	TotalTextRegions           int    `json:"total_text_regions"`
	LanguageDetected           string `json:"language_detected"`
	MissingBBoxCount           int    `json:"missing_bbox_count"`
	AutoDetected               bool   `json:"auto_detected"`
	MultiLanguage              bool   `json:"multi_language"`
}

// Result is the consolidated output of one extract call. It is a value
// object: constructed once, never mutated afterwards.
type Result struct {
	DocumentID string `json:"document_id"`

	// ExtractedText is ordered by page number ascending, then engine
	// emission order within the page.
	ExtractedText []Region `json:"extracted_text"`

	// OverallConfidence is the mean confidence of retained regions, rounded
	// to four decimal places; 0.0 when nothing survived filtering.
	OverallConfidence float64 `json:"overall_confidence"`

	// LanguageDetected is the dominant language tag, or the detected tags
	// joined with "+" in multi-language mode (e.g. "en+ar").
	LanguageDetected string `json:"language_detected"`

	Metadata Metadata `json:"metadata"`

	// Warnings are advisory quality diagnostics, never errors.
	Warnings []string `json:"warnings"`
}

// ConcatenatedText joins the retained region texts with sep, in output
// order.
func (r *Result) ConcatenatedText(sep string) string {
	parts := make([]string, 0, len(r.ExtractedText))
	for _, region := range r.ExtractedText {
		parts = append(parts, region.Text)
	}
	return strings.Join(parts, sep)
}

// HighConfidence returns the retained regions scoring at or above min.
func (r *Result) HighConfidence(min float64) []Region {
	var out []Region
	for _, region := range r.ExtractedText {
		if region.Confidence >= min {
			out = append(out, region)
		}
	}
	return out
}
