package pipeline

import "fmt"

// Advisory warning texts. Warnings describe quality issues; they are never
// raised as errors.
const (
	warnNoText     = "No text extracted above confidence threshold."
	warnVeryLow    = "Overall confidence is very low (<50%). Document may be poor quality."
	warnLow        = "Overall confidence is low (<70%). Manual review recommended."
	warnUnreadable = "Document may be unreadable, damaged, or in unsupported language."

	warnPDFUnavailable = "PDF rendering is unavailable; document processed without page images."
)

// qualityWarnings derives the advisory messages for an extraction's
// aggregate outcome: overall confidence bands, a disproportionate number of
// filtered regions, and the nothing-survived case.
func qualityWarnings(overall float64, dropped, kept int) []string {
	var warnings []string

	switch {
	case overall == 0.0:
		warnings = append(warnings, warnNoText)
	case overall < 0.5:
		warnings = append(warnings, warnVeryLow)
	case overall < 0.7:
		warnings = append(warnings, warnLow)
	}

	if dropped > kept && kept > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"High number of low-confidence regions filtered (%d vs %d).", dropped, kept))
	}
	if kept == 0 {
		warnings = append(warnings, warnUnreadable)
	}
	return warnings
}
