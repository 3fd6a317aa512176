// Package lang defines the set of supported OCR languages and provides
// script-based language detection over recognized text.
package lang

import (
	"fmt"
	"strings"
)

// Language identifies a supported OCR script/language by its short tag.
type Language string

// Supported languages. The declaration order is also the fixed priority
// order used to break ties during detection.
const (
	English Language = "en"
	Arabic  Language = "ar"
	Tamil   Language = "ta"
	Hindi   Language = "hi"
)

// All returns the supported languages in priority order.
func All() []Language {
	return []Language{English, Arabic, Tamil, Hindi}
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	switch l {
	case English, Arabic, Tamil, Hindi:
		return true
	}
	return false
}

// String returns the short language tag (e.g. "en").
func (l Language) String() string { return string(l) }

// aliases maps accepted spellings to their canonical language.
var aliases = map[string]Language{
	"en":         English,
	"eng":        English,
	"english":    English,
	"ar":         Arabic,
	"ara":        Arabic,
	"arabic":     Arabic,
	"ta":         Tamil,
	"tam":        Tamil,
	"tamil":      Tamil,
	"hi":         Hindi,
	"hin":        Hindi,
	"hindi":      Hindi,
	"devanagari": Hindi,
}

// Parse converts a language tag or name into a Language.
//
// Accepted inputs are the short tags ("en", "ar", "ta", "hi"), the ISO 639-2
// codes ("eng", "ara", "tam", "hin"), and the English names ("english",
// "arabic", "tamil", "hindi", "devanagari"). Matching is case-insensitive.
//
// Returns an error for anything else; callers that want a fallback should
// handle the error explicitly rather than silently defaulting.
func Parse(s string) (Language, error) {
	if l, ok := aliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l, nil
	}
	return "", fmt.Errorf("unsupported language %q (supported: en, ar, ta, hi)", s)
}
