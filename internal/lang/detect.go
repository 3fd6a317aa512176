package lang

import "unicode"

// scriptRange is an inclusive Unicode code point interval.
type scriptRange struct {
	lo, hi rune
}

// scriptRanges maps each language to the Unicode blocks of its script.
//
// The Latin entry deliberately stops at Latin Extended-B; characters inside
// these blocks still only count when they are letters, so digits and
// punctuation shared across scripts never vote for a language.
var scriptRanges = map[Language][]scriptRange{
	Arabic: {
		{0x0600, 0x06FF}, // Arabic
		{0x0750, 0x077F}, // Arabic Supplement
		{0x08A0, 0x08FF}, // Arabic Extended-A
		{0xFB50, 0xFDFF}, // Arabic Presentation Forms-A
		{0xFE70, 0xFEFF}, // Arabic Presentation Forms-B
	},
	Tamil: {
		{0x0B80, 0x0BFF},
	},
	Hindi: {
		{0x0900, 0x097F}, // Devanagari
	},
	English: {
		{0x0000, 0x024F}, // Basic Latin through Latin Extended-B
	},
}

// classify returns the language whose script contains r, or false when the
// rune belongs to no supported script or is not a letter.
func classify(r rune) (Language, bool) {
	if !unicode.IsLetter(r) {
		return "", false
	}
	for _, l := range All() {
		for _, sr := range scriptRanges[l] {
			if r >= sr.lo && r <= sr.hi {
				return l, true
			}
		}
	}
	return "", false
}

// countScripts tallies letters per script family.
func countScripts(text string) map[Language]int {
	counts := make(map[Language]int, len(scriptRanges))
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		if l, ok := classify(r); ok {
			counts[l]++
		}
	}
	return counts
}

// DetectPrimary returns the dominant language of text based on how many
// letters fall into each supported script.
//
// Ties are broken by the fixed priority order English > Arabic > Tamil >
// Hindi. Empty text, or text containing only digits, punctuation, and
// characters from unsupported scripts, yields no detection: the second
// return value is false and callers should fall back to their configured
// default language.
func DetectPrimary(text string) (Language, bool) {
	counts := countScripts(text)

	var best Language
	bestCount := 0
	for _, l := range All() {
		if counts[l] > bestCount {
			best = l
			bestCount = counts[l]
		}
	}
	if bestCount == 0 {
		return "", false
	}
	return best, true
}

// detectAllNoiseFloor is the minimum letter count for a script to be
// reported by DetectAll. A single stray character (e.g. one accented
// letter inside an otherwise Arabic document) is not evidence of a
// second language.
const detectAllNoiseFloor = 2

// DetectAll returns every language with at least detectAllNoiseFloor
// letters in text, in priority order. Returns nil when nothing qualifies;
// callers should then fall back to their configured default language.
func DetectAll(text string) []Language {
	counts := countScripts(text)

	var detected []Language
	for _, l := range All() {
		if counts[l] >= detectAllNoiseFloor {
			detected = append(detected, l)
		}
	}
	return detected
}
