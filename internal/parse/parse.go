// Package parse normalizes raw OCR engine output into uniform text regions.
//
// Engines differ in how they shape their results across versions: the classic
// shape is a JSON array of per-page arrays whose entries pair a detection
// polygon with a (text, score) tuple; the newer shape is a JSON object
// carrying the parallel arrays rec_texts, rec_scores, and boxes. Parse
// dispatches on the shape of the payload itself, never on a version flag, and
// degrades entry by entry: a malformed box yields a nil bounding box, a
// missing score yields 0.0, and an unrecognizable entry is skipped.
package parse

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Region is one recognized text span in normalized form.
type Region struct {
	// Text is the recognized content. Parse never emits an empty Text;
	// box-only detections are dropped as degenerate.
	Text string

	// Confidence is the engine's native score clamped to [0, 1].
	Confidence float64

	// Box is the normalized bounding box, or nil when the engine provided
	// no usable geometry for this entry.
	Box *Box

	// Page is the 1-based page number the region was recognized on.
	Page int

	// Language tags the engine pass that produced the region. The parser
	// leaves it empty; the caller that knows which language-specific pass
	// ran fills it in.
	Language string

	// Seq is the emission order within the Parse call, used to restore
	// engine output order after confidence-ordered processing.
	Seq int
}

// clampConfidence bounds a raw engine score to [0, 1].
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// columnarPage is the newer engine result shape: parallel arrays indexed by
// detection.
type columnarPage struct {
	RecTexts  []string          `json:"rec_texts"`
	RecScores []float64         `json:"rec_scores"`
	Boxes     []json.RawMessage `json:"boxes"`
}

// Parse normalizes a raw engine result into (text, confidence, box) regions
// tagged with the given 1-based page number.
//
// The payload is expected to be a JSON array of page results (engines wrap
// even single-image output in a one-element array); each page result is
// either the classic entry list or the columnar object. A bare columnar
// object without the array wrapper is also accepted. All nested pages are
// tagged with the supplied page number, since the pipeline invokes the
// engine once per rendered page.
//
// Only a payload that is not decodable JSON at all returns an error;
// malformed individual entries are skipped, missing scores default to 0.0,
// and missing or degenerate boxes become nil.
func Parse(raw json.RawMessage, page int) ([]Region, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	seq := 0

	// Bare columnar object.
	if trimmed[0] == '{' {
		var cols columnarPage
		if err := json.Unmarshal(trimmed, &cols); err != nil {
			return nil, fmt.Errorf("engine result is not decodable JSON: %w", err)
		}
		return parseColumnar(cols, page, &seq), nil
	}

	var pages []json.RawMessage
	if err := json.Unmarshal(trimmed, &pages); err != nil {
		return nil, fmt.Errorf("engine result is not decodable JSON: %w", err)
	}

	var regions []Region
	for _, pageRaw := range pages {
		pageRaw = bytes.TrimSpace(pageRaw)
		if len(pageRaw) == 0 || bytes.Equal(pageRaw, []byte("null")) {
			continue
		}
		switch pageRaw[0] {
		case '{':
			var cols columnarPage
			if err := json.Unmarshal(pageRaw, &cols); err != nil {
				continue
			}
			regions = append(regions, parseColumnar(cols, page, &seq)...)
		case '[':
			var entries []json.RawMessage
			if err := json.Unmarshal(pageRaw, &entries); err != nil {
				continue
			}
			for _, entry := range entries {
				if r, ok := parseClassicEntry(entry, page, seq); ok {
					regions = append(regions, r)
					seq++
				}
			}
		}
	}
	return regions, nil
}

// parseColumnar flattens the parallel-array shape. rec_texts drives the
// iteration; scores and boxes shorter than it fall back to 0.0 and nil.
func parseColumnar(cols columnarPage, page int, seq *int) []Region {
	regions := make([]Region, 0, len(cols.RecTexts))
	for i, text := range cols.RecTexts {
		if text == "" {
			continue
		}
		score := 0.0
		if i < len(cols.RecScores) {
			score = cols.RecScores[i]
		}
		var box *Box
		if i < len(cols.Boxes) {
			box = decodePolygon(cols.Boxes[i])
		}
		regions = append(regions, Region{
			Text:       text,
			Confidence: clampConfidence(score),
			Box:        box,
			Page:       page,
			Seq:        *seq,
		})
		*seq++
	}
	return regions
}

// parseClassicEntry decodes one [polygon, (text, score)] pair. The second
// element may also be a bare string, in which case the score defaults to 0.0.
func parseClassicEntry(entry json.RawMessage, page, seq int) (Region, bool) {
	var parts []json.RawMessage
	if err := json.Unmarshal(entry, &parts); err != nil || len(parts) < 2 {
		return Region{}, false
	}

	text, score, ok := decodeTextScore(parts[1])
	if !ok || text == "" {
		return Region{}, false
	}

	return Region{
		Text:       text,
		Confidence: clampConfidence(score),
		Box:        decodePolygon(parts[0]),
		Page:       page,
		Seq:        seq,
	}, true
}

// decodeTextScore accepts either ["text", score] or a bare "text" string.
func decodeTextScore(raw json.RawMessage) (string, float64, bool) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err == nil {
		if len(pair) == 0 {
			return "", 0, false
		}
		var text string
		if err := json.Unmarshal(pair[0], &text); err != nil {
			return "", 0, false
		}
		score := 0.0
		if len(pair) > 1 {
			// A malformed score decodes as 0.0 rather than failing the entry.
			_ = json.Unmarshal(pair[1], &score)
		}
		return text, score, true
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", 0, false
	}
	return text, 0, true
}

// decodePolygon accepts a polygon as nested points [[x,y], ...] or as a flat
// coordinate list [x1,y1,x2,y2,...] and normalizes it. Anything else yields
// nil.
func decodePolygon(raw json.RawMessage) *Box {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var points [][]float64
	if err := json.Unmarshal(raw, &points); err == nil {
		return NormalizeBox(points)
	}

	var flat []float64
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil
	}
	points = points[:0]
	for i := 0; i+1 < len(flat); i += 2 {
		points = append(points, []float64{flat[i], flat[i+1]})
	}
	return NormalizeBox(points)
}
