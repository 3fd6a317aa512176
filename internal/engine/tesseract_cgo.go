//go:build cgo

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/ApxllxCartxr/ROSETTA/internal/imgio"
	"github.com/ApxllxCartxr/ROSETTA/internal/lang"
)

// tessLanguages maps supported language tags to Tesseract traineddata names.
var tessLanguages = map[lang.Language]string{
	lang.English: "eng",
	lang.Arabic:  "ara",
	lang.Tamil:   "tam",
	lang.Hindi:   "hin",
}

// NewTesseract constructs a Tesseract-backed engine for cfg. The returned
// engine emits the classic raw result shape: one page array of
// [polygon, [text, score]] entries, ready for the parse package.
//
// The GPU flag is advisory only; Tesseract runs on CPU regardless, so two
// configs differing only in UseGPU still load separate instances but behave
// identically.
func NewTesseract(cfg Config) (Engine, error) {
	cfg = cfg.Normalize()
	tessLang, ok := tessLanguages[cfg.Language]
	if !ok {
		return nil, fmt.Errorf("no traineddata mapping for language %q", cfg.Language)
	}
	return &tesseractEngine{cfg: cfg, tessLang: tessLang}, nil
}

type tesseractEngine struct {
	cfg      Config
	tessLang string
}

// Run recognizes the image at path. A fresh client is created per call;
// gosseract clients are not safe for concurrent use, and client setup is
// cheap compared to model loading, which Tesseract caches internally per
// traineddata file.
func (e *tesseractEngine) Run(ctx context.Context, imagePath string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	workPath, scale, cleanup := e.stageScaled(imagePath)
	defer cleanup()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.tessLang); err != nil {
		return nil, fmt.Errorf("set language %q: %w", e.tessLang, err)
	}
	for name, value := range e.cfg.Variables {
		if err := client.SetVariable(gosseract.SettableVariable(name), value); err != nil {
			return nil, fmt.Errorf("set variable %s: %w", name, err)
		}
	}
	if err := client.SetImage(workPath); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		// Fall back to plain text recognition without geometry.
		text, terr := client.Text()
		if terr != nil {
			return nil, fmt.Errorf("recognition failed: %w", terr)
		}
		return marshalClassic([]rawEntry{{
			text:  text,
			score: 0,
		}})
	}

	entries := make([]rawEntry, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		entries = append(entries, rawEntry{
			text:  box.Word,
			score: float64(box.Confidence) / 100.0,
			poly: [][]int{
				{rescale(box.Box.Min.X, scale), rescale(box.Box.Min.Y, scale)},
				{rescale(box.Box.Max.X, scale), rescale(box.Box.Min.Y, scale)},
				{rescale(box.Box.Max.X, scale), rescale(box.Box.Max.Y, scale)},
				{rescale(box.Box.Min.X, scale), rescale(box.Box.Max.Y, scale)},
			},
		})
	}
	return marshalClassic(entries)
}

// stageScaled enforces the profile's MaxSideLen: an image whose longer side
// exceeds it is downscaled to a temp file before recognition, and the
// returned scale maps recognized geometry back to source-image pixels.
// Any staging problem falls back to the original image at scale 1.
func (e *tesseractEngine) stageScaled(imagePath string) (string, float64, func()) {
	noop := func() {}
	tuning := e.cfg.Profile.Tuning()
	if tuning.MaxSideLen <= 0 {
		return imagePath, 1, noop
	}

	img, err := imgio.Load(imagePath)
	if err != nil {
		return imagePath, 1, noop
	}
	bounds := img.Bounds()
	longer := bounds.Dx()
	if bounds.Dy() > longer {
		longer = bounds.Dy()
	}
	if longer <= tuning.MaxSideLen {
		return imagePath, 1, noop
	}

	resized := imaging.Fit(img, tuning.MaxSideLen, tuning.MaxSideLen, imaging.Lanczos)
	path, cleanup, err := imgio.SaveTempPNG(resized, "ocrpipe-scaled")
	if err != nil {
		return imagePath, 1, noop
	}

	rb := resized.Bounds()
	resizedLonger := rb.Dx()
	if rb.Dy() > resizedLonger {
		resizedLonger = rb.Dy()
	}
	if resizedLonger <= 0 {
		cleanup()
		return imagePath, 1, noop
	}
	return path, float64(longer) / float64(resizedLonger), cleanup
}

// rescale maps a coordinate recognized on the downscaled image back into
// source-image pixels.
func rescale(v int, scale float64) int {
	if scale == 1 {
		return v
	}
	return int(float64(v)*scale + 0.5)
}

func (e *tesseractEngine) Close() error { return nil }

// rawEntry is one recognition before serialization to the classic shape.
type rawEntry struct {
	text  string
	score float64
	poly  [][]int
}

// marshalClassic serializes entries as the classic one-page raw result:
// [[[polygon, [text, score]], ...]].
func marshalClassic(entries []rawEntry) (json.RawMessage, error) {
	page := make([]any, 0, len(entries))
	for _, e := range entries {
		var poly any
		if e.poly != nil {
			poly = e.poly
		}
		// Scores travel as JSON numbers; round-trip through strconv keeps
		// them compact without float artifacts.
		score, err := strconv.ParseFloat(strconv.FormatFloat(e.score, 'f', 4, 64), 64)
		if err != nil {
			score = e.score
		}
		page = append(page, []any{poly, []any{e.text, score}})
	}
	return json.Marshal([]any{page})
}
