// Package pipeline consolidates raw OCR engine output into a single
// deduplicated, confidence-scored extraction result.
//
// One extract call runs the full sequence: decode the input (image file,
// byte buffer, or multi-page PDF rendered to page images), optionally
// enhance each page, pick the language set, invoke a cached engine instance
// per (page, language) pair, normalize and spatially merge the raw results,
// filter by confidence, and aggregate the survivors into a Result carrying
// advisory warnings. Only invalid input or configuration terminates a call;
// every other failure degrades to a warning inside a still-valid Result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ApxllxCartxr/ROSETTA/internal/dedupe"
	"github.com/ApxllxCartxr/ROSETTA/internal/engine"
	"github.com/ApxllxCartxr/ROSETTA/internal/imgio"
	"github.com/ApxllxCartxr/ROSETTA/internal/lang"
	"github.com/ApxllxCartxr/ROSETTA/internal/parse"
	"github.com/ApxllxCartxr/ROSETTA/internal/pdfpage"
	"github.com/ApxllxCartxr/ROSETTA/internal/preprocess"
)

// Pipeline orchestrates extraction. Construct with New; a Pipeline is safe
// for concurrent use, with the engine cache as the only shared state.
type Pipeline struct {
	opts   Options
	cache  *engine.Cache
	logger *log.Logger

	renderer    pdfpage.Renderer
	rendererSet bool
}

// Option customizes a Pipeline at construction.
type Option func(*Pipeline)

// WithEngineCache substitutes the engine cache, letting callers share one
// cache across pipelines or inject a counting fake in tests.
func WithEngineCache(cache *engine.Cache) Option {
	return func(p *Pipeline) { p.cache = cache }
}

// WithRenderer substitutes the PDF page renderer. Passing nil disables PDF
// rendering entirely; PDF input then degrades to a warning instead of page
// images.
func WithRenderer(r pdfpage.Renderer) Option {
	return func(p *Pipeline) {
		p.renderer = r
		p.rendererSet = true
	}
}

// WithLogger directs diagnostic output to l. Without it the pipeline is
// silent.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New validates opts and builds a Pipeline. Option validation failures
// return a ConfigurationError before any engine work begins.
func New(opts Options, extra ...Option) (*Pipeline, error) {
	normalized, err := opts.normalized()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{opts: normalized}
	for _, o := range extra {
		o(p)
	}
	if p.cache == nil {
		p.cache = engine.NewCache(engine.NewTesseract)
	}
	if !p.rendererSet {
		p.renderer = pdfpage.NewExtractor()
	}
	return p, nil
}

// ClearCache drops all cached engine instances. Subsequent calls re-create
// them lazily.
func (p *Pipeline) ClearCache() { p.cache.Clear() }

// ExtractFile extracts text from the image or PDF file at path.
func (p *Pipeline) ExtractFile(ctx context.Context, path string) (*Result, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &InputError{Input: path, Err: err}
	}
	ext := filepath.Ext(path)
	if !imgio.SupportedExtension(ext) {
		return nil, &InputError{Input: path, Err: fmt.Errorf("unsupported format %q", ext)}
	}

	if strings.EqualFold(ext, ".pdf") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &InputError{Input: path, Err: err}
		}
		return p.extractPDF(ctx, path, data)
	}

	img, err := imgio.Load(path)
	if err != nil {
		return nil, &InputError{Input: path, Err: err}
	}
	return p.run(ctx, []pageImage{{img: img, page: 1}}, nil)
}

// ExtractBytes extracts text from an in-memory document. The extension hint
// disambiguates formats for callers that have one; PDF input is recognized
// by its magic header regardless of the hint.
func (p *Pipeline) ExtractBytes(ctx context.Context, data []byte, extHint string) (*Result, error) {
	if len(data) == 0 {
		return nil, &InputError{Input: "byte buffer", Err: errors.New("empty input")}
	}
	if pdfpage.IsPDF(data) {
		return p.extractPDF(ctx, "byte buffer", data)
	}
	if extHint != "" && !imgio.SupportedExtension(extHint) {
		return nil, &InputError{Input: "byte buffer", Err: fmt.Errorf("unsupported format %q", extHint)}
	}

	img, err := imgio.Decode(data)
	if err != nil {
		return nil, &InputError{Input: "byte buffer", Err: err}
	}
	return p.run(ctx, []pageImage{{img: img, page: 1}}, nil)
}

// pageImage pairs a decoded page with its 1-based page number.
type pageImage struct {
	img  image.Image
	page int
}

// extractPDF renders the document to page images and hands them to the
// common path. A missing renderer or an image-less page degrades to a
// warning; only a document the renderer cannot read at all is an
// InputError.
func (p *Pipeline) extractPDF(ctx context.Context, name string, data []byte) (*Result, error) {
	if p.renderer == nil {
		return p.run(ctx, nil, []string{warnPDFUnavailable})
	}

	images, err := p.renderer.RenderPages(data, p.opts.MaxPDFPages)
	if err != nil {
		return nil, &InputError{Input: name, Err: err}
	}

	var pages []pageImage
	var warnings []string
	for i, img := range images {
		if img == nil {
			warnings = append(warnings, fmt.Sprintf("Page %d has no extractable image; skipped.", i+1))
			continue
		}
		pages = append(pages, pageImage{img: img, page: i + 1})
	}
	return p.run(ctx, pages, warnings)
}

// run is the common extraction path over decoded page images. warnings
// carries any advisories accumulated while producing the pages.
func (p *Pipeline) run(ctx context.Context, pages []pageImage, warnings []string) (*Result, error) {
	start := time.Now()
	docID := uuid.NewString()
	p.logf("extraction %s: %d page(s)", docID, len(pages))

	if p.opts.EnablePreprocessing {
		pp := preprocess.New(p.opts.PreprocessingSteps, p.logger)
		for i := range pages {
			enhanced, failures := pp.Run(pages[i].img)
			pages[i].img = enhanced
			for _, f := range failures {
				warnings = append(warnings, fmt.Sprintf("Preprocessing step %s skipped: %v", f.Step, f.Err))
			}
		}
	}

	// Stage each page as a temp PNG for the engine; all staged files are
	// released when run returns, on every path.
	paths := make([]string, len(pages))
	for i := range pages {
		path, cleanup, err := imgio.SaveTempPNG(pages[i].img, "ocrpipe-page")
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Page %d could not be staged for recognition: %v", pages[i].page, err))
			continue
		}
		defer cleanup()
		paths[i] = path
	}

	prePassPath := ""
	for _, path := range paths {
		if path != "" {
			prePassPath = path
			break
		}
	}

	languages, autoDetected := p.selectLanguages(ctx, prePassPath)

	var retainedByPage []parse.Region
	totalRegions := 0
	for i, pg := range pages {
		if paths[i] == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var pageRegions []parse.Region
		for _, l := range languages {
			regions, err := p.runPass(ctx, paths[i], pg.page, l)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("OCR extraction failed: %v", err))
				p.logf("extraction %s: %v", docID, err)
				continue
			}
			pageRegions = append(pageRegions, regions...)
		}
		totalRegions += len(pageRegions)

		// Multiple passes over one page re-recognize the same glyphs; keep
		// the best recognition per physical location.
		if len(languages) > 1 {
			pageRegions = dedupe.Deduplicate(pageRegions, p.opts.IoUThreshold)
		}
		retainedByPage = append(retainedByPage, pageRegions...)
	}

	var kept []parse.Region
	dropped, missingBox := 0, 0
	confidenceSum := 0.0
	for _, r := range retainedByPage {
		if r.Box == nil {
			missingBox++
		}
		if r.Confidence >= p.opts.ConfidenceThreshold {
			kept = append(kept, r)
			confidenceSum += r.Confidence
		} else {
			dropped++
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Page != kept[j].Page {
			return kept[i].Page < kept[j].Page
		}
		return kept[i].Seq < kept[j].Seq
	})

	overall := 0.0
	if len(kept) > 0 {
		overall = round4(confidenceSum / float64(len(kept)))
	}

	multi := p.opts.MultiLanguage
	langTag := string(majorityLanguage(kept, languages[0]))
	if multi && len(languages) > 1 {
		tags := make([]string, len(languages))
		for i, l := range languages {
			tags[i] = string(l)
		}
		langTag = strings.Join(tags, "+")
		warnings = append(warnings, fmt.Sprintf("Multi-language document detected: %s", strings.Join(tags, ", ")))
	}

	warnings = append(warnings, qualityWarnings(overall, dropped, len(kept))...)
	if missingBox > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"%d text regions are missing bounding boxes; downstream highlighting will not cover these.", missingBox))
	}

	out := make([]Region, 0, len(kept))
	for _, r := range kept {
		out = append(out, Region{
			Text:       r.Text,
			Confidence: r.Confidence,
			Box:        r.Box,
			Language:   r.Language,
			PageNumber: r.Page,
		})
	}
	if warnings == nil {
		warnings = []string{}
	}

	p.logf("extraction %s complete: %d region(s), confidence %.2f", docID, len(out), overall)
	return &Result{
		DocumentID:        docID,
		ExtractedText:     out,
		OverallConfidence: overall,
		LanguageDetected:  langTag,
		Metadata: Metadata{
			ProcessingTimeMS:           time.Since(start).Milliseconds(),
			FilteredLowConfidenceCount: dropped,
			TotalTextRegions:           totalRegions,
			LanguageDetected:           langTag,
			MissingBBoxCount:           missingBox,
			AutoDetected:               autoDetected,
			MultiLanguage:              multi,
		},
		Warnings: warnings,
	}, nil
}

// selectLanguages decides which language-specific engine passes to run. In
// multi-language mode every detected script gets a pass; with auto-detection
// the single dominant script replaces the default. Detection uses one cheap
// pre-pass in the default language over the first page; when it finds
// nothing the default language stands.
func (p *Pipeline) selectLanguages(ctx context.Context, prePassPath string) ([]lang.Language, bool) {
	fallback := []lang.Language{p.opts.DefaultLanguage}
	if prePassPath == "" || (!p.opts.MultiLanguage && !p.opts.AutoDetectLanguage) {
		return fallback, false
	}

	sample, ok := p.sampleText(ctx, prePassPath)
	if !ok {
		return fallback, true
	}

	if p.opts.MultiLanguage {
		if detected := lang.DetectAll(sample); len(detected) > 0 {
			return detected, true
		}
		return fallback, true
	}

	if primary, ok := lang.DetectPrimary(sample); ok {
		return []lang.Language{primary}, true
	}
	return fallback, true
}

// sampleText runs the default-language pass over one page and concatenates
// the recognized texts for script classification.
func (p *Pipeline) sampleText(ctx context.Context, path string) (string, bool) {
	regions, err := p.runPass(ctx, path, 1, p.opts.DefaultLanguage)
	if err != nil || len(regions) == 0 {
		return "", false
	}
	var sb strings.Builder
	for _, r := range regions {
		sb.WriteString(r.Text)
		sb.WriteByte(' ')
	}
	return sb.String(), true
}

// runPass performs one engine invocation over one staged page image and
// normalizes its raw result, tagging every region with the pass language.
func (p *Pipeline) runPass(ctx context.Context, path string, page int, l lang.Language) ([]parse.Region, error) {
	cfg := engine.Config{
		Language:  l,
		Profile:   p.opts.Profile,
		UseGPU:    p.opts.UseGPU,
		Variables: p.opts.EngineVariables,
	}
	eng, err := p.cache.Get(cfg)
	if err != nil {
		return nil, &EngineInvocationError{Page: page, Language: l, Err: err}
	}
	raw, err := eng.Run(ctx, path)
	if err != nil {
		return nil, &EngineInvocationError{Page: page, Language: l, Err: err}
	}
	regions, err := parse.Parse(raw, page)
	if err != nil {
		return nil, &EngineInvocationError{Page: page, Language: l, Err: err}
	}
	for i := range regions {
		regions[i].Language = string(l)
	}
	return regions, nil
}

// majorityLanguage returns the most common language tag among the regions,
// ties broken by first appearance, or fallback when there are no regions.
func majorityLanguage(regions []parse.Region, fallback lang.Language) lang.Language {
	counts := make(map[string]int)
	var order []string
	for _, r := range regions {
		if counts[r.Language] == 0 {
			order = append(order, r.Language)
		}
		counts[r.Language]++
	}

	best := ""
	for _, tag := range order {
		if best == "" || counts[tag] > counts[best] {
			best = tag
		}
	}
	if best == "" {
		return fallback
	}
	return lang.Language(best)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}
