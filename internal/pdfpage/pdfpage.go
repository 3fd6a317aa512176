// Package pdfpage turns scanned PDF documents into per-page raster images.
//
// Scanned PDFs are thin containers: each page typically wraps a single
// full-page image XObject. Rather than rasterizing page content streams,
// which would need a full PDF renderer, the extractor pulls those embedded
// images back out and hands them to the recognition pipeline one page at a
// time. Born-digital PDFs without page scans yield no images; callers are
// expected to degrade gracefully in that case.
package pdfpage

import (
	"bytes"
	"fmt"
	"image"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ApxllxCartxr/ROSETTA/internal/imgio"
)

// pdfMagic is the header every PDF file starts with.
var pdfMagic = []byte("%PDF-")

// IsPDF reports whether the data looks like a PDF document.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// Renderer produces one raster image per PDF page. A nil entry means the
// page had no usable raster; the slice is indexed by page order starting at
// page one. maxPages <= 0 means no limit.
type Renderer interface {
	RenderPages(pdf []byte, maxPages int) ([]image.Image, error)
}

// Extractor is the pdfcpu-backed Renderer. The zero value is not usable;
// construct with NewExtractor.
type Extractor struct {
	conf *model.Configuration
}

// NewExtractor returns an Extractor with the default pdfcpu configuration.
func NewExtractor() *Extractor {
	return &Extractor{conf: model.NewDefaultConfiguration()}
}

// RenderPages extracts the dominant embedded image of each page.
//
// A malformed document returns an error; a structurally valid page that
// has no decodable image yields a nil entry instead, so one bad page never
// sinks the rest of the document.
func (e *Extractor) RenderPages(pdf []byte, maxPages int) ([]image.Image, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdf), e.conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	pageCount := ctx.PageCount
	if maxPages > 0 && pageCount > maxPages {
		pageCount = maxPages
	}

	out := make([]image.Image, 0, pageCount)
	for pageNr := 1; pageNr <= pageCount; pageNr++ {
		out = append(out, extractPageImage(ctx, pageNr))
	}
	return out, nil
}

// extractPageImage returns the largest decodable image embedded in the
// page, or nil when the page carries none. Largest-by-area picks the page
// scan over incidental artwork like logos or stamps.
func extractPageImage(ctx *model.Context, pageNr int) image.Image {
	images, err := pdfcpu.ExtractPageImages(ctx, pageNr, false)
	if err != nil {
		return nil
	}

	var best image.Image
	bestArea := 0
	for _, pageImage := range images {
		img, err := imgio.DecodeReader(pageImage)
		if err != nil {
			continue
		}
		bounds := img.Bounds()
		if area := bounds.Dx() * bounds.Dy(); area > bestArea {
			best, bestArea = img, area
		}
	}
	return best
}
