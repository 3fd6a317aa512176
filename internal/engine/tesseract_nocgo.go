//go:build !cgo

package engine

import "errors"

// NewTesseract is unavailable without cgo: the Tesseract binding needs the
// native library. Builds without cgo can still run the full pipeline against
// an injected engine factory (tests do exactly that).
func NewTesseract(cfg Config) (Engine, error) {
	return nil, errors.New("tesseract engine requires a cgo build")
}
