// Package imgio decodes document images and manages the temporary image
// files the OCR engine consumes.
package imgio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	"image/png" // Registers the PNG decoder as a side effect
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// supportedExtensions is the allow-list of input file extensions, lowercase
// with leading dot. PDF is listed because the pipeline accepts it; it is
// rendered to page images rather than decoded here.
var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".tiff": true,
	".tif":  true,
	".pdf":  true,
}

// SupportedExtension reports whether ext (with or without leading dot,
// any case) names an accepted input format.
func SupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return supportedExtensions[ext]
}

// Load reads and decodes the image file at path.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// Decode decodes an in-memory image payload.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image bytes: %w", err)
	}
	return img, nil
}

// DecodeReader decodes an image from a stream.
func DecodeReader(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image stream: %w", err)
	}
	return img, nil
}

// SaveTempPNG writes img to a temporary PNG file and returns its path along
// with a cleanup function that removes it. The cleanup function is safe to
// call unconditionally, including after a failed write further down the
// pipeline; callers must invoke it on every exit path.
func SaveTempPNG(img image.Image, prefix string) (string, func(), error) {
	f, err := os.CreateTemp("", prefix+"-*.png")
	if err != nil {
		return "", nil, fmt.Errorf("create temp image: %w", err)
	}
	path := f.Name()
	cleanup := func() { os.Remove(path) }

	if err := png.Encode(f, img); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("encode temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp image: %w", err)
	}
	return path, cleanup, nil
}
