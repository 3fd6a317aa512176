package imgio

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

func TestSupportedExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{".jpg", true},
		{"jpg", true},
		{".JPEG", true},
		{".png", true},
		{".tif", true},
		{".tiff", true},
		{".bmp", true},
		{".pdf", true},
		{".webp", false},
		{".txt", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := SupportedExtension(tt.ext); got != tt.want {
				t.Errorf("SupportedExtension(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestLoadAndDecode(t *testing.T) {
	img := testImage(20, 10)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Bounds().Dx() != 20 || decoded.Bounds().Dy() != 10 {
		t.Errorf("decoded size = %v, want 20x10", decoded.Bounds())
	}

	path := filepath.Join(t.TempDir(), "test.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Bounds() != decoded.Bounds() {
		t.Errorf("Load bounds %v != Decode bounds %v", loaded.Bounds(), decoded.Bounds())
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("loading a missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "garbage.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("loading a non-image should fail")
	}
}

func TestSaveTempPNG(t *testing.T) {
	path, cleanup, err := SaveTempPNG(testImage(8, 8), "imgio-test")
	if err != nil {
		t.Fatalf("SaveTempPNG failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("temp file should exist: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("temp file should be a decodable PNG: %v", err)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cleanup should remove the temp file")
	}
	cleanup() // second call must be harmless
}
