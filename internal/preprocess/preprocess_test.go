package preprocess

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"
)

// flatImage returns a uniform image of the given gray level.
func flatImage(w, h int, gray uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{gray, gray, gray, 255})
		}
	}
	return img
}

// noisyImage returns a mid-gray image with deterministic pseudo-random
// noise of the given amplitude.
func noisyImage(w, h int, amplitude int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	seed := uint32(1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			seed = seed*1664525 + 1013904223
			n := int(seed>>24)%(2*amplitude+1) - amplitude
			v := uint8(clampInt(128+n, 0, 255))
			img.Set(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	return img
}

// barsImage returns a white page with black horizontal bars, the synthetic
// stand-in for lines of text.
func barsImage(w, h int) *image.NRGBA {
	img := flatImage(w, h, 255)
	for y := 20; y < h-20; y += 30 {
		for dy := 0; dy < 8; dy++ {
			for x := 40; x < w-40; x++ {
				img.Set(x, y+dy, color.NRGBA{0, 0, 0, 255})
			}
		}
	}
	return img
}

func luminanceAt(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
}

func luminanceVariance(img image.Image) float64 {
	bounds := img.Bounds()
	var sum, sumSq, n float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			l := luminanceAt(img, x, y)
			sum += l
			sumSq += l * l
			n++
		}
	}
	mean := sum / n
	return sumSq/n - mean*mean
}

func TestDenoise_ReducesNoise(t *testing.T) {
	img := noisyImage(64, 64, 30)

	out, err := Denoise(img)
	if err != nil {
		t.Fatalf("Denoise failed: %v", err)
	}

	before := luminanceVariance(img)
	after := luminanceVariance(out)
	if after >= before {
		t.Errorf("noise variance should drop: before %.1f, after %.1f", before, after)
	}
	if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 64 {
		t.Errorf("output size changed: %v", out.Bounds())
	}
}

func TestDenoise_DoesNotMutateInput(t *testing.T) {
	img := noisyImage(32, 32, 30)
	want := append([]uint8(nil), img.Pix...)

	if _, err := Denoise(img); err != nil {
		t.Fatalf("Denoise failed: %v", err)
	}

	for i := range want {
		if img.Pix[i] != want[i] {
			t.Fatal("Denoise must not mutate its input image")
		}
	}
}

func TestEstimateSkew_RecoversKnownRotation(t *testing.T) {
	for _, angle := range []float64{3, 5, -4} {
		level := barsImage(400, 300)
		rotated := imaging.Rotate(level, angle, color.White)

		got, ok := EstimateSkew(rotated)
		if !ok {
			t.Fatalf("expected a reliable estimate for %.0f degree skew", angle)
		}
		if math.Abs(got-angle) > 1.0 {
			t.Errorf("estimated %.2f degrees, want about %.0f", got, angle)
		}
	}
}

func TestDeskew_LevelImagePassesThrough(t *testing.T) {
	img := barsImage(400, 300)
	out, err := Deskew(img)
	if err != nil {
		t.Fatalf("Deskew failed: %v", err)
	}
	if out != image.Image(img) {
		t.Error("a level image should pass through unmodified")
	}
}

func TestDeskew_BlankImagePassesThrough(t *testing.T) {
	img := flatImage(100, 100, 255)
	out, err := Deskew(img)
	if err != nil {
		t.Fatalf("Deskew failed: %v", err)
	}
	if out != image.Image(img) {
		t.Error("an image with no ink should pass through unmodified")
	}
}

func TestDeskew_CorrectsRotation(t *testing.T) {
	rotated := imaging.Rotate(barsImage(400, 300), 5, color.White)

	out, err := Deskew(rotated)
	if err != nil {
		t.Fatalf("Deskew failed: %v", err)
	}

	// The corrected image should be close to level again.
	if residual, ok := EstimateSkew(out); ok && math.Abs(residual) > 1.5 {
		t.Errorf("residual skew %.2f degrees after correction", residual)
	}
}

func TestEnhanceContrast_PreservesTonalOrder(t *testing.T) {
	img := barsImage(256, 256)

	out, err := EnhanceContrast(img)
	if err != nil {
		t.Fatalf("EnhanceContrast failed: %v", err)
	}

	// Sample an ink pixel and a background pixel: ink must stay darker.
	ink := luminanceAt(out, 100, 21)
	paper := luminanceAt(out, 100, 10)
	if ink >= paper {
		t.Errorf("ink (%.0f) should remain darker than paper (%.0f)", ink, paper)
	}
	if out.Bounds().Dx() != 256 || out.Bounds().Dy() != 256 {
		t.Errorf("output size changed: %v", out.Bounds())
	}
}

func TestEnhanceContrast_UniformStaysUniform(t *testing.T) {
	out, err := EnhanceContrast(flatImage(64, 64, 255))
	if err != nil {
		t.Fatalf("EnhanceContrast failed: %v", err)
	}

	lo, hi := 255.0, 0.0
	bounds := out.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			l := luminanceAt(out, x, y)
			if l < lo {
				lo = l
			}
			if l > hi {
				hi = l
			}
		}
	}
	if hi-lo > 30 {
		t.Errorf("uniform input should stay uniform, got luminance spread %.0f", hi-lo)
	}
}

func TestSharpen_AmplifiesEdges(t *testing.T) {
	// Left half dark gray, right half light gray.
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(100)
			if x >= 32 {
				v = 150
			}
			img.Set(x, y, color.NRGBA{v, v, v, 255})
		}
	}

	out, err := Sharpen(img)
	if err != nil {
		t.Fatalf("Sharpen failed: %v", err)
	}

	// Unsharp masking overshoots on both sides of the edge.
	if got := luminanceAt(out, 31, 32); got >= 100 {
		t.Errorf("dark side of edge should darken, got %.0f", got)
	}
	if got := luminanceAt(out, 32, 32); got <= 150 {
		t.Errorf("light side of edge should brighten, got %.0f", got)
	}
	// Far from the edge nothing changes beyond rounding.
	if got := luminanceAt(out, 5, 32); math.Abs(got-100) > 2 {
		t.Errorf("flat region should be untouched, got %.0f", got)
	}
}

func TestRun_DisabledStepsPassThrough(t *testing.T) {
	img := barsImage(64, 64)
	p := New(Options{}, nil)

	out, failures := p.Run(img)
	if out != image.Image(img) {
		t.Error("with every step disabled the input should pass through")
	}
	if len(failures) != 0 {
		t.Errorf("unexpected failures: %v", failures)
	}
}

func TestRun_FailingStepsAreSkippedNotFatal(t *testing.T) {
	// Every step rejects an empty image, so all enabled steps fail and the
	// original image is still returned.
	empty := image.NewNRGBA(image.Rect(0, 0, 0, 0))
	p := New(DefaultOptions(), nil)

	out, failures := p.Run(empty)
	if out != image.Image(empty) {
		t.Error("the last good image (the input) should be returned")
	}
	if len(failures) != 4 {
		t.Fatalf("got %d step failures, want 4", len(failures))
	}
	seen := map[Step]bool{}
	for _, f := range failures {
		seen[f.Step] = true
		if f.Err == nil {
			t.Errorf("failure for %s missing cause", f.Step)
		}
	}
	for _, step := range AllSteps() {
		if !seen[step] {
			t.Errorf("expected a recorded failure for step %s", step)
		}
	}
}

func TestOptionsEnabled(t *testing.T) {
	opts := Options{Denoise: true, Sharpen: true}
	if !opts.enabled(StepDenoise) || !opts.enabled(StepSharpen) {
		t.Error("enabled steps should report true")
	}
	if opts.enabled(StepDeskew) || opts.enabled(StepContrast) {
		t.Error("disabled steps should report false")
	}
}
