package preprocess

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// deskewMaxAngle bounds the search; real-world scan skew is small.
	deskewMaxAngle = 15.0
	// deskewMinAngle is the dead zone: anything closer to level passes
	// through unrotated rather than risk making things worse.
	deskewMinAngle = 0.5
	// deskewMinInk is the minimum number of dark pixels needed for a
	// meaningful projection profile.
	deskewMinInk = 64
	// deskewMinGain is the required row-variance improvement over the
	// unrotated projection before an estimate counts as reliable.
	deskewMinGain = 1.05
	// deskewAnalysisSide caps the image size used for estimation; the
	// rotation itself is applied to the full-resolution image.
	deskewAnalysisSide = 800
)

// Deskew estimates the dominant rotation of the text lines and rotates the
// image to level them. When no reliable angle is found, or the estimate is
// inside the dead zone, the image passes through unmodified.
func Deskew(img image.Image) (image.Image, error) {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, errors.New("empty image")
	}

	angle, ok := EstimateSkew(img)
	if !ok || math.Abs(angle) < deskewMinAngle {
		return img, nil
	}
	// Rotating by the negated skew levels the lines. White fill matches
	// typical document background.
	return imaging.Rotate(img, -angle, color.White), nil
}

// EstimateSkew returns the rotation of the text lines in degrees, positive
// counter-clockwise, via projection-profile analysis: for each candidate
// angle, ink pixels are projected onto rows as if the image were rotated
// back by that angle, and the angle whose projection yields the spikiest
// row histogram wins. A level page of text produces sharp peaks at the
// baselines; any residual rotation smears them.
//
// The second return value is false when the content is too sparse or the
// best candidate barely beats the unrotated projection.
func EstimateSkew(img image.Image) (float64, bool) {
	small := img
	if b := img.Bounds(); b.Dx() > deskewAnalysisSide || b.Dy() > deskewAnalysisSide {
		small = imaging.Fit(img, deskewAnalysisSide, deskewAnalysisSide, imaging.Box)
	}

	xs, ys, height := inkPixels(small)
	if len(xs) < deskewMinInk {
		return 0, false
	}

	baseline := rowVariance(xs, ys, height, 0)
	if baseline == 0 {
		return 0, false
	}

	// Coarse sweep, then a fine pass around the winner.
	best, bestScore := 0.0, baseline
	for a := -deskewMaxAngle; a <= deskewMaxAngle; a += 0.5 {
		if s := rowVariance(xs, ys, height, a); s > bestScore {
			best, bestScore = a, s
		}
	}
	for a := best - 0.5; a <= best+0.5; a += 0.1 {
		if s := rowVariance(xs, ys, height, a); s > bestScore {
			best, bestScore = a, s
		}
	}

	if bestScore < baseline*deskewMinGain {
		return 0, false
	}
	return best, true
}

// inkPixels binarizes the image against its mean luminance and returns the
// coordinates of dark (ink) pixels plus the image height.
func inkPixels(img image.Image) (xs, ys []int, height int) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height = bounds.Dy()

	lum := make([]float64, width*height)
	var total float64
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			l := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			lum[y*width+x] = l
			total += l
		}
	}
	threshold := total / float64(width*height) * 0.8

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if lum[y*width+x] < threshold {
				xs = append(xs, x)
				ys = append(ys, y)
			}
		}
	}
	return xs, ys, height
}

// rowVariance projects ink pixels onto rows assuming the content is rotated
// by angle degrees, and scores the projection by its sum of squared bin
// counts. Sharper row peaks score higher.
func rowVariance(xs, ys []int, height int, angle float64) float64 {
	tan := math.Tan(angle * math.Pi / 180)

	// Sheared row index can leave [0, height); size bins generously.
	offset := height
	bins := make([]int, height*3)
	for i := range xs {
		row := int(float64(ys[i])+float64(xs[i])*tan) + offset
		if row >= 0 && row < len(bins) {
			bins[row]++
		}
	}

	var score float64
	for _, n := range bins {
		score += float64(n) * float64(n)
	}
	return score
}
