package preprocess

import (
	"errors"
	"image"
	"math"
)

// Bilateral filter parameters. The diameter-9 window with these sigmas
// smooths flat scan regions while leaving glyph edges intact.
const (
	denoiseRadius     = 4
	denoiseSigmaColor = 75.0
	denoiseSigmaSpace = 75.0
)

// Denoise applies an edge-preserving bilateral filter.
//
// Each output pixel is a weighted average of its neighborhood where the
// weight combines spatial distance with luminance similarity, so averaging
// happens along flat regions but stops at intensity edges. This suppresses
// scan and sensor noise without blurring glyph outlines the way a plain
// Gaussian would.
func Denoise(img image.Image) (image.Image, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return nil, errors.New("empty image")
	}

	// Materialize channels once; At() inside the inner loop is too slow.
	rCh := make([]float64, width*height)
	gCh := make([]float64, width*height)
	bCh := make([]float64, width*height)
	lum := make([]float64, width*height)
	aCh := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, a := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			i := y*width + x
			rCh[i] = float64(r >> 8)
			gCh[i] = float64(g >> 8)
			bCh[i] = float64(b >> 8)
			lum[i] = 0.299*rCh[i] + 0.587*gCh[i] + 0.114*bCh[i]
			aCh[i] = uint8(a >> 8)
		}
	}

	// Precompute the spatial kernel.
	size := denoiseRadius*2 + 1
	spatial := make([]float64, size*size)
	twoSigmaSpace := 2 * denoiseSigmaSpace * denoiseSigmaSpace
	for dy := -denoiseRadius; dy <= denoiseRadius; dy++ {
		for dx := -denoiseRadius; dx <= denoiseRadius; dx++ {
			d2 := float64(dx*dx + dy*dy)
			spatial[(dy+denoiseRadius)*size+(dx+denoiseRadius)] = math.Exp(-d2 / twoSigmaSpace)
		}
	}

	// Range kernel lookup over the 0..255 luminance difference domain.
	twoSigmaColor := 2 * denoiseSigmaColor * denoiseSigmaColor
	rangeKernel := make([]float64, 256)
	for d := 0; d < 256; d++ {
		rangeKernel[d] = math.Exp(-float64(d*d) / twoSigmaColor)
	}

	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			center := y*width + x
			var sumR, sumG, sumB, sumW float64
			for dy := -denoiseRadius; dy <= denoiseRadius; dy++ {
				ny := clampInt(y+dy, 0, height-1)
				for dx := -denoiseRadius; dx <= denoiseRadius; dx++ {
					nx := clampInt(x+dx, 0, width-1)
					n := ny*width + nx
					diff := int(math.Abs(lum[n] - lum[center]))
					if diff > 255 {
						diff = 255
					}
					w := spatial[(dy+denoiseRadius)*size+(dx+denoiseRadius)] * rangeKernel[diff]
					sumR += rCh[n] * w
					sumG += gCh[n] * w
					sumB += bCh[n] * w
					sumW += w
				}
			}
			i := out.PixOffset(x, y)
			out.Pix[i] = clampByte(sumR / sumW)
			out.Pix[i+1] = clampByte(sumG / sumW)
			out.Pix[i+2] = clampByte(sumB / sumW)
			out.Pix[i+3] = aCh[center]
		}
	}
	return out, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
