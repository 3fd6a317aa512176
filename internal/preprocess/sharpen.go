package preprocess

import (
	"errors"
	"image"

	"github.com/anthonynsimon/bild/blur"
)

// Unsharp-mask parameters: moderate radius, 1.5x edge amplification.
const (
	sharpenRadius = 2.0
	sharpenAmount = 1.5
)

// Sharpen applies an unsharp mask: the image minus its Gaussian blur
// isolates edge detail, which is then added back scaled by sharpenAmount.
// This counteracts the softening introduced by denoising and equalization.
func Sharpen(img image.Image) (image.Image, error) {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, errors.New("empty image")
	}

	blurred := blur.Gaussian(img, sharpenRadius)

	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			br, bg, bb, _ := blurred.At(x-bounds.Min.X, y-bounds.Min.Y).RGBA()

			i := out.PixOffset(x-bounds.Min.X, y-bounds.Min.Y)
			out.Pix[i] = unsharp(r, br)
			out.Pix[i+1] = unsharp(g, bg)
			out.Pix[i+2] = unsharp(b, bb)
			out.Pix[i+3] = uint8(a >> 8)
		}
	}
	return out, nil
}

// unsharp combines an original and blurred channel sample:
// original + amount*(original - blurred), clamped to byte range.
func unsharp(orig, blurred uint32) uint8 {
	o := float64(orig >> 8)
	b := float64(blurred >> 8)
	return clampByte(o + sharpenAmount*(o-b))
}
