package preprocess

import (
	"errors"
	"image"

	"github.com/lucasb-eyer/go-colorful"
)

// CLAHE parameters: an 8x8 tile grid with a 2.0 relative clip limit, the
// conventional setting for document scans.
const (
	claheTiles     = 8
	claheClipLimit = 2.0
	claheBins      = 256
)

// EnhanceContrast applies contrast-limited adaptive histogram equalization
// to the lightness channel in CIE-Lab space, normalizing uneven lighting
// across scan regions without shifting hues.
//
// The image is divided into an 8x8 tile grid; each tile gets its own
// clipped, equalized lightness mapping, and every pixel interpolates
// bilinearly between the mappings of its four surrounding tile centers to
// avoid visible tile seams.
func EnhanceContrast(img image.Image) (image.Image, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return nil, errors.New("empty image")
	}

	// Decompose into Lab once.
	lCh := make([]float64, width*height)
	aCh := make([]float64, width*height)
	bCh := make([]float64, width*height)
	alpha := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, a := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			c := colorful.Color{
				R: float64(r>>8) / 255.0,
				G: float64(g>>8) / 255.0,
				B: float64(b>>8) / 255.0,
			}
			l, la, lb := c.Lab()
			i := y*width + x
			lCh[i], aCh[i], bCh[i] = l, la, lb
			alpha[i] = uint8(a >> 8)
		}
	}

	tileW := (width + claheTiles - 1) / claheTiles
	tileH := (height + claheTiles - 1) / claheTiles
	tilesX := (width + tileW - 1) / tileW
	tilesY := (height + tileH - 1) / tileH

	// Per-tile equalization mapping from lightness bin to new lightness.
	mappings := make([][]float64, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := min(x0+tileW, width), min(y0+tileH, height)
			mappings[ty*tilesX+tx] = tileMapping(lCh, width, x0, y0, x1, y1)
		}
	}

	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			bin := lightnessBin(lCh[i])

			// Fractional position relative to tile centers.
			fx := (float64(x) - float64(tileW)/2) / float64(tileW)
			fy := (float64(y) - float64(tileH)/2) / float64(tileH)
			tx0 := clampInt(int(fx), 0, tilesX-1)
			ty0 := clampInt(int(fy), 0, tilesY-1)
			tx1 := clampInt(tx0+1, 0, tilesX-1)
			ty1 := clampInt(ty0+1, 0, tilesY-1)
			wx := fx - float64(tx0)
			wy := fy - float64(ty0)
			if wx < 0 {
				wx = 0
			} else if wx > 1 {
				wx = 1
			}
			if wy < 0 {
				wy = 0
			} else if wy > 1 {
				wy = 1
			}

			top := (1-wx)*mappings[ty0*tilesX+tx0][bin] + wx*mappings[ty0*tilesX+tx1][bin]
			bottom := (1-wx)*mappings[ty1*tilesX+tx0][bin] + wx*mappings[ty1*tilesX+tx1][bin]
			newL := (1-wy)*top + wy*bottom

			c := colorful.Lab(newL, aCh[i], bCh[i]).Clamped()
			o := out.PixOffset(x, y)
			out.Pix[o] = clampByte(c.R * 255)
			out.Pix[o+1] = clampByte(c.G * 255)
			out.Pix[o+2] = clampByte(c.B * 255)
			out.Pix[o+3] = alpha[i]
		}
	}
	return out, nil
}

// tileMapping builds the clipped equalization lookup for one tile:
// lightness bin in, equalized lightness (0..1) out.
func tileMapping(lCh []float64, width, x0, y0, x1, y1 int) []float64 {
	hist := make([]int, claheBins)
	pixels := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[lightnessBin(lCh[y*width+x])]++
			pixels++
		}
	}

	mapping := make([]float64, claheBins)
	if pixels == 0 {
		for b := range mapping {
			mapping[b] = float64(b) / float64(claheBins-1)
		}
		return mapping
	}

	// Clip histogram peaks and spread the excess across all bins. This is
	// what limits amplification in near-uniform regions.
	limit := int(claheClipLimit * float64(pixels) / claheBins)
	if limit < 1 {
		limit = 1
	}
	excess := 0
	for b, n := range hist {
		if n > limit {
			excess += n - limit
			hist[b] = limit
		}
	}
	share := excess / claheBins
	remainder := excess % claheBins
	for b := range hist {
		hist[b] += share
		if b < remainder {
			hist[b]++
		}
	}

	cdf := 0
	for b, n := range hist {
		cdf += n
		mapping[b] = float64(cdf) / float64(pixels)
	}
	return mapping
}

// lightnessBin quantizes a Lab lightness in [0,1] to a histogram bin.
func lightnessBin(l float64) int {
	bin := int(l * float64(claheBins-1))
	return clampInt(bin, 0, claheBins-1)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
