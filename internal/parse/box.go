package parse

import (
	"encoding/json"
	"fmt"
)

// Box is a normalized axis-aligned bounding box in source-image pixel
// coordinates. Origin is the top-left corner of the image.
//
// A Box always has a non-negative origin and positive extent; geometry that
// cannot satisfy that normalizes to nil instead (see NormalizeBox).
//
// Boxes serialize as the four-element JSON array [x, y, width, height].
type Box struct {
	X      int
	Y      int
	Width  int
	Height int
}

// MarshalJSON encodes the box as [x, y, width, height].
func (b Box) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{b.X, b.Y, b.Width, b.Height})
}

// UnmarshalJSON decodes a [x, y, width, height] array.
func (b *Box) UnmarshalJSON(data []byte) error {
	var arr [4]int
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("bbox must be a [x, y, width, height] array: %w", err)
	}
	b.X, b.Y, b.Width, b.Height = arr[0], arr[1], arr[2], arr[3]
	return nil
}

// NormalizeBox computes the axis-aligned bounding rectangle of an arbitrary
// polygon given as a list of points. Engines typically emit a rotated
// 4-point quadrilateral; any point count >= 1 is accepted and points with
// fewer than two coordinates are skipped.
//
// Coordinates left of or above the image origin are clipped to zero.
// Degenerate polygons (zero or negative width/height after clipping) return
// nil rather than a zero-area box, since a zero-area box breaks IoU
// computation downstream.
func NormalizeBox(points [][]float64) *Box {
	minX, minY := 0.0, 0.0
	maxX, maxY := 0.0, 0.0
	found := false

	for _, p := range points {
		if len(p) < 2 {
			continue
		}
		x, y := p[0], p[1]
		if !found {
			minX, maxX = x, x
			minY, maxY = y, y
			found = true
			continue
		}
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	if !found {
		return nil
	}

	// Clip to the image plane.
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}

	w := int(maxX) - int(minX)
	h := int(maxY) - int(minY)
	if w <= 0 || h <= 0 {
		return nil
	}
	return &Box{X: int(minX), Y: int(minY), Width: w, Height: h}
}
