// Package dedupe removes geometrically overlapping duplicate text regions.
//
// When the same page is recognized once per candidate language, the same
// glyph region shows up multiple times with different text and confidence.
// Deduplicate keeps the single best recognition per physical location using
// greedy non-maximum suppression keyed on confidence.
package dedupe

import (
	"sort"

	"github.com/ApxllxCartxr/ROSETTA/internal/parse"
)

// DefaultIoUThreshold is the documented default overlap threshold.
const DefaultIoUThreshold = 0.5

// IoU computes the intersection-over-union of two axis-aligned boxes.
// Returns 0 when either box is nil: a region without geometry can never be
// judged a duplicate of anything.
func IoU(a, b *parse.Box) float64 {
	if a == nil || b == nil {
		return 0
	}

	left := max(a.X, b.X)
	top := max(a.Y, b.Y)
	right := min(a.X+a.Width, b.X+b.Width)
	bottom := min(a.Y+a.Height, b.Y+b.Height)

	if right <= left || bottom <= top {
		return 0
	}

	intersection := (right - left) * (bottom - top)
	union := a.Width*a.Height + b.Width*b.Height - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Deduplicate suppresses overlapping duplicates among regions.
//
// Regions are considered in descending confidence order; a region is
// discarded when its IoU against an already kept region on the same page
// reaches threshold. Regions on different pages are never compared, and a
// region with no box is always kept. Equal-confidence regions are visited in
// input order, so on an exact tie the earlier region wins; the kept regions
// are returned in their original input order.
//
// A disjoint pair (IoU exactly 0) never triggers suppression, so threshold 0
// suppresses any two regions that touch at all and threshold 1 suppresses
// only bit-identical boxes.
func Deduplicate(regions []parse.Region, threshold float64) []parse.Region {
	if len(regions) <= 1 {
		return regions
	}

	order := make([]int, len(regions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return regions[order[i]].Confidence > regions[order[j]].Confidence
	})

	discarded := make([]bool, len(regions))
	var kept []int
	for _, idx := range order {
		r := regions[idx]
		duplicate := false
		for _, keptIdx := range kept {
			k := regions[keptIdx]
			if r.Page != k.Page {
				continue
			}
			iou := IoU(r.Box, k.Box)
			if iou > 0 && iou >= threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			discarded[idx] = true
		} else {
			kept = append(kept, idx)
		}
	}

	out := make([]parse.Region, 0, len(kept))
	for i, r := range regions {
		if !discarded[i] {
			out = append(out, r)
		}
	}
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
