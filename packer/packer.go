// Package packer lays out rectangles into a compact atlas.
//
// The layout is a greedy skyline fit tried against several power-of-two
// widths; the candidate with the most square power-of-two bounding box wins.
// Identical input always yields an identical layout.
package packer

import (
	"image"
	"math/bits"
	"slices"
)

const (
	// DefaultBorder is the padding added on every side of each rectangle.
	DefaultBorder = 1
	// DefaultMaxWidthShift bounds candidate widths to 1<<12.
	DefaultMaxWidthShift = 12
)

// Packer computes atlas layouts.
type Packer struct {
	// Border is added on each side of every rectangle before packing.
	Border int
	// MaxWidthShift limits candidate widths to 1<<MaxWidthShift. Zero means default.
	MaxWidthShift int
}

// Layout is the result of Fit.
type Layout struct {
	// Positions holds the top-left corner of each inflated rectangle,
	// aligned with the input order.
	Positions []image.Point
	// Size is the tight bound of all inflated placements.
	Size image.Point

	border int
}

// Content returns the rectangle of item i without its border,
// given the item's original size.
func (l Layout) Content(i int, size image.Point) image.Rectangle {
	origin := l.Positions[i].Add(image.Pt(l.border, l.border))

	return image.Rectangle{Min: origin, Max: origin.Add(size)}
}

// Rect returns the inflated rectangle of item i, given the item's original size.
func (l Layout) Rect(i int, size image.Point) image.Rectangle {
	inflated := size.Add(image.Pt(2*l.border, 2*l.border))

	return image.Rectangle{Min: l.Positions[i], Max: l.Positions[i].Add(inflated)}
}

type item struct {
	index int
	w, h  int
}

// Fit places sizes without overlap and returns their positions.
func (p Packer) Fit(sizes []image.Point) Layout {
	layout := Layout{Positions: make([]image.Point, len(sizes)), border: max(p.Border, 0)}
	if len(sizes) == 0 {
		return layout
	}

	items := make([]item, len(sizes))
	for i, s := range sizes {
		items[i] = item{
			index: i,
			w:     max(s.X, 0) + 2*layout.border,
			h:     max(s.Y, 0) + 2*layout.border,
		}
	}
	// Widest first; SortStableFunc keeps input order among equal widths.
	slices.SortStableFunc(items, func(a, b item) int { return b.w - a.w })
	widest := items[0].w

	shift := p.MaxWidthShift
	if shift <= 0 {
		shift = DefaultMaxWidthShift
	}

	var (
		best       []image.Point
		bestSize   image.Point
		bestAspect float64
	)
	try := func(width int) {
		pos, size := skyline(items, width)
		aspect := aspectOf(size)
		if best == nil || aspect < bestAspect {
			best, bestSize, bestAspect = pos, size, aspect
		}
	}

	for i := 0; i <= shift; i++ {
		if w := 1 << i; w >= widest {
			try(w)
		}
	}
	if best == nil {
		try(nextPowerOfTwo(widest))
	}

	for i, it := range items {
		layout.Positions[it.index] = best[i]
	}
	layout.Size = bestSize

	return layout
}

// skyline places items along a per-column height map of the given width.
// Positions are returned in items order.
func skyline(items []item, width int) ([]image.Point, image.Point) {
	heights := make([]int, width)
	pos := make([]image.Point, len(items))

	var ofs, limit, maxW, maxH int
	for i, it := range items {
		if ofs+it.w > width {
			ofs = 0
		}

		fromY := 0
		for x := ofs; x < ofs+it.w; x++ {
			fromY = max(fromY, heights[x])
		}
		pos[i] = image.Pt(ofs, fromY)

		endH := fromY + it.h
		if ofs == 0 {
			limit = endH
		}
		for x := ofs; x < ofs+it.w; x++ {
			heights[x] = endH
		}

		maxW = max(maxW, ofs+it.w)
		maxH = max(maxH, endH)

		// Stay in this column while the row is still below its height limit.
		if ofs == 0 || endH > limit {
			ofs += it.w
		}
	}

	return pos, image.Pt(maxW, maxH)
}

func aspectOf(size image.Point) float64 {
	w := float64(max(nextPowerOfTwo(size.X), 1))
	h := float64(max(nextPowerOfTwo(size.Y), 1))
	if w < h {
		return h / w
	}

	return w / h
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return max(n, 0)
	}

	return 1 << bits.Len(uint(n-1))
}
