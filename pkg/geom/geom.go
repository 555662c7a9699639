// Package geom provides the integer geometry kernel used by the router:
// axis-aligned boxes, points and segments, overlap tests and the
// rectangle decomposition of free space.
package geom

import (
	"fmt"
	"math"
)

// Point is a board position in board units (nanometres for KiCad input).
type Point struct {
	X int64
	Y int64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int64) Point {
	return Point{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(q Point) float64 {
	return math.Sqrt(float64(p.DistanceSquared(q)))
}

// DistanceSquared returns the squared Euclidean distance to another point.
func (p Point) DistanceSquared(q Point) int64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// Less orders points by x, then y.
func (p Point) Less(q Point) bool {
	if p.X != q.X {
		return p.X < q.X
	}
	return p.Y < q.Y
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// RoundToGrid snaps the point to the nearest multiple of grid.
func (p Point) RoundToGrid(grid int64) Point {
	if grid <= 1 {
		return p
	}
	return Point{X: roundTo(p.X, grid), Y: roundTo(p.Y, grid)}
}

func roundTo(v, grid int64) int64 {
	return int64(math.Round(float64(v)/float64(grid))) * grid
}

// Dimension classifies how two shapes meet.
type Dimension int

const (
	DimNone Dimension = iota // disjoint or meeting in a single point
	DimLine                  // sharing a boundary segment of positive length
	DimArea                  // interiors overlap
)

func (d Dimension) String() string {
	switch d {
	case DimLine:
		return "line"
	case DimArea:
		return "area"
	default:
		return "none"
	}
}

// Box is a closed axis-aligned rectangle. A box with X1 > X2 or Y1 > Y2 is
// empty; a box with zero width or height is degenerate (a segment or point).
type Box struct {
	X1, Y1 int64
	X2, Y2 int64
}

// NewBox creates a box from two opposite corners in any order.
func NewBox(x1, y1, x2, y2 int64) Box {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// BoxAround returns the square of half size r centred at p.
func BoxAround(p Point, r int64) Box {
	return Box{X1: p.X - r, Y1: p.Y - r, X2: p.X + r, Y2: p.Y + r}
}

// PointBox returns the degenerate box holding a single point.
func PointBox(p Point) Box {
	return Box{X1: p.X, Y1: p.Y, X2: p.X, Y2: p.Y}
}

// EmptyBox returns a box that contains nothing and is the identity for Union.
func EmptyBox() Box {
	return Box{X1: math.MaxInt64, Y1: math.MaxInt64, X2: math.MinInt64, Y2: math.MinInt64}
}

func (b Box) String() string {
	return fmt.Sprintf("[%d,%d - %d,%d]", b.X1, b.Y1, b.X2, b.Y2)
}

// IsEmpty reports whether the box contains no point at all.
func (b Box) IsEmpty() bool {
	return b.X1 > b.X2 || b.Y1 > b.Y2
}

// IsDegenerate reports whether the box has no interior.
func (b Box) IsDegenerate() bool {
	return b.IsEmpty() || b.X1 == b.X2 || b.Y1 == b.Y2
}

// Width returns the extent along x.
func (b Box) Width() int64 { return b.X2 - b.X1 }

// Height returns the extent along y.
func (b Box) Height() int64 { return b.Y2 - b.Y1 }

// Area returns the area, or 0 for empty boxes.
func (b Box) Area() float64 {
	if b.IsEmpty() {
		return 0
	}
	return float64(b.Width()) * float64(b.Height())
}

// Center returns the centre point (rounded towards the lower corner).
func (b Box) Center() Point {
	return Point{X: b.X1 + (b.X2-b.X1)/2, Y: b.Y1 + (b.Y2-b.Y1)/2}
}

// Contains reports whether p lies in the closed box.
func (b Box) Contains(p Point) bool {
	return p.X >= b.X1 && p.X <= b.X2 && p.Y >= b.Y1 && p.Y <= b.Y2
}

// ContainsBox reports whether o lies completely inside the closed box.
func (b Box) ContainsBox(o Box) bool {
	return o.X1 >= b.X1 && o.X2 <= b.X2 && o.Y1 >= b.Y1 && o.Y2 <= b.Y2
}

// Touches reports whether the closed boxes share at least one point.
func (b Box) Touches(o Box) bool {
	return b.X1 <= o.X2 && o.X1 <= b.X2 && b.Y1 <= o.Y2 && o.Y1 <= b.Y2
}

// Overlaps reports whether the interiors of the boxes intersect. A
// degenerate box is treated as its relative interior, so a segment
// overlaps a box when it passes strictly through it, but not when it only
// runs along the box boundary.
func (b Box) Overlaps(o Box) bool {
	return openOverlap(b.X1, b.X2, o.X1, o.X2) && openOverlap(b.Y1, b.Y2, o.Y1, o.Y2)
}

func openOverlap(a1, a2, b1, b2 int64) bool {
	switch {
	case a1 == a2 && b1 == b2:
		return false
	case a1 == a2:
		return b1 < a1 && a1 < b2
	case b1 == b2:
		return a1 < b1 && b1 < a2
	default:
		return a1 < b2 && b1 < a2
	}
}

// Intersection returns the common part of two boxes (possibly empty).
func (b Box) Intersection(o Box) Box {
	return Box{
		X1: max(b.X1, o.X1),
		Y1: max(b.Y1, o.Y1),
		X2: min(b.X2, o.X2),
		Y2: min(b.Y2, o.Y2),
	}
}

// Union returns the bounding box of both boxes.
func (b Box) Union(o Box) Box {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	return Box{
		X1: min(b.X1, o.X1),
		Y1: min(b.Y1, o.Y1),
		X2: max(b.X2, o.X2),
		Y2: max(b.Y2, o.Y2),
	}
}

// Inflate grows the box by d on every side; a negative d shrinks it.
func (b Box) Inflate(d int64) Box {
	return Box{X1: b.X1 - d, Y1: b.Y1 - d, X2: b.X2 + d, Y2: b.Y2 + d}
}

// Clamp returns the point of the box nearest to p.
func (b Box) Clamp(p Point) Point {
	return Point{X: clamp(p.X, b.X1, b.X2), Y: clamp(p.Y, b.Y1, b.Y2)}
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DistanceSquared returns the squared distance between the closed boxes.
func (b Box) DistanceSquared(o Box) float64 {
	dx := gap(b.X1, b.X2, o.X1, o.X2)
	dy := gap(b.Y1, b.Y2, o.Y1, o.Y2)
	return dx*dx + dy*dy
}

func gap(a1, a2, b1, b2 int64) float64 {
	if a2 < b1 {
		return float64(b1 - a2)
	}
	if b2 < a1 {
		return float64(a1 - b2)
	}
	return 0
}

// OverlapDimension classifies the intersection of two boxes.
func OverlapDimension(a, b Box) Dimension {
	in := a.Intersection(b)
	if in.IsEmpty() {
		return DimNone
	}
	if in.Width() > 0 && in.Height() > 0 {
		return DimArea
	}
	if in.Width() > 0 || in.Height() > 0 {
		return DimLine
	}
	return DimNone
}

// Subtract removes all holes from b and returns the remaining area as
// pairwise disjoint rectangles, i.e. a convex decomposition of b minus the
// holes. Degenerate leftovers are dropped.
func Subtract(b Box, holes []Box) []Box {
	if b.IsDegenerate() {
		return nil
	}
	pieces := []Box{b}
	for _, h := range holes {
		var next []Box
		for _, p := range pieces {
			if !p.Overlaps(h) {
				next = append(next, p)
				continue
			}
			next = appendSplit(next, p, h)
		}
		pieces = next
		if len(pieces) == 0 {
			break
		}
	}
	return pieces
}

// appendSplit appends the parts of p outside h: a full-height slab left and
// right of the hole, and the parts above and below it in between.
func appendSplit(dst []Box, p, h Box) []Box {
	add := func(c Box) {
		if !c.IsDegenerate() {
			dst = append(dst, c)
		}
	}
	if h.X1 > p.X1 {
		add(Box{X1: p.X1, Y1: p.Y1, X2: h.X1, Y2: p.Y2})
	}
	if h.X2 < p.X2 {
		add(Box{X1: h.X2, Y1: p.Y1, X2: p.X2, Y2: p.Y2})
	}
	mx1, mx2 := max(p.X1, h.X1), min(p.X2, h.X2)
	if h.Y1 > p.Y1 {
		add(Box{X1: mx1, Y1: p.Y1, X2: mx2, Y2: h.Y1})
	}
	if h.Y2 < p.Y2 {
		add(Box{X1: mx1, Y1: h.Y2, X2: mx2, Y2: p.Y2})
	}
	return dst
}
