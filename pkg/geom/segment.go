package geom

import "math"

// maxStairSteps bounds how many boxes approximate one diagonal segment.
const maxStairSteps = 16

// Segment is a straight line between two points.
type Segment struct {
	A Point
	B Point
}

// Seg is shorthand for Segment{A: a, B: b}.
func Seg(a, b Point) Segment {
	return Segment{A: a, B: b}
}

// Length returns the Euclidean length.
func (s Segment) Length() float64 {
	return s.A.Distance(s.B)
}

// IsHorizontal reports whether both end points share y.
func (s Segment) IsHorizontal() bool { return s.A.Y == s.B.Y }

// IsVertical reports whether both end points share x.
func (s Segment) IsVertical() bool { return s.A.X == s.B.X }

// IsOrthogonal reports whether the segment is axis parallel.
func (s Segment) IsOrthogonal() bool { return s.IsHorizontal() || s.IsVertical() }

// Box returns the bounding box.
func (s Segment) Box() Box {
	return NewBox(s.A.X, s.A.Y, s.B.X, s.B.Y)
}

// Reversed swaps the end points.
func (s Segment) Reversed() Segment {
	return Segment{A: s.B, B: s.A}
}

// Collinear reports whether s and t lie on the same axis parallel line and
// share the end point s.B == t.A.
func (s Segment) Collinear(t Segment) bool {
	if s.B != t.A {
		return false
	}
	return (s.IsHorizontal() && t.IsHorizontal() && s.A.Y == t.B.Y) ||
		(s.IsVertical() && t.IsVertical() && s.A.X == t.B.X)
}

// Stairs covers the segment inflated by halfWidth with boxes. Orthogonal
// segments need exactly one box; diagonal segments are split into short
// pieces whose bounding boxes form a staircase.
func (s Segment) Stairs(halfWidth int64) []Box {
	if s.IsOrthogonal() {
		return []Box{s.Box().Inflate(halfWidth)}
	}
	step := 4 * max(halfWidth, 1)
	n := int(math.Ceil(s.Length() / float64(step)))
	n = max(1, min(n, maxStairSteps))
	boxes := make([]Box, 0, n)
	prev := s.A
	for i := 1; i <= n; i++ {
		next := Point{
			X: s.A.X + (s.B.X-s.A.X)*int64(i)/int64(n),
			Y: s.A.Y + (s.B.Y-s.A.Y)*int64(i)/int64(n),
		}
		boxes = append(boxes, NewBox(prev.X, prev.Y, next.X, next.Y).Inflate(halfWidth))
		prev = next
	}
	return boxes
}

// ManhattanLength returns |dx| + |dy|.
func (s Segment) ManhattanLength() int64 {
	return abs(s.B.X-s.A.X) + abs(s.B.Y-s.A.Y)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
