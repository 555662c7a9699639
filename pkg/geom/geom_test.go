package geom

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOverlapsAndTouches(t *testing.T) {
	a := NewBox(0, 0, 10, 10)
	tests := []struct {
		name     string
		b        Box
		overlaps bool
		touches  bool
	}{
		{"inside", NewBox(2, 2, 4, 4), true, true},
		{"shared edge", NewBox(10, 0, 20, 10), false, true},
		{"corner", NewBox(10, 10, 20, 20), false, true},
		{"apart", NewBox(11, 0, 20, 10), false, false},
		{"segment through", NewBox(5, -5, 5, 15), true, true},
		{"segment on border", NewBox(0, -5, 0, 15), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.b); got != tt.overlaps {
				t.Errorf("Overlaps = %v, want %v", got, tt.overlaps)
			}
			if got := tt.b.Overlaps(a); got != tt.overlaps {
				t.Errorf("Overlaps (swapped) = %v, want %v", got, tt.overlaps)
			}
			if got := a.Touches(tt.b); got != tt.touches {
				t.Errorf("Touches = %v, want %v", got, tt.touches)
			}
		})
	}
}

func TestOverlapDimension(t *testing.T) {
	a := NewBox(0, 0, 10, 10)
	tests := []struct {
		b    Box
		want Dimension
	}{
		{NewBox(5, 5, 15, 15), DimArea},
		{NewBox(10, 2, 20, 8), DimLine},
		{NewBox(10, 10, 20, 20), DimNone},
		{NewBox(30, 30, 40, 40), DimNone},
	}
	for _, tt := range tests {
		if got := OverlapDimension(a, tt.b); got != tt.want {
			t.Errorf("OverlapDimension(%v, %v) = %v, want %v", a, tt.b, got, tt.want)
		}
	}
}

func TestSubtractSingleHole(t *testing.T) {
	got := Subtract(NewBox(0, 0, 10, 10), []Box{NewBox(4, 4, 6, 6)})
	want := []Box{
		{0, 0, 4, 10},
		{6, 0, 10, 10},
		{4, 0, 6, 4},
		{4, 6, 6, 10},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Subtract mismatch (-want +got):\n%s", diff)
	}
}

func TestSubtractCoversEverything(t *testing.T) {
	if got := Subtract(NewBox(0, 0, 10, 10), []Box{NewBox(-1, -1, 11, 11)}); len(got) != 0 {
		t.Errorf("expected nothing left, got %v", got)
	}
}

// Pieces must be disjoint, avoid every hole and preserve the free area.
func TestSubtractRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		outer := NewBox(0, 0, 100, 100)
		var holes []Box
		for i := 0; i < 1+rng.Intn(6); i++ {
			x, y := rng.Int63n(100), rng.Int63n(100)
			holes = append(holes, NewBox(x, y, x+1+rng.Int63n(30), y+1+rng.Int63n(30)))
		}
		pieces := Subtract(outer, holes)
		for i, p := range pieces {
			if p.IsDegenerate() || !outer.ContainsBox(p) {
				t.Fatalf("iter %d: bad piece %v", iter, p)
			}
			for _, h := range holes {
				if p.Overlaps(h) {
					t.Fatalf("iter %d: piece %v overlaps hole %v", iter, p, h)
				}
			}
			for _, q := range pieces[i+1:] {
				if p.Overlaps(q) {
					t.Fatalf("iter %d: pieces %v and %v overlap", iter, p, q)
				}
			}
		}
		// Sample the grid: every free unit cell centre is covered by one piece.
		for x := int64(0); x < 100; x += 7 {
			for y := int64(0); y < 100; y += 7 {
				cell := NewBox(x, y, x+1, y+1)
				blocked := false
				for _, h := range holes {
					if h.ContainsBox(cell) {
						blocked = true
					}
				}
				covered := false
				for _, p := range pieces {
					if p.ContainsBox(cell) {
						covered = true
					}
				}
				if !blocked && !covered {
					partly := false
					for _, h := range holes {
						if h.Overlaps(cell) {
							partly = true
						}
					}
					if !partly {
						t.Fatalf("iter %d: free cell %v not covered", iter, cell)
					}
				}
			}
		}
	}
}

func TestStairs(t *testing.T) {
	s := Seg(Pt(0, 0), Pt(100, 0))
	if got := s.Stairs(5); len(got) != 1 || got[0] != NewBox(-5, -5, 105, 5) {
		t.Errorf("orthogonal stairs = %v", got)
	}
	d := Seg(Pt(0, 0), Pt(100, 100))
	boxes := d.Stairs(5)
	if len(boxes) < 2 {
		t.Fatalf("diagonal stairs should need several boxes, got %d", len(boxes))
	}
	for _, p := range []Point{Pt(0, 0), Pt(50, 50), Pt(100, 100)} {
		found := false
		for _, b := range boxes {
			if b.Contains(p) {
				found = true
			}
		}
		if !found {
			t.Errorf("point %v not covered by stairs", p)
		}
	}
}

func TestClampAndGrid(t *testing.T) {
	b := NewBox(0, 0, 10, 10)
	if got := b.Clamp(Pt(-5, 20)); got != Pt(0, 10) {
		t.Errorf("Clamp = %v", got)
	}
	if got := Pt(1249, 751).RoundToGrid(500); got != Pt(1000, 1000) {
		t.Errorf("RoundToGrid = %v", got)
	}
}
