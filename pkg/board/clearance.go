package board

import "github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"

// Obstructs reports whether item o is an obstacle for copper of net on
// the given layer. Keepouts restricted to vias only obstruct vias.
func Obstructs(o *Item, net int, forVia bool) bool {
	if o.Kind == KindKeepout {
		return forVia || !o.ViaOnly
	}
	return net <= 0 || !o.HasNet(net)
}

// ObstacleInflation returns how far an obstacle of class obstacleClass has
// to be grown so that the centre of copper of class class with the given
// half size may lie anywhere outside it.
func (b *Board) ObstacleInflation(obstacle *Item, class int, halfSize int64) int64 {
	if obstacle.Kind == KindKeepout {
		return halfSize
	}
	return b.Rules.ClearanceBetween(obstacle.Class, class) + halfSize
}

// CheckTrace reports whether a trace could be placed without violating
// clearance to any obstacle. Items for which ignore returns true are
// treated as absent.
func (b *Board) CheckTrace(seg geom.Segment, layer int, halfWidth int64, net, class int, ignore func(*Item) bool) bool {
	for _, s := range seg.Stairs(halfWidth) {
		if !b.Outline.ContainsBox(s) || !b.clear(layer, s, net, class, false, ignore) {
			return false
		}
	}
	return true
}

// CheckVia reports whether a via could be placed on first..last.
func (b *Board) CheckVia(center geom.Point, radius int64, first, last, net, class int, ignore func(*Item) bool) bool {
	s := geom.BoxAround(center, radius)
	if !b.Outline.ContainsBox(s) {
		return false
	}
	for layer := first; layer <= last; layer++ {
		if !b.clear(layer, s, net, class, true, ignore) {
			return false
		}
	}
	return true
}

func (b *Board) clear(layer int, shape geom.Box, net, class int, forVia bool, ignore func(*Item) bool) bool {
	ok := true
	b.Search(layer, shape.Inflate(b.Rules.MaxClearance()), func(o *Item, idx int) bool {
		if !Obstructs(o, net, forVia) || (ignore != nil && ignore(o)) {
			return true
		}
		c := int64(0)
		if o.Kind != KindKeepout {
			c = b.Rules.ClearanceBetween(o.Class, class)
		}
		if o.Shape(idx).Inflate(c).Overlaps(shape) {
			ok = false
			return false
		}
		return true
	})
	return ok
}
