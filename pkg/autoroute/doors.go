package autoroute

import (
	"slices"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

type side int

const (
	sideBottom side = iota
	sideRight
	sideTop
	sideLeft
)

type edge struct {
	seg  geom.Box
	side side
}

func edgesOf(b geom.Box) [4]edge {
	return [4]edge{
		{geom.Box{X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y1}, sideBottom},
		{geom.Box{X1: b.X2, Y1: b.Y1, X2: b.X2, Y2: b.Y2}, sideRight},
		{geom.Box{X1: b.X1, Y1: b.Y2, X2: b.X2, Y2: b.Y2}, sideTop},
		{geom.Box{X1: b.X1, Y1: b.Y1, X2: b.X1, Y2: b.Y2}, sideLeft},
	}
}

func (e edge) horizontal() bool {
	return e.side == sideBottom || e.side == sideTop
}

func (e edge) span() (int64, int64) {
	if e.horizontal() {
		return e.seg.X1, e.seg.X2
	}
	return e.seg.Y1, e.seg.Y2
}

func (e edge) sub(lo, hi int64) geom.Box {
	if e.horizontal() {
		return geom.Box{X1: lo, Y1: e.seg.Y1, X2: hi, Y2: e.seg.Y1}
	}
	return geom.Box{X1: e.seg.X1, Y1: lo, X2: e.seg.X1, Y2: hi}
}

// beyond returns the part of the edge covered by o when o lies on the
// outer side of the edge, touching or crossing it.
func (e edge) beyond(o geom.Box) (lo, hi int64, ok bool) {
	switch e.side {
	case sideBottom:
		y := e.seg.Y1
		if !(o.Y1 < y && y <= o.Y2) {
			return 0, 0, false
		}
	case sideTop:
		y := e.seg.Y1
		if !(o.Y1 <= y && y < o.Y2) {
			return 0, 0, false
		}
	case sideRight:
		x := e.seg.X1
		if !(o.X1 <= x && x < o.X2) {
			return 0, 0, false
		}
	case sideLeft:
		x := e.seg.X1
		if !(o.X1 < x && x <= o.X2) {
			return 0, 0, false
		}
	}
	elo, ehi := e.span()
	if e.horizontal() {
		lo, hi = max(o.X1, elo), min(o.X2, ehi)
	} else {
		lo, hi = max(o.Y1, elo), min(o.Y2, ehi)
	}
	return lo, hi, lo < hi
}

func (bl *Builder) onBorder(e edge) bool {
	a := bl.routeArea
	switch e.side {
	case sideBottom:
		return e.seg.Y1 <= a.Y1
	case sideTop:
		return e.seg.Y1 >= a.Y2
	case sideLeft:
		return e.seg.X1 <= a.X1
	default:
		return e.seg.X1 >= a.X2
	}
}

type interval struct{ lo, hi int64 }

// gaps returns the parts of [lo, hi] not covered by any interval.
func gaps(lo, hi int64, covered []interval) []interval {
	slices.SortFunc(covered, func(a, b interval) int {
		switch {
		case a.lo < b.lo:
			return -1
		case a.lo > b.lo:
			return 1
		}
		return 0
	})
	var out []interval
	pos := lo
	for _, c := range covered {
		if c.lo > pos {
			out = append(out, interval{pos, min(c.lo, hi)})
		}
		pos = max(pos, c.hi)
		if pos >= hi {
			break
		}
	}
	if pos < hi {
		out = append(out, interval{pos, hi})
	}
	return out
}

// EnsureDoors computes the doors of a completed region once: doors to
// adjacent free space regions, to obstacle regions of rippable items and
// to new incomplete regions seeded by the uncovered parts of every edge.
// Obstacle regions additionally get area doors to overlapping obstacles.
func (bl *Builder) EnsureDoors(id RegionID) {
	r := bl.graph.Region(id)
	if r == nil || !r.Complete || r.blocked || r.doorsDone || r.Kind == ViaPage {
		return
	}
	r.doorsDone = true
	for _, e := range edgesOf(r.Shape) {
		if !bl.onBorder(e) {
			bl.scanEdge(r, e)
		}
	}
	if r.Kind == Obstacle {
		bl.overlapDoors(r)
	}
}

type pendingDoor struct {
	to     RegionID
	item   *board.Item
	shape  int
	lo, hi int64
}

func (bl *Builder) scanEdge(r *Region, e edge) {
	var covered []interval
	var pending []pendingDoor

	bl.free[r.Layer].Search(boxMin(e.seg), boxMax(e.seg), func(_, _ [2]int64, qid RegionID) bool {
		if qid == r.ID {
			return true
		}
		q := bl.graph.Region(qid)
		if lo, hi, ok := e.beyond(q.Shape); ok {
			covered = append(covered, interval{lo, hi})
			pending = append(pending, pendingDoor{to: qid, lo: lo, hi: hi})
		}
		return true
	})
	bl.board.Search(r.Layer, e.seg.Inflate(bl.maxInflation), func(it *board.Item, idx int) bool {
		if (it.Kind == board.KindKeepout && it.ViaOnly) || !bl.obstructs(it) {
			return true
		}
		o := it.Shape(idx).Inflate(bl.inflation(it, bl.ctl.HalfWidth))
		lo, hi, ok := e.beyond(o)
		if !ok {
			return true
		}
		covered = append(covered, interval{lo, hi})
		if r.Kind == FreeSpace && it.IsRippable() {
			pending = append(pending, pendingDoor{to: NoRegion, item: it, shape: idx, lo: lo, hi: hi})
		}
		return true
	})
	// Seeds already hanging off this edge keep their part covered.
	for _, cid := range r.connectors {
		c := bl.graph.Connector(cid)
		if c.Kind != RoomToRoom {
			continue
		}
		q := bl.graph.Region(c.Other(r.ID))
		if q == nil || q.Kind != FreeSpace || (q.Complete && !q.blocked) {
			continue
		}
		if lo, hi, ok := e.along(c.Shape); ok {
			covered = append(covered, interval{lo, hi})
		}
	}

	for _, p := range pending {
		to := p.to
		if p.item != nil {
			to = bl.ObstacleRoom(p.item, p.shape, r.Layer)
			if to == NoRegion {
				continue
			}
		}
		bl.addDoor(r.ID, to, e.sub(p.lo, p.hi))
	}
	lo, hi := e.span()
	for _, gap := range gaps(lo, hi, covered) {
		seg := e.sub(gap.lo, gap.hi)
		nid := bl.graph.NewRegion(Region{Kind: FreeSpace, Shape: seg, Layer: r.Layer})
		bl.seeds[nid] = true
		bl.addDoor(r.ID, nid, seg)
	}
}

// along returns the span of a door segment lying on the edge.
func (e edge) along(seg geom.Box) (lo, hi int64, ok bool) {
	elo, ehi := e.span()
	if e.horizontal() {
		if seg.Y1 != e.seg.Y1 || seg.Y2 != e.seg.Y1 {
			return 0, 0, false
		}
		lo, hi = max(seg.X1, elo), min(seg.X2, ehi)
	} else {
		if seg.X1 != e.seg.X1 || seg.X2 != e.seg.X1 {
			return 0, 0, false
		}
		lo, hi = max(seg.Y1, elo), min(seg.Y2, ehi)
	}
	return lo, hi, lo < hi
}

func (bl *Builder) addDoor(from, to RegionID, seg geom.Box) {
	bl.graph.AddConnector(Connector{
		Kind:      RoomToRoom,
		From:      from,
		To:        to,
		Dimension: geom.DimLine,
		Shape:     seg,
		Sections:  splitSegment(seg, bl.sectionLen, maxSections),
	})
}

// overlapDoors joins an obstacle region to overlapping obstacle regions of
// route items sharing a net. Shapes of the same item are only joined when
// they are neighbours along the item.
func (bl *Builder) overlapDoors(r *Region) {
	owner := bl.board.Item(r.Item)
	if owner == nil {
		return
	}
	type hit struct {
		it  *board.Item
		idx int
	}
	var hits []hit
	bl.board.Search(r.Layer, r.Shape.Inflate(bl.maxInflation), func(it *board.Item, idx int) bool {
		if !it.IsRippable() || !it.SharesNet(owner) || !bl.obstructs(it) {
			return true
		}
		if it.ID == owner.ID && abs(idx-r.ShapeIndex) != 1 {
			return true
		}
		hits = append(hits, hit{it, idx})
		return true
	})
	for _, h := range hits {
		oid := bl.ObstacleRoom(h.it, h.idx, r.Layer)
		if oid == NoRegion || oid == r.ID {
			continue
		}
		o := bl.graph.Region(oid)
		if r.DimensionOfOverlap(o) != geom.DimArea {
			continue
		}
		in := r.Shape.Intersection(o.Shape)
		s := Section{Shape: in}
		s.reset()
		bl.graph.AddConnector(Connector{
			Kind:      RoomToRoom,
			From:      r.ID,
			To:        oid,
			Dimension: geom.DimArea,
			Shape:     in,
			Sections:  []Section{s},
		})
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
