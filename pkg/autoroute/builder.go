package autoroute

import (
	"cmp"
	"slices"

	"github.com/tidwall/rtree"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

const maxSections = 32

type roomIndex = rtree.RTreeGN[int64, RegionID]

type obstacleKey struct {
	item  board.ItemID
	shape int
	layer int
}

// Builder materialises the region graph on demand: it completes free space
// regions against the board, scans their edges for doors, wraps rippable
// items in obstacle regions and pages via candidates.
type Builder struct {
	board *board.Board
	graph *Graph
	ctl   *Control

	routeArea    geom.Box
	window       int64
	sectionLen   int64
	pageSize     int64
	pageCols     int
	maxInflation int64

	free      []*roomIndex
	seeds     map[RegionID]bool
	obstacles map[obstacleKey]RegionID
	pages     map[int]RegionID

	started bool
	gen     uint64
	net     int
	class   int
	hw      int64
	viaR    int64
}

func newBuilder(b *board.Board, g *Graph) *Builder {
	bl := &Builder{
		board:     b,
		graph:     g,
		seeds:     make(map[RegionID]bool),
		obstacles: make(map[obstacleKey]RegionID),
		pages:     make(map[int]RegionID),
	}
	g.onRemoveRegion = bl.forget
	bl.free = make([]*roomIndex, b.LayerCount())
	for i := range bl.free {
		bl.free[i] = &roomIndex{}
	}
	return bl
}

// forget drops a region from the builder indices before the graph frees it.
func (bl *Builder) forget(r *Region) {
	switch r.Kind {
	case FreeSpace:
		if r.Complete && !r.blocked {
			bl.free[r.Layer].Delete(boxMin(r.Shape), boxMax(r.Shape), r.ID)
		}
		delete(bl.seeds, r.ID)
	case Obstacle:
		delete(bl.obstacles, obstacleKey{item: r.Item, shape: r.ShapeIndex, layer: r.Layer})
	case ViaPage:
		delete(bl.pages, r.pageKey)
	}
}

func boxMin(b geom.Box) [2]int64 { return [2]int64{b.X1, b.Y1} }
func boxMax(b geom.Box) [2]int64 { return [2]int64{b.X2, b.Y2} }

// BeginConnection prepares the graph for a search with ctl. Regions made
// stale by board changes since the previous connection are removed, as are
// net dependent regions of other nets. A change of trace class discards
// the whole graph.
func (bl *Builder) BeginConnection(ctl *Control) {
	if !bl.started || ctl.Class != bl.class || ctl.HalfWidth != bl.hw || ctl.ViaRadius != bl.viaR {
		bl.Clear()
		bl.setup(ctl)
	} else if changes, ok := bl.board.ChangesSince(bl.gen); !ok {
		bl.Clear()
	} else {
		for _, ch := range changes {
			bl.invalidate(ch)
		}
		if len(changes) > 0 {
			bl.dropVanishedObstacles()
		}
	}
	bl.ctl = ctl
	bl.gen = bl.board.Generation()
	netChanged := ctl.Net != bl.net
	bl.net = ctl.Net
	for _, id := range bl.graph.Regions() {
		r := bl.graph.Region(id)
		if r == nil || r.Kind != FreeSpace {
			continue
		}
		if r.blocked || (r.NetDependent && r.Net != ctl.Net) {
			bl.graph.RemoveRegion(id)
		}
	}
	if netChanged {
		for _, id := range bl.graph.Regions() {
			bl.graph.Region(id).doorsDone = false
		}
	}
	bl.graph.Reset()
}

func (bl *Builder) setup(ctl *Control) {
	bl.started = true
	bl.class = ctl.Class
	bl.hw = ctl.HalfWidth
	bl.viaR = ctl.ViaRadius
	o := bl.board.Outline
	bl.routeArea = o.Inflate(-ctl.HalfWidth)
	pitch := max(2*ctl.HalfWidth+ctl.Clearance, 1)
	ext := max(o.Width(), o.Height())
	bl.window = max(ext/8, 40*pitch)
	bl.sectionLen = max(ext/32, 8*pitch)
	bl.pageSize = max(ext/8, 20*max(ctl.ViaRadius, 1))
	bl.pageCols = int(o.Width()/bl.pageSize) + 1
	bl.maxInflation = bl.board.Rules.MaxClearance() + max(ctl.HalfWidth, ctl.ViaRadius)
}

// Clear removes every region and connector.
func (bl *Builder) Clear() {
	for _, id := range bl.graph.Regions() {
		bl.graph.RemoveRegion(id)
	}
	for i := range bl.free {
		bl.free[i] = &roomIndex{}
	}
	clear(bl.seeds)
	clear(bl.obstacles)
	clear(bl.pages)
}

func (bl *Builder) invalidate(ch board.Change) {
	area := ch.Area.Inflate(bl.maxInflation)
	for layer := max(ch.FirstLayer, 0); layer <= min(ch.LastLayer, len(bl.free)-1); layer++ {
		var stale []RegionID
		bl.free[layer].Search(boxMin(area), boxMax(area), func(_, _ [2]int64, id RegionID) bool {
			stale = append(stale, id)
			return true
		})
		for id := range bl.seeds {
			if r := bl.graph.Region(id); r != nil && r.Layer == layer && r.Shape.Touches(area) {
				stale = append(stale, id)
			}
		}
		for _, id := range stale {
			bl.graph.RemoveRegion(id)
		}
	}
	for _, id := range bl.pages {
		r := bl.graph.Region(id)
		if r == nil || !r.Shape.Touches(area) {
			continue
		}
		for _, cid := range slices.Clone(r.Page.drills) {
			bl.graph.RemoveConnector(cid)
		}
		r.Page.drills = nil
		r.Page.valid = false
	}
}

func (bl *Builder) dropVanishedObstacles() {
	var stale []RegionID
	for key, id := range bl.obstacles {
		if bl.board.Item(key.item) == nil {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		bl.graph.RemoveRegion(id)
	}
}

func (bl *Builder) inflation(it *board.Item, halfSize int64) int64 {
	return bl.board.ObstacleInflation(it, bl.ctl.Class, halfSize)
}

// obstructs reports whether it blocks traces of the current net.
func (bl *Builder) obstructs(it *board.Item) bool {
	return board.Obstructs(it, bl.ctl.Net, false)
}

// Complete completes a free space region. It returns the completed region,
// or nothing when an obstacle covers the seed.
func (bl *Builder) Complete(id RegionID) []RegionID {
	r := bl.graph.Region(id)
	if r == nil || r.blocked {
		return nil
	}
	if r.Complete {
		return []RegionID{id}
	}
	shape, dep, ok := bl.grow(r.Shape, r.Layer)
	if !ok {
		r.blocked = true
		r.NetDependent = true
		r.Net = bl.ctl.Net
		return nil
	}
	r.Shape = shape
	r.Complete = true
	r.NetDependent = dep
	if dep {
		r.Net = bl.ctl.Net
	}
	delete(bl.seeds, id)
	bl.free[r.Layer].Insert(boxMin(shape), boxMax(shape), id)
	bl.link(r)
	return []RegionID{id}
}

// link joins a newly completed room to the completed free space rooms
// sharing a side with it. Seeds left by earlier edge scans on the room
// boundary are replaced by doors from their parents to the room; the
// uncovered parts of a seed stay behind as smaller seeds.
func (bl *Builder) link(r *Region) {
	var near []RegionID
	bl.free[r.Layer].Search(boxMin(r.Shape), boxMax(r.Shape), func(_, _ [2]int64, id RegionID) bool {
		if id != r.ID {
			near = append(near, id)
		}
		return true
	})
	slices.Sort(near)
	for _, qid := range near {
		if q := bl.graph.Region(qid); q != nil && r.DimensionOfOverlap(q) == geom.DimLine {
			bl.addDoor(qid, r.ID, q.Shape.Intersection(r.Shape))
		}
	}

	var covered []RegionID
	for id := range bl.seeds {
		s := bl.graph.Region(id)
		if s != nil && s.Layer == r.Layer && segmentLength(s.Shape.Intersection(r.Shape)) > 0 {
			covered = append(covered, id)
		}
	}
	slices.Sort(covered)
	for _, id := range covered {
		bl.retireSeed(bl.graph.Region(id), r)
	}
}

func (bl *Builder) retireSeed(s, r *Region) {
	var parents []RegionID
	for _, cid := range s.connectors {
		c := bl.graph.Connector(cid)
		if c.Kind != RoomToRoom {
			continue
		}
		p := c.Other(s.ID)
		if p == r.ID {
			return
		}
		parents = append(parents, p)
	}
	in := s.Shape.Intersection(r.Shape)
	rest := remainder(s.Shape, in)
	layer := s.Layer
	bl.graph.RemoveRegion(s.ID)
	for _, p := range parents {
		if bl.graph.Region(p) == nil {
			continue
		}
		bl.addDoor(p, r.ID, in)
		for _, seg := range rest {
			nid := bl.graph.NewRegion(Region{Kind: FreeSpace, Shape: seg, Layer: layer})
			bl.seeds[nid] = true
			bl.addDoor(p, nid, seg)
		}
	}
}

// segmentLength returns the length of a degenerate box, 0 for points and
// empty boxes.
func segmentLength(b geom.Box) int64 {
	if b.IsEmpty() {
		return 0
	}
	return max(b.Width(), b.Height())
}

// remainder returns the parts of segment seg not covered by its sub
// segment in.
func remainder(seg, in geom.Box) []geom.Box {
	var out []geom.Box
	if seg.Height() == 0 {
		if in.X1 > seg.X1 {
			out = append(out, geom.Box{X1: seg.X1, Y1: seg.Y1, X2: in.X1, Y2: seg.Y2})
		}
		if in.X2 < seg.X2 {
			out = append(out, geom.Box{X1: in.X2, Y1: seg.Y1, X2: seg.X2, Y2: seg.Y2})
		}
		return out
	}
	if in.Y1 > seg.Y1 {
		out = append(out, geom.Box{X1: seg.X1, Y1: seg.Y1, X2: seg.X2, Y2: in.Y1})
	}
	if in.Y2 < seg.Y2 {
		out = append(out, geom.Box{X1: seg.X1, Y1: in.Y2, X2: seg.X2, Y2: seg.Y2})
	}
	return out
}

// grow finds a large obstacle free rectangle containing seed. Obstacles are
// cut away nearest first, keeping the largest remainder that still holds
// the seed.
func (bl *Builder) grow(seed geom.Box, layer int) (geom.Box, bool, bool) {
	window := seed.Inflate(bl.window).Intersection(bl.routeArea)
	if window.IsEmpty() || !window.ContainsBox(seed) {
		return geom.Box{}, false, false
	}
	var obs, own []geom.Box
	bl.board.Search(layer, window.Inflate(bl.maxInflation), func(it *board.Item, idx int) bool {
		if it.Kind == board.KindKeepout && it.ViaOnly {
			return true
		}
		s := it.Shape(idx).Inflate(bl.inflation(it, bl.ctl.HalfWidth))
		if !s.Overlaps(window) {
			return true
		}
		if bl.obstructs(it) {
			obs = append(obs, s)
		} else {
			own = append(own, s)
		}
		return true
	})
	bl.free[layer].Search(boxMin(window), boxMax(window), func(mn, mx [2]int64, _ RegionID) bool {
		s := geom.Box{X1: mn[0], Y1: mn[1], X2: mx[0], Y2: mx[1]}
		if s.Overlaps(window) {
			obs = append(obs, s)
		}
		return true
	})
	slices.SortStableFunc(obs, func(a, b geom.Box) int {
		return cmp.Compare(a.DistanceSquared(seed), b.DistanceSquared(seed))
	})
	box := window
	for _, o := range obs {
		if !o.Overlaps(box) {
			continue
		}
		next, ok := cutAway(box, o, seed)
		if !ok {
			return geom.Box{}, false, false
		}
		box = next
	}
	if box.IsDegenerate() {
		return geom.Box{}, false, false
	}
	dep := false
	for _, s := range own {
		if s.Overlaps(box) {
			dep = true
			break
		}
	}
	return box, dep, true
}

// cutAway removes obstacle o from box by moving one side, choosing the
// largest result that still contains seed. Cuts leaving no interior are
// never chosen, so an obstacle lying flush against a seed line pushes the
// room to the other side of the line.
func cutAway(box, o, seed geom.Box) (geom.Box, bool) {
	best, bestArea := geom.Box{}, -1.0
	try := func(c geom.Box) {
		if c.ContainsBox(seed) && !c.IsDegenerate() && c.Area() > bestArea {
			best, bestArea = c, c.Area()
		}
	}
	if o.X1 >= seed.X2 {
		c := box
		c.X2 = min(c.X2, o.X1)
		try(c)
	}
	if o.X2 <= seed.X1 {
		c := box
		c.X1 = max(c.X1, o.X2)
		try(c)
	}
	if o.Y1 >= seed.Y2 {
		c := box
		c.Y2 = min(c.Y2, o.Y1)
		try(c)
	}
	if o.Y2 <= seed.Y1 {
		c := box
		c.Y1 = max(c.Y1, o.Y2)
		try(c)
	}
	return best, bestArea >= 0
}

// RoomAt returns a completed free space region containing p on layer,
// completing a new one if necessary, or NoRegion when p is obstructed.
func (bl *Builder) RoomAt(p geom.Point, layer int) RegionID {
	found := NoRegion
	pt := [2]int64{p.X, p.Y}
	bl.free[layer].Search(pt, pt, func(_, _ [2]int64, id RegionID) bool {
		if found == NoRegion || id < found {
			found = id
		}
		return true
	})
	if found != NoRegion {
		return found
	}
	id := bl.graph.NewRegion(Region{Kind: FreeSpace, Shape: geom.PointBox(p), Layer: layer})
	bl.seeds[id] = true
	if len(bl.Complete(id)) == 0 {
		bl.graph.RemoveRegion(id)
		return NoRegion
	}
	return id
}

// RoomsTouching returns the completed free space regions on layer touching area.
func (bl *Builder) RoomsTouching(area geom.Box, layer int) []RegionID {
	var out []RegionID
	bl.free[layer].Search(boxMin(area), boxMax(area), func(_, _ [2]int64, id RegionID) bool {
		out = append(out, id)
		return true
	})
	slices.Sort(out)
	return out
}

// ObstacleRoom returns the obstacle region wrapping shape idx of it on layer.
func (bl *Builder) ObstacleRoom(it *board.Item, idx, layer int) RegionID {
	key := obstacleKey{item: it.ID, shape: idx, layer: layer}
	if id, ok := bl.obstacles[key]; ok {
		return id
	}
	shape := it.Shape(idx).Inflate(bl.inflation(it, bl.ctl.HalfWidth)).Intersection(bl.routeArea)
	if shape.IsDegenerate() {
		return NoRegion
	}
	id := bl.graph.NewRegion(Region{
		Kind:       Obstacle,
		Shape:      shape,
		Layer:      layer,
		Complete:   true,
		Item:       it.ID,
		ShapeIndex: idx,
	})
	bl.obstacles[key] = id
	return id
}
