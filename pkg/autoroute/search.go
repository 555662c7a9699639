package autoroute

import (
	"container/heap"
	"math"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

// pollInterval is the number of expansions between deadline checks.
const pollInterval = 32

type searchNode struct {
	conn    ConnectorID
	section int
	room    RegionID
	point   geom.Point
	layer   int
	g       float64
	parent  int
	ripped  board.ItemID
}

type queueItem struct {
	f    float64
	seq  int
	node searchNode
}

type pathQueue []*queueItem

func (q pathQueue) Len() int { return len(q) }
func (q pathQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	return q[i].seq < q[j].seq
}
func (q pathQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *pathQueue) Push(x any)   { *q = append(*q, x.(*queueItem)) }
func (q *pathQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

type destShape struct {
	box   geom.Box
	first int
	last  int
}

// mazeSearch is the state of one connection search.
type mazeSearch struct {
	board   *board.Board
	graph   *Graph
	builder *Builder
	ctl     *Control
	fanout  bool

	dest       map[board.ItemID]bool
	destShapes []destShape
	destDone   map[RegionID]bool
	terminals  []ConnectorID

	nodes []searchNode
	queue pathQueue
	seq   int

	minH, minV, minVia float64
	pitch              float64
	timedOut           bool
}

func newMazeSearch(e *Engine, ctl *Control) *mazeSearch {
	s := &mazeSearch{
		board:    e.board,
		graph:    e.graph,
		builder:  e.builder,
		ctl:      ctl,
		dest:     make(map[board.ItemID]bool),
		destDone: make(map[RegionID]bool),
		pitch:    ctl.pitch(),
		minH:     math.Inf(1),
		minV:     math.Inf(1),
		minVia:   min(ctl.ViaCost, ctl.PlaneViaCost),
	}
	for l := 0; l < e.board.LayerCount(); l++ {
		c := ctl.layerCost(l)
		s.minH = min(s.minH, c.Horizontal)
		s.minV = min(s.minV, c.Vertical)
	}
	return s
}

func (s *mazeSearch) travel(a, b geom.Point, layer int) float64 {
	c := s.ctl.layerCost(layer)
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	return (dx*c.Horizontal + dy*c.Vertical) / s.pitch
}

func (s *mazeSearch) viaCost(layer int) float64 {
	if layer >= 0 && layer < s.board.LayerCount() && s.board.Layers[layer].Plane {
		return s.ctl.PlaneViaCost
	}
	return s.ctl.ViaCost
}

// heuristic is a lower bound of the remaining cost from p on layer.
func (s *mazeSearch) heuristic(p geom.Point, layer int) float64 {
	if s.fanout || len(s.destShapes) == 0 {
		return 0
	}
	best := math.Inf(1)
	for _, d := range s.destShapes {
		dx := float64(max(d.box.X1-p.X, p.X-d.box.X2, 0))
		dy := float64(max(d.box.Y1-p.Y, p.Y-d.box.Y2, 0))
		h := (dx*s.minH + dy*s.minV) / s.pitch
		if layer < d.first || layer > d.last {
			h += s.minVia
		}
		best = min(best, h)
	}
	return best
}

func (s *mazeSearch) push(n searchNode) {
	s.seq++
	heap.Push(&s.queue, &queueItem{f: n.g + s.heuristic(n.point, n.layer), seq: s.seq, node: n})
}

// addStart creates terminal connectors for every region touching the
// copper of a start item and queues them.
func (s *mazeSearch) addStart(it *board.Item) {
	for layer := max(it.FirstLayer, 0); layer <= min(it.LastLayer, s.board.LayerCount()-1); layer++ {
		for _, shape := range it.Shapes() {
			rooms := s.roomsFor(shape, layer)
			for _, rid := range rooms {
				room := s.graph.Region(rid)
				in := room.Shape.Intersection(shape)
				if in.IsEmpty() {
					continue
				}
				sec := Section{Shape: in}
				sec.reset()
				cid, _ := s.graph.AddConnector(Connector{
					Kind:     Terminal,
					Shape:    in,
					Sections: []Section{sec},
					Region:   rid,
					Item:     it.ID,
				})
				s.terminals = append(s.terminals, cid)
				s.push(searchNode{conn: cid, room: rid, point: in.Center(), layer: layer, parent: -1})
			}
		}
	}
}

// roomsFor finds free space regions touching shape on layer, completing a
// region at the centre, corners or edge midpoints when none exists yet.
func (s *mazeSearch) roomsFor(shape geom.Box, layer int) []RegionID {
	if rooms := s.builder.RoomsTouching(shape, layer); len(rooms) > 0 {
		return rooms
	}
	c := shape.Center()
	probes := []geom.Point{
		c,
		{X: shape.X1, Y: c.Y}, {X: shape.X2, Y: c.Y},
		{X: c.X, Y: shape.Y1}, {X: c.X, Y: shape.Y2},
		{X: shape.X1, Y: shape.Y1}, {X: shape.X2, Y: shape.Y2},
		{X: shape.X1, Y: shape.Y2}, {X: shape.X2, Y: shape.Y1},
	}
	for _, p := range probes {
		if !s.builder.routeArea.Contains(p) {
			continue
		}
		if id := s.builder.RoomAt(p, layer); id != NoRegion {
			return s.builder.RoomsTouching(shape, layer)
		}
	}
	return nil
}

func (s *mazeSearch) addDestination(it *board.Item) {
	s.dest[it.ID] = true
	for _, shape := range it.Shapes() {
		s.destShapes = append(s.destShapes, destShape{box: shape, first: it.FirstLayer, last: it.LastLayer})
	}
}

// ensureDestinations links the region to destination items whose copper
// touches it.
func (s *mazeSearch) ensureDestinations(r *Region) {
	if s.fanout || r.Kind != FreeSpace || s.destDone[r.ID] {
		return
	}
	s.destDone[r.ID] = true
	type hit struct {
		id board.ItemID
		in geom.Box
	}
	var hits []hit
	seen := make(map[board.ItemID]bool)
	s.board.Search(r.Layer, r.Shape, func(it *board.Item, idx int) bool {
		if !s.dest[it.ID] || seen[it.ID] {
			return true
		}
		in := r.Shape.Intersection(it.Shape(idx))
		if !in.IsEmpty() {
			seen[it.ID] = true
			hits = append(hits, hit{it.ID, in})
		}
		return true
	})
	for _, h := range hits {
		sec := Section{Shape: h.in}
		sec.reset()
		cid, _ := s.graph.AddConnector(Connector{
			Kind:        Terminal,
			Shape:       h.in,
			Sections:    []Section{sec},
			Region:      r.ID,
			Item:        h.id,
			Destination: true,
		})
		s.terminals = append(s.terminals, cid)
	}
}

// run searches until a destination is reached. It returns the index of
// the final node or -1.
func (s *mazeSearch) run() int {
	expansions := 0
	for s.queue.Len() > 0 {
		if expansions%pollInterval == 0 && (s.ctl.Deadline.Expired() || s.ctl.stopped()) {
			s.timedOut = true
			return -1
		}
		expansions++
		item := heap.Pop(&s.queue).(*queueItem)
		n := item.node
		c := s.graph.Connector(n.conn)
		if c == nil {
			continue
		}
		sec := &c.Sections[n.section]
		if sec.Visited {
			continue
		}
		sec.Visited = true
		s.graph.markDirty(c.ID)
		idx := len(s.nodes)
		s.nodes = append(s.nodes, n)

		if c.Kind == Terminal && c.Destination {
			return idx
		}
		if s.fanout && c.Kind == ViaCandidate {
			return idx
		}
		s.expand(idx)
	}
	return -1
}

func (s *mazeSearch) expand(idx int) {
	n := s.nodes[idx]
	r := s.graph.Region(n.room)
	if r == nil {
		return
	}
	if !r.Complete && len(s.builder.Complete(r.ID)) == 0 {
		return
	}
	s.builder.EnsureDoors(r.ID)
	if r.Kind == FreeSpace && s.ctl.ViasAllowed {
		s.builder.EnsureDrills(r.ID)
	}
	s.ensureDestinations(r)

	for _, cid := range s.graph.Connectors(r.ID) {
		c := s.graph.Connector(cid)
		if c == nil || cid == n.conn && c.Kind != ViaCandidate {
			continue
		}
		switch c.Kind {
		case RoomToRoom:
			s.expandDoor(idx, r, c)
		case Terminal:
			if c.Destination && c.Region == r.ID {
				s.relax(idx, c, 0, r.ID, c.Sections[0].Shape.Clamp(n.point), n.layer, 0, 0)
			}
		case ViaCandidate:
			s.expandDrill(idx, r, c)
		}
	}
}

func (s *mazeSearch) expandDoor(idx int, r *Region, c *Connector) {
	n := s.nodes[idx]
	other := s.graph.Region(c.Other(r.ID))
	if other == nil {
		return
	}
	var extra float64
	var ripped board.ItemID
	if other.Kind == Obstacle {
		it := s.board.Item(other.Item)
		if it == nil || !s.ctl.RipupAllowed || !it.IsRippable() || it.HasNet(s.ctl.Net) {
			return
		}
		ripped = it.ID
		if r.Kind != Obstacle || r.Item != other.Item {
			extra = s.ctl.RipupCosts
		}
	}
	for i := range c.Sections {
		q := c.Sections[i].Shape.Clamp(n.point)
		s.relax(idx, c, i, other.ID, q, n.layer, extra, ripped)
	}
}

func (s *mazeSearch) expandDrill(idx int, r *Region, c *Connector) {
	n := s.nodes[idx]
	if r.Kind != FreeSpace || c.RoomOnLayer(n.layer) != r.ID {
		return
	}
	d := c.Location
	if s.fanout {
		s.relax(idx, c, n.layer-c.FirstLayer, r.ID, d, n.layer, 0, 0)
		return
	}
	for layer := c.FirstLayer; layer <= c.LastLayer; layer++ {
		if layer == n.layer {
			continue
		}
		s.relax(idx, c, layer-c.FirstLayer, c.RoomOnLayer(layer), d, layer, s.viaCost(layer), 0)
	}
}

// relax queues section sec of c if the new cost improves on its best one.
func (s *mazeSearch) relax(idx int, c *Connector, sec int, room RegionID, q geom.Point, layer int, extra float64, ripped board.ItemID) {
	st := &c.Sections[sec]
	if st.Visited {
		return
	}
	n := s.nodes[idx]
	g := n.g + s.travel(n.point, q, n.layer) + extra
	if g >= st.Cost {
		return
	}
	st.Cost = g
	s.graph.markDirty(c.ID)
	s.push(searchNode{
		conn:    c.ID,
		section: sec,
		room:    room,
		point:   q,
		layer:   layer,
		g:       g,
		parent:  idx,
		ripped:  ripped,
	})
}

// cleanup removes the terminals of this search and clears search state.
func (s *mazeSearch) cleanup() {
	for _, cid := range s.terminals {
		s.graph.RemoveConnector(cid)
	}
	s.graph.Reset()
}
