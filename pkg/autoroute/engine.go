package autoroute

import (
	"errors"
	"fmt"
	"log"
	"slices"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

// Result is the outcome of one connection search.
type Result int

const (
	Routed Result = iota
	NotRouted
	AlreadyConnected
	InsertError
	Exception
)

func (r Result) String() string {
	switch r {
	case Routed:
		return "ROUTED"
	case NotRouted:
		return "NOT_ROUTED"
	case AlreadyConnected:
		return "ALREADY_CONNECTED"
	case InsertError:
		return "INSERT_ERROR"
	default:
		return "EXCEPTION"
	}
}

// ErrInternal marks a recovered panic inside the search.
var ErrInternal = errors.New("internal fault")

// SearchError reports an unexpected fault while routing one item.
type SearchError struct {
	Net  int
	Item board.ItemID
	Err  error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("autoroute: net %d item %d: %v", e.Net, e.Item, e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// Engine owns the region graph of a board and routes connections on it.
type Engine struct {
	board   *board.Board
	graph   *Graph
	builder *Builder
	logger  *log.Logger
}

// NewEngine creates an engine for b. A nil logger logs to log.Default().
func NewEngine(b *board.Board, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	g := NewGraph()
	return &Engine{
		board:   b,
		graph:   g,
		builder: newBuilder(b, g),
		logger:  logger,
	}
}

// Graph returns the region graph.
func (e *Engine) Graph() *Graph { return e.graph }

// Builder returns the region graph builder.
func (e *Engine) Builder() *Builder { return e.builder }

// Board returns the routed board.
func (e *Engine) Board() *board.Board { return e.board }

// Route searches a path from one of the start items to one of the
// destination items and inserts it. Ripped up items are returned on
// success. The error is only set together with Exception.
func (e *Engine) Route(ctl *Control, start, dest []board.ItemID) (Result, []*board.Item, error) {
	if len(dest) == 0 {
		return AlreadyConnected, nil, nil
	}
	for _, d := range dest {
		if slices.Contains(start, d) {
			return AlreadyConnected, nil, nil
		}
	}
	return e.search(ctl, start, dest, false)
}

// Fanout connects an SMD pin to a nearby via candidate by a short trace.
func (e *Engine) Fanout(ctl *Control, pin board.ItemID) (Result, []*board.Item, error) {
	return e.search(ctl, []board.ItemID{pin}, nil, true)
}

func (e *Engine) search(ctl *Control, start, dest []board.ItemID, fanout bool) (res Result, ripped []*board.Item, err error) {
	var first board.ItemID
	if len(start) > 0 {
		first = start[0]
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("[MAZE] net %d item %d: recovered from %v", ctl.Net, first, r)
			e.builder.Clear()
			e.builder.started = false
			res, ripped = Exception, nil
			err = &SearchError{Net: ctl.Net, Item: first, Err: fmt.Errorf("%w: %v", ErrInternal, r)}
		}
	}()
	if verr := ctl.validate(e.board.LayerCount()); verr != nil {
		return Exception, nil, &SearchError{Net: ctl.Net, Item: first, Err: verr}
	}

	e.builder.BeginConnection(ctl)
	s := newMazeSearch(e, ctl)
	s.fanout = fanout
	defer s.cleanup()
	for _, id := range dest {
		if it := e.board.Item(id); it != nil {
			s.addDestination(it)
		}
	}
	for _, id := range start {
		if it := e.board.Item(id); it != nil {
			s.addStart(it)
		}
	}
	final := s.run()
	if final < 0 {
		if s.timedOut {
			e.logger.Printf("[MAZE] net %d item %d: search stopped before completion", ctl.Net, first)
		}
		return NotRouted, nil, nil
	}
	ripped, ok := e.insert(ctl, s.path(final))
	if !ok {
		return InsertError, nil, nil
	}
	return Routed, ripped, nil
}

type pathRun struct {
	layer  int
	points []geom.Point
}

type routePath struct {
	runs   []pathRun
	vias   []geom.Point
	ripped []board.ItemID
}

// path converts the node chain ending at final into orthogonal runs per
// layer. Consecutive points inside one rectangular region are joined by an
// L-shape, which stays inside the region.
func (s *mazeSearch) path(final int) routePath {
	var chain []searchNode
	for i := final; i >= 0; i = s.nodes[i].parent {
		chain = append(chain, s.nodes[i])
	}
	slices.Reverse(chain)

	var p routePath
	seen := make(map[board.ItemID]bool)
	cur := pathRun{layer: chain[0].layer, points: []geom.Point{chain[0].point}}
	for k := 1; k < len(chain); k++ {
		prev, n := chain[k-1], chain[k]
		if n.ripped != 0 && !seen[n.ripped] {
			seen[n.ripped] = true
			p.ripped = append(p.ripped, n.ripped)
		}
		if n.layer != prev.layer {
			cur.points = appendL(cur.points, n.point)
			p.runs = append(p.runs, cur)
			p.vias = append(p.vias, n.point)
			cur = pathRun{layer: n.layer, points: []geom.Point{n.point}}
			continue
		}
		cur.points = appendL(cur.points, n.point)
	}
	p.runs = append(p.runs, cur)
	if s.fanout {
		p.vias = append(p.vias, chain[len(chain)-1].point)
	}
	for i := range p.runs {
		p.runs[i].points = simplify(p.runs[i].points)
	}
	return p
}

func appendL(pts []geom.Point, q geom.Point) []geom.Point {
	last := pts[len(pts)-1]
	if last.X != q.X && last.Y != q.Y {
		pts = append(pts, geom.Pt(q.X, last.Y))
	}
	return append(pts, q)
}

// simplify drops repeated points and middle points of collinear triples.
func simplify(pts []geom.Point) []geom.Point {
	out := make([]geom.Point, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		if len(out) >= 2 {
			a, b := out[len(out)-2], out[len(out)-1]
			if (a.X == b.X && b.X == p.X) || (a.Y == b.Y && b.Y == p.Y) {
				out[len(out)-1] = p
				if out[len(out)-2] == p {
					out = out[:len(out)-1]
				}
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// insert validates every new trace and via against the remaining
// obstacles and only then removes the ripped items and adds the path.
func (e *Engine) insert(ctl *Control, p routePath) ([]*board.Item, bool) {
	rip := make(map[board.ItemID]bool, len(p.ripped))
	for _, id := range p.ripped {
		rip[id] = true
	}
	ignore := func(it *board.Item) bool { return rip[it.ID] }
	last := e.board.LayerCount() - 1

	type newTrace struct {
		layer int
		seg   geom.Segment
	}
	var traces []newTrace
	for _, run := range p.runs {
		for i := 0; i+1 < len(run.points); i++ {
			seg := geom.Seg(run.points[i], run.points[i+1])
			if !e.board.CheckTrace(seg, run.layer, ctl.HalfWidth, ctl.Net, ctl.Class, ignore) {
				e.logger.Printf("[MAZE] net %d: trace %v-%v on layer %d violates clearance", ctl.Net, seg.A, seg.B, run.layer)
				return nil, false
			}
			traces = append(traces, newTrace{run.layer, seg})
		}
	}
	for _, v := range p.vias {
		if !e.board.CheckVia(v, ctl.ViaRadius, 0, last, ctl.Net, ctl.Class, ignore) {
			e.logger.Printf("[MAZE] net %d: via at %v violates clearance", ctl.Net, v)
			return nil, false
		}
	}
	if len(traces) == 0 && len(p.vias) == 0 {
		return nil, false
	}
	var ripped []*board.Item
	for _, id := range p.ripped {
		if it := e.board.Item(id); it != nil {
			ripped = append(ripped, it)
		}
		if err := e.board.Remove(id); err != nil {
			e.logger.Printf("[MAZE] net %d: %v", ctl.Net, err)
		}
	}
	for _, t := range traces {
		e.board.Add(board.NewTrace(ctl.Net, t.layer, t.seg.A, t.seg.B, ctl.HalfWidth, ctl.Class, board.Unfixed))
	}
	for _, v := range p.vias {
		e.board.Add(board.NewVia(ctl.Net, v, ctl.ViaRadius, 0, last, ctl.Class, board.Unfixed))
	}
	return ripped, true
}
