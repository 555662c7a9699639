package autoroute

import (
	"errors"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/OpenTraceLab/OpenTraceRoute/internal/testutil"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

func TestRouteStraight(t *testing.T) {
	b := testutil.Board(2, 1)
	p1 := testutil.SMD(b, "U1", 1, 1000, 5000)
	p2 := testutil.SMD(b, "U2", 1, 9000, 5000)
	e := NewEngine(b, nil)

	res, ripped, err := e.Route(NewControl(b, 1), []board.ItemID{p1}, []board.ItemID{p2})
	if err != nil || res != Routed {
		t.Fatalf("Route = %v, %v", res, err)
	}
	if len(ripped) != 0 {
		t.Errorf("ripped %v on an empty board", ripped)
	}
	if got := b.UnroutedCount(); got != 0 {
		t.Errorf("UnroutedCount = %d, want 0", got)
	}
	if b.TraceCount() == 0 || b.ViaCount() != 0 {
		t.Errorf("traces = %d, vias = %d", b.TraceCount(), b.ViaCount())
	}
	for _, it := range b.ItemsOfKind(board.KindTrace) {
		if it.Fixed != board.Unfixed || !it.HasNet(1) {
			t.Errorf("inserted %v", it)
		}
	}
}

func TestRouteAlreadyConnected(t *testing.T) {
	b := testutil.Board(1, 1)
	p1 := testutil.SMD(b, "U1", 1, 1000, 5000)
	e := NewEngine(b, nil)
	ctl := NewControl(b, 1)

	if res, _, _ := e.Route(ctl, []board.ItemID{p1}, nil); res != AlreadyConnected {
		t.Errorf("empty destination: %v", res)
	}
	if res, _, _ := e.Route(ctl, []board.ItemID{p1}, []board.ItemID{p1}); res != AlreadyConnected {
		t.Errorf("shared item: %v", res)
	}
}

func TestRouteBlocked(t *testing.T) {
	b := testutil.Board(2, 1)
	p1 := testutil.SMD(b, "U1", 1, 1000, 5000)
	p2 := testutil.SMD(b, "U2", 1, 9000, 5000)
	testutil.Wall(b, 5000)
	e := NewEngine(b, nil)
	before := b.ItemCount()

	res, _, err := e.Route(NewControl(b, 1), []board.ItemID{p1}, []board.ItemID{p2})
	if err != nil || res != NotRouted {
		t.Fatalf("Route = %v, %v, want NOT_ROUTED", res, err)
	}
	if b.ItemCount() != before {
		t.Errorf("item count changed from %d to %d", before, b.ItemCount())
	}
}

func TestRouteRipsUpForeignTrace(t *testing.T) {
	b := testutil.Board(1, 2)
	p1 := testutil.SMD(b, "U1", 1, 1000, 5000)
	p2 := testutil.SMD(b, "U2", 1, 9000, 5000)
	blocker := b.Add(board.NewTrace(2, 0, geom.Pt(5000, 0), geom.Pt(5000, 10000), 50, 0, board.Unfixed))
	e := NewEngine(b, nil)

	ctl := NewControl(b, 1)
	ctl.RipupAllowed = false
	if res, _, _ := e.Route(ctl, []board.ItemID{p1}, []board.ItemID{p2}); res != NotRouted {
		t.Fatalf("without ripup: %v, want NOT_ROUTED", res)
	}

	ctl = NewControl(b, 1)
	res, ripped, err := e.Route(ctl, []board.ItemID{p1}, []board.ItemID{p2})
	if err != nil || res != Routed {
		t.Fatalf("with ripup: %v, %v", res, err)
	}
	if len(ripped) != 1 || ripped[0].ID != blocker || !ripped[0].HasNet(2) {
		t.Errorf("ripped = %v, want trace %d", ripped, blocker)
	}
	if b.Item(blocker) != nil {
		t.Error("ripped trace still on the board")
	}
	if len(b.Components(1)) != 1 {
		t.Error("net 1 not connected")
	}
}

func TestFanout(t *testing.T) {
	b := testutil.Board(2, 1)
	p1 := testutil.SMD(b, "U1", 1, 3000, 3000)
	testutil.SMD(b, "U2", 1, 7000, 7000)
	e := NewEngine(b, nil)

	res, _, err := e.Fanout(NewControl(b, 1), p1)
	if err != nil || res != Routed {
		t.Fatalf("Fanout = %v, %v", res, err)
	}
	if b.ViaCount() != 1 {
		t.Errorf("vias = %d, want 1", b.ViaCount())
	}
	set := b.ConnectedSet(p1, 1)
	if len(set) < 3 {
		t.Errorf("pin connected to %v, want pin, trace and via", set)
	}
}

func TestRouteStopRequested(t *testing.T) {
	b := testutil.Board(1, 1)
	p1 := testutil.SMD(b, "U1", 1, 1000, 5000)
	p2 := testutil.SMD(b, "U2", 1, 9000, 5000)
	e := NewEngine(b, nil)
	ctl := NewControl(b, 1)
	stop := &StopFlag{}
	stop.RequestStop()
	ctl.Stop = stop

	if res, _, _ := e.Route(ctl, []board.ItemID{p1}, []board.ItemID{p2}); res != NotRouted {
		t.Errorf("Route after stop = %v, want NOT_ROUTED", res)
	}
}

func TestRouteInvalidControl(t *testing.T) {
	b := testutil.Board(1, 1)
	p1 := testutil.SMD(b, "U1", 1, 1000, 5000)
	p2 := testutil.SMD(b, "U2", 1, 9000, 5000)
	e := NewEngine(b, nil)
	ctl := NewControl(b, 1)
	ctl.HalfWidth = 0

	res, _, err := e.Route(ctl, []board.ItemID{p1}, []board.ItemID{p2})
	var se *SearchError
	if res != Exception || !errors.As(err, &se) || se.Net != 1 {
		t.Errorf("Route = %v, %v", res, err)
	}
}

type recorder struct {
	boxes, lines int
}

func (r *recorder) FillBox(geom.Box, color.Color)                    { r.boxes++ }
func (r *recorder) DrawLine(_, _ geom.Point, _ int64, _ color.Color) { r.lines++ }

func TestDrawAfterRoute(t *testing.T) {
	b := testutil.Board(1, 1)
	p1 := testutil.SMD(b, "U1", 1, 1000, 5000)
	p2 := testutil.SMD(b, "U2", 1, 9000, 5000)
	e := NewEngine(b, nil)
	if res, _, _ := e.Route(NewControl(b, 1), []board.ItemID{p1}, []board.ItemID{p2}); res != Routed {
		t.Fatalf("Route = %v", res)
	}
	var g recorder
	e.Draw(&g, 0)
	if g.boxes == 0 || g.lines == 0 {
		t.Errorf("drew %d boxes and %d doors", g.boxes, g.lines)
	}
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		in, want []geom.Point
	}{
		{
			[]geom.Point{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}},
			[]geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}},
		},
		{
			[]geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5}, {X: 10, Y: 10}},
			[]geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}},
		},
		{
			[]geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 4, Y: 0}},
			[]geom.Point{{X: 0, Y: 0}, {X: 4, Y: 0}},
		},
	}
	for _, tt := range tests {
		if got := simplify(tt.in); !cmp.Equal(got, tt.want) {
			t.Errorf("simplify(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
