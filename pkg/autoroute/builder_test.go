package autoroute

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/OpenTraceLab/OpenTraceRoute/internal/testutil"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

func TestRoomAvoidsObstacles(t *testing.T) {
	b := testutil.Board(1, 2)
	b.Add(board.NewTrace(2, 0, geom.Pt(3000, 2000), geom.Pt(3000, 8000), 50, 0, board.Unfixed))
	e := NewEngine(b, nil)
	e.Builder().BeginConnection(NewControl(b, 1))

	id := e.Builder().RoomAt(geom.Pt(1000, 5000), 0)
	if id == NoRegion {
		t.Fatal("no room at free point")
	}
	r := e.Graph().Region(id)
	if !r.Complete || !r.Shape.Contains(geom.Pt(1000, 5000)) {
		t.Fatalf("room %v does not hold its seed", r.Shape)
	}
	blocked := geom.NewBox(2950, 1950, 3050, 8050).Inflate(100)
	if r.Shape.Overlaps(blocked) {
		t.Errorf("room %v overlaps obstacle %v", r.Shape, blocked)
	}
	if again := e.Builder().RoomAt(geom.Pt(1200, 5000), 0); again != id {
		t.Errorf("second lookup = %d, want %d", again, id)
	}
	if got := e.Builder().RoomAt(geom.Pt(3000, 5000), 0); got != NoRegion {
		t.Errorf("RoomAt inside obstacle = %d, want none", got)
	}
}

func TestBoardChangeInvalidatesRooms(t *testing.T) {
	b := testutil.Board(1, 2)
	e := NewEngine(b, nil)
	ctl := NewControl(b, 1)
	e.Builder().BeginConnection(ctl)
	id := e.Builder().RoomAt(geom.Pt(1000, 5000), 0)
	if id == NoRegion {
		t.Fatal("no room on empty board")
	}

	b.Add(board.NewTrace(2, 0, geom.Pt(1000, 4000), geom.Pt(1000, 6000), 50, 0, board.Unfixed))
	e.Builder().BeginConnection(ctl)
	if e.Graph().Region(id) != nil {
		t.Error("room survived a board change inside it")
	}
	id = e.Builder().RoomAt(geom.Pt(500, 5000), 0)
	if id == NoRegion {
		t.Fatal("no room beside new trace")
	}
	if r := e.Graph().Region(id); r.Shape.Overlaps(geom.NewBox(850, 3850, 1150, 6150)) {
		t.Errorf("rebuilt room %v overlaps the new trace", r.Shape)
	}
}

// seedsOn returns the incomplete rooms hanging off id whose door lies on
// the closed box side.
func seedsOn(g *Graph, id RegionID, side geom.Box) []RegionID {
	var out []RegionID
	for _, cid := range g.Connectors(id) {
		c := g.Connector(cid)
		if c.Kind != RoomToRoom {
			continue
		}
		if q := g.Region(c.Other(id)); !q.Complete && segmentLength(q.Shape.Intersection(side)) > 0 {
			out = append(out, q.ID)
		}
	}
	return out
}

func TestLateNeighbourGetsDoor(t *testing.T) {
	b := testutil.Board(1, 1)
	e := NewEngine(b, nil)
	bl := e.Builder()
	bl.BeginConnection(NewControl(b, 1))

	a := bl.RoomAt(geom.Pt(1000, 5000), 0)
	bl.EnsureDoors(a)
	if got := e.Graph().Region(a).Shape; got != geom.NewBox(50, 50, 7000, 9950) {
		t.Fatalf("room a = %v", got)
	}
	c := bl.RoomAt(geom.Pt(7500, 5000), 0)
	if c == NoRegion || c == a {
		t.Fatalf("RoomAt beside a = %d", c)
	}
	if got := e.Graph().Region(c).Shape; got != geom.NewBox(7000, 50, 9950, 9950) {
		t.Fatalf("room c = %v", got)
	}
	if !e.Graph().ConnectorExists(a, c) {
		t.Error("no door between a and the room built after its edge scan")
	}
	if seeds := seedsOn(e.Graph(), a, e.Graph().Region(c).Shape); len(seeds) != 0 {
		t.Errorf("seeds %v left on the side shared with c", seeds)
	}
}

func TestLateNeighbourSplitsSeed(t *testing.T) {
	b := testutil.Board(1, 1)
	e := NewEngine(b, nil)
	g := e.Graph()
	bl := e.Builder()
	bl.BeginConnection(NewControl(b, 1))

	a := bl.RoomAt(geom.Pt(1000, 5000), 0)
	bl.EnsureDoors(a)
	c := bl.RoomAt(geom.Pt(7500, 1000), 0)
	if got := g.Region(c).Shape; got != geom.NewBox(7000, 50, 9950, 7000) {
		t.Fatalf("room c = %v", got)
	}
	if !g.ConnectorExists(a, c) {
		t.Fatal("no door between a and c")
	}
	seeds := seedsOn(g, a, geom.NewBox(7000, 50, 7000, 9950))
	if len(seeds) != 1 {
		t.Fatalf("seeds on the right side of a = %v, want one", seeds)
	}
	if got := g.Region(seeds[0]).Shape; got != geom.NewBox(7000, 7000, 7000, 9950) {
		t.Errorf("remaining seed = %v", got)
	}

	done := bl.Complete(seeds[0])
	if len(done) != 1 {
		t.Fatal("remaining seed did not complete")
	}
	d := done[0]
	if got := g.Region(d).Shape; got != geom.NewBox(7000, 7000, 9950, 9950) {
		t.Errorf("room d = %v", got)
	}
	if !g.ConnectorExists(a, d) || !g.ConnectorExists(c, d) {
		t.Errorf("room d doors: a %v, c %v", g.ConnectorExists(a, d), g.ConnectorExists(c, d))
	}
}

func TestOverlapDoors(t *testing.T) {
	b := testutil.Board(1, 3)
	diag := b.Add(board.NewTrace(1, 0, geom.Pt(2000, 2000), geom.Pt(4000, 4000), 50, 0, board.Unfixed))
	branch := b.Add(board.NewTrace(1, 0, geom.Pt(3000, 3000), geom.Pt(3000, 5000), 50, 0, board.Unfixed))
	foreign := b.Add(board.NewTrace(3, 0, geom.Pt(2000, 3000), geom.Pt(4000, 3000), 50, 0, board.Unfixed))
	if n := b.Item(diag).ShapeCount(); n < 10 {
		t.Fatalf("diagonal trace has %d shapes", n)
	}
	e := NewEngine(b, nil)
	g := e.Graph()
	bl := e.Builder()
	bl.BeginConnection(NewControl(b, 2))

	room := bl.ObstacleRoom(b.Item(diag), 7, 0)
	bl.EnsureDoors(room)

	type end struct {
		Item  board.ItemID
		Shape int
	}
	var got []end
	for _, cid := range g.Connectors(room) {
		c := g.Connector(cid)
		if c.Kind != RoomToRoom || c.Dimension != geom.DimArea {
			continue
		}
		o := g.Region(c.Other(room))
		if o.Item == foreign {
			t.Errorf("area door to the foreign net trace")
		}
		got = append(got, end{o.Item, o.ShapeIndex})
	}
	slices.SortFunc(got, func(a, b end) int {
		if a.Item != b.Item {
			return int(a.Item - b.Item)
		}
		return a.Shape - b.Shape
	})
	want := []end{{diag, 6}, {diag, 8}, {branch, 0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("area doors (-want +got):\n%s", diff)
	}
}

func TestDoorsAreNotDuplicated(t *testing.T) {
	b := testutil.Board(1, 1)
	e := NewEngine(b, nil)
	e.Builder().BeginConnection(NewControl(b, 1))
	id := e.Builder().RoomAt(geom.Pt(1000, 1000), 0)
	e.Builder().EnsureDoors(id)
	doors := e.Graph().Connectors(id)
	if len(doors) == 0 {
		t.Fatal("room has no doors")
	}
	for _, cid := range doors {
		c := e.Graph().Connector(cid)
		e.Builder().Complete(c.Other(id))
		e.Builder().EnsureDoors(c.Other(id))
	}
	seen := make(map[[2]RegionID]bool)
	for _, rid := range e.Graph().Regions() {
		for _, cid := range e.Graph().Connectors(rid) {
			c := e.Graph().Connector(cid)
			if c.Kind != RoomToRoom {
				continue
			}
			k := [2]RegionID{min(c.From, c.To), max(c.From, c.To)}
			if c.From == rid {
				if seen[k] {
					t.Errorf("duplicate door between %d and %d", k[0], k[1])
				}
				seen[k] = true
			}
		}
	}
}

func drillLocations(g *Graph, ids []ConnectorID) []geom.Point {
	var out []geom.Point
	for _, id := range ids {
		out = append(out, g.Connector(id).Location)
	}
	return out
}

func TestDrillCachePerNet(t *testing.T) {
	b := testutil.Board(2, 2)
	pin := geom.Pt(4500, 4500)
	testutil.THT(b, "J1", 1, pin.X, pin.Y)
	b.Add(board.NewTrace(1, 0, geom.Pt(4500, 4500), geom.Pt(4500, 3000), 50, 0, board.Unfixed))
	b.Add(board.NewTrace(2, 0, geom.Pt(3000, 5500), geom.Pt(6000, 5500), 50, 0, board.Unfixed))
	e := NewEngine(b, nil)
	g := e.Graph()
	bl := e.Builder()
	bl.BeginConnection(NewControl(b, 1))

	pages := bl.PagesTouching(geom.PointBox(pin))
	if len(pages) != 1 {
		t.Fatalf("pages at %v = %v, want one", pin, pages)
	}
	page := pages[0]
	first := bl.GetDrills(page)
	if len(first) == 0 {
		t.Fatal("page has no via candidates for net 1")
	}
	again := bl.GetDrills(page)
	if len(again) != len(first) || &again[0] != &first[0] {
		t.Errorf("second call for net 1 did not return the cached candidates")
	}
	net1 := drillLocations(g, first)
	if !slices.Contains(net1, pin) {
		t.Errorf("net 1 candidates %v miss the own pin centre %v", net1, pin)
	}

	bl.BeginConnection(NewControl(b, 2))
	drills := bl.GetDrills(page)
	if got := g.Region(page).Page.net; got != 2 {
		t.Errorf("page net = %d, want 2", got)
	}
	for _, id := range first {
		if g.Connector(id) != nil {
			t.Errorf("net 1 candidate %d survived the recompute", id)
		}
	}
	net2 := drillLocations(g, drills)
	if slices.Contains(net2, pin) {
		t.Errorf("net 2 candidate placed on the net 1 pin at %v", pin)
	}
	if cmp.Equal(net1, net2) {
		t.Errorf("candidates did not change with the net: %v", net2)
	}
	for _, id := range drills {
		c := g.Connector(id)
		if c.Kind != ViaCandidate {
			t.Fatalf("drill %d is %v", id, c.Kind)
		}
		for layer := 0; layer < 2; layer++ {
			if c.RoomOnLayer(layer) == NoRegion {
				t.Errorf("drill %d has no room on layer %d", id, layer)
			}
		}
	}
}

func TestCutAway(t *testing.T) {
	full := geom.NewBox(0, 0, 100, 100)
	seed := geom.NewBox(50, 20, 50, 80)
	tests := []struct {
		name string
		box  geom.Box
		o    geom.Box
		want geom.Box
		ok   bool
	}{
		{"left of seed", full, geom.NewBox(0, 0, 50, 100), geom.NewBox(50, 0, 100, 100), true},
		{"right of seed", full, geom.NewBox(50, 0, 100, 100), geom.NewBox(0, 0, 50, 100), true},
		{"flush on both sides", geom.NewBox(50, 0, 100, 100), geom.NewBox(50, 0, 100, 100), geom.Box{}, false},
		{"above seed", full, geom.NewBox(0, 90, 100, 100), geom.NewBox(0, 0, 100, 90), true},
		{"corner right above", full, geom.NewBox(50, 80, 100, 100), geom.NewBox(0, 0, 100, 80), true},
		{"covers seed", full, geom.NewBox(40, 40, 60, 60), geom.Box{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cutAway(tt.box, tt.o, seed)
			if ok != tt.ok || got != tt.want {
				t.Errorf("cutAway = %v, %v; want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
