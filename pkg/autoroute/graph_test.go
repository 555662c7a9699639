package autoroute

import (
	"math"
	"testing"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

func door(from, to RegionID, seg geom.Box) Connector {
	return Connector{Kind: RoomToRoom, From: from, To: to, Shape: seg, Dimension: geom.DimLine, Sections: splitSegment(seg, 0, 1)}
}

func TestAddConnectorRejectsDuplicateDoor(t *testing.T) {
	g := NewGraph()
	a := g.NewRegion(Region{Kind: FreeSpace, Shape: geom.NewBox(0, 0, 10, 10), Complete: true})
	b := g.NewRegion(Region{Kind: FreeSpace, Shape: geom.NewBox(10, 0, 20, 10), Complete: true})
	seg := geom.NewBox(10, 0, 10, 10)

	id, added := g.AddConnector(door(a, b, seg))
	if !added {
		t.Fatal("first door not added")
	}
	again, added := g.AddConnector(door(b, a, seg))
	if added || again != id {
		t.Errorf("reverse door: got (%d, %v), want (%d, false)", again, added, id)
	}
	if n := len(g.Connectors(a)); n != 1 {
		t.Errorf("region a has %d connectors, want 1", n)
	}
	if !g.ConnectorExists(b, a) {
		t.Error("ConnectorExists(b, a) = false")
	}
}

func TestRemoveRegionRemovesConnectors(t *testing.T) {
	g := NewGraph()
	a := g.NewRegion(Region{Kind: FreeSpace, Shape: geom.NewBox(0, 0, 10, 10)})
	b := g.NewRegion(Region{Kind: FreeSpace, Shape: geom.NewBox(10, 0, 20, 10)})
	c := g.NewRegion(Region{Kind: FreeSpace, Shape: geom.NewBox(0, 10, 10, 20)})
	ab, _ := g.AddConnector(door(a, b, geom.NewBox(10, 0, 10, 10)))
	ac, _ := g.AddConnector(door(a, c, geom.NewBox(0, 10, 10, 10)))

	g.RemoveRegion(a)
	if g.Region(a) != nil {
		t.Fatal("region still present")
	}
	if g.Connector(ab) != nil || g.Connector(ac) != nil {
		t.Error("connectors of removed region still present")
	}
	if len(g.Connectors(b)) != 0 || len(g.Connectors(c)) != 0 {
		t.Error("neighbours still reference removed connectors")
	}
	if got := g.RegionCount(); got != 2 {
		t.Errorf("RegionCount = %d, want 2", got)
	}
	if again, _ := g.AddConnector(door(b, c, geom.NewBox(10, 10, 10, 10))); again == ab || again == ac {
		t.Errorf("connector slot %d reused before reset", again)
	}

	if d := g.NewRegion(Region{Kind: FreeSpace}); d == a {
		t.Errorf("slot %d reused before reset", d)
	}
	g.Reset()
	if d := g.NewRegion(Region{Kind: FreeSpace}); d != a {
		t.Errorf("slot not reused after reset: got %d, want %d", d, a)
	}
}

func TestResetClearsSearchState(t *testing.T) {
	g := NewGraph()
	a := g.NewRegion(Region{Kind: FreeSpace})
	b := g.NewRegion(Region{Kind: FreeSpace})
	id, _ := g.AddConnector(door(a, b, geom.NewBox(0, 0, 0, 10)))
	c := g.Connector(id)
	c.Sections[0].Visited = true
	c.Sections[0].Cost = 3
	g.markDirty(id)

	for i := 0; i < 2; i++ {
		g.Reset()
		s := g.Connector(id).Sections[0]
		if s.Visited || !math.IsInf(s.Cost, 1) {
			t.Fatalf("section after reset = %+v", s)
		}
	}
	if g.RegionCount() != 2 || g.Connector(id) == nil {
		t.Error("reset changed the graph structure")
	}
}

func TestSplitSegment(t *testing.T) {
	tests := []struct {
		seg      geom.Box
		maxLen   int64
		maxCount int
		want     int
	}{
		{geom.NewBox(0, 0, 100, 0), 0, 32, 1},
		{geom.NewBox(0, 0, 100, 0), 30, 32, 4},
		{geom.NewBox(0, 0, 0, 1000), 10, 32, 32},
	}
	for _, tt := range tests {
		secs := splitSegment(tt.seg, tt.maxLen, tt.maxCount)
		if len(secs) != tt.want {
			t.Errorf("splitSegment(%v, %d) = %d sections, want %d", tt.seg, tt.maxLen, len(secs), tt.want)
			continue
		}
		if first, last := secs[0].Shape, secs[len(secs)-1].Shape; first.X1 != tt.seg.X1 || first.Y1 != tt.seg.Y1 || last.X2 != tt.seg.X2 || last.Y2 != tt.seg.Y2 {
			t.Errorf("sections of %v do not span the segment", tt.seg)
		}
	}
}
