package autoroute

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

// RegionID indexes a region in the graph arena.
type RegionID int32

// NoRegion is the invalid region ID.
const NoRegion RegionID = -1

// RegionKind distinguishes the region variants.
type RegionKind uint8

const (
	FreeSpace RegionKind = iota
	Obstacle
	ViaPage
)

func (k RegionKind) String() string {
	switch k {
	case FreeSpace:
		return "free"
	case Obstacle:
		return "obstacle"
	default:
		return "via-page"
	}
}

// Region is a rectangular search graph node on one layer.
//
// An incomplete FreeSpace region only knows a seed shape it must contain;
// completion replaces Shape by the maximal obstacle free rectangle grown
// around the seed. An Obstacle region is the inflated shape of one board
// item shape. A ViaPage region tiles the board for via candidates.
type Region struct {
	ID       RegionID
	Kind     RegionKind
	Shape    geom.Box
	Layer    int
	Complete bool

	// NetDependent is set when completion ignored items of Net; the region
	// is only valid while routing Net.
	NetDependent bool
	Net          int

	// Obstacle payload.
	Item       board.ItemID
	ShapeIndex int

	// ViaPage payload.
	Page    *DrillPage
	pageKey int

	connectors []ConnectorID
	doorsDone  bool
	blocked    bool
}

// DimensionOfOverlap classifies how the region meets another one.
func (r *Region) DimensionOfOverlap(o *Region) geom.Dimension {
	if r.Layer != o.Layer {
		return geom.DimNone
	}
	return geom.OverlapDimension(r.Shape, o.Shape)
}

// Connectors returns the incident connectors in insertion order.
func (r *Region) Connectors() []ConnectorID {
	return r.connectors
}

// DrillPage is the payload of a ViaPage region: the via candidates last
// computed for the page and the net they were computed for.
type DrillPage struct {
	drills []ConnectorID
	net    int
	valid  bool
}

// ConnectorID indexes a connector in the graph arena.
type ConnectorID int32

// ConnectorKind distinguishes the connector variants.
type ConnectorKind uint8

const (
	RoomToRoom ConnectorKind = iota
	Terminal
	ViaCandidate
)

func (k ConnectorKind) String() string {
	switch k {
	case RoomToRoom:
		return "door"
	case Terminal:
		return "terminal"
	default:
		return "drill"
	}
}

// Section is an independently searchable part of a connector.
type Section struct {
	Shape   geom.Box
	Visited bool
	Cost    float64
}

func (s *Section) reset() {
	s.Visited = false
	s.Cost = math.Inf(1)
}

// Connector is a graph edge: a door between two regions, a terminal
// linking a region to a start or destination item, or a via candidate
// linking one region per layer at a location.
type Connector struct {
	ID       ConnectorID
	Kind     ConnectorKind
	Shape    geom.Box
	Sections []Section

	// RoomToRoom
	From, To  RegionID
	Dimension geom.Dimension

	// Terminal
	Region      RegionID
	Item        board.ItemID
	Destination bool

	// ViaCandidate
	Location   geom.Point
	FirstLayer int
	LastLayer  int
	Rooms      []RegionID
	Page       RegionID
}

// Other returns the region on the far side of a door.
func (c *Connector) Other(r RegionID) RegionID {
	if c.From == r {
		return c.To
	}
	return c.From
}

// RoomOnLayer returns the region of a via candidate on layer.
func (c *Connector) RoomOnLayer(layer int) RegionID {
	if layer < c.FirstLayer || layer > c.LastLayer {
		return NoRegion
	}
	return c.Rooms[layer-c.FirstLayer]
}

func (c *Connector) regions() []RegionID {
	switch c.Kind {
	case RoomToRoom:
		return []RegionID{c.From, c.To}
	case Terminal:
		return []RegionID{c.Region}
	default:
		return c.Rooms
	}
}

// splitSegment cuts a degenerate door box into sections of at most maxLen.
func splitSegment(seg geom.Box, maxLen int64, maxCount int) []Section {
	length := max(seg.Width(), seg.Height())
	n := 1
	if maxLen > 0 && length > maxLen {
		n = int((length + maxLen - 1) / maxLen)
	}
	n = min(n, maxCount)
	secs := make([]Section, n)
	for i := range secs {
		var s geom.Box
		if seg.Width() >= seg.Height() {
			s = geom.Box{X1: seg.X1 + seg.Width()*int64(i)/int64(n), Y1: seg.Y1, X2: seg.X1 + seg.Width()*int64(i+1)/int64(n), Y2: seg.Y2}
		} else {
			s = geom.Box{X1: seg.X1, Y1: seg.Y1 + seg.Height()*int64(i)/int64(n), X2: seg.X2, Y2: seg.Y1 + seg.Height()*int64(i+1)/int64(n)}
		}
		secs[i] = Section{Shape: s}
		secs[i].reset()
	}
	return secs
}
