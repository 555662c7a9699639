package board

import (
	"fmt"
	"slices"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

// ItemID identifies an item for the lifetime of a board. IDs are never reused.
type ItemID int64

// Kind distinguishes the item variants.
type Kind int

const (
	KindPin Kind = iota
	KindTrace
	KindVia
	KindKeepout
)

func (k Kind) String() string {
	switch k {
	case KindPin:
		return "pin"
	case KindTrace:
		return "trace"
	case KindVia:
		return "via"
	case KindKeepout:
		return "keepout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FixedState says how strongly an item resists being moved or removed by
// the router. Only Unfixed items may be ripped up.
type FixedState int

const (
	Unfixed FixedState = iota
	ShoveFixed
	UserFixed
	SystemFixed
)

func (f FixedState) String() string {
	switch f {
	case Unfixed:
		return "unfixed"
	case ShoveFixed:
		return "shove_fixed"
	case UserFixed:
		return "user_fixed"
	case SystemFixed:
		return "system_fixed"
	default:
		return fmt.Sprintf("fixed(%d)", int(f))
	}
}

// Item is a board object. Items are immutable once added to a board; a
// change is expressed by removing the item and adding a replacement.
type Item struct {
	ID         ItemID
	Kind       Kind
	Nets       []int // empty for keepouts and unconnected pads
	FirstLayer int
	LastLayer  int
	Class      int // clearance class index into Rules
	Fixed      FixedState

	// Pin
	Component string
	PinName   string
	Pad       geom.Box
	SMD       bool

	// Trace
	Start     geom.Point
	End       geom.Point
	HalfWidth int64

	// Via
	Center geom.Point
	Radius int64

	// Keepout
	Area    geom.Box
	ViaOnly bool // blocks vias but not traces

	shapes []geom.Box
}

// NewPin creates a pad of a component on the given layer range.
func NewPin(component, name string, net int, pad geom.Box, first, last int, smd bool) *Item {
	return &Item{
		Kind:       KindPin,
		Nets:       netList(net),
		FirstLayer: first,
		LastLayer:  last,
		Component:  component,
		PinName:    name,
		Pad:        pad,
		SMD:        smd,
		Fixed:      SystemFixed,
	}
}

// NewTrace creates a trace segment on one layer.
func NewTrace(net, layer int, start, end geom.Point, halfWidth int64, class int, fixed FixedState) *Item {
	return &Item{
		Kind:       KindTrace,
		Nets:       netList(net),
		FirstLayer: layer,
		LastLayer:  layer,
		Class:      class,
		Fixed:      fixed,
		Start:      start,
		End:        end,
		HalfWidth:  halfWidth,
	}
}

// NewVia creates a via spanning first..last.
func NewVia(net int, center geom.Point, radius int64, first, last, class int, fixed FixedState) *Item {
	return &Item{
		Kind:       KindVia,
		Nets:       netList(net),
		FirstLayer: first,
		LastLayer:  last,
		Class:      class,
		Fixed:      fixed,
		Center:     center,
		Radius:     radius,
	}
}

// NewKeepout creates a prohibited area on first..last.
func NewKeepout(area geom.Box, first, last int, viaOnly bool) *Item {
	return &Item{
		Kind:       KindKeepout,
		FirstLayer: first,
		LastLayer:  last,
		Area:       area,
		ViaOnly:    viaOnly,
		Fixed:      SystemFixed,
	}
}

func netList(net int) []int {
	if net <= 0 {
		return nil
	}
	return []int{net}
}

func (it *Item) String() string {
	switch it.Kind {
	case KindPin:
		return fmt.Sprintf("pin %s-%s#%d", it.Component, it.PinName, it.ID)
	case KindTrace:
		return fmt.Sprintf("trace#%d %v-%v L%d", it.ID, it.Start, it.End, it.FirstLayer)
	case KindVia:
		return fmt.Sprintf("via#%d %v", it.ID, it.Center)
	default:
		return fmt.Sprintf("%s#%d", it.Kind, it.ID)
	}
}

// computeShapes fills the per-layer shape boxes. The same boxes apply to
// every layer the item occupies.
func (it *Item) computeShapes() {
	switch it.Kind {
	case KindPin:
		it.shapes = []geom.Box{it.Pad}
	case KindTrace:
		it.shapes = geom.Seg(it.Start, it.End).Stairs(it.HalfWidth)
	case KindVia:
		it.shapes = []geom.Box{geom.BoxAround(it.Center, it.Radius)}
	case KindKeepout:
		it.shapes = []geom.Box{it.Area}
	}
}

// Shapes returns the shape boxes the item occupies on each of its layers.
func (it *Item) Shapes() []geom.Box {
	return it.shapes
}

// Shape returns the shape with the given index.
func (it *Item) Shape(index int) geom.Box {
	return it.shapes[index]
}

// ShapeCount returns the number of shape boxes per layer.
func (it *Item) ShapeCount() int {
	return len(it.shapes)
}

// BoundingBox returns the union of all shapes.
func (it *Item) BoundingBox() geom.Box {
	bb := geom.EmptyBox()
	for _, s := range it.shapes {
		bb = bb.Union(s)
	}
	return bb
}

// OnLayer reports whether the item occupies layer.
func (it *Item) OnLayer(layer int) bool {
	return layer >= it.FirstLayer && layer <= it.LastLayer
}

// HasNet reports whether the item belongs to net.
func (it *Item) HasNet(net int) bool {
	return slices.Contains(it.Nets, net)
}

// SharesNet reports whether both items have a net in common.
func (it *Item) SharesNet(o *Item) bool {
	for _, n := range it.Nets {
		if o.HasNet(n) {
			return true
		}
	}
	return false
}

// NetCount returns the number of nets the item belongs to.
func (it *Item) NetCount() int {
	return len(it.Nets)
}

// IsRoute reports whether the item is a trace or a via.
func (it *Item) IsRoute() bool {
	return it.Kind == KindTrace || it.Kind == KindVia
}

// IsConnectable reports whether the item takes part in net connectivity.
func (it *Item) IsConnectable() bool {
	return it.Kind != KindKeepout && len(it.Nets) > 0
}

// IsRippable reports whether the router may remove the item.
func (it *Item) IsRippable() bool {
	return it.IsRoute() && it.Fixed == Unfixed
}

// Position is the reference point used for ordering items: the start of a
// trace, the centre of a via or pad.
func (it *Item) Position() geom.Point {
	switch it.Kind {
	case KindTrace:
		return it.Start
	case KindVia:
		return it.Center
	case KindPin:
		return it.Pad.Center()
	default:
		return it.Area.Center()
	}
}

// Segment returns the centre line of a trace.
func (it *Item) Segment() geom.Segment {
	return geom.Seg(it.Start, it.End)
}

// Length returns the centre line length of a trace and 0 otherwise.
func (it *Item) Length() float64 {
	if it.Kind != KindTrace {
		return 0
	}
	return it.Segment().Length()
}
