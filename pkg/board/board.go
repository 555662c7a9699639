package board

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/tidwall/rtree"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

// ErrItemNotFound is returned when an item ID does not exist on the board.
var ErrItemNotFound = errors.New("item not found")

// maxChangeLog bounds the number of remembered changes.
const maxChangeLog = 4096

type shapeRef struct {
	ID    ItemID
	Shape int
}

type layerIndex = rtree.RTreeGN[int64, shapeRef]

// Change records the area touched by one add or remove.
type Change struct {
	Area       geom.Box
	FirstLayer int
	LastLayer  int
	Nets       []int
}

type changeRecord struct {
	gen uint64
	Change
}

// Board is the routing board. It is not safe for concurrent use.
type Board struct {
	Layers  []Layer
	Nets    map[int]Net
	Rules   Rules
	Outline geom.Box

	items      map[ItemID]*Item
	netMembers map[int]map[ItemID]*Item
	index      []*layerIndex
	nextID     ItemID
	gen        uint64

	changes []changeRecord
	floor   uint64

	netGen    map[int]uint64
	netGraphs map[int]*netGraph
	tx        *Tx
}

// New creates an empty board.
func New(layers []Layer, outline geom.Box, rules Rules) *Board {
	b := &Board{
		Layers:     layers,
		Nets:       make(map[int]Net),
		Rules:      rules,
		Outline:    outline,
		items:      make(map[ItemID]*Item),
		netMembers: make(map[int]map[ItemID]*Item),
		index:      make([]*layerIndex, len(layers)),
		nextID:     1,
		netGen:     make(map[int]uint64),
		netGraphs:  make(map[int]*netGraph),
	}
	for i := range b.index {
		b.index[i] = &layerIndex{}
	}
	return b
}

// LayerCount returns the number of copper layers.
func (b *Board) LayerCount() int {
	return len(b.Layers)
}

// AddNet registers a net.
func (b *Board) AddNet(n Net) {
	b.Nets[n.Number] = n
}

// NetClass returns the clearance class of a net, 0 if unknown.
func (b *Board) NetClass(net int) int {
	return b.Nets[net].Class
}

// NetName returns the name of a net or a numbered placeholder.
func (b *Board) NetName(net int) string {
	if n, ok := b.Nets[net]; ok && n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("net%d", net)
}

// NetNumbers returns all nets that have at least one item, ascending.
func (b *Board) NetNumbers() []int {
	nets := make([]int, 0, len(b.netMembers))
	for n, m := range b.netMembers {
		if len(m) > 0 {
			nets = append(nets, n)
		}
	}
	slices.Sort(nets)
	return nets
}

// Generation increases with every change of the board contents.
func (b *Board) Generation() uint64 {
	return b.gen
}

// Add inserts an item, assigns its ID and returns it.
func (b *Board) Add(it *Item) ItemID {
	it.ID = b.nextID
	b.nextID++
	it.computeShapes()
	b.items[it.ID] = it
	for _, n := range it.Nets {
		m := b.netMembers[n]
		if m == nil {
			m = make(map[ItemID]*Item)
			b.netMembers[n] = m
		}
		m[it.ID] = it
	}
	for layer := it.FirstLayer; layer <= it.LastLayer; layer++ {
		if layer < 0 || layer >= len(b.index) {
			continue
		}
		for i, s := range it.shapes {
			b.index[layer].Insert([2]int64{s.X1, s.Y1}, [2]int64{s.X2, s.Y2}, shapeRef{ID: it.ID, Shape: i})
		}
	}
	b.touch(it)
	return it.ID
}

// Remove deletes an item.
func (b *Board) Remove(id ItemID) error {
	it, ok := b.items[id]
	if !ok {
		return fmt.Errorf("remove %d: %w", id, ErrItemNotFound)
	}
	delete(b.items, id)
	for _, n := range it.Nets {
		delete(b.netMembers[n], id)
	}
	for layer := it.FirstLayer; layer <= it.LastLayer; layer++ {
		if layer < 0 || layer >= len(b.index) {
			continue
		}
		for i, s := range it.shapes {
			b.index[layer].Delete([2]int64{s.X1, s.Y1}, [2]int64{s.X2, s.Y2}, shapeRef{ID: id, Shape: i})
		}
	}
	b.touch(it)
	return nil
}

func (b *Board) touch(it *Item) {
	b.gen++
	for _, n := range it.Nets {
		b.netGen[n]++
	}
	b.changes = append(b.changes, changeRecord{
		gen: b.gen,
		Change: Change{
			Area:       it.BoundingBox(),
			FirstLayer: it.FirstLayer,
			LastLayer:  it.LastLayer,
			Nets:       it.Nets,
		},
	})
	if len(b.changes) > maxChangeLog {
		drop := len(b.changes) - maxChangeLog/2
		b.floor = b.changes[drop-1].gen
		b.changes = slices.Clone(b.changes[drop:])
	}
}

// ChangesSince returns the changes made after generation gen. When the
// history no longer reaches back that far (or a rollback happened in
// between) ok is false and the caller must assume everything changed.
func (b *Board) ChangesSince(gen uint64) (changes []Change, ok bool) {
	if gen < b.floor {
		return nil, false
	}
	i, _ := slices.BinarySearchFunc(b.changes, gen+1, func(r changeRecord, g uint64) int {
		switch {
		case r.gen < g:
			return -1
		case r.gen > g:
			return 1
		}
		return 0
	})
	for _, r := range b.changes[i:] {
		changes = append(changes, r.Change)
	}
	return changes, true
}

// Item returns the item with the given ID or nil.
func (b *Board) Item(id ItemID) *Item {
	return b.items[id]
}

// ItemCount returns the number of items on the board.
func (b *Board) ItemCount() int {
	return len(b.items)
}

// Items returns all items ordered by ID.
func (b *Board) Items() []*Item {
	out := make([]*Item, 0, len(b.items))
	for _, it := range b.items {
		out = append(out, it)
	}
	sortByID(out)
	return out
}

// ItemsOfKind returns all items of a kind ordered by ID.
func (b *Board) ItemsOfKind(k Kind) []*Item {
	var out []*Item
	for _, it := range b.items {
		if it.Kind == k {
			out = append(out, it)
		}
	}
	sortByID(out)
	return out
}

// NetItems returns the connectable items of a net ordered by ID.
func (b *Board) NetItems(net int) []*Item {
	m := b.netMembers[net]
	out := make([]*Item, 0, len(m))
	for _, it := range m {
		out = append(out, it)
	}
	sortByID(out)
	return out
}

// ConnectableItemCount returns the number of items belonging to net.
func (b *Board) ConnectableItemCount(net int) int {
	return len(b.netMembers[net])
}

// Search calls fn for every item shape on layer touching area (closed
// intersection). Returning false stops the search.
func (b *Board) Search(layer int, area geom.Box, fn func(it *Item, shape int) bool) {
	if layer < 0 || layer >= len(b.index) {
		return
	}
	b.index[layer].Search([2]int64{area.X1, area.Y1}, [2]int64{area.X2, area.Y2},
		func(_, _ [2]int64, ref shapeRef) bool {
			return fn(b.items[ref.ID], ref.Shape)
		})
}

// ViaCount returns the number of vias.
func (b *Board) ViaCount() int {
	n := 0
	for _, it := range b.items {
		if it.Kind == KindVia {
			n++
		}
	}
	return n
}

// TraceCount returns the number of trace segments.
func (b *Board) TraceCount() int {
	n := 0
	for _, it := range b.items {
		if it.Kind == KindTrace {
			n++
		}
	}
	return n
}

func sortByID(items []*Item) {
	slices.SortFunc(items, func(a, b *Item) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

// OverlappingItems returns the items whose copper on layer overlaps area.
func (b *Board) OverlappingItems(layer int, area geom.Box) []*Item {
	seen := make(map[ItemID]bool)
	var out []*Item
	b.Search(layer, area, func(it *Item, idx int) bool {
		if !seen[it.ID] && it.Shape(idx).Overlaps(area) {
			seen[it.ID] = true
			out = append(out, it)
		}
		return true
	})
	sortByID(out)
	return out
}

// FindOverlapObjects returns the items on layer that are obstacles for
// traces of net and whose shape, grown by the clearance to class, overlaps
// area.
func (b *Board) FindOverlapObjects(layer int, area geom.Box, net, class int) []*Item {
	seen := make(map[ItemID]bool)
	var out []*Item
	b.Search(layer, area.Inflate(b.Rules.MaxClearance()), func(it *Item, idx int) bool {
		if seen[it.ID] || !Obstructs(it, net, false) {
			return true
		}
		if it.Shape(idx).Inflate(b.ObstacleInflation(it, class, 0)).Overlaps(area) {
			seen[it.ID] = true
			out = append(out, it)
		}
		return true
	})
	sortByID(out)
	return out
}

// AddPin adds a pad and returns its ID.
func (b *Board) AddPin(component, name string, net int, pad geom.Box, first, last int, smd bool) ItemID {
	return b.Add(NewPin(component, name, net, pad, first, last, smd))
}

// AddTrace adds an unfixed trace with the half width of the net's class.
func (b *Board) AddTrace(net, layer int, start, end geom.Point) ItemID {
	class := b.NetClass(net)
	return b.Add(NewTrace(net, layer, start, end, b.Rules.HalfWidth(class), class, Unfixed))
}

// AddVia adds an unfixed through via with the radius of the net's class.
func (b *Board) AddVia(net int, center geom.Point) ItemID {
	class := b.NetClass(net)
	return b.Add(NewVia(net, center, b.Rules.ViaRadiusOf(class), 0, len(b.Layers)-1, class, Unfixed))
}

// AddKeepout adds a keepout area on first..last.
func (b *Board) AddKeepout(area geom.Box, first, last int, viaOnly bool) ItemID {
	return b.Add(NewKeepout(area, first, last, viaOnly))
}
