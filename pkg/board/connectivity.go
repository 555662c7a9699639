package board

import (
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

// StopOption controls how far ConnectionClosure follows connections.
type StopOption int

const (
	// StopAtPins follows traces and vias and stops at pins.
	StopAtPins StopOption = iota
	// StopAtVias additionally does not continue past vias that are not
	// part of the start set.
	StopAtVias
)

type netGraph struct {
	gen uint64
	g   *simple.UndirectedGraph
}

// touching reports whether two items share a layer and some shapes touch.
func touching(a, b *Item) bool {
	lo, hi := max(a.FirstLayer, b.FirstLayer), min(a.LastLayer, b.LastLayer)
	if lo > hi {
		return false
	}
	for _, sa := range a.shapes {
		for _, sb := range b.shapes {
			if sa.Touches(sb) {
				return true
			}
		}
	}
	return false
}

// Contacts returns the items sharing a net with id whose copper touches it.
func (b *Board) Contacts(id ItemID) []*Item {
	it := b.items[id]
	if it == nil || !it.IsConnectable() {
		return nil
	}
	seen := map[ItemID]bool{id: true}
	var out []*Item
	for layer := it.FirstLayer; layer <= it.LastLayer; layer++ {
		for _, s := range it.shapes {
			b.Search(layer, s, func(o *Item, _ int) bool {
				if seen[o.ID] || !o.IsConnectable() || !o.SharesNet(it) {
					return true
				}
				if touching(it, o) {
					seen[o.ID] = true
					out = append(out, o)
				}
				return true
			})
		}
	}
	sortByID(out)
	return out
}

// ContactsAt returns the items other than id sharing a net with it whose
// copper on layer contains p.
func (b *Board) ContactsAt(id ItemID, p geom.Point, layer int) []*Item {
	it := b.items[id]
	if it == nil {
		return nil
	}
	seen := make(map[ItemID]bool)
	var out []*Item
	b.Search(layer, geom.PointBox(p), func(o *Item, _ int) bool {
		if o.ID == id || seen[o.ID] || !o.IsConnectable() || !o.SharesNet(it) {
			return true
		}
		seen[o.ID] = true
		out = append(out, o)
		return true
	})
	sortByID(out)
	return out
}

// netGraph returns the contact graph of a net, rebuilt when the net changed.
func (b *Board) netGraph(net int) *simple.UndirectedGraph {
	if ng, ok := b.netGraphs[net]; ok && ng.gen == b.netGen[net] {
		return ng.g
	}
	g := simple.NewUndirectedGraph()
	members := b.NetItems(net)
	for _, it := range members {
		g.AddNode(simple.Node(it.ID))
	}
	for _, it := range members {
		for _, o := range b.Contacts(it.ID) {
			if !o.HasNet(net) || g.HasEdgeBetween(int64(it.ID), int64(o.ID)) {
				continue
			}
			g.SetEdge(simple.Edge{F: simple.Node(it.ID), T: simple.Node(o.ID)})
		}
	}
	b.netGraphs[net] = &netGraph{gen: b.netGen[net], g: g}
	return g
}

// ConnectedSet returns all items of net electrically connected to id,
// including id itself, ordered by ID.
func (b *Board) ConnectedSet(id ItemID, net int) []ItemID {
	g := b.netGraph(net)
	start := g.Node(int64(id))
	if start == nil {
		return nil
	}
	var set []ItemID
	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) { set = append(set, ItemID(n.ID())) },
	}
	bf.Walk(g, start, nil)
	slices.Sort(set)
	return set
}

// UnconnectedSet returns the items of net not connected to id.
func (b *Board) UnconnectedSet(id ItemID, net int) []ItemID {
	connected := b.ConnectedSet(id, net)
	var out []ItemID
	for _, it := range b.NetItems(net) {
		if _, found := slices.BinarySearch(connected, it.ID); !found {
			out = append(out, it.ID)
		}
	}
	return out
}

// ConnectionClosure returns the route items reachable from ids through
// contacts of their nets without passing pins. Pins are never included.
func (b *Board) ConnectionClosure(ids []ItemID, stop StopOption) []ItemID {
	start := make(map[ItemID]bool, len(ids))
	for _, id := range ids {
		start[id] = true
	}
	result := make(map[ItemID]bool)
	for _, id := range ids {
		it := b.items[id]
		if it == nil {
			continue
		}
		if it.Kind != KindPin {
			result[id] = true
		}
		for _, net := range it.Nets {
			g := b.netGraph(net)
			from := g.Node(int64(id))
			if from == nil {
				continue
			}
			bf := traverse.BreadthFirst{
				Traverse: func(e graph.Edge) bool {
					src := b.items[ItemID(e.From().ID())]
					dst := b.items[ItemID(e.To().ID())]
					if dst.Kind == KindPin || src.Kind == KindPin {
						return false
					}
					return !(stop == StopAtVias && src.Kind == KindVia && !start[src.ID])
				},
				Visit: func(n graph.Node) {
					if it := b.items[ItemID(n.ID())]; it.Kind != KindPin {
						result[it.ID] = true
					}
				},
			}
			bf.Walk(g, from, nil)
		}
	}
	out := make([]ItemID, 0, len(result))
	for id := range result {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (b *Board) netPartition(net int) *partition {
	g := b.netGraph(net)
	members := b.NetItems(net)
	ids := make([]ItemID, len(members))
	for i, it := range members {
		ids[i] = it.ID
	}
	p := newPartition(ids)
	edges := g.Edges()
	for edges.Next() {
		e := edges.Edge()
		p.union(ItemID(e.From().ID()), ItemID(e.To().ID()))
	}
	return p
}

// Components returns the connected components of a net.
func (b *Board) Components(net int) [][]ItemID {
	return b.netPartition(net).groups()
}

// UnroutedCount returns the number of missing connections over all nets:
// for every net the number of components minus one.
func (b *Board) UnroutedCount() int {
	total := 0
	for _, net := range b.NetNumbers() {
		if n := b.netPartition(net).count(); n > 1 {
			total += n - 1
		}
	}
	return total
}
