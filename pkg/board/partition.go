package board

import (
	"cmp"
	"slices"
)

// partition groups item IDs into connected components using a union-find
// structure with union by rank and path compression.
type partition struct {
	parent map[ItemID]ItemID
	rank   map[ItemID]int
	ids    []ItemID
}

// newPartition creates a partition where every item is its own component.
func newPartition(ids []ItemID) *partition {
	p := &partition{
		parent: make(map[ItemID]ItemID, len(ids)),
		rank:   make(map[ItemID]int, len(ids)),
		ids:    slices.Clone(ids),
	}
	for _, id := range ids {
		p.parent[id] = id
	}
	return p
}

// union merges the components of a and b.
func (p *partition) union(a, b ItemID) {
	ra, rb := p.find(a), p.find(b)
	if ra == rb {
		return
	}
	switch {
	case p.rank[ra] < p.rank[rb]:
		p.parent[ra] = rb
	case p.rank[ra] > p.rank[rb]:
		p.parent[rb] = ra
	default:
		p.parent[rb] = ra
		p.rank[ra]++
	}
}

// find returns the representative of the component containing id.
func (p *partition) find(id ItemID) ItemID {
	root := id
	for p.parent[root] != root {
		root = p.parent[root]
	}
	for id != root {
		next := p.parent[id]
		p.parent[id] = root
		id = next
	}
	return root
}

// groups returns the components, each sorted, ordered by their smallest ID.
func (p *partition) groups() [][]ItemID {
	byRoot := make(map[ItemID][]ItemID)
	var roots []ItemID
	for _, id := range p.ids {
		r := p.find(id)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], id)
	}
	out := make([][]ItemID, 0, len(roots))
	for _, r := range roots {
		g := byRoot[r]
		slices.Sort(g)
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b []ItemID) int { return cmp.Compare(a[0], b[0]) })
	return out
}

// count returns the number of components.
func (p *partition) count() int {
	n := 0
	for _, id := range p.ids {
		if p.find(id) == id {
			n++
		}
	}
	return n
}
