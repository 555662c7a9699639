package autoroute

import (
	"slices"
)

// Graph is the arena owning all regions and connectors. Slots of removed
// regions and connectors are recycled by the next Reset, so IDs held by a
// running search never name a different object.
type Graph struct {
	regions        []*Region
	freeRegions    []RegionID
	connectors     []*Connector
	freeConnectors []ConnectorID
	deadRegions    []RegionID
	deadConnectors []ConnectorID
	dirty          []ConnectorID
	isDirty        map[ConnectorID]bool
	onRemoveRegion func(*Region)
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{isDirty: make(map[ConnectorID]bool)}
}

// NewRegion stores r and returns its ID.
func (g *Graph) NewRegion(r Region) RegionID {
	var id RegionID
	if n := len(g.freeRegions); n > 0 {
		id = g.freeRegions[n-1]
		g.freeRegions = g.freeRegions[:n-1]
	} else {
		id = RegionID(len(g.regions))
		g.regions = append(g.regions, nil)
	}
	r.ID = id
	r.connectors = nil
	g.regions[id] = &r
	return id
}

// Region returns the region with the given ID, nil if it was removed.
func (g *Graph) Region(id RegionID) *Region {
	if id < 0 || int(id) >= len(g.regions) {
		return nil
	}
	return g.regions[id]
}

// Regions returns the IDs of all live regions in ascending order.
func (g *Graph) Regions() []RegionID {
	var out []RegionID
	for i, r := range g.regions {
		if r != nil {
			out = append(out, RegionID(i))
		}
	}
	return out
}

// RegionCount returns the number of live regions.
func (g *Graph) RegionCount() int {
	return len(g.regions) - len(g.freeRegions) - len(g.deadRegions)
}

// Connector returns the connector with the given ID, nil if removed.
func (g *Graph) Connector(id ConnectorID) *Connector {
	if id < 0 || int(id) >= len(g.connectors) {
		return nil
	}
	return g.connectors[id]
}

// Connectors returns a copy of the connector list of region r.
func (g *Graph) Connectors(r RegionID) []ConnectorID {
	reg := g.Region(r)
	if reg == nil {
		return nil
	}
	return slices.Clone(reg.connectors)
}

// ConnectorBetween returns the door between a and b in either direction.
func (g *Graph) ConnectorBetween(a, b RegionID) (ConnectorID, bool) {
	ra := g.Region(a)
	if ra == nil {
		return -1, false
	}
	for _, cid := range ra.connectors {
		c := g.connectors[cid]
		if c.Kind == RoomToRoom && ((c.From == a && c.To == b) || (c.From == b && c.To == a)) {
			return cid, true
		}
	}
	return -1, false
}

// ConnectorExists reports whether a door joins a and b.
func (g *Graph) ConnectorExists(a, b RegionID) bool {
	_, ok := g.ConnectorBetween(a, b)
	return ok
}

// AddConnector stores c and links it to its regions. A door between two
// regions that are already joined is not added; the existing ID and false
// are returned instead.
func (g *Graph) AddConnector(c Connector) (ConnectorID, bool) {
	if c.Kind == RoomToRoom {
		if id, ok := g.ConnectorBetween(c.From, c.To); ok {
			return id, false
		}
	}
	var id ConnectorID
	if n := len(g.freeConnectors); n > 0 {
		id = g.freeConnectors[n-1]
		g.freeConnectors = g.freeConnectors[:n-1]
	} else {
		id = ConnectorID(len(g.connectors))
		g.connectors = append(g.connectors, nil)
	}
	c.ID = id
	g.connectors[id] = &c
	for _, r := range c.regions() {
		if reg := g.Region(r); reg != nil {
			reg.connectors = append(reg.connectors, id)
		}
	}
	return id, true
}

// RemoveConnector unlinks and frees a connector. Removing a via candidate
// invalidates the page that produced it.
func (g *Graph) RemoveConnector(id ConnectorID) {
	c := g.Connector(id)
	if c == nil {
		return
	}
	for _, r := range c.regions() {
		if reg := g.Region(r); reg != nil {
			reg.connectors = slices.DeleteFunc(reg.connectors, func(x ConnectorID) bool { return x == id })
			if c.Kind == RoomToRoom {
				reg.doorsDone = false
			}
		}
	}
	if c.Kind == ViaCandidate {
		if page := g.Region(c.Page); page != nil && page.Page != nil {
			page.Page.valid = false
			page.Page.drills = slices.DeleteFunc(page.Page.drills, func(x ConnectorID) bool { return x == id })
		}
	}
	delete(g.isDirty, id)
	g.connectors[id] = nil
	g.deadConnectors = append(g.deadConnectors, id)
}

// RemoveRegion frees a region together with every connector referencing it.
func (g *Graph) RemoveRegion(id RegionID) {
	r := g.Region(id)
	if r == nil {
		return
	}
	for _, cid := range slices.Clone(r.connectors) {
		g.RemoveConnector(cid)
	}
	if r.Page != nil {
		for _, cid := range slices.Clone(r.Page.drills) {
			g.RemoveConnector(cid)
		}
		r.Page.drills = nil
	}
	if g.onRemoveRegion != nil {
		g.onRemoveRegion(r)
	}
	g.regions[id] = nil
	g.deadRegions = append(g.deadRegions, id)
}

func (g *Graph) markDirty(id ConnectorID) {
	if !g.isDirty[id] {
		g.isDirty[id] = true
		g.dirty = append(g.dirty, id)
	}
}

// ResetRegion clears the search state of every connector incident to r.
func (g *Graph) ResetRegion(r RegionID) {
	reg := g.Region(r)
	if reg == nil {
		return
	}
	for _, cid := range reg.connectors {
		c := g.connectors[cid]
		for i := range c.Sections {
			c.Sections[i].reset()
		}
	}
}

// Reset clears the search state of every connector touched since the last
// reset and recycles the slots of removed objects. The graph structure is
// kept.
func (g *Graph) Reset() {
	g.freeRegions = append(g.freeRegions, g.deadRegions...)
	g.deadRegions = g.deadRegions[:0]
	g.freeConnectors = append(g.freeConnectors, g.deadConnectors...)
	g.deadConnectors = g.deadConnectors[:0]
	for _, id := range g.dirty {
		if c := g.Connector(id); c != nil {
			for i := range c.Sections {
				c.Sections[i].reset()
			}
		}
	}
	g.dirty = g.dirty[:0]
	clear(g.isDirty)
}
