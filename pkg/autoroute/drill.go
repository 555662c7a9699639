package autoroute

import (
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

// PagesTouching returns the via pages touching area, creating them lazily.
func (bl *Builder) PagesTouching(area geom.Box) []RegionID {
	o := bl.board.Outline
	area = area.Intersection(o)
	if area.IsEmpty() {
		return nil
	}
	px1 := int((area.X1 - o.X1) / bl.pageSize)
	px2 := int((area.X2 - o.X1) / bl.pageSize)
	py1 := int((area.Y1 - o.Y1) / bl.pageSize)
	py2 := int((area.Y2 - o.Y1) / bl.pageSize)
	var out []RegionID
	for py := py1; py <= py2; py++ {
		for px := px1; px <= px2; px++ {
			if id := bl.page(px, py); id != NoRegion {
				out = append(out, id)
			}
		}
	}
	return out
}

func (bl *Builder) page(px, py int) RegionID {
	key := py*bl.pageCols + px
	if id, ok := bl.pages[key]; ok {
		return id
	}
	o := bl.board.Outline
	box := geom.Box{
		X1: o.X1 + int64(px)*bl.pageSize,
		Y1: o.Y1 + int64(py)*bl.pageSize,
		X2: min(o.X1+int64(px+1)*bl.pageSize, o.X2),
		Y2: min(o.Y1+int64(py+1)*bl.pageSize, o.Y2),
	}
	if box.IsDegenerate() {
		return NoRegion
	}
	id := bl.graph.NewRegion(Region{
		Kind:     ViaPage,
		Shape:    box,
		Complete: true,
		Page:     &DrillPage{},
		pageKey:  key,
	})
	bl.pages[key] = id
	return id
}

// GetDrills returns the via candidates of a page for the current net.
// Candidates computed for the same net are returned from the cache; a
// different net recomputes them.
func (bl *Builder) GetDrills(page RegionID) []ConnectorID {
	r := bl.graph.Region(page)
	if r == nil || r.Page == nil {
		return nil
	}
	p := r.Page
	if p.valid && p.net == bl.ctl.Net {
		return p.drills
	}
	old := p.drills
	p.drills = nil
	for _, cid := range old {
		bl.graph.RemoveConnector(cid)
	}
	p.drills = bl.computeDrills(r)
	p.net = bl.ctl.Net
	p.valid = true
	return p.drills
}

func (bl *Builder) computeDrills(page *Region) []ConnectorID {
	ctl := bl.ctl
	if !ctl.ViasAllowed || bl.board.LayerCount() < 2 {
		return nil
	}
	area := page.Shape.Intersection(bl.board.Outline.Inflate(-ctl.ViaRadius))
	if area.IsDegenerate() {
		return nil
	}
	last := bl.board.LayerCount() - 1
	var holes []geom.Box
	var pinCenters []geom.Point
	seen := make(map[board.ItemID]bool)
	for layer := 0; layer <= last; layer++ {
		bl.board.Search(layer, area.Inflate(bl.maxInflation), func(it *board.Item, idx int) bool {
			own := !board.Obstructs(it, ctl.Net, true)
			switch {
			case own && it.Kind == board.KindPin && it.SMD && !ctl.SMDDrillable:
				holes = append(holes, it.Shape(idx).Inflate(ctl.ViaRadius))
			case own:
				if it.Kind == board.KindPin && !seen[it.ID] && (it.OnLayer(0) || it.OnLayer(last)) {
					pinCenters = append(pinCenters, it.Pad.Center())
				}
			default:
				holes = append(holes, it.Shape(idx).Inflate(bl.inflation(it, ctl.ViaRadius)))
			}
			seen[it.ID] = true
			return true
		})
	}
	var drills []ConnectorID
	for _, piece := range geom.Subtract(area, holes) {
		loc, found := geom.Point{}, false
		for _, c := range pinCenters {
			if piece.Contains(c) {
				loc, found = c, true
				break
			}
		}
		if !found {
			loc = piece.Center().RoundToGrid(ctl.Grid)
			if !piece.Contains(loc) {
				loc = piece.Center()
			}
		}
		rooms := make([]RegionID, last+1)
		ok := true
		for layer := 0; layer <= last; layer++ {
			rooms[layer] = bl.RoomAt(loc, layer)
			if rooms[layer] == NoRegion {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		secs := make([]Section, last+1)
		for i := range secs {
			secs[i] = Section{Shape: geom.PointBox(loc)}
			secs[i].reset()
		}
		id, _ := bl.graph.AddConnector(Connector{
			Kind:       ViaCandidate,
			Shape:      geom.PointBox(loc),
			Sections:   secs,
			Location:   loc,
			FirstLayer: 0,
			LastLayer:  last,
			Rooms:      rooms,
			Page:       page.ID,
		})
		drills = append(drills, id)
	}
	return drills
}

// EnsureDrills makes sure the via candidates of every page touching the
// region are computed for the current net.
func (bl *Builder) EnsureDrills(id RegionID) {
	r := bl.graph.Region(id)
	if r == nil || r.Kind != FreeSpace || !r.Complete {
		return
	}
	for _, page := range bl.PagesTouching(r.Shape) {
		bl.GetDrills(page)
	}
}
