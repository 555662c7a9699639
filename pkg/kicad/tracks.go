package kicad

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/kicadsexp"
)

func fixedState(l *kicadsexp.List) board.FixedState {
	if locked(l) {
		return board.UserFixed
	}
	return board.Unfixed
}

// parseTracks converts segments, arcs and vias. An arc is approximated by
// two segments through its mid point.
func (d *Design) parseTracks(root *kicadsexp.List) error {
	arcs := 0
	for _, l := range root.Lists() {
		var err error
		switch l.Name() {
		case "segment":
			err = d.addSegment(l, "start", "end")
		case "arc":
			arcs++
			if err = d.addSegment(l, "start", "mid"); err == nil {
				err = d.addSegment(l, "mid", "end")
			}
		case "via":
			err = d.addVia(l)
		}
		if err != nil {
			return err
		}
	}
	if arcs > 0 {
		d.logf("[KICAD] approximated %d arcs by straight segments", arcs)
	}
	return nil
}

func (d *Design) addSegment(l *kicadsexp.List, from, to string) error {
	a, err := childPoint(l, from)
	if err != nil {
		return err
	}
	b, err := childPoint(l, to)
	if err != nil {
		return err
	}
	width, err := childFloat(l, "width")
	if err != nil {
		return err
	}
	layer, _, ok := d.layersOf(l)
	if !ok {
		return nil
	}
	net := netOf(l)
	id := d.Board.Add(board.NewTrace(net, layer, a, b, mm(width/2), d.Board.NetClass(net), fixedState(l)))
	if u := uuidOf(l); u != "" && l.Name() == "segment" {
		d.uuids[id] = u
	}
	return nil
}

func (d *Design) addVia(l *kicadsexp.List) error {
	at, err := childPoint(l, "at")
	if err != nil {
		return err
	}
	size, err := childFloat(l, "size")
	if err != nil {
		return err
	}
	first, last, ok := d.layersOf(l)
	if !ok {
		return fmt.Errorf("via at %v: no copper layers", at)
	}
	net := netOf(l)
	id := d.Board.Add(board.NewVia(net, at, mm(size/2), first, last, d.Board.NetClass(net), fixedState(l)))
	if drill, err := childFloat(l, "drill"); err == nil {
		d.drills[id] = mm(drill)
	}
	if u := uuidOf(l); u != "" {
		d.uuids[id] = u
	}
	return nil
}

// parseZones turns rule areas into keepouts. A rule area forbidding tracks
// blocks all copper; one forbidding only vias blocks vias. Copper fills
// are left to KiCad.
func (d *Design) parseZones(root *kicadsexp.List) error {
	for _, z := range root.FindAll("zone") {
		ko, ok := z.Find("keepout")
		if !ok {
			continue
		}
		tracks, vias := notAllowed(ko, "tracks"), notAllowed(ko, "vias")
		if !tracks && !vias {
			continue
		}
		first, last, ok := d.layersOf(z)
		if !ok {
			continue
		}
		area := geom.EmptyBox()
		if poly, ok := z.Find("polygon"); ok {
			if pts, ok := poly.Find("pts"); ok {
				for _, xy := range pts.FindAll("xy") {
					p, err := point(xy)
					if err != nil {
						return err
					}
					area = area.Union(geom.PointBox(p))
				}
			}
		}
		if area.IsEmpty() {
			continue
		}
		d.Board.Add(board.NewKeepout(area, first, last, !tracks))
	}
	return nil
}

func notAllowed(ko *kicadsexp.List, what string) bool {
	c, ok := ko.Find(what)
	if !ok {
		return false
	}
	v, _ := c.Atom(1)
	return v == "not_allowed"
}

// parseOutline returns the bounding box of the Edge.Cuts drawings, or of
// all items inflated by 1 mm when the board has no outline.
func (d *Design) parseOutline(root *kicadsexp.List) (geom.Box, error) {
	box := geom.EmptyBox()
	for _, l := range root.Lists() {
		switch l.Name() {
		case "gr_line", "gr_rect", "gr_arc", "gr_poly", "gr_circle":
		default:
			continue
		}
		layer, ok := l.Find("layer")
		if !ok {
			continue
		}
		if name, _ := layer.Atom(1); name != "Edge.Cuts" {
			continue
		}
		b, err := drawingBox(l)
		if err != nil {
			return geom.Box{}, fmt.Errorf("failed to parse outline: %w", err)
		}
		box = box.Union(b)
	}
	if !box.IsEmpty() {
		return box, nil
	}
	for _, it := range d.Board.Items() {
		box = box.Union(it.BoundingBox())
	}
	if box.IsEmpty() {
		return geom.Box{}, fmt.Errorf("board has neither an outline nor items")
	}
	d.logf("[KICAD] no Edge.Cuts outline, using item bounds")
	return box.Inflate(mm(1)), nil
}

func drawingBox(l *kicadsexp.List) (geom.Box, error) {
	box := geom.EmptyBox()
	if l.Name() == "gr_circle" {
		c, err := childPoint(l, "center")
		if err != nil {
			return box, err
		}
		e, err := childPoint(l, "end")
		if err != nil {
			return box, err
		}
		return geom.BoxAround(c, int64(c.Distance(e)+0.5)), nil
	}
	if pts, ok := l.Find("pts"); ok {
		for _, xy := range pts.FindAll("xy") {
			p, err := point(xy)
			if err != nil {
				return box, err
			}
			box = box.Union(geom.PointBox(p))
		}
		return box, nil
	}
	for _, key := range []string{"start", "mid", "end"} {
		if c, ok := l.Find(key); ok {
			p, err := point(c)
			if err != nil {
				return box, err
			}
			box = box.Union(geom.PointBox(p))
		}
	}
	return box, nil
}
