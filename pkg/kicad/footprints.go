package kicad

import (
	"fmt"
	"math"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/kicadsexp"
)

// placement is the (at x y angle) of a footprint in mm.
type placement struct {
	x, y, angle float64
}

// transform maps a footprint relative position to board coordinates.
// Angles are counter clockwise with the y axis pointing down.
func (p placement) transform(x, y float64) (float64, float64) {
	if p.angle != 0 {
		rad := -p.angle * math.Pi / 180
		cos, sin := math.Cos(rad), math.Sin(rad)
		x, y = x*cos-y*sin, x*sin+y*cos
	}
	return x + p.x, y + p.y
}

func parseAt(l *kicadsexp.List) (placement, error) {
	at, ok := l.Find("at")
	if !ok {
		return placement{}, fmt.Errorf("(%s): missing required 'at' position", l.Name())
	}
	x, err := at.Float(1)
	if err != nil {
		return placement{}, err
	}
	y, err := at.Float(2)
	if err != nil {
		return placement{}, err
	}
	angle, _ := at.Float(3)
	return placement{x: x, y: y, angle: angle}, nil
}

// reference returns the reference designator of a footprint.
func reference(fp *kicadsexp.List) string {
	for _, p := range fp.FindAll("property") {
		if key, _ := p.Atom(1); key == "Reference" {
			v, _ := p.Atom(2)
			return v
		}
	}
	for _, t := range fp.FindAll("fp_text") {
		if kind, _ := t.Atom(1); kind == "reference" {
			v, _ := t.Atom(2)
			return v
		}
	}
	return ""
}

func (d *Design) parseFootprints(root *kicadsexp.List) error {
	for _, fp := range append(root.FindAll("footprint"), root.FindAll("module")...) {
		at, err := parseAt(fp)
		if err != nil {
			return err
		}
		ref := reference(fp)
		for _, pad := range fp.FindAll("pad") {
			if err := d.addPad(ref, at, pad); err != nil {
				return fmt.Errorf("footprint %s: %w", ref, err)
			}
		}
	}
	return nil
}

// addPad adds one pad as a pin. Non plated holes become keepouts.
func (d *Design) addPad(ref string, fp placement, pad *kicadsexp.List) error {
	number, err := pad.Str(1)
	if err != nil {
		return fmt.Errorf("failed to parse pad number: %w", err)
	}
	kind, err := pad.Str(2)
	if err != nil {
		return fmt.Errorf("pad %s: failed to parse pad type: %w", number, err)
	}
	at, err := parseAt(pad)
	if err != nil {
		return fmt.Errorf("pad %s: %w", number, err)
	}
	size, ok := pad.Find("size")
	if !ok {
		return fmt.Errorf("pad %s: missing required 'size' field", number)
	}
	w, err := size.Float(1)
	if err != nil {
		return err
	}
	h, err := size.Float(2)
	if err != nil {
		h = w
	}
	first, last, ok := d.layersOf(pad)
	if !ok {
		return nil
	}
	x, y := fp.transform(at.x, at.y)
	box := padBox(x, y, w, h, at.angle)
	switch kind {
	case "np_thru_hole":
		d.Board.Add(board.NewKeepout(box, 0, d.Board.LayerCount()-1, false))
	case "smd", "connect":
		d.Board.Add(board.NewPin(ref, number, netOf(pad), box, first, last, true))
	default:
		d.Board.Add(board.NewPin(ref, number, netOf(pad), box, first, last, false))
	}
	return nil
}

// padBox returns the bounding box of a w by h pad centred at x, y and
// rotated by angle degrees.
func padBox(x, y, w, h, angle float64) geom.Box {
	rad := angle * math.Pi / 180
	cos, sin := math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
	bw := w*cos + h*sin
	bh := w*sin + h*cos
	return geom.NewBox(mm(x-bw/2), mm(y-bh/2), mm(x+bw/2), mm(y+bh/2))
}
