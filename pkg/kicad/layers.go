package kicad

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/kicadsexp"
)

// copperOrder sorts copper layer names into stack order: F.Cu, In1.Cu,
// In2.Cu, ..., B.Cu. Ordinals differ between KiCad versions, names do not.
func copperOrder(name string) int {
	switch name {
	case "F.Cu":
		return 0
	case "B.Cu":
		return 1 << 20
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "In"), ".Cu"))
	if err != nil {
		return 1 << 19
	}
	return n
}

// parseLayers collects the copper layers of (layers (0 "F.Cu" signal) ...).
// Layers of type power become planes.
func (d *Design) parseLayers(root *kicadsexp.List) ([]board.Layer, error) {
	node, ok := root.Find("layers")
	if !ok {
		return nil, fmt.Errorf("missing (layers)")
	}
	var layers []board.Layer
	for _, l := range node.Lists() {
		name, err := l.Str(1)
		if err != nil {
			return nil, err
		}
		if !strings.HasSuffix(name, ".Cu") {
			continue
		}
		kind, _ := l.Atom(2)
		layers = append(layers, board.Layer{Name: name, Plane: kind == "power"})
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("no copper layers")
	}
	slices.SortStableFunc(layers, func(a, b board.Layer) int {
		return copperOrder(a.Name) - copperOrder(b.Name)
	})
	for i, l := range layers {
		d.layerNames = append(d.layerNames, l.Name)
		d.layerIndex[l.Name] = i
	}
	return layers, nil
}

// layerRange maps KiCad layer names to a copper layer range. Wildcards
// such as "*.Cu" and "F&B.Cu" cover the whole stack.
func (d *Design) layerRange(names []string) (first, last int, ok bool) {
	first, last = len(d.layerNames), -1
	for _, n := range names {
		switch n {
		case "*.Cu", "F&B.Cu":
			return 0, len(d.layerNames) - 1, true
		}
		if i, found := d.layerIndex[n]; found {
			first = min(first, i)
			last = max(last, i)
		}
	}
	return first, last, last >= 0
}

// layersOf reads (layer "X") or (layers "X" "Y") of l.
func (d *Design) layersOf(l *kicadsexp.List) (first, last int, ok bool) {
	if c, found := l.Find("layers"); found {
		return d.layerRange(c.Atoms())
	}
	if c, found := l.Find("layer"); found {
		return d.layerRange(c.Atoms())
	}
	return 0, 0, false
}
