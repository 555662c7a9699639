package render

import (
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
)

// Options selects what DrawBoard paints.
type Options struct {
	Theme Theme
	// Layer limits copper to one layer; -1 draws every layer.
	Layer int
}

// DefaultOptions draws every layer in the classic theme.
func DefaultOptions() Options {
	return Options{Theme: Classic, Layer: -1}
}

// DrawBoard paints the board substrate, keepouts, copper and pads. Lower
// layers are drawn first so the top layer stays visible.
func DrawBoard(c *Canvas, b *board.Board, opts Options) {
	t := opts.Theme
	c.Clear(t.Background)
	c.FillBox(b.Outline, t.Substrate)

	n := b.LayerCount()
	visible := func(it *board.Item, layer int) bool {
		return it.FirstLayer <= layer && layer <= it.LastLayer && (opts.Layer < 0 || opts.Layer == layer)
	}
	items := b.Items()
	for layer := n - 1; layer >= 0; layer-- {
		col := t.CopperColor(layer, n)
		for _, it := range items {
			if !visible(it, layer) {
				continue
			}
			switch it.Kind {
			case board.KindTrace:
				c.DrawLine(it.Start, it.End, it.HalfWidth, col)
			case board.KindKeepout:
				c.FillBox(it.Area, t.Keepout)
			}
		}
	}
	for _, it := range items {
		if opts.Layer >= 0 && !it.OnLayer(opts.Layer) {
			continue
		}
		switch it.Kind {
		case board.KindPin:
			c.FillBox(it.Pad, t.Pad)
		case board.KindVia:
			c.FillCircle(it.Center, it.Radius, t.Via)
		}
	}
}
