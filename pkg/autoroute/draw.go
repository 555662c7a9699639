package autoroute

import (
	"image/color"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

// Graphics is the drawing surface used by the progress and debug hooks.
type Graphics interface {
	FillBox(b geom.Box, c color.Color)
	DrawLine(a, b geom.Point, halfWidth int64, c color.Color)
}

var (
	freeColor     = color.NRGBA{R: 0x40, G: 0xc0, B: 0x40, A: 0x30}
	obstacleColor = color.NRGBA{R: 0xc0, G: 0x40, B: 0x40, A: 0x30}
	doorColor     = color.NRGBA{R: 0xff, G: 0xff, B: 0x00, A: 0xa0}
)

// Draw paints the completed regions of layer and their doors.
func (e *Engine) Draw(g Graphics, layer int) {
	for _, id := range e.graph.Regions() {
		r := e.graph.Region(id)
		if r.Layer != layer || !r.Complete || r.blocked || r.Kind == ViaPage {
			continue
		}
		if r.Kind == Obstacle {
			g.FillBox(r.Shape, obstacleColor)
		} else {
			g.FillBox(r.Shape, freeColor)
		}
		for _, cid := range r.connectors {
			c := e.graph.Connector(cid)
			if c.Kind == RoomToRoom && c.Dimension == geom.DimLine && c.From == id {
				g.DrawLine(geom.Pt(c.Shape.X1, c.Shape.Y1), geom.Pt(c.Shape.X2, c.Shape.Y2), 0, doorColor)
			}
		}
	}
}
