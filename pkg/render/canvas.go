// Package render draws boards and router state into PNG images.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

// Canvas rasterises board coordinates into an RGBA image. It satisfies the
// autoroute.Graphics interface.
type Canvas struct {
	img   *image.RGBA
	ras   *vector.Rasterizer
	view  geom.Box
	scale float64
}

// NewCanvas creates a canvas width pixels wide showing view. The height
// follows the aspect ratio of view.
func NewCanvas(view geom.Box, width int) *Canvas {
	width = max(width, 1)
	scale := float64(width) / float64(max(view.Width(), 1))
	height := max(int(math.Ceil(float64(view.Height())*scale)), 1)
	return &Canvas{
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
		ras:   vector.NewRasterizer(width, height),
		view:  view,
		scale: scale,
	}
}

// Image returns the drawn image.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Clear fills the whole canvas with col.
func (c *Canvas) Clear(col color.Color) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

// WritePNG encodes the image.
func (c *Canvas) WritePNG(w io.Writer) error {
	return png.Encode(w, c.img)
}

func (c *Canvas) toScreen(x, y float64) (float32, float32) {
	return float32((x - float64(c.view.X1)) * c.scale), float32((y - float64(c.view.Y1)) * c.scale)
}

// fill draws the polygon through pts.
func (c *Canvas) fill(col color.Color, pts ...[2]float64) {
	b := c.img.Bounds()
	c.ras.Reset(b.Dx(), b.Dy())
	c.ras.DrawOp = draw.Over
	for i, p := range pts {
		x, y := c.toScreen(p[0], p[1])
		if i == 0 {
			c.ras.MoveTo(x, y)
		} else {
			c.ras.LineTo(x, y)
		}
	}
	c.ras.ClosePath()
	c.ras.Draw(c.img, b, image.NewUniform(col), image.Point{})
}

// minExtent keeps shapes at least one pixel wide, in board units.
func (c *Canvas) minExtent() float64 {
	return 0.5 / c.scale
}

// FillBox fills a rectangle. Degenerate boxes are drawn one pixel wide.
func (c *Canvas) FillBox(b geom.Box, col color.Color) {
	if b.IsEmpty() {
		return
	}
	x1, y1, x2, y2 := float64(b.X1), float64(b.Y1), float64(b.X2), float64(b.Y2)
	if m := c.minExtent(); x2-x1 < 2*m {
		cx := (x1 + x2) / 2
		x1, x2 = cx-m, cx+m
	}
	if m := c.minExtent(); y2-y1 < 2*m {
		cy := (y1 + y2) / 2
		y1, y2 = cy-m, cy+m
	}
	c.fill(col, [2]float64{x1, y1}, [2]float64{x2, y1}, [2]float64{x2, y2}, [2]float64{x1, y2})
}

// DrawLine draws a segment of the given half width with square ends.
func (c *Canvas) DrawLine(a, b geom.Point, halfWidth int64, col color.Color) {
	hw := max(float64(halfWidth), c.minExtent())
	ax, ay, bx, by := float64(a.X), float64(a.Y), float64(b.X), float64(b.Y)
	dx, dy := bx-ax, by-ay
	l := math.Hypot(dx, dy)
	if l == 0 {
		c.FillBox(geom.BoxAround(a, int64(hw)), col)
		return
	}
	ux, uy := dx/l*hw, dy/l*hw
	c.fill(col,
		[2]float64{ax - ux - uy, ay - uy + ux},
		[2]float64{bx + ux - uy, by + uy + ux},
		[2]float64{bx + ux + uy, by + uy - ux},
		[2]float64{ax - ux + uy, ay - uy - ux},
	)
}

// FillCircle fills a disc approximated by a polygon.
func (c *Canvas) FillCircle(center geom.Point, r int64, col color.Color) {
	const segments = 24
	rad := max(float64(r), c.minExtent())
	pts := make([][2]float64, segments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / segments
		pts[i] = [2]float64{float64(center.X) + rad*math.Cos(a), float64(center.Y) + rad*math.Sin(a)}
	}
	c.fill(col, pts...)
}
