package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/OpenTraceLab/OpenTraceRoute/internal/testutil"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

func TestCanvasSize(t *testing.T) {
	tests := []struct {
		name         string
		view         geom.Box
		width        int
		wantW, wantH int
	}{
		{"square", geom.NewBox(0, 0, 1000, 1000), 100, 100, 100},
		{"wide", geom.NewBox(0, 0, 2000, 500), 200, 200, 50},
		{"degenerate", geom.NewBox(0, 0, 0, 0), 0, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewCanvas(tt.view, tt.width).Image().Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestFillBox(t *testing.T) {
	c := NewCanvas(geom.NewBox(0, 0, 1000, 1000), 100)
	red := color.RGBA{R: 255, A: 255}
	c.FillBox(geom.NewBox(100, 100, 500, 500), red)
	if got := c.Image().RGBAAt(30, 30); got != red {
		t.Errorf("inside pixel = %v, want %v", got, red)
	}
	if got := c.Image().RGBAAt(70, 70); got.A != 0 {
		t.Errorf("outside pixel = %v, want transparent", got)
	}
}

func TestDrawLine(t *testing.T) {
	c := NewCanvas(geom.NewBox(0, 0, 1000, 1000), 100)
	blue := color.RGBA{B: 255, A: 255}
	c.DrawLine(geom.Pt(100, 500), geom.Pt(900, 500), 50, blue)
	if got := c.Image().RGBAAt(50, 50); got != blue {
		t.Errorf("on line pixel = %v, want %v", got, blue)
	}
	if got := c.Image().RGBAAt(50, 20); got.A != 0 {
		t.Errorf("off line pixel = %v, want transparent", got)
	}
	// Zero width still leaves a visible mark.
	c.DrawLine(geom.Pt(500, 0), geom.Pt(500, 1000), 0, blue)
	if got := c.Image().RGBAAt(50, 10); got.A == 0 {
		t.Error("hairline not drawn")
	}
}

func TestDrawBoardPNG(t *testing.T) {
	b := testutil.Board(2, 1)
	testutil.SMD(b, "U1", 1, 2000, 2000)
	b.AddTrace(1, 0, geom.Pt(2000, 2000), geom.Pt(8000, 2000))
	b.AddVia(1, geom.Pt(8000, 2000))
	testutil.Wall(b, 5000)

	c := NewCanvas(b.Outline, 200)
	DrawBoard(c, b, DefaultOptions())
	if got := c.Image().RGBAAt(150, 150); got != toRGBA(Classic.Substrate) {
		t.Errorf("substrate pixel = %v", got)
	}
	if got := c.Image().RGBAAt(40, 40); got != toRGBA(Classic.Pad) {
		t.Errorf("pad pixel = %v, want %v", got, Classic.Pad)
	}
	var buf bytes.Buffer
	if err := c.WritePNG(&buf); err != nil {
		t.Fatalf("WritePNG() error: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode() error: %v", err)
	}
	if img.Bounds() != c.Image().Bounds() {
		t.Errorf("decoded bounds = %v", img.Bounds())
	}
}

func TestCopperColor(t *testing.T) {
	if got := Classic.CopperColor(1, 2); got != Classic.Copper[3] {
		t.Errorf("bottom of two layers = %v, want back copper", got)
	}
	if got := Classic.CopperColor(0, 1); got != Classic.Copper[0] {
		t.Errorf("single layer = %v, want front copper", got)
	}
}

func toRGBA(c color.NRGBA) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}
