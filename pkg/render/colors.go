package render

import "image/color"

// Theme holds the colours used to draw a board.
type Theme struct {
	Background color.NRGBA
	Substrate  color.NRGBA
	Copper     []color.NRGBA // by layer index, cycled
	Pad        color.NRGBA
	Via        color.NRGBA
	Keepout    color.NRGBA
	FreeRoom   color.NRGBA
	Obstacle   color.NRGBA
	Door       color.NRGBA
}

// Classic follows the KiCad classic colour scheme.
var Classic = Theme{
	Background: color.NRGBA{R: 0, G: 16, B: 35, A: 255},
	Substrate:  color.NRGBA{R: 20, G: 90, B: 50, A: 255},
	Copper: []color.NRGBA{
		{R: 200, G: 52, B: 52, A: 200},   // F.Cu
		{R: 127, G: 200, B: 127, A: 200}, // In1.Cu
		{R: 206, G: 125, B: 44, A: 200},  // In2.Cu
		{R: 77, G: 127, B: 196, A: 200},  // B.Cu
	},
	Pad:      color.NRGBA{R: 227, G: 183, B: 46, A: 255},
	Via:      color.NRGBA{R: 236, G: 236, B: 236, A: 255},
	Keepout:  color.NRGBA{R: 255, G: 38, B: 226, A: 90},
	FreeRoom: color.NRGBA{R: 180, G: 219, B: 210, A: 40},
	Obstacle: color.NRGBA{R: 216, G: 100, B: 255, A: 60},
	Door:     color.NRGBA{R: 242, G: 237, B: 161, A: 255},
}

// CopperColor returns the colour of copper layer i on a board with n
// layers. The bottom layer always gets the back copper colour.
func (t Theme) CopperColor(i, n int) color.NRGBA {
	if len(t.Copper) == 0 {
		return color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	}
	last := len(t.Copper) - 1
	if i == n-1 && n > 1 {
		return t.Copper[last]
	}
	if last == 0 {
		return t.Copper[0]
	}
	return t.Copper[i%last]
}
