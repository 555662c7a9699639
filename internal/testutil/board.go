// Package testutil builds small boards for router tests.
package testutil

import (
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

// Extent is the side length of test boards.
const Extent = 10000

// Board returns a square board with the given number of signal layers,
// trace half width 50, clearance 50, via radius 150 and nets 1 to nets.
func Board(layers, nets int) *board.Board {
	ls := make([]board.Layer, layers)
	for i := range ls {
		ls[i] = board.Layer{Name: layerName(i, layers)}
	}
	b := board.New(ls, geom.NewBox(0, 0, Extent, Extent), board.DefaultRules(50, 50, 150))
	for n := 1; n <= nets; n++ {
		b.AddNet(board.Net{Number: n, Name: string(rune('A' + n - 1))})
	}
	return b
}

func layerName(i, n int) string {
	switch {
	case i == 0:
		return "F.Cu"
	case i == n-1:
		return "B.Cu"
	default:
		return "In" + string(rune('0'+i)) + ".Cu"
	}
}

// Pad returns a 200 by 200 pad centred on (x, y).
func Pad(x, y int64) geom.Box {
	return geom.BoxAround(geom.Pt(x, y), 100)
}

// SMD adds a top layer SMD pin.
func SMD(b *board.Board, ref string, net int, x, y int64) board.ItemID {
	return b.Add(board.NewPin(ref, "1", net, Pad(x, y), 0, 0, true))
}

// THT adds a through hole pin on every layer.
func THT(b *board.Board, ref string, net int, x, y int64) board.ItemID {
	return b.Add(board.NewPin(ref, "1", net, Pad(x, y), 0, b.LayerCount()-1, false))
}

// Wall adds a keepout strip across the whole board at x, on every layer.
func Wall(b *board.Board, x int64) board.ItemID {
	return b.Add(board.NewKeepout(geom.NewBox(x-50, 0, x+50, Extent), 0, b.LayerCount()-1, false))
}
