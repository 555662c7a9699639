package batch

import (
	"cmp"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
)

type cursorKey struct {
	x, y  int64
	layer int
	trace int // vias sort before traces at the same position
	id    board.ItemID
}

func keyOf(it *board.Item) cursorKey {
	p := it.Position()
	k := cursorKey{x: p.X, y: p.Y, layer: it.FirstLayer, id: it.ID}
	if it.Kind == board.KindTrace {
		k.trace = 1
	}
	return k
}

func (k cursorKey) compare(o cursorKey) int {
	if c := cmp.Compare(k.x, o.x); c != 0 {
		return c
	}
	if c := cmp.Compare(k.y, o.y); c != 0 {
		return c
	}
	if c := cmp.Compare(k.layer, o.layer); c != 0 {
		return c
	}
	if c := cmp.Compare(k.trace, o.trace); c != 0 {
		return c
	}
	return cmp.Compare(k.id, o.id)
}

// movable reports whether the optimizer may pick it up: vias that are not
// user or system fixed, and unfixed traces.
func movable(it *board.Item) bool {
	switch it.Kind {
	case board.KindVia:
		return it.Fixed < board.UserFixed
	case board.KindTrace:
		return it.Fixed == board.Unfixed
	}
	return false
}

// SortedRouteItemCursor walks the movable route items of a board in
// ascending position order. The board is scanned again on every step, so items
// removed in between are skipped and items added behind the cursor are
// not visited.
type SortedRouteItemCursor struct {
	board   *board.Board
	last    cursorKey
	started bool
}

// NewSortedRouteItemCursor creates a cursor before the first route item.
func NewSortedRouteItemCursor(b *board.Board) *SortedRouteItemCursor {
	return &SortedRouteItemCursor{board: b}
}

// Next returns the route item following the previous one, or nil.
func (c *SortedRouteItemCursor) Next() *board.Item {
	var best *board.Item
	var bestKey cursorKey
	for _, it := range c.board.Items() {
		if !movable(it) {
			continue
		}
		k := keyOf(it)
		if c.started && k.compare(c.last) <= 0 {
			continue
		}
		if best == nil || k.compare(bestKey) < 0 {
			best, bestKey = it, k
		}
	}
	if best != nil {
		c.last, c.started = bestKey, true
	}
	return best
}
