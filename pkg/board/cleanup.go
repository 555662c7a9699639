package board

import (
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

// TailOption selects which dangling items RemoveTraceTails keeps.
type TailOption int

const (
	// RemoveAllTails removes every dangling trace and via.
	RemoveAllTails TailOption = iota
	// KeepFanoutVias keeps vias that dangle off a chain leading to a pin.
	KeepFanoutVias
)

// RemoveItemsUnfixed removes every listed item that is not user or system
// fixed. It reports false if some items had to be kept.
func (b *Board) RemoveItemsUnfixed(ids []ItemID) bool {
	all := true
	for _, id := range ids {
		it := b.items[id]
		if it == nil {
			continue
		}
		if it.Fixed >= UserFixed {
			all = false
			continue
		}
		_ = b.Remove(id)
	}
	return all
}

// CombineTraces merges pairs of unfixed traces of net that continue each
// other in a straight line at an end point no other item touches. It
// reports whether anything changed.
func (b *Board) CombineTraces(net int) bool {
	changed := false
	for {
		merged := false
		for _, t := range b.NetItems(net) {
			if t.Kind != KindTrace || t.Fixed != Unfixed {
				continue
			}
			if b.combineAt(t, t.End) || b.combineAt(t, t.Start) {
				merged = true
				break
			}
		}
		if !merged {
			return changed
		}
		changed = true
	}
}

func (b *Board) combineAt(t *Item, p geom.Point) bool {
	contacts := b.ContactsAt(t.ID, p, t.FirstLayer)
	if len(contacts) != 1 {
		return false
	}
	u := contacts[0]
	if u.Kind != KindTrace || u.Fixed != Unfixed || u.FirstLayer != t.FirstLayer ||
		u.HalfWidth != t.HalfWidth || u.Class != t.Class {
		return false
	}
	var far geom.Point
	switch p {
	case u.Start:
		far = u.End
	case u.End:
		far = u.Start
	default:
		return false
	}
	near := t.Start
	if p == t.Start {
		near = t.End
	}
	if !straight(near, p, far) {
		return false
	}
	net := 0
	if len(t.Nets) > 0 {
		net = t.Nets[0]
	}
	_ = b.Remove(t.ID)
	_ = b.Remove(u.ID)
	b.Add(NewTrace(net, t.FirstLayer, near, far, t.HalfWidth, t.Class, Unfixed))
	return true
}

// straight reports whether b lies on the segment a-c and continues it.
func straight(a, b, c geom.Point) bool {
	ux, uy := b.X-a.X, b.Y-a.Y
	vx, vy := c.X-b.X, c.Y-b.Y
	return ux*vy-uy*vx == 0 && ux*vx+uy*vy > 0
}

// RemoveTraceTails removes unfixed traces with an unconnected end and
// unfixed vias with at most one contact, repeatedly, until none is left.
// A net <= 0 cleans all nets. It reports whether anything was removed.
func (b *Board) RemoveTraceTails(net int, opt TailOption) bool {
	removed := false
	for {
		var tails []ItemID
		for _, it := range b.routeItems(net) {
			if it.Fixed != Unfixed {
				continue
			}
			if b.isTail(it, opt) {
				tails = append(tails, it.ID)
			}
		}
		if len(tails) == 0 {
			return removed
		}
		for _, id := range tails {
			_ = b.Remove(id)
		}
		removed = true
	}
}

func (b *Board) routeItems(net int) []*Item {
	var src []*Item
	if net > 0 {
		src = b.NetItems(net)
	} else {
		src = b.Items()
	}
	out := src[:0:0]
	for _, it := range src {
		if it.IsRoute() {
			out = append(out, it)
		}
	}
	return out
}

func (b *Board) isTail(it *Item, opt TailOption) bool {
	switch it.Kind {
	case KindTrace:
		return len(b.ContactsAt(it.ID, it.Start, it.FirstLayer)) == 0 ||
			len(b.ContactsAt(it.ID, it.End, it.FirstLayer)) == 0
	case KindVia:
		contacts := b.Contacts(it.ID)
		if len(contacts) > 1 {
			return false
		}
		if len(contacts) == 1 && opt == KeepFanoutVias && len(it.Nets) > 0 {
			for _, id := range b.ConnectedSet(it.ID, it.Nets[0]) {
				if b.items[id].Kind == KindPin {
					return false
				}
			}
		}
		return true
	}
	return false
}
