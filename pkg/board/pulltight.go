package board

import (
	"time"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

// traceChain is a run of unfixed traces on one layer joined end to end at
// points no other item touches.
type traceChain struct {
	points []geom.Point
	traces []*Item
}

func (c traceChain) length(from, to int) float64 {
	var l float64
	for _, t := range c.traces[from:to] {
		l += t.Length()
	}
	return l
}

// PullTight replaces detours in trace chains by shorter orthogonal
// shortcuts where clearance allows. A net <= 0 handles all nets. It stops
// at the deadline and returns the number of shortcuts applied.
func (b *Board) PullTight(net int, deadline time.Time) int {
	nets := []int{net}
	if net <= 0 {
		nets = b.NetNumbers()
	}
	count := 0
	for _, n := range nets {
		for layer := range b.Layers {
			for {
				if !deadline.IsZero() && time.Now().After(deadline) {
					return count
				}
				if !b.tightenOnce(n, layer, deadline) {
					break
				}
				count++
			}
		}
		b.CombineTraces(n)
	}
	return count
}

func (b *Board) tightenOnce(net, layer int, deadline time.Time) bool {
	for _, c := range b.traceChains(net, layer) {
		n := len(c.traces)
		for i := 0; i+2 <= n; i++ {
			for j := n; j >= i+2; j-- {
				if !deadline.IsZero() && time.Now().After(deadline) {
					return false
				}
				if b.shortcut(c, i, j, net, layer) {
					return true
				}
			}
		}
	}
	return false
}

// shortcut tries to replace the traces between points i and j of the chain.
func (b *Board) shortcut(c traceChain, i, j, net, layer int) bool {
	from, to := c.points[i], c.points[j]
	old := c.length(i, j)
	ref := c.traces[i]
	var options [][]geom.Segment
	if from.X == to.X || from.Y == to.Y {
		options = append(options, []geom.Segment{geom.Seg(from, to)})
	} else {
		for _, corner := range []geom.Point{geom.Pt(to.X, from.Y), geom.Pt(from.X, to.Y)} {
			options = append(options, []geom.Segment{geom.Seg(from, corner), geom.Seg(corner, to)})
		}
	}
	for _, segs := range options {
		var l float64
		for _, s := range segs {
			l += s.Length()
		}
		if l >= old-1 {
			continue
		}
		legal := true
		for _, s := range segs {
			if !b.CheckTrace(s, layer, ref.HalfWidth, net, ref.Class, nil) {
				legal = false
				break
			}
		}
		if !legal {
			continue
		}
		for _, t := range c.traces[i:j] {
			_ = b.Remove(t.ID)
		}
		for _, s := range segs {
			b.Add(NewTrace(net, layer, s.A, s.B, ref.HalfWidth, ref.Class, Unfixed))
		}
		return true
	}
	return false
}

func (b *Board) traceChains(net, layer int) []traceChain {
	ends := make(map[geom.Point][]*Item)
	var traces []*Item
	for _, it := range b.NetItems(net) {
		if it.Kind != KindTrace || it.Fixed != Unfixed || it.FirstLayer != layer || it.Start == it.End {
			continue
		}
		traces = append(traces, it)
		ends[it.Start] = append(ends[it.Start], it)
		ends[it.End] = append(ends[it.End], it)
	}
	interior := func(p geom.Point) bool {
		ts := ends[p]
		if len(ts) != 2 || ts[0].HalfWidth != ts[1].HalfWidth || ts[0].Class != ts[1].Class {
			return false
		}
		cs := b.ContactsAt(ts[0].ID, p, layer)
		return len(cs) == 1 && cs[0].ID == ts[1].ID
	}
	other := func(p geom.Point, t *Item) *Item {
		for _, o := range ends[p] {
			if o.ID != t.ID {
				return o
			}
		}
		return nil
	}
	farEnd := func(t *Item, p geom.Point) geom.Point {
		if t.Start == p {
			return t.End
		}
		return t.Start
	}

	visited := make(map[ItemID]bool)
	var chains []traceChain
	for _, t := range traces {
		if visited[t.ID] {
			continue
		}
		visited[t.ID] = true
		c := traceChain{points: []geom.Point{t.Start, t.End}, traces: []*Item{t}}
		for {
			p := c.points[len(c.points)-1]
			if !interior(p) {
				break
			}
			next := other(p, c.traces[len(c.traces)-1])
			if next == nil || visited[next.ID] {
				break
			}
			visited[next.ID] = true
			c.points = append(c.points, farEnd(next, p))
			c.traces = append(c.traces, next)
		}
		for {
			p := c.points[0]
			if !interior(p) {
				break
			}
			prev := other(p, c.traces[0])
			if prev == nil || visited[prev.ID] {
				break
			}
			visited[prev.ID] = true
			c.points = append([]geom.Point{farEnd(prev, p)}, c.points...)
			c.traces = append([]*Item{prev}, c.traces...)
		}
		if len(c.traces) >= 2 {
			chains = append(chains, c)
		}
	}
	return chains
}
