package batch

import (
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

// Metric is the quality of a routed board, compared lexicographically.
type Metric struct {
	Unrouted int
	Vias     int
	Length   float64
}

// WeightedLength sums the length of unfixed and shove fixed traces,
// weighted by half width plus clearance. Shove fixed traces count half.
func WeightedLength(b *board.Board) float64 {
	clearance := float64(b.Rules.ClearanceBetween(0, 0))
	total := 0.0
	for _, it := range b.ItemsOfKind(board.KindTrace) {
		var f float64
		switch it.Fixed {
		case board.Unfixed:
			f = 1
		case board.ShoveFixed:
			f = 0.5
		default:
			continue
		}
		total += f * it.Length() * (float64(it.HalfWidth) + clearance)
	}
	return total
}

// Measure returns the current metric of b.
func Measure(b *board.Board) Metric {
	return Metric{Unrouted: b.UnroutedCount(), Vias: b.ViaCount(), Length: WeightedLength(b)}
}

// Optimizer rips up single route items and reroutes their connections,
// keeping results that improve the board.
type Optimizer struct {
	job    *Job
	router *Autorouter

	// OnAccept is called after every accepted change.
	OnAccept func(before, after Metric)

	Sweeps   int
	Accepted int

	baseline float64
}

// NewOptimizer creates an optimizer for j.
func NewOptimizer(j *Job) *Optimizer {
	return &Optimizer{job: j, router: NewAutorouter(j)}
}

// Board runs optimize sweeps with inflated ripup costs while they improve
// the board, then one more sweep with normal costs, continuing with normal
// costs while that improves. It returns the number of sweeps.
func (o *Optimizer) Board() int {
	o.baseline = WeightedLength(o.job.Board)
	inflated := true
	for {
		if o.job.IsStopRequested() {
			break
		}
		if m := o.job.Settings.MaxOptimizeSweeps; m > 0 && o.Sweeps >= m {
			break
		}
		improved := o.sweep(inflated)
		o.Sweeps++
		if improved {
			continue
		}
		if !inflated {
			break
		}
		inflated = false
	}
	o.job.Logger.Printf("[OPTIMIZE] %d sweeps, %d changes accepted", o.Sweeps, o.Accepted)
	return o.Sweeps
}

func (o *Optimizer) sweep(inflated bool) bool {
	j := o.job
	improved := false
	cur := NewSortedRouteItemCursor(j.Board)
	for {
		if j.IsStopRequested() {
			break
		}
		it := cur.Next()
		if it == nil {
			break
		}
		j.report(Progress{Phase: PhaseOptimize, Pass: o.Sweeps + 1, Routed: o.Accepted})
		j.setPosition(it.Position())
		if o.Item(it, inflated) {
			improved = true
		}
	}
	return improved
}

// removalSet is the item plus, for a trace, the traces forking off at its
// ends when every item of the fork is an unfixed trace.
func (o *Optimizer) removalSet(it *board.Item) []board.ItemID {
	b := o.job.Board
	ids := []board.ItemID{it.ID}
	if it.Kind != board.KindTrace {
		return ids
	}
	for _, p := range []geom.Point{it.Start, it.End} {
		contacts := b.ContactsAt(it.ID, p, it.FirstLayer)
		if len(contacts) < 2 {
			continue
		}
		fork := true
		for _, c := range contacts {
			if c.Kind != board.KindTrace || c.Fixed != board.Unfixed {
				fork = false
				break
			}
		}
		if fork {
			for _, c := range contacts {
				ids = append(ids, c.ID)
			}
		}
	}
	return ids
}

// Item rips up it with its connection closure and reroutes the affected
// nets. The change is kept only if it improves the board.
func (o *Optimizer) Item(it *board.Item, inflated bool) bool {
	j := o.job
	b := j.Board
	closure := b.ConnectionClosure(o.removalSet(it), board.StopAtVias)
	if len(closure) == 0 {
		return false
	}
	for _, id := range closure {
		if x := b.Item(id); x != nil && x.Fixed >= board.UserFixed {
			return false
		}
	}
	before := Measure(b)
	tx, err := b.Begin()
	if err != nil {
		j.Logger.Printf("[OPTIMIZE] item %d: %v", it.ID, err)
		return false
	}

	b.RemoveItemsUnfixed(closure)
	for _, net := range it.Nets {
		b.CombineTraces(net)
	}
	ripup := j.Settings.StartRipupCost
	if inflated {
		ripup *= 10
	}
	if it.Kind == board.KindTrace {
		ripup *= 0.6
	}
	nets := make(map[int]bool, len(it.Nets))
	for _, net := range it.Nets {
		nets[net] = true
	}
	for pass := 1; pass <= j.Settings.OptimizeRoutePasses; pass++ {
		if j.IsStopRequested() {
			break
		}
		if o.router.pass(pass, ripup, nets) == 0 {
			break
		}
	}
	for _, net := range it.Nets {
		b.RemoveTraceTails(net, board.KeepFanoutVias)
	}

	after := Measure(b)
	if j.IsStopRequested() || !o.accept(before, after) {
		if err := tx.Rollback(); err != nil {
			j.Logger.Printf("[OPTIMIZE] item %d: rollback %s: %v", it.ID, tx.ID(), err)
		}
		return false
	}
	if err := tx.Commit(); err != nil {
		j.Logger.Printf("[OPTIMIZE] item %d: commit %s: %v", it.ID, tx.ID(), err)
		return false
	}
	j.Logger.Printf("[OPTIMIZE] item %d: tx %s accepted %+v -> %+v", it.ID, tx.ID(), before, after)
	o.Accepted++
	if o.OnAccept != nil {
		o.OnAccept(before, after)
	}
	return true
}

// accept applies the acceptance rule and updates the length baseline.
// An improvement in connectivity or vias resets the baseline to the new
// length; a length-only improvement lowers it.
func (o *Optimizer) accept(before, after Metric) bool {
	switch {
	case after.Unrouted < before.Unrouted,
		after.Unrouted == before.Unrouted && after.Vias < before.Vias:
		o.baseline = after.Length
		return true
	case after.Unrouted == before.Unrouted && after.Vias == before.Vias && after.Length < o.baseline:
		o.baseline = min(after.Length, o.baseline)
		return true
	}
	return false
}
