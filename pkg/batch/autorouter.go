package batch

import (
	"math"
	"time"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/autoroute"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
)

// Outcome is the terminal state of the autoroute loop.
type Outcome int

const (
	Converged Outcome = iota
	Stalled
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Converged:
		return "converged"
	case Stalled:
		return "stalled"
	default:
		return "cancelled"
	}
}

type connection struct {
	item board.ItemID
	net  int
}

// Autorouter routes every incomplete connection of the board in passes.
type Autorouter struct {
	job *Job

	// Failed is the failed count of the last completed pass.
	Failed int
	// Passes is the number of passes run by Loop.
	Passes int

	interrupted bool
}

// NewAutorouter creates an autorouter for j.
func NewAutorouter(j *Job) *Autorouter {
	return &Autorouter{job: j}
}

// Loop runs passes while the failed count is positive and falls. A pass
// that does not improve on its predecessor ends the loop. Unless a pass was
// interrupted, tails are removed and traces pulled tight afterwards.
func (a *Autorouter) Loop() Outcome {
	outcome := Converged
	prev := math.MaxInt
	a.interrupted = false
	for pass := 1; ; pass++ {
		if a.job.IsStopRequested() {
			outcome = Cancelled
			break
		}
		if m := a.job.Settings.MaxPasses; m > 0 && pass > m {
			outcome = Stalled
			break
		}
		failed := a.Pass(pass)
		a.Passes = pass
		if a.interrupted {
			outcome = Cancelled
			break
		}
		a.Failed = failed
		if failed == 0 {
			break
		}
		if failed >= prev {
			a.job.Logger.Printf("[AUTOROUTE] pass %d: %d failed, no improvement over %d", pass, failed, prev)
			outcome = Stalled
			break
		}
		prev = failed
	}
	if !a.interrupted {
		a.tidy(nil)
	}
	a.job.Logger.Printf("[AUTOROUTE] %s after %d passes, %d failed", outcome, a.Passes, a.Failed)
	return outcome
}

// Pass routes every incomplete connection once with ripup costs scaled by
// the pass number and returns the number of failed connections.
func (a *Autorouter) Pass(passNo int) int {
	s := a.job.Settings
	return a.pass(passNo, s.StartRipupCost*float64(passNo), nil)
}

// pass routes the incomplete connections of nets, or of every net when
// nets is nil. A fault outside the search ends the pass with no failures.
func (a *Autorouter) pass(passNo int, ripup float64, nets map[int]bool) (failed int) {
	j := a.job
	defer func() {
		if r := recover(); r != nil {
			j.Logger.Printf("[AUTOROUTE] pass %d aborted: %v", passNo, r)
			failed = 0
		}
		j.clearAirline()
	}()

	queue := a.incomplete(nets)
	budget := time.Duration(10+passNo) * time.Second
	failedItems := make(map[board.ItemID]bool)
	var routed, ripped int
	for i, c := range queue {
		if j.IsStopRequested() {
			a.interrupted = true
			return failed
		}
		j.report(Progress{Phase: PhaseAutoroute, Pass: passNo, ToGo: len(queue) - i, Routed: routed, Ripped: ripped, Failed: failed})
		it := j.Board.Item(c.item)
		if it == nil {
			continue
		}
		start := j.Board.ConnectedSet(c.item, c.net)
		if len(start) >= j.Board.ConnectableItemCount(c.net) {
			continue
		}
		var dest []board.ItemID
		for _, id := range j.Board.UnconnectedSet(c.item, c.net) {
			if !failedItems[id] {
				dest = append(dest, id)
			}
		}
		if len(dest) == 0 {
			continue
		}
		j.setPosition(it.Position())
		j.setAirline(start, dest)

		ctl := j.control(c.net, ripup, budget)
		res, rippedItems, err := j.engine.Route(ctl, start, dest)
		switch res {
		case autoroute.Routed:
			routed++
			ripped += len(rippedItems)
			a.removeRippedTails(rippedItems)
		case autoroute.AlreadyConnected:
		case autoroute.Exception:
			j.Logger.Printf("[AUTOROUTE] pass %d: %v", passNo, err)
			fallthrough
		default:
			failed++
			for _, id := range start {
				failedItems[id] = true
			}
		}
	}
	j.Logger.Printf("[AUTOROUTE] pass %d: %d routed, %d ripped, %d failed", passNo, routed, ripped, failed)
	return failed
}

// incomplete lists the (item, net) pairs whose connected set misses items
// of the net. Single net members of a scanned connected set are handled
// with it; items on several nets are scanned for each of their nets.
func (a *Autorouter) incomplete(nets map[int]bool) []connection {
	b := a.job.Board
	handled := make(map[board.ItemID]bool)
	var out []connection
	for _, it := range b.Items() {
		if !it.IsConnectable() || handled[it.ID] {
			continue
		}
		for _, net := range it.Nets {
			if nets != nil && !nets[net] {
				continue
			}
			set := b.ConnectedSet(it.ID, net)
			for _, id := range set {
				if x := b.Item(id); x != nil && x.NetCount() == 1 {
					handled[id] = true
				}
			}
			if len(set) < b.ConnectableItemCount(net) {
				out = append(out, connection{it.ID, net})
			}
		}
	}
	return out
}

func (a *Autorouter) removeRippedTails(ripped []*board.Item) {
	seen := make(map[int]bool)
	for _, it := range ripped {
		for _, net := range it.Nets {
			if !seen[net] {
				seen[net] = true
				a.job.Board.RemoveTraceTails(net, board.KeepFanoutVias)
			}
		}
	}
}

// tidy removes trace tails and pulls traces tight on nets, or on every
// net when nets is nil.
func (a *Autorouter) tidy(nets []int) {
	j := a.job
	b := j.Board
	if nets == nil {
		nets = b.NetNumbers()
	}
	if j.Settings.RemoveTails {
		for _, net := range nets {
			b.RemoveTraceTails(net, board.KeepFanoutVias)
		}
	}
	if j.Settings.PullTightTime <= 0 {
		return
	}
	deadline := time.Now().Add(j.Settings.PullTightTime)
	moved := 0
	for _, net := range nets {
		if j.IsStopRequested() || time.Now().After(deadline) {
			break
		}
		moved += b.PullTight(net, deadline)
	}
	if moved > 0 {
		j.Logger.Printf("[AUTOROUTE] pulled %d traces tight", moved)
	}
}
