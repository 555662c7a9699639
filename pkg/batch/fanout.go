package batch

import (
	"slices"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/autoroute"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
)

// Fanout connects unconnected SMD pins to nearby vias, component by
// component.
type Fanout struct {
	job *Job

	Routed int
	Failed int
	Passes int
}

// NewFanout creates a fanout stage for j.
func NewFanout(j *Job) *Fanout {
	return &Fanout{job: j}
}

// Board runs fanout passes until a pass routes no pin, the pass limit is
// reached or a stop is requested. It returns the number of fanned out pins.
func (f *Fanout) Board() int {
	s := f.job.Settings
	for pass := 0; pass < s.MaxFanoutPasses; pass++ {
		if f.job.IsStopRequested() {
			break
		}
		routed := f.pass(pass)
		f.Passes = pass + 1
		f.Routed += routed
		if routed == 0 {
			break
		}
	}
	f.job.Logger.Printf("[FANOUT] %d pins fanned out in %d passes, %d failures", f.Routed, f.Passes, f.Failed)
	return f.Routed
}

func (f *Fanout) pass(passNo int) int {
	j := f.job
	ripup := j.Settings.StartRipupCost * float64(passNo+1)
	pins := f.candidates()
	routed := 0
	for i, pin := range pins {
		if j.IsStopRequested() {
			break
		}
		j.report(Progress{Phase: PhaseFanout, Pass: passNo + 1, ToGo: len(pins) - i, Routed: routed, Failed: f.Failed})
		if !f.eligible(pin) {
			continue
		}
		j.setPosition(pin.Position())
		res, _, err := j.engine.Fanout(j.control(pin.Nets[0], ripup, j.Settings.FanoutTime), pin.ID)
		switch res {
		case autoroute.Routed:
			routed++
		case autoroute.Exception:
			j.Logger.Printf("[FANOUT] pin %s-%s: %v", pin.Component, pin.PinName, err)
			f.Failed++
		default:
			f.Failed++
		}
	}
	return routed
}

// candidates returns the pins of components with at least one SMD pin,
// grouped by component.
func (f *Fanout) candidates() []*board.Item {
	byComp := make(map[string][]*board.Item)
	smd := make(map[string]bool)
	for _, it := range f.job.Board.ItemsOfKind(board.KindPin) {
		byComp[it.Component] = append(byComp[it.Component], it)
		if it.SMD {
			smd[it.Component] = true
		}
	}
	var comps []string
	for c := range smd {
		comps = append(comps, c)
	}
	slices.Sort(comps)
	var out []*board.Item
	for _, c := range comps {
		out = append(out, byComp[c]...)
	}
	return out
}

// eligible reports whether pin is an SMD pin of a net with other items
// and has no contacts yet.
func (f *Fanout) eligible(pin *board.Item) bool {
	b := f.job.Board
	if b.Item(pin.ID) == nil || !pin.SMD || len(pin.Nets) == 0 {
		return false
	}
	if b.ConnectableItemCount(pin.Nets[0]) <= 1 {
		return false
	}
	return len(b.Contacts(pin.ID)) == 0
}
