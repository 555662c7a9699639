package batch

import (
	"context"
	"io"
	"log"
	"math/rand"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/OpenTraceLab/OpenTraceRoute/internal/testutil"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/autoroute"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

func quietJob(b *board.Board) *Job {
	s := DefaultSettings()
	s.PullTightTime = 0
	return NewJob(context.Background(), b, s, log.New(io.Discard, "", 0))
}

func straightBoard() (*board.Board, board.ItemID, board.ItemID) {
	b := testutil.Board(2, 1)
	p1 := testutil.SMD(b, "U1", 1, 1000, 5000)
	p2 := testutil.SMD(b, "U2", 1, 9000, 5000)
	return b, p1, p2
}

type segment struct {
	Layer int
	A, B  geom.Point
}

func traces(b *board.Board) []segment {
	var out []segment
	for _, it := range b.ItemsOfKind(board.KindTrace) {
		out = append(out, segment{it.FirstLayer, it.Start, it.End})
	}
	return out
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(*Settings) {}, false},
		{"negative via cost", func(s *Settings) { s.ViaCost = -1 }, true},
		{"negative ripup", func(s *Settings) { s.StartRipupCost = -5 }, true},
		{"zero layer cost", func(s *Settings) { s.TraceCosts = []autoroute.LayerCost{{Horizontal: 0, Vertical: 1}} }, true},
		{"zero fanout passes filled", func(s *Settings) { s.MaxFanoutPasses = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (s.MaxFanoutPasses != 20 || s.OptimizeRoutePasses != 6) {
				t.Errorf("limits not filled: %+v", s)
			}
		})
	}
}

func TestDefaultSettingsStages(t *testing.T) {
	s := DefaultSettings()
	if s.WithFanout {
		t.Error("fanout enabled by default")
	}
	if !s.WithAutoroute || !s.WithPostroute {
		t.Errorf("autoroute=%v postroute=%v, want both on", s.WithAutoroute, s.WithPostroute)
	}
}

func TestAutorouteStraightConnection(t *testing.T) {
	b, p1, p2 := straightBoard()
	a := NewAutorouter(quietJob(b))

	if got := a.Loop(); got != Converged {
		t.Fatalf("Loop() = %v, want converged", got)
	}
	if a.Failed != 0 || a.Passes != 1 {
		t.Errorf("failed = %d after %d passes, want 0 after 1", a.Failed, a.Passes)
	}
	want := []segment{{0, geom.Pt(1000, 5000), geom.Pt(8900, 5000)}}
	if diff := cmp.Diff(want, traces(b)); diff != "" {
		t.Errorf("traces mismatch (-want +got):\n%s", diff)
	}
	if got := b.ConnectedSet(p1, 1); len(got) != 3 || got[1] != p2 {
		t.Errorf("ConnectedSet(p1) = %v", got)
	}
}

func TestIncompleteScansMultiNetItems(t *testing.T) {
	b := testutil.Board(1, 2)
	p := testutil.SMD(b, "U1", 1, 1000, 5000)
	shared := board.NewPin("U2", "1", 1, testutil.Pad(3000, 5000), 0, 0, true)
	shared.Nets = []int{1, 2}
	m := b.Add(shared)
	b.Add(board.NewTrace(1, 0, geom.Pt(1000, 5000), geom.Pt(3000, 5000), 50, 0, board.Unfixed))
	q := testutil.SMD(b, "U3", 2, 8000, 5000)

	if got := b.ConnectedSet(p, 1); len(got) != 3 {
		t.Fatalf("ConnectedSet(p, 1) = %v", got)
	}
	got := NewAutorouter(quietJob(b)).incomplete(nil)
	want := []connection{{m, 2}, {q, 2}}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(connection{})); diff != "" {
		t.Errorf("incomplete (-want +got):\n%s", diff)
	}
}

func TestAutorouteStallsOnBlockedNet(t *testing.T) {
	b, _, _ := straightBoard()
	testutil.Wall(b, 5000)
	a := NewAutorouter(quietJob(b))

	if got := a.Loop(); got != Stalled {
		t.Fatalf("Loop() = %v, want stalled", got)
	}
	if a.Failed != 1 {
		t.Errorf("failed = %d, want 1", a.Failed)
	}
	if a.Passes != 2 {
		t.Errorf("passes = %d, want 2", a.Passes)
	}
	if b.TraceCount() != 0 || b.ViaCount() != 0 {
		t.Errorf("blocked net left %d traces and %d vias", b.TraceCount(), b.ViaCount())
	}
}

func TestAutorouteStallIsMonotonic(t *testing.T) {
	b := testutil.Board(1, 3)
	testutil.SMD(b, "U1", 1, 1000, 2000)
	testutil.SMD(b, "U2", 1, 9000, 2000)
	testutil.SMD(b, "U3", 2, 1000, 8000)
	testutil.SMD(b, "U4", 2, 9000, 8000)
	testutil.SMD(b, "U5", 3, 1000, 5000)
	testutil.SMD(b, "U6", 3, 3000, 5000)
	testutil.Wall(b, 5000)
	j := quietJob(b)

	var counts []int
	a := NewAutorouter(j)
	for pass := 1; pass <= 3; pass++ {
		counts = append(counts, a.Pass(pass))
	}
	if diff := cmp.Diff([]int{2, 2, 2}, counts); diff != "" {
		t.Errorf("failed counts (-want +got):\n%s", diff)
	}

	a = NewAutorouter(j)
	if got := a.Loop(); got != Stalled || a.Passes != 2 {
		t.Errorf("Loop() = %v after %d passes, want stalled after 2", got, a.Passes)
	}
}

func TestAutoroutePassLimit(t *testing.T) {
	b, _, _ := straightBoard()
	testutil.Wall(b, 5000)
	j := quietJob(b)
	j.Settings.MaxPasses = 1

	a := NewAutorouter(j)
	if got := a.Loop(); got != Stalled || a.Passes != 1 {
		t.Errorf("Loop() = %v after %d passes", got, a.Passes)
	}
}

func TestAutorouteCancelled(t *testing.T) {
	b, _, _ := straightBoard()
	j := quietJob(b)
	j.RequestStop()

	a := NewAutorouter(j)
	if got := a.Loop(); got != Cancelled || a.Passes != 0 {
		t.Errorf("Loop() = %v after %d passes", got, a.Passes)
	}
	if b.TraceCount() != 0 {
		t.Error("cancelled loop changed the board")
	}
}

func TestAutorouteContextCancelled(t *testing.T) {
	b, _, _ := straightBoard()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j := NewJob(ctx, b, nil, log.New(io.Discard, "", 0))
	if !j.IsStopRequested() {
		t.Fatal("cancelled context does not request a stop")
	}
	if got := NewAutorouter(j).Loop(); got != Cancelled {
		t.Errorf("Loop() = %v, want cancelled", got)
	}
}

func TestFanoutComponent(t *testing.T) {
	b := testutil.Board(2, 4)
	for i, p := range []geom.Point{{X: 2000, Y: 2000}, {X: 3000, Y: 2000}, {X: 2000, Y: 3000}, {X: 3000, Y: 3000}} {
		net := i + 1
		b.Add(board.NewPin("U1", string(rune('1'+i)), net, testutil.Pad(p.X, p.Y), 0, 0, true))
		b.Add(board.NewPin("J1", string(rune('1'+i)), net, testutil.Pad(8000, 6000+int64(i)*1000), 0, 1, false))
	}
	j := quietJob(b)
	f := NewFanout(j)

	if got := f.Board(); got != 4 {
		t.Errorf("fanned out %d pins, want 4", got)
	}
	if f.Passes != 2 {
		t.Errorf("passes = %d, want 2", f.Passes)
	}
	if got := b.ViaCount(); got != 4 {
		t.Errorf("vias = %d, want 4", got)
	}
	for _, it := range b.ItemsOfKind(board.KindPin) {
		if it.SMD && len(b.Contacts(it.ID)) == 0 {
			t.Errorf("pin %s-%s has no fanout", it.Component, it.PinName)
		}
	}
}

func TestFanoutSkipsSinglePinNets(t *testing.T) {
	b := testutil.Board(2, 1)
	testutil.SMD(b, "U1", 1, 2000, 2000)
	f := NewFanout(quietJob(b))
	if got := f.Board(); got != 0 || f.Passes != 1 {
		t.Errorf("fanned out %d pins in %d passes, want 0 in 1", got, f.Passes)
	}
}

func TestOptimizeOptimalBoardUnchanged(t *testing.T) {
	b, _, _ := straightBoard()
	if got := NewAutorouter(quietJob(b)).Loop(); got != Converged {
		t.Fatalf("Loop() = %v", got)
	}
	before := traces(b)
	metric := Measure(b)

	o := NewOptimizer(quietJob(b))
	if got := o.Board(); got != 2 {
		t.Errorf("sweeps = %d, want 2", got)
	}
	if o.Accepted != 0 {
		t.Errorf("accepted %d changes on an optimal board", o.Accepted)
	}
	if diff := cmp.Diff(before, traces(b)); diff != "" {
		t.Errorf("board changed (-want +got):\n%s", diff)
	}
	if got := Measure(b); got != metric {
		t.Errorf("metric %+v, want %+v", got, metric)
	}
}

var acceptLog = regexp.MustCompile(`\[OPTIMIZE\] item \d+: tx [0-9a-f-]{36} accepted`)

func TestOptimizeShortensDetour(t *testing.T) {
	b, _, _ := straightBoard()
	for _, s := range [][2]geom.Point{
		{geom.Pt(1000, 5000), geom.Pt(1000, 8000)},
		{geom.Pt(1000, 8000), geom.Pt(9000, 8000)},
		{geom.Pt(9000, 8000), geom.Pt(9000, 5000)},
	} {
		b.Add(board.NewTrace(1, 0, s[0], s[1], 50, 0, board.Unfixed))
	}
	before := Measure(b)
	if before.Unrouted != 0 {
		t.Fatalf("detour board has %d unrouted", before.Unrouted)
	}

	var logs strings.Builder
	s := DefaultSettings()
	s.PullTightTime = 0
	o := NewOptimizer(NewJob(context.Background(), b, s, log.New(&logs, "", 0)))
	var accepted []Metric
	o.OnAccept = func(_, after Metric) { accepted = append(accepted, after) }
	o.Board()

	if len(accepted) == 0 {
		t.Fatal("no change accepted")
	}
	if !acceptLog.MatchString(logs.String()) {
		t.Errorf("no accepted transaction logged:\n%s", logs.String())
	}
	after := Measure(b)
	if after.Unrouted != 0 || after.Length >= before.Length {
		t.Errorf("metric %+v, want connected and shorter than %+v", after, before)
	}
}

func TestOptimizeKeepsUserFixed(t *testing.T) {
	b, _, _ := straightBoard()
	fixed := b.Add(board.NewTrace(1, 0, geom.Pt(1000, 5000), geom.Pt(1000, 8000), 50, 0, board.UserFixed))
	b.Add(board.NewTrace(1, 0, geom.Pt(1000, 8000), geom.Pt(9000, 8000), 50, 0, board.Unfixed))
	b.Add(board.NewTrace(1, 0, geom.Pt(9000, 8000), geom.Pt(9000, 5000), 50, 0, board.Unfixed))
	before := traces(b)

	o := NewOptimizer(quietJob(b))
	o.Board()
	if b.Item(fixed) == nil {
		t.Fatal("user fixed trace removed")
	}
	if diff := cmp.Diff(before, traces(b)); diff != "" {
		t.Errorf("closure with a user fixed trace changed (-want +got):\n%s", diff)
	}
}

// worse reports whether a is lexicographically worse than b.
func worse(a, b Metric) bool {
	if a.Unrouted != b.Unrouted {
		return a.Unrouted > b.Unrouted
	}
	if a.Vias != b.Vias {
		return a.Vias > b.Vias
	}
	return a.Length > b.Length
}

func TestOptimizeNeverCommitsWorse(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 4; round++ {
		b := testutil.Board(2, 2)
		used := make(map[geom.Point]bool)
		for net := 1; net <= 2; net++ {
			for pin := 0; pin < 3; pin++ {
				p := geom.Pt(int64(1+rng.Intn(8))*1000, int64(1+rng.Intn(8))*1000)
				for used[p] {
					p = geom.Pt(int64(1+rng.Intn(8))*1000, int64(1+rng.Intn(8))*1000)
				}
				used[p] = true
				testutil.SMD(b, "U", net, p.X, p.Y)
			}
		}
		job := quietJob(b)
		job.Settings.MaxPasses = 4
		NewAutorouter(job).Loop()

		job = quietJob(b)
		job.Settings.MaxOptimizeSweeps = 3
		o := NewOptimizer(job)
		o.OnAccept = func(before, after Metric) {
			if worse(after, before) {
				t.Errorf("round %d: accepted %+v over %+v", round, after, before)
			}
			if got := Measure(b); got != after {
				t.Errorf("round %d: board metric %+v differs from reported %+v", round, got, after)
			}
		}
		start := Measure(b)
		o.Board()
		if end := Measure(b); worse(end, start) {
			t.Errorf("round %d: optimize made the board worse: %+v -> %+v", round, start, end)
		}
	}
}

func TestAcceptBaseline(t *testing.T) {
	o := &Optimizer{baseline: 100}
	steps := []struct {
		before, after Metric
		want          bool
		baseline      float64
	}{
		// Fewer unrouted connections reset the baseline, even upwards.
		{Metric{1, 0, 100}, Metric{0, 0, 120}, true, 120},
		// Length only must beat the baseline.
		{Metric{0, 0, 120}, Metric{0, 0, 110}, true, 110},
		{Metric{0, 0, 110}, Metric{0, 0, 115}, false, 110},
		// Fewer vias reset the baseline.
		{Metric{0, 2, 110}, Metric{0, 1, 130}, true, 130},
		{Metric{0, 1, 130}, Metric{0, 2, 10}, false, 130},
		{Metric{0, 1, 130}, Metric{1, 0, 10}, false, 130},
	}
	for i, s := range steps {
		if got := o.accept(s.before, s.after); got != s.want {
			t.Errorf("step %d: accept = %v, want %v", i, got, s.want)
		}
		if o.baseline != s.baseline {
			t.Errorf("step %d: baseline = %v, want %v", i, o.baseline, s.baseline)
		}
	}
}

func TestSortedRouteItemCursor(t *testing.T) {
	b := testutil.Board(2, 1)
	t1 := b.Add(board.NewTrace(1, 0, geom.Pt(3000, 1000), geom.Pt(4000, 1000), 50, 0, board.Unfixed))
	v := b.Add(board.NewVia(1, geom.Pt(1000, 1000), 150, 0, 1, 0, board.Unfixed))
	t2 := b.Add(board.NewTrace(1, 0, geom.Pt(1000, 1000), geom.Pt(1000, 2000), 50, 0, board.Unfixed))
	t3 := b.Add(board.NewTrace(1, 1, geom.Pt(1000, 500), geom.Pt(2000, 500), 50, 0, board.Unfixed))
	t4 := b.Add(board.NewTrace(1, 0, geom.Pt(5000, 1000), geom.Pt(6000, 1000), 50, 0, board.Unfixed))
	testutil.SMD(b, "U1", 1, 500, 500)
	b.Add(board.NewVia(1, geom.Pt(200, 3000), 150, 0, 1, 0, board.UserFixed))
	b.Add(board.NewTrace(1, 0, geom.Pt(300, 4000), geom.Pt(300, 4500), 50, 0, board.ShoveFixed))
	sv := b.Add(board.NewVia(1, geom.Pt(7000, 1000), 150, 0, 1, 0, board.ShoveFixed))

	c := NewSortedRouteItemCursor(b)
	var got []board.ItemID
	for it := c.Next(); it != nil; it = c.Next() {
		got = append(got, it.ID)
		if it.ID == t2 {
			b.Remove(t1)
			b.Add(board.NewTrace(1, 0, geom.Pt(900, 0), geom.Pt(900, 100), 50, 0, board.Unfixed))
		}
	}
	want := []board.ItemID{t3, v, t2, t4, sv}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func TestWeightedLength(t *testing.T) {
	b := testutil.Board(1, 1)
	b.Add(board.NewTrace(1, 0, geom.Pt(0, 0), geom.Pt(1000, 0), 50, 0, board.Unfixed))
	b.Add(board.NewTrace(1, 0, geom.Pt(0, 100), geom.Pt(1000, 100), 50, 0, board.ShoveFixed))
	b.Add(board.NewTrace(1, 0, geom.Pt(0, 200), geom.Pt(1000, 200), 50, 0, board.UserFixed))
	if got, want := WeightedLength(b), 1000*100+500*100.0; got != want {
		t.Errorf("WeightedLength = %v, want %v", got, want)
	}
}

func TestPipelineRun(t *testing.T) {
	b, _, _ := straightBoard()
	j := quietJob(b)
	progress := make(chan Progress, 256)
	j.Progress = progress

	sum := <-NewPipeline(j).Start()
	if sum.Interrupted || sum.Unrouted != 0 || sum.Outcome != Converged {
		t.Errorf("summary = %+v", sum)
	}
	if !strings.HasPrefix(sum.String(), "completed") {
		t.Errorf("summary string %q", sum.String())
	}
	close(progress)
	phases := make(map[Phase]bool)
	for p := range progress {
		phases[p.Phase] = true
	}
	if !phases[PhaseAutoroute] || !phases[PhaseDone] {
		t.Errorf("progress phases = %v", phases)
	}
}

func TestPipelineInterrupted(t *testing.T) {
	b, _, _ := straightBoard()
	p := NewPipeline(quietJob(b))
	p.RequestStop()
	sum := p.Run()
	if !sum.Interrupted || !strings.HasPrefix(sum.String(), "interrupted") {
		t.Errorf("summary = %v", sum)
	}
	if sum.Unrouted != 1 {
		t.Errorf("unrouted = %d, want 1", sum.Unrouted)
	}
}

func TestAirline(t *testing.T) {
	b, p1, p2 := straightBoard()
	j := quietJob(b)
	j.setAirline([]board.ItemID{p1}, []board.ItemID{p2})
	line, ok := j.AirLine()
	if !ok || line != geom.Seg(geom.Pt(1000, 5000), geom.Pt(9000, 5000)) {
		t.Errorf("AirLine() = %v, %v", line, ok)
	}
	j.clearAirline()
	if _, ok := j.AirLine(); ok {
		t.Error("airline not cleared")
	}
}
