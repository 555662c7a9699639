package batch

import (
	"context"
	"image/color"
	"log"
	"math"
	"sync"
	"time"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/autoroute"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/geom"
)

// Phase names a batch stage in progress reports.
type Phase string

const (
	PhaseFanout    Phase = "fanout"
	PhaseAutoroute Phase = "autoroute"
	PhaseOptimize  Phase = "optimize"
	PhaseDone      Phase = "done"
)

// Progress reports the state of a running stage.
type Progress struct {
	Phase  Phase
	Pass   int
	ToGo   int // items left in the current pass
	Routed int
	Ripped int
	Failed int
}

// Job is the state shared by the stages of one batch run: the board, its
// routing engine, the stop flag and the progress accessors.
type Job struct {
	Board    *board.Board
	Settings *Settings
	Logger   *log.Logger

	// Progress receives stage updates when not nil. Sends block until the
	// update is received or the context is done.
	Progress chan<- Progress

	ctx    context.Context
	engine *autoroute.Engine
	stop   autoroute.StopFlag

	mu         sync.Mutex
	airline    geom.Segment
	hasAirline bool
	position   geom.Point
}

// NewJob creates a job for b. A nil logger logs to log.Default().
func NewJob(ctx context.Context, b *board.Board, s *Settings, logger *log.Logger) *Job {
	if logger == nil {
		logger = log.Default()
	}
	if s == nil {
		s = DefaultSettings()
	}
	return &Job{
		Board:    b,
		Settings: s,
		Logger:   logger,
		ctx:      ctx,
		engine:   autoroute.NewEngine(b, logger),
	}
}

// RequestStop asks the worker to stop at its next checkpoint. It is safe
// to call from any goroutine.
func (j *Job) RequestStop() {
	j.stop.RequestStop()
}

// IsStopRequested reports whether a stop was requested or the context is
// done.
func (j *Job) IsStopRequested() bool {
	return j.stop.IsStopRequested() || j.ctx.Err() != nil
}

// AirLine returns the straight line between the terminals of the
// connection being routed.
func (j *Job) AirLine() (geom.Segment, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.airline, j.hasAirline
}

// CurrentPosition returns the position of the item being processed.
func (j *Job) CurrentPosition() geom.Point {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.position
}

func (j *Job) setPosition(p geom.Point) {
	j.mu.Lock()
	j.position = p
	j.mu.Unlock()
}

// setAirline computes the shortest line between an item of from and an
// item of to.
func (j *Job) setAirline(from, to []board.ItemID) {
	best := math.Inf(1)
	var line geom.Segment
	for _, a := range from {
		ia := j.Board.Item(a)
		if ia == nil || !ia.IsConnectable() {
			continue
		}
		for _, b := range to {
			ib := j.Board.Item(b)
			if ib == nil {
				continue
			}
			if d := float64(ia.Position().DistanceSquared(ib.Position())); d < best {
				best = d
				line = geom.Seg(ia.Position(), ib.Position())
			}
		}
	}
	j.mu.Lock()
	j.airline, j.hasAirline = line, !math.IsInf(best, 1)
	j.mu.Unlock()
}

func (j *Job) clearAirline() {
	j.mu.Lock()
	j.hasAirline = false
	j.mu.Unlock()
}

func (j *Job) report(p Progress) {
	if j.Progress == nil {
		return
	}
	select {
	case j.Progress <- p:
	case <-j.ctx.Done():
	}
}

// control builds the search parameters for net.
func (j *Job) control(net int, ripup float64, budget time.Duration) *autoroute.Control {
	s := j.Settings
	ctl := autoroute.NewControl(j.Board, net)
	for i, n := 0, min(len(s.TraceCosts), len(ctl.TraceCosts)); i < n; i++ {
		ctl.TraceCosts[i] = s.TraceCosts[i]
	}
	ctl.ViaCost = s.ViaCost
	ctl.PlaneViaCost = s.PlaneViaCost
	ctl.ViasAllowed = ctl.ViasAllowed && s.ViasAllowed
	ctl.SMDDrillable = s.SMDDrillable
	ctl.RipupCosts = ripup
	ctl.RipupAllowed = ripup > 0
	ctl.Stop = j
	if budget > 0 {
		ctl.Deadline = autoroute.NewDeadline(budget)
	}
	return ctl
}

var airlineColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Draw paints the region graph of layer and the current airline.
func (j *Job) Draw(g autoroute.Graphics, layer int) {
	j.engine.Draw(g, layer)
	if line, ok := j.AirLine(); ok {
		g.DrawLine(line.A, line.B, 0, airlineColor)
	}
}
