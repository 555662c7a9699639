package autoroute

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/board"
)

// LayerCost holds the cost per unit of length in both directions on one
// layer. A lower horizontal cost makes horizontal the preferred direction.
type LayerCost struct {
	Horizontal float64
	Vertical   float64
}

// Stopper is polled for cooperative cancellation.
type Stopper interface {
	IsStopRequested() bool
}

// StopFlag is a Stopper that can be raised from any goroutine.
type StopFlag struct {
	stop atomic.Bool
}

// RequestStop raises the flag.
func (s *StopFlag) RequestStop() { s.stop.Store(true) }

// IsStopRequested reports whether the flag was raised.
func (s *StopFlag) IsStopRequested() bool { return s.stop.Load() }

// Deadline is an advisory point in time. The zero value never expires.
type Deadline struct {
	at time.Time
}

// NewDeadline returns a deadline d from now.
func NewDeadline(d time.Duration) Deadline {
	return Deadline{at: time.Now().Add(d)}
}

// Expired reports whether the deadline has passed.
func (d Deadline) Expired() bool {
	return !d.at.IsZero() && time.Now().After(d.at)
}

// Time returns the deadline, zero if it never expires.
func (d Deadline) Time() time.Time {
	return d.at
}

// Control holds the parameters of one connection search.
type Control struct {
	Net       int
	Class     int
	HalfWidth int64
	ViaRadius int64
	Clearance int64

	TraceCosts   []LayerCost
	ViaCost      float64
	PlaneViaCost float64
	ViasAllowed  bool
	SMDDrillable bool

	RipupAllowed bool
	RipupCosts   float64

	Grid     int64
	Deadline Deadline
	Stop     Stopper
}

// NewControl creates a control for net with the rules of its class and
// alternating preferred directions, horizontal on the top layer.
func NewControl(b *board.Board, net int) *Control {
	class := b.NetClass(net)
	costs := make([]LayerCost, b.LayerCount())
	for i := range costs {
		if i%2 == 0 {
			costs[i] = LayerCost{Horizontal: 1, Vertical: 2}
		} else {
			costs[i] = LayerCost{Horizontal: 2, Vertical: 1}
		}
	}
	return &Control{
		Net:          net,
		Class:        class,
		HalfWidth:    b.Rules.HalfWidth(class),
		ViaRadius:    b.Rules.ViaRadiusOf(class),
		Clearance:    b.Rules.ClearanceBetween(class, class),
		TraceCosts:   costs,
		ViaCost:      50,
		PlaneViaCost: 5,
		ViasAllowed:  b.LayerCount() > 1,
		RipupAllowed: true,
		RipupCosts:   100,
		Grid:         1,
	}
}

// pitch is the length unit of all costs: one trace width plus clearance.
func (c *Control) pitch() float64 {
	return float64(max(2*c.HalfWidth+c.Clearance, 1))
}

func (c *Control) layerCost(layer int) LayerCost {
	if layer >= 0 && layer < len(c.TraceCosts) {
		return c.TraceCosts[layer]
	}
	return LayerCost{Horizontal: 1, Vertical: 1}
}

func (c *Control) stopped() bool {
	return c.Stop != nil && c.Stop.IsStopRequested()
}

func (c *Control) validate(layers int) error {
	if c.Net <= 0 {
		return fmt.Errorf("autoroute: invalid net %d", c.Net)
	}
	if c.HalfWidth <= 0 {
		return fmt.Errorf("autoroute: net %d has no trace width", c.Net)
	}
	if len(c.TraceCosts) < layers {
		return fmt.Errorf("autoroute: %d trace costs for %d layers", len(c.TraceCosts), layers)
	}
	return nil
}
