package batch

import (
	"errors"
	"fmt"
	"time"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/autoroute"
)

// Settings controls the batch stages.
type Settings struct {
	// Cost factors per layer. Missing layers use alternating preferred
	// directions, horizontal on the top layer.
	TraceCosts   []autoroute.LayerCost
	ViaCost      float64
	PlaneViaCost float64

	StartRipupCost float64
	ViasAllowed    bool
	SMDDrillable   bool

	MaxPasses           int // autoroute passes, 0 for no limit
	MaxFanoutPasses     int
	MaxOptimizeSweeps   int // 0 for no limit
	OptimizeRoutePasses int // reroute passes per optimized item

	// Stages run by Pipeline in the order fanout, autoroute, postroute.
	// Fanout is off by default: it only pays off on dense SMD boards and is
	// enabled with "fanout on" in a settings file or otr route --fanout.
	WithFanout    bool
	WithAutoroute bool
	WithPostroute bool

	RemoveTails   bool
	PullTightTime time.Duration
	FanoutTime    time.Duration
}

// DefaultSettings returns the settings used when no settings file is given.
func DefaultSettings() *Settings {
	return &Settings{
		ViaCost:             50,
		PlaneViaCost:        5,
		StartRipupCost:      100,
		ViasAllowed:         true,
		MaxPasses:           99,
		MaxFanoutPasses:     20,
		MaxOptimizeSweeps:   0,
		OptimizeRoutePasses: 6,
		WithFanout:          false,
		WithAutoroute:       true,
		WithPostroute:       true,
		RemoveTails:         true,
		PullTightTime:       2 * time.Second,
		FanoutTime:          5 * time.Second,
	}
}

var errNegative = errors.New("must not be negative")

// Validate checks the settings and fills in zero limits.
func (s *Settings) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"via cost", s.ViaCost},
		{"plane via cost", s.PlaneViaCost},
		{"start ripup cost", s.StartRipupCost},
		{"max passes", float64(s.MaxPasses)},
		{"max optimize sweeps", float64(s.MaxOptimizeSweeps)},
	}
	for _, c := range checks {
		if c.v < 0 {
			return fmt.Errorf("batch: %s %v: %w", c.name, c.v, errNegative)
		}
	}
	for i, lc := range s.TraceCosts {
		if lc.Horizontal <= 0 || lc.Vertical <= 0 {
			return fmt.Errorf("batch: trace cost of layer %d must be positive", i)
		}
	}
	if s.MaxFanoutPasses <= 0 {
		s.MaxFanoutPasses = 20
	}
	if s.OptimizeRoutePasses <= 0 {
		s.OptimizeRoutePasses = 6
	}
	if s.FanoutTime <= 0 {
		s.FanoutTime = 5 * time.Second
	}
	return nil
}
