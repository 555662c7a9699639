package rules

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/autoroute"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/batch"
)

var (
	// ErrUnknownOption is returned for option keys the router does not know.
	ErrUnknownOption = errors.New("unknown option")
	// ErrUnknownLayer is returned for layer blocks naming no board layer.
	ErrUnknownLayer = errors.New("unknown layer")
	// ErrValueType is returned when an option has a value of the wrong kind.
	ErrValueType = errors.New("wrong value type")
)

// Apply writes the settings of f into s. layers are the signal layer names
// of the board in stack order.
func Apply(f *File, s *batch.Settings, layers []string) error {
	for _, l := range f.Layers() {
		i := slices.Index(layers, l.Name)
		if i < 0 {
			return fmt.Errorf("rules: layer %q: %w", l.Name, ErrUnknownLayer)
		}
		for len(s.TraceCosts) < len(layers) {
			s.TraceCosts = append(s.TraceCosts, defaultCost(len(s.TraceCosts)))
		}
		for _, c := range l.Costs {
			if c.Direction == "horizontal" {
				s.TraceCosts[i].Horizontal = c.Value
			} else {
				s.TraceCosts[i].Vertical = c.Value
			}
		}
	}
	for _, o := range f.Options() {
		if err := applyOption(o, s); err != nil {
			return fmt.Errorf("rules: %s: %w", o.Key, err)
		}
	}
	return s.Validate()
}

func defaultCost(layer int) autoroute.LayerCost {
	if layer%2 == 0 {
		return autoroute.LayerCost{Horizontal: 1, Vertical: 2}
	}
	return autoroute.LayerCost{Horizontal: 2, Vertical: 1}
}

func applyOption(o *Option, s *batch.Settings) error {
	v := o.Value
	switch o.Key {
	case "via_cost":
		return number(v, &s.ViaCost)
	case "plane_via_cost":
		return number(v, &s.PlaneViaCost)
	case "start_ripup_cost":
		return number(v, &s.StartRipupCost)
	case "max_passes":
		return integer(v, &s.MaxPasses)
	case "max_fanout_passes":
		return integer(v, &s.MaxFanoutPasses)
	case "max_optimize_sweeps":
		return integer(v, &s.MaxOptimizeSweeps)
	case "optimize_route_passes":
		return integer(v, &s.OptimizeRoutePasses)
	case "fanout":
		return flag(v, &s.WithFanout)
	case "autoroute":
		return flag(v, &s.WithAutoroute)
	case "postroute":
		return flag(v, &s.WithPostroute)
	case "smd_drillable":
		return flag(v, &s.SMDDrillable)
	case "vias":
		return flag(v, &s.ViasAllowed)
	case "remove_tails":
		return flag(v, &s.RemoveTails)
	case "pull_tight_time":
		return duration(v, &s.PullTightTime)
	case "fanout_time":
		return duration(v, &s.FanoutTime)
	}
	return ErrUnknownOption
}

func number(v *Value, dst *float64) error {
	if v.Number == nil {
		return ErrValueType
	}
	*dst = *v.Number
	return nil
}

func integer(v *Value, dst *int) error {
	if v.Number == nil || *v.Number != float64(int(*v.Number)) {
		return ErrValueType
	}
	*dst = int(*v.Number)
	return nil
}

func flag(v *Value, dst *bool) error {
	if v.Switch == nil {
		return ErrValueType
	}
	*dst = *v.Switch == "on" || *v.Switch == "true"
	return nil
}

// duration accepts a duration literal or a number of seconds.
func duration(v *Value, dst *time.Duration) error {
	switch {
	case v.Duration != nil:
		d, err := time.ParseDuration(*v.Duration)
		if err != nil {
			return err
		}
		*dst = d
	case v.Number != nil:
		*dst = time.Duration(*v.Number * float64(time.Second))
	default:
		return ErrValueType
	}
	return nil
}

// Load parses the settings file at path and applies it to s.
func Load(path string, s *batch.Settings, layers []string) error {
	p, err := NewParser()
	if err != nil {
		return err
	}
	f, err := p.ParseFile(path)
	if err != nil {
		return err
	}
	return Apply(f, s, layers)
}
