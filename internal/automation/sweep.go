package automation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/grapple/internal/config"
	"github.com/san-kum/grapple/internal/scenario"
	"github.com/san-kum/grapple/internal/sim"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var params = map[string]func(c *config.Config, v float64){
	"grab.motor_stiffness":        func(c *config.Config, v float64) { c.Grab.MotorStiffness = v },
	"grab.motor_damping":          func(c *config.Config, v float64) { c.Grab.MotorDamping = v },
	"grab.max_torque":             func(c *config.Config, v float64) { c.Grab.MaxTorque = v },
	"slot.stiffness":              func(c *config.Config, v float64) { c.Slot.Stiffness = v },
	"slot.damping":                func(c *config.Config, v float64) { c.Slot.Damping = v },
	"slot.grace_period":           func(c *config.Config, v float64) { c.Slot.GracePeriod = v },
	"slot.spring.strength":        func(c *config.Config, v float64) { c.Slot.Spring.Strength = v },
	"slot.spring.damp_ratio":      func(c *config.Config, v float64) { c.Slot.Spring.DampRatio = v },
	"slot.spring.break_distance":  func(c *config.Config, v float64) { c.Slot.Spring.BreakDistance = v },
	"muscle.strength":             func(c *config.Config, v float64) { c.Muscle.Strength = v },
	"muscle.damp_ratio":           func(c *config.Config, v float64) { c.Muscle.DampRatio = v },
	"breakable.impulse_threshold": func(c *config.Config, v float64) { c.Breakable.ImpulseThreshold = v },
	"breakable.torque_threshold":  func(c *config.Config, v float64) { c.Breakable.TorqueThreshold = v },
	"breakable.grace_period":      func(c *config.Config, v float64) { c.Breakable.GracePeriod = v },
	"attach.strength":             func(c *config.Config, v float64) { c.Attach.Strength = v },
	"attach.damp_ratio":           func(c *config.Config, v float64) { c.Attach.DampRatio = v },
}

// SetParam writes one numeric config field addressed by its yaml path.
func SetParam(c *config.Config, name string, v float64) error {
	set, ok := params[name]
	if !ok {
		return fmt.Errorf("unknown parameter %q (have %v)", name, ParamNames())
	}
	set(c, v)
	return nil
}

func ParamNames() []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sweep runs Base once per value of Param and records Metric.
type Sweep struct {
	Base   *config.Config
	Param  string
	Values []float64
	Metric string
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

type SweepPoint struct {
	Value  float64
	Metric float64
	Digest uint64
}

// RunSweep evaluates every value in parallel and returns the points in
// value order.
func RunSweep(ctx context.Context, reg *scenario.Registry, sw Sweep, workers int) ([]SweepPoint, error) {
	if _, ok := params[sw.Param]; !ok {
		return nil, fmt.Errorf("unknown parameter %q", sw.Param)
	}
	points := make([]SweepPoint, len(sw.Values))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, v := range sw.Values {
		g.Go(func() error {
			cfg := *sw.Base
			_ = SetParam(&cfg, sw.Param, v)
			s, err := reg.Build(&cfg, zap.NewNop())
			if err != nil {
				return fmt.Errorf("%s=%g: %w", sw.Param, v, err)
			}
			res, err := s.Run(ctx, sim.Config{Duration: cfg.Duration, SampleEvery: cfg.SampleEvery})
			if err != nil {
				return fmt.Errorf("%s=%g: %w", sw.Param, v, err)
			}
			m, ok := res.Metrics[sw.Metric]
			if !ok {
				return fmt.Errorf("unknown metric %q", sw.Metric)
			}
			points[i] = SweepPoint{Value: v, Metric: m, Digest: res.Digest}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// Best returns the point with the lowest metric, ignoring NaNs.
func Best(points []SweepPoint) (SweepPoint, bool) {
	best, found := SweepPoint{Metric: math.Inf(1)}, false
	for _, p := range points {
		if !math.IsNaN(p.Metric) && p.Metric < best.Metric {
			best, found = p, true
		}
	}
	return best, found
}
