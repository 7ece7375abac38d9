package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/grapple/internal/attach"
	"github.com/san-kum/grapple/internal/control"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/grab"
	"github.com/san-kum/grapple/internal/integrators"
	"github.com/san-kum/grapple/internal/joint"
	"github.com/san-kum/grapple/internal/logging"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/relation"
	"github.com/san-kum/grapple/internal/slot"
	"github.com/san-kum/grapple/internal/world"
	"go.uber.org/zap"
)

// StagePhysics is reported in TickError when a step leaves a non-finite
// transform behind.
const StagePhysics = "physics"

type Option func(*Simulator)

func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) { s.log = l }
}

func WithGrabConfig(c grab.Config) Option {
	return func(s *Simulator) { s.grabCfg = c }
}

func WithSlotConfig(c slot.Config) Option {
	return func(s *Simulator) { s.slotCfg = c }
}

// WithAttachIntegrator selects the integrator spring followers use.
func WithAttachIntegrator(name string) Option {
	return func(s *Simulator) { s.attachInteg = name }
}

// WithHistory keeps the last n grab anchors of every character.
func WithHistory(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.History = grab.NewHistory(n)
		}
	}
}

// Simulator owns one world and runs every system over it in a fixed stage
// order. It is not safe for concurrent use.
type Simulator struct {
	World    *world.World
	Engine   physics.Engine
	Index    *relation.Index
	Commands *physics.Commands

	Grab    *grab.System
	Slots   *slot.System
	Muscles *control.MuscleSystem
	Joints  *joint.System
	Attach  *attach.System
	History *grab.History

	log         *zap.Logger
	grabCfg     grab.Config
	slotCfg     slot.Config
	attachInteg string

	scripts   []Script
	metrics   []Metric
	observers []Observer
	probes    []Probe

	tick int
	time float64
}

func New(w *world.World, eng physics.Engine, opts ...Option) *Simulator {
	s := &Simulator{
		World:       w,
		Engine:      eng,
		Index:       relation.NewIndex(),
		Commands:    &physics.Commands{},
		log:         zap.NewNop(),
		grabCfg:     grab.DefaultConfig(),
		slotCfg:     slot.DefaultConfig(),
		attachInteg: integrators.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.OrNop(s.log)

	graph := relation.Graph{World: w, Index: s.Index}
	s.Grab = &grab.System{
		World:    w,
		Engine:   eng,
		Graph:    graph,
		Commands: s.Commands,
		Config:   s.grabCfg,
		Log:      s.log.Named("grab"),
	}
	s.Slots = &slot.System{
		World:    w,
		Engine:   eng,
		Commands: s.Commands,
		Config:   s.slotCfg,
		Log:      s.log.Named("slot"),
	}
	s.Slots.Track()
	s.Muscles = &control.MuscleSystem{World: w, Engine: eng}
	s.Joints = &joint.System{
		World:    w,
		Engine:   eng,
		Commands: s.Commands,
		Log:      s.log.Named("joint"),
	}
	s.Attach = attach.NewSystem(w, s.attachInteg, s.log.Named("attach"))
	return s
}

func (s *Simulator) AddScript(fn Script)    { s.scripts = append(s.scripts, fn) }
func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }
func (s *Simulator) AddProbe(name string, fn func(Frame) float64) {
	s.probes = append(s.probes, Probe{Name: name, Fn: fn})
}

func (s *Simulator) Probes() []Probe   { return s.probes }
func (s *Simulator) Metrics() []Metric { return s.metrics }
func (s *Simulator) Tick() int         { return s.tick }
func (s *Simulator) Time() float64     { return s.time }
func (s *Simulator) Log() *zap.Logger  { return s.log }

// Graph is the traversal view over the current joint index.
func (s *Simulator) Graph() relation.Graph {
	return relation.Graph{World: s.World, Index: s.Index}
}

// Query answers grab sphere questions against the current state.
func (s *Simulator) Query() grab.Query {
	return grab.Query{World: s.World, Graph: s.Graph()}
}

// Step runs one tick. Joint impulses read by breakable joints come from the
// previous tick's physics step, and followers see this tick's write-back.
// A non-finite transform after the physics step stops the tick with a
// TickError.
func (s *Simulator) Step() (TickStats, error) {
	dt := s.Engine.Dt()
	stats := TickStats{Tick: s.tick}

	for _, fn := range s.scripts {
		fn(s)
	}

	s.Index.Rebuild(s.Engine.Joints())

	s.Slots.TickGrace(dt)

	s.Slots.ContactEvents()
	s.Grab.Update()
	s.Slots.Update()
	stats.Effort = s.Muscles.Update()
	s.Joints.Interpolate(dt)
	stats.Broken = s.Joints.Inspect(dt)

	stats.Inserted, stats.Removed = s.Commands.Apply(s.Engine)

	s.Engine.Step(s.World)

	if err := s.validate(); err != nil {
		return stats, err
	}

	s.Attach.Update(dt)
	if s.History != nil {
		s.History.Update(s.Query())
	}

	s.tick++
	s.time += dt
	stats.Time = s.time
	return stats, nil
}

func (s *Simulator) validate() error {
	for _, e := range s.World.Entities() {
		t, ok := s.World.Transform(e)
		if ok && !t.IsValid() {
			return &dynamo.TickError{
				Tick:    s.tick,
				Stage:   StagePhysics,
				Wrapped: fmt.Errorf("%w: %s", dynamo.ErrInvalidState, s.World.Name(e)),
			}
		}
	}
	return nil
}

// Frame pairs stats of a finished tick with the simulator's state.
func (s *Simulator) Frame(stats TickStats) Frame {
	return Frame{World: s.World, Engine: s.Engine, Stats: stats}
}

// Run steps the simulation for cfg.Duration seconds, sampling probes and
// feeding metrics and observers after every tick.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration/s.Engine.Dt() + 0.5)
	every := max(cfg.SampleEvery, 1)
	result := &Result{
		Times:   make([]float64, 0, steps/every+1),
		Samples: make(map[string][]float64, len(s.probes)),
		Metrics: make(map[string]float64, len(s.metrics)),
	}
	for _, p := range s.probes {
		result.Channels = append(result.Channels, p.Name)
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	s.log.Debug("run started", zap.Int("steps", steps), zap.Float64("dt", s.Engine.Dt()))

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			s.finish(result)
			return result, ctx.Err()
		default:
		}

		stats, err := s.Step()
		if err != nil {
			s.finish(result)
			return result, err
		}
		result.StepsTaken++

		f := s.Frame(stats)
		for _, m := range s.metrics {
			m.Observe(f)
		}
		for _, o := range s.observers {
			o.OnStep(f)
		}
		if i%every == 0 {
			result.Times = append(result.Times, stats.Time)
			for _, p := range s.probes {
				result.Samples[p.Name] = append(result.Samples[p.Name], p.Fn(f))
			}
		}
	}

	s.finish(result)
	s.log.Debug("run finished", zap.Int("steps", result.StepsTaken), zap.Uint64("digest", result.Digest))
	return result, nil
}

func (s *Simulator) finish(r *Result) {
	for _, m := range s.metrics {
		r.Metrics[m.Name()] = m.Value()
	}
	r.Digest = Digest(s.World)
}

// RunWithCallback steps until the callback returns false, the duration is
// reached or ctx is done.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(Frame) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}

	for s.time < cfg.Duration {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		stats, err := s.Step()
		if err != nil {
			return err
		}
		if !callback(s.Frame(stats)) {
			return nil
		}
	}
	return nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if s.Engine.Dt() <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrInvalidConfig, s.Engine.Dt())
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", dynamo.ErrInvalidConfig, cfg.Duration)
	}
	if cfg.SampleEvery < 0 {
		return fmt.Errorf("%w: sample_every must not be negative", dynamo.ErrInvalidConfig)
	}
	return nil
}
