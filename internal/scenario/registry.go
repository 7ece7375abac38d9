// Package scenario builds ready-to-run simulators for the named scenes the
// command line offers.
package scenario

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/config"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/logging"
	"github.com/san-kum/grapple/internal/metrics"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/sim"
	"github.com/san-kum/grapple/internal/slot"
	"github.com/san-kum/grapple/internal/world"
	"go.uber.org/zap"
)

type Scenario struct {
	Name        string
	Description string
	// Weightless scenes run without gravity whatever the config says.
	Weightless  bool
	Setup       func(env *Env) error
}

type Registry struct {
	scenarios map[string]Scenario
}

func NewRegistry() *Registry {
	r := &Registry{scenarios: make(map[string]Scenario)}

	r.Register(Scenario{
		Name:        "deposit",
		Description: "two items race into a one-slot motor deposit",
		Weightless:  true,
		Setup:       depositScene(slot.ModeMotor),
	})
	r.Register(Scenario{
		Name:        "spring_deposit",
		Description: "spring-held slot that lets go once its item is yanked away",
		Weightless:  true,
		Setup:       depositScene(slot.ModeSpring),
	})
	r.Register(Scenario{
		Name:        "grab",
		Description: "a character holds a crate, then drops it",
		Setup:       grabScene,
	})
	r.Register(Scenario{
		Name:        "muscle",
		Description: "a tense and a limp arm under gravity, swapped halfway",
		Setup:       muscleScene,
	})
	r.Register(Scenario{
		Name:        "breakable",
		Description: "a hanging chain whose joints snap under a sudden load",
		Setup:       breakableScene,
	})
	r.Register(Scenario{
		Name:        "attach",
		Description: "instant, spring and inverse followers of an orbiting target",
		Weightless:  true,
		Setup:       attachScene,
	})
	r.Register(Scenario{
		Name:        "interp",
		Description: "pendulums whose joint anchors are blended over time",
		Setup:       interpScene,
	})

	return r
}

func (r *Registry) Register(s Scenario) {
	r.scenarios[s.Name] = s
}

func (r *Registry) Get(name string) (Scenario, error) {
	s, ok := r.scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %s", dynamo.ErrUnknownScenario, name)
	}
	return s, nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build validates cfg and returns a simulator loaded with the scenario
// named by cfg.Scenario and the default metrics.
func (r *Registry) Build(cfg *config.Config, log *zap.Logger) (*sim.Simulator, error) {
	sc, err := r.Get(cfg.Scenario)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logging.OrNop(log)

	gravity := mgl64.Vec3(cfg.Gravity)
	if sc.Weightless {
		gravity = mgl64.Vec3{}
	}

	w := world.New()
	eng := physics.NewReference(cfg.Dt,
		physics.WithGravity(gravity),
		physics.WithIntegrator(cfg.Integrator),
		physics.WithIterations(cfg.Iterations),
		physics.WithLogger(log.Named("physics")),
	)
	eng.Track(w)

	s := sim.New(w, eng,
		sim.WithLogger(log),
		sim.WithGrabConfig(cfg.Grab),
		sim.WithSlotConfig(cfg.Slot),
		sim.WithAttachIntegrator(cfg.Integrator),
		sim.WithHistory(cfg.History),
	)

	env := &Env{
		Sim:    s,
		Engine: eng,
		Config: cfg,
		Rand:   rand.New(rand.NewSource(cfg.Seed)),
	}
	if err := sc.Setup(env); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}

	log.Debug("scenario built",
		zap.String("scenario", sc.Name),
		zap.Int64("seed", cfg.Seed),
		zap.Int("entities", len(w.Entities())),
	)
	return s, nil
}

// Builder adapts the registry to seeded ensemble runs over cfg.
func (r *Registry) Builder(cfg *config.Config, log *zap.Logger) sim.Builder {
	return func(seed int64) (*sim.Simulator, error) {
		c := *cfg
		c.Seed = seed
		return r.Build(&c, log)
	}
}
