// Package integrators steps [dynamo.System] state vectors forward in time.
//
// The reference physics engine uses them for body motion and the attach
// followers use them for spring-driven channels. Integrators keep scratch
// buffers and are not safe for concurrent use; create one per goroutine.
package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/grapple/internal/dynamo"
)

type Integrator interface {
	Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State
}

const Default = "semi_implicit"

var registry = map[string]func() Integrator{
	"euler":         func() Integrator { return NewEuler() },
	"semi_implicit": func() Integrator { return NewSemiImplicit() },
	"verlet":        func() Integrator { return NewVerlet() },
	"rk4":           func() Integrator { return NewRK4() },
}

// New returns a fresh integrator by name. An empty name selects Default.
func New(name string) (Integrator, error) {
	if name == "" {
		name = Default
	}
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
