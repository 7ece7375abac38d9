package scenario

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/config"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/sim"
	"github.com/san-kum/grapple/internal/world"
)

// Env is what a scene's setup gets to populate.
type Env struct {
	Sim    *sim.Simulator
	Engine *physics.Reference
	Config *config.Config
	Rand   *rand.Rand
}

func (e *Env) World() *world.World { return e.Sim.World }

// Ball spawns a dynamic sphere.
func (e *Env) Ball(name string, at mgl64.Vec3, mass, radius float64) dynamo.Entity {
	ent := e.World().SpawnNamed(name, dynamo.NewTransform(at))
	e.Engine.AddBody(ent, physics.BodyDesc{Mass: dynamo.SphereMassProps(mass, radius), Radius: radius})
	return ent
}

// Static spawns an immovable sphere that still collides.
func (e *Env) Static(name string, at mgl64.Vec3, radius float64) dynamo.Entity {
	ent := e.World().SpawnNamed(name, dynamo.NewTransform(at))
	e.Engine.AddBody(ent, physics.BodyDesc{Radius: radius})
	return ent
}

func (e *Env) Sensor(name string, at mgl64.Vec3, radius float64) dynamo.Entity {
	ent := e.World().SpawnNamed(name, dynamo.NewTransform(at))
	e.Engine.AddBody(ent, physics.BodyDesc{Sensor: true, Radius: radius})
	return ent
}

// Marker spawns a bodiless entity, optionally parented.
func (e *Env) Marker(name string, at mgl64.Vec3, parent dynamo.Entity) dynamo.Entity {
	ent := e.World().SpawnNamed(name, dynamo.NewTransform(at))
	if !parent.IsNull() {
		e.World().SetParent(ent, parent)
	}
	return ent
}

// Jitter returns a random offset with every component in [-scale, scale).
func (e *Env) Jitter(scale float64) mgl64.Vec3 {
	return mgl64.Vec3{
		(e.Rand.Float64()*2 - 1) * scale,
		(e.Rand.Float64()*2 - 1) * scale,
		(e.Rand.Float64()*2 - 1) * scale,
	}
}

// At runs fn once, on the first tick starting at or after t seconds.
func (e *Env) At(t float64, fn sim.Script) {
	done := false
	e.Sim.AddScript(func(s *sim.Simulator) {
		if !done && s.Time() >= t-1e-9 {
			done = true
			fn(s)
		}
	})
}

// Position is the global translation of ent, or zero once it is gone.
func (e *Env) Position(ent dynamo.Entity) mgl64.Vec3 {
	g, ok := e.World().GlobalTransform(ent)
	if !ok {
		return mgl64.Vec3{}
	}
	return g.Translation
}

func (e *Env) Distance(a, b dynamo.Entity) float64 {
	return e.Position(a).Sub(e.Position(b)).Len()
}

// Find returns the first entity of w carrying name.
func Find(w *world.World, name string) (dynamo.Entity, bool) {
	for _, e := range w.Entities() {
		if w.Name(e) == name {
			return e, true
		}
	}
	return dynamo.Null, false
}
