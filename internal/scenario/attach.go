package scenario

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/attach"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/sim"
	"github.com/san-kum/grapple/internal/world"
)

const orbitRadius = 1.0

// attachScene drives a target around a unit circle, spinning it about z,
// and follows it three ways: an instant copy, a spring that lags behind,
// and a mirror that counter-rotates in place.
func attachScene(env *Env) error {
	w := env.World()
	phase := env.Rand.Float64() * 2 * math.Pi

	target := env.Marker("target", orbit(phase), dynamo.Null)
	instant := env.Marker("instant", mgl64.Vec3{}, dynamo.Null)
	lagging := env.Marker("spring", mgl64.Vec3{}, dynamo.Null)
	mirror := env.Marker("mirror", mgl64.Vec3{0, -2, 0}, dynamo.Null)

	store := world.GetStore[attach.Attach](w)
	store.Set(instant, attach.To(target))
	store.Set(lagging, attach.Attach{
		Target:      target,
		Translation: attach.Spring(env.Config.Attach.Strength, env.Config.Attach.DampRatio),
		Rotation:    attach.Instant(),
	})
	store.Set(mirror, attach.Attach{Target: target, Rotation: attach.Inverse()})

	env.Sim.AddScript(func(s *sim.Simulator) {
		angle := phase + s.Time()
		t := dynamo.NewTransform(orbit(angle)).WithRotation(mgl64.QuatRotate(angle, mgl64.Vec3{0, 0, 1}))
		s.World.SetTransform(target, t)
	})

	env.Sim.AddProbe("target_x", func(sim.Frame) float64 { return env.Position(target).X() })
	env.Sim.AddProbe("instant_x", func(sim.Frame) float64 { return env.Position(instant).X() })
	env.Sim.AddProbe("spring_x", func(sim.Frame) float64 { return env.Position(lagging).X() })
	env.Sim.AddProbe("spring_lag", func(sim.Frame) float64 { return env.Distance(lagging, target) })
	return nil
}

func orbit(angle float64) mgl64.Vec3 {
	return mgl64.Vec3{orbitRadius * math.Cos(angle), orbitRadius * math.Sin(angle), 0}
}
