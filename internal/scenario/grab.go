package scenario

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/grab"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/sim"
	"github.com/san-kum/grapple/internal/world"
)

// grabScene: both hands of a static character try to grab from the start.
// The right one touches a crate, the left one only a pole that refuses to
// be grabbed. The right hand lets go at three seconds.
func grabScene(env *Env) error {
	w := env.World()

	torso := env.Static("torso", mgl64.Vec3{0, 1.5, 0}, 0.25)
	world.GetStore[grab.Character](w).Set(torso, grab.Character{})

	left := env.hand("left_hand", torso, mgl64.Vec3{-0.4, 0, 0})
	right := env.hand("right_hand", torso, mgl64.Vec3{0.4, 0, 0})

	crate := env.Ball("crate", mgl64.Vec3{0.67, 1.5, 0}.Add(env.Jitter(0.005)), 2, 0.2)
	pole := env.Static("pole", mgl64.Vec3{-0.57, 1.5, 0}, 0.1)
	world.GetStore[grab.NotGrabbable](w).Set(pole, grab.NotGrabbable{})

	env.At(3, func(s *sim.Simulator) {
		grab.SetIntent(s.World, right, false)
	})

	env.Sim.AddProbe("crate_y", func(sim.Frame) float64 { return env.Position(crate).Y() })
	env.Sim.AddProbe("grab_joints", func(f sim.Frame) float64 {
		n := 0
		for _, j := range f.Engine.Joints() {
			if j.Tag == physics.TagGrab && (j.Parent == left || j.Parent == right) {
				n++
			}
		}
		return float64(n)
	})
	env.Sim.AddProbe("grab_sphere", func(sim.Frame) float64 {
		sphere, ok := env.Sim.Query().SphereWithHistory(torso, env.Sim.History)
		if !ok {
			return 0
		}
		return sphere.Radius
	})
	return nil
}

func (e *Env) hand(name string, torso dynamo.Entity, offset mgl64.Vec3) dynamo.Entity {
	h := e.Marker(name, offset, torso)
	e.Engine.AddBody(h, physics.BodyDesc{Radius: 0.08})
	world.GetStore[grab.Grabbing](e.World()).Set(h, grab.Grabbing{TryingGrab: true})
	return h
}
