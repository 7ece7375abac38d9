package scenario

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/joint"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/sim"
	"github.com/san-kum/grapple/internal/world"
)

const (
	chainLinks = 3
	linkGap    = 0.5
)

// breakableScene hangs a chain of breakable links from a fixed hook. The
// bottom weight is struck downwards at two seconds.
func breakableScene(env *Env) error {
	w := env.World()
	bc := env.Config.Breakable
	impulse := mgl64.Vec3{bc.ImpulseThreshold, bc.ImpulseThreshold, bc.ImpulseThreshold}
	torque := mgl64.Vec3{bc.TorqueThreshold, bc.TorqueThreshold, bc.TorqueThreshold}

	parent := env.Marker("hook", mgl64.Vec3{0, 3, 0}, dynamo.Null)
	var weight dynamo.Entity
	for i := 1; i <= chainLinks; i++ {
		at := mgl64.Vec3{0, 3 - linkGap*float64(i), 0}.Add(env.Jitter(0.01))
		link := env.Ball(linkName(i), at, 1, 0.1)
		id := env.Engine.InsertJoint(physics.Joint{
			Child:  link,
			Parent: parent,
			Kind:   physics.NewSpherical(mgl64.Vec3{0, linkGap, 0}, mgl64.Vec3{}),
			Tag:    physics.TagScene,
		})
		world.GetStore[joint.Breakable](w).Set(link, joint.Breakable{
			Joint:            id,
			ImpulseThreshold: impulse,
			TorqueThreshold:  torque,
			GracePeriod:      bc.GracePeriod,
		})
		parent, weight = link, link
	}

	env.At(2, func(s *sim.Simulator) {
		env.Engine.ApplyImpulse(weight, mgl64.Vec3{0, -20, 0}, mgl64.Vec3{})
	})

	env.Sim.AddProbe("joints", func(f sim.Frame) float64 { return float64(len(f.Engine.Joints())) })
	env.Sim.AddProbe("weight_y", func(sim.Frame) float64 { return env.Position(weight).Y() })
	env.Sim.AddProbe("stress", func(f sim.Frame) float64 { return joint.MaxStress(f.World, f.Engine) })
	return nil
}

func linkName(i int) string {
	return fmt.Sprintf("link%d", i)
}
