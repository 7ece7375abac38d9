package scenario

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/joint"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/sim"
	"github.com/san-kum/grapple/internal/world"
)

const interpDuration = 3.0

// interpScene swings two pendulums while their rods change length: the
// winch pays out from 1 to 2 on a spherical joint, the crank reels in from
// 1.5 to 0.5 on a revolute one.
func interpScene(env *Env) error {
	winch := env.pendulum("winch", mgl64.Vec3{-1, 3, 0},
		physics.NewSpherical(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{}),
		physics.NewSpherical(mgl64.Vec3{0, 2, 0}, mgl64.Vec3{}),
	)
	crank := env.pendulum("crank", mgl64.Vec3{1, 3, 0},
		physics.NewRevolute(mgl64.Vec3{0, 1.5, 0}, mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}),
		physics.NewRevolute(mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}),
	)

	env.Sim.AddProbe("winch_len", func(sim.Frame) float64 { return env.Distance(winch.bob, winch.pivot) })
	env.Sim.AddProbe("crank_len", func(sim.Frame) float64 { return env.Distance(crank.bob, crank.pivot) })
	env.Sim.AddProbe("winch_x", func(sim.Frame) float64 { return env.Position(winch.bob).X() })
	return nil
}

type pendulum struct {
	pivot, bob dynamo.Entity
}

// pendulum hangs a bob under pivotAt using start and blends the joint into
// end over interpDuration. Both kinds keep the parent anchor on the pivot.
func (e *Env) pendulum(name string, pivotAt mgl64.Vec3, start, end physics.JointKind) pendulum {
	pivot := e.Marker(name+"_pivot", pivotAt, dynamo.Null)
	rod, _ := physics.Anchors(start)
	bob := e.Ball(name+"_bob", pivotAt.Sub(rod), 1, 0.1)
	e.Engine.SetVelocity(bob, dynamo.Velocity{Linear: mgl64.Vec3{1 + e.Jitter(0.1).X(), 0, 0}})

	id := e.Engine.InsertJoint(physics.Joint{Child: bob, Parent: pivot, Kind: start, Tag: physics.TagScene})
	world.GetStore[joint.Interpolation](e.World()).Set(bob, joint.Interpolation{
		Joint:    id,
		Start:    start,
		End:      end,
		Duration: interpDuration,
	})
	return pendulum{pivot: pivot, bob: bob}
}
