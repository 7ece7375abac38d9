package scenario

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/control"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/sim"
	"github.com/san-kum/grapple/internal/world"
)

const armLength = 0.5

// muscleScene holds two horizontal arms out from fixed shoulders. The right
// arm starts tense and the left limp; they swap at half time.
func muscleScene(env *Env) error {
	right := env.arm("right", mgl64.Vec3{0.3, 2, 0}, mgl64.Vec3{1, 0, 0}, true)
	left := env.arm("left", mgl64.Vec3{-0.3, 2, 0}, mgl64.Vec3{-1, 0, 0}, false)

	env.At(env.Config.Duration/2, func(s *sim.Simulator) {
		control.SetTense(s.World, right, false)
		control.SetTense(s.World, left, true)
	})

	env.Sim.AddProbe("right_y", func(sim.Frame) float64 { return env.Position(right).Y() })
	env.Sim.AddProbe("left_y", func(sim.Frame) float64 { return env.Position(left).Y() })
	env.Sim.AddProbe("effort", func(f sim.Frame) float64 { return f.Stats.Effort })
	return nil
}

// arm pins a forearm to a shoulder with a spherical joint and a muscle that
// pulls it back to the shoulder's orientation.
func (e *Env) arm(side string, shoulderAt, dir mgl64.Vec3, tense bool) dynamo.Entity {
	shoulder := e.Marker(side+"_shoulder", shoulderAt, dynamo.Null)
	forearm := e.Ball(side+"_forearm", shoulderAt.Add(dir.Mul(armLength)), 1, 0.25)

	e.Engine.InsertJoint(physics.Joint{
		Child:  forearm,
		Parent: shoulder,
		Kind:   physics.NewSpherical(dir.Mul(-armLength), mgl64.Vec3{}),
		Tag:    physics.TagScene,
	})
	world.GetStore[control.Muscle](e.World()).Set(forearm, control.Muscle{
		Target: shoulder,
		Spring: e.Config.Muscle,
		Tense:  tense,
	})
	return forearm
}
