package scenario

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/sim"
	"github.com/san-kum/grapple/internal/slot"
	"github.com/san-kum/grapple/internal/world"
)

const (
	zoneRadius = 0.6
	itemRadius = 0.1
)

// depositScene floats a one-slot deposit at the origin. Item a drifts in
// first, item b a second later and waits in the queue. Motor deposits lose
// a at four seconds; spring deposits have it knocked loose at three.
func depositScene(mode slot.Mode) func(env *Env) error {
	return func(env *Env) error {
		w := env.World()

		deposit := env.Sensor("deposit", mgl64.Vec3{}, zoneRadius)
		socket := env.Marker("socket", mgl64.Vec3{}, deposit)
		world.GetStore[slot.Slot](w).Set(socket, slot.Slot{})
		world.GetStore[slot.Deposit](w).Set(deposit, slot.NewDeposit(mode, socket))

		a := env.Ball("a", mgl64.Vec3{1.5, 0, 0}.Add(env.Jitter(0.05)), 1, itemRadius)
		b := env.Ball("b", mgl64.Vec3{-2.5, 0, 0}.Add(env.Jitter(0.05)), 1, itemRadius)
		env.Engine.SetVelocity(a, dynamo.Velocity{Linear: mgl64.Vec3{-1, 0, 0}})
		env.Engine.SetVelocity(b, dynamo.Velocity{Linear: mgl64.Vec3{1, 0, 0}})
		for _, e := range []dynamo.Entity{a, b} {
			world.GetStore[slot.Slottable](w).Set(e, slot.Slottable{})
		}

		if mode == slot.ModeSpring {
			env.At(3, func(s *sim.Simulator) {
				env.Engine.ApplyImpulse(a, mgl64.Vec3{0, 60, 0}, mgl64.Vec3{})
			})
		} else {
			env.At(4, func(s *sim.Simulator) {
				if s.World.IsAlive(a) {
					s.World.Despawn(a)
				}
			})
		}

		env.Sim.AddProbe("occupancy", func(f sim.Frame) float64 {
			return float64(slot.Occupancy(f.World))
		})
		env.Sim.AddProbe("queue", func(f sim.Frame) float64 {
			d, _ := world.GetStore[slot.Deposit](f.World).Get(deposit)
			return float64(d.Len())
		})
		env.Sim.AddProbe("a_dist", func(sim.Frame) float64 { return env.Distance(a, socket) })
		env.Sim.AddProbe("b_dist", func(sim.Frame) float64 { return env.Distance(b, socket) })
		return nil
	}
}
