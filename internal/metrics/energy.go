package metrics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/sim"
)

// KineticEnergy is the mean over ticks of the total kinetic energy of every
// dynamic body.
type KineticEnergy struct {
	name        string
	samples     int
	totalEnergy float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(f sim.Frame) {
	e.totalEnergy += TotalKinetic(f)
	e.samples++
}

func (e *KineticEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *KineticEnergy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// TotalKinetic sums linear and rotational kinetic energy over the dynamic
// bodies of the frame's world.
func TotalKinetic(f sim.Frame) float64 {
	var sum float64
	for _, ent := range f.World.Entities() {
		b, ok := f.Engine.Body(ent)
		if !ok || !b.IsDynamic() {
			continue
		}
		v := b.Velocity.Linear
		sum += 0.5 * b.Mass.Mass * v.Dot(v)

		w := b.Velocity.Angular
		inertia := dynamo.DivElem(mgl64.Vec3{1, 1, 1}, b.Mass.InvInertia)
		sum += 0.5 * w.Dot(dynamo.MulElem(inertia, w))
	}
	return sum
}
