package control

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/world"
)

// Muscle turns its body toward the orientation of Target while Tense.
// With Linear set it also pulls the body toward the target position.
type Muscle struct {
	Target dynamo.Entity
	Spring Spring
	Tense  bool
	Linear bool
}

// SetTense flips the tense flag of the muscle on e. It reports false when e
// has no muscle.
func SetTense(w *world.World, e dynamo.Entity, tense bool) bool {
	store := world.GetStore[Muscle](w)
	m, ok := store.Get(e)
	if !ok {
		return false
	}
	m.Tense = tense
	store.Set(e, m)
	return true
}

type MuscleSystem struct {
	World  *world.World
	Engine physics.Engine
}

// Update queues one tick of muscle impulses and returns the summed
// magnitude of the angular impulses applied.
func (s *MuscleSystem) Update() float64 {
	store := world.GetStore[Muscle](s.World)
	dt := s.Engine.Dt()
	effort := 0.0

	for _, e := range store.Entities() {
		m, _ := store.Get(e)
		if !m.Tense || m.Target.IsNull() {
			continue
		}
		body, ok := s.Engine.Body(e)
		if !ok {
			continue
		}
		target, targetBody, ok := s.endpoint(m.Target)
		if !ok {
			continue
		}
		self := BodyParticle(body)

		ang := m.Spring.Angular(self, target, dt)
		var lin mgl64.Vec3
		if m.Linear {
			lin = m.Spring.Linear(self, target, dt).Impulse
		}

		s.Engine.ApplyImpulse(e, lin, ang)
		if targetBody {
			s.Engine.ApplyImpulse(m.Target, lin.Mul(-1), ang.Mul(-1))
		}
		effort += ang.Len()
	}
	return effort
}

func (s *MuscleSystem) endpoint(e dynamo.Entity) (Particle, bool, bool) {
	if b, ok := s.Engine.Body(e); ok {
		return BodyParticle(b), true, true
	}
	if !s.World.IsAlive(e) {
		return Particle{}, false, false
	}
	g, ok := s.World.GlobalTransform(e)
	if !ok {
		return Particle{}, false, false
	}
	return FixedParticle(g), false, true
}
