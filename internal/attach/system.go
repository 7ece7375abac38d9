package attach

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/control"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/integrators"
	"github.com/san-kum/grapple/internal/world"
	"go.uber.org/zap"
)

// springODE is a damped spring toward the origin with state [x, v].
type springODE struct {
	spring control.Spring
}

func (s springODE) Dim() int { return 6 }

func (s springODE) Derive(x dynamo.State, _ float64) dynamo.State {
	w, z := s.spring.Strength, s.spring.DampRatio
	pos, vel := x.Vec3At(0), x.Vec3At(1)
	acc := pos.Mul(-w * w).Sub(vel.Mul(2 * z * w))
	return dynamo.PackVec3(vel, acc)
}

type System struct {
	World *world.World
	Log   *zap.Logger

	integ integrators.Integrator
}

// NewSystem builds the follower system. An unknown integrator name falls
// back to the default.
func NewSystem(w *world.World, integrator string, log *zap.Logger) *System {
	integ, err := integrators.New(integrator)
	if err != nil {
		integ = integrators.NewSemiImplicit()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &System{World: w, Log: log, integ: integ}
}

// Update writes every follower's local transform from its target's current
// world transform. Followers of followers, and followers parented under
// followers, are written after the entities they read.
func (s *System) Update(dt float64) {
	store := world.GetStore[Attach](s.World)
	states := world.GetStore[springState](s.World)

	visited := make(map[dynamo.Entity]struct{})
	var visit func(e dynamo.Entity)
	// after visits the nearest follower at or above e.
	after := func(e dynamo.Entity, ok bool) {
		seen := map[dynamo.Entity]struct{}{}
		for ; ok; e, ok = s.World.Parent(e) {
			if _, cyc := seen[e]; cyc {
				return
			}
			seen[e] = struct{}{}
			if store.Has(e) {
				visit(e)
				return
			}
		}
	}
	visit = func(e dynamo.Entity) {
		if _, seen := visited[e]; seen {
			return
		}
		visited[e] = struct{}{}
		a, ok := store.Get(e)
		if !ok {
			return
		}
		after(a.Target, true)
		after(s.World.Parent(e))
		s.follow(e, a, states, dt)
	}

	for _, e := range store.Entities() {
		visit(e)
	}
}

func (s *System) follow(e dynamo.Entity, a Attach, states *world.Store[springState], dt float64) {
	if !s.World.IsAlive(a.Target) || a.Target == e {
		world.GetStore[Attach](s.World).Remove(e)
		states.Remove(e)
		s.Log.Debug("attach target gone", zap.Stringer("follower", e), zap.Stringer("target", a.Target))
		return
	}
	targetGlobal, ok := s.World.GlobalTransform(a.Target)
	if !ok {
		return
	}
	current, ok := s.World.Transform(e)
	if !ok {
		current = dynamo.Identity()
	}
	target := s.World.ParentGlobal(e).Inverse().Mul(targetGlobal)

	st, _ := states.Get(e)
	if !st.init {
		st = springState{
			init:        true,
			translation: current.Translation,
			rotation:    current.Rotation,
			scale:       current.Scale,
		}
	}
	st.lastTarget = target.Translation

	next := current
	switch a.Translation.Kind {
	case ModeInstant, ModeInverse:
		next.Translation = target.Translation
	case ModeSpring:
		var off mgl64.Vec3
		off, st.velocity = s.step(a.Translation.Spring, st.translation.Sub(target.Translation), st.velocity, dt)
		st.translation = target.Translation.Add(off)
		next.Translation = st.translation
	}

	switch a.Rotation.Kind {
	case ModeInstant:
		next.Rotation = target.Rotation
	case ModeInverse:
		next.Rotation = target.Rotation.Inverse()
	case ModeSpring:
		angle := dynamo.RotationVector(target.Rotation.Inverse().Mul(st.rotation))
		angle, st.angVelocity = s.step(a.Rotation.Spring, angle, st.angVelocity, dt)
		st.rotation = target.Rotation.Mul(dynamo.QuatFromRotationVector(angle)).Normalize()
		next.Rotation = st.rotation
	}

	switch a.Scale.Kind {
	case ModeInstant, ModeInverse:
		next.Scale = target.Scale
	case ModeSpring:
		var off mgl64.Vec3
		off, st.scaleVel = s.step(a.Scale.Spring, st.scale.Sub(target.Scale), st.scaleVel, dt)
		st.scale = target.Scale.Add(off)
		next.Scale = st.scale
	}

	states.Set(e, st)
	s.World.SetTransform(e, next)
}

func (s *System) step(sp control.Spring, x, v mgl64.Vec3, dt float64) (mgl64.Vec3, mgl64.Vec3) {
	out := s.integ.Step(springODE{spring: sp}, dynamo.PackVec3(x, v), 0, dt)
	return out.Vec3At(0), out.Vec3At(1)
}

// Offset reports how far the follower's spring translation trails the
// target as of the last update, zero before the first one.
func Offset(w *world.World, e dynamo.Entity) mgl64.Vec3 {
	st, _ := world.GetStore[springState](w).Get(e)
	if !st.init {
		return mgl64.Vec3{}
	}
	return st.translation.Sub(st.lastTarget)
}
