package joint

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const dt = 1.0 / 60

// loadedEngine reports a fixed solved impulse for every live joint.
type loadedEngine struct {
	*physics.Reference
	linear, angular mgl64.Vec3
}

func (e *loadedEngine) JointImpulse(id physics.JointID) (mgl64.Vec3, mgl64.Vec3, bool) {
	if _, ok := e.Joint(id); !ok {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	return e.linear, e.angular, true
}

type scene struct {
	w   *world.World
	eng *loadedEngine
	sys *System

	owner dynamo.Entity
	joint physics.JointID
}

func newScene(t *testing.T) *scene {
	t.Helper()
	w := world.New()
	ref := physics.NewReference(dt)
	ref.Track(w)
	eng := &loadedEngine{Reference: ref}

	a := w.SpawnNamed("a", dynamo.Identity())
	b := w.SpawnNamed("b", dynamo.NewTransform(mgl64.Vec3{0, -1, 0}))
	ref.AddBody(b, physics.BodyDesc{Mass: dynamo.SphereMassProps(1, 0.1)})
	id := ref.InsertJoint(physics.Joint{
		Child:  b,
		Parent: a,
		Kind:   physics.NewSpherical(mgl64.Vec3{}, mgl64.Vec3{0, -1, 0}),
	})

	return &scene{
		w:   w,
		eng: eng,
		sys: &System{
			World:    w,
			Engine:   eng,
			Commands: &physics.Commands{},
			Log:      zap.NewNop(),
		},
		owner: b,
		joint: id,
	}
}

func (s *scene) inspect(ticks int) int {
	broken := 0
	for i := 0; i < ticks; i++ {
		broken += s.sys.Inspect(dt)
		s.sys.Commands.Apply(s.eng)
	}
	return broken
}

func (s *scene) jointAlive() bool {
	_, ok := s.eng.Joint(s.joint)
	return ok
}

func TestBreakableThreshold(t *testing.T) {
	tests := []struct {
		name    string
		linear  mgl64.Vec3
		angular mgl64.Vec3
		breaks  bool
	}{
		{"over on one axis", mgl64.Vec3{0, 6, 0}, mgl64.Vec3{}, true},
		{"negative over", mgl64.Vec3{-6, 0, 0}, mgl64.Vec3{}, true},
		{"under on every axis", mgl64.Vec3{4, 4, 4}, mgl64.Vec3{}, false},
		{"at threshold", mgl64.Vec3{5, 0, 0}, mgl64.Vec3{}, false},
		{"torque over", mgl64.Vec3{}, mgl64.Vec3{0, 0, 3}, true},
		{"torque under", mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScene(t)
			s.eng.linear, s.eng.angular = tt.linear, tt.angular
			world.GetStore[Breakable](s.w).Set(s.owner, Breakable{
				Joint:            s.joint,
				ImpulseThreshold: mgl64.Vec3{5, 5, 5},
				TorqueThreshold:  mgl64.Vec3{2, 2, 2},
			})

			if tt.breaks {
				assert.Equal(t, 1, s.inspect(1), "breaks within one tick")
				assert.False(t, s.jointAlive())
				assert.False(t, world.GetStore[Breakable](s.w).Has(s.owner))
				assert.True(t, s.w.IsAlive(s.owner), "breaking never despawns")
				return
			}
			assert.Equal(t, 0, s.inspect(600))
			assert.True(t, s.jointAlive())
		})
	}
}

func TestUnsetThresholdIsUnchecked(t *testing.T) {
	s := newScene(t)
	s.eng.linear = mgl64.Vec3{100, 0, 0}
	world.GetStore[Breakable](s.w).Set(s.owner, Breakable{
		Joint:            s.joint,
		ImpulseThreshold: mgl64.Vec3{0, 5, 5},
	})
	assert.Equal(t, 0, s.inspect(10))
	assert.True(t, s.jointAlive())
}

func TestBreakableGracePeriod(t *testing.T) {
	s := newScene(t)
	s.eng.linear = mgl64.Vec3{0, 6, 0}
	world.GetStore[Breakable](s.w).Set(s.owner, Breakable{
		Joint:            s.joint,
		ImpulseThreshold: mgl64.Vec3{5, 5, 5},
		GracePeriod:      0.5,
	})

	assert.Equal(t, 0, s.inspect(20))
	assert.True(t, s.jointAlive(), "young joints survive overload")

	assert.Equal(t, 1, s.inspect(20))
	assert.False(t, s.jointAlive())
}

func TestBreakLogsImpulse(t *testing.T) {
	s := newScene(t)
	core, logs := observer.New(zapcore.InfoLevel)
	s.sys.Log = zap.New(core)
	s.eng.linear = mgl64.Vec3{0, 6, 0}
	world.GetStore[Breakable](s.w).Set(s.owner, Breakable{Joint: s.joint, ImpulseThreshold: mgl64.Vec3{5, 5, 5}})

	s.inspect(1)
	entries := logs.FilterMessage("joint broke").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Contains(t, fields, "impulse")
	assert.Contains(t, fields, "torque")
}

func TestBreakableForgetsRemovedJoint(t *testing.T) {
	s := newScene(t)
	world.GetStore[Breakable](s.w).Set(s.owner, Breakable{Joint: s.joint, ImpulseThreshold: mgl64.Vec3{5, 5, 5}})
	require.True(t, s.eng.RemoveJoint(s.joint))

	assert.Equal(t, 0, s.inspect(1))
	assert.False(t, world.GetStore[Breakable](s.w).Has(s.owner))
}

func TestBreakableUnderGravity(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		breaks    bool
	}{
		{"weight exceeds", 0.1, true},
		{"weight holds", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := world.New()
			eng := physics.NewReference(dt, physics.WithGravity(mgl64.Vec3{0, -9.81, 0}))
			eng.Track(w)
			anchor := w.SpawnNamed("anchor", dynamo.NewTransform(mgl64.Vec3{0, 2, 0}))
			bob := w.SpawnNamed("bob", dynamo.NewTransform(mgl64.Vec3{0, 2, 0}))
			eng.AddBody(bob, physics.BodyDesc{Mass: dynamo.SphereMassProps(1, 0.1)})
			id := eng.InsertJoint(physics.Joint{Child: bob, Parent: anchor, Kind: physics.NewSpherical(mgl64.Vec3{}, mgl64.Vec3{})})
			world.GetStore[Breakable](w).Set(bob, Breakable{
				Joint:            id,
				ImpulseThreshold: mgl64.Vec3{tt.threshold, tt.threshold, tt.threshold},
				GracePeriod:      0.1,
			})

			sys := &System{World: w, Engine: eng, Commands: &physics.Commands{}}
			for i := 0; i < 120; i++ {
				sys.Inspect(dt)
				sys.Commands.Apply(eng)
				eng.Step(w)
			}

			_, alive := eng.Joint(id)
			assert.Equal(t, !tt.breaks, alive)
			g, _ := w.GlobalTransform(bob)
			if tt.breaks {
				assert.Less(t, g.Translation.Y(), 1.5, "bob falls once released")
			} else {
				assert.InDelta(t, 2, g.Translation.Y(), 0.05)
			}
		})
	}
}

func TestStress(t *testing.T) {
	b := Breakable{ImpulseThreshold: mgl64.Vec3{5, 0, 10}, TorqueThreshold: mgl64.Vec3{0, 2, 0}}
	assert.InDelta(t, 0.5, b.Stress(mgl64.Vec3{1, 99, 5}, mgl64.Vec3{}), 1e-12)
	assert.InDelta(t, 1.5, b.Stress(mgl64.Vec3{}, mgl64.Vec3{0, -3, 0}), 1e-12)
	assert.Zero(t, Breakable{}.Stress(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{1, 1, 1}))
}

func TestMaxStress(t *testing.T) {
	s := newScene(t)
	s.eng.linear = mgl64.Vec3{0, 4, 0}
	world.GetStore[Breakable](s.w).Set(s.owner, Breakable{Joint: s.joint, ImpulseThreshold: mgl64.Vec3{5, 5, 5}})
	assert.InDelta(t, 0.8, MaxStress(s.w, s.eng), 1e-12)
}

func anchorOf(t *testing.T, eng physics.Engine, id physics.JointID) mgl64.Vec3 {
	t.Helper()
	j, ok := eng.Joint(id)
	require.True(t, ok)
	a1, _ := physics.Anchors(j.Kind)
	return a1
}

func TestInterpolationMovesAnchor(t *testing.T) {
	s := newScene(t)
	world.GetStore[Interpolation](s.w).Set(s.owner, Interpolation{
		Joint:    s.joint,
		Start:    physics.NewSpherical(mgl64.Vec3{}, mgl64.Vec3{0, -1, 0}),
		End:      physics.NewSpherical(mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0, -1, 0}),
		Duration: 1,
	})

	for i := 0; i < 30; i++ {
		s.sys.Interpolate(dt)
	}
	assert.InDelta(t, 1, anchorOf(t, s.eng, s.joint).Y(), 1e-9)

	for i := 0; i < 40; i++ {
		s.sys.Interpolate(dt)
	}
	in, _ := world.GetStore[Interpolation](s.w).Get(s.owner)
	assert.True(t, in.Done())
	assert.Equal(t, 1.0, in.Fraction)
	assert.InDelta(t, 2, anchorOf(t, s.eng, s.joint).Y(), 1e-12)

	require.True(t, s.eng.SetJointKind(s.joint, physics.NewSpherical(mgl64.Vec3{7, 0, 0}, mgl64.Vec3{})))
	s.sys.Interpolate(dt)
	assert.Equal(t, 7.0, anchorOf(t, s.eng, s.joint).X(), "finished interpolations stop writing")
}

func TestInterpolationMisconfigured(t *testing.T) {
	tests := []struct {
		name string
		in   Interpolation
	}{
		{"zero duration", Interpolation{
			Start: physics.NewSpherical(mgl64.Vec3{}, mgl64.Vec3{}),
			End:   physics.NewSpherical(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}),
		}},
		{"kind mismatch", Interpolation{
			Start:    physics.NewSpherical(mgl64.Vec3{}, mgl64.Vec3{}),
			End:      physics.NewGeneric(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}),
			Duration: 1,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScene(t)
			core, logs := observer.New(zapcore.WarnLevel)
			s.sys.Log = zap.New(core)
			tt.in.Joint = s.joint
			world.GetStore[Interpolation](s.w).Set(s.owner, tt.in)
			before, _ := s.eng.Joint(s.joint)

			for i := 0; i < 5; i++ {
				s.sys.Interpolate(dt)
			}
			assert.Equal(t, 1, logs.FilterMessage("interpolation ignored").Len())
			after, _ := s.eng.Joint(s.joint)
			assert.Equal(t, before.Kind, after.Kind)
		})
	}
}

func TestInterpolationOfRemovedJointIsDropped(t *testing.T) {
	s := newScene(t)
	world.GetStore[Interpolation](s.w).Set(s.owner, Interpolation{
		Joint:    s.joint,
		Start:    physics.NewSpherical(mgl64.Vec3{}, mgl64.Vec3{}),
		End:      physics.NewSpherical(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}),
		Duration: 1,
	})
	require.True(t, s.eng.RemoveJoint(s.joint))

	s.sys.Interpolate(dt)
	assert.False(t, world.GetStore[Interpolation](s.w).Has(s.owner))
}
