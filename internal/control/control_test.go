package control

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 60

func TestVelocityChangeConverges(t *testing.T) {
	tests := []struct {
		name      string
		dampRatio float64
		tol       float64
	}{
		{"critical", 1, 1e-3},
		{"overdamped", 2, 1e-2},
		{"underdamped", 0.3, 1e-2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Spring{Strength: 10, DampRatio: tt.dampRatio}
			x, v := mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}
			minX := x[0]
			for i := 0; i < 600; i++ {
				v = v.Add(s.VelocityChange(x, v, dt))
				x = x.Add(v.Mul(dt))
				minX = math.Min(minX, x[0])
			}
			assert.Less(t, math.Abs(x[0]), tt.tol)
			if tt.dampRatio >= 1 {
				assert.GreaterOrEqual(t, minX, -1e-6, "no overshoot")
			}
		})
	}
}

func TestVelocityChangeStableAtLargeStep(t *testing.T) {
	s := Spring{Strength: 1000, DampRatio: 0}
	x, v := mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}
	for i := 0; i < 100; i++ {
		v = v.Add(s.VelocityChange(x, v, 0.1))
		x = x.Add(v.Mul(0.1))
	}
	assert.LessOrEqual(t, x.Len(), 1.0+1e-9)
}

func TestZeroStrengthIsInert(t *testing.T) {
	s := Spring{}
	assert.Equal(t, mgl64.Vec3{}, s.VelocityChange(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{1, 1, 1}, dt))
}

func TestLinear(t *testing.T) {
	s := Spring{Strength: 5, DampRatio: 1, BreakDistance: 0.5}
	a := Particle{Position: mgl64.Vec3{1, 0, 0}, InvMass: 1}
	b := FixedParticle(dynamo.Identity())

	res := s.Linear(a, b, dt)
	assert.Less(t, res.Impulse[0], 0.0)
	assert.True(t, res.Broken)

	a.Position = mgl64.Vec3{0.2, 0, 0}
	res = s.Linear(a, b, dt)
	assert.False(t, res.Broken)

	a.InvMass = 0
	res = s.Linear(a, b, dt)
	assert.Equal(t, mgl64.Vec3{}, res.Impulse)
}

func TestAngularTurnsTowardTarget(t *testing.T) {
	s := Spring{Strength: 8, DampRatio: 1}
	a := Particle{
		Rotation:   mgl64.QuatRotate(mgl64.DegToRad(90), mgl64.Vec3{0, 1, 0}),
		InvMass:    1,
		InvInertia: mgl64.Vec3{1, 1, 1},
	}
	b := FixedParticle(dynamo.Identity())

	imp := s.Angular(a, b, dt)
	assert.Less(t, imp[1], 0.0)
	assert.InDelta(t, 0, imp[0], 1e-9)
	assert.InDelta(t, 0, imp[2], 1e-9)

	a.Rotation = mgl64.QuatIdent()
	assert.True(t, s.Angular(a, b, dt).ApproxEqualThreshold(mgl64.Vec3{}, 1e-12))
}

func TestSpringParams(t *testing.T) {
	s := &Spring{Strength: 1, DampRatio: 0.5}
	s.SetParam("Strength", 4)
	s.SetParam("Unknown", 9)
	assert.Equal(t, map[string]float64{"Strength": 4, "DampRatio": 0.5}, s.GetParams())
}

func muscleScene(t *testing.T, tense bool) (*world.World, *physics.Reference, dynamo.Entity, dynamo.Entity) {
	t.Helper()
	w := world.New()
	eng := physics.NewReference(dt)
	eng.Track(w)

	anchor := w.Spawn()
	arm := w.SpawnNamed("arm", dynamo.Identity().WithRotation(mgl64.QuatRotate(1, mgl64.Vec3{0, 0, 1})))
	eng.AddBody(anchor, physics.BodyDesc{Mass: dynamo.SphereMassProps(10, 1)})
	eng.AddBody(arm, physics.BodyDesc{Mass: dynamo.SphereMassProps(1, 0.3)})

	world.GetStore[Muscle](w).Set(arm, Muscle{
		Target: anchor,
		Spring: Spring{Strength: 10, DampRatio: 1},
		Tense:  tense,
	})
	return w, eng, arm, anchor
}

func TestUntensedMuscleAppliesNothing(t *testing.T) {
	w, eng, arm, anchor := muscleScene(t, false)
	sys := &MuscleSystem{World: w, Engine: eng}

	for i := 0; i < 10; i++ {
		assert.Zero(t, sys.Update())
		lin, ang := eng.PendingImpulse(arm)
		assert.Zero(t, lin.Len())
		assert.Zero(t, ang.Len())
		_, ang = eng.PendingImpulse(anchor)
		assert.Zero(t, ang.Len())
		eng.Step(w)
	}
}

func TestTenseMuscleIsEqualAndOpposite(t *testing.T) {
	w, eng, arm, anchor := muscleScene(t, true)
	sys := &MuscleSystem{World: w, Engine: eng}

	effort := sys.Update()
	assert.Greater(t, effort, 0.0)

	_, onArm := eng.PendingImpulse(arm)
	_, onAnchor := eng.PendingImpulse(anchor)
	assert.Less(t, onArm[2], 0.0)
	assert.True(t, onArm.Add(onAnchor).ApproxEqualThreshold(mgl64.Vec3{}, 1e-12))

	require.True(t, SetTense(w, arm, false))
	eng.Step(w)
	assert.Zero(t, sys.Update())
	assert.False(t, SetTense(w, anchor, true))
}

func TestTenseMuscleStraightensArm(t *testing.T) {
	w, eng, arm, _ := muscleScene(t, true)
	sys := &MuscleSystem{World: w, Engine: eng}

	for i := 0; i < 300; i++ {
		sys.Update()
		eng.Step(w)
	}
	g, _ := w.GlobalTransform(arm)
	assert.Less(t, dynamo.RotationVector(g.Rotation).Len(), 0.05)
}
