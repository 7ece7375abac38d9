package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
)

// LerpKind linearly interpolates every numeric parameter of two joint
// configurations of the same kind. Flags and enums switch to b at t >= 1.
func LerpKind(a, b JointKind, t float64) (JointKind, error) {
	t = mgl64.Clamp(t, 0, 1)

	switch a := a.(type) {
	case Spherical:
		bk, ok := b.(Spherical)
		if !ok {
			return nil, mismatch(a, b)
		}
		out := a
		out.LocalAnchor1 = lerpVec(a.LocalAnchor1, bk.LocalAnchor1, t)
		out.LocalAnchor2 = lerpVec(a.LocalAnchor2, bk.LocalAnchor2, t)
		for i := range out.Motors {
			out.Motors[i] = lerpMotor(a.Motors[i], bk.Motors[i], t)
		}
		return out, nil

	case Generic:
		bk, ok := b.(Generic)
		if !ok {
			return nil, mismatch(a, b)
		}
		out := a
		out.LocalAnchor1 = lerpVec(a.LocalAnchor1, bk.LocalAnchor1, t)
		out.LocalAnchor2 = lerpVec(a.LocalAnchor2, bk.LocalAnchor2, t)
		out.LocalBasis1 = mgl64.QuatNlerp(a.LocalBasis1, bk.LocalBasis1, t)
		out.LocalBasis2 = mgl64.QuatNlerp(a.LocalBasis2, bk.LocalBasis2, t)
		for i := range out.Motors {
			out.Motors[i] = lerpMotor(a.Motors[i], bk.Motors[i], t)
			out.Limits[i] = lerpLimits(a.Limits[i], bk.Limits[i], t)
			if t >= 1 {
				out.Locked[i] = bk.Locked[i]
			}
		}
		return out, nil

	case Revolute:
		bk, ok := b.(Revolute)
		if !ok {
			return nil, mismatch(a, b)
		}
		out := a
		out.LocalAnchor1 = lerpVec(a.LocalAnchor1, bk.LocalAnchor1, t)
		out.LocalAnchor2 = lerpVec(a.LocalAnchor2, bk.LocalAnchor2, t)
		if axis := lerpVec(a.LocalAxis, bk.LocalAxis, t); axis.Len() > 1e-9 {
			out.LocalAxis = axis.Normalize()
		}
		out.Limits = lerpLimits(a.Limits, bk.Limits, t)
		out.Motor = lerpMotor(a.Motor, bk.Motor, t)
		return out, nil
	}

	return nil, fmt.Errorf("%w: unsupported kind %T", dynamo.ErrKindMismatch, a)
}

func mismatch(a, b JointKind) error {
	return fmt.Errorf("%w: %s vs %T", dynamo.ErrKindMismatch, a.KindName(), b)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func lerpVec(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

func lerpMotor(a, b Motor, t float64) Motor {
	out := Motor{
		Enabled:   a.Enabled || b.Enabled,
		Target:    lerp(a.Target, b.Target, t),
		TargetVel: lerp(a.TargetVel, b.TargetVel, t),
		Stiffness: lerp(a.Stiffness, b.Stiffness, t),
		Damping:   lerp(a.Damping, b.Damping, t),
		MaxForce:  lerp(a.MaxForce, b.MaxForce, t),
		Model:     a.Model,
	}
	if t >= 1 {
		out.Enabled = b.Enabled
		out.Model = b.Model
	}
	return out
}

func lerpLimits(a, b Limits, t float64) Limits {
	out := Limits{
		Enabled: a.Enabled || b.Enabled,
		Min:     lerp(a.Min, b.Min, t),
		Max:     lerp(a.Max, b.Max, t),
	}
	if t >= 1 {
		out.Enabled = b.Enabled
	}
	return out
}
