package dynamo

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Entity identifies anything living in the world. The zero value is the null entity.
type Entity uint64

const Null Entity = 0

func (e Entity) IsNull() bool { return e == Null }

func (e Entity) String() string { return fmt.Sprintf("e%d", uint64(e)) }

// Transform is a translation, rotation and scale. Composition ignores shear,
// which only matters for non-uniform scale under rotation.
type Transform struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Scale       mgl64.Vec3
}

func Identity() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

func NewTransform(translation mgl64.Vec3) Transform {
	t := Identity()
	t.Translation = translation
	return t
}

func (t Transform) WithRotation(q mgl64.Quat) Transform {
	t.Rotation = q
	return t
}

func (t Transform) WithScale(s mgl64.Vec3) Transform {
	t.Scale = s
	return t
}

// Mul returns t applied after child, i.e. the global transform of child when t is its parent.
func (t Transform) Mul(child Transform) Transform {
	return Transform{
		Translation: t.TransformPoint(child.Translation),
		Rotation:    t.Rotation.Mul(child.Rotation).Normalize(),
		Scale:       MulElem(t.Scale, child.Scale),
	}
}

// TransformPoint maps a point from local space into the space t is expressed in.
func (t Transform) TransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.Translation.Add(t.Rotation.Rotate(MulElem(t.Scale, p)))
}

// InverseTransformPoint maps a point into the local space of t.
func (t Transform) InverseTransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	local := t.Rotation.Inverse().Rotate(p.Sub(t.Translation))
	return DivElem(local, t.Scale)
}

// Inverse returns the transform mapping t's space back to its local space.
func (t Transform) Inverse() Transform {
	inv := t.Rotation.Inverse()
	invScale := DivElem(mgl64.Vec3{1, 1, 1}, t.Scale)
	return Transform{
		Translation: MulElem(invScale, inv.Rotate(t.Translation.Mul(-1))),
		Rotation:    inv,
		Scale:       invScale,
	}
}

func (t Transform) IsValid() bool {
	for _, v := range [...]float64{
		t.Translation[0], t.Translation[1], t.Translation[2],
		t.Rotation.W, t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2],
		t.Scale[0], t.Scale[1], t.Scale[2],
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MulElem multiplies two vectors component-wise.
func MulElem(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// DivElem divides two vectors component-wise; zero divisors yield zero.
func DivElem(a, b mgl64.Vec3) mgl64.Vec3 {
	var r mgl64.Vec3
	for i := range r {
		if b[i] != 0 {
			r[i] = a[i] / b[i]
		}
	}
	return r
}

// ShortestArc returns q, or its negation, whichever lies on the same hemisphere as the identity.
func ShortestArc(q mgl64.Quat) mgl64.Quat {
	if q.W < 0 {
		return mgl64.Quat{W: -q.W, V: q.V.Mul(-1)}
	}
	return q
}

// RotationVector returns the axis-angle form of q scaled by its angle.
func RotationVector(q mgl64.Quat) mgl64.Vec3 {
	q = ShortestArc(q.Normalize())
	sinHalf := q.V.Len()
	if sinHalf < 1e-12 {
		return q.V.Mul(2)
	}
	angle := 2 * math.Atan2(sinHalf, q.W)
	return q.V.Mul(angle / sinHalf)
}

// QuatFromRotationVector is the inverse of RotationVector.
func QuatFromRotationVector(v mgl64.Vec3) mgl64.Quat {
	angle := v.Len()
	if angle < 1e-12 {
		return mgl64.Quat{W: 1, V: v.Mul(0.5)}.Normalize()
	}
	return mgl64.QuatRotate(angle, v.Mul(1/angle))
}

// Velocity holds linear and angular velocity in world space.
type Velocity struct {
	Linear  mgl64.Vec3
	Angular mgl64.Vec3
}

// MassProps holds inverse mass and diagonal inverse inertia. A zero InvMass is an immovable body.
type MassProps struct {
	Mass       float64
	InvMass    float64
	InvInertia mgl64.Vec3
}

func NewMassProps(mass float64, inertia mgl64.Vec3) MassProps {
	if mass <= 0 {
		return MassProps{}
	}
	return MassProps{
		Mass:       mass,
		InvMass:    1 / mass,
		InvInertia: DivElem(mgl64.Vec3{1, 1, 1}, inertia),
	}
}

// SphereMassProps returns the mass properties of a solid sphere.
func SphereMassProps(mass, radius float64) MassProps {
	i := 0.4 * mass * radius * radius
	return NewMassProps(mass, mgl64.Vec3{i, i, i})
}

func (m MassProps) IsStatic() bool { return m.InvMass == 0 }

// State is a flat state vector stepped by the integrators.
type State []float64

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// PackVec3 writes the given vectors into a State, three components each.
func PackVec3(vs ...mgl64.Vec3) State {
	s := make(State, 0, len(vs)*3)
	for _, v := range vs {
		s = append(s, v[0], v[1], v[2])
	}
	return s
}

// Vec3At reads the i-th vector previously written by PackVec3.
func (s State) Vec3At(i int) mgl64.Vec3 {
	return mgl64.Vec3{s[3*i], s[3*i+1], s[3*i+2]}
}

// System is a first-order ODE dX/dt = f(X, t) of fixed dimension.
type System interface {
	Derive(x State, t float64) State
	Dim() int
}
