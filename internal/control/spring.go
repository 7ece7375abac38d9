package control

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/physics"
)

// Particle is the state of one spring endpoint. A zero InvMass is immovable.
type Particle struct {
	Position        mgl64.Vec3
	Velocity        mgl64.Vec3
	Rotation        mgl64.Quat
	AngularVelocity mgl64.Vec3
	InvMass         float64
	InvInertia      mgl64.Vec3
}

// FixedParticle is an immovable endpoint at pose.
func FixedParticle(pose dynamo.Transform) Particle {
	return Particle{Position: pose.Translation, Rotation: pose.Rotation}
}

// BodyParticle converts an engine body into a spring endpoint.
func BodyParticle(b physics.Body) Particle {
	p := Particle{
		Position:        b.Pose.Translation,
		Velocity:        b.Velocity.Linear,
		Rotation:        b.Pose.Rotation,
		AngularVelocity: b.Velocity.Angular,
	}
	if b.IsDynamic() {
		p.InvMass = b.Mass.InvMass
		p.InvInertia = b.Mass.InvInertia
	}
	return p
}

// Spring is an implicit spring/damper. Strength is the natural angular
// frequency and DampRatio scales damping: 0 undamped, 1 critically damped.
// BreakDistance, when positive, marks the linear spring broken beyond it.
type Spring struct {
	Strength      float64 `yaml:"strength"`
	DampRatio     float64 `yaml:"damp_ratio"`
	BreakDistance float64 `yaml:"break_distance,omitempty"`
}

// Result is the impulse for endpoint a; b receives its negation.
type Result struct {
	Impulse mgl64.Vec3
	Broken  bool
}

// VelocityChange is the implicit velocity step that moves a spring with
// offset x and velocity v toward rest over dt. It stays stable for any dt.
func (s Spring) VelocityChange(x, v mgl64.Vec3, dt float64) mgl64.Vec3 {
	w := s.Strength
	if w <= 0 || dt <= 0 {
		return mgl64.Vec3{}
	}
	damp := 2*s.DampRatio*w*dt + w*w*dt*dt
	return x.Mul(-w * w * dt).Sub(v.Mul(damp)).Mul(1 / (1 + damp))
}

// Linear pulls a toward b.
func (s Spring) Linear(a, b Particle, dt float64) Result {
	offset := a.Position.Sub(b.Position)
	res := Result{Broken: s.BreakDistance > 0 && offset.Len() > s.BreakDistance}

	invSum := a.InvMass + b.InvMass
	if invSum == 0 {
		return res
	}
	dv := s.VelocityChange(offset, a.Velocity.Sub(b.Velocity), dt)
	res.Impulse = dv.Mul(1 / invSum)
	return res
}

// Angular turns a toward the orientation of b and returns the world-space
// angular impulse for a.
func (s Spring) Angular(a, b Particle, dt float64) mgl64.Vec3 {
	local := dynamo.RotationVector(b.Rotation.Inverse().Mul(a.Rotation))
	offset := b.Rotation.Rotate(local)

	dv := s.VelocityChange(offset, a.AngularVelocity.Sub(b.AngularVelocity), dt)
	inertia := dynamo.DivElem(mgl64.Vec3{1, 1, 1}, a.InvInertia.Add(b.InvInertia))
	return dynamo.MulElem(inertia, dv)
}

// GetParams returns tunable parameters for live adjustment.
func (s *Spring) GetParams() map[string]float64 {
	return map[string]float64{
		"Strength":  s.Strength,
		"DampRatio": s.DampRatio,
	}
}

func (s *Spring) SetParam(name string, value float64) {
	switch name {
	case "Strength":
		s.Strength = value
	case "DampRatio":
		s.DampRatio = value
	}
}
