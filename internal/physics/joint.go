package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
)

type JointID uint64

// JointTag records which part of the engine owns a joint.
type JointTag uint8

const (
	TagScene JointTag = iota
	TagGrab
	TagSlot
)

func (t JointTag) String() string {
	switch t {
	case TagGrab:
		return "grab"
	case TagSlot:
		return "slot"
	default:
		return "scene"
	}
}

// Joint is a directed constraint from Child to Parent. Anchor 1 of the kind
// belongs to Child, anchor 2 to Parent.
type Joint struct {
	ID     JointID
	Child  dynamo.Entity
	Parent dynamo.Entity
	Kind   JointKind
	Tag    JointTag
}

func (j Joint) Involves(e dynamo.Entity) bool {
	return j.Child == e || j.Parent == e
}

// Axis indexes the six degrees of freedom of a joint frame.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AxisAngX
	AxisAngY
	AxisAngZ
)

func (a Axis) IsAngular() bool { return a >= AxisAngX }

var axisNames = [...]string{"x", "y", "z", "ang_x", "ang_y", "ang_z"}

func (a Axis) String() string {
	if int(a) < len(axisNames) {
		return axisNames[a]
	}
	return fmt.Sprintf("axis(%d)", a)
}

type MotorModel uint8

const (
	// MotorForceBased treats stiffness and damping as force constants, so the
	// response depends on the mass of the bodies.
	MotorForceBased MotorModel = iota
	// MotorAccelerationBased scales the response by the effective mass.
	MotorAccelerationBased
)

// Motor drives one axis toward Target. A MaxForce of zero means unbounded.
type Motor struct {
	Enabled   bool
	Target    float64
	TargetVel float64
	Stiffness float64
	Damping   float64
	MaxForce  float64
	Model     MotorModel
}

// PositionMotor returns an enabled motor driving toward target.
func PositionMotor(target, stiffness, damping, maxForce float64) Motor {
	return Motor{
		Enabled:   true,
		Target:    target,
		Stiffness: stiffness,
		Damping:   damping,
		MaxForce:  maxForce,
	}
}

// Force returns the clamped motor force for the current position and velocity.
func (m Motor) Force(pos, vel float64) float64 {
	if !m.Enabled {
		return 0
	}
	f := m.Stiffness*(m.Target-pos) + m.Damping*(m.TargetVel-vel)
	if m.MaxForce > 0 {
		f = mgl64.Clamp(f, -m.MaxForce, m.MaxForce)
	}
	return f
}

type Limits struct {
	Enabled  bool
	Min, Max float64
}

// JointKind is the sealed set of joint configurations an engine must lower.
type JointKind interface {
	KindName() string
	anchors() (mgl64.Vec3, mgl64.Vec3)
	withAnchors(a1, a2 mgl64.Vec3) JointKind
}

// Spherical pins two anchors together and leaves rotation free apart from
// optional angular motors.
type Spherical struct {
	LocalAnchor1 mgl64.Vec3
	LocalAnchor2 mgl64.Vec3
	Motors       [3]Motor
}

func NewSpherical(anchor1, anchor2 mgl64.Vec3) Spherical {
	return Spherical{LocalAnchor1: anchor1, LocalAnchor2: anchor2}
}

// WithMotor sets the motor of an angular axis; linear axes are ignored.
func (s Spherical) WithMotor(axis Axis, m Motor) Spherical {
	if axis.IsAngular() {
		s.Motors[axis-AxisAngX] = m
	}
	return s
}

func (s Spherical) KindName() string                   { return "spherical" }
func (s Spherical) anchors() (mgl64.Vec3, mgl64.Vec3) { return s.LocalAnchor1, s.LocalAnchor2 }
func (s Spherical) withAnchors(a1, a2 mgl64.Vec3) JointKind {
	s.LocalAnchor1, s.LocalAnchor2 = a1, a2
	return s
}

// Generic configures all six axes independently. Locked axes are rigid;
// unlocked axes may carry a motor and limits.
type Generic struct {
	LocalAnchor1 mgl64.Vec3
	LocalAnchor2 mgl64.Vec3
	LocalBasis1  mgl64.Quat
	LocalBasis2  mgl64.Quat
	Locked       [6]bool
	Motors       [6]Motor
	Limits       [6]Limits
}

func NewGeneric(anchor1, anchor2 mgl64.Vec3) Generic {
	return Generic{
		LocalAnchor1: anchor1,
		LocalAnchor2: anchor2,
		LocalBasis1:  mgl64.QuatIdent(),
		LocalBasis2:  mgl64.QuatIdent(),
	}
}

func (g Generic) WithLocked(axes ...Axis) Generic {
	for _, a := range axes {
		g.Locked[a] = true
	}
	return g
}

func (g Generic) WithMotor(axis Axis, m Motor) Generic {
	g.Motors[axis] = m
	return g
}

func (g Generic) WithLimits(axis Axis, min, max float64) Generic {
	g.Limits[axis] = Limits{Enabled: true, Min: min, Max: max}
	return g
}

func (g Generic) KindName() string                   { return "generic" }
func (g Generic) anchors() (mgl64.Vec3, mgl64.Vec3) { return g.LocalAnchor1, g.LocalAnchor2 }
func (g Generic) withAnchors(a1, a2 mgl64.Vec3) JointKind {
	g.LocalAnchor1, g.LocalAnchor2 = a1, a2
	return g
}

// Revolute allows rotation about a single axis expressed in the child frame.
type Revolute struct {
	LocalAnchor1 mgl64.Vec3
	LocalAnchor2 mgl64.Vec3
	LocalAxis    mgl64.Vec3
	Limits       Limits
	Motor        Motor
}

func NewRevolute(anchor1, anchor2, axis mgl64.Vec3) Revolute {
	return Revolute{LocalAnchor1: anchor1, LocalAnchor2: anchor2, LocalAxis: axis.Normalize()}
}

func (r Revolute) WithMotor(m Motor) Revolute {
	r.Motor = m
	return r
}

func (r Revolute) WithLimits(min, max float64) Revolute {
	r.Limits = Limits{Enabled: true, Min: min, Max: max}
	return r
}

func (r Revolute) KindName() string                   { return "revolute" }
func (r Revolute) anchors() (mgl64.Vec3, mgl64.Vec3) { return r.LocalAnchor1, r.LocalAnchor2 }
func (r Revolute) withAnchors(a1, a2 mgl64.Vec3) JointKind {
	r.LocalAnchor1, r.LocalAnchor2 = a1, a2
	return r
}

// Anchors returns the child and parent anchors of any joint kind.
func Anchors(k JointKind) (mgl64.Vec3, mgl64.Vec3) {
	return k.anchors()
}

// WithAnchors returns k with both anchors replaced.
func WithAnchors(k JointKind, anchor1, anchor2 mgl64.Vec3) JointKind {
	return k.withAnchors(anchor1, anchor2)
}

// SlotJoint builds the joint holding an item at a slot: every axis is driven
// by a position motor toward the slot's local origin.
func SlotJoint(stiffness, damping, maxForce float64) Generic {
	g := NewGeneric(mgl64.Vec3{}, mgl64.Vec3{})
	for a := AxisX; a <= AxisAngZ; a++ {
		m := PositionMotor(0, stiffness, damping, maxForce)
		m.Model = MotorAccelerationBased
		g = g.WithMotor(a, m)
	}
	return g
}
