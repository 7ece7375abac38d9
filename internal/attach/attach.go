// Package attach keeps kinematic followers glued to a target entity.
//
// Followers are written after the physics step has produced fresh world
// transforms. Running them earlier makes every follower lag one tick.
package attach

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/control"
	"github.com/san-kum/grapple/internal/dynamo"
)

type ModeKind uint8

const (
	// ModeNone leaves the channel untouched.
	ModeNone ModeKind = iota
	ModeInstant
	// ModeInverse writes the inverse of the target rotation. Only meaningful
	// for the rotation channel; other channels treat it as instant.
	ModeInverse
	ModeSpring
)

func (k ModeKind) String() string {
	switch k {
	case ModeInstant:
		return "instant"
	case ModeInverse:
		return "inverse"
	case ModeSpring:
		return "spring"
	default:
		return "none"
	}
}

type Mode struct {
	Kind   ModeKind
	Spring control.Spring
}

func Instant() Mode { return Mode{Kind: ModeInstant} }
func Inverse() Mode { return Mode{Kind: ModeInverse} }

func Spring(strength, dampRatio float64) Mode {
	return Mode{Kind: ModeSpring, Spring: control.Spring{Strength: strength, DampRatio: dampRatio}}
}

// Attach makes its entity follow Target channel by channel.
type Attach struct {
	Target      dynamo.Entity
	Translation Mode
	Rotation    Mode
	Scale       Mode
}

// To returns an attach copying every channel of target instantly.
func To(target dynamo.Entity) Attach {
	return Attach{Target: target, Translation: Instant(), Rotation: Instant(), Scale: Instant()}
}

// springState is the integrator state of the spring channels of one follower.
// Values live in the follower's parent space and are pulled toward the
// target's current value every update.
type springState struct {
	init bool

	translation, velocity mgl64.Vec3
	rotation              mgl64.Quat
	angVelocity           mgl64.Vec3
	scale, scaleVel       mgl64.Vec3
	lastTarget            mgl64.Vec3
}
