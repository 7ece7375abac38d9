// Package grab lets manipulator bodies (hands) pick up other bodies through
// soft spherical joints, and summarizes what a character holds as a sphere.
package grab

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/world"
)

type State uint8

const (
	StateIdle State = iota
	StateAttempting
	StateHolding
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateHolding:
		return "holding"
	default:
		return "idle"
	}
}

// Grabbed is the body currently held and the anchor in its local space.
// Teleport snaps the body onto the manipulator when the joint is created.
type Grabbed struct {
	Entity      dynamo.Entity
	LocalAnchor mgl64.Vec3
	Teleport    bool
}

// Grabbing is the per-manipulator grab state.
type Grabbing struct {
	TryingGrab bool
	Grabbed    *Grabbed
}

func (g Grabbing) State() State {
	switch {
	case g.Grabbed != nil:
		return StateHolding
	case g.TryingGrab:
		return StateAttempting
	default:
		return StateIdle
	}
}

// Character marks the root of a logical body. Grabs never target bodies
// belonging to the manipulator's own character.
type Character struct{}

// NotGrabbable excludes a body from being grabbed.
type NotGrabbable struct{}

// grabJoint remembers the joint created for a manipulator's current grab.
type grabJoint struct {
	ID     physics.JointID
	Target dynamo.Entity
}

// SetIntent sets whether manipulator e wants to hold something. It reports
// false when e is not a manipulator.
func SetIntent(w *world.World, e dynamo.Entity, trying bool) bool {
	store := world.GetStore[Grabbing](w)
	g, ok := store.Get(e)
	if !ok {
		return false
	}
	g.TryingGrab = trying
	store.Set(e, g)
	return true
}

// ForceGrab makes e hold target at anchor regardless of contacts. The target
// is snapped onto the manipulator when the joint is created.
func ForceGrab(w *world.World, e, target dynamo.Entity, anchor mgl64.Vec3) bool {
	store := world.GetStore[Grabbing](w)
	if !store.Has(e) || !w.IsAlive(target) || e == target {
		return false
	}
	store.Set(e, Grabbing{
		TryingGrab: true,
		Grabbed:    &Grabbed{Entity: target, LocalAnchor: anchor, Teleport: true},
	})
	return true
}

// Target returns what e currently holds.
func Target(w *world.World, e dynamo.Entity) (dynamo.Entity, bool) {
	g, ok := world.GetStore[Grabbing](w).Get(e)
	if !ok || g.Grabbed == nil {
		return dynamo.Null, false
	}
	return g.Grabbed.Entity, true
}

// Joint returns the id of the grab joint owned by e.
func Joint(w *world.World, e dynamo.Entity) (physics.JointID, bool) {
	gj, ok := world.GetStore[grabJoint](w).Get(e)
	return gj.ID, ok
}
