package physics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/world"
)

// Engine is the capability set the manipulation engine needs from a
// rigid-body simulation. Queries on unknown entities return zero values and
// false or empty slices; they never panic.
type Engine interface {
	// Dt is the fixed timestep of one Step.
	Dt() float64

	HasBody(e dynamo.Entity) bool
	Body(e dynamo.Entity) (Body, bool)
	// ApplyImpulse queues a world-space impulse at the center of mass of e.
	// It takes effect during the next Step.
	ApplyImpulse(e dynamo.Entity, linear, angular mgl64.Vec3)

	// ContactsWith lists the manifolds touching e as of the last Step.
	ContactsWith(e dynamo.Entity) []Contact
	// IntersectionsWith lists the bodies overlapping the sensor e.
	IntersectionsWith(e dynamo.Entity) []dynamo.Entity
	CastRay(ray Ray, maxToi float64, filter QueryFilter) (RayHit, bool)

	// ReserveJointID hands out an id for a joint inserted later.
	ReserveJointID() JointID
	InsertJoint(j Joint) JointID
	RemoveJoint(id JointID) bool
	Joint(id JointID) (Joint, bool)
	// Joints returns every live joint in ascending id order.
	Joints() []Joint
	SetJointKind(id JointID, kind JointKind) bool
	// JointImpulse reports the impulse the solver applied through a joint
	// during the last Step, expressed per axis in the parent anchor frame.
	JointImpulse(id JointID) (linear, angular mgl64.Vec3, ok bool)

	// Step reads body poses from w, solves one tick and writes poses back.
	Step(w *world.World)
}
