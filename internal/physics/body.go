package physics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
)

// Body is the engine-side view of a rigid body.
type Body struct {
	Entity   dynamo.Entity
	Pose     dynamo.Transform
	Velocity dynamo.Velocity
	Mass     dynamo.MassProps
	Radius   float64
	Sensor   bool

	LinearDamping  float64
	AngularDamping float64
}

func (b Body) IsDynamic() bool { return !b.Mass.IsStatic() && !b.Sensor }

// BodyDesc describes a body to insert into an engine.
type BodyDesc struct {
	Mass           dynamo.MassProps
	Velocity       dynamo.Velocity
	Radius         float64
	Sensor         bool
	LinearDamping  float64
	AngularDamping float64
}

// ContactPoint is one point of a contact manifold. LocalPoint1 is expressed
// in the local space of the queried body, LocalPoint2 in the other body's.
type ContactPoint struct {
	LocalPoint1 mgl64.Vec3
	LocalPoint2 mgl64.Vec3
	Normal      mgl64.Vec3
	Dist        float64
}

// Contact is the manifold between the queried body and Other.
type Contact struct {
	Other  dynamo.Entity
	Points []ContactPoint
}

type Ray struct {
	Origin mgl64.Vec3
	Dir    mgl64.Vec3
}

func (r Ray) At(toi float64) mgl64.Vec3 {
	return r.Origin.Add(r.Dir.Mul(toi))
}

type RayHit struct {
	Entity dynamo.Entity
	Toi    float64
	Point  mgl64.Vec3
	Normal mgl64.Vec3
}

// QueryFilter narrows ray casts and shape queries.
type QueryFilter struct {
	ExcludeSensors bool
	ExcludeDynamic bool
	Exclude        []dynamo.Entity
	Predicate      func(dynamo.Entity) bool
}

func (f QueryFilter) Accepts(b Body) bool {
	if f.ExcludeSensors && b.Sensor {
		return false
	}
	if f.ExcludeDynamic && b.IsDynamic() {
		return false
	}
	for _, e := range f.Exclude {
		if e == b.Entity {
			return false
		}
	}
	if f.Predicate != nil && !f.Predicate(b.Entity) {
		return false
	}
	return true
}
