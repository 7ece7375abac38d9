// Package physics is the boundary between the manipulation engine and the
// rigid-body simulation it sits on.
//
// The engine is consumed through the [Engine] interface:
//
//   - contact and sensor queries: [Engine.ContactsWith], [Engine.IntersectionsWith]
//   - ray casts with a [QueryFilter]
//   - joint primitives described by the [JointKind] sum type
//     ([Spherical], [Generic], [Revolute])
//   - previous-tick joint impulses for breakage checks
//
// Joint creation and removal requested during a tick go through [Commands]
// and are applied in request order once every decision of the tick is made.
//
// [Reference] is a small in-memory implementation used by the scenarios and
// tests. It resolves joints as soft impulse constraints and detects contacts
// between sphere colliders; anything beyond that can be injected explicitly.
//
// # Example
//
//	eng := physics.NewReference(1.0/60, physics.WithGravity(mgl64.Vec3{0, -9.81, 0}))
//	eng.AddBody(crate, physics.BodyDesc{Mass: dynamo.SphereMassProps(1, 0.5), Radius: 0.5})
//	eng.Step(w)
package physics
