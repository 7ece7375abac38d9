// Package dynamo provides the core primitives shared by every part of the
// manipulation engine.
//
// The package defines the small vocabulary the rest of the tree is written in:
//
//   - [Entity]: opaque identifier of anything living in the world
//   - [Transform]: translation, rotation and scale of an entity
//   - [Velocity] and [MassProps]: the rigid-body data the engine exposes
//   - [State] and [System]: flat state vectors stepped by the integrators
//
// # Example
//
//	parent := dynamo.NewTransform(mgl64.Vec3{0, 1, 0})
//	child := dynamo.NewTransform(mgl64.Vec3{1, 0, 0})
//	global := parent.Mul(child) // translation (1, 1, 0)
//
// # Thread Safety
//
// Values in this package are plain data. [ParallelFor] is the only helper that
// spawns goroutines; callers must make sure each index is written by exactly
// one worker.
package dynamo
