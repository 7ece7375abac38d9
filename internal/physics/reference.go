package physics

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/integrators"
	"github.com/san-kum/grapple/internal/world"
	"go.uber.org/zap"
)

const (
	defaultIterations = 8
	baumgarte         = 0.2
	parallelMinChunk  = 64
)

var _ Engine = (*Reference)(nil)

type Option func(*Reference)

func WithGravity(g mgl64.Vec3) Option {
	return func(r *Reference) { r.gravity = g }
}

// WithIntegrator selects the integrator used for body motion by name.
// Unknown names fall back to integrators.Default.
func WithIntegrator(name string) Option {
	return func(r *Reference) {
		if _, err := integrators.New(name); err == nil {
			r.integrator = name
		}
	}
}

func WithIterations(n int) Option {
	return func(r *Reference) {
		if n > 0 {
			r.iterations = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Reference) {
		if l != nil {
			r.log = l
		}
	}
}

type jointState struct {
	Joint
	linear  mgl64.Vec3
	angular mgl64.Vec3
}

type pairKey struct {
	a, b dynamo.Entity
}

func makePair(a, b dynamo.Entity) (pairKey, bool) {
	if a > b {
		return pairKey{b, a}, true
	}
	return pairKey{a, b}, false
}

// Reference is an in-memory Engine. Bodies are spheres (or points when their
// radius is zero), joints are soft impulse constraints solved with a few
// Gauss-Seidel iterations, and contacts can be injected for scripted tests.
type Reference struct {
	dt         float64
	gravity    mgl64.Vec3
	integrator string
	iterations int
	log        *zap.Logger

	bodies    map[dynamo.Entity]*Body
	joints    map[JointID]*jointState
	nextJoint JointID
	impulses  map[dynamo.Entity]dynamo.Velocity

	injected   map[pairKey][]ContactPoint
	overlaps   map[pairKey]struct{}
	contacts   map[dynamo.Entity][]Contact
	sensorHits map[dynamo.Entity][]dynamo.Entity

	w *world.World
}

func NewReference(dt float64, opts ...Option) *Reference {
	r := &Reference{
		dt:         dt,
		integrator: integrators.Default,
		iterations: defaultIterations,
		log:        zap.NewNop(),
		bodies:     make(map[dynamo.Entity]*Body),
		joints:     make(map[JointID]*jointState),
		impulses:   make(map[dynamo.Entity]dynamo.Velocity),
		injected:   make(map[pairKey][]ContactPoint),
		overlaps:   make(map[pairKey]struct{}),
		contacts:   make(map[dynamo.Entity][]Contact),
		sensorHits: make(map[dynamo.Entity][]dynamo.Entity),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Track binds the engine to w: despawned entities lose their body and joints.
func (r *Reference) Track(w *world.World) {
	r.w = w
	w.OnDespawn(r.RemoveBody)
}

func (r *Reference) Dt() float64 { return r.dt }

func (r *Reference) AddBody(e dynamo.Entity, desc BodyDesc) {
	b := &Body{
		Entity:         e,
		Pose:           dynamo.Identity(),
		Velocity:       desc.Velocity,
		Mass:           desc.Mass,
		Radius:         desc.Radius,
		Sensor:         desc.Sensor,
		LinearDamping:  desc.LinearDamping,
		AngularDamping: desc.AngularDamping,
	}
	if r.w != nil {
		if g, ok := r.w.GlobalTransform(e); ok {
			b.Pose = g
		}
	}
	r.bodies[e] = b
}

// RemoveBody drops the body of e together with every joint touching it.
func (r *Reference) RemoveBody(e dynamo.Entity) {
	for _, js := range r.sortedJoints() {
		if js.Involves(e) {
			r.RemoveJoint(js.ID)
		}
	}
	for k := range r.injected {
		if k.a == e || k.b == e {
			delete(r.injected, k)
		}
	}
	for k := range r.overlaps {
		if k.a == e || k.b == e {
			delete(r.overlaps, k)
		}
	}
	delete(r.bodies, e)
	delete(r.impulses, e)
	delete(r.contacts, e)
	delete(r.sensorHits, e)
}

func (r *Reference) HasBody(e dynamo.Entity) bool {
	_, ok := r.bodies[e]
	return ok
}

func (r *Reference) Body(e dynamo.Entity) (Body, bool) {
	b, ok := r.bodies[e]
	if !ok {
		return Body{}, false
	}
	return *b, true
}

func (r *Reference) SetVelocity(e dynamo.Entity, v dynamo.Velocity) {
	if b, ok := r.bodies[e]; ok {
		b.Velocity = v
	}
}

func (r *Reference) ApplyImpulse(e dynamo.Entity, linear, angular mgl64.Vec3) {
	if _, ok := r.bodies[e]; !ok {
		return
	}
	acc := r.impulses[e]
	acc.Linear = acc.Linear.Add(linear)
	acc.Angular = acc.Angular.Add(angular)
	r.impulses[e] = acc
}

// PendingImpulse returns the impulse queued for e since the last Step.
func (r *Reference) PendingImpulse(e dynamo.Entity) (linear, angular mgl64.Vec3) {
	acc := r.impulses[e]
	return acc.Linear, acc.Angular
}

// SetContact injects a manifold between a and b. Points carry LocalPoint1 in
// a's space. The contact persists until ClearContact.
func (r *Reference) SetContact(a, b dynamo.Entity, points []ContactPoint) {
	key, swapped := makePair(a, b)
	if swapped {
		points = swapPoints(points)
	}
	r.injected[key] = slices.Clone(points)
}

func (r *Reference) ClearContact(a, b dynamo.Entity) {
	key, _ := makePair(a, b)
	delete(r.injected, key)
}

// SetIntersecting injects or clears a sensor overlap between sensor and other.
func (r *Reference) SetIntersecting(sensor, other dynamo.Entity, on bool) {
	key, _ := makePair(sensor, other)
	if on {
		r.overlaps[key] = struct{}{}
	} else {
		delete(r.overlaps, key)
	}
}

func swapPoints(points []ContactPoint) []ContactPoint {
	out := make([]ContactPoint, len(points))
	for i, p := range points {
		out[i] = ContactPoint{
			LocalPoint1: p.LocalPoint2,
			LocalPoint2: p.LocalPoint1,
			Normal:      p.Normal.Mul(-1),
			Dist:        p.Dist,
		}
	}
	return out
}

func (r *Reference) ContactsWith(e dynamo.Entity) []Contact {
	if _, ok := r.bodies[e]; !ok {
		return nil
	}

	byOther := make(map[dynamo.Entity][]ContactPoint)
	for _, c := range r.contacts[e] {
		byOther[c.Other] = append(byOther[c.Other], c.Points...)
	}
	for k, points := range r.injected {
		switch e {
		case k.a:
			byOther[k.b] = append(byOther[k.b], points...)
		case k.b:
			byOther[k.a] = append(byOther[k.a], swapPoints(points)...)
		}
	}

	out := make([]Contact, 0, len(byOther))
	for other, points := range byOther {
		out = append(out, Contact{Other: other, Points: points})
	}
	slices.SortFunc(out, func(x, y Contact) int { return compareEntity(x.Other, y.Other) })
	return out
}

func (r *Reference) IntersectionsWith(e dynamo.Entity) []dynamo.Entity {
	if _, ok := r.bodies[e]; !ok {
		return nil
	}
	seen := make(map[dynamo.Entity]struct{})
	for _, o := range r.sensorHits[e] {
		seen[o] = struct{}{}
	}
	for k := range r.overlaps {
		switch e {
		case k.a:
			seen[k.b] = struct{}{}
		case k.b:
			seen[k.a] = struct{}{}
		}
	}
	out := make([]dynamo.Entity, 0, len(seen))
	for o := range seen {
		out = append(out, o)
	}
	slices.Sort(out)
	return out
}

func (r *Reference) CastRay(ray Ray, maxToi float64, filter QueryFilter) (RayHit, bool) {
	dir := ray.Dir
	if dir.Len() < 1e-12 {
		return RayHit{}, false
	}
	dir = dir.Normalize()

	var best RayHit
	found := false
	for _, e := range r.sortedBodies() {
		b := r.bodies[e]
		if b.Radius <= 0 || !filter.Accepts(*b) {
			continue
		}
		oc := ray.Origin.Sub(b.Pose.Translation)
		half := oc.Dot(dir)
		c := oc.Dot(oc) - b.Radius*b.Radius
		disc := half*half - c
		if disc < 0 {
			continue
		}
		toi := -half - math.Sqrt(disc)
		if toi < 0 {
			toi = -half + math.Sqrt(disc)
		}
		if toi < 0 || toi > maxToi || (found && toi >= best.Toi) {
			continue
		}
		point := ray.Origin.Add(dir.Mul(toi))
		best = RayHit{
			Entity: e,
			Toi:    toi,
			Point:  point,
			Normal: point.Sub(b.Pose.Translation).Normalize(),
		}
		found = true
	}
	return best, found
}

func (r *Reference) ReserveJointID() JointID {
	r.nextJoint++
	return r.nextJoint
}

func (r *Reference) InsertJoint(j Joint) JointID {
	if j.ID == 0 {
		j.ID = r.ReserveJointID()
	} else if j.ID > r.nextJoint {
		r.nextJoint = j.ID
	}
	r.joints[j.ID] = &jointState{Joint: j}
	r.log.Debug("joint inserted",
		zap.Uint64("joint", uint64(j.ID)),
		zap.String("kind", j.Kind.KindName()),
		zap.Stringer("tag", j.Tag),
		zap.Uint64("child", uint64(j.Child)),
		zap.Uint64("parent", uint64(j.Parent)),
	)
	return j.ID
}

func (r *Reference) RemoveJoint(id JointID) bool {
	if _, ok := r.joints[id]; !ok {
		return false
	}
	delete(r.joints, id)
	r.log.Debug("joint removed", zap.Uint64("joint", uint64(id)))
	return true
}

func (r *Reference) Joint(id JointID) (Joint, bool) {
	js, ok := r.joints[id]
	if !ok {
		return Joint{}, false
	}
	return js.Joint, true
}

func (r *Reference) Joints() []Joint {
	out := make([]Joint, 0, len(r.joints))
	for _, js := range r.sortedJoints() {
		out = append(out, js.Joint)
	}
	return out
}

func (r *Reference) SetJointKind(id JointID, kind JointKind) bool {
	js, ok := r.joints[id]
	if !ok || kind == nil {
		return false
	}
	js.Kind = kind
	return true
}

func (r *Reference) JointImpulse(id JointID) (linear, angular mgl64.Vec3, ok bool) {
	js, ok := r.joints[id]
	if !ok {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	return js.linear, js.angular, true
}

func compareEntity(a, b dynamo.Entity) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (r *Reference) sortedBodies() []dynamo.Entity {
	out := make([]dynamo.Entity, 0, len(r.bodies))
	for e := range r.bodies {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

func (r *Reference) sortedJoints() []*jointState {
	out := make([]*jointState, 0, len(r.joints))
	for _, js := range r.joints {
		out = append(out, js)
	}
	slices.SortFunc(out, func(a, b *jointState) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}
