package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/integrators"
	"github.com/san-kum/grapple/internal/world"
)

// Step advances the simulation by Dt. Poses are read from the global
// transforms of w, and dynamic bodies are written back afterwards.
func (r *Reference) Step(w *world.World) {
	order := r.sortedBodies()
	r.readPoses(w, order)
	r.applyPending()

	if r.gravity != (mgl64.Vec3{}) {
		for _, e := range order {
			if b := r.bodies[e]; b.IsDynamic() {
				b.Velocity.Linear = b.Velocity.Linear.Add(r.gravity.Mul(r.dt))
			}
		}
	}

	r.resolveContacts(order)

	joints := r.sortedJoints()
	for _, js := range joints {
		js.linear, js.angular = mgl64.Vec3{}, mgl64.Vec3{}
	}
	for it := 0; it < r.iterations; it++ {
		for _, js := range joints {
			r.solveJoint(w, js, it == 0)
		}
	}
	for _, js := range joints {
		frame := r.pose(w, js.Parent)
		inv := frame.Rotation.Inverse()
		js.linear = inv.Rotate(js.linear)
		js.angular = inv.Rotate(js.angular)
	}

	r.integrate(order)
	r.writePoses(w, order)
	r.detect(order)
}

func (r *Reference) readPoses(w *world.World, order []dynamo.Entity) {
	for _, e := range order {
		if g, ok := w.GlobalTransform(e); ok {
			r.bodies[e].Pose = g
		}
	}
}

func (r *Reference) writePoses(w *world.World, order []dynamo.Entity) {
	for _, e := range order {
		b := r.bodies[e]
		if !b.IsDynamic() || !w.IsAlive(e) {
			continue
		}
		g, ok := w.GlobalTransform(e)
		if !ok {
			continue
		}
		g.Translation = b.Pose.Translation
		g.Rotation = b.Pose.Rotation
		w.SetGlobalTransform(e, g)
	}
}

func (r *Reference) applyPending() {
	for e, imp := range r.impulses {
		b, ok := r.bodies[e]
		if ok && b.IsDynamic() {
			b.Velocity.Linear = b.Velocity.Linear.Add(imp.Linear.Mul(b.Mass.InvMass))
			b.Velocity.Angular = b.Velocity.Angular.Add(dynamo.MulElem(b.Mass.InvInertia, imp.Angular))
		}
		delete(r.impulses, e)
	}
}

// pose returns the global frame of e, falling back to the world for
// entities without a body (a slot marker on a static rack, for example).
func (r *Reference) pose(w *world.World, e dynamo.Entity) dynamo.Transform {
	if b, ok := r.bodies[e]; ok {
		return b.Pose
	}
	if w != nil {
		if g, ok := w.GlobalTransform(e); ok {
			return g
		}
	}
	return dynamo.Identity()
}

type side struct {
	body   *Body
	invM   float64
	invI   mgl64.Vec3
	frame  dynamo.Transform
	anchor mgl64.Vec3
	arm    mgl64.Vec3
}

func (r *Reference) side(w *world.World, e dynamo.Entity, local mgl64.Vec3) side {
	s := side{frame: r.pose(w, e)}
	if b, ok := r.bodies[e]; ok {
		s.body = b
		if b.IsDynamic() {
			s.invM = b.Mass.InvMass
			s.invI = b.Mass.InvInertia
		}
	}
	s.anchor = s.frame.TransformPoint(local)
	s.arm = s.anchor.Sub(s.frame.Translation)
	return s
}

func (s side) pointVelocity() mgl64.Vec3 {
	if s.body == nil {
		return mgl64.Vec3{}
	}
	return s.body.Velocity.Linear.Add(s.body.Velocity.Angular.Cross(s.arm))
}

func (s side) angularVelocity() mgl64.Vec3 {
	if s.body == nil {
		return mgl64.Vec3{}
	}
	return s.body.Velocity.Angular
}

func (s side) linearMass(n mgl64.Vec3) float64 {
	rn := s.arm.Cross(n)
	return s.invM + dynamo.MulElem(s.invI, rn).Cross(s.arm).Dot(n)
}

func (s side) angularMass(n mgl64.Vec3) float64 {
	return dynamo.MulElem(s.invI, n).Dot(n)
}

func (s side) applyLinear(j mgl64.Vec3) {
	if s.invM == 0 {
		return
	}
	s.body.Velocity.Linear = s.body.Velocity.Linear.Add(j.Mul(s.invM))
	s.body.Velocity.Angular = s.body.Velocity.Angular.Add(dynamo.MulElem(s.invI, s.arm.Cross(j)))
}

func (s side) applyAngular(l mgl64.Vec3) {
	if s.invM == 0 {
		return
	}
	s.body.Velocity.Angular = s.body.Velocity.Angular.Add(dynamo.MulElem(s.invI, l))
}

type axisRow struct {
	locked bool
	motor  Motor
	limits Limits
}

func (r *Reference) solveJoint(w *world.World, js *jointState, first bool) {
	a1, a2 := Anchors(js.Kind)
	c := r.side(w, js.Child, a1)
	p := r.side(w, js.Parent, a2)
	if c.invM == 0 && p.invM == 0 {
		return
	}

	basis1, basis2 := mgl64.QuatIdent(), mgl64.QuatIdent()
	var rows [6]axisRow

	switch k := js.Kind.(type) {
	case Spherical:
		for i := 0; i < 3; i++ {
			rows[i].locked = true
			rows[3+i].motor = k.Motors[i]
		}
	case Generic:
		basis1, basis2 = k.LocalBasis1, k.LocalBasis2
		for i := range rows {
			rows[i] = axisRow{locked: k.Locked[i], motor: k.Motors[i], limits: k.Limits[i]}
		}
	case Revolute:
		for i := 0; i < 3; i++ {
			rows[i].locked = true
		}
		r.solveRevoluteAngular(c, p, k, js, first)
	}

	frame2 := p.frame.Rotation.Mul(basis2).Normalize()
	frame1 := c.frame.Rotation.Mul(basis1).Normalize()

	sep := c.anchor.Sub(p.anchor)
	for i := 0; i < 3; i++ {
		n := frame2.Rotate(axisUnit(i))
		x := sep.Dot(n)
		v := c.pointVelocity().Sub(p.pointVelocity()).Dot(n)
		k := c.linearMass(n) + p.linearMass(n)
		if k <= 0 {
			continue
		}
		lambda := r.rowImpulse(rows[i], x, v, k, first)
		if lambda == 0 {
			continue
		}
		j := n.Mul(lambda)
		c.applyLinear(j)
		p.applyLinear(j.Mul(-1))
		js.linear = js.linear.Add(j)
	}

	if _, ok := js.Kind.(Revolute); ok {
		return
	}

	rel := dynamo.RotationVector(frame2.Inverse().Mul(frame1))
	for i := 0; i < 3; i++ {
		n := frame2.Rotate(axisUnit(i))
		x := rel[i]
		v := c.angularVelocity().Sub(p.angularVelocity()).Dot(n)
		k := c.angularMass(n) + p.angularMass(n)
		if k <= 0 {
			continue
		}
		lambda := r.rowImpulse(rows[3+i], x, v, k, first)
		if lambda == 0 {
			continue
		}
		l := n.Mul(lambda)
		c.applyAngular(l)
		p.applyAngular(l.Mul(-1))
		js.angular = js.angular.Add(l)
	}
}

// rowImpulse returns the impulse along one axis with effective inverse mass k.
// Motors act once per step; rigid rows and limits converge over iterations.
func (r *Reference) rowImpulse(row axisRow, x, v, k float64, first bool) float64 {
	switch {
	case row.locked:
		return (-baumgarte*x/r.dt - v) / k
	case row.limits.Enabled && x < row.limits.Min:
		return math.Max((-baumgarte*(x-row.limits.Min)/r.dt-v)/k, 0)
	case row.limits.Enabled && x > row.limits.Max:
		return math.Min((-baumgarte*(x-row.limits.Max)/r.dt-v)/k, 0)
	case first && row.motor.Enabled:
		f := row.motor.Force(x, v)
		if row.motor.Model == MotorAccelerationBased {
			f /= k
		}
		return f * r.dt
	}
	return 0
}

func (r *Reference) solveRevoluteAngular(c, p side, k Revolute, js *jointState, first bool) {
	axis := c.frame.Rotation.Rotate(k.LocalAxis)
	rel := dynamo.RotationVector(p.frame.Rotation.Inverse().Mul(c.frame.Rotation))
	relWorld := p.frame.Rotation.Rotate(rel)
	wrel := c.angularVelocity().Sub(p.angularVelocity())

	// Everything off the hinge axis is rigid.
	off := relWorld.Sub(axis.Mul(relWorld.Dot(axis)))
	offVel := wrel.Sub(axis.Mul(wrel.Dot(axis)))
	for i := 0; i < 3; i++ {
		n := axisUnit(i)
		n = n.Sub(axis.Mul(n.Dot(axis)))
		if n.Len() < 1e-9 {
			continue
		}
		n = n.Normalize()
		km := c.angularMass(n) + p.angularMass(n)
		if km <= 0 {
			continue
		}
		lambda := (-baumgarte*off.Dot(n)/r.dt - offVel.Dot(n)) / km
		l := n.Mul(lambda)
		c.applyAngular(l)
		p.applyAngular(l.Mul(-1))
		js.angular = js.angular.Add(l)
	}

	km := c.angularMass(axis) + p.angularMass(axis)
	if km <= 0 {
		return
	}
	row := axisRow{motor: k.Motor, limits: k.Limits}
	lambda := r.rowImpulse(row, relWorld.Dot(axis), wrel.Dot(axis), km, first)
	if lambda != 0 {
		l := axis.Mul(lambda)
		c.applyAngular(l)
		p.applyAngular(l.Mul(-1))
		js.angular = js.angular.Add(l)
	}
}

func axisUnit(i int) mgl64.Vec3 {
	var v mgl64.Vec3
	v[i] = 1
	return v
}

// resolveContacts removes approaching velocity along the normals detected at
// the end of the previous step. Injected manifolds are left to the caller.
func (r *Reference) resolveContacts(order []dynamo.Entity) {
	for _, e := range order {
		a := r.bodies[e]
		for _, c := range r.contacts[e] {
			if c.Other <= e {
				continue
			}
			b, ok := r.bodies[c.Other]
			if !ok {
				continue
			}
			invA, invB := 0.0, 0.0
			if a.IsDynamic() {
				invA = a.Mass.InvMass
			}
			if b.IsDynamic() {
				invB = b.Mass.InvMass
			}
			if invA+invB == 0 {
				continue
			}
			for _, pt := range c.Points {
				n := pt.Normal
				vn := b.Velocity.Linear.Sub(a.Velocity.Linear).Dot(n)
				if vn >= 0 {
					continue
				}
				j := n.Mul(-vn / (invA + invB))
				a.Velocity.Linear = a.Velocity.Linear.Sub(j.Mul(invA))
				b.Velocity.Linear = b.Velocity.Linear.Add(j.Mul(invB))
			}
		}
	}
}

// motion is the translational ODE of one body: constant velocity decayed by
// linear damping.
type motion struct {
	damping float64
}

func (m motion) Dim() int { return 6 }

func (m motion) Derive(x dynamo.State, _ float64) dynamo.State {
	v := x.Vec3At(1)
	return dynamo.PackVec3(v, v.Mul(-m.damping))
}

func (r *Reference) integrate(order []dynamo.Entity) {
	dt := r.dt
	dynamo.ParallelFor(len(order), parallelMinChunk, func(start, end int) {
		integ, err := integrators.New(r.integrator)
		if err != nil {
			integ = integrators.NewSemiImplicit()
		}
		for _, e := range order[start:end] {
			b := r.bodies[e]
			if !b.IsDynamic() {
				continue
			}
			x := dynamo.PackVec3(b.Pose.Translation, b.Velocity.Linear)
			x = integ.Step(motion{damping: b.LinearDamping}, x, 0, dt)
			b.Pose.Translation = x.Vec3At(0)
			b.Velocity.Linear = x.Vec3At(1)

			b.Velocity.Angular = b.Velocity.Angular.Mul(1 / (1 + dt*b.AngularDamping))
			spin := mgl64.Quat{V: b.Velocity.Angular}.Mul(b.Pose.Rotation).Scale(0.5 * dt)
			b.Pose.Rotation = b.Pose.Rotation.Add(spin).Normalize()
		}
	})
}

// detect rebuilds sphere contacts and sensor overlaps from the current poses.
func (r *Reference) detect(order []dynamo.Entity) {
	clear(r.contacts)
	clear(r.sensorHits)

	for i, ea := range order {
		a := r.bodies[ea]
		for _, eb := range order[i+1:] {
			b := r.bodies[eb]
			d := b.Pose.Translation.Sub(a.Pose.Translation)
			dist := d.Len()

			if a.Sensor || b.Sensor {
				if a.Sensor && b.Sensor {
					continue
				}
				if dist <= a.Radius+b.Radius {
					r.sensorHits[ea] = append(r.sensorHits[ea], eb)
					r.sensorHits[eb] = append(r.sensorHits[eb], ea)
				}
				continue
			}

			if a.Radius <= 0 || b.Radius <= 0 || dist >= a.Radius+b.Radius || dist < 1e-12 {
				continue
			}
			n := d.Mul(1 / dist)
			onA := a.Pose.Translation.Add(n.Mul(a.Radius))
			onB := b.Pose.Translation.Sub(n.Mul(b.Radius))
			pt := ContactPoint{
				LocalPoint1: a.Pose.InverseTransformPoint(onA),
				LocalPoint2: b.Pose.InverseTransformPoint(onB),
				Normal:      n,
				Dist:        dist - a.Radius - b.Radius,
			}
			r.contacts[ea] = append(r.contacts[ea], Contact{Other: eb, Points: []ContactPoint{pt}})
			r.contacts[eb] = append(r.contacts[eb], Contact{Other: ea, Points: swapPoints([]ContactPoint{pt})})
		}
	}
}
