package grab

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/relation"
	"github.com/san-kum/grapple/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const dt = 1.0 / 60

type scene struct {
	w   *world.World
	eng *physics.Reference
	ix  *relation.Index
	sys *System

	torso, left, right, crate dynamo.Entity
}

func newScene(t *testing.T) *scene {
	t.Helper()
	w := world.New()
	eng := physics.NewReference(dt)
	eng.Track(w)

	s := &scene{w: w, eng: eng, ix: relation.NewIndex()}
	s.torso = w.SpawnNamed("torso", dynamo.NewTransform(mgl64.Vec3{0, 1, 0}))
	s.left = w.SpawnNamed("left", dynamo.NewTransform(mgl64.Vec3{-0.5, 0, 0}))
	s.right = w.SpawnNamed("right", dynamo.NewTransform(mgl64.Vec3{0.5, 0, 0}))
	s.crate = w.SpawnNamed("crate", dynamo.NewTransform(mgl64.Vec3{1.5, 1, 0}))
	w.SetParent(s.left, s.torso)
	w.SetParent(s.right, s.torso)

	for _, e := range []dynamo.Entity{s.torso, s.left, s.right, s.crate} {
		eng.AddBody(e, physics.BodyDesc{Mass: dynamo.SphereMassProps(1, 0.2)})
	}
	world.GetStore[Character](w).Set(s.torso, Character{})
	world.GetStore[Grabbing](w).Set(s.left, Grabbing{})
	world.GetStore[Grabbing](w).Set(s.right, Grabbing{})

	s.sys = &System{
		World:    w,
		Engine:   eng,
		Graph:    relation.Graph{World: w, Index: s.ix},
		Commands: &physics.Commands{},
		Config:   DefaultConfig(),
		Log:      zap.NewNop(),
	}
	return s
}

func (s *scene) tick() {
	s.ix.Rebuild(s.eng.Joints())
	s.sys.Update()
	s.sys.Commands.Apply(s.eng)
}

func (s *scene) touch(hand, other dynamo.Entity, localOnOther ...mgl64.Vec3) {
	points := make([]physics.ContactPoint, len(localOnOther))
	for i, p := range localOnOther {
		points[i] = physics.ContactPoint{LocalPoint2: p, Normal: mgl64.Vec3{1, 0, 0}}
	}
	s.eng.SetContact(hand, other, points)
}

func (s *scene) grabJoints(hand dynamo.Entity) []physics.Joint {
	var out []physics.Joint
	for _, j := range s.eng.Joints() {
		if j.Tag == physics.TagGrab && j.Parent == hand {
			out = append(out, j)
		}
	}
	return out
}

func (s *scene) state(e dynamo.Entity) State {
	g, _ := world.GetStore[Grabbing](s.w).Get(e)
	return g.State()
}

func TestAttemptingWithoutContacts(t *testing.T) {
	s := newScene(t)
	require.True(t, SetIntent(s.w, s.right, true))
	s.tick()

	assert.Equal(t, StateAttempting, s.state(s.right))
	assert.Empty(t, s.eng.Joints())
	assert.False(t, SetIntent(s.w, s.crate, true), "not a manipulator")
}

func TestGrabFromContact(t *testing.T) {
	s := newScene(t)
	s.touch(s.right, s.crate, mgl64.Vec3{-0.4, 0, 0})
	SetIntent(s.w, s.right, true)
	s.tick()

	target, ok := Target(s.w, s.right)
	require.True(t, ok)
	assert.Equal(t, s.crate, target)
	assert.Equal(t, StateHolding, s.state(s.right))

	joints := s.grabJoints(s.right)
	require.Len(t, joints, 1)
	assert.Equal(t, s.crate, joints[0].Child)
	sph, ok := joints[0].Kind.(physics.Spherical)
	require.True(t, ok)
	assert.True(t, sph.LocalAnchor1.ApproxEqualThreshold(mgl64.Vec3{-0.4, 0, 0}, 1e-9))
	assert.True(t, sph.LocalAnchor2.ApproxEqualThreshold(mgl64.Vec3{0.6, 0, 0}, 1e-9))
	for _, m := range sph.Motors {
		assert.True(t, m.Enabled)
		assert.Equal(t, DefaultConfig().MaxTorque, m.MaxForce)
		assert.Equal(t, physics.MotorForceBased, m.Model)
	}

	id, ok := Joint(s.w, s.right)
	require.True(t, ok)
	assert.Equal(t, joints[0].ID, id)
}

func TestNearestContactPointWins(t *testing.T) {
	s := newScene(t)
	s.touch(s.right, s.crate, mgl64.Vec3{0, 0.3, 0}, mgl64.Vec3{-0.5, 0, 0}, mgl64.Vec3{0.5, 0, 0})
	SetIntent(s.w, s.right, true)
	s.tick()

	g, _ := world.GetStore[Grabbing](s.w).Get(s.right)
	require.NotNil(t, g.Grabbed)
	assert.True(t, g.Grabbed.LocalAnchor.ApproxEqualThreshold(mgl64.Vec3{-0.5, 0, 0}, 1e-9))
}

func TestCandidateFilters(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *scene) dynamo.Entity
	}{
		{"own torso", func(s *scene) dynamo.Entity { return s.torso }},
		{"own other hand", func(s *scene) dynamo.Entity { return s.left }},
		{"not grabbable", func(s *scene) dynamo.Entity {
			world.GetStore[NotGrabbable](s.w).Set(s.crate, NotGrabbable{})
			return s.crate
		}},
		{"empty manifold", func(s *scene) dynamo.Entity {
			s.eng.SetContact(s.right, s.crate, nil)
			return dynamo.Null
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScene(t)
			if other := tt.setup(s); !other.IsNull() {
				s.touch(s.right, other, mgl64.Vec3{})
			}
			SetIntent(s.w, s.right, true)
			s.tick()

			_, ok := Target(s.w, s.right)
			assert.False(t, ok)
			assert.Empty(t, s.grabJoints(s.right))
		})
	}
}

func TestHierarchyColliderWithoutBody(t *testing.T) {
	s := newScene(t)
	handle := s.w.SpawnNamed("handle", dynamo.NewTransform(mgl64.Vec3{0, 0.5, 0}))
	s.w.SetParent(handle, s.crate)

	eng := &colliderEngine{Reference: s.eng, collider: handle, hand: s.right}
	s.sys.Engine = eng
	SetIntent(s.w, s.right, true)
	s.tick()

	target, ok := Target(s.w, s.right)
	require.True(t, ok)
	assert.Equal(t, s.crate, target)
	g, _ := world.GetStore[Grabbing](s.w).Get(s.right)
	assert.True(t, g.Grabbed.LocalAnchor.ApproxEqualThreshold(mgl64.Vec3{0, 0.6, 0}, 1e-9))
}

// colliderEngine reports a contact against a collider entity that has no
// body, the way engines with compound shapes do.
type colliderEngine struct {
	*physics.Reference
	collider, hand dynamo.Entity
}

func (c *colliderEngine) ContactsWith(e dynamo.Entity) []physics.Contact {
	if e != c.hand {
		return c.Reference.ContactsWith(e)
	}
	return []physics.Contact{{
		Other:  c.collider,
		Points: []physics.ContactPoint{{LocalPoint2: mgl64.Vec3{0, 0.1, 0}}},
	}}
}

func TestAimAssistOverridesAnchor(t *testing.T) {
	s := newScene(t)
	world.GetStore[AimAssist](s.w).Set(s.crate, AimAssist{Primitives: []Primitive{
		Point(mgl64.Vec3{0, 1, 0}),
		Segment(mgl64.Vec3{-1, -1, 0}, mgl64.Vec3{-1, 1, 0}),
	}})
	s.touch(s.right, s.crate, mgl64.Vec3{-0.4, 0.2, 0})
	SetIntent(s.w, s.right, true)
	s.tick()

	g, _ := world.GetStore[Grabbing](s.w).Get(s.right)
	require.NotNil(t, g.Grabbed)
	assert.True(t, g.Grabbed.LocalAnchor.ApproxEqualThreshold(mgl64.Vec3{-1, 0.2, 0}, 1e-9), "%v", g.Grabbed.LocalAnchor)
}

func TestReleaseRemovesJoint(t *testing.T) {
	s := newScene(t)
	s.touch(s.right, s.crate, mgl64.Vec3{-0.4, 0, 0})
	SetIntent(s.w, s.right, true)
	s.tick()
	require.Len(t, s.grabJoints(s.right), 1)

	SetIntent(s.w, s.right, false)
	s.tick()
	assert.Empty(t, s.grabJoints(s.right))
	assert.Equal(t, StateIdle, s.state(s.right))
	_, ok := Joint(s.w, s.right)
	assert.False(t, ok)
}

func TestTargetDespawnReleases(t *testing.T) {
	s := newScene(t)
	s.touch(s.right, s.crate, mgl64.Vec3{-0.4, 0, 0})
	SetIntent(s.w, s.right, true)
	s.tick()

	s.w.Despawn(s.crate)
	s.tick()
	_, ok := Target(s.w, s.right)
	assert.False(t, ok)
	assert.Equal(t, StateAttempting, s.state(s.right))
	assert.Empty(t, s.eng.Joints())
}

func TestLostJointReleases(t *testing.T) {
	s := newScene(t)
	s.touch(s.right, s.crate, mgl64.Vec3{-0.4, 0, 0})
	SetIntent(s.w, s.right, true)
	s.tick()

	id, _ := Joint(s.w, s.right)
	require.True(t, s.eng.RemoveJoint(id))
	s.tick()
	_, ok := Target(s.w, s.right)
	assert.False(t, ok)

	s.tick()
	_, ok = Target(s.w, s.right)
	assert.True(t, ok, "contact still there, so the hand grabs again")
	assert.Len(t, s.grabJoints(s.right), 1)
}

func TestForceGrabTeleports(t *testing.T) {
	s := newScene(t)
	require.True(t, ForceGrab(s.w, s.right, s.crate, mgl64.Vec3{0.5, 0, 0}))
	assert.False(t, ForceGrab(s.w, s.right, s.right, mgl64.Vec3{}))
	s.tick()

	g, _ := s.w.GlobalTransform(s.crate)
	assert.True(t, g.Translation.ApproxEqualThreshold(mgl64.Vec3{0, 1, 0}, 1e-9), "%v", g.Translation)
	joints := s.grabJoints(s.right)
	require.Len(t, joints, 1)
	_, a2 := physics.Anchors(joints[0].Kind)
	assert.Equal(t, mgl64.Vec3{}, a2)
}

func TestAtMostOneGrabJoint(t *testing.T) {
	s := newScene(t)
	other := s.w.SpawnNamed("barrel", dynamo.NewTransform(mgl64.Vec3{1.5, 2, 0}))
	s.eng.AddBody(other, physics.BodyDesc{Mass: dynamo.SphereMassProps(1, 0.2)})
	s.touch(s.right, s.crate, mgl64.Vec3{-0.4, 0, 0})
	s.touch(s.right, other, mgl64.Vec3{-0.4, 0, 0})

	for i := 0; i < 60; i++ {
		switch i % 7 {
		case 0, 1, 2:
			SetIntent(s.w, s.right, true)
		case 3:
			ForceGrab(s.w, s.right, other, mgl64.Vec3{})
		case 4:
			ForceGrab(s.w, s.right, s.crate, mgl64.Vec3{})
		case 5:
			SetIntent(s.w, s.right, false)
		}
		s.tick()
		require.LessOrEqual(t, len(s.grabJoints(s.right)), 1, "tick %d", i)
		if target, ok := Target(s.w, s.right); ok {
			joints := s.grabJoints(s.right)
			require.Len(t, joints, 1)
			assert.Equal(t, target, joints[0].Child)
		}
	}
}

func TestTwoHandsCanHoldOneBody(t *testing.T) {
	s := newScene(t)
	s.touch(s.right, s.crate, mgl64.Vec3{-0.4, 0, 0})
	SetIntent(s.w, s.right, true)
	s.tick()

	s.touch(s.left, s.crate, mgl64.Vec3{-0.5, 0, 0})
	SetIntent(s.w, s.left, true)
	s.tick()

	target, ok := Target(s.w, s.left)
	require.True(t, ok)
	assert.Equal(t, s.crate, target)
}

func TestSphere(t *testing.T) {
	s := newScene(t)
	q := Query{World: s.w, Graph: relation.Graph{World: s.w, Index: s.ix}}
	_, ok := q.Sphere(s.torso)
	assert.False(t, ok)

	ForceGrab(s.w, s.left, s.crate, mgl64.Vec3{-0.5, 0, 0})
	ForceGrab(s.w, s.right, s.crate, mgl64.Vec3{0.5, 0, 0})
	s.tick()
	s.ix.Rebuild(s.eng.Joints())

	crate, _ := s.w.GlobalTransform(s.crate)
	sphere, ok := q.Sphere(s.torso)
	require.True(t, ok)
	assert.True(t, sphere.Center.ApproxEqualThreshold(crate.Translation, 1e-9))
	assert.InDelta(t, 0.5, sphere.Radius, 1e-9)

	h := NewHistory(4)
	h.Update(q)
	assert.Len(t, h.Anchors(s.torso), 2)

	SetIntent(s.w, s.left, false)
	SetIntent(s.w, s.right, false)
	s.tick()
	_, ok = q.Sphere(s.torso)
	assert.False(t, ok)

	past, ok := q.SphereWithHistory(s.torso, h)
	require.True(t, ok)
	assert.InDelta(t, 0.5, past.Radius, 1e-9)

	h.Forget(s.torso)
	_, ok = q.SphereWithHistory(s.torso, h)
	assert.False(t, ok)
}

func TestSphereStopsAtHeldBodies(t *testing.T) {
	s := newScene(t)
	other := s.w.SpawnNamed("other", dynamo.NewTransform(mgl64.Vec3{-2, 1, 0}))
	otherHand := s.w.SpawnNamed("other-hand", dynamo.NewTransform(mgl64.Vec3{0.5, 0, 0}))
	s.w.SetParent(otherHand, other)
	world.GetStore[Character](s.w).Set(other, Character{})
	world.GetStore[Grabbing](s.w).Set(otherHand, Grabbing{})

	ForceGrab(s.w, s.left, other, mgl64.Vec3{})
	ForceGrab(s.w, otherHand, s.crate, mgl64.Vec3{})
	s.ix.Rebuild([]physics.Joint{{Parent: s.left, Child: other, Tag: physics.TagGrab}})

	q := Query{World: s.w, Graph: relation.Graph{World: s.w, Index: s.ix}}
	assert.Equal(t, []mgl64.Vec3{{-2, 1, 0}}, q.Anchors(s.torso))
	assert.Len(t, q.Anchors(other), 1)
}

func TestHistoryKeepsNewest(t *testing.T) {
	h := NewHistory(2)
	h.Record(1, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{2, 0, 0}, mgl64.Vec3{3, 0, 0})
	assert.Equal(t, []mgl64.Vec3{{2, 0, 0}, {3, 0, 0}}, h.Anchors(1))
}

func TestNearestAttachPoint(t *testing.T) {
	s := newScene(t)
	q := Query{World: s.w, Graph: relation.Graph{World: s.w, Index: s.ix}}
	_, ok := q.NearestAttachPoint(s.crate, mgl64.Vec3{})
	assert.False(t, ok)

	world.GetStore[AimAssist](s.w).Set(s.crate, AimAssist{Primitives: []Primitive{
		Segment(mgl64.Vec3{0, -1, 0}, mgl64.Vec3{0, 1, 0}),
	}})
	p, ok := q.NearestAttachPoint(s.crate, mgl64.Vec3{0, 1.5, 0})
	require.True(t, ok)
	assert.True(t, p.ApproxEqualThreshold(mgl64.Vec3{1.5, 1.5, 0}, 1e-9), "%v", p)
}

func TestPrimitiveClosest(t *testing.T) {
	seg := Segment(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 0, 0})
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, seg.Closest(mgl64.Vec3{-3, 1, 0}))
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, seg.Closest(mgl64.Vec3{1, 5, 0}))
	assert.Equal(t, mgl64.Vec3{2, 0, 0}, seg.Closest(mgl64.Vec3{9, 0, 0}))

	_, ok := AimAssist{}.Closest(mgl64.Vec3{})
	assert.False(t, ok)
	assert.False(t, math.IsNaN(Segment(mgl64.Vec3{}, mgl64.Vec3{}).Closest(mgl64.Vec3{1, 1, 1})[0]))
}
