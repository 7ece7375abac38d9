package grab

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/logging"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/relation"
	"github.com/san-kum/grapple/internal/world"
	"go.uber.org/zap"
)

// Config tunes the angular motors of grab joints.
type Config struct {
	MotorStiffness float64 `yaml:"motor_stiffness"`
	MotorDamping   float64 `yaml:"motor_damping"`
	MaxTorque      float64 `yaml:"max_torque"`
}

func DefaultConfig() Config {
	return Config{MotorStiffness: 200, MotorDamping: 20, MaxTorque: 50}
}

type System struct {
	World    *world.World
	Engine   physics.Engine
	Graph    relation.Graph
	Commands *physics.Commands
	Config   Config
	Log      *zap.Logger
}

// Update advances every manipulator's grab state and queues the joint
// changes that follow from it.
func (s *System) Update() {
	store := world.GetStore[Grabbing](s.World)
	for _, e := range store.Entities() {
		g, _ := store.Get(e)

		if g.Grabbed != nil && (!g.TryingGrab || !s.World.IsAlive(g.Grabbed.Entity)) {
			s.logger().Debug("grab released", zap.Stringer("manipulator", e), zap.Stringer("target", g.Grabbed.Entity))
			g.Grabbed = nil
		}
		if g.TryingGrab && g.Grabbed == nil {
			if c, ok := s.candidate(e); ok {
				g.Grabbed = &c
				s.logger().Debug("grab acquired",
					zap.Stringer("manipulator", e),
					zap.Stringer("target", c.Entity),
					zap.Float64s("anchor", c.LocalAnchor[:]),
				)
			}
		}

		g = s.syncJoint(e, g)
		store.Set(e, g)
	}
}

// syncJoint makes the engine hold at most one grab joint per manipulator,
// pointing at the current target.
func (s *System) syncJoint(e dynamo.Entity, g Grabbing) Grabbing {
	joints := world.GetStore[grabJoint](s.World)
	gj, has := joints.Get(e)

	if g.Grabbed == nil {
		if has {
			s.Commands.Remove(gj.ID)
			joints.Remove(e)
		}
		return g
	}

	if has && gj.Target == g.Grabbed.Entity {
		if _, live := s.Engine.Joint(gj.ID); live {
			return g
		}
		// Broken or removed elsewhere since last tick.
		s.logger().Debug("grab joint lost", zap.Stringer("manipulator", e), zap.Uint64("joint", uint64(gj.ID)))
		joints.Remove(e)
		g.Grabbed = nil
		return g
	}
	if has {
		s.Commands.Remove(gj.ID)
	}

	kind, ok := s.jointKind(e, *g.Grabbed)
	if !ok {
		joints.Remove(e)
		g.Grabbed = nil
		return g
	}
	id := s.Commands.Insert(s.Engine, physics.Joint{
		Child:  g.Grabbed.Entity,
		Parent: e,
		Kind:   kind,
		Tag:    physics.TagGrab,
	})
	joints.Set(e, grabJoint{ID: id, Target: g.Grabbed.Entity})
	return g
}

// jointKind builds the spherical joint for a grab. The child is the held
// body and the parent the manipulator.
func (s *System) jointKind(e dynamo.Entity, gr Grabbed) (physics.JointKind, bool) {
	manip, ok := s.World.GlobalTransform(e)
	if !ok {
		return nil, false
	}
	target, ok := s.World.GlobalTransform(gr.Entity)
	if !ok {
		return nil, false
	}

	var onManip mgl64.Vec3
	if gr.Teleport {
		target.Translation = manip.Translation.Sub(target.Rotation.Rotate(dynamo.MulElem(target.Scale, gr.LocalAnchor)))
		s.World.SetGlobalTransform(gr.Entity, target)
	} else {
		onManip = manip.InverseTransformPoint(target.TransformPoint(gr.LocalAnchor))
	}

	kind := physics.NewSpherical(gr.LocalAnchor, onManip)
	for a := physics.AxisAngX; a <= physics.AxisAngZ; a++ {
		kind = kind.WithMotor(a, physics.PositionMotor(0, s.Config.MotorStiffness, s.Config.MotorDamping, s.Config.MaxTorque))
	}
	return kind, true
}

// candidate picks the contact point nearest the manipulator's center over
// every grabbable body it touches.
func (s *System) candidate(e dynamo.Entity) (Grabbed, bool) {
	body, ok := s.Engine.Body(e)
	if !ok {
		return Grabbed{}, false
	}
	center := body.Pose.Translation

	self := make(map[dynamo.Entity]struct{})
	for _, m := range s.Graph.Members(s.characterRoot(e), relation.FollowBody) {
		self[m] = struct{}{}
	}
	blocked := world.GetStore[NotGrabbable](s.World)

	var best Grabbed
	bestDist := math.Inf(1)
	for _, c := range s.Engine.ContactsWith(e) {
		if len(c.Points) == 0 {
			continue
		}
		owner, ok := s.Graph.FindParentOrSelfWith(c.Other, s.Engine.HasBody, relation.FollowHierarchy)
		if !ok {
			continue
		}
		if _, mine := self[owner]; mine || blocked.Has(owner) {
			continue
		}
		otherPose, ok := s.World.GlobalTransform(c.Other)
		if !ok {
			continue
		}
		ownerPose, ok := s.World.GlobalTransform(owner)
		if !ok {
			continue
		}
		for _, p := range c.Points {
			wp := otherPose.TransformPoint(p.LocalPoint2)
			if d := wp.Sub(center).Len(); d < bestDist {
				bestDist = d
				best = Grabbed{Entity: owner, LocalAnchor: ownerPose.InverseTransformPoint(wp)}
			}
		}
	}
	if math.IsInf(bestDist, 1) {
		return Grabbed{}, false
	}

	if aim, ok := world.GetStore[AimAssist](s.World).Get(best.Entity); ok {
		if p, ok := aim.Closest(best.LocalAnchor); ok {
			best.LocalAnchor = p
		}
	}
	return best, true
}

func (s *System) characterRoot(e dynamo.Entity) dynamo.Entity {
	chars := world.GetStore[Character](s.World)
	if root, ok := s.Graph.FindParentOrSelfWith(e, chars.Has, relation.FollowBody); ok {
		return root
	}
	return s.Graph.LogicalRoot(e, relation.FollowBody)
}

func (s *System) logger() *zap.Logger { return logging.OrNop(s.Log) }
