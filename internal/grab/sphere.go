package grab

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/relation"
	"github.com/san-kum/grapple/internal/world"
)

// Sphere bounds the grab anchors of a character. It is advisory input for
// reach logic.
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

// Query answers read-only questions about what characters hold.
type Query struct {
	World *world.World
	Graph relation.Graph
}

// Anchors returns the world positions of the grab anchors held by root and
// every manipulator of its own body, in traversal order. Held bodies are not
// walked into.
func (q Query) Anchors(root dynamo.Entity) []mgl64.Vec3 {
	store := world.GetStore[Grabbing](q.World)
	var out []mgl64.Vec3
	for _, e := range q.Graph.Members(root, relation.FollowBody) {
		g, ok := store.Get(e)
		if !ok || g.Grabbed == nil {
			continue
		}
		pose, ok := q.World.GlobalTransform(g.Grabbed.Entity)
		if !ok {
			continue
		}
		out = append(out, pose.TransformPoint(g.Grabbed.LocalAnchor))
	}
	return out
}

// Sphere bounds the current anchors under root.
func (q Query) Sphere(root dynamo.Entity) (Sphere, bool) {
	return bound(q.Anchors(root))
}

// SphereWithHistory bounds the current anchors together with the ones h
// recorded for root.
func (q Query) SphereWithHistory(root dynamo.Entity, h *History) (Sphere, bool) {
	points := q.Anchors(root)
	if h != nil {
		points = append(points, h.Anchors(root)...)
	}
	return bound(points)
}

// NearestAttachPoint returns the world position of the aim-assist point on
// target nearest to worldPoint.
func (q Query) NearestAttachPoint(target dynamo.Entity, worldPoint mgl64.Vec3) (mgl64.Vec3, bool) {
	aim, ok := world.GetStore[AimAssist](q.World).Get(target)
	if !ok {
		return mgl64.Vec3{}, false
	}
	pose, ok := q.World.GlobalTransform(target)
	if !ok {
		return mgl64.Vec3{}, false
	}
	local, ok := aim.Closest(pose.InverseTransformPoint(worldPoint))
	if !ok {
		return mgl64.Vec3{}, false
	}
	return pose.TransformPoint(local), true
}

func bound(points []mgl64.Vec3) (Sphere, bool) {
	if len(points) == 0 {
		return Sphere{}, false
	}
	lo := mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := lo.Mul(-1)
	for _, p := range points {
		for i := range p {
			lo[i] = math.Min(lo[i], p[i])
			hi[i] = math.Max(hi[i], p[i])
		}
	}
	return Sphere{
		Center: lo.Add(hi).Mul(0.5),
		Radius: hi.Sub(lo).Len() / 2,
	}, true
}

// History keeps the most recent anchors seen under each character root.
type History struct {
	Max     int
	anchors map[dynamo.Entity][]mgl64.Vec3
}

func NewHistory(max int) *History {
	return &History{Max: max, anchors: make(map[dynamo.Entity][]mgl64.Vec3)}
}

func (h *History) Record(root dynamo.Entity, points ...mgl64.Vec3) {
	if h.Max <= 0 || len(points) == 0 {
		return
	}
	buf := append(h.anchors[root], points...)
	if over := len(buf) - h.Max; over > 0 {
		buf = append([]mgl64.Vec3(nil), buf[over:]...)
	}
	h.anchors[root] = buf
}

func (h *History) Anchors(root dynamo.Entity) []mgl64.Vec3 {
	return h.anchors[root]
}

func (h *History) Forget(root dynamo.Entity) {
	delete(h.anchors, root)
}

// Update records the current anchors of every character.
func (h *History) Update(q Query) {
	for _, root := range world.GetStore[Character](q.World).Entities() {
		h.Record(root, q.Anchors(root)...)
	}
}
