package grab

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type PrimitiveKind uint8

const (
	PrimitivePoint PrimitiveKind = iota
	PrimitiveSegment
)

// Primitive is a designer-placed grab point or segment in local space.
type Primitive struct {
	Kind PrimitiveKind
	A, B mgl64.Vec3
}

func Point(p mgl64.Vec3) Primitive { return Primitive{Kind: PrimitivePoint, A: p} }

func Segment(a, b mgl64.Vec3) Primitive { return Primitive{Kind: PrimitiveSegment, A: a, B: b} }

// Closest returns the point of the primitive nearest to p.
func (pr Primitive) Closest(p mgl64.Vec3) mgl64.Vec3 {
	if pr.Kind == PrimitivePoint {
		return pr.A
	}
	ab := pr.B.Sub(pr.A)
	l2 := ab.Dot(ab)
	if l2 < 1e-18 {
		return pr.A
	}
	t := mgl64.Clamp(p.Sub(pr.A).Dot(ab)/l2, 0, 1)
	return pr.A.Add(ab.Mul(t))
}

// AimAssist biases grab anchors toward authored primitives.
type AimAssist struct {
	Primitives []Primitive
}

// Closest returns the nearest point over all primitives to p, both in local space.
func (a AimAssist) Closest(p mgl64.Vec3) (mgl64.Vec3, bool) {
	best := math.Inf(1)
	var out mgl64.Vec3
	for _, pr := range a.Primitives {
		c := pr.Closest(p)
		if d := c.Sub(p).Len(); d < best {
			best, out = d, c
		}
	}
	return out, len(a.Primitives) > 0
}
