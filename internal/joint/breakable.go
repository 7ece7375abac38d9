package joint

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/world"
	"go.uber.org/zap"
)

// Breakable severs Joint once the impulse the solver pushed through it on
// any axis exceeds that axis' threshold. A threshold of zero leaves the axis
// unchecked. Nothing breaks until the joint is GracePeriod seconds old.
type Breakable struct {
	Joint            physics.JointID
	ImpulseThreshold mgl64.Vec3
	TorqueThreshold  mgl64.Vec3
	GracePeriod      float64
	Age              float64
}

// Stress is the largest ratio of solved impulse to threshold over the
// checked axes. Values above one break the joint.
func (b Breakable) Stress(linear, angular mgl64.Vec3) float64 {
	var worst float64
	for i := 0; i < 3; i++ {
		if t := b.ImpulseThreshold[i]; t > 0 {
			worst = math.Max(worst, math.Abs(linear[i])/t)
		}
		if t := b.TorqueThreshold[i]; t > 0 {
			worst = math.Max(worst, math.Abs(angular[i])/t)
		}
	}
	return worst
}

// Inspect ages every Breakable by dt and breaks the joints that were over
// their thresholds in the last physics step. It returns the number broken.
func (s *System) Inspect(dt float64) int {
	store := world.GetStore[Breakable](s.World)
	broken := 0
	for _, e := range store.Entities() {
		b, _ := store.Get(e)
		b.Age += dt
		store.Set(e, b)
		if b.Age < b.GracePeriod {
			continue
		}

		linear, angular, ok := s.Engine.JointImpulse(b.Joint)
		if !ok {
			store.Remove(e)
			continue
		}
		if b.Stress(linear, angular) <= 1 {
			continue
		}

		s.Commands.Remove(b.Joint)
		store.Remove(e)
		broken++
		s.logger().Info("joint broke",
			zap.Stringer("entity", e),
			zap.Uint64("joint", uint64(b.Joint)),
			zap.Float64s("impulse", linear[:]),
			zap.Float64s("torque", angular[:]),
			zap.Float64("age", b.Age),
		)
	}
	return broken
}

// MaxStress reports the highest Stress over all breakable joints, using the
// impulses of the last physics step.
func MaxStress(w *world.World, eng physics.Engine) float64 {
	var worst float64
	store := world.GetStore[Breakable](w)
	for _, e := range store.Entities() {
		b, _ := store.Get(e)
		linear, angular, ok := eng.JointImpulse(b.Joint)
		if !ok {
			continue
		}
		worst = math.Max(worst, b.Stress(linear, angular))
	}
	return worst
}
