package joint

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/world"
	"go.uber.org/zap"
)

// Interpolation moves a live joint from Start to End over Duration seconds.
// Start and End must be the same joint kind.
type Interpolation struct {
	Joint    physics.JointID
	Start    physics.JointKind
	End      physics.JointKind
	Duration float64
	Fraction float64
}

func (i Interpolation) Done() bool { return i.Fraction >= 1 }

// Interpolate advances every Interpolation by dt and writes the blended
// configuration into its joint. Finished interpolations are left alone.
func (s *System) Interpolate(dt float64) {
	store := world.GetStore[Interpolation](s.World)
	for _, e := range store.Entities() {
		in, _ := store.Get(e)
		if in.Done() {
			continue
		}
		if in.Duration <= 0 {
			s.warned.Warn(s.logger(), "interp-duration:"+e.String(), "interpolation ignored",
				zap.Stringer("entity", e),
				zap.Error(fmt.Errorf("%w: %v", dynamo.ErrZeroDuration, in.Duration)),
			)
			continue
		}

		in.Fraction = mgl64.Clamp(in.Fraction+dt/in.Duration, 0, 1)
		kind, err := physics.LerpKind(in.Start, in.End, in.Fraction)
		if err != nil {
			s.warned.Warn(s.logger(), "interp-kind:"+e.String(), "interpolation ignored",
				zap.Stringer("entity", e),
				zap.Error(err),
			)
			continue
		}
		if !s.Engine.SetJointKind(in.Joint, kind) {
			s.logger().Debug("interpolated joint gone", zap.Stringer("entity", e), zap.Uint64("joint", uint64(in.Joint)))
			store.Remove(e)
			continue
		}
		store.Set(e, in)
	}
}
