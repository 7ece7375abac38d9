package metrics

import (
	"math"

	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/joint"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/sim"
	"github.com/san-kum/grapple/internal/slot"
)

// GrabJointsMax is the largest number of grab joints any single manipulator
// held during the run. Anything above one is a bug.
type GrabJointsMax struct {
	max int
}

func NewGrabJointsMax() *GrabJointsMax { return &GrabJointsMax{} }

func (g *GrabJointsMax) Name() string { return "grab_joints_max" }

func (g *GrabJointsMax) Observe(f sim.Frame) {
	per := make(map[dynamo.Entity]int)
	for _, j := range f.Engine.Joints() {
		if j.Tag == physics.TagGrab {
			per[j.Parent]++
		}
	}
	for _, n := range per {
		g.max = max(g.max, n)
	}
}

func (g *GrabJointsMax) Value() float64 { return float64(g.max) }
func (g *GrabJointsMax) Reset()         { g.max = 0 }

// SlotOccupancy is the number of occupied slots at the last observed tick.
type SlotOccupancy struct {
	last int
}

func NewSlotOccupancy() *SlotOccupancy { return &SlotOccupancy{} }

func (s *SlotOccupancy) Name() string        { return "slot_occupancy" }
func (s *SlotOccupancy) Observe(f sim.Frame) { s.last = slot.Occupancy(f.World) }
func (s *SlotOccupancy) Value() float64      { return float64(s.last) }
func (s *SlotOccupancy) Reset()              { s.last = 0 }

// JointStress is the peak ratio of solved impulse to break threshold seen on
// any breakable joint.
type JointStress struct {
	peak float64
}

func NewJointStress() *JointStress { return &JointStress{} }

func (j *JointStress) Name() string { return "joint_stress" }

func (j *JointStress) Observe(f sim.Frame) {
	j.peak = math.Max(j.peak, joint.MaxStress(f.World, f.Engine))
}

func (j *JointStress) Value() float64 { return j.peak }
func (j *JointStress) Reset()         { j.peak = 0 }

// JointsBroken counts breakable joints severed during the run.
type JointsBroken struct {
	n int
}

func NewJointsBroken() *JointsBroken { return &JointsBroken{} }

func (j *JointsBroken) Name() string        { return "joints_broken" }
func (j *JointsBroken) Observe(f sim.Frame) { j.n += f.Stats.Broken }
func (j *JointsBroken) Value() float64      { return float64(j.n) }
func (j *JointsBroken) Reset()              { j.n = 0 }

// Default returns a fresh instance of every metric.
func Default() []sim.Metric {
	return []sim.Metric{
		NewGrabJointsMax(),
		NewSlotOccupancy(),
		NewMuscleEffort(),
		NewJointStress(),
		NewJointsBroken(),
		NewKineticEnergy(),
		NewStability(20),
	}
}
