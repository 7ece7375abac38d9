package metrics

import "github.com/san-kum/grapple/internal/sim"

// MuscleEffort is the mean per-tick sum of muscle impulse magnitudes.
type MuscleEffort struct {
	name    string
	sum     float64
	samples int
}

func NewMuscleEffort() *MuscleEffort {
	return &MuscleEffort{
		name: "muscle_effort",
	}
}

func (c *MuscleEffort) Name() string {
	return c.name
}

func (c *MuscleEffort) Observe(f sim.Frame) {
	c.sum += f.Stats.Effort
	c.samples++
}

func (c *MuscleEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *MuscleEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
