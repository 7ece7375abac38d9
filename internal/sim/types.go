package sim

import (
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/world"
)

// TickStats summarizes what one Step did.
type TickStats struct {
	Tick     int
	Time     float64
	Effort   float64
	Broken   int
	Inserted int
	Removed  int
}

// Frame is what metrics and observers see after a tick.
type Frame struct {
	World  *world.World
	Engine physics.Engine
	Stats  TickStats
}

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(f Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(f Frame)

func (fn ObserverFunc) OnStep(f Frame) { fn(f) }

// Probe samples one scalar channel of the simulation.
type Probe struct {
	Name string
	Fn   func(f Frame) float64
}

// Script is scenario input run at the start of every tick, before any
// system makes a decision.
type Script func(s *Simulator)

type Config struct {
	Duration float64
	// SampleEvery records probes every n ticks. Zero samples every tick.
	SampleEvery int
}

type Result struct {
	Times      []float64
	Channels   []string
	Samples    map[string][]float64
	Metrics    map[string]float64
	StepsTaken int
	Digest     uint64
}
