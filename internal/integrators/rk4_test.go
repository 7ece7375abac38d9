package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) Dim() int { return 2 }

func (h *harmonicOscillator) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func TestRK4Accuracy(t *testing.T) {
	integ := NewRK4()
	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(&harmonicOscillator{}, x, float64(i)*dt, dt)
	}

	assert.InDelta(t, math.Cos(float64(steps)*dt), x[0], 1e-4)
	assert.InDelta(t, -math.Sin(float64(steps)*dt), x[1], 1e-4)
}

func TestEnergyBehaviour(t *testing.T) {
	tests := []struct {
		name    string
		integ   Integrator
		maxGain float64
	}{
		{"semi_implicit", NewSemiImplicit(), 0.01},
		{"verlet", NewVerlet(), 0.01},
		{"rk4", NewRK4(), 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := dynamo.State{1.0, 0.0}
			e0 := energy(x)
			for i := 0; i < 1000; i++ {
				x = tt.integ.Step(&harmonicOscillator{}, x, float64(i)*0.01, 0.01)
			}
			require.True(t, x.IsValid())
			assert.InDelta(t, e0, energy(x), tt.maxGain)
		})
	}
}

func TestEulerGainsEnergy(t *testing.T) {
	x := dynamo.State{1.0, 0.0}
	integ := NewEuler()
	for i := 0; i < 1000; i++ {
		x = integ.Step(&harmonicOscillator{}, x, float64(i)*0.01, 0.01)
	}
	assert.Greater(t, energy(x), 0.5)
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		integ, err := New(name)
		require.NoError(t, err, name)
		assert.NotNil(t, integ)
	}

	integ, err := New("")
	require.NoError(t, err)
	assert.IsType(t, &SemiImplicit{}, integ)

	_, err = New("rk45")
	assert.Error(t, err)
}
