package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/attach"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/joint"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 60

func newTestSim(t *testing.T, opts ...physics.Option) *Simulator {
	t.Helper()
	w := world.New()
	eng := physics.NewReference(dt, opts...)
	eng.Track(w)
	return New(w, eng)
}

func addBall(s *Simulator, name string, at mgl64.Vec3) dynamo.Entity {
	e := s.World.SpawnNamed(name, dynamo.NewTransform(at))
	s.Engine.(*physics.Reference).AddBody(e, physics.BodyDesc{Mass: dynamo.SphereMassProps(1, 0.1), Radius: 0.1})
	return e
}

type countMetric struct {
	count int
}

func (c *countMetric) Name() string   { return "count" }
func (c *countMetric) Observe(Frame)  { c.count++ }
func (c *countMetric) Value() float64 { return float64(c.count) }
func (c *countMetric) Reset()         { c.count = 0 }

func TestRunSamplesAndMetrics(t *testing.T) {
	s := newTestSim(t)
	m := &countMetric{}
	s.AddMetric(m)
	s.AddProbe("tick", func(f Frame) float64 { return float64(f.Stats.Tick) })

	res, err := s.Run(context.Background(), Config{Duration: 1, SampleEvery: 2})
	require.NoError(t, err)

	assert.Equal(t, 60, res.StepsTaken)
	assert.Equal(t, 60.0, res.Metrics["count"])
	assert.Equal(t, []string{"tick"}, res.Channels)
	assert.Len(t, res.Times, 30)
	assert.Equal(t, []float64{0, 2, 4}, res.Samples["tick"][:3])
	assert.InDelta(t, 1.0, s.Time(), 1e-9)
}

func TestRunInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero duration", Config{Duration: 0}},
		{"negative duration", Config{Duration: -1}},
		{"negative sampling", Config{Duration: 1, SampleEvery: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSim(t)
			_, err := s.Run(context.Background(), tt.cfg)
			assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)
		})
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	s := newTestSim(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Run(ctx, Config{Duration: 1})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Zero(t, res.StepsTaken)
}

func TestNonFiniteStateStopsRun(t *testing.T) {
	s := newTestSim(t)
	bad := s.World.SpawnNamed("bad", dynamo.Identity())
	s.AddScript(func(s *Simulator) {
		if s.Tick() == 3 {
			s.World.SetTransform(bad, dynamo.NewTransform(mgl64.Vec3{math.NaN(), 0, 0}))
		}
	})

	res, err := s.Run(context.Background(), Config{Duration: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, dynamo.ErrInvalidState)

	var tickErr *dynamo.TickError
	require.True(t, errors.As(err, &tickErr))
	assert.Equal(t, 3, tickErr.Tick)
	assert.Equal(t, StagePhysics, tickErr.Stage)
	assert.Equal(t, 3, res.StepsTaken)
}

func TestFollowerSeesThisTicksWriteBack(t *testing.T) {
	s := newTestSim(t, physics.WithGravity(mgl64.Vec3{0, -9.81, 0}))
	ball := addBall(s, "ball", mgl64.Vec3{0, 10, 0})
	marker := s.World.SpawnNamed("marker", dynamo.Identity())
	world.GetStore[attach.Attach](s.World).Set(marker, attach.To(ball))

	for i := 0; i < 10; i++ {
		_, err := s.Step()
		require.NoError(t, err)

		b, _ := s.World.GlobalTransform(ball)
		m, _ := s.World.GlobalTransform(marker)
		require.InDelta(t, 0, b.Translation.Sub(m.Translation).Len(), 1e-12, "tick %d", i)
	}
}

func TestBreakableReadsPreviousTick(t *testing.T) {
	s := newTestSim(t, physics.WithGravity(mgl64.Vec3{0, -9.81, 0}))
	anchor := s.World.SpawnNamed("anchor", dynamo.NewTransform(mgl64.Vec3{0, 2, 0}))
	bob := addBall(s, "bob", mgl64.Vec3{0, 2, 0})
	id := s.Engine.InsertJoint(physics.Joint{Child: bob, Parent: anchor, Kind: physics.NewSpherical(mgl64.Vec3{}, mgl64.Vec3{})})
	world.GetStore[joint.Breakable](s.World).Set(bob, joint.Breakable{Joint: id, ImpulseThreshold: mgl64.Vec3{0.1, 0.1, 0.1}})

	first, err := s.Step()
	require.NoError(t, err)
	assert.Zero(t, first.Broken, "nothing solved yet on the first tick")

	second, err := s.Step()
	require.NoError(t, err)
	assert.Equal(t, 1, second.Broken)
	assert.Equal(t, 1, second.Removed)
	_, alive := s.Engine.Joint(id)
	assert.False(t, alive)
}

func TestDigest(t *testing.T) {
	build := func() *Simulator {
		s := newTestSim(t, physics.WithGravity(mgl64.Vec3{0, -9.81, 0}))
		addBall(s, "a", mgl64.Vec3{0, 1, 0})
		addBall(s, "b", mgl64.Vec3{0.15, 1.5, 0})
		return s
	}

	r1, err := build().Run(context.Background(), Config{Duration: 0.5})
	require.NoError(t, err)
	r2, err := build().Run(context.Background(), Config{Duration: 0.5})
	require.NoError(t, err)
	assert.Equal(t, r1.Digest, r2.Digest)

	r3, err := build().Run(context.Background(), Config{Duration: 0.25})
	require.NoError(t, err)
	assert.NotEqual(t, r1.Digest, r3.Digest)
}

func TestEnsemble(t *testing.T) {
	build := func(seed int64) (*Simulator, error) {
		s := newTestSim(t, physics.WithGravity(mgl64.Vec3{0, -9.81, 0}))
		addBall(s, "ball", mgl64.Vec3{float64(seed), 1, 0})
		return s, nil
	}

	results, err := NewEnsemble(build, 4, 10).Run(context.Background(), Config{Duration: 0.2})
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.Equal(t, 12, r.StepsTaken)
	}
	assert.NotEqual(t, results[0].Digest, results[1].Digest)
}

func TestEnsembleStopsOnBuildError(t *testing.T) {
	boom := errors.New("boom")
	build := func(seed int64) (*Simulator, error) {
		if seed == 2 {
			return nil, boom
		}
		return newTestSim(t), nil
	}

	e := NewEnsemble(build, 4, 0)
	e.SetWorkers(1)
	_, err := e.Run(context.Background(), Config{Duration: 0.1})
	assert.ErrorIs(t, err, boom)
}
