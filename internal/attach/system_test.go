package attach

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 60

func newSystem(t *testing.T) (*world.World, *System) {
	t.Helper()
	w := world.New()
	return w, NewSystem(w, "", nil)
}

func globalOf(t *testing.T, w *world.World, e dynamo.Entity) dynamo.Transform {
	t.Helper()
	g, ok := w.GlobalTransform(e)
	require.True(t, ok)
	return g
}

func TestInstantFollowerHasNoLag(t *testing.T) {
	w, sys := newSystem(t)
	pose := dynamo.NewTransform(mgl64.Vec3{3, 1, -2}).
		WithRotation(mgl64.QuatRotate(0.7, mgl64.Vec3{0, 1, 0}))
	target := w.SpawnNamed("target", pose)

	mount := w.SpawnNamed("mount", dynamo.NewTransform(mgl64.Vec3{-1, 0, 4}))
	follower := w.Spawn()
	w.SetParent(follower, mount)
	world.GetStore[Attach](w).Set(follower, To(target))

	sys.Update(dt)
	sys.Update(dt)

	g := globalOf(t, w, follower)
	assert.True(t, g.Translation.ApproxEqualThreshold(pose.Translation, 1e-12), "%v", g.Translation)
	assert.True(t, g.Rotation.ApproxEqualThreshold(pose.Rotation, 1e-12))
}

func TestFollowerTracksMovingTargetSameTick(t *testing.T) {
	w, sys := newSystem(t)
	target := w.Spawn()
	follower := w.Spawn()
	world.GetStore[Attach](w).Set(follower, To(target))

	for i := 1; i <= 5; i++ {
		p := mgl64.Vec3{float64(i), 0, 0}
		w.SetTransform(target, dynamo.NewTransform(p))
		sys.Update(dt)
		assert.Equal(t, p, globalOf(t, w, follower).Translation)
	}
}

func TestInverseRotation(t *testing.T) {
	w, sys := newSystem(t)
	q := mgl64.QuatRotate(0.5, mgl64.Vec3{0, 0, 1})
	target := w.SpawnNamed("target", dynamo.Identity().WithRotation(q))
	follower := w.Spawn()
	world.GetStore[Attach](w).Set(follower, Attach{Target: target, Rotation: Inverse()})

	sys.Update(dt)
	g := globalOf(t, w, follower)
	assert.True(t, g.Rotation.ApproxEqualThreshold(q.Inverse(), 1e-12))
	assert.Equal(t, mgl64.Vec3{}, g.Translation, "untouched channel")
}

func TestSpringFollowerConverges(t *testing.T) {
	w, sys := newSystem(t)
	target := w.SpawnNamed("target", dynamo.NewTransform(mgl64.Vec3{1, 0, 0}).WithScale(mgl64.Vec3{2, 2, 2}))
	follower := w.Spawn()
	world.GetStore[Attach](w).Set(follower, Attach{
		Target:      target,
		Translation: Spring(10, 1),
		Rotation:    Instant(),
		Scale:       Spring(10, 1),
	})

	sys.Update(dt)
	first := globalOf(t, w, follower).Translation[0]
	assert.Greater(t, first, 0.0)
	assert.Less(t, first, 1.0)
	assert.InDelta(t, first-1, Offset(w, follower)[0], 1e-12)

	for i := 0; i < 300; i++ {
		sys.Update(dt)
	}
	g := globalOf(t, w, follower)
	assert.InDelta(t, 1.0, g.Translation[0], 1e-3)
	assert.InDelta(t, 2.0, g.Scale[0], 1e-3)
}

func TestSpringFollowerLagsAfterSettling(t *testing.T) {
	w, sys := newSystem(t)
	target := w.Spawn()
	follower := w.Spawn()
	world.GetStore[Attach](w).Set(follower, Attach{Target: target, Translation: Spring(5, 1), Rotation: Spring(5, 1)})

	for i := 0; i < 600; i++ {
		sys.Update(dt)
	}
	require.InDelta(t, 0.0, globalOf(t, w, follower).Translation[0], 1e-6)

	q := mgl64.QuatRotate(1, mgl64.Vec3{0, 1, 0})
	w.SetTransform(target, dynamo.NewTransform(mgl64.Vec3{10, 0, 0}).WithRotation(q))
	sys.Update(dt)

	g := globalOf(t, w, follower)
	assert.Greater(t, g.Translation[0], 0.0)
	assert.Less(t, g.Translation[0], 1.0, "a jump is followed gradually")
	assert.False(t, g.Rotation.ApproxEqualThreshold(q, 1e-3))
	assert.InDelta(t, g.Translation[0]-10, Offset(w, follower)[0], 1e-12)

	for i := 0; i < 600; i++ {
		sys.Update(dt)
	}
	g = globalOf(t, w, follower)
	assert.InDelta(t, 10.0, g.Translation[0], 1e-3)
	assert.True(t, g.Rotation.ApproxEqualThreshold(q, 1e-3))
}

func TestSpringRotationConverges(t *testing.T) {
	w, sys := newSystem(t)
	q := mgl64.QuatRotate(1.2, mgl64.Vec3{1, 0, 0})
	target := w.SpawnNamed("target", dynamo.Identity().WithRotation(q))
	follower := w.Spawn()
	world.GetStore[Attach](w).Set(follower, Attach{Target: target, Rotation: Spring(8, 1)})

	for i := 0; i < 300; i++ {
		sys.Update(dt)
	}
	assert.True(t, globalOf(t, w, follower).Rotation.ApproxEqualThreshold(q, 1e-3))
}

func TestFollowerChainResolvesInOneUpdate(t *testing.T) {
	w, sys := newSystem(t)
	outer := w.Spawn()
	inner := w.Spawn()
	target := w.SpawnNamed("target", dynamo.NewTransform(mgl64.Vec3{0, 5, 0}))
	store := world.GetStore[Attach](w)
	store.Set(outer, To(inner))
	store.Set(inner, To(target))

	sys.Update(dt)
	assert.Equal(t, mgl64.Vec3{0, 5, 0}, globalOf(t, w, outer).Translation)
}

func TestFollowerUnderFollowerParentHasNoLag(t *testing.T) {
	w, sys := newSystem(t)
	child := w.Spawn()
	anchor := w.SpawnNamed("anchor", dynamo.NewTransform(mgl64.Vec3{0, 0, 3}))
	mount := w.Spawn()
	target := w.SpawnNamed("target", dynamo.NewTransform(mgl64.Vec3{5, 0, 0}))
	w.SetParent(child, mount)

	store := world.GetStore[Attach](w)
	store.Set(child, To(anchor))
	store.Set(mount, To(target))

	sys.Update(dt)
	assert.Equal(t, mgl64.Vec3{5, 0, 0}, globalOf(t, w, mount).Translation)
	assert.True(t, globalOf(t, w, child).Translation.ApproxEqualThreshold(mgl64.Vec3{0, 0, 3}, 1e-12))
}

func TestDespawnedTargetDropsDirective(t *testing.T) {
	w, sys := newSystem(t)
	target := w.Spawn()
	follower := w.SpawnNamed("follower", dynamo.NewTransform(mgl64.Vec3{1, 1, 1}))
	store := world.GetStore[Attach](w)
	store.Set(follower, To(target))

	w.Despawn(target)
	sys.Update(dt)
	assert.False(t, store.Has(follower))
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, globalOf(t, w, follower).Translation)
}

func TestModeNames(t *testing.T) {
	assert.Equal(t, "spring", ModeSpring.String())
	assert.Equal(t, "none", ModeNone.String())
}
