package sim_test

import (
	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/grab"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/sim"
	"github.com/san-kum/grapple/internal/slot"
	"github.com/san-kum/grapple/internal/world"
)

const dt = 1.0 / 60

func newSim() (*sim.Simulator, *physics.Reference) {
	w := world.New()
	eng := physics.NewReference(dt)
	eng.Track(w)
	return sim.New(w, eng), eng
}

func step(s *sim.Simulator, n int) {
	for i := 0; i < n; i++ {
		_, err := s.Step()
		Expect(err).NotTo(HaveOccurred())
	}
}

var _ = Describe("Slot deposit", func() {
	var (
		s       *sim.Simulator
		eng     *physics.Reference
		deposit dynamo.Entity
		socket  dynamo.Entity
		a, b    dynamo.Entity
	)

	queue := func() []dynamo.Entity {
		d, _ := world.GetStore[slot.Deposit](s.World).Get(deposit)
		return d.Queue()
	}
	state := func(e dynamo.Entity) slot.SlottableState {
		st, _ := world.GetStore[slot.Slottable](s.World).Get(e)
		return st.State
	}
	occupant := func() dynamo.Entity {
		e, _ := slot.Occupant(s.World, socket)
		return e
	}
	moveTo := func(e dynamo.Entity, p mgl64.Vec3) {
		s.World.SetGlobalTransform(e, dynamo.NewTransform(p))
	}

	BeforeEach(func() {
		s, eng = newSim()
		deposit = s.World.SpawnNamed("deposit", dynamo.Identity())
		eng.AddBody(deposit, physics.BodyDesc{Sensor: true, Radius: 0.5})
		socket = s.World.SpawnNamed("socket", dynamo.Identity())
		s.World.SetParent(socket, deposit)
		world.GetStore[slot.Slot](s.World).Set(socket, slot.Slot{})
		world.GetStore[slot.Deposit](s.World).Set(deposit, slot.NewDeposit(slot.ModeMotor, socket))

		a = s.World.SpawnNamed("a", dynamo.NewTransform(mgl64.Vec3{3, 0, 0}))
		b = s.World.SpawnNamed("b", dynamo.NewTransform(mgl64.Vec3{-3, 0, 0}))
		for _, e := range []dynamo.Entity{a, b} {
			eng.AddBody(e, physics.BodyDesc{Mass: dynamo.SphereMassProps(1, 0.1), Radius: 0.1})
			world.GetStore[slot.Slottable](s.World).Set(e, slot.Slottable{})
		}
	})

	Context("when A touches the zone before B", func() {
		BeforeEach(func() {
			moveTo(a, mgl64.Vec3{0.3, 0, 0})
			step(s, 1)
			moveTo(b, mgl64.Vec3{-0.3, 0, 0})
			step(s, 2)
		})

		It("slots A and keeps B waiting", func() {
			Expect(occupant()).To(Equal(a))
			Expect(state(a)).To(Equal(slot.Slotted))
			Expect(state(b)).To(Equal(slot.Free))
			Expect(queue()).To(Equal([]dynamo.Entity{b}))
		})

		It("pulls A onto the socket", func() {
			step(s, 300)
			g, _ := s.World.GlobalTransform(a)
			Expect(g.Translation.Len()).To(BeNumerically("<", 0.05))
			Expect(queue()).To(Equal([]dynamo.Entity{b}))
		})

		It("hands the slot to B once A's joint is gone", func() {
			for _, j := range eng.Joints() {
				if j.Tag == physics.TagSlot {
					Expect(eng.RemoveJoint(j.ID)).To(BeTrue())
				}
			}
			step(s, 1)
			Expect(state(a)).To(Equal(slot.Free))
			Expect(occupant()).To(Equal(b))
			Expect(queue()).To(BeEmpty())
		})

		It("drops B from the queue when it leaves", func() {
			moveTo(b, mgl64.Vec3{-3, 0, 0})
			step(s, 2)
			Expect(queue()).To(BeEmpty())
			Expect(occupant()).To(Equal(a))
		})
	})

	It("never slots one item twice or fills one slot twice", func() {
		moveTo(a, mgl64.Vec3{0.3, 0, 0})
		moveTo(b, mgl64.Vec3{-0.3, 0, 0})
		for i := 0; i < 120; i++ {
			step(s, 1)
			Expect(slot.Occupancy(s.World)).To(BeNumerically("<=", 1))
			Expect(state(a) == slot.Slotted && state(b) == slot.Slotted).To(BeFalse())
		}
	})
})

var _ = Describe("Grabbing", func() {
	var (
		s           *sim.Simulator
		eng         *physics.Reference
		torso, hand dynamo.Entity
		crate, bar  dynamo.Entity
	)

	grabJoints := func() int {
		n := 0
		for _, j := range eng.Joints() {
			if j.Tag == physics.TagGrab && j.Parent == hand {
				n++
			}
		}
		return n
	}

	BeforeEach(func() {
		s, eng = newSim()
		torso = s.World.SpawnNamed("torso", dynamo.NewTransform(mgl64.Vec3{0, 1, 0}))
		hand = s.World.SpawnNamed("hand", dynamo.NewTransform(mgl64.Vec3{0.5, 0, 0}))
		s.World.SetParent(hand, torso)
		crate = s.World.SpawnNamed("crate", dynamo.NewTransform(mgl64.Vec3{0.8, 1, 0}))
		bar = s.World.SpawnNamed("bar", dynamo.NewTransform(mgl64.Vec3{0.5, 1.3, 0}))

		eng.AddBody(torso, physics.BodyDesc{})
		eng.AddBody(hand, physics.BodyDesc{})
		for _, e := range []dynamo.Entity{crate, bar} {
			eng.AddBody(e, physics.BodyDesc{Mass: dynamo.SphereMassProps(1, 0.15)})
		}
		world.GetStore[grab.Character](s.World).Set(torso, grab.Character{})
		world.GetStore[grab.Grabbing](s.World).Set(hand, grab.Grabbing{})

		eng.SetContact(hand, crate, []physics.ContactPoint{{LocalPoint2: mgl64.Vec3{-0.15, 0, 0}, Normal: mgl64.Vec3{1, 0, 0}}})
		eng.SetContact(hand, bar, []physics.ContactPoint{{LocalPoint2: mgl64.Vec3{0, -0.15, 0}, Normal: mgl64.Vec3{0, 1, 0}}})
	})

	It("holds what it touches while intent lasts", func() {
		grab.SetIntent(s.World, hand, true)
		step(s, 1)
		target, ok := grab.Target(s.World, hand)
		Expect(ok).To(BeTrue())
		Expect([]dynamo.Entity{crate, bar}).To(ContainElement(target))
		Expect(grabJoints()).To(Equal(1))

		grab.SetIntent(s.World, hand, false)
		step(s, 1)
		_, ok = grab.Target(s.World, hand)
		Expect(ok).To(BeFalse())
		Expect(grabJoints()).To(BeZero())
	})

	It("keeps at most one grab joint through toggled intents", func() {
		s.AddScript(func(s *sim.Simulator) {
			grab.SetIntent(s.World, hand, (s.Tick()/7)%2 == 0)
			if s.Tick() == 40 {
				grab.ForceGrab(s.World, hand, bar, mgl64.Vec3{})
			}
		})
		for i := 0; i < 120; i++ {
			step(s, 1)
			Expect(grabJoints()).To(BeNumerically("<=", 1))
		}
	})

	It("bounds held anchors with the grab sphere", func() {
		grab.SetIntent(s.World, hand, true)
		step(s, 1)
		sphere, ok := s.Query().Sphere(torso)
		Expect(ok).To(BeTrue())
		Expect(sphere.Radius).To(BeNumerically("~", 0, 1e-9))
	})
})
