package slot

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/grapple/internal/control"
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/logging"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/world"
	"go.uber.org/zap"
)

type Config struct {
	// Motor gains of the joint holding a slotted item.
	Stiffness float64 `yaml:"stiffness"`
	Damping   float64 `yaml:"damping"`
	MaxForce  float64 `yaml:"max_force"`

	// GracePeriod is how long, in seconds, a freshly slotted item cannot be
	// forced out.
	GracePeriod float64 `yaml:"grace_period"`
	// ReleaseDistance ejects a motor-held item dragged this far from its slot.
	ReleaseDistance float64 `yaml:"release_distance"`

	Spring control.Spring `yaml:"spring"`
}

func DefaultConfig() Config {
	return Config{
		Stiffness:       800,
		Damping:         60,
		MaxForce:        0,
		GracePeriod:     1,
		ReleaseDistance: 1.5,
		Spring:          control.Spring{Strength: 12, DampRatio: 1, BreakDistance: 1},
	}
}

// slotJoint is the joint holding the item of a motor slot.
type slotJoint struct {
	ID physics.JointID
}

type System struct {
	World    *world.World
	Engine   physics.Engine
	Commands *physics.Commands
	Config   Config
	Log      *zap.Logger

	tracker *ContactTracker
	warned  logging.Once
}

func (s *System) logger() *zap.Logger { return logging.OrNop(s.Log) }

// Track binds the system to despawns in its world so that a dead slot or
// item never leaves the other side stuck.
func (s *System) Track() {
	s.World.OnDespawn(s.despawned)
}

func (s *System) despawned(e dynamo.Entity) {
	if item, ok := Occupant(s.World, e); ok {
		s.release(e, item, "slot despawned")
	}
	if st, ok := world.GetStore[Slottable](s.World).Get(e); ok && st.State == Slotted {
		s.release(st.Slot, e, "item despawned")
	}
	if s.tracker != nil && world.GetStore[Deposit](s.World).Has(e) {
		s.tracker.Forget(e)
	}

	deposits := world.GetStore[Deposit](s.World)
	for _, de := range deposits.Entities() {
		d, _ := deposits.Get(de)
		d.StopAttempt(e)
		d.Slots = slices.DeleteFunc(d.Slots, func(sl dynamo.Entity) bool { return sl == e })
		deposits.Set(de, d)
	}
}

// TickGrace counts down every slot's grace period.
func (s *System) TickGrace(dt float64) {
	store := world.GetStore[GracePeriod](s.World)
	for _, e := range store.Entities() {
		g, _ := store.Get(e)
		g.Tick(dt)
		store.Set(e, g)
	}
}

// ContactEvents feeds sensor overlaps of every deposit into its queue. Free
// items that start touching are enqueued; items that stop touching leave.
func (s *System) ContactEvents() {
	if s.tracker == nil {
		s.tracker = NewContactTracker()
	}
	deposits := world.GetStore[Deposit](s.World)
	for _, e := range deposits.Entities() {
		started, ended := s.tracker.Diff(e, s.Engine.IntersectionsWith(e))
		for _, item := range started {
			if Attempt(s.World, e, item) {
				s.logger().Debug("slot attempt", zap.Stringer("deposit", e), zap.Stringer("item", item))
			}
		}
		for _, item := range ended {
			StopAttempt(s.World, e, item)
		}
	}
}

// Update releases items that lost their hold and then fills empty slots
// from the queues. Spring slots also get their impulses here.
func (s *System) Update() {
	deposits := world.GetStore[Deposit](s.World)
	for _, e := range deposits.Entities() {
		d, _ := deposits.Get(e)
		if len(d.Slots) == 0 {
			s.warned.Warn(s.logger(), "no-slots:"+e.String(), "deposit has no slots and will never accept",
				zap.Stringer("deposit", e))
			continue
		}
		for _, slot := range d.Slots {
			switch d.Mode {
			case ModeSpring:
				s.holdSpring(slot)
			default:
				s.holdMotor(slot)
			}
		}
		s.accept(e, &d)
		deposits.Set(e, d)
	}
}

func (s *System) accept(e dynamo.Entity, d *Deposit) {
	slots := world.GetStore[Slot](s.World)
	items := world.GetStore[Slottable](s.World)

	for _, slot := range d.Slots {
		sl, ok := slots.Get(slot)
		if !ok || !sl.Empty() {
			continue
		}
		for {
			item, ok := d.PopAttempt()
			if !ok {
				break
			}
			st, ok := items.Get(item)
			if !ok || st.State != Free || !s.World.IsAlive(item) {
				continue
			}
			items.Set(item, Slottable{State: Slotted, Slot: slot})
			slots.Set(slot, Slot{Containing: item})
			if d.Mode == ModeMotor {
				id := s.Commands.Insert(s.Engine, physics.Joint{
					Child:  item,
					Parent: slot,
					Kind:   physics.SlotJoint(s.Config.Stiffness, s.Config.Damping, s.Config.MaxForce),
					Tag:    physics.TagSlot,
				})
				world.GetStore[slotJoint](s.World).Set(slot, slotJoint{ID: id})
			}
			grace := world.GetStore[GracePeriod](s.World)
			g, ok := grace.Get(slot)
			if !ok {
				g = NewGracePeriod(s.Config.GracePeriod)
			}
			g.Reset()
			grace.Set(slot, g)

			s.logger().Info("item slotted",
				zap.Stringer("deposit", e),
				zap.Stringer("slot", slot),
				zap.Stringer("item", item),
				zap.Stringer("mode", d.Mode),
			)
			break
		}
	}
}

func (s *System) holdMotor(slot dynamo.Entity) {
	item, ok := Occupant(s.World, slot)
	if !ok {
		return
	}
	if !s.World.IsAlive(item) {
		s.release(slot, item, "item gone")
		return
	}
	sj, ok := world.GetStore[slotJoint](s.World).Get(slot)
	if !ok {
		s.release(slot, item, "joint missing")
		return
	}
	if _, live := s.Engine.Joint(sj.ID); !live {
		s.release(slot, item, "joint gone")
		return
	}
	if !s.graceElapsed(slot) || s.Config.ReleaseDistance <= 0 {
		return
	}
	sp, ok1 := s.World.GlobalTransform(slot)
	ip, ok2 := s.World.GlobalTransform(item)
	if ok1 && ok2 && ip.Translation.Sub(sp.Translation).Len() > s.Config.ReleaseDistance {
		s.release(slot, item, "pulled out")
	}
}

func (s *System) holdSpring(slot dynamo.Entity) {
	item, ok := Occupant(s.World, slot)
	if !ok {
		return
	}
	if !s.World.IsAlive(item) {
		s.release(slot, item, "item gone")
		return
	}
	itemBody, ok := s.Engine.Body(item)
	if !ok {
		return
	}
	a := control.BodyParticle(itemBody)

	var b control.Particle
	slotBody, slotDynamic := s.Engine.Body(slot)
	if slotDynamic {
		b = control.BodyParticle(slotBody)
		slotDynamic = slotBody.IsDynamic()
	} else if g, ok := s.World.GlobalTransform(slot); ok {
		b = control.FixedParticle(g)
	} else {
		return
	}

	res := s.Config.Spring.Linear(a, b, s.Engine.Dt())
	if res.Broken && s.graceElapsed(slot) {
		s.release(slot, item, "spring broke")
		return
	}
	s.Engine.ApplyImpulse(item, res.Impulse, mgl64.Vec3{})
	if slotDynamic {
		s.Engine.ApplyImpulse(slot, res.Impulse.Mul(-1), mgl64.Vec3{})
	}
}

func (s *System) graceElapsed(slot dynamo.Entity) bool {
	g, ok := world.GetStore[GracePeriod](s.World).Get(slot)
	return !ok || g.Elapsed()
}

// release frees the slot and its item together and drops the slot joint.
func (s *System) release(slot, item dynamo.Entity, reason string) {
	world.GetStore[Slot](s.World).Set(slot, Slot{})
	items := world.GetStore[Slottable](s.World)
	if st, ok := items.Get(item); ok && st.Slot == slot {
		items.Set(item, Slottable{State: Free})
	}
	joints := world.GetStore[slotJoint](s.World)
	if sj, ok := joints.Get(slot); ok {
		s.Commands.Remove(sj.ID)
		joints.Remove(slot)
	}
	s.logger().Info("item released",
		zap.Stringer("slot", slot),
		zap.Stringer("item", item),
		zap.String("reason", reason),
	)
}

// Occupancy counts the occupied slots over every deposit.
func Occupancy(w *world.World) int {
	n := 0
	for _, s := range world.GetStore[Slot](w).Entities() {
		if _, ok := Occupant(w, s); ok {
			n++
		}
	}
	return n
}
