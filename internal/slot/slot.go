// Package slot implements attachment points that accept items through a
// debounced first-come first-served protocol.
//
// A deposit owns one or more slot entities and a queue of items currently
// trying to get in. Items join the queue when they start touching the
// deposit's sensor zone and leave it when contact ends. Each tick an empty
// slot takes the oldest item that is still free.
package slot

import (
	"fmt"
	"slices"

	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/world"
)

// Slot is one attachment point. A null Containing means empty.
type Slot struct {
	Containing dynamo.Entity
}

func (s Slot) Empty() bool { return s.Containing.IsNull() }

type SlottableState uint8

const (
	Free SlottableState = iota
	Slotted
)

func (s SlottableState) String() string {
	if s == Slotted {
		return "slotted"
	}
	return "free"
}

// Slottable marks an item that can occupy a slot. Slot is set while Slotted.
type Slottable struct {
	State SlottableState
	Slot  dynamo.Entity
}

// Mode selects how a deposit holds accepted items. A deposit never mixes
// modes, so an item is held by exactly one mechanism.
type Mode uint8

const (
	// ModeMotor holds the item with a six axis motorized joint.
	ModeMotor Mode = iota
	// ModeSpring pulls the item with symmetric spring impulses every tick.
	ModeSpring
)

func (m Mode) String() string {
	if m == ModeSpring {
		return "spring"
	}
	return "motor"
}

// Deposit is a group of slots fed from one queue. The queue is only
// mutated through its methods.
type Deposit struct {
	Slots []dynamo.Entity
	Mode  Mode

	attempting []dynamo.Entity
}

func NewDeposit(mode Mode, slots ...dynamo.Entity) Deposit {
	return Deposit{Slots: slots, Mode: mode}
}

// Attempt enqueues item unless it is already queued.
func (d *Deposit) Attempt(item dynamo.Entity) bool {
	if d.Contains(item) {
		return false
	}
	d.attempting = append(d.attempting, item)
	return true
}

// StopAttempt drops item from the queue. Absent items are ignored.
func (d *Deposit) StopAttempt(item dynamo.Entity) bool {
	i := slices.Index(d.attempting, item)
	if i < 0 {
		return false
	}
	d.attempting = slices.Delete(d.attempting, i, i+1)
	return true
}

// PopAttempt dequeues the oldest item.
func (d *Deposit) PopAttempt() (dynamo.Entity, bool) {
	if len(d.attempting) == 0 {
		return dynamo.Null, false
	}
	item := d.attempting[0]
	d.attempting = slices.Delete(d.attempting, 0, 1)
	return item, true
}

// Remove drops an item the caller knows is queued. It panics when the item
// is missing since that means the queue and the item flags disagree.
func (d *Deposit) Remove(item dynamo.Entity) {
	if !d.StopAttempt(item) {
		panic(fmt.Errorf("%w: %s not queued", dynamo.ErrQueueDesync, item))
	}
}

func (d *Deposit) Contains(item dynamo.Entity) bool {
	return slices.Contains(d.attempting, item)
}

func (d *Deposit) Len() int { return len(d.attempting) }

// Queue returns a copy of the queue, oldest first.
func (d *Deposit) Queue() []dynamo.Entity {
	return slices.Clone(d.attempting)
}

// GracePeriod blocks forced release of a slot for a while after it accepts.
type GracePeriod struct {
	Duration  float64
	Remaining float64
}

func NewGracePeriod(d float64) GracePeriod { return GracePeriod{Duration: d} }

func (g *GracePeriod) Reset() { g.Remaining = g.Duration }

func (g *GracePeriod) Tick(dt float64) {
	g.Remaining -= dt
	if g.Remaining < 0 {
		g.Remaining = 0
	}
}

func (g GracePeriod) Elapsed() bool { return g.Remaining <= 0 }

// Occupant returns the item held by slot.
func Occupant(w *world.World, slot dynamo.Entity) (dynamo.Entity, bool) {
	s, ok := world.GetStore[Slot](w).Get(slot)
	if !ok || s.Empty() {
		return dynamo.Null, false
	}
	return s.Containing, true
}

// Attempt enqueues item at the deposit on e. Slotted items are refused.
func Attempt(w *world.World, e, item dynamo.Entity) bool {
	deposits := world.GetStore[Deposit](w)
	d, ok := deposits.Get(e)
	if !ok {
		return false
	}
	if st, ok := world.GetStore[Slottable](w).Get(item); !ok || st.State != Free {
		return false
	}
	added := d.Attempt(item)
	deposits.Set(e, d)
	return added
}

// StopAttempt removes item from the queue of the deposit on e.
func StopAttempt(w *world.World, e, item dynamo.Entity) bool {
	deposits := world.GetStore[Deposit](w)
	d, ok := deposits.Get(e)
	if !ok {
		return false
	}
	removed := d.StopAttempt(item)
	deposits.Set(e, d)
	return removed
}
