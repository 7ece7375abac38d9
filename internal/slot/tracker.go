package slot

import (
	"slices"

	"github.com/san-kum/grapple/internal/dynamo"
)

// ContactTracker turns per-tick overlap sets into start and end events.
type ContactTracker struct {
	prev map[dynamo.Entity][]dynamo.Entity
}

func NewContactTracker() *ContactTracker {
	return &ContactTracker{prev: make(map[dynamo.Entity][]dynamo.Entity)}
}

// Diff records the overlaps of zone for this tick and returns what started
// and ended since the previous call, each in ascending order.
func (t *ContactTracker) Diff(zone dynamo.Entity, now []dynamo.Entity) (started, ended []dynamo.Entity) {
	cur := slices.Clone(now)
	slices.Sort(cur)
	cur = slices.Compact(cur)
	prev := t.prev[zone]

	for _, e := range cur {
		if _, found := slices.BinarySearch(prev, e); !found {
			started = append(started, e)
		}
	}
	for _, e := range prev {
		if _, found := slices.BinarySearch(cur, e); !found {
			ended = append(ended, e)
		}
	}
	t.prev[zone] = cur
	return started, ended
}

func (t *ContactTracker) Forget(zone dynamo.Entity) {
	delete(t.prev, zone)
}
