// Package index holds the handler registry and answers "which handlers
// match this event" in time independent of the number of registered
// handlers: descriptors are keyed literally under their (condition,
// matchKeys) tuple, and a query probes every wildcard substitution of the
// event's field values (2^k combinations for k match fields) instead of
// scanning descriptors.
package index

import (
	"strings"

	"github.com/gyaneshwarpardhi/simflow/internal/action"
	"github.com/gyaneshwarpardhi/simflow/internal/event"
	"github.com/gyaneshwarpardhi/simflow/internal/guard"
)

// Descriptor is one registered event handler: a condition pattern, an
// optional guard, and an ordered action list. A non-empty EventID makes
// the handler one-shot for the engine's lifetime.
type Descriptor struct {
	Scenario  string
	EventID   string
	Condition event.ConditionType
	MatchKeys []string // ordered per MatchFields; event.Wildcard allowed
	Guard     *guard.Compiled
	Actions   []action.Blueprint

	seq int // registration order, fixed by Add
}

// Index is the descriptor registry. Add is O(1); Query is O(2^k) in the
// number of match fields regardless of how many descriptors are
// registered. Not safe for concurrent mutation; the engine swaps whole
// indexes atomically on catalog reload.
type Index struct {
	buckets map[string][]*Descriptor
	count   int
}

// New creates an empty Index.
func New() *Index {
	return &Index{buckets: make(map[string][]*Descriptor)}
}

// Add registers a descriptor under its exact key tuple. Wildcard fields
// are stored using the sentinel as an ordinary key component.
func (ix *Index) Add(d *Descriptor) {
	d.seq = ix.count
	ix.count++
	k := bucketKey(d.Condition, d.MatchKeys)
	ix.buckets[k] = append(ix.buckets[k], d)
}

// Len returns the number of registered descriptors.
func (ix *Index) Len() int {
	return ix.count
}

// Query returns every descriptor whose match keys are all either equal to
// the event's corresponding field or the wildcard sentinel, de-duplicated
// and ordered by registration.
func (ix *Index) Query(ev *event.Event) []*Descriptor {
	if ev == nil || ev.Payload == nil {
		return nil
	}
	ct := ev.Payload.Condition()
	values := ev.Payload.MatchValues()
	k := len(values)

	var out []*Descriptor
	seen := make(map[*Descriptor]struct{})
	probe := make([]string, k)
	for mask := 0; mask < 1<<k; mask++ {
		for i := 0; i < k; i++ {
			if mask&(1<<i) != 0 {
				probe[i] = event.Wildcard
			} else {
				probe[i] = values[i]
			}
		}
		for _, d := range ix.buckets[bucketKey(ct, probe)] {
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}

	// Registration order, so dispatch sees candidates the way the
	// catalog declared them.
	insertionSort(out)
	return out
}

// bucketKey joins the condition type and key components with a separator
// that cannot appear in field literals.
func bucketKey(ct event.ConditionType, keys []string) string {
	return string(ct) + "\x1f" + strings.Join(keys, "\x1f")
}

// insertionSort orders by registration sequence. Candidate lists are tiny
// and nearly sorted already; this avoids pulling in sort for a hot path.
func insertionSort(ds []*Descriptor) {
	for i := 1; i < len(ds); i++ {
		for j := i; j > 0 && ds[j].seq < ds[j-1].seq; j-- {
			ds[j], ds[j-1] = ds[j-1], ds[j]
		}
	}
}
