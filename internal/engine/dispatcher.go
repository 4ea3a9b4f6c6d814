package engine

import (
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/simflow/internal/action"
	"github.com/gyaneshwarpardhi/simflow/internal/event"
	"github.com/gyaneshwarpardhi/simflow/internal/guard"
	"github.com/gyaneshwarpardhi/simflow/internal/index"
	"github.com/gyaneshwarpardhi/simflow/internal/metrics"
)

// DefaultGuardBudget bounds guard evaluations per drain pass.
const DefaultGuardBudget = 64

// DrainResult summarizes one drain pass.
type DrainResult struct {
	Processed int `json:"processed"` // events fully handled this pass
	Deferred  int `json:"deferred"`  // events pushed back for the next pass
	Fired     int `json:"fired"`     // handler firings (actions batches run)
}

// Dispatcher orchestrates one drain pass per world tick: it pulls events
// from the queue, queries the index, evaluates guards under a per-pass
// budget, runs actions, and records one-shot firings. Budget exhaustion is
// not an error; leftover events are re-queued verbatim for the next tick.
type Dispatcher struct {
	idx    atomic.Pointer[index.Index]
	eval   *guard.Evaluator
	runner *action.Runner
	budget int

	// fired holds the event_ids of one-shot handlers that have already
	// fired. It survives catalog reloads and resets only with the engine.
	fired map[string]struct{}
}

// NewDispatcher creates a Dispatcher over the given index with the given
// per-drain guard evaluation budget (DefaultGuardBudget if <= 0).
func NewDispatcher(ix *index.Index, eval *guard.Evaluator, runner *action.Runner, budget int) *Dispatcher {
	if budget <= 0 {
		budget = DefaultGuardBudget
	}
	d := &Dispatcher{
		eval:   eval,
		runner: runner,
		budget: budget,
		fired:  make(map[string]struct{}),
	}
	d.idx.Store(ix)
	return d
}

// SwapIndex atomically replaces the handler index (used on hot-reload).
// The one-shot fired set is deliberately kept.
func (d *Dispatcher) SwapIndex(ix *index.Index) {
	d.idx.Store(ix)
}

// Index returns the current handler index.
func (d *Dispatcher) Index() *index.Index {
	return d.idx.Load()
}

// HasFired reports whether a one-shot handler already fired.
func (d *Dispatcher) HasFired(eventID string) bool {
	_, ok := d.fired[eventID]
	return ok
}

// ResetFired clears the one-shot set. Engine re-initialization only.
func (d *Dispatcher) ResetFired() {
	d.fired = make(map[string]struct{})
}

// Drain performs one bounded processing pass over the queue. Events are
// taken in sequence order; for each, matching descriptors run in
// registration order. When the guard budget runs out the current event and
// everything behind it go back to the front of the queue, in order, and
// the pass ends. Drain never panics out; all failure modes degrade to
// warnings.
func (d *Dispatcher) Drain(q *event.Queue, ctx action.Context) DrainResult {
	start := time.Now()
	ix := d.idx.Load()
	events := q.DrainAll()
	budget := d.budget

	var res DrainResult
	for i, ev := range events {
		if !d.processEvent(ix, ev, ctx, &budget, &res) {
			// Budget exhausted mid-event: this event is incomplete and
			// must run again, so it is re-queued together with the rest.
			q.Requeue(events[i:])
			res.Deferred = len(events) - i
			break
		}
		res.Processed++
	}

	metrics.EventsProcessed.Add(float64(res.Processed))
	metrics.EventsDeferred.Add(float64(res.Deferred))
	metrics.QueueLength.Set(float64(q.Len()))
	metrics.DrainDuration.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	return res
}

// processEvent runs all candidates for one event. It returns false when
// the guard budget ran out before the event completed.
func (d *Dispatcher) processEvent(ix *index.Index, ev *event.Event, ctx action.Context, budget *int, res *DrainResult) bool {
	for _, c := range ix.Query(ev) {
		// One-shot handlers that already fired are skipped before any
		// guard or action cost is charged.
		if c.EventID != "" {
			if _, done := d.fired[c.EventID]; done {
				continue
			}
		}
		if c.Guard != nil {
			if *budget == 0 {
				return false
			}
			*budget--
			if !d.eval.Evaluate(c.Guard, ev, flagReader{ctx}) {
				continue
			}
		}
		d.runner.Run(c.Actions, ctx)
		if c.EventID != "" {
			d.fired[c.EventID] = struct{}{}
		}
		metrics.HandlersFired.WithLabelValues(c.Scenario).Inc()
		res.Fired++
	}
	return true
}

// flagReader narrows the action context to the read-only view guards get.
type flagReader struct {
	ctx action.Context
}

func (f flagReader) Flag(key string) (string, bool) {
	return f.ctx.Flag(key)
}
