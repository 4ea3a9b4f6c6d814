// Package engine ties the event queue, handler index, guard evaluator,
// action runner, and process scheduler into a single-threaded tick loop.
// Everything mutable is owned by the tick goroutine; external producers
// only touch the bounded inbox channel, and snapshots serialize through
// the engine mutex.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/simflow/internal/action"
	"github.com/gyaneshwarpardhi/simflow/internal/catalog"
	"github.com/gyaneshwarpardhi/simflow/internal/event"
	"github.com/gyaneshwarpardhi/simflow/internal/guard"
	"github.com/gyaneshwarpardhi/simflow/internal/index"
	"github.com/gyaneshwarpardhi/simflow/internal/metrics"
	"github.com/gyaneshwarpardhi/simflow/internal/sched"
	"github.com/gyaneshwarpardhi/simflow/internal/world"
)

// Sink receives human-readable warnings from guards and actions.
type Sink func(msg string)

// Engine owns the world and advances it one tick at a time.
type Engine struct {
	mu sync.Mutex

	conf      catalog.EngineConf
	disp      *Dispatcher
	world     *world.State
	queue     *event.Queue
	scheduler *sched.Scheduler
	inbox     chan *event.Event
}

// New assembles an engine from a built index and registry.
func New(ix *index.Index, reg *action.Registry, conf catalog.EngineConf, warn Sink) *Engine {
	if warn == nil {
		warn = func(string) {}
	}
	counted := func(msg string) {
		metrics.Warnings.Inc()
		warn(msg)
	}

	scheduler := sched.New()
	w := world.New(scheduler)
	w.SetOutputTail(conf.OutputTail)

	eval := guard.NewEvaluator(conf.GuardSteps, guard.Sink(counted))
	runner := action.NewRunner(reg, action.Sink(counted))
	disp := NewDispatcher(ix, eval, runner, conf.GuardBudget)

	depth := conf.InboxDepth
	if depth <= 0 {
		depth = 1024
	}
	return &Engine{
		conf:      conf,
		disp:      disp,
		world:     w,
		queue:     event.NewQueue(),
		scheduler: scheduler,
		inbox:     make(chan *event.Event, depth),
	}
}

// World returns the engine's world state. Callers outside the tick
// goroutine must not touch it; it is exposed for tests and for wiring
// observers before the loop starts.
func (e *Engine) World() *world.State {
	return e.world
}

// SwapIndex replaces the handler index on catalog hot-reload. One-shot
// firing state is preserved.
func (e *Engine) SwapIndex(ix *index.Index) {
	e.disp.SwapIndex(ix)
}

// Submit hands an event to the engine without blocking. Returns false if
// the inbox is full.
func (e *Engine) Submit(ev *event.Event) bool {
	select {
	case e.inbox <- ev:
		metrics.EventsEnqueued.Inc()
		return true
	default:
		metrics.EventsDropped.Inc()
		return false
	}
}

// InboxUtilization returns inbox used / capacity (0–1).
func (e *Engine) InboxUtilization() float64 {
	if cap(e.inbox) == 0 {
		return 0
	}
	return float64(len(e.inbox)) / float64(cap(e.inbox))
}

// StepResult summarizes one world tick.
type StepResult struct {
	Tick      int64       `json:"tick"`
	Completed []int64     `json:"completed,omitempty"` // process ids finished this tick
	Drain     DrainResult `json:"drain"`
}

// Step advances the world one tick: move submitted events into the queue,
// pop due process completions and synthesize their events, then run one
// drain pass.
func (e *Engine) Step() StepResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	for {
		select {
		case ev := <-e.inbox:
			e.queue.Push(ev)
			continue
		default:
		}
		break
	}

	tick := e.world.Advance()
	completed := e.scheduler.PopDue(tick, e.world)
	for _, id := range completed {
		p, ok := e.world.Retire(id)
		if !ok {
			continue
		}
		e.queue.Push(event.New(tick, &event.ProcessFinishedPayload{
			Node:      p.Node,
			Process:   p.Name,
			ProcessID: p.ID,
		}))
	}

	drain := e.disp.Drain(e.queue, e.world)
	return StepResult{Tick: tick, Completed: completed, Drain: drain}
}

// Run drives the tick loop until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	interval := time.Duration(e.conf.TickMs) * time.Millisecond
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.Step()
		case <-ctx.Done():
			return
		}
	}
}

// Snapshot is a point-in-time view of the world for the API.
type Snapshot struct {
	Tick      int64             `json:"tick"`
	QueueLen  int               `json:"queue_len"`
	Flags     map[string]string `json:"flags"`
	Output    []string          `json:"output"`
	Processes []world.Process   `json:"processes"`
	Handlers  int               `json:"handlers"`
}

// Snapshot returns a consistent copy of the observable world state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Tick:      e.world.Now(),
		QueueLen:  e.queue.Len(),
		Flags:     e.world.Flags(),
		Output:    e.world.Output(),
		Processes: e.world.Processes(),
		Handlers:  e.disp.Index().Len(),
	}
}
