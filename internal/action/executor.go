package action

import (
	"fmt"

	"github.com/gyaneshwarpardhi/simflow/internal/metrics"
)

// Blueprint is one declarative action from a handler's action list.
type Blueprint struct {
	Type string         `json:"type" yaml:"type"`
	Args map[string]any `json:"args" yaml:"args"`
}

// Context is the narrow interface through which actions reach world-owned
// mutable state. The world implements it; actions never see more of the
// world than this.
type Context interface {
	// AppendOutput queues one line of player-visible output.
	AppendOutput(line string)
	// Flag reads a scenario flag.
	Flag(key string) (string, bool)
	// SetFlag writes a scenario flag.
	SetFlag(key, value string)
	// ClearFlag removes a scenario flag.
	ClearFlag(key string)
	// StartProcess begins a long-running operation completing after
	// duration ticks and returns its process id.
	StartProcess(name string, duration int64) int64
	// Now returns the current world tick.
	Now() int64
}

// Executor is the interface all action implementations must satisfy.
type Executor interface {
	// Type returns the string key this executor is registered under.
	Type() string
	// Validate checks args at catalog load time.
	Validate(args map[string]any) error
	// Execute applies the action's effect against world state.
	Execute(args map[string]any, ctx Context) error
}

// Sink receives human-readable diagnostics for skipped actions.
type Sink func(msg string)

// Runner executes action batches with per-action failure isolation: a
// malformed or failing action is skipped with a warning and the remaining
// actions in the batch still run in declared order.
type Runner struct {
	reg  *Registry
	warn Sink
}

// NewRunner creates a Runner over the given registry and warning sink.
func NewRunner(reg *Registry, warn Sink) *Runner {
	if warn == nil {
		warn = func(string) {}
	}
	return &Runner{reg: reg, warn: warn}
}

// Run executes a batch and returns how many actions succeeded.
func (r *Runner) Run(batch []Blueprint, ctx Context) int {
	executed := 0
	for _, b := range batch {
		if r.runOne(b, ctx) {
			executed++
		}
	}
	return executed
}

func (r *Runner) runOne(b Blueprint, ctx Context) (ok bool) {
	// An action implementation must not take down the batch.
	defer func() {
		if rec := recover(); rec != nil {
			metrics.ActionsExecuted.WithLabelValues(b.Type, "error").Inc()
			r.warn(fmt.Sprintf("action %s: panic: %v", b.Type, rec))
			ok = false
		}
	}()

	exec, err := r.reg.Get(b.Type)
	if err != nil {
		metrics.ActionsExecuted.WithLabelValues(b.Type, "error").Inc()
		r.warn(fmt.Sprintf("action %s: %v", b.Type, err))
		return false
	}
	if err := exec.Validate(b.Args); err != nil {
		metrics.ActionsExecuted.WithLabelValues(b.Type, "error").Inc()
		r.warn(fmt.Sprintf("action %s: %v", b.Type, err))
		return false
	}
	if err := exec.Execute(b.Args, ctx); err != nil {
		metrics.ActionsExecuted.WithLabelValues(b.Type, "error").Inc()
		r.warn(fmt.Sprintf("action %s: %v", b.Type, err))
		return false
	}
	metrics.ActionsExecuted.WithLabelValues(b.Type, "success").Inc()
	return true
}
