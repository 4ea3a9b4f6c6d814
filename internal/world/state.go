// Package world owns the engine's mutable simulation state: the tick
// counter, scenario flags, the player-visible output buffer, and the
// authoritative process table. All mutation happens on the engine's tick
// goroutine; the engine serializes any cross-thread access.
package world

import (
	"github.com/gyaneshwarpardhi/simflow/internal/sched"
)

// Process is one long-running operation in the authoritative table. The
// scheduler holds only (id, endAt) heap nodes and validates them against
// this table on pop.
type Process struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Node      string `json:"node"`
	StartedAt int64  `json:"started_at"`
	EndAt     int64  `json:"end_at"`
}

// State is the world. It implements action.Context for the executors,
// guard.FlagReader for guard scripts, and sched.Table for the scheduler.
type State struct {
	tick       int64
	node       string // node the player currently operates from
	flags      map[string]string
	output     []string
	outputTail int
	procs      map[int64]*Process
	nextProcID int64
	scheduler  *sched.Scheduler
	observe    func(line string)
}

// New creates a fresh world bound to the given scheduler.
func New(scheduler *sched.Scheduler) *State {
	return &State{
		node:       "localhost",
		flags:      make(map[string]string),
		outputTail: 500,
		procs:      make(map[int64]*Process),
		scheduler:  scheduler,
	}
}

// SetNode changes the node new processes are attributed to.
func (s *State) SetNode(node string) { s.node = node }

// SetOutputTail bounds how many output lines are retained.
func (s *State) SetOutputTail(n int) {
	if n > 0 {
		s.outputTail = n
	}
}

// SetOutputObserver registers a callback invoked for every output line,
// in append order. Used to feed the live stream.
func (s *State) SetOutputObserver(fn func(line string)) { s.observe = fn }

// Now returns the current world tick.
func (s *State) Now() int64 { return s.tick }

// Advance moves the world one tick forward and returns the new tick.
func (s *State) Advance() int64 {
	s.tick++
	return s.tick
}

// AppendOutput queues one line of player-visible output.
func (s *State) AppendOutput(line string) {
	s.output = append(s.output, line)
	if len(s.output) > 2*s.outputTail {
		s.output = append(s.output[:0:0], s.output[len(s.output)-s.outputTail:]...)
	}
	if s.observe != nil {
		s.observe(line)
	}
}

// Output returns a copy of the retained output lines.
func (s *State) Output() []string {
	out := make([]string, len(s.output))
	copy(out, s.output)
	return out
}

// Flag reads a scenario flag.
func (s *State) Flag(key string) (string, bool) {
	v, ok := s.flags[key]
	return v, ok
}

// SetFlag writes a scenario flag.
func (s *State) SetFlag(key, value string) {
	s.flags[key] = value
}

// ClearFlag removes a scenario flag.
func (s *State) ClearFlag(key string) {
	delete(s.flags, key)
}

// Flags returns a copy of all scenario flags.
func (s *State) Flags() map[string]string {
	out := make(map[string]string, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out
}

// StartProcess creates a process completing duration ticks from now and
// registers it with the scheduler. Returns the new process id.
func (s *State) StartProcess(name string, duration int64) int64 {
	s.nextProcID++
	id := s.nextProcID
	p := &Process{
		ID:        id,
		Name:      name,
		Node:      s.node,
		StartedAt: s.tick,
		EndAt:     s.tick + duration,
	}
	s.procs[id] = p
	s.scheduler.ScheduleOrUpdate(id, p.EndAt)
	return id
}

// ExtendProcess reschedules a live process to a new completion tick. The
// scheduler keeps the superseded heap node; it is dropped as stale on pop.
func (s *State) ExtendProcess(id, endAt int64) bool {
	p, ok := s.procs[id]
	if !ok {
		return false
	}
	p.EndAt = endAt
	s.scheduler.ScheduleOrUpdate(id, endAt)
	return true
}

// EndAt implements sched.Table over the authoritative process table.
func (s *State) EndAt(id int64) (int64, bool) {
	p, ok := s.procs[id]
	if !ok {
		return 0, false
	}
	return p.EndAt, true
}

// Retire removes a completed process from the table and returns it.
func (s *State) Retire(id int64) (*Process, bool) {
	p, ok := s.procs[id]
	if !ok {
		return nil, false
	}
	delete(s.procs, id)
	return p, true
}

// Processes returns a copy of the live process table.
func (s *State) Processes() []Process {
	out := make([]Process, 0, len(s.procs))
	for _, p := range s.procs {
		out = append(out, *p)
	}
	return out
}
