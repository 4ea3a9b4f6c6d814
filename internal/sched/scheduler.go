// Package sched implements the process completion scheduler: a plain
// binary min-heap of (id, endAt) pairs with lazy invalidation. Reschedules
// never remove old heap nodes; stale nodes are detected on pop by checking
// the authoritative process table and silently dropped.
package sched

import (
	"container/heap"

	"github.com/gyaneshwarpardhi/simflow/internal/metrics"
)

// Table is the authoritative view of live processes. The scheduler does
// not own process state; it only validates heap nodes against it.
type Table interface {
	// EndAt returns the current completion tick for a process id, or
	// false if the process is no longer live.
	EndAt(id int64) (int64, bool)
}

type node struct {
	id    int64
	endAt int64
}

type minHeap []node

func (h minHeap) Len() int { return len(h) }

func (h minHeap) Less(i, j int) bool {
	if h[i].endAt != h[j].endAt {
		return h[i].endAt < h[j].endAt
	}
	return h[i].id < h[j].id
}

func (h minHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *minHeap) Push(x any) { *h = append(*h, x.(node)) }

func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Scheduler holds pending process completions. Not safe for concurrent
// use; the engine serializes all calls through its tick goroutine.
type Scheduler struct {
	h minHeap
}

// New creates an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// ScheduleOrUpdate records that the process completes at endAt. A repeated
// call for the same id does not remove the old node; the superseded node
// becomes stale and is discarded when popped.
func (s *Scheduler) ScheduleOrUpdate(id, endAt int64) {
	heap.Push(&s.h, node{id: id, endAt: endAt})
	metrics.ProcessesScheduled.Inc()
}

// PopDue returns the ids of all processes due at or before now, ascending
// by completion tick. A popped node is emitted only when its endAt matches
// the authoritative table; stale nodes are dropped without diagnostic. At
// most one entry per id is emitted per call.
func (s *Scheduler) PopDue(now int64, table Table) []int64 {
	var due []int64
	var resolved map[int64]struct{}
	for s.h.Len() > 0 && s.h[0].endAt <= now {
		n := heap.Pop(&s.h).(node)
		if resolved != nil {
			if _, ok := resolved[n.id]; ok {
				continue
			}
		}
		endAt, live := table.EndAt(n.id)
		if !live || endAt != n.endAt {
			metrics.SchedulerStaleDropped.Inc()
			continue
		}
		due = append(due, n.id)
		if resolved == nil {
			resolved = make(map[int64]struct{})
		}
		resolved[n.id] = struct{}{}
		metrics.ProcessesCompleted.Inc()
	}
	return due
}

// Len returns the number of heap nodes, stale ones included.
func (s *Scheduler) Len() int {
	return s.h.Len()
}
