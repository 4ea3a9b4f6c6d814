package sched

import (
	"reflect"
	"testing"
)

// fakeTable is a map-backed authoritative process table.
type fakeTable map[int64]int64

func (t fakeTable) EndAt(id int64) (int64, bool) {
	v, ok := t[id]
	return v, ok
}

func TestPopDue_StaleNodeNeverReturned(t *testing.T) {
	s := New()
	s.ScheduleOrUpdate(1, 100)
	s.ScheduleOrUpdate(2, 50)
	s.ScheduleOrUpdate(1, 200) // supersedes the endAt=100 node
	table := fakeTable{1: 200, 2: 50}

	if got := s.PopDue(60, table); !reflect.DeepEqual(got, []int64{2}) {
		t.Fatalf("PopDue(60) = %v, want [2]", got)
	}
	// The endAt=100 node for id 1 is stale and must be dropped silently.
	if got := s.PopDue(150, table); got != nil {
		t.Fatalf("PopDue(150) = %v, want []", got)
	}
	if got := s.PopDue(250, table); !reflect.DeepEqual(got, []int64{1}) {
		t.Fatalf("PopDue(250) = %v, want [1]", got)
	}
}

func TestPopDue_AscendingByEndAt(t *testing.T) {
	s := New()
	s.ScheduleOrUpdate(3, 30)
	s.ScheduleOrUpdate(1, 10)
	s.ScheduleOrUpdate(2, 20)
	table := fakeTable{1: 10, 2: 20, 3: 30}

	if got := s.PopDue(100, table); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Fatalf("PopDue(100) = %v, want [1 2 3]", got)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestPopDue_AtMostOncePerID(t *testing.T) {
	s := New()
	// Two identical nodes for the same id and endAt.
	s.ScheduleOrUpdate(5, 70)
	s.ScheduleOrUpdate(5, 70)
	table := fakeTable{5: 70}

	if got := s.PopDue(100, table); !reflect.DeepEqual(got, []int64{5}) {
		t.Fatalf("PopDue(100) = %v, want [5]", got)
	}
}

func TestPopDue_RetiredProcessDropped(t *testing.T) {
	s := New()
	s.ScheduleOrUpdate(7, 40)
	// Process 7 no longer exists in the authoritative table.
	if got := s.PopDue(100, fakeTable{}); got != nil {
		t.Fatalf("PopDue(100) = %v, want []", got)
	}
}

func TestPopDue_StopsAtNow(t *testing.T) {
	s := New()
	s.ScheduleOrUpdate(1, 10)
	s.ScheduleOrUpdate(2, 99)
	table := fakeTable{1: 10, 2: 99}

	if got := s.PopDue(50, table); !reflect.DeepEqual(got, []int64{1}) {
		t.Fatalf("PopDue(50) = %v, want [1]", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want the endAt=99 node to remain", s.Len())
	}
}
