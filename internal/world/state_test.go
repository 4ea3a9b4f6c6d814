package world

import (
	"fmt"
	"testing"

	"github.com/gyaneshwarpardhi/simflow/internal/sched"
)

func TestFlags(t *testing.T) {
	s := New(sched.New())

	if _, ok := s.Flag("alarm"); ok {
		t.Fatalf("Flag() on empty world reported a value")
	}
	s.SetFlag("alarm", "raised")
	if v, ok := s.Flag("alarm"); !ok || v != "raised" {
		t.Fatalf("Flag(alarm) = %q, %v; want %q, true", v, ok, "raised")
	}

	// Mutating the returned copy must not leak back.
	s.Flags()["alarm"] = "tampered"
	if v, _ := s.Flag("alarm"); v != "raised" {
		t.Fatalf("Flags() copy is not independent")
	}

	s.ClearFlag("alarm")
	if _, ok := s.Flag("alarm"); ok {
		t.Fatalf("flag survived ClearFlag")
	}
}

func TestAppendOutput_TailTrim(t *testing.T) {
	s := New(sched.New())
	s.SetOutputTail(3)

	for i := 1; i <= 7; i++ {
		s.AppendOutput(fmt.Sprintf("line %d", i))
	}
	got := s.Output()
	if len(got) > 6 {
		t.Fatalf("retained %d lines, want at most 2x the tail", len(got))
	}
	if got[len(got)-1] != "line 7" || got[0] != "line 5" {
		t.Fatalf("Output() = %v, want the most recent lines", got)
	}
}

func TestAppendOutput_Observer(t *testing.T) {
	s := New(sched.New())
	var seen []string
	s.SetOutputObserver(func(line string) { seen = append(seen, line) })

	s.AppendOutput("first")
	s.AppendOutput("second")
	if len(seen) != 2 || seen[0] != "first" || seen[1] != "second" {
		t.Fatalf("observer saw %v, want every line in append order", seen)
	}
}

func TestProcessLifecycle(t *testing.T) {
	sc := sched.New()
	s := New(sc)
	s.SetNode("gateway")

	s.Advance() // tick 1
	id := s.StartProcess("crack_vault", 5)
	if id == 0 {
		t.Fatalf("StartProcess returned zero id")
	}
	if end, ok := s.EndAt(id); !ok || end != 6 {
		t.Fatalf("EndAt(%d) = %d, %v; want 6, true", id, end, ok)
	}

	if due := sc.PopDue(5, s); len(due) != 0 {
		t.Fatalf("process popped before its end tick: %v", due)
	}
	due := sc.PopDue(6, s)
	if len(due) != 1 || due[0] != id {
		t.Fatalf("PopDue(6) = %v, want [%d]", due, id)
	}

	p, ok := s.Retire(id)
	if !ok {
		t.Fatalf("Retire(%d) failed", id)
	}
	if p.Name != "crack_vault" || p.Node != "gateway" || p.StartedAt != 1 {
		t.Fatalf("retired process = %+v", p)
	}
	if _, ok := s.EndAt(id); ok {
		t.Fatalf("retired process still in the table")
	}
	if _, ok := s.Retire(id); ok {
		t.Fatalf("Retire succeeded twice for the same id")
	}
}

func TestExtendProcess(t *testing.T) {
	sc := sched.New()
	s := New(sc)

	id := s.StartProcess("download", 2)
	if !s.ExtendProcess(id, 10) {
		t.Fatalf("ExtendProcess(%d) failed for a live process", id)
	}

	// The original end tick is now stale; nothing completes there.
	if due := sc.PopDue(2, s); len(due) != 0 {
		t.Fatalf("PopDue(2) = %v, want nothing (process extended)", due)
	}
	due := sc.PopDue(10, s)
	if len(due) != 1 || due[0] != id {
		t.Fatalf("PopDue(10) = %v, want [%d]", due, id)
	}

	if s.ExtendProcess(999, 5) {
		t.Fatalf("ExtendProcess succeeded for an unknown id")
	}
}
