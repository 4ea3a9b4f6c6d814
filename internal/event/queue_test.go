package event

import "testing"

func privEvent(node, user, priv string) *Event {
	return New(0, &PrivilegeAcquiredPayload{Node: node, User: user, Privilege: priv, Method: "ssh"})
}

func TestQueue_SequenceOrder(t *testing.T) {
	q := NewQueue()
	a := privEvent("n1", "u1", "read")
	b := privEvent("n2", "u2", "write")
	c := privEvent("n3", "u3", "execute")
	q.Push(a)
	q.Push(b)
	q.Push(c)

	if a.Sequence != 1 || b.Sequence != 2 || c.Sequence != 3 {
		t.Fatalf("sequences = %d,%d,%d, want 1,2,3", a.Sequence, b.Sequence, c.Sequence)
	}
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}
	if got := q.PopFront(); got != a {
		t.Errorf("PopFront() = %v, want first event", got)
	}
	if got := q.PopFront(); got != b {
		t.Errorf("PopFront() = %v, want second event", got)
	}
}

func TestQueue_DrainAll(t *testing.T) {
	q := NewQueue()
	q.Push(privEvent("n1", "u1", "read"))
	q.Push(privEvent("n2", "u2", "write"))

	drained := q.DrainAll()
	if len(drained) != 2 {
		t.Fatalf("DrainAll() returned %d events, want 2", len(drained))
	}
	if q.Len() != 0 {
		t.Fatalf("Len() after drain = %d, want 0", q.Len())
	}
	if drained[0].Sequence != 1 || drained[1].Sequence != 2 {
		t.Errorf("drained out of sequence order: %d, %d", drained[0].Sequence, drained[1].Sequence)
	}
}

func TestQueue_RequeuePreservesOrder(t *testing.T) {
	q := NewQueue()
	a := privEvent("n1", "u1", "read")
	b := privEvent("n2", "u2", "write")
	q.Push(a)
	q.Push(b)
	deferred := q.DrainAll()

	// New events arriving while the old ones are deferred go behind them.
	c := privEvent("n3", "u3", "execute")
	q.Push(c)
	q.Requeue(deferred)

	want := []*Event{a, b, c}
	for i, w := range want {
		got := q.PopFront()
		if got != w {
			t.Fatalf("pop %d: sequence %d, want %d", i, got.Sequence, w.Sequence)
		}
	}
}

func TestQueue_SequencesSurviveRequeue(t *testing.T) {
	q := NewQueue()
	a := privEvent("n1", "u1", "read")
	q.Push(a)
	q.Requeue(q.DrainAll())
	if a.Sequence != 1 {
		t.Errorf("Sequence after requeue = %d, want 1", a.Sequence)
	}
	b := privEvent("n2", "u2", "write")
	q.Push(b)
	if b.Sequence != 2 {
		t.Errorf("next Sequence = %d, want 2", b.Sequence)
	}
}
