package engine

import (
	"testing"

	"github.com/gyaneshwarpardhi/simflow/internal/action"
	"github.com/gyaneshwarpardhi/simflow/internal/action/builtin"
	"github.com/gyaneshwarpardhi/simflow/internal/event"
	"github.com/gyaneshwarpardhi/simflow/internal/guard"
	"github.com/gyaneshwarpardhi/simflow/internal/index"
	"github.com/gyaneshwarpardhi/simflow/internal/sched"
	"github.com/gyaneshwarpardhi/simflow/internal/world"
)

func newTestDispatcher(t *testing.T, ix *index.Index, budget int) (*Dispatcher, *world.State, *[]string) {
	t.Helper()
	reg := action.NewRegistry()
	for _, e := range builtin.All() {
		reg.Register(e)
	}
	var warnings []string
	warn := func(m string) { warnings = append(warnings, m) }
	eval := guard.NewEvaluator(200, warn)
	runner := action.NewRunner(reg, warn)
	return NewDispatcher(ix, eval, runner, budget), world.New(sched.New()), &warnings
}

func printDesc(scenario, eventID, guardSrc string, keys ...string) *index.Descriptor {
	d := &index.Descriptor{
		Scenario:  scenario,
		EventID:   eventID,
		Condition: event.PrivilegeAcquired,
		MatchKeys: keys,
		Actions: []action.Blueprint{
			{Type: "print", Args: map[string]any{"text": scenario}},
		},
	}
	if guardSrc != "" {
		d.Guard = guard.Compile(scenario, eventID, guard.Inline, "", guardSrc)
	}
	return d
}

func catchallKeys() []string {
	w := event.Wildcard
	return []string{w, w, w, w}
}

func privEvent(user, priv string) *event.Event {
	return event.New(0, &event.PrivilegeAcquiredPayload{
		Node: "n1", User: user, Privilege: priv, Method: "ssh",
	})
}

func TestDrain_OneShotFiresOnce(t *testing.T) {
	ix := index.New()
	ix.Add(printDesc("intro", "intro_once", "", catchallKeys()...))
	d, w, _ := newTestDispatcher(t, ix, 8)
	q := event.NewQueue()

	q.Push(privEvent("u1", "read"))
	first := d.Drain(q, w)
	q.Push(privEvent("u1", "read"))
	second := d.Drain(q, w)

	if first.Fired != 1 || second.Fired != 0 {
		t.Fatalf("firings = %d then %d, want 1 then 0", first.Fired, second.Fired)
	}
	if !d.HasFired("intro_once") {
		t.Fatalf("HasFired(intro_once) = false after firing")
	}
	if got := w.Output(); len(got) != 1 {
		t.Fatalf("output = %v, want exactly one line", got)
	}
}

func TestDrain_GuardGatesFiring(t *testing.T) {
	ix := index.New()
	ix.Add(printDesc("exec-only", "", `privilege == "execute"`, catchallKeys()...))
	d, w, _ := newTestDispatcher(t, ix, 8)
	q := event.NewQueue()

	q.Push(privEvent("u1", "read"))
	if res := d.Drain(q, w); res.Fired != 0 {
		t.Fatalf("read event fired %d handlers, want 0", res.Fired)
	}
	q.Push(privEvent("u1", "execute"))
	if res := d.Drain(q, w); res.Fired != 1 {
		t.Fatalf("execute event fired %d handlers, want 1", res.Fired)
	}
}

func TestDrain_BudgetDefersRemainder(t *testing.T) {
	ix := index.New()
	ix.Add(printDesc("guarded", "", `privilege == "nope"`, catchallKeys()...))
	d, w, _ := newTestDispatcher(t, ix, 4)
	q := event.NewQueue()

	for i := 0; i < 6; i++ {
		q.Push(privEvent("u1", "read"))
	}

	first := d.Drain(q, w)
	afterFirst := q.Len()
	if afterFirst == 0 {
		t.Fatalf("queue drained fully despite the budget")
	}
	if first.Processed != 4 || first.Deferred != 2 {
		t.Fatalf("first pass = %+v, want 4 processed and 2 deferred", first)
	}

	second := d.Drain(q, w)
	afterSecond := q.Len()
	if afterSecond >= afterFirst {
		t.Fatalf("queue length %d after second pass, want below %d", afterSecond, afterFirst)
	}
	if second.Processed != 2 || afterSecond != 0 {
		t.Fatalf("second pass = %+v with %d left, want the remainder handled", second, afterSecond)
	}
}

func TestDrain_OrderPreservedAcrossDeferral(t *testing.T) {
	w := event.Wildcard
	ix := index.New()
	ix.Add(printDesc("one", "", "true", w, "u1", w, w))
	ix.Add(printDesc("two", "", "true", w, "u2", w, w))
	ix.Add(printDesc("three", "", "true", w, "u3", w, w))
	d, st, _ := newTestDispatcher(t, ix, 2)
	q := event.NewQueue()

	q.Push(privEvent("u1", "read"))
	q.Push(privEvent("u2", "read"))
	q.Push(privEvent("u3", "read"))

	d.Drain(q, st)
	d.Drain(q, st)

	got := st.Output()
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("output = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("output = %v, want %v (arrival order)", got, want)
		}
	}
}

func TestDrain_AbsentGuardCostsNoBudget(t *testing.T) {
	ix := index.New()
	ix.Add(printDesc("free", "", "", catchallKeys()...))
	d, w, _ := newTestDispatcher(t, ix, 1)
	q := event.NewQueue()

	for i := 0; i < 5; i++ {
		q.Push(privEvent("u1", "read"))
	}
	res := d.Drain(q, w)
	if res.Processed != 5 || res.Deferred != 0 {
		t.Fatalf("pass = %+v, want all 5 processed under a budget of 1", res)
	}
}

func TestDrain_TimeoutGuardDoesNotFire(t *testing.T) {
	ix := index.New()
	ix.Add(printDesc("spinner", "", `while true { }`, catchallKeys()...))
	d, w, warnings := newTestDispatcher(t, ix, 8)
	q := event.NewQueue()

	q.Push(privEvent("u1", "read"))
	res := d.Drain(q, w)
	if res.Fired != 0 || res.Processed != 1 {
		t.Fatalf("pass = %+v, want the event processed without firing", res)
	}
	if len(*warnings) == 0 {
		t.Fatalf("no warning recorded for the runaway guard")
	}
}

func TestSwapIndex_KeepsOneShotState(t *testing.T) {
	build := func() *index.Index {
		ix := index.New()
		ix.Add(printDesc("intro", "intro_once", "", catchallKeys()...))
		return ix
	}
	d, w, _ := newTestDispatcher(t, build(), 8)
	q := event.NewQueue()

	q.Push(privEvent("u1", "read"))
	d.Drain(q, w)

	d.SwapIndex(build())
	q.Push(privEvent("u1", "read"))
	if res := d.Drain(q, w); res.Fired != 0 {
		t.Fatalf("one-shot fired again after an index swap")
	}
}
