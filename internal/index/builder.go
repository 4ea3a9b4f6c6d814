package index

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/simflow/internal/action"
	"github.com/gyaneshwarpardhi/simflow/internal/catalog"
	"github.com/gyaneshwarpardhi/simflow/internal/event"
	"github.com/gyaneshwarpardhi/simflow/internal/guard"
)

// Build constructs an Index from a validated catalog. Guards are compiled
// here, once; zero parsing happens at dispatch time. Descriptors are
// registered in declaration order.
func Build(cfg *catalog.Catalog) (*Index, error) {
	ix := New()
	for i, h := range cfg.Handlers {
		d, err := buildHandler(cfg, &h)
		if err != nil {
			return nil, fmt.Errorf("handlers[%d] (%s): %w", i, h.Scenario, err)
		}
		ix.Add(d)
	}
	return ix, nil
}

func buildHandler(cfg *catalog.Catalog, h *catalog.HandlerDef) (*Descriptor, error) {
	ct := event.ConditionType(h.On)
	fields, ok := event.MatchFields(ct)
	if !ok {
		return nil, fmt.Errorf("unknown condition type %q", h.On)
	}

	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = normalizeKey(h.Match[f])
	}

	var g *guard.Compiled
	switch {
	case h.Guard != "":
		g = guard.Compile(h.Scenario, h.EventID, guard.Inline, "", h.Guard)
	case h.GuardRef != "":
		src, ok := cfg.Scripts[h.GuardRef]
		if !ok {
			return nil, fmt.Errorf("guard_ref %q: no such script", h.GuardRef)
		}
		g = guard.Compile(h.Scenario, h.EventID, guard.Referenced, h.GuardRef, src)
	}

	actions := make([]action.Blueprint, len(h.Actions))
	for i, a := range h.Actions {
		actions[i] = action.Blueprint{Type: a.Type, Args: a.Args}
	}

	return &Descriptor{
		Scenario:  h.Scenario,
		EventID:   h.EventID,
		Condition: ct,
		MatchKeys: keys,
		Guard:     g,
		Actions:   actions,
	}, nil
}

// normalizeKey maps the catalog spellings of "match anything" (an absent
// field, "*", or "any") onto the wildcard sentinel.
func normalizeKey(v string) string {
	if v == "" || v == event.Wildcard || strings.EqualFold(v, "any") {
		return event.Wildcard
	}
	return v
}
