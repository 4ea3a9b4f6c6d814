package catalog

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/simflow/internal/action"
	"github.com/gyaneshwarpardhi/simflow/internal/event"
	"github.com/gyaneshwarpardhi/simflow/internal/guard"
)

// Validate checks the catalog for:
//   - Required fields and known condition types
//   - Match keys outside the condition's field schema
//   - Duplicate event_ids (the one-shot identity must be unique)
//   - Guard/guard_ref exclusivity, unresolved refs, and script parse errors
//   - Action types unknown to the registry, and per-action arg validation
//
// A bad guard script is only a validation error here; at build time it
// still compiles into a guard that evaluates to a diagnosed false.
func Validate(cfg *Catalog, reg *action.Registry) error {
	if cfg.Version == "" {
		return fmt.Errorf("catalog: version is required")
	}
	var errs []string
	eventIDs := make(map[string]string) // event_id → location

	for name, src := range cfg.Scripts {
		if _, err := guard.Parse(src); err != nil {
			errs = append(errs, fmt.Sprintf("scripts.%s: %v", name, err))
		}
	}

	for i, h := range cfg.Handlers {
		loc := fmt.Sprintf("handlers[%d]", i)
		if h.Scenario == "" {
			errs = append(errs, fmt.Sprintf("%s: scenario is required", loc))
		} else {
			loc = fmt.Sprintf("handlers[%d] (%s)", i, h.Scenario)
		}

		ct := event.ConditionType(h.On)
		fields, known := event.MatchFields(ct)
		if !known {
			errs = append(errs, fmt.Sprintf("%s: unknown condition type %q", loc, h.On))
		} else {
			for key := range h.Match {
				if !contains(fields, key) {
					errs = append(errs, fmt.Sprintf("%s: match key %q is not a field of %s", loc, key, h.On))
				}
			}
		}

		if h.EventID != "" {
			if prev, dup := eventIDs[h.EventID]; dup {
				errs = append(errs, fmt.Sprintf("%s: duplicate event_id %q (first seen at %s)", loc, h.EventID, prev))
			} else {
				eventIDs[h.EventID] = loc
			}
		}

		switch {
		case h.Guard != "" && h.GuardRef != "":
			errs = append(errs, fmt.Sprintf("%s: only one of guard/guard_ref may be set", loc))
		case h.Guard != "":
			if _, err := guard.Parse(h.Guard); err != nil {
				errs = append(errs, fmt.Sprintf("%s: guard: %v", loc, err))
			}
		case h.GuardRef != "":
			if _, ok := cfg.Scripts[h.GuardRef]; !ok {
				errs = append(errs, fmt.Sprintf("%s: guard_ref %q: no such script", loc, h.GuardRef))
			}
		}

		if len(h.Actions) == 0 {
			errs = append(errs, fmt.Sprintf("%s: actions must not be empty", loc))
		}
		for j, a := range h.Actions {
			if a.Type == "" {
				errs = append(errs, fmt.Sprintf("%s.actions[%d]: type is required", loc, j))
				continue
			}
			exec, err := reg.Get(a.Type)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s.actions[%d]: %v", loc, j, err))
				continue
			}
			if err := exec.Validate(a.Args); err != nil {
				errs = append(errs, fmt.Sprintf("%s.actions[%d] (%s): %v", loc, j, a.Type, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalog validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
