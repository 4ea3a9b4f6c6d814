// Package builtin provides the stock action executors wired into the
// engine at startup. Scenario catalogs reference them by type string.
package builtin

import (
	"fmt"

	"github.com/gyaneshwarpardhi/simflow/internal/action"
)

// All returns one instance of every built-in executor, for registration.
func All() []action.Executor {
	return []action.Executor{
		&PrintAction{},
		&SetFlagAction{},
		&ClearFlagAction{},
		&StartProcessAction{},
	}
}

// PrintAction handles "print": it appends one line to the world's output
// buffer. Required args: text.
type PrintAction struct{}

func (*PrintAction) Type() string { return "print" }

func (*PrintAction) Validate(args map[string]any) error {
	if _, err := stringArg(args, "text"); err != nil {
		return err
	}
	return nil
}

func (*PrintAction) Execute(args map[string]any, ctx action.Context) error {
	text, err := stringArg(args, "text")
	if err != nil {
		return err
	}
	ctx.AppendOutput(text)
	return nil
}

// stringArg fetches a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required arg %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("arg %q must be a string, got %T", key, v)
	}
	return s, nil
}

// intArg fetches a required integer argument. YAML and JSON decode
// numbers to different Go types, so both are coerced here.
func intArg(args map[string]any, key string) (int64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing required arg %q", key)
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("arg %q must be an integer, got %v", key, n)
		}
		return int64(n), nil
	}
	return 0, fmt.Errorf("arg %q must be an integer, got %T", key, v)
}
