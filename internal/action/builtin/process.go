package builtin

import (
	"fmt"

	"github.com/gyaneshwarpardhi/simflow/internal/action"
)

// StartProcessAction handles "start_process": it begins a long-running
// operation that completes `duration` ticks from now, at which point the
// world synthesizes a process_finished event. Required args: name,
// duration (positive integer).
type StartProcessAction struct{}

func (*StartProcessAction) Type() string { return "start_process" }

func (*StartProcessAction) Validate(args map[string]any) error {
	if _, err := stringArg(args, "name"); err != nil {
		return err
	}
	d, err := intArg(args, "duration")
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("arg %q must be positive, got %d", "duration", d)
	}
	return nil
}

func (*StartProcessAction) Execute(args map[string]any, ctx action.Context) error {
	name, err := stringArg(args, "name")
	if err != nil {
		return err
	}
	duration, err := intArg(args, "duration")
	if err != nil {
		return err
	}
	ctx.StartProcess(name, duration)
	return nil
}
