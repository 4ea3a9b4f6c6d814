package builtin

import (
	"github.com/gyaneshwarpardhi/simflow/internal/action"
)

// SetFlagAction handles "set_flag". Required args: key, value.
type SetFlagAction struct{}

func (*SetFlagAction) Type() string { return "set_flag" }

func (*SetFlagAction) Validate(args map[string]any) error {
	if _, err := stringArg(args, "key"); err != nil {
		return err
	}
	if _, err := stringArg(args, "value"); err != nil {
		return err
	}
	return nil
}

func (*SetFlagAction) Execute(args map[string]any, ctx action.Context) error {
	key, err := stringArg(args, "key")
	if err != nil {
		return err
	}
	value, err := stringArg(args, "value")
	if err != nil {
		return err
	}
	ctx.SetFlag(key, value)
	return nil
}

// ClearFlagAction handles "clear_flag". Required args: key.
type ClearFlagAction struct{}

func (*ClearFlagAction) Type() string { return "clear_flag" }

func (*ClearFlagAction) Validate(args map[string]any) error {
	_, err := stringArg(args, "key")
	return err
}

func (*ClearFlagAction) Execute(args map[string]any, ctx action.Context) error {
	key, err := stringArg(args, "key")
	if err != nil {
		return err
	}
	ctx.ClearFlag(key)
	return nil
}
