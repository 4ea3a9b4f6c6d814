package builtin

import (
	"testing"

	"github.com/gyaneshwarpardhi/simflow/internal/action"
)

type fakeCtx struct {
	out   []string
	flags map[string]string
	procs map[string]int64
}

func newFakeCtx() *fakeCtx {
	return &fakeCtx{flags: make(map[string]string), procs: make(map[string]int64)}
}

func (c *fakeCtx) AppendOutput(line string) { c.out = append(c.out, line) }

func (c *fakeCtx) Flag(key string) (string, bool) {
	v, ok := c.flags[key]
	return v, ok
}

func (c *fakeCtx) SetFlag(key, value string) { c.flags[key] = value }

func (c *fakeCtx) ClearFlag(key string) { delete(c.flags, key) }

func (c *fakeCtx) StartProcess(name string, duration int64) int64 {
	c.procs[name] = duration
	return 1
}

func (c *fakeCtx) Now() int64 { return 0 }

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		exec    action.Executor
		args    map[string]any
		wantErr bool
	}{
		{"print ok", &PrintAction{}, map[string]any{"text": "hi"}, false},
		{"print missing text", &PrintAction{}, map[string]any{}, true},
		{"print wrong type", &PrintAction{}, map[string]any{"text": 5}, true},
		{"set_flag ok", &SetFlagAction{}, map[string]any{"key": "k", "value": "v"}, false},
		{"set_flag missing value", &SetFlagAction{}, map[string]any{"key": "k"}, true},
		{"clear_flag ok", &ClearFlagAction{}, map[string]any{"key": "k"}, false},
		{"start_process ok", &StartProcessAction{}, map[string]any{"name": "crack", "duration": 10}, false},
		{"start_process yaml float", &StartProcessAction{}, map[string]any{"name": "crack", "duration": float64(10)}, false},
		{"start_process zero duration", &StartProcessAction{}, map[string]any{"name": "crack", "duration": 0}, true},
		{"start_process fractional", &StartProcessAction{}, map[string]any{"name": "crack", "duration": 1.5}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.exec.Validate(tc.args)
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate(%v) error = %v, wantErr %v", tc.args, err, tc.wantErr)
			}
		})
	}
}

func TestExecute(t *testing.T) {
	ctx := newFakeCtx()

	if err := (&PrintAction{}).Execute(map[string]any{"text": "line one"}, ctx); err != nil {
		t.Fatalf("print: %v", err)
	}
	if err := (&SetFlagAction{}).Execute(map[string]any{"key": "alarm", "value": "raised"}, ctx); err != nil {
		t.Fatalf("set_flag: %v", err)
	}
	if err := (&StartProcessAction{}).Execute(map[string]any{"name": "crack", "duration": 30}, ctx); err != nil {
		t.Fatalf("start_process: %v", err)
	}

	if len(ctx.out) != 1 || ctx.out[0] != "line one" {
		t.Errorf("output = %v", ctx.out)
	}
	if v, _ := ctx.Flag("alarm"); v != "raised" {
		t.Errorf("flag alarm = %q, want %q", v, "raised")
	}
	if ctx.procs["crack"] != 30 {
		t.Errorf("process duration = %d, want 30", ctx.procs["crack"])
	}

	if err := (&ClearFlagAction{}).Execute(map[string]any{"key": "alarm"}, ctx); err != nil {
		t.Fatalf("clear_flag: %v", err)
	}
	if _, ok := ctx.Flag("alarm"); ok {
		t.Errorf("flag alarm still set after clear")
	}
}

func TestAll_RegistersCleanly(t *testing.T) {
	reg := action.NewRegistry()
	for _, e := range All() {
		reg.Register(e)
	}
	if got := len(reg.Types()); got != 4 {
		t.Errorf("registered %d types, want 4", got)
	}
}
