package catalog

// Catalog is the top-level YAML structure declaring the engine tuning,
// named guard scripts, and event handlers.
type Catalog struct {
	Version  string            `yaml:"version"`
	Engine   EngineConf        `yaml:"engine"`
	Scripts  map[string]string `yaml:"scripts"`
	Handlers []HandlerDef      `yaml:"handlers"`
}

// EngineConf holds tunable engine settings.
type EngineConf struct {
	// GuardBudget is how many guard evaluations one drain pass may spend
	// before deferring the rest of the queue to the next tick.
	GuardBudget int `yaml:"guard_budget"`
	// GuardSteps is the interpreter step ceiling per guard evaluation.
	GuardSteps int `yaml:"guard_steps"`
	// InboxDepth bounds the channel external producers submit events to.
	InboxDepth int `yaml:"inbox_depth"`
	// TickMs is the world tick interval in milliseconds.
	TickMs int `yaml:"tick_ms"`
	// OutputTail is how many output lines the world snapshot retains.
	OutputTail int `yaml:"output_tail"`
}

// HandlerDef declares one event handler.
type HandlerDef struct {
	Scenario string `yaml:"scenario"`
	// EventID, when set, must be unique and makes the handler one-shot:
	// it fires at most once for the engine's lifetime.
	EventID string `yaml:"event_id"`
	// On names the condition type ("privilege_acquired", …).
	On string `yaml:"on"`
	// Match maps field names to literals; "any", "*", or an absent field
	// matches anything.
	Match map[string]string `yaml:"match"`
	// Guard is an inline guard script; GuardRef names one from Scripts.
	// At most one may be set.
	Guard    string      `yaml:"guard"`
	GuardRef string      `yaml:"guard_ref"`
	Actions  []ActionDef `yaml:"actions"`
}

// ActionDef is a leaf declaring one action to execute.
type ActionDef struct {
	Type string         `yaml:"type"`
	Args map[string]any `yaml:"args"`
}
