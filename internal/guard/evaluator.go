package guard

import (
	"errors"
	"fmt"

	"github.com/gyaneshwarpardhi/simflow/internal/event"
	"github.com/gyaneshwarpardhi/simflow/internal/metrics"
)

// SourceKind records where a guard script came from.
type SourceKind int

const (
	Inline SourceKind = iota
	Referenced
)

// Sink receives human-readable diagnostic messages. Diagnostics are
// advisory; emitting one never aborts the tick.
type Sink func(msg string)

// FlagReader exposes read-only scenario flags to guard scripts.
type FlagReader interface {
	Flag(key string) (string, bool)
}

// Compiled is a guard script compiled once and reused across evaluations.
// A script that fails to parse still yields a Compiled; the failure is
// diagnosed when the guard is evaluated.
type Compiled struct {
	Scenario string
	EventID  string
	Kind     SourceKind
	Ref      string // script name when Kind == Referenced

	prog       []Stmt
	compileErr error
}

// Compile parses a guard script. It never fails to the caller: a bad
// script produces a guard that evaluates to a diagnosed false.
func Compile(scenario, eventID string, kind SourceKind, ref, src string) *Compiled {
	g := &Compiled{Scenario: scenario, EventID: eventID, Kind: kind, Ref: ref}
	prog, err := Parse(src)
	if err != nil {
		g.compileErr = err
		return g
	}
	g.prog = prog
	return g
}

// label identifies the guard's owning handler in diagnostics.
func (g *Compiled) label() string {
	id := g.Scenario
	if g.EventID != "" {
		id += "/" + g.EventID
	}
	if g.Kind == Referenced {
		id += " (script " + g.Ref + ")"
	}
	return id
}

// errBudget aborts script execution when the step ceiling is hit.
var errBudget = errors.New("step budget exhausted")

// DefaultSteps is the per-evaluation instruction ceiling. Steps are
// counted per AST node visit, so the ceiling is deterministic across
// platforms regardless of wall-clock speed.
const DefaultSteps = 10000

// Evaluator runs compiled guards under a strict execution budget.
type Evaluator struct {
	steps int
	warn  Sink
}

// NewEvaluator creates an Evaluator with the given per-evaluation step
// ceiling (DefaultSteps if steps <= 0) and warning sink.
func NewEvaluator(steps int, warn Sink) *Evaluator {
	if steps <= 0 {
		steps = DefaultSteps
	}
	if warn == nil {
		warn = func(string) {}
	}
	return &Evaluator{steps: steps, warn: warn}
}

// Evaluate runs the guard against the event and scenario flags. It always
// returns a boolean: script errors and budget exhaustion degrade to false
// with a warning. A nil guard counts as true.
func (e *Evaluator) Evaluate(g *Compiled, ev *event.Event, flags FlagReader) bool {
	if g == nil {
		return true
	}
	metrics.GuardEvaluations.Inc()
	if g.compileErr != nil {
		metrics.GuardFailures.Inc()
		e.warn(fmt.Sprintf("guard %s: compile: %v", g.label(), g.compileErr))
		return false
	}

	rs := &runState{ev: ev, flags: flags, locals: make(map[string]any), steps: e.steps}
	val, err := rs.run(g.prog)
	if err != nil {
		if errors.Is(err, errBudget) {
			metrics.GuardTimeouts.Inc()
			e.warn(fmt.Sprintf("guard %s: timeout after %d steps", g.label(), e.steps))
		} else {
			metrics.GuardFailures.Inc()
			e.warn(fmt.Sprintf("guard %s: %v", g.label(), err))
		}
		return false
	}
	b, ok := val.(bool)
	if !ok {
		metrics.GuardFailures.Inc()
		e.warn(fmt.Sprintf("guard %s: script result is %T, want bool", g.label(), val))
		return false
	}
	return b
}

// runState carries one evaluation's environment and remaining budget.
// Guards are pure with respect to world state: the event and flags are
// read-only; only script locals are mutable.
type runState struct {
	ev     *event.Event
	flags  FlagReader
	locals map[string]any
	steps  int
}

func (rs *runState) step() error {
	if rs.steps <= 0 {
		return errBudget
	}
	rs.steps--
	return nil
}

// run executes the top-level statement list. The script's result is the
// value of a return statement, or the value of the last bare expression.
func (rs *runState) run(prog []Stmt) (any, error) {
	var last any
	hasLast := false
	for _, s := range prog {
		ret, val, err := rs.exec(s)
		if err != nil {
			return nil, err
		}
		if ret {
			return val, nil
		}
		if _, ok := s.(*ExprStmt); ok {
			last = val
			hasLast = true
		}
	}
	if !hasLast {
		return nil, fmt.Errorf("script produced no result")
	}
	return last, nil
}

// exec runs one statement. The first return value reports an explicit
// return; the second carries the statement's value where one exists.
func (rs *runState) exec(s Stmt) (bool, any, error) {
	if err := rs.step(); err != nil {
		return false, nil, err
	}
	switch st := s.(type) {
	case *LetStmt:
		v, err := rs.eval(st.Expr)
		if err != nil {
			return false, nil, err
		}
		rs.locals[st.Name] = v
		return false, nil, nil
	case *AssignStmt:
		if _, ok := rs.locals[st.Name]; !ok {
			return false, nil, fmt.Errorf("assignment to undeclared variable %q", st.Name)
		}
		v, err := rs.eval(st.Expr)
		if err != nil {
			return false, nil, err
		}
		rs.locals[st.Name] = v
		return false, nil, nil
	case *IfStmt:
		cond, err := rs.evalBool(st.Cond)
		if err != nil {
			return false, nil, err
		}
		if cond {
			return rs.execBlock(st.Then)
		}
		return rs.execBlock(st.Else)
	case *WhileStmt:
		for {
			cond, err := rs.evalBool(st.Cond)
			if err != nil {
				return false, nil, err
			}
			if !cond {
				return false, nil, nil
			}
			ret, val, err := rs.execBlock(st.Body)
			if err != nil || ret {
				return ret, val, err
			}
		}
	case *ReturnStmt:
		v, err := rs.eval(st.Expr)
		if err != nil {
			return false, nil, err
		}
		return true, v, nil
	case *ExprStmt:
		v, err := rs.eval(st.Expr)
		if err != nil {
			return false, nil, err
		}
		return false, v, nil
	default:
		return false, nil, fmt.Errorf("unknown statement type %T", s)
	}
}

func (rs *runState) execBlock(stmts []Stmt) (bool, any, error) {
	for _, s := range stmts {
		ret, val, err := rs.exec(s)
		if err != nil || ret {
			return ret, val, err
		}
	}
	return false, nil, nil
}

// eval walks an expression node and returns its value.
func (rs *runState) eval(e Expr) (any, error) {
	if err := rs.step(); err != nil {
		return nil, err
	}
	switch ex := e.(type) {
	case *LiteralExpr:
		return ex.Value, nil
	case *FieldExpr:
		return rs.resolve(ex.Path)
	case *NotExpr:
		v, err := rs.evalBool(ex.Expr)
		if err != nil {
			return nil, err
		}
		return !v, nil
	case *BinaryExpr:
		left, err := rs.evalBool(ex.Left)
		if err != nil {
			return nil, err
		}
		switch ex.Op {
		case "AND":
			if !left {
				return false, nil // short-circuit
			}
			return rs.evalBool(ex.Right)
		case "OR":
			if left {
				return true, nil // short-circuit
			}
			return rs.evalBool(ex.Right)
		default:
			return nil, fmt.Errorf("unknown binary op %q", ex.Op)
		}
	case *ComparisonExpr:
		left, err := rs.eval(ex.Left)
		if err != nil {
			return nil, err
		}
		right, err := rs.eval(ex.Right)
		if err != nil {
			return nil, err
		}
		return compare(ex.Op, left, right)
	case *ArithExpr:
		left, err := rs.eval(ex.Left)
		if err != nil {
			return nil, err
		}
		right, err := rs.eval(ex.Right)
		if err != nil {
			return nil, err
		}
		return arith(ex.Op, left, right)
	default:
		return nil, fmt.Errorf("unknown expr type %T", e)
	}
}

func (rs *runState) evalBool(e Expr) (bool, error) {
	v, err := rs.eval(e)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("condition value is %T, want bool", v)
	}
	return b, nil
}

// resolve looks up a field path: script locals first, then the "flags"
// and "event" namespaces, then the event payload's own fields.
func (rs *runState) resolve(path []string) (any, error) {
	if len(path) == 1 {
		if v, ok := rs.locals[path[0]]; ok {
			return v, nil
		}
		if rs.ev != nil && rs.ev.Payload != nil {
			if v, ok := rs.ev.Payload.Field(path[0]); ok {
				return v, nil
			}
		}
		return nil, fmt.Errorf("field %q not found", path[0])
	}
	switch path[0] {
	case "flags":
		if len(path) != 2 {
			return nil, fmt.Errorf("flags access must be flags.<key>")
		}
		if rs.flags == nil {
			return "", nil
		}
		v, _ := rs.flags.Flag(path[1])
		return v, nil // missing flag reads as empty string
	case "event":
		if rs.ev == nil || len(path) != 2 {
			return nil, fmt.Errorf("field %q not found", joinPath(path))
		}
		switch path[1] {
		case "type":
			return rs.ev.Type, nil
		case "timestamp":
			return float64(rs.ev.Timestamp), nil
		case "sequence":
			return float64(rs.ev.Sequence), nil
		}
	}
	return nil, fmt.Errorf("field %q not found", joinPath(path))
}

func joinPath(path []string) string {
	out := path[0]
	for _, p := range path[1:] {
		out += "." + p
	}
	return out
}
