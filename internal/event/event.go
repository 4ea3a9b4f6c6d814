package event

import (
	"encoding/json"
	"fmt"
)

// ConditionType identifies which kind of world occurrence an event reports
// and fixes the ordered set of fields handlers may match on.
type ConditionType string

const (
	PrivilegeAcquired ConditionType = "privilege_acquired"
	FileAcquired      ConditionType = "file_acquired"
	ProcessFinished   ConditionType = "process_finished"
)

// Wildcard is the reserved match-key sentinel meaning "any value".
// It is distinct from every legal field literal.
const Wildcard = "*"

// matchFields maps each condition type to its fixed match-field order.
var matchFields = map[ConditionType][]string{
	PrivilegeAcquired: {"node", "user", "privilege", "method"},
	FileAcquired:      {"node", "path", "user", "method"},
	ProcessFinished:   {"node", "process"},
}

// MatchFields returns the ordered match-field names for a condition type.
func MatchFields(ct ConditionType) ([]string, bool) {
	f, ok := matchFields[ct]
	return f, ok
}

// KnownCondition reports whether ct is a recognized condition type.
func KnownCondition(ct ConditionType) bool {
	_, ok := matchFields[ct]
	return ok
}

// Payload is the typed record carried by an Event.
type Payload interface {
	// Condition returns the condition type this payload belongs to.
	Condition() ConditionType
	// MatchValues returns the field values in MatchFields order.
	MatchValues() []string
	// Field looks up a single payload field by name, for guard scripts.
	Field(name string) (any, bool)
}

// Event is the canonical input model for all incoming world events.
type Event struct {
	ID        string  `json:"id,omitempty"`
	Type      string  `json:"type"`
	Timestamp int64   `json:"timestamp"` // world tick the event occurred at
	Sequence  uint64  `json:"sequence"`  // assigned by the queue; defines processing order
	Payload   Payload `json:"payload"`
}

// New builds an event for the given payload. Sequence is assigned on enqueue.
func New(timestamp int64, p Payload) *Event {
	return &Event{
		Type:      string(p.Condition()),
		Timestamp: timestamp,
		Payload:   p,
	}
}

// PrivilegeAcquiredPayload reports a user gaining a privilege on a node.
type PrivilegeAcquiredPayload struct {
	Node      string `json:"node"`
	User      string `json:"user"`
	Privilege string `json:"privilege"`
	Method    string `json:"method"`
}

func (p *PrivilegeAcquiredPayload) Condition() ConditionType { return PrivilegeAcquired }

func (p *PrivilegeAcquiredPayload) MatchValues() []string {
	return []string{p.Node, p.User, p.Privilege, p.Method}
}

func (p *PrivilegeAcquiredPayload) Field(name string) (any, bool) {
	switch name {
	case "node":
		return p.Node, true
	case "user":
		return p.User, true
	case "privilege":
		return p.Privilege, true
	case "method":
		return p.Method, true
	}
	return nil, false
}

// FileAcquiredPayload reports a file being obtained from a node.
type FileAcquiredPayload struct {
	Node   string `json:"node"`
	Path   string `json:"path"`
	User   string `json:"user"`
	Method string `json:"method"`
}

func (p *FileAcquiredPayload) Condition() ConditionType { return FileAcquired }

func (p *FileAcquiredPayload) MatchValues() []string {
	return []string{p.Node, p.Path, p.User, p.Method}
}

func (p *FileAcquiredPayload) Field(name string) (any, bool) {
	switch name {
	case "node":
		return p.Node, true
	case "path":
		return p.Path, true
	case "user":
		return p.User, true
	case "method":
		return p.Method, true
	}
	return nil, false
}

// ProcessFinishedPayload reports a long-running operation completing.
type ProcessFinishedPayload struct {
	Node      string `json:"node"`
	Process   string `json:"process"`
	ProcessID int64  `json:"process_id"`
}

func (p *ProcessFinishedPayload) Condition() ConditionType { return ProcessFinished }

func (p *ProcessFinishedPayload) MatchValues() []string {
	return []string{p.Node, p.Process}
}

func (p *ProcessFinishedPayload) Field(name string) (any, bool) {
	switch name {
	case "node":
		return p.Node, true
	case "process":
		return p.Process, true
	case "process_id":
		return p.ProcessID, true
	}
	return nil, false
}

// DecodePayload unmarshals a JSON payload for the given condition type.
func DecodePayload(ct ConditionType, data []byte) (Payload, error) {
	var p Payload
	switch ct {
	case PrivilegeAcquired:
		p = &PrivilegeAcquiredPayload{}
	case FileAcquired:
		p = &FileAcquiredPayload{}
	case ProcessFinished:
		p = &ProcessFinishedPayload{}
	default:
		return nil, fmt.Errorf("event: unknown condition type %q", ct)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("event: decode %s payload: %w", ct, err)
	}
	return p, nil
}
