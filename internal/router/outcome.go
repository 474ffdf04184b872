package router

import "github.com/flowmesh/schemagate/internal/event"

// State is a step in an event's classification
type State string

const (
	StateReceived        State = "RECEIVED"
	StateMissingSchemaID State = "MISSING_SCHEMA_ID"
	StateBadTimestamp    State = "BAD_TIMESTAMP"
	StateValidated       State = "VALIDATED"
	StateRoutedValid     State = "ROUTED_VALID"
	StateRoutedInvalid   State = "ROUTED_INVALID"
)

// Terminal reports whether s ends an event's lifecycle
func (s State) Terminal() bool {
	return s == StateRoutedValid || s == StateRoutedInvalid
}

// Decision records how one event was classified and routed
type Decision struct {
	Index int
	Event *event.Event
	// Check is the classification step: MISSING_SCHEMA_ID, BAD_TIMESTAMP or VALIDATED
	Check State
	// State is the terminal routing state
	State  State
	Errors []string
}

// Outcome summarises a routed batch
type Outcome struct {
	BatchID   string
	Received  int
	Valid     int
	Invalid   int
	Decisions []Decision
}
