package workflow

import "time"

// Outcome classifies the result of the operation an event describes.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeBlocked Outcome = "blocked"
)

// Event is a single append-only history entry for a document. Events are
// immutable once appended and their insertion order is causal order: an
// event is recorded only after the operation it describes has completed.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	Stage       string    `json:"stage"`
	Action      string    `json:"action"`
	Outcome     Outcome   `json:"outcome"`
	Detail      string    `json:"detail,omitempty"`
	FromStatus  Status    `json:"from_status,omitempty"`
	ToStatus    Status    `json:"to_status,omitempty"`
	Simulated   bool      `json:"simulated"`
	SimulatedID string    `json:"simulated_id,omitempty"`
}

// NewTransitionEvent builds the event appended for a status transition.
func NewTransitionEvent(stage string, from, to Status, outcome Outcome, detail string) Event {
	return Event{
		Timestamp:  time.Now().UTC(),
		Stage:      stage,
		Action:     "transition",
		Outcome:    outcome,
		Detail:     detail,
		FromStatus: from,
		ToStatus:   to,
	}
}

// ReplayStatus reconstructs the final workflow status by folding successful
// transition events in order. Replaying an unchanged history always yields
// the same result.
func ReplayStatus(events []Event) Status {
	status := Initial
	for _, e := range events {
		if e.Action != "transition" || e.Outcome != OutcomeSuccess {
			continue
		}
		if e.ToStatus != "" {
			status = e.ToStatus
		}
	}
	return status
}
