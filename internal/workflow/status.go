// Package workflow implements the document workflow state machine: the
// workflow status axis, the parallel posting status axis, the retry and
// escalation policy, and event replay. All types in this package are pure
// values; persistence is owned by the documents domain.
package workflow

import "fmt"

// Status is a document's position in the review/export lifecycle.
type Status string

const (
	StatusCaptured              Status = "captured"
	StatusClassified            Status = "classified"
	StatusExtracted             Status = "extracted"
	StatusVendorPending         Status = "vendor_pending"
	StatusBCValidationPending   Status = "bc_validation_pending"
	StatusBCValidationFailed    Status = "bc_validation_failed"
	StatusDataCorrectionPending Status = "data_correction_pending"
	StatusReviewPending         Status = "review_pending"
	StatusReadyForApproval      Status = "ready_for_approval"
	StatusApprovalInProgress    Status = "approval_in_progress"
	StatusApproved              Status = "approved"
	StatusRejected              Status = "rejected"
	StatusExported              Status = "exported"
	StatusArchived              Status = "archived"
	StatusEscalated             Status = "escalated"
	StatusFailed                Status = "failed"
)

// transitions is the single source of legality for status changes.
// Movement is forward-only except the explicit correction loop back into
// bc_validation_pending, which the retry policy bounds.
var transitions = map[Status][]Status{
	StatusCaptured:              {StatusClassified, StatusFailed},
	StatusClassified:            {StatusExtracted, StatusFailed},
	StatusExtracted:             {StatusVendorPending, StatusBCValidationPending, StatusEscalated, StatusFailed},
	StatusVendorPending:         {StatusBCValidationPending, StatusEscalated, StatusFailed},
	StatusBCValidationPending:   {StatusBCValidationFailed, StatusDataCorrectionPending, StatusReviewPending, StatusEscalated, StatusFailed},
	StatusBCValidationFailed:    {StatusBCValidationPending, StatusDataCorrectionPending, StatusEscalated, StatusFailed},
	StatusDataCorrectionPending: {StatusBCValidationPending, StatusEscalated, StatusFailed},
	StatusReviewPending:         {StatusReadyForApproval, StatusEscalated, StatusFailed},
	StatusReadyForApproval:      {StatusApprovalInProgress, StatusFailed},
	StatusApprovalInProgress:    {StatusApproved, StatusRejected, StatusFailed},
	StatusApproved:              {StatusExported, StatusArchived, StatusFailed},
}

// manualTransitions are the moves only a human operator may make. Escalated
// is terminal for the automatic pipeline; these are the ways out of it.
var manualTransitions = map[Status][]Status{
	StatusEscalated: {StatusDataCorrectionPending, StatusReviewPending, StatusArchived, StatusRejected},
}

var terminal = map[Status]bool{
	StatusExported: true,
	StatusArchived: true,
	StatusRejected: true,
	StatusFailed:   true,
}

var valid = func() map[Status]bool {
	m := make(map[Status]bool)
	for from, tos := range transitions {
		m[from] = true
		for _, to := range tos {
			m[to] = true
		}
	}
	return m
}()

// Initial is the status stamped on every document at ingestion.
const Initial = StatusCaptured

// IsValid reports whether s names a known workflow status.
func (s Status) IsValid() bool {
	return valid[s]
}

// IsTerminal reports whether s admits no further transitions. Escalated is
// terminal for the automatic pipeline only; manual intervention moves the
// document through the documents domain directly.
func (s Status) IsTerminal() bool {
	return terminal[s]
}

// CanTransition reports whether the status machine permits moving from s to
// the target status.
func (s Status) CanTransition(to Status) bool {
	if terminal[s] {
		return false
	}
	if s == StatusEscalated {
		return false
	}
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// CanManualTransition reports whether a human operator may move from s to
// the target status. It permits everything the automatic machine permits
// plus the explicit escalation exits.
func (s Status) CanManualTransition(to Status) bool {
	if s.CanTransition(to) {
		return true
	}
	for _, next := range manualTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Validate returns ErrInvalidTransition describing the rejected move from s
// to the target status, or nil when the move is legal. Callers must treat a
// non-nil result as a programming error, not a retryable condition.
func (s Status) Validate(to Status) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !s.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
	}
	return nil
}

func (s Status) String() string {
	return string(s)
}
