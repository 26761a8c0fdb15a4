package workflow_test

import (
	"errors"
	"testing"

	"github.com/factorhq/factor/internal/workflow"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from workflow.Status
		to   workflow.Status
		want bool
	}{
		{"captured to classified", workflow.StatusCaptured, workflow.StatusClassified, true},
		{"classified to extracted", workflow.StatusClassified, workflow.StatusExtracted, true},
		{"extracted to vendor pending", workflow.StatusExtracted, workflow.StatusVendorPending, true},
		{"extracted to validation", workflow.StatusExtracted, workflow.StatusBCValidationPending, true},
		{"extracted to escalated", workflow.StatusExtracted, workflow.StatusEscalated, true},
		{"validation to review", workflow.StatusBCValidationPending, workflow.StatusReviewPending, true},
		{"validation to correction", workflow.StatusBCValidationPending, workflow.StatusDataCorrectionPending, true},
		{"correction loop back to validation", workflow.StatusDataCorrectionPending, workflow.StatusBCValidationPending, true},
		{"validation failed back to validation", workflow.StatusBCValidationFailed, workflow.StatusBCValidationPending, true},
		{"approval to approved", workflow.StatusApprovalInProgress, workflow.StatusApproved, true},
		{"approval to rejected", workflow.StatusApprovalInProgress, workflow.StatusRejected, true},
		{"approved to exported", workflow.StatusApproved, workflow.StatusExported, true},

		{"captured cannot skip to extracted", workflow.StatusCaptured, workflow.StatusExtracted, false},
		{"captured cannot jump to approved", workflow.StatusCaptured, workflow.StatusApproved, false},
		{"review cannot move backward", workflow.StatusReviewPending, workflow.StatusCaptured, false},
		{"exported is terminal", workflow.StatusExported, workflow.StatusArchived, false},
		{"rejected is terminal", workflow.StatusRejected, workflow.StatusReviewPending, false},
		{"failed is terminal", workflow.StatusFailed, workflow.StatusCaptured, false},
		{"escalated blocks automation", workflow.StatusEscalated, workflow.StatusReviewPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestValidateInvalidTransition(t *testing.T) {
	err := workflow.StatusCaptured.Validate(workflow.StatusApproved)
	if !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Fatalf("Validate error = %v, want ErrInvalidTransition", err)
	}
}

func TestValidateUnknownStatus(t *testing.T) {
	err := workflow.StatusCaptured.Validate(workflow.Status("bogus"))
	if !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Fatalf("Validate error = %v, want ErrInvalidTransition", err)
	}
}

func TestValidateLegalTransition(t *testing.T) {
	if err := workflow.StatusCaptured.Validate(workflow.StatusClassified); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []workflow.Status{
		workflow.StatusExported,
		workflow.StatusArchived,
		workflow.StatusRejected,
		workflow.StatusFailed,
	}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false, want true", s)
		}
	}

	// escalated is terminal for automation but still has manual exits
	if workflow.StatusEscalated.IsTerminal() {
		t.Error("escalated should not be terminal; operators can still move it")
	}
}

func TestCanManualTransition(t *testing.T) {
	exits := []workflow.Status{
		workflow.StatusDataCorrectionPending,
		workflow.StatusReviewPending,
		workflow.StatusArchived,
		workflow.StatusRejected,
	}
	for _, to := range exits {
		if !workflow.StatusEscalated.CanManualTransition(to) {
			t.Errorf("escalated should permit manual move to %s", to)
		}
	}

	if workflow.StatusEscalated.CanManualTransition(workflow.StatusExported) {
		t.Error("escalated should not permit manual move straight to exported")
	}

	// manual permissions include everything automation permits
	if !workflow.StatusCaptured.CanManualTransition(workflow.StatusClassified) {
		t.Error("manual transition should include automatic transitions")
	}
}

func TestIsValid(t *testing.T) {
	if !workflow.StatusEscalated.IsValid() {
		t.Error("escalated should be a valid status")
	}
	if workflow.Status("bogus").IsValid() {
		t.Error("bogus should not be a valid status")
	}
}
