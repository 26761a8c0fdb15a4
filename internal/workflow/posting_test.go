package workflow_test

import (
	"errors"
	"testing"

	"github.com/factorhq/factor/internal/workflow"
)

func TestPostingTransitions(t *testing.T) {
	tests := []struct {
		name string
		from workflow.PostingStatus
		to   workflow.PostingStatus
		want bool
	}{
		{"none to in progress", workflow.PostingNone, workflow.PostingInProgress, true},
		{"in progress to posted", workflow.PostingInProgress, workflow.PostingPosted, true},
		{"in progress to failed", workflow.PostingInProgress, workflow.PostingFailed, true},
		{"failed retries into in progress", workflow.PostingFailed, workflow.PostingInProgress, true},

		{"none cannot jump to posted", workflow.PostingNone, workflow.PostingPosted, false},
		{"posted is terminal", workflow.PostingPosted, workflow.PostingInProgress, false},
		{"posted never fails afterward", workflow.PostingPosted, workflow.PostingFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestPostingValidate(t *testing.T) {
	if err := workflow.PostingInProgress.Validate(workflow.PostingPosted); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}

	err := workflow.PostingPosted.Validate(workflow.PostingInProgress)
	if !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Fatalf("Validate error = %v, want ErrInvalidTransition", err)
	}
}
