package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/factorhq/factor/internal/autopost"
	"github.com/factorhq/factor/internal/classification"
	"github.com/factorhq/factor/internal/extraction"
	"github.com/factorhq/factor/internal/workflow"
	"github.com/factorhq/factor/pkg/pagination"
)

// System defines the public contract for document domain operations. Every
// pipeline mutation is conditioned on the document's last-known workflow
// status; a mismatch returns ErrStatusConflict and changes nothing.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Events returns the document's history in insertion (causal) order.
	Events(ctx context.Context, id uuid.UUID) ([]Event, error)
	AppendEvent(ctx context.Context, id uuid.UUID, event workflow.Event) error

	// Transition applies one legal automatic status move and appends exactly
	// one event. Illegal moves are rejected no-ops recorded as failures.
	Transition(
		ctx context.Context,
		id uuid.UUID,
		from, to workflow.Status,
		stage, detail string,
	) (*Document, error)

	// ManualTransition applies an operator-requested move, which may exit
	// the escalated state.
	ManualTransition(ctx context.Context, id uuid.UUID, cmd TransitionCommand) (*Document, error)

	SetClassification(
		ctx context.Context,
		id uuid.UUID,
		expected workflow.Status,
		result classification.Result,
		candidates extraction.CandidateSet,
	) error

	SetVendorMatch(ctx context.Context, id uuid.UUID, vendorBCID string) error
	SetRetryCount(ctx context.Context, id uuid.UUID, stage string, count int) error

	Correct(ctx context.Context, id uuid.UUID, cmd CorrectCommand) (*Document, error)

	// BeginAutoPost and CompleteAutoPost implement autopost.Store.
	BeginAutoPost(ctx context.Context, id uuid.UUID, expected workflow.Status) error
	CompleteAutoPost(ctx context.Context, id uuid.UUID, outcome autopost.PostingOutcome) error
}
