package autopost

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/factorhq/factor/internal/workflow"
)

// Stage is the audit-trail stage name for auto-post events.
const Stage = "auto_post"

// Store is the slice of the documents domain the runner persists through.
// Updates are conditioned on the document's last-known status; a stale
// trigger surfaces as a status-conflict error the caller treats as benign.
type Store interface {
	BeginAutoPost(ctx context.Context, id uuid.UUID, expected workflow.Status) error
	CompleteAutoPost(ctx context.Context, id uuid.UUID, outcome PostingOutcome) error
	AppendEvent(ctx context.Context, id uuid.UUID, event workflow.Event) error
}

// PostingOutcome records how an auto-post attempt ended.
type PostingOutcome struct {
	Status           workflow.PostingStatus
	BCDocumentID     string
	BCDocumentNumber string
	Error            string
	Success          bool
}

// Result is the value object describing one auto-post run. It is embedded
// into a workflow event, never persisted independently.
type Result struct {
	Eligible         bool              `json:"eligible"`
	Attempted        bool              `json:"attempted"`
	Success          bool              `json:"success"`
	BCDocumentID     string            `json:"bc_document_id,omitempty"`
	BCDocumentNumber string            `json:"bc_document_number,omitempty"`
	Error            string            `json:"error,omitempty"`
	Reason           string            `json:"reason"`
	Simulation       *SimulationResult `json:"simulation,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}

// RunInput carries one document's snapshot and posting payload.
type RunInput struct {
	DocumentID     uuid.UUID
	WorkflowStatus workflow.Status
	Snapshot       Snapshot
	Invoice        InvoiceData
	StorageURL     string
	UploadedBy     string
}

// Runner orchestrates the gated auto-post path: evaluate, attempt, record.
// When pilot mode is active the external write is substituted with a
// deterministic simulation and no real call occurs.
type Runner struct {
	store  Store
	poster Poster
	sim    *Simulator
	cfg    Config
	pilot  func() bool
	logger *slog.Logger
}

// NewRunner creates a Runner. pilot is sampled per run.
func NewRunner(
	store Store,
	poster Poster,
	sim *Simulator,
	cfg Config,
	pilot func() bool,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		store:  store,
		poster: poster,
		sim:    sim,
		cfg:    cfg.Normalize(),
		pilot:  pilot,
		logger: logger.With("system", "autopost"),
	}
}

// Run executes one auto-post attempt for a document. Ineligibility and
// external write failures are normal outcomes captured in the result, not
// errors; the only errors returned are persistence failures, including the
// benign status-conflict no-op.
func (r *Runner) Run(ctx context.Context, input RunInput) (*Result, error) {
	decision := Evaluate(input.Snapshot, r.cfg)
	result := &Result{
		Eligible:  decision.Eligible,
		Reason:    decision.Reason,
		Timestamp: time.Now().UTC(),
	}

	if !decision.Eligible {
		event := workflow.Event{
			Timestamp: time.Now().UTC(),
			Stage:     Stage,
			Action:    "eligibility",
			Outcome:   workflow.OutcomeBlocked,
			Detail:    decision.Reason,
		}
		if err := r.store.AppendEvent(ctx, input.DocumentID, event); err != nil {
			return nil, fmt.Errorf("record ineligibility: %w", err)
		}

		r.logger.InfoContext(
			ctx, "auto-post not eligible",
			"document_id", input.DocumentID,
			"reason", decision.Reason,
		)
		return result, nil
	}

	if r.pilot() {
		return r.simulate(ctx, input, result)
	}

	return r.post(ctx, input, result)
}

// Post runs the direct write path: the eligibility checklist is bypassed,
// but the persistence discipline is the same as the orchestrated run. The
// posting axis is claimed before the external call, so a document that
// already posted refuses with a status conflict, and every outcome lands
// in the audit trail. In pilot mode the write refuses with ErrWriteBlocked
// and the refusal itself is recorded.
func (r *Runner) Post(ctx context.Context, input RunInput) (*Result, error) {
	result := &Result{
		Eligible:  true,
		Reason:    "direct post requested",
		Timestamp: time.Now().UTC(),
	}

	if r.pilot() {
		event := workflow.Event{
			Timestamp: time.Now().UTC(),
			Stage:     Stage,
			Action:    "direct_post",
			Outcome:   workflow.OutcomeBlocked,
			Detail:    "pilot mode blocks external writes",
		}
		if err := r.store.AppendEvent(ctx, input.DocumentID, event); err != nil {
			return nil, fmt.Errorf("record blocked post: %w", err)
		}

		r.logger.InfoContext(
			ctx, "direct post blocked by pilot mode",
			"document_id", input.DocumentID,
		)
		return nil, ErrWriteBlocked
	}

	return r.post(ctx, input, result)
}

// simulate records a deterministic simulated outcome. The posting axis is
// untouched: a simulation never produces a posted document.
func (r *Runner) simulate(ctx context.Context, input RunInput, result *Result) (*Result, error) {
	sim := r.sim.Simulate(input.DocumentID, SimCreatePurchaseInvoice, input.Snapshot)
	result.Attempted = true
	result.Simulation = &sim

	event := workflow.Event{
		Timestamp:   time.Now().UTC(),
		Stage:       Stage,
		Action:      "simulate_post",
		Outcome:     workflow.OutcomeSuccess,
		Detail:      fmt.Sprintf("simulated %s", sim.Type),
		Simulated:   true,
		SimulatedID: sim.SimulatedID,
	}
	if err := r.store.AppendEvent(ctx, input.DocumentID, event); err != nil {
		return nil, fmt.Errorf("record simulation: %w", err)
	}

	r.logger.InfoContext(
		ctx, "auto-post simulated",
		"document_id", input.DocumentID,
		"simulated_id", sim.SimulatedID,
	)
	return result, nil
}

func (r *Runner) post(ctx context.Context, input RunInput, result *Result) (*Result, error) {
	if err := r.store.BeginAutoPost(ctx, input.DocumentID, input.WorkflowStatus); err != nil {
		return nil, fmt.Errorf("begin auto-post: %w", err)
	}
	result.Attempted = true

	post, err := r.poster.CreatePurchaseInvoice(ctx, input.Invoice)
	if err != nil || post == nil || !post.Success {
		errText := postError(post, err)
		result.Error = errText

		if err := r.store.CompleteAutoPost(ctx, input.DocumentID, PostingOutcome{
			Status: workflow.PostingFailed,
			Error:  errText,
		}); err != nil {
			return nil, fmt.Errorf("record post failure: %w", err)
		}

		event := workflow.Event{
			Timestamp: time.Now().UTC(),
			Stage:     Stage,
			Action:    "create_purchase_invoice",
			Outcome:   workflow.OutcomeFailure,
			Detail:    errText,
		}
		if err := r.store.AppendEvent(ctx, input.DocumentID, event); err != nil {
			return nil, fmt.Errorf("record post failure event: %w", err)
		}

		r.logger.WarnContext(
			ctx, "auto-post failed",
			"document_id", input.DocumentID,
			"error", errText,
		)
		return result, nil
	}

	result.Success = true
	result.BCDocumentID = post.BCDocumentID
	result.BCDocumentNumber = post.BCDocumentNumber

	r.writeback(ctx, input, post)

	if err := r.store.CompleteAutoPost(ctx, input.DocumentID, PostingOutcome{
		Status:           workflow.PostingPosted,
		BCDocumentID:     post.BCDocumentID,
		BCDocumentNumber: post.BCDocumentNumber,
		Success:          true,
	}); err != nil {
		return nil, fmt.Errorf("record post success: %w", err)
	}

	event := workflow.Event{
		Timestamp: time.Now().UTC(),
		Stage:     Stage,
		Action:    "create_purchase_invoice",
		Outcome:   workflow.OutcomeSuccess,
		Detail:    fmt.Sprintf("posted as %s", post.BCDocumentNumber),
	}
	if err := r.store.AppendEvent(ctx, input.DocumentID, event); err != nil {
		return nil, fmt.Errorf("record post success event: %w", err)
	}

	r.logger.InfoContext(
		ctx, "auto-post succeeded",
		"document_id", input.DocumentID,
		"bc_document_number", post.BCDocumentNumber,
	)
	return result, nil
}

// writeback attaches the stored document link to the posted invoice. It is
// best-effort: failure is recorded and never reverts the posting success.
func (r *Runner) writeback(ctx context.Context, input RunInput, post *PostResult) {
	if input.StorageURL == "" {
		return
	}

	err := r.poster.UpdatePurchaseInvoiceLink(
		ctx,
		post.BCDocumentID,
		input.StorageURL,
		post.BCDocumentNumber,
		input.UploadedBy,
	)
	if err == nil {
		return
	}

	r.logger.WarnContext(
		ctx, "link writeback failed",
		"document_id", input.DocumentID,
		"bc_document_id", post.BCDocumentID,
		"error", err,
	)

	event := workflow.Event{
		Timestamp: time.Now().UTC(),
		Stage:     Stage,
		Action:    "update_invoice_link",
		Outcome:   workflow.OutcomeFailure,
		Detail:    fmt.Sprintf("writeback failed: %v", err),
	}
	if appendErr := r.store.AppendEvent(ctx, input.DocumentID, event); appendErr != nil {
		r.logger.ErrorContext(
			ctx, "writeback event append failed",
			"document_id", input.DocumentID,
			"error", appendErr,
		)
	}
}

func postError(post *PostResult, err error) string {
	if err != nil {
		return err.Error()
	}
	if post != nil && post.Error != "" {
		return post.Error
	}
	return "accounting system rejected the post"
}
