package documents

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/factorhq/factor/internal/autopost"
	"github.com/factorhq/factor/internal/classification"
	"github.com/factorhq/factor/internal/extraction"
	"github.com/factorhq/factor/internal/workflow"
	"github.com/factorhq/factor/pkg/pagination"
	"github.com/factorhq/factor/pkg/query"
	"github.com/factorhq/factor/pkg/repository"
	"github.com/factorhq/factor/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
	pilotPhase string
}

// New creates a document repository implementing the System interface.
// pilotPhase is stamped onto every document at ingestion and never changes
// for the lifetime of the record.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
	pilotPhase string,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
		pilotPhase: pilotPhase,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Filename", "Category", "VendorBCID")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	id := uuid.New()
	hash := contentHash(cmd.Data)
	key := buildStorageKey(id, sanitizeFilename(cmd.Filename))
	now := time.Now().UTC()

	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload document blob: %w", err)
	}

	captured := workflow.Event{
		Timestamp: now,
		Stage:     "capture",
		Action:    "ingest",
		Outcome:   workflow.OutcomeSuccess,
		Detail:    fmt.Sprintf("captured %s", cmd.Filename),
		ToStatus:  workflow.Initial,
	}

	q := `
		INSERT INTO documents(
			id, content_hash, filename, folder, content_type, size_bytes,
			page_count, storage_key, storage_url, category, extraction,
			workflow_status, bc_posting_status, retry_counts, location_code,
			pilot_phase, pilot_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	insertArgs := []any{
		id,
		hash,
		cmd.Filename,
		cmd.Folder,
		cmd.ContentType,
		int64(len(cmd.Data)),
		cmd.PageCount,
		key,
		r.storage.URL(key),
		cmd.CategoryHint,
		[]byte(`{}`),
		workflow.Initial,
		workflow.PostingNone,
		[]byte(`{}`),
		cmd.LocationCode,
		r.pilotPhase,
		now,
	}

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx, q, insertArgs...); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, insertEvent(ctx, tx, id, captured)
	})

	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	doc, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	r.logger.Info(
		"document ingested",
		"id", doc.ID,
		"filename", doc.Filename,
		"content_hash", doc.ContentHash,
		"pilot_phase", doc.PilotPhase,
	)
	return doc, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx, "DELETE FROM document_events WHERE document_id = $1", id); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, repository.ExecExpectOne(ctx, tx, "DELETE FROM documents WHERE id = $1", id)
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if delErr := r.storage.Delete(ctx, doc.StorageKey); delErr != nil {
		r.logger.Warn(
			"blob delete failed after DB delete",
			"key", doc.StorageKey,
			"error", delErr,
		)
	}

	r.logger.Info("document deleted", "id", id)
	return nil
}

func (r *repo) Events(ctx context.Context, id uuid.UUID) ([]Event, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE e.document_id = $1 ORDER BY e.id ASC",
		eventProjection.Columns(),
		eventProjection.From(),
	)

	events, err := repository.QueryMany(ctx, r.db, q, []any{id}, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("query document events: %w", err)
	}
	return events, nil
}

func (r *repo) AppendEvent(ctx context.Context, id uuid.UUID, event workflow.Event) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, insertEvent(ctx, tx, id, event)
	})
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (r *repo) Transition(
	ctx context.Context,
	id uuid.UUID,
	from, to workflow.Status,
	stage, detail string,
) (*Document, error) {
	if err := from.Validate(to); err != nil {
		r.logger.Warn(
			"invalid transition rejected",
			"id", id,
			"from", from,
			"to", to,
			"stage", stage,
		)

		rejection := workflow.NewTransitionEvent(stage, from, to, workflow.OutcomeFailure, err.Error())
		if appendErr := r.AppendEvent(ctx, id, rejection); appendErr != nil {
			r.logger.Error("rejection event append failed", "id", id, "error", appendErr)
		}
		return nil, err
	}

	return r.applyTransition(ctx, id, from, to, stage, detail)
}

func (r *repo) ManualTransition(
	ctx context.Context,
	id uuid.UUID,
	cmd TransitionCommand,
) (*Document, error) {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	from := doc.WorkflowStatus
	if !from.CanManualTransition(cmd.To) {
		return nil, fmt.Errorf("%w: %s -> %s", workflow.ErrInvalidTransition, from, cmd.To)
	}

	detail := cmd.Detail
	if cmd.By != "" {
		detail = fmt.Sprintf("%s (by %s)", detail, cmd.By)
	}

	return r.applyTransition(ctx, id, from, cmd.To, "manual", detail)
}

// applyTransition performs the compare-and-set status update and appends the
// transition event in the same transaction. Zero affected rows means the
// status moved underneath the caller: a benign conflict, not an error state.
func (r *repo) applyTransition(
	ctx context.Context,
	id uuid.UUID,
	from, to workflow.Status,
	stage, detail string,
) (*Document, error) {
	event := workflow.NewTransitionEvent(stage, from, to, workflow.OutcomeSuccess, detail)

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		result, err := tx.ExecContext(
			ctx,
			"UPDATE documents SET workflow_status = $1, updated_at = now() WHERE id = $2 AND workflow_status = $3",
			to, id, from,
		)
		if err != nil {
			return struct{}{}, err
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return struct{}{}, err
		}
		if rows == 0 {
			return struct{}{}, ErrStatusConflict
		}

		return struct{}{}, insertEvent(ctx, tx, id, event)
	})

	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, ErrStatusConflict
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"workflow transition",
		"id", id,
		"from", from,
		"to", to,
		"stage", stage,
	)
	return r.Find(ctx, id)
}

func (r *repo) SetClassification(
	ctx context.Context,
	id uuid.UUID,
	expected workflow.Status,
	result classification.Result,
	candidates extraction.CandidateSet,
) error {
	extractionJSON, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("marshal extraction: %w", err)
	}

	q := `
		UPDATE documents
		SET doc_type = $1,
			category = $2,
			classification_confidence = $3,
			classification_method = $4,
			extraction = $5,
			updated_at = now()
		WHERE id = $6 AND workflow_status = $7`

	return r.execConditional(ctx, q,
		result.Type,
		result.Category,
		result.Confidence,
		result.Method,
		extractionJSON,
		id,
		expected,
	)
}

func (r *repo) SetVendorMatch(ctx context.Context, id uuid.UUID, vendorBCID string) error {
	return r.execConditional(ctx,
		"UPDATE documents SET vendor_bc_id = $1, updated_at = now() WHERE id = $2",
		vendorBCID, id,
	)
}

func (r *repo) SetRetryCount(ctx context.Context, id uuid.UUID, stage string, count int) error {
	return r.execConditional(ctx,
		`UPDATE documents
		 SET retry_counts = jsonb_set(retry_counts, ARRAY[$1::text], to_jsonb($2::int), true),
			 updated_at = now()
		 WHERE id = $3`,
		stage, count, id,
	)
}

func (r *repo) Correct(ctx context.Context, id uuid.UUID, cmd CorrectCommand) (*Document, error) {
	if !slices.Contains(extraction.Fields, cmd.Field) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, cmd.Field)
	}

	doc, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	candidates := doc.Extraction
	if candidates == nil {
		candidates = extraction.CandidateSet{}
	}
	candidates.Correct(cmd.Field, cmd.Value)

	extractionJSON, err := json.Marshal(candidates)
	if err != nil {
		return nil, fmt.Errorf("marshal extraction: %w", err)
	}

	event := workflow.Event{
		Timestamp: time.Now().UTC(),
		Stage:     "correction",
		Action:    "correct_field",
		Outcome:   workflow.OutcomeSuccess,
		Detail:    fmt.Sprintf("%s corrected by %s", cmd.Field, cmd.CorrectedBy),
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		result, err := tx.ExecContext(
			ctx,
			"UPDATE documents SET extraction = $1, updated_at = now() WHERE id = $2 AND workflow_status = $3",
			extractionJSON, id, doc.WorkflowStatus,
		)
		if err != nil {
			return struct{}{}, err
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return struct{}{}, err
		}
		if rows == 0 {
			return struct{}{}, ErrStatusConflict
		}

		return struct{}{}, insertEvent(ctx, tx, id, event)
	})

	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, ErrStatusConflict
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("field corrected", "id", id, "field", cmd.Field)
	return r.Find(ctx, id)
}

func (r *repo) BeginAutoPost(ctx context.Context, id uuid.UUID, expected workflow.Status) error {
	q := `
		UPDATE documents
		SET bc_posting_status = $1,
			auto_post_attempted = true,
			updated_at = now()
		WHERE id = $2
			AND workflow_status = $3
			AND bc_posting_status IN ($4, $5)`

	return r.execConditional(ctx, q,
		workflow.PostingInProgress,
		id,
		expected,
		workflow.PostingNone,
		workflow.PostingFailed,
	)
}

func (r *repo) CompleteAutoPost(
	ctx context.Context,
	id uuid.UUID,
	outcome autopost.PostingOutcome,
) error {
	if err := validateOutcome(outcome); err != nil {
		return err
	}

	q := `
		UPDATE documents
		SET bc_posting_status = $1,
			bc_document_id = NULLIF($2, ''),
			bc_document_number = NULLIF($3, ''),
			bc_posting_error = NULLIF($4, ''),
			auto_post_success = $5,
			updated_at = now()
		WHERE id = $6 AND bc_posting_status = $7`

	return r.execConditional(ctx, q,
		outcome.Status,
		outcome.BCDocumentID,
		outcome.BCDocumentNumber,
		outcome.Error,
		outcome.Success,
		id,
		workflow.PostingInProgress,
	)
}

// validateOutcome guards the posting invariant: posted requires a BC
// document id and a successful attempt.
func validateOutcome(outcome autopost.PostingOutcome) error {
	if err := workflow.PostingInProgress.Validate(outcome.Status); err != nil {
		return err
	}
	if outcome.Status == workflow.PostingPosted && (outcome.BCDocumentID == "" || !outcome.Success) {
		return fmt.Errorf("%w: posted requires bc_document_id and success", workflow.ErrInvalidTransition)
	}
	return nil
}

func (r *repo) execConditional(ctx context.Context, q string, args ...any) error {
	result, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrStatusConflict
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, id uuid.UUID, event workflow.Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = tx.ExecContext(
		ctx,
		"INSERT INTO document_events(document_id, event) VALUES ($1, $2)",
		id, eventJSON,
	)
	return err
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func buildStorageKey(id uuid.UUID, filename string) string {
	return fmt.Sprintf("documents/%s/%s", id, filename)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" {
		name = "document"
	}
	return url.PathEscape(name)
}
