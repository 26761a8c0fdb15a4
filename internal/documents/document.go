// Package documents implements the document record domain for Factor.
// It owns the persisted document, its append-only history, and every status
// update, all conditioned on the document's last-known workflow status.
package documents

import (
	"time"

	"github.com/google/uuid"

	"github.com/factorhq/factor/internal/classification"
	"github.com/factorhq/factor/internal/extraction"
	"github.com/factorhq/factor/internal/workflow"
)

// Document is one ingested file and its full workflow state. The workflow
// engine owns it exclusively while processing; between stages it lives in
// Postgres.
type Document struct {
	ID          uuid.UUID `json:"id"`
	ContentHash string    `json:"content_hash"`
	Filename    string    `json:"filename"`
	Folder      string    `json:"folder,omitempty"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	PageCount   *int      `json:"page_count"`
	StorageKey  string    `json:"storage_key"`
	StorageURL  string    `json:"storage_url,omitempty"`

	DocType                  classification.DocType `json:"doc_type"`
	Category                 string                 `json:"category,omitempty"`
	ClassificationConfidence float64                `json:"classification_confidence"`
	ClassificationMethod     classification.Method  `json:"classification_method,omitempty"`

	Extraction extraction.CandidateSet `json:"extraction"`

	WorkflowStatus workflow.Status        `json:"workflow_status"`
	ReviewStatus   string                 `json:"review_status,omitempty"`
	PostingStatus  workflow.PostingStatus `json:"bc_posting_status"`
	RetryCounts    map[string]int         `json:"retry_counts"`
	LocationCode   string                 `json:"location_code,omitempty"`
	VendorBCID     string                 `json:"vendor_bc_id,omitempty"`

	BCDocumentID      *string `json:"bc_document_id"`
	BCDocumentNumber  *string `json:"bc_document_number"`
	BCPostingError    *string `json:"bc_posting_error"`
	AutoPostAttempted bool    `json:"auto_post_attempted"`
	AutoPostSuccess   bool    `json:"auto_post_success"`

	// Pilot fields are stamped at ingestion and never change afterward.
	PilotPhase string    `json:"pilot_phase,omitempty"`
	PilotDate  time.Time `json:"pilot_date"`

	UploadedAt time.Time `json:"uploaded_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RetryCount returns the retry counter for a stage, zero when untracked.
func (d *Document) RetryCount(stage string) int {
	return d.RetryCounts[stage]
}

// Event is a persisted history entry. ID orders events; insertion order is
// causal order and rows are never updated or deleted.
type Event struct {
	ID         int64     `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	workflow.Event
}

// CreateCommand carries the data needed to ingest a new document.
// Data holds the raw file bytes; the content hash is derived from it for
// dedup. PageCount is optional and may be extracted by the caller via
// pdfcpu; nil values are stored as NULL.
type CreateCommand struct {
	Data         []byte
	Filename     string
	Folder       string
	ContentType  string
	CategoryHint string
	LocationCode string
	PageCount    *int
}

// CorrectCommand records a human correction of an extracted field. The
// corrected value takes precedence over every extracted tier.
type CorrectCommand struct {
	Field       string `json:"field"`
	Value       string `json:"value"`
	CorrectedBy string `json:"corrected_by"`
}

// TransitionCommand is a manual status move requested by an operator.
type TransitionCommand struct {
	To     workflow.Status `json:"to"`
	Detail string          `json:"detail,omitempty"`
	By     string          `json:"by"`
}

// BatchResult reports the outcome of a single file within a batch upload.
type BatchResult struct {
	Document *Document `json:"document,omitempty"`
	Filename string    `json:"filename"`
	Error    string    `json:"error,omitempty"`
}
