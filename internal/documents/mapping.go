package documents

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/factorhq/factor/internal/classification"
	"github.com/factorhq/factor/internal/extraction"
	"github.com/factorhq/factor/internal/workflow"
	"github.com/factorhq/factor/pkg/query"
	"github.com/factorhq/factor/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("content_hash", "ContentHash").
	Project("filename", "Filename").
	Project("folder", "Folder").
	Project("content_type", "ContentType").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("storage_key", "StorageKey").
	Project("storage_url", "StorageURL").
	Project("doc_type", "DocType").
	Project("category", "Category").
	Project("classification_confidence", "ClassificationConfidence").
	Project("classification_method", "ClassificationMethod").
	Project("extraction", "Extraction").
	Project("workflow_status", "WorkflowStatus").
	Project("review_status", "ReviewStatus").
	Project("bc_posting_status", "PostingStatus").
	Project("retry_counts", "RetryCounts").
	Project("location_code", "LocationCode").
	Project("vendor_bc_id", "VendorBCID").
	Project("bc_document_id", "BCDocumentID").
	Project("bc_document_number", "BCDocumentNumber").
	Project("bc_posting_error", "BCPostingError").
	Project("auto_post_attempted", "AutoPostAttempted").
	Project("auto_post_success", "AutoPostSuccess").
	Project("pilot_phase", "PilotPhase").
	Project("pilot_date", "PilotDate").
	Project("uploaded_at", "UploadedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "UploadedAt",
	Descending: true,
}

var eventProjection = query.
	NewProjectionMap("public", "document_events", "e").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("event", "Event")

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	WorkflowStatus *workflow.Status        `json:"workflow_status,omitempty"`
	PostingStatus  *workflow.PostingStatus `json:"bc_posting_status,omitempty"`
	DocType        *classification.DocType `json:"doc_type,omitempty"`
	PilotPhase     *string                 `json:"pilot_phase,omitempty"`
	LocationCode   *string                 `json:"location_code,omitempty"`
	ContentHash    *string                 `json:"content_hash,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("WorkflowStatus", f.WorkflowStatus).
		WhereEquals("PostingStatus", f.PostingStatus).
		WhereEquals("DocType", f.DocType).
		WhereEquals("PilotPhase", f.PilotPhase).
		WhereEquals("LocationCode", f.LocationCode).
		WhereEquals("ContentHash", f.ContentHash)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if v := values.Get("workflow_status"); v != "" {
		status := workflow.Status(v)
		f.WorkflowStatus = &status
	}

	if v := values.Get("bc_posting_status"); v != "" {
		status := workflow.PostingStatus(v)
		f.PostingStatus = &status
	}

	if v := values.Get("doc_type"); v != "" {
		docType, _ := classification.ParseDocType(v)
		f.DocType = &docType
	}

	if v := values.Get("pilot_phase"); v != "" {
		f.PilotPhase = &v
	}

	if v := values.Get("location_code"); v != "" {
		f.LocationCode = &v
	}

	if v := values.Get("content_hash"); v != "" {
		f.ContentHash = &v
	}

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	var extractionRaw, retryRaw []byte

	err := s.Scan(
		&d.ID,
		&d.ContentHash,
		&d.Filename,
		&d.Folder,
		&d.ContentType,
		&d.SizeBytes,
		&d.PageCount,
		&d.StorageKey,
		&d.StorageURL,
		&d.DocType,
		&d.Category,
		&d.ClassificationConfidence,
		&d.ClassificationMethod,
		&extractionRaw,
		&d.WorkflowStatus,
		&d.ReviewStatus,
		&d.PostingStatus,
		&retryRaw,
		&d.LocationCode,
		&d.VendorBCID,
		&d.BCDocumentID,
		&d.BCDocumentNumber,
		&d.BCPostingError,
		&d.AutoPostAttempted,
		&d.AutoPostSuccess,
		&d.PilotPhase,
		&d.PilotDate,
		&d.UploadedAt,
		&d.UpdatedAt,
	)

	if err != nil {
		return d, err
	}

	if len(extractionRaw) > 0 {
		if err := json.Unmarshal(extractionRaw, &d.Extraction); err != nil {
			return d, fmt.Errorf("unmarshal extraction: %w", err)
		}
	}
	if d.Extraction == nil {
		d.Extraction = extraction.CandidateSet{}
	}

	if len(retryRaw) > 0 {
		if err := json.Unmarshal(retryRaw, &d.RetryCounts); err != nil {
			return d, fmt.Errorf("unmarshal retry_counts: %w", err)
		}
	}
	if d.RetryCounts == nil {
		d.RetryCounts = map[string]int{}
	}

	return d, nil
}

func scanEvent(s repository.Scanner) (Event, error) {
	var e Event
	var eventRaw []byte

	if err := s.Scan(&e.ID, &e.DocumentID, &eventRaw); err != nil {
		return e, err
	}

	if err := json.Unmarshal(eventRaw, &e.Event); err != nil {
		return e, fmt.Errorf("unmarshal event: %w", err)
	}

	return e, nil
}
