package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/factorhq/factor/internal/autopost"
	"github.com/factorhq/factor/internal/classification"
	"github.com/factorhq/factor/internal/documents"
	"github.com/factorhq/factor/internal/extraction"
	"github.com/factorhq/factor/internal/workflow"
)

// Process advances one document through the pipeline from its current
// status. New documents run the full path; documents in the correction loop
// re-enter validation. A status-conflict from a concurrent update is
// returned as-is for the caller to re-fetch and retry.
func Process(ctx context.Context, rt *Runtime, id uuid.UUID) (*documents.Document, error) {
	doc, err := rt.Documents.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	switch doc.WorkflowStatus {
	case workflow.StatusCaptured:
		return processNew(ctx, rt, doc)
	case workflow.StatusVendorPending:
		return resumeVendorPending(ctx, rt, doc)
	case workflow.StatusBCValidationPending:
		return validate(ctx, rt, doc)
	case workflow.StatusBCValidationFailed, workflow.StatusDataCorrectionPending:
		return revalidate(ctx, rt, doc)
	case workflow.StatusReviewPending:
		return tryAutoPost(ctx, rt, doc)
	default:
		return doc, fmt.Errorf("%w: %s", ErrNotProcessable, doc.WorkflowStatus)
	}
}

func processNew(ctx context.Context, rt *Runtime, doc *documents.Document) (*documents.Document, error) {
	content, err := downloadContent(ctx, rt, doc)
	if err != nil {
		return nil, err
	}

	result := rt.Gate.Classify(ctx, classification.Input{
		Content:      content,
		Filename:     doc.Filename,
		Folder:       doc.Folder,
		CategoryHint: doc.Category,
	})

	candidates := doc.Extraction
	if candidates == nil {
		candidates = extraction.CandidateSet{}
	}
	candidates.MergeAI(result.ExtractedFields, result.Confidence)

	if err := rt.Documents.SetClassification(
		ctx, doc.ID, workflow.StatusCaptured, result, candidates,
	); err != nil {
		return nil, err
	}

	detail := fmt.Sprintf("%s via %s (%.2f)", result.Type, result.Method, result.Confidence)
	if result.Error != "" {
		detail = fmt.Sprintf("%s; %s", detail, result.Error)
	}

	doc, err = rt.Documents.Transition(
		ctx, doc.ID,
		workflow.StatusCaptured, workflow.StatusClassified,
		"classification", detail,
	)
	if err != nil {
		return nil, err
	}

	resolved := doc.Extraction.ResolveAll()
	present := 0
	for _, r := range resolved {
		if r.Present() {
			present++
		}
	}

	doc, err = rt.Documents.Transition(
		ctx, doc.ID,
		workflow.StatusClassified, workflow.StatusExtracted,
		"extraction", fmt.Sprintf("%d of %d fields resolved", present, len(extraction.Fields)),
	)
	if err != nil {
		return nil, err
	}

	return matchVendor(ctx, rt, doc, workflow.StatusExtracted)
}

// matchVendor resolves the vendor to a Business Central identifier via the
// CRM context provider. An unmatched vendor parks the document in
// vendor_pending for manual resolution.
func matchVendor(
	ctx context.Context,
	rt *Runtime,
	doc *documents.Document,
	from workflow.Status,
) (*documents.Document, error) {
	if doc.VendorBCID == "" {
		vendorCtx, err := rt.CRM.GetContext(ctx, doc)
		if err != nil {
			rt.Logger.WarnContext(
				ctx, "crm context lookup failed",
				"document_id", doc.ID,
				"error", err,
			)
		}

		if vendorCtx != nil && vendorCtx.VendorBCID != "" {
			if err := rt.Documents.SetVendorMatch(ctx, doc.ID, vendorCtx.VendorBCID); err != nil {
				return nil, err
			}
			doc.VendorBCID = vendorCtx.VendorBCID
		}
	}

	if doc.VendorBCID == "" {
		return failVendorMatch(ctx, rt, doc, from)
	}

	doc, err := rt.Documents.Transition(
		ctx, doc.ID,
		from, workflow.StatusBCValidationPending,
		"vendor_match", fmt.Sprintf("matched vendor %s", doc.VendorBCID),
	)
	if err != nil {
		return nil, err
	}

	return validate(ctx, rt, doc)
}

func resumeVendorPending(ctx context.Context, rt *Runtime, doc *documents.Document) (*documents.Document, error) {
	return matchVendor(ctx, rt, doc, workflow.StatusVendorPending)
}

// failVendorMatch counts an unmatched vendor against the vendor-match
// retry maximum. Below the maximum the document parks in vendor_pending;
// at the maximum it escalates and automation stops.
func failVendorMatch(
	ctx context.Context,
	rt *Runtime,
	doc *documents.Document,
	from workflow.Status,
) (*documents.Document, error) {
	decision, err := rt.Retry.OnFailure(workflow.StageVendorMatch, doc.RetryCount(workflow.StageVendorMatch))
	if err != nil {
		return nil, err
	}

	if err := rt.Documents.SetRetryCount(
		ctx, doc.ID, workflow.StageVendorMatch, decision.Count,
	); err != nil {
		return nil, err
	}

	detail := fmt.Sprintf("no Business Central vendor match; attempt %d of %d", decision.Count, decision.Max)

	if decision.Escalate {
		rt.Logger.WarnContext(
			ctx, "vendor match retries exhausted, escalating",
			"document_id", doc.ID,
			"attempts", decision.Count,
			"max", decision.Max,
		)
		return rt.Documents.Transition(
			ctx, doc.ID,
			from, workflow.StatusEscalated,
			"escalation", detail,
		)
	}

	if from == workflow.StatusVendorPending {
		// Already parked; record the failed attempt without a transition.
		event := workflow.Event{
			Timestamp: time.Now().UTC(),
			Stage:     workflow.StageVendorMatch,
			Action:    "vendor_match",
			Outcome:   workflow.OutcomeFailure,
			Detail:    detail,
		}
		if err := rt.Documents.AppendEvent(ctx, doc.ID, event); err != nil {
			return nil, err
		}
		return rt.Documents.Find(ctx, doc.ID)
	}

	return rt.Documents.Transition(
		ctx, doc.ID,
		from, workflow.StatusVendorPending,
		workflow.StageVendorMatch, detail,
	)
}

// revalidate re-enters the validation stage from the correction loop.
func revalidate(ctx context.Context, rt *Runtime, doc *documents.Document) (*documents.Document, error) {
	doc, err := rt.Documents.Transition(
		ctx, doc.ID,
		doc.WorkflowStatus, workflow.StatusBCValidationPending,
		workflow.StageBCValidation, "re-entering validation after correction",
	)
	if err != nil {
		return nil, err
	}
	return validate(ctx, rt, doc)
}

// validate checks location code and required posting fields. Missing
// fields count against the extraction retry maximum, malformed values
// against the validation maximum: below the maximum the document returns
// to correction, at the maximum it escalates and automation stops.
func validate(ctx context.Context, rt *Runtime, doc *documents.Document) (*documents.Document, error) {
	if err := rt.Retry.ValidateLocation(doc.LocationCode); err != nil {
		return rt.Documents.Transition(
			ctx, doc.ID,
			doc.WorkflowStatus, workflow.StatusEscalated,
			"escalation", err.Error(),
		)
	}

	if missing := missingFields(doc); len(missing) > 0 {
		return failStage(ctx, rt, doc, workflow.StageExtraction, fmt.Sprintf("unresolved fields: %v", missing))
	}

	if malformed := malformedFields(doc); len(malformed) > 0 {
		return failStage(ctx, rt, doc, workflow.StageBCValidation, fmt.Sprintf("invalid field values: %v", malformed))
	}

	doc, err := rt.Documents.Transition(
		ctx, doc.ID,
		doc.WorkflowStatus, workflow.StatusReviewPending,
		workflow.StageBCValidation, "validation passed",
	)
	if err != nil {
		return nil, err
	}

	return tryAutoPost(ctx, rt, doc)
}

func failStage(
	ctx context.Context,
	rt *Runtime,
	doc *documents.Document,
	stage, detail string,
) (*documents.Document, error) {
	decision, err := rt.Retry.OnFailure(stage, doc.RetryCount(stage))
	if err != nil {
		return nil, err
	}

	if err := rt.Documents.SetRetryCount(ctx, doc.ID, stage, decision.Count); err != nil {
		return nil, err
	}

	if decision.Escalate {
		rt.Logger.WarnContext(
			ctx, "stage retries exhausted, escalating",
			"document_id", doc.ID,
			"stage", stage,
			"attempts", decision.Count,
			"max", decision.Max,
		)
		return rt.Documents.Transition(
			ctx, doc.ID,
			doc.WorkflowStatus, workflow.StatusEscalated,
			"escalation", fmt.Sprintf("%s; attempt %d of %d", detail, decision.Count, decision.Max),
		)
	}

	return rt.Documents.Transition(
		ctx, doc.ID,
		doc.WorkflowStatus, decision.NextState,
		stage, fmt.Sprintf("%s; attempt %d of %d", detail, decision.Count, decision.Max),
	)
}

// tryAutoPost runs the gated auto-post path for AP invoices. Non-AP
// documents and ineligible documents stay in review for manual handling.
func tryAutoPost(ctx context.Context, rt *Runtime, doc *documents.Document) (*documents.Document, error) {
	if !doc.DocType.IsAPInvoice() {
		return doc, nil
	}

	result, err := rt.Runner.Run(ctx, autopost.RunInput{
		DocumentID:     doc.ID,
		WorkflowStatus: doc.WorkflowStatus,
		Snapshot:       snapshotFrom(doc),
		Invoice:        invoiceFrom(doc),
		StorageURL:     doc.StorageURL,
		UploadedBy:     "factor",
	})
	if err != nil {
		if errors.Is(err, documents.ErrStatusConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("auto-post run: %w", err)
	}

	rt.Logger.InfoContext(
		ctx, "auto-post completed",
		"document_id", doc.ID,
		"eligible", result.Eligible,
		"attempted", result.Attempted,
		"success", result.Success,
		"reason", result.Reason,
	)

	return rt.Documents.Find(ctx, doc.ID)
}

func missingFields(doc *documents.Document) []string {
	required := []string{
		extraction.FieldInvoiceNumber,
		extraction.FieldInvoiceDate,
		extraction.FieldAmount,
	}

	var missing []string
	for _, field := range required {
		if !doc.Extraction.Resolve(field).Present() {
			missing = append(missing, field)
		}
	}
	return missing
}

// malformedFields checks that resolved values survive conversion to the
// accounting system's formats. A value the poster would reject fails here
// first, where the correction loop can still fix it.
func malformedFields(doc *documents.Document) []string {
	var malformed []string

	amount := doc.Extraction.Resolve(extraction.FieldAmount).Value
	if parsed, err := strconv.ParseFloat(amount, 64); err != nil || parsed <= 0 {
		malformed = append(malformed, fmt.Sprintf("%s %q", extraction.FieldAmount, amount))
	}

	date := doc.Extraction.Resolve(extraction.FieldInvoiceDate).Value
	if _, err := time.Parse("2006-01-02", date); err != nil {
		malformed = append(malformed, fmt.Sprintf("%s %q", extraction.FieldInvoiceDate, date))
	}

	return malformed
}

func downloadContent(ctx context.Context, rt *Runtime, doc *documents.Document) ([]byte, error) {
	blob, err := rt.Storage.Download(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("download document content: %w", err)
	}
	defer blob.Close()

	content, err := io.ReadAll(blob)
	if err != nil {
		return nil, fmt.Errorf("read document content: %w", err)
	}
	return content, nil
}
