package engine

import (
	"net/http"
	"testing"

	"github.com/factorhq/factor/internal/autopost"
	"github.com/factorhq/factor/internal/classification"
	"github.com/factorhq/factor/internal/documents"
	"github.com/factorhq/factor/internal/extraction"
	"github.com/factorhq/factor/internal/workflow"
)

func testDocument() *documents.Document {
	set := extraction.CandidateSet{}
	set.MergeAI(map[string]string{
		extraction.FieldInvoiceNumber: "INV-001",
		extraction.FieldInvoiceDate:   "2026-03-15",
		extraction.FieldAmount:        "1500.00",
		extraction.FieldPONumber:      "PO-77",
	}, 0.92)

	return &documents.Document{
		DocType:                  classification.TypeAPInvoice,
		ClassificationConfidence: 0.92,
		Extraction:               set,
		VendorBCID:               "V00042",
		StorageURL:               "https://store.example.com/doc.pdf",
		LocationCode:             "MAIN",
		PostingStatus:            workflow.PostingNone,
	}
}

func TestSnapshotFrom(t *testing.T) {
	got := snapshotFrom(testDocument())

	want := autopost.Snapshot{
		DocType:       classification.TypeAPInvoice,
		Confidence:    0.92,
		InvoiceNumber: "INV-001",
		InvoiceDate:   "2026-03-15",
		Amount:        "1500.00",
		VendorBCID:    "V00042",
		StorageURL:    "https://store.example.com/doc.pdf",
		PostingStatus: workflow.PostingNone,
	}
	if got != want {
		t.Errorf("snapshotFrom = %+v, want %+v", got, want)
	}
}

func TestSnapshotFromCorrectedWins(t *testing.T) {
	doc := testDocument()
	doc.Extraction.Correct(extraction.FieldAmount, "1750.00")

	got := snapshotFrom(doc)
	if got.Amount != "1750.00" {
		t.Errorf("Amount = %q, corrections should flow into the snapshot", got.Amount)
	}
}

func TestSnapshotFromMissingFieldsEmpty(t *testing.T) {
	doc := testDocument()
	doc.Extraction = extraction.CandidateSet{}

	got := snapshotFrom(doc)
	if got.InvoiceNumber != "" || got.InvoiceDate != "" || got.Amount != "" {
		t.Errorf("unresolved fields should be empty strings, got %+v", got)
	}
}

func TestInvoiceFrom(t *testing.T) {
	got := invoiceFrom(testDocument())

	if got.VendorBCID != "V00042" {
		t.Errorf("VendorBCID = %q", got.VendorBCID)
	}
	if got.InvoiceNumber != "INV-001" || got.Amount != "1500.00" {
		t.Errorf("invoice fields = %+v", got)
	}
	if got.PONumber != "PO-77" {
		t.Errorf("PONumber = %q, want PO-77", got.PONumber)
	}
	if got.DueDate != "" {
		t.Errorf("DueDate = %q, want empty for unresolved field", got.DueDate)
	}
	if got.LocationCode != "MAIN" {
		t.Errorf("LocationCode = %q, want MAIN", got.LocationCode)
	}
}

func TestMissingFields(t *testing.T) {
	doc := testDocument()
	if got := missingFields(doc); len(got) != 0 {
		t.Errorf("missingFields = %v, want none", got)
	}

	doc.Extraction = extraction.CandidateSet{}
	got := missingFields(doc)
	if len(got) != 3 {
		t.Errorf("missingFields = %v, want invoice_number, invoice_date, amount", got)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not processable", ErrNotProcessable, http.StatusUnprocessableEntity},
		{"write blocked", autopost.ErrWriteBlocked, http.StatusConflict},
		{"delegates to documents", documents.ErrNotFound, http.StatusNotFound},
		{"status conflict", documents.ErrStatusConflict, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
