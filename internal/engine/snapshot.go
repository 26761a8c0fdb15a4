package engine

import (
	"github.com/factorhq/factor/internal/autopost"
	"github.com/factorhq/factor/internal/documents"
	"github.com/factorhq/factor/internal/extraction"
)

// snapshotFrom builds the immutable eligibility view of a document from its
// resolved extraction fields.
func snapshotFrom(doc *documents.Document) autopost.Snapshot {
	resolve := func(field string) string {
		r := doc.Extraction.Resolve(field)
		if !r.Present() {
			return ""
		}
		return r.Value
	}

	return autopost.Snapshot{
		DocType:       doc.DocType,
		Confidence:    doc.ClassificationConfidence,
		InvoiceNumber: resolve(extraction.FieldInvoiceNumber),
		InvoiceDate:   resolve(extraction.FieldInvoiceDate),
		Amount:        resolve(extraction.FieldAmount),
		VendorBCID:    doc.VendorBCID,
		StorageURL:    doc.StorageURL,
		PostingStatus: doc.PostingStatus,
	}
}

// invoiceFrom builds the posting payload from a document's resolved fields.
func invoiceFrom(doc *documents.Document) autopost.InvoiceData {
	resolved := doc.Extraction.ResolveAll()
	value := func(field string) string {
		r := resolved[field]
		if !r.Present() {
			return ""
		}
		return r.Value
	}

	return autopost.InvoiceData{
		VendorBCID:    doc.VendorBCID,
		InvoiceNumber: value(extraction.FieldInvoiceNumber),
		InvoiceDate:   value(extraction.FieldInvoiceDate),
		Amount:        value(extraction.FieldAmount),
		PONumber:      value(extraction.FieldPONumber),
		DueDate:       value(extraction.FieldDueDate),
		LocationCode:  doc.LocationCode,
	}
}
