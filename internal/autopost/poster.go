package autopost

import "context"

// InvoiceData carries the resolved fields sent to the accounting system.
type InvoiceData struct {
	VendorBCID    string `json:"vendor_bc_id"`
	InvoiceNumber string `json:"invoice_number"`
	InvoiceDate   string `json:"invoice_date"`
	Amount        string `json:"amount"`
	PONumber      string `json:"po_number,omitempty"`
	DueDate       string `json:"due_date,omitempty"`
	LocationCode  string `json:"location_code,omitempty"`
}

// PostResult is the accounting system's response to an invoice post.
type PostResult struct {
	Success          bool   `json:"success"`
	BCDocumentID     string `json:"bc_document_id,omitempty"`
	BCDocumentNumber string `json:"bc_document_number,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Poster is the external accounting system contract. CreatePurchaseInvoice
// is the primary write; UpdatePurchaseInvoiceLink is the best-effort
// writeback whose failure never reverts a successful post.
// GetPurchaseInvoice is a read-only lookup and is never blocked, even in
// pilot mode.
type Poster interface {
	CreatePurchaseInvoice(ctx context.Context, data InvoiceData) (*PostResult, error)
	UpdatePurchaseInvoiceLink(ctx context.Context, bcDocumentID, url, documentNo, uploadedBy string) error
	GetPurchaseInvoice(ctx context.Context, bcDocumentID string) (*PostResult, error)
}

// GuardedPoster wraps a Poster with the pilot-mode switch. When pilot mode
// is active every write refuses with ErrWriteBlocked; reads pass through.
// The orchestrated auto-post path substitutes simulation instead of calling
// writes at all, so the guard exists for direct write APIs.
type GuardedPoster struct {
	inner Poster
	pilot func() bool
}

// NewGuardedPoster wraps poster. pilot is sampled on every call so a
// process-wide flag flip takes effect immediately.
func NewGuardedPoster(poster Poster, pilot func() bool) *GuardedPoster {
	return &GuardedPoster{inner: poster, pilot: pilot}
}

func (g *GuardedPoster) CreatePurchaseInvoice(ctx context.Context, data InvoiceData) (*PostResult, error) {
	if g.pilot() {
		return nil, ErrWriteBlocked
	}
	return g.inner.CreatePurchaseInvoice(ctx, data)
}

func (g *GuardedPoster) UpdatePurchaseInvoiceLink(
	ctx context.Context,
	bcDocumentID, url, documentNo, uploadedBy string,
) error {
	if g.pilot() {
		return ErrWriteBlocked
	}
	return g.inner.UpdatePurchaseInvoiceLink(ctx, bcDocumentID, url, documentNo, uploadedBy)
}

func (g *GuardedPoster) GetPurchaseInvoice(ctx context.Context, bcDocumentID string) (*PostResult, error) {
	return g.inner.GetPurchaseInvoice(ctx, bcDocumentID)
}
