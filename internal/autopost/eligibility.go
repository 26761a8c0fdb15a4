// Package autopost implements the gated auto-post decision pipeline: the
// eligibility checklist, the pilot-mode write guard, the deterministic
// simulation engine, and the orchestrated auto-post run.
package autopost

import (
	"fmt"
	"strconv"

	"github.com/factorhq/factor/internal/classification"
	"github.com/factorhq/factor/internal/workflow"
)

// DefaultThreshold is the minimum effective confidence for auto-posting.
// Deliberately stricter than the classification acceptance threshold.
const DefaultThreshold = 0.90

// Config is the explicit configuration threaded into every evaluation.
type Config struct {
	Enabled   bool
	Threshold float64
}

// Normalize fills a zero threshold with the default.
func (c Config) Normalize() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	return c
}

// Snapshot is the immutable view of a document the gate evaluates. Empty
// strings and unresolved fields are identical: both are absent.
type Snapshot struct {
	DocType       classification.DocType
	Confidence    float64
	InvoiceNumber string
	InvoiceDate   string
	Amount        string
	VendorBCID    string
	StorageURL    string
	PostingStatus workflow.PostingStatus
}

// Decision is the gate's output: eligible plus a machine-readable reason.
type Decision struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason"`
}

// ReasonAllCriteriaMet is the reason reported for an eligible document.
const ReasonAllCriteriaMet = "All criteria met"

// Rejection reasons, one per checklist item.
const (
	ReasonDisabled        = "Auto-post disabled"
	ReasonInvoiceNumber   = "Invoice number missing"
	ReasonInvoiceDate     = "Invoice date missing"
	ReasonAmount          = "Amount missing or zero"
	ReasonVendorUnmatched = "Vendor not matched to Business Central"
	ReasonNoStorageLink   = "No storage link recorded"
	ReasonAlreadyPosted   = "Already posted"
)

// Evaluate runs the ordered eligibility checklist against a snapshot. It is
// a pure function: same snapshot and config always yield the same decision,
// and no side effects occur. The checklist fails fast, so the reported
// reason is always the first unmet condition.
func Evaluate(s Snapshot, cfg Config) Decision {
	cfg = cfg.Normalize()

	if !cfg.Enabled {
		return rejected(ReasonDisabled)
	}
	if !s.DocType.IsAPInvoice() {
		return rejected(fmt.Sprintf("Not an AP invoice (doc_type=%s)", s.DocType))
	}
	if s.Confidence < cfg.Threshold {
		return rejected(fmt.Sprintf(
			"Confidence too low (%.2f < %.2f)", s.Confidence, cfg.Threshold,
		))
	}
	if s.InvoiceNumber == "" {
		return rejected(ReasonInvoiceNumber)
	}
	if s.InvoiceDate == "" {
		return rejected(ReasonInvoiceDate)
	}
	if !amountPresent(s.Amount) {
		return rejected(ReasonAmount)
	}
	if s.VendorBCID == "" {
		return rejected(ReasonVendorUnmatched)
	}
	if s.StorageURL == "" {
		return rejected(ReasonNoStorageLink)
	}
	if s.PostingStatus == workflow.PostingPosted {
		return rejected(ReasonAlreadyPosted)
	}

	return Decision{Eligible: true, Reason: ReasonAllCriteriaMet}
}

func rejected(reason string) Decision {
	return Decision{Eligible: false, Reason: reason}
}

func amountPresent(amount string) bool {
	if amount == "" {
		return false
	}
	value, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return false
	}
	return value != 0
}
