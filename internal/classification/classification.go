// Package classification implements the classification gate: deterministic
// rule lookup first, AI second, with graceful degradation to OTHER when the
// classifier fails or reports insufficient confidence.
package classification

import "strings"

// DocType is the enumerated category of a document.
type DocType string

const (
	TypeAPInvoice     DocType = "AP_INVOICE"
	TypeSalesInvoice  DocType = "SALES_INVOICE"
	TypePurchaseOrder DocType = "PURCHASE_ORDER"
	TypeStatement     DocType = "STATEMENT"
	TypeOther         DocType = "OTHER"
)

var validTypes = map[DocType]bool{
	TypeAPInvoice:     true,
	TypeSalesInvoice:  true,
	TypePurchaseOrder: true,
	TypeStatement:     true,
	TypeOther:         true,
}

// ParseDocType normalizes a label into a DocType. Matching is
// case-insensitive and tolerant of spaces and hyphens; unrecognized labels
// yield TypeOther with ok=false.
func ParseDocType(label string) (DocType, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(label))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	t := DocType(normalized)
	if validTypes[t] {
		return t, true
	}
	return TypeOther, false
}

// IsAPInvoice reports whether t is the AP-invoice type.
func (t DocType) IsAPInvoice() bool {
	return t == TypeAPInvoice
}

// Method identifies how a classification was produced.
type Method string

const (
	MethodDeterministic Method = "deterministic"
	MethodAI            Method = "ai"
	MethodFallback      Method = "fallback"
)

// Result is the confidence-tagged output of the gate. When the classifier
// failed, Error carries its message for the audit trail; the failure is
// never propagated to the caller.
type Result struct {
	Type            DocType           `json:"doc_type"`
	Category        string            `json:"category,omitempty"`
	Confidence      float64           `json:"confidence"`
	Method          Method            `json:"method"`
	Reasoning       string            `json:"reasoning,omitempty"`
	ExtractedFields map[string]string `json:"extracted_fields,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// Input carries everything the gate needs to classify one document.
type Input struct {
	Content      []byte
	Filename     string
	Folder       string
	CategoryHint string
	CRMContext   string
}
