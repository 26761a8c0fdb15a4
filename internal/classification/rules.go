package classification

import (
	"path"
	"strings"
)

// rule maps a folder or filename pattern to a doc type. Rules are checked in
// order; the first match wins.
type rule struct {
	folder   string
	patterns []string
	docType  DocType
	category string
}

// Deterministic routing learned from how upstream systems file documents.
// Folder placement is the strongest signal, filename keywords second.
var rules = []rule{
	{folder: "ap-invoices", docType: TypeAPInvoice, category: "accounts_payable"},
	{folder: "sales-invoices", docType: TypeSalesInvoice, category: "accounts_receivable"},
	{folder: "purchase-orders", docType: TypePurchaseOrder, category: "procurement"},
	{folder: "statements", docType: TypeStatement, category: "statements"},
	{patterns: []string{"invoice", "inv-", "inv_"}, docType: TypeAPInvoice, category: "accounts_payable"},
	{patterns: []string{"po-", "po_", "purchase order", "purchase_order"}, docType: TypePurchaseOrder, category: "procurement"},
	{patterns: []string{"statement", "stmt"}, docType: TypeStatement, category: "statements"},
}

// matchRules attempts a deterministic classification from folder and
// filename alone. A hit returns a full-confidence deterministic result.
func matchRules(input Input) (*Result, bool) {
	folder := strings.ToLower(strings.Trim(input.Folder, "/"))
	name := strings.ToLower(path.Base(input.Filename))

	for _, r := range rules {
		if r.folder != "" {
			if folder == r.folder || strings.HasSuffix(folder, "/"+r.folder) {
				return deterministicResult(r), true
			}
			continue
		}
		for _, p := range r.patterns {
			if strings.Contains(name, p) {
				return deterministicResult(r), true
			}
		}
	}
	return nil, false
}

func deterministicResult(r rule) *Result {
	return &Result{
		Type:       r.docType,
		Category:   r.category,
		Confidence: 1,
		Method:     MethodDeterministic,
	}
}
