package autopost

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
)

// SimulationType identifies which external write a simulation stands in for.
type SimulationType string

const (
	SimExportAPInvoice       SimulationType = "export_ap_invoice"
	SimCreatePurchaseInvoice SimulationType = "create_purchase_invoice"
	SimAttachPDF             SimulationType = "attach_pdf"
	SimSalesInvoiceExport    SimulationType = "sales_invoice_export"
	SimPOLinkage             SimulationType = "po_linkage"
)

var simPrefixes = map[SimulationType]string{
	SimExportAPInvoice:       "SIM-EXP",
	SimCreatePurchaseInvoice: "SIM-PI",
	SimAttachPDF:             "SIM-ATT",
	SimSalesInvoiceExport:    "SIM-SI",
	SimPOLinkage:             "SIM-PO",
}

// SimulationResult is the deterministic stand-in for an external write.
// It is derived purely from its inputs and never mutated.
type SimulationResult struct {
	Type        SimulationType `json:"type"`
	DocumentID  uuid.UUID      `json:"document_id"`
	SimulatedID string         `json:"simulated_id"`
	SimulatedNo string         `json:"simulated_number"`
	Status      string         `json:"status"`
	Findings    []string       `json:"findings,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Simulator produces deterministic, idempotent simulations of every
// external write operation. Given identical document identity and
// simulation type it always produces the same simulated id and number, so
// re-running a simulation creates no new record.
type Simulator struct{}

// NewSimulator creates a Simulator.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// Simulate builds the simulation result for one document and write type.
// Findings carry validation observations the real system would have made;
// they never affect the simulated identifiers.
func (s *Simulator) Simulate(documentID uuid.UUID, simType SimulationType, snapshot Snapshot) SimulationResult {
	id, number := simulatedIdentity(documentID, simType)

	return SimulationResult{
		Type:        simType,
		DocumentID:  documentID,
		SimulatedID: id,
		SimulatedNo: number,
		Status:      "simulated",
		Findings:    validate(snapshot),
		Timestamp:   time.Now().UTC(),
	}
}

// simulatedIdentity derives the stable simulated id and number from a
// stable hash of document identity plus simulation type.
func simulatedIdentity(documentID uuid.UUID, simType SimulationType) (string, string) {
	h := fnv.New64a()
	h.Write(documentID[:])
	h.Write([]byte(simType))
	sum := h.Sum64()

	prefix := simPrefixes[simType]
	if prefix == "" {
		prefix = "SIM"
	}

	id := fmt.Sprintf("%s-%016x", prefix, sum)
	number := fmt.Sprintf("%s-%06d", prefix, sum%1000000)
	return id, number
}

func validate(s Snapshot) []string {
	var findings []string
	if s.InvoiceNumber == "" {
		findings = append(findings, "invoice number unresolved")
	}
	if s.InvoiceDate == "" {
		findings = append(findings, "invoice date unresolved")
	}
	if !amountPresent(s.Amount) {
		findings = append(findings, "amount unresolved or zero")
	}
	if s.VendorBCID == "" {
		findings = append(findings, "vendor not matched to a BC vendor number")
	}
	if len(findings) == 0 {
		findings = append(findings, "all posting fields present")
	}
	return findings
}
