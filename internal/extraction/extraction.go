// Package extraction resolves a document's effective field values from its
// candidate sources. The precedence chain (human-corrected > structured
// extraction > AI extraction) is implemented exactly once here; every caller
// that needs an effective value goes through Resolve.
package extraction

// Field names tracked for every document.
const (
	FieldVendor        = "vendor"
	FieldInvoiceNumber = "invoice_number"
	FieldInvoiceDate   = "invoice_date"
	FieldAmount        = "amount"
	FieldPONumber      = "po_number"
	FieldDueDate       = "due_date"
)

// Fields lists every tracked field in stable order.
var Fields = []string{
	FieldVendor,
	FieldInvoiceNumber,
	FieldInvoiceDate,
	FieldAmount,
	FieldPONumber,
	FieldDueDate,
}

// Source identifies which tier produced a candidate value.
type Source string

const (
	SourceCorrected  Source = "corrected"
	SourceStructured Source = "structured"
	SourceAI         Source = "ai"
)

// Candidate is a single extracted value for a field from one source tier.
type Candidate struct {
	Value      string  `json:"value"`
	Source     Source  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// Candidates holds the per-tier candidates for one field. Nil tiers carry no
// value; empty strings are treated identically to nil.
type Candidates struct {
	Corrected  *Candidate `json:"corrected,omitempty"`
	Structured *Candidate `json:"structured,omitempty"`
	AI         *Candidate `json:"ai,omitempty"`
}

// CandidateSet maps field name to its candidates.
type CandidateSet map[string]Candidates

// Resolved is a field's effective value. Missing is the explicit marker for
// a field absent from every tier; downstream checks must treat Missing and
// empty string identically as absent.
type Resolved struct {
	Field      string  `json:"field"`
	Value      string  `json:"value"`
	Source     Source  `json:"source,omitempty"`
	Confidence float64 `json:"confidence"`
	Missing    bool    `json:"missing"`
}

// Present reports whether the field resolved to a usable value.
func (r Resolved) Present() bool {
	return !r.Missing && r.Value != ""
}

// Resolve returns the effective value for one field by walking the
// precedence chain.
func (c Candidates) Resolve(field string) Resolved {
	for _, candidate := range []*Candidate{c.Corrected, c.Structured, c.AI} {
		if candidate == nil || candidate.Value == "" {
			continue
		}
		return Resolved{
			Field:      field,
			Value:      candidate.Value,
			Source:     candidate.Source,
			Confidence: candidate.Confidence,
		}
	}
	return Resolved{Field: field, Missing: true}
}

// Resolve returns the effective value for the named field.
func (s CandidateSet) Resolve(field string) Resolved {
	return s[field].Resolve(field)
}

// ResolveAll resolves every tracked field.
func (s CandidateSet) ResolveAll() map[string]Resolved {
	resolved := make(map[string]Resolved, len(Fields))
	for _, field := range Fields {
		resolved[field] = s.Resolve(field)
	}
	return resolved
}

// Correct records a human correction for a field, which takes precedence
// over every extracted tier from then on.
func (s CandidateSet) Correct(field, value string) {
	c := s[field]
	c.Corrected = &Candidate{
		Value:      value,
		Source:     SourceCorrected,
		Confidence: 1,
	}
	s[field] = c
}

// MergeAI records AI-extracted candidates for fields that carry values.
// Existing corrected and structured tiers are untouched.
func (s CandidateSet) MergeAI(values map[string]string, confidence float64) {
	for field, value := range values {
		if value == "" {
			continue
		}
		c := s[field]
		c.AI = &Candidate{
			Value:      value,
			Source:     SourceAI,
			Confidence: confidence,
		}
		s[field] = c
	}
}
