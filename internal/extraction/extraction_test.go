package extraction_test

import (
	"testing"

	"github.com/factorhq/factor/internal/extraction"
)

func candidate(value string, source extraction.Source, confidence float64) *extraction.Candidate {
	return &extraction.Candidate{Value: value, Source: source, Confidence: confidence}
}

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name       string
		candidates extraction.Candidates
		wantValue  string
		wantSource extraction.Source
	}{
		{
			name: "corrected wins over everything",
			candidates: extraction.Candidates{
				Corrected:  candidate("INV-CORRECTED", extraction.SourceCorrected, 1),
				Structured: candidate("INV-STRUCT", extraction.SourceStructured, 0.99),
				AI:         candidate("INV-AI", extraction.SourceAI, 0.95),
			},
			wantValue:  "INV-CORRECTED",
			wantSource: extraction.SourceCorrected,
		},
		{
			name: "structured wins over AI",
			candidates: extraction.Candidates{
				Structured: candidate("INV-STRUCT", extraction.SourceStructured, 0.99),
				AI:         candidate("INV-AI", extraction.SourceAI, 0.95),
			},
			wantValue:  "INV-STRUCT",
			wantSource: extraction.SourceStructured,
		},
		{
			name: "AI used when alone",
			candidates: extraction.Candidates{
				AI: candidate("INV-AI", extraction.SourceAI, 0.95),
			},
			wantValue:  "INV-AI",
			wantSource: extraction.SourceAI,
		},
		{
			name: "empty corrected falls through to structured",
			candidates: extraction.Candidates{
				Corrected:  candidate("", extraction.SourceCorrected, 1),
				Structured: candidate("INV-STRUCT", extraction.SourceStructured, 0.99),
			},
			wantValue:  "INV-STRUCT",
			wantSource: extraction.SourceStructured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.candidates.Resolve(extraction.FieldInvoiceNumber)
			if !got.Present() {
				t.Fatalf("Resolve() missing, want %q", tt.wantValue)
			}
			if got.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", got.Value, tt.wantValue)
			}
			if got.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", got.Source, tt.wantSource)
			}
		})
	}
}

func TestResolveMissing(t *testing.T) {
	got := extraction.Candidates{}.Resolve(extraction.FieldAmount)
	if !got.Missing {
		t.Error("empty candidates should resolve to missing")
	}
	if got.Present() {
		t.Error("missing field should not be present")
	}
	if got.Field != extraction.FieldAmount {
		t.Errorf("Field = %q, want %q", got.Field, extraction.FieldAmount)
	}
}

func TestResolveAllCoversEveryField(t *testing.T) {
	set := extraction.CandidateSet{
		extraction.FieldVendor: {AI: candidate("Acme GmbH", extraction.SourceAI, 0.9)},
	}

	resolved := set.ResolveAll()
	if len(resolved) != len(extraction.Fields) {
		t.Fatalf("ResolveAll returned %d fields, want %d", len(resolved), len(extraction.Fields))
	}
	if !resolved[extraction.FieldVendor].Present() {
		t.Error("vendor should be present")
	}
	if resolved[extraction.FieldDueDate].Present() {
		t.Error("due_date should be missing")
	}
}

func TestCorrectTakesPrecedence(t *testing.T) {
	set := extraction.CandidateSet{}
	set.MergeAI(map[string]string{extraction.FieldAmount: "100.00"}, 0.92)

	if got := set.Resolve(extraction.FieldAmount).Value; got != "100.00" {
		t.Fatalf("pre-correction value = %q, want 100.00", got)
	}

	set.Correct(extraction.FieldAmount, "150.00")

	got := set.Resolve(extraction.FieldAmount)
	if got.Value != "150.00" {
		t.Errorf("corrected value = %q, want 150.00", got.Value)
	}
	if got.Source != extraction.SourceCorrected {
		t.Errorf("Source = %q, want corrected", got.Source)
	}
	if got.Confidence != 1 {
		t.Errorf("Confidence = %v, want 1", got.Confidence)
	}
}

func TestMergeAISkipsEmptyValues(t *testing.T) {
	set := extraction.CandidateSet{}
	set.MergeAI(map[string]string{
		extraction.FieldVendor:        "Acme GmbH",
		extraction.FieldInvoiceNumber: "",
	}, 0.9)

	if !set.Resolve(extraction.FieldVendor).Present() {
		t.Error("vendor should be present after merge")
	}
	if set.Resolve(extraction.FieldInvoiceNumber).Present() {
		t.Error("empty AI value should not produce a candidate")
	}
}

func TestMergeAIPreservesExistingTiers(t *testing.T) {
	set := extraction.CandidateSet{}
	set.Correct(extraction.FieldVendor, "Corrected Vendor")
	set.MergeAI(map[string]string{extraction.FieldVendor: "AI Vendor"}, 0.9)

	got := set.Resolve(extraction.FieldVendor)
	if got.Value != "Corrected Vendor" {
		t.Errorf("Value = %q, corrected tier should survive AI merge", got.Value)
	}
}
