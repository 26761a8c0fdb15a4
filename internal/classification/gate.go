package classification

import (
	"context"
	"fmt"
	"log/slog"
)

// Classifier is the external black-box model contract. Implementations may
// fail or time out; the gate always degrades gracefully.
type Classifier interface {
	Classify(ctx context.Context, content []byte, filename, hint string) (*Response, error)
}

// Response is the raw classifier output before gate acceptance.
type Response struct {
	Label           string            `json:"label"`
	Confidence      float64           `json:"confidence"`
	ExtractedFields map[string]string `json:"extracted_fields,omitempty"`
	Reasoning       string            `json:"reasoning,omitempty"`
}

// Gate decides a document's type: deterministic rules first, AI second.
type Gate struct {
	classifier Classifier
	threshold  float64
	logger     *slog.Logger
}

// DefaultAcceptanceThreshold is the minimum classifier confidence accepted
// when configuration provides none.
const DefaultAcceptanceThreshold = 0.80

// NewGate creates a classification gate. A threshold of zero falls back to
// the default acceptance threshold.
func NewGate(classifier Classifier, threshold float64, logger *slog.Logger) *Gate {
	if threshold <= 0 {
		threshold = DefaultAcceptanceThreshold
	}
	return &Gate{
		classifier: classifier,
		threshold:  threshold,
		logger:     logger.With("system", "classification"),
	}
}

// Classify produces a confidence-tagged result for one document. The only
// side effect is the returned value; persistence belongs to the caller.
// Classifier failures degrade to an OTHER/fallback result carrying the
// error text for audit and are never surfaced as hard failures.
func (g *Gate) Classify(ctx context.Context, input Input) Result {
	if result, ok := matchRules(input); ok {
		g.logger.InfoContext(
			ctx, "deterministic classification",
			"filename", input.Filename,
			"doc_type", result.Type,
		)
		return *result
	}

	resp, err := g.classifier.Classify(ctx, input.Content, input.Filename, input.CategoryHint)
	if err != nil {
		g.logger.WarnContext(
			ctx, "classifier failed, degrading to fallback",
			"filename", input.Filename,
			"error", err,
		)
		return fallbackResult(input, fmt.Sprintf("classifier error: %v", err))
	}

	docType, known := ParseDocType(resp.Label)
	if !known {
		return fallbackResult(input, fmt.Sprintf("unknown label %q", resp.Label))
	}

	if resp.Confidence < g.threshold {
		g.logger.InfoContext(
			ctx, "classification below acceptance threshold",
			"filename", input.Filename,
			"label", resp.Label,
			"confidence", resp.Confidence,
			"threshold", g.threshold,
		)
		return fallbackResult(input, fmt.Sprintf(
			"confidence %.2f below acceptance threshold %.2f", resp.Confidence, g.threshold,
		))
	}

	return Result{
		Type:            docType,
		Category:        categoryFor(docType, input.CategoryHint),
		Confidence:      resp.Confidence,
		Method:          MethodAI,
		Reasoning:       resp.Reasoning,
		ExtractedFields: resp.ExtractedFields,
	}
}

func fallbackResult(input Input, detail string) Result {
	return Result{
		Type:       TypeOther,
		Category:   input.CategoryHint,
		Confidence: 0,
		Method:     MethodFallback,
		Error:      detail,
	}
}

func categoryFor(t DocType, hint string) string {
	if hint != "" {
		return hint
	}
	switch t {
	case TypeAPInvoice:
		return "accounts_payable"
	case TypeSalesInvoice:
		return "accounts_receivable"
	case TypePurchaseOrder:
		return "procurement"
	case TypeStatement:
		return "statements"
	default:
		return ""
	}
}
