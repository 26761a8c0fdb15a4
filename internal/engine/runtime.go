// Package engine orchestrates the document pipeline: classification,
// extraction, vendor matching, validation with bounded retries, and the
// gated auto-post path. Each document is processed independently; within a
// document every stage transition is serialized through compare-and-set
// persistence.
package engine

import (
	"context"
	"log/slog"

	"github.com/factorhq/factor/internal/autopost"
	"github.com/factorhq/factor/internal/classification"
	"github.com/factorhq/factor/internal/documents"
	"github.com/factorhq/factor/internal/workflow"
	"github.com/factorhq/factor/pkg/storage"
)

// VendorContext is the read-only CRM context used to improve vendor
// matching. It never mutates anything.
type VendorContext struct {
	VendorBCID string `json:"vendor_bc_id,omitempty"`
	VendorName string `json:"vendor_name,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// ContextProvider supplies CRM context for a document. Implementations are
// read-only collaborators; failures degrade to no context.
type ContextProvider interface {
	GetContext(ctx context.Context, doc *documents.Document) (*VendorContext, error)
}

// NoContext is a ContextProvider that never finds context, used when no CRM
// integration is configured.
type NoContext struct{}

func (NoContext) GetContext(context.Context, *documents.Document) (*VendorContext, error) {
	return nil, nil
}

// Runtime bundles the dependencies the engine requires. It is constructed
// by composition code from Infrastructure and Domain systems.
type Runtime struct {
	Documents documents.System
	Gate      *classification.Gate
	Runner    *autopost.Runner
	Retry     *workflow.RetryPolicy
	Storage   storage.System
	CRM       ContextProvider
	Logger    *slog.Logger
}
