package engine

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/factorhq/factor/internal/autopost"
	"github.com/factorhq/factor/internal/documents"
	"github.com/factorhq/factor/pkg/handlers"
	"github.com/factorhq/factor/pkg/routes"
)

// Handler exposes pipeline operations over HTTP.
type Handler struct {
	rt     *Runtime
	cfg    autopost.Config
	logger *slog.Logger
}

// NewHandler creates a pipeline handler.
func NewHandler(rt *Runtime, cfg autopost.Config) *Handler {
	return &Handler{
		rt:     rt,
		cfg:    cfg.Normalize(),
		logger: rt.Logger.With("handler", "engine"),
	}
}

// Routes returns the route group definition for pipeline endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/pipeline",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{id}/process", Handler: h.Process},
			{Method: "GET", Pattern: "/{id}/eligibility", Handler: h.Eligibility},
			{Method: "POST", Pattern: "/{id}/post", Handler: h.Post},
		},
	}
}

// Process advances a document through the pipeline from its current status.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidFile)
		return
	}

	doc, err := Process(r.Context(), h.rt, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, doc)
}

// Eligibility runs the auto-post checklist against the document's current
// snapshot without side effects.
func (h *Handler) Eligibility(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidFile)
		return
	}

	doc, err := h.rt.Documents.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, autopost.Evaluate(snapshotFrom(doc), h.cfg))
}

// Post is the direct write API: it submits the document's invoice to the
// accounting system, bypassing eligibility but not the posting axis. A
// document that already posted refuses with a conflict, and in pilot mode
// the refusal is recorded and returned as a write-blocked conflict.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidFile)
		return
	}

	doc, err := h.rt.Documents.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	result, err := h.rt.Runner.Post(r.Context(), autopost.RunInput{
		DocumentID:     doc.ID,
		WorkflowStatus: doc.WorkflowStatus,
		Snapshot:       snapshotFrom(doc),
		Invoice:        invoiceFrom(doc),
		StorageURL:     doc.StorageURL,
		UploadedBy:     "factor",
	})
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
