package documents

import (
	"errors"
	"net/http"

	"github.com/factorhq/factor/internal/workflow"
)

// Domain errors for document operations.
var (
	ErrNotFound     = errors.New("document not found")
	ErrDuplicate    = errors.New("document already ingested")
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")
	ErrInvalidFile  = errors.New("invalid file")
	ErrUnknownField = errors.New("unknown extraction field")

	// ErrStatusConflict reports a compare-and-set mismatch: the document's
	// status changed since it was read. Callers re-fetch and retry; this is
	// a benign no-op, not a failure.
	ErrStatusConflict = errors.New("document status changed concurrently")
)

// MapHTTPStatus maps document domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrStatusConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, ErrInvalidFile) || errors.Is(err, ErrUnknownField) {
		return http.StatusBadRequest
	}
	if errors.Is(err, workflow.ErrInvalidTransition) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
