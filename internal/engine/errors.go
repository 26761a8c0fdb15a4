package engine

import (
	"errors"
	"net/http"

	"github.com/factorhq/factor/internal/autopost"
	"github.com/factorhq/factor/internal/documents"
)

// Domain errors for pipeline operations.
var (
	ErrNotProcessable = errors.New("document is not in a processable state")
)

// MapHTTPStatus maps engine errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotProcessable) {
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, autopost.ErrWriteBlocked) {
		return http.StatusConflict
	}
	return documents.MapHTTPStatus(err)
}
