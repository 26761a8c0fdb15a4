package autopost

import "errors"

// Domain errors for auto-post operations.
var (
	// ErrWriteBlocked is returned by guarded write APIs when pilot mode is
	// active. Callers must not treat it as a posting failure.
	ErrWriteBlocked = errors.New("external write blocked by pilot mode")

	ErrPostFailed = errors.New("accounting system rejected the post")
)
