package workflow

import "errors"

// Domain errors for workflow operations.
var (
	ErrInvalidTransition = errors.New("invalid workflow transition")
	ErrRetryExhausted    = errors.New("retry limit exhausted")
	ErrUnknownStage      = errors.New("unknown retry stage")
	ErrInvalidLocation   = errors.New("location code not recognized")
)
