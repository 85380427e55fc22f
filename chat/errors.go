package chat

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrEmptyMessage is returned when ProcessMessage is called without text.
	ErrEmptyMessage = errors.New("message must not be empty")

	// ErrModelRequired is returned when no model identifier is configured.
	ErrModelRequired = errors.New("model is required: use WithModel or SetModel")
)

// StreamError represents a failure while consuming the primary streaming
// response. The turn is not retried and no partial TurnResult is returned.
type StreamError struct {
	Cause error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream processing failed: %v", e.Cause)
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}
