// Package provider defines the interface for hosted completion endpoints.
package provider

import "context"

// Provider is the core abstraction over a hosted completion endpoint.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string

	// Call executes a blocking completion request.
	Call(ctx context.Context, req *Request) (*Response, error)
}

// StreamingProvider extends Provider with incremental delivery.
type StreamingProvider interface {
	Provider

	// CallStream executes a streaming completion request.
	CallStream(ctx context.Context, req *Request) (ResponseStream, error)
}

// ResponseStream delivers response fragments in arrival order.
// The stream only decodes fragments; the consumer owns all accumulation.
type ResponseStream interface {
	// Next advances to the next fragment, returns false when done.
	Next() bool

	// Current returns the current fragment.
	Current() *StreamChunk

	// Err returns any error that occurred during streaming.
	Err() error

	// Close releases stream resources.
	Close() error
}

// StreamChunk represents a single streaming fragment.
type StreamChunk struct {
	Delta         string
	ToolCallDelta *ToolCallDelta
	FinishReason  FinishReason
}

// ToolCallDelta represents incremental tool-call data in streaming.
// Index identifies the call slot the fragment belongs to. The first
// fragment for a slot carries ID and Name; later fragments carry only
// argument text to append.
type ToolCallDelta struct {
	Index          int
	ID             string
	Name           string
	ArgumentsDelta string
}
