// Package llm provides a uniform completion interface over model
// backends and a router that handles retry and provider fallback.
package llm

import "context"

// Request is a single completion request
type Request struct {
	Prompt      string
	Model       string // empty means the provider's configured default
	MaxTokens   int
	Temperature float64
}

// Provider is the capability surface of one model backend. Bindings are
// responsible for translating backend-specific failures into
// TransientError or FatalError.
type Provider interface {
	Name() string

	// Complete returns the full response text as one unit.
	Complete(ctx context.Context, req Request) (string, error)

	// CompleteStream returns a lazy fragment sequence. The stream is not
	// restartable; retrying requires a new call.
	CompleteStream(ctx context.Context, req Request) (*Stream, error)
}
