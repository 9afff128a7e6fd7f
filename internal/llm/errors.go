package llm

import (
	"context"
	"errors"
	"fmt"
)

// TransientError marks a provider failure worth retrying: timeouts,
// rate limits, server-side errors.
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a provider failure that retrying cannot fix:
// authentication, malformed requests.
type FatalError struct {
	Provider string
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: fatal: %v", e.Provider, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// classifyStatus maps an HTTP status to the shared error taxonomy
func classifyStatus(provider string, status int, body string) error {
	err := fmt.Errorf("status %d: %s", status, body)
	if status == 429 || status >= 500 {
		return &TransientError{Provider: provider, Err: err}
	}
	return &FatalError{Provider: provider, Err: err}
}

// classifyNetErr maps transport-level failures, which are all retryable.
// Cancellation passes through untouched so callers can tell it apart
// from backend trouble.
func classifyNetErr(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &TransientError{Provider: provider, Err: err}
}
