package prompt

import "fmt"

// ValidationError reports a malformed translation request.
// It is always a caller error and is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TemplateNotFoundError reports a missing task template. The renderer
// recovers from it by falling back to the generic template, so callers
// normally never see it.
type TemplateNotFoundError struct {
	TaskType string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("no template registered for task type %q", e.TaskType)
}
