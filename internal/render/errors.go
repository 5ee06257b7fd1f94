package render

import "fmt"

// RenderError reports a document that cannot be laid out. No partial output
// accompanies it.
type RenderError struct {
	Reason string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to render application summary: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to render application summary: %s", e.Reason)
}

func (e *RenderError) Unwrap() error { return e.Err }

func renderErrorf(format string, args ...any) *RenderError {
	return &RenderError{Reason: fmt.Sprintf(format, args...)}
}
