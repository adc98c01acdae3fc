package export

import (
	"errors"
	"fmt"
)

// Export error types for categorizing sink failures.
var (
	// ErrConnectionFailed indicates a failure to connect to a sink.
	ErrConnectionFailed = errors.New("export: connection failed")

	// ErrWriteFailed indicates a write to a sink failed.
	ErrWriteFailed = errors.New("export: write failed")

	// ErrSinkClosed indicates the sink was already closed.
	ErrSinkClosed = errors.New("export: sink closed")
)

// SinkError wraps sink failures with operation and stream context.
type SinkError struct {
	Op     string // operation that failed, e.g. "Insert", "Publish", "Upload"
	Stream string // stream involved, if applicable
	Err    error
}

// Error returns the error message.
func (e *SinkError) Error() string {
	if e.Stream != "" {
		return fmt.Sprintf("export.%s(%s): %v", e.Op, e.Stream, e.Err)
	}
	return fmt.Sprintf("export.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SinkError) Unwrap() error {
	return e.Err
}
