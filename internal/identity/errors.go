package identity

import (
	"errors"
	"fmt"
)

// Identity error types. All are fatal to a run: a corpus that cannot be
// loaded or extended consistently must not produce partial fixtures.
var (
	// ErrEmptyNamePool indicates a fabrication name pool is empty.
	ErrEmptyNamePool = errors.New("identity: name pool is empty")

	// ErrNamespaceExhausted indicates fabrication could not find a free
	// identifier within the retry budget.
	ErrNamespaceExhausted = errors.New("identity: fabrication namespace exhausted")

	// ErrMissingColumn indicates the roster lacks a required column.
	ErrMissingColumn = errors.New("identity: roster missing required column")

	// ErrReservationFailed indicates the reservation store was unreachable.
	ErrReservationFailed = errors.New("identity: identifier reservation failed")
)

// RosterError wraps roster-loading failures with positional context.
type RosterError struct {
	Op   string // operation that failed: "Open", "Header", "Row"
	Row  int    // 1-based data row, 0 when not row-specific
	Err  error
}

func (e *RosterError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("roster.%s(row %d): %v", e.Op, e.Row, e.Err)
	}
	return fmt.Sprintf("roster.%s: %v", e.Op, e.Err)
}

func (e *RosterError) Unwrap() error {
	return e.Err
}
