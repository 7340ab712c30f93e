package utils

import (
	"errors"
	"fmt"
)

var ErrorJobAlreadyRunning = errors.New("job already running")

// ParseError marks a malformed source row. Row-local: the caller logs it,
// skips the row and keeps processing the rest of the file.
type ParseError struct {
	File   string
	Row    int
	Reason string
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("parse error at row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("parse error in %s row %d: %s", e.File, e.Row, e.Reason)
}

func NewParseError(file string, row int, reason string) *ParseError {
	return &ParseError{File: file, Row: row, Reason: reason}
}

// ConfigurationError marks missing settlement-rule / fee configuration.
// The caller substitutes the documented default, warns and continues.
type ConfigurationError struct {
	Scope   string
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration %s for %s", e.Missing, e.Scope)
}

// ComputationError aborts a single entity's recompute. Other entities keep
// going; the entity's previously committed state is left intact.
type ComputationError struct {
	Entity string
	Step   string
	Err    error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation failed for entity %s at %s: %v", e.Entity, e.Step, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

func NewComputationError(entity, step string, err error) *ComputationError {
	return &ComputationError{Entity: entity, Step: step, Err: err}
}

// ExternalIOError marks a collaborator I/O failure (file system, holiday
// feed, storage). Surfaces to the caller as a job failure.
type ExternalIOError struct {
	Op  string
	Err error
}

func (e *ExternalIOError) Error() string {
	return fmt.Sprintf("external io failed during %s: %v", e.Op, e.Err)
}

func (e *ExternalIOError) Unwrap() error { return e.Err }

func NewExternalIOError(op string, err error) *ExternalIOError {
	return &ExternalIOError{Op: op, Err: err}
}

// IsEntityScoped reports whether err should abort only the current entity
// rather than the whole job.
func IsEntityScoped(err error) bool {
	var ce *ComputationError
	return errors.As(err, &ce)
}
