// Package errs defines the error kinds shared by the job service,
// the store and the runner. Callers classify errors with errors.Is.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrValidation marks bad caller input (missing fields, page < 1,
	// a job that cannot be reset).
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown job id.
	ErrNotFound = errors.New("not found")
	// ErrStore marks a persistence engine failure.
	ErrStore = errors.New("store failure")
	// ErrExecution marks a subprocess spawn or introspection failure.
	ErrExecution = errors.New("execution failure")
)

// Validation returns an ErrValidation carrying the formatted message.
func Validation(format string, args ...interface{}) error {
	return errors.Wrapf(ErrValidation, format, args...)
}

// NotFound returns an ErrNotFound for the given job id.
func NotFound(id uint64) error {
	return errors.Wrapf(ErrNotFound, "job %d", id)
}

// Store wraps an engine error as ErrStore, keeping the cause reachable.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// Execution wraps a subprocess error as ErrExecution.
func Execution(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrExecution, err)
}
