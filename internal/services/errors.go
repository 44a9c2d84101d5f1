package services

import (
	"fmt"

	"github.com/pkg/errors"
)

// ValidationError reports a recoverable input problem that blocks the
// operation. It never indicates a system failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports that a requested natural key is absent.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

// PartialCompletionError reports that the proof-of-delivery was persisted but
// the status transition failed. The proof is not rolled back; the caller can
// retry just the status step, and the reconciliation pass will too.
type PartialCompletionError struct {
	DRNumber   string
	ProofSaved bool
	Err        error
}

func (e *PartialCompletionError) Error() string {
	return fmt.Sprintf("delivery %s: proof saved but completion failed: %v", e.DRNumber, e.Err)
}

// Unwrap exposes the underlying status-transition failure.
func (e *PartialCompletionError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsPartialCompletion reports whether err is a PartialCompletionError.
func IsPartialCompletion(err error) bool {
	var pce *PartialCompletionError
	return errors.As(err, &pce)
}
