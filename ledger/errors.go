/*
errors.go - Centralized error types for the ledger core

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch on failure kind with errors.Is/errors.As instead of
  string-matching messages.

ERROR CATEGORIES:
  1. Validation errors - bad input shape, unknown referenced entities;
     rejected before any allocation, no partial state.
  2. Over-cancellation - a cancellation exceeding the remaining confirmed
     quantity for a product; aborts the whole batch.
  3. Store errors - persistence-level failures; the enclosing transaction
     guarantees no partial lines persist.

SEE ALSO:
  - fulfillment: raises these during allocation
  - api: maps them to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all pre-allocation input rejections.
	ErrValidation = errors.New("validation failed")

	// ErrOverCancellation is returned when a cancellation's quantity exceeds
	// all eligible remaining confirmed quantity for a product.
	ErrOverCancellation = errors.New("cancellation exceeds remaining confirmed quantity")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateDocument is returned when a document ID already exists.
	ErrDuplicateDocument = errors.New("duplicate document")

	// ErrStoreFailed is returned when the store cannot persist a batch.
	ErrStoreFailed = errors.New("store operation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports the offending field and value.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// OverCancellationError names the product and the excess quantity that no
// remaining confirmed stock could absorb.
type OverCancellationError struct {
	ProductID ProductID
	Excess    int64
}

func (e *OverCancellationError) Error() string {
	return fmt.Sprintf("product %s: cancellation is %d pieces more than left", e.ProductID, e.Excess)
}

func (e *OverCancellationError) Unwrap() error {
	return ErrOverCancellation
}

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string // "product", "client", "order", "confirmation", "supplier", "brand", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrOverCancellation) ||
		errors.Is(err, ErrDuplicateDocument)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
