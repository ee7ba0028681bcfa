/*
errors.go - Centralized error types for the generic engine

PURPOSE:
  All ledger and store error types in one place. Domain packages declare
  their own business-rule errors (see compensation/errors.go) and may wrap
  these with additional context.

ERROR CATEGORIES:
  1. Ledger errors - Payout persistence failures, idempotency
  2. Lookup errors - Missing affiliates or transactions
  3. Validation errors - Malformed ranges

SEE ALSO:
  - ledger.go: Uses these errors
  - store/sqlite/sqlite.go: Maps SQL constraint failures onto them
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateIdempotencyKey is returned when a transaction with the same
	// idempotency key already exists. This is expected behavior for retries
	// and for the daily scheduler running twice on the same day.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrTransactionFailed is returned when a transaction cannot be persisted.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrTransactionNotFound is returned when a referenced transaction doesn't exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrAlreadyReversed is returned when reversing a transaction twice.
	ErrAlreadyReversed = errors.New("transaction already reversed")

	// ErrNotReversible is returned when reversing a reversal.
	ErrNotReversible = errors.New("transaction cannot be reversed")

	// ErrAffiliateNotFound is returned when a referenced affiliate doesn't exist.
	ErrAffiliateNotFound = errors.New("affiliate not found")

	// ErrInvalidRange is returned when a date range ends before it starts.
	ErrInvalidRange = errors.New("invalid range: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AffiliateNotFoundError names the missing affiliate.
type AffiliateNotFoundError struct {
	AffiliateID AffiliateID
}

func (e *AffiliateNotFoundError) Error() string {
	return fmt.Sprintf("affiliate not found: %s", e.AffiliateID)
}

func (e *AffiliateNotFoundError) Unwrap() error {
	return ErrAffiliateNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ErrAlreadyReversed) ||
		errors.Is(err, ErrNotReversible) ||
		errors.Is(err, ErrInvalidRange)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAffiliateNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsConflict returns true if the write collided with existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ErrAlreadyReversed)
}
