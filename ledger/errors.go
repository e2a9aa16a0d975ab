/*
errors.go - Centralized error types for the consignment engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The HTTP layer maps these to status codes via the helpers at the bottom.

ERROR CATEGORIES:
  1. Validation errors  - Malformed input, rejected before any state change
  2. State errors       - Operation not legal for the current lifecycle status
  3. Stock errors       - Debit would drive an inventory count negative
  4. Not-found errors   - Unknown transaction, variant, or consignee

CONTRACT:
  Every rejection leaves state exactly as before the call. Mutating
  operations run inside TxStore.WithTx, so a returned error always means
  a full rollback - no partial writes.

USAGE:
  if errors.Is(err, ledger.ErrInsufficientStock) {
      // transaction stays pending; stock unchanged
  }

SEE ALSO:
  - lifecycle.go, consignee.go, inventory.go: Producers of these errors
  - api/handlers.go: Status-code mapping
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
	// ErrValidation is returned for malformed input: non-positive quantity,
	// missing required consignee, zero/negative payment amount, empty bulk list.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState is returned when an operation is not legal for the
	// transaction's current lifecycle status.
	ErrInvalidState = errors.New("invalid lifecycle state")

	// ErrInsufficientStock is returned when a debit exceeds available units.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrNotFound is returned for unknown transaction, variant, or consignee.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a rejected input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidStateError describes an operation rejected by the state machine.
type InvalidStateError struct {
	ID     TransactionID
	Status Status
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s transaction %s in status %q", e.Op, e.ID, e.Status)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// InsufficientStockError provides details about a stock shortage.
type InsufficientStockError struct {
	Variant   Variant
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
		e.Variant, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// NotFoundError identifies the missing entity.
type NotFoundError struct {
	Kind string // "transaction", "variant", "consignee"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or an illegal operation, as opposed to a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInsufficientStock)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
