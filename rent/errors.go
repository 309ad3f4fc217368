/*
errors.go - Error and warning types for the rent engine

PURPOSE:
  All error types in one place. Three failure classes exist:

  1. InvalidTenancy: join date / policy / allocations unusable. Fatal to
     the reconciliation call; the caller must fix tenancy data.
  2. InconsistentPayment: negative amount, or applied to a cycle before the
     tenancy began. The payment is excluded and reported as a Warning.
  3. ArithmeticEdge: degenerate day counts. Clamped and reported as a
     Warning; never produces negative or infinite amounts.

  Collection errors (amount > remaining due, unknown cycle) are client errors
  raised when a payment is about to be recorded.

USAGE:
  if errors.Is(err, rent.ErrInvalidTenancy) { ... }

  var over *rent.AmountExceedsRemainingError
  if errors.As(err, &over) { fmt.Println(over.RemainingDue) }
*/
package rent

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTenancy is returned when tenancy data cannot be reconciled.
	ErrInvalidTenancy = errors.New("invalid tenancy")

	// ErrInconsistentPayment marks a payment record excluded from sums.
	ErrInconsistentPayment = errors.New("inconsistent payment")

	// ErrUnknownCycle is returned when a collection targets a cycle the
	// engine did not compute.
	ErrUnknownCycle = errors.New("unknown cycle")

	// ErrInvalidAmount is returned for zero or negative collection amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrAmountExceedsRemaining is returned when a collection is larger than
	// the cycle's remaining due.
	ErrAmountExceedsRemaining = errors.New("amount exceeds remaining due")

	// ErrTenancyNotFound is returned by stores.
	ErrTenancyNotFound = errors.New("tenancy not found")

	// ErrPaymentNotFound is returned by stores.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrDuplicatePayment is returned when a payment ID or idempotency key
	// was already recorded.
	ErrDuplicatePayment = errors.New("duplicate payment")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTenancyError names the offending field.
type InvalidTenancyError struct {
	Field  string
	Reason string
}

func (e *InvalidTenancyError) Error() string {
	return fmt.Sprintf("invalid tenancy: %s: %s", e.Field, e.Reason)
}

func (e *InvalidTenancyError) Unwrap() error { return ErrInvalidTenancy }

// AmountExceedsRemainingError provides details about a rejected collection.
type AmountExceedsRemainingError struct {
	CycleID      string
	Requested    decimal.Decimal
	RemainingDue decimal.Decimal
}

func (e *AmountExceedsRemainingError) Error() string {
	return fmt.Sprintf("amount %s exceeds remaining due %s for cycle %s",
		e.Requested.StringFixed(2), e.RemainingDue.StringFixed(2), e.CycleID)
}

func (e *AmountExceedsRemainingError) Unwrap() error { return ErrAmountExceedsRemaining }

// =============================================================================
// WARNINGS - Recovered locally, reported alongside the result
// =============================================================================

type WarningKind string

const (
	WarnInconsistentPayment WarningKind = "inconsistent_payment"
	WarnOverpayment         WarningKind = "overpayment"
	WarnArithmeticEdge      WarningKind = "arithmetic_edge"
	WarnAllocationGap       WarningKind = "allocation_gap"
)

// Warning describes a record the engine recovered from.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	PaymentID PaymentID   `json:"payment_id,omitempty"`
	CycleID   string      `json:"cycle_id,omitempty"`
	Message   string      `json:"message"`
}

func (w Warning) String() string {
	if w.PaymentID != "" {
		return fmt.Sprintf("%s (payment %s): %s", w.Kind, w.PaymentID, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrUnknownCycle) ||
		errors.Is(err, ErrAmountExceedsRemaining) ||
		errors.Is(err, ErrInconsistentPayment)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTenancyNotFound) || errors.Is(err, ErrPaymentNotFound)
}
