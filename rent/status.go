package rent

import "github.com/shopspring/decimal"

// =============================================================================
// STATUS RESOLVER - Settlement status of one cycle
// =============================================================================

// Resolve derives a cycle's status and remaining due. Pure and idempotent.
//
//	remaining = max(0, expectedDue - totalPaid)
//	PAID       totalPaid >= expectedDue - 0.01
//	PARTIAL    totalPaid > 0
//	PENDING    nothing paid
//
// A cycle PAID within tolerance still reports its sub-cent remainder, so
// remaining always equals max(0, expectedDue - totalPaid).
//
// A zero (unknown) expectedDue with nothing paid is NO_PAYMENT, which is
// never a billing state and never becomes a gap.
func Resolve(expectedDue, totalPaid decimal.Decimal) (Status, decimal.Decimal) {
	remaining := NonNegative(expectedDue.Sub(totalPaid))

	if !expectedDue.IsPositive() {
		if totalPaid.IsPositive() {
			return StatusPaid, decimal.Zero
		}
		return StatusNoPayment, decimal.Zero
	}
	if totalPaid.GreaterThanOrEqual(expectedDue.Sub(SettlementTolerance)) {
		return StatusPaid, remaining
	}
	if totalPaid.IsPositive() {
		return StatusPartial, remaining
	}
	return StatusPending, remaining
}
