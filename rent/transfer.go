package rent

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TRANSFER DIFFERENCE - Moving beds mid-cycle
// =============================================================================

// TransferResult is the incremental amount owed for the rest of a cycle
// after a bed transfer.
//
//	remainderDays           = cycle.End - transferDate + 1
//	expectedAtNewPrice      = round2(newPrice / daysInCycle * remainderDays)
//	alreadyExpectedAtOld    = round2(oldPrice / daysInCycle * remainderDays)
//	difference              = expectedAtNewPrice - alreadyExpectedAtOld
//
// Difference is negative for a downgrade. Due never goes below zero;
// whether a downgrade is refunded is decided outside the engine.
type TransferResult struct {
	Cycle                     Cycle           `json:"cycle"`
	TransferDate              Date            `json:"transfer_date"`
	RemainderDays             int             `json:"remainder_days"`
	DaysInCycle               int             `json:"days_in_cycle"`
	ExpectedAtNewPrice        decimal.Decimal `json:"expected_at_new_price"`
	AlreadyExpectedAtOldPrice decimal.Decimal `json:"already_expected_at_old_price"`
	Difference                decimal.Decimal `json:"difference"`
	Due                       decimal.Decimal `json:"due"`
	Warnings                  []Warning       `json:"warnings,omitempty"`
}

// IsDowngrade reports whether the tenant moved to a cheaper bed.
func (r TransferResult) IsDowngrade() bool {
	return r.Difference.IsNegative()
}

// TransferDifference computes the transfer difference for cycle. A transfer
// date outside the cycle is clamped into it and reported as a warning.
func TransferDifference(cycle Cycle, oldPrice, newPrice decimal.Decimal, transferDate Date) TransferResult {
	var warnings []Warning

	daysInCycle := cycle.Days()
	if daysInCycle < 1 {
		warnings = append(warnings, Warning{
			Kind:    WarnArithmeticEdge,
			CycleID: cycle.ID(),
			Message: "cycle ends before it starts; treated as one day",
		})
		daysInCycle = 1
	}

	remainder := DaysBetween(transferDate, cycle.End) + 1
	if clamped := clampDays(remainder, 1, daysInCycle); clamped != remainder {
		warnings = append(warnings, Warning{
			Kind:    WarnArithmeticEdge,
			CycleID: cycle.ID(),
			Message: fmt.Sprintf("transfer date %s outside cycle %s; remainder clamped to %d day(s)", transferDate, cycle, clamped),
		})
		remainder = clamped
	}

	days := decimal.NewFromInt(int64(remainder))
	atNew := Round2(perDay(newPrice, daysInCycle).Mul(days))
	atOld := Round2(perDay(oldPrice, daysInCycle).Mul(days))
	diff := atNew.Sub(atOld)

	return TransferResult{
		Cycle:                     cycle,
		TransferDate:              transferDate,
		RemainderDays:             remainder,
		DaysInCycle:               daysInCycle,
		ExpectedAtNewPrice:        atNew,
		AlreadyExpectedAtOldPrice: atOld,
		Difference:                diff,
		Due:                       NonNegative(diff),
		Warnings:                  warnings,
	}
}
