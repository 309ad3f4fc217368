package rent

import "github.com/shopspring/decimal"

// =============================================================================
// MONEY - decimal amounts with 2-digit precision
// =============================================================================
//
// All amounts are decimal.Decimal. Intermediate results (price / days) keep
// full precision; only the final figure of a computation is rounded with
// Round2. "Is settled" comparisons use SettlementTolerance, never equality.

// SettlementTolerance absorbs rounding drift between installments.
var SettlementTolerance = decimal.New(1, -2) // 0.01

// Round2 rounds half-up (away from zero) to 2 decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MustMoney parses a decimal string and panics on error (fixtures only).
func MustMoney(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// perDay returns price / days at full precision. days must be positive.
func perDay(price decimal.Decimal, days int) decimal.Decimal {
	return price.Div(decimal.NewFromInt(int64(days)))
}
