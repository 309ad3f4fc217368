package rent

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRORATION - Expected due for a cycle
// =============================================================================
//
// Only the first CALENDAR cycle is ever prorated, and only when the tenant
// joined after the 1st:
//
//	due = round2(price / daysInMonth * daysStayed)
//
// e.g. join 2024-01-15 at 9000: 9000 / 31 * 17 = 4935.48
//
// MIDMONTH cycles always start on the tenant's anchor day and are never
// prorated.

// ProratedDue returns the expected due for cycle at fullPrice.
func (c Calendar) ProratedDue(cycle Cycle, join Date, fullPrice decimal.Decimal) decimal.Decimal {
	dim, stayed, ok := c.proration(cycle, join)
	if !ok {
		return fullPrice
	}
	return Round2(perDay(fullPrice, dim).Mul(decimal.NewFromInt(int64(stayed))))
}

// proration returns the month length and clamped days stayed when cycle is
// a prorated join cycle.
func (c Calendar) proration(cycle Cycle, join Date) (daysInMonth, daysStayed int, ok bool) {
	if c.Policy != PolicyCalendar || join.IsZero() || join.Day() <= 1 || !cycle.Contains(join) {
		return 0, 0, false
	}
	daysInMonth = DaysInMonth(cycle.Start.Year(), cycle.Start.Month())
	daysStayed = clampDays(DaysBetween(MaxDate(cycle.Start, join), cycle.End)+1, 1, daysInMonth)
	return daysInMonth, daysStayed, true
}

// ExpectedDue computes a cycle's due from the tenancy's allocation history.
// When a transfer happens mid-cycle the allocation prices are blended by day
// count. Days not covered by any allocation are priced at BedPrice.
func (c Calendar) ExpectedDue(t TenancyContext, cycle Cycle) (decimal.Decimal, []Warning) {
	var warnings []Warning

	type segment struct {
		price decimal.Decimal
		days  int
	}
	var segments []segment
	covered := 0
	for _, a := range t.Allocations {
		if n := a.overlapDays(cycle.Start, cycle.End); n > 0 {
			segments = append(segments, segment{price: a.Price, days: n})
			covered += n
		}
	}
	if uncovered := cycle.Days() - covered; uncovered > 0 {
		segments = append(segments, segment{price: t.BedPrice, days: uncovered})
		if len(t.Allocations) > 0 {
			warnings = append(warnings, Warning{
				Kind:    WarnAllocationGap,
				CycleID: cycle.ID(),
				Message: fmt.Sprintf("%d day(s) not covered by any bed allocation, priced at bed price %s", uncovered, t.BedPrice.StringFixed(2)),
			})
		}
	}

	if len(segments) == 1 {
		return c.ProratedDue(cycle, t.JoinDate, segments[0].price), warnings
	}

	denom := cycle.Days()
	if dim, _, ok := c.proration(cycle, t.JoinDate); ok {
		denom = dim
	}
	total := decimal.Zero
	for _, s := range segments {
		total = total.Add(perDay(s.price, denom).Mul(decimal.NewFromInt(int64(s.days))))
	}
	return Round2(total), warnings
}

func clampDays(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
