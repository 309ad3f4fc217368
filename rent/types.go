/*
Package rent provides the rent-cycle accounting and reconciliation engine.

PURPOSE:
  Given a tenancy (join date, cycle policy, bed price history) and the
  payments recorded against it, the engine deterministically computes the
  rent cycles owed since joining, the expected due per cycle, each cycle's
  settlement status, the unsettled "gaps" and what the tenant should pay next.

KEY CONCEPTS IN THIS FILE (types.go):
  - TenancyContext: join date, policy, bed price and allocation history
  - BedAllocation: one bed assignment with the price snapshot at that time
  - Payment: an installment applied against one cycle
  - Status: PAID / PARTIAL / PENDING / NO_PAYMENT

DESIGN PRINCIPLES:
  1. Purity: no I/O, no clock, no shared state. asOf is always a parameter.
  2. Precision: decimal.Decimal for every amount, half-up rounding to cents
  3. Recompute, don't mutate: gaps and statuses are derived from the full
     payment list on every pass. Voiding a payment = dropping it from the list.
  4. Best effort: a single bad payment becomes a Warning, not a failure.

USAGE:
  report, err := rent.Reconcile(tenancy, payments, rent.MustDate("2024-02-05"))
  for _, gap := range report.Gaps {
      fmt.Println(gap.Cycle, gap.RemainingDue)
  }

SEE ALSO:
  - calendar.go: Cycle boundaries for CALENDAR / MIDMONTH
  - proration.go: First-cycle proration and allocation blending
  - gaps.go: Gap detection
  - reconcile.go: The full report
*/
package rent

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TenancyID string
type PaymentID string
type BedID string

// =============================================================================
// CYCLE POLICY
// =============================================================================

type CyclePolicy string

const (
	// PolicyCalendar bills the 1st through the last day of each month.
	PolicyCalendar CyclePolicy = "CALENDAR"

	// PolicyMidMonth bills from the tenancy's anchor day to the day before
	// the anchor next month.
	PolicyMidMonth CyclePolicy = "MIDMONTH"
)

// ParsePolicy accepts the policy names case-insensitively. Anything else
// is an InvalidTenancy error; the engine never guesses a policy.
func ParsePolicy(s string) (CyclePolicy, error) {
	switch CyclePolicy(strings.ToUpper(strings.TrimSpace(s))) {
	case PolicyCalendar:
		return PolicyCalendar, nil
	case PolicyMidMonth:
		return PolicyMidMonth, nil
	}
	return "", &InvalidTenancyError{Field: "policy", Reason: fmt.Sprintf("unrecognized cycle policy %q", s)}
}

func (p CyclePolicy) Valid() bool {
	return p == PolicyCalendar || p == PolicyMidMonth
}

// =============================================================================
// TENANCY
// =============================================================================

// BedAllocation is one bed assignment. EffectiveTo == nil means "current".
type BedAllocation struct {
	BedID         BedID           `json:"bed_id,omitempty"`
	EffectiveFrom Date            `json:"effective_from"`
	EffectiveTo   *Date           `json:"effective_to,omitempty"`
	Price         decimal.Decimal `json:"price"`
}

// Covers reports whether the allocation is active on d.
func (a BedAllocation) Covers(d Date) bool {
	if d.Before(a.EffectiveFrom) {
		return false
	}
	return a.EffectiveTo == nil || d.BeforeOrEqual(*a.EffectiveTo)
}

// overlapDays counts the days of c during which the allocation is active.
func (a BedAllocation) overlapDays(from, to Date) int {
	start := MaxDate(from, a.EffectiveFrom)
	end := to
	if a.EffectiveTo != nil {
		end = MinDate(end, *a.EffectiveTo)
	}
	if end.Before(start) {
		return 0
	}
	return DaysBetween(start, end) + 1
}

// TenancyContext is everything the engine needs to know about a tenancy.
type TenancyContext struct {
	ID       TenancyID       `json:"id"`
	JoinDate Date            `json:"join_date"`
	Policy   CyclePolicy     `json:"policy"`
	BedPrice decimal.Decimal `json:"bed_price"`

	// AnchorDay is the MIDMONTH cycle start day. Zero means JoinDate.Day().
	AnchorDay int `json:"anchor_day,omitempty"`

	// Allocations ordered by EffectiveFrom. Empty means BedPrice applies
	// for the whole tenancy.
	Allocations []BedAllocation `json:"allocations,omitempty"`
}

// Anchor returns the effective MIDMONTH anchor day.
func (t TenancyContext) Anchor() int {
	if t.AnchorDay >= 1 && t.AnchorDay <= 31 {
		return t.AnchorDay
	}
	return t.JoinDate.Day()
}

// CurrentAllocation returns the open allocation, if any.
func (t TenancyContext) CurrentAllocation() (BedAllocation, bool) {
	for _, a := range t.Allocations {
		if a.EffectiveTo == nil {
			return a, true
		}
	}
	return BedAllocation{}, false
}

// PriceOn returns the bed price effective on d, falling back to BedPrice.
func (t TenancyContext) PriceOn(d Date) decimal.Decimal {
	for _, a := range t.Allocations {
		if a.Covers(d) {
			return a.Price
		}
	}
	return t.BedPrice
}

// Validate checks the tenancy invariants. A zero JoinDate is not an error
// here: DetectGaps treats it as "no dues yet".
func (t TenancyContext) Validate() error {
	if !t.Policy.Valid() {
		return &InvalidTenancyError{Field: "policy", Reason: fmt.Sprintf("unrecognized cycle policy %q", t.Policy)}
	}
	if t.BedPrice.IsNegative() {
		return &InvalidTenancyError{Field: "bed_price", Reason: "must not be negative"}
	}
	if t.AnchorDay < 0 || t.AnchorDay > 31 {
		return &InvalidTenancyError{Field: "anchor_day", Reason: fmt.Sprintf("%d is not a day of month", t.AnchorDay)}
	}
	if t.Policy == PolicyMidMonth && !t.JoinDate.IsZero() {
		cal := Calendar{Policy: PolicyMidMonth, AnchorDay: t.Anchor()}
		if start := cal.CycleContaining(t.JoinDate).Start; !start.Equal(t.JoinDate) {
			return &InvalidTenancyError{
				Field:  "anchor_day",
				Reason: fmt.Sprintf("MIDMONTH cycles anchored on day %d start on %s, not on join date %s", t.Anchor(), start, t.JoinDate),
			}
		}
	}

	open := 0
	for i, a := range t.Allocations {
		if a.EffectiveFrom.IsZero() {
			return &InvalidTenancyError{Field: "allocations", Reason: fmt.Sprintf("allocation %d has no effective_from", i)}
		}
		if a.Price.IsNegative() {
			return &InvalidTenancyError{Field: "allocations", Reason: fmt.Sprintf("allocation %d has a negative price", i)}
		}
		if a.EffectiveTo == nil {
			open++
		} else if a.EffectiveTo.Before(a.EffectiveFrom) {
			return &InvalidTenancyError{Field: "allocations", Reason: fmt.Sprintf("allocation %d ends before it starts", i)}
		}
		if i > 0 {
			prev := t.Allocations[i-1]
			if !a.EffectiveFrom.After(prev.EffectiveFrom) {
				return &InvalidTenancyError{Field: "allocations", Reason: "allocations must be ordered by effective_from"}
			}
			if prev.EffectiveTo == nil || !prev.EffectiveTo.Before(a.EffectiveFrom) {
				return &InvalidTenancyError{Field: "allocations", Reason: fmt.Sprintf("allocations %d and %d overlap", i-1, i)}
			}
		}
	}
	if open > 1 {
		return &InvalidTenancyError{Field: "allocations", Reason: "more than one open allocation"}
	}
	return nil
}

// =============================================================================
// PAYMENT
// =============================================================================

// Payment is one installment. It is applied to a cycle by CycleID when that
// matches the current timeline, else by the cycle containing PeriodStart,
// else by the cycle containing PaidOn.
type Payment struct {
	ID        PaymentID       `json:"id"`
	TenancyID TenancyID       `json:"tenancy_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	PaidOn    Date            `json:"paid_on"`

	CycleID     string `json:"cycle_id,omitempty"`
	PeriodStart Date   `json:"period_start,omitempty"`
	PeriodEnd   Date   `json:"period_end,omitempty"`

	// RecordedStatus is the status the UI showed when the payment was taken.
	// Informational only; the engine recomputes status.
	RecordedStatus Status `json:"recorded_status,omitempty"`

	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPaid      Status = "PAID"
	StatusPartial   Status = "PARTIAL"
	StatusPending   Status = "PENDING"
	StatusNoPayment Status = "NO_PAYMENT" // initial/no-data state only
)

// IsGap reports whether a cycle with this status still needs collecting.
func (s Status) IsGap() bool {
	return s == StatusPartial || s == StatusPending
}
