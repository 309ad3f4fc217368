/*
gaps.go - Per-cycle reconciliation and gap detection

PURPOSE:
  Walks every cycle from the join cycle forward, applies payments to cycles,
  computes each cycle's expected due and status, and surfaces the unsettled
  cycles ("gaps") the tenant still owes.

PAYMENT ASSIGNMENT:
  1. CycleID matching a cycle of the current timeline
  2. otherwise the cycle containing the payment's own period (PeriodStart,
     or the start encoded in a stale CycleID), clipped to the join date
  3. otherwise the cycle containing PaidOn

  A payment whose period ends before the tenancy began, or with a negative
  amount, is excluded and reported as an inconsistent_payment warning.

DAYS MISSING:
  A gap's DaysMissing is the cycle's length in days, not the time elapsed
  since the cycle ended. The "17d" badge depends on this definition.
*/
package rent

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CYCLE STATE - One row of the reconciliation
// =============================================================================

type CycleState struct {
	Cycle        Cycle           `json:"cycle"`
	CycleID      string          `json:"cycle_id"`
	ExpectedDue  decimal.Decimal `json:"expected_due"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	RemainingDue decimal.Decimal `json:"remaining_due"`
	Overpaid     decimal.Decimal `json:"overpaid"`
	Status       Status          `json:"status"`
	Payments     []PaymentID     `json:"payments,omitempty"`
}

// Gap is an unsettled cycle. Derived on every pass, never stored as truth.
type Gap struct {
	Cycle        Cycle           `json:"cycle"`
	CycleID      string          `json:"cycle_id"`
	ExpectedDue  decimal.Decimal `json:"expected_due"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	RemainingDue decimal.Decimal `json:"remaining_due"`
	DaysMissing  int             `json:"days_missing"`
	Status       Status          `json:"status"`

	// Priority is an optional external hint; lower sorts first, nil last.
	Priority *int `json:"priority,omitempty"`
}

func (s CycleState) gap() Gap {
	return Gap{
		Cycle:        s.Cycle,
		CycleID:      s.CycleID,
		ExpectedDue:  s.ExpectedDue,
		TotalPaid:    s.TotalPaid,
		RemainingDue: s.RemainingDue,
		DaysMissing:  s.Cycle.Days(),
		Status:       s.Status,
	}
}

// =============================================================================
// GAP DETECTOR
// =============================================================================

// DetectGaps returns the PARTIAL and PENDING cycles from the join cycle up
// to, but not including, the cycle containing asOf, oldest first.
//
// A tenancy without a join date, or one that joins after asOf, has no dues:
// the result is empty and err is nil. Only invalid tenancy data is an error.
func DetectGaps(t TenancyContext, payments []Payment, asOf Date) ([]Gap, []Warning, error) {
	if err := t.Validate(); err != nil {
		return nil, nil, err
	}
	if t.JoinDate.IsZero() || t.JoinDate.After(asOf) {
		return []Gap{}, nil, nil
	}

	l, err := buildLedger(t, payments, asOf)
	if err != nil {
		return nil, nil, err
	}
	return l.gapsBefore(l.cal.CycleContaining(asOf).Start), l.warnings, nil
}

// =============================================================================
// LEDGER - Payments applied to the cycle timeline
// =============================================================================

type ledger struct {
	cal      Calendar
	tenancy  TenancyContext
	states   []CycleState
	warnings []Warning
}

type placement struct {
	payment Payment
	ref     Date
	cycleID string
}

// buildLedger computes cycle states from the join cycle through the cycle
// containing through, extended to cover any later payment.
func buildLedger(t TenancyContext, payments []Payment, through Date) (*ledger, error) {
	cal, err := NewCalendar(t)
	if err != nil {
		return nil, err
	}
	l := &ledger{cal: cal, tenancy: t}
	if t.JoinDate.IsZero() {
		return l, nil
	}

	placements := make([]placement, 0, len(payments))
	end := MaxDate(through, t.JoinDate)
	for _, p := range payments {
		pl, ok := l.place(p)
		if !ok {
			continue
		}
		placements = append(placements, pl)
		end = MaxDate(end, pl.ref)
	}

	cycles := cal.Timeline(t.JoinDate, end)
	l.states = make([]CycleState, len(cycles))
	byID := make(map[string]int, len(cycles))
	for i, cy := range cycles {
		l.states[i] = CycleState{Cycle: cy, CycleID: cy.ID(), TotalPaid: decimal.Zero}
		byID[cy.ID()] = i
	}

	for _, pl := range placements {
		i, ok := byID[pl.cycleID]
		if !ok {
			i = sort.Search(len(cycles), func(i int) bool { return !cycles[i].End.Before(pl.ref) })
		}
		s := &l.states[i]
		s.TotalPaid = s.TotalPaid.Add(pl.payment.Amount)
		s.Payments = append(s.Payments, pl.payment.ID)
	}

	for i := range l.states {
		l.resolve(&l.states[i])
	}
	return l, nil
}

// place decides which date a payment is applied at, or reports why it can't be.
func (l *ledger) place(p Payment) (placement, bool) {
	join := l.tenancy.JoinDate

	if p.Amount.IsNegative() {
		l.warn(Warning{
			Kind:      WarnInconsistentPayment,
			PaymentID: p.ID,
			CycleID:   p.CycleID,
			Message:   fmt.Sprintf("negative amount %s excluded", p.Amount.String()),
		})
		return placement{}, false
	}

	start, end := p.PeriodStart, p.PeriodEnd
	if start.IsZero() && p.CycleID != "" {
		if cy, err := ParseCycleID(p.CycleID); err == nil {
			start, end = cy.Start, cy.End
		}
	}
	if start.IsZero() {
		start = p.PaidOn
	}
	if end.IsZero() || end.Before(start) {
		end = start
	}
	if start.IsZero() {
		l.warn(Warning{
			Kind:      WarnInconsistentPayment,
			PaymentID: p.ID,
			CycleID:   p.CycleID,
			Message:   "payment has no cycle, period or payment date",
		})
		return placement{}, false
	}
	if end.Before(join) {
		l.warn(Warning{
			Kind:      WarnInconsistentPayment,
			PaymentID: p.ID,
			CycleID:   p.CycleID,
			Message:   fmt.Sprintf("period %s..%s is before the tenancy began on %s", start, end, join),
		})
		return placement{}, false
	}

	return placement{payment: p, ref: MaxDate(start, join), cycleID: p.CycleID}, true
}

func (l *ledger) resolve(s *CycleState) {
	due, warnings := l.cal.ExpectedDue(l.tenancy, s.Cycle)
	l.warnings = append(l.warnings, warnings...)

	s.ExpectedDue = due
	s.Status, s.RemainingDue = Resolve(due, s.TotalPaid)
	s.Overpaid = decimal.Zero
	if over := s.TotalPaid.Sub(due); over.GreaterThan(SettlementTolerance) {
		s.Overpaid = over
		l.warn(Warning{
			Kind:    WarnOverpayment,
			CycleID: s.CycleID,
			Message: fmt.Sprintf("paid %s against expected %s (over by %s)", s.TotalPaid.StringFixed(2), due.StringFixed(2), over.StringFixed(2)),
		})
	}
}

func (l *ledger) warn(w Warning) {
	l.warnings = append(l.warnings, w)
}

// gapsBefore returns gaps for cycles that start before cutoff.
func (l *ledger) gapsBefore(cutoff Date) []Gap {
	gaps := []Gap{}
	for _, s := range l.states {
		if !s.Cycle.Start.Before(cutoff) {
			break
		}
		if s.Status.IsGap() {
			gaps = append(gaps, s.gap())
		}
	}
	return gaps
}

// lastSettled returns the index of the latest PAID cycle, or -1.
func (l *ledger) lastSettled() int {
	for i := len(l.states) - 1; i >= 0; i-- {
		if l.states[i].Status == StatusPaid {
			return i
		}
	}
	return -1
}
