/*
reconcile.go - The full reconciliation pass for one tenancy

PURPOSE:
  Runs the calendar, proration, status resolver, gap detector, prioritizer
  and next-cycle suggester over one consistent snapshot of tenancy and
  payments, and returns everything the presentation layer renders:

    Cycles          every cycle from join through the current cycle
    Gaps            unsettled past cycles, already prioritized
    Summary         pending / partial dues and the overall label
    Recommendation  pay the oldest gap, or start the next cycle
    Warnings        records the engine recovered from

  The presentation layer must not re-derive any of this; it only formats.

COLLECTION:
  Before a payment is handed to the ledger store, the amount is validated
  against the same report: Report.ValidateCollection(cycleID, amount).
*/
package rent

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// SUMMARY
// =============================================================================

// RentStatusSummary is the aggregate view shown on banners and lists.
type RentStatusSummary struct {
	PendingDue    decimal.Decimal `json:"pending_due"` // cycles with no payment
	PartialDue    decimal.Decimal `json:"partial_due"` // remaining on partially paid cycles
	TotalDue      decimal.Decimal `json:"total_due"`
	PendingMonths int             `json:"pending_months"`
	PartialMonths int             `json:"partial_months"`
	Label         Status          `json:"label"`
}

// Summarize aggregates gaps. The label is PENDING if any cycle is unpaid,
// PARTIAL if only partial cycles remain, PAID otherwise.
func Summarize(gaps []Gap) RentStatusSummary {
	s := RentStatusSummary{
		PendingDue: decimal.Zero,
		PartialDue: decimal.Zero,
		TotalDue:   decimal.Zero,
		Label:      StatusPaid,
	}
	for _, g := range gaps {
		switch g.Status {
		case StatusPending:
			s.PendingDue = s.PendingDue.Add(g.RemainingDue)
			s.PendingMonths++
		case StatusPartial:
			s.PartialDue = s.PartialDue.Add(g.RemainingDue)
			s.PartialMonths++
		}
	}
	s.TotalDue = s.PendingDue.Add(s.PartialDue)
	switch {
	case s.PendingMonths > 0:
		s.Label = StatusPending
	case s.PartialMonths > 0:
		s.Label = StatusPartial
	}
	return s
}

// =============================================================================
// REPORT
// =============================================================================

type Action string

const (
	ActionPayOldestGap   Action = "pay_oldest_gap"
	ActionStartNextCycle Action = "start_next_cycle"
	ActionNone           Action = "none"
)

// Recommendation is the default the "pay" form opens with.
type Recommendation struct {
	Action Action     `json:"action"`
	Gap    *Gap       `json:"gap,omitempty"`
	Next   *NextCycle `json:"next,omitempty"`
}

type Report struct {
	TenancyID      TenancyID         `json:"tenancy_id"`
	AsOf           Date              `json:"as_of"`
	Cycles         []CycleState      `json:"cycles"`
	Gaps           []Gap             `json:"gaps"`
	Summary        RentStatusSummary `json:"summary"`
	Recommendation Recommendation    `json:"recommendation"`
	Next           *NextCycle        `json:"next,omitempty"`
	Warnings       []Warning         `json:"warnings"`
}

// ReconcileOptions carries optional external inputs.
type ReconcileOptions struct {
	// PriorityHints keyed by cycle ID, e.g. from a collections queue.
	PriorityHints map[string]int
}

// Reconcile runs a full pass as of asOf.
func Reconcile(t TenancyContext, payments []Payment, asOf Date) (Report, error) {
	return ReconcileWithOptions(t, payments, asOf, ReconcileOptions{})
}

// ReconcileWithOptions is Reconcile with priority hints.
func ReconcileWithOptions(t TenancyContext, payments []Payment, asOf Date, opts ReconcileOptions) (Report, error) {
	if err := t.Validate(); err != nil {
		return Report{}, err
	}

	report := Report{
		TenancyID:      t.ID,
		AsOf:           asOf,
		Cycles:         []CycleState{},
		Gaps:           []Gap{},
		Summary:        Summarize(nil),
		Recommendation: Recommendation{Action: ActionNone},
		Warnings:       []Warning{},
	}
	if t.JoinDate.IsZero() {
		return report, nil
	}

	l, err := buildLedger(t, payments, asOf)
	if err != nil {
		return Report{}, err
	}
	if l.warnings != nil {
		report.Warnings = l.warnings
	}

	current := l.cal.CycleContaining(asOf)
	for _, s := range l.states {
		if s.Cycle.Start.After(current.End) {
			break
		}
		report.Cycles = append(report.Cycles, s)
	}

	if !t.JoinDate.After(asOf) {
		gaps := l.gapsBefore(current.Start)
		if len(opts.PriorityHints) > 0 {
			gaps = ApplyPriorityHints(gaps, opts.PriorityHints)
		}
		report.Gaps = Prioritize(gaps)
	}
	report.Summary = Summarize(report.Gaps)

	next := l.suggest()
	report.Next = &next
	if len(report.Gaps) > 0 {
		g := report.Gaps[0]
		report.Recommendation = Recommendation{Action: ActionPayOldestGap, Gap: &g}
	} else {
		report.Recommendation = Recommendation{Action: ActionStartNextCycle, Next: &next}
	}
	return report, nil
}

// =============================================================================
// COLLECTION VALIDATION
// =============================================================================

// ValidateCollection checks a payment the user is about to submit against
// the report: the cycle must be one the engine computed (a gap, a cycle of
// the timeline, or the suggested next cycle) and the amount must be positive
// and no larger than that cycle's remaining due.
func (r Report) ValidateCollection(cycleID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	remaining, ok := r.remainingFor(cycleID)
	if !ok {
		return ErrUnknownCycle
	}
	if amount.GreaterThan(remaining.Add(SettlementTolerance)) {
		return &AmountExceedsRemainingError{CycleID: cycleID, Requested: amount, RemainingDue: remaining}
	}
	return nil
}

func (r Report) remainingFor(cycleID string) (decimal.Decimal, bool) {
	for _, g := range r.Gaps {
		if g.CycleID == cycleID {
			return g.RemainingDue, true
		}
	}
	for _, s := range r.Cycles {
		if s.CycleID == cycleID {
			return s.RemainingDue, true
		}
	}
	if n := r.Next; n != nil && n.CycleIDHint == cycleID {
		return n.RemainingDue, true
	}
	return decimal.Zero, false
}
