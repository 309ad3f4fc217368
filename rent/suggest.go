package rent

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// NEXT CYCLE SUGGESTER
// =============================================================================

// NextCycle is the cycle offered for a fresh, non-backdated payment.
type NextCycle struct {
	Cycle        Cycle           `json:"cycle"`
	CycleIDHint  string          `json:"cycle_id_hint"`
	ExpectedDue  decimal.Decimal `json:"expected_due"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	RemainingDue decimal.Decimal `json:"remaining_due"`
	Status       Status          `json:"status"`
}

// SuggestNext returns the cycle right after the most recently fully-settled
// cycle, or the join cycle when nothing is settled yet. Callers use it when
// DetectGaps is empty. Payments made in advance for future cycles are taken
// into account, so the suggestion may lie beyond asOf.
func SuggestNext(t TenancyContext, payments []Payment, asOf Date) (NextCycle, []Warning, error) {
	if err := t.Validate(); err != nil {
		return NextCycle{}, nil, err
	}
	if t.JoinDate.IsZero() {
		return NextCycle{}, nil, &InvalidTenancyError{Field: "join_date", Reason: "missing"}
	}
	l, err := buildLedger(t, payments, asOf)
	if err != nil {
		return NextCycle{}, nil, err
	}
	return l.suggest(), l.warnings, nil
}

func (l *ledger) suggest() NextCycle {
	i := l.lastSettled() + 1
	if i < len(l.states) {
		return nextFromState(l.states[i])
	}

	var cy Cycle
	if len(l.states) == 0 {
		cy = l.cal.JoinCycle(l.tenancy.JoinDate)
	} else {
		cy = l.cal.NextCycle(l.states[len(l.states)-1].Cycle)
	}
	due, _ := l.cal.ExpectedDue(l.tenancy, cy)
	status, remaining := Resolve(due, decimal.Zero)
	return NextCycle{
		Cycle:        cy,
		CycleIDHint:  cy.ID(),
		ExpectedDue:  due,
		TotalPaid:    decimal.Zero,
		RemainingDue: remaining,
		Status:       status,
	}
}

func nextFromState(s CycleState) NextCycle {
	return NextCycle{
		Cycle:        s.Cycle,
		CycleIDHint:  s.CycleID,
		ExpectedDue:  s.ExpectedDue,
		TotalPaid:    s.TotalPaid,
		RemainingDue: s.RemainingDue,
		Status:       s.Status,
	}
}
