package rent

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// CYCLE - One billing period, inclusive on both ends
// =============================================================================

// Cycle is one rent cycle [Start, End]. The first cycle of a CALENDAR
// tenancy may start mid-month; all others are full cycles.
type Cycle struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// ID is the ISO-8601 interval "start/end". It is what payments reference.
func (c Cycle) ID() string {
	return c.Start.String() + "/" + c.End.String()
}

// Days returns the cycle length in days.
func (c Cycle) Days() int {
	return DaysBetween(c.Start, c.End) + 1
}

// Contains returns true if d is within [Start, End].
func (c Cycle) Contains(d Date) bool {
	return d.AfterOrEqual(c.Start) && d.BeforeOrEqual(c.End)
}

func (c Cycle) String() string {
	return "[" + c.Start.String() + ", " + c.End.String() + "]"
}

// ParseCycleID is the inverse of Cycle.ID.
func ParseCycleID(id string) (Cycle, error) {
	start, end, ok := strings.Cut(id, "/")
	if !ok {
		return Cycle{}, fmt.Errorf("invalid cycle id %q", id)
	}
	s, err := ParseDate(start)
	if err != nil {
		return Cycle{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return Cycle{}, err
	}
	if e.Before(s) {
		return Cycle{}, fmt.Errorf("invalid cycle id %q: end before start", id)
	}
	return Cycle{Start: s, End: e}, nil
}

// =============================================================================
// CALENDAR - Turns dates into cycle boundaries
// =============================================================================

// Calendar computes cycles for one policy. For MIDMONTH, AnchorDay is the
// day of month every cycle starts on.
//
// MIDMONTH months that lack the anchor day (29-31) clamp the END of the
// cycle to the month's last day, and the next cycle starts on the 1st:
//
//	anchor 31: [Jan 31, Feb 29] [Mar 1, Mar 30] [Mar 31, Apr 30] [May 1, May 30] ...
//
// so every year still has exactly twelve contiguous cycles.
type Calendar struct {
	Policy    CyclePolicy
	AnchorDay int
}

// NewCalendar builds the calendar for a tenancy.
func NewCalendar(t TenancyContext) (Calendar, error) {
	if !t.Policy.Valid() {
		return Calendar{}, &InvalidTenancyError{Field: "policy", Reason: fmt.Sprintf("unrecognized cycle policy %q", t.Policy)}
	}
	anchor := t.Anchor()
	if anchor < 1 {
		anchor = 1
	}
	return Calendar{Policy: t.Policy, AnchorDay: anchor}, nil
}

// CycleContaining returns the full cycle that contains d.
func (c Calendar) CycleContaining(d Date) Cycle {
	if c.Policy == PolicyMidMonth {
		return c.midMonthCycle(d)
	}
	return Cycle{
		Start: StartOfMonth(d.Year(), d.Month()),
		End:   EndOfMonth(d.Year(), d.Month()),
	}
}

// NextCycle steps forward exactly one cycle.
func (c Calendar) NextCycle(cy Cycle) Cycle {
	return c.CycleContaining(cy.End.AddDays(1))
}

// PreviousCycle steps back exactly one cycle.
func (c Calendar) PreviousCycle(cy Cycle) Cycle {
	return c.CycleContaining(cy.Start.AddDays(-1))
}

// JoinCycle is the cycle containing the join date, starting on the join date.
func (c Calendar) JoinCycle(join Date) Cycle {
	cy := c.CycleContaining(join)
	if join.After(cy.Start) {
		cy.Start = join
	}
	return cy
}

// Timeline returns the contiguous cycles from the join cycle through the
// cycle containing until. Empty if until is before join.
func (c Calendar) Timeline(join, until Date) []Cycle {
	if join.IsZero() || until.Before(join) {
		return nil
	}
	var cycles []Cycle
	for cy := c.JoinCycle(join); cy.Start.BeforeOrEqual(until); cy = c.NextCycle(cy) {
		cycles = append(cycles, cy)
	}
	return cycles
}

// midMonthCycle: a cycle starts on boundary(month) and ends the day before
// boundary(next month).
func (c Calendar) midMonthCycle(d Date) Cycle {
	y, m := d.Year(), d.Month()
	b := c.boundary(y, m)
	if d.AfterOrEqual(b) {
		ny, nm := addMonths(y, m, 1)
		return Cycle{Start: b, End: c.boundary(ny, nm).AddDays(-1)}
	}
	py, pm := addMonths(y, m, -1)
	return Cycle{Start: c.boundary(py, pm), End: b.AddDays(-1)}
}

// boundary is the start of the cycle belonging to (year, month): the anchor
// day when the month has it, otherwise the 1st of the following month.
func (c Calendar) boundary(year int, month time.Month) Date {
	if c.AnchorDay <= DaysInMonth(year, month) {
		return NewDate(year, month, c.AnchorDay)
	}
	ny, nm := addMonths(year, month, 1)
	return StartOfMonth(ny, nm)
}

func addMonths(year int, month time.Month, n int) (int, time.Month) {
	t := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}
