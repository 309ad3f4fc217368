package rent_test

import (
	"testing"
	"testing/quick"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-engine/rent"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		due       string
		paid      string
		status    rent.Status
		remaining string
	}{
		{"nothing paid", "5000", "0", rent.StatusPending, "5000"},
		{"partial", "5000", "2000", rent.StatusPartial, "3000"},
		{"exact", "5000", "5000", rent.StatusPaid, "0"},
		{"within tolerance", "4935.48", "4935.47", rent.StatusPaid, "0.01"},
		{"one cent short", "5000", "4999.99", rent.StatusPaid, "0.01"},
		{"just outside tolerance", "4935.48", "4935.46", rent.StatusPartial, "0.02"},
		{"overpaid", "5000", "5200", rent.StatusPaid, "0"},
		{"unknown due, nothing paid", "0", "0", rent.StatusNoPayment, "0"},
		{"unknown due, paid", "0", "100", rent.StatusPaid, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, remaining := rent.Resolve(money(tt.due), money(tt.paid))

			assert.Equal(t, tt.status, status)
			assert.True(t, remaining.Equal(money(tt.remaining)), "remaining = %s", remaining)
		})
	}
}

func TestResolve_PartialThenFull(t *testing.T) {
	// GIVEN: expectedDue 5000
	// WHEN: 2000 is paid, then 3000 more
	// THEN: PARTIAL with 3000 remaining, then PAID with 0 remaining

	due := money("5000")

	status, remaining := rent.Resolve(due, money("2000"))
	assert.Equal(t, rent.StatusPartial, status)
	assert.True(t, remaining.Equal(money("3000")))

	status, remaining = rent.Resolve(due, money("2000").Add(money("3000")))
	assert.Equal(t, rent.StatusPaid, status)
	assert.True(t, remaining.IsZero())
}

func rank(s rent.Status) int {
	switch s {
	case rent.StatusPaid:
		return 2
	case rent.StatusPartial:
		return 1
	}
	return 0
}

func TestResolve_Property_Monotonic(t *testing.T) {
	// GIVEN: A fixed expectedDue and paid1 <= paid2
	// THEN: remaining(paid1) >= remaining(paid2), status never regresses,
	//       and remaining is always max(0, due - paid)

	property := func(dueCents, a, b uint32) bool {
		due := decimal.New(int64(dueCents%5_000_000), -2)
		p1 := decimal.New(int64(a%6_000_000), -2)
		p2 := decimal.New(int64(b%6_000_000), -2)
		if p1.GreaterThan(p2) {
			p1, p2 = p2, p1
		}

		s1, r1 := rent.Resolve(due, p1)
		s2, r2 := rent.Resolve(due, p2)

		want := decimal.Max(decimal.Zero, due.Sub(p2))
		return r1.GreaterThanOrEqual(r2) && rank(s1) <= rank(s2) && r2.Equal(want)
	}

	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 2000}))
}
