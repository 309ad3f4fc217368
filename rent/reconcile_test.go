package rent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-engine/rent"
)

// =============================================================================
// SUGGEST NEXT
// =============================================================================

func TestSuggestNext_NothingPaid_JoinCycle(t *testing.T) {
	tenancy := calendarTenancy("2024-01-15", "9000")

	next, _, err := rent.SuggestNext(tenancy, nil, d("2024-01-20"))

	require.NoError(t, err)
	assert.Equal(t, "2024-01-15/2024-01-31", next.CycleIDHint)
	assert.Equal(t, "4935.48", next.ExpectedDue.StringFixed(2))
	assert.Equal(t, rent.StatusPending, next.Status)
}

func TestSuggestNext_AfterLastSettled(t *testing.T) {
	// GIVEN: MIDMONTH anchor 31 with the Feb cycle fully paid in two parts
	// WHEN: Suggesting the next cycle as of 2024-03-05
	// THEN: [2024-03-01, 2024-03-30] at 6000

	tenancy := midMonthTenancy("2024-01-31", 31, "6000")
	payments := []rent.Payment{
		payment("p-1", "2000", "2024-02-01", "2024-01-31/2024-02-29"),
		payment("p-2", "4000", "2024-02-20", "2024-01-31/2024-02-29"),
	}

	next, _, err := rent.SuggestNext(tenancy, payments, d("2024-03-05"))

	require.NoError(t, err)
	assert.Equal(t, d("2024-03-01"), next.Cycle.Start)
	assert.Equal(t, d("2024-03-30"), next.Cycle.End)
	assert.Equal(t, "6000.00", next.RemainingDue.StringFixed(2))
}

func TestSuggestNext_PaidInAdvance_LooksPastAsOf(t *testing.T) {
	tenancy := calendarTenancy("2024-01-01", "5000")
	payments := []rent.Payment{
		payment("p-1", "5000", "2024-01-02", "2024-01-01/2024-01-31"),
		payment("p-2", "5000", "2024-01-02", "2024-02-01/2024-02-29"),
	}

	next, _, err := rent.SuggestNext(tenancy, payments, d("2024-01-10"))

	require.NoError(t, err)
	assert.Equal(t, "2024-03-01/2024-03-31", next.CycleIDHint)
}

func TestSuggestNext_MissingJoinDate_Error(t *testing.T) {
	tenancy := rent.TenancyContext{ID: "t-1", Policy: rent.PolicyCalendar}

	_, _, err := rent.SuggestNext(tenancy, nil, d("2024-01-10"))

	assert.ErrorIs(t, err, rent.ErrInvalidTenancy)
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestSummarize(t *testing.T) {
	gaps := []rent.Gap{
		{Status: rent.StatusPending, RemainingDue: money("5000")},
		{Status: rent.StatusPartial, RemainingDue: money("1200.50")},
		{Status: rent.StatusPending, RemainingDue: money("4935.48")},
	}

	s := rent.Summarize(gaps)

	assert.Equal(t, "9935.48", s.PendingDue.StringFixed(2))
	assert.Equal(t, "1200.50", s.PartialDue.StringFixed(2))
	assert.Equal(t, "11135.98", s.TotalDue.StringFixed(2))
	assert.Equal(t, 2, s.PendingMonths)
	assert.Equal(t, 1, s.PartialMonths)
	assert.Equal(t, rent.StatusPending, s.Label)
}

func TestSummarize_Labels(t *testing.T) {
	assert.Equal(t, rent.StatusPaid, rent.Summarize(nil).Label)
	assert.Equal(t, rent.StatusPartial, rent.Summarize([]rent.Gap{{Status: rent.StatusPartial, RemainingDue: money("1")}}).Label)
}

// =============================================================================
// RECONCILE
// =============================================================================

func TestReconcile_RecommendsOldestGap(t *testing.T) {
	// GIVEN: Joined 2024-01-15, only February paid
	// WHEN: Reconciling as of 2024-03-10
	// THEN: January is the recommended gap; March is the current cycle

	tenancy := calendarTenancy("2024-01-15", "9000")
	payments := []rent.Payment{payment("p-1", "9000", "2024-02-01", "2024-02-01/2024-02-29")}

	report, err := rent.Reconcile(tenancy, payments, d("2024-03-10"))

	require.NoError(t, err)
	assert.Equal(t, rent.TenancyID("t-1"), report.TenancyID)
	require.Len(t, report.Cycles, 3)
	assert.Equal(t, rent.StatusPaid, report.Cycles[1].Status)
	assert.Equal(t, rent.StatusPending, report.Cycles[2].Status)

	require.Len(t, report.Gaps, 1)
	assert.Equal(t, rent.ActionPayOldestGap, report.Recommendation.Action)
	require.NotNil(t, report.Recommendation.Gap)
	assert.Equal(t, "2024-01-15/2024-01-31", report.Recommendation.Gap.CycleID)
	assert.Equal(t, "4935.48", report.Summary.TotalDue.StringFixed(2))
	assert.Equal(t, rent.StatusPending, report.Summary.Label)
}

func TestReconcile_NoGaps_RecommendsNextCycle(t *testing.T) {
	tenancy := calendarTenancy("2024-01-01", "5000")
	payments := []rent.Payment{payment("p-1", "5000", "2024-01-02", "2024-01-01/2024-01-31")}

	report, err := rent.Reconcile(tenancy, payments, d("2024-02-10"))

	require.NoError(t, err)
	assert.Empty(t, report.Gaps)
	assert.Equal(t, rent.StatusPaid, report.Summary.Label)
	assert.Equal(t, rent.ActionStartNextCycle, report.Recommendation.Action)
	require.NotNil(t, report.Recommendation.Next)
	assert.Equal(t, "2024-02-01/2024-02-29", report.Recommendation.Next.CycleIDHint)
}

func TestReconcile_PriorityHints(t *testing.T) {
	tenancy := calendarTenancy("2024-01-01", "5000")

	report, err := rent.ReconcileWithOptions(tenancy, nil, d("2024-04-10"), rent.ReconcileOptions{
		PriorityHints: map[string]int{"2024-03-01/2024-03-31": 1},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-03-01/2024-03-31",
		"2024-01-01/2024-01-31",
		"2024-02-01/2024-02-29",
	}, cycleIDs(report.Gaps))
}

func TestReconcile_FutureJoin_NothingOwed(t *testing.T) {
	tenancy := calendarTenancy("2024-06-10", "5000")

	report, err := rent.Reconcile(tenancy, nil, d("2024-05-01"))

	require.NoError(t, err)
	assert.Empty(t, report.Cycles)
	assert.Empty(t, report.Gaps)
	require.NotNil(t, report.Next)
	assert.Equal(t, "2024-06-10/2024-06-30", report.Next.CycleIDHint)
}

// =============================================================================
// COLLECTION VALIDATION
// =============================================================================

func TestValidateCollection(t *testing.T) {
	tenancy := calendarTenancy("2024-01-15", "9000")
	report, err := rent.Reconcile(tenancy, nil, d("2024-02-05"))
	require.NoError(t, err)
	jan := "2024-01-15/2024-01-31"

	t.Run("within remaining", func(t *testing.T) {
		assert.NoError(t, report.ValidateCollection(jan, money("2000")))
		assert.NoError(t, report.ValidateCollection(jan, money("4935.48")))
	})

	t.Run("exceeds remaining", func(t *testing.T) {
		err := report.ValidateCollection(jan, money("5000"))

		var over *rent.AmountExceedsRemainingError
		require.ErrorAs(t, err, &over)
		assert.Equal(t, "4935.48", over.RemainingDue.StringFixed(2))
		assert.ErrorIs(t, err, rent.ErrAmountExceedsRemaining)
		assert.True(t, rent.IsClientError(err))
	})

	t.Run("non-positive", func(t *testing.T) {
		assert.ErrorIs(t, report.ValidateCollection(jan, money("0")), rent.ErrInvalidAmount)
		assert.ErrorIs(t, report.ValidateCollection(jan, money("-10")), rent.ErrInvalidAmount)
	})

	t.Run("unknown cycle", func(t *testing.T) {
		assert.ErrorIs(t, report.ValidateCollection("2023-12-01/2023-12-31", money("10")), rent.ErrUnknownCycle)
	})

	t.Run("current cycle", func(t *testing.T) {
		assert.NoError(t, report.ValidateCollection("2024-02-01/2024-02-29", money("9000")))
	})
}
