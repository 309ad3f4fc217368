package sqlite_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-engine/rent"
	"github.com/warp/rent-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedTenancy(t *testing.T, store *sqlite.Store) rent.TenancyContext {
	tenancy := rent.TenancyContext{
		ID:       "t-1",
		JoinDate: rent.MustDate("2024-01-15"),
		Policy:   rent.PolicyCalendar,
		BedPrice: rent.MustMoney("9000"),
	}
	require.NoError(t, store.SaveTenancy(context.Background(), tenancy))
	return tenancy
}

func pay(id, amount, paidOn string) rent.Payment {
	return rent.Payment{
		ID:        rent.PaymentID(id),
		TenancyID: "t-1",
		Amount:    rent.MustMoney(amount),
		PaidOn:    rent.MustDate(paidOn),
	}
}

// =============================================================================
// TENANCIES
// =============================================================================

func TestStore_TenancyRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mar15 := rent.MustDate("2024-03-15")

	tenancy := rent.TenancyContext{
		ID:        "t-1",
		JoinDate:  rent.MustDate("2024-01-31"),
		Policy:    rent.PolicyMidMonth,
		AnchorDay: 31,
		BedPrice:  rent.MustMoney("9000"),
		Allocations: []rent.BedAllocation{
			{BedID: "A", EffectiveFrom: rent.MustDate("2024-01-31"), EffectiveTo: &mar15, Price: rent.MustMoney("6000")},
			{BedID: "B", EffectiveFrom: rent.MustDate("2024-03-16"), Price: rent.MustMoney("9000")},
		},
	}
	require.NoError(t, store.SaveTenancy(ctx, tenancy))

	got, err := store.GetTenancy(ctx, "t-1")

	require.NoError(t, err)
	assert.Equal(t, tenancy.JoinDate, got.JoinDate)
	assert.Equal(t, rent.PolicyMidMonth, got.Policy)
	assert.Equal(t, 31, got.AnchorDay)
	require.Len(t, got.Allocations, 2)
	assert.Equal(t, mar15, *got.Allocations[0].EffectiveTo)
	assert.Nil(t, got.Allocations[1].EffectiveTo)
	assert.True(t, got.Allocations[0].Price.Equal(rent.MustMoney("6000")))
}

func TestStore_GetTenancy_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetTenancy(context.Background(), "missing")

	assert.ErrorIs(t, err, rent.ErrTenancyNotFound)
}

func TestStore_SaveTenancy_Invalid(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveTenancy(context.Background(), rent.TenancyContext{ID: "t-x", Policy: "WEEKLY"})

	assert.ErrorIs(t, err, rent.ErrInvalidTenancy)
}

func TestStore_AddAllocation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedTenancy(t, store)

	err := store.AddAllocation(ctx, "t-1", rent.BedAllocation{
		BedID: "B", EffectiveFrom: rent.MustDate("2024-03-16"), Price: rent.MustMoney("12000"),
	})
	require.NoError(t, err)

	tenancies, err := store.ListTenancies(ctx)
	require.NoError(t, err)
	require.Len(t, tenancies, 1)
	require.Len(t, tenancies[0].Allocations, 2)
	assert.Equal(t, rent.MustDate("2024-03-15"), *tenancies[0].Allocations[0].EffectiveTo)
	assert.True(t, tenancies[0].BedPrice.Equal(rent.MustMoney("12000")))
}

// =============================================================================
// PAYMENT LEDGER
// =============================================================================

func TestStore_AddAllocation_Concurrent(t *testing.T) {
	// GIVEN: One tenancy and eight transfers racing on different dates
	// WHEN: Adding them from separate goroutines
	// THEN: No transfer is lost; each either lands or is rejected as
	//       out of order, and the history holds the join allocation plus
	//       every accepted transfer

	store := newTestStore(t)
	ctx := context.Background()
	tenancy := seedTenancy(t, store)

	const n = 8
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		errs     = make(chan error, n)
	)
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.AddAllocation(ctx, tenancy.ID, rent.BedAllocation{
				BedID:         rent.BedID(fmt.Sprintf("bed-%d", i)),
				EffectiveFrom: tenancy.JoinDate.AddDays(10 * i),
				Price:         rent.MustMoney("6000"),
			})
			if err != nil {
				errs <- err
				return
			}
			accepted.Add(1)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.ErrorIs(t, err, rent.ErrInvalidTenancy)
	}
	got, err := store.GetTenancy(ctx, tenancy.ID)
	require.NoError(t, err)
	require.Positive(t, accepted.Load())
	assert.Len(t, got.Allocations, 1+int(accepted.Load()))
	require.NoError(t, got.Validate())
}

func TestStore_Payments_AppendLoadVoid(t *testing.T) {
	// GIVEN: Two payments recorded out of order
	// WHEN: Loading, then voiding one
	// THEN: Load is ordered by paid date and drops the voided payment

	store := newTestStore(t)
	ctx := context.Background()
	seedTenancy(t, store)

	p1 := pay("p-1", "2000.50", "2024-02-03")
	p1.CycleID = "2024-01-15/2024-01-31"
	p1.IdempotencyKey = "k-1"
	p1.RecordedStatus = rent.StatusPartial
	require.NoError(t, store.Append(ctx, p1))
	require.NoError(t, store.Append(ctx, pay("p-2", "100", "2024-01-20")))

	got, err := store.Load(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rent.PaymentID("p-2"), got[0].ID)
	assert.Equal(t, "2000.50", got[1].Amount.StringFixed(2))
	assert.Equal(t, "2024-01-15/2024-01-31", got[1].CycleID)
	assert.Equal(t, rent.StatusPartial, got[1].RecordedStatus)
	assert.True(t, got[1].PeriodStart.IsZero())

	require.NoError(t, store.Void(ctx, "p-1", "duplicate entry"))

	got, err = store.Load(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rent.PaymentID("p-2"), got[0].ID)

	_, voided, err := store.GetPayment(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, voided)
}

func TestStore_Payments_Duplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedTenancy(t, store)

	p := pay("p-1", "100", "2024-02-03")
	p.IdempotencyKey = "k-1"
	require.NoError(t, store.Append(ctx, p))

	assert.ErrorIs(t, store.Append(ctx, p), rent.ErrDuplicatePayment)

	other := pay("p-2", "100", "2024-02-03")
	other.IdempotencyKey = "k-1"
	assert.ErrorIs(t, store.Append(ctx, other), rent.ErrDuplicatePayment)

	exists, err := store.Exists(ctx, "k-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_Payments_UnknownTenancy(t *testing.T) {
	store := newTestStore(t)

	err := store.Append(context.Background(), pay("p-1", "100", "2024-02-03"))

	assert.ErrorIs(t, err, rent.ErrTenancyNotFound)
}

func TestStore_Void_Errors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedTenancy(t, store)
	require.NoError(t, store.Append(ctx, pay("p-1", "100", "2024-02-03")))

	assert.ErrorIs(t, store.Void(ctx, "nope", ""), rent.ErrPaymentNotFound)
	require.NoError(t, store.Void(ctx, "p-1", ""))
	assert.ErrorIs(t, store.Void(ctx, "p-1", ""), rent.ErrPaymentNotFound)
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

func TestStore_GapSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tenancy := seedTenancy(t, store)

	latest, err := store.LatestGapSnapshot(ctx, "t-1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	gaps, _, err := rent.DetectGaps(tenancy, nil, rent.MustDate("2024-02-05"))
	require.NoError(t, err)
	for _, asOf := range []string{"2024-02-05", "2024-02-06"} {
		require.NoError(t, store.SaveGapSnapshot(ctx, rent.GapSnapshot{
			TenancyID: "t-1",
			AsOf:      rent.MustDate(asOf),
			Summary:   rent.Summarize(gaps),
			Gaps:      gaps,
		}))
	}

	latest, err = store.LatestGapSnapshot(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2024-02-06", latest.AsOf.String())
	require.Len(t, latest.Gaps, 1)
	assert.Equal(t, "4935.48", latest.Gaps[0].RemainingDue.StringFixed(2))
	assert.Equal(t, rent.StatusPending, latest.Summary.Label)

	has, err := store.HasSnapshot(ctx, "t-1", rent.MustDate("2024-02-05"))
	require.NoError(t, err)
	assert.True(t, has)
}

func TestStore_Runs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2024, 2, 5, 2, 0, 0, 0, time.UTC)

	run := rent.SnapshotRun{
		ID:        "run-1",
		TenancyID: "t-1",
		AsOf:      rent.MustDate("2024-02-05"),
		Status:    rent.RunRunning,
		TotalDue:  rent.MustMoney("0"),
		StartedAt: started,
	}
	require.NoError(t, store.SaveRun(ctx, run))

	done := started.Add(time.Second)
	run.Status = rent.RunCompleted
	run.GapCount = 1
	run.TotalDue = rent.MustMoney("4935.48")
	run.CompletedAt = &done
	require.NoError(t, store.SaveRun(ctx, run))

	runs, err := store.ListRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, rent.RunCompleted, runs[0].Status)
	assert.Equal(t, "4935.48", runs[0].TotalDue.StringFixed(2))
	require.NotNil(t, runs[0].CompletedAt)

	failed, err := store.ListRuns(ctx, rent.RunFailed)
	require.NoError(t, err)
	assert.Empty(t, failed)
}
