package rent

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Persistence interfaces
// =============================================================================
//
// The engine never calls these. Callers load a consistent snapshot of one
// tenancy and its payments, then call the engine once.

// TenancyStore persists tenancies and their bed allocation history.
type TenancyStore interface {
	SaveTenancy(ctx context.Context, t TenancyContext) error
	GetTenancy(ctx context.Context, id TenancyID) (TenancyContext, error)
	ListTenancies(ctx context.Context) ([]TenancyContext, error)

	// AddAllocation closes the open allocation on the day before
	// a.EffectiveFrom and appends a. The result must still validate.
	AddAllocation(ctx context.Context, id TenancyID, a BedAllocation) error
}

// PaymentLedger is the source of truth for payments.
//
// INVARIANTS:
//   - Append-only: a recorded payment is never updated or deleted.
//   - Voiding appends a void record; Load no longer returns the payment.
//   - Load returns payments ordered by PaidOn, then by insertion.
type PaymentLedger interface {
	// Append fails with ErrDuplicatePayment if the ID or idempotency key
	// was already recorded.
	Append(ctx context.Context, p Payment) error

	Load(ctx context.Context, id TenancyID) ([]Payment, error)

	// Void fails with ErrPaymentNotFound for unknown or already voided IDs.
	Void(ctx context.Context, id PaymentID, reason string) error

	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}

// =============================================================================
// SNAPSHOTS - Cached reconciliation output
// =============================================================================

// GapSnapshot is a point-in-time copy of a tenancy's gaps. Derived data:
// it is never read back into the engine.
type GapSnapshot struct {
	ID        string            `json:"id"`
	TenancyID TenancyID         `json:"tenancy_id"`
	AsOf      Date              `json:"as_of"`
	Summary   RentStatusSummary `json:"summary"`
	Gaps      []Gap             `json:"gaps"`
	CreatedAt time.Time         `json:"created_at"`
}

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// SnapshotRun records one scheduler pass over one tenancy.
type SnapshotRun struct {
	ID          string          `json:"id"`
	TenancyID   TenancyID       `json:"tenancy_id"`
	AsOf        Date            `json:"as_of"`
	Status      RunStatus       `json:"status"`
	GapCount    int             `json:"gap_count"`
	TotalDue    decimal.Decimal `json:"total_due"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

type SnapshotStore interface {
	SaveGapSnapshot(ctx context.Context, s GapSnapshot) error

	// LatestGapSnapshot returns nil, nil when none exists.
	LatestGapSnapshot(ctx context.Context, id TenancyID) (*GapSnapshot, error)

	SaveRun(ctx context.Context, r SnapshotRun) error

	// ListRuns returns runs newest first; empty status means all.
	ListRuns(ctx context.Context, status RunStatus) ([]SnapshotRun, error)

	// HasSnapshot reports whether a snapshot exists for (tenancy, asOf).
	HasSnapshot(ctx context.Context, id TenancyID, asOf Date) (bool, error)
}

// =============================================================================
// ALLOCATION HISTORY
// =============================================================================

// WithAllocation returns a copy of t with the open allocation closed the day
// before a.EffectiveFrom and a appended. A tenancy with no allocations gets
// an opening allocation at BedPrice from the join date first.
func (t TenancyContext) WithAllocation(a BedAllocation) (TenancyContext, error) {
	out := t
	out.Allocations = append([]BedAllocation(nil), t.Allocations...)

	if len(out.Allocations) == 0 && !t.JoinDate.IsZero() && a.EffectiveFrom.After(t.JoinDate) {
		out.Allocations = append(out.Allocations, BedAllocation{
			EffectiveFrom: t.JoinDate,
			Price:         t.BedPrice,
		})
	}
	for i := range out.Allocations {
		if out.Allocations[i].EffectiveTo == nil {
			closeOn := a.EffectiveFrom.AddDays(-1)
			out.Allocations[i].EffectiveTo = &closeOn
		}
	}
	out.Allocations = append(out.Allocations, a)
	if a.EffectiveTo == nil {
		out.BedPrice = a.Price
	}

	if err := out.Validate(); err != nil {
		return TenancyContext{}, err
	}
	return out, nil
}
