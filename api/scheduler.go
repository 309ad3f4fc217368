/*
scheduler.go - Automated gap snapshot scheduler

PURPOSE:
  Periodically reconciles every tenancy as of today and stores the result
  as a gap snapshot, so dashboards and collection queues can read the
  latest pending/partial dues without recomputing every tenancy.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Reconciles each tenancy as of the scheduler's Now()
  - Skips tenancies already snapshotted for that day
  - Records one run per tenancy (running -> completed | failed) for audit

  Snapshots are derived data. The engine never reads them back; the ledger
  stays the only source of truth.

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewSnapshotScheduler(store, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerSnapshots endpoint (manual run)
  - rent/reconcile.go: Reconcile
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/rent-engine/rent"
	"go.uber.org/zap"
)

// SnapshotSource is what the scheduler reads and writes.
type SnapshotSource interface {
	rent.TenancyStore
	rent.PaymentLedger
	rent.SnapshotStore
}

// SnapshotScheduler stores a daily gap snapshot per tenancy.
type SnapshotScheduler struct {
	Store         SnapshotSource
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool
	Now           func() rent.Date

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSnapshotScheduler creates a new scheduler.
func NewSnapshotScheduler(store SnapshotSource, logger *zap.Logger) *SnapshotScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotScheduler{
		Store:         store,
		Logger:        logger.Named("scheduler"),
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Now:           rent.Today,
	}
}

// Start begins the scheduler.
func (s *SnapshotScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Logger.Info("disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.Logger.Info("started", zap.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight pass to finish.
func (s *SnapshotScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Logger.Info("stopped")
}

func (s *SnapshotScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow()

	for {
		select {
		case <-ticker.C:
			s.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow triggers an immediate pass as of Now().
func (s *SnapshotScheduler) RunNow() SnapshotRunResponse {
	return s.RunOnce(context.Background(), s.Now())
}

// RunOnce snapshots every tenancy not yet snapshotted for asOf.
func (s *SnapshotScheduler) RunOnce(ctx context.Context, asOf rent.Date) SnapshotRunResponse {
	res := SnapshotRunResponse{AsOf: asOf}

	tenancies, err := s.Store.ListTenancies(ctx)
	if err != nil {
		s.Logger.Error("listing tenancies", zap.Error(err))
		return res
	}

	for _, t := range tenancies {
		done, err := s.Store.HasSnapshot(ctx, t.ID, asOf)
		if err != nil {
			s.Logger.Error("checking snapshot", zap.String("tenancy_id", string(t.ID)), zap.Error(err))
			res.Failed++
			continue
		}
		if done {
			res.Skipped++
			continue
		}

		if err := s.snapshot(ctx, t, asOf); err != nil {
			s.Logger.Warn("snapshot failed", zap.String("tenancy_id", string(t.ID)), zap.Error(err))
			res.Failed++
			continue
		}
		res.Processed++
	}

	if res.Processed > 0 || res.Skipped > 0 || res.Failed > 0 {
		s.Logger.Info("pass completed",
			zap.Stringer("as_of", asOf),
			zap.Int("processed", res.Processed),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed))
	}
	return res
}

func (s *SnapshotScheduler) snapshot(ctx context.Context, t rent.TenancyContext, asOf rent.Date) error {
	run := rent.SnapshotRun{
		ID:        uuid.NewString(),
		TenancyID: t.ID,
		AsOf:      asOf,
		Status:    rent.RunRunning,
		TotalDue:  rent.MustMoney("0"),
		StartedAt: time.Now().UTC(),
	}
	if err := s.Store.SaveRun(ctx, run); err != nil {
		return err
	}

	fail := func(err error) error {
		run.Status = rent.RunFailed
		run.Error = err.Error()
		if saveErr := s.Store.SaveRun(ctx, run); saveErr != nil {
			s.Logger.Error("saving failed run", zap.String("run_id", run.ID), zap.Error(saveErr))
		}
		return err
	}

	payments, err := s.Store.Load(ctx, t.ID)
	if err != nil {
		return fail(err)
	}
	report, err := rent.Reconcile(t, payments, asOf)
	if err != nil {
		return fail(err)
	}

	err = s.Store.SaveGapSnapshot(ctx, rent.GapSnapshot{
		TenancyID: t.ID,
		AsOf:      asOf,
		Summary:   report.Summary,
		Gaps:      report.Gaps,
	})
	if err != nil {
		return fail(err)
	}

	completed := time.Now().UTC()
	run.Status = rent.RunCompleted
	run.GapCount = len(report.Gaps)
	run.TotalDue = report.Summary.TotalDue
	run.CompletedAt = &completed
	return s.Store.SaveRun(ctx, run)
}
