/*
Package sqlite provides a SQLite-backed implementation of the rent stores.

PURPOSE:
  Implements all persistence interfaces using SQLite. In production the same
  patterns apply to PostgreSQL, with minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  rent.TenancyStore:  Tenancies and bed allocation history
  rent.PaymentLedger: Append-only payments with void records
  rent.SnapshotStore: Gap snapshots and scheduler runs

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on the payments table
  - Voiding inserts into payment_voids; Load filters voided payments out
  - The engine recomputes every status from what Load returns

KEY TABLES:
  tenancies:        One row per tenancy
  bed_allocations:  Price history per tenancy
  payments:         Immutable payment records
  payment_voids:    One row per voided payment
  gap_snapshots:    Cached reconciliation output, one per tenancy and day
  snapshot_runs:    Scheduler bookkeeping

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./data/rent.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/rent-engine/rent"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ rent.TenancyStore  = (*Store)(nil)
	_ rent.PaymentLedger = (*Store)(nil)
	_ rent.SnapshotStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tenancies (
		id TEXT PRIMARY KEY,
		join_date TEXT,
		policy TEXT NOT NULL,
		anchor_day INTEGER NOT NULL DEFAULT 0,
		bed_price TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bed_allocations (
		tenancy_id TEXT NOT NULL REFERENCES tenancies(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		bed_id TEXT,
		effective_from TEXT NOT NULL,
		effective_to TEXT,
		price TEXT NOT NULL,
		PRIMARY KEY (tenancy_id, position)
	);

	-- Payments (append-only)
	CREATE TABLE IF NOT EXISTS payments (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		tenancy_id TEXT NOT NULL REFERENCES tenancies(id),
		amount TEXT NOT NULL,
		paid_on TEXT NOT NULL DEFAULT '',
		cycle_id TEXT,
		period_start TEXT,
		period_end TEXT,
		recorded_status TEXT,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	-- Hot path: load a tenancy's payments in order
	CREATE INDEX IF NOT EXISTS idx_payments_tenancy_paid_on
		ON payments(tenancy_id, paid_on, seq);

	CREATE TABLE IF NOT EXISTS payment_voids (
		payment_id TEXT PRIMARY KEY REFERENCES payments(id),
		reason TEXT,
		voided_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS gap_snapshots (
		id TEXT PRIMARY KEY,
		tenancy_id TEXT NOT NULL,
		as_of TEXT NOT NULL,
		summary_json TEXT NOT NULL,
		gaps_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(tenancy_id, as_of)
	);

	CREATE TABLE IF NOT EXISTS snapshot_runs (
		id TEXT PRIMARY KEY,
		tenancy_id TEXT NOT NULL,
		as_of TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		gap_count INTEGER DEFAULT 0,
		total_due TEXT NOT NULL DEFAULT '0',
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_snapshot_runs_status
		ON snapshot_runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TENANCIES (rent.TenancyStore)
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SaveTenancy inserts or replaces a tenancy and its allocation history.
func (s *Store) SaveTenancy(ctx context.Context, t rent.TenancyContext) error {
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.saveTenancyTx(ctx, tx, t); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) saveTenancyTx(ctx context.Context, db execer, t rent.TenancyContext) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx, `
		INSERT INTO tenancies (id, join_date, policy, anchor_day, bed_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			join_date = excluded.join_date,
			policy = excluded.policy,
			anchor_day = excluded.anchor_day,
			bed_price = excluded.bed_price,
			updated_at = excluded.updated_at
	`,
		t.ID, nullString(t.JoinDate.String()), t.Policy, t.AnchorDay, t.BedPrice.String(), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save tenancy: %w", err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM bed_allocations WHERE tenancy_id = ?", t.ID); err != nil {
		return fmt.Errorf("failed to replace allocations: %w", err)
	}
	for i, a := range t.Allocations {
		var to sql.NullString
		if a.EffectiveTo != nil {
			to = nullString(a.EffectiveTo.String())
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO bed_allocations (tenancy_id, position, bed_id, effective_from, effective_to, price)
			VALUES (?, ?, ?, ?, ?, ?)
		`, t.ID, i, nullString(string(a.BedID)), a.EffectiveFrom.String(), to, a.Price.String())
		if err != nil {
			return fmt.Errorf("failed to save allocation: %w", err)
		}
	}
	return nil
}

func (s *Store) GetTenancy(ctx context.Context, id rent.TenancyID) (rent.TenancyContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getTenancy(ctx, s.db, id)
}

func getTenancy(ctx context.Context, db querier, id rent.TenancyID) (rent.TenancyContext, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, join_date, policy, anchor_day, bed_price
		FROM tenancies WHERE id = ?
	`, id)
	if err != nil {
		return rent.TenancyContext{}, fmt.Errorf("failed to query tenancy: %w", err)
	}
	tenancies, err := scanTenancies(rows)
	if err != nil {
		return rent.TenancyContext{}, err
	}
	if len(tenancies) == 0 {
		return rent.TenancyContext{}, rent.ErrTenancyNotFound
	}
	if err := loadAllocations(ctx, db, tenancies); err != nil {
		return rent.TenancyContext{}, err
	}
	return tenancies[0], nil
}

// ListTenancies returns all tenancies ordered by ID.
func (s *Store) ListTenancies(ctx context.Context) ([]rent.TenancyContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, join_date, policy, anchor_day, bed_price
		FROM tenancies ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenancies: %w", err)
	}
	tenancies, err := scanTenancies(rows)
	if err != nil {
		return nil, err
	}
	if err := loadAllocations(ctx, s.db, tenancies); err != nil {
		return nil, err
	}
	return tenancies, nil
}

// AddAllocation records a bed transfer. The read and the rewrite share one
// transaction under the write lock.
func (s *Store) AddAllocation(ctx context.Context, id rent.TenancyID, a rent.BedAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getTenancy(ctx, tx, id)
	if err != nil {
		return err
	}
	updated, err := current.WithAllocation(a)
	if err != nil {
		return err
	}
	if err := s.saveTenancyTx(ctx, tx, updated); err != nil {
		return err
	}
	return tx.Commit()
}

// scanTenancies drains and closes rows.
func scanTenancies(rows *sql.Rows) ([]rent.TenancyContext, error) {
	defer rows.Close()

	var out []rent.TenancyContext
	for rows.Next() {
		var (
			t        rent.TenancyContext
			joinDate sql.NullString
			price    string
		)
		if err := rows.Scan(&t.ID, &joinDate, &t.Policy, &t.AnchorDay, &price); err != nil {
			return nil, fmt.Errorf("failed to scan tenancy: %w", err)
		}
		var err error
		if joinDate.Valid {
			if t.JoinDate, err = rent.ParseDate(joinDate.String); err != nil {
				return nil, fmt.Errorf("tenancy %s: %w", t.ID, err)
			}
		}
		if t.BedPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("tenancy %s: bed_price: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func loadAllocations(ctx context.Context, db querier, tenancies []rent.TenancyContext) error {
	for i := range tenancies {
		rows, err := db.QueryContext(ctx, `
			SELECT bed_id, effective_from, effective_to, price
			FROM bed_allocations WHERE tenancy_id = ?
			ORDER BY position
		`, tenancies[i].ID)
		if err != nil {
			return fmt.Errorf("failed to query allocations: %w", err)
		}
		allocations, err := scanAllocations(rows)
		if err != nil {
			return err
		}
		tenancies[i].Allocations = allocations
	}
	return nil
}

func scanAllocations(rows *sql.Rows) ([]rent.BedAllocation, error) {
	defer rows.Close()

	var out []rent.BedAllocation
	for rows.Next() {
		var (
			a           rent.BedAllocation
			bedID, to   sql.NullString
			from, price string
		)
		if err := rows.Scan(&bedID, &from, &to, &price); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		var err error
		a.BedID = rent.BedID(bedID.String)
		if a.EffectiveFrom, err = rent.ParseDate(from); err != nil {
			return nil, err
		}
		if to.Valid {
			d, err := rent.ParseDate(to.String)
			if err != nil {
				return nil, err
			}
			a.EffectiveTo = &d
		}
		if a.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// PAYMENT LEDGER (rent.PaymentLedger)
// =============================================================================

// Append records a payment. The tenancy must exist.
func (s *Store) Append(ctx context.Context, p rent.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments
		(id, tenancy_id, amount, paid_on, cycle_id, period_start, period_end,
		 recorded_status, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID,
		p.TenancyID,
		p.Amount.String(),
		p.PaidOn.String(),
		nullString(p.CycleID),
		nullString(p.PeriodStart.String()),
		nullString(p.PeriodEnd.String()),
		nullString(string(p.RecordedStatus)),
		nullString(p.IdempotencyKey),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		switch {
		case isConstraint(err, sqlite3.ErrConstraintUnique), isConstraint(err, sqlite3.ErrConstraintPrimaryKey):
			return rent.ErrDuplicatePayment
		case isConstraint(err, sqlite3.ErrConstraintForeignKey):
			return rent.ErrTenancyNotFound
		}
		return fmt.Errorf("failed to append payment: %w", err)
	}
	return nil
}

// Load returns the tenancy's payments ordered by paid date, then insertion,
// excluding voided payments.
func (s *Store) Load(ctx context.Context, id rent.TenancyID) ([]rent.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.tenancy_id, p.amount, p.paid_on, p.cycle_id, p.period_start,
		       p.period_end, p.recorded_status, p.idempotency_key
		FROM payments p
		WHERE p.tenancy_id = ?
		  AND NOT EXISTS (SELECT 1 FROM payment_voids v WHERE v.payment_id = p.id)
		ORDER BY p.paid_on ASC, p.seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	payments := []rent.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Void appends a void record for the payment.
func (s *Store) Void(ctx context.Context, id rent.PaymentID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_voids (payment_id, reason, voided_at) VALUES (?, ?, ?)
	`, id, nullString(reason), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintForeignKey) ||
			isConstraint(err, sqlite3.ErrConstraintPrimaryKey) ||
			isConstraint(err, sqlite3.ErrConstraintUnique) {
			return rent.ErrPaymentNotFound
		}
		return fmt.Errorf("failed to void payment: %w", err)
	}
	return nil
}

// Exists checks if an idempotency key exists.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payments WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)

	return count > 0, err
}

// GetPayment returns one payment, voided or not.
func (s *Store) GetPayment(ctx context.Context, id rent.PaymentID) (rent.Payment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.tenancy_id, p.amount, p.paid_on, p.cycle_id, p.period_start,
		       p.period_end, p.recorded_status, p.idempotency_key,
		       EXISTS (SELECT 1 FROM payment_voids v WHERE v.payment_id = p.id)
		FROM payments p WHERE p.id = ?
	`, id)
	if err != nil {
		return rent.Payment{}, false, fmt.Errorf("failed to query payment: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return rent.Payment{}, false, err
		}
		return rent.Payment{}, false, rent.ErrPaymentNotFound
	}
	return scanPaymentRow(rows, true)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPayment(rows scanner) (rent.Payment, error) {
	p, _, err := scanPaymentRow(rows, false)
	return p, err
}

func scanPaymentRow(rows scanner, withVoided bool) (rent.Payment, bool, error) {
	var (
		p                                rent.Payment
		amount, paidOn                   string
		cycleID, start, end, status, key sql.NullString
		voided                           bool
	)
	dest := []any{&p.ID, &p.TenancyID, &amount, &paidOn, &cycleID, &start, &end, &status, &key}
	if withVoided {
		dest = append(dest, &voided)
	}
	if err := rows.Scan(dest...); err != nil {
		return p, false, fmt.Errorf("failed to scan payment: %w", err)
	}

	var err error
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return p, false, fmt.Errorf("payment %s: amount: %w", p.ID, err)
	}
	for _, f := range []struct {
		raw string
		dst *rent.Date
	}{{paidOn, &p.PaidOn}, {start.String, &p.PeriodStart}, {end.String, &p.PeriodEnd}} {
		if f.raw == "" {
			continue
		}
		if *f.dst, err = rent.ParseDate(f.raw); err != nil {
			return p, false, fmt.Errorf("payment %s: %w", p.ID, err)
		}
	}
	p.CycleID = cycleID.String
	p.RecordedStatus = rent.Status(status.String)
	p.IdempotencyKey = key.String
	return p, voided, nil
}

// =============================================================================
// SNAPSHOTS (rent.SnapshotStore)
// =============================================================================

// SaveGapSnapshot stores a snapshot, replacing any earlier one for the same
// tenancy and day.
func (s *Store) SaveGapSnapshot(ctx context.Context, snap rent.GapSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	summaryJSON, err := json.Marshal(snap.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	gapsJSON, err := json.Marshal(snap.Gaps)
	if err != nil {
		return fmt.Errorf("failed to encode gaps: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO gap_snapshots (id, tenancy_id, as_of, summary_json, gaps_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenancy_id, as_of) DO UPDATE SET
			summary_json = excluded.summary_json,
			gaps_json = excluded.gaps_json,
			created_at = excluded.created_at
	`, snap.ID, snap.TenancyID, snap.AsOf.String(), string(summaryJSON), string(gapsJSON),
		snap.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *Store) LatestGapSnapshot(ctx context.Context, id rent.TenancyID) (*rent.GapSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		snap                  rent.GapSnapshot
		asOf, createdAt       string
		summaryJSON, gapsJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenancy_id, as_of, summary_json, gaps_json, created_at
		FROM gap_snapshots
		WHERE tenancy_id = ?
		ORDER BY as_of DESC
		LIMIT 1
	`, id).Scan(&snap.ID, &snap.TenancyID, &asOf, &summaryJSON, &gapsJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	if snap.AsOf, err = rent.ParseDate(asOf); err != nil {
		return nil, err
	}
	snap.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if err := json.Unmarshal([]byte(summaryJSON), &snap.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	if err := json.Unmarshal([]byte(gapsJSON), &snap.Gaps); err != nil {
		return nil, fmt.Errorf("failed to decode gaps: %w", err)
	}
	return &snap, nil
}

func (s *Store) HasSnapshot(ctx context.Context, id rent.TenancyID, asOf rent.Date) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM gap_snapshots WHERE tenancy_id = ? AND as_of = ?",
		id, asOf.String(),
	).Scan(&count)
	return count > 0, err
}

// SaveRun inserts or updates a scheduler run.
func (s *Store) SaveRun(ctx context.Context, r rent.SnapshotRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completedAt *string
	if r.CompletedAt != nil {
		s := r.CompletedAt.Format(time.RFC3339)
		completedAt = &s
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshot_runs (id, tenancy_id, as_of, status, gap_count, total_due,
			error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			gap_count = excluded.gap_count,
			total_due = excluded.total_due,
			error = excluded.error,
			completed_at = excluded.completed_at
	`,
		r.ID, r.TenancyID, r.AsOf.String(), r.Status, r.GapCount, r.TotalDue.String(),
		nullString(r.Error), r.StartedAt.Format(time.RFC3339), completedAt,
	)
	return err
}

// ListRuns returns runs newest first, optionally filtered by status.
func (s *Store) ListRuns(ctx context.Context, status rent.RunStatus) ([]rent.SnapshotRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, tenancy_id, as_of, status, gap_count, total_due, error, started_at, completed_at
		FROM snapshot_runs
	`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY started_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []rent.SnapshotRun{}
	for rows.Next() {
		var (
			r                   rent.SnapshotRun
			asOf, totalDue      string
			startedAt           string
			runErr, completedAt sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.TenancyID, &asOf, &r.Status, &r.GapCount, &totalDue,
			&runErr, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		r.AsOf, _ = rent.ParseDate(asOf)
		r.TotalDue, _ = decimal.NewFromString(totalDue)
		r.Error = runErr.String
		r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Reset deletes all data (for demos and tests).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"payment_voids", "payments", "bed_allocations", "tenancies", "gap_snapshots", "snapshot_runs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == code
}
