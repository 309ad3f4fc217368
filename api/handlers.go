/*
handlers.go - HTTP API handlers for the rent reconciliation engine

PURPOSE:
  Exposes the rent engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine. Handlers never compute
  dues, statuses or gaps themselves: they load one consistent snapshot of
  a tenancy and its payments, call the engine once, and serialize the result.

ENDPOINTS:
  GET    /api/health                          Store reachability

  Tenancies:
    GET    /api/tenancies                       List tenancies
    POST   /api/tenancies                       Create tenancy (untyped payload)
    GET    /api/tenancies/{id}                  Get tenancy
    POST   /api/tenancies/{id}/transfers        Bed transfer

  Reconciliation (all accept ?as_of=YYYY-MM-DD, default today):
    GET    /api/tenancies/{id}/reconciliation   Full report
    GET    /api/tenancies/{id}/gaps             Prioritized gaps
    GET    /api/tenancies/{id}/summary          Status summary
    GET    /api/tenancies/{id}/next             Suggested next cycle
    POST   /api/reconcile                       Stateless, posted bundle

  Payments:
    GET    /api/tenancies/{id}/payments         Ledger (voided excluded)
    POST   /api/tenancies/{id}/payments         Record a collection
    DELETE /api/payments/{id}                   Void a payment

  Snapshots:
    GET    /api/tenancies/{id}/snapshot         Latest gap snapshot
    GET    /api/snapshots/runs                  Scheduler runs (?status=)
    POST   /api/snapshots/run                   Run the scheduler now

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input, unknown cycle, amount exceeds remaining due
  - 404: Tenancy or payment not found
  - 409: Duplicate payment ID or idempotency key
  - 422: Tenancy data the engine cannot reconcile
  - 500: Internal errors (logged)

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scheduler.go: Gap snapshot scheduler
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/rent-engine/ingest"
	"github.com/warp/rent-engine/rent"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is everything the API persists.
type Store interface {
	rent.TenancyStore
	rent.PaymentLedger
	rent.SnapshotStore

	// Reset deletes all data (demo scenarios).
	Reset(ctx context.Context) error

	// Ping checks the backing database is reachable.
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  Store
	Logger *zap.Logger

	// Now is the default as-of date.
	Now func() rent.Date

	// Serializes validate-then-append so two collections cannot both pass
	// against the same remaining due.
	collectMu sync.Mutex

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:  store,
		Logger: logger,
		Now:    rent.Today,
	}
}

// Health reports whether the store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		h.Logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// TENANCY HANDLERS
// =============================================================================

// ListTenancies returns all tenancies.
func (h *Handler) ListTenancies(w http.ResponseWriter, r *http.Request) {
	tenancies, err := h.Store.ListTenancies(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenancies)
}

// GetTenancy returns a single tenancy with its allocation history.
func (h *Handler) GetTenancy(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.GetTenancy(r.Context(), tenancyID(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateTenancy creates or replaces a tenancy from an untyped payload.
func (h *Handler) CreateTenancy(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeObject(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	t, err := ingest.Tenancy(payload)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if err := h.Store.SaveTenancy(r.Context(), t); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.Logger.Info("tenancy saved",
		zap.String("tenancy_id", string(t.ID)),
		zap.String("policy", string(t.Policy)),
		zap.Stringer("join_date", t.JoinDate))
	writeJSON(w, http.StatusCreated, t)
}

// CreateTransfer moves the tenant to another bed and returns the difference
// owed for the rest of the cycle containing the transfer date.
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := tenancyID(r)

	var req TransferRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	on, err := ingest.ParseDate(req.On)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transfer date", err)
		return
	}
	newPrice, err := ingest.ParseAmount(req.NewPrice)
	if err != nil || newPrice.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid new_price", err)
		return
	}

	t, err := h.Store.GetTenancy(ctx, id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	cal, err := rent.NewCalendar(t)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	cycle := cal.CycleContaining(on)
	result := rent.TransferDifference(cycle, t.PriceOn(on), newPrice, on)

	alloc := rent.BedAllocation{BedID: rent.BedID(req.BedID), EffectiveFrom: on, Price: newPrice}
	if err := h.Store.AddAllocation(ctx, id, alloc); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	updated, err := h.Store.GetTenancy(ctx, id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.Logger.Info("bed transfer recorded",
		zap.String("tenancy_id", string(id)),
		zap.String("cycle_id", cycle.ID()),
		zap.String("difference", result.Difference.StringFixed(2)))
	writeJSON(w, http.StatusOK, TransferResponse{Transfer: result, Tenancy: updated})
}

// =============================================================================
// RECONCILIATION HANDLERS
// =============================================================================

// GetReconciliation returns the full report.
func (h *Handler) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	report, ok := h.reportFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetGaps returns the prioritized gaps.
func (h *Handler) GetGaps(w http.ResponseWriter, r *http.Request) {
	report, ok := h.reportFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, GapsResponse{
		TenancyID: report.TenancyID,
		AsOf:      report.AsOf,
		Gaps:      report.Gaps,
		Warnings:  report.Warnings,
	})
}

// GetSummary returns the status summary.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	report, ok := h.reportFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		TenancyID: report.TenancyID,
		AsOf:      report.AsOf,
		Summary:   report.Summary,
	})
}

// GetNext returns the cycle a fresh payment should go to.
func (h *Handler) GetNext(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	t, payments, err := h.load(r.Context(), tenancyID(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	next, warnings, err := rent.SuggestNext(t, payments, asOf)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if warnings == nil {
		warnings = []rent.Warning{}
	}
	writeJSON(w, http.StatusOK, NextResponse{TenancyID: t.ID, AsOf: asOf, Next: next, Warnings: warnings})
}

// ReconcileBundle reconciles a posted tenancy and payments without touching
// the store, ordering gaps by the bundle's priority_hints when present.
// Records dropped while decoding are reported as warnings.
func (h *Handler) ReconcileBundle(w http.ResponseWriter, r *http.Request) {
	bundle, err := ingest.DecodeBundle(r.Body)
	if err != nil {
		if errors.Is(err, rent.ErrInvalidTenancy) {
			h.writeDomainError(w, r, err)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid bundle", err)
		return
	}

	asOf := bundle.AsOf
	if asOf.IsZero() {
		var ok bool
		if asOf, ok = h.asOf(w, r); !ok {
			return
		}
	}

	report, err := rent.ReconcileWithOptions(bundle.Tenancy, bundle.Payments, asOf,
		rent.ReconcileOptions{PriorityHints: bundle.PriorityHints})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	report.Warnings = append(bundle.Warnings, report.Warnings...)
	if report.Warnings == nil {
		report.Warnings = []rent.Warning{}
	}
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns the tenancy's ledger, voided payments excluded.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	_, payments, err := h.load(r.Context(), tenancyID(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if payments == nil {
		payments = []rent.Payment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

// RecordPayment validates a collection against the cycle's remaining due
// and appends it to the ledger. Without cycle_id the cycle containing
// period_start is used; without either, the recommended cycle: the oldest
// gap, else the suggested next cycle.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := tenancyID(r)

	payload, err := decodeObject(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	if _, has := payload["id"]; !has {
		payload["id"] = uuid.NewString()
	}
	if _, has := payload["paid_on"]; !has {
		if _, has := payload["paidOn"]; !has {
			payload["paid_on"] = asOf.String()
		}
	}

	p, err := ingest.Payment(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment", err)
		return
	}
	if p.TenancyID != "" && p.TenancyID != id {
		writeError(w, http.StatusBadRequest, "Payment tenancy_id does not match URL", nil)
		return
	}
	p.TenancyID = id

	h.collectMu.Lock()
	defer h.collectMu.Unlock()

	if p.IdempotencyKey != "" {
		seen, err := h.Store.Exists(ctx, p.IdempotencyKey)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		if seen {
			h.writeDomainError(w, r, rent.ErrDuplicatePayment)
			return
		}
	}

	t, payments, err := h.load(ctx, id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	report, err := rent.Reconcile(t, payments, asOf)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if p.CycleID == "" {
		p.CycleID = collectionCycle(t, report, p.PeriodStart)
	}
	if err := report.ValidateCollection(p.CycleID, p.Amount); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	if err := h.Store.Append(ctx, p); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	after, err := rent.Reconcile(t, append(payments, p), asOf)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.Logger.Info("payment recorded",
		zap.String("tenancy_id", string(id)),
		zap.String("payment_id", string(p.ID)),
		zap.String("cycle_id", p.CycleID),
		zap.String("amount", p.Amount.StringFixed(2)))
	writeJSON(w, http.StatusCreated, PaymentRecordedResponse{Payment: p, Report: after})
}

// VoidPayment appends a void record. The payment stays in the ledger but
// no longer counts toward any cycle.
func (h *Handler) VoidPayment(w http.ResponseWriter, r *http.Request) {
	id := rent.PaymentID(chi.URLParam(r, "id"))

	var req VoidPaymentRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	if err := h.Store.Void(r.Context(), id, req.Reason); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.Logger.Info("payment voided", zap.String("payment_id", string(id)), zap.String("reason", req.Reason))
	writeJSON(w, http.StatusOK, map[string]string{"payment_id": string(id), "status": "voided"})
}

// =============================================================================
// SNAPSHOT HANDLERS
// =============================================================================

// GetLatestSnapshot returns the most recent stored gap snapshot.
func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	id := tenancyID(r)
	snap, err := h.Store.LatestGapSnapshot(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("No snapshot for tenancy %s", id), nil)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListSnapshotRuns returns scheduler runs, newest first.
func (h *Handler) ListSnapshotRuns(w http.ResponseWriter, r *http.Request) {
	status := rent.RunStatus(r.URL.Query().Get("status"))
	runs, err := h.Store.ListRuns(r.Context(), status)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if runs == nil {
		runs = []rent.SnapshotRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// TriggerSnapshots runs one scheduler pass as of ?as_of (default today).
func (h *Handler) TriggerSnapshots(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.asOf(w, r)
	if !ok {
		return
	}
	s := NewSnapshotScheduler(h.Store, h.Logger)
	res := s.RunOnce(r.Context(), asOf)
	writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// HELPERS
// =============================================================================

func tenancyID(r *http.Request) rent.TenancyID {
	return rent.TenancyID(chi.URLParam(r, "id"))
}

// load reads one consistent snapshot of a tenancy and its payments.
func (h *Handler) load(ctx context.Context, id rent.TenancyID) (rent.TenancyContext, []rent.Payment, error) {
	t, err := h.Store.GetTenancy(ctx, id)
	if err != nil {
		return rent.TenancyContext{}, nil, err
	}
	payments, err := h.Store.Load(ctx, id)
	if err != nil {
		return rent.TenancyContext{}, nil, err
	}
	return t, payments, nil
}

func (h *Handler) reportFor(w http.ResponseWriter, r *http.Request) (rent.Report, bool) {
	asOf, ok := h.asOf(w, r)
	if !ok {
		return rent.Report{}, false
	}
	t, payments, err := h.load(r.Context(), tenancyID(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return rent.Report{}, false
	}
	report, err := rent.Reconcile(t, payments, asOf)
	if err != nil {
		h.writeDomainError(w, r, err)
		return rent.Report{}, false
	}
	if len(report.Warnings) > 0 {
		h.Logger.Debug("reconciliation warnings",
			zap.String("tenancy_id", string(t.ID)),
			zap.Int("count", len(report.Warnings)))
	}
	return report, true
}

// asOf reads ?as_of, defaulting to today. Writes a 400 on a bad date.
func (h *Handler) asOf(w http.ResponseWriter, r *http.Request) (rent.Date, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return h.Now(), true
	}
	d, err := ingest.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return rent.Date{}, false
	}
	return d, true
}

// collectionCycle resolves the target of a collection posted without a
// cycle_id.
func collectionCycle(t rent.TenancyContext, report rent.Report, periodStart rent.Date) string {
	if periodStart.IsZero() {
		return recommendedCycle(report)
	}
	for _, s := range report.Cycles {
		if s.Cycle.Contains(periodStart) {
			return s.CycleID
		}
	}
	if n := report.Next; n != nil && n.Cycle.Contains(periodStart) {
		return n.CycleIDHint
	}
	cal, err := rent.NewCalendar(t)
	if err != nil {
		return ""
	}
	// Outside the computed cycles; ValidateCollection rejects it.
	return cal.CycleContaining(periodStart).ID()
}

func recommendedCycle(report rent.Report) string {
	rec := report.Recommendation
	switch {
	case rec.Gap != nil:
		return rec.Gap.CycleID
	case rec.Next != nil:
		return rec.Next.CycleIDHint
	case report.Next != nil:
		return report.Next.CycleIDHint
	}
	return ""
}

func decodeObject(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("expected a JSON object")
	}
	return m, nil
}

// writeDomainError maps engine and store errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var over *rent.AmountExceedsRemainingError
	var invalid *rent.InvalidTenancyError

	switch {
	case errors.As(err, &over):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "amount_exceeds_remaining",
			Details: map[string]any{
				"cycle_id":      over.CycleID,
				"requested":     over.Requested,
				"remaining_due": over.RemainingDue,
			},
		})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   err.Error(),
			Code:    "invalid_tenancy",
			Details: map[string]string{"field": invalid.Field, "reason": invalid.Reason},
		})
	case errors.Is(err, rent.ErrDuplicatePayment):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "duplicate_payment"})
	case rent.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, rent.ErrUnknownCycle):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "unknown_cycle"})
	case errors.Is(err, rent.ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_amount"})
	case rent.IsClientError(err),
		errors.Is(err, ingest.ErrAmbiguousDate),
		errors.Is(err, ingest.ErrMalformedAmount):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_input"})
	default:
		h.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
