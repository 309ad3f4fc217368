/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the tenant app

ROUTE GROUPS:
  /api/tenancies/*      Tenancies, reconciliation, payments, transfers
  /api/payments/*       Voids
  /api/reconcile        Stateless reconciliation of a posted bundle
  /api/snapshots/*      Gap snapshot scheduler
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultAllowedOrigins is used when no origins are configured.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins ...string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Tenancy routes
		r.Route("/tenancies", func(r chi.Router) {
			r.Get("/", h.ListTenancies)
			r.Post("/", h.CreateTenancy)
			r.Get("/{id}", h.GetTenancy)
			r.Post("/{id}/transfers", h.CreateTransfer)
			r.Get("/{id}/reconciliation", h.GetReconciliation)
			r.Get("/{id}/gaps", h.GetGaps)
			r.Get("/{id}/summary", h.GetSummary)
			r.Get("/{id}/next", h.GetNext)
			r.Get("/{id}/payments", h.ListPayments)
			r.Post("/{id}/payments", h.RecordPayment)
			r.Get("/{id}/snapshot", h.GetLatestSnapshot)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Delete("/{id}", h.VoidPayment)
		})

		r.Post("/reconcile", h.ReconcileBundle)

		// Snapshot routes
		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/runs", h.ListSnapshotRuns)
			r.Post("/run", h.TriggerSnapshots)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
