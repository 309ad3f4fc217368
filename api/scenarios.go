/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	tenancies and payments. Each scenario shows one behavior of the engine.

AVAILABLE SCENARIOS:

	mid-month-join:  CALENDAR tenancy joining on the 15th, prorated first month
	anchor-31:       MIDMONTH tenancy anchored on the 31st (short months)
	bed-transfer:    Upgrade to a pricier bed mid-cycle
	paid-in-advance: Several months paid ahead of time
	voided-payment:  A mistaken payment voided in the ledger

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Save tenancy with its allocation history
 3. Append payments

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "mid-month-join"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/rent-engine/rent"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "mid-month-join",
		Name:        "Mid-Month Join",
		Description: "Joined 2024-01-15 at 9000/month. January is prorated to 4935.48 and partly paid.",
	},
	{
		ID:          "anchor-31",
		Name:        "Anchored on the 31st",
		Description: "MIDMONTH cycles anchored on the 31st. The first cycle ends 2024-02-29.",
	},
	{
		ID:          "bed-transfer",
		Name:        "Bed Transfer",
		Description: "Moved from a 6000 bed to a 9000 bed on 2024-03-16; the rest of March costs more.",
	},
	{
		ID:          "paid-in-advance",
		Name:        "Paid in Advance",
		Description: "January through April paid up front; the next cycle is May.",
	},
	{
		ID:          "voided-payment",
		Name:        "Voided Payment",
		Description: "A duplicate February payment was voided; February is only partly paid.",
	},
}

type scenario struct {
	tenancy  rent.TenancyContext
	payments []rent.Payment
	voids    []rent.PaymentID
}

func scenarioData(id string) (scenario, bool) {
	pay := func(tid, pid, amount, paidOn, cycleID string) rent.Payment {
		return rent.Payment{
			ID:        rent.PaymentID(pid),
			TenancyID: rent.TenancyID(tid),
			Amount:    rent.MustMoney(amount),
			PaidOn:    rent.MustDate(paidOn),
			CycleID:   cycleID,
		}
	}

	switch id {
	case "mid-month-join":
		return scenario{
			tenancy: rent.TenancyContext{
				ID: "demo-mid-month", JoinDate: rent.MustDate("2024-01-15"),
				Policy: rent.PolicyCalendar, BedPrice: rent.MustMoney("9000"),
			},
			payments: []rent.Payment{
				pay("demo-mid-month", "pay-mmj-1", "2000", "2024-01-20", "2024-01-15/2024-01-31"),
			},
		}, true

	case "anchor-31":
		return scenario{
			tenancy: rent.TenancyContext{
				ID: "demo-anchor-31", JoinDate: rent.MustDate("2024-01-31"),
				Policy: rent.PolicyMidMonth, AnchorDay: 31, BedPrice: rent.MustMoney("9000"),
			},
			payments: []rent.Payment{
				pay("demo-anchor-31", "pay-a31-1", "9000", "2024-01-31", "2024-01-31/2024-02-29"),
			},
		}, true

	case "bed-transfer":
		mar15 := rent.MustDate("2024-03-15")
		return scenario{
			tenancy: rent.TenancyContext{
				ID: "demo-transfer", JoinDate: rent.MustDate("2024-03-01"),
				Policy: rent.PolicyCalendar, BedPrice: rent.MustMoney("9000"),
				Allocations: []rent.BedAllocation{
					{BedID: "B-101", EffectiveFrom: rent.MustDate("2024-03-01"), EffectiveTo: &mar15, Price: rent.MustMoney("6000")},
					{BedID: "A-201", EffectiveFrom: rent.MustDate("2024-03-16"), Price: rent.MustMoney("9000")},
				},
			},
			payments: []rent.Payment{
				pay("demo-transfer", "pay-bt-1", "6000", "2024-03-01", "2024-03-01/2024-03-31"),
			},
		}, true

	case "paid-in-advance":
		s := scenario{tenancy: rent.TenancyContext{
			ID: "demo-advance", JoinDate: rent.MustDate("2024-01-01"),
			Policy: rent.PolicyCalendar, BedPrice: rent.MustMoney("9000"),
		}}
		for i, cycleID := range []string{"2024-01-01/2024-01-31", "2024-02-01/2024-02-29", "2024-03-01/2024-03-31", "2024-04-01/2024-04-30"} {
			s.payments = append(s.payments, pay("demo-advance", fmt.Sprintf("pay-adv-%d", i+1), "9000", "2024-01-02", cycleID))
		}
		return s, true

	case "voided-payment":
		return scenario{
			tenancy: rent.TenancyContext{
				ID: "demo-void", JoinDate: rent.MustDate("2024-01-01"),
				Policy: rent.PolicyCalendar, BedPrice: rent.MustMoney("9000"),
			},
			payments: []rent.Payment{
				pay("demo-void", "pay-v-1", "9000", "2024-01-03", "2024-01-01/2024-01-31"),
				pay("demo-void", "pay-v-2", "4000", "2024-02-03", "2024-02-01/2024-02-29"),
				pay("demo-void", "pay-v-3", "4000", "2024-02-03", "2024-02-01/2024-02-29"),
			},
			voids: []rent.PaymentID{"pay-v-3"},
		}, true
	}
	return scenario{}, false
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	data, ok := scenarioData(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}

	if err := h.loadScenario(r.Context(), data); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	h.Logger.Info("scenario loaded", zap.String("scenario_id", req.ScenarioID))
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "loaded",
		"scenario":   req.ScenarioID,
		"tenancy_id": string(data.tenancy.ID),
	})
}

// ResetDatabase deletes all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) loadScenario(ctx context.Context, s scenario) error {
	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	if err := h.Store.SaveTenancy(ctx, s.tenancy); err != nil {
		return fmt.Errorf("failed to save tenancy: %w", err)
	}
	for _, p := range s.payments {
		if err := h.Store.Append(ctx, p); err != nil {
			return fmt.Errorf("failed to append payment %s: %w", p.ID, err)
		}
	}
	for _, id := range s.voids {
		if err := h.Store.Void(ctx, id, "duplicate entry"); err != nil {
			return fmt.Errorf("failed to void payment %s: %w", id, err)
		}
	}
	return nil
}
