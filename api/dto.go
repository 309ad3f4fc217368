/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication that are not already
  engine types. Engine results (rent.Report, rent.Gap, rent.NextCycle,
  rent.TransferResult, rent.TenancyContext) are serialized as they are:
  the presentation layer formats them, it never re-derives them.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

UNTYPED PAYLOADS:
  Tenancy creation, payment collection and /api/reconcile accept untyped
  JSON and go through the ingest package, so snake_case and camelCase keys
  and the single date policy apply everywhere.

SEE ALSO:
  - handlers.go: Uses these types
  - ingest/records.go: Payload conversion
*/
package api

import (
	"encoding/json"

	"github.com/warp/rent-engine/rent"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// TransferRequest moves a tenant to another bed from On (inclusive).
type TransferRequest struct {
	BedID    string      `json:"bed_id"`
	On       string      `json:"on"`
	NewPrice json.Number `json:"new_price"`
}

// VoidPaymentRequest is the optional body of DELETE /api/payments/{id}.
type VoidPaymentRequest struct {
	Reason string `json:"reason"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// TransferResponse is the transfer difference plus the updated tenancy.
type TransferResponse struct {
	Transfer rent.TransferResult `json:"transfer"`
	Tenancy  rent.TenancyContext `json:"tenancy"`
}

// GapsResponse lists prioritized gaps as of a date.
type GapsResponse struct {
	TenancyID rent.TenancyID `json:"tenancy_id"`
	AsOf      rent.Date      `json:"as_of"`
	Gaps      []rent.Gap     `json:"gaps"`
	Warnings  []rent.Warning `json:"warnings"`
}

// SummaryResponse wraps the status summary.
type SummaryResponse struct {
	TenancyID rent.TenancyID         `json:"tenancy_id"`
	AsOf      rent.Date              `json:"as_of"`
	Summary   rent.RentStatusSummary `json:"summary"`
}

// NextResponse wraps the suggested next cycle.
type NextResponse struct {
	TenancyID rent.TenancyID `json:"tenancy_id"`
	AsOf      rent.Date      `json:"as_of"`
	Next      rent.NextCycle `json:"next"`
	Warnings  []rent.Warning `json:"warnings"`
}

// PaymentRecordedResponse is returned after a collection is accepted.
type PaymentRecordedResponse struct {
	Payment rent.Payment `json:"payment"`
	Report  rent.Report  `json:"report"`
}

// SnapshotRunResponse reports a manual scheduler pass.
type SnapshotRunResponse struct {
	AsOf      rent.Date `json:"as_of"`
	Processed int       `json:"processed"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
