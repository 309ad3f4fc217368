package ingest_test

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-engine/ingest"
	"github.com/warp/rent-engine/rent"
)

// =============================================================================
// DATE POLICY
// =============================================================================

func TestParseDate_Accepted(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-01-15", "2024-01-15"},
		{" 2024-02-29 ", "2024-02-29"},
		{"2024-01-15T23:30:00+05:30", "2024-01-15"},
		{"2024-01-15T23:30:00-08:00", "2024-01-15"},
		{"2024-01-15T00:00:00Z", "2024-01-15"},
		{"2024-01-15T10:00:00.123Z", "2024-01-15"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ingest.ParseDate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseDate_Rejected(t *testing.T) {
	// GIVEN: Formats the old client guessed at
	// THEN: All rejected as ambiguous, never silently reinterpreted

	for _, in := range []any{"15/01/2024", "01/15/2024", "Jan 15, 2024", "2024-1-5", "2024-02-30", "", 1705276800.0, nil} {
		_, err := ingest.ParseDate(in)
		assert.ErrorIs(t, err, ingest.ErrAmbiguousDate, "%v", in)
	}
}

// =============================================================================
// AMOUNTS
// =============================================================================

func TestParseAmount(t *testing.T) {
	for _, in := range []any{9000.0, "9000", json.Number("9000.00"), 9000} {
		got, err := ingest.ParseAmount(in)
		require.NoError(t, err, "%v", in)
		assert.Equal(t, "9000.00", got.StringFixed(2))
	}

	for _, in := range []any{math.NaN(), math.Inf(1), "", "NaN", "abc", true, nil} {
		_, err := ingest.ParseAmount(in)
		assert.ErrorIs(t, err, ingest.ErrMalformedAmount, "%v", in)
	}
}

// =============================================================================
// TENANCY
// =============================================================================

func TestTenancy_SnakeAndCamelCase(t *testing.T) {
	snake := map[string]any{"id": "t-1", "join_date": "2024-01-15", "policy": "calendar", "bed_price": 9000.0}
	camel := map[string]any{"id": "t-1", "joinDate": "2024-01-15", "policy": "CALENDAR", "bedPrice": "9000"}

	a, err := ingest.Tenancy(snake)
	require.NoError(t, err)
	b, err := ingest.Tenancy(camel)
	require.NoError(t, err)

	assert.Equal(t, rent.PolicyCalendar, a.Policy)
	assert.Equal(t, a.JoinDate, b.JoinDate)
	assert.True(t, a.BedPrice.Equal(b.BedPrice))
}

func TestTenancy_WithAllocations(t *testing.T) {
	payload := map[string]any{
		"id": "t-1", "join_date": "2024-01-15", "policy": "MIDMONTH", "anchor_day": 15.0,
		"allocations": []any{
			map[string]any{"bed_id": "A", "effective_from": "2024-01-15", "effective_to": "2024-03-15", "price": "6000"},
			map[string]any{"bedId": "B", "effectiveFrom": "2024-03-16", "price": 9000.0},
		},
	}

	tenancy, err := ingest.Tenancy(payload)

	require.NoError(t, err)
	assert.Equal(t, 15, tenancy.AnchorDay)
	require.Len(t, tenancy.Allocations, 2)
	assert.Nil(t, tenancy.Allocations[1].EffectiveTo)
	assert.Equal(t, "9000.00", tenancy.BedPrice.StringFixed(2), "bed price taken from the open allocation")
}

func TestTenancy_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		field   string
	}{
		{"missing join date", map[string]any{"id": "t", "policy": "CALENDAR", "bed_price": 1.0}, "join_date"},
		{"ambiguous join date", map[string]any{"id": "t", "join_date": "15/01/2024", "policy": "CALENDAR", "bed_price": 1.0}, "join_date"},
		{"unknown policy", map[string]any{"id": "t", "join_date": "2024-01-15", "policy": "WEEKLY", "bed_price": 1.0}, "policy"},
		{"missing price", map[string]any{"id": "t", "join_date": "2024-01-15", "policy": "CALENDAR"}, "bed_price"},
		{"bad anchor", map[string]any{"id": "t", "join_date": "2024-01-15", "policy": "MIDMONTH", "bed_price": 1.0, "anchor_day": 40.0}, "anchor_day"},
		{"join off the anchor day", map[string]any{"id": "t", "join_date": "2024-01-10", "policy": "MIDMONTH", "bed_price": 1.0, "anchor_day": 15.0}, "anchor_day"},
		{"missing id", map[string]any{"join_date": "2024-01-15", "policy": "CALENDAR", "bed_price": 1.0}, "id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ingest.Tenancy(tt.payload)

			var invalid *rent.InvalidTenancyError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestPayments_DropsMalformedWithWarning(t *testing.T) {
	records := []map[string]any{
		{"id": "p-1", "amount": "2000", "paidOn": "2024-01-20", "cycleId": "2024-01-15/2024-01-31"},
		{"id": "p-2", "amount": "abc", "paid_on": "2024-01-21"},
		{"id": "p-3", "amount": 100.0, "paid_on": "21/01/2024"},
		{"id": "p-4", "amount": 100.0},
		{"amount": 500.0, "period_start": "2024-02-01", "status": "partial"},
	}

	payments, warnings := ingest.Payments(records)

	require.Len(t, payments, 2)
	assert.Equal(t, rent.PaymentID("p-1"), payments[0].ID)
	assert.Equal(t, "2024-01-15/2024-01-31", payments[0].CycleID)
	assert.NotEmpty(t, payments[1].ID, "generated id")
	assert.Equal(t, rent.StatusPartial, payments[1].RecordedStatus)

	require.Len(t, warnings, 3)
	for _, w := range warnings {
		assert.Equal(t, rent.WarnInconsistentPayment, w.Kind)
	}
	assert.Equal(t, rent.PaymentID("p-2"), warnings[0].PaymentID)
}

func TestPayment_GeneratedIDIsStable(t *testing.T) {
	rec := map[string]any{"amount": 500.0, "paid_on": "2024-02-01"}

	a, err := ingest.Payment(rec)
	require.NoError(t, err)
	b, err := ingest.Payment(rec)
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
}

// =============================================================================
// BUNDLE
// =============================================================================

func TestDecodeBundle(t *testing.T) {
	doc := `{
		"tenancy": {"id": "t-1", "joinDate": "2024-01-15", "policy": "CALENDAR", "bedPrice": 9000},
		"payments": [
			{"id": "p-1", "amount": 2000.10, "paid_on": "2024-01-20"},
			"garbage"
		],
		"asOf": "2024-02-05"
	}`

	b, err := ingest.DecodeBundle(strings.NewReader(doc))

	require.NoError(t, err)
	assert.Equal(t, rent.TenancyID("t-1"), b.Tenancy.ID)
	require.Len(t, b.Payments, 1)
	assert.Equal(t, "2000.10", b.Payments[0].Amount.StringFixed(2))
	assert.Equal(t, rent.TenancyID("t-1"), b.Payments[0].TenancyID)
	assert.Equal(t, "2024-02-05", b.AsOf.String())
	assert.Len(t, b.Warnings, 1)
}

func TestDecodeBundle_MissingTenancy(t *testing.T) {
	_, err := ingest.DecodeBundle(strings.NewReader(`{"payments": []}`))

	assert.ErrorIs(t, err, rent.ErrInvalidTenancy)
}

func TestDecodeBundle_WarningsUseDocumentPosition(t *testing.T) {
	// GIVEN: A non-object at index 0 and a malformed payment at index 1
	// WHEN: Decoding the bundle
	// THEN: Each warning names its position in the original payments list

	doc := `{
		"tenancy": {"id": "t-1", "join_date": "2024-01-15", "policy": "CALENDAR", "bed_price": 9000},
		"payments": [
			"garbage",
			{"id": "p-bad", "amount": "abc", "paid_on": "2024-01-21"},
			{"id": "p-ok", "amount": 100, "paid_on": "2024-01-22"}
		]
	}`

	b, err := ingest.DecodeBundle(strings.NewReader(doc))

	require.NoError(t, err)
	require.Len(t, b.Payments, 1)
	assert.Equal(t, rent.PaymentID("p-ok"), b.Payments[0].ID)
	require.Len(t, b.Warnings, 2)
	assert.Contains(t, b.Warnings[0].Message, "record 0 dropped")
	assert.Contains(t, b.Warnings[1].Message, "record 1 dropped")
	assert.Equal(t, rent.PaymentID("p-bad"), b.Warnings[1].PaymentID)
}

func TestDecodeBundle_PriorityHints(t *testing.T) {
	doc := `{
		"tenancy": {"id": "t-1", "join_date": "2024-01-15", "policy": "CALENDAR", "bed_price": 9000},
		"priority_hints": {"2024-02-01/2024-02-29": 0, "2024-01-15/2024-01-31": "3"}
	}`

	b, err := ingest.DecodeBundle(strings.NewReader(doc))

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2024-02-01/2024-02-29": 0, "2024-01-15/2024-01-31": 3}, b.PriorityHints)
}

func TestDecodeBundle_InvalidPriorityHints(t *testing.T) {
	tests := []struct {
		name  string
		hints string
	}{
		{"not an object", `[1, 2]`},
		{"fractional", `{"2024-02-01/2024-02-29": 1.5}`},
		{"not a number", `{"2024-02-01/2024-02-29": "high"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"tenancy": {"id": "t-1", "join_date": "2024-01-15", "policy": "CALENDAR", "bed_price": 9000}, "priority_hints": ` + tt.hints + `}`

			_, err := ingest.DecodeBundle(strings.NewReader(doc))

			require.Error(t, err)
			assert.NotErrorIs(t, err, rent.ErrInvalidTenancy)
		})
	}
}

func TestPayment_ErrorsAreInconsistentPayments(t *testing.T) {
	p, err := ingest.Payment(map[string]any{"id": "p-1", "amount": "abc", "paid_on": "2024-01-21"})

	assert.ErrorIs(t, err, rent.ErrInconsistentPayment)
	assert.ErrorIs(t, err, ingest.ErrMalformedAmount)
	assert.Equal(t, rent.PaymentID("p-1"), p.ID)
}
