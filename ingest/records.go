package ingest

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/rent-engine/rent"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their wire names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// =============================================================================
// RAW RECORDS - Strings in, validated before conversion
// =============================================================================

type tenancyRecord struct {
	ID        string `json:"id" validate:"required,max=128"`
	JoinDate  string `json:"join_date" validate:"required"`
	Policy    string `json:"policy" validate:"required,oneof=CALENDAR MIDMONTH"`
	AnchorDay int    `json:"anchor_day" validate:"min=0,max=31"`
}

type allocationRecord struct {
	BedID         string `json:"bed_id" validate:"max=128"`
	EffectiveFrom string `json:"effective_from" validate:"required"`
	EffectiveTo   string `json:"effective_to"`
}

type paymentRecord struct {
	ID          string `json:"id" validate:"max=128"`
	TenancyID   string `json:"tenancy_id" validate:"max=128"`
	PaidOn      string `json:"paid_on" validate:"required_without_all=PeriodStart CycleID"`
	CycleID     string `json:"cycle_id" validate:"max=64"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Status      string `json:"status"`
	Key         string `json:"idempotency_key" validate:"max=256"`
}

// =============================================================================
// TENANCY
// =============================================================================

// Tenancy converts an untyped tenancy payload. Every failure is an
// *rent.InvalidTenancyError naming the offending field.
func Tenancy(payload map[string]any) (rent.TenancyContext, error) {
	f := fields(payload)
	rec := tenancyRecord{
		ID:       f.str("id", "tenancy_id"),
		JoinDate: f.str("join_date", "joined_on", "move_in_date"),
		Policy:   strings.ToUpper(strings.TrimSpace(f.str("policy", "cycle_policy", "rent_cycle"))),
	}
	if v, ok := f.get("anchor_day"); ok && v != nil {
		n, err := ParseAmount(v)
		if err != nil || !n.IsInteger() {
			return rent.TenancyContext{}, &rent.InvalidTenancyError{Field: "anchor_day", Reason: "must be a whole day of month"}
		}
		rec.AnchorDay = int(n.IntPart())
	}
	if err := validate.Struct(rec); err != nil {
		return rent.TenancyContext{}, tenancyError(err)
	}

	join, err := ParseDate(rec.JoinDate)
	if err != nil {
		return rent.TenancyContext{}, &rent.InvalidTenancyError{Field: "join_date", Reason: err.Error()}
	}

	t := rent.TenancyContext{
		ID:        rent.TenancyID(rec.ID),
		JoinDate:  join,
		Policy:    rent.CyclePolicy(rec.Policy),
		AnchorDay: rec.AnchorDay,
		BedPrice:  decimal.Zero,
	}
	price, hasPrice := f.get("bed_price", "price", "rent")
	if hasPrice && price != nil {
		if t.BedPrice, err = ParseAmount(price); err != nil {
			return rent.TenancyContext{}, &rent.InvalidTenancyError{Field: "bed_price", Reason: err.Error()}
		}
	}

	if raw, ok := f.get("allocations", "bed_allocations"); ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return rent.TenancyContext{}, &rent.InvalidTenancyError{Field: "allocations", Reason: "must be a list"}
		}
		for i, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				return rent.TenancyContext{}, &rent.InvalidTenancyError{Field: "allocations", Reason: fmt.Sprintf("entry %d is not an object", i)}
			}
			a, err := allocation(m)
			if err != nil {
				return rent.TenancyContext{}, &rent.InvalidTenancyError{Field: "allocations", Reason: fmt.Sprintf("entry %d: %v", i, err)}
			}
			t.Allocations = append(t.Allocations, a)
		}
	}

	if !hasPrice || price == nil {
		current, ok := t.CurrentAllocation()
		if !ok {
			return rent.TenancyContext{}, &rent.InvalidTenancyError{Field: "bed_price", Reason: "missing"}
		}
		t.BedPrice = current.Price
	}

	if err := t.Validate(); err != nil {
		return rent.TenancyContext{}, err
	}
	return t, nil
}

func allocation(m map[string]any) (rent.BedAllocation, error) {
	f := fields(m)
	rec := allocationRecord{
		BedID:         f.str("bed_id", "bed"),
		EffectiveFrom: f.str("effective_from", "from"),
		EffectiveTo:   f.str("effective_to", "to"),
	}
	if err := validate.Struct(rec); err != nil {
		return rent.BedAllocation{}, err
	}

	from, err := ParseDate(rec.EffectiveFrom)
	if err != nil {
		return rent.BedAllocation{}, err
	}
	a := rent.BedAllocation{BedID: rent.BedID(rec.BedID), EffectiveFrom: from}
	if rec.EffectiveTo != "" {
		to, err := ParseDate(rec.EffectiveTo)
		if err != nil {
			return rent.BedAllocation{}, err
		}
		a.EffectiveTo = &to
	}
	price, ok := f.get("price", "bed_price")
	if !ok {
		return rent.BedAllocation{}, fmt.Errorf("price is required")
	}
	if a.Price, err = ParseAmount(price); err != nil {
		return rent.BedAllocation{}, err
	}
	return a, nil
}

func tenancyError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &rent.InvalidTenancyError{Field: fe.Field(), Reason: describe(fe)}
	}
	return &rent.InvalidTenancyError{Field: "tenancy", Reason: err.Error()}
}

// =============================================================================
// PAYMENTS
// =============================================================================

// Payments converts untyped payment records. Malformed records are dropped
// and reported; the rest are returned in input order.
func Payments(records []map[string]any) ([]rent.Payment, []rent.Warning) {
	payments := make([]rent.Payment, 0, len(records))
	var warnings []rent.Warning
	for i, m := range records {
		p, err := Payment(m)
		if err != nil {
			warnings = append(warnings, droppedRecord(i, p.ID, err))
			continue
		}
		payments = append(payments, p)
	}
	return payments, warnings
}

func droppedRecord(index int, id rent.PaymentID, err error) rent.Warning {
	return rent.Warning{
		Kind:      rent.WarnInconsistentPayment,
		PaymentID: id,
		Message:   fmt.Sprintf("record %d dropped: %v", index, err),
	}
}

// Payment converts one record. Records without an ID get a UUID derived
// from their content, so re-ingesting the same payload is stable.
// Errors wrap rent.ErrInconsistentPayment; the returned Payment carries the
// ID when one was readable.
func Payment(m map[string]any) (rent.Payment, error) {
	p, err := payment(m)
	if err != nil {
		return p, fmt.Errorf("%w: %w", rent.ErrInconsistentPayment, err)
	}
	return p, nil
}

func payment(m map[string]any) (rent.Payment, error) {
	f := fields(m)
	rec := paymentRecord{
		ID:          f.str("id", "payment_id"),
		TenancyID:   f.str("tenancy_id", "tenant_id"),
		PaidOn:      f.str("paid_on", "payment_date", "paid_at", "date"),
		CycleID:     f.str("cycle_id"),
		PeriodStart: f.str("period_start", "cycle_start"),
		PeriodEnd:   f.str("period_end", "cycle_end"),
		Status:      strings.ToUpper(strings.TrimSpace(f.str("status", "recorded_status"))),
		Key:         f.str("idempotency_key"),
	}
	p := rent.Payment{ID: rent.PaymentID(rec.ID)}

	if err := validate.Struct(rec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return p, fmt.Errorf("%s: %s", verrs[0].Field(), describe(verrs[0]))
		}
		return p, err
	}

	raw, ok := f.get("amount", "amount_paid")
	if !ok {
		return p, fmt.Errorf("amount is required")
	}
	amount, err := ParseAmount(raw)
	if err != nil {
		return p, err
	}

	if p.ID == "" {
		p.ID = rent.PaymentID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprint(m))).String())
	}
	p.TenancyID = rent.TenancyID(rec.TenancyID)
	p.Amount = amount
	p.CycleID = rec.CycleID
	p.IdempotencyKey = rec.Key

	dates := []struct {
		raw string
		dst *rent.Date
		key string
	}{
		{rec.PaidOn, &p.PaidOn, "paid_on"},
		{rec.PeriodStart, &p.PeriodStart, "period_start"},
		{rec.PeriodEnd, &p.PeriodEnd, "period_end"},
	}
	for _, dt := range dates {
		if dt.raw == "" {
			continue
		}
		if *dt.dst, err = ParseDate(dt.raw); err != nil {
			return p, fmt.Errorf("%s: %w", dt.key, err)
		}
	}

	switch s := rent.Status(rec.Status); s {
	case rent.StatusPaid, rent.StatusPartial, rent.StatusPending, rent.StatusNoPayment:
		p.RecordedStatus = s
	}
	return p, nil
}

// =============================================================================
// FIELD ACCESS - snake_case or camelCase keys
// =============================================================================

type fields map[string]any

// get returns the first present key, trying each name in snake_case and
// then camelCase.
func (f fields) get(names ...string) (any, bool) {
	for _, n := range names {
		if v, ok := f[n]; ok {
			return v, true
		}
		if v, ok := f[camel(n)]; ok {
			return v, true
		}
	}
	return nil, false
}

// str reads a string field. Numbers are formatted; other types read as empty
// and are caught by validation.
func (f fields) str(names ...string) string {
	v, ok := f.get(names...)
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case float64:
		return decimal.NewFromFloat(s).String()
	}
	return ""
}

func camel(snake string) string {
	parts := strings.Split(snake, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "missing"
	case "required_without_all":
		return "required when neither period_start nor cycle_id is given"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s %s", fe.Tag(), fe.Param())
	}
	return fe.Tag()
}
