package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/warp/rent-engine/rent"
)

// Bundle is one tenancy with its payments, as posted to /api/reconcile or
// read by rentctl.
//
//	{
//	  "tenancy":  {"id": "t-1", "join_date": "2024-01-15", "policy": "CALENDAR", "bed_price": 9000},
//	  "payments": [{"id": "p-1", "amount": "2000", "paid_on": "2024-01-20"}],
//	  "as_of":    "2024-02-05",
//	  "priority_hints": {"2024-01-15/2024-01-31": 1}
//	}
type Bundle struct {
	Tenancy  rent.TenancyContext
	Payments []rent.Payment

	// AsOf is zero when the document did not set it.
	AsOf rent.Date

	// PriorityHints keyed by cycle ID; nil when absent.
	PriorityHints map[string]int

	// Warnings for payment records dropped while decoding. Messages name
	// the record by its position in the document.
	Warnings []rent.Warning
}

// DecodeBundle reads a bundle document. Numbers are kept as json.Number so
// amounts never pass through float64.
func DecodeBundle(r io.Reader) (Bundle, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return Bundle{}, fmt.Errorf("failed to decode bundle: %w", err)
	}
	return BundleFromMap(doc)
}

// BundleFromMap converts an already-decoded bundle document.
func BundleFromMap(doc map[string]any) (Bundle, error) {
	f := fields(doc)

	raw, ok := f.get("tenancy", "tenant")
	tm, isMap := raw.(map[string]any)
	if !ok || !isMap {
		return Bundle{}, &rent.InvalidTenancyError{Field: "tenancy", Reason: "missing"}
	}
	tenancy, err := Tenancy(tm)
	if err != nil {
		return Bundle{}, err
	}

	b := Bundle{Tenancy: tenancy}
	if raw, ok := f.get("payments"); ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return Bundle{}, fmt.Errorf("payments must be a list")
		}
		for i, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				b.Warnings = append(b.Warnings, droppedRecord(i, "", errors.New("not an object")))
				continue
			}
			p, err := Payment(m)
			if err != nil {
				b.Warnings = append(b.Warnings, droppedRecord(i, p.ID, err))
				continue
			}
			b.Payments = append(b.Payments, p)
		}
	}
	for i := range b.Payments {
		if b.Payments[i].TenancyID == "" {
			b.Payments[i].TenancyID = tenancy.ID
		}
	}

	if raw, ok := f.get("priority_hints"); ok && raw != nil {
		if b.PriorityHints, err = priorityHints(raw); err != nil {
			return Bundle{}, err
		}
	}

	if s := f.str("as_of"); s != "" {
		if b.AsOf, err = ParseDate(s); err != nil {
			return Bundle{}, fmt.Errorf("as_of: %w", err)
		}
	}
	return b, nil
}

// priorityHints reads {"<cycle id>": <whole number>}. Lower sorts first.
func priorityHints(raw any) (map[string]int, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("priority_hints must be an object keyed by cycle id")
	}
	hints := make(map[string]int, len(m))
	for cycleID, v := range m {
		n, err := ParseAmount(v)
		if err != nil || !n.IsInteger() {
			return nil, fmt.Errorf("priority_hints: %s must be a whole number", cycleID)
		}
		hints[cycleID] = int(n.IntPart())
	}
	return hints, nil
}
