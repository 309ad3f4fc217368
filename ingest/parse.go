/*
Package ingest converts untyped tenancy and payment payloads into the typed
rent model.

PURPOSE:
  Payment and tenancy records arrive from an external API whose shape drifts:
  snake_case or camelCase keys, numbers as JSON numbers or strings, dates as
  plain days or timestamps. This package is the only place that tolerates
  that. Nothing loosely typed gets past it; the engine only ever sees
  rent.TenancyContext and rent.Payment.

DATE POLICY:
  Exactly two textual forms are accepted:

    2024-01-15                   calendar day
    2024-01-15T23:30:00+05:30    RFC 3339; the day is taken in the
                                 timestamp's own offset (2024-01-15 here)

  Everything else (15/01/2024, 01/15/2024, "Jan 15, 2024", unix seconds)
  is rejected with ErrAmbiguousDate. The engine never guesses.

FAILURE POLICY:
  A bad tenancy is fatal (rent.InvalidTenancyError).
  A bad payment record is dropped with an inconsistent_payment warning.

SEE ALSO:
  - records.go: Field mapping and struct validation
  - bundle.go: {tenancy, payments} documents
*/
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rent-engine/rent"
)

var (
	// ErrAmbiguousDate is returned for any date not in YYYY-MM-DD or RFC 3339.
	ErrAmbiguousDate = errors.New("ambiguous or unsupported date format")

	// ErrMalformedAmount is returned for amounts that are not finite numbers.
	ErrMalformedAmount = errors.New("malformed amount")
)

// ParseDate applies the date policy to a raw JSON value.
func ParseDate(v any) (rent.Date, error) {
	s, ok := v.(string)
	if !ok {
		return rent.Date{}, fmt.Errorf("%w: %v (%T)", ErrAmbiguousDate, v, v)
	}
	s = strings.TrimSpace(s)

	if len(s) == len(rent.DateLayout) {
		if t, err := time.Parse(rent.DateLayout, s); err == nil {
			return rent.DateOf(t), nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return rent.DateOf(t), nil
	}
	return rent.Date{}, fmt.Errorf("%w: %q", ErrAmbiguousDate, s)
}

// ParseAmount accepts a JSON number (float64 or json.Number), an integer,
// or a numeric string.
func ParseAmount(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrMalformedAmount, n)
		}
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case json.Number:
		return parseAmountString(n.String())
	case string:
		return parseAmountString(n)
	case decimal.Decimal:
		return n, nil
	}
	return decimal.Zero, fmt.Errorf("%w: %v (%T)", ErrMalformedAmount, v, v)
}

func parseAmountString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "inf", "+inf", "-inf", "infinity", "-infinity":
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	return d, nil
}
