// Package pricing derives tax and totals from a cart subtotal.
//
// Rounding is applied once, to the aggregate tax amount. Subtotals are kept
// exact so that summing lines and then rounding never drifts from a single
// aggregate computation.
package pricing

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNegativeRate is returned for tax rates below zero.
var ErrNegativeRate = errors.New("tax rate must not be negative")

// ErrUnknownRate is returned when selecting a rate that is not configured.
var ErrUnknownRate = errors.New("tax rate is not selectable")

// Summary is the priced view of a subtotal.
type Summary struct {
	Subtotal decimal.Decimal
	Rate     decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Tax returns subtotal × rate rounded half-up to cents.
func Tax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate).Round(2)
}

// Total returns subtotal + tax.
func Total(subtotal, tax decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax)
}

// Summarize prices a subtotal at the given rate.
func Summarize(subtotal, rate decimal.Decimal) Summary {
	tax := Tax(subtotal, rate)
	return Summary{
		Subtotal: subtotal,
		Rate:     rate,
		Tax:      tax,
		Total:    Total(subtotal, tax),
	}
}

// ValidateRate rejects negative rates.
func ValidateRate(rate decimal.Decimal) error {
	if rate.IsNegative() {
		return errors.Wrapf(ErrNegativeRate, "rate %s", rate)
	}
	return nil
}

// ParseRate parses a fractional rate such as "0.13".
func ParseRate(s string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse tax rate %q", s)
	}
	if err := ValidateRate(rate); err != nil {
		return decimal.Zero, err
	}
	return rate, nil
}

// RateTable is the set of selectable tax rates.
type RateTable struct {
	rates []decimal.Decimal
	def   decimal.Decimal
}

// NewRateTable parses the configured rates and the default selection. The
// default is added to the table when it is not listed.
func NewRateTable(rates []string, def string) (*RateTable, error) {
	t := &RateTable{}
	for _, s := range rates {
		if strings.TrimSpace(s) == "" {
			continue
		}
		r, err := ParseRate(s)
		if err != nil {
			return nil, err
		}
		if !t.Contains(r) {
			t.rates = append(t.rates, r)
		}
	}
	d, err := ParseRate(def)
	if err != nil {
		return nil, errors.Wrap(err, "default rate")
	}
	if !t.Contains(d) {
		t.rates = append(t.rates, d)
	}
	t.def = d
	return t, nil
}

// Default returns the initially selected rate.
func (t *RateTable) Default() decimal.Decimal { return t.def }

// Rates returns the selectable rates in configuration order.
func (t *RateTable) Rates() []decimal.Decimal {
	out := make([]decimal.Decimal, len(t.rates))
	copy(out, t.rates)
	return out
}

// Contains reports whether rate is selectable.
func (t *RateTable) Contains(rate decimal.Decimal) bool {
	for _, r := range t.rates {
		if r.Equal(rate) {
			return true
		}
	}
	return false
}

// Percent formats a fractional rate as a percentage, e.g. 0.13 -> "13".
func Percent(rate decimal.Decimal) string {
	return rate.Shift(2).String()
}
