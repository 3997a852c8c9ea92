package export

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/supernova-store/internal/domain/pricing"
)

// Money formats d as US dollars with thousands separators, e.g. "$1,234.50".
// Negative amounts are prefixed with a minus sign: "-$1.00".
func Money(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// Percent formats a fractional rate, e.g. 0.13 -> "13%".
func Percent(rate decimal.Decimal) string {
	return pricing.Percent(rate) + "%"
}
