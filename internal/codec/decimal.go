package codec

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Normalize reduces d to its shortest exact decimal representation, then
// caps its fractional precision at maxScale digits (rounding half-up) so
// excess precision is never transmitted to the venue. Normalize is
// idempotent: Normalize(Normalize(d)) == Normalize(d).
func Normalize(d decimal.Decimal, maxScale int32) decimal.Decimal {
	n := shortestForm(d)
	if -n.Exponent() > maxScale {
		n = shortestForm(n.Round(maxScale))
	}
	return n
}

// shortestForm strips trailing fractional zeros, e.g. 1.2300 -> 1.23 and
// 5.000 -> 5.
func shortestForm(d decimal.Decimal) decimal.Decimal {
	s := d.String()
	if !strings.Contains(s, ".") {
		return d
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	out, err := decimal.NewFromString(s)
	if err != nil {
		// d.String() always round-trips; this is unreachable.
		return d
	}
	return out
}
