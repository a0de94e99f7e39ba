package fiscal

import "github.com/shopspring/decimal"

// MaxAmount is the largest service amount accepted for an invoice or a catalog
// price. With a contribution of up to 100% and the stamp the total still fits
// the stored numeric(14,4).
var MaxAmount = decimal.New(999999999, -2)

// IsCents reports whether d has no digits beyond the second decimal place.
// Trailing zeros are fine: "70.000" is 70.00.
func IsCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

// ValidAmount reports whether d can be invoiced: non-negative, whole cents and
// not above MaxAmount.
func ValidAmount(d decimal.Decimal) bool {
	return !d.IsNegative() && IsCents(d) && d.LessThanOrEqual(MaxAmount)
}
