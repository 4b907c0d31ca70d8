// Package money centralises decimal arithmetic rules for monetary amounts
// and quantities: two-decimal rounding for money and the comparison
// tolerances used when checking balances and quantity budgets.
package money

import "github.com/shopspring/decimal"

var (
	// Tolerance is the monetary comparison epsilon.
	Tolerance = decimal.RequireFromString("0.01")
	// QtyTolerance is the quantity comparison epsilon.
	QtyTolerance = decimal.RequireFromString("0.000001")
	// Hundred divides percentage rates.
	Hundred = decimal.NewFromInt(100)
)

// Round rounds a monetary amount to two decimals, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Equal reports whether a and b differ by no more than the monetary tolerance.
func Equal(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// LessOrEqual reports whether a <= b within the monetary tolerance.
func LessOrEqual(a, b decimal.Decimal) bool {
	return a.LessThanOrEqual(b.Add(Tolerance))
}

// QtyLessOrEqual reports whether a <= b within the quantity tolerance.
func QtyLessOrEqual(a, b decimal.Decimal) bool {
	return a.LessThanOrEqual(b.Add(QtyTolerance))
}

// Rate converts a percentage (21 -> 0.21) for VAT and retention math.
func Rate(pct decimal.Decimal) decimal.Decimal {
	return pct.Div(Hundred)
}

// ClampZero returns zero when d is negative, d otherwise.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
