package finance

import "github.com/shopspring/decimal"

// ApplyToPaidAmount adds delta to paid and clamps the result at zero.
// The second result is true when clamping happened, meaning the reversed sum
// exceeded what was recorded as paid.
func ApplyToPaidAmount(paid, delta decimal.Decimal) (decimal.Decimal, bool) {
	next := paid.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, true
	}
	return next, false
}

// Balance returns what is still owed on an order, negative when overpaid
func Balance(grandTotal, paid decimal.Decimal) decimal.Decimal {
	return grandTotal.Sub(paid)
}
