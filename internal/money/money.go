// Package money holds the fixed-point arithmetic for receipts. All
// amounts are shopspring decimals, binary floats never touch money.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Tax computes base * rate / 100 rounded half-up to two decimal
// places. Rounding happens here, once per line, and results are summed
// afterwards, tax is never recomputed from an aggregate.
func Tax(base, ratePct decimal.Decimal) decimal.Decimal {
	return base.Mul(ratePct).Div(hundred).Round(2)
}

// Total returns the tax on base plus the tax-inclusive total.
func Total(base, ratePct decimal.Decimal) (tax, total decimal.Decimal) {
	tax = Tax(base, ratePct)
	return tax, base.Add(tax)
}

// LineTotal is the cart-side line amount: unit price plus unrounded
// per-unit tax, times quantity, quantized once at the end.
func LineTotal(unitPrice, qty, ratePct decimal.Decimal) decimal.Decimal {
	price := unitPrice
	if ratePct.IsPositive() {
		price = price.Add(unitPrice.Mul(ratePct).Div(hundred))
	}
	return price.Mul(qty).Round(2)
}
