// Package money holds the decimal conventions shared by every calculator:
// amounts and quantities are decimals rounded to two places at calculation
// boundaries.
package money

import "github.com/shopspring/decimal"

// Places is the ledger's fixed precision.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Round rounds d half away from zero to the ledger precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Sum adds values without intermediate rounding.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Percent returns base * rate / 100, unrounded.
func Percent(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(hundred)
}
