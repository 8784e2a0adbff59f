// Package money holds the fixed-point currency rules: two decimal places,
// tax rounded half-up.
package money

import (
	"github.com/shopspring/decimal"
)

const Places int32 = 2

var Zero = decimal.Zero

// Round rounds to cents, half away from zero (half-up for the non-negative
// amounts used in orders).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Parse reads a currency string such as "10.50".
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return Round(d), nil
}

// MustParse is Parse for constants and fixtures.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// LineTotal is unit price times quantity.
func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return Round(unit.Mul(decimal.NewFromInt(int64(quantity))))
}

// Tax applies rate to subtotal and rounds the result to cents.
func Tax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return Round(subtotal.Mul(rate))
}

// Sum adds amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return Round(total)
}

func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
