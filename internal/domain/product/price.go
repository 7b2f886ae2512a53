package product

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

// FinalPrice applies every discount to the remaining price in turn and then
// adds VAT once:
//
//	base * Π(1 - percent/100) * (1 + vat/100)
//
// Multiplication commutes, so discount order does not matter. No rounding is
// applied.
func (p Product) FinalPrice(vat decimal.Decimal) decimal.Decimal {
	price := p.BasePrice
	for _, d := range p.Discounts {
		price = price.Mul(one.Sub(d.Percent.Shift(-2)))
	}
	return price.Mul(one.Add(vat.Shift(-2)))
}

// Stored precision of money and percent values. A value with more
// fractional digits than the scale would be rounded by the store.
const (
	PriceScale   = 2
	PercentScale = 4
)

// maxDecimalDigits bounds the exponent and coefficient of decimals accepted
// from outside. Comparisons rescale operands to a common exponent, so an
// unbounded exponent makes them arbitrarily expensive.
const maxDecimalDigits = 38

var (
	hundred  = decimal.NewFromInt(100)
	maxPrice = decimal.New(1, 10) // NUMERIC(12, 2)
)

// Representable reports whether d has a small enough exponent and
// coefficient to take part in arithmetic. It does no arithmetic itself and
// must be checked before any comparison on untrusted input.
func Representable(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp < -maxDecimalDigits || exp > maxDecimalDigits {
		return false
	}
	// 10^38 needs 127 bits.
	return d.Coefficient().BitLen() <= 127
}

// ValidPercent reports whether percent lies strictly between 0 and 100 with
// at most PercentScale fractional digits.
func ValidPercent(percent decimal.Decimal) bool {
	return Representable(percent) &&
		fitsScale(percent, PercentScale) &&
		percent.IsPositive() &&
		percent.LessThan(hundred)
}

// ValidPrice reports whether price is positive, below 10^10 and has at most
// PriceScale fractional digits.
func ValidPrice(price decimal.Decimal) bool {
	return Representable(price) &&
		fitsScale(price, PriceScale) &&
		price.IsPositive() &&
		price.LessThan(maxPrice)
}

// fitsScale reports whether d survives truncation to scale digits unchanged,
// so trailing zeros such as "10.500000" are accepted.
func fitsScale(d decimal.Decimal, scale int32) bool {
	return d.Equal(d.Truncate(scale))
}
