package product

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Country is one of the closed set of markets the catalog sells in. The zero
// value is not a valid country.
type Country uint8

// Supported countries.
const (
	Sweden Country = iota + 1
	Germany
	France
)

type countryInfo struct {
	name string
	vat  decimal.Decimal
}

var countries = [...]countryInfo{
	Sweden:  {name: "SWEDEN", vat: decimal.NewFromInt(25)},
	Germany: {name: "GERMANY", vat: decimal.NewFromInt(19)},
	France:  {name: "FRANCE", vat: decimal.NewFromInt(20)},
}

// Countries returns every supported country in declaration order.
func Countries() []Country {
	return []Country{Sweden, Germany, France}
}

// ParseCountry resolves a country token case-insensitively. Unknown tokens
// yield an error matching ErrInvalidCountry.
func ParseCountry(s string) (Country, error) {
	token := strings.ToUpper(strings.TrimSpace(s))
	for _, c := range Countries() {
		if countries[c].name == token {
			return c, nil
		}
	}
	return 0, NewValidationError("country",
		"unsupported country "+strconv.Quote(s)+", supported: "+supportedCountries(),
		ErrInvalidCountry,
	)
}

// Valid reports whether c is a member of the supported set.
func (c Country) Valid() bool {
	return c >= Sweden && c <= France
}

// VAT returns the value-added tax percentage for c, or zero for an invalid
// country.
func (c Country) VAT() decimal.Decimal {
	if !c.Valid() {
		return decimal.Zero
	}
	return countries[c].vat
}

func (c Country) String() string {
	if !c.Valid() {
		return "UNKNOWN"
	}
	return countries[c].name
}

func supportedCountries() string {
	names := make([]string, 0, len(countries))
	for _, c := range Countries() {
		names = append(names, c.String())
	}
	return strings.Join(names, ", ")
}
