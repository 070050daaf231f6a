package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percentage is a rate in the closed range [0, 100]
type Percentage struct {
	value decimal.Decimal
}

// NewPercentage validates and wraps a rate
func NewPercentage(value decimal.Decimal) (Percentage, error) {
	if value.IsNegative() || value.GreaterThan(hundred) {
		return Percentage{}, fmt.Errorf("percentage must be between 0 and 100, got %s", value.String())
	}
	return Percentage{value: value}, nil
}

// MustPercentage panics on an out-of-range value; for constants and tests
func MustPercentage(value string) Percentage {
	p, err := NewPercentage(decimal.RequireFromString(value))
	if err != nil {
		panic(err)
	}
	return p
}

// Decimal returns the raw rate, e.g. 2.5 for 2.5%
func (p Percentage) Decimal() decimal.Decimal {
	return p.value
}

// IsZero reports a 0% rate
func (p Percentage) IsZero() bool {
	return p.value.IsZero()
}

// String renders "2.5%"
func (p Percentage) String() string {
	return p.value.String() + "%"
}
