package valueobject

import (
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places fees are rounded to
const MoneyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// Money is an exact amount in the tenant's currency. Bills carry no currency
// of their own, so neither does Money.
type Money struct {
	amount decimal.Decimal
}

func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount}
}

func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Sub returns m - other
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// Percentage returns p of m rounded half away from zero to cents
func (m Money) Percentage(p Percentage) Money {
	return Money{amount: m.amount.Mul(p.Decimal()).Div(hundred).Round(MoneyScale)}
}
