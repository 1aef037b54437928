package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DisplayCurrency is the single currency amounts are shown in.
const DisplayCurrency = money.USD

// Amount bounds match the NUMERIC(14,2) columns of the SQL schema.
const (
	AmountScale     = 2
	maxAmountDigits = 12
	maxAmountInput  = 32
)

// MaxAmount is the exclusive upper bound for any stored amount.
var MaxAmount = decimal.New(1, maxAmountDigits)

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// FormatUSD renders an amount the way the dashboard shows it, e.g. "$1,234.50".
// Values beyond int64 cents are printed without grouping instead of wrapping.
func FormatUSD(amount decimal.Decimal) string {
	cur := money.GetCurrency(DisplayCurrency)
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	if minor.Abs().GreaterThan(maxMinorUnits) {
		sign := ""
		if amount.IsNegative() {
			sign = "-"
		}
		return sign + cur.Grapheme + amount.Abs().StringFixed(AmountScale)
	}
	return money.New(minor.IntPart(), DisplayCurrency).Display()
}

// ParseAmount parses user-entered text such as "12.50", "-30" or "1,234.5".
// Thousands separators are dropped; an empty string is a validation error.
// At most two decimal places are accepted and the absolute value must stay
// below MaxAmount.
func ParseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero, &ErrValidation{Field: field, Message: "please enter an amount"}
	}
	if len(s) > maxAmountInput {
		return decimal.Zero, &ErrValidation{Field: field, Message: "amount is too long"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ErrValidation{Field: field, Message: fmt.Sprintf("not a number: %q", s)}
	}
	if d.IsZero() {
		return decimal.Zero, nil
	}

	// exponent checks run first so Round and Cmp never rescale huge values
	exp := d.Exponent()
	if exp > maxAmountDigits {
		return decimal.Zero, tooLarge(field)
	}
	if exp < -maxAmountInput || !d.Equal(d.Round(AmountScale)) {
		return decimal.Zero, &ErrValidation{Field: field, Message: "at most 2 decimal places"}
	}
	if d.Abs().GreaterThanOrEqual(MaxAmount) {
		return decimal.Zero, tooLarge(field)
	}
	return d.Round(AmountScale), nil
}

func tooLarge(field string) error {
	return &ErrValidation{Field: field, Message: fmt.Sprintf("amount must be below %s", MaxAmount.String())}
}
