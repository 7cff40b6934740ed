package tools

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MAX_AMOUNT_CENTS caps a single ledger amount. At the 100% commission rate
// (10000 bps) the micro-unit product still fits in an int64.
const MAX_AMOUNT_CENTS int64 = 1_000_000_000_000

// ParseAmount converts a decimal amount into minor units. More than two
// fractional digits is rejected rather than rounded.
func ParseAmount(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("amount must be greater than zero")
	}
	cents := amount.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("amount has more than two decimal places")
	}
	if cents.GreaterThan(decimal.NewFromInt(MAX_AMOUNT_CENTS)) {
		return 0, fmt.Errorf("amount exceeds the maximum of %s", FormatMoney(MAX_AMOUNT_CENTS, ""))
	}
	return cents.IntPart(), nil
}

// ParseAmountString is ParseAmount for raw user input like "12.50".
func ParseAmountString(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return ParseAmount(d)
}

// FormatMoney renders minor units with two decimals: FormatMoney(-1050, "₪") == "-₪10.50".
func FormatMoney(cents int64, symbol string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + symbol + decimal.New(cents, -2).StringFixed(2)
}

// FormatMicro renders micro-units (1e-6) rounded to two decimals.
func FormatMicro(micro int64, symbol string) string {
	return symbol + decimal.New(micro, -6).StringFixed(2)
}

// CurrencySymbol maps ISO codes to the symbol used in chat replies.
func CurrencySymbol(code string) string {
	switch code {
	case "ILS":
		return "₪"
	case "USD":
		return "$"
	case "EUR":
		return "€"
	case "BRL":
		return "R$"
	}
	return code + " "
}
