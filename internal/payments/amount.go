package payments

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ToPaisa converts rupees to the integer paisa amount most gateways expect.
func ToPaisa(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromPaisa(paisa int64) decimal.Decimal {
	return decimal.New(paisa, -2)
}

// FormatAmount renders rupees with two decimals, e.g. "500.00".
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// ParseAmount accepts gateway amount strings such as "1,000.0" or "500".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}
