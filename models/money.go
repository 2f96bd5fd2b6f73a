package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred  = decimal.NewFromInt(100)
	maxPaise = decimal.NewFromInt(math.MaxInt64)

	// MaxAmount is the largest rupee amount the NUMERIC(10,2) amount column holds.
	MaxAmount = decimal.RequireFromString("99999999.99")
)

// ToPaise converts a rupee amount to integer paise. Amounts with more than
// two decimal places are rejected rather than rounded.
func ToPaise(rupees decimal.Decimal) (int64, error) {
	paise := rupees.Mul(hundred)
	if !paise.Equal(paise.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than two decimal places", rupees.String())
	}
	if !paise.IsPositive() {
		return 0, fmt.Errorf("amount %s must be positive", rupees.String())
	}
	if paise.GreaterThan(maxPaise) {
		return 0, fmt.Errorf("amount %s is too large", rupees.String())
	}
	return paise.IntPart(), nil
}

// FromPaise converts integer paise back to rupees.
func FromPaise(paise int64) decimal.Decimal {
	return decimal.New(paise, -2)
}

// FormatINR renders an amount with Indian digit grouping, e.g. ₹1,00,000.00.
func FormatINR(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}

	intPart, frac := fixed, ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, frac = fixed[:i], fixed[i:]
	}

	return sign + "₹" + groupIndian(intPart) + frac
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
