package pricemath

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidNumber   = errors.New("invalid decimal number")
	ErrInvalidDecimals = errors.New("decimals must not be negative")
)

// TruncateDecimalString cuts value to at most decimals fractional digits
// without rounding and strips trailing zeros. A fraction that is all zeros
// after truncation collapses to the integer form.
func TruncateDecimalString(value string, decimals int) (string, error) {
	if decimals < 0 {
		return "", ErrInvalidDecimals
	}
	neg, intPart, fracPart, err := splitDecimal(value)
	if err != nil {
		return "", err
	}

	if len(fracPart) > decimals {
		fracPart = fracPart[:decimals]
	}
	return joinDecimal(neg, intPart, fracPart), nil
}

// ParseUnits converts a human decimal string into base units at the given
// precision. Fraction digits beyond decimals are dropped.
func ParseUnits(value string, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, ErrInvalidDecimals
	}
	neg, intPart, fracPart, err := splitDecimal(value)
	if err != nil {
		return nil, err
	}

	if len(fracPart) > decimals {
		fracPart = fracPart[:decimals]
	}
	fracPart += strings.Repeat("0", decimals-len(fracPart))

	digits := intPart + fracPart
	if digits == "" {
		digits = "0"
	}
	out, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, value)
	}
	if neg {
		out.Neg(out)
	}
	return out, nil
}

// FormatUnits renders a base-unit amount as a display string with trailing
// zeros stripped.
func FormatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	if decimals <= 0 {
		return amount.String()
	}

	digits := new(big.Int).Abs(amount).String()
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	cut := len(digits) - decimals
	return joinDecimal(amount.Sign() < 0, digits[:cut], digits[cut:])
}

// FormatPrice renders a float price in its shortest exact decimal form.
func FormatPrice(price float64) string {
	switch {
	case math.IsInf(price, 1):
		return FullRangeMaxPrice
	case math.IsNaN(price) || math.IsInf(price, -1):
		return "NaN"
	}
	return decimal.NewFromFloat(price).String()
}

// truncateDecimal truncates an arbitrary-precision value at the string level.
func truncateDecimal(d decimal.Decimal, decimals int) string {
	out, err := TruncateDecimalString(d.String(), decimals)
	if err != nil {
		// decimal.String never produces exponent notation.
		return d.String()
	}
	return out
}

func splitDecimal(value string) (bool, string, string, error) {
	s := strings.TrimSpace(value)
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return false, "", "", fmt.Errorf("%w: %q", ErrInvalidNumber, value)
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return false, "", "", fmt.Errorf("%w: %q", ErrInvalidNumber, value)
	}
	return neg, intPart, fracPart, nil
}

func joinDecimal(neg bool, intPart, fracPart string) string {
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	fracPart = strings.TrimRight(fracPart, "0")

	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
