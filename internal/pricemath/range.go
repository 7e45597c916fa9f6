package pricemath

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Sentinel bounds of a full-range selection.
const (
	FullRangeMinPrice = "0"
	FullRangeMaxPrice = "Infinity"
)

var (
	ErrInvalidRange  = errors.New("range percent must be in (0, 100]")
	ErrInvalidBounds = errors.New("min price must be less than max price")
)

var (
	hundred    = decimal.NewFromInt(100)
	nudgeStep  = decimal.New(1, -4)
	maxUint256 = decimal.NewFromBigInt(new(uint256.Int).SetAllOne().ToBig(), 0)
)

// Range is a pair of price bounds as display strings.
type Range struct {
	MinPrice string `json:"min_price"`
	MaxPrice string `json:"max_price"`
}

// IsFullRange reports whether r is the full-range sentinel pair.
func (r Range) IsFullRange() bool {
	return r.MinPrice == FullRangeMinPrice && r.MaxPrice == FullRangeMaxPrice
}

// ComputeRange returns center*(1-percent/100) and center*(1+percent/100),
// each truncated to decimals fractional digits. When the center is too small
// for decimals, truncation can collapse both bounds to "0"; ValidateBounds
// rejects such a range.
func ComputeRange(center string, percent float64, decimals int) (Range, error) {
	if decimals < 0 {
		return Range{}, ErrInvalidDecimals
	}
	if math.IsNaN(percent) || percent <= 0 || percent > 100 {
		return Range{}, fmt.Errorf("%w: %v", ErrInvalidRange, percent)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(center))
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidNumber, center)
	}
	if !price.IsPositive() {
		return Range{}, ErrInvalidPrice
	}

	factor := decimal.NewFromFloat(percent).Div(hundred)
	minPrice := price.Mul(decimal.NewFromInt(1).Sub(factor))
	maxPrice := price.Mul(decimal.NewFromInt(1).Add(factor))

	return Range{
		MinPrice: truncateDecimal(minPrice, decimals),
		MaxPrice: truncateDecimal(maxPrice, decimals),
	}, nil
}

// ComputeFullRange returns the full-range sentinel pair.
func ComputeFullRange() Range {
	return Range{MinPrice: FullRangeMinPrice, MaxPrice: FullRangeMaxPrice}
}

// NudgePrice moves a price bound by 0.01% up or down. Values at or above
// 2^256-1 saturate to "Infinity".
func NudgePrice(value string, up bool, decimals int) (string, error) {
	if decimals < 0 {
		return "", ErrInvalidDecimals
	}
	value = strings.TrimSpace(value)

	var num decimal.Decimal
	if value == FullRangeMaxPrice {
		if up {
			return FullRangeMaxPrice, nil
		}
		num = maxUint256
	} else {
		parsed, err := decimal.NewFromString(value)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidNumber, value)
		}
		if up && parsed.GreaterThanOrEqual(maxUint256) {
			return FullRangeMaxPrice, nil
		}
		num = parsed
	}

	step := num.Mul(nudgeStep)
	if up {
		if num.IsZero() {
			num = nudgeStep
			step = num.Mul(nudgeStep)
		}
		return truncateDecimal(num.Add(step), decimals), nil
	}
	return truncateDecimal(num.Sub(step), decimals), nil
}

// ParsePrice parses a price bound, mapping "Infinity" to +Inf.
func ParsePrice(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == FullRangeMaxPrice {
		return math.Inf(1), nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, value)
	}
	return d.InexactFloat64(), nil
}

// ValidateBounds checks 0 <= minPrice < maxPrice. A zero minimum is the
// lower full-range bound.
func ValidateBounds(r Range) error {
	if r.IsFullRange() {
		return nil
	}
	lo, err := ParsePrice(r.MinPrice)
	if err != nil {
		return err
	}
	hi, err := ParsePrice(r.MaxPrice)
	if err != nil {
		return err
	}
	if lo < 0 {
		return fmt.Errorf("%w: min %s", ErrInvalidPrice, r.MinPrice)
	}
	if hi <= 0 {
		return fmt.Errorf("%w: max %s", ErrInvalidPrice, r.MaxPrice)
	}
	if !(lo < hi) {
		return fmt.Errorf("%w: %s >= %s", ErrInvalidBounds, r.MinPrice, r.MaxPrice)
	}
	return nil
}

// RangeTicks converts price bounds into a tick pair. Bounds are quoted as
// token1 per token0 unless inverted is set, in which case they are token0 per
// token1 and get flipped. A zero or infinite bound, or one beyond the global
// tick bounds, is clamped to the full-range tick instead of being evaluated.
// Finite ticks are floored to spacing when spacing is positive.
func RangeTicks(r Range, decimals0, decimals1 int, inverted bool, spacing int) (int, int, error) {
	if r.IsFullRange() {
		lower, upper := FullRangeTicks()
		return lower, upper, nil
	}
	if err := ValidateBounds(r); err != nil {
		return 0, 0, err
	}

	lo, _ := ParsePrice(r.MinPrice)
	hi, _ := ParsePrice(r.MaxPrice)
	if inverted {
		lo, hi = invert(hi), invert(lo)
	}

	lower, lowerClamped := boundTick(lo, decimals0, decimals1, MinTick)
	upper, upperClamped := boundTick(hi, decimals0, decimals1, MaxTick)

	if spacing > 0 {
		var err error
		if !lowerClamped {
			if lower, err = AlignTick(lower, spacing); err != nil {
				return 0, 0, err
			}
		}
		if !upperClamped {
			if upper, err = AlignTick(upper, spacing); err != nil {
				return 0, 0, err
			}
		}
		if lower >= upper && lower+spacing <= MaxTick {
			upper = lower + spacing
		}
	}
	if lower >= upper {
		return 0, 0, fmt.Errorf("%w: ticks %d >= %d", ErrInvalidBounds, lower, upper)
	}
	return lower, upper, nil
}

func invert(p float64) float64 {
	switch {
	case p == 0:
		return math.Inf(1)
	case math.IsInf(p, 1):
		return 0
	default:
		return 1 / p
	}
}

func boundTick(price float64, decimals0, decimals1 int, fallback int) (int, bool) {
	if price <= 0 || math.IsInf(price, 1) {
		return fallback, true
	}
	tick, err := PriceToTickAdjusted(price, decimals0, decimals1)
	if err == nil {
		return tick, false
	}
	if math.Log(price)+float64(decimals1-decimals0)*math.Ln10 < 0 {
		return MinTick, true
	}
	return MaxTick, true
}
