package pricemath

import (
	"errors"
	"fmt"
	"math"
)

// Global tick bounds of the V3 protocol.
const (
	MinTick = -887272
	MaxTick = 887272
)

// TickBase is the price ratio between two adjacent ticks.
const TickBase = 1.0001

var (
	ErrInvalidPrice    = errors.New("price must be finite and positive")
	ErrTickOutOfBounds = errors.New("tick out of bounds")
	ErrInvalidSpacing  = errors.New("tick spacing must be positive")
)

var logTickBase = math.Log(TickBase)

// PriceToTick returns floor(log(price) / log(1.0001)).
func PriceToTick(price float64) (int, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, ErrInvalidPrice
	}
	return tickFromLog(math.Log(price))
}

// TickToPrice returns 1.0001^tick.
func TickToPrice(tick int) float64 {
	return math.Pow(TickBase, float64(tick))
}

// FullRangeTicks returns the protocol's absolute tick range. Full-range
// positions never go through PriceToTick.
func FullRangeTicks() (int, int) {
	return MinTick, MaxTick
}

// PriceToTickAdjusted converts a human price quoted as token1 per token0 into
// the pool's raw tick, accounting for the tokens' decimals. The decimal shift
// is applied in log space so extreme prices do not overflow.
func PriceToTickAdjusted(price float64, decimals0, decimals1 int) (int, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, ErrInvalidPrice
	}
	shift := float64(decimals1-decimals0) * math.Ln10
	return tickFromLog(math.Log(price) + shift)
}

// TickToPriceAdjusted is the inverse of PriceToTickAdjusted.
func TickToPriceAdjusted(tick int, decimals0, decimals1 int) float64 {
	return TickToPrice(tick) * math.Pow10(decimals0-decimals1)
}

// AlignTick floors tick to a multiple of spacing.
func AlignTick(tick, spacing int) (int, error) {
	if spacing <= 0 {
		return 0, ErrInvalidSpacing
	}
	rem := tick % spacing
	if rem < 0 {
		rem += spacing
	}
	return tick - rem, nil
}

func tickFromLog(logPrice float64) (int, error) {
	raw := math.Floor(logPrice / logTickBase)
	if raw < MinTick || raw > MaxTick {
		return 0, fmt.Errorf("%w: %.0f", ErrTickOutOfBounds, raw)
	}
	return int(raw), nil
}

// UsableFullRangeTicks returns the outermost ticks that are multiples of
// spacing.
func UsableFullRangeTicks(spacing int) (int, int, error) {
	if spacing <= 0 {
		return 0, 0, ErrInvalidSpacing
	}
	upper := MaxTick - MaxTick%spacing
	return -upper, upper, nil
}
