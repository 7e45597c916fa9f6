package pricemath

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

// Slippage tolerance bounds, in percent.
const (
	MinSlippagePercent = 0.1
	MaxSlippagePercent = 100
)

// BpsScale is the basis-point denominator used for slippage arithmetic.
const BpsScale = 10000

var (
	ErrInvalidSlippage = errors.New("slippage must be between 0.1% and 100%")
	ErrNegativeAmount  = errors.New("amount must not be negative")
)

// SlippageBps validates a slippage percentage and converts it to basis points.
func SlippageBps(percent float64) (int64, error) {
	if math.IsNaN(percent) || percent < MinSlippagePercent || percent > MaxSlippagePercent {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSlippage, percent)
	}
	return int64(math.Round(percent * 100)), nil
}

// MinimumAmount returns desired * (1 - slippage/100) in integer arithmetic,
// floor-divided at basis-point precision.
func MinimumAmount(desired *big.Int, slippagePercent float64) (*big.Int, error) {
	if desired == nil {
		return big.NewInt(0), nil
	}
	if desired.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	bps, err := SlippageBps(slippagePercent)
	if err != nil {
		return nil, err
	}

	out := new(big.Int).Mul(desired, big.NewInt(BpsScale-bps))
	return out.Quo(out, big.NewInt(BpsScale)), nil
}
