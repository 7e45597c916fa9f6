package pools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"yieldFarm/internal/model"
)

var ErrQuoteNotInPool = errors.New("quote token is not part of the pool")

var feeTierScale = decimal.NewFromInt(1_000_000)

// Summary aggregates a pool's day series.
type Summary struct {
	TVLUSD    decimal.Decimal
	VolumeUSD decimal.Decimal
	FeesUSD   decimal.Decimal
	Days      int
}

// Summarize sums TVL, volume and fees over the pool's day data.
func Summarize(pool model.Pool) Summary {
	out := Summary{Days: len(pool.PoolDayData)}
	for _, day := range pool.PoolDayData {
		out.TVLUSD = out.TVLUSD.Add(parseDecimal(day.TVLUSD))
		out.VolumeUSD = out.VolumeUSD.Add(parseDecimal(day.VolumeUSD))
		out.FeesUSD = out.FeesUSD.Add(parseDecimal(day.FeesUSD))
	}
	return out
}

// FeeAPR returns volume * fee / tvl as a percentage, the fee being the tier
// in hundredths of a basis point. A zero TVL yields zero.
func FeeAPR(volume decimal.Decimal, tier model.FeeTier, tvl decimal.Decimal) decimal.Decimal {
	if !tvl.IsPositive() {
		return decimal.Zero
	}
	fee := decimal.NewFromInt(int64(tier)).Div(feeTierScale)
	return volume.Mul(fee).Div(tvl).Mul(decimal.NewFromInt(100))
}

// PoolFeeAPR evaluates FeeAPR on a pool's lifetime volume and current TVL.
func PoolFeeAPR(pool model.Pool) (decimal.Decimal, error) {
	tier, err := pool.Tier()
	if err != nil {
		return decimal.Zero, err
	}
	return FeeAPR(parseDecimal(pool.VolumeUSD), tier, parseDecimal(pool.TotalValueLockedUSD)), nil
}

// ReferencePrice returns the pool's current price quoted in quoteID:
// token0Price when the quote is token0, token1Price when it is token1.
func ReferencePrice(pool model.Pool, quoteID string) (string, error) {
	switch {
	case strings.EqualFold(pool.Token0.ID, quoteID):
		return pool.Token0Price, nil
	case strings.EqualFold(pool.Token1.ID, quoteID):
		return pool.Token1Price, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrQuoteNotInPool, quoteID)
	}
}

// Selectable reports whether a pool has day data to show.
func Selectable(pool model.Pool) bool {
	return len(pool.PoolDayData) > 0
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
