package model

import (
	"fmt"
	"strings"
)

// FeeTier is a pool fee in hundredths of a basis point.
type FeeTier uint32

const (
	FeeTier001 FeeTier = 100
	FeeTier005 FeeTier = 500
	FeeTier025 FeeTier = 2500
	FeeTier100 FeeTier = 10000
)

// FeeTiers lists every fee tier a pair may have a pool for.
var FeeTiers = []FeeTier{FeeTier001, FeeTier005, FeeTier025, FeeTier100}

// Valid reports whether f is one of the enumerated tiers.
func (f FeeTier) Valid() bool {
	for _, tier := range FeeTiers {
		if f == tier {
			return true
		}
	}
	return false
}

// Percent renders the tier as a percentage, e.g. "0.25%".
func (f FeeTier) Percent() string {
	return fmt.Sprintf("%d.%02d%%", f/10000, (f%10000)/100)
}

// Pool is a pool record as served by the indexing service. Token0 and Token1
// are ordered by ascending address.
type Pool struct {
	ID                  string        `json:"id"`
	Token0              PoolToken     `json:"token0"`
	Token1              PoolToken     `json:"token1"`
	FeeTier             string        `json:"feeTier"`
	FeesUSD             string        `json:"feesUSD"`
	VolumeUSD           string        `json:"volumeUSD"`
	Liquidity           string        `json:"liquidity"`
	Token0Price         string        `json:"token0Price"`
	Token1Price         string        `json:"token1Price"`
	TotalValueLockedUSD string        `json:"totalValueLockedUSD"`
	PoolDayData         []PoolDayData `json:"poolDayData"`
}

// PoolToken is the token reference embedded in a pool record.
type PoolToken struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
}

// PoolDayData is a daily aggregate used for display.
type PoolDayData struct {
	Date      int64  `json:"date"`
	TVLUSD    string `json:"tvlUSD"`
	FeesUSD   string `json:"feesUSD"`
	VolumeUSD string `json:"volumeUSD"`
}

// Tier parses the pool's fee tier.
func (p Pool) Tier() (FeeTier, error) {
	var fee uint32
	if _, err := fmt.Sscanf(p.FeeTier, "%d", &fee); err != nil {
		return 0, fmt.Errorf("parse fee tier %q: %w", p.FeeTier, err)
	}
	return FeeTier(fee), nil
}

// HasToken reports whether id is token0 or token1 of the pool.
func (p Pool) HasToken(id string) bool {
	return strings.EqualFold(p.Token0.ID, id) || strings.EqualFold(p.Token1.ID, id)
}

// PoolMeta captures immutable on-chain pool metadata with optional live fields.
type PoolMeta struct {
	Address     string     `json:"address"`
	Token0      string     `json:"token0"`
	Token1      string     `json:"token1"`
	Fee         uint32     `json:"fee"`
	TickSpacing int32      `json:"tick_spacing"`
	Liquidity   string     `json:"liquidity,omitempty"`
	Slot0       *PoolSlot0 `json:"slot0,omitempty"`
}

// PoolSlot0 includes select slot0 fields.
type PoolSlot0 struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int32  `json:"tick"`
}
