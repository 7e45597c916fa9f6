package liquidity

import (
	"fmt"
	"math/big"
	"sort"

	"yieldFarm/internal/model"
	"yieldFarm/internal/pricemath"
)

// MaxBins caps the number of bins; wider spans get wider bins.
const MaxBins = 2000

// Distribution folds per-tick net liquidity into bins of binTicks ticks
// spanning the lowest to the highest initialized tick. Each bin reports the
// peak active liquidity inside it. Prices are token1 per token0.
func Distribution(state State, binTicks int, decimals0, decimals1 int) ([]model.LiquidityBin, error) {
	if binTicks <= 0 {
		return nil, pricemath.ErrInvalidSpacing
	}

	type tickNet struct {
		tick int
		net  *big.Int
	}
	ticks := make([]tickNet, 0, len(state.NetLiquidity))
	for tick, raw := range state.NetLiquidity {
		net, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, fmt.Errorf("corrupt net liquidity at tick %d: %q", tick, raw)
		}
		ticks = append(ticks, tickNet{tick: int(tick), net: net})
	}
	if len(ticks) < 2 {
		return nil, nil
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i].tick < ticks[j].tick })

	first, last := ticks[0].tick, ticks[len(ticks)-1].tick
	if span := last - first; span/binTicks > MaxBins {
		binTicks = (span + MaxBins - 1) / MaxBins
	}
	start, err := pricemath.AlignTick(first, binTicks)
	if err != nil {
		return nil, err
	}

	bins := make([]model.LiquidityBin, 0, (last-start)/binTicks+1)
	active := new(big.Int)
	i := 0
	for lower := start; lower < last; lower += binTicks {
		upper := lower + binTicks
		for i < len(ticks) && ticks[i].tick <= lower {
			active.Add(active, ticks[i].net)
			i++
		}
		peak := new(big.Int).Set(active)
		for i < len(ticks) && ticks[i].tick < upper {
			active.Add(active, ticks[i].net)
			if active.Cmp(peak) > 0 {
				peak.Set(active)
			}
			i++
		}
		bins = append(bins, model.LiquidityBin{
			TickLower:  lower,
			TickUpper:  upper,
			PriceLower: pricemath.FormatPrice(pricemath.TickToPriceAdjusted(lower, decimals0, decimals1)),
			PriceUpper: pricemath.FormatPrice(pricemath.TickToPriceAdjusted(upper, decimals0, decimals1)),
			Liquidity:  peak.String(),
		})
	}
	return bins, nil
}
