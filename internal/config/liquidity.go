package config

import (
	"github.com/spf13/pflag"
)

// LiquidityConfig holds configuration for the liquidity scan.
type LiquidityConfig struct {
	Config
	Pool         string
	FromBlock    uint64
	ToBlock      uint64
	BatchSize    uint64
	State        string
	StateEnabled bool
	BinTicks     int
}

// LoadLiquidity merges config file, environment variables, and flags into
// LiquidityConfig.
func LoadLiquidity(cfgFile string, flags *pflag.FlagSet) (LiquidityConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"batch-size":    uint64(2000),
		"state":         "./data/liquidity_state.json",
		"state-enabled": true,
	})
	if err != nil {
		return LiquidityConfig{}, err
	}

	return LiquidityConfig{
		Config:       shared(v),
		Pool:         v.GetString("pool"),
		FromBlock:    v.GetUint64("from"),
		ToBlock:      v.GetUint64("to"),
		BatchSize:    v.GetUint64("batch-size"),
		State:        v.GetString("state"),
		StateEnabled: v.GetBool("state-enabled"),
		BinTicks:     v.GetInt("bin-ticks"),
	}, nil
}
