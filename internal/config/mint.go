package config

import (
	"time"

	"github.com/spf13/pflag"
)

// MintConfig holds configuration for the mint command.
type MintConfig struct {
	Config
	PrivateKey       string
	Slippage         float64
	DeadlineMinutes  int
	AlignFullRange   bool
	Journal          string
	DryRun           bool
	ReceiptInterval  time.Duration
	GasMarginPercent int
}

// LoadMint merges config file, environment variables, and flags into MintConfig.
func LoadMint(cfgFile string, flags *pflag.FlagSet) (MintConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"slippage":         0.5,
		"deadline-minutes": 20,
		"align-full-range": false,
		"journal":          "./data/positions.jsonl",
		"receipt-interval": 2 * time.Second,
		"gas-margin":       20,
	})
	if err != nil {
		return MintConfig{}, err
	}

	return MintConfig{
		Config:           shared(v),
		PrivateKey:       v.GetString("private-key"),
		Slippage:         v.GetFloat64("slippage"),
		DeadlineMinutes:  v.GetInt("deadline-minutes"),
		AlignFullRange:   v.GetBool("align-full-range"),
		Journal:          v.GetString("journal"),
		DryRun:           v.GetBool("dry-run"),
		ReceiptInterval:  v.GetDuration("receipt-interval"),
		GasMarginPercent: v.GetInt("gas-margin"),
	}, nil
}
