package config

import (
	"github.com/spf13/pflag"
)

// SyncConfig holds configuration for the pool snapshot command.
type SyncConfig struct {
	Config
	Pools []string
	Top   int
}

// LoadSync merges config file, environment variables, and flags into SyncConfig.
func LoadSync(cfgFile string, flags *pflag.FlagSet) (SyncConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{"top": 0})
	if err != nil {
		return SyncConfig{}, err
	}

	return SyncConfig{
		Config: shared(v),
		Pools:  getStringSlice(v, "pool"),
		Top:    v.GetInt("top"),
	}, nil
}
