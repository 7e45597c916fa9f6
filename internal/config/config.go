package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// PancakeSwap V3 deployment on BNB Smart Chain.
const (
	DefaultFactory         = "0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865"
	DefaultPositionManager = "0x46A15B0b27311cedF172AB29E4f4766fbE7F4364"
	DefaultWrappedNative   = "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"
	DefaultSubgraph        = "https://api.thegraph.com/subgraphs/name/pancakeswap/exchange-v3-bsc"
)

// Config holds settings shared by every command, loaded from flags, env, or
// config file.
type Config struct {
	RPCURL          string
	Subgraph        string
	Factory         string
	PositionManager string
	WrappedNative   string
	TokensFile      string
	ProjectToken    string
	PGDSN           string
	MaxRetries      int
	RetryBackoff    time.Duration
	CacheTTL        time.Duration
	HTTPTimeout     time.Duration
	LogLevel        string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return Config{}, err
	}
	return shared(v), nil
}

// newViper layers defaults, FARM_ environment variables, flags and the
// config file. extra holds command specific defaults.
func newViper(cfgFile string, flags *pflag.FlagSet, extra map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("FARM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("subgraph", DefaultSubgraph)
	v.SetDefault("factory", DefaultFactory)
	v.SetDefault("position-manager", DefaultPositionManager)
	v.SetDefault("wrapped-native", DefaultWrappedNative)
	v.SetDefault("tokens-file", "./data/imported_tokens.json")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("cache-ttl", time.Minute)
	v.SetDefault("http-timeout", 15*time.Second)
	v.SetDefault("log-level", "info")
	for key, value := range extra {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func shared(v *viper.Viper) Config {
	return Config{
		RPCURL:          v.GetString("rpc"),
		Subgraph:        v.GetString("subgraph"),
		Factory:         v.GetString("factory"),
		PositionManager: v.GetString("position-manager"),
		WrappedNative:   v.GetString("wrapped-native"),
		TokensFile:      v.GetString("tokens-file"),
		ProjectToken:    v.GetString("project-token"),
		PGDSN:           v.GetString("pg-dsn"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		CacheTTL:        v.GetDuration("cache-ttl"),
		HTTPTimeout:     v.GetDuration("http-timeout"),
		LogLevel:        v.GetString("log-level"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
