package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"yieldFarm/internal/chain"
	"yieldFarm/internal/config"
	"yieldFarm/internal/dex"
	"yieldFarm/internal/pools"
	"yieldFarm/internal/storage/postgres"
	"yieldFarm/internal/subgraph"
	"yieldFarm/internal/tokens"
)

func main() {
	root := &cobra.Command{
		Use:          "farm",
		Short:        "Concentrated liquidity yield farming toolkit",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newTickCmd(),
		newRangeCmd(),
		newNudgeCmd(),
		newMinAmountCmd(),
		newTruncateCmd(),
		newTokensCmd(),
		newPoolsCmd(),
		newPoolCmd(),
		newTopCmd(),
		newMintCmd(),
		newLiquidityCmd(),
		newPositionsCmd(),
		newSyncCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "BSC RPC URL")
	cmd.Flags().String("subgraph", config.DefaultSubgraph, "PancakeSwap V3 subgraph endpoint")
	cmd.Flags().String("factory", config.DefaultFactory, "V3 factory address")
	cmd.Flags().String("wrapped-native", config.DefaultWrappedNative, "wrapped native token address")
	cmd.Flags().String("tokens-file", "./data/imported_tokens.json", "imported tokens file")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN (stores imported tokens and positions)")
}

func connectChain(ctx context.Context, cfg config.Config) (*chain.Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	return client, nil
}

func connectStore(ctx context.Context, cfg config.Config) (*postgres.Store, error) {
	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// session holds the backends a command works against. client and db are nil
// when not configured.
type session struct {
	cfg      config.Config
	logger   *zap.Logger
	client   *chain.Client
	db       *postgres.Store
	registry *tokens.Registry
}

// openSession connects the RPC client (always when needChain, otherwise only
// when configured), the optional Postgres store and the token registry. The
// project token, when configured, is imported up front.
func openSession(ctx context.Context, cfg config.Config, logger *zap.Logger, needChain bool) (*session, error) {
	sess := &session{cfg: cfg, logger: logger}

	if needChain || cfg.RPCURL != "" {
		client, err := connectChain(ctx, cfg)
		if err != nil {
			return nil, err
		}
		sess.client = client
	}

	var store tokens.Store = &tokens.FileStore{Path: cfg.TokensFile}
	if cfg.PGDSN != "" {
		db, err := connectStore(ctx, cfg)
		if err != nil {
			sess.Close()
			return nil, err
		}
		sess.db = db
		store = &tokens.DBStore{Store: db}
		logger.Debug("postgres connected", zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
	}

	var caller chain.Caller
	if sess.client != nil {
		caller = sess.client
	}
	registry, err := tokens.NewRegistry(ctx, store, caller, logger)
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("open token registry: %w", err)
	}
	sess.registry = registry

	if cfg.ProjectToken != "" {
		if sess.client == nil {
			logger.Warn("project token skipped without rpc", zap.String("address", cfg.ProjectToken))
		} else if _, err := registry.Import(ctx, cfg.ProjectToken); err != nil {
			logger.Warn("project token import failed", zap.String("address", cfg.ProjectToken), zap.Error(err))
		}
	}
	return sess, nil
}

func (s *session) Close() {
	if s.client != nil {
		s.client.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

func (s *session) poolSource() (*subgraph.Client, error) {
	return subgraph.NewClient(subgraph.Config{
		Endpoint:     s.cfg.Subgraph,
		Timeout:      s.cfg.HTTPTimeout,
		CacheTTL:     s.cfg.CacheTTL,
		MaxRetries:   s.cfg.MaxRetries,
		RetryBackoff: s.cfg.RetryBackoff,
	}, s.logger)
}

func (s *session) poolService() (*pools.Service, error) {
	source, err := s.poolSource()
	if err != nil {
		return nil, err
	}

	var finder pools.PoolFinder
	if s.client != nil {
		finder = s.factory()
	}
	return pools.NewService(finder, source, common.HexToAddress(s.cfg.WrappedNative), s.logger), nil
}

func (s *session) factory() *dex.Factory {
	return dex.NewFactory(s.client, common.HexToAddress(s.cfg.Factory))
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
