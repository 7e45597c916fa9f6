package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldFarm/internal/config"
	"yieldFarm/internal/model"
	"yieldFarm/internal/pools"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Snapshot pools and their day data into Postgres",
		RunE:  runSync,
	}
	cmd.Flags().String("subgraph", config.DefaultSubgraph, "PancakeSwap V3 subgraph endpoint")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().StringSlice("pool", nil, "pool addresses (comma-separated)")
	cmd.Flags().Int("top", 0, "also snapshot the top N pools by TVL")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSync(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	if len(cfg.Pools) == 0 && cfg.Top <= 0 {
		return fmt.Errorf("pool list or --top is required")
	}

	ctx, stop := signalContext()
	defer stop()

	store, err := connectStore(ctx, cfg.Config)
	if err != nil {
		return err
	}
	defer store.Close()

	sess := &session{cfg: cfg.Config, logger: logger}
	source, err := sess.poolSource()
	if err != nil {
		return err
	}

	var snapshot []model.Pool
	if len(cfg.Pools) > 0 {
		ids := make([]string, 0, len(cfg.Pools))
		for _, id := range cfg.Pools {
			ids = append(ids, strings.ToLower(id))
		}
		end := time.Now()
		found, err := source.FindPools(ctx, ids, end.Add(-pools.PairHistory), end)
		if err != nil {
			return err
		}
		snapshot = append(snapshot, found...)
	}
	if cfg.Top > 0 {
		top, err := source.ListPools(ctx, cfg.Top)
		if err != nil {
			return err
		}
		snapshot = append(snapshot, top...)
	}

	logger.Info("sync start",
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int("pools", len(snapshot)),
	)

	if err := store.UpsertPools(ctx, snapshot); err != nil {
		return err
	}
	logger.Info("sync complete", zap.Int("pools", len(snapshot)))
	return nil
}
