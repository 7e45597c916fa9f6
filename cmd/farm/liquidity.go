package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldFarm/internal/config"
	"yieldFarm/internal/dex"
	"yieldFarm/internal/liquidity"
	"yieldFarm/internal/model"
	"yieldFarm/internal/pricemath"
)

func newLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liquidity <pool>",
		Short: "Scan a pool's mints and burns into a liquidity distribution",
		Args:  cobra.ExactArgs(1),
		RunE:  runLiquidity,
	}
	cmd.Flags().String("rpc", "", "BSC RPC URL")
	cmd.Flags().Uint64("from", 0, "start block (inclusive)")
	cmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	cmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	cmd.Flags().String("state", "./data/liquidity_state.json", "scan state file path")
	cmd.Flags().Bool("state-enabled", true, "enable scan state")
	cmd.Flags().Int("bin-ticks", 0, "ticks per bin, 0 means the pool's tick spacing")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	return cmd
}

type liquidityOutput struct {
	Pool               string               `json:"pool"`
	Token0             string               `json:"token0"`
	Token1             string               `json:"token1"`
	TickSpacing        int32                `json:"tick_spacing"`
	CurrentTick        *int32               `json:"current_tick,omitempty"`
	Reserve0           string               `json:"reserve0,omitempty"`
	Reserve1           string               `json:"reserve1,omitempty"`
	LastProcessedBlock uint64               `json:"last_processed_block"`
	Events             int                  `json:"events"`
	Bins               []model.LiquidityBin `json:"bins"`
}

func runLiquidity(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadLiquidity(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !common.IsHexAddress(args[0]) {
		return fmt.Errorf("invalid pool address: %s", args[0])
	}
	poolAddr := common.HexToAddress(args[0])

	ctx, stop := signalContext()
	defer stop()

	client, err := connectChain(ctx, cfg.Config)
	if err != nil {
		return err
	}
	defer client.Close()

	meta, err := dex.FetchPoolMeta(ctx, client, poolAddr, logger)
	if err != nil {
		return fmt.Errorf("pool metadata: %w", err)
	}
	cache := dex.NewTokenMetaCache()
	token0, err := dex.CachedTokenMeta(ctx, client, common.HexToAddress(meta.Token0), cache, logger)
	if err != nil {
		return fmt.Errorf("token0 metadata: %w", err)
	}
	token1, err := dex.CachedTokenMeta(ctx, client, common.HexToAddress(meta.Token1), cache, logger)
	if err != nil {
		return fmt.Errorf("token1 metadata: %w", err)
	}

	runner, err := liquidity.NewRunner(liquidity.RunConfig{
		Pool:         poolAddr,
		FromBlock:    cfg.FromBlock,
		ToBlock:      cfg.ToBlock,
		BatchSize:    cfg.BatchSize,
		StatePath:    cfg.State,
		StateEnabled: cfg.StateEnabled,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, client, logger)
	if err != nil {
		return err
	}

	logger.Info("liquidity scan start",
		zap.String("pool", poolAddr.Hex()),
		zap.String("pair", token0.Symbol+"/"+token1.Symbol),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Bool("state_enabled", cfg.StateEnabled),
		zap.String("state", cfg.State),
	)

	state, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	binTicks := cfg.BinTicks
	if binTicks <= 0 {
		binTicks = int(meta.TickSpacing)
	}
	bins, err := liquidity.Distribution(state, binTicks, int(token0.Decimals), int(token1.Decimals))
	if err != nil {
		return err
	}

	out := liquidityOutput{
		Pool:               poolAddr.Hex(),
		Token0:             token0.Symbol,
		Token1:             token1.Symbol,
		TickSpacing:        meta.TickSpacing,
		LastProcessedBlock: state.LastProcessedBlock,
		Events:             state.Events,
		Bins:               bins,
	}
	if meta.Slot0 != nil {
		tick := meta.Slot0.Tick
		out.CurrentTick = &tick
	}

	// Pool token balances stand in for TVL in token units.
	for _, side := range []struct {
		meta model.TokenMeta
		out  *string
	}{{token0, &out.Reserve0}, {token1, &out.Reserve1}} {
		balance, err := dex.BalanceOf(ctx, client, common.HexToAddress(side.meta.Address), poolAddr)
		if err != nil {
			logger.Warn("pool balance unavailable", zap.String("token", side.meta.Symbol), zap.Error(err))
			continue
		}
		*side.out = pricemath.FormatUnits(balance, int(side.meta.Decimals))
	}
	return printJSON(cmd, out)
}
