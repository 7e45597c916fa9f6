package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldFarm/internal/config"
	"yieldFarm/internal/model"
	"yieldFarm/internal/pools"
	"yieldFarm/internal/pricemath"
)

func newPoolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pools <tokenA> <tokenB>",
		Short: "List the pools of a pair across fee tiers",
		Args:  cobra.ExactArgs(2),
		RunE:  runPools,
	}
	addChainFlags(cmd)
	return cmd
}

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool <address>",
		Short: "Show a pool with its last day of data",
		Args:  cobra.ExactArgs(1),
		RunE:  runPool,
	}
	addChainFlags(cmd)
	cmd.Flags().String("quote", "", "token to quote the reference price in")
	return cmd
}

func newTopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Rank the largest pools by fee APR",
		RunE:  runTop,
	}
	addChainFlags(cmd)
	cmd.Flags().Int("first", 20, "number of pools by TVL to rank")
	return cmd
}

type poolView struct {
	ID             string              `json:"id"`
	Pair           string              `json:"pair"`
	FeeTier        string              `json:"fee_tier"`
	TVLUSD         string              `json:"tvl_usd"`
	VolumeUSD      string              `json:"volume_usd"`
	FeesUSD        string              `json:"fees_usd"`
	FeeAPR         string              `json:"fee_apr"`
	Token0Price    string              `json:"token0_price"`
	Token1Price    string              `json:"token1_price"`
	ReferencePrice string              `json:"reference_price,omitempty"`
	Selectable     bool                `json:"selectable"`
	DayData        []model.PoolDayData `json:"day_data,omitempty"`
}

func newPoolView(pool model.Pool) poolView {
	view := poolView{
		ID:          pool.ID,
		Pair:        pool.Token0.Symbol + "/" + pool.Token1.Symbol,
		FeeTier:     pool.FeeTier,
		Token0Price: pool.Token0Price,
		Token1Price: pool.Token1Price,
		Selectable:  pools.Selectable(pool),
		DayData:     pool.PoolDayData,
	}
	if tier, err := pool.Tier(); err == nil {
		view.FeeTier = tier.Percent()
	}

	summary := pools.Summarize(pool)
	if summary.Days == 0 {
		summary.TVLUSD = decimalOrZero(pool.TotalValueLockedUSD)
		summary.VolumeUSD = decimalOrZero(pool.VolumeUSD)
		summary.FeesUSD = decimalOrZero(pool.FeesUSD)
	}
	view.TVLUSD = usd(summary.TVLUSD)
	view.VolumeUSD = usd(summary.VolumeUSD)
	view.FeesUSD = usd(summary.FeesUSD)
	if apr, err := pools.PoolFeeAPR(pool); err == nil {
		view.FeeAPR = usd(apr)
	}
	return view
}

func usd(d decimal.Decimal) string {
	out, err := pricemath.TruncateDecimalString(d.String(), 2)
	if err != nil {
		return d.String()
	}
	return out
}

func decimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func loadPoolSession(cmd *cobra.Command, needChain bool) (*session, func(), error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	ctx, stop := signalContext()
	cmd.SetContext(ctx)

	sess, err := openSession(ctx, cfg, logger, needChain)
	if err != nil {
		stop()
		_ = logger.Sync()
		return nil, nil, err
	}
	return sess, func() {
		sess.Close()
		stop()
		_ = logger.Sync()
	}, nil
}

func runPools(cmd *cobra.Command, args []string) error {
	sess, done, err := loadPoolSession(cmd, true)
	if err != nil {
		return err
	}
	defer done()

	tokenA, err := sess.registry.Resolve(args[0])
	if err != nil {
		return err
	}
	tokenB, err := sess.registry.Resolve(args[1])
	if err != nil {
		return err
	}

	service, err := sess.poolService()
	if err != nil {
		return err
	}
	found, err := service.PoolsForPair(cmd.Context(), tokenA, tokenB)
	if err != nil {
		return err
	}

	sess.logger.Info("pools loaded",
		zap.String("token_a", tokenA.Symbol),
		zap.String("token_b", tokenB.Symbol),
		zap.Int("pools", len(found)),
	)

	views := make([]poolView, 0, len(found))
	for _, pool := range found {
		views = append(views, newPoolView(pool))
	}
	return printJSON(cmd, views)
}

func runPool(cmd *cobra.Command, args []string) error {
	sess, done, err := loadPoolSession(cmd, false)
	if err != nil {
		return err
	}
	defer done()

	service, err := sess.poolService()
	if err != nil {
		return err
	}
	pool, err := service.Pool(cmd.Context(), strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	view := newPoolView(pool)

	quote, _ := cmd.Flags().GetString("quote")
	if quote != "" {
		token, err := sess.registry.Resolve(quote)
		if err != nil {
			return err
		}
		addr, err := pools.ChainAddress(token, common.HexToAddress(sess.cfg.WrappedNative))
		if err != nil {
			return err
		}
		price, err := pools.ReferencePrice(pool, strings.ToLower(addr.Hex()))
		if err != nil {
			return fmt.Errorf("reference price: %w", err)
		}
		view.ReferencePrice = price
	}
	return printJSON(cmd, view)
}

func runTop(cmd *cobra.Command, _ []string) error {
	sess, done, err := loadPoolSession(cmd, false)
	if err != nil {
		return err
	}
	defer done()

	first, _ := cmd.Flags().GetInt("first")
	service, err := sess.poolService()
	if err != nil {
		return err
	}
	ranked, err := service.TopPools(cmd.Context(), first)
	if err != nil {
		return err
	}

	views := make([]poolView, 0, len(ranked))
	for _, r := range ranked {
		view := newPoolView(r.Pool)
		view.FeeAPR = usd(r.FeeAPR)
		view.DayData = nil
		views = append(views, view)
	}
	return printJSON(cmd, views)
}
