package main

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldFarm/internal/config"
	"yieldFarm/internal/dex"
	"yieldFarm/internal/model"
	"yieldFarm/internal/pools"
	"yieldFarm/internal/position"
	"yieldFarm/internal/pricemath"
	"yieldFarm/internal/storage"
)

func newMintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint <tokenA> <tokenB>",
		Short: "Open a concentrated liquidity position",
		Args:  cobra.ExactArgs(2),
		RunE:  runMint,
	}
	addChainFlags(cmd)
	cmd.Flags().String("position-manager", config.DefaultPositionManager, "NonfungiblePositionManager address")
	cmd.Flags().String("pool", "", "pool address (defaults to the pair's pool at --fee)")
	cmd.Flags().Uint32("fee", uint32(model.FeeTier025), "fee tier in hundredths of a basis point")
	cmd.Flags().String("quote", "", "token the prices are quoted in (defaults to tokenA)")
	cmd.Flags().String("min-price", "", "lower price bound")
	cmd.Flags().String("max-price", "", "upper price bound")
	cmd.Flags().Bool("full-range", false, "provide liquidity over the full price range")
	cmd.Flags().String("amount-a", "", "tokenA amount")
	cmd.Flags().String("amount-b", "", "tokenB amount")
	cmd.Flags().Float64("slippage", 0.5, "slippage tolerance in percent")
	cmd.Flags().Int("deadline-minutes", position.DefaultDeadlineMinutes, "transaction deadline in minutes")
	cmd.Flags().Bool("align-full-range", false, "snap full range to the pool's usable ticks")
	cmd.Flags().String("recipient", "", "position owner (defaults to the signer)")
	cmd.Flags().String("private-key", "", "signer private key (hex)")
	cmd.Flags().String("journal", "./data/positions.jsonl", "position journal path")
	cmd.Flags().Bool("dry-run", false, "print the mint calldata without signing")
	return cmd
}

func runMint(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadMint(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	sess, err := openSession(ctx, cfg.Config, logger, true)
	if err != nil {
		return err
	}
	defer sess.Close()

	tokenA, err := sess.registry.Resolve(args[0])
	if err != nil {
		return err
	}
	tokenB, err := sess.registry.Resolve(args[1])
	if err != nil {
		return err
	}

	fee, _ := cmd.Flags().GetUint32("fee")
	poolID, _ := cmd.Flags().GetString("pool")
	pool, err := selectPool(ctx, sess, tokenA, tokenB, model.FeeTier(fee), poolID)
	if err != nil {
		return err
	}
	tier, err := pool.Tier()
	if err != nil {
		return err
	}
	spacing, err := sess.factory().TickSpacing(ctx, tier)
	if err != nil {
		return err
	}

	intent, err := mintIntent(cmd, cfg, tokenA, tokenB, pool, tier)
	if err != nil {
		return err
	}

	var submitter *position.Submitter
	if cfg.PrivateKey != "" {
		journal := storage.Journal(storage.NewJsonlJournal(cfg.Journal))
		if sess.db != nil {
			journal = sess.db
		}
		submitter, err = position.NewSubmitter(sess.client, position.SubmitterConfig{
			PrivateKey:       cfg.PrivateKey,
			PositionManager:  common.HexToAddress(cfg.PositionManager),
			WrappedNative:    common.HexToAddress(cfg.WrappedNative),
			ReceiptInterval:  cfg.ReceiptInterval,
			GasMarginPercent: uint64(cfg.GasMarginPercent),
		}, journal, logger)
		if err != nil {
			return err
		}
	} else if !cfg.DryRun {
		return fmt.Errorf("private key is required unless --dry-run is set")
	}

	recipient, _ := cmd.Flags().GetString("recipient")
	if recipient == "" {
		if submitter == nil {
			return fmt.Errorf("recipient is required without a private key")
		}
		recipient = submitter.Address().Hex()
	}

	builder := position.NewBuilder(sess.registry, position.Options{
		WrappedNative:  common.HexToAddress(cfg.WrappedNative),
		AlignFullRange: cfg.AlignFullRange,
	})
	params, err := builder.Build(intent, pool, spacing, recipient)
	if err != nil {
		return fmt.Errorf("build mint: %w", err)
	}

	logger.Info("mint prepared",
		zap.String("pool", pool.ID),
		zap.String("fee", tier.Percent()),
		zap.Int("spacing", spacing),
		zap.Int("tick_lower", params.TickLower),
		zap.Int("tick_upper", params.TickUpper),
		zap.String("amount0", params.Amount0Desired.String()),
		zap.String("amount1", params.Amount1Desired.String()),
		zap.Bool("dry_run", cfg.DryRun),
	)

	if cfg.DryRun {
		calldata, err := position.DryRun(common.HexToAddress(cfg.PositionManager), params)
		if err != nil {
			return err
		}
		return printJSON(cmd, calldata)
	}

	if err := checkBalances(ctx, sess, submitter.Address(), params); err != nil {
		return err
	}
	record, err := submitter.Submit(ctx, params)
	if err != nil {
		return err
	}
	return printJSON(cmd, record)
}

// selectPool loads poolID, or the pair's pool at fee when poolID is empty.
func selectPool(ctx context.Context, sess *session, tokenA, tokenB model.Token, fee model.FeeTier, poolID string) (model.Pool, error) {
	service, err := sess.poolService()
	if err != nil {
		return model.Pool{}, err
	}
	if poolID != "" {
		return service.Pool(ctx, strings.ToLower(poolID))
	}

	candidates, err := service.PoolsForPair(ctx, tokenA, tokenB)
	if err != nil {
		return model.Pool{}, err
	}
	for _, pool := range candidates {
		if tier, err := pool.Tier(); err == nil && tier == fee {
			return pool, nil
		}
	}
	return model.Pool{}, fmt.Errorf("%w: %s/%s at %s", dex.ErrPoolNotFound, tokenA.Symbol, tokenB.Symbol, fee.Percent())
}

func mintIntent(cmd *cobra.Command, cfg config.MintConfig, tokenA, tokenB model.Token, pool model.Pool, tier model.FeeTier) (model.PositionIntent, error) {
	quote, _ := cmd.Flags().GetString("quote")
	minPrice, _ := cmd.Flags().GetString("min-price")
	maxPrice, _ := cmd.Flags().GetString("max-price")
	fullRange, _ := cmd.Flags().GetBool("full-range")
	amountA, _ := cmd.Flags().GetString("amount-a")
	amountB, _ := cmd.Flags().GetString("amount-b")

	if fullRange {
		r := pricemath.ComputeFullRange()
		minPrice, maxPrice = r.MinPrice, r.MaxPrice
	}
	if minPrice == "" || maxPrice == "" {
		return model.PositionIntent{}, fmt.Errorf("--min-price and --max-price are required unless --full-range is set")
	}

	intent := model.PositionIntent{
		TokenA:          tokenA.ID,
		TokenB:          tokenB.ID,
		PoolID:          pool.ID,
		FeeTier:         tier,
		MinPrice:        minPrice,
		MaxPrice:        maxPrice,
		AmountA:         amountA,
		AmountB:         amountB,
		SlippagePercent: cfg.Slippage,
		DeadlineMinutes: cfg.DeadlineMinutes,
	}
	if quote != "" {
		token, err := resolveID(quote, tokenA, tokenB)
		if err != nil {
			return model.PositionIntent{}, err
		}
		intent.QuoteToken = token
	}
	return intent, nil
}

func resolveID(ref string, tokens ...model.Token) (string, error) {
	for _, token := range tokens {
		if token.SameID(ref) || strings.EqualFold(token.Symbol, ref) || strings.EqualFold(token.Address, ref) {
			return token.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", pools.ErrQuoteNotInPool, ref)
}

// checkBalances fails early when the signer cannot cover the desired amounts.
func checkBalances(ctx context.Context, sess *session, owner common.Address, params model.MintParams) error {
	wrapped := common.HexToAddress(sess.cfg.WrappedNative)
	sides := []struct {
		token  string
		amount *big.Int
	}{
		{params.Token0, params.Amount0Desired},
		{params.Token1, params.Amount1Desired},
	}
	for _, side := range sides {
		if side.amount == nil || side.amount.Sign() == 0 {
			continue
		}
		token := common.HexToAddress(side.token)

		var (
			balance *big.Int
			err     error
		)
		if token == wrapped && params.Value != nil && params.Value.Sign() > 0 {
			balance, err = sess.client.BalanceAt(ctx, owner)
		} else {
			balance, err = dex.BalanceOf(ctx, sess.client, token, owner)
		}
		if err != nil {
			return fmt.Errorf("balance of %s: %w", token.Hex(), err)
		}
		if balance.Cmp(side.amount) < 0 {
			return fmt.Errorf("insufficient balance of %s: have %s, need %s", token.Hex(), balance, side.amount)
		}
	}
	return nil
}
