package liquidity

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"yieldFarm/internal/dex"
)

// LogSource is the chain access the scanner needs.
type LogSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, address common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// RunConfig holds runtime settings for a liquidity scan.
type RunConfig struct {
	Pool         common.Address
	FromBlock    uint64
	ToBlock      uint64
	BatchSize    uint64
	StatePath    string
	StateEnabled bool
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner replays a pool's Mint and Burn logs into per-tick net liquidity.
type Runner struct {
	cfg     RunConfig
	source  LogSource
	decoder *dex.PoolEventDecoder
	logger  *zap.Logger
	seen    map[string]struct{}
	store   *StateStore
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, source LogSource, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	decoder, err := dex.NewPoolEventDecoder()
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:     cfg,
		source:  source,
		decoder: decoder,
		logger:  logger,
		seen:    make(map[string]struct{}),
		store:   NewStateStore(cfg.StatePath, cfg.StateEnabled),
	}, nil
}

// Run scans the configured block range, resuming from saved state, and
// returns the accumulated state.
func (r *Runner) Run(ctx context.Context) (State, error) {
	if r.source == nil {
		return State{}, fmt.Errorf("chain client is nil")
	}
	if r.cfg.BatchSize == 0 {
		return State{}, ErrBatchSize
	}
	if r.cfg.Pool == (common.Address{}) {
		return State{}, fmt.Errorf("pool address is required")
	}
	poolHex := r.cfg.Pool.Hex()

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, r.source.LatestBlockNumber, r.notify("latest block"))
		if err != nil {
			return State{}, fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	state := newState(poolHex)
	saved, ok, err := r.store.Load(poolHex)
	if err != nil {
		return State{}, err
	}
	if ok && saved.LastProcessedBlock >= from {
		state = saved
		from = saved.LastProcessedBlock + 1
		r.logger.Info("resume from state", zap.Uint64("last_processed", saved.LastProcessedBlock), zap.Uint64("from", from))
	}

	if from > to {
		r.logger.Info("nothing to scan", zap.Uint64("from", from), zap.Uint64("to", to))
		return state, nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return State{}, err
	}

	topics := r.decoder.PoolTopics()
	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		default:
		}

		r.logger.Debug("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) ([]types.Log, error) {
			return r.source.FilterLogs(ctx, blockRange.From, blockRange.To, r.cfg.Pool, topics)
		}, r.notify("filter logs"))
		if err != nil {
			return state, fmt.Errorf("filter logs: %w", err)
		}

		applied := 0
		for _, log := range logs {
			if log.Removed || r.isDuplicate(log) {
				continue
			}
			if err := r.applyLog(&state, log); err != nil {
				return state, err
			}
			applied++
		}

		state.LastProcessedBlock = blockRange.To
		if err := r.store.Save(state); err != nil {
			return state, err
		}

		r.logger.Info("batch complete",
			zap.Int("events", applied),
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
		)
	}

	return state, nil
}

func (r *Runner) applyLog(state *State, log types.Log) error {
	event, err := r.decoder.Decode(log)
	if err != nil {
		if errors.Is(err, dex.ErrUnsupportedEvent) {
			return nil
		}
		return fmt.Errorf("decode log %s:%d: %w", log.TxHash.Hex(), log.Index, err)
	}

	var (
		lower, upper int32
		raw          string
		sign         int
	)
	switch {
	case event.Mint != nil:
		lower, upper, raw, sign = event.Mint.TickLower, event.Mint.TickUpper, event.Mint.Amount, 1
	case event.Burn != nil:
		lower, upper, raw, sign = event.Burn.TickLower, event.Burn.TickUpper, event.Burn.Amount, -1
	default:
		return nil
	}

	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return fmt.Errorf("invalid liquidity amount %q", raw)
	}
	if sign < 0 {
		amount.Neg(amount)
	}
	if err := state.apply(lower, upper, amount); err != nil {
		return err
	}
	state.Events++
	return nil
}

func (r *Runner) notify(op string) func(error, time.Duration) {
	return func(err error, wait time.Duration) {
		r.logger.Warn(op+" failed", zap.Error(err), zap.Duration("backoff", wait))
	}
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
