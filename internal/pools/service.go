package pools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"yieldFarm/internal/dex"
	"yieldFarm/internal/model"
)

const (
	PairHistory = 30 * 24 * time.Hour
	PoolHistory = 24 * time.Hour
)

var ErrSameToken = errors.New("pair needs two different tokens")

// PoolFinder resolves pool addresses on chain.
type PoolFinder interface {
	GetPool(ctx context.Context, tokenA, tokenB common.Address, fee model.FeeTier) (common.Address, error)
}

// PoolSource serves pool records and day data.
type PoolSource interface {
	FindPool(ctx context.Context, id string, start, end time.Time) (model.Pool, error)
	FindPools(ctx context.Context, ids []string, start, end time.Time) ([]model.Pool, error)
	ListPools(ctx context.Context, first int) ([]model.Pool, error)
}

// RankedPool is a pool with its computed fee APR.
type RankedPool struct {
	Pool   model.Pool
	FeeAPR decimal.Decimal
}

// Service browses pools for the UI flows.
type Service struct {
	finder        PoolFinder
	source        PoolSource
	wrappedNative common.Address
	logger        *zap.Logger
	now           func() time.Time
}

func NewService(finder PoolFinder, source PoolSource, wrappedNative common.Address, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		finder:        finder,
		source:        source,
		wrappedNative: wrappedNative,
		logger:        logger,
		now:           time.Now,
	}
}

// ChainAddress maps a registry token to its on-chain address, substituting
// the wrapped native token for the native asset.
func ChainAddress(token model.Token, wrappedNative common.Address) (common.Address, error) {
	if token.IsNative || strings.EqualFold(token.Address, model.NativeAddress) {
		if wrappedNative == (common.Address{}) {
			return common.Address{}, fmt.Errorf("wrapped native address is not configured")
		}
		return wrappedNative, nil
	}
	if !common.IsHexAddress(token.Address) {
		return common.Address{}, fmt.Errorf("invalid token address %q", token.Address)
	}
	return common.HexToAddress(token.Address), nil
}

// PoolsForPair returns the existing pools of a pair, one per fee tier, in
// tier order, each with the last 30 days of day data.
func (s *Service) PoolsForPair(ctx context.Context, tokenA, tokenB model.Token) ([]model.Pool, error) {
	if s.finder == nil {
		return nil, fmt.Errorf("pool finder is not configured")
	}
	addrA, err := ChainAddress(tokenA, s.wrappedNative)
	if err != nil {
		return nil, err
	}
	addrB, err := ChainAddress(tokenB, s.wrappedNative)
	if err != nil {
		return nil, err
	}
	if addrA == addrB {
		return nil, ErrSameToken
	}

	found := make([]string, len(model.FeeTiers))
	g, gCtx := errgroup.WithContext(ctx)
	for i, tier := range model.FeeTiers {
		i, tier := i, tier
		g.Go(func() error {
			pool, err := s.finder.GetPool(gCtx, addrA, addrB, tier)
			if errors.Is(err, dex.ErrPoolNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("get pool fee %d: %w", tier, err)
			}
			found[i] = strings.ToLower(pool.Hex())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(found))
	for _, id := range found {
		if id != "" {
			ids = append(ids, id)
		}
	}
	s.logger.Debug("pair pools resolved",
		zap.String("token_a", addrA.Hex()),
		zap.String("token_b", addrB.Hex()),
		zap.Strings("pools", ids),
	)
	if len(ids) == 0 {
		return nil, nil
	}

	end := s.now()
	pools, err := s.source.FindPools(ctx, ids, end.Add(-PairHistory), end)
	if err != nil {
		return nil, fmt.Errorf("load pools: %w", err)
	}

	order := make(map[string]int, len(ids))
	for i, id := range ids {
		order[id] = i
	}
	sort.SliceStable(pools, func(i, j int) bool {
		return order[strings.ToLower(pools[i].ID)] < order[strings.ToLower(pools[j].ID)]
	})
	return pools, nil
}

// Pool returns a pool with its last 24 hours of day data.
func (s *Service) Pool(ctx context.Context, id string) (model.Pool, error) {
	end := s.now()
	pool, err := s.source.FindPool(ctx, id, end.Add(-PoolHistory), end)
	if err != nil {
		return model.Pool{}, fmt.Errorf("load pool %s: %w", id, err)
	}
	return pool, nil
}

// TopPools lists the largest pools ranked by fee APR, highest first.
func (s *Service) TopPools(ctx context.Context, first int) ([]RankedPool, error) {
	pools, err := s.source.ListPools(ctx, first)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}

	ranked := make([]RankedPool, 0, len(pools))
	for _, pool := range pools {
		apr, err := PoolFeeAPR(pool)
		if err != nil {
			s.logger.Warn("skip pool with bad fee tier", zap.String("pool", pool.ID), zap.Error(err))
			continue
		}
		ranked = append(ranked, RankedPool{Pool: pool, FeeAPR: apr})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FeeAPR.GreaterThan(ranked[j].FeeAPR)
	})
	return ranked, nil
}
