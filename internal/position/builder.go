package position

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"yieldFarm/internal/model"
	"yieldFarm/internal/pools"
	"yieldFarm/internal/pricemath"
)

// DefaultDeadlineMinutes applies when an intent leaves the deadline unset.
const DefaultDeadlineMinutes = 20

var (
	ErrTokenNotInPool  = errors.New("token is not part of the pool")
	ErrFeeTierMismatch = errors.New("fee tier does not match the pool")
	ErrNoAmount        = errors.New("at least one amount must be positive")
	ErrAmountOverflow  = errors.New("amount exceeds uint256")
	ErrInvalidDeadline = errors.New("deadline must not be negative")
)

// TokenLookup resolves registry tokens by id.
type TokenLookup interface {
	Find(id string) (model.Token, error)
}

// Options tunes how intents become mint parameters.
type Options struct {
	WrappedNative common.Address
	// AlignFullRange snaps a full-range selection to the outermost ticks
	// usable at the pool's spacing instead of the global bounds.
	AlignFullRange bool
}

// Builder turns position intents into position manager mint parameters.
type Builder struct {
	tokens TokenLookup
	opts   Options
	now    func() time.Time
}

func NewBuilder(tokens TokenLookup, opts Options) *Builder {
	return &Builder{tokens: tokens, opts: opts, now: time.Now}
}

// Build validates intent against pool and produces MintParams for recipient.
// spacing is the pool's tick spacing.
func (b *Builder) Build(intent model.PositionIntent, pool model.Pool, spacing int, recipient string) (model.MintParams, error) {
	if !common.IsHexAddress(recipient) {
		return model.MintParams{}, fmt.Errorf("invalid recipient %q", recipient)
	}
	if spacing <= 0 {
		return model.MintParams{}, pricemath.ErrInvalidSpacing
	}

	tokenA, err := b.tokens.Find(intent.TokenA)
	if err != nil {
		return model.MintParams{}, fmt.Errorf("token a: %w", err)
	}
	tokenB, err := b.tokens.Find(intent.TokenB)
	if err != nil {
		return model.MintParams{}, fmt.Errorf("token b: %w", err)
	}
	addrA, err := pools.ChainAddress(tokenA, b.opts.WrappedNative)
	if err != nil {
		return model.MintParams{}, err
	}
	addrB, err := pools.ChainAddress(tokenB, b.opts.WrappedNative)
	if err != nil {
		return model.MintParams{}, err
	}
	if addrA == addrB {
		return model.MintParams{}, pools.ErrSameToken
	}
	for _, addr := range []common.Address{addrA, addrB} {
		if !pool.HasToken(addr.Hex()) {
			return model.MintParams{}, fmt.Errorf("%w: %s", ErrTokenNotInPool, addr.Hex())
		}
	}
	if intent.PoolID != "" && !strings.EqualFold(intent.PoolID, pool.ID) {
		return model.MintParams{}, fmt.Errorf("intent pool %s does not match %s", intent.PoolID, pool.ID)
	}

	tier, err := pool.Tier()
	if err != nil {
		return model.MintParams{}, err
	}
	if intent.FeeTier != 0 && intent.FeeTier != tier {
		return model.MintParams{}, fmt.Errorf("%w: %d != %d", ErrFeeTierMismatch, intent.FeeTier, tier)
	}
	if !tier.Valid() {
		return model.MintParams{}, fmt.Errorf("unsupported fee tier %d", tier)
	}

	if _, err := pricemath.SlippageBps(intent.SlippagePercent); err != nil {
		return model.MintParams{}, err
	}

	priceRange := pricemath.Range{MinPrice: intent.MinPrice, MaxPrice: intent.MaxPrice}
	if err := pricemath.ValidateBounds(priceRange); err != nil {
		return model.MintParams{}, err
	}

	amountA, err := parseAmount(intent.AmountA, tokenA.Decimals)
	if err != nil {
		return model.MintParams{}, fmt.Errorf("amount a: %w", err)
	}
	amountB, err := parseAmount(intent.AmountB, tokenB.Decimals)
	if err != nil {
		return model.MintParams{}, fmt.Errorf("amount b: %w", err)
	}
	if amountA.Sign() == 0 && amountB.Sign() == 0 {
		return model.MintParams{}, ErrNoAmount
	}

	// Reconcile the user's A/B order with the pool's token0/token1 order.
	token0, token1 := addrA, addrB
	amount0, amount1 := amountA, amountB
	dec0, dec1 := tokenA.Decimals, tokenB.Decimals
	if _, _, swapped := pricemath.SortAddresses(addrA.Hex(), addrB.Hex()); swapped {
		token0, token1 = addrB, addrA
		amount0, amount1 = amountB, amountA
		dec0, dec1 = tokenB.Decimals, tokenA.Decimals
	}

	quote := tokenA
	if intent.QuoteToken != "" {
		if quote, err = b.tokens.Find(intent.QuoteToken); err != nil {
			return model.MintParams{}, fmt.Errorf("quote token: %w", err)
		}
	}
	quoteAddr, err := pools.ChainAddress(quote, b.opts.WrappedNative)
	if err != nil {
		return model.MintParams{}, err
	}
	if quoteAddr != token0 && quoteAddr != token1 {
		return model.MintParams{}, fmt.Errorf("%w: %s", pools.ErrQuoteNotInPool, quote.ID)
	}
	// Prices are quote per unit of the other token; ticks are token1 per token0.
	inverted := quoteAddr == token0

	tickLower, tickUpper, err := b.ticks(priceRange, dec0, dec1, inverted, spacing)
	if err != nil {
		return model.MintParams{}, err
	}

	amount0Min, err := pricemath.MinimumAmount(amount0, intent.SlippagePercent)
	if err != nil {
		return model.MintParams{}, err
	}
	amount1Min, err := pricemath.MinimumAmount(amount1, intent.SlippagePercent)
	if err != nil {
		return model.MintParams{}, err
	}

	minutes := intent.DeadlineMinutes
	if minutes < 0 {
		return model.MintParams{}, ErrInvalidDeadline
	}
	if minutes == 0 {
		minutes = DefaultDeadlineMinutes
	}
	deadline := b.now().Add(time.Duration(minutes) * time.Minute).Unix()

	value := new(big.Int)
	switch {
	case tokenA.IsNative:
		value.Set(amountA)
	case tokenB.IsNative:
		value.Set(amountB)
	}

	return model.MintParams{
		Token0:         token0.Hex(),
		Token1:         token1.Hex(),
		Fee:            tier,
		TickLower:      tickLower,
		TickUpper:      tickUpper,
		Amount0Desired: amount0,
		Amount1Desired: amount1,
		Amount0Min:     amount0Min,
		Amount1Min:     amount1Min,
		Recipient:      common.HexToAddress(recipient).Hex(),
		Deadline:       deadline,
		Value:          value,
	}, nil
}

func (b *Builder) ticks(r pricemath.Range, dec0, dec1 int, inverted bool, spacing int) (int, int, error) {
	if r.IsFullRange() {
		if b.opts.AlignFullRange {
			return pricemath.UsableFullRangeTicks(spacing)
		}
		lower, upper := pricemath.FullRangeTicks()
		return lower, upper, nil
	}
	return pricemath.RangeTicks(r, dec0, dec1, inverted, spacing)
}

func parseAmount(value string, decimals int) (*big.Int, error) {
	if strings.TrimSpace(value) == "" {
		return new(big.Int), nil
	}
	amount, err := pricemath.ParseUnits(value, decimals)
	if err != nil {
		return nil, err
	}
	if amount.Sign() < 0 {
		return nil, pricemath.ErrNegativeAmount
	}
	if _, overflow := uint256.FromBig(amount); overflow {
		return nil, ErrAmountOverflow
	}
	return amount, nil
}
