package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"yieldFarm/internal/chain"
	"yieldFarm/internal/model"
)

var ErrPoolNotFound = errors.New("pool not found")

// Factory reads pool addresses and tick spacings from a V3 factory.
type Factory struct {
	caller  chain.Caller
	address common.Address
}

func NewFactory(caller chain.Caller, address common.Address) *Factory {
	return &Factory{caller: caller, address: address}
}

// Address returns the factory contract address.
func (f *Factory) Address() common.Address {
	return f.address
}

// GetPool returns the pool for the pair at fee. The pair is passed in
// ascending address order. A zero result is ErrPoolNotFound.
func (f *Factory) GetPool(ctx context.Context, tokenA, tokenB common.Address, fee model.FeeTier) (common.Address, error) {
	if f.caller == nil {
		return common.Address{}, fmt.Errorf("chain client is nil")
	}
	factoryABI, err := FactoryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse factory abi: %w", err)
	}

	token0, token1 := SortTokens(tokenA, tokenB)
	values, err := callMethod(ctx, f.caller, f.address, factoryABI, "getPool", token0, token1, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	pool, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("getPool: %w", err)
	}
	if pool == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s/%s fee %d", ErrPoolNotFound, token0.Hex(), token1.Hex(), fee)
	}
	return pool, nil
}

// TickSpacing returns the tick spacing the factory assigns to fee.
func (f *Factory) TickSpacing(ctx context.Context, fee model.FeeTier) (int, error) {
	if f.caller == nil {
		return 0, fmt.Errorf("chain client is nil")
	}
	factoryABI, err := FactoryABI()
	if err != nil {
		return 0, fmt.Errorf("parse factory abi: %w", err)
	}

	values, err := callMethod(ctx, f.caller, f.address, factoryABI, "feeAmountTickSpacing", new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return 0, err
	}
	spacingInt, err := asBigInt(values[0])
	if err != nil {
		return 0, fmt.Errorf("tick spacing: %w", err)
	}
	spacing, err := int24FromBig(spacingInt)
	if err != nil {
		return 0, fmt.Errorf("tick spacing: %w", err)
	}
	if spacing <= 0 {
		return 0, fmt.Errorf("fee %d is not enabled", fee)
	}
	return int(spacing), nil
}

// SortTokens orders two addresses ascending, as pools store them.
func SortTokens(a, b common.Address) (common.Address, common.Address) {
	if a.Cmp(b) > 0 {
		return b, a
	}
	return a, b
}
