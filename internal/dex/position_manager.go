package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"yieldFarm/internal/model"
)

// mintTuple mirrors INonfungiblePositionManager.MintParams for ABI packing.
type mintTuple struct {
	Token0         common.Address
	Token1         common.Address
	Fee            *big.Int
	TickLower      *big.Int
	TickUpper      *big.Int
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Recipient      common.Address
	Deadline       *big.Int
}

// PackMint returns calldata for the position manager's mint call.
func PackMint(params model.MintParams) ([]byte, error) {
	for name, addr := range map[string]string{
		"token0":    params.Token0,
		"token1":    params.Token1,
		"recipient": params.Recipient,
	} {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid %s address: %q", name, addr)
		}
	}

	managerABI, err := PositionManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse position manager abi: %w", err)
	}

	tuple := mintTuple{
		Token0:         common.HexToAddress(params.Token0),
		Token1:         common.HexToAddress(params.Token1),
		Fee:            new(big.Int).SetUint64(uint64(params.Fee)),
		TickLower:      big.NewInt(int64(params.TickLower)),
		TickUpper:      big.NewInt(int64(params.TickUpper)),
		Amount0Desired: orZero(params.Amount0Desired),
		Amount1Desired: orZero(params.Amount1Desired),
		Amount0Min:     orZero(params.Amount0Min),
		Amount1Min:     orZero(params.Amount1Min),
		Recipient:      common.HexToAddress(params.Recipient),
		Deadline:       big.NewInt(params.Deadline),
	}

	data, err := managerABI.Pack("mint", tuple)
	if err != nil {
		return nil, fmt.Errorf("pack mint: %w", err)
	}
	return data, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
