package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"yieldFarm/internal/model"
)

type fakeCaller struct {
	parsed  abi.ABI
	results map[string][]interface{}
	calls   []ethereum.CallMsg
}

func newFakeCaller(parsed abi.ABI) *fakeCaller {
	return &fakeCaller{parsed: parsed, results: make(map[string][]interface{})}
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls = append(f.calls, msg)
	method, err := f.parsed.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	values, ok := f.results[method.Name]
	if !ok {
		return nil, fmt.Errorf("execution reverted")
	}
	return method.Outputs.Pack(values...)
}

func TestFactoryGetPoolSortsPair(t *testing.T) {
	factoryABI, err := FactoryABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	caller := newFakeCaller(factoryABI)
	pool := common.HexToAddress("0x36696169C63e42cd08ce11f5deeBbCeBae652050")
	caller.results["getPool"] = []interface{}{pool}
	caller.results["feeAmountTickSpacing"] = []interface{}{big.NewInt(50)}

	factory := NewFactory(caller, common.HexToAddress("0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865"))
	high := common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c")
	low := common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")

	got, err := factory.GetPool(context.Background(), high, low, model.FeeTier025)
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if got != pool {
		t.Fatalf("pool mismatch: %s", got.Hex())
	}

	args, err := factoryABI.Methods["getPool"].Inputs.Unpack(caller.calls[0].Data[4:])
	if err != nil {
		t.Fatalf("unpack args: %v", err)
	}
	if args[0].(common.Address) != low || args[1].(common.Address) != high {
		t.Fatalf("pair not sorted: %v", args)
	}
	if args[2].(*big.Int).Int64() != 2500 {
		t.Fatalf("fee mismatch: %v", args[2])
	}

	spacing, err := factory.TickSpacing(context.Background(), model.FeeTier025)
	if err != nil {
		t.Fatalf("tick spacing: %v", err)
	}
	if spacing != 50 {
		t.Fatalf("spacing mismatch: %d", spacing)
	}
}

func TestFactoryGetPoolZeroAddress(t *testing.T) {
	factoryABI, err := FactoryABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	caller := newFakeCaller(factoryABI)
	caller.results["getPool"] = []interface{}{common.Address{}}

	factory := NewFactory(caller, common.Address{})
	_, err = factory.GetPool(context.Background(), common.HexToAddress("0x01"), common.HexToAddress("0x02"), model.FeeTier001)
	if !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
}

func TestFetchTokenMeta(t *testing.T) {
	parsed, err := erc20ABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	caller := newFakeCaller(parsed)
	caller.results["decimals"] = []interface{}{uint8(18)}
	caller.results["symbol"] = []interface{}{"CAKE"}
	caller.results["name"] = []interface{}{"PancakeSwap Token"}
	caller.results["totalSupply"] = []interface{}{big.NewInt(1000)}

	token := common.HexToAddress("0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82")
	meta, err := FetchTokenMeta(context.Background(), caller, token, nil)
	if err != nil {
		t.Fatalf("fetch meta: %v", err)
	}
	if meta.Decimals != 18 || meta.Symbol != "CAKE" || meta.Name != "PancakeSwap Token" || meta.TotalSupply != "1000" {
		t.Fatalf("meta mismatch: %+v", meta)
	}
	if meta.Address != token.Hex() {
		t.Fatalf("address mismatch: %s", meta.Address)
	}

	cache := NewTokenMetaCache()
	if _, err := CachedTokenMeta(context.Background(), caller, token, cache, nil); err != nil {
		t.Fatalf("cached meta: %v", err)
	}
	calls := len(caller.calls)
	if _, err := CachedTokenMeta(context.Background(), caller, token, cache, nil); err != nil {
		t.Fatalf("cached meta: %v", err)
	}
	if len(caller.calls) != calls {
		t.Fatalf("cache miss on second lookup")
	}
}

func TestFetchTokenMetaRequiresDecimals(t *testing.T) {
	parsed, err := erc20ABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	caller := newFakeCaller(parsed)
	if _, err := FetchTokenMeta(context.Background(), caller, common.HexToAddress("0x01"), nil); err == nil {
		t.Fatalf("expected error for non-token address")
	}
}

func TestFetchPoolMeta(t *testing.T) {
	poolABI, err := V3PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	caller := newFakeCaller(poolABI)
	token0 := common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")
	token1 := common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c")
	caller.results["token0"] = []interface{}{token0}
	caller.results["token1"] = []interface{}{token1}
	caller.results["fee"] = []interface{}{big.NewInt(500)}
	caller.results["tickSpacing"] = []interface{}{big.NewInt(10)}
	caller.results["liquidity"] = []interface{}{big.NewInt(777)}

	meta, err := FetchPoolMeta(context.Background(), caller, common.HexToAddress("0x99"), nil)
	if err != nil {
		t.Fatalf("fetch pool meta: %v", err)
	}
	if meta.Token0 != token0.Hex() || meta.Token1 != token1.Hex() {
		t.Fatalf("tokens mismatch: %+v", meta)
	}
	if meta.Fee != 500 || meta.TickSpacing != 10 || meta.Liquidity != "777" {
		t.Fatalf("meta mismatch: %+v", meta)
	}
	if meta.Slot0 != nil {
		t.Fatalf("slot0 should be absent when the call fails")
	}
}

func TestBalanceAndAllowance(t *testing.T) {
	parsed, err := erc20ABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	caller := newFakeCaller(parsed)
	caller.results["balanceOf"] = []interface{}{big.NewInt(5)}
	caller.results["allowance"] = []interface{}{big.NewInt(9)}

	token := common.HexToAddress("0x01")
	owner := common.HexToAddress("0x02")
	balance, err := BalanceOf(context.Background(), caller, token, owner)
	if err != nil || balance.Int64() != 5 {
		t.Fatalf("balance mismatch: %v %v", balance, err)
	}
	allowance, err := Allowance(context.Background(), caller, token, owner, common.HexToAddress("0x03"))
	if err != nil || allowance.Int64() != 9 {
		t.Fatalf("allowance mismatch: %v %v", allowance, err)
	}

	data, err := PackApprove(common.HexToAddress("0x03"), big.NewInt(100))
	if err != nil {
		t.Fatalf("pack approve: %v", err)
	}
	method, err := parsed.MethodById(data[:4])
	if err != nil || method.Name != "approve" {
		t.Fatalf("approve selector mismatch: %v", err)
	}
	if _, err := PackApprove(common.HexToAddress("0x03"), big.NewInt(-1)); err == nil {
		t.Fatalf("expected error for negative approve")
	}
}

func TestPackMint(t *testing.T) {
	managerABI, err := PositionManagerABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	params := model.MintParams{
		Token0:         "0x55d398326f99059fF775485246999027B3197955",
		Token1:         "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c",
		Fee:            model.FeeTier025,
		TickLower:      -887250,
		TickUpper:      887250,
		Amount0Desired: big.NewInt(1000),
		Amount1Desired: big.NewInt(2000),
		Amount0Min:     big.NewInt(990),
		Amount1Min:     big.NewInt(1980),
		Recipient:      "0x2222222222222222222222222222222222222222",
		Deadline:       1700000600,
	}

	data, err := PackMint(params)
	if err != nil {
		t.Fatalf("pack mint: %v", err)
	}
	method, err := managerABI.MethodById(data[:4])
	if err != nil || method.Name != "mint" {
		t.Fatalf("mint selector mismatch: %v", err)
	}

	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack mint: %v", err)
	}
	var decoded mintTuple
	if err := method.Inputs.Copy(&decoded, values); err != nil {
		t.Fatalf("copy mint: %v", err)
	}
	if decoded.TickLower.Int64() != -887250 || decoded.TickUpper.Int64() != 887250 {
		t.Fatalf("ticks mismatch: %+v", decoded)
	}
	if decoded.Amount1Min.Int64() != 1980 || decoded.Fee.Int64() != 2500 {
		t.Fatalf("params mismatch: %+v", decoded)
	}

	params.Recipient = "nobody"
	if _, err := PackMint(params); err == nil {
		t.Fatalf("expected invalid recipient error")
	}
}
