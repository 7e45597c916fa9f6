package liquidity

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"yieldFarm/internal/dex"
)

var testPool = common.HexToAddress("0x9999999999999999999999999999999999999999")

type fakeSource struct {
	latest   uint64
	logs     []types.Log
	failures int
	calls    []BlockRange
}

func (f *fakeSource) LatestBlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeSource) FilterLogs(_ context.Context, from, to uint64, address common.Address, topic0 []common.Hash) ([]types.Log, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("rpc unavailable")
	}
	f.calls = append(f.calls, BlockRange{From: from, To: to})

	var out []types.Log
	for _, log := range f.logs {
		if log.BlockNumber < from || log.BlockNumber > to || log.Address != address {
			continue
		}
		if !containsTopic(topic0, log.Topics[0]) {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

func containsTopic(topics []common.Hash, topic common.Hash) bool {
	for _, t := range topics {
		if t == topic {
			return true
		}
	}
	return false
}

func TestRunnerAccumulatesNetLiquidity(t *testing.T) {
	poolABI := mustPoolABI(t)

	mint := mintLog(t, poolABI, 10, 0, -120, 120, 1000)
	removed := mintLog(t, poolABI, 15, 0, -600, 600, 99999)
	removed.Removed = true

	source := &fakeSource{
		latest: 40,
		logs: []types.Log{
			mint,
			mint,
			removed,
			mintLog(t, poolABI, 20, 0, 0, 60, 500),
			burnLog(t, poolABI, 30, 2, -120, 120, 300),
		},
		failures: 1,
	}

	statePath := filepath.Join(t.TempDir(), "state.json")
	runner, err := NewRunner(RunConfig{
		Pool:         testPool,
		FromBlock:    1,
		BatchSize:    10,
		StatePath:    statePath,
		StateEnabled: true,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}, source, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	state, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := map[int32]string{-120: "700", 0: "500", 60: "-500", 120: "-700"}
	assertNet(t, state.NetLiquidity, want)
	if state.Events != 3 {
		t.Fatalf("events mismatch: %d", state.Events)
	}
	if state.LastProcessedBlock != 40 {
		t.Fatalf("last processed mismatch: %d", state.LastProcessedBlock)
	}
	if len(source.calls) != 4 {
		t.Fatalf("expected 4 batches, got %+v", source.calls)
	}

	saved, ok, err := NewStateStore(statePath, true).Load(testPool.Hex())
	if err != nil || !ok {
		t.Fatalf("load state: ok=%v err=%v", ok, err)
	}
	assertNet(t, saved.NetLiquidity, want)
}

func TestRunnerResumesFromState(t *testing.T) {
	poolABI := mustPoolABI(t)
	statePath := filepath.Join(t.TempDir(), "state.json")

	source := &fakeSource{
		logs: []types.Log{
			mintLog(t, poolABI, 5, 0, -60, 60, 100),
		},
	}
	cfg := RunConfig{
		Pool:         testPool,
		FromBlock:    1,
		ToBlock:      20,
		BatchSize:    100,
		StatePath:    statePath,
		StateEnabled: true,
	}

	runner, err := NewRunner(cfg, source, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	source.logs = append(source.logs, mintLog(t, poolABI, 25, 0, 0, 120, 40))
	source.calls = nil
	cfg.ToBlock = 30

	runner, err = NewRunner(cfg, source, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	state, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(source.calls) != 1 || source.calls[0].From != 21 || source.calls[0].To != 30 {
		t.Fatalf("resume range mismatch: %+v", source.calls)
	}
	assertNet(t, state.NetLiquidity, map[int32]string{-60: "100", 0: "40", 60: "-100", 120: "-40"})
	if state.Events != 2 {
		t.Fatalf("events mismatch: %d", state.Events)
	}
}

func TestRunnerIgnoresStateOfOtherPool(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	store := NewStateStore(statePath, true)

	other := newState(common.HexToAddress("0x1111111111111111111111111111111111111111").Hex())
	other.LastProcessedBlock = 500
	if err := store.Save(other); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, ok, err := store.Load(testPool.Hex()); err != nil || ok {
		t.Fatalf("expected no state for pool, ok=%v err=%v", ok, err)
	}
}

func TestRunnerValidation(t *testing.T) {
	if _, err := mustRunner(t, RunConfig{Pool: testPool}).Run(context.Background()); !errors.Is(err, ErrBatchSize) {
		t.Fatalf("expected ErrBatchSize, got %v", err)
	}
	if _, err := mustRunner(t, RunConfig{BatchSize: 10}).Run(context.Background()); err == nil {
		t.Fatalf("expected error for missing pool")
	}
}

func TestStateApplyCancelsOut(t *testing.T) {
	state := newState(testPool.Hex())
	if err := state.apply(-10, 10, big.NewInt(5)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := state.apply(-10, 10, big.NewInt(-5)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(state.NetLiquidity) != 0 {
		t.Fatalf("expected empty net liquidity, got %+v", state.NetLiquidity)
	}
	if err := state.apply(10, 10, big.NewInt(1)); err == nil {
		t.Fatalf("expected error for empty tick range")
	}
}

func mustRunner(t *testing.T, cfg RunConfig) *Runner {
	t.Helper()
	runner, err := NewRunner(cfg, &fakeSource{}, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return runner
}

func mustPoolABI(t *testing.T) abi.ABI {
	t.Helper()
	poolABI, err := dex.V3PoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	return poolABI
}

func mintLog(t *testing.T, poolABI abi.ABI, block uint64, index uint, lower, upper int32, amount int64) types.Log {
	t.Helper()
	event := poolABI.Events["Mint"]
	data, err := event.Inputs.NonIndexed().Pack(
		common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		big.NewInt(amount),
		big.NewInt(1),
		big.NewInt(1),
	)
	if err != nil {
		t.Fatalf("pack mint: %v", err)
	}
	return poolLog(event.ID, block, index, data, lower, upper)
}

func burnLog(t *testing.T, poolABI abi.ABI, block uint64, index uint, lower, upper int32, amount int64) types.Log {
	t.Helper()
	event := poolABI.Events["Burn"]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(amount), big.NewInt(1), big.NewInt(1))
	if err != nil {
		t.Fatalf("pack burn: %v", err)
	}
	return poolLog(event.ID, block, index, data, lower, upper)
}

func poolLog(topic0 common.Hash, block uint64, index uint, data []byte, lower, upper int32) types.Log {
	owner := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	return types.Log{
		Address:     testPool,
		Topics:      []common.Hash{topic0, common.BytesToHash(owner.Bytes()), int24Topic(lower), int24Topic(upper)},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
		Index:       index,
	}
}

func int24Topic(value int32) common.Hash {
	v := big.NewInt(int64(value))
	if value < 0 {
		v.Add(v, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return common.BigToHash(v)
}

func assertNet(t *testing.T, got, want map[int32]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("net liquidity mismatch: %+v != %+v", got, want)
	}
	for tick, value := range want {
		if got[tick] != value {
			t.Fatalf("tick %d: got %q want %q", tick, got[tick], value)
		}
	}
}
