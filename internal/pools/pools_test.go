package pools

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yieldFarm/internal/dex"
	"yieldFarm/internal/model"
)

var (
	wbnb = common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c")
	usdt = common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")
)

type fakeFinder struct {
	mu    sync.Mutex
	pools map[model.FeeTier]common.Address
	err   error
	pairs [][2]common.Address
}

func (f *fakeFinder) GetPool(_ context.Context, a, b common.Address, fee model.FeeTier) (common.Address, error) {
	f.mu.Lock()
	f.pairs = append(f.pairs, [2]common.Address{a, b})
	f.mu.Unlock()
	if f.err != nil {
		return common.Address{}, f.err
	}
	if pool, ok := f.pools[fee]; ok {
		return pool, nil
	}
	return common.Address{}, dex.ErrPoolNotFound
}

type fakeSource struct {
	pools      []model.Pool
	start, end time.Time
	ids        []string
}

func (s *fakeSource) FindPool(_ context.Context, id string, start, end time.Time) (model.Pool, error) {
	s.start, s.end = start, end
	for _, pool := range s.pools {
		if strings.EqualFold(pool.ID, id) {
			return pool, nil
		}
	}
	return model.Pool{}, errors.New("not found")
}

func (s *fakeSource) FindPools(_ context.Context, ids []string, start, end time.Time) ([]model.Pool, error) {
	s.start, s.end, s.ids = start, end, ids
	var out []model.Pool
	// reverse order so the service has to restore tier order
	for i := len(s.pools) - 1; i >= 0; i-- {
		for _, id := range ids {
			if strings.EqualFold(s.pools[i].ID, id) {
				out = append(out, s.pools[i])
			}
		}
	}
	return out, nil
}

func (s *fakeSource) ListPools(_ context.Context, first int) ([]model.Pool, error) {
	return s.pools, nil
}

func TestPoolsForPair(t *testing.T) {
	pool500 := common.HexToAddress("0x0500")
	pool2500 := common.HexToAddress("0x2500")
	finder := &fakeFinder{pools: map[model.FeeTier]common.Address{
		model.FeeTier005: pool500,
		model.FeeTier025: pool2500,
	}}
	source := &fakeSource{pools: []model.Pool{
		{ID: strings.ToLower(pool500.Hex()), FeeTier: "500"},
		{ID: strings.ToLower(pool2500.Hex()), FeeTier: "2500"},
	}}

	svc := NewService(finder, source, wbnb, nil)
	now := time.Unix(1700000000, 0)
	svc.now = func() time.Time { return now }

	bnb := model.Token{ID: "BNB", Symbol: "BNB", Address: model.NativeAddress, IsNative: true, Decimals: 18}
	usdtToken := model.Token{ID: usdt.Hex(), Symbol: "USDT", Address: usdt.Hex(), Decimals: 18}

	pools, err := svc.PoolsForPair(context.Background(), bnb, usdtToken)
	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Equal(t, "500", pools[0].FeeTier)
	assert.Equal(t, "2500", pools[1].FeeTier)

	assert.Len(t, finder.pairs, len(model.FeeTiers))
	for _, pair := range finder.pairs {
		assert.Equal(t, wbnb, pair[0], "native must be replaced by wrapped native")
	}
	assert.Equal(t, now.Add(-30*24*time.Hour), source.start)
	assert.Equal(t, now, source.end)
}

func TestPoolsForPairErrors(t *testing.T) {
	svc := NewService(&fakeFinder{}, &fakeSource{}, wbnb, nil)
	wbnbToken := model.Token{ID: wbnb.Hex(), Address: wbnb.Hex()}
	bnb := model.Token{ID: "BNB", Address: model.NativeAddress, IsNative: true}

	_, err := svc.PoolsForPair(context.Background(), bnb, wbnbToken)
	assert.ErrorIs(t, err, ErrSameToken)

	pools, err := svc.PoolsForPair(context.Background(), wbnbToken, model.Token{Address: usdt.Hex()})
	require.NoError(t, err)
	assert.Empty(t, pools)

	failing := NewService(&fakeFinder{err: errors.New("rpc down")}, &fakeSource{}, wbnb, nil)
	_, err = failing.PoolsForPair(context.Background(), wbnbToken, model.Token{Address: usdt.Hex()})
	assert.ErrorContains(t, err, "rpc down")

	noWrapped := NewService(&fakeFinder{}, &fakeSource{}, common.Address{}, nil)
	_, err = noWrapped.PoolsForPair(context.Background(), bnb, model.Token{Address: usdt.Hex()})
	assert.Error(t, err)
}

func TestPoolUsesDayWindow(t *testing.T) {
	source := &fakeSource{pools: []model.Pool{{ID: "0xabc", FeeTier: "100"}}}
	svc := NewService(&fakeFinder{}, source, wbnb, nil)
	now := time.Unix(1700000000, 0)
	svc.now = func() time.Time { return now }

	pool, err := svc.Pool(context.Background(), "0xABC")
	require.NoError(t, err)
	assert.Equal(t, "100", pool.FeeTier)
	assert.Equal(t, now.Add(-24*time.Hour), source.start)
}

func TestTopPoolsRanksByFeeAPR(t *testing.T) {
	source := &fakeSource{pools: []model.Pool{
		{ID: "low", FeeTier: "100", VolumeUSD: "1000", TotalValueLockedUSD: "1000"},
		{ID: "high", FeeTier: "10000", VolumeUSD: "1000", TotalValueLockedUSD: "1000"},
		{ID: "bad", FeeTier: "x"},
		{ID: "empty", FeeTier: "500", VolumeUSD: "1000", TotalValueLockedUSD: "0"},
	}}
	svc := NewService(&fakeFinder{}, source, wbnb, nil)

	ranked, err := svc.TopPools(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, "high", ranked[0].Pool.ID)
	assert.Equal(t, "1", ranked[0].FeeAPR.String())
	assert.Equal(t, "low", ranked[1].Pool.ID)
	assert.Equal(t, "empty", ranked[2].Pool.ID)
}

func TestFeeAPR(t *testing.T) {
	apr := FeeAPR(decimal.NewFromInt(200000), model.FeeTier025, decimal.NewFromInt(1000000))
	assert.Equal(t, "0.05", apr.String())

	assert.True(t, FeeAPR(decimal.NewFromInt(1), model.FeeTier005, decimal.Zero).IsZero())
}

func TestSummarize(t *testing.T) {
	pool := model.Pool{PoolDayData: []model.PoolDayData{
		{TVLUSD: "100.5", VolumeUSD: "10", FeesUSD: "0.25"},
		{TVLUSD: "99.5", VolumeUSD: "", FeesUSD: "0.75"},
	}}
	sum := Summarize(pool)
	assert.Equal(t, "200", sum.TVLUSD.String())
	assert.Equal(t, "10", sum.VolumeUSD.String())
	assert.Equal(t, "1", sum.FeesUSD.String())
	assert.Equal(t, 2, sum.Days)
	assert.True(t, Selectable(pool))
	assert.False(t, Selectable(model.Pool{}))
}

func TestReferencePrice(t *testing.T) {
	pool := model.Pool{
		Token0:      model.PoolToken{ID: "0xaaa"},
		Token1:      model.PoolToken{ID: "0xbbb"},
		Token0Price: "0.0016",
		Token1Price: "612.5",
	}

	price, err := ReferencePrice(pool, "0xAAA")
	require.NoError(t, err)
	assert.Equal(t, "0.0016", price)

	price, err = ReferencePrice(pool, "0xbbb")
	require.NoError(t, err)
	assert.Equal(t, "612.5", price)

	_, err = ReferencePrice(pool, "0xccc")
	assert.ErrorIs(t, err, ErrQuoteNotInPool)
}
