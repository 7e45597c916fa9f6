package subgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const poolPayload = `{"data":{"pools":[{
  "id":"0x36696169c63e42cd08ce11f5deebbcebae652050",
  "feeTier":"500",
  "liquidity":"1000",
  "token0Price":"0.0016",
  "token1Price":"612.5",
  "feesUSD":"10",
  "volumeUSD":"20000",
  "totalValueLockedUSD":"5000000",
  "token0":{"id":"0x55d398326f99059ff775485246999027b3197955","symbol":"USDT","decimals":"18"},
  "token1":{"id":"0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c","symbol":"WBNB","decimals":"18"},
  "poolDayData":[{"date":1700000000,"tvlUSD":"5000000","feesUSD":"100","volumeUSD":"200000"}]
}]}}`

func newTestClient(t *testing.T, url string, ttl time.Duration) *Client {
	t.Helper()
	client, err := NewClient(Config{
		Endpoint:     url,
		CacheTTL:     ttl,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestFindPoolDecodesAndSendsVariables(t *testing.T) {
	var got struct {
		Query     string                 `json:"query"`
		Variables map[string]interface{} `json:"variables"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(poolPayload))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Minute)
	start := time.Unix(1699000000, 0)
	end := time.Unix(1700000000, 0)

	pool, err := client.FindPool(context.Background(), "0x36696169C63e42cd08ce11f5deeBbCeBae652050", start, end)
	require.NoError(t, err)

	assert.Equal(t, "500", pool.FeeTier)
	assert.Equal(t, "WBNB", pool.Token1.Symbol)
	require.Len(t, pool.PoolDayData, 1)
	assert.Equal(t, "200000", pool.PoolDayData[0].VolumeUSD)

	assert.Equal(t, "0x36696169c63e42cd08ce11f5deebbcebae652050", got.Variables["id"])
	assert.EqualValues(t, 1699056000, got.Variables["start"])
	assert.EqualValues(t, 1699920000, got.Variables["end"])
	assert.Contains(t, got.Query, "query FindPool")
}

func TestFindPoolNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"pools":[]}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Minute)
	_, err := client.FindPool(context.Background(), "0x01", time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestQueryCachesWithinTTL(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(poolPayload))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Minute)
	for i := 0; i < 3; i++ {
		pools, err := client.ListPools(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, pools, 1)
	}
	assert.EqualValues(t, 1, hits.Load())
}

func TestQueryRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(poolPayload))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Minute)
	pools, err := client.ListPools(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pools, 1)
	assert.EqualValues(t, 3, hits.Load())
}

func TestQueryGraphQLErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad field"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Minute)
	_, err := client.ListPools(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad field")
	assert.EqualValues(t, 1, hits.Load())
}

func TestQueryServesStaleOnFailure(t *testing.T) {
	var failing atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(poolPayload))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Minute)
	now := time.Unix(1700000000, 0)
	client.now = func() time.Time { return now }

	_, err := client.ListPools(context.Background(), 5)
	require.NoError(t, err)

	failing.Store(true)
	now = now.Add(2 * time.Minute)

	pools, err := client.ListPools(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, "USDT", pools[0].Token0.Symbol)

	_, err = client.ListPools(context.Background(), 6)
	assert.Error(t, err, "no stale entry for a different query")
}

func TestQueryGivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Minute)
	_, err := client.ListPools(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.EqualValues(t, 4, hits.Load(), "first attempt plus three retries")
}

func TestQueryClientErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad request"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Minute)
	_, err := client.ListPools(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.EqualValues(t, 1, hits.Load())
}

func TestQueryEmptyDataIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Minute)
	_, err := client.ListPools(context.Background(), 10)
	assert.ErrorIs(t, err, ErrEmptyData)
}

func TestFindPoolCacheKeyStableWithinDay(t *testing.T) {
	var hits atomic.Int32
	var failing atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(poolPayload))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Minute)
	now := time.Unix(1700000000, 0)
	client.now = func() time.Time { return now }
	id := "0x36696169c63e42cd08ce11f5deebbcebae652050"

	_, err := client.FindPool(context.Background(), id, now.Add(-24*time.Hour), now)
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = client.FindPool(context.Background(), id, now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load(), "served from cache")

	failing.Store(true)
	now = now.Add(2 * time.Minute)
	pool, err := client.FindPool(context.Background(), id, now.Add(-24*time.Hour), now)
	require.NoError(t, err, "stale entry backs the failed refresh")
	assert.Equal(t, "500", pool.FeeTier)
}

func TestDayWindow(t *testing.T) {
	dayStart := time.Date(2023, 11, 14, 0, 0, 0, 0, time.UTC)

	from, to := dayWindow(dayStart.Add(-12*time.Hour), dayStart.Add(12*time.Hour))
	assert.Equal(t, dayStart.Unix(), from)
	assert.Equal(t, dayStart.Unix(), to)

	from, to = dayWindow(dayStart, dayStart.Add(48*time.Hour))
	assert.Equal(t, dayStart.Unix(), from, "aligned start is kept")
	assert.Equal(t, dayStart.Add(48*time.Hour).Unix(), to)

	local := time.FixedZone("UTC+8", 8*3600)
	from, _ = dayWindow(dayStart.Add(time.Hour).In(local), dayStart.Add(time.Hour))
	assert.Equal(t, dayStart.Add(24*time.Hour).Unix(), from)
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.ErrorIs(t, err, ErrNoEndpoint)
}
