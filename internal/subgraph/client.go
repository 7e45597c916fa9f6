package subgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/machinebox/graphql"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"yieldFarm/internal/model"
)

var (
	ErrPoolNotFound = errors.New("pool not found in subgraph")
	ErrNoEndpoint   = errors.New("subgraph endpoint is required")
	ErrEmptyData    = errors.New("graphql: empty data")
)

const day = 24 * time.Hour

// Config configures the subgraph client.
type Config struct {
	Endpoint     string
	Timeout      time.Duration
	CacheTTL     time.Duration
	CacheSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	// Now overrides the clock used for cache freshness.
	Now func() time.Time
}

// Client queries a PancakeSwap V3 subgraph.
type Client struct {
	gql        *graphql.Client
	cache      *responseCache
	group      singleflight.Group
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, ErrNoEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cache, err := newResponseCache(cfg.CacheTTL, cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: statusTransport{next: http.DefaultTransport},
	}
	gql := graphql.NewClient(cfg.Endpoint, graphql.WithHTTPClient(httpClient))
	gql.Log = func(s string) { logger.Debug(s) }

	return &Client{
		gql:        gql,
		cache:      cache,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		logger:     logger,
		now:        cfg.Now,
	}, nil
}

// FindPool loads one pool with the day data whose date falls between start
// and end.
func (c *Client) FindPool(ctx context.Context, id string, start, end time.Time) (model.Pool, error) {
	from, to := dayWindow(start, end)
	var resp poolsResponse
	vars := map[string]interface{}{
		"id":    strings.ToLower(id),
		"start": from,
		"end":   to,
	}
	if err := c.query(ctx, "FindPool", findPoolQuery, vars, &resp); err != nil {
		return model.Pool{}, err
	}
	if len(resp.Pools) == 0 {
		return model.Pool{}, fmt.Errorf("%w: %s", ErrPoolNotFound, id)
	}
	return resp.Pools[0], nil
}

// FindPools loads several pools with the day data whose date falls between
// start and end.
func (c *Client) FindPools(ctx context.Context, ids []string, start, end time.Time) ([]model.Pool, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	lower := make([]string, len(ids))
	for i, id := range ids {
		lower[i] = strings.ToLower(id)
	}
	from, to := dayWindow(start, end)
	var resp poolsResponse
	vars := map[string]interface{}{
		"ids":   lower,
		"start": from,
		"end":   to,
	}
	if err := c.query(ctx, "FindPools", findPoolsQuery, vars, &resp); err != nil {
		return nil, err
	}
	return resp.Pools, nil
}

// ListPools returns the first pools by TVL.
func (c *Client) ListPools(ctx context.Context, first int) ([]model.Pool, error) {
	if first <= 0 {
		first = 100
	}
	var resp poolsResponse
	if err := c.query(ctx, "ListPools", listPoolsQuery, map[string]interface{}{"first": first}, &resp); err != nil {
		return nil, err
	}
	return resp.Pools, nil
}

type poolsResponse struct {
	Pools []model.Pool `json:"pools"`
}

// dayWindow maps [start, end] onto the UTC day starts it contains. Day data
// is keyed by day start, so the filter matches the same rows while the
// variables stay constant for a whole day.
func dayWindow(start, end time.Time) (int64, int64) {
	from := start.UTC().Truncate(day)
	if from.Before(start) {
		from = from.Add(day)
	}
	to := end.UTC().Truncate(day)
	return from.Unix(), to.Unix()
}

// query serves fresh cache hits directly, collapses concurrent identical
// requests, and falls back to a stale entry when every retry fails.
func (c *Client) query(ctx context.Context, name, query string, vars map[string]interface{}, out interface{}) error {
	encoded, err := json.Marshal(vars)
	if err != nil {
		return fmt.Errorf("marshal %s variables: %w", name, err)
	}
	key := name + ":" + string(encoded)

	cached, hasCached, fresh := c.cache.Get(key, c.now())
	if fresh {
		return decodeData(name, cached, out)
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		data, err := c.fetchWithRetry(ctx, name, query, vars)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, data, c.now())
		return data, nil
	})
	if err != nil {
		if hasCached {
			c.logger.Warn("subgraph query failed, serving stale data",
				zap.String("query", name),
				zap.Error(err),
			)
			return decodeData(name, cached, out)
		}
		return err
	}
	return decodeData(name, result.([]byte), out)
}

func (c *Client) fetchWithRetry(ctx context.Context, name, query string, vars map[string]interface{}) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.backoff
	policy.MaxInterval = c.backoff * 10

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("subgraph request retry",
			zap.String("query", name),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	}

	operation := func() ([]byte, error) {
		return c.fetch(ctx, query, vars)
	}

	data, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
		backoff.WithNotify(notify),
	)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	return data, nil
}

func (c *Client) fetch(ctx context.Context, query string, vars map[string]interface{}) ([]byte, error) {
	req := graphql.NewRequest(query)
	for k, v := range vars {
		req.Var(k, v)
	}

	var data json.RawMessage
	if err := c.gql.Run(ctx, req, &data); err != nil {
		if retryable(err) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, backoff.Permanent(ErrEmptyData)
	}
	return data, nil
}

// retryable reports whether err is a transport failure or a throttled or
// failing upstream. GraphQL and decoding errors are final.
func retryable(err error) bool {
	var status *statusError
	if errors.As(err, &status) {
		return status.code == http.StatusTooManyRequests || status.code >= 500
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func decodeData(name string, data []byte, out interface{}) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
