package tokens

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"yieldFarm/internal/chain"
	"yieldFarm/internal/dex"
	"yieldFarm/internal/model"
)

//go:embed tokens.json
var defaultTokensJSON []byte

var (
	ErrTokenNotFound  = errors.New("token not found")
	ErrInvalidAddress = errors.New("invalid token address")
)

// Defaults returns the bundled token list.
func Defaults() ([]model.Token, error) {
	var list struct {
		Tokens []model.Token `json:"tokens"`
	}
	if err := json.Unmarshal(defaultTokensJSON, &list); err != nil {
		return nil, fmt.Errorf("parse default tokens: %w", err)
	}
	return list.Tokens, nil
}

// Registry is the merged view of the bundled tokens and the imported ones.
// It is built once and shared by every consumer.
type Registry struct {
	mu       sync.RWMutex
	defaults []model.Token
	imported []model.Token
	merged   []model.Token

	store  Store
	caller chain.Caller
	logger *zap.Logger
}

// NewRegistry loads the bundled defaults and the persisted imports.
func NewRegistry(ctx context.Context, store Store, caller chain.Caller, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults, err := Defaults()
	if err != nil {
		return nil, err
	}

	var imported []model.Token
	if store != nil {
		imported, err = store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load imported tokens: %w", err)
		}
	}

	r := &Registry{
		defaults: defaults,
		imported: imported,
		store:    store,
		caller:   caller,
		logger:   logger,
	}
	r.rebuild()
	return r, nil
}

// Tokens returns the merged list. Later entries with the same id replace
// earlier ones in place, so imports override defaults.
func (r *Registry) Tokens() []model.Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Token, len(r.merged))
	copy(out, r.merged)
	return out
}

// Find looks a token up by id, case-insensitively.
func (r *Registry) Find(id string) (model.Token, error) {
	id = strings.TrimSpace(id)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, token := range r.merged {
		if token.SameID(id) {
			return token, nil
		}
	}
	return model.Token{}, fmt.Errorf("%w: %s", ErrTokenNotFound, id)
}

// FindByAddress looks a token up by contract address, case-insensitively.
func (r *Registry) FindByAddress(address string) (model.Token, error) {
	address = strings.TrimSpace(address)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, token := range r.merged {
		if strings.EqualFold(token.Address, address) {
			return token, nil
		}
	}
	return model.Token{}, fmt.Errorf("%w: %s", ErrTokenNotFound, address)
}

// Resolve accepts an id, a symbol or an address.
func (r *Registry) Resolve(ref string) (model.Token, error) {
	if token, err := r.Find(ref); err == nil {
		return token, nil
	}
	if token, err := r.FindByAddress(ref); err == nil {
		return token, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, token := range r.merged {
		if strings.EqualFold(token.Symbol, strings.TrimSpace(ref)) {
			return token, nil
		}
	}
	return model.Token{}, fmt.Errorf("%w: %s", ErrTokenNotFound, ref)
}

// Import returns the known token at address, or reads its ERC20 metadata,
// appends it to the imports and persists them.
func (r *Registry) Import(ctx context.Context, address string) (model.Token, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return model.Token{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	if token, err := r.FindByAddress(address); err == nil {
		return token, nil
	}

	meta, err := dex.FetchTokenMeta(ctx, r.caller, common.HexToAddress(address), r.logger)
	if err != nil {
		return model.Token{}, fmt.Errorf("fetch token metadata: %w", err)
	}
	token := model.TokenFromMeta(meta)
	token.ID = address
	token.Address = address

	r.mu.Lock()
	defer r.mu.Unlock()
	imported := append(append([]model.Token(nil), r.imported...), token)
	if r.store != nil {
		if err := r.store.Save(ctx, imported); err != nil {
			return model.Token{}, fmt.Errorf("save imported tokens: %w", err)
		}
	}
	r.imported = imported
	r.rebuildLocked()

	r.logger.Info("token imported",
		zap.String("address", token.Address),
		zap.String("symbol", token.Symbol),
		zap.Int("decimals", token.Decimals),
	)
	return token, nil
}

func (r *Registry) rebuild() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rebuildLocked()
}

func (r *Registry) rebuildLocked() {
	index := make(map[string]int, len(r.defaults)+len(r.imported))
	merged := make([]model.Token, 0, len(r.defaults)+len(r.imported))
	for _, list := range [][]model.Token{r.defaults, r.imported} {
		for _, token := range list {
			key := strings.ToLower(token.ID)
			if i, ok := index[key]; ok {
				merged[i] = token
				continue
			}
			index[key] = len(merged)
			merged = append(merged, token)
		}
	}
	r.merged = merged
}
