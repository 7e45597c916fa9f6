package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"yieldFarm/internal/model"
	"yieldFarm/internal/storage/postgres"
)

// Store persists imported tokens.
type Store interface {
	Load(ctx context.Context) ([]model.Token, error)
	Save(ctx context.Context, tokens []model.Token) error
}

// FileStore stores imported tokens in a local JSON file.
type FileStore struct {
	Path string
}

func (s *FileStore) Load(ctx context.Context) ([]model.Token, error) {
	if s == nil || s.Path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tokens: %w", err)
	}

	var tokens []model.Token
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("parse tokens: %w", err)
	}
	return tokens, nil
}

func (s *FileStore) Save(ctx context.Context, tokens []model.Token) error {
	if s == nil || s.Path == "" {
		return nil
	}
	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create tokens dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tokens tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename tokens: %w", err)
	}
	return nil
}

// DBStore stores imported tokens in the imported_tokens table.
type DBStore struct {
	Store *postgres.Store
}

func (s *DBStore) Load(ctx context.Context) ([]model.Token, error) {
	if s == nil || s.Store == nil {
		return nil, nil
	}
	return s.Store.LoadImportedTokens(ctx)
}

func (s *DBStore) Save(ctx context.Context, tokens []model.Token) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveImportedTokens(ctx, tokens)
}
