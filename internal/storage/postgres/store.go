package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"yieldFarm/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store provides Postgres persistence for imported tokens, pool snapshots
// and submitted positions.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// LoadImportedTokens returns imported tokens in import order.
func (s *Store) LoadImportedTokens(ctx context.Context) ([]model.Token, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token_id, name, symbol, address, decimals, logo_uri
		FROM imported_tokens
		ORDER BY ordinal
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []model.Token
	for rows.Next() {
		var token model.Token
		if err := rows.Scan(&token.ID, &token.Name, &token.Symbol, &token.Address, &token.Decimals, &token.LogoURI); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// SaveImportedTokens replaces the imported token set.
func (s *Store) SaveImportedTokens(ctx context.Context, tokens []model.Token) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM imported_tokens`); err != nil {
			return err
		}
		if len(tokens) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, token := range tokens {
			batch.Queue(`
				INSERT INTO imported_tokens (address, ordinal, token_id, name, symbol, decimals, logo_uri)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (address) DO UPDATE SET
					ordinal = EXCLUDED.ordinal,
					token_id = EXCLUDED.token_id,
					name = EXCLUDED.name,
					symbol = EXCLUDED.symbol,
					decimals = EXCLUDED.decimals,
					logo_uri = EXCLUDED.logo_uri
			`,
				token.Address,
				i,
				token.ID,
				token.Name,
				token.Symbol,
				token.Decimals,
				token.LogoURI,
			)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()
		for range tokens {
			if _, err := br.Exec(); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertPools inserts or updates pool snapshots and their day data.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	queued := 0
	for _, pool := range pools {
		fee, err := pool.Tier()
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO pools (
				pool_id, token0, token0_symbol, token0_decimals, token1, token1_symbol, token1_decimals,
				fee_tier, liquidity, token0_price, token1_price, tvl_usd, volume_usd, fees_usd, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now(),now())
			ON CONFLICT (pool_id)
			DO UPDATE SET
				liquidity = EXCLUDED.liquidity,
				token0_price = EXCLUDED.token0_price,
				token1_price = EXCLUDED.token1_price,
				tvl_usd = EXCLUDED.tvl_usd,
				volume_usd = EXCLUDED.volume_usd,
				fees_usd = EXCLUDED.fees_usd,
				updated_at = now()
		`,
			pool.ID,
			pool.Token0.ID,
			pool.Token0.Symbol,
			atoiOrZero(pool.Token0.Decimals),
			pool.Token1.ID,
			pool.Token1.Symbol,
			atoiOrZero(pool.Token1.Decimals),
			int64(fee),
			numericOrZero(pool.Liquidity),
			numericOrZero(pool.Token0Price),
			numericOrZero(pool.Token1Price),
			numericOrZero(pool.TotalValueLockedUSD),
			numericOrZero(pool.VolumeUSD),
			numericOrZero(pool.FeesUSD),
		)
		queued++

		for _, day := range pool.PoolDayData {
			batch.Queue(`
				INSERT INTO pool_day_data (pool_id, day_ts, tvl_usd, fees_usd, volume_usd, updated_at)
				VALUES ($1, $2, $3, $4, $5, now())
				ON CONFLICT (pool_id, day_ts)
				DO UPDATE SET
					tvl_usd = EXCLUDED.tvl_usd,
					fees_usd = EXCLUDED.fees_usd,
					volume_usd = EXCLUDED.volume_usd,
					updated_at = now()
			`,
				pool.ID,
				day.Date,
				numericOrZero(day.TVLUSD),
				numericOrZero(day.FeesUSD),
				numericOrZero(day.VolumeUSD),
			)
			queued++
		}
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// Append records a submitted position. Re-recording a transaction is a no-op.
func (s *Store) Append(ctx context.Context, rec model.PositionRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO positions (
			chain_id, tx_hash, block_number, owner, token0, token1, fee, tick_lower, tick_upper,
			token_id, liquidity, amount0, amount1, submitted_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (chain_id, tx_hash) DO NOTHING
	`,
		int64(rec.ChainID),
		rec.TxHash,
		int64(rec.BlockNumber),
		rec.Owner,
		rec.Token0,
		rec.Token1,
		int64(rec.Fee),
		rec.TickLower,
		rec.TickUpper,
		rec.TokenID,
		rec.Liquidity,
		rec.Amount0,
		rec.Amount1,
		rec.SubmittedAt,
	)
	return err
}

// List returns recorded positions oldest first.
func (s *Store) List(ctx context.Context) ([]model.PositionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, tx_hash, block_number, owner, token0, token1, fee, tick_lower, tick_upper,
			token_id, liquidity, amount0, amount1, submitted_at
		FROM positions
		ORDER BY submitted_at, tx_hash
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PositionRecord
	for rows.Next() {
		var (
			rec     model.PositionRecord
			chainID int64
			block   int64
			fee     int64
		)
		if err := rows.Scan(
			&chainID, &rec.TxHash, &block, &rec.Owner, &rec.Token0, &rec.Token1, &fee,
			&rec.TickLower, &rec.TickUpper, &rec.TokenID, &rec.Liquidity, &rec.Amount0, &rec.Amount1,
			&rec.SubmittedAt,
		); err != nil {
			return nil, err
		}
		rec.ChainID = uint64(chainID)
		rec.BlockNumber = uint64(block)
		rec.Fee = uint32(fee)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func numericOrZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
