package model

import (
	"math/big"
	"time"
)

// PositionIntent is the not-yet-submitted set of user inputs for a new
// position. Prices are quoted in QuoteToken per unit of the other token.
type PositionIntent struct {
	TokenA          string  `json:"token_a"`
	TokenB          string  `json:"token_b"`
	PoolID          string  `json:"pool_id"`
	FeeTier         FeeTier `json:"fee_tier"`
	QuoteToken      string  `json:"quote_token"`
	MinPrice        string  `json:"min_price"`
	MaxPrice        string  `json:"max_price"`
	AmountA         string  `json:"amount_a"`
	AmountB         string  `json:"amount_b"`
	SlippagePercent float64 `json:"slippage_percent"`
	DeadlineMinutes int     `json:"deadline_minutes"`
}

// MintParams are the position manager mint arguments, in call order.
type MintParams struct {
	Token0         string
	Token1         string
	Fee            FeeTier
	TickLower      int
	TickUpper      int
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Recipient      string
	Deadline       int64
	// Value is the native amount attached to the call.
	Value *big.Int
}

// PositionRecord is a journal line for a broadcast mint.
type PositionRecord struct {
	ChainID     uint64    `json:"chain_id"`
	TxHash      string    `json:"tx_hash"`
	BlockNumber uint64    `json:"block_number"`
	Owner       string    `json:"owner"`
	Token0      string    `json:"token0"`
	Token1      string    `json:"token1"`
	Fee         uint32    `json:"fee"`
	TickLower   int       `json:"tick_lower"`
	TickUpper   int       `json:"tick_upper"`
	TokenID     string    `json:"token_id,omitempty"`
	Liquidity   string    `json:"liquidity,omitempty"`
	Amount0     string    `json:"amount0"`
	Amount1     string    `json:"amount1"`
	SubmittedAt time.Time `json:"submitted_at"`
}
