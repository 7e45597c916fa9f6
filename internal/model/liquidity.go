package model

// MintEventData is the decoded pool Mint event payload.
type MintEventData struct {
	Sender    string `json:"sender"`
	Owner     string `json:"owner"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// BurnEventData is the decoded pool Burn event payload.
type BurnEventData struct {
	Owner     string `json:"owner"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// IncreaseLiquidityEventData is the position manager's IncreaseLiquidity payload.
type IncreaseLiquidityEventData struct {
	TokenID   string `json:"token_id"`
	Liquidity string `json:"liquidity"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// LiquidityBin is the active liquidity over a tick interval.
type LiquidityBin struct {
	TickLower  int    `json:"tick_lower"`
	TickUpper  int    `json:"tick_upper"`
	PriceLower string `json:"price_lower"`
	PriceUpper string `json:"price_upper"`
	Liquidity  string `json:"liquidity"`
}
