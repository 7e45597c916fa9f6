package model

import "strings"

// NativeAddress is the address sentinel of the chain's native asset.
const NativeAddress = "native"

// Token is an entry of the token registry.
type Token struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
	LogoURI  string `json:"logoURI,omitempty"`
	IsNative bool   `json:"isNative"`
}

// TokenFromMeta builds an imported registry entry from chain metadata.
func TokenFromMeta(meta TokenMeta) Token {
	return Token{
		ID:       meta.Address,
		Name:     meta.Name,
		Symbol:   meta.Symbol,
		Address:  meta.Address,
		Decimals: int(meta.Decimals),
	}
}

// SameID compares token ids case-insensitively.
func (t Token) SameID(id string) bool {
	return strings.EqualFold(t.ID, id)
}

// TokenMeta captures ERC20 metadata read from chain.
type TokenMeta struct {
	Address     string `json:"address"`
	Decimals    uint8  `json:"decimals"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	TotalSupply string `json:"total_supply,omitempty"`
}
