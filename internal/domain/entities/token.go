package entities

import (
	"strings"
	"time"
)

// TokenRole classifies how a token is valued
type TokenRole string

const (
	RoleStable   TokenRole = "stable"
	RoleVolatile TokenRole = "volatile"
	RoleUnknown  TokenRole = "unknown"
)

// NativeAddress stands in for the chain's native asset in registries and results
const NativeAddress = "native"

// Token represents resolved ERC-20 metadata for one chain
type Token struct {
	ChainID   int64     `db:"chain_id" json:"chainId"`
	Address   string    `db:"address" json:"address"`
	Symbol    string    `db:"symbol" json:"symbol"`
	Decimals  int       `db:"decimals" json:"decimals"`
	Role      TokenRole `db:"-" json:"role,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// IsNative reports whether the token is the chain's native asset
func (t Token) IsNative() bool {
	return t.Address == "" || t.Address == NativeAddress
}

// TokenCandidate is a partially known token as it appears in configuration or requests
type TokenCandidate struct {
	Symbol   string
	Address  string
	Decimals *int
	Price    *float64
	Native   bool

	// PriceAddress is priced in place of Address, e.g. the wrapped form of a native asset
	PriceAddress string
}

// Normalized returns a copy with the address lower-cased and the symbol upper-cased
func (c TokenCandidate) Normalized() TokenCandidate {
	c.Address = strings.ToLower(strings.TrimSpace(c.Address))
	c.Symbol = strings.ToUpper(strings.TrimSpace(c.Symbol))
	c.PriceAddress = strings.ToLower(strings.TrimSpace(c.PriceAddress))
	if c.Address == NativeAddress {
		c.Native = true
	}
	return c
}

// PortfolioTokens lists the wallet-scan tokens configured for one chain
type PortfolioTokens struct {
	Stable []TokenCandidate
	Assets []TokenCandidate
}

// StableOverrides extends stable classification for a single call
type StableOverrides struct {
	Symbols   []string
	Addresses []string
}
