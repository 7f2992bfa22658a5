package entities

import (
	"time"
)

// Protocol names a balance source
type Protocol string

const (
	ProtocolAave     Protocol = "aave"
	ProtocolCompound Protocol = "compound"
	ProtocolPendle   Protocol = "pendle"
	ProtocolWallet   Protocol = "wallet"
)

// MarketRole describes what a market position represents
type MarketRole string

const (
	MarketRoleBase       MarketRole = "base"
	MarketRoleCollateral MarketRole = "collateral"
	MarketRoleSupply     MarketRole = "supply"
	MarketRolePrincipal  MarketRole = "principal"
)

// Market is one position source inside a protocol on one chain.
// Contract is the address queried for the account balance (aToken, comet, PT).
type Market struct {
	Protocol   Protocol   `json:"protocol"`
	ChainID    int64      `json:"chainId"`
	Key        string     `json:"key"`
	Contract   string     `json:"contract"`
	Asset      string     `json:"asset"`
	Symbol     string     `json:"symbol"`
	Decimals   *int       `json:"decimals,omitempty"`
	Role       MarketRole `json:"role"`
	Maturity   *int64     `json:"maturity,omitempty"`
	ValueAtPar bool       `json:"-"`
}

// PositionBalance is what a protocol adapter reports for one market
type PositionBalance struct {
	Amount   Amount
	USDValue *float64
}

// UnifiedBalanceItem is one non-zero position in a summary
type UnifiedBalanceItem struct {
	Protocol Protocol `json:"protocol"`
	Market   string   `json:"market,omitempty"`
	Category string   `json:"category,omitempty"`
	Symbol   string   `json:"symbol"`
	Address  string   `json:"address"`
	Amount   float64  `json:"amount"`
	USDValue float64  `json:"usdValue"`
	Price    float64  `json:"price"`
	Decimals int      `json:"decimals"`
	IsStable bool     `json:"isStable"`
}

// Failure is a non-fatal error recorded next to a partial result
type Failure struct {
	Protocol Protocol `json:"protocol"`
	Market   string   `json:"market,omitempty"`
	Token    string   `json:"token,omitempty"`
	Error    string   `json:"error"`
}

// ProtocolTotals sums a protocol's items, with a per-symbol breakdown
type ProtocolTotals struct {
	USD       float64            `json:"usd"`
	Breakdown map[string]float64 `json:"breakdown"`
}

// ProtocolBalance is the per-protocol section of a summary
type ProtocolBalance struct {
	Protocol  Protocol             `json:"protocol"`
	ChainID   int64                `json:"chainId"`
	Account   string               `json:"account"`
	Currency  string               `json:"currency"`
	Totals    ProtocolTotals       `json:"totals"`
	Items     []UnifiedBalanceItem `json:"items,omitempty"`
	Failures  []Failure            `json:"failures,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// WalletTotals sums the plain-wallet scan
type WalletTotals struct {
	USD       float64 `json:"usd"`
	StableUSD float64 `json:"stableUsd"`
	AssetUSD  float64 `json:"assetUsd"`
}

// WalletMetadata describes the scan itself
type WalletMetadata struct {
	TokensEvaluated int `json:"tokensEvaluated"`
}

// WalletBalance is the result of a wallet portfolio scan
type WalletBalance struct {
	ChainID  int64                `json:"chainId"`
	Account  string               `json:"account"`
	Stable   []UnifiedBalanceItem `json:"stable"`
	Assets   []UnifiedBalanceItem `json:"assets"`
	Totals   WalletTotals         `json:"totals"`
	Failures []Failure            `json:"failures"`
	Metadata WalletMetadata       `json:"metadata"`
}

// SummaryTotals are the grand totals of a unified summary
type SummaryTotals struct {
	USD         float64 `json:"usd"`
	DepositsUSD float64 `json:"depositsUsd"`
	WalletUSD   float64 `json:"walletUsd"`
	StableUSD   float64 `json:"stableUsd"`
}

// UnifiedBalanceSummary composes protocol deposits and wallet holdings for one account
type UnifiedBalanceSummary struct {
	Account   string            `json:"account"`
	ChainID   int64             `json:"chainId"`
	Totals    SummaryTotals     `json:"totals"`
	Protocols []ProtocolBalance `json:"protocols"`
	Wallet    *WalletBalance    `json:"wallet"`
	Failures  []Failure         `json:"failures"`
}
