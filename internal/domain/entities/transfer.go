package entities

import (
	"math/big"
	"strconv"
)

// RawLog is an event log as returned by the log-search service, before decoding
type RawLog struct {
	Address     string
	Topics      []string
	Data        string
	BlockNumber uint64
	LogIndex    uint64
	TxHash      string
	Timestamp   int64
}

// TransferLogEntry is a decoded ERC-20 Transfer event. Addresses are lower-cased.
type TransferLogEntry struct {
	TokenAddress string
	From         string
	To           string
	RawAmount    *big.Int
	BlockNumber  uint64
	LogIndex     uint64
	TxHash       string
	Timestamp    int64
}

// Key identifies the entry across overlapping queries
func (e TransferLogEntry) Key() string {
	return e.TxHash + ":" + strconv.FormatUint(e.LogIndex, 10)
}

// TokenTransfer is one row of an account's token transfer history
type TokenTransfer struct {
	TxHash       string `json:"txHash"`
	LogIndex     uint64 `json:"logIndex"`
	BlockNumber  uint64 `json:"blockNumber"`
	Timestamp    int64  `json:"timestamp"`
	TokenAddress string `json:"tokenAddress"`
	TokenSymbol  string `json:"tokenSymbol"`
	Decimals     int    `json:"decimals"`
	From         string `json:"from"`
	To           string `json:"to"`
	Value        Amount `json:"-"`
}

// TransferFilter narrows a transfer history listing
// StartTime/EndTime are Unix seconds (or milliseconds); zero leaves that side open.
type TransferFilter struct {
	TokenAddress string
	StartTime    int64
	EndTime      int64
	Page         int
	Size         int
}

// DefaultTransferFilter returns a filter with sensible defaults
func DefaultTransferFilter() TransferFilter {
	return TransferFilter{
		Page: 1,
		Size: 100,
	}
}
