package providers

import (
	"context"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
)

// LogSearchQuery selects one page of event logs for a contract. AccountTopic,
// when set, must match either topic1 or topic2.
type LogSearchQuery struct {
	ChainID      int64
	Address      string
	Topic0       string
	AccountTopic string
	FromBlock    uint64
	ToBlock      uint64
	Page         int
	PageSize     int
}

// LogSearcher is the paginated log-search service
type LogSearcher interface {
	SearchLogs(ctx context.Context, q LogSearchQuery) ([]entities.RawLog, error)
}

// BlockLocator is the block-by-timestamp service
type BlockLocator interface {
	BlockNumberByTime(ctx context.Context, chainID, timestamp int64, pref entities.BlockPreference) (uint64, error)
}

// TokenTransferQuery selects one page of an account's token transfer history
type TokenTransferQuery struct {
	ChainID      int64
	Account      string
	TokenAddress string
	StartBlock   uint64
	EndBlock     uint64 // 0 means up to the latest block
	Page         int
	PageSize     int
}

// TransferHistorySource lists token transfers touching an account, newest first
type TransferHistorySource interface {
	TokenTransfers(ctx context.Context, q TokenTransferQuery) ([]entities.TokenTransfer, error)
}
