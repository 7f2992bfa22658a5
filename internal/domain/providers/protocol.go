package providers

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
)

// BalanceAdapter reads an account's position in one protocol market
type BalanceAdapter interface {
	Protocol() entities.Protocol

	// Markets returns the configured markets on the chain; empty means unconfigured
	Markets(chainID int64) []entities.Market

	GetBalance(ctx context.Context, market entities.Market, account common.Address) (entities.PositionBalance, error)
}
