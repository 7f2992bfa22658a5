package protocols

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/ethereum"
)

// AaveAdapter reads Aave v3 supply positions. An aToken's balanceOf is the
// account's underlying balance including accrued interest.
type AaveAdapter struct {
	base
}

var _ providers.BalanceAdapter = (*AaveAdapter)(nil)

func NewAaveAdapter(catalog providers.Catalog, readers providers.ChainReaders, logger *zap.Logger) *AaveAdapter {
	return &AaveAdapter{base: newBase(entities.ProtocolAave, catalog, readers, logger)}
}

func (a *AaveAdapter) GetBalance(ctx context.Context, market entities.Market, account common.Address) (entities.PositionBalance, error) {
	reader, err := a.reader(ctx, market)
	if err != nil {
		return entities.PositionBalance{}, err
	}

	raw, err := ethereum.BalanceOf(ctx, reader, common.HexToAddress(market.Contract), account)
	if err != nil {
		return entities.PositionBalance{}, fmt.Errorf("failed to read aToken balance: %w", err)
	}

	decimals, err := a.decimals(ctx, reader, market, market.Contract)
	if err != nil {
		return entities.PositionBalance{}, err
	}

	return a.position(market, raw, decimals), nil
}
