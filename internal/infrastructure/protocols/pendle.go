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

// PendleAdapter reads principal token balances. PTs redeem one to one for the
// underlying at maturity, so positions are valued at par.
type PendleAdapter struct {
	base
}

var _ providers.BalanceAdapter = (*PendleAdapter)(nil)

func NewPendleAdapter(catalog providers.Catalog, readers providers.ChainReaders, logger *zap.Logger) *PendleAdapter {
	return &PendleAdapter{base: newBase(entities.ProtocolPendle, catalog, readers, logger)}
}

func (p *PendleAdapter) GetBalance(ctx context.Context, market entities.Market, account common.Address) (entities.PositionBalance, error) {
	reader, err := p.reader(ctx, market)
	if err != nil {
		return entities.PositionBalance{}, err
	}

	raw, err := ethereum.BalanceOf(ctx, reader, common.HexToAddress(market.Contract), account)
	if err != nil {
		return entities.PositionBalance{}, fmt.Errorf("failed to read PT balance: %w", err)
	}

	decimals, err := p.decimals(ctx, reader, market, market.Contract)
	if err != nil {
		return entities.PositionBalance{}, err
	}

	market.ValueAtPar = true
	return p.position(market, raw, decimals), nil
}
