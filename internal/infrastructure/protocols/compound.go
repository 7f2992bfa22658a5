package protocols

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/ethereum"
)

// CompoundAdapter reads Compound v3 (Comet) positions. A base market is the
// supplied base asset; a collateral market is one collateral asset held by the comet.
type CompoundAdapter struct {
	base
}

var _ providers.BalanceAdapter = (*CompoundAdapter)(nil)

func NewCompoundAdapter(catalog providers.Catalog, readers providers.ChainReaders, logger *zap.Logger) *CompoundAdapter {
	return &CompoundAdapter{base: newBase(entities.ProtocolCompound, catalog, readers, logger)}
}

func (c *CompoundAdapter) GetBalance(ctx context.Context, market entities.Market, account common.Address) (entities.PositionBalance, error) {
	reader, err := c.reader(ctx, market)
	if err != nil {
		return entities.PositionBalance{}, err
	}

	comet := common.HexToAddress(market.Contract)

	var (
		raw           *big.Int
		decimalsToken string
	)
	switch market.Role {
	case entities.MarketRoleCollateral:
		raw, err = ethereum.CollateralBalanceOf(ctx, reader, comet, account, common.HexToAddress(market.Asset))
		decimalsToken = market.Asset
	case entities.MarketRoleBase, "":
		raw, err = ethereum.BalanceOf(ctx, reader, comet, account)
		decimalsToken = market.Contract
	default:
		return entities.PositionBalance{}, fmt.Errorf("%w: unsupported compound market role %q", entities.ErrConfiguration, market.Role)
	}
	if err != nil {
		return entities.PositionBalance{}, fmt.Errorf("failed to read comet %s balance: %w", market.Role, err)
	}

	decimals, err := c.decimals(ctx, reader, market, decimalsToken)
	if err != nil {
		return entities.PositionBalance{}, err
	}

	return c.position(market, raw, decimals), nil
}
