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

// base carries what every on-chain adapter shares: the market catalog and a
// reader per chain
type base struct {
	protocol entities.Protocol
	catalog  providers.Catalog
	readers  providers.ChainReaders
	logger   *zap.Logger
}

func newBase(protocol entities.Protocol, catalog providers.Catalog, readers providers.ChainReaders, logger *zap.Logger) base {
	return base{
		protocol: protocol,
		catalog:  catalog,
		readers:  readers,
		logger:   logger.Named(string(protocol)),
	}
}

func (b base) Protocol() entities.Protocol {
	return b.protocol
}

func (b base) Markets(chainID int64) []entities.Market {
	return b.catalog.Markets(b.protocol, chainID)
}

func (b base) reader(ctx context.Context, market entities.Market) (providers.ChainReader, error) {
	if market.Protocol != "" && market.Protocol != b.protocol {
		return nil, fmt.Errorf("%w: %s market passed to %s adapter", entities.ErrInvalidInput, market.Protocol, b.protocol)
	}
	return b.readers.Reader(ctx, market.ChainID)
}

// decimals prefers the catalog value and otherwise reads decimals() from token
func (b base) decimals(ctx context.Context, reader providers.ChainReader, market entities.Market, token string) (int, error) {
	if market.Decimals != nil {
		return *market.Decimals, nil
	}

	decimals, err := ethereum.FetchDecimals(ctx, reader, common.HexToAddress(token))
	if err != nil {
		return 0, fmt.Errorf("failed to read decimals of %s: %w", token, err)
	}
	return decimals, nil
}

func (b base) position(market entities.Market, raw *big.Int, decimals int) entities.PositionBalance {
	balance := entities.PositionBalance{Amount: entities.NewAmount(raw, decimals)}
	if market.ValueAtPar {
		usd := balance.Amount.Float64()
		balance.USDValue = &usd
	}

	b.logger.Debug("Read position",
		zap.Int64("chain_id", market.ChainID),
		zap.String("market", market.Key),
		zap.String("symbol", market.Symbol),
		zap.String("amount", balance.Amount.String()),
	)
	return balance
}
