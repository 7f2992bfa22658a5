package providers

import (
	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
)

// Catalog is the configuration registry of tokens, exclusions and markets
type Catalog interface {
	PortfolioTokens(chainID int64) entities.PortfolioTokens
	StableAddresses(chainID int64) []string
	StableSymbols() []string
	Exclusions(chainID int64) []string
	PriceOverride(symbol, address string) (float64, bool)
	Markets(protocol entities.Protocol, chainID int64) []entities.Market
}
