package services

import (
	"strings"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
)

// Classifier decides whether a token is valued at exactly one dollar.
// It is evaluated on every call and holds no state besides the catalog.
type Classifier struct {
	catalog providers.Catalog
}

func NewClassifier(catalog providers.Catalog) *Classifier {
	return &Classifier{catalog: catalog}
}

// IsStable checks override symbols, catalog symbols, override addresses and
// then the chain's stable address allow-list
func (c *Classifier) IsStable(chainID int64, symbol, address string, overrides entities.StableOverrides) bool {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	address = strings.ToLower(strings.TrimSpace(address))

	if symbol != "" {
		if containsFold(overrides.Symbols, symbol) || containsFold(c.catalog.StableSymbols(), symbol) {
			return true
		}
	}
	if address != "" {
		if containsFold(overrides.Addresses, address) || containsFold(c.catalog.StableAddresses(chainID), address) {
			return true
		}
	}
	return false
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return true
		}
	}
	return false
}
