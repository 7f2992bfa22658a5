package protocols

import (
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
)

// AdapterRegistry dispatches by protocol name and remembers registration order
type AdapterRegistry struct {
	adapters map[entities.Protocol]providers.BalanceAdapter
	order    []entities.Protocol
}

// NewAdapterRegistry registers adapters in the given order. A later adapter
// for the same protocol replaces an earlier one.
func NewAdapterRegistry(adapters ...providers.BalanceAdapter) *AdapterRegistry {
	r := &AdapterRegistry{adapters: make(map[entities.Protocol]providers.BalanceAdapter)}
	for _, a := range adapters {
		if _, ok := r.adapters[a.Protocol()]; !ok {
			r.order = append(r.order, a.Protocol())
		}
		r.adapters[a.Protocol()] = a
	}
	return r
}

// NewDefaultRegistry wires the Aave, Compound and Pendle adapters
func NewDefaultRegistry(catalog providers.Catalog, readers providers.ChainReaders, logger *zap.Logger) *AdapterRegistry {
	logger = logger.Named("protocols")
	return NewAdapterRegistry(
		NewAaveAdapter(catalog, readers, logger),
		NewCompoundAdapter(catalog, readers, logger),
		NewPendleAdapter(catalog, readers, logger),
	)
}

// Get returns the adapter for protocol
func (r *AdapterRegistry) Get(protocol entities.Protocol) (providers.BalanceAdapter, bool) {
	a, ok := r.adapters[protocol]
	return a, ok
}

// Protocols lists registered protocols in registration order
func (r *AdapterRegistry) Protocols() []entities.Protocol {
	return append([]entities.Protocol{}, r.order...)
}
