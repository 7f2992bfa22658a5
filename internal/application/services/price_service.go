package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
)

// PriceQuery identifies a token to price. Symbol alone is enough for stablecoins.
type PriceQuery struct {
	ChainID   int64
	Address   string
	Symbol    string
	SkipCache bool
}

// PriceService resolves USD prices with a stablecoin fast path and a TTL cache
type PriceService struct {
	feed          providers.PriceFeed
	stableSymbols map[string]struct{}
	cache         *gocache.Cache
	logger        *zap.Logger
}

// NewPriceService creates a new price service. Stable symbols are taken from the catalog.
func NewPriceService(feed providers.PriceFeed, catalog providers.Catalog, ttl time.Duration, logger *zap.Logger) *PriceService {
	if ttl <= 0 {
		ttl = time.Minute
	}

	symbols := make(map[string]struct{})
	for _, s := range catalog.StableSymbols() {
		symbols[strings.ToUpper(s)] = struct{}{}
	}

	return &PriceService{
		feed:          feed,
		stableSymbols: symbols,
		cache:         gocache.New(ttl, 2*ttl),
		logger:        logger.Named("price"),
	}
}

// IsStableSymbol reports whether symbol is priced at exactly one dollar
func (s *PriceService) IsStableSymbol(symbol string) bool {
	_, ok := s.stableSymbols[strings.ToUpper(strings.TrimSpace(symbol))]
	return ok
}

// GetUSDPrice returns the current USD price. A missing price is an error, never zero.
func (s *PriceService) GetUSDPrice(ctx context.Context, q PriceQuery) (float64, error) {
	if q.Symbol != "" && s.IsStableSymbol(q.Symbol) {
		priceLookupsTotal.WithLabelValues("stable").Inc()
		return 1, nil
	}

	address := strings.ToLower(strings.TrimSpace(q.Address))
	if address == "" {
		return 0, fmt.Errorf("%w: token address is required to price %q", entities.ErrInvalidInput, q.Symbol)
	}

	cacheKey := fmt.Sprintf("%d:%s", q.ChainID, address)

	if !q.SkipCache {
		if cached, ok := s.cache.Get(cacheKey); ok {
			priceLookupsTotal.WithLabelValues("cache_hit").Inc()
			return cached.(float64), nil
		}
	}

	price, err := s.feed.CurrentPrice(ctx, q.ChainID, address)
	if err != nil {
		priceLookupsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("Price lookup failed",
			zap.Int64("chain_id", q.ChainID),
			zap.String("address", address),
			zap.Error(err),
		)
		return 0, err
	}

	priceLookupsTotal.WithLabelValues("feed").Inc()
	s.cache.SetDefault(cacheKey, price)

	return price, nil
}
