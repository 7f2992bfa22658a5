package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/cache"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/protocols"
)

const (
	failureUnsupportedProtocol = "unsupported protocol"
	failureNotConfigured       = "protocol not configured for requested chain"
	currencyUSD                = "usd"
)

// SummaryRequest selects the protocols of a unified balance summary.
// No protocols means every registered one.
type SummaryRequest struct {
	ChainID      int64
	Account      string
	Protocols    []string
	IncludeItems bool
}

// BalanceService composes protocol deposits and wallet holdings of one account
type BalanceService struct {
	adapters *protocols.AdapterRegistry
	wallet   *WalletService
	tokens   *TokenService
	prices   *PriceService
	cache    *cache.RedisCache
	logger   *zap.Logger
}

// NewBalanceService creates a new balance service. cache may be nil.
func NewBalanceService(
	adapters *protocols.AdapterRegistry,
	wallet *WalletService,
	tokens *TokenService,
	prices *PriceService,
	cache *cache.RedisCache,
	logger *zap.Logger,
) *BalanceService {
	return &BalanceService{
		adapters: adapters,
		wallet:   wallet,
		tokens:   tokens,
		prices:   prices,
		cache:    cache,
		logger:   logger.Named("balances"),
	}
}

// protocolSlot is either a computed balance or a protocol-level failure
type protocolSlot struct {
	balance *entities.ProtocolBalance
	failure *entities.Failure
}

// GetUnifiedBalanceSummary never fails because a data source did; those
// become failures next to a partial result. Only an invalid account errors.
func (s *BalanceService) GetUnifiedBalanceSummary(ctx context.Context, req SummaryRequest) (*entities.UnifiedBalanceSummary, error) {
	if !common.IsHexAddress(req.Account) {
		return nil, fmt.Errorf("%w: invalid account %q", entities.ErrInvalidInput, req.Account)
	}
	holder := common.HexToAddress(req.Account)
	requested := s.requestedProtocols(req.Protocols)

	// Generate cache key
	cacheKey := fmt.Sprintf("summary:%d:%s:%s:%t", req.ChainID, strings.ToLower(holder.Hex()), joinProtocols(requested), req.IncludeItems)

	// Try cache first
	var cached entities.UnifiedBalanceSummary
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	slots := make([]protocolSlot, len(requested))
	var wallet *entities.WalletBalance
	var walletErr error

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range requested {
		i, name := i, name

		adapter, ok := s.adapters.Get(name)
		if !ok {
			slots[i].failure = &entities.Failure{Protocol: name, Error: failureUnsupportedProtocol}
			continue
		}
		if len(adapter.Markets(req.ChainID)) == 0 {
			slots[i].failure = &entities.Failure{Protocol: name, Error: failureNotConfigured}
			continue
		}

		g.Go(func() error {
			slots[i].balance, _ = s.protocolBalance(gctx, req.ChainID, adapter, holder)
			return nil
		})
	}
	g.Go(func() error {
		wallet, walletErr = s.wallet.Scan(gctx, req.ChainID, holder.Hex(), req.IncludeItems)
		return nil
	})
	_ = g.Wait()

	summary := &entities.UnifiedBalanceSummary{
		Account:   holder.Hex(),
		ChainID:   req.ChainID,
		Protocols: []entities.ProtocolBalance{},
		Failures:  []entities.Failure{},
	}

	// configFailures are stable across calls; any other failure is a read
	// error that may clear on retry
	configFailures := 0
	deposits, stable := decimal.Zero, decimal.Zero
	for _, slot := range slots {
		if slot.failure != nil {
			summary.Failures = append(summary.Failures, *slot.failure)
			configFailures++
			continue
		}

		balance := slot.balance
		deposits = deposits.Add(decimal.NewFromFloat(balance.Totals.USD))
		for _, item := range balance.Items {
			if item.IsStable {
				stable = stable.Add(decimal.NewFromFloat(item.USDValue))
			}
		}
		summary.Failures = append(summary.Failures, balance.Failures...)

		if !req.IncludeItems {
			balance.Items = nil
		}
		summary.Protocols = append(summary.Protocols, *balance)
	}

	walletUSD := decimal.Zero
	if walletErr != nil {
		summary.Failures = append(summary.Failures, entities.Failure{Protocol: entities.ProtocolWallet, Error: walletErr.Error()})
	} else if wallet != nil {
		summary.Wallet = wallet
		walletUSD = decimal.NewFromFloat(wallet.Totals.USD)
		stable = stable.Add(decimal.NewFromFloat(wallet.Totals.StableUSD))
		summary.Failures = append(summary.Failures, wallet.Failures...)
	}

	summary.Totals = entities.SummaryTotals{
		USD:         deposits.Add(walletUSD).InexactFloat64(),
		DepositsUSD: deposits.InexactFloat64(),
		WalletUSD:   walletUSD.InexactFloat64(),
		StableUSD:   stable.InexactFloat64(),
	}

	for _, f := range summary.Failures {
		protocolFailuresTotal.WithLabelValues(string(f.Protocol)).Inc()
	}

	// Cache the response. A summary with read errors is recomputed next time.
	if s.cache != nil && len(summary.Failures) == configFailures {
		if err := s.cache.Set(ctx, cacheKey, summary); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return summary, nil
}

// GetProtocolBalance is the precise single-protocol query. Unlike the summary
// it surfaces the first problem as an error.
func (s *BalanceService) GetProtocolBalance(ctx context.Context, chainID int64, protocol, account string) (*entities.ProtocolBalance, error) {
	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("%w: invalid account %q", entities.ErrInvalidInput, account)
	}

	name := entities.Protocol(strings.ToLower(strings.TrimSpace(protocol)))
	adapter, ok := s.adapters.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrUnsupportedProtocol, protocol)
	}
	if len(adapter.Markets(chainID)) == 0 {
		return nil, fmt.Errorf("%w: %s is not configured for chain %d", entities.ErrConfiguration, name, chainID)
	}

	balance, err := s.protocolBalance(ctx, chainID, adapter, common.HexToAddress(account))
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// protocolBalance reads every market of the protocol on the chain. Market
// errors become failures on the returned balance; the first one is also
// returned, wrapped with its market key.
func (s *BalanceService) protocolBalance(ctx context.Context, chainID int64, adapter providers.BalanceAdapter, holder common.Address) (*entities.ProtocolBalance, error) {
	name := adapter.Protocol()
	balance := &entities.ProtocolBalance{
		Protocol: name,
		ChainID:  chainID,
		Account:  holder.Hex(),
		Currency: currencyUSD,
		Totals: entities.ProtocolTotals{
			Breakdown: map[string]float64{},
		},
		Items:     []entities.UnifiedBalanceItem{},
		Failures:  []entities.Failure{},
		Timestamp: time.Now().UTC(),
	}

	total := decimal.Zero
	breakdown := map[string]decimal.Decimal{}
	var firstErr error

	for _, market := range adapter.Markets(chainID) {
		item, err := s.marketItem(ctx, adapter, market, holder)
		if err != nil {
			s.logger.Warn("Market balance failed",
				zap.String("protocol", string(name)),
				zap.Int64("chain_id", chainID),
				zap.String("market", market.Key),
				zap.String("symbol", market.Symbol),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", market.Key, err)
			}
			balance.Failures = append(balance.Failures, entities.Failure{
				Protocol: name,
				Market:   market.Key,
				Token:    market.Symbol,
				Error:    err.Error(),
			})
			continue
		}
		if item == nil {
			continue
		}

		usd := decimal.NewFromFloat(item.USDValue)
		total = total.Add(usd)
		key := strings.ToUpper(item.Symbol)
		if key == "" {
			key = item.Address
		}
		breakdown[key] = breakdown[key].Add(usd)
		balance.Items = append(balance.Items, *item)
	}

	balance.Totals.USD = total.InexactFloat64()
	for k, v := range breakdown {
		balance.Totals.Breakdown[k] = v.InexactFloat64()
	}
	return balance, firstErr
}

// marketItem returns nil, nil for an empty position
func (s *BalanceService) marketItem(ctx context.Context, adapter providers.BalanceAdapter, market entities.Market, holder common.Address) (*entities.UnifiedBalanceItem, error) {
	position, err := adapter.GetBalance(ctx, market, holder)
	if err != nil {
		return nil, err
	}
	if !position.Amount.IsPositive() {
		return nil, nil
	}

	amount := position.Amount.Decimal()
	stable := s.tokens.IsStable(market.ChainID, market.Symbol, market.Asset, entities.StableOverrides{})

	var usd, price decimal.Decimal
	switch {
	case position.USDValue != nil:
		usd = decimal.NewFromFloat(*position.USDValue)
		price = usd.Div(amount)
	case stable:
		price = decimal.NewFromInt(1)
		usd = amount
	default:
		p, err := s.prices.GetUSDPrice(ctx, PriceQuery{ChainID: market.ChainID, Address: market.Asset, Symbol: market.Symbol})
		if err != nil {
			return nil, fmt.Errorf("failed to price %s: %w", market.Symbol, err)
		}
		price = decimal.NewFromFloat(p)
		usd = amount.Mul(price)
	}

	return &entities.UnifiedBalanceItem{
		Protocol: adapter.Protocol(),
		Market:   market.Key,
		Category: string(market.Role),
		Symbol:   market.Symbol,
		Address:  market.Asset,
		Amount:   position.Amount.Float64(),
		USDValue: usd.InexactFloat64(),
		Price:    price.InexactFloat64(),
		Decimals: position.Amount.Decimals(),
		IsStable: stable,
	}, nil
}

func (s *BalanceService) requestedProtocols(names []string) []entities.Protocol {
	if len(names) == 0 {
		return s.adapters.Protocols()
	}

	seen := make(map[entities.Protocol]struct{})
	out := make([]entities.Protocol, 0, len(names))
	for _, n := range names {
		p := entities.Protocol(strings.ToLower(strings.TrimSpace(n)))
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	if len(out) == 0 {
		return s.adapters.Protocols()
	}
	return out
}

func joinProtocols(list []entities.Protocol) string {
	names := make([]string, len(list))
	for i, p := range list {
		names[i] = string(p)
	}
	return strings.Join(names, ",")
}
