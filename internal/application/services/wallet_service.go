package services

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/ethereum"
)

const walletScanConcurrency = 4

const (
	categoryStable = "stable"
	categoryAsset  = "asset"
)

// WalletService scans the configured portfolio tokens of a chain for one account
type WalletService struct {
	readers providers.ChainReaders
	catalog providers.Catalog
	tokens  *TokenService
	prices  *PriceService
	logger  *zap.Logger
}

// NewWalletService creates a new wallet service
func NewWalletService(
	readers providers.ChainReaders,
	catalog providers.Catalog,
	tokens *TokenService,
	prices *PriceService,
	logger *zap.Logger,
) *WalletService {
	return &WalletService{
		readers: readers,
		catalog: catalog,
		tokens:  tokens,
		prices:  prices,
		logger:  logger.Named("wallet"),
	}
}

type walletSlot struct {
	item    *entities.UnifiedBalanceItem
	failure *entities.Failure
}

// Scan reads every configured token balance. Per-token problems become
// failures; only an invalid account is an error.
func (s *WalletService) Scan(ctx context.Context, chainID int64, account string, includeItems bool) (*entities.WalletBalance, error) {
	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("%w: invalid account %q", entities.ErrInvalidInput, account)
	}
	holder := common.HexToAddress(account)

	result := &entities.WalletBalance{
		ChainID:  chainID,
		Account:  holder.Hex(),
		Stable:   []entities.UnifiedBalanceItem{},
		Assets:   []entities.UnifiedBalanceItem{},
		Failures: []entities.Failure{},
	}

	reader, err := s.readers.Reader(ctx, chainID)
	if err != nil {
		result.Failures = append(result.Failures, entities.Failure{Protocol: entities.ProtocolWallet, Error: err.Error()})
		return result, nil
	}

	portfolio := s.catalog.PortfolioTokens(chainID)
	type job struct {
		candidate entities.TokenCandidate
		category  string
	}
	jobs := make([]job, 0, len(portfolio.Stable)+len(portfolio.Assets))
	for _, c := range portfolio.Stable {
		jobs = append(jobs, job{candidate: c.Normalized(), category: categoryStable})
	}
	for _, c := range portfolio.Assets {
		jobs = append(jobs, job{candidate: c.Normalized(), category: categoryAsset})
	}
	result.Metadata.TokensEvaluated = len(jobs)

	slots := make([]walletSlot, len(jobs))

	var g errgroup.Group
	g.SetLimit(walletScanConcurrency)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			item, err := s.scanToken(ctx, chainID, reader, holder, j.candidate, j.category)
			if err != nil {
				s.logger.Warn("Wallet token scan failed",
					zap.Int64("chain_id", chainID),
					zap.String("token", tokenLabel(j.candidate)),
					zap.Error(err),
				)
				slots[i].failure = &entities.Failure{
					Protocol: entities.ProtocolWallet,
					Token:    tokenLabel(j.candidate),
					Error:    err.Error(),
				}
				return nil
			}
			slots[i].item = item
			return nil
		})
	}
	_ = g.Wait()

	stableUSD, assetUSD := decimal.Zero, decimal.Zero
	for _, slot := range slots {
		if slot.failure != nil {
			result.Failures = append(result.Failures, *slot.failure)
			continue
		}
		if slot.item == nil {
			continue
		}

		usd := decimal.NewFromFloat(slot.item.USDValue)
		if slot.item.Category == categoryStable {
			stableUSD = stableUSD.Add(usd)
			if includeItems {
				result.Stable = append(result.Stable, *slot.item)
			}
		} else {
			assetUSD = assetUSD.Add(usd)
			if includeItems {
				result.Assets = append(result.Assets, *slot.item)
			}
		}
	}

	result.Totals = entities.WalletTotals{
		USD:       stableUSD.Add(assetUSD).InexactFloat64(),
		StableUSD: stableUSD.InexactFloat64(),
		AssetUSD:  assetUSD.InexactFloat64(),
	}

	return result, nil
}

// scanToken returns nil, nil for a zero balance
func (s *WalletService) scanToken(
	ctx context.Context,
	chainID int64,
	reader providers.ChainReader,
	holder common.Address,
	candidate entities.TokenCandidate,
	category string,
) (*entities.UnifiedBalanceItem, error) {
	token, err := s.tokens.Resolve(ctx, chainID, candidate)
	if err != nil {
		return nil, err
	}

	var raw *big.Int
	if candidate.Native {
		raw, err = reader.BalanceAt(ctx, holder)
	} else {
		raw, err = ethereum.BalanceOf(ctx, reader, common.HexToAddress(token.Address), holder)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	if raw == nil || raw.Sign() <= 0 {
		return nil, nil
	}

	amount := entities.NewAmount(raw, token.Decimals)
	stable := category == categoryStable || token.Role == entities.RoleStable

	price := 1.0
	if !stable {
		price, err = s.price(ctx, chainID, candidate, token)
		if err != nil {
			return nil, err
		}
	}

	return &entities.UnifiedBalanceItem{
		Protocol: entities.ProtocolWallet,
		Category: category,
		Symbol:   token.Symbol,
		Address:  token.Address,
		Amount:   amount.Float64(),
		USDValue: amount.Decimal().Mul(decimal.NewFromFloat(price)).InexactFloat64(),
		Price:    price,
		Decimals: token.Decimals,
		IsStable: stable,
	}, nil
}

// price tries the configured token price, then catalog overrides, then the price feed
func (s *WalletService) price(ctx context.Context, chainID int64, candidate entities.TokenCandidate, token entities.Token) (float64, error) {
	if candidate.Price != nil {
		return *candidate.Price, nil
	}
	if p, ok := s.catalog.PriceOverride(token.Symbol, token.Address); ok {
		return p, nil
	}

	address := candidate.PriceAddress
	if address == "" {
		address = token.Address
	}
	if address == entities.NativeAddress {
		return 0, fmt.Errorf("%w: native %s has no price address", entities.ErrPriceUnavailable, token.Symbol)
	}

	return s.prices.GetUSDPrice(ctx, PriceQuery{ChainID: chainID, Address: address, Symbol: token.Symbol})
}

func tokenLabel(c entities.TokenCandidate) string {
	if c.Symbol != "" {
		return c.Symbol
	}
	return strings.ToLower(c.Address)
}
