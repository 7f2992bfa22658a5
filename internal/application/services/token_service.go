package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
	"github.com/bimakw/holdings-reconciler/internal/domain/repositories"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/ethereum"
)

const defaultDecimals = 18

// TokenService resolves token metadata. Configured values are trusted,
// otherwise decimals() and symbol() are read on-chain with a best-effort fallback.
type TokenService struct {
	readers    providers.ChainReaders
	tokenRepo  repositories.TokenRepository
	classifier *Classifier
	logger     *zap.Logger

	mu       sync.RWMutex
	resolved map[string]entities.Token
}

// NewTokenService creates a new token service. tokenRepo may be nil.
func NewTokenService(
	readers providers.ChainReaders,
	tokenRepo repositories.TokenRepository,
	classifier *Classifier,
	logger *zap.Logger,
) *TokenService {
	return &TokenService{
		readers:    readers,
		tokenRepo:  tokenRepo,
		classifier: classifier,
		logger:     logger.Named("tokens"),
		resolved:   make(map[string]entities.Token),
	}
}

// Resolve returns the token's address, symbol and decimals. Read failures
// fall back to 18 decimals and the symbol hint (or the address); they never error.
func (s *TokenService) Resolve(ctx context.Context, chainID int64, candidate entities.TokenCandidate) (entities.Token, error) {
	c := candidate.Normalized()

	if c.Native {
		return s.withRole(chainID, entities.Token{
			ChainID:  chainID,
			Address:  entities.NativeAddress,
			Symbol:   c.Symbol,
			Decimals: intOr(c.Decimals, defaultDecimals),
		}), nil
	}

	if !common.IsHexAddress(c.Address) {
		return entities.Token{}, fmt.Errorf("%w: invalid token address %q", entities.ErrInvalidInput, candidate.Address)
	}

	// Configured metadata needs no read
	if c.Symbol != "" && c.Decimals != nil {
		return s.withRole(chainID, entities.Token{
			ChainID:  chainID,
			Address:  c.Address,
			Symbol:   c.Symbol,
			Decimals: *c.Decimals,
		}), nil
	}

	key := fmt.Sprintf("%d:%s", chainID, c.Address)

	s.mu.RLock()
	token, ok := s.resolved[key]
	s.mu.RUnlock()
	if ok {
		return s.withRole(chainID, s.applyHints(token, c)), nil
	}

	if s.tokenRepo != nil {
		stored, err := s.tokenRepo.GetByAddress(ctx, chainID, c.Address)
		if err != nil {
			s.logger.Warn("Token repository lookup failed", zap.String("address", c.Address), zap.Error(err))
		} else if stored != nil {
			s.remember(key, *stored)
			return s.withRole(chainID, s.applyHints(*stored, c)), nil
		}
	}

	token, complete := s.read(ctx, chainID, c)
	if complete {
		s.remember(key, token)
		if s.tokenRepo != nil {
			if err := s.tokenRepo.Upsert(ctx, &token); err != nil {
				s.logger.Warn("Failed to persist token metadata", zap.String("address", c.Address), zap.Error(err))
			}
		}
	}

	return s.withRole(chainID, s.applyHints(token, c)), nil
}

// IsStable classifies a token for valuation
func (s *TokenService) IsStable(chainID int64, symbol, address string, overrides entities.StableOverrides) bool {
	return s.classifier.IsStable(chainID, symbol, address, overrides)
}

// read fetches both fields on-chain. complete is false when any fallback was used.
func (s *TokenService) read(ctx context.Context, chainID int64, c entities.TokenCandidate) (entities.Token, bool) {
	token := entities.Token{
		ChainID:  chainID,
		Address:  c.Address,
		Symbol:   c.Symbol,
		Decimals: defaultDecimals,
	}

	reader, err := s.readers.Reader(ctx, chainID)
	if err != nil {
		s.logger.Warn("No reader for token metadata", zap.Int64("chain_id", chainID), zap.Error(err))
		if token.Symbol == "" {
			token.Symbol = c.Address
		}
		return token, false
	}

	complete := true
	addr := common.HexToAddress(c.Address)

	decimals, err := ethereum.FetchDecimals(ctx, reader, addr)
	if err != nil {
		s.logger.Warn("Failed to read decimals, defaulting to 18",
			zap.Int64("chain_id", chainID),
			zap.String("address", c.Address),
			zap.Error(err),
		)
		complete = false
	} else {
		token.Decimals = decimals
	}

	symbol, err := ethereum.FetchSymbol(ctx, reader, addr)
	if err != nil {
		s.logger.Warn("Failed to read symbol",
			zap.Int64("chain_id", chainID),
			zap.String("address", c.Address),
			zap.Error(err),
		)
		complete = false
		if token.Symbol == "" {
			token.Symbol = c.Address
		}
	} else {
		token.Symbol = strings.ToUpper(symbol)
	}

	return token, complete
}

// applyHints lets configured values win over resolved ones
func (s *TokenService) applyHints(token entities.Token, c entities.TokenCandidate) entities.Token {
	if c.Symbol != "" {
		token.Symbol = c.Symbol
	}
	if c.Decimals != nil {
		token.Decimals = *c.Decimals
	}
	return token
}

func (s *TokenService) withRole(chainID int64, token entities.Token) entities.Token {
	token.Role = entities.RoleVolatile
	if s.classifier.IsStable(chainID, token.Symbol, token.Address, entities.StableOverrides{}) {
		token.Role = entities.RoleStable
	}
	return token
}

func (s *TokenService) remember(key string, token entities.Token) {
	s.mu.Lock()
	s.resolved[key] = token
	s.mu.Unlock()
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
