package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/cache"
)

const maxTransferPageSize = 1000

// TransferService lists an account's token transfer history
type TransferService struct {
	source providers.TransferHistorySource
	blocks *BlockIndexService
	cache  *cache.RedisCache
	logger *zap.Logger
}

// NewTransferService creates a new transfer service. cache may be nil.
func NewTransferService(
	source providers.TransferHistorySource,
	blocks *BlockIndexService,
	cache *cache.RedisCache,
	logger *zap.Logger,
) *TransferService {
	return &TransferService{
		source: source,
		blocks: blocks,
		cache:  cache,
		logger: logger.Named("transfers"),
	}
}

// TransferResponse is the API response for transfer history queries
type TransferResponse struct {
	ChainID   int64         `json:"chainId"`
	Account   string        `json:"account"`
	Transfers []TransferDTO `json:"transfers"`
	Page      int           `json:"page"`
	Size      int           `json:"size"`
	HasMore   bool          `json:"hasMore"`
}

// TransferDTO is the API representation of a transfer
type TransferDTO struct {
	TxHash       string  `json:"txHash"`
	LogIndex     uint64  `json:"logIndex"`
	BlockNumber  uint64  `json:"blockNumber"`
	Timestamp    int64   `json:"timestamp"`
	TokenAddress string  `json:"tokenAddress"`
	TokenSymbol  string  `json:"tokenSymbol"`
	Decimals     int     `json:"decimals"`
	From         string  `json:"from"`
	To           string  `json:"to"`
	Direction    string  `json:"direction"`
	Value        string  `json:"value"`
	Amount       float64 `json:"amount"`
}

// GetTransfers returns one page of transfers touching account, newest first
func (s *TransferService) GetTransfers(ctx context.Context, chainID int64, account string, filter entities.TransferFilter) (*TransferResponse, error) {
	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("%w: invalid account %q", entities.ErrInvalidInput, account)
	}
	if filter.TokenAddress != "" && !common.IsHexAddress(filter.TokenAddress) {
		return nil, fmt.Errorf("%w: invalid token %q", entities.ErrInvalidInput, filter.TokenAddress)
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Size <= 0 {
		filter.Size = entities.DefaultTransferFilter().Size
	}
	if filter.Size > maxTransferPageSize {
		filter.Size = maxTransferPageSize
	}

	start, end, err := normalizeOpenWindow(filter.StartTime, filter.EndTime)
	if err != nil {
		return nil, err
	}
	filter.StartTime, filter.EndTime = start, end

	account = strings.ToLower(account)
	filter.TokenAddress = strings.ToLower(filter.TokenAddress)

	// Generate cache key
	cacheKey := s.generateCacheKey(chainID, account, filter)

	// Try cache first
	var cached TransferResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	query := providers.TokenTransferQuery{
		ChainID:      chainID,
		Account:      account,
		TokenAddress: filter.TokenAddress,
		Page:         filter.Page,
		PageSize:     filter.Size,
	}
	if filter.StartTime > 0 {
		if query.StartBlock, err = s.blocks.FindBlockByTimestamp(ctx, chainID, filter.StartTime, entities.BlockFloor); err != nil {
			return nil, fmt.Errorf("failed to resolve start block: %w", err)
		}
	}
	if filter.EndTime > 0 {
		if query.EndBlock, err = s.blocks.FindBlockByTimestamp(ctx, chainID, filter.EndTime, entities.BlockCeil); err != nil {
			return nil, fmt.Errorf("failed to resolve end block: %w", err)
		}
	}

	transfers, err := s.source.TokenTransfers(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfers: %w", err)
	}

	// Convert to DTOs
	dtos := make([]TransferDTO, len(transfers))
	for i, t := range transfers {
		direction := string(entities.DirectionOut)
		if t.To == account {
			direction = string(entities.DirectionIn)
		}
		dtos[i] = TransferDTO{
			TxHash:       t.TxHash,
			LogIndex:     t.LogIndex,
			BlockNumber:  t.BlockNumber,
			Timestamp:    t.Timestamp,
			TokenAddress: t.TokenAddress,
			TokenSymbol:  t.TokenSymbol,
			Decimals:     t.Decimals,
			From:         t.From,
			To:           t.To,
			Direction:    direction,
			Value:        t.Value.Raw().String(),
			Amount:       t.Value.Float64(),
		}
	}

	response := &TransferResponse{
		ChainID:   chainID,
		Account:   common.HexToAddress(account).Hex(),
		Transfers: dtos,
		Page:      filter.Page,
		Size:      filter.Size,
		HasMore:   len(transfers) == filter.Size,
	}

	// Cache the response
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, response); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response, nil
}

// generateCacheKey generates a unique cache key for the query
func (s *TransferService) generateCacheKey(chainID int64, account string, filter entities.TransferFilter) string {
	key := fmt.Sprintf("%d|%s|%s|t:%d-%d|p:%d:s:%d", chainID, account, filter.TokenAddress, filter.StartTime, filter.EndTime, filter.Page, filter.Size)
	hash := sha256.Sum256([]byte(key))
	return "transfers:" + hex.EncodeToString(hash[:8])
}

// normalizeOpenWindow converts millisecond inputs to seconds. Either side may
// be zero; when both are set end must be after start.
func normalizeOpenWindow(start, end int64) (int64, int64, error) {
	if start < 0 || end < 0 {
		return 0, 0, fmt.Errorf("%w: negative time window", entities.ErrInvalidInput)
	}
	if start > millisecondThreshold {
		start /= 1000
	}
	if end > millisecondThreshold {
		end /= 1000
	}
	if start > 0 && end > 0 && end <= start {
		return 0, 0, fmt.Errorf("%w: endTime (%d) must be greater than startTime (%d)", entities.ErrInvalidInput, end, start)
	}
	return start, end, nil
}
