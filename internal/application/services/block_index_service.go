package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
	"github.com/bimakw/holdings-reconciler/internal/domain/repositories"
)

type blockKey struct {
	chainID   int64
	timestamp int64
}

// BlockIndexService maps timestamps to block numbers. Answers are memoized by
// (chain, timestamp) for the life of the process and never invalidated.
type BlockIndexService struct {
	locator    providers.BlockLocator
	repo       repositories.BlockTimeRepository
	zeroIsMiss bool
	logger     *zap.Logger

	mu   sync.RWMutex
	memo map[blockKey]uint64
}

// NewBlockIndexService creates a new block index. repo may be nil. When
// zeroIsMiss is set a zero block is reported as ErrBlockNotFound and not cached.
func NewBlockIndexService(
	locator providers.BlockLocator,
	repo repositories.BlockTimeRepository,
	zeroIsMiss bool,
	logger *zap.Logger,
) *BlockIndexService {
	return &BlockIndexService{
		locator:    locator,
		repo:       repo,
		zeroIsMiss: zeroIsMiss,
		logger:     logger.Named("blocks"),
		memo:       make(map[blockKey]uint64),
	}
}

// FindBlockByTimestamp returns the block on the preferred side of timestamp.
// The memo key ignores pref, so the first answer for an instant is reused.
func (s *BlockIndexService) FindBlockByTimestamp(ctx context.Context, chainID, timestamp int64, pref entities.BlockPreference) (uint64, error) {
	key := blockKey{chainID: chainID, timestamp: timestamp}

	s.mu.RLock()
	block, ok := s.memo[key]
	s.mu.RUnlock()
	if ok {
		blockLookupsTotal.WithLabelValues("memo").Inc()
		return block, nil
	}

	if s.repo != nil {
		stored, err := s.repo.Get(ctx, chainID, timestamp)
		if err != nil {
			s.logger.Warn("Block index lookup failed", zap.Int64("timestamp", timestamp), zap.Error(err))
		} else if stored != nil && (stored.BlockNumber > 0 || !s.zeroIsMiss) {
			block = uint64(stored.BlockNumber)
			s.remember(key, block)
			blockLookupsTotal.WithLabelValues("repository").Inc()
			return block, nil
		}
	}

	block, err := s.locator.BlockNumberByTime(ctx, chainID, timestamp, pref)
	if err != nil {
		blockLookupsTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("failed to find %s block for %d on chain %d: %w", pref, timestamp, chainID, err)
	}

	if block == 0 && s.zeroIsMiss {
		blockLookupsTotal.WithLabelValues("miss").Inc()
		return 0, fmt.Errorf("%w: chain %d timestamp %d", entities.ErrBlockNotFound, chainID, timestamp)
	}

	blockLookupsTotal.WithLabelValues("explorer").Inc()
	s.remember(key, block)

	if s.repo != nil {
		entry := &entities.BlockTimestamp{
			ChainID:     chainID,
			Timestamp:   timestamp,
			BlockNumber: int64(block),
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.repo.Save(ctx, entry); err != nil {
			s.logger.Warn("Failed to persist block index entry", zap.Int64("timestamp", timestamp), zap.Error(err))
		}
	}

	return block, nil
}

func (s *BlockIndexService) remember(key blockKey, block uint64) {
	s.mu.Lock()
	s.memo[key] = block
	s.mu.Unlock()
}
