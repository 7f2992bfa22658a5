package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/config"
	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/ethereum"
)

const (
	defaultMaxBlockSpan uint64 = 5000
	minMaxBlockSpan     uint64 = 50
	defaultMinBlockSpan uint64 = 20
	defaultLogPageSize         = 1000
)

// LogQuery selects Transfer logs of one token touching one account
type LogQuery struct {
	ChainID      int64
	Token        string
	Account      string
	FromBlock    uint64
	ToBlock      uint64
	MaxBlockSpan uint64
}

// TransferCollector walks a block range in chunks and pages through the log
// search service, halving the chunk span whenever a chunk fails
type TransferCollector struct {
	searcher     providers.LogSearcher
	maxBlockSpan uint64
	minBlockSpan uint64
	pageSize     int
	logger       *zap.Logger
}

// NewTransferCollector creates a new collector
func NewTransferCollector(searcher providers.LogSearcher, cfg config.TransferConfig, logger *zap.Logger) *TransferCollector {
	c := &TransferCollector{
		searcher:     searcher,
		maxBlockSpan: cfg.MaxBlockSpan,
		minBlockSpan: cfg.MinBlockSpan,
		pageSize:     cfg.PageSize,
		logger:       logger.Named("collector"),
	}
	if c.maxBlockSpan == 0 {
		c.maxBlockSpan = defaultMaxBlockSpan
	}
	if c.minBlockSpan == 0 {
		c.minBlockSpan = defaultMinBlockSpan
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultLogPageSize
	}
	return c
}

// Collect returns the decoded Transfer logs in block order. An empty or
// inverted range yields no logs.
func (c *TransferCollector) Collect(ctx context.Context, q LogQuery) ([]entities.TransferLogEntry, error) {
	if q.FromBlock > q.ToBlock {
		return []entities.TransferLogEntry{}, nil
	}

	span := q.MaxBlockSpan
	if span == 0 {
		span = c.maxBlockSpan
	}
	if span < minMaxBlockSpan {
		span = minMaxBlockSpan
	}

	accountTopic := ""
	if q.Account != "" {
		accountTopic = ethereum.AddressTopic(q.Account)
	}

	entries := make([]entities.TransferLogEntry, 0)
	seen := make(map[string]struct{})

	start := q.FromBlock
	for start <= q.ToBlock {
		end := q.ToBlock
		if q.ToBlock-start >= span {
			end = start + span - 1
		}

		chunk, err := c.collectChunk(ctx, q, accountTopic, start, end)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if span <= c.minBlockSpan {
				return nil, fmt.Errorf("failed to collect logs for %s in blocks %d-%d: %w", q.Token, start, end, err)
			}

			span /= 2
			if span < c.minBlockSpan {
				span = c.minBlockSpan
			}
			logChunkRetriesTotal.Inc()
			c.logger.Warn("Log chunk failed, retrying with smaller span",
				zap.String("token", q.Token),
				zap.Uint64("from_block", start),
				zap.Uint64("to_block", end),
				zap.Uint64("span", span),
				zap.Error(err),
			)
			continue
		}

		for _, entry := range chunk {
			if _, dup := seen[entry.Key()]; dup {
				continue
			}
			seen[entry.Key()] = struct{}{}
			entries = append(entries, entry)
		}

		if end == q.ToBlock {
			break
		}
		start = end + 1
	}

	logsCollectedTotal.Add(float64(len(entries)))
	return entries, nil
}

// collectChunk pages through one block window. Nothing is kept from a failed attempt.
func (c *TransferCollector) collectChunk(ctx context.Context, q LogQuery, accountTopic string, from, to uint64) ([]entities.TransferLogEntry, error) {
	var entries []entities.TransferLogEntry

	for page := 1; ; page++ {
		logs, err := c.searcher.SearchLogs(ctx, providers.LogSearchQuery{
			ChainID:      q.ChainID,
			Address:      q.Token,
			Topic0:       ethereum.TransferTopic,
			AccountTopic: accountTopic,
			FromBlock:    from,
			ToBlock:      to,
			Page:         page,
			PageSize:     c.pageSize,
		})
		if err != nil {
			return nil, err
		}

		for _, raw := range logs {
			entry, err := ethereum.ParseTransferLog(raw)
			if err != nil {
				c.logger.Warn("Skipping undecodable transfer log",
					zap.String("tx_hash", raw.TxHash),
					zap.Uint64("log_index", raw.LogIndex),
					zap.Error(err),
				)
				continue
			}
			entries = append(entries, entry)
		}

		if len(logs) < c.pageSize {
			return entries, nil
		}
	}
}
