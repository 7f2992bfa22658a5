package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/holdings-reconciler/internal/config"
	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/cache"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/ethereum"
)

// millisecondThreshold separates Unix seconds from Unix milliseconds
const millisecondThreshold = 1_000_000_000_000

// NetTransferRequest describes a net-transfer computation for one or more accounts
type NetTransferRequest struct {
	ChainID          int64
	Accounts         []string
	StartTime        int64
	EndTime          int64
	Tokens           []entities.TokenCandidate
	StableOverrides  entities.StableOverrides
	ExcludeAddresses []string
	IncludeBreakdown bool
	MaxBlockSpan     uint64
}

// NetTransferService computes inbound, outbound and net USD transfer totals
// of watched accounts over a time window
type NetTransferService struct {
	readers     providers.ChainReaders
	catalog     providers.Catalog
	tokens      *TokenService
	prices      *PriceService
	blocks      *BlockIndexService
	collector   *TransferCollector
	cache       *cache.RedisCache
	cacheTTL    time.Duration
	concurrency int
	logger      *zap.Logger
}

// NewNetTransferService creates a new net-transfer service. cache may be nil.
func NewNetTransferService(
	readers providers.ChainReaders,
	catalog providers.Catalog,
	tokens *TokenService,
	prices *PriceService,
	blocks *BlockIndexService,
	collector *TransferCollector,
	cache *cache.RedisCache,
	cfg config.TransferConfig,
	logger *zap.Logger,
) *NetTransferService {
	concurrency := cfg.TokenConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &NetTransferService{
		readers:     readers,
		catalog:     catalog,
		tokens:      tokens,
		prices:      prices,
		blocks:      blocks,
		collector:   collector,
		cache:       cache,
		cacheTTL:    cfg.ResultCacheTTL,
		concurrency: concurrency,
		logger:      logger.Named("net_transfer"),
	}
}

type watchedAccount struct {
	lower    string
	checksum string
}

type valuedToken struct {
	token entities.Token
	price decimal.Decimal
}

type tokenLogs struct {
	entries []entities.TransferLogEntry
}

type breakdownAccumulator struct {
	token     entities.Token
	inbound   decimal.Decimal
	outbound  decimal.Decimal
	transfers []entities.TransferRecord
}

type accountAccumulator struct {
	account  string
	inbound  decimal.Decimal
	outbound decimal.Decimal
	tokens   map[string]*breakdownAccumulator
	order    []string
}

// netTransferRun holds everything resolved for one computation
type netTransferRun struct {
	chainID   int64
	start     int64
	end       int64
	fromBlock uint64
	toBlock   uint64
	tokens    []valuedToken
	accounts  []watchedAccount
	logs      int
	summaries []entities.NetTransferAccountSummary
}

// GetNetTransfer computes the result for the first valid account in req
func (s *NetTransferService) GetNetTransfer(ctx context.Context, req NetTransferRequest) (*entities.NetTransferResult, error) {
	accounts, err := normalizeAccounts(req.Accounts)
	if err != nil {
		return nil, err
	}
	req.Accounts = []string{accounts[0].lower}

	// Generate cache key
	cacheKey, cacheable := s.cacheKey("single", req)

	// Try cache first
	var cached entities.NetTransferResult
	if cacheable && s.cache.Get(ctx, cacheKey, &cached) == nil {
		s.logger.Debug("Cache hit", zap.String("key", cacheKey))
		return &cached, nil
	}

	run, err := s.compute(ctx, req)
	if err != nil {
		return nil, err
	}

	summary := run.summaries[0]
	result := &entities.NetTransferResult{
		ChainID:         run.chainID,
		Account:         summary.Account,
		StartTime:       run.start,
		EndTime:         run.end,
		InboundUSD:      summary.InboundUSD,
		OutboundUSD:     summary.OutboundUSD,
		NetTransfer:     summary.NetTransfer,
		TokensEvaluated: len(run.tokens),
		FromBlock:       run.fromBlock,
		ToBlock:         run.toBlock,
		LogsEvaluated:   run.logs,
		Breakdown:       summary.Breakdown,
	}

	// Cache the response
	if cacheable {
		if err := s.cache.SetWithTTL(ctx, cacheKey, result, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return result, nil
}

// GetNetTransfers computes one summary per distinct account, in first-seen order
func (s *NetTransferService) GetNetTransfers(ctx context.Context, req NetTransferRequest) (*entities.NetTransferBatchResult, error) {
	cacheKey, cacheable := s.cacheKey("batch", req)

	var cached entities.NetTransferBatchResult
	if cacheable && s.cache.Get(ctx, cacheKey, &cached) == nil {
		s.logger.Debug("Cache hit", zap.String("key", cacheKey))
		return &cached, nil
	}

	run, err := s.compute(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &entities.NetTransferBatchResult{
		ChainID:         run.chainID,
		StartTime:       run.start,
		EndTime:         run.end,
		TokensEvaluated: len(run.tokens),
		FromBlock:       run.fromBlock,
		ToBlock:         run.toBlock,
		LogsEvaluated:   run.logs,
		Accounts:        run.summaries,
	}

	if cacheable {
		if err := s.cache.SetWithTTL(ctx, cacheKey, result, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return result, nil
}

func (s *NetTransferService) compute(ctx context.Context, req NetTransferRequest) (*netTransferRun, error) {
	started := time.Now()
	defer func() {
		netTransferDuration.Observe(time.Since(started).Seconds())
	}()

	accounts, err := normalizeAccounts(req.Accounts)
	if err != nil {
		return nil, err
	}

	start, end, err := normalizeWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	if _, err := s.readers.Reader(ctx, req.ChainID); err != nil {
		return nil, err
	}

	tokens, err := s.resolveTokens(ctx, req)
	if err != nil {
		return nil, err
	}

	fromBlock, err := s.blocks.FindBlockByTimestamp(ctx, req.ChainID, start, entities.BlockFloor)
	if err != nil {
		return nil, err
	}
	toBlock, err := s.blocks.FindBlockByTimestamp(ctx, req.ChainID, end, entities.BlockCeil)
	if err != nil {
		return nil, err
	}
	if toBlock < fromBlock {
		return nil, fmt.Errorf("%w: blocks %d-%d for window %d-%d", entities.ErrRangeInverted, fromBlock, toBlock, start, end)
	}

	excluded := s.exclusionSet(req.ChainID, req.ExcludeAddresses)

	collected, err := s.collectAll(ctx, req, tokens, accounts, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}

	run := &netTransferRun{
		chainID:   req.ChainID,
		start:     start,
		end:       end,
		fromBlock: fromBlock,
		toBlock:   toBlock,
		tokens:    tokens,
		accounts:  accounts,
	}

	accumulators := make(map[string]*accountAccumulator, len(accounts))
	for _, a := range accounts {
		accumulators[a.lower] = &accountAccumulator{
			account: a.checksum,
			tokens:  make(map[string]*breakdownAccumulator),
		}
	}

	// Fold in token order so the result does not depend on fetch scheduling
	for i, vt := range tokens {
		run.logs += len(collected[i].entries)
		for _, entry := range collected[i].entries {
			s.apply(accumulators, vt, entry, start, end, excluded, req.IncludeBreakdown)
		}
	}

	run.summaries = make([]entities.NetTransferAccountSummary, 0, len(accounts))
	for _, a := range accounts {
		run.summaries = append(run.summaries, accumulators[a.lower].finalize(req.IncludeBreakdown))
	}

	s.logger.Info("Computed net transfers",
		zap.Int64("chain_id", req.ChainID),
		zap.Int("accounts", len(accounts)),
		zap.Int("tokens", len(tokens)),
		zap.Uint64("from_block", fromBlock),
		zap.Uint64("to_block", toBlock),
		zap.Int("logs", run.logs),
	)

	return run, nil
}

// collectAll fetches logs per token and per account, bounded by the
// configured concurrency, and dedupes each token's entries by (tx, log index)
func (s *NetTransferService) collectAll(
	ctx context.Context,
	req NetTransferRequest,
	tokens []valuedToken,
	accounts []watchedAccount,
	fromBlock, toBlock uint64,
) ([]tokenLogs, error) {
	collected := make([]tokenLogs, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, vt := range tokens {
		i, vt := i, vt
		g.Go(func() error {
			seen := make(map[string]struct{})
			var merged []entities.TransferLogEntry

			for _, account := range accounts {
				entries, err := s.collector.Collect(gctx, LogQuery{
					ChainID:      req.ChainID,
					Token:        vt.token.Address,
					Account:      account.lower,
					FromBlock:    fromBlock,
					ToBlock:      toBlock,
					MaxBlockSpan: req.MaxBlockSpan,
				})
				if err != nil {
					return err
				}
				for _, e := range entries {
					if _, dup := seen[e.Key()]; dup {
						continue
					}
					seen[e.Key()] = struct{}{}
					merged = append(merged, e)
				}
			}

			sort.SliceStable(merged, func(a, b int) bool {
				if merged[a].BlockNumber != merged[b].BlockNumber {
					return merged[a].BlockNumber < merged[b].BlockNumber
				}
				return merged[a].LogIndex < merged[b].LogIndex
			})
			collected[i] = tokenLogs{entries: merged}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return collected, nil
}

func (s *NetTransferService) apply(
	accumulators map[string]*accountAccumulator,
	vt valuedToken,
	entry entities.TransferLogEntry,
	start, end int64,
	excluded map[string]struct{},
	breakdown bool,
) {
	if entry.Timestamp < start || entry.Timestamp >= end {
		return
	}
	if _, ok := excluded[entry.From]; ok {
		return
	}
	if _, ok := excluded[entry.To]; ok {
		return
	}
	if entry.From == entry.To {
		return
	}
	if entry.RawAmount == nil || entry.RawAmount.Sign() <= 0 {
		return
	}

	amount := entities.NewAmount(entry.RawAmount, vt.token.Decimals).Decimal()
	if amount.IsZero() {
		return
	}
	usd := amount.Mul(vt.price)

	if acc, ok := accumulators[entry.To]; ok {
		acc.add(vt.token, entities.DirectionIn, entry.From, amount, usd, entry, breakdown)
	}
	if acc, ok := accumulators[entry.From]; ok {
		acc.add(vt.token, entities.DirectionOut, entry.To, amount, usd, entry, breakdown)
	}
}

func (a *accountAccumulator) add(
	token entities.Token,
	direction entities.Direction,
	counterparty string,
	amount, usd decimal.Decimal,
	entry entities.TransferLogEntry,
	breakdown bool,
) {
	if direction == entities.DirectionIn {
		a.inbound = a.inbound.Add(usd)
	} else {
		a.outbound = a.outbound.Add(usd)
	}

	if !breakdown {
		return
	}

	detail, ok := a.tokens[token.Address]
	if !ok {
		detail = &breakdownAccumulator{token: token}
		a.tokens[token.Address] = detail
		a.order = append(a.order, token.Address)
	}
	if direction == entities.DirectionIn {
		detail.inbound = detail.inbound.Add(usd)
	} else {
		detail.outbound = detail.outbound.Add(usd)
	}

	detail.transfers = append(detail.transfers, entities.TransferRecord{
		Direction:    direction,
		Counterparty: ethereum.ChecksumAddress(counterparty),
		Amount:       round6(amount),
		USDValue:     round6(usd),
		BlockNumber:  entry.BlockNumber,
		TxHash:       entry.TxHash,
		Timestamp:    entry.Timestamp,
	})
}

// finalize rounds once, at the end of the computation
func (a *accountAccumulator) finalize(breakdown bool) entities.NetTransferAccountSummary {
	inbound := a.inbound.Round(6)
	outbound := a.outbound.Round(6)

	summary := entities.NetTransferAccountSummary{
		Account:     a.account,
		InboundUSD:  inbound.InexactFloat64(),
		OutboundUSD: outbound.InexactFloat64(),
		NetTransfer: inbound.Sub(outbound).Round(6).InexactFloat64(),
	}

	if breakdown {
		summary.Breakdown = make([]entities.TokenBreakdown, 0, len(a.order))
		for _, addr := range a.order {
			d := a.tokens[addr]
			summary.Breakdown = append(summary.Breakdown, entities.TokenBreakdown{
				Symbol:      d.token.Symbol,
				Address:     d.token.Address,
				Decimals:    d.token.Decimals,
				InboundUSD:  round6(d.inbound),
				OutboundUSD: round6(d.outbound),
				Transfers:   d.transfers,
			})
		}
	}

	return summary
}

// resolveTokens picks explicit overrides, else the chain's stable portfolio
// tokens, else the chain's stable address list, and values each one
func (s *NetTransferService) resolveTokens(ctx context.Context, req NetTransferRequest) ([]valuedToken, error) {
	candidates := req.Tokens
	if len(candidates) == 0 {
		for _, t := range s.catalog.PortfolioTokens(req.ChainID).Stable {
			if !t.Native {
				candidates = append(candidates, t)
			}
		}
	}
	if len(candidates) == 0 {
		for _, addr := range s.catalog.StableAddresses(req.ChainID) {
			candidates = append(candidates, entities.TokenCandidate{Address: addr})
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no stable tokens configured for chain %d", entities.ErrConfiguration, req.ChainID)
	}

	seen := make(map[string]struct{})
	tokens := make([]valuedToken, 0, len(candidates))
	for _, candidate := range candidates {
		c := candidate.Normalized()
		if c.Native {
			continue
		}
		if _, dup := seen[c.Address]; dup {
			continue
		}
		seen[c.Address] = struct{}{}

		token, err := s.tokens.Resolve(ctx, req.ChainID, c)
		if err != nil {
			return nil, err
		}

		price, err := s.valuation(ctx, req, c, token)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, valuedToken{token: token, price: price})
	}

	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no ERC-20 tokens to evaluate on chain %d", entities.ErrConfiguration, req.ChainID)
	}
	return tokens, nil
}

func (s *NetTransferService) valuation(ctx context.Context, req NetTransferRequest, c entities.TokenCandidate, token entities.Token) (decimal.Decimal, error) {
	if s.tokens.IsStable(req.ChainID, token.Symbol, token.Address, req.StableOverrides) {
		return decimal.NewFromInt(1), nil
	}
	if c.Price != nil {
		return decimal.NewFromFloat(*c.Price), nil
	}
	if p, ok := s.catalog.PriceOverride(token.Symbol, token.Address); ok {
		return decimal.NewFromFloat(p), nil
	}

	price, err := s.prices.GetUSDPrice(ctx, PriceQuery{ChainID: req.ChainID, Address: token.Address})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to price %s: %w", token.Symbol, err)
	}
	return decimal.NewFromFloat(price), nil
}

func (s *NetTransferService) exclusionSet(chainID int64, extra []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, addr := range s.catalog.Exclusions(chainID) {
		set[strings.ToLower(strings.TrimSpace(addr))] = struct{}{}
	}
	for _, addr := range extra {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr != "" {
			set[addr] = struct{}{}
		}
	}
	return set
}

// cacheKey is only issued for windows that have already closed
func (s *NetTransferService) cacheKey(kind string, req NetTransferRequest) (string, bool) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return "", false
	}
	_, end, err := normalizeWindow(req.StartTime, req.EndTime)
	if err != nil || end >= time.Now().Unix() {
		return "", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d|%d|%d|%t|%d|", req.ChainID, req.StartTime, req.EndTime, req.IncludeBreakdown, req.MaxBlockSpan)
	for _, a := range req.Accounts {
		b.WriteString(strings.ToLower(strings.TrimSpace(a)) + ",")
	}
	b.WriteString("|")
	for _, t := range req.Tokens {
		t = t.Normalized()
		fmt.Fprintf(&b, "%s:%s:%t:%s:%s:%s,", t.Address, t.Symbol, t.Native, t.PriceAddress, optionalInt(t.Decimals), optionalFloat(t.Price))
	}
	b.WriteString("|" + strings.Join(req.ExcludeAddresses, ",") + "|")
	b.WriteString(strings.Join(req.StableOverrides.Symbols, ",") + "|" + strings.Join(req.StableOverrides.Addresses, ","))

	hash := sha256.Sum256([]byte(b.String()))
	return "nettransfer:" + kind + ":" + hex.EncodeToString(hash[:8]), true
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// normalizeAccounts dedupes by lower-cased address in first-seen order and
// drops invalid entries. No valid account is an input error.
func normalizeAccounts(raw []string) ([]watchedAccount, error) {
	seen := make(map[string]struct{})
	accounts := make([]watchedAccount, 0, len(raw))
	for _, a := range raw {
		a = strings.TrimSpace(a)
		if !common.IsHexAddress(a) {
			continue
		}
		lower := strings.ToLower(common.HexToAddress(a).Hex())
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		accounts = append(accounts, watchedAccount{lower: lower, checksum: ethereum.ChecksumAddress(lower)})
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: at least one valid account is required", entities.ErrInvalidInput)
	}
	return accounts, nil
}

// normalizeWindow converts millisecond inputs to seconds and requires end > start
func normalizeWindow(start, end int64) (int64, int64, error) {
	if start > millisecondThreshold {
		start /= 1000
	}
	if end > millisecondThreshold {
		end /= 1000
	}
	if start < 0 || end <= start {
		return 0, 0, fmt.Errorf("%w: endTime (%d) must be greater than startTime (%d)", entities.ErrInvalidInput, end, start)
	}
	return start, end, nil
}

func round6(d decimal.Decimal) float64 {
	return d.Round(6).InexactFloat64()
}

// ParseTimestamp accepts Unix seconds, Unix milliseconds or an RFC 3339 time
func ParseTimestamp(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: empty timestamp", entities.ErrInvalidInput)
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid timestamp %q", entities.ErrInvalidInput, value)
	}
	return t.Unix(), nil
}
