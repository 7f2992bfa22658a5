package testutil

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
	"github.com/bimakw/holdings-reconciler/internal/domain/repositories"
)

type MockCall struct {
	Method string
	Args   []interface{}
}

// callTracker records calls made to a mock
type callTracker struct {
	mu    sync.RWMutex
	Calls []MockCall
}

func (c *callTracker) record(method string, args ...interface{}) {
	c.mu.Lock()
	c.Calls = append(c.Calls, MockCall{Method: method, Args: args})
	c.mu.Unlock()
}

// CallCount returns how many times method was called
func (c *callTracker) CallCount(method string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, call := range c.Calls {
		if call.Method == method {
			n++
		}
	}
	return n
}

// MockChainReader is a mock implementation of ChainReader. Without hooks it
// serves balanceOf from Balances (keyed "contract:account", lower-case) and
// native balances from NativeBalances.
type MockChainReader struct {
	callTracker

	Balances       map[string]*big.Int
	NativeBalances map[string]*big.Int

	// Function hooks for custom behavior
	CallContractFunc func(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	BalanceAtFunc    func(ctx context.Context, account common.Address) (*big.Int, error)
}

var _ providers.ChainReader = (*MockChainReader)(nil)

func NewMockChainReader() *MockChainReader {
	return &MockChainReader{
		Balances:       make(map[string]*big.Int),
		NativeBalances: make(map[string]*big.Int),
	}
}

// SetBalance sets the balanceOf result for (contract, account)
func (m *MockChainReader) SetBalance(contract, account string, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Balances[strings.ToLower(contract)+":"+strings.ToLower(account)] = amount
}

func (m *MockChainReader) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	m.record("CallContract", to, data)

	if m.CallContractFunc != nil {
		return m.CallContractFunc(ctx, to, data)
	}

	// balanceOf(address): 0x70a08231 + 32-byte account
	if len(data) == 36 && common.Bytes2Hex(data[:4]) == "70a08231" {
		account := common.BytesToAddress(data[4:36])
		m.mu.RLock()
		amount, ok := m.Balances[strings.ToLower(to.Hex())+":"+strings.ToLower(account.Hex())]
		m.mu.RUnlock()
		if !ok {
			amount = new(big.Int)
		}
		return common.LeftPadBytes(amount.Bytes(), 32), nil
	}

	return nil, fmt.Errorf("execution reverted")
}

func (m *MockChainReader) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	m.record("BalanceAt", account)

	if m.BalanceAtFunc != nil {
		return m.BalanceAtFunc(ctx, account)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if amount, ok := m.NativeBalances[strings.ToLower(account.Hex())]; ok {
		return amount, nil
	}
	return new(big.Int), nil
}

// MockChainReaders hands out readers per chain; chains without a reader are unconfigured
type MockChainReaders struct {
	callTracker

	Readers map[int64]providers.ChainReader
}

var _ providers.ChainReaders = (*MockChainReaders)(nil)

func NewMockChainReaders(readers map[int64]providers.ChainReader) *MockChainReaders {
	return &MockChainReaders{Readers: readers}
}

func (m *MockChainReaders) Reader(ctx context.Context, chainID int64) (providers.ChainReader, error) {
	m.record("Reader", chainID)

	reader, ok := m.Readers[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: no RPC URL configured for chain %d", entities.ErrConfiguration, chainID)
	}
	return reader, nil
}

// MockLogSearcher is a mock implementation of LogSearcher. Without a hook it
// filters Logs by address, block range and account topic, and pages the result.
type MockLogSearcher struct {
	callTracker

	Logs []entities.RawLog

	SearchLogsFunc func(ctx context.Context, q providers.LogSearchQuery) ([]entities.RawLog, error)
}

var _ providers.LogSearcher = (*MockLogSearcher)(nil)

func NewMockLogSearcher(logs ...entities.RawLog) *MockLogSearcher {
	return &MockLogSearcher{Logs: logs}
}

func (m *MockLogSearcher) SearchLogs(ctx context.Context, q providers.LogSearchQuery) ([]entities.RawLog, error) {
	m.record("SearchLogs", q)

	if m.SearchLogsFunc != nil {
		return m.SearchLogsFunc(ctx, q)
	}

	matched := make([]entities.RawLog, 0)
	for _, l := range m.Logs {
		if !strings.EqualFold(l.Address, q.Address) {
			continue
		}
		if l.BlockNumber < q.FromBlock || l.BlockNumber > q.ToBlock {
			continue
		}
		if q.AccountTopic != "" && len(l.Topics) == 3 &&
			!strings.EqualFold(l.Topics[1], q.AccountTopic) && !strings.EqualFold(l.Topics[2], q.AccountTopic) {
			continue
		}
		matched = append(matched, l)
	}

	if q.PageSize <= 0 {
		return matched, nil
	}
	start := (q.Page - 1) * q.PageSize
	if start >= len(matched) {
		return []entities.RawLog{}, nil
	}
	end := start + q.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

// MockBlockLocator is a mock implementation of BlockLocator
type MockBlockLocator struct {
	callTracker

	BlockNumberByTimeFunc func(ctx context.Context, chainID, timestamp int64, pref entities.BlockPreference) (uint64, error)
}

var _ providers.BlockLocator = (*MockBlockLocator)(nil)

// NewMockBlockLocator maps timestamps to blocks one to one unless a hook is set
func NewMockBlockLocator() *MockBlockLocator {
	return &MockBlockLocator{}
}

func (m *MockBlockLocator) BlockNumberByTime(ctx context.Context, chainID, timestamp int64, pref entities.BlockPreference) (uint64, error) {
	m.record("BlockNumberByTime", chainID, timestamp, pref)

	if m.BlockNumberByTimeFunc != nil {
		return m.BlockNumberByTimeFunc(ctx, chainID, timestamp, pref)
	}
	return uint64(timestamp), nil
}

// MockPriceFeed is a mock implementation of PriceFeed keyed by lower-case address
type MockPriceFeed struct {
	callTracker

	Prices map[string]float64

	CurrentPriceFunc func(ctx context.Context, chainID int64, address string) (float64, error)
}

var _ providers.PriceFeed = (*MockPriceFeed)(nil)

func NewMockPriceFeed() *MockPriceFeed {
	return &MockPriceFeed{Prices: make(map[string]float64)}
}

func (m *MockPriceFeed) CurrentPrice(ctx context.Context, chainID int64, address string) (float64, error) {
	m.record("CurrentPrice", chainID, address)

	if m.CurrentPriceFunc != nil {
		return m.CurrentPriceFunc(ctx, chainID, address)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	price, ok := m.Prices[strings.ToLower(address)]
	if !ok {
		return 0, fmt.Errorf("%w: %d:%s", entities.ErrPriceUnavailable, chainID, address)
	}
	return price, nil
}

// MockTransferHistorySource is a mock implementation of TransferHistorySource
type MockTransferHistorySource struct {
	callTracker

	TokenTransfersFunc func(ctx context.Context, q providers.TokenTransferQuery) ([]entities.TokenTransfer, error)
}

var _ providers.TransferHistorySource = (*MockTransferHistorySource)(nil)

func NewMockTransferHistorySource() *MockTransferHistorySource {
	return &MockTransferHistorySource{}
}

func (m *MockTransferHistorySource) TokenTransfers(ctx context.Context, q providers.TokenTransferQuery) ([]entities.TokenTransfer, error) {
	m.record("TokenTransfers", q)

	if m.TokenTransfersFunc != nil {
		return m.TokenTransfersFunc(ctx, q)
	}
	return []entities.TokenTransfer{}, nil
}

// MockBalanceAdapter is a mock implementation of BalanceAdapter
type MockBalanceAdapter struct {
	callTracker

	Name       entities.Protocol
	MarketList map[int64][]entities.Market

	GetBalanceFunc func(ctx context.Context, market entities.Market, account common.Address) (entities.PositionBalance, error)
}

var _ providers.BalanceAdapter = (*MockBalanceAdapter)(nil)

func NewMockBalanceAdapter(name entities.Protocol) *MockBalanceAdapter {
	return &MockBalanceAdapter{
		Name:       name,
		MarketList: make(map[int64][]entities.Market),
	}
}

func (m *MockBalanceAdapter) Protocol() entities.Protocol {
	return m.Name
}

func (m *MockBalanceAdapter) Markets(chainID int64) []entities.Market {
	return m.MarketList[chainID]
}

func (m *MockBalanceAdapter) GetBalance(ctx context.Context, market entities.Market, account common.Address) (entities.PositionBalance, error) {
	m.record("GetBalance", market, account)

	if m.GetBalanceFunc != nil {
		return m.GetBalanceFunc(ctx, market, account)
	}
	return entities.PositionBalance{Amount: entities.NewAmount(new(big.Int), 18)}, nil
}

// MockTokenRepository is a mock implementation of TokenRepository
type MockTokenRepository struct {
	callTracker

	tokens map[string]entities.Token

	GetByAddressFunc func(ctx context.Context, chainID int64, address string) (*entities.Token, error)
	UpsertFunc       func(ctx context.Context, token *entities.Token) error
}

var _ repositories.TokenRepository = (*MockTokenRepository)(nil)

func NewMockTokenRepository() *MockTokenRepository {
	return &MockTokenRepository{tokens: make(map[string]entities.Token)}
}

func tokenKey(chainID int64, address string) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(address))
}

// AddToken adds a token to the mock repository
func (m *MockTokenRepository) AddToken(token entities.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenKey(token.ChainID, token.Address)] = token
}

func (m *MockTokenRepository) GetByAddress(ctx context.Context, chainID int64, address string) (*entities.Token, error) {
	m.record("GetByAddress", chainID, address)

	if m.GetByAddressFunc != nil {
		return m.GetByAddressFunc(ctx, chainID, address)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if token, ok := m.tokens[tokenKey(chainID, address)]; ok {
		return &token, nil
	}
	return nil, nil
}

func (m *MockTokenRepository) Upsert(ctx context.Context, token *entities.Token) error {
	m.record("Upsert", token)

	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, token)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenKey(token.ChainID, token.Address)] = *token
	return nil
}

// MockBlockTimeRepository is a mock implementation of BlockTimeRepository
type MockBlockTimeRepository struct {
	callTracker

	entries map[string]entities.BlockTimestamp

	GetFunc  func(ctx context.Context, chainID, timestamp int64) (*entities.BlockTimestamp, error)
	SaveFunc func(ctx context.Context, entry *entities.BlockTimestamp) error
}

var _ repositories.BlockTimeRepository = (*MockBlockTimeRepository)(nil)

func NewMockBlockTimeRepository() *MockBlockTimeRepository {
	return &MockBlockTimeRepository{entries: make(map[string]entities.BlockTimestamp)}
}

func (m *MockBlockTimeRepository) Get(ctx context.Context, chainID, timestamp int64) (*entities.BlockTimestamp, error) {
	m.record("Get", chainID, timestamp)

	if m.GetFunc != nil {
		return m.GetFunc(ctx, chainID, timestamp)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if entry, ok := m.entries[fmt.Sprintf("%d:%d", chainID, timestamp)]; ok {
		return &entry, nil
	}
	return nil, nil
}

func (m *MockBlockTimeRepository) Save(ctx context.Context, entry *entities.BlockTimestamp) error {
	m.record("Save", entry)

	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, entry)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[fmt.Sprintf("%d:%d", entry.ChainID, entry.Timestamp)] = *entry
	return nil
}

// MockCatalog is a static implementation of Catalog
type MockCatalog struct {
	Portfolios      map[int64]entities.PortfolioTokens
	Stable          map[int64][]string
	Symbols         []string
	Excluded        map[int64][]string
	SymbolPrices    map[string]float64
	AddressPrices   map[string]float64
	ProtocolMarkets map[entities.Protocol]map[int64][]entities.Market
}

var _ providers.Catalog = (*MockCatalog)(nil)

// NewMockCatalog starts with the common stable symbols and nothing else
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		Portfolios:      make(map[int64]entities.PortfolioTokens),
		Stable:          make(map[int64][]string),
		Symbols:         []string{"USDC", "USDT", "DAI", "USDE", "YOUUSD"},
		Excluded:        make(map[int64][]string),
		SymbolPrices:    make(map[string]float64),
		AddressPrices:   make(map[string]float64),
		ProtocolMarkets: make(map[entities.Protocol]map[int64][]entities.Market),
	}
}

// AddMarket registers market under its protocol and chain
func (m *MockCatalog) AddMarket(market entities.Market) {
	if m.ProtocolMarkets[market.Protocol] == nil {
		m.ProtocolMarkets[market.Protocol] = make(map[int64][]entities.Market)
	}
	m.ProtocolMarkets[market.Protocol][market.ChainID] = append(m.ProtocolMarkets[market.Protocol][market.ChainID], market)
}

func (m *MockCatalog) PortfolioTokens(chainID int64) entities.PortfolioTokens {
	return m.Portfolios[chainID]
}

func (m *MockCatalog) StableAddresses(chainID int64) []string {
	return m.Stable[chainID]
}

func (m *MockCatalog) StableSymbols() []string {
	return m.Symbols
}

func (m *MockCatalog) Exclusions(chainID int64) []string {
	return m.Excluded[chainID]
}

func (m *MockCatalog) PriceOverride(symbol, address string) (float64, bool) {
	if p, ok := m.SymbolPrices[strings.ToUpper(symbol)]; ok && symbol != "" {
		return p, true
	}
	if p, ok := m.AddressPrices[strings.ToLower(address)]; ok && address != "" {
		return p, true
	}
	return 0, false
}

func (m *MockCatalog) Markets(protocol entities.Protocol, chainID int64) []entities.Market {
	return m.ProtocolMarkets[protocol][chainID]
}

// MockHealthChecker reports a fixed health state
type MockHealthChecker struct {
	callTracker

	Healthy bool
}

func NewMockHealthChecker(healthy bool) *MockHealthChecker {
	return &MockHealthChecker{Healthy: healthy}
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	m.record("HealthCheck")

	if !m.Healthy {
		return fmt.Errorf("connection refused")
	}
	return nil
}
