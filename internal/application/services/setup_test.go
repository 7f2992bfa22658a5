package services

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/config"
	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/cache"
	"github.com/bimakw/holdings-reconciler/internal/testutil"
)

const testChainID int64 = 1

// testStack wires real services over testutil mocks
type testStack struct {
	reader    *testutil.MockChainReader
	readers   *testutil.MockChainReaders
	catalog   *testutil.MockCatalog
	feed      *testutil.MockPriceFeed
	searcher  *testutil.MockLogSearcher
	locator   *testutil.MockBlockLocator
	tokenRepo *testutil.MockTokenRepository

	classifier *Classifier
	tokens     *TokenService
	prices     *PriceService
	blocks     *BlockIndexService
	collector  *TransferCollector
}

func testTransferConfig() config.TransferConfig {
	return config.TransferConfig{
		MaxBlockSpan:     5000,
		MinBlockSpan:     20,
		PageSize:         1000,
		ZeroBlockIsMiss:  false,
		TokenConcurrency: 2,
	}
}

func newTestStack(logs ...entities.RawLog) *testStack {
	logger := zap.NewNop()

	s := &testStack{
		reader:    testutil.NewMockChainReader(),
		catalog:   testutil.NewMockCatalog(),
		feed:      testutil.NewMockPriceFeed(),
		searcher:  testutil.NewMockLogSearcher(logs...),
		locator:   testutil.NewMockBlockLocator(),
		tokenRepo: testutil.NewMockTokenRepository(),
	}
	s.readers = testutil.NewMockChainReaders(map[int64]providers.ChainReader{testChainID: s.reader})

	s.catalog.Portfolios[testChainID] = entities.PortfolioTokens{
		Stable: []entities.TokenCandidate{
			{Symbol: "USDC", Address: testutil.USDCAddress, Decimals: testutil.IntPtr(6)},
		},
	}
	s.catalog.Stable[testChainID] = []string{testutil.USDCAddress}

	s.classifier = NewClassifier(s.catalog)
	s.tokens = NewTokenService(s.readers, nil, s.classifier, logger)
	s.prices = NewPriceService(s.feed, s.catalog, time.Minute, logger)
	s.blocks = NewBlockIndexService(s.locator, nil, false, logger)
	s.collector = NewTransferCollector(s.searcher, testTransferConfig(), logger)

	return s
}

func (s *testStack) netTransferService() *NetTransferService {
	return NewNetTransferService(s.readers, s.catalog, s.tokens, s.prices, s.blocks, s.collector, nil, testTransferConfig(), zap.NewNop())
}

func (s *testStack) walletService() *WalletService {
	return NewWalletService(s.readers, s.catalog, s.tokens, s.prices, zap.NewNop())
}

// newTestCache returns a Redis cache backed by miniredis
func newTestCache(t *testing.T) *cache.RedisCache {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return cache.NewRedisCacheFromClient(client, time.Minute, zap.NewNop())
}

func newTestCacheIf(t *testing.T, enabled bool) *cache.RedisCache {
	if !enabled {
		return nil
	}
	return newTestCache(t)
}
