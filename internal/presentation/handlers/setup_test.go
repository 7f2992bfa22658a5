package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/application/services"
	"github.com/bimakw/holdings-reconciler/internal/config"
	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
	"github.com/bimakw/holdings-reconciler/internal/infrastructure/protocols"
	"github.com/bimakw/holdings-reconciler/internal/testutil"
)

const aUSDCAddress = "0x98c23e9d8f34fefb1b7bd6a91b7ff122f4e16f5c"

type testAPI struct {
	router   chi.Router
	reader   *testutil.MockChainReader
	catalog  *testutil.MockCatalog
	feed     *testutil.MockPriceFeed
	searcher *testutil.MockLogSearcher
	history  *testutil.MockTransferHistorySource
	aave     *testutil.MockBalanceAdapter
}

// setupTestAPI wires every handler over mocks: chain 1 has USDC in the
// wallet portfolio and one aave market; compound is registered without markets
func setupTestAPI(logs ...entities.RawLog) *testAPI {
	logger := zap.NewNop()

	api := &testAPI{
		reader:   testutil.NewMockChainReader(),
		catalog:  testutil.NewMockCatalog(),
		feed:     testutil.NewMockPriceFeed(),
		searcher: testutil.NewMockLogSearcher(logs...),
		history:  testutil.NewMockTransferHistorySource(),
		aave:     testutil.NewMockBalanceAdapter(entities.ProtocolAave),
	}
	readers := testutil.NewMockChainReaders(map[int64]providers.ChainReader{1: api.reader})

	api.catalog.Portfolios[1] = entities.PortfolioTokens{
		Stable: []entities.TokenCandidate{{Symbol: "USDC", Address: testutil.USDCAddress, Decimals: testutil.IntPtr(6)}},
	}
	api.catalog.Stable[1] = []string{testutil.USDCAddress}
	api.reader.SetBalance(testutil.USDCAddress, testutil.AliceAddress, testutil.Units(10, 6))

	api.aave.MarketList[1] = []entities.Market{{
		Protocol: entities.ProtocolAave, ChainID: 1, Key: "usdc", Contract: aUSDCAddress,
		Asset: testutil.USDCAddress, Symbol: "USDC", Decimals: testutil.IntPtr(6), Role: entities.MarketRoleSupply,
	}}
	api.aave.GetBalanceFunc = func(ctx context.Context, market entities.Market, account common.Address) (entities.PositionBalance, error) {
		return entities.PositionBalance{Amount: entities.NewAmount(testutil.Units(100, 6), 6)}, nil
	}

	transferCfg := config.TransferConfig{MaxBlockSpan: 5000, MinBlockSpan: 20, PageSize: 1000, TokenConcurrency: 2}

	classifier := services.NewClassifier(api.catalog)
	tokens := services.NewTokenService(readers, nil, classifier, logger)
	prices := services.NewPriceService(api.feed, api.catalog, time.Minute, logger)
	blocks := services.NewBlockIndexService(testutil.NewMockBlockLocator(), nil, false, logger)
	collector := services.NewTransferCollector(api.searcher, transferCfg, logger)
	wallet := services.NewWalletService(readers, api.catalog, tokens, prices, logger)
	adapters := protocols.NewAdapterRegistry(api.aave, testutil.NewMockBalanceAdapter(entities.ProtocolCompound))

	balanceService := services.NewBalanceService(adapters, wallet, tokens, prices, nil, logger)
	netTransferService := services.NewNetTransferService(readers, api.catalog, tokens, prices, blocks, collector, nil, transferCfg, logger)
	transferService := services.NewTransferService(api.history, blocks, nil, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		NewBalanceHandler(balanceService, logger).RegisterRoutes(r)
		NewNetTransferHandler(netTransferService, logger).RegisterRoutes(r)
		NewTransferHandler(transferService, logger).RegisterRoutes(r)
		NewTokenHandler(tokens, prices, logger).RegisterRoutes(r)
	})
	api.router = r

	return api
}

func (a *testAPI) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}
