package pricefeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/config"
	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/testutil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *DefiLlamaClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewDefiLlamaClient(config.PriceConfig{
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestDefiLlamaClient_CurrentPrice(t *testing.T) {
	t.Run("returns price for identifier", func(t *testing.T) {
		var requested string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			requested = r.URL.Path
			w.Write([]byte(`{"coins":{"base:` + testutil.WETHAddress + `":{"price":3120.5,"symbol":"WETH","timestamp":1700000000,"confidence":0.99}}}`))
		})

		price, err := client.CurrentPrice(context.Background(), 8453, "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if price != 3120.5 {
			t.Errorf("expected 3120.5, got %v", price)
		}
		if requested != "/prices/current/base:"+testutil.WETHAddress {
			t.Errorf("unexpected path %s", requested)
		}
	})

	t.Run("missing coin is price unavailable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"coins":{}}`))
		})

		_, err := client.CurrentPrice(context.Background(), 1, testutil.WETHAddress)
		if !errors.Is(err, entities.ErrPriceUnavailable) {
			t.Fatalf("expected ErrPriceUnavailable, got %v", err)
		}
	})

	t.Run("unknown chain fails without a request", func(t *testing.T) {
		called := false
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		_, err := client.CurrentPrice(context.Background(), 999999, testutil.WETHAddress)
		if !errors.Is(err, entities.ErrUnsupportedChain) {
			t.Fatalf("expected ErrUnsupportedChain, got %v", err)
		}
		if called {
			t.Error("expected no request for unsupported chain")
		}
	})
}

func TestChainKey(t *testing.T) {
	tests := map[int64]string{
		1:     "ethereum",
		10:    "optimism",
		8453:  "base",
		42161: "arbitrum",
	}

	for chainID, want := range tests {
		if got, ok := ChainKey(chainID); !ok || got != want {
			t.Errorf("ChainKey(%d) = %q, %v; want %q", chainID, got, ok, want)
		}
	}
}
