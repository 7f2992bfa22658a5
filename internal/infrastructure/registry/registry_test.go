package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
)

func TestNewDefault(t *testing.T) {
	r, err := NewDefault()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("portfolio tokens are normalized", func(t *testing.T) {
		tokens := r.PortfolioTokens(8453)
		if len(tokens.Stable) != 2 {
			t.Fatalf("expected 2 stable tokens on base, got %d", len(tokens.Stable))
		}
		if tokens.Stable[0].Address != "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913" {
			t.Errorf("expected lower-cased address, got %s", tokens.Stable[0].Address)
		}

		native := tokens.Assets[0]
		if !native.Native || native.Symbol != "ETH" || native.PriceAddress == "" {
			t.Errorf("expected native ETH priced via WETH, got %+v", native)
		}
	})

	t.Run("stable addresses come from stable portfolio tokens", func(t *testing.T) {
		addrs := r.StableAddresses(1)
		if len(addrs) != 3 {
			t.Errorf("expected 3 stable addresses on ethereum, got %v", addrs)
		}
	})

	t.Run("global exclusions apply to every chain", func(t *testing.T) {
		for _, chainID := range []int64{1, 10, 8453, 42161} {
			if got := len(r.Exclusions(chainID)); got != 3 {
				t.Errorf("chain %d: expected 3 exclusions, got %d", chainID, got)
			}
		}
	})

	t.Run("pendle markets are valued at par", func(t *testing.T) {
		markets := r.Markets(entities.ProtocolPendle, 8453)
		if len(markets) != 2 {
			t.Fatalf("expected 2 pendle markets, got %d", len(markets))
		}
		for _, m := range markets {
			if !m.ValueAtPar || m.Role != entities.MarketRolePrincipal {
				t.Errorf("expected principal at par, got %+v", m)
			}
		}
		if markets[1].Maturity == nil || *markets[1].Maturity != 1765411200 {
			t.Errorf("expected maturity 2025-12-11, got %v", markets[1].Maturity)
		}
	})

	t.Run("unconfigured chain has no markets", func(t *testing.T) {
		if got := r.Markets(entities.ProtocolPendle, 1); len(got) != 0 {
			t.Errorf("expected no pendle markets on ethereum, got %d", len(got))
		}
	})

	t.Run("stable symbols include defaults", func(t *testing.T) {
		found := false
		for _, s := range r.StableSymbols() {
			if s == "YOUUSD" {
				found = true
			}
		}
		if !found {
			t.Error("expected YOUUSD to be a stable symbol")
		}
	})
}

func TestParse(t *testing.T) {
	doc := []byte(`
stableSymbols: [gho]
stableAddresses:
  8453: ["0x0000000000000000000000000000000000000ABC"]
exclusions:
  global: ["0x000000000000000000000000000000000000dEaD"]
  chains:
    10: ["0x0000000000000000000000000000000000000001"]
priceOverrides:
  symbols:
    op: 1.5
  addresses:
    "0x4200000000000000000000000000000000000042": 2
chains:
  42161:
    stable:
      - symbol: usdc
        address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
        decimals: 6
protocols:
  aave:
    42161:
      - key: usdc
        contract: "0x724dc807b04555b71ed48a6896b6F41593b8C637"
        asset: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
        symbol: usdc
        decimals: 6
`)

	r, err := Parse(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := r.Exclusions(10); len(got) != 5 {
		t.Errorf("expected 3 built-in + 1 global + 1 chain exclusions, got %v", got)
	}
	if got := r.Exclusions(1); len(got) != 4 {
		t.Errorf("expected chain exclusion scoped to optimism, got %v", got)
	}

	if p, ok := r.PriceOverride("OP", ""); !ok || p != 1.5 {
		t.Errorf("expected symbol override 1.5, got %v %v", p, ok)
	}
	if p, ok := r.PriceOverride("", "0x4200000000000000000000000000000000000042"); !ok || p != 2 {
		t.Errorf("expected address override 2, got %v %v", p, ok)
	}
	if _, ok := r.PriceOverride("WETH", ""); ok {
		t.Error("expected no override for WETH")
	}

	if got := r.PortfolioTokens(42161).Stable; len(got) != 1 || got[0].Symbol != "USDC" {
		t.Errorf("expected arbitrum USDC, got %+v", got)
	}
	if got := r.PortfolioTokens(1).Stable; len(got) != 3 {
		t.Errorf("expected built-in ethereum tokens to survive, got %d", len(got))
	}
	if got := r.StableAddresses(8453); len(got) != 3 {
		t.Errorf("expected extra base stable address, got %v", got)
	}

	markets := r.Markets(entities.ProtocolAave, 42161)
	if len(markets) != 1 || markets[0].Role != entities.MarketRoleSupply || markets[0].Symbol != "USDC" {
		t.Errorf("unexpected arbitrum aave markets: %+v", markets)
	}
	if got := r.Markets(entities.ProtocolAave, 8453); len(got) != 1 {
		t.Errorf("expected built-in base aave market to survive, got %d", len(got))
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "malformed yaml", doc: "chains: [unclosed"},
		{name: "market without contract", doc: "protocols:\n  aave:\n    1:\n      - asset: \"0x01\"\n"},
		{name: "bad maturity", doc: "protocols:\n  pendle:\n    1:\n      - contract: \"0x01\"\n        asset: \"0x02\"\n        maturity: tomorrow\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if !errors.Is(err, entities.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		r, err := Load("", zap.NewNop())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(r.Chains()) != 3 {
			t.Errorf("expected 3 built-in chains, got %v", r.Chains())
		}
	})

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "registry.yaml")
		if err := os.WriteFile(path, []byte("stableSymbols: [gho]\n"), 0o600); err != nil {
			t.Fatalf("failed to write registry: %v", err)
		}

		r, err := Load(path, zap.NewNop())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if symbols := r.StableSymbols(); symbols[len(symbols)-1] != "GHO" {
			t.Errorf("expected GHO appended, got %v", symbols)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), zap.NewNop()); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}
