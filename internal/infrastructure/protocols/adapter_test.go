package protocols

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
	"github.com/bimakw/holdings-reconciler/internal/testutil"
)

const (
	aTokenAddr = "0x4e65fe4dba92790696d040ac24aa414708f5c0ab"
	cometAddr  = "0xb125e6687d4313864e53df431d5425969c15eb2f"
	ptAddr     = "0xb04cee9901c0a8d783fe280ded66e60c13a4e296"
)

func readersFor(reader providers.ChainReader) *testutil.MockChainReaders {
	return testutil.NewMockChainReaders(map[int64]providers.ChainReader{8453: reader})
}

func TestAaveAdapter_GetBalance(t *testing.T) {
	reader := testutil.NewMockChainReader()
	reader.SetBalance(aTokenAddr, testutil.AliceAddress, big.NewInt(1_500_000))

	adapter := NewAaveAdapter(testutil.NewMockCatalog(), readersFor(reader), zap.NewNop())
	market := entities.Market{
		Protocol: entities.ProtocolAave,
		ChainID:  8453,
		Key:      "usdc",
		Contract: aTokenAddr,
		Asset:    testutil.USDCAddress,
		Symbol:   "USDC",
		Decimals: testutil.IntPtr(6),
		Role:     entities.MarketRoleSupply,
	}

	balance, err := adapter.GetBalance(context.Background(), market, common.HexToAddress(testutil.AliceAddress))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance.Amount.String() != "1.5" {
		t.Errorf("expected 1.5, got %s", balance.Amount.String())
	}
	if balance.USDValue != nil {
		t.Errorf("expected aave position to be priced by the caller, got %v", *balance.USDValue)
	}
}

func TestAaveAdapter_ReadsDecimalsWhenMissing(t *testing.T) {
	reader := testutil.NewMockChainReader()
	reader.CallContractFunc = func(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
		if common.Bytes2Hex(data[:4]) == "313ce567" {
			return common.LeftPadBytes(big.NewInt(8).Bytes(), 32), nil
		}
		return common.LeftPadBytes(big.NewInt(250_000_000).Bytes(), 32), nil
	}

	adapter := NewAaveAdapter(testutil.NewMockCatalog(), readersFor(reader), zap.NewNop())
	balance, err := adapter.GetBalance(context.Background(), entities.Market{
		Protocol: entities.ProtocolAave,
		ChainID:  8453,
		Contract: aTokenAddr,
		Asset:    testutil.USDCAddress,
	}, common.HexToAddress(testutil.AliceAddress))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance.Amount.Decimals() != 8 || balance.Amount.String() != "2.5" {
		t.Errorf("expected 2.5 with 8 decimals, got %s (%d)", balance.Amount.String(), balance.Amount.Decimals())
	}
}

func TestCompoundAdapter_GetBalance(t *testing.T) {
	reader := testutil.NewMockChainReader()
	reader.CallContractFunc = func(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
		switch len(data) {
		case 36: // balanceOf(account)
			return common.LeftPadBytes(big.NewInt(2_000_000).Bytes(), 32), nil
		case 68: // collateralBalanceOf(account, asset)
			asset := common.BytesToAddress(data[36:68])
			if asset != common.HexToAddress(testutil.WETHAddress) {
				t.Errorf("unexpected collateral asset %s", asset.Hex())
			}
			return common.LeftPadBytes(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil).Bytes(), 32), nil
		}
		return nil, errors.New("execution reverted")
	}

	adapter := NewCompoundAdapter(testutil.NewMockCatalog(), readersFor(reader), zap.NewNop())
	account := common.HexToAddress(testutil.AliceAddress)

	tests := []struct {
		name   string
		market entities.Market
		want   string
	}{
		{
			name: "base asset",
			market: entities.Market{
				Protocol: entities.ProtocolCompound, ChainID: 8453, Contract: cometAddr,
				Asset: testutil.USDCAddress, Symbol: "USDC", Decimals: testutil.IntPtr(6), Role: entities.MarketRoleBase,
			},
			want: "2",
		},
		{
			name: "collateral asset",
			market: entities.Market{
				Protocol: entities.ProtocolCompound, ChainID: 8453, Contract: cometAddr,
				Asset: testutil.WETHAddress, Symbol: "WETH", Decimals: testutil.IntPtr(18), Role: entities.MarketRoleCollateral,
			},
			want: "1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balance, err := adapter.GetBalance(context.Background(), tt.market, account)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if balance.Amount.String() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, balance.Amount.String())
			}
		})
	}

	t.Run("unknown role", func(t *testing.T) {
		_, err := adapter.GetBalance(context.Background(), entities.Market{
			Protocol: entities.ProtocolCompound, ChainID: 8453, Contract: cometAddr, Role: entities.MarketRolePrincipal,
		}, account)
		if !errors.Is(err, entities.ErrConfiguration) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})
}

func TestPendleAdapter_GetBalance(t *testing.T) {
	reader := testutil.NewMockChainReader()
	reader.SetBalance(ptAddr, testutil.AliceAddress, new(big.Int).Mul(big.NewInt(42), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)))

	adapter := NewPendleAdapter(testutil.NewMockCatalog(), readersFor(reader), zap.NewNop())
	balance, err := adapter.GetBalance(context.Background(), entities.Market{
		Protocol: entities.ProtocolPendle,
		ChainID:  8453,
		Key:      "youusd-base",
		Contract: ptAddr,
		Symbol:   "YOUUSD",
		Decimals: testutil.IntPtr(18),
		Role:     entities.MarketRolePrincipal,
	}, common.HexToAddress(testutil.AliceAddress))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance.USDValue == nil || *balance.USDValue != 42 {
		t.Errorf("expected par value 42, got %v", balance.USDValue)
	}
}

func TestAdapter_Errors(t *testing.T) {
	account := common.HexToAddress(testutil.AliceAddress)

	t.Run("chain without reader", func(t *testing.T) {
		adapter := NewAaveAdapter(testutil.NewMockCatalog(), testutil.NewMockChainReaders(nil), zap.NewNop())
		_, err := adapter.GetBalance(context.Background(), entities.Market{ChainID: 1, Contract: aTokenAddr}, account)
		if !errors.Is(err, entities.ErrConfiguration) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})

	t.Run("market of another protocol", func(t *testing.T) {
		adapter := NewPendleAdapter(testutil.NewMockCatalog(), readersFor(testutil.NewMockChainReader()), zap.NewNop())
		_, err := adapter.GetBalance(context.Background(), entities.Market{Protocol: entities.ProtocolAave, ChainID: 8453}, account)
		if !errors.Is(err, entities.ErrInvalidInput) {
			t.Errorf("expected invalid input, got %v", err)
		}
	})

	t.Run("call failure", func(t *testing.T) {
		reader := testutil.NewMockChainReader()
		reader.CallContractFunc = func(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
			return nil, errors.New("connection refused")
		}
		adapter := NewAaveAdapter(testutil.NewMockCatalog(), readersFor(reader), zap.NewNop())
		if _, err := adapter.GetBalance(context.Background(), entities.Market{ChainID: 8453, Contract: aTokenAddr}, account); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}

func TestAdapterRegistry(t *testing.T) {
	catalog := testutil.NewMockCatalog()
	catalog.AddMarket(entities.Market{Protocol: entities.ProtocolCompound, ChainID: 8453, Key: "usdc", Contract: cometAddr})

	registry := NewDefaultRegistry(catalog, readersFor(testutil.NewMockChainReader()), zap.NewNop())

	got := registry.Protocols()
	want := []entities.Protocol{entities.ProtocolAave, entities.ProtocolCompound, entities.ProtocolPendle}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	compound, ok := registry.Get(entities.ProtocolCompound)
	if !ok {
		t.Fatal("expected compound adapter")
	}
	if len(compound.Markets(8453)) != 1 || len(compound.Markets(1)) != 0 {
		t.Errorf("expected markets from the catalog")
	}

	if _, ok := registry.Get("morpho"); ok {
		t.Error("expected unknown protocol to be missing")
	}
}
