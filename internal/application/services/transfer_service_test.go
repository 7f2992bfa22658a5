package services

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
	"github.com/bimakw/holdings-reconciler/internal/testutil"
)

func historyFixture() []entities.TokenTransfer {
	return []entities.TokenTransfer{
		{
			TxHash: "0x01", BlockNumber: 200, Timestamp: 2000,
			TokenAddress: testutil.USDCAddress, TokenSymbol: "USDC", Decimals: 6,
			From: testutil.BobAddress, To: testutil.AliceAddress,
			Value: entities.NewAmount(testutil.Units(25, 6), 6),
		},
		{
			TxHash: "0x02", BlockNumber: 100, Timestamp: 1000,
			TokenAddress: testutil.USDCAddress, TokenSymbol: "USDC", Decimals: 6,
			From: testutil.AliceAddress, To: testutil.BobAddress,
			Value: entities.NewAmount(testutil.Units(10, 6), 6),
		},
	}
}

func TestTransferService_GetTransfers(t *testing.T) {
	source := testutil.NewMockTransferHistorySource()
	source.TokenTransfersFunc = func(ctx context.Context, q providers.TokenTransferQuery) ([]entities.TokenTransfer, error) {
		if q.Account != testutil.AliceAddress {
			t.Errorf("expected lower-case account, got %s", q.Account)
		}
		return historyFixture(), nil
	}
	service := NewTransferService(source, newTestStack().blocks, nil, zap.NewNop())

	resp, err := service.GetTransfers(context.Background(), 1, "0x1111111111111111111111111111111111111111", entities.TransferFilter{Size: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(resp.Transfers))
	}
	if resp.Transfers[0].Direction != "in" || resp.Transfers[1].Direction != "out" {
		t.Errorf("unexpected directions %s, %s", resp.Transfers[0].Direction, resp.Transfers[1].Direction)
	}
	if resp.Transfers[0].Value != "25000000" || resp.Transfers[0].Amount != 25 {
		t.Errorf("unexpected value %s (%v)", resp.Transfers[0].Value, resp.Transfers[0].Amount)
	}
	if resp.Page != 1 || !resp.HasMore {
		t.Errorf("expected page 1 with more results, got page %d hasMore %v", resp.Page, resp.HasMore)
	}
}

func TestTransferService_GetTransfers_Validation(t *testing.T) {
	service := NewTransferService(testutil.NewMockTransferHistorySource(), newTestStack().blocks, nil, zap.NewNop())

	tests := []struct {
		name    string
		account string
		filter  entities.TransferFilter
	}{
		{name: "invalid account", account: "0x12", filter: entities.DefaultTransferFilter()},
		{name: "invalid token", account: testutil.AliceAddress, filter: entities.TransferFilter{TokenAddress: "usdc"}},
		{name: "inverted window", account: testutil.AliceAddress, filter: entities.TransferFilter{StartTime: 2000, EndTime: 1000}},
		{name: "negative start", account: testutil.AliceAddress, filter: entities.TransferFilter{StartTime: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.GetTransfers(context.Background(), 1, tt.account, tt.filter)
			if !errors.Is(err, entities.ErrInvalidInput) {
				t.Errorf("expected invalid input, got %v", err)
			}
		})
	}

	t.Run("size is clamped", func(t *testing.T) {
		resp, err := service.GetTransfers(context.Background(), 1, testutil.AliceAddress, entities.TransferFilter{Size: 5000})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Size != 1000 {
			t.Errorf("expected size 1000, got %d", resp.Size)
		}
	})
}

func TestTransferService_GetTransfers_Cache(t *testing.T) {
	source := testutil.NewMockTransferHistorySource()
	source.TokenTransfersFunc = func(ctx context.Context, q providers.TokenTransferQuery) ([]entities.TokenTransfer, error) {
		return historyFixture(), nil
	}
	service := NewTransferService(source, newTestStack().blocks, newTestCache(t), zap.NewNop())

	for i := 0; i < 2; i++ {
		resp, err := service.GetTransfers(context.Background(), 1, testutil.AliceAddress, entities.DefaultTransferFilter())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Transfers) != 2 {
			t.Errorf("expected 2 transfers, got %d", len(resp.Transfers))
		}
	}
	if source.CallCount("TokenTransfers") != 1 {
		t.Errorf("expected 1 source call, got %d", source.CallCount("TokenTransfers"))
	}

	source.TokenTransfersFunc = func(ctx context.Context, q providers.TokenTransferQuery) ([]entities.TokenTransfer, error) {
		return nil, errors.New("explorer down")
	}
	if _, err := service.GetTransfers(context.Background(), 1, testutil.BobAddress, entities.DefaultTransferFilter()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestTransferService_GetTransfers_TimeWindow(t *testing.T) {
	stack := newTestStack()
	stack.locator.BlockNumberByTimeFunc = func(ctx context.Context, chainID, timestamp int64, pref entities.BlockPreference) (uint64, error) {
		if pref == entities.BlockFloor {
			return uint64(timestamp/10) - 1, nil
		}
		return uint64(timestamp/10) + 1, nil
	}

	var seen []providers.TokenTransferQuery
	source := testutil.NewMockTransferHistorySource()
	source.TokenTransfersFunc = func(ctx context.Context, q providers.TokenTransferQuery) ([]entities.TokenTransfer, error) {
		seen = append(seen, q)
		return historyFixture(), nil
	}
	service := NewTransferService(source, stack.blocks, newTestCache(t), zap.NewNop())

	tests := []struct {
		name      string
		filter    entities.TransferFilter
		wantStart uint64
		wantEnd   uint64
	}{
		{name: "open", filter: entities.TransferFilter{}, wantStart: 0, wantEnd: 0},
		{name: "both sides", filter: entities.TransferFilter{StartTime: 1000, EndTime: 3000}, wantStart: 99, wantEnd: 301},
		{name: "milliseconds", filter: entities.TransferFilter{StartTime: 1_700_000_000_000}, wantStart: 169_999_999, wantEnd: 0},
		{name: "end only", filter: entities.TransferFilter{EndTime: 5000}, wantStart: 0, wantEnd: 501},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.GetTransfers(context.Background(), 1, testutil.AliceAddress, tt.filter); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(seen) != i+1 {
				t.Fatalf("expected a source call per window, got %d calls", len(seen))
			}
			q := seen[i]
			if q.StartBlock != tt.wantStart || q.EndBlock != tt.wantEnd {
				t.Errorf("expected blocks %d-%d, got %d-%d", tt.wantStart, tt.wantEnd, q.StartBlock, q.EndBlock)
			}
		})
	}

	t.Run("block lookup failure", func(t *testing.T) {
		stack.locator.BlockNumberByTimeFunc = func(ctx context.Context, chainID, timestamp int64, pref entities.BlockPreference) (uint64, error) {
			return 0, errors.New("explorer down")
		}
		if _, err := service.GetTransfers(context.Background(), 1, testutil.AliceAddress, entities.TransferFilter{StartTime: 7777}); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}
