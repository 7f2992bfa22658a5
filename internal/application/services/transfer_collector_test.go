package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/config"
	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
	"github.com/bimakw/holdings-reconciler/internal/testutil"
)

func usdcQuery(from, to, span uint64) LogQuery {
	return LogQuery{
		ChainID:      testChainID,
		Token:        testutil.USDCAddress,
		Account:      testutil.AliceAddress,
		FromBlock:    from,
		ToBlock:      to,
		MaxBlockSpan: span,
	}
}

func TestTransferCollector_Chunks(t *testing.T) {
	searcher := testutil.NewMockLogSearcher(
		testutil.CreateTransferLog(testutil.WithTx(1, 0), testutil.WithBlock(10)),
		testutil.CreateTransferLog(testutil.WithTx(2, 0), testutil.WithBlock(7000)),
		testutil.CreateTransferLog(testutil.WithTx(3, 0), testutil.WithBlock(12000)),
	)
	collector := NewTransferCollector(searcher, testTransferConfig(), zap.NewNop())

	entries, err := collector.Collect(context.Background(), usdcQuery(0, 12000, 5000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	var windows [][2]uint64
	for _, call := range searcher.Calls {
		q := call.Args[0].(providers.LogSearchQuery)
		windows = append(windows, [2]uint64{q.FromBlock, q.ToBlock})
		if q.AccountTopic != testutil.Topic(testutil.AliceAddress) {
			t.Errorf("expected account topic filter, got %q", q.AccountTopic)
		}
	}
	want := [][2]uint64{{0, 4999}, {5000, 9999}, {10000, 12000}}
	if len(windows) != len(want) {
		t.Fatalf("expected windows %v, got %v", want, windows)
	}
	for i := range want {
		if windows[i] != want[i] {
			t.Errorf("window %d: expected %v, got %v", i, want[i], windows[i])
		}
	}
}

func TestTransferCollector_Pagination(t *testing.T) {
	var logs []entities.RawLog
	for i := 0; i < 5; i++ {
		logs = append(logs, testutil.CreateTransferLog(testutil.WithTx(i+1, 0), testutil.WithBlock(uint64(10+i))))
	}
	searcher := testutil.NewMockLogSearcher(logs...)

	cfg := testTransferConfig()
	cfg.PageSize = 2
	collector := NewTransferCollector(searcher, cfg, zap.NewNop())

	entries, err := collector.Collect(context.Background(), usdcQuery(0, 100, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("expected 5 entries, got %d", len(entries))
	}
	if searcher.CallCount("SearchLogs") != 3 {
		t.Errorf("expected 3 pages, got %d", searcher.CallCount("SearchLogs"))
	}
}

func TestTransferCollector_HalvesSpanOnFailure(t *testing.T) {
	fixtures := testutil.NewMockLogSearcher(
		testutil.CreateTransferLog(testutil.WithTx(1, 0), testutil.WithBlock(10)),
		testutil.CreateTransferLog(testutil.WithTx(2, 0), testutil.WithBlock(20)),
		testutil.CreateTransferLog(testutil.WithTx(3, 0), testutil.WithBlock(60)),
	)

	var mu sync.Mutex
	var spans []uint64
	searcher := testutil.NewMockLogSearcher()
	searcher.SearchLogsFunc = func(ctx context.Context, q providers.LogSearchQuery) ([]entities.RawLog, error) {
		span := q.ToBlock - q.FromBlock + 1
		mu.Lock()
		spans = append(spans, span)
		mu.Unlock()

		// A wide window serves page one and then times out
		if span > 50 && q.Page == 2 {
			return nil, errors.New("query timeout")
		}
		return fixtures.SearchLogs(ctx, q)
	}

	cfg := testTransferConfig()
	cfg.PageSize = 2
	collector := NewTransferCollector(searcher, cfg, zap.NewNop())

	entries, err := collector.Collect(context.Background(), usdcQuery(0, 99, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Key() == entries[i-1].Key() {
			t.Errorf("duplicate entry %s", entries[i].Key())
		}
	}
	if spans[0] != 100 || spans[len(spans)-1] != 50 {
		t.Errorf("expected span to halve from 100 to 50, got %v", spans)
	}
}

func TestTransferCollector_FailsAtMinimumSpan(t *testing.T) {
	searcher := testutil.NewMockLogSearcher()
	searcher.SearchLogsFunc = func(ctx context.Context, q providers.LogSearchQuery) ([]entities.RawLog, error) {
		return nil, errors.New("upstream unavailable")
	}
	collector := NewTransferCollector(searcher, testTransferConfig(), zap.NewNop())

	_, err := collector.Collect(context.Background(), usdcQuery(0, 399, 400))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	// 400, 200, 100, 50, 25, 20
	if searcher.CallCount("SearchLogs") != 6 {
		t.Errorf("expected 6 attempts, got %d", searcher.CallCount("SearchLogs"))
	}
}

func TestTransferCollector_EdgeCases(t *testing.T) {
	t.Run("inverted range", func(t *testing.T) {
		searcher := testutil.NewMockLogSearcher()
		collector := NewTransferCollector(searcher, config.TransferConfig{}, zap.NewNop())

		entries, err := collector.Collect(context.Background(), usdcQuery(100, 50, 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 0 || searcher.CallCount("SearchLogs") != 0 {
			t.Errorf("expected no work for an inverted range")
		}
	})

	t.Run("undecodable logs are skipped", func(t *testing.T) {
		bad := testutil.CreateTransferLog(testutil.WithTx(9, 0), testutil.WithBlock(10))
		bad.Topics = bad.Topics[:2]
		searcher := testutil.NewMockLogSearcher(bad, testutil.CreateTransferLog(testutil.WithTx(1, 0), testutil.WithBlock(11)))
		collector := NewTransferCollector(searcher, testTransferConfig(), zap.NewNop())

		entries, err := collector.Collect(context.Background(), usdcQuery(0, 100, 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("expected 1 decoded entry, got %d", len(entries))
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		searcher := testutil.NewMockLogSearcher()
		searcher.SearchLogsFunc = func(ctx context.Context, q providers.LogSearchQuery) ([]entities.RawLog, error) {
			return nil, ctx.Err()
		}
		collector := NewTransferCollector(searcher, testTransferConfig(), zap.NewNop())

		_, err := collector.Collect(ctx, usdcQuery(0, 10000, 0))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context cancelled, got %v", err)
		}
		if searcher.CallCount("SearchLogs") != 1 {
			t.Errorf("expected no retries after cancellation, got %d", searcher.CallCount("SearchLogs"))
		}
	})
}
