package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
	"github.com/bimakw/holdings-reconciler/internal/testutil"
)

func exampleLogs() []entities.RawLog {
	return []entities.RawLog{
		testutil.CreateTransferLog(testutil.WithTx(1, 0), testutil.WithTime(10),
			testutil.WithFrom(testutil.AliceAddress), testutil.WithTo(testutil.BobAddress), testutil.WithUnits(100, 6)),
		testutil.CreateTransferLog(testutil.WithTx(2, 0), testutil.WithTime(20),
			testutil.WithFrom(testutil.BobAddress), testutil.WithTo(testutil.AliceAddress), testutil.WithUnits(40, 6)),
	}
}

func TestNetTransferHandler_GetNetTransfer(t *testing.T) {
	api := setupTestAPI(exampleLogs()...)

	rec := api.do(http.MethodGet, "/api/v1/accounts/"+testutil.AliceAddress+"/net-transfer?chain_id=1&start_time=0&end_time=30&breakdown=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result entities.NetTransferResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.InboundUSD != 40 || result.OutboundUSD != 100 || result.NetTransfer != -60 {
		t.Errorf("unexpected totals %+v", result)
	}
	if len(result.Breakdown) != 1 || len(result.Breakdown[0].Transfers) != 2 {
		t.Errorf("expected breakdown with 2 transfers, got %+v", result.Breakdown)
	}
}

func TestNetTransferHandler_GetNetTransfer_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   int
	}{
		{name: "missing start", target: "/net-transfer?end_time=30", want: http.StatusBadRequest},
		{name: "bad end", target: "/net-transfer?start_time=0&end_time=later", want: http.StatusBadRequest},
		{name: "empty window", target: "/net-transfer?start_time=30&end_time=30", want: http.StatusBadRequest},
		{name: "bad token", target: "/net-transfer?start_time=0&end_time=30&tokens=usdc", want: http.StatusBadRequest},
		{name: "bad span", target: "/net-transfer?start_time=0&end_time=30&max_block_span=-1", want: http.StatusBadRequest},
		{name: "unconfigured chain", target: "/net-transfer?chain_id=10&start_time=0&end_time=30", want: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := setupTestAPI()
			rec := api.do(http.MethodGet, "/api/v1/accounts/"+testutil.AliceAddress+tt.target, "")
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}

	t.Run("explorer failure", func(t *testing.T) {
		api := setupTestAPI()
		api.searcher.SearchLogsFunc = func(ctx context.Context, q providers.LogSearchQuery) ([]entities.RawLog, error) {
			return nil, errors.New("explorer down")
		}

		rec := api.do(http.MethodGet, "/api/v1/accounts/"+testutil.AliceAddress+"/net-transfer?start_time=0&end_time=30", "")
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
		var body map[string]string
		json.NewDecoder(rec.Body).Decode(&body)
		if body["error"] != "Failed to compute net transfer" {
			t.Errorf("expected generic message, got %q", body["error"])
		}
	})
}

func TestNetTransferHandler_PostNetTransfers(t *testing.T) {
	api := setupTestAPI(exampleLogs()...)

	body := `{
		"chainId": 1,
		"accounts": ["` + testutil.AliceAddress + `", "` + testutil.BobAddress + `"],
		"startTime": 0,
		"endTime": 30000,
		"tokens": [{"symbol": "USDC", "address": "` + testutil.USDCAddress + `", "decimals": 6}]
	}`

	rec := api.do(http.MethodPost, "/api/v1/net-transfers", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result entities.NetTransferBatchResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result.Accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(result.Accounts))
	}
	if result.Accounts[0].NetTransfer != -60 || result.Accounts[1].NetTransfer != 60 {
		t.Errorf("expected -60 and 60, got %v and %v", result.Accounts[0].NetTransfer, result.Accounts[1].NetTransfer)
	}
	if result.LogsEvaluated != 2 {
		t.Errorf("expected 2 logs, got %d", result.LogsEvaluated)
	}
}

func TestNetTransferHandler_PostNetTransfers_BadRequests(t *testing.T) {
	api := setupTestAPI()

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"accounts":`},
		{name: "no accounts", body: `{"chainId": 1, "accounts": [], "startTime": 0, "endTime": 30}`},
		{name: "inverted window", body: `{"accounts": ["` + testutil.AliceAddress + `"], "startTime": 30, "endTime": 10}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/v1/net-transfers", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}
