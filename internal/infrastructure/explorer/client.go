package explorer

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bimakw/holdings-reconciler/internal/config"
	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ensure Client implements the explorer-backed providers
var (
	_ providers.LogSearcher           = (*Client)(nil)
	_ providers.BlockLocator          = (*Client)(nil)
	_ providers.TransferHistorySource = (*Client)(nil)
)

// Client talks to an Etherscan v2 compatible API (one base URL, chain selected by chainid)
type Client struct {
	client  *fasthttp.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates an explorer client paced to the configured request rate
func NewClient(cfg config.ExplorerConfig, logger *zap.Logger) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		client:  &fasthttp.Client{},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.Named("explorer"),
	}
}

// envelope is the common response wrapper; Result is an array, a string or an error message
type envelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Result  jsoniter.RawMessage `json:"result"`
}

type logResult struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	BlockNumber     string   `json:"blockNumber"`
	TimeStamp       string   `json:"timeStamp"`
	LogIndex        string   `json:"logIndex"`
	TransactionHash string   `json:"transactionHash"`
}

type tokenTxResult struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	LogIndex        string `json:"logIndex"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	ContractAddress string `json:"contractAddress"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
}

// SearchLogs runs module=logs&action=getLogs for one page
func (c *Client) SearchLogs(ctx context.Context, q providers.LogSearchQuery) ([]entities.RawLog, error) {
	params := url.Values{}
	params.Set("chainid", strconv.FormatInt(q.ChainID, 10))
	params.Set("module", "logs")
	params.Set("action", "getLogs")
	params.Set("fromBlock", strconv.FormatUint(q.FromBlock, 10))
	params.Set("toBlock", strconv.FormatUint(q.ToBlock, 10))
	params.Set("address", q.Address)
	if q.Topic0 != "" {
		params.Set("topic0", q.Topic0)
	}
	if q.AccountTopic != "" {
		params.Set("topic0_1_opr", "and")
		params.Set("topic1", q.AccountTopic)
		params.Set("topic1_2_opr", "or")
		params.Set("topic2", q.AccountTopic)
		params.Set("topic0_2_opr", "and")
	}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("offset", strconv.Itoa(q.PageSize))

	env, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var results []logResult
	if err := decodeList(env, &results); err != nil {
		return nil, fmt.Errorf("getLogs %d-%d: %w", q.FromBlock, q.ToBlock, err)
	}

	logs := make([]entities.RawLog, 0, len(results))
	for _, r := range results {
		block, err := parseUint(r.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("invalid blockNumber %q: %w", r.BlockNumber, err)
		}
		ts, err := parseUint(r.TimeStamp)
		if err != nil {
			return nil, fmt.Errorf("invalid timeStamp %q: %w", r.TimeStamp, err)
		}
		logIndex, err := parseUint(r.LogIndex)
		if err != nil {
			return nil, fmt.Errorf("invalid logIndex %q: %w", r.LogIndex, err)
		}

		logs = append(logs, entities.RawLog{
			Address:     r.Address,
			Topics:      r.Topics,
			Data:        r.Data,
			BlockNumber: block,
			LogIndex:    logIndex,
			TxHash:      r.TransactionHash,
			Timestamp:   int64(ts),
		})
	}

	return logs, nil
}

// BlockNumberByTime runs module=block&action=getblocknobytime
func (c *Client) BlockNumberByTime(ctx context.Context, chainID, timestamp int64, pref entities.BlockPreference) (uint64, error) {
	closest := "before"
	if pref == entities.BlockCeil {
		closest = "after"
	}

	params := url.Values{}
	params.Set("chainid", strconv.FormatInt(chainID, 10))
	params.Set("module", "block")
	params.Set("action", "getblocknobytime")
	params.Set("timestamp", strconv.FormatInt(timestamp, 10))
	params.Set("closest", closest)

	env, err := c.get(ctx, params)
	if err != nil {
		return 0, err
	}

	var result string
	if err := json.Unmarshal(env.Result, &result); err != nil {
		return 0, fmt.Errorf("unexpected getblocknobytime result: %s", string(env.Result))
	}
	if env.Status != "1" {
		return 0, fmt.Errorf("getblocknobytime failed: %s: %s", env.Message, result)
	}

	block, err := parseUint(result)
	if err != nil {
		return 0, fmt.Errorf("invalid block number %q: %w", result, err)
	}
	return block, nil
}

// TokenTransfers runs module=account&action=tokentx, newest first
func (c *Client) TokenTransfers(ctx context.Context, q providers.TokenTransferQuery) ([]entities.TokenTransfer, error) {
	params := url.Values{}
	params.Set("chainid", strconv.FormatInt(q.ChainID, 10))
	params.Set("module", "account")
	params.Set("action", "tokentx")
	params.Set("address", q.Account)
	if q.TokenAddress != "" {
		params.Set("contractaddress", q.TokenAddress)
	}
	if q.StartBlock > 0 {
		params.Set("startblock", strconv.FormatUint(q.StartBlock, 10))
	}
	if q.EndBlock > 0 {
		params.Set("endblock", strconv.FormatUint(q.EndBlock, 10))
	}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("offset", strconv.Itoa(q.PageSize))
	params.Set("sort", "desc")

	env, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var results []tokenTxResult
	if err := decodeList(env, &results); err != nil {
		return nil, fmt.Errorf("tokentx: %w", err)
	}

	transfers := make([]entities.TokenTransfer, 0, len(results))
	for _, r := range results {
		decimals, err := strconv.Atoi(r.TokenDecimal)
		if err != nil {
			decimals = 18
		}
		value, err := entities.ParseAmount(r.Value, decimals)
		if err != nil {
			c.logger.Warn("Skipping transfer with invalid value",
				zap.String("tx_hash", r.Hash),
				zap.String("value", r.Value),
			)
			continue
		}
		block, _ := parseUint(r.BlockNumber)
		ts, _ := parseUint(r.TimeStamp)
		logIndex, _ := parseUint(r.LogIndex)

		transfers = append(transfers, entities.TokenTransfer{
			TxHash:       strings.ToLower(r.Hash),
			LogIndex:     logIndex,
			BlockNumber:  block,
			Timestamp:    int64(ts),
			TokenAddress: strings.ToLower(r.ContractAddress),
			TokenSymbol:  strings.ToUpper(r.TokenSymbol),
			Decimals:     decimals,
			From:         strings.ToLower(r.From),
			To:           strings.ToLower(r.To),
			Value:        value,
		})
	}

	return transfers, nil
}

func (c *Client) get(ctx context.Context, params url.Values) (*envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	requestURL := c.baseURL + "?" + params.Encode()

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("explorer %s request failed: %w", params.Get("action"), err)
		}
	} else if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, fmt.Errorf("explorer %s request failed: %w", params.Get("action"), err)
	}

	body := resp.Body()
	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Error("Explorer request failed",
			zap.String("action", params.Get("action")),
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("body", body),
		)
		return nil, fmt.Errorf("explorer %s returned status %d", params.Get("action"), resp.StatusCode())
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode explorer response: %w", err)
	}

	return &env, nil
}

// decodeList unmarshals an array result. A string result is the API's way of
// reporting errors such as rate limits or oversized result windows.
func decodeList(env *envelope, dest interface{}) error {
	trimmed := strings.TrimSpace(string(env.Result))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(env.Result, dest)
	}

	var message string
	if err := json.Unmarshal(env.Result, &message); err != nil {
		message = trimmed
	}
	if message == "" {
		message = env.Message
	}
	return fmt.Errorf("explorer error: %s", message)
}

// parseUint accepts decimal or 0x-prefixed hex; a bare "0x" is zero
func parseUint(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if len(s) == 2 {
			return 0, nil
		}
		return strconv.ParseUint(s[2:], 16, 64)
	}
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	return strconv.ParseUint(s, 10, 64)
}
