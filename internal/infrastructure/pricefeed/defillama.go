package pricefeed

import (
	"context"
	"fmt"
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

var _ providers.PriceFeed = (*DefiLlamaClient)(nil)

// chainKeys maps chain IDs to DefiLlama chain slugs
var chainKeys = map[int64]string{
	1:     "ethereum",
	10:    "optimism",
	56:    "bsc",
	137:   "polygon",
	8453:  "base",
	42161: "arbitrum",
	43114: "avax",
	59144: "linea",
}

// ChainKey returns the price feed slug for a chain
func ChainKey(chainID int64) (string, bool) {
	key, ok := chainKeys[chainID]
	return key, ok
}

// DefiLlamaClient reads current prices from the DefiLlama coins API
type DefiLlamaClient struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewDefiLlamaClient creates a price feed client
func NewDefiLlamaClient(cfg config.PriceConfig, logger *zap.Logger) *DefiLlamaClient {
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}

	return &DefiLlamaClient{
		client:  &fasthttp.Client{},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.Named("pricefeed"),
	}
}

type coinsResponse struct {
	Coins map[string]struct {
		Price      float64 `json:"price"`
		Symbol     string  `json:"symbol"`
		Timestamp  int64   `json:"timestamp"`
		Confidence float64 `json:"confidence"`
	} `json:"coins"`
}

// CurrentPrice fetches /prices/current/{chain}:{address}
func (c *DefiLlamaClient) CurrentPrice(ctx context.Context, chainID int64, address string) (float64, error) {
	chainKey, ok := ChainKey(chainID)
	if !ok {
		return 0, fmt.Errorf("%w: no price feed for chain %d", entities.ErrUnsupportedChain, chainID)
	}

	identifier := chainKey + ":" + strings.ToLower(address)
	requestURL := c.baseURL + "/prices/current/" + identifier

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return 0, fmt.Errorf("failed to fetch price for %s: %w", identifier, err)
		}
	} else if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
		return 0, fmt.Errorf("failed to fetch price for %s: %w", identifier, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Warn("Price request failed",
			zap.String("identifier", identifier),
			zap.Int("status", resp.StatusCode()),
		)
		return 0, fmt.Errorf("price request for %s returned status %d", identifier, resp.StatusCode())
	}

	var body coinsResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return 0, fmt.Errorf("failed to decode price response: %w", err)
	}

	coin, ok := body.Coins[identifier]
	if !ok || coin.Price <= 0 {
		return 0, fmt.Errorf("%w: %s", entities.ErrPriceUnavailable, identifier)
	}

	return coin.Price, nil
}
