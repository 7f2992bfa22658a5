package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/config"
)

// Client wraps the Ethereum client for one chain with retry logic
type Client struct {
	client  *ethclient.Client
	config  config.ChainsConfig
	logger  *zap.Logger
	chainID int64
}

// NewClient dials rpcURL and verifies it serves chainID
func NewClient(ctx context.Context, chainID int64, rpcURL string, cfg config.ChainsConfig, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain %d: %w", chainID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	remoteID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	if remoteID.Int64() != chainID {
		client.Close()
		return nil, fmt.Errorf("chain ID mismatch: expected %d, got %d", chainID, remoteID.Int64())
	}

	logger.Info("Connected to chain RPC",
		zap.Int64("chain_id", chainID),
	)

	return &Client{
		client:  client,
		config:  cfg,
		logger:  logger.With(zap.Int64("chain_id", chainID)),
		chainID: chainID,
	}, nil
}

// Close closes the RPC connection
func (c *Client) Close() {
	c.client.Close()
}

// ChainID returns the chain this client is bound to
func (c *Client) ChainID() int64 {
	return c.chainID
}

// CallContract performs an eth_call against the latest block
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{To: &to, Data: data}

	var out []byte
	err := c.withRetry(ctx, "eth_call", func(ctx context.Context) error {
		var callErr error
		out, callErr = c.client.CallContract(ctx, msg, nil)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", to.Hex(), err)
	}
	return out, nil
}

// BalanceAt returns the native balance of account at the latest block
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	var balance *big.Int
	err := c.withRetry(ctx, "eth_getBalance", func(ctx context.Context) error {
		var callErr error
		balance, callErr = c.client.BalanceAt(ctx, account, nil)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", account.Hex(), err)
	}
	return balance, nil
}

// GetLatestBlockNumber returns the latest block number
func (c *Client) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	var blockNumber uint64
	err := c.withRetry(ctx, "eth_blockNumber", func(ctx context.Context) error {
		var callErr error
		blockNumber, callErr = c.client.BlockNumber(ctx)
		return callErr
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block number: %w", err)
	}
	return blockNumber, nil
}

func (c *Client) withRetry(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	var err error

	for i := 0; i <= c.config.MaxRetries; i++ {
		callCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		err = fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}

		// Reverts are deterministic; retrying will not help
		if isExecutionError(err) {
			return err
		}

		c.logger.Warn("RPC call failed, retrying",
			zap.String("method", method),
			zap.Int("attempt", i+1),
			zap.Error(err),
		)

		if i < c.config.MaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", method, c.config.MaxRetries, err)
}
