package ethereum

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/config"
	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
)

// Ensure ClientPool implements ChainReaders
var _ providers.ChainReaders = (*ClientPool)(nil)

// ClientPool dials one Client per configured chain on first use
type ClientPool struct {
	cfg    config.ChainsConfig
	logger *zap.Logger

	mu      sync.Mutex
	clients map[int64]*Client
}

// NewClientPool creates a pool over the configured RPC endpoints
func NewClientPool(cfg config.ChainsConfig, logger *zap.Logger) *ClientPool {
	return &ClientPool{
		cfg:     cfg,
		logger:  logger.Named("ethereum"),
		clients: make(map[int64]*Client),
	}
}

// Reader returns the client for chainID, dialing it if needed
func (p *ClientPool) Reader(ctx context.Context, chainID int64) (providers.ChainReader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[chainID]; ok {
		return client, nil
	}

	rpcURL := strings.TrimSpace(p.cfg.RPCURLs[chainID])
	if rpcURL == "" {
		return nil, fmt.Errorf("%w: no RPC URL configured for chain %d", entities.ErrConfiguration, chainID)
	}

	client, err := NewClient(ctx, chainID, rpcURL, p.cfg, p.logger)
	if err != nil {
		return nil, err
	}
	p.clients[chainID] = client

	return client, nil
}

// Chains lists the chain IDs that have an RPC endpoint
func (p *ClientPool) Chains() []int64 {
	ids := make([]int64, 0, len(p.cfg.RPCURLs))
	for id, url := range p.cfg.RPCURLs {
		if strings.TrimSpace(url) != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Close closes every dialed client
func (p *ClientPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, client := range p.clients {
		client.Close()
		delete(p.clients, id)
	}
}
