package providers

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainReader performs read-only calls against one chain
type ChainReader interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
}

// ChainReaders hands out a reader per chain. It returns an error wrapping
// entities.ErrConfiguration when no RPC endpoint is configured for the chain.
type ChainReaders interface {
	Reader(ctx context.Context, chainID int64) (ChainReader, error)
}
