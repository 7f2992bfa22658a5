package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/holdings-reconciler/internal/domain/providers"
)

const positionsABIJSON = `[
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"account","type":"address"},{"name":"asset","type":"address"}],"name":"collateralBalanceOf","outputs":[{"name":"","type":"uint128"}],"type":"function"}
]`

var (
	positionsABI     abi.ABI
	positionsABIErr  error
	positionsABIOnce sync.Once
)

func loadPositionsABI() (abi.ABI, error) {
	positionsABIOnce.Do(func() {
		positionsABI, positionsABIErr = abi.JSON(strings.NewReader(positionsABIJSON))
	})
	return positionsABI, positionsABIErr
}

// BalanceOf reads balanceOf(account) on an ERC-20 style contract
func BalanceOf(ctx context.Context, reader providers.ChainReader, contract, account common.Address) (*big.Int, error) {
	return callUint(ctx, reader, contract, "balanceOf", account)
}

// CollateralBalanceOf reads a Compound v3 comet's collateralBalanceOf(account, asset)
func CollateralBalanceOf(ctx context.Context, reader providers.ChainReader, comet, account, asset common.Address) (*big.Int, error) {
	return callUint(ctx, reader, comet, "collateralBalanceOf", account, asset)
}

func callUint(ctx context.Context, reader providers.ChainReader, contract common.Address, method string, args ...interface{}) (*big.Int, error) {
	parsed, err := loadPositionsABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	out, err := reader.CallContract(ctx, contract, data)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s response from %s", method, contract.Hex())
	}

	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected %s output count: %d", method, len(values))
	}

	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s output type %T", method, values[0])
	}
	return value, nil
}
