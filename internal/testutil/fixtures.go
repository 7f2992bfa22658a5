package testutil

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
)

// Common test addresses
const (
	USDTAddress  = "0xdac17f958d2ee523a2206206994597c13d831ec7"
	USDCAddress  = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	DAIAddress   = "0x6b175474e89094c44da98b954eedeac495271d0f"
	WETHAddress  = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	AliceAddress = "0x1111111111111111111111111111111111111111"
	BobAddress   = "0x2222222222222222222222222222222222222222"
	CharlieAddr  = "0x3333333333333333333333333333333333333333"
	RouterAddr   = "0x4444444444444444444444444444444444444444"

	// TransferTopic is keccak256("Transfer(address,address,uint256)")
	TransferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
)

// Topic left-pads an address into a 32-byte topic
func Topic(address string) string {
	return strings.ToLower(common.BytesToHash(common.HexToAddress(address).Bytes()).Hex())
}

// CreateTransferLog creates a raw Transfer log: 1 USDC from Alice to Bob by default
func CreateTransferLog(opts ...LogOption) entities.RawLog {
	l := transferLog{
		token:     USDCAddress,
		from:      AliceAddress,
		to:        BobAddress,
		amount:    big.NewInt(1_000_000),
		block:     100,
		logIndex:  0,
		txHash:    "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		timestamp: 100,
	}

	for _, opt := range opts {
		opt(&l)
	}

	return entities.RawLog{
		Address:     l.token,
		Topics:      []string{TransferTopic, Topic(l.from), Topic(l.to)},
		Data:        "0x" + common.Bytes2Hex(common.LeftPadBytes(l.amount.Bytes(), 32)),
		BlockNumber: l.block,
		LogIndex:    l.logIndex,
		TxHash:      l.txHash,
		Timestamp:   l.timestamp,
	}
}

type transferLog struct {
	token     string
	from      string
	to        string
	amount    *big.Int
	block     uint64
	logIndex  uint64
	txHash    string
	timestamp int64
}

type LogOption func(*transferLog)

func WithToken(addr string) LogOption {
	return func(l *transferLog) {
		l.token = addr
	}
}

func WithFrom(addr string) LogOption {
	return func(l *transferLog) {
		l.from = addr
	}
}

func WithTo(addr string) LogOption {
	return func(l *transferLog) {
		l.to = addr
	}
}

func WithAmount(raw *big.Int) LogOption {
	return func(l *transferLog) {
		l.amount = raw
	}
}

// WithUnits sets the amount to units * 10^decimals
func WithUnits(units int64, decimals int) LogOption {
	return func(l *transferLog) {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
		l.amount = new(big.Int).Mul(big.NewInt(units), scale)
	}
}

// WithTime sets both the timestamp and, one to one, the block number
func WithTime(ts int64) LogOption {
	return func(l *transferLog) {
		l.timestamp = ts
		l.block = uint64(ts)
	}
}

func WithBlock(block uint64) LogOption {
	return func(l *transferLog) {
		l.block = block
	}
}

// WithTx sets a transaction hash derived from n and the log index
func WithTx(n int, logIndex uint64) LogOption {
	return func(l *transferLog) {
		l.txHash = fmt.Sprintf("0x%064x", n)
		l.logIndex = logIndex
	}
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

// FloatPtr returns a pointer to v
func FloatPtr(v float64) *float64 {
	return &v
}

// Units returns n * 10^decimals
func Units(n int64, decimals int) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Int).Mul(big.NewInt(n), scale)
}
