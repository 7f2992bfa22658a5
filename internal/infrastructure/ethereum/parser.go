package ethereum

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
)

// TransferEventSignature is the keccak256 hash of Transfer(address,address,uint256)
var TransferEventSignature = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

// TransferTopic is TransferEventSignature in the lower-case hex form log APIs expect
var TransferTopic = strings.ToLower(TransferEventSignature.Hex())

// AddressTopic left-pads an address to a 32-byte topic
func AddressTopic(address string) string {
	return strings.ToLower(common.BytesToHash(common.HexToAddress(address).Bytes()).Hex())
}

// ParseTransferLog decodes a raw Transfer log. Addresses come back lower-cased.
func ParseTransferLog(raw entities.RawLog) (entities.TransferLogEntry, error) {
	// Validate log has correct topic structure
	if len(raw.Topics) != 3 {
		return entities.TransferLogEntry{}, fmt.Errorf("invalid number of topics: expected 3, got %d", len(raw.Topics))
	}

	// Verify this is a Transfer event
	if !strings.EqualFold(raw.Topics[0], TransferTopic) {
		return entities.TransferLogEntry{}, fmt.Errorf("not a Transfer event")
	}

	// Topics[1] = from, Topics[2] = to, both padded to 32 bytes
	from, err := topicToAddress(raw.Topics[1])
	if err != nil {
		return entities.TransferLogEntry{}, fmt.Errorf("invalid from topic: %w", err)
	}
	to, err := topicToAddress(raw.Topics[2])
	if err != nil {
		return entities.TransferLogEntry{}, fmt.Errorf("invalid to topic: %w", err)
	}

	data := common.FromHex(raw.Data)
	if len(data) != 32 {
		return entities.TransferLogEntry{}, fmt.Errorf("invalid data length: expected 32, got %d", len(data))
	}

	return entities.TransferLogEntry{
		TokenAddress: strings.ToLower(raw.Address),
		From:         from,
		To:           to,
		RawAmount:    new(big.Int).SetBytes(data),
		BlockNumber:  raw.BlockNumber,
		LogIndex:     raw.LogIndex,
		TxHash:       strings.ToLower(raw.TxHash),
		Timestamp:    raw.Timestamp,
	}, nil
}

// IsTransferLog checks if a raw log is a Transfer event
func IsTransferLog(raw entities.RawLog) bool {
	return len(raw.Topics) == 3 && strings.EqualFold(raw.Topics[0], TransferTopic)
}

func topicToAddress(topic string) (string, error) {
	b := common.FromHex(topic)
	if len(b) != 32 {
		return "", fmt.Errorf("topic length %d", len(b))
	}
	return strings.ToLower(common.BytesToAddress(b).Hex()), nil
}

// ChecksumAddress returns the EIP-55 form of a hex address
func ChecksumAddress(address string) string {
	return common.HexToAddress(address).Hex()
}
