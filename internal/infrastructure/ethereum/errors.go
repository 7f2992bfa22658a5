package ethereum

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// isExecutionError reports whether the node rejected the call itself (revert,
// missing method) rather than failing to answer
func isExecutionError(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
