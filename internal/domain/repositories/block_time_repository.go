package repositories

import (
	"context"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
)

// BlockTimeRepository persists timestamp to block resolutions.
// Entries are append-only; historical blocks are final.
type BlockTimeRepository interface {
	// Get returns nil, nil when the timestamp has not been resolved before
	Get(ctx context.Context, chainID, timestamp int64) (*entities.BlockTimestamp, error)

	Save(ctx context.Context, entry *entities.BlockTimestamp) error
}
