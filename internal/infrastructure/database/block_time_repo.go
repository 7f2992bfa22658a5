package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
	"github.com/bimakw/holdings-reconciler/internal/domain/repositories"
)

// Ensure BlockTimeRepo implements BlockTimeRepository
var _ repositories.BlockTimeRepository = (*BlockTimeRepo)(nil)

// BlockTimeRepo implements BlockTimeRepository using PostgreSQL
type BlockTimeRepo struct {
	db *sqlx.DB
}

// NewBlockTimeRepo creates a new block time repository
func NewBlockTimeRepo(db *sqlx.DB) *BlockTimeRepo {
	return &BlockTimeRepo{db: db}
}

// Get retrieves the block resolved for a timestamp
func (r *BlockTimeRepo) Get(ctx context.Context, chainID, timestamp int64) (*entities.BlockTimestamp, error) {
	var entry entities.BlockTimestamp
	query := `SELECT chain_id, unix_timestamp, block_number, created_at
		FROM block_timestamps WHERE chain_id = $1 AND unix_timestamp = $2`

	if err := r.db.GetContext(ctx, &entry, query, chainID, timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get block timestamp: %w", err)
	}

	return &entry, nil
}

// Save records a resolution; an existing row for the timestamp is kept
func (r *BlockTimeRepo) Save(ctx context.Context, entry *entities.BlockTimestamp) error {
	query := `
		INSERT INTO block_timestamps (chain_id, unix_timestamp, block_number)
		VALUES ($1, $2, $3)
		ON CONFLICT (chain_id, unix_timestamp) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, entry.ChainID, entry.Timestamp, entry.BlockNumber); err != nil {
		return fmt.Errorf("failed to save block timestamp: %w", err)
	}

	return nil
}
