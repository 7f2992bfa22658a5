package entities

import (
	"time"
)

// BlockPreference selects the block on either side of a timestamp
type BlockPreference string

const (
	// BlockFloor is the last block at or before the timestamp
	BlockFloor BlockPreference = "floor"
	// BlockCeil is the first block at or after the timestamp
	BlockCeil BlockPreference = "ceil"
)

// BlockTimestamp records a resolved timestamp to block mapping
type BlockTimestamp struct {
	ChainID     int64     `db:"chain_id"`
	Timestamp   int64     `db:"unix_timestamp"`
	BlockNumber int64     `db:"block_number"`
	CreatedAt   time.Time `db:"created_at"`
}
