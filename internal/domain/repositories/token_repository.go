package repositories

import (
	"context"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
)

// TokenRepository persists resolved token metadata across restarts
type TokenRepository interface {
	// GetByAddress returns nil, nil when the token is unknown
	GetByAddress(ctx context.Context, chainID int64, address string) (*entities.Token, error)

	// Upsert creates or updates a token
	Upsert(ctx context.Context, token *entities.Token) error
}
