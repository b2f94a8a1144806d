package storage

import (
	"context"

	"solana-token-selector/internal/domain"
)

// TokenStore persists tracked tokens and their active state.
// Rows are never deleted. Every method is a single-row operation.
type TokenStore interface {
	// GetByAddress retrieves a token by mint address. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.Token, error)

	// GetAllActive retrieves all tokens with IsActive set, ordered by address.
	GetAllActive(ctx context.Context) ([]*domain.Token, error)

	// GetAll retrieves all tokens, ordered by address.
	GetAll(ctx context.Context) ([]*domain.Token, error)

	// Create inserts a new token. Returns ErrDuplicateKey if the address exists
	// and ErrInvalidInput if the address is not a valid mint address.
	Create(ctx context.Context, token *domain.Token) error

	// UpdateActiveState sets the active flag. Returns ErrNotFound if not exists.
	UpdateActiveState(ctx context.Context, address string, active bool) error

	// UpdateFinancials overwrites price change, volume and decimals.
	// Returns ErrNotFound if not exists.
	UpdateFinancials(ctx context.Context, address string, f domain.Financials) error
}

// SelectionRunStore keeps an append-only history of selection attempts.
type SelectionRunStore interface {
	// Insert adds a run record. Returns ErrDuplicateKey if (run_id, attempt) exists.
	Insert(ctx context.Context, run *domain.SelectionRun) error

	// Recent returns up to limit most recent runs, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.SelectionRun, error)
}
