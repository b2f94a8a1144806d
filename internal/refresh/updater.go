// Package refresh keeps the financial fields of persisted tokens current.
package refresh

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"solana-token-selector/internal/marketdata"
	"solana-token-selector/internal/observability"
	"solana-token-selector/internal/storage"
)

// ErrNoTokens is returned when the store holds no tokens to refresh.
var ErrNoTokens = errors.New("no tokens to refresh")

// Updater refreshes price change, volume and decimals of every persisted token.
type Updater struct {
	store  storage.TokenStore
	client marketdata.Client
	logger *zap.Logger
}

// NewUpdater creates an updater. A nil logger disables logging.
func NewUpdater(store storage.TokenStore, client marketdata.Client, logger *zap.Logger) *Updater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{store: store, client: client, logger: logger}
}

// Run refreshes all tokens, active or not, in address order.
// The first failure aborts the pass; tokens already written keep their new values.
func (u *Updater) Run(ctx context.Context) error {
	tokens, err := u.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	if len(tokens) == 0 {
		return ErrNoTokens
	}

	for _, tok := range tokens {
		if err := ctx.Err(); err != nil {
			return err
		}
		overview, err := u.client.FetchOverview(ctx, tok.Address)
		if err != nil {
			return fmt.Errorf("fetch overview %s: %w", tok.Address, err)
		}
		if err := u.store.UpdateFinancials(ctx, tok.Address, overview.Financials()); err != nil {
			return fmt.Errorf("update financials %s: %w", tok.Address, err)
		}
		observability.RecordTokenRefreshed()
	}

	u.logger.Info("financials refreshed", zap.Int("tokens", len(tokens)))
	return nil
}
