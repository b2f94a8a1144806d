package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-token-selector/internal/domain"
	"solana-token-selector/internal/logging"
	"solana-token-selector/internal/solana"
	"solana-token-selector/internal/storage"
)

// ErrPersistence marks a failed token store read or write.
var ErrPersistence = errors.New("persistence failure")

// Result lists the addresses touched by a reconciliation.
type Result struct {
	Created     []string
	Activated   []string
	Deactivated []string
	Unchanged   []string
}

// ActiveCount is the size of the active set once every write has landed.
func (r *Result) ActiveCount() int {
	return len(r.Created) + len(r.Activated) + len(r.Unchanged)
}

// Engine applies selection plans to a TokenStore.
type Engine struct {
	store  storage.TokenStore
	logger *zap.Logger
	now    func() int64
}

// NewEngine creates a new Engine.
func NewEngine(store storage.TokenStore, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logging.OrNop(logger),
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

// Reconcile makes the active set equal to selected.
//
// The active set is read fresh on every call. Tokens entering the selection
// are activated when a row exists and created active otherwise; tokens
// leaving it are deactivated; tokens already active are not written. Rows
// are never deleted. Each write is independent: on error the writes already
// applied stay, the partial Result is returned and the next run converges.
func (e *Engine) Reconcile(ctx context.Context, selected []domain.Candidate) (*Result, error) {
	active, err := e.store.GetAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load active tokens: %w", ErrPersistence, err)
	}

	activeAddrs := make([]string, len(active))
	for i, t := range active {
		activeAddrs[i] = t.Address
	}

	plan := Diff(selected, activeAddrs)
	result := &Result{Unchanged: plan.Keep}

	e.logger.Info("reconciliation plan",
		zap.Int("selected", len(selected)),
		zap.Int("active", len(activeAddrs)),
		zap.Int("enter", len(plan.Enter)),
		zap.Int("keep", len(plan.Keep)),
		zap.Int("leave", len(plan.Leave)),
	)

	for i := range plan.Enter {
		if err := e.enter(ctx, &plan.Enter[i], result); err != nil {
			return result, err
		}
	}

	for _, addr := range plan.Leave {
		if err := e.store.UpdateActiveState(ctx, addr, false); err != nil {
			return result, fmt.Errorf("%w: deactivate %s: %w", ErrPersistence, addr, err)
		}
		result.Deactivated = append(result.Deactivated, addr)
		e.logger.Debug("token deactivated", zap.String("address", addr))
	}

	return result, nil
}

func (e *Engine) enter(ctx context.Context, c *domain.Candidate, result *Result) error {
	addr := c.Address()

	_, err := e.store.GetByAddress(ctx, addr)
	switch {
	case err == nil:
		if err := e.store.UpdateActiveState(ctx, addr, true); err != nil {
			return fmt.Errorf("%w: activate %s: %w", ErrPersistence, addr, err)
		}
		result.Activated = append(result.Activated, addr)
		e.logger.Debug("token activated", zap.String("address", addr))
		return nil

	case errors.Is(err, storage.ErrNotFound):
		if err := e.store.Create(ctx, c.ToToken(true, e.now())); err != nil {
			return fmt.Errorf("%w: create %s: %w", ErrPersistence, addr, err)
		}
		result.Created = append(result.Created, addr)
		e.logger.Info("token created",
			zap.String("address", addr),
			zap.String("symbol", c.Listing.Symbol),
			zap.String("mint_kind", solana.AddressKind(addr)),
		)
		return nil

	default:
		return fmt.Errorf("%w: lookup %s: %w", ErrPersistence, addr, err)
	}
}
