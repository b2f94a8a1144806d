package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-token-selector/internal/domain"
	"solana-token-selector/internal/solana"
	"solana-token-selector/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu        sync.RWMutex
	byAddress map[string]*domain.Token // keyed by mint address
	now       func() int64
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		byAddress: make(map[string]*domain.Token),
		now:       func() int64 { return time.Now().UnixMilli() },
	}
}

// Create inserts a new token. Returns ErrDuplicateKey if the address exists.
func (s *TokenStore) Create(_ context.Context, t *domain.Token) error {
	if t == nil || solana.ValidateAddress(t.Address) != nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byAddress[t.Address]; exists {
		return storage.ErrDuplicateKey
	}

	tokenCopy := *t
	now := s.now()
	if tokenCopy.CreatedAt == 0 {
		tokenCopy.CreatedAt = now
	}
	if tokenCopy.UpdatedAt == 0 {
		tokenCopy.UpdatedAt = now
	}
	s.byAddress[t.Address] = &tokenCopy
	return nil
}

// GetByAddress retrieves a token by mint address. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByAddress(_ context.Context, address string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.byAddress[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tokenCopy := *t
	return &tokenCopy, nil
}

// GetAllActive retrieves all active tokens ordered by address.
func (s *TokenStore) GetAllActive(_ context.Context) ([]*domain.Token, error) {
	return s.collect(func(t *domain.Token) bool { return t.IsActive }), nil
}

// GetAll retrieves all tokens ordered by address.
func (s *TokenStore) GetAll(_ context.Context) ([]*domain.Token, error) {
	return s.collect(func(*domain.Token) bool { return true }), nil
}

// UpdateActiveState sets the active flag. Returns ErrNotFound if not exists.
func (s *TokenStore) UpdateActiveState(_ context.Context, address string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.byAddress[address]
	if !exists {
		return storage.ErrNotFound
	}
	t.IsActive = active
	t.UpdatedAt = s.now()
	return nil
}

// UpdateFinancials overwrites the market snapshot. Returns ErrNotFound if not exists.
func (s *TokenStore) UpdateFinancials(_ context.Context, address string, f domain.Financials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.byAddress[address]
	if !exists {
		return storage.ErrNotFound
	}
	t.PriceChange24hPct = f.PriceChange24hPct
	t.Volume24hUSD = f.Volume24hUSD
	t.Decimals = f.Decimals
	t.UpdatedAt = s.now()
	return nil
}

func (s *TokenStore) collect(keep func(*domain.Token) bool) []*domain.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Token, 0, len(s.byAddress))
	for _, t := range s.byAddress {
		if keep(t) {
			tokenCopy := *t
			result = append(result, &tokenCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})
	return result
}

var _ storage.TokenStore = (*TokenStore)(nil)
