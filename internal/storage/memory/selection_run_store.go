package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-selector/internal/domain"
	"solana-token-selector/internal/storage"
)

type runKey struct {
	runID   string
	attempt int
}

// SelectionRunStore is an in-memory implementation of storage.SelectionRunStore.
type SelectionRunStore struct {
	mu   sync.RWMutex
	runs []*domain.SelectionRun
	keys map[runKey]struct{}
}

// NewSelectionRunStore creates a new in-memory selection history store.
func NewSelectionRunStore() *SelectionRunStore {
	return &SelectionRunStore{
		keys: make(map[runKey]struct{}),
	}
}

// Insert adds a run record. Returns ErrDuplicateKey if (run_id, attempt) exists.
func (s *SelectionRunStore) Insert(_ context.Context, r *domain.SelectionRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := runKey{runID: r.RunID, attempt: r.Attempt}
	if _, exists := s.keys[key]; exists {
		return storage.ErrDuplicateKey
	}

	runCopy := *r
	s.runs = append(s.runs, &runCopy)
	s.keys[key] = struct{}{}
	return nil
}

// Recent returns up to limit most recent runs, newest first.
func (s *SelectionRunStore) Recent(_ context.Context, limit int) ([]*domain.SelectionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SelectionRun, 0, len(s.runs))
	for _, r := range s.runs {
		runCopy := *r
		result = append(result, &runCopy)
	}

	// Stable sort keeps insertion order for equal timestamps, reversed below.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartedAt < result[j].StartedAt
	})
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.SelectionRunStore = (*SelectionRunStore)(nil)
