package memory

import (
	"context"
	"errors"
	"testing"

	"solana-token-selector/internal/domain"
	"solana-token-selector/internal/storage"
)

func TestSelectionRunStore_InsertAndRecent(t *testing.T) {
	store := NewSelectionRunStore()
	ctx := context.Background()

	runs := []*domain.SelectionRun{
		{RunID: "r1", Attempt: 1, StartedAt: 100, Status: domain.RunStatusFailed, Error: "boom"},
		{RunID: "r1", Attempt: 2, StartedAt: 200, Status: domain.RunStatusSucceeded},
		{RunID: "r2", Attempt: 1, StartedAt: 300, Status: domain.RunStatusSucceeded},
	}
	for _, r := range runs {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(recent))
	}
	if recent[0].RunID != "r2" || recent[1].Attempt != 2 {
		t.Errorf("unexpected order: %+v %+v", recent[0], recent[1])
	}

	all, _ := store.Recent(ctx, 0)
	if len(all) != 3 {
		t.Errorf("expected 3 runs, got %d", len(all))
	}
}

func TestSelectionRunStore_Duplicate(t *testing.T) {
	store := NewSelectionRunStore()
	ctx := context.Background()

	r := &domain.SelectionRun{RunID: "r1", Attempt: 1}
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, r); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if err := store.Insert(ctx, &domain.SelectionRun{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
