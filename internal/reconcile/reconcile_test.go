package reconcile

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-selector/internal/domain"
	"solana-token-selector/internal/solana/solanatest"
	"solana-token-selector/internal/storage"
	"solana-token-selector/internal/storage/memory"
)

// countingStore wraps a TokenStore, counts writes and injects failures.
type countingStore struct {
	storage.TokenStore
	creates      int
	updates      int
	failUpdateOn string
	failLoad     bool
}

func (s *countingStore) GetAllActive(ctx context.Context) ([]*domain.Token, error) {
	if s.failLoad {
		return nil, errors.New("connection reset")
	}
	return s.TokenStore.GetAllActive(ctx)
}

func (s *countingStore) Create(ctx context.Context, t *domain.Token) error {
	s.creates++
	return s.TokenStore.Create(ctx, t)
}

func (s *countingStore) UpdateActiveState(ctx context.Context, addr string, active bool) error {
	if addr == s.failUpdateOn {
		return errors.New("write timeout")
	}
	s.updates++
	return s.TokenStore.UpdateActiveState(ctx, addr, active)
}

func (s *countingStore) writes() int { return s.creates + s.updates }

func candidate(addr string) domain.Candidate {
	return domain.Candidate{
		Listing: domain.TokenListing{Address: addr, Symbol: "SYM", Name: "Name", Decimals: 6},
	}
}

func candidates(addrs []string) []domain.Candidate {
	out := make([]domain.Candidate, len(addrs))
	for i, a := range addrs {
		out[i] = candidate(a)
	}
	return out
}

func seed(t *testing.T, store storage.TokenStore, addrs []string, active bool) {
	t.Helper()
	for _, a := range addrs {
		require.NoError(t, store.Create(context.Background(), &domain.Token{Address: a, Symbol: "S", Name: "N", IsActive: active}))
	}
}

func activeAddresses(t *testing.T, store storage.TokenStore) []string {
	t.Helper()
	active, err := store.GetAllActive(context.Background())
	require.NoError(t, err)
	out := make([]string, len(active))
	for i, tok := range active {
		out[i] = tok.Address
	}
	return out
}

func TestDiff(t *testing.T) {
	a, b, c, d := "A", "B", "C", "D"

	plan := Diff(candidates([]string{a, b, c, a}), []string{d, b})

	require.Len(t, plan.Enter, 2)
	assert.Equal(t, a, plan.Enter[0].Address())
	assert.Equal(t, c, plan.Enter[1].Address())
	assert.Equal(t, []string{b}, plan.Keep)
	assert.Equal(t, []string{d}, plan.Leave)
	assert.False(t, plan.IsNoop())

	assert.True(t, Diff(candidates([]string{a}), []string{a}).IsNoop())
	assert.True(t, Diff(nil, nil).IsNoop())
}

func TestReconcile_EmptyStoreCreatesAll(t *testing.T) {
	store := &countingStore{TokenStore: memory.NewTokenStore()}
	engine := NewEngine(store, nil)

	selected := solanatest.Mints("fresh", 25)
	result, err := engine.Reconcile(context.Background(), candidates(selected))
	require.NoError(t, err)

	assert.Len(t, result.Created, 25)
	assert.Empty(t, result.Activated)
	assert.Empty(t, result.Deactivated)
	assert.Equal(t, 25, result.ActiveCount())
	assert.ElementsMatch(t, selected, activeAddresses(t, store))

	tok, err := store.GetByAddress(context.Background(), selected[0])
	require.NoError(t, err)
	assert.True(t, tok.IsActive)
	assert.Equal(t, "SYM", tok.Symbol)
}

func TestReconcile_RotationReusesExistingRows(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{TokenStore: memory.NewTokenStore()}
	engine := NewEngine(store, nil)

	x := solanatest.Mint("x")
	y := solanatest.Mint("y")
	common := solanatest.Mints("common", 24)

	seed(t, store, append([]string{x}, common...), true)
	seed(t, store, []string{y}, false)
	store.creates = 0

	result, err := engine.Reconcile(ctx, candidates(append([]string{y}, common...)))
	require.NoError(t, err)

	assert.Equal(t, []string{y}, result.Activated)
	assert.Equal(t, []string{x}, result.Deactivated)
	assert.Empty(t, result.Created)
	assert.Len(t, result.Unchanged, 24)
	assert.Equal(t, 0, store.creates)
	assert.Equal(t, 2, store.updates)

	xTok, err := store.GetByAddress(ctx, x)
	require.NoError(t, err)
	assert.False(t, xTok.IsActive, "deselected rows are kept, only deactivated")
}

func TestReconcile_NoopWhenSelectionUnchanged(t *testing.T) {
	store := &countingStore{TokenStore: memory.NewTokenStore()}
	engine := NewEngine(store, nil)
	selected := candidates(solanatest.Mints("stable", 5))

	_, err := engine.Reconcile(context.Background(), selected)
	require.NoError(t, err)
	before := store.writes()

	result, err := engine.Reconcile(context.Background(), selected)
	require.NoError(t, err)

	assert.Equal(t, before, store.writes(), "second run must not write")
	assert.Len(t, result.Unchanged, 5)
}

func TestReconcile_Completeness(t *testing.T) {
	pool := solanatest.Mints("pool", 12)

	cases := []struct {
		name     string
		active   []string
		inactive []string
		selected []string
	}{
		{"disjoint", pool[0:4], nil, pool[4:8]},
		{"overlap", pool[0:6], pool[6:9], pool[3:9]},
		{"shrink to empty", pool[0:5], nil, nil},
		{"grow with new rows", pool[0:2], pool[2:4], pool[0:10]},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewTokenStore()
			seed(t, store, tc.active, true)
			seed(t, store, tc.inactive, false)

			_, err := NewEngine(store, nil).Reconcile(context.Background(), candidates(tc.selected))
			require.NoError(t, err)

			assert.ElementsMatch(t, tc.selected, activeAddresses(t, store))

			all, err := store.GetAll(context.Background())
			require.NoError(t, err)
			for _, tok := range all {
				assert.Equal(t, contains(tc.selected, tok.Address), tok.IsActive, tok.Address)
			}
		})
	}
}

func TestReconcile_PartialFailureKeepsAppliedWrites(t *testing.T) {
	ctx := context.Background()
	base := memory.NewTokenStore()
	leaving := solanatest.Mints("leaving", 3)
	seed(t, base, leaving, true)

	store := &countingStore{TokenStore: base, failUpdateOn: leaving[1]}
	entering := solanatest.Mints("entering", 2)

	result, err := NewEngine(store, nil).Reconcile(ctx, candidates(entering))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	require.NotNil(t, result)
	assert.Len(t, result.Created, 2)

	// Leave is processed in address order and stops at the failing write.
	var expected []string
	for _, a := range leaving {
		if a < leaving[1] {
			expected = append(expected, a)
		}
	}
	sort.Strings(expected)
	assert.Equal(t, expected, result.Deactivated)

	// Next run with a healthy store converges.
	store.failUpdateOn = ""
	_, err = NewEngine(store, nil).Reconcile(ctx, candidates(entering))
	require.NoError(t, err)
	assert.ElementsMatch(t, entering, activeAddresses(t, store))
}

func TestReconcile_LoadFailure(t *testing.T) {
	store := &countingStore{TokenStore: memory.NewTokenStore(), failLoad: true}

	result, err := NewEngine(store, nil).Reconcile(context.Background(), candidates([]string{solanatest.Mint("a")}))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 0, store.writes())
}

func TestReconcile_CreateFailureIsPersistenceError(t *testing.T) {
	store := memory.NewTokenStore()

	_, err := NewEngine(store, nil).Reconcile(context.Background(), candidates([]string{"not-a-mint"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
