package selection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-selector/internal/domain"
	"solana-token-selector/internal/job"
	"solana-token-selector/internal/marketdata"
	"solana-token-selector/internal/marketdata/stub"
	"solana-token-selector/internal/reconcile"
	"solana-token-selector/internal/solana/solanatest"
	"solana-token-selector/internal/storage"
	"solana-token-selector/internal/storage/memory"
)

// twoPages registers n good tokens split across pages 1 and 2.
func twoPages(client *stub.Client, prefix string, n int) []string {
	addrs := solanatest.Mints(prefix, n)
	for i, a := range addrs {
		register(client, FirstPage+i%2, goodToken(a))
	}
	return addrs
}

func newSelector(client marketdata.Client, tokens storage.TokenStore, history storage.SelectionRunStore, cfg FilterConfig) *Selector {
	return New(Options{
		Client:  client,
		Tokens:  tokens,
		History: history,
		Filter:  cfg,
	})
}

func activeSet(t *testing.T, store storage.TokenStore) map[string]bool {
	t.Helper()
	active, err := store.GetAllActive(context.Background())
	require.NoError(t, err)
	set := make(map[string]bool, len(active))
	for _, tok := range active {
		set[tok.Address] = true
	}
	return set
}

func TestSelector_FirstRunCreatesFloorTokens(t *testing.T) {
	client := stub.NewClient()
	addrs := twoPages(client, "first-run", 40)
	tokens := memory.NewTokenStore()
	history := memory.NewSelectionRunStore()

	report, err := newSelector(client, tokens, history, testConfig(25)).Select(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 40, report.Listings)
	assert.Equal(t, 40, report.CoarseSurvivors)
	assert.Equal(t, 40, report.FineSurvivors)
	assert.Len(t, report.Selected, 25)
	assert.Len(t, report.Result.Created, 25)

	active := activeSet(t, tokens)
	assert.Len(t, active, 25)

	// Page 1 holds even indexes; listings are concatenated page by page.
	tok, err := tokens.GetByAddress(context.Background(), addrs[0])
	require.NoError(t, err)
	assert.True(t, tok.IsActive)
	require.NotNil(t, tok.Volume24hUSD)
	assert.InDelta(t, 250_000.0, *tok.Volume24hUSD, 0.001)

	assert.Equal(t, 0, client.CallCount(stub.PageKey(0)))
	assert.Equal(t, 1, client.CallCount(stub.PageKey(1)))
	assert.Equal(t, 1, client.CallCount(stub.PageKey(2)))

	runs, err := history.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunStatusSucceeded, runs[0].Status)
	assert.Equal(t, 25, runs[0].Created)
	assert.Equal(t, 25, runs[0].Selected)
}

func TestSelector_RotationDeactivatesAndReactivates(t *testing.T) {
	ctx := context.Background()
	tokens := memory.NewTokenStore()

	x := solanatest.Mint("rotation-x")
	y := solanatest.Mint("rotation-y")
	common := solanatest.Mints("rotation-common", 24)

	require.NoError(t, tokens.Create(ctx, &domain.Token{Address: x, Symbol: "X", Name: "X", IsActive: true}))
	require.NoError(t, tokens.Create(ctx, &domain.Token{Address: y, Symbol: "Y", Name: "Y", IsActive: false}))
	for _, a := range common {
		require.NoError(t, tokens.Create(ctx, &domain.Token{Address: a, Symbol: "C", Name: "C", IsActive: true}))
	}

	client := stub.NewClient()
	register(client, 1, goodToken(y))
	for _, a := range common {
		register(client, 2, goodToken(a))
	}
	xFixture := goodToken(x)
	xFixture.trades = ptr(int64(10))
	register(client, 2, xFixture)

	report, err := newSelector(client, tokens, nil, testConfig(25)).Select(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{y}, report.Result.Activated)
	assert.Equal(t, []string{x}, report.Result.Deactivated)
	assert.Empty(t, report.Result.Created)

	active := activeSet(t, tokens)
	assert.True(t, active[y])
	assert.False(t, active[x])
	assert.Len(t, active, 25)

	xTok, err := tokens.GetByAddress(ctx, x)
	require.NoError(t, err, "deselected tokens are never deleted")
	assert.False(t, xTok.IsActive)
}

func TestSelector_InsufficientCandidatesLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	tokens := memory.NewTokenStore()
	previous := solanatest.Mints("previous", 3)
	for _, a := range previous {
		require.NoError(t, tokens.Create(ctx, &domain.Token{Address: a, Symbol: "P", Name: "P", IsActive: true}))
	}

	client := stub.NewClient()
	addrs := solanatest.Mints("scarce", 60)
	for i, a := range addrs {
		fx := goodToken(a)
		if i >= 20 {
			fx.liquidity = 1_000
		}
		register(client, FirstPage+i/30, fx)
	}
	history := memory.NewSelectionRunStore()

	_, err := newSelector(client, tokens, history, testConfig(25)).Select(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientCandidates)

	active := activeSet(t, tokens)
	assert.Len(t, active, 3)
	for _, a := range previous {
		assert.True(t, active[a])
	}
	for _, a := range addrs {
		_, err := tokens.GetByAddress(ctx, a)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
	for _, call := range client.Calls() {
		assert.NotContains(t, call, "overview:", "fine stage must not start")
	}

	runs, err := history.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunStatusFailed, runs[0].Status)
	assert.Equal(t, 60, runs[0].Listings)
	assert.Contains(t, runs[0].Error, "insufficient candidates")
}

func TestSelector_ExcludedNeverSelected(t *testing.T) {
	client := stub.NewClient()
	addrs := twoPages(client, "excluded", 30)
	excluded := addrs[:5]
	tokens := memory.NewTokenStore()

	_, err := newSelector(client, tokens, nil, testConfig(25, excluded...)).Select(context.Background())
	require.NoError(t, err)

	active := activeSet(t, tokens)
	assert.Len(t, active, 25)
	for _, a := range excluded {
		assert.False(t, active[a])
	}
}

func TestSelector_SecondRunIsNoop(t *testing.T) {
	client := stub.NewClient()
	twoPages(client, "noop", 25)
	tokens := memory.NewTokenStore()
	sel := newSelector(client, tokens, nil, testConfig(25))

	_, err := sel.Select(context.Background())
	require.NoError(t, err)

	report, err := sel.Select(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Result.Created)
	assert.Empty(t, report.Result.Activated)
	assert.Empty(t, report.Result.Deactivated)
	assert.Len(t, report.Result.Unchanged, 25)
}

func TestSelector_ListingFetchFailure(t *testing.T) {
	client := stub.NewClient()
	twoPages(client, "page-fail", 30)
	client.FailOn(stub.PageKey(2), &marketdata.FetchError{Endpoint: "tokenlist", Err: errors.New("connection reset")})
	tokens := memory.NewTokenStore()

	err := newSelector(client, tokens, nil, testConfig(25)).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, marketdata.ErrFetch)
	assert.Empty(t, activeSet(t, tokens))
}

func TestSelector_HistoryUsesSupervisorRun(t *testing.T) {
	client := stub.NewClient()
	twoPages(client, "history", 25)
	history := memory.NewSelectionRunStore()

	ctx := job.WithRun(context.Background(), "run-42", 2)
	require.NoError(t, newSelector(client, memory.NewTokenStore(), history, testConfig(25)).Run(ctx))

	runs, err := history.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-42", runs[0].RunID)
	assert.Equal(t, 2, runs[0].Attempt)
}

// failingHistory always rejects inserts.
type failingHistory struct{}

func (failingHistory) Insert(context.Context, *domain.SelectionRun) error {
	return errors.New("clickhouse unavailable")
}

func (failingHistory) Recent(context.Context, int) ([]*domain.SelectionRun, error) {
	return nil, nil
}

func TestSelector_HistoryFailureDoesNotFailRun(t *testing.T) {
	client := stub.NewClient()
	twoPages(client, "history-fail", 25)

	err := newSelector(client, memory.NewTokenStore(), failingHistory{}, testConfig(25)).Run(context.Background())
	assert.NoError(t, err)
}

func TestSelector_SupervisedRetryRecovers(t *testing.T) {
	client := stub.NewClient()
	twoPages(client, "supervised", 25)
	client.FailOn(stub.PageKey(1), &marketdata.FetchError{Endpoint: "tokenlist", StatusCode: 502})
	tokens := memory.NewTokenStore()
	sel := newSelector(client, tokens, nil, testConfig(25))

	attempts := 0
	sup := job.New("selection", func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			client.FailOn(stub.PageKey(1), nil)
		}
		return sel.Run(ctx)
	})

	out := sup.Execute(context.Background())
	assert.Equal(t, job.StateSucceeded, out.Status)
	assert.Equal(t, 2, out.Attempts)
	assert.Len(t, activeSet(t, tokens), 25)
}

func TestSelector_PersistenceErrorSurfaces(t *testing.T) {
	client := stub.NewClient()
	twoPages(client, "persist", 25)

	err := newSelector(client, brokenStore{memory.NewTokenStore()}, nil, testConfig(25)).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, reconcile.ErrPersistence)
}

type brokenStore struct{ *memory.TokenStore }

func (brokenStore) Create(context.Context, *domain.Token) error {
	return errors.New("disk full")
}

func TestSelector_InvalidListingAddressDoesNotBlockRotation(t *testing.T) {
	ctx := context.Background()
	tokens := memory.NewTokenStore()
	previous := solanatest.Mints("stale", 25)
	for _, a := range previous {
		require.NoError(t, tokens.Create(ctx, &domain.Token{Address: a, Symbol: "S", Name: "S", IsActive: true}))
	}

	client := stub.NewClient()
	register(client, FirstPage, goodToken("BadAddr1111111111111111111111111111"))
	fresh := twoPages(client, "fresh", 25)

	report, err := newSelector(client, tokens, nil, testConfig(25)).Select(ctx)
	require.NoError(t, err)

	assert.Equal(t, 26, report.Listings)
	assert.Equal(t, 25, report.CoarseSurvivors)
	assert.Len(t, report.Result.Created, 25)
	assert.Len(t, report.Result.Deactivated, 25)

	active := activeSet(t, tokens)
	assert.Len(t, active, 25)
	for _, a := range fresh {
		assert.True(t, active[a])
	}
	assert.Equal(t, 0, client.CallCount(stub.OverviewKey("BadAddr1111111111111111111111111111")))
}

func TestSelector_OverlappingPagesCountedOnce(t *testing.T) {
	client := stub.NewClient()
	addrs := solanatest.Mints("overlap", 26)
	// Offsets 1 and 2 overlap: page 2 repeats most of page 1 shifted by one.
	for _, a := range addrs[:25] {
		register(client, FirstPage, goodToken(a))
	}
	for _, a := range addrs[1:] {
		register(client, FirstPage+1, goodToken(a))
	}

	report, err := newSelector(client, memory.NewTokenStore(), nil, testConfig(25)).Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50, report.Listings)
	assert.Equal(t, 26, report.CoarseSurvivors)
	assert.Len(t, report.Selected, 25)
	assert.Equal(t, addrs[0], report.Selected[0].Address())
}
