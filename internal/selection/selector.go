package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"solana-token-selector/internal/domain"
	"solana-token-selector/internal/job"
	"solana-token-selector/internal/logging"
	"solana-token-selector/internal/marketdata"
	"solana-token-selector/internal/observability"
	"solana-token-selector/internal/reconcile"
	"solana-token-selector/internal/storage"
)

// DefaultPages is the number of listing pages fetched per run.
const DefaultPages = 2

// FirstPage is the index of the first listing page requested. The provider
// receives the index as its offset, so pages 1 and 2 overlap heavily and the
// coarse filter dedups them.
const FirstPage = 1

// Options configures Selector.
type Options struct {
	Client  marketdata.Client
	Tokens  storage.TokenStore
	History storage.SelectionRunStore // optional
	Filter  FilterConfig
	Pages   int
	Logger  *zap.Logger
}

// Selector runs one selection: fetch, filter, reconcile.
type Selector struct {
	client  marketdata.Client
	engine  *reconcile.Engine
	history storage.SelectionRunStore
	filter  FilterConfig
	pages   int
	logger  *zap.Logger
	now     func() time.Time
}

// Report summarizes a successful run.
type Report struct {
	Listings        int
	CoarseSurvivors int
	FineSurvivors   int
	Selected        []domain.Candidate
	Result          *reconcile.Result
}

// New creates a new Selector.
func New(opts Options) *Selector {
	pages := opts.Pages
	if pages <= 0 {
		pages = DefaultPages
	}
	logger := logging.OrNop(opts.Logger)

	return &Selector{
		client:  opts.Client,
		engine:  reconcile.NewEngine(opts.Tokens, logger),
		history: opts.History,
		filter:  opts.Filter,
		pages:   pages,
		logger:  logger,
		now:     time.Now,
	}
}

// Run performs one selection attempt. Stages run strictly in order and any
// error aborts the attempt; retrying is the caller's concern.
func (s *Selector) Run(ctx context.Context) error {
	_, err := s.Select(ctx)
	return err
}

// Select is Run that also returns the run report.
func (s *Selector) Select(ctx context.Context) (*Report, error) {
	run := &domain.SelectionRun{
		RunID:     job.RunIDFromContext(ctx),
		Attempt:   job.AttemptFromContext(ctx),
		StartedAt: s.now().UnixMilli(),
	}
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	logger := s.logger.With(zap.String("run_id", run.RunID), zap.Int("attempt", run.Attempt))

	report, err := s.selectOnce(ctx, logger)
	if report != nil {
		run.Listings = report.Listings
		run.CoarseSurvivors = report.CoarseSurvivors
		run.FineSurvivors = report.FineSurvivors
		run.Selected = len(report.Selected)
		if r := report.Result; r != nil {
			run.Created = len(r.Created)
			run.Activated = len(r.Activated)
			run.Deactivated = len(r.Deactivated)
			run.Unchanged = len(r.Unchanged)
		}
	}
	run.FinishedAt = s.now().UnixMilli()
	run.Status = domain.RunStatusSucceeded
	if err != nil {
		run.Status = domain.RunStatusFailed
		run.Error = err.Error()
	}
	s.recordHistory(ctx, logger, run)

	if err != nil {
		return nil, err
	}

	logger.Info("selection completed",
		zap.Int("listings", run.Listings),
		zap.Int("coarse_survivors", run.CoarseSurvivors),
		zap.Int("fine_survivors", run.FineSurvivors),
		zap.Int("created", run.Created),
		zap.Int("activated", run.Activated),
		zap.Int("deactivated", run.Deactivated),
		zap.Int("unchanged", run.Unchanged),
	)
	return report, nil
}

// selectOnce returns a partial report alongside any error.
func (s *Selector) selectOnce(ctx context.Context, logger *zap.Logger) (*Report, error) {
	report := &Report{}

	// Phase 1: listings
	var listings []domain.TokenListing
	for page := FirstPage; page < FirstPage+s.pages; page++ {
		items, err := s.client.FetchListingsPage(ctx, page)
		if err != nil {
			return report, fmt.Errorf("fetch listings page %d: %w", page, err)
		}
		listings = append(listings, items...)
	}
	report.Listings = len(listings)

	// Phase 2: coarse filter
	coarse, err := CoarseFilter(listings, s.filter, logger)
	if err != nil {
		return report, err
	}
	report.CoarseSurvivors = len(coarse)
	observability.RecordStageSurvivors(string(StageCoarse), len(coarse))
	logger.Debug("coarse filter done", zap.Int("listings", len(listings)), zap.Int("survivors", len(coarse)))

	// Phase 3: fine filter
	selected, fineCount, err := FineFilter(ctx, s.client, coarse, s.filter, logger)
	report.FineSurvivors = fineCount
	if err != nil {
		return report, err
	}
	report.Selected = selected
	observability.RecordStageSurvivors(string(StageFine), fineCount)

	// Phase 4: reconcile
	result, err := s.engine.Reconcile(ctx, selected)
	report.Result = result
	if err != nil {
		return report, fmt.Errorf("reconcile: %w", err)
	}
	observability.RecordReconcile(len(result.Created), len(result.Activated), len(result.Deactivated), result.ActiveCount())

	return report, nil
}

func (s *Selector) recordHistory(ctx context.Context, logger *zap.Logger, run *domain.SelectionRun) {
	if s.history == nil {
		return
	}
	// History is best effort and must not fail the run.
	if err := s.history.Insert(ctx, run); err != nil {
		logger.Warn("failed to record selection run", zap.Error(err))
	}
}
