// Package main runs the token selector service:
// - Selection (scheduled): listings → coarse filter → fine filter → reconcile
// - Refresh (scheduled): financial snapshot of every persisted token
// - HTTP: /health, /metrics, /status, /trigger
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-token-selector/internal/config"
	"solana-token-selector/internal/job"
	redislock "solana-token-selector/internal/lock/redis"
	"solana-token-selector/internal/logging"
	"solana-token-selector/internal/marketdata"
	"solana-token-selector/internal/refresh"
	"solana-token-selector/internal/selection"
	"solana-token-selector/internal/storage"
	chstore "solana-token-selector/internal/storage/clickhouse"
	"solana-token-selector/internal/storage/memory"
	"solana-token-selector/internal/storage/migrations"
	pgstore "solana-token-selector/internal/storage/postgres"
)

const (
	jobSelection = "selection"
	jobRefresh   = "refresh"

	shutdownTimeout = 30 * time.Second
)

// stores holds the storage implementations used by the jobs.
type stores struct {
	tokens  storage.TokenStore
	history storage.SelectionRunStore // nil when history is disabled
	checks  map[string]healthCheck
}

func main() {
	configPath := flag.String("config", os.Getenv("SELECTOR_CONFIG"), "Path to TOML config file")
	once := flag.Bool("once", false, "Run the selection job once and exit")
	migrateOnly := flag.Bool("migrate", false, "Apply database migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config:\n%v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger, *once, *migrateOnly); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("selector exited", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *zap.Logger, once, migrateOnly bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	done := make(chan struct{})
	defer close(done)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, initiating graceful shutdown", zap.Stringer("signal", sig))
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing immediate shutdown", zap.Stringer("signal", sig))
			os.Exit(1)
		case <-time.After(shutdownTimeout):
			logger.Error("graceful shutdown timed out, forcing exit", zap.Duration("timeout", shutdownTimeout))
			os.Exit(1)
		case <-done:
		}
	}()

	if migrateOnly {
		return migrate(ctx, cfg, logger)
	}

	st, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	client := marketdata.NewHTTPClient(cfg.MarketData.APIKey,
		marketdata.WithBaseURL(cfg.MarketData.BaseURL),
		marketdata.WithChain(cfg.MarketData.Chain),
		marketdata.WithPageSize(cfg.MarketData.PageSize),
		marketdata.WithTimeout(cfg.MarketData.Timeout.Duration),
		marketdata.WithLogger(logger),
	)

	supOpts := []job.Option{
		job.WithMaxAttempts(cfg.Job.MaxAttempts),
		job.WithLogger(logger),
	}
	if cfg.Redis.Addr != "" {
		rc, err := redislock.New(ctx, redislock.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rc.Close()
		st.checks["redis"] = rc.Ping
		supOpts = append(supOpts, job.WithLocker(redislock.NewLocker(rc, cfg.Redis.KeyPrefix), cfg.Job.LockTTL.Duration))
		logger.Info("distributed run lock enabled", zap.String("redis_addr", cfg.Redis.Addr))
	}

	selector := selection.New(selection.Options{
		Client:  client,
		Tokens:  st.tokens,
		History: st.history,
		Filter:  filterConfig(cfg.Selection),
		Pages:   cfg.Selection.Pages,
		Logger:  logger,
	})
	selectionJob := job.New(jobSelection, selector.Run, supOpts...)

	if once {
		out := selectionJob.Execute(ctx)
		if out.Status != job.StateSucceeded {
			return fmt.Errorf("selection %s after %d attempts: %w", out.Status, out.Attempts, out.Err)
		}
		return nil
	}

	jobs := []*job.Supervisor{selectionJob}
	var refreshJob *job.Supervisor
	if cfg.Refresh.Enabled {
		updater := refresh.NewUpdater(st.tokens, client, logger)
		refreshJob = job.New(jobRefresh, updater.Run, supOpts...)
		jobs = append(jobs, refreshJob)
	}

	srv := newServer(cfg.Server.Addr, jobs, st.history, st.checks, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return job.Every(gctx, selectionJob, cfg.Selection.Interval.Duration, cfg.Selection.RunAtStart)
	})
	if refreshJob != nil {
		g.Go(func() error {
			return job.Every(gctx, refreshJob, cfg.Refresh.Interval.Duration, cfg.Refresh.RunAtStart)
		})
	}
	g.Go(func() error {
		return srv.run(gctx)
	})

	return g.Wait()
}

func filterConfig(s config.SelectionConfig) selection.FilterConfig {
	return selection.FilterConfig{
		MinMarketCap: s.MinMarketCap,
		MinLiquidity: s.MinLiquidity,
		MinTrades24h: s.MinTrades24h,
		Floor:        s.Floor,
		Excluded:     selection.ExcludedSet(s.Excluded),
	}
}

// createStores creates the token store and the optional run history store.
func createStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, func(), error) {
	if cfg.Storage.UseMemory {
		logger.Info("using in-memory storage")
		return &stores{
			tokens:  memory.NewTokenStore(),
			history: memory.NewSelectionRunStore(),
			checks:  map[string]healthCheck{},
		}, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if cfg.Storage.RunMigrations {
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		logger.Info("postgres migrations applied", zap.Strings("files", applied))
	}

	st := &stores{
		tokens: pgstore.NewTokenStore(pool),
		checks: map[string]healthCheck{"postgres": pool.Ping},
	}
	cleanup := func() { pool.Close() }

	// ClickHouse (optional run history)
	if cfg.Storage.ClickhouseDSN == "" {
		return st, cleanup, nil
	}
	var chConn *chstore.Conn
	if cfg.Storage.RunMigrations {
		chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	} else {
		chConn, err = chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	st.history = chstore.NewSelectionRunStore(chConn)
	st.checks["clickhouse"] = chConn.Ping

	return st, func() {
		_ = chConn.Close()
		pool.Close()
	}, nil
}

// migrate applies all migrations and returns.
func migrate(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Storage.UseMemory {
		return errors.New("-migrate requires postgres storage")
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}
	logger.Info("postgres migrations applied", zap.Strings("files", applied))

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		_ = conn.Close()
		logger.Info("clickhouse migrations applied")
	}
	return nil
}
