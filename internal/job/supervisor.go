// Package job runs named units of work under bounded-retry supervision.
package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"solana-token-selector/internal/logging"
	"solana-token-selector/internal/observability"
)

// DefaultMaxAttempts is the number of whole-run attempts before a terminal failure.
const DefaultMaxAttempts = 3

// DefaultLockTTL bounds how long a distributed run lock is held.
const DefaultLockTTL = 15 * time.Minute

// State is the supervisor state.
type State string

const (
	StateIdle      State = "IDLE"
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
	StateSkipped   State = "SKIPPED"
)

// RunFunc is one attempt of a job.
type RunFunc func(ctx context.Context) error

// Outcome describes a finished Execute call.
type Outcome struct {
	Job        string
	RunID      string
	Status     State // SUCCEEDED, FAILED or SKIPPED
	Attempts   int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the wall time across all attempts.
func (o Outcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}

// Status is a point-in-time view of a supervisor.
type Status struct {
	Job   string
	State State
	Runs  int
	Last  *Outcome
}

// Supervisor retries a RunFunc as a whole and never lets a failure escape.
// At most one run is in flight per supervisor.
type Supervisor struct {
	name        string
	run         RunFunc
	maxAttempts int
	logger      *zap.Logger
	locker      Locker
	lockTTL     time.Duration
	now         func() time.Time

	mu    sync.Mutex
	state State
	runs  int
	last  *Outcome
}

// Option configures Supervisor.
type Option func(*Supervisor)

// WithMaxAttempts sets the attempt budget. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(s *Supervisor) {
		if n >= 1 {
			s.maxAttempts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logging.OrNop(l)
	}
}

// WithLocker guards each run with a distributed lock keyed by the job name.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(s *Supervisor) {
		s.locker = l
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// New creates a supervisor for the named job.
func New(name string, run RunFunc, opts ...Option) *Supervisor {
	s := &Supervisor{
		name:        name,
		run:         run,
		maxAttempts: DefaultMaxAttempts,
		logger:      zap.NewNop(),
		lockTTL:     DefaultLockTTL,
		now:         time.Now,
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("job", name))
	return s
}

// Name returns the job name.
func (s *Supervisor) Name() string {
	return s.name
}

// Status returns the current state and the last outcome.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Job: s.name, State: s.state, Runs: s.runs}
	if s.last != nil {
		last := *s.last
		st.Last = &last
	}
	return st
}

// Execute runs the job, retrying the whole run immediately on error until
// it succeeds or the attempt budget is spent. A terminal failure is logged
// and reported in the Outcome, never returned. Calls made while a run is in
// flight, or while another replica holds the lock, are skipped.
func (s *Supervisor) Execute(ctx context.Context) Outcome {
	if !s.begin() {
		s.logger.Warn("run already in flight, skipping")
		observability.RecordJobSkipped(s.name, "in_flight")
		return Outcome{Job: s.name, Status: StateSkipped, StartedAt: s.now(), FinishedAt: s.now()}
	}

	out := Outcome{Job: s.name, RunID: uuid.NewString(), StartedAt: s.now()}
	defer func() { s.finish(out) }()

	if err := ctx.Err(); err != nil {
		s.logger.Info("context done before first attempt, skipping", zap.Error(err))
		observability.RecordJobSkipped(s.name, "cancelled")
		out.Status = StateSkipped
		out.Err = err
		out.FinishedAt = s.now()
		return out
	}

	if s.locker != nil {
		unlock, err := s.locker.Acquire(ctx, "job:"+s.name, s.lockTTL)
		if err != nil {
			reason := "lock_error"
			if errors.Is(err, ErrLockHeld) {
				reason = "lock_held"
			}
			s.logger.Warn("could not acquire run lock, skipping", zap.String("reason", reason), zap.Error(err))
			observability.RecordJobSkipped(s.name, reason)
			out.Status = StateSkipped
			out.Err = err
			out.FinishedAt = s.now()
			return out
		}
		defer unlock()
	}

	logger := s.logger.With(zap.String("run_id", out.RunID))

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			out.Err = ctx.Err()
			break
		}

		out.Attempts = attempt
		err := s.run(WithRun(ctx, out.RunID, attempt))
		if err == nil {
			observability.RecordJobAttempt(s.name, "ok")
			out.Status = StateSucceeded
			out.Err = nil
			out.FinishedAt = s.now()
			logger.Info("run succeeded", zap.Int("attempt", attempt), zap.Duration("duration", out.Duration()))
			return out
		}

		observability.RecordJobAttempt(s.name, "error")
		out.Err = err
		logger.Warn("run attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxAttempts),
			zap.Error(err),
		)
	}

	out.Status = StateFailed
	out.FinishedAt = s.now()
	if ctx.Err() != nil {
		logger.Warn("run abandoned on shutdown",
			zap.Int("attempts", out.Attempts),
			zap.Error(out.Err),
		)
		return out
	}
	logger.Error("run failed permanently",
		zap.Int("attempts", out.Attempts),
		zap.Duration("duration", out.Duration()),
		zap.Error(out.Err),
	)
	return out
}

func (s *Supervisor) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return false
	}
	s.state = StateRunning
	return true
}

func (s *Supervisor) finish(out Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateIdle
	if out.Status == StateSkipped {
		return
	}
	s.runs++
	s.last = &out
	observability.RecordJobRun(s.name, statusLabel(out.Status), out.Duration().Seconds())
}

func statusLabel(st State) string {
	switch st {
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "skipped"
	}
}
