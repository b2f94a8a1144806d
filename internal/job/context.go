package job

import "context"

type ctxKey int

const (
	runIDKey ctxKey = iota
	attemptKey
)

// WithRun attaches the supervised run ID and the 1-based attempt number to ctx.
func WithRun(ctx context.Context, runID string, attempt int) context.Context {
	ctx = context.WithValue(ctx, runIDKey, runID)
	return context.WithValue(ctx, attemptKey, attempt)
}

// RunIDFromContext returns the run ID set by the supervisor, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// AttemptFromContext returns the attempt number set by the supervisor, or 1.
func AttemptFromContext(ctx context.Context) int {
	if n, ok := ctx.Value(attemptKey).(int); ok {
		return n
	}
	return 1
}
