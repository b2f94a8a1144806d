package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"solana-token-selector/internal/domain"
	"solana-token-selector/internal/storage"
)

// SelectionRunStore implements storage.SelectionRunStore using ClickHouse.
type SelectionRunStore struct {
	conn *Conn
}

// NewSelectionRunStore creates a new SelectionRunStore.
func NewSelectionRunStore(conn *Conn) *SelectionRunStore {
	return &SelectionRunStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SelectionRunStore = (*SelectionRunStore)(nil)

// Insert adds a run record. Returns ErrDuplicateKey if (run_id, attempt) exists.
func (s *SelectionRunStore) Insert(ctx context.Context, r *domain.SelectionRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	// MergeTree does not enforce uniqueness, check explicitly.
	exists, err := s.exists(ctx, r.RunID, r.Attempt)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO selection_runs (
			run_id, attempt, started_at, finished_at, status,
			listings, coarse_survivors, fine_survivors, selected,
			created, activated, deactivated, unchanged, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = s.conn.Exec(ctx, query,
		r.RunID, uint16(r.Attempt), uint64(r.StartedAt), uint64(r.FinishedAt), string(r.Status),
		uint32(r.Listings), uint32(r.CoarseSurvivors), uint32(r.FineSurvivors), uint32(r.Selected),
		uint32(r.Created), uint32(r.Activated), uint32(r.Deactivated), uint32(r.Unchanged), r.Error,
	)
	if err != nil {
		return fmt.Errorf("insert selection run: %w", err)
	}
	return nil
}

// Recent returns up to limit most recent runs, newest first.
func (s *SelectionRunStore) Recent(ctx context.Context, limit int) ([]*domain.SelectionRun, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT
			run_id, attempt, started_at, finished_at, status,
			listings, coarse_survivors, fine_survivors, selected,
			created, activated, deactivated, unchanged, error
		FROM selection_runs
		ORDER BY started_at DESC, run_id DESC, attempt DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	return scanSelectionRuns(rows)
}

func (s *SelectionRunStore) exists(ctx context.Context, runID string, attempt int) (bool, error) {
	query := `SELECT count(*) FROM selection_runs WHERE run_id = ? AND attempt = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, runID, uint16(attempt)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanSelectionRuns(rows driver.Rows) ([]*domain.SelectionRun, error) {
	var result []*domain.SelectionRun
	for rows.Next() {
		var (
			r                                          domain.SelectionRun
			attempt                                    uint16
			startedAt, finishedAt                      uint64
			status                                     string
			listings, coarse, fine, selected           uint32
			created, activated, deactivated, unchanged uint32
		)
		err := rows.Scan(
			&r.RunID, &attempt, &startedAt, &finishedAt, &status,
			&listings, &coarse, &fine, &selected,
			&created, &activated, &deactivated, &unchanged, &r.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("scan selection run: %w", err)
		}

		r.Attempt = int(attempt)
		r.StartedAt = int64(startedAt)
		r.FinishedAt = int64(finishedAt)
		r.Status = domain.RunStatus(status)
		r.Listings = int(listings)
		r.CoarseSurvivors = int(coarse)
		r.FineSurvivors = int(fine)
		r.Selected = int(selected)
		r.Created = int(created)
		r.Activated = int(activated)
		r.Deactivated = int(deactivated)
		r.Unchanged = int(unchanged)
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selection runs: %w", err)
	}
	return result, nil
}
