package domain

// RunStatus is the outcome of one selection attempt.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
)

// SelectionRun records one selection attempt.
// Corresponds to selection_runs table in ClickHouse.
type SelectionRun struct {
	RunID           string    // uuid
	Attempt         int       // 1-based attempt number within a supervised run
	StartedAt       int64     // ms
	FinishedAt      int64     // ms
	Status          RunStatus // SUCCEEDED | FAILED
	Listings        int       // raw listings fetched across all pages
	CoarseSurvivors int       // survivors after market-cap/liquidity/exclusion filter
	FineSurvivors   int       // survivors after trade-count/security filter, before truncation
	Selected        int       // size of the final selection
	Created         int       // rows created
	Activated       int       // existing rows flipped to active
	Deactivated     int       // rows flipped to inactive
	Unchanged       int       // selected rows already active
	Error           string    // failure reason, empty on success
}
