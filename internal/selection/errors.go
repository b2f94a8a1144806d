package selection

import (
	"errors"
	"fmt"
)

// Stage names a filter stage.
type Stage string

const (
	StageCoarse Stage = "coarse" // market cap, liquidity, exclusion list
	StageFine   Stage = "fine"   // trade count, security authorities
)

// ErrInsufficientCandidates matches every *InsufficientCandidatesError.
var ErrInsufficientCandidates = errors.New("insufficient candidates")

// InsufficientCandidatesError reports a stage that left fewer survivors than the floor.
type InsufficientCandidatesError struct {
	Stage Stage
	Got   int
	Want  int
}

func (e *InsufficientCandidatesError) Error() string {
	return fmt.Sprintf("%s filter: insufficient candidates: got %d, want at least %d", e.Stage, e.Got, e.Want)
}

// Is matches ErrInsufficientCandidates.
func (e *InsufficientCandidatesError) Is(target error) bool {
	return target == ErrInsufficientCandidates
}
