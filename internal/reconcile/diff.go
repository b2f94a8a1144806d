// Package reconcile turns a fresh selection into the minimal set of
// activate, create and deactivate writes against the token store.
package reconcile

import (
	"sort"

	"solana-token-selector/internal/domain"
)

// Plan is the pure set difference between a selection and the active set.
type Plan struct {
	Enter []domain.Candidate // selected but not active, in selection order
	Keep  []string           // selected and already active
	Leave []string           // active but not selected, sorted
}

// Diff computes the plan. Duplicate candidates are counted once.
func Diff(selected []domain.Candidate, active []string) Plan {
	activeSet := make(map[string]struct{}, len(active))
	for _, addr := range active {
		activeSet[addr] = struct{}{}
	}

	var plan Plan
	selectedSet := make(map[string]struct{}, len(selected))
	for _, c := range selected {
		addr := c.Address()
		if _, dup := selectedSet[addr]; dup {
			continue
		}
		selectedSet[addr] = struct{}{}

		if _, ok := activeSet[addr]; ok {
			plan.Keep = append(plan.Keep, addr)
		} else {
			plan.Enter = append(plan.Enter, c)
		}
	}

	for addr := range activeSet {
		if _, ok := selectedSet[addr]; !ok {
			plan.Leave = append(plan.Leave, addr)
		}
	}
	sort.Strings(plan.Leave)

	return plan
}

// IsNoop reports whether applying the plan would write nothing.
func (p Plan) IsNoop() bool {
	return len(p.Enter) == 0 && len(p.Leave) == 0
}
