package engine

import "fmt"

// ContradictionError reports an empty domain, a negative/over-committed
// ValueTracker counter, or a global solver state that can never reach R
// (spec §7). It is fatal for the event that produced it: the
// orchestrator does not roll back, leaving the failing state available
// for inspection, and the caller decides whether to abort or replay
// from the EventLog up to the last good event.
type ContradictionError struct {
	EventID  string
	Player   int
	Position int
	// HasSlot indicates Player/Position identify the slot that went
	// empty. Some contradictions (e.g. tracker invariant violations,
	// global infeasibility) aren't about one slot, so HasSlot is false
	// and Reason alone describes the failure.
	HasSlot bool
	Reason  string
}

func (e *ContradictionError) Error() string {
	if e.HasSlot {
		return fmt.Sprintf("contradiction at event %s, player %d position %d: %s", e.EventID, e.Player, e.Position, e.Reason)
	}
	if e.EventID != "" {
		return fmt.Sprintf("contradiction at event %s: %s", e.EventID, e.Reason)
	}
	return fmt.Sprintf("contradiction: %s", e.Reason)
}

// InvalidEventError reports an event that is rejected before any belief
// mutation: an unknown player/position, or (in ModeSimulation) a policy
// violation such as a caller claiming a value they don't hold.
type InvalidEventError struct {
	Reason string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid event: %s", e.Reason)
}

// BudgetExceeded reports that the GlobalSolver exceeded its configured
// wall-clock or state-space budget. It is a warning, not fatal: the
// orchestrator proceeds with whatever local-filter-only result it has.
type BudgetExceeded struct {
	BudgetMS int
}

func (e *BudgetExceeded) Error() string {
	return fmt.Sprintf("global solver exceeded budget of %dms", e.BudgetMS)
}
