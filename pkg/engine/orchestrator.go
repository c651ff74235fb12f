package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/bombbuster/engine/internal/workerpool"
)

// sigCacheEntry pairs a player's SignatureSet with the fingerprint it was
// computed against, so a later lookup can tell whether anything the
// generator depends on has changed since (spec §4.6: "invalidate on any
// event affecting player p").
type sigCacheEntry struct {
	fingerprint string
	set         *SignatureSet
}

// Orchestrator is the single owner of BeliefStore, ValueTracker, and
// EventLog (spec §5: "owned exclusively by the Orchestrator; never
// mutated from workers"). It applies one Event at a time through the
// fixed pipeline spec §4.6 describes: mutate, local-filter fixed point,
// optional global solve, local-filter fixed point again.
type Orchestrator struct {
	cfg    *Config
	bs     *BeliefStore
	vt     *ValueTracker
	log    *EventLog
	pool   *workerpool.Pool
	solver *GlobalSolver
	logger zerolog.Logger

	sigCache map[int]*sigCacheEntry
	strikes  int
}

// NewOrchestrator wires together a fresh BeliefStore/ValueTracker/EventLog
// for cfg, plus the worker pool and global solver. ownHands may be nil.
func NewOrchestrator(cfg *Config, ownHands [][]Value) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		bs:       NewBeliefStore(cfg, ownHands),
		vt:       NewValueTracker(cfg),
		log:      NewEventLog(),
		pool:     workerpool.New(cfg.N),
		solver:   NewGlobalSolver(cfg),
		logger:   zerolog.New(os.Stderr).With().Timestamp().Str("component", "orchestrator").Logger(),
		sigCache: make(map[int]*sigCacheEntry),
	}
}

// Beliefs returns the live BeliefStore for queries (spec §6.3).
func (o *Orchestrator) Beliefs() *BeliefStore { return o.bs }

// Tracker returns the live ValueTracker for queries.
func (o *Orchestrator) Tracker() *ValueTracker { return o.vt }

// Log returns the underlying EventLog.
func (o *Orchestrator) Log() *EventLog { return o.log }

// IsLost reports whether accumulated strikes reached the configured
// threshold (spec §6.3 is_lost).
func (o *Orchestrator) IsLost() bool { return o.strikes >= o.cfg.LMax }

// Strikes returns the current strike count.
func (o *Orchestrator) Strikes() int { return o.strikes }

// Apply runs the full event pipeline for ev (spec §4.6):
//  1. mutate BeliefStore/ValueTracker per event semantics
//  2. run local filters to a fixed point
//  3. if enabled, run the GlobalSolver, which regenerates every player's
//     signatures (the SignaturesFor cache is not consulted), and intersect
//     projected domains
//  4. re-run local filters to a fixed point
//  5. surface a contradiction if any domain is left empty
//
// On success the event is appended to the log. On contradiction the event
// is still appended — the orchestrator does not roll back (spec §4.6,
// §7) — so the caller can inspect or truncate the log before retrying.
func (o *Orchestrator) Apply(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = NewEventID()
	}
	if err := o.validate(ev); err != nil {
		o.logger.Warn().Str("id", ev.ID).Str("kind", string(ev.Kind)).Err(err).Msg("rejected invalid event")
		return err
	}

	affected := o.mutateForEvent(ev)
	if err := o.applyMutation(ev); err != nil {
		o.logger.Error().Str("id", ev.ID).Str("kind", string(ev.Kind)).Err(err).Msg("contradiction during mutation")
		o.log.Append(ev)
		return err
	}
	o.invalidateCache(affected)

	if err := RunLocalFiltersToFixedPoint(ctx, o.pool, o.cfg, o.bs, o.vt); err != nil {
		o.log.Append(ev)
		return err
	}

	if o.cfg.GlobalSolverEnabled {
		result, err := o.solver.Solve(ctx, o.bs, o.vt)
		if err != nil {
			var contra *ContradictionError
			if asContradiction(err, &contra) {
				o.logger.Error().Str("id", ev.ID).Err(err).Msg("global solver contradiction")
			}
			o.log.Append(ev)
			return err
		}
		if result.TimedOut {
			budgetErr := &BudgetExceeded{BudgetMS: o.cfg.GlobalSolverBudgetMS}
			o.logger.Warn().Str("id", ev.ID).Err(budgetErr).Msg("global solver budget exceeded, proceeding local-only")
		} else if err := o.projectGlobalResult(result); err != nil {
			o.log.Append(ev)
			return err
		}

		if err := RunLocalFiltersToFixedPoint(ctx, o.pool, o.cfg, o.bs, o.vt); err != nil {
			o.log.Append(ev)
			return err
		}
	}

	if err := CheckNoEmptyDomains(ev.ID, o.cfg, o.bs); err != nil {
		o.log.Append(ev)
		return err
	}

	o.log.Append(ev)
	o.logger.Debug().Str("id", ev.ID).Str("kind", string(ev.Kind)).Msg("event applied")
	return nil
}

func asContradiction(err error, out **ContradictionError) bool {
	c, ok := err.(*ContradictionError)
	if ok {
		*out = c
	}
	return ok
}

// projectGlobalResult intersects the global solver's per-position value
// sets into BeliefStore (spec §4.5 "Domain projection").
func (o *Orchestrator) projectGlobalResult(result *GlobalSolverResult) error {
	for p := 0; p < o.cfg.N; p++ {
		if !result.Completed[p] {
			continue
		}
		for j := 0; j < o.cfg.L; j++ {
			cur := o.bs.GetDomain(p, j)
			next := cur.Intersect(result.ValidHands[p][j])
			o.bs.SetDomain(p, j, next)
			if next.Count() == 0 {
				return &ContradictionError{Player: p, Position: j, HasSlot: true, Reason: "global projection emptied domain"}
			}
		}
	}
	return nil
}

// SignaturesFor returns player p's cached SignatureSet, regenerating it
// if the player's fingerprint has changed since the last call (spec
// §4.6 signature cache).
func (o *Orchestrator) SignaturesFor(p int) (*SignatureSet, error) {
	fp := o.fingerprint(p)
	if entry, ok := o.sigCache[p]; ok && entry.fingerprint == fp {
		return entry.set, nil
	}
	set, err := GenerateSignatures(o.cfg, o.bs, o.vt, p)
	if err != nil {
		return nil, err
	}
	o.sigCache[p] = &sigCacheEntry{fingerprint: fp, set: set}
	return set, nil
}

func (o *Orchestrator) invalidateCache(players []int) {
	for _, p := range players {
		delete(o.sigCache, p)
	}
}

// fingerprint builds the cache key spec §4.6 specifies: player id (the
// map key itself), frozen domain signature, copy-count signals,
// adjacency signals, absent values, and called values.
func (o *Orchestrator) fingerprint(p int) string {
	s := ""
	for j := 0; j < o.cfg.L; j++ {
		s += o.bs.GetDomain(p, j).String() + "|"
	}
	for _, sig := range o.bs.CopyCountSignals(p) {
		s += fmt.Sprintf("cc%d:%d;", sig.Position, sig.Class)
	}
	for _, sig := range o.bs.AdjacencySignals(p) {
		s += fmt.Sprintf("adj%d:%d;", sig.Position, sig.Relation)
	}
	for _, v := range o.bs.AbsentValues(p) {
		s += fmt.Sprintf("abs%v;", v)
	}
	for _, v := range o.bs.CalledValues(p) {
		s += fmt.Sprintf("cal%v:%d;", v, o.bs.CalledFloating(p, v))
	}
	return s
}

// validate rejects events referencing unknown players/positions, or (in
// ModeSimulation) violating a truthfulness policy against ownHands
// (spec §7 InvalidEventError).
func (o *Orchestrator) validate(ev Event) error {
	inPlayer := func(p int) bool { return p >= 0 && p < o.cfg.N }
	inPos := func(j int) bool { return j >= 0 && j < o.cfg.L }

	switch ev.Kind {
	case EventCall:
		if !inPlayer(ev.Caller) || !inPlayer(ev.Target) || !inPos(ev.Position) {
			return &InvalidEventError{Reason: "call references unknown player or position"}
		}
		if ev.CallerPosition != -1 && !inPos(ev.CallerPosition) {
			return &InvalidEventError{Reason: "call references unknown caller position"}
		}
		if o.cfg.Mode == ModeSimulation {
			if hand := o.bs.OwnHand(ev.Target); hand != nil {
				holds := ev.Position < len(hand) && hand[ev.Position] == ev.Value
				if holds != ev.Success {
					return &InvalidEventError{Reason: "call outcome inconsistent with target's known hand"}
				}
			}
			if ev.Success {
				if hand := o.bs.OwnHand(ev.Caller); hand != nil && ev.CallerPosition >= 0 {
					if ev.CallerPosition >= len(hand) || hand[ev.CallerPosition] != ev.Value {
						return &InvalidEventError{Reason: "caller does not hold the value they called"}
					}
				}
			}
		}
	case EventDoubleReveal:
		if !inPlayer(ev.Player) || !inPos(ev.Pos1) || !inPos(ev.Pos2) {
			return &InvalidEventError{Reason: "double reveal references unknown player or position"}
		}
	case EventSwap:
		if !inPlayer(ev.P1) || !inPlayer(ev.P2) ||
			!inPos(ev.InitPos1) || !inPos(ev.InitPos2) || !inPos(ev.FinalPos1) || !inPos(ev.FinalPos2) {
			return &InvalidEventError{Reason: "swap references unknown player or position"}
		}
	case EventSignalCertain:
		if !inPlayer(ev.Player) || !inPos(ev.Pos1) {
			return &InvalidEventError{Reason: "signal-certain references unknown player or position"}
		}
	case EventSignalAbsent:
		if !inPlayer(ev.Player) {
			return &InvalidEventError{Reason: "signal-absent references unknown player"}
		}
	case EventSignalCopyCount:
		if !inPlayer(ev.Player) || !inPos(ev.Pos1) || ev.Class < 1 || ev.Class > 3 {
			return &InvalidEventError{Reason: "signal-copy-count references unknown player, position, or class"}
		}
	case EventSignalAdjacency:
		if !inPlayer(ev.Player) || !inPos(ev.Pos1) || ev.Pos1 >= o.cfg.L-1 {
			return &InvalidEventError{Reason: "signal-adjacency references unknown player or non-adjacent position"}
		}
	default:
		return &InvalidEventError{Reason: fmt.Sprintf("unknown event kind %q", ev.Kind)}
	}
	return nil
}

// mutateForEvent returns the players whose signature cache entries ev
// could affect, so Apply can invalidate precisely rather than clearing
// the whole cache on every event.
func (o *Orchestrator) mutateForEvent(ev Event) []int {
	switch ev.Kind {
	case EventCall:
		return []int{ev.Caller, ev.Target}
	case EventDoubleReveal, EventSignalCertain, EventSignalAbsent, EventSignalCopyCount, EventSignalAdjacency:
		return []int{ev.Player}
	case EventSwap:
		return []int{ev.P1, ev.P2}
	default:
		return nil
	}
}

// applyMutation performs step 1 of the pipeline: updating BeliefStore and
// ValueTracker per the event's semantics (spec §6.2).
func (o *Orchestrator) applyMutation(ev Event) error {
	switch ev.Kind {
	case EventCall:
		return o.mutateCall(ev)
	case EventDoubleReveal:
		if err := o.revealSlot(ev.Player, ev.Pos1, ev.Value); err != nil {
			return err
		}
		return o.revealSlot(ev.Player, ev.Pos2, ev.Value)
	case EventSwap:
		return o.mutateSwap(ev)
	case EventSignalCertain:
		return o.revealSlot(ev.Player, ev.Pos1, ev.Value)
	case EventSignalAbsent:
		o.mutateSignalAbsent(ev.Player, ev.Value)
		return nil
	case EventSignalCopyCount:
		return o.mutateSignalCopyCount(ev.Player, ev.Pos1, ev.Class)
	case EventSignalAdjacency:
		o.bs.RecordAdjacencySignal(ev.Player, ev.Pos1, ev.Relation)
		return nil
	default:
		return &InvalidEventError{Reason: fmt.Sprintf("unknown event kind %q", ev.Kind)}
	}
}

// mutateCall implements the Call event's belief effect (spec §6.2,
// §4.2): on success, two reveals; on failure, remove Value from the
// target slot and register a floating call for the caller.
func (o *Orchestrator) mutateCall(ev Event) error {
	if ev.Success {
		if err := o.revealSlot(ev.Target, ev.Position, ev.Value); err != nil {
			return err
		}
		if ev.CallerPosition >= 0 {
			if err := o.revealSlot(ev.Caller, ev.CallerPosition, ev.Value); err != nil {
				return err
			}
		}
		o.bs.RecordCall(CallRecord{Caller: ev.Caller, Target: ev.Target, Position: ev.Position, Value: ev.Value, Success: true})
		return nil
	}
	cur := o.bs.GetDomain(ev.Target, ev.Position)
	if cur.Has(ev.Value) && !cur.IsSingleton() {
		nd := cur.Remove(ev.Value)
		o.bs.SetDomain(ev.Target, ev.Position, nd)
	}
	alreadyPossessed := o.bs.CertainOrRevealedCount(ev.Caller, ev.Value) > 0
	if err := o.vt.FailCall(ev.Value, alreadyPossessed); err != nil {
		return err
	}
	if !alreadyPossessed {
		o.bs.AdjustCalledFloating(ev.Caller, ev.Value, 1)
	}
	o.bs.RecordCall(CallRecord{Caller: ev.Caller, Target: ev.Target, Position: ev.Position, Value: ev.Value, Success: false})
	o.strikes++
	return nil
}

// mutateSwap implements the Swap event's belief effect (spec §6.2: "swap
// domain contents; re-sort per player; recipients' positions become
// singletons for the value they received; observers swap the two old
// domains and apply filters"). Each player's hand is re-sorted first —
// shifting whichever slots lie between the vacated and the landing
// position by one, the same displacement a sorted-array insert/delete
// produces — so no stale domain is left describing a wire that moved
// (spec §8 property 2, soundness); only then does the landing position
// collapse to the value the swap revealed.
func (o *Orchestrator) mutateSwap(ev Event) error {
	o.shiftAfterSwap(ev.P1, ev.InitPos1, ev.FinalPos1)
	o.shiftAfterSwap(ev.P2, ev.InitPos2, ev.FinalPos2)
	if err := o.revealSlot(ev.P1, ev.FinalPos1, ev.Value2); err != nil {
		return err
	}
	return o.revealSlot(ev.P2, ev.FinalPos2, ev.Value1)
}

// shiftAfterSwap re-sorts player p's hand after the wire at initPos
// departs and its replacement lands at finalPos: every slot strictly
// between the two indices shifts by one to close the gap left behind,
// carrying its domain and revealed/certain flags with it. The vacated
// index at finalPos is left for the immediately following revealSlot
// call to collapse; if initPos == finalPos there is nothing to shift.
func (o *Orchestrator) shiftAfterSwap(p, initPos, finalPos int) {
	if finalPos > initPos {
		for j := initPos; j < finalPos; j++ {
			o.bs.ShiftSlot(p, j+1, j)
		}
	} else {
		for j := initPos; j > finalPos; j-- {
			o.bs.ShiftSlot(p, j-1, j)
		}
	}
}

// revealSlot collapses D[p][j] to {v} and bumps ValueTracker's
// revealed_v, decrementing whichever bucket (certain or called) the slot
// had previously been counted under, so the four counters never
// double-count the same physical copy (spec §4.2).
func (o *Orchestrator) revealSlot(p, j int, v Value) error {
	domain := o.bs.GetDomain(p, j)
	wasCertainV := o.bs.IsCertain(p, j) && domain.IsSingleton() && domain.Has(v)
	wasCalledV := !wasCertainV && o.bs.CalledFloating(p, v) > 0
	if err := o.vt.Reveal(v, wasCertainV, wasCalledV); err != nil {
		return err
	}
	o.bs.MarkRevealed(p, j, v)
	if wasCalledV {
		o.bs.AdjustCalledFloating(p, v, -1)
	}
	return nil
}

// mutateSignalAbsent removes v from every slot of player p and records
// the announcement for F6 and SignatureGenerator to consult.
func (o *Orchestrator) mutateSignalAbsent(p int, v Value) {
	for j := 0; j < o.cfg.L; j++ {
		cur := o.bs.GetDomain(p, j)
		if cur.Has(v) && !cur.IsSingleton() {
			o.bs.SetDomain(p, j, cur.Remove(v))
		}
	}
	o.bs.RecordAbsent(p, v)
}

// mutateSignalCopyCount restricts D[p][pos] to values whose deck
// multiplicity matches class, and records the signal for SignatureGenerator.
func (o *Orchestrator) mutateSignalCopyCount(p, pos, class int) error {
	cur := o.bs.GetDomain(p, pos)
	u := o.cfg.Universe()
	next := EmptyValueSet(u)
	cur.IterateValues(func(v Value) {
		if o.cfg.Copies(v) == class {
			next = next.Union(NewValueSet(u, v))
		}
	})
	o.bs.SetDomain(p, pos, next)
	o.bs.RecordCopyCountSignal(p, pos, class)
	if next.Count() == 0 {
		return &ContradictionError{Player: p, Position: pos, HasSlot: true, Reason: "copy-count signal leaves no candidate value"}
	}
	return nil
}
