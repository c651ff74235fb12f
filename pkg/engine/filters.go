package engine

import (
	"context"
	"fmt"

	"github.com/bombbuster/engine/internal/workerpool"
)

// DomainPatch records one narrowing of a slot's candidate set. Filters are
// not pure: each filter writes its narrowing into BeliefStore itself (so
// later checks in the same filter see it) and also returns it as a patch;
// the caller re-applies the patches, which is then a no-op, and decides
// whether the result is a contradiction.
type DomainPatch struct {
	Player   int
	Position int
	NewDomain *ValueSet
}

// filterFunc computes the patches one local filter would apply against
// the current belief state. Filters only ever remove values, so applying
// every returned patch can only shrink domains (spec §4.3: "monotone").
// ctx/pool are threaded through so a filter whose per-player work is
// independent (F1) can fan it out; filters whose players interact through
// shared counters (F2-F6 read ValueTracker/cross-player signals) run
// sequentially over players instead.
type filterFunc func(ctx context.Context, pool *workerpool.Pool, cfg *Config, bs *BeliefStore, vt *ValueTracker) ([]DomainPatch, error)

// localFilters lists the six propagators in the fixed evaluation order
// spec §5 requires ("local filters in fixed order F1->F6, then global,
// then local again").
var localFilters = []filterFunc{
	filterOrdering,          // F1
	filterSlidingWindow,     // F2
	filterUncertainPosition, // F3
	filterSubsetCardinality, // F4
	filterChainForcing,      // F5 (gated by Config.EnableChainForcing)
	filterCalledValues,      // F6
}

// RunLocalFiltersToFixedPoint applies F1 through F6 in order, repeating
// the whole round until a round produces no patches (spec §4.3:
// "round-robin loop... until a pass produces no change"). Per-filter work
// across players is fanned out through pool where a filter's shape
// allows it; patches from one filter are applied to BeliefStore before
// the next filter runs, so later filters in the same round observe
// earlier narrowing.
func RunLocalFiltersToFixedPoint(ctx context.Context, pool *workerpool.Pool, cfg *Config, bs *BeliefStore, vt *ValueTracker) error {
	for {
		changed := false
		for _, f := range localFilters {
			patches, err := f(ctx, pool, cfg, bs, vt)
			if err != nil {
				return err
			}
			if len(patches) == 0 {
				continue
			}
			// Filters have already written their narrowing into bs, so
			// applyPatch usually reports no change; any patch at all means
			// this round narrowed something.
			changed = true
			for _, p := range patches {
				applyPatch(bs, p)
			}
		}
		if !changed {
			return nil
		}
	}
}

// applyPatch intersects a patch's domain into the current one (a filter
// only ever narrows, but intersecting rather than replacing keeps the
// operation safe even if two filters in the same round propose
// overlapping but not identical narrowings) and reports a contradiction
// via the returned BeliefStore state if the result is empty; the caller
// (RunLocalFiltersToFixedPoint's caller, the Orchestrator) checks for
// emptiness after the fixed point is reached, per spec §7's policy that
// "local filters recover nothing".
func applyPatch(bs *BeliefStore, p DomainPatch) bool {
	cur := bs.GetDomain(p.Player, p.Position)
	next := cur.Intersect(p.NewDomain)
	return bs.SetDomain(p.Player, p.Position, next)
}

// emptyDomainContradiction builds the ContradictionError the orchestrator
// raises when a fixed point leaves some slot with no candidates left
// (spec §3: "emptiness => contradiction, surfaced as an error").
func emptyDomainContradiction(eventID string, p, j int, reason string) error {
	return &ContradictionError{EventID: eventID, Player: p, Position: j, HasSlot: true, Reason: reason}
}

// CheckNoEmptyDomains scans every slot for emptiness after a fixed point,
// since filters themselves only report narrowing, not terminal state.
func CheckNoEmptyDomains(eventID string, cfg *Config, bs *BeliefStore) error {
	for p := 0; p < cfg.N; p++ {
		for j := 0; j < cfg.L; j++ {
			if bs.GetDomain(p, j).Count() == 0 {
				return emptyDomainContradiction(eventID, p, j, "domain became empty during propagation")
			}
		}
	}
	return nil
}

// filterOrdering is F1 (spec §4.3): within each player's hand, propagate
// min bounds left-to-right and max bounds right-to-left until stable,
// since the true hand is non-decreasing in position.
func filterOrdering(ctx context.Context, pool *workerpool.Pool, cfg *Config, bs *BeliefStore, _ *ValueTracker) ([]DomainPatch, error) {
	// Each player's ordering pass only reads and writes that player's own
	// slots, so players are independent work items (spec §5: "parallel
	// worker fan-out... workers share no mutable state; outputs are
	// collected before the orchestrator proceeds").
	perPlayer := make([][]DomainPatch, cfg.N)
	players := make([]int, cfg.N)
	for p := range players {
		players[p] = p
	}
	err := workerpool.RunAll(ctx, pool, players, func(p int) error {
		perPlayer[p] = orderingPassForPlayer(cfg, bs, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	var patches []DomainPatch
	for _, ps := range perPlayer {
		patches = append(patches, ps...)
	}
	return patches, nil
}

func orderingPassForPlayer(cfg *Config, bs *BeliefStore, p int) []DomainPatch {
	var patches []DomainPatch
	for {
		localChanged := false
		// left-to-right: D[j] >= min(D[j-1])
		for j := 1; j < cfg.L; j++ {
			prev := bs.GetDomain(p, j-1)
			cur := bs.GetDomain(p, j)
			floor, ok := prev.Min()
			if !ok {
				continue
			}
			nd := cur.RemoveBelow(floor)
			if !nd.Equal(cur) {
				patches = append(patches, DomainPatch{p, j, nd})
				bs.SetDomain(p, j, nd)
				localChanged = true
			}
		}
		// right-to-left: D[j] <= max(D[j+1])
		for j := cfg.L - 2; j >= 0; j-- {
			next := bs.GetDomain(p, j+1)
			cur := bs.GetDomain(p, j)
			ceil, ok := next.Max()
			if !ok {
				continue
			}
			nd := cur.RemoveAbove(ceil)
			if !nd.Equal(cur) {
				patches = append(patches, DomainPatch{p, j, nd})
				bs.SetDomain(p, j, nd)
				localChanged = true
			}
		}
		if !localChanged {
			break
		}
	}
	return patches
}

// filterSlidingWindow is F2 (spec §4.3): for each (p, v), compute the
// window width w of positions v could still occupy in p's hand and
// restrict v to the union of windows covering every position already
// certain/revealed as v.
func filterSlidingWindow(_ context.Context, _ *workerpool.Pool, cfg *Config, bs *BeliefStore, vt *ValueTracker) ([]DomainPatch, error) {
	var patches []DomainPatch
	u := cfg.Universe()
	for p := 0; p < cfg.N; p++ {
		fixedPositions := make(map[Value][]int)
		for j := 0; j < cfg.L; j++ {
			d := bs.GetDomain(p, j)
			if (bs.IsCertain(p, j) || bs.IsRevealed(p, j)) && d.IsSingleton() {
				v := d.SingletonValue()
				fixedPositions[v] = append(fixedPositions[v], j)
			}
		}
		for i := 0; i < u.Size(); i++ {
			v := u.ValueAt(i)
			certainRevealed := bs.CertainOrRevealedCount(p, v)
			uncertain := vt.Uncertain(v)
			calledBump := 0
			if bs.CalledFloating(p, v) > 0 {
				calledBump = 1
			}
			w := certainRevealed + uncertain + calledBump
			if w >= cfg.L {
				continue // window covers the whole hand: no narrowing possible
			}
			fixed := fixedPositions[v]
			if len(fixed) == 0 {
				continue // nothing anchors the window yet
			}
			lo, hi := fixed[0], fixed[0]
			for _, j := range fixed[1:] {
				if j < lo {
					lo = j
				}
				if j > hi {
					hi = j
				}
			}
			// Union of width-w windows that contain [lo, hi]: the widest
			// possible span is [hi-w+1, lo+w-1], clamped to the hand.
			winLo := hi - w + 1
			winHi := lo + w - 1
			if winLo < 0 {
				winLo = 0
			}
			if winHi > cfg.L-1 {
				winHi = cfg.L - 1
			}
			for j := 0; j < cfg.L; j++ {
				if j >= winLo && j <= winHi {
					continue
				}
				cur := bs.GetDomain(p, j)
				if cur.IsSingleton() {
					continue // never touch an already-fixed slot
				}
				if cur.Has(v) {
					nd := cur.Remove(v)
					patches = append(patches, DomainPatch{p, j, nd})
					bs.SetDomain(p, j, nd)
				}
			}
		}
	}
	return patches, nil
}

// filterUncertainPosition is F3 (spec §4.3): bound, per (p, v), the
// interval of positions v could occupy from the maximum number of copies
// of v player p could still hold, combined with the ordering invariant.
func filterUncertainPosition(_ context.Context, _ *workerpool.Pool, cfg *Config, bs *BeliefStore, vt *ValueTracker) ([]DomainPatch, error) {
	var patches []DomainPatch
	u := cfg.Universe()
	for p := 0; p < cfg.N; p++ {
		for i := 0; i < u.Size(); i++ {
			v := u.ValueAt(i)
			maxCopies := vt.Uncertain(v) + bs.CertainOrRevealedCount(p, v) + bs.CalledFloating(p, v)
			if maxCopies <= 0 {
				// p can hold no copies of v at all: remove v everywhere
				// it isn't already fixed.
				for j := 0; j < cfg.L; j++ {
					cur := bs.GetDomain(p, j)
					if cur.IsSingleton() {
						continue
					}
					if cur.Has(v) {
						nd := cur.Remove(v)
						patches = append(patches, DomainPatch{p, j, nd})
						bs.SetDomain(p, j, nd)
					}
				}
				continue
			}
			lo, hi, any := -1, -1, false
			for j := 0; j < cfg.L; j++ {
				if bs.GetDomain(p, j).Has(v) {
					if !any {
						lo = j
						any = true
					}
					hi = j
				}
			}
			if !any {
				continue
			}
			if hi-lo+1 <= maxCopies {
				continue // interval already consistent with max copies
			}
			// Trim to the widest feasible window of width maxCopies around
			// a position already forced to v, or around an end of [lo, hi]
			// that the ordering invariant pins as the start or end of v's run.
			fixed := -1
			for j := lo; j <= hi; j++ {
				d := bs.GetDomain(p, j)
				if d.IsSingleton() && d.Has(v) {
					fixed = j
					break
				}
			}
			var winLo, winHi int
			if fixed >= 0 {
				winLo = fixed - maxCopies + 1
				winHi = fixed + maxCopies - 1
			} else if m, _ := bs.GetDomain(p, lo).Min(); m == v {
				// v is the smallest candidate at lo: any run of v starts at lo.
				winLo, winHi = lo, lo+maxCopies-1
			} else if m, _ := bs.GetDomain(p, hi).Max(); m == v {
				// v is the largest candidate at hi: any run of v ends at hi.
				winLo, winHi = hi-maxCopies+1, hi
			} else {
				continue // nothing anchors the run of v: no sound narrowing
			}
			if winLo < 0 {
				winLo = 0
			}
			if winHi > cfg.L-1 {
				winHi = cfg.L - 1
			}
			for j := lo; j <= hi; j++ {
				if j >= winLo && j <= winHi {
					continue
				}
				cur := bs.GetDomain(p, j)
				if cur.IsSingleton() {
					continue
				}
				if cur.Has(v) {
					nd := cur.Remove(v)
					patches = append(patches, DomainPatch{p, j, nd})
					bs.SetDomain(p, j, nd)
				}
			}
		}
	}
	return patches, nil
}

// remainingCopies returns r'_v, the copies of v not yet publicly revealed
// (spec §4.3 F4: "r'_v... number of remaining (non-revealed) copies").
func remainingCopies(cfg *Config, vt *ValueTracker, v Value) int {
	return cfg.Copies(v) - vt.Revealed(v)
}

// slotRef pairs a slot address with its current domain for F4's subset
// scan, which needs to read a stable snapshot across many subsets without
// repeatedly calling back into BeliefStore.
type slotRef struct {
	p, j int
	d    *ValueSet
}

// filterSubsetCardinality is F4 (spec §4.3): for bounded-size subsets S
// of V, if the set of slots whose domain is contained in S exactly
// accounts for S's remaining copies, those slots saturate S and every
// other slot's domain can have S removed.
func filterSubsetCardinality(_ context.Context, _ *workerpool.Pool, cfg *Config, bs *BeliefStore, vt *ValueTracker) ([]DomainPatch, error) {
	u := cfg.Universe()
	k := u.Size()
	h := cfg.MaxSubsetH
	if h > k {
		h = k
	}
	var patches []DomainPatch

	allSlots := make([]slotRef, 0, cfg.N*cfg.L)
	for p := 0; p < cfg.N; p++ {
		for j := 0; j < cfg.L; j++ {
			if bs.IsRevealed(p, j) {
				continue // revealed copies are already excluded from r'_v
			}
			allSlots = append(allSlots, slotRef{p, j, bs.GetDomain(p, j)})
		}
	}

	var subsetCombine func(start int, chosen []Value)
	subsetCombine = func(start int, chosen []Value) {
		if len(chosen) >= 1 {
			evalSubset(cfg, vt, allSlots, chosen, &patches)
		}
		if len(chosen) == h {
			return
		}
		for i := start; i < k; i++ {
			subsetCombine(i+1, append(chosen, u.ValueAt(i)))
		}
	}
	subsetCombine(0, make([]Value, 0, h))

	for _, ref := range patches {
		bs.SetDomain(ref.Player, ref.Position, ref.NewDomain)
	}
	return patches, nil
}

func evalSubset(cfg *Config, vt *ValueTracker, slots []slotRef, subset []Value, patches *[]DomainPatch) {
	universe := cfg.Universe()
	setVS := NewValueSet(universe, subset...)

	contained := make([]int, 0)
	total := 0
	for _, v := range subset {
		total += remainingCopies(cfg, vt, v)
	}
	for i, s := range slots {
		if isSubsetOf(s.d, setVS) {
			contained = append(contained, i)
		}
	}
	if len(contained) == 0 || len(contained) != total {
		return
	}
	containedSet := make(map[int]bool, len(contained))
	for _, i := range contained {
		containedSet[i] = true
	}
	for i, s := range slots {
		if containedSet[i] {
			continue
		}
		if !s.d.IsSingleton() && intersects(s.d, setVS) {
			nd := s.d
			for _, v := range subset {
				nd = nd.Remove(v)
			}
			*patches = append(*patches, DomainPatch{s.p, s.j, nd})
		}
	}
}

func isSubsetOf(d, s *ValueSet) bool {
	return d.Intersect(s).Count() == d.Count()
}

func intersects(d, s *ValueSet) bool {
	return d.Intersect(s).Count() > 0
}

// filterChainForcing is F5 (spec §4.3), gated by Config.EnableChainForcing
// per the spec's resolved open question about overlap with F3: hypothesize
// v at (p, j), walk outward while neighboring domains are forced to the
// same value by the ordering bound, and remove v from (p, j) if the
// resulting chain is longer than the copies of v still available to p.
func filterChainForcing(_ context.Context, _ *workerpool.Pool, cfg *Config, bs *BeliefStore, vt *ValueTracker) ([]DomainPatch, error) {
	if !cfg.EnableChainForcing {
		return nil, nil
	}
	var patches []DomainPatch
	for p := 0; p < cfg.N; p++ {
		for j := 0; j < cfg.L; j++ {
			d := bs.GetDomain(p, j)
			if d.IsSingleton() {
				continue
			}
			d.IterateValues(func(v Value) {
				required := chainLength(cfg, bs, p, j, v)
				if required <= 1 {
					return
				}
				available := vt.Uncertain(v) + bs.CertainOrRevealedCount(p, v) + bs.CalledFloating(p, v)
				if required > available {
					cur := bs.GetDomain(p, j)
					if cur.Count() <= 1 {
						return // never remove the last value of a domain
					}
					nd := cur.Remove(v)
					patches = append(patches, DomainPatch{p, j, nd})
					bs.SetDomain(p, j, nd)
				}
			})
		}
	}
	return patches, nil
}

// chainLength counts the consecutive run of positions around j forced to
// v by the ordering bound, hypothesizing v placed at (p, j) itself: to the
// left, positions whose min-bound equals v; to the right, positions whose
// max-bound equals v.
func chainLength(cfg *Config, bs *BeliefStore, p, j int, v Value) int {
	length := 1
	for k := j - 1; k >= 0; k-- {
		m, ok := bs.GetDomain(p, k).Min()
		if !ok || m != v {
			break
		}
		length++
	}
	for k := j + 1; k < cfg.L; k++ {
		m, ok := bs.GetDomain(p, k).Max()
		if !ok || m != v {
			break
		}
		length++
	}
	return length
}

// filterCalledValues is F6 (spec §4.3): a player's floating called value
// must land somewhere in their hand; an announced-absent value is removed
// from every slot.
func filterCalledValues(_ context.Context, _ *workerpool.Pool, cfg *Config, bs *BeliefStore, _ *ValueTracker) ([]DomainPatch, error) {
	var patches []DomainPatch
	for p := 0; p < cfg.N; p++ {
		for _, v := range bs.AbsentValues(p) {
			for j := 0; j < cfg.L; j++ {
				cur := bs.GetDomain(p, j)
				if cur.IsSingleton() {
					continue
				}
				if cur.Has(v) {
					nd := cur.Remove(v)
					patches = append(patches, DomainPatch{p, j, nd})
					bs.SetDomain(p, j, nd)
				}
			}
		}
		for _, v := range bs.CalledValues(p) {
			needed := bs.CalledFloating(p, v)
			candidates := make([]int, 0, cfg.L)
			for j := 0; j < cfg.L; j++ {
				if bs.GetDomain(p, j).Has(v) {
					candidates = append(candidates, j)
				}
			}
			if len(candidates) == 0 {
				return nil, fmt.Errorf("engine: called value %v has no candidate slot left for player %d", v, p)
			}
			if len(candidates) > needed {
				continue // ambiguous which slots hold it; leave to other filters
			}
			// Exactly as many candidate slots as needed copies: every
			// candidate must hold v.
			for _, j := range candidates {
				cur := bs.GetDomain(p, j)
				if cur.IsSingleton() {
					continue
				}
				nd := NewValueSet(cfg.Universe(), v)
				patches = append(patches, DomainPatch{p, j, nd})
				bs.SetDomain(p, j, nd)
			}
		}
	}
	return patches, nil
}
