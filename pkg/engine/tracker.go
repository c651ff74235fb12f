package engine

import "fmt"

// valueCounters holds the four disjoint buckets spec §3/§4.2 defines for
// a single value: revealed_v, certain_v, called_v; uncertain_v is
// derived (r_v - the other three), never stored, so it can never drift
// out of sync with the others.
type valueCounters struct {
	revealed int
	certain  int
	called   int
}

// ValueTracker maintains, for every value in the deck, the global counts
// of revealed/certain/called/uncertain copies (spec §3, §4.2).
// ValueTracker never inspects BeliefStore itself — per-player bookkeeping
// (which player holds a certain/called copy) is the caller's job to
// supply, keeping ValueTracker a pure function of the events it's told
// about, in the same spirit as the teacher's constraint propagators
// taking their inputs explicitly rather than reaching for global state.
type ValueTracker struct {
	universe *ValueUniverse
	config   *Config
	counts   []valueCounters
}

// NewValueTracker creates a tracker with every copy uncertain.
func NewValueTracker(cfg *Config) *ValueTracker {
	u := cfg.Universe()
	return &ValueTracker{
		universe: u,
		config:   cfg,
		counts:   make([]valueCounters, u.Size()),
	}
}

func (t *ValueTracker) idx(v Value) int {
	idx := t.universe.IndexOf(v)
	if idx < 0 {
		panic(fmt.Sprintf("engine: value %v is not in the configured universe", v))
	}
	return idx
}

// Revealed returns revealed_v.
func (t *ValueTracker) Revealed(v Value) int { return t.counts[t.idx(v)].revealed }

// Certain returns certain_v.
func (t *ValueTracker) Certain(v Value) int { return t.counts[t.idx(v)].certain }

// Called returns called_v.
func (t *ValueTracker) Called(v Value) int { return t.counts[t.idx(v)].called }

// Uncertain returns uncertain_v = r_v - revealed_v - certain_v - called_v.
func (t *ValueTracker) Uncertain(v Value) int {
	c := t.counts[t.idx(v)]
	return t.config.Copies(v) - c.revealed - c.certain - c.called
}

// Reveal records that one more copy of v became publicly confirmed.
// wasCertainForPlayer/wasCalledForPlayer tell the tracker whether the
// specific slot being revealed had already been counted under certain_v
// or called_v for its owner, so that bucket is decremented rather than
// double-counted (spec §4.2: "if v was certain or called for that
// player, decrement the matching bucket").
func (t *ValueTracker) Reveal(v Value, wasCertainForPlayer, wasCalledForPlayer bool) error {
	i := t.idx(v)
	c := &t.counts[i]
	c.revealed++
	switch {
	case wasCertainForPlayer && c.certain > 0:
		c.certain--
	case wasCalledForPlayer && c.called > 0:
		c.called--
	}
	return t.checkInvariant(v)
}

// DeduceCertain records that a domain collapsed to {v} by deduction
// alone, without a public reveal.
func (t *ValueTracker) DeduceCertain(v Value) error {
	t.counts[t.idx(v)].certain++
	return t.checkInvariant(v)
}

// FailCall records a floating copy of v for a caller whose call failed.
// Per the spec's resolved Open Question (SPEC_FULL.md §3): a call is
// evidence of possession at call time, so if the caller already holds a
// revealed or certain copy of v, no new called_v is registered — the
// caller reports that via alreadyPossessed.
func (t *ValueTracker) FailCall(v Value, alreadyPossessed bool) error {
	if alreadyPossessed {
		return nil
	}
	t.counts[t.idx(v)].called++
	return t.checkInvariant(v)
}

// checkInvariant verifies each counter is non-negative and that the
// four buckets sum to r_v (spec §4.2, §8 property 4).
func (t *ValueTracker) checkInvariant(v Value) error {
	c := t.counts[t.idx(v)]
	if c.revealed < 0 || c.certain < 0 || c.called < 0 {
		return &ContradictionError{Reason: fmt.Sprintf("negative counter for value %v: revealed=%d certain=%d called=%d", v, c.revealed, c.certain, c.called)}
	}
	uncertain := t.Uncertain(v)
	if uncertain < 0 {
		return &ContradictionError{Reason: fmt.Sprintf("value %v over-committed: revealed=%d certain=%d called=%d exceeds r_v=%d", v, c.revealed, c.certain, c.called, t.config.Copies(v))}
	}
	return nil
}

// Counts returns the (revealed, certain, called, uncertain) tuple for v,
// implementing the get_value_counts query (spec §6.3).
func (t *ValueTracker) Counts(v Value) (revealed, certain, called, uncertain int) {
	c := t.counts[t.idx(v)]
	return c.revealed, c.certain, c.called, t.Uncertain(v)
}

// Clone returns an independent copy of the counters. The Orchestrator
// does not call it.
func (t *ValueTracker) Clone() *ValueTracker {
	nt := &ValueTracker{universe: t.universe, config: t.config, counts: make([]valueCounters, len(t.counts))}
	copy(nt.counts, t.counts)
	return nt
}
