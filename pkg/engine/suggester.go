package engine

import (
	"math"
	"sort"
)

// CallSuggestion ranks one candidate call the Suggester proposes.
type CallSuggestion struct {
	Caller, Target int
	Position       int
	Value          Value
	// Certainty is 1.0 when the caller already knows the target's slot
	// for certain (domain is a revealed/certain singleton the caller can
	// observe), and shrinks toward 0 as the candidate set widens.
	Certainty float64
	// Entropy is the Shannon entropy (in bits) of the target slot's
	// domain, included so callers can break ties toward the
	// least-informative guess first if they'd rather explore.
	Entropy float64
	// DoubleChance is true when Value also appears in one of the
	// caller's own slots, meaning a successful call would additionally
	// collapse that slot via CallerPosition (spec §6.2 Call fields).
	DoubleChance   bool
	CallerPosition int
}

// Suggester is a thin read-only consumer of BeliefStore/ValueTracker
// domains (spec §2: "Suggester (thin)... consumes domains; ranks calls by
// certainty then by minimum candidate-set size; optional entropy and
// double-chance scorers"). It never mutates engine state.
type Suggester struct {
	cfg *Config
	bs  *BeliefStore
}

// NewSuggester builds a suggester reading from the given belief state.
func NewSuggester(cfg *Config, bs *BeliefStore) *Suggester {
	return &Suggester{cfg: cfg, bs: bs}
}

// RankCalls returns every candidate (caller, target, position) the caller
// could call, sorted by certainty descending, then by candidate-set size
// ascending (spec: "ranks calls by certainty then by minimum
// candidate-set size").
func (s *Suggester) RankCalls(caller int) []CallSuggestion {
	var out []CallSuggestion
	ownHand := s.bs.OwnHand(caller)
	for target := 0; target < s.cfg.N; target++ {
		if target == caller {
			continue
		}
		for j := 0; j < s.cfg.L; j++ {
			if s.bs.IsRevealed(target, j) {
				continue // already public: nothing to gain by calling it
			}
			d := s.bs.GetDomain(target, j)
			count := d.Count()
			if count == 0 {
				continue
			}
			v, _ := d.Min()
			certainty := 1.0 / float64(count)
			entropy := domainEntropy(d)
			callerPos := -1
			doubleChance := false
			if ownHand != nil {
				for oj, ov := range ownHand {
					if ov == v {
						callerPos = oj
						doubleChance = true
						break
					}
				}
			}
			out = append(out, CallSuggestion{
				Caller: caller, Target: target, Position: j, Value: v,
				Certainty: certainty, Entropy: entropy,
				DoubleChance: doubleChance, CallerPosition: callerPos,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Certainty != out[j].Certainty {
			return out[i].Certainty > out[j].Certainty
		}
		return out[i].Entropy < out[j].Entropy
	})
	return out
}

// domainEntropy computes the Shannon entropy, in bits, of a uniform
// distribution over d's candidates — the engine has no per-value
// likelihood model beyond "equally likely among remaining candidates",
// so entropy reduces to log2(|D|).
func domainEntropy(d *ValueSet) float64 {
	n := d.Count()
	if n <= 1 {
		return 0
	}
	return math.Log2(float64(n))
}
