package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Hand is one concrete sorted assignment of values to a player's L
// positions, realizing some Signature.
type Hand []Value

// Signature is the Parikh vector of a hand: Counts[i] is the number of
// times the universe's i-th value appears (spec §3: "vector of length K,
// sigma[i] = |{j : hand[j] = v_i}|").
type Signature struct {
	Counts []int
}

// Key returns a stable string encoding suitable for map lookup and for
// the orchestrator's signature cache key (spec §4.6).
func (s Signature) Key() string {
	var b strings.Builder
	for i, c := range s.Counts {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(c))
	}
	return b.String()
}

// SignatureSet is SignatureGenerator's output for one player: the
// distinct signatures its locally valid hands realize (V_p in spec
// §4.4/§4.5), plus the concrete hands behind each one, needed to project
// a globally valid signature back into per-position domains.
type SignatureSet struct {
	Signatures []Signature
	HandsBySig map[string][]Hand
}

// maxCopiesForPlayer bounds how many copies of v player p could still
// hold: the globally uncertain pool plus whatever p already has
// certain/revealed/called, the same bound F3 uses (spec §4.3, §4.4
// "global per-player cap on v").
func maxCopiesForPlayer(vt *ValueTracker, bs *BeliefStore, p int, v Value) int {
	return vt.Uncertain(v) + bs.CertainOrRevealedCount(p, v) + bs.CalledFloating(p, v)
}

// GenerateSignatures enumerates every non-decreasing length-L hand
// consistent with player p's current domains and annotations (spec
// §4.4), via depth-first backtracking on position index with a running
// min-value bound and per-value count vector, pruning on any constraint
// violation.
func GenerateSignatures(cfg *Config, bs *BeliefStore, vt *ValueTracker, p int) (*SignatureSet, error) {
	u := cfg.Universe()
	k := u.Size()

	adjacency := bs.AdjacencySignals(p)
	adjByPos := make(map[int]AdjacencyRelation, len(adjacency))
	for _, sig := range adjacency {
		adjByPos[sig.Position] = sig.Relation
	}
	copyCount := bs.CopyCountSignals(p)
	copyClassByPos := make(map[int]int, len(copyCount))
	for _, sig := range copyCount {
		copyClassByPos[sig.Position] = sig.Class
	}
	absent := make(map[Value]bool)
	for _, v := range bs.AbsentValues(p) {
		absent[v] = true
	}
	calledNeeded := make(map[Value]int)
	for _, v := range bs.CalledValues(p) {
		calledNeeded[v] = bs.CalledFloating(p, v)
	}

	valueCap := make([]int, k)
	for i := 0; i < k; i++ {
		valueCap[i] = maxCopiesForPlayer(vt, bs, p, u.ValueAt(i))
	}

	result := &SignatureSet{HandsBySig: make(map[string][]Hand)}
	seen := make(map[string]bool)

	hand := make(Hand, cfg.L)
	counts := make([]int, k)

	var backtrack func(j int, minVal Value, hasMin bool) error
	backtrack = func(j int, minVal Value, hasMin bool) error {
		if j == cfg.L {
			for v, need := range calledNeeded {
				idx := u.IndexOf(v)
				if idx < 0 || counts[idx] < need {
					return nil // called value not satisfied by this hand: prune
				}
			}
			sig := Signature{Counts: append([]int(nil), counts...)}
			key := sig.Key()
			h := append(Hand(nil), hand...)
			if !seen[key] {
				seen[key] = true
				result.Signatures = append(result.Signatures, sig)
			}
			result.HandsBySig[key] = append(result.HandsBySig[key], h)
			return nil
		}
		domain := bs.GetDomain(p, j)
		rel, hasRel := adjByPos[j-1]
		class, hasClass := copyClassByPos[j]
		var chainErr error
		domain.IterateValues(func(v Value) {
			if chainErr != nil {
				return
			}
			if hasMin && v < minVal {
				return
			}
			if absent[v] {
				return
			}
			if hasClass && cfg.Copies(v) != class {
				return
			}
			if hasRel {
				prevV := hand[j-1]
				switch rel {
				case RelationEQ:
					if v != prevV {
						return
					}
				case RelationNEQ:
					if v == prevV {
						return
					}
				}
			}
			idx := u.IndexOf(v)
			if idx < 0 {
				return
			}
			if counts[idx]+1 > valueCap[idx] {
				return
			}
			hand[j] = v
			counts[idx]++
			if err := backtrack(j+1, v, true); err != nil {
				chainErr = err
			}
			counts[idx]--
		})
		return chainErr
	}

	if err := backtrack(0, 0, false); err != nil {
		return nil, err
	}
	if len(result.Signatures) == 0 {
		return nil, &ContradictionError{Player: p, Reason: fmt.Sprintf("player %d has no locally valid hand realization", p)}
	}
	return result, nil
}
