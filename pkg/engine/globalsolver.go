package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// resourceVector is a length-K non-negative integer vector bounded
// element-wise by the deck vector R (spec §3: "alpha, beta sets...
// internal to GlobalSolver"). It is hashed via Key for O(1) set
// membership rather than the spec's base-(M+1) integer scheme, which
// overflows a machine int once K and M grow past a handful of values;
// a string key over the same digits is the direct, overflow-free
// equivalent.
type resourceVector []int

func (r resourceVector) key() string {
	b := make([]byte, 0, len(r)*4)
	for i, c := range r {
		if i > 0 {
			b = append(b, ',')
		}
		b = appendInt(b, c)
	}
	return string(b)
}

func appendInt(b []byte, n int) []byte {
	if n == 0 {
		return append(b, '0')
	}
	start := len(b)
	for n > 0 {
		b = append(b, byte('0'+n%10))
		n /= 10
	}
	// reverse digits appended in reverse order
	for i, j := start, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

func (r resourceVector) add(s Signature) resourceVector {
	out := make(resourceVector, len(r))
	for i := range r {
		out[i] = r[i] + s.Counts[i]
	}
	return out
}

func (r resourceVector) sub(s Signature) (resourceVector, bool) {
	out := make(resourceVector, len(r))
	for i := range r {
		out[i] = r[i] - s.Counts[i]
		if out[i] < 0 {
			return nil, false
		}
	}
	return out, true
}

func (r resourceVector) leq(deck resourceVector) bool {
	for i := range r {
		if r[i] > deck[i] {
			return false
		}
	}
	return true
}

// vectorSet is a hash set of resourceVectors keyed by their string
// encoding, the alpha_i / beta_i of spec §4.5.
type vectorSet map[string]resourceVector

func newVectorSet() vectorSet { return make(vectorSet) }

func (s vectorSet) add(v resourceVector) { s[v.key()] = v }

func (s vectorSet) has(v resourceVector) bool {
	_, ok := s[v.key()]
	return ok
}

// GlobalSolverResult is the outcome of one GlobalSolver.Solve call: the
// per-player domain restriction implied by global resource feasibility,
// or (on timeout) a partial result covering only the players whose
// signature generation finished in time (spec §5: "the solver yields any
// consistent over-approximation... skip projection for players whose
// generation did not complete").
type GlobalSolverResult struct {
	// ValidHands[p][j] is the set of values globally valid hands allow at
	// position j for player p; callers intersect this into BeliefStore.
	ValidHands [][]*ValueSet
	// Completed reports which players' projection actually ran.
	Completed []bool
	// TimedOut is true if the budget was exhausted before every player
	// completed.
	TimedOut bool
}

// GlobalSolver enforces multi-player resource feasibility via
// forward/backward dynamic programming over per-player signature sets
// (spec §4.5).
type GlobalSolver struct {
	cfg *Config
}

// NewGlobalSolver builds a solver bound to cfg's deck and budget.
func NewGlobalSolver(cfg *Config) *GlobalSolver {
	return &GlobalSolver{cfg: cfg}
}

func (g *GlobalSolver) deckVector() resourceVector {
	u := g.cfg.Universe()
	out := make(resourceVector, u.Size())
	for i := 0; i < u.Size(); i++ {
		out[i] = g.cfg.Copies(u.ValueAt(i))
	}
	return out
}

// Solve runs the per-player signature generation (fanned out via
// errgroup, spec §5: "parallel worker fan-out inside the GlobalSolver
// for per-player signature generation"), then the forward/backward DP,
// then projects globally valid signatures back to concrete hands.
func (g *GlobalSolver) Solve(ctx context.Context, bs *BeliefStore, vt *ValueTracker) (*GlobalSolverResult, error) {
	n := g.cfg.N
	deadline := time.Time{}
	if g.cfg.GlobalSolverBudgetMS > 0 {
		deadline = time.Now().Add(time.Duration(g.cfg.GlobalSolverBudgetMS) * time.Millisecond)
	}

	sigSets := make([]*SignatureSet, n)
	completed := make([]bool, n)

	group, gctx := errgroup.WithContext(ctx)
	for p := 0; p < n; p++ {
		p := p
		group.Go(func() error {
			if !deadline.IsZero() && time.Now().After(deadline) {
				return nil // budget already spent: leave this player incomplete
			}
			select {
			case <-gctx.Done():
				return nil
			default:
			}
			set, err := GenerateSignatures(g.cfg, bs, vt, p)
			if err != nil {
				return err
			}
			sigSets[p] = set
			completed[p] = true
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	allCompleted := true
	for _, c := range completed {
		if !c {
			allCompleted = false
			break
		}
	}
	if !allCompleted {
		return &GlobalSolverResult{Completed: completed, TimedOut: true}, nil
	}

	deck := g.deckVector()
	alpha, err := forwardPass(sigSets, deck)
	if err != nil {
		return nil, err
	}
	beta := backwardPass(sigSets, deck)

	if !alpha[n].has(deck) {
		return nil, &ContradictionError{Reason: "global resource feasibility failed: deck vector unreachable by forward pass"}
	}

	result := &GlobalSolverResult{
		ValidHands: make([][]*ValueSet, n),
		Completed:  completed,
	}
	u := g.cfg.Universe()
	for p := 0; p < n; p++ {
		perPos := make([]*ValueSet, g.cfg.L)
		for j := range perPos {
			perPos[j] = EmptyValueSet(u)
		}
		for _, sig := range sigSets[p].Signatures {
			if !signatureGloballyValid(sig, alpha[p], beta[p+1], deck) {
				continue
			}
			for _, hand := range sigSets[p].HandsBySig[sig.Key()] {
				for j, v := range hand {
					if !perPos[j].Has(v) {
						perPos[j] = perPos[j].Union(NewValueSet(u, v))
					}
				}
			}
		}
		for j, vs := range perPos {
			if vs.Count() == 0 {
				return nil, &ContradictionError{Player: p, Position: j, HasSlot: true, Reason: "no globally valid hand realizes this slot"}
			}
		}
		result.ValidHands[p] = perPos
	}
	return result, nil
}

// forwardPass builds alpha[0..N] per spec §4.5: alpha[0] = {0}; alpha[i+1]
// is every a+sigma for a in alpha[i], sigma a signature of player i, that
// stays within the deck bound.
func forwardPass(sigSets []*SignatureSet, deck resourceVector) ([]vectorSet, error) {
	n := len(sigSets)
	alpha := make([]vectorSet, n+1)
	alpha[0] = newVectorSet()
	alpha[0].add(make(resourceVector, len(deck)))
	for i := 0; i < n; i++ {
		next := newVectorSet()
		for _, a := range alpha[i] {
			for _, sig := range sigSets[i].Signatures {
				candidate := a.add(sig)
				if candidate.leq(deck) {
					next.add(candidate)
				}
			}
		}
		if len(next) == 0 {
			return nil, &ContradictionError{Player: i, Reason: fmt.Sprintf("no reachable resource state after player %d", i)}
		}
		alpha[i+1] = next
	}
	return alpha, nil
}

// backwardPass builds beta[N..0] symmetrically to forwardPass.
func backwardPass(sigSets []*SignatureSet, deck resourceVector) []vectorSet {
	n := len(sigSets)
	beta := make([]vectorSet, n+1)
	beta[n] = newVectorSet()
	beta[n].add(make(resourceVector, len(deck)))
	for i := n - 1; i >= 0; i-- {
		next := newVectorSet()
		for _, b := range beta[i+1] {
			for _, sig := range sigSets[i].Signatures {
				candidate := b.add(sig)
				if candidate.leq(deck) {
					next.add(candidate)
				}
			}
		}
		beta[i] = next
	}
	return beta
}

// signatureGloballyValid reports whether sigma is consistent with some
// global assignment (spec §4.5 projection): letting r = R - sigma, check
// exists a in alphaP : (r - a) in betaNext, iterating the smaller side.
func signatureGloballyValid(sig Signature, alphaP, betaNext vectorSet, deck resourceVector) bool {
	r, ok := resourceVector(deck).sub(sig)
	if !ok {
		return false
	}
	small, large := alphaP, betaNext
	if len(betaNext) < len(alphaP) {
		small, large = betaNext, alphaP
	}
	for _, a := range small {
		rem, ok := r.sub(Signature{Counts: a})
		if !ok {
			continue
		}
		if large.has(rem) {
			return true
		}
	}
	return false
}
