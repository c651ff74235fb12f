package engine

// Slot addresses one hidden wire: player p's position j (spec §3).
type Slot struct {
	Player   int
	Position int
}

// AdjacencyRelation is the relation an adjacency signal asserts between
// positions j and j+1 (spec §3, §6.2).
type AdjacencyRelation int

const (
	RelationEQ AdjacencyRelation = iota
	RelationNEQ
)

// CopyCountSignal restricts the value at Position to ones whose global
// multiplicity equals Class (1, 2, or 3).
type CopyCountSignal struct {
	Position int
	Class    int
}

// AdjacencySignal constrains the pair (Position, Position+1).
type AdjacencySignal struct {
	Position int
	Relation AdjacencyRelation
}

// CallRecord is the public record of one Call event (spec §3).
type CallRecord struct {
	Caller   int
	Target   int
	Position int
	Value    Value
	Success  bool
}

// playerBelief groups the per-player annotations spec §3 calls out
// separately from the shared candidate sets: call history, absence
// announcements, and the two signal kinds.
type playerBelief struct {
	domains   []*ValueSet
	revealed  []bool // true: publicly confirmed; false: either open or deduced-certain
	certain   []bool // true: collapsed to a singleton by deduction, not a public reveal
	dirty     []bool

	absent          map[Value]bool
	calledFloating  map[Value]int
	calls           []CallRecord
	copyCountSigs   []CopyCountSignal
	adjacencySigs   []AdjacencySignal
}

func newPlayerBelief(cfg *Config) *playerBelief {
	l := cfg.L
	pb := &playerBelief{
		domains:        make([]*ValueSet, l),
		revealed:       make([]bool, l),
		certain:        make([]bool, l),
		dirty:          make([]bool, l),
		absent:         make(map[Value]bool),
		calledFloating: make(map[Value]int),
	}
	for j := 0; j < l; j++ {
		pb.domains[j] = FullValueSet(cfg.Universe())
	}
	return pb
}

func (pb *playerBelief) clone() *playerBelief {
	npb := &playerBelief{
		domains:       make([]*ValueSet, len(pb.domains)),
		revealed:      append([]bool(nil), pb.revealed...),
		certain:       append([]bool(nil), pb.certain...),
		dirty:         append([]bool(nil), pb.dirty...),
		absent:        make(map[Value]bool, len(pb.absent)),
		calledFloating: make(map[Value]int, len(pb.calledFloating)),
		calls:         append([]CallRecord(nil), pb.calls...),
		copyCountSigs: append([]CopyCountSignal(nil), pb.copyCountSigs...),
		adjacencySigs: append([]AdjacencySignal(nil), pb.adjacencySigs...),
	}
	for j, d := range pb.domains {
		npb.domains[j] = d.Clone()
	}
	for v, ok := range pb.absent {
		npb.absent[v] = ok
	}
	for v, n := range pb.calledFloating {
		npb.calledFloating[v] = n
	}
	return npb
}

// BeliefStore is the shared, per-(player, position) deduction state
// (spec §3, §4.1): candidate sets, per-player annotations, and a dirty
// bit per slot marking slots that changed since the last ClearDirty. The
// local filters do not read the dirty bits; every pass scans every slot.
// It is owned exclusively by the Orchestrator (spec §5).
type BeliefStore struct {
	cfg      *Config
	players  []*playerBelief
	ownHands [][]Value // ground truth, may be nil per player if unknown
}

// NewBeliefStore initializes every slot's domain to the full universe
// (spec §3 lifecycle). ownHands, if non-nil, is the ground truth dealt
// hand for each player — used only to validate event truthfulness in
// ModeSimulation and to serialize snapshots (spec §6.4); it is never
// consulted by the public Query methods or by the local filters.
func NewBeliefStore(cfg *Config, ownHands [][]Value) *BeliefStore {
	bs := &BeliefStore{cfg: cfg, players: make([]*playerBelief, cfg.N)}
	for p := range bs.players {
		bs.players[p] = newPlayerBelief(cfg)
	}
	if ownHands != nil {
		bs.ownHands = make([][]Value, cfg.N)
		for p, hand := range ownHands {
			if hand != nil {
				bs.ownHands[p] = append([]Value(nil), hand...)
			}
		}
	}
	return bs
}

// Clone returns an independent deep copy of the store, own hands
// included. The Orchestrator does not call it.
func (bs *BeliefStore) Clone() *BeliefStore {
	nbs := &BeliefStore{cfg: bs.cfg, players: make([]*playerBelief, len(bs.players))}
	for p, pb := range bs.players {
		nbs.players[p] = pb.clone()
	}
	if bs.ownHands != nil {
		nbs.ownHands = make([][]Value, len(bs.ownHands))
		for p, h := range bs.ownHands {
			nbs.ownHands[p] = append([]Value(nil), h...)
		}
	}
	return nbs
}

// GetDomain returns D[p][j].
func (bs *BeliefStore) GetDomain(p, j int) *ValueSet {
	return bs.players[p].domains[j]
}

// SetDomain replaces D[p][j], marking the slot dirty if the new domain
// differs from the old one. Returns whether anything changed.
func (bs *BeliefStore) SetDomain(p, j int, ns *ValueSet) bool {
	pb := bs.players[p]
	if pb.domains[j].Equal(ns) {
		return false
	}
	pb.domains[j] = ns
	pb.dirty[j] = true
	return true
}

// MarkRevealed collapses D[p][j] to {v} and flags the slot as publicly
// revealed (spec §3: "established" by a public event, not deduction).
func (bs *BeliefStore) MarkRevealed(p, j int, v Value) {
	pb := bs.players[p]
	pb.domains[j] = NewValueSet(bs.cfg.Universe(), v)
	pb.revealed[j] = true
	pb.certain[j] = false
	pb.dirty[j] = true
}

// MarkCertain collapses D[p][j] to {v} without flagging a public
// reveal — the slot became certain by deduction alone (spec §3, §4.2).
func (bs *BeliefStore) MarkCertain(p, j int, v Value) {
	pb := bs.players[p]
	pb.domains[j] = NewValueSet(bs.cfg.Universe(), v)
	pb.certain[j] = true
	pb.dirty[j] = true
}

// ShiftSlot moves a slot's full per-position state — domain, revealed,
// certain — from index from to index to within player p's hand, marking
// the destination dirty. Used by the Swap event's re-sort step (spec
// §6.2), where an intervening slot's wire identity is unchanged but its
// index moves to close the gap left by a departing/arriving wire.
func (bs *BeliefStore) ShiftSlot(p, from, to int) {
	pb := bs.players[p]
	pb.domains[to] = pb.domains[from]
	pb.revealed[to] = pb.revealed[from]
	pb.certain[to] = pb.certain[from]
	pb.dirty[to] = true
}

// IsRevealed reports whether slot (p,j) was collapsed by a public event.
func (bs *BeliefStore) IsRevealed(p, j int) bool { return bs.players[p].revealed[j] }

// IsCertain reports whether slot (p,j) was collapsed by deduction alone.
func (bs *BeliefStore) IsCertain(p, j int) bool { return bs.players[p].certain[j] }

// Dirty reports whether slot (p,j) changed since the last ClearDirty.
func (bs *BeliefStore) Dirty(p, j int) bool { return bs.players[p].dirty[j] }

// ClearDirty resets every dirty bit. The Orchestrator and the filters do
// not call it.
func (bs *BeliefStore) ClearDirty() {
	for _, pb := range bs.players {
		for j := range pb.dirty {
			pb.dirty[j] = false
		}
	}
}

// DirtySlots returns every slot whose dirty bit is currently set.
func (bs *BeliefStore) DirtySlots() []Slot {
	var out []Slot
	for p, pb := range bs.players {
		for j, d := range pb.dirty {
			if d {
				out = append(out, Slot{Player: p, Position: j})
			}
		}
	}
	return out
}

// RecordAbsent marks v as publicly announced absent from player p's hand.
func (bs *BeliefStore) RecordAbsent(p int, v Value) {
	bs.players[p].absent[v] = true
}

// IsAbsent reports whether p has announced v absent.
func (bs *BeliefStore) IsAbsent(p int, v Value) bool {
	return bs.players[p].absent[v]
}

// AbsentValues returns every value p has announced absent.
func (bs *BeliefStore) AbsentValues(p int) []Value {
	out := make([]Value, 0, len(bs.players[p].absent))
	for v := range bs.players[p].absent {
		out = append(out, v)
	}
	return out
}

// RecordCall appends rec to p's call history.
func (bs *BeliefStore) RecordCall(rec CallRecord) {
	bs.players[rec.Caller].calls = append(bs.players[rec.Caller].calls, rec)
}

// CallHistory returns every call player p has made, in order.
func (bs *BeliefStore) CallHistory(p int) []CallRecord {
	return append([]CallRecord(nil), bs.players[p].calls...)
}

// AdjustCalledFloating changes the number of floating (position-unknown)
// copies of v that player p has committed to holding.
func (bs *BeliefStore) AdjustCalledFloating(p int, v Value, delta int) {
	pb := bs.players[p]
	pb.calledFloating[v] += delta
	if pb.calledFloating[v] <= 0 {
		delete(pb.calledFloating, v)
	}
}

// CalledFloating returns how many floating copies of v player p has
// committed to but not yet placed at a position.
func (bs *BeliefStore) CalledFloating(p int, v Value) int {
	return bs.players[p].calledFloating[v]
}

// CalledValues returns every value p has an outstanding floating call on.
func (bs *BeliefStore) CalledValues(p int) []Value {
	pb := bs.players[p]
	out := make([]Value, 0, len(pb.calledFloating))
	for v := range pb.calledFloating {
		out = append(out, v)
	}
	return out
}

// CertainOrRevealedCount counts how many of p's slots are currently
// collapsed (by either reveal or deduction) to exactly v. This is the
// "certain_v_in_p + revealed_v_in_p" quantity spec §4.3 (F2) refers to.
func (bs *BeliefStore) CertainOrRevealedCount(p int, v Value) int {
	pb := bs.players[p]
	n := 0
	for j, d := range pb.domains {
		if (pb.revealed[j] || pb.certain[j]) && d.IsSingleton() && d.Has(v) {
			n++
		}
	}
	return n
}

// RecordCopyCountSignal stores a Signal-CopyCount annotation for p.
func (bs *BeliefStore) RecordCopyCountSignal(p, pos, class int) {
	bs.players[p].copyCountSigs = append(bs.players[p].copyCountSigs, CopyCountSignal{Position: pos, Class: class})
}

// CopyCountSignals returns every copy-count signal p has made.
func (bs *BeliefStore) CopyCountSignals(p int) []CopyCountSignal {
	return append([]CopyCountSignal(nil), bs.players[p].copyCountSigs...)
}

// RecordAdjacencySignal stores a Signal-Adjacency annotation for p.
func (bs *BeliefStore) RecordAdjacencySignal(p, pos int, rel AdjacencyRelation) {
	bs.players[p].adjacencySigs = append(bs.players[p].adjacencySigs, AdjacencySignal{Position: pos, Relation: rel})
}

// AdjacencySignals returns every adjacency signal p has made.
func (bs *BeliefStore) AdjacencySignals(p int) []AdjacencySignal {
	return append([]AdjacencySignal(nil), bs.players[p].adjacencySigs...)
}

// OwnHand returns the ground-truth hand dealt to p, or nil if unknown.
func (bs *BeliefStore) OwnHand(p int) []Value {
	if bs.ownHands == nil {
		return nil
	}
	return append([]Value(nil), bs.ownHands[p]...)
}

// IsWin reports whether every slot is a singleton (spec §6.3 is_win).
func (bs *BeliefStore) IsWin() bool {
	for _, pb := range bs.players {
		for _, d := range pb.domains {
			if !d.IsSingleton() {
				return false
			}
		}
	}
	return true
}

// CertainSlots returns every (p, j, v) where D[p][j] is currently a
// singleton {v} (spec §6.3 get_certain_slots).
func (bs *BeliefStore) CertainSlots() []struct {
	Player   int
	Position int
	Value    Value
} {
	var out []struct {
		Player   int
		Position int
		Value    Value
	}
	for p, pb := range bs.players {
		for j, d := range pb.domains {
			if d.IsSingleton() {
				v, _ := d.Min()
				out = append(out, struct {
					Player   int
					Position int
					Value    Value
				}{p, j, v})
			}
		}
	}
	return out
}
