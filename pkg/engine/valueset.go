package engine

import (
	"fmt"
	"math/bits"
	"strings"
	"sync"
)

// valueSetPool reduces allocation pressure for the common case of a
// universe that fits in a single 64-bit word (most BombBuster decks have
// well under 64 distinct values). Larger universes fall back to direct
// allocation, mirroring the teacher's tiered BitSetDomain pools but
// collapsed to the one tier this domain actually needs.
var valueSetPool = sync.Pool{
	New: func() interface{} {
		return &ValueSet{words: make([]uint64, 1)}
	},
}

// ValueSet is a compact, immutable candidate set D[p][j] over a
// ValueUniverse, implemented as a bitset indexed by universe position.
// Every mutator returns a new ValueSet rather than modifying in place,
// so a ValueSet can be shared freely across BeliefStore snapshots and
// parallel filter workers without locking.
type ValueSet struct {
	universe *ValueUniverse
	words    []uint64
}

func numWords(k int) int {
	if k <= 0 {
		return 0
	}
	return (k + 63) / 64
}

func acquireValueSet(u *ValueUniverse) *ValueSet {
	n := numWords(u.Size())
	if n == 1 {
		vs := valueSetPool.Get().(*ValueSet)
		vs.universe = u
		if cap(vs.words) < 1 {
			vs.words = make([]uint64, 1)
		} else {
			vs.words = vs.words[:1]
			vs.words[0] = 0
		}
		return vs
	}
	return &ValueSet{universe: u, words: make([]uint64, n)}
}

// ReleaseValueSet returns a single-word ValueSet to the pool. Callers
// that know a ValueSet is no longer referenced (e.g. after replacing it
// in BeliefStore) may call this to reduce GC pressure; it is always
// optional and safe to skip.
func ReleaseValueSet(vs *ValueSet) {
	if vs == nil || len(vs.words) != 1 {
		return
	}
	valueSetPool.Put(vs)
}

// FullValueSet returns the domain containing every value in the universe.
func FullValueSet(u *ValueUniverse) *ValueSet {
	vs := acquireValueSet(u)
	k := u.Size()
	for i := 0; i < k; i++ {
		vs.words[i/64] |= 1 << uint(i%64)
	}
	return vs
}

// EmptyValueSet returns the empty domain over u.
func EmptyValueSet(u *ValueUniverse) *ValueSet {
	return acquireValueSet(u)
}

// NewValueSet returns the domain containing exactly the given values
// (duplicates and values outside the universe are ignored).
func NewValueSet(u *ValueUniverse, values ...Value) *ValueSet {
	vs := acquireValueSet(u)
	for _, v := range values {
		idx := u.IndexOf(v)
		if idx < 0 {
			continue
		}
		vs.words[idx/64] |= 1 << uint(idx%64)
	}
	return vs
}

// Universe returns the ValueUniverse this set is indexed against.
func (d *ValueSet) Universe() *ValueUniverse { return d.universe }

// Count returns |D|.
func (d *ValueSet) Count() int {
	c := 0
	for _, w := range d.words {
		c += bits.OnesCount64(w)
	}
	return c
}

// Has reports whether v is a candidate.
func (d *ValueSet) Has(v Value) bool {
	idx := d.universe.IndexOf(v)
	if idx < 0 {
		return false
	}
	return (d.words[idx/64]>>uint(idx%64))&1 == 1
}

// Remove returns a new set with v removed (or the same contents if v
// was already absent).
func (d *ValueSet) Remove(v Value) *ValueSet {
	idx := d.universe.IndexOf(v)
	if idx < 0 || !d.Has(v) {
		return d.Clone()
	}
	nd := d.Clone()
	nd.words[idx/64] &^= 1 << uint(idx%64)
	return nd
}

// IsSingleton reports whether exactly one value remains.
func (d *ValueSet) IsSingleton() bool { return d.Count() == 1 }

// SingletonValue returns the sole remaining value. Behavior is
// undefined if the set is not a singleton.
func (d *ValueSet) SingletonValue() Value {
	for wi, w := range d.words {
		if w != 0 {
			return d.universe.ValueAt(wi*64 + bits.TrailingZeros64(w))
		}
	}
	panic("engine: SingletonValue called on non-singleton ValueSet")
}

// IterateValues calls f for every candidate value in ascending order.
func (d *ValueSet) IterateValues(f func(Value)) {
	for wi, w := range d.words {
		for w != 0 {
			lowest := w & -w
			bit := bits.TrailingZeros64(w)
			f(d.universe.ValueAt(wi*64 + bit))
			w &^= lowest
		}
	}
}

// ToSlice returns all candidate values, ascending.
func (d *ValueSet) ToSlice() []Value {
	out := make([]Value, 0, d.Count())
	d.IterateValues(func(v Value) { out = append(out, v) })
	return out
}

// Intersect returns D ∩ other.
func (d *ValueSet) Intersect(other *ValueSet) *ValueSet {
	nd := acquireValueSet(d.universe)
	for i := range nd.words {
		nd.words[i] = d.words[i] & other.words[i]
	}
	return nd
}

// Union returns D ∪ other.
func (d *ValueSet) Union(other *ValueSet) *ValueSet {
	nd := acquireValueSet(d.universe)
	for i := range nd.words {
		nd.words[i] = d.words[i] | other.words[i]
	}
	return nd
}

// Clone returns an independent copy of d.
func (d *ValueSet) Clone() *ValueSet {
	nd := acquireValueSet(d.universe)
	copy(nd.words, d.words)
	return nd
}

// Equal reports whether d and other contain exactly the same values.
func (d *ValueSet) Equal(other *ValueSet) bool {
	if other == nil || len(d.words) != len(other.words) {
		return false
	}
	for i := range d.words {
		if d.words[i] != other.words[i] {
			return false
		}
	}
	return true
}

// Min returns the smallest candidate value, or the zero Value if empty.
func (d *ValueSet) Min() (Value, bool) {
	for wi, w := range d.words {
		if w != 0 {
			return d.universe.ValueAt(wi*64 + bits.TrailingZeros64(w)), true
		}
	}
	return 0, false
}

// Max returns the largest candidate value, or the zero Value if empty.
func (d *ValueSet) Max() (Value, bool) {
	for wi := len(d.words) - 1; wi >= 0; wi-- {
		w := d.words[wi]
		if w != 0 {
			return d.universe.ValueAt(wi*64 + 63 - bits.LeadingZeros64(w)), true
		}
	}
	return 0, false
}

// RemoveBelow returns a new set with every value < floor removed,
// comparing raw Values; since the universe is sorted ascending, this is
// the same as comparing by universe order, including for a
// non-contiguous universe.
func (d *ValueSet) RemoveBelow(floor Value) *ValueSet {
	nd := acquireValueSet(d.universe)
	d.IterateValues(func(v Value) {
		if v >= floor {
			idx := d.universe.IndexOf(v)
			nd.words[idx/64] |= 1 << uint(idx%64)
		}
	})
	return nd
}

// RemoveAbove returns a new set with every value > ceil removed.
func (d *ValueSet) RemoveAbove(ceil Value) *ValueSet {
	nd := acquireValueSet(d.universe)
	d.IterateValues(func(v Value) {
		if v <= ceil {
			idx := d.universe.IndexOf(v)
			nd.words[idx/64] |= 1 << uint(idx%64)
		}
	})
	return nd
}

// String renders the set as "{v1,v2,...}", truncating very large sets.
func (d *ValueSet) String() string {
	values := d.ToSlice()
	if len(values) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{")
	for i, v := range values {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%d", v)
		if i >= 19 && len(values) > 20 {
			fmt.Fprintf(&b, ",...+%d more", len(values)-20)
			break
		}
	}
	b.WriteString("}")
	return b.String()
}
