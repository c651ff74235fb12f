package engine

import "testing"

func testUniverse() *ValueUniverse {
	return newValueUniverse(map[Value]int{1: 2, 2: 3, 3: 3, 4: 3, 5: 1})
}

func TestValueSetFullEmpty(t *testing.T) {
	u := testUniverse()
	full := FullValueSet(u)
	if full.Count() != u.Size() {
		t.Errorf("FullValueSet count = %d, want %d", full.Count(), u.Size())
	}
	empty := EmptyValueSet(u)
	if empty.Count() != 0 {
		t.Errorf("EmptyValueSet count = %d, want 0", empty.Count())
	}
}

func TestValueSetHasAndRemove(t *testing.T) {
	u := testUniverse()
	d := NewValueSet(u, 1, 3, 5)
	if !d.Has(1) || !d.Has(3) || !d.Has(5) {
		t.Fatal("expected 1, 3, 5 present")
	}
	if d.Has(2) {
		t.Fatal("did not expect 2 present")
	}
	nd := d.Remove(3)
	if nd.Has(3) {
		t.Error("Remove(3) left 3 present")
	}
	if !d.Has(3) {
		t.Error("Remove mutated the original set")
	}
}

func TestValueSetSingleton(t *testing.T) {
	u := testUniverse()
	d := NewValueSet(u, 4)
	if !d.IsSingleton() {
		t.Fatal("expected singleton")
	}
	if got := d.SingletonValue(); got != 4 {
		t.Errorf("SingletonValue() = %v, want 4", got)
	}
}

func TestValueSetIntersectUnion(t *testing.T) {
	u := testUniverse()
	a := NewValueSet(u, 1, 2, 3)
	b := NewValueSet(u, 2, 3, 4)

	inter := a.Intersect(b)
	if got := inter.ToSlice(); !equalValues(got, []Value{2, 3}) {
		t.Errorf("Intersect = %v, want [2 3]", got)
	}

	union := a.Union(b)
	if got := union.ToSlice(); !equalValues(got, []Value{1, 2, 3, 4}) {
		t.Errorf("Union = %v, want [1 2 3 4]", got)
	}
}

func TestValueSetEqualAndClone(t *testing.T) {
	u := testUniverse()
	a := NewValueSet(u, 1, 2)
	b := a.Clone()
	if !a.Equal(b) {
		t.Fatal("clone should equal original")
	}
	b = b.Remove(1)
	if a.Equal(b) {
		t.Fatal("mutating the clone's result should not affect equality with original")
	}
}

func TestValueSetMinMax(t *testing.T) {
	u := testUniverse()
	d := NewValueSet(u, 2, 4, 5)
	if min, ok := d.Min(); !ok || min != 2 {
		t.Errorf("Min() = %v, %v; want 2, true", min, ok)
	}
	if max, ok := d.Max(); !ok || max != 5 {
		t.Errorf("Max() = %v, %v; want 5, true", max, ok)
	}
	if _, ok := EmptyValueSet(u).Min(); ok {
		t.Error("Min() on empty set should report false")
	}
}

func TestValueSetRemoveBelowAbove(t *testing.T) {
	u := testUniverse()
	d := FullValueSet(u)
	below := d.RemoveBelow(3)
	if got := below.ToSlice(); !equalValues(got, []Value{3, 4, 5}) {
		t.Errorf("RemoveBelow(3) = %v, want [3 4 5]", got)
	}
	above := d.RemoveAbove(3)
	if got := above.ToSlice(); !equalValues(got, []Value{1, 2, 3}) {
		t.Errorf("RemoveAbove(3) = %v, want [1 2 3]", got)
	}
}

func TestValueSetString(t *testing.T) {
	u := testUniverse()
	if got := EmptyValueSet(u).String(); got != "{}" {
		t.Errorf("String() on empty = %q, want {}", got)
	}
	d := NewValueSet(u, 1, 2)
	if got := d.String(); got != "{1,2}" {
		t.Errorf("String() = %q, want {1,2}", got)
	}
}

func equalValues(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
