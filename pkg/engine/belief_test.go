package engine

import "testing"

func TestBeliefStoreInitialDomainsAreFull(t *testing.T) {
	cfg := DefaultConfig()
	bs := NewBeliefStore(cfg, nil)
	for p := 0; p < cfg.N; p++ {
		for j := 0; j < cfg.L; j++ {
			if bs.GetDomain(p, j).Count() != cfg.Universe().Size() {
				t.Errorf("slot (%d,%d) domain not full at init", p, j)
			}
		}
	}
}

func TestBeliefStoreSetDomainMarksDirty(t *testing.T) {
	cfg := DefaultConfig()
	bs := NewBeliefStore(cfg, nil)
	u := cfg.Universe()

	changed := bs.SetDomain(0, 0, NewValueSet(u, 1))
	if !changed {
		t.Fatal("expected SetDomain to report a change")
	}
	if !bs.Dirty(0, 0) {
		t.Error("expected slot (0,0) to be dirty")
	}
	bs.ClearDirty()
	if bs.Dirty(0, 0) {
		t.Error("ClearDirty did not clear the bit")
	}

	same := bs.SetDomain(0, 0, NewValueSet(u, 1))
	if same {
		t.Error("setting the same domain should report no change")
	}
}

func TestBeliefStoreMarkRevealedVsCertain(t *testing.T) {
	cfg := DefaultConfig()
	bs := NewBeliefStore(cfg, nil)
	v := cfg.Universe().ValueAt(0)

	bs.MarkCertain(0, 0, v)
	if !bs.IsCertain(0, 0) || bs.IsRevealed(0, 0) {
		t.Error("MarkCertain should set certain, not revealed")
	}

	bs.MarkRevealed(0, 1, v)
	if !bs.IsRevealed(0, 1) || bs.IsCertain(0, 1) {
		t.Error("MarkRevealed should set revealed, not certain")
	}
}

func TestBeliefStoreAbsentAndCalled(t *testing.T) {
	cfg := DefaultConfig()
	bs := NewBeliefStore(cfg, nil)
	v := cfg.Universe().ValueAt(0)

	bs.RecordAbsent(1, v)
	if !bs.IsAbsent(1, v) {
		t.Error("expected value recorded absent")
	}

	bs.AdjustCalledFloating(1, v, 1)
	if bs.CalledFloating(1, v) != 1 {
		t.Errorf("CalledFloating = %d, want 1", bs.CalledFloating(1, v))
	}
	bs.AdjustCalledFloating(1, v, -1)
	if bs.CalledFloating(1, v) != 0 {
		t.Errorf("CalledFloating = %d, want 0 after decrementing to zero", bs.CalledFloating(1, v))
	}
}

func TestBeliefStoreCloneIsIndependent(t *testing.T) {
	cfg := DefaultConfig()
	bs := NewBeliefStore(cfg, nil)
	u := cfg.Universe()
	clone := bs.Clone()

	bs.SetDomain(0, 0, NewValueSet(u, 1))
	if clone.GetDomain(0, 0).Count() != u.Size() {
		t.Error("mutating the original affected the clone's domain")
	}
}

func TestBeliefStoreIsWin(t *testing.T) {
	cfg := DefaultConfig()
	bs := NewBeliefStore(cfg, nil)
	u := cfg.Universe()
	if bs.IsWin() {
		t.Fatal("a freshly initialized store should not be a win")
	}
	for p := 0; p < cfg.N; p++ {
		for j := 0; j < cfg.L; j++ {
			bs.SetDomain(p, j, NewValueSet(u, u.ValueAt(0)))
		}
	}
	if !bs.IsWin() {
		t.Fatal("every slot is a singleton; expected IsWin to be true")
	}
}

func TestBeliefStoreOwnHand(t *testing.T) {
	cfg := DefaultConfig()
	hands := make([][]Value, cfg.N)
	hands[0] = []Value{1, 1, 2, 3}
	bs := NewBeliefStore(cfg, hands)
	if got := bs.OwnHand(0); len(got) != 4 || got[0] != 1 {
		t.Errorf("OwnHand(0) = %v, want [1 1 2 3]", got)
	}
	if got := bs.OwnHand(1); got != nil {
		t.Errorf("OwnHand(1) = %v, want nil", got)
	}
}
