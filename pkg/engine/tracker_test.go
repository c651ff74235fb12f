package engine

import "testing"

func TestValueTrackerInitialState(t *testing.T) {
	cfg := DefaultConfig()
	vt := NewValueTracker(cfg)
	for _, v := range cfg.Universe().All() {
		r, c, cl, u := vt.Counts(v)
		if r != 0 || c != 0 || cl != 0 {
			t.Errorf("value %v: expected zero revealed/certain/called, got %d/%d/%d", v, r, c, cl)
		}
		if u != cfg.Copies(v) {
			t.Errorf("value %v: uncertain = %d, want r_v = %d", v, u, cfg.Copies(v))
		}
	}
}

func TestValueTrackerRevealDecrementsCertain(t *testing.T) {
	cfg := DefaultConfig()
	vt := NewValueTracker(cfg)
	v := cfg.Universe().ValueAt(0)

	if err := vt.DeduceCertain(v); err != nil {
		t.Fatalf("DeduceCertain: %v", err)
	}
	if vt.Certain(v) != 1 {
		t.Fatalf("Certain(v) = %d, want 1", vt.Certain(v))
	}

	if err := vt.Reveal(v, true, false); err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if vt.Revealed(v) != 1 {
		t.Errorf("Revealed(v) = %d, want 1", vt.Revealed(v))
	}
	if vt.Certain(v) != 0 {
		t.Errorf("Certain(v) = %d, want 0 after reveal consumed it", vt.Certain(v))
	}
}

func TestValueTrackerFailCallHonorsAlreadyPossessed(t *testing.T) {
	cfg := DefaultConfig()
	vt := NewValueTracker(cfg)
	v := cfg.Universe().ValueAt(0)

	if err := vt.FailCall(v, true); err != nil {
		t.Fatalf("FailCall: %v", err)
	}
	if vt.Called(v) != 0 {
		t.Errorf("Called(v) = %d, want 0 when already possessed", vt.Called(v))
	}

	if err := vt.FailCall(v, false); err != nil {
		t.Fatalf("FailCall: %v", err)
	}
	if vt.Called(v) != 1 {
		t.Errorf("Called(v) = %d, want 1", vt.Called(v))
	}
}

func TestValueTrackerOverCommitIsContradiction(t *testing.T) {
	cfg := DefaultConfig()
	vt := NewValueTracker(cfg)
	v := cfg.Universe().ValueAt(4) // r_v == 1 in DefaultConfig's multiset

	if err := vt.DeduceCertain(v); err != nil {
		t.Fatalf("first DeduceCertain: %v", err)
	}
	if err := vt.DeduceCertain(v); err == nil {
		t.Fatal("expected a ContradictionError when certain_v exceeds r_v")
	}
}

func TestValueTrackerCloneIsIndependent(t *testing.T) {
	cfg := DefaultConfig()
	vt := NewValueTracker(cfg)
	v := cfg.Universe().ValueAt(0)
	clone := vt.Clone()

	if err := vt.DeduceCertain(v); err != nil {
		t.Fatalf("DeduceCertain: %v", err)
	}
	if clone.Certain(v) != 0 {
		t.Error("mutating the original affected the clone")
	}
}
