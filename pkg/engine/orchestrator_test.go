package engine

import (
	"context"
	"testing"
)

func TestOrchestratorApplySignalAbsent(t *testing.T) {
	cfg := smallConfig(t)
	o := NewOrchestrator(cfg, nil)

	ev := NewSignalAbsentEvent(0, 2)
	if err := o.Apply(context.Background(), ev); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if o.Log().Len() != 1 {
		t.Fatalf("Log().Len() = %d, want 1", o.Log().Len())
	}
	for j := 0; j < cfg.L; j++ {
		if o.Beliefs().GetDomain(0, j).Has(2) {
			t.Errorf("slot (0,%d) still admits announced-absent value 2", j)
		}
	}
}

func TestOrchestratorApplySignalCertainRevealsAndUpdatesTracker(t *testing.T) {
	cfg := smallConfig(t)
	o := NewOrchestrator(cfg, nil)

	ev := NewSignalCertainEvent(0, 0, 1)
	if err := o.Apply(context.Background(), ev); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !o.Beliefs().GetDomain(0, 0).IsSingleton() || o.Beliefs().GetDomain(0, 0).SingletonValue() != 1 {
		t.Errorf("expected (0,0) collapsed to {1}, got %v", o.Beliefs().GetDomain(0, 0))
	}
	if o.Tracker().Revealed(1) != 1 {
		t.Errorf("Tracker().Revealed(1) = %d, want 1", o.Tracker().Revealed(1))
	}
}

func TestOrchestratorValidateRejectsUnknownPlayer(t *testing.T) {
	cfg := smallConfig(t)
	o := NewOrchestrator(cfg, nil)

	ev := NewSignalAbsentEvent(99, 1)
	err := o.Apply(context.Background(), ev)
	if err == nil {
		t.Fatal("expected an InvalidEventError for an out-of-range player")
	}
	var invalid *InvalidEventError
	if !errorsAsInvalid(err, &invalid) {
		t.Errorf("expected *InvalidEventError, got %T: %v", err, err)
	}
}

func TestOrchestratorSimulationModeRejectsUntruthfulCall(t *testing.T) {
	cfg := smallConfig(t)
	hands := make([][]Value, cfg.N)
	hands[1] = []Value{1, 1, 2}
	o := NewOrchestrator(cfg, hands)

	// Target (player 1) does not hold value 3 at position 0; claiming
	// success is untruthful in ModeSimulation.
	ev := NewCallEvent(0, 1, 0, 3, true, -1)
	if err := o.Apply(context.Background(), ev); err == nil {
		t.Fatal("expected validation to reject an untruthful call in ModeSimulation")
	}
}

func TestOrchestratorFailedCallIncrementsStrikes(t *testing.T) {
	cfg := smallConfig(t)
	hands := make([][]Value, cfg.N)
	hands[1] = []Value{1, 1, 2}
	o := NewOrchestrator(cfg, hands)

	ev := NewCallEvent(0, 1, 2, 1, false, -1)
	if err := o.Apply(context.Background(), ev); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if o.Strikes() != 1 {
		t.Errorf("Strikes() = %d, want 1", o.Strikes())
	}
}

func TestOrchestratorIsLostAtThreshold(t *testing.T) {
	cfg := smallConfig(t)
	hands := make([][]Value, cfg.N)
	hands[1] = []Value{1, 1, 2}
	o := NewOrchestrator(cfg, hands)

	// Three truthful failed calls against player 1's hand [1 1 2]. Each
	// failed call adds a called copy of its value, so no value is called
	// more often than its r_v=2 copies allow.
	calls := []Event{
		NewCallEvent(0, 1, 2, 3, false, -1),
		NewCallEvent(0, 1, 0, 2, false, -1),
		NewCallEvent(0, 1, 1, 3, false, -1),
	}
	for i := 0; i < cfg.LMax; i++ {
		ev := calls[i]
		if err := o.Apply(context.Background(), ev); err != nil {
			t.Fatalf("Apply strike %d: %v", i, err)
		}
	}
	if !o.IsLost() {
		t.Fatal("expected IsLost() once strikes reach LMax")
	}
}

func TestOrchestratorSignaturesForCachesUntilInvalidated(t *testing.T) {
	cfg := smallConfig(t)
	o := NewOrchestrator(cfg, nil)

	first, err := o.SignaturesFor(0)
	if err != nil {
		t.Fatalf("SignaturesFor: %v", err)
	}
	second, err := o.SignaturesFor(0)
	if err != nil {
		t.Fatalf("SignaturesFor: %v", err)
	}
	if first != second {
		t.Error("expected the cached SignatureSet to be reused when nothing changed")
	}

	if err := o.Apply(context.Background(), NewSignalAbsentEvent(0, 1)); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	third, err := o.SignaturesFor(0)
	if err != nil {
		t.Fatalf("SignaturesFor: %v", err)
	}
	if first == third {
		t.Error("expected the cache to be invalidated after an event affecting player 0")
	}
}

func TestMutateSwapShiftsVacatedDomain(t *testing.T) {
	cfg := smallConfig(t)
	o := NewOrchestrator(cfg, nil)
	u := cfg.Universe()

	// Distinguishable per-slot domains so a shift is visible in the result.
	o.bs.SetDomain(0, 0, NewValueSet(u, 1, 2))
	o.bs.SetDomain(0, 1, NewValueSet(u, 2, 3))
	o.bs.SetDomain(0, 2, NewValueSet(u, 1, 3))
	o.bs.SetDomain(1, 0, NewValueSet(u, 1))

	// P0's wire at position 0 leaves for P1; P1's wire (value 3) lands at
	// P0's position 2, so positions 0 and 1 must shift down one to close
	// the gap left at position 0 (spec §6.2 "re-sort per player").
	ev := NewSwapEvent(0, 1, 0, 0, 2, 0, 1, 3)
	if err := o.mutateSwap(ev); err != nil {
		t.Fatalf("mutateSwap: %v", err)
	}

	if got := o.bs.GetDomain(0, 0); !got.Equal(NewValueSet(u, 2, 3)) {
		t.Errorf("(0,0) = %v, want the old (0,1) domain {2,3} shifted down", got)
	}
	if got := o.bs.GetDomain(0, 1); !got.Equal(NewValueSet(u, 1, 3)) {
		t.Errorf("(0,1) = %v, want the old (0,2) domain {1,3} shifted down", got)
	}
	if d := o.bs.GetDomain(0, 2); !d.IsSingleton() || d.SingletonValue() != 3 {
		t.Errorf("(0,2) = %v, want {3} collapsed by the swap reveal", d)
	}
	if d := o.bs.GetDomain(1, 0); !d.IsSingleton() || d.SingletonValue() != 1 {
		t.Errorf("(1,0) = %v, want {1} collapsed by the swap reveal", d)
	}
}

func TestMutateSwapNoShiftWhenPositionUnchanged(t *testing.T) {
	cfg := smallConfig(t)
	o := NewOrchestrator(cfg, nil)
	u := cfg.Universe()

	o.bs.SetDomain(0, 0, NewValueSet(u, 1, 2))
	o.bs.SetDomain(0, 1, NewValueSet(u, 2, 3))
	o.bs.SetDomain(1, 0, NewValueSet(u, 1, 2))

	ev := NewSwapEvent(0, 1, 0, 0, 0, 0, 1, 2)
	if err := o.mutateSwap(ev); err != nil {
		t.Fatalf("mutateSwap: %v", err)
	}

	// InitPos == FinalPos: nothing to shift, position 1 must be untouched.
	if got := o.bs.GetDomain(0, 1); !got.Equal(NewValueSet(u, 2, 3)) {
		t.Errorf("(0,1) = %v, want the untouched domain {2,3}", got)
	}
	if d := o.bs.GetDomain(0, 0); !d.IsSingleton() || d.SingletonValue() != 2 {
		t.Errorf("(0,0) = %v, want {2} collapsed by the swap reveal", d)
	}
	if d := o.bs.GetDomain(1, 0); !d.IsSingleton() || d.SingletonValue() != 1 {
		t.Errorf("(1,0) = %v, want {1} collapsed by the swap reveal", d)
	}
}

func errorsAsInvalid(err error, target **InvalidEventError) bool {
	e, ok := err.(*InvalidEventError)
	if ok {
		*target = e
	}
	return ok
}
