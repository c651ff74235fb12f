package engine

import "testing"

func TestNewEventIDIsUnique(t *testing.T) {
	a := NewEventID()
	b := NewEventID()
	if a == "" || b == "" {
		t.Fatal("expected non-empty event ids")
	}
	if a == b {
		t.Error("expected two freshly minted event ids to differ")
	}
}

func TestNewCallEventFields(t *testing.T) {
	ev := NewCallEvent(0, 1, 2, 3, true, 1)
	if ev.Kind != EventCall {
		t.Errorf("Kind = %v, want EventCall", ev.Kind)
	}
	if ev.Caller != 0 || ev.Target != 1 || ev.Position != 2 || ev.Value != 3 || !ev.Success || ev.CallerPosition != 1 {
		t.Errorf("unexpected call event: %+v", ev)
	}
	if ev.ID == "" {
		t.Error("expected a non-empty generated ID")
	}
}

func TestNewSwapEventFields(t *testing.T) {
	ev := NewSwapEvent(0, 1, 2, 3, 3, 2, 5, 6)
	if ev.Kind != EventSwap {
		t.Errorf("Kind = %v, want EventSwap", ev.Kind)
	}
	if ev.P1 != 0 || ev.P2 != 1 || ev.FinalPos1 != 3 || ev.FinalPos2 != 2 || ev.Value1 != 5 || ev.Value2 != 6 {
		t.Errorf("unexpected swap event: %+v", ev)
	}
}

func TestNewSignalEvents(t *testing.T) {
	certain := NewSignalCertainEvent(0, 1, 4)
	if certain.Kind != EventSignalCertain || certain.Player != 0 || certain.Pos1 != 1 || certain.Value != 4 {
		t.Errorf("unexpected signal-certain event: %+v", certain)
	}

	absent := NewSignalAbsentEvent(0, 2)
	if absent.Kind != EventSignalAbsent || absent.Player != 0 || absent.Value != 2 {
		t.Errorf("unexpected signal-absent event: %+v", absent)
	}

	copyCount := NewSignalCopyCountEvent(0, 1, 2)
	if copyCount.Kind != EventSignalCopyCount || copyCount.Pos1 != 1 || copyCount.Class != 2 {
		t.Errorf("unexpected signal-copy-count event: %+v", copyCount)
	}

	adjacency := NewSignalAdjacencyEvent(0, 1, RelationEQ)
	if adjacency.Kind != EventSignalAdjacency || adjacency.Relation != RelationEQ {
		t.Errorf("unexpected signal-adjacency event: %+v", adjacency)
	}
}
