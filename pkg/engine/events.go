package engine

import "github.com/google/uuid"

// EventKind discriminates the seven public actions the orchestrator
// consumes (spec §6.2).
type EventKind string

const (
	EventCall            EventKind = "CALL"
	EventDoubleReveal    EventKind = "DOUBLE_REVEAL"
	EventSwap            EventKind = "SWAP"
	EventSignalCertain   EventKind = "SIGNAL_CERTAIN"
	EventSignalAbsent    EventKind = "SIGNAL_ABSENT"
	EventSignalCopyCount EventKind = "SIGNAL_COPY_COUNT"
	EventSignalAdjacency EventKind = "SIGNAL_ADJACENCY"
)

// Event is the single inbound message type the Orchestrator applies.
// Exactly one field group is meaningful per Kind; the rest are left
// zero. This mirrors a tagged union the way the spec's table (§6.2)
// lays fields by event kind, without needing a type switch over distinct
// Go types at every call site.
type Event struct {
	ID   string
	Kind EventKind

	Caller, Target int
	Position       int
	Value          Value
	Success        bool
	// CallerPosition is the position in the caller's own hand holding
	// Value, collapsed alongside D[target][Position] on a successful
	// call (spec §6.2/§8 scenario A: "D[caller][own_pos]={value}"). The
	// spec's event table omits this field; it is supplemented here since
	// the effect cannot be computed without it — only the caller's
	// driver knows which of their own slots justified the call.
	CallerPosition int

	Player int
	Pos1   int
	Pos2   int

	P1, P2                     int
	InitPos1, InitPos2         int
	FinalPos1, FinalPos2       int
	Value1, Value2             Value

	Class    int
	Relation AdjacencyRelation
}

// NewEventID mints a fresh event identifier. The orchestrator calls this
// when the caller doesn't supply one, so every event (including ones
// built programmatically in tests) can be traced through ContradictionError.
func NewEventID() string {
	return uuid.NewString()
}

// NewCallEvent builds a Call event (spec §6.2). callerPosition is only
// meaningful when success is true; pass -1 if the caller's own matching
// position is not being tracked.
func NewCallEvent(caller, target, position int, value Value, success bool, callerPosition int) Event {
	return Event{
		ID: NewEventID(), Kind: EventCall,
		Caller: caller, Target: target, Position: position, Value: value, Success: success,
		CallerPosition: callerPosition,
	}
}

// NewDoubleRevealEvent builds a DoubleReveal event.
func NewDoubleRevealEvent(player int, value Value, pos1, pos2 int) Event {
	return Event{
		ID: NewEventID(), Kind: EventDoubleReveal,
		Player: player, Value: value, Pos1: pos1, Pos2: pos2,
	}
}

// NewSwapEvent builds a Swap event. value1/value2 are the realized values
// each swapped wire held at execution time — required so the log can
// replay deterministically (spec §4.7: "the log MUST store, for a swap,
// the value each swapped wire held at execution time").
func NewSwapEvent(p1, p2, initPos1, initPos2, finalPos1, finalPos2 int, value1, value2 Value) Event {
	return Event{
		ID: NewEventID(), Kind: EventSwap,
		P1: p1, P2: p2,
		InitPos1: initPos1, InitPos2: initPos2,
		FinalPos1: finalPos1, FinalPos2: finalPos2,
		Value1: value1, Value2: value2,
	}
}

// NewSignalCertainEvent builds a Signal-Certain event.
func NewSignalCertainEvent(player, pos int, value Value) Event {
	return Event{ID: NewEventID(), Kind: EventSignalCertain, Player: player, Pos1: pos, Value: value}
}

// NewSignalAbsentEvent builds a Signal-Absent event.
func NewSignalAbsentEvent(player int, value Value) Event {
	return Event{ID: NewEventID(), Kind: EventSignalAbsent, Player: player, Value: value}
}

// NewSignalCopyCountEvent builds a Signal-CopyCount event.
func NewSignalCopyCountEvent(player, pos, class int) Event {
	return Event{ID: NewEventID(), Kind: EventSignalCopyCount, Player: player, Pos1: pos, Class: class}
}

// NewSignalAdjacencyEvent builds a Signal-Adjacency event.
func NewSignalAdjacencyEvent(player, pos int, relation AdjacencyRelation) Event {
	return Event{ID: NewEventID(), Kind: EventSignalAdjacency, Player: player, Pos1: pos, Relation: relation}
}
