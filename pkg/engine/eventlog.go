package engine

// EventLog is the append-only ordered record of public actions (spec
// §4.7). Replaying it from an empty BeliefStore/ValueTracker (with
// own-hand singletons restored if persisted) reproduces the current
// state bit-exactly, provided Swap events carry their realized values —
// the log is the sole source of truth for Markovian reconstruction.
type EventLog struct {
	events []Event
}

// NewEventLog returns an empty log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append records ev as the next event in submission order.
func (l *EventLog) Append(ev Event) {
	l.events = append(l.events, ev)
}

// Events returns every recorded event, in order.
func (l *EventLog) Events() []Event {
	return append([]Event(nil), l.events...)
}

// Len returns the number of recorded events.
func (l *EventLog) Len() int { return len(l.events) }

// At returns the event at index i.
func (l *EventLog) At(i int) Event { return l.events[i] }

// Replay rebuilds belief state by feeding every recorded event through
// apply, in order, stopping at the first error (spec §8 property 5:
// "replay determinism"). The caller supplies apply (typically
// Orchestrator.Apply) so EventLog stays decoupled from Orchestrator.
func (l *EventLog) Replay(apply func(Event) error) error {
	for _, ev := range l.events {
		if err := apply(ev); err != nil {
			return err
		}
	}
	return nil
}

// Truncate drops every event from index i onward, used to roll the log
// back to the last known-good event after a contradiction (spec §7:
// "caller restores via EventLog replay").
func (l *EventLog) Truncate(i int) {
	l.events = l.events[:i]
}
