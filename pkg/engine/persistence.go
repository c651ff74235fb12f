package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Snapshot is the minimal persisted schema spec §6.4 names: config,
// own_hands, event_log. Replaying the event log against a fresh
// Orchestrator built from Config/OwnHands reconstructs current state;
// nothing else needs to be stored since belief state is a pure function
// of those three inputs (spec §8 property 5, replay determinism).
//
// JSON is the one place this package reaches for the standard library
// over a third-party codec: the schema is small, flat, and consumed only
// by this package and the CLI driver, so there's no wire-format,
// cross-service, or performance pressure that would justify a
// dependency here (see the persistence entry in DESIGN.md).
type Snapshot struct {
	Config   *Config   `json:"config"`
	OwnHands [][]Value `json:"own_hands,omitempty"`
	Events   []Event   `json:"event_log"`
}

// NewSnapshot captures o's current config, ground-truth hands (if any),
// and event log.
func NewSnapshot(o *Orchestrator) *Snapshot {
	var ownHands [][]Value
	hasAny := false
	for p := 0; p < o.cfg.N; p++ {
		h := o.bs.OwnHand(p)
		if h != nil {
			hasAny = true
		}
	}
	if hasAny {
		ownHands = make([][]Value, o.cfg.N)
		for p := 0; p < o.cfg.N; p++ {
			ownHands[p] = o.bs.OwnHand(p)
		}
	}
	return &Snapshot{
		Config:   o.cfg,
		OwnHands: ownHands,
		Events:   o.log.Events(),
	}
}

// Save writes the snapshot to path as JSON.
func (s *Snapshot) Save(path string) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("engine: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("engine: write snapshot %s: %w", path, err)
	}
	return nil
}

// LoadSnapshot reads a snapshot previously written by Save.
func LoadSnapshot(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("engine: read snapshot %s: %w", path, err)
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("engine: parse snapshot %s: %w", path, err)
	}
	if err := s.Config.finalize(); err != nil {
		return nil, fmt.Errorf("engine: snapshot %s has invalid config: %w", path, err)
	}
	return &s, nil
}

// RestoreOrchestrator builds a fresh Orchestrator from the snapshot's
// config and own-hands, then replays every logged event through it,
// reproducing the state at the time of Save (spec §8 property 5; §4.7
// "replaying the log reproduces current state bit-exactly").
func RestoreOrchestrator(ctx context.Context, s *Snapshot) (*Orchestrator, error) {
	o := NewOrchestrator(s.Config, s.OwnHands)
	for _, ev := range s.Events {
		if err := o.Apply(ctx, ev); err != nil {
			return o, err
		}
	}
	return o, nil
}
