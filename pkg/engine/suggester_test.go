package engine

import "testing"

func TestRankCallsSkipsRevealedAndSelf(t *testing.T) {
	cfg := smallConfig(t)
	bs := NewBeliefStore(cfg, nil)
	bs.MarkRevealed(1, 0, 1)

	s := NewSuggester(cfg, bs)
	suggestions := s.RankCalls(0)
	for _, sugg := range suggestions {
		if sugg.Target == 0 {
			t.Error("RankCalls should never suggest calling oneself")
		}
		if sugg.Target == 1 && sugg.Position == 0 {
			t.Error("RankCalls should skip an already-revealed slot")
		}
	}
}

func TestRankCallsOrdersByCertaintyThenEntropy(t *testing.T) {
	cfg := smallConfig(t)
	bs := NewBeliefStore(cfg, nil)
	u := cfg.Universe()
	// Narrow (1,1) to a singleton so it should rank first (certainty 1.0).
	bs.SetDomain(1, 1, NewValueSet(u, 2))

	s := NewSuggester(cfg, bs)
	suggestions := s.RankCalls(0)
	if len(suggestions) == 0 {
		t.Fatal("expected at least one suggestion")
	}
	if suggestions[0].Certainty != 1.0 {
		t.Errorf("expected the singleton slot ranked first, got certainty %v", suggestions[0].Certainty)
	}
	for i := 1; i < len(suggestions); i++ {
		if suggestions[i].Certainty > suggestions[i-1].Certainty {
			t.Error("suggestions are not sorted by descending certainty")
		}
		if suggestions[i].Certainty == suggestions[i-1].Certainty && suggestions[i].Entropy < suggestions[i-1].Entropy {
			t.Error("suggestions with equal certainty are not sorted by ascending entropy")
		}
	}
}

func TestRankCallsDoubleChance(t *testing.T) {
	cfg := smallConfig(t)
	hands := make([][]Value, cfg.N)
	hands[0] = []Value{1, 2, 3}
	bs := NewBeliefStore(cfg, hands)
	u := cfg.Universe()
	bs.SetDomain(1, 0, NewValueSet(u, 2))

	s := NewSuggester(cfg, bs)
	suggestions := s.RankCalls(0)
	found := false
	for _, sugg := range suggestions {
		if sugg.Target == 1 && sugg.Position == 0 {
			found = true
			if !sugg.DoubleChance || sugg.CallerPosition != 1 {
				t.Errorf("expected double-chance at caller position 1, got %+v", sugg)
			}
		}
	}
	if !found {
		t.Fatal("expected a suggestion for (target=1, position=0)")
	}
}

func TestDomainEntropyMonotone(t *testing.T) {
	u := testUniverse()
	single := NewValueSet(u, 1)
	if domainEntropy(single) != 0 {
		t.Errorf("entropy of a singleton domain should be 0, got %v", domainEntropy(single))
	}
	wide := FullValueSet(u)
	if domainEntropy(wide) <= domainEntropy(single) {
		t.Error("a wider domain should have strictly higher entropy")
	}
}
