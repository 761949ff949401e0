package sample

import "testing"

func TestGreedyIsDeterministicAndArgmax(t *testing.T) {
	s := New(Config{Temperature: 0})
	logits := []float32{0.1, 5.0, -2.0, 3.0}
	if got := s.Sample(logits); got != 1 {
		t.Errorf("Sample() = %d, want 1 (argmax)", got)
	}
	// repeated calls with temp=0 never consume the RNG and stay stable
	for i := 0; i < 5; i++ {
		if got := s.Sample(logits); got != 1 {
			t.Errorf("Sample() call %d = %d, want 1", i, got)
		}
	}
}

func TestSameSeedProducesSameSequence(t *testing.T) {
	logits := []float32{1, 2, 3, 4, 5}
	cfg := Config{Temperature: 1.0, TopK: 3, TopP: 0.9, Seed: 42}

	a := New(cfg)
	b := New(cfg)

	for i := 0; i < 10; i++ {
		x, y := a.Sample(logits), b.Sample(logits)
		if x != y {
			t.Fatalf("draw %d diverged: %d vs %d for identical seed/config", i, x, y)
		}
	}
}

func TestTopKRestrictsToKHighestLogits(t *testing.T) {
	logits := []float32{10, 9, -100, -100, -100}
	s := New(Config{Temperature: 1.0, TopK: 2, Seed: 1})
	seen := map[int]bool{}
	for i := 0; i < 50; i++ {
		seen[s.Sample(logits)] = true
	}
	for id := range seen {
		if id != 0 && id != 1 {
			t.Errorf("TopK=2 sampled id %d, want only {0,1}", id)
		}
	}
}

func TestTopPNarrowsToNucleus(t *testing.T) {
	// One dominant logit (p≈0.9999 > TopP): the nucleus holds only it,
	// so every draw picks it.
	logits := []float32{10, 0, 0, 0}
	s := New(Config{Temperature: 1.0, TopP: 0.5, Seed: 7})
	for i := 0; i < 20; i++ {
		if got := s.Sample(logits); got != 0 {
			t.Errorf("draw %d = %d, want the dominant candidate 0 under a tight nucleus", i, got)
		}
	}
}
