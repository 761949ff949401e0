package config

import "testing"

func TestDefaultIsUsableSamplingConfig(t *testing.T) {
	d := Default()
	if d.Temperature <= 0 || d.Temperature > 2 {
		t.Errorf("Default().Temperature = %v, want a plausible sampling temperature", d.Temperature)
	}
	if d.TopP <= 0 || d.TopP > 1 {
		t.Errorf("Default().TopP = %v, want in (0,1]", d.TopP)
	}
}

func TestLoadNeverErrorsWhenHomeIsResolvable(t *testing.T) {
	// Load falls back to Default() when ~/.bitllama/config.yaml is
	// missing rather than erroring, so a fresh install works unconfigured.
	if _, err := Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	want := Config{Temperature: 0.5, TopK: 10, TopP: 0.9, Seed: 42}
	if err := want.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}
