package envconfig

import (
	"log/slog"
	"testing"
)

func TestNumThreadsDefaultsToNumCPU(t *testing.T) {
	t.Setenv("BITLLAMA_NUM_THREADS", "")
	if NumThreads() == 0 {
		t.Error("NumThreads() = 0, want a positive default")
	}
}

func TestNumThreadsHonorsOverride(t *testing.T) {
	t.Setenv("BITLLAMA_NUM_THREADS", "3")
	if got := NumThreads(); got != 3 {
		t.Errorf("NumThreads() = %d, want 3", got)
	}
}

func TestLogLevelDefaultsToInfo(t *testing.T) {
	t.Setenv("BITLLAMA_LOG_LEVEL", "")
	if got := LogLevel(); got != slog.LevelInfo {
		t.Errorf("LogLevel() = %v, want Info", got)
	}
}

func TestLogLevelParsesDebug(t *testing.T) {
	t.Setenv("BITLLAMA_LOG_LEVEL", "debug")
	if got := LogLevel(); got != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, want Debug", got)
	}
}

func TestCacheDirHonorsOverride(t *testing.T) {
	t.Setenv("BITLLAMA_CACHE_DIR", "/tmp/bitllama-models")
	if got := CacheDir(); got != "/tmp/bitllama-models" {
		t.Errorf("CacheDir() = %q, want /tmp/bitllama-models", got)
	}
}

func TestVarTrimsQuotesAndWhitespace(t *testing.T) {
	t.Setenv("BITLLAMA_TEST_VAR", "  \"hello\"  ")
	if got := Var("BITLLAMA_TEST_VAR"); got != "hello" {
		t.Errorf("Var() = %q, want %q", got, "hello")
	}
}
