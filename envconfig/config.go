// config.go - Haupt-Konfigurationsfunktionen fuer die Engine
//
// Dieses Modul enthaelt:
// - NumThreads: Gibt die Anzahl der CPU-Kernel-Threads zurueck (BITLLAMA_NUM_THREADS)
// - LogLevel: Gibt das Log-Level zurueck (BITLLAMA_LOG_LEVEL)
// - CacheDir: Gibt das Verzeichnis fuer geladene Gewichte zurueck (BITLLAMA_CACHE_DIR)
//
// Weitere Konfigurationen sind ausgelagert:
// - config_utils.go: EnvVar sowie AsMap/Values
package envconfig

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// NumThreads gibt die Anzahl Worker-Threads fuer die CPU-Kernels zurueck.
// Konfigurierbar via BITLLAMA_NUM_THREADS. Default: runtime.NumCPU().
func NumThreads() uint {
	if s := Var("BITLLAMA_NUM_THREADS"); s != "" {
		if n, err := strconv.ParseUint(s, 10, 64); err != nil {
			slog.Warn("invalid environment variable, using default", "key", "BITLLAMA_NUM_THREADS", "value", s)
		} else if n > 0 {
			return uint(n)
		}
	}
	return uint(runtime.NumCPU())
}

// LogLevel gibt das Log-Level zurueck.
// Konfigurierbar via BITLLAMA_LOG_LEVEL (debug, info, warn, error).
// Default: INFO.
func LogLevel() slog.Level {
	switch strings.ToLower(Var("BITLLAMA_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CacheDir gibt das konfigurierte Verzeichnis fuer Gewichtsdateien
// zurueck. Gewichtspfade (run, POST /load) werden nicht gegen dieses
// Verzeichnis aufgeloest. Konfigurierbar via BITLLAMA_CACHE_DIR.
// Default: $HOME/.bitllama/models
func CacheDir() string {
	if s := Var("BITLLAMA_CACHE_DIR"); s != "" {
		return s
	}

	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}

	return filepath.Join(home, ".bitllama", "models")
}

// Var gibt eine Environment-Variable zurueck
// Entfernt fuehrende/trailing Quotes und Leerzeichen
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
