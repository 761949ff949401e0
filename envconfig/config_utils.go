// config_utils.go - Export-Funktionen fuer Konfiguration
//
// Dieses Modul enthaelt:
// - EnvVar: Struktur fuer Environment-Variablen-Info
// - AsMap: Gibt alle Konfigurationen als Map zurueck
// - Values: Gibt alle Konfigurationswerte als String-Map zurueck
package envconfig

import "fmt"

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"BITLLAMA_NUM_THREADS": {"BITLLAMA_NUM_THREADS", NumThreads(), "Number of worker threads for CPU kernels (default: number of CPUs)"},
		"BITLLAMA_LOG_LEVEL":   {"BITLLAMA_LOG_LEVEL", LogLevel(), "Log level: debug, info, warn, error (default: info)"},
		"BITLLAMA_CACHE_DIR":   {"BITLLAMA_CACHE_DIR", CacheDir(), "Directory for weight files; weight paths are not resolved against it (default: $HOME/.bitllama/models)"},
	}
}

// Values gibt alle Konfigurationswerte als String-Map zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
