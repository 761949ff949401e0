// config.go - Sampling-Defaults aus ~/.bitllama/config.yaml
//
// Enthaelt: Config, Load, Save. Ergaenzt envconfig um Werte, die sich
// nicht sinnvoll ueber Environment-Variablen pro Aufruf setzen lassen
// (Sampling-Defaults fuer die run-Subcommand).
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds per-invocation defaults read from disk so `bitllama run`
// can be invoked without repeating sampling flags every time.
type Config struct {
	Temperature float32 `yaml:"temperature,omitempty"`
	TopK        int     `yaml:"top_k,omitempty"`
	TopP        float32 `yaml:"top_p,omitempty"`
	Seed        int64   `yaml:"seed,omitempty"`
}

// Default returns the built-in fallback used when no config file exists.
func Default() Config {
	return Config{
		Temperature: 0.8,
		TopK:        40,
		TopP:        0.95,
		Seed:        0,
	}
}

// Dir returns ~/.bitllama, the directory holding config.yaml and the
// generation-run history database.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".bitllama"), nil
}

func path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads ~/.bitllama/config.yaml, falling back to Default() when the
// file is absent. Missing fields in a partial file keep their Default().
func Load() (Config, error) {
	cfg := Default()

	p, err := path()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg to ~/.bitllama/config.yaml, creating the directory if
// needed.
func (c Config) Save() error {
	p, err := path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(p, data, 0644)
}
