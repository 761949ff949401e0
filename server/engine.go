// engine.go - geladenes Modell hinter Mutex, fuer HTTP-Handler geteilt
//
// Enthaelt: Engine, Load. Gegroundet auf runner/ollamarunner's
// Trennung von "was ist geladen" und "wie wird bedient" (hier: gin
// statt net/http+ServeMux, da server/ des Lehrers gin verwendet).
package server

import (
	"fmt"
	"sync"

	"github.com/bitllama/engine/fs/bitfile"
	"github.com/bitllama/engine/ml"
	"github.com/bitllama/engine/model/bitllama"
	"github.com/bitllama/engine/tokenizer"
	"github.com/bitllama/engine/tokenizer/bytelevel"
)

// Engine holds the currently loaded model, if any, guarded by mu so
// concurrent /generate requests never race a concurrent /load.
type Engine struct {
	mu sync.RWMutex

	weightsPath string
	model       *bitllama.Model
	deviceMap   ml.DeviceMap
	tok         tokenizer.Tokenizer

	numThreads int
}

// NewEngine returns an Engine with no model loaded yet.
func NewEngine(numThreads int) *Engine {
	return &Engine{numThreads: numThreads, tok: bytelevel.New()}
}

// Load reads and validates a weight file, replacing any previously
// loaded model. It is safe to call while /generate requests are
// in flight for the old model; they keep using the old *bitllama.Model
// value they already captured. The old model's Close is deliberately
// never called here: its host-resident tensors may still be read by
// those in-flight requests, and Engine has no way to know when the
// last one finishes. Its file descriptor and mapping are reclaimed
// when the process exits.
func (e *Engine) Load(path string, acceleratorFreeBytes int64) error {
	m, deviceMap, tokenizerBlob, err := bitfile.Load(path, bitfile.LoadOptions{
		NumThreads:           e.numThreads,
		AcceleratorFreeBytes: acceleratorFreeBytes,
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.weightsPath = path
	e.model = m
	e.deviceMap = deviceMap
	e.tok = bytelevel.NewFromBlob(tokenizerBlob)
	return nil
}

// Snapshot returns the currently loaded model and tokenizer, or an
// error if nothing has been loaded yet.
func (e *Engine) Snapshot() (*bitllama.Model, tokenizer.Tokenizer, string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.model == nil {
		return nil, nil, "", fmt.Errorf("server: no model loaded, POST /load first")
	}
	return e.model, e.tok, e.weightsPath, nil
}
