// Package model - Model-Interface und Initialisierung
//
// Dieses Paket definiert das Model-Interface und stellt Funktionen
// zur Initialisierung und Verwaltung von ML-Modellen bereit.
//
// Hauptkomponenten:
// - Model: Interface fuer die Bit-Llama-Architektur
// - Base: Basis-Implementierung fuer gemeinsame Funktionalitaet
// - New: Erstellt neue Model-Instanzen aus bereits dekodierten Tensoren
//   (das Oeffnen der Gewichtsdatei uebernimmt fs/bitfile.Load)
// - Register: Registriert Modell-Konstruktoren
package model

import (
	"errors"
	"fmt"

	"github.com/bitllama/engine/ml"
)

// Fehler-Definitionen
var (
	ErrUnsupportedModel = errors.New("model: unsupported architecture")
)

// Model is implemented by concrete architectures (currently only
// "bitllama"). ForwardOne advances the model by a single token,
// mutating any per-sequence TTT state it is given.
type Model interface {
	ForwardOne(ctx ml.Context, state []LayerState, tokenID int32) (ml.Tensor, error)

	Backend() ml.Backend
	Config() Config
}

// Validator is an optional interface for post-load sanity checks
// (e.g. a non-finite inner_lr, a vocab size mismatch with the
// embedding table).
type Validator interface {
	Validate() error
}

// LayerState is an opaque per-layer, per-sequence state handle; the
// bitllama architecture stores a *ttt.State here, but model stays
// architecture-agnostic so runner doesn't need to import ttt directly.
type LayerState interface{}

// Base implements the fields every architecture shares.
type Base struct {
	B ml.Backend
	C Config
}

func (m *Base) Backend() ml.Backend { return m.B }
func (m *Base) Config() Config      { return m.C }

var architectures = make(map[string]func(ml.Backend, Config) (Model, error))

// Register registers a model constructor for an architecture name.
func Register(name string, f func(ml.Backend, Config) (Model, error)) {
	if _, ok := architectures[name]; ok {
		panic("model: architecture already registered: " + name)
	}
	architectures[name] = f
}

// New constructs a Model for the named architecture, wiring in the
// already-loaded backend and config (the caller, fs/bitfile.Load,
// owns opening the weight file and building the DeviceMap).
func New(arch string, backend ml.Backend, cfg Config) (Model, error) {
	f, ok := architectures[arch]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, arch)
	}
	m, err := f(backend, cfg)
	if err != nil {
		return nil, err
	}
	if v, ok := m.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return m, nil
}
