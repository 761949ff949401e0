// sequence.go - Sequenz-Handle: pro-Layer TTT-Zustand plus Bucchhaltung
//
// Enthaelt:
// - Sequence: haelt die pro-Layer TTTState-Objekte und den Verlauf
// - NewSequence/Reset
package runner

import (
	"github.com/google/uuid"

	"github.com/bitllama/engine/model"
)

// Sequence is a single generation stream's mutable state: the model's
// per-layer state handles (opaque to runner) plus bookkeeping the
// generation loop needs (token count).
type Sequence struct {
	ID uuid.UUID

	states    []model.LayerState
	numTokens int
}

// StateAware is implemented by a model.Model that carries per-layer
// state a sequence must own for the life of a generation run.
type StateAware interface {
	NewSequenceState() []model.LayerState
}

// NewSequence allocates a fresh handle with zeroed per-layer state.
func NewSequence(m StateAware) *Sequence {
	return &Sequence{ID: uuid.New(), states: m.NewSequenceState()}
}

// Reset clears token bookkeeping and replaces the per-layer state
// with a freshly allocated, zeroed set from m, keeping the same ID.
func (s *Sequence) Reset(m StateAware) {
	s.states = m.NewSequenceState()
	s.numTokens = 0
}

// States exposes the layer states for Model.ForwardOne.
func (s *Sequence) States() []model.LayerState { return s.states }
