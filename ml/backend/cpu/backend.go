// backend.go - Host-Backend Registrierung und Context-Verwaltung
//
// Enthaelt:
// - Backend: pure-Go Host-Implementierung von ml.Backend
// - Context: Speicherverwaltung fuer Tensor-Allokationen
// - Registrierung unter dem Namen "cpu"
package cpu

import (
	"github.com/bitllama/engine/ml"
)

func init() {
	ml.RegisterBackend("cpu", func(params ml.BackendParams) (ml.Backend, error) {
		numThreads := params.NumThreads
		if numThreads <= 0 {
			numThreads = 1
		}
		return &Backend{numThreads: numThreads}, nil
	})
}

// Backend is the pure-Go host backend: dense float32 tensors, kernels
// parallelized over rows with errgroup instead of a fused GPU kernel.
type Backend struct {
	numThreads int
}

func (b *Backend) Close() {}

func (b *Backend) Name() string { return "cpu" }

func (b *Backend) NewContext() ml.Context {
	return &Context{numThreads: b.numThreads}
}

func (b *Backend) NewContextSize(int) ml.Context {
	return &Context{numThreads: b.numThreads}
}

// Context allocates dense tensors directly on the Go heap; there is no
// arena or graph to reserve because host kernels execute eagerly.
type Context struct {
	numThreads int
}

func (c *Context) Input() ml.Context    { return c }
func (c *Context) Layer(int) ml.Context { return c }
func (c *Context) Close()               {}
