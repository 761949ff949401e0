// backend.go - Simulierter Accelerator: Dequant-Cache-Variante
//
// Enthaelt:
// - Backend: registriert unter "sim", steht fuer eine GPU/NPU-artige
//   Ausfuehrungseinheit ohne echte Fremdhardware
// - BitLinear-Kernel, der die ternaere Gewichtsmatrix einmal pro
//   Tensor in ein dichtes Kachel dequantisiert und cached, statt bei
//   jedem Element zu dekodieren (Accelerator/Dequant-cache-Variante)
package sim

import (
	"sync"

	"github.com/bitllama/engine/ml"
	"github.com/bitllama/engine/ternary"
)

func init() {
	ml.RegisterBackend("sim", func(params ml.BackendParams) (ml.Backend, error) {
		numWorkers := params.NumThreads
		if numWorkers <= 0 {
			numWorkers = 4
		}
		return &Backend{numWorkers: numWorkers, dequantCache: map[*ternary.Tensor][]float32{}}, nil
	})
}

// Backend simulates an accelerator device: it does the same math as the
// host backend but materializes each ternary weight into a dense
// float32 tile once (the "dequant-cache" variant from the accelerator
// design) and reuses it across calls, trading memory for avoiding
// repeated 2-bit decode work on every element access.
type Backend struct {
	numWorkers int

	mu           sync.Mutex
	dequantCache map[*ternary.Tensor][]float32
}

func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dequantCache = nil
}

func (b *Backend) Name() string { return "sim" }

func (b *Backend) NewContext() ml.Context {
	return &Context{backend: b}
}

func (b *Backend) NewContextSize(int) ml.Context {
	return &Context{backend: b}
}

func (b *Backend) dequant(t *ternary.Tensor) []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cached, ok := b.dequantCache[t]; ok {
		return cached
	}
	dense := t.Dequant()
	b.dequantCache[t] = dense
	return dense
}

// Context mirrors the host Context but tags every tensor it produces
// with ml.DeviceAccelerator and routes BitLinear through the backend's
// dequant cache.
type Context struct {
	backend *Backend
}

func (c *Context) Input() ml.Context    { return c }
func (c *Context) Layer(int) ml.Context { return c }
func (c *Context) Close()               {}
