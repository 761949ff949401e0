// backend.go - Backend-Interface und Registrierung
// Dieses Modul definiert das Backend-Interface und die Backend-Factory,
// analog zum Teacher-Muster (RegisterBackend + Factory-Map statt
// Klassenhierarchie), aber getrimmt auf Host/Accelerator statt GGML.
package ml

import "fmt"

// Backend represents a compute backend a model's tensors run on: the
// pure-Go host kernels, or a (possibly simulated) accelerator.
type Backend interface {
	Close()

	NewContext() Context
	NewContextSize(size int) Context

	// Name identifies the backend for logging and DeviceMap decisions.
	Name() string
}

// BackendParams controls how a backend is constructed.
type BackendParams struct {
	// NumThreads sets the row-parallelism fan-out for host kernels.
	NumThreads int
}

var backends = make(map[string]func(BackendParams) (Backend, error))

// RegisterBackend registers a backend factory function under name.
// Panics on duplicate registration, a fail-fast init-time contract.
func RegisterBackend(name string, f func(BackendParams) (Backend, error)) {
	if _, ok := backends[name]; ok {
		panic("ml: backend already registered: " + name)
	}
	backends[name] = f
}

// NewBackend constructs the named backend ("cpu" or "sim").
func NewBackend(name string, params BackendParams) (Backend, error) {
	f, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("ml: unsupported backend %q", name)
	}
	return f(params)
}

// DeviceMap records, per layer index, whether that layer's weights and
// activations live on the host or the accelerator. The embedding and
// LM head are placed independently of the transformer stack, in their
// own Embedding and LMHead fields.
type DeviceMap struct {
	Layers    []Device
	Embedding Device
	LMHead    Device
}

// LayerDevice returns the placement for layer i, defaulting to host if
// the map doesn't cover it.
func (m DeviceMap) LayerDevice(i int) Device {
	if i < 0 || i >= len(m.Layers) {
		return DeviceHost
	}
	return m.Layers[i]
}
