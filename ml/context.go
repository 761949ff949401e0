// context.go - Context und Tensor Interfaces fuer ML-Operationen
// Dieses Modul definiert die Schnittstellen fuer Tensor-Operationen und
// Compute-Kontexte, getrimmt auf das, was ein BitLinear/TTT-Modell
// tatsaechlich braucht (keine Faltung, kein Attention-Fusion-Kernel).
package ml

import "github.com/bitllama/engine/ternary"

// Context represents an execution scope for tensor allocation. A
// backend hands out one Context per layer plus one for model inputs
// so that memory can be tracked and freed per layer, following the
// teacher's Input()/Layer(n) split.
type Context interface {
	Empty(dtype DType, shape ...int) Tensor
	Zeros(dtype DType, shape ...int) Tensor
	FromFloats(s []float32, shape ...int) Tensor
	FromTernary(t *ternary.Tensor) Tensor

	// Close releases any buffers this context owns.
	Close()

	// Input returns a context appropriate for tensors that are model
	// inputs (token ids, position ids).
	Input() Context

	// Layer returns a context appropriate for intermediate tensors of
	// layer n, so a backend can place per-layer buffers per DeviceMap.
	Layer(n int) Context
}

// Tensor represents a dense multi-dimensional array of activations, or
// a ternary-packed weight matrix accessed through BitLinear.
type Tensor interface {
	Dim(n int) int
	Shape() []int
	DType() DType
	Device() Device

	Floats() []float32

	Add(ctx Context, t2 Tensor) Tensor
	Mul(ctx Context, t2 Tensor) Tensor
	Scale(ctx Context, s float64) Tensor

	// BitLinear projects x (shape [..., in]) through a ternary weight
	// matrix w (logical shape [out, in]), producing [..., out]. w must
	// have been produced by ternary.Pack / loaded from a weight file;
	// backends dispatch on the concrete weight tensor's storage.
	BitLinear(ctx Context, w Tensor) Tensor

	RMSNorm(ctx Context, weight Tensor, eps float32) Tensor
	SILU(ctx Context) Tensor

	Reshape(ctx Context, shape ...int) Tensor
	Concat(ctx Context, t2 Tensor, dim int) Tensor
	Row(ctx Context, i int) Tensor

	// L2Norm normalizes along the last dimension, used by the TTT
	// layer's feature normalization step.
	L2Norm(ctx Context, eps float32) Tensor

	// Outer computes the outer product of two 1D tensors, used by the
	// TTT layer's gradient computation.
	Outer(ctx Context, t2 Tensor) Tensor

	// Matvec multiplies a dense [rows,cols] tensor by a [cols] vector,
	// producing [rows]. Used for the TTT state update/read (W_state·f).
	Matvec(ctx Context, v Tensor) Tensor

	Sub(ctx Context, t2 Tensor) Tensor
}
