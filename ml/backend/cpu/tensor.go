// tensor.go - Dichte Tensor-Implementierung fuer das Host-Backend
//
// Enthaelt:
// - Tensor: dichter float32-Tensor mit Shape-Metadaten
// - Konstruktoren (Empty, Zeros, FromFloats, FromTernary)
// - Elementweise Operationen (Add, Sub, Mul, Scale)
package cpu

import (
	"fmt"

	"github.com/bitllama/engine/ml"
	"github.com/bitllama/engine/ternary"
)

// Tensor is a dense row-major float32 buffer with shape metadata, or a
// ternary-packed weight matrix consumed only through BitLinear.
type Tensor struct {
	shape   []int
	dtype   ml.DType
	device  ml.Device
	data    []float32       // valid when dtype != DTypeTernary2Bit
	ternary *ternary.Tensor // valid when dtype == DTypeTernary2Bit
}

func numel(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func (c *Context) Empty(dtype ml.DType, shape ...int) ml.Tensor {
	return &Tensor{shape: append([]int{}, shape...), dtype: dtype, data: make([]float32, numel(shape))}
}

func (c *Context) Zeros(dtype ml.DType, shape ...int) ml.Tensor {
	return c.Empty(dtype, shape...)
}

func (c *Context) FromFloats(s []float32, shape ...int) ml.Tensor {
	if numel(shape) != len(s) {
		panic(fmt.Sprintf("cpu: FromFloats got %d values, shape wants %d", len(s), numel(shape)))
	}
	data := append([]float32{}, s...)
	return &Tensor{shape: append([]int{}, shape...), dtype: ml.DTypeF32, data: data}
}

func (c *Context) FromTernary(t *ternary.Tensor) ml.Tensor {
	out, in := t.Shape()
	return &Tensor{shape: []int{out, in}, dtype: ml.DTypeTernary2Bit, ternary: t}
}

func (t *Tensor) Dim(n int) int    { return t.shape[n] }
func (t *Tensor) Shape() []int     { return t.shape }
func (t *Tensor) DType() ml.DType  { return t.dtype }
func (t *Tensor) Device() ml.Device { return t.device }
func (t *Tensor) Floats() []float32 { return t.data }

func (t *Tensor) checkSameShape(op string, t2 *Tensor) {
	if len(t.shape) != len(t2.shape) {
		panic(fmt.Sprintf("cpu: %s shape rank mismatch %v vs %v", op, t.shape, t2.shape))
	}
	for i := range t.shape {
		if t.shape[i] != t2.shape[i] {
			panic(fmt.Sprintf("cpu: %s shape mismatch %v vs %v", op, t.shape, t2.shape))
		}
	}
}

func asCPU(t ml.Tensor) *Tensor {
	ct, ok := t.(*Tensor)
	if !ok {
		panic("cpu: tensor not produced by the cpu backend")
	}
	return ct
}

func (t *Tensor) Add(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	o := asCPU(t2)
	t.checkSameShape("Add", o)
	out := make([]float32, len(t.data))
	for i := range out {
		out[i] = t.data[i] + o.data[i]
	}
	return &Tensor{shape: t.shape, dtype: t.dtype, data: out}
}

func (t *Tensor) Sub(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	o := asCPU(t2)
	t.checkSameShape("Sub", o)
	out := make([]float32, len(t.data))
	for i := range out {
		out[i] = t.data[i] - o.data[i]
	}
	return &Tensor{shape: t.shape, dtype: t.dtype, data: out}
}

func (t *Tensor) Mul(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	o := asCPU(t2)
	t.checkSameShape("Mul", o)
	out := make([]float32, len(t.data))
	for i := range out {
		out[i] = t.data[i] * o.data[i]
	}
	return &Tensor{shape: t.shape, dtype: t.dtype, data: out}
}

func (t *Tensor) Scale(ctx ml.Context, s float64) ml.Tensor {
	out := make([]float32, len(t.data))
	sf := float32(s)
	for i, v := range t.data {
		out[i] = v * sf
	}
	return &Tensor{shape: t.shape, dtype: t.dtype, data: out}
}

func (t *Tensor) Reshape(ctx ml.Context, shape ...int) ml.Tensor {
	if numel(shape) != len(t.data) {
		panic(fmt.Sprintf("cpu: Reshape %v -> %v changes element count", t.shape, shape))
	}
	return &Tensor{shape: append([]int{}, shape...), dtype: t.dtype, data: t.data}
}

func (t *Tensor) Concat(ctx ml.Context, t2 ml.Tensor, dim int) ml.Tensor {
	o := asCPU(t2)
	if dim != 0 || len(t.shape) != 1 {
		panic("cpu: Concat only supports dim=0 on 1D tensors")
	}
	out := make([]float32, 0, len(t.data)+len(o.data))
	out = append(out, t.data...)
	out = append(out, o.data...)
	return &Tensor{shape: []int{len(out)}, dtype: t.dtype, data: out}
}

// Row returns row i of a 2D tensor as a fresh dense 1D tensor. For a
// ternary-packed tensor (e.g. an embedding table) this dequantizes
// only that row rather than the whole matrix, since a single token
// lookup never needs the rest of the table.
func (t *Tensor) Row(ctx ml.Context, i int) ml.Tensor {
	if len(t.shape) != 2 {
		panic("cpu: Row requires a 2D tensor")
	}
	cols := t.shape[1]
	if t.dtype == ml.DTypeTernary2Bit {
		row := make([]float32, cols)
		for c := 0; c < cols; c++ {
			row[c] = float32(t.ternary.DequantElement(i, c)) * t.ternary.Scale()
		}
		return &Tensor{shape: []int{cols}, dtype: ml.DTypeF32, data: row}
	}
	row := append([]float32{}, t.data[i*cols:(i+1)*cols]...)
	return &Tensor{shape: []int{cols}, dtype: t.dtype, data: row}
}
