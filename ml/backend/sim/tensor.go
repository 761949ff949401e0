// tensor.go - Dichte Tensor-Implementierung fuer den simulierten
// Accelerator. Arithmetik ist identisch zum Host-Backend; nur
// BitLinear unterscheidet sich durch den Dequant-Cache.
package sim

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/bitllama/engine/ml"
	"github.com/bitllama/engine/ternary"
)

type Tensor struct {
	shape   []int
	dtype   ml.DType
	data    []float32
	ternary *ternary.Tensor
	backend *Backend
}

func numel(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func (c *Context) Empty(dtype ml.DType, shape ...int) ml.Tensor {
	return &Tensor{shape: append([]int{}, shape...), dtype: dtype, data: make([]float32, numel(shape)), backend: c.backend}
}

func (c *Context) Zeros(dtype ml.DType, shape ...int) ml.Tensor {
	return c.Empty(dtype, shape...)
}

func (c *Context) FromFloats(s []float32, shape ...int) ml.Tensor {
	if numel(shape) != len(s) {
		panic(fmt.Sprintf("sim: FromFloats got %d values, shape wants %d", len(s), numel(shape)))
	}
	return &Tensor{shape: append([]int{}, shape...), dtype: ml.DTypeF32, data: append([]float32{}, s...), backend: c.backend}
}

func (c *Context) FromTernary(t *ternary.Tensor) ml.Tensor {
	out, in := t.Shape()
	return &Tensor{shape: []int{out, in}, dtype: ml.DTypeTernary2Bit, ternary: t, backend: c.backend}
}

func (t *Tensor) Dim(n int) int        { return t.shape[n] }
func (t *Tensor) Shape() []int         { return t.shape }
func (t *Tensor) DType() ml.DType      { return t.dtype }
func (t *Tensor) Device() ml.Device    { return ml.DeviceAccelerator }
func (t *Tensor) Floats() []float32    { return t.data }

func asSim(t ml.Tensor) *Tensor {
	st, ok := t.(*Tensor)
	if !ok {
		panic("sim: tensor not produced by the sim backend")
	}
	return st
}

func (t *Tensor) Add(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	o := asSim(t2)
	out := make([]float32, len(t.data))
	for i := range out {
		out[i] = t.data[i] + o.data[i]
	}
	return &Tensor{shape: t.shape, dtype: ml.DTypeF32, data: out, backend: t.backend}
}

func (t *Tensor) Sub(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	o := asSim(t2)
	out := make([]float32, len(t.data))
	for i := range out {
		out[i] = t.data[i] - o.data[i]
	}
	return &Tensor{shape: t.shape, dtype: ml.DTypeF32, data: out, backend: t.backend}
}

func (t *Tensor) Mul(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	o := asSim(t2)
	out := make([]float32, len(t.data))
	for i := range out {
		out[i] = t.data[i] * o.data[i]
	}
	return &Tensor{shape: t.shape, dtype: ml.DTypeF32, data: out, backend: t.backend}
}

func (t *Tensor) Scale(ctx ml.Context, s float64) ml.Tensor {
	sf := float32(s)
	out := make([]float32, len(t.data))
	for i, v := range t.data {
		out[i] = v * sf
	}
	return &Tensor{shape: t.shape, dtype: ml.DTypeF32, data: out, backend: t.backend}
}

func (t *Tensor) Reshape(ctx ml.Context, shape ...int) ml.Tensor {
	if numel(shape) != len(t.data) {
		panic("sim: Reshape changes element count")
	}
	return &Tensor{shape: append([]int{}, shape...), dtype: t.dtype, data: t.data, backend: t.backend}
}

func (t *Tensor) Concat(ctx ml.Context, t2 ml.Tensor, dim int) ml.Tensor {
	o := asSim(t2)
	if dim != 0 || len(t.shape) != 1 {
		panic("sim: Concat only supports dim=0 on 1D tensors")
	}
	out := append(append([]float32{}, t.data...), o.data...)
	return &Tensor{shape: []int{len(out)}, dtype: t.dtype, data: out, backend: t.backend}
}

func (t *Tensor) Row(ctx ml.Context, i int) ml.Tensor {
	cols := t.shape[1]
	if t.dtype == ml.DTypeTernary2Bit {
		dense := t.backend.dequant(t.ternary)
		row := append([]float32{}, dense[i*cols:(i+1)*cols]...)
		return &Tensor{shape: []int{cols}, dtype: ml.DTypeF32, data: row, backend: t.backend}
	}
	row := append([]float32{}, t.data[i*cols:(i+1)*cols]...)
	return &Tensor{shape: []int{cols}, dtype: t.dtype, data: row, backend: t.backend}
}

// BitLinear dequantizes the whole weight tensor once (cached on the
// backend) and then does a dense matmul over goroutine-parallel tiles,
// exercising the dequant-cache path required to be numerically
// equivalent (within 1e-3) to the host's streaming BitLinear kernel.
func (t *Tensor) BitLinear(ctx ml.Context, w ml.Tensor) ml.Tensor {
	wt := asSim(w)
	if wt.dtype != ml.DTypeTernary2Bit {
		panic("sim: BitLinear requires a ternary_2bit weight tensor")
	}
	out, in := wt.ternary.Shape()
	dense := t.backend.dequant(wt.ternary)

	switch len(t.shape) {
	case 1:
		return &Tensor{shape: []int{out}, dtype: ml.DTypeF32, data: denseMatvec(dense, t.data, out, in, t.backend.numWorkers), backend: t.backend}
	case 2:
		batch := t.shape[0]
		result := make([]float32, batch*out)
		for b := 0; b < batch; b++ {
			row := denseMatvec(dense, t.data[b*in:(b+1)*in], out, in, t.backend.numWorkers)
			copy(result[b*out:(b+1)*out], row)
		}
		return &Tensor{shape: []int{batch, out}, dtype: ml.DTypeF32, data: result, backend: t.backend}
	default:
		panic("sim: BitLinear supports 1D or 2D inputs only")
	}
}

func denseMatvec(dense, x []float32, out, in, workers int) []float32 {
	result := make([]float32, out)
	if workers < 1 {
		workers = 1
	}
	if workers > out {
		workers = out
	}
	var g errgroup.Group
	chunk := (out + workers - 1) / workers
	for start := 0; start < out; start += chunk {
		start := start
		end := min(start+chunk, out)
		g.Go(func() error {
			for row := start; row < end; row++ {
				var acc float32
				w := dense[row*in : (row+1)*in]
				for c, xv := range x {
					acc += w[c] * xv
				}
				result[row] = acc
			}
			return nil
		})
	}
	_ = g.Wait()
	return result
}

func (t *Tensor) RMSNorm(ctx ml.Context, weight ml.Tensor, eps float32) ml.Tensor {
	w := asSim(weight)
	n := len(t.data)
	var sumSq float64
	for _, v := range t.data {
		sumSq += float64(v) * float64(v)
	}
	rms := float32(math.Sqrt(sumSq/float64(n) + float64(eps)))
	out := make([]float32, n)
	for i, v := range t.data {
		out[i] = (v / rms) * w.data[i]
	}
	return &Tensor{shape: t.shape, dtype: ml.DTypeF32, data: out, backend: t.backend}
}

func (t *Tensor) SILU(ctx ml.Context) ml.Tensor {
	out := make([]float32, len(t.data))
	for i, v := range t.data {
		out[i] = v / (1 + float32(math.Exp(float64(-v))))
	}
	return &Tensor{shape: t.shape, dtype: ml.DTypeF32, data: out, backend: t.backend}
}

func (t *Tensor) L2Norm(ctx ml.Context, eps float32) ml.Tensor {
	var sumSq float64
	for _, v := range t.data {
		sumSq += float64(v) * float64(v)
	}
	norm := float32(math.Sqrt(sumSq)) + eps
	out := make([]float32, len(t.data))
	for i, v := range t.data {
		out[i] = v / norm
	}
	return &Tensor{shape: t.shape, dtype: ml.DTypeF32, data: out, backend: t.backend}
}

func (t *Tensor) Outer(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	o := asSim(t2)
	rows, cols := len(t.data), len(o.data)
	out := make([]float32, rows*cols)
	for i, a := range t.data {
		for j, b := range o.data {
			out[i*cols+j] = a * b
		}
	}
	return &Tensor{shape: []int{rows, cols}, dtype: ml.DTypeF32, data: out, backend: t.backend}
}

func (t *Tensor) Matvec(ctx ml.Context, v ml.Tensor) ml.Tensor {
	vt := asSim(v)
	rows, cols := t.shape[0], t.shape[1]
	out := make([]float32, rows)
	for r := 0; r < rows; r++ {
		var acc float32
		row := t.data[r*cols : (r+1)*cols]
		for c, x := range vt.data {
			acc += row[c] * x
		}
		out[r] = acc
	}
	return &Tensor{shape: []int{rows}, dtype: ml.DTypeF32, data: out, backend: t.backend}
}
