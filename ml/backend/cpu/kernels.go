// kernels.go - Host-Kernel fuer BitLinear, Normen und Aktivierungen
//
// Enthaelt:
// - BitLinear: ternaere Matrix-Vektor-Projektion, zeilenparallel
// - RMSNorm, SILU, L2Norm
// - Outer/Matvec fuer den TTT-Zustandsupdate
package cpu

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/bitllama/engine/ml"
	"github.com/bitllama/engine/ternary"
)

// bitLinearThreads is the row-parallelism fan-out for the BitLinear
// kernel when the context carries no thread count from
// BackendParams.NumThreads.
const bitLinearThreads = 4

// BitLinear computes y = W·x for a ternary-packed weight w (logical
// shape [out,in]) and dense input t (shape [in] or [batch,in]). Each
// output row accumulates conditional add/subtract over the {-1,0,+1}
// codes and the single per-tensor scale is applied once at the end, not
// per multiply-add. Rows are split across goroutines with errgroup.
func (t *Tensor) BitLinear(ctx ml.Context, w ml.Tensor) ml.Tensor {
	wt := asCPU(w)
	if wt.dtype != ml.DTypeTernary2Bit {
		panic("cpu: BitLinear requires a ternary_2bit weight tensor")
	}
	out, in := wt.ternary.Shape()
	threads := bitLinearThreads
	if cc, ok := ctx.(*Context); ok && cc.numThreads > 0 {
		threads = cc.numThreads
	}

	switch len(t.shape) {
	case 1:
		if t.shape[0] != in {
			panic(fmt.Sprintf("cpu: BitLinear input width %d does not match weight in-dim %d", t.shape[0], in))
		}
		return &Tensor{shape: []int{out}, dtype: ml.DTypeF32, data: bitLinearRows(wt.ternary, t.data, out, threads)}
	case 2:
		batch := t.shape[0]
		if t.shape[1] != in {
			panic(fmt.Sprintf("cpu: BitLinear input width %d does not match weight in-dim %d", t.shape[1], in))
		}
		result := make([]float32, batch*out)
		for b := 0; b < batch; b++ {
			row := bitLinearRows(wt.ternary, t.data[b*in:(b+1)*in], out, threads)
			copy(result[b*out:(b+1)*out], row)
		}
		return &Tensor{shape: []int{batch, out}, dtype: ml.DTypeF32, data: result}
	default:
		panic("cpu: BitLinear supports 1D or 2D inputs only")
	}
}

func bitLinearRows(w *ternary.Tensor, x []float32, out int, threads int) []float32 {
	result := make([]float32, out)
	threads = min(threads, out)
	if threads < 1 {
		threads = 1
	}

	var g errgroup.Group
	chunk := (out + threads - 1) / threads
	for start := 0; start < out; start += chunk {
		start := start
		end := min(start+chunk, out)
		g.Go(func() error {
			for row := start; row < end; row++ {
				var acc float32
				for col, xv := range x {
					switch w.DequantElement(row, col) {
					case 1:
						acc += xv
					case -1:
						acc -= xv
					}
				}
				result[row] = acc * w.Scale()
			}
			return nil
		})
	}
	_ = g.Wait()
	return result
}

func (t *Tensor) RMSNorm(ctx ml.Context, weight ml.Tensor, eps float32) ml.Tensor {
	w := asCPU(weight)
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
	return &Tensor{shape: t.shape, dtype: ml.DTypeF32, data: out}
}

func (t *Tensor) SILU(ctx ml.Context) ml.Tensor {
	out := make([]float32, len(t.data))
	for i, v := range t.data {
		out[i] = v / (1 + float32(math.Exp(float64(-v))))
	}
	return &Tensor{shape: t.shape, dtype: ml.DTypeF32, data: out}
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
	return &Tensor{shape: t.shape, dtype: ml.DTypeF32, data: out}
}

// Outer computes the outer product of two 1D tensors, producing a
// [len(t), len(t2)] dense tensor. Used by the TTT layer's gradient.
func (t *Tensor) Outer(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	o := asCPU(t2)
	rows, cols := len(t.data), len(o.data)
	out := make([]float32, rows*cols)
	for i, a := range t.data {
		for j, b := range o.data {
			out[i*cols+j] = a * b
		}
	}
	return &Tensor{shape: []int{rows, cols}, dtype: ml.DTypeF32, data: out}
}

// Matvec multiplies a dense [rows,cols] tensor by a [cols] vector.
func (t *Tensor) Matvec(ctx ml.Context, v ml.Tensor) ml.Tensor {
	vt := asCPU(v)
	if len(t.shape) != 2 || t.shape[1] != vt.shape[0] {
		panic(fmt.Sprintf("cpu: Matvec shape mismatch %v x %v", t.shape, vt.shape))
	}
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
	return &Tensor{shape: []int{rows}, dtype: ml.DTypeF32, data: out}
}
