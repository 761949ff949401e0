// layer.go - Test-Time-Training-Layer: Attention-Ersatz mit
// Online-Gradientenabstieg pro Token
//
// Enthaelt:
// - State: der pro-Sequenz W_state, gonum-gestuetzt
// - Layer: proj_down/proj_up plus innere Lernrate
// - Forward: fuehrt Schritt 1-6 exakt in der spezifizierten Reihenfolge aus
package ttt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/bitllama/engine/ml"
	"github.com/bitllama/engine/nn"
)

// ConfigError reports a fatal, load-time-detectable misconfiguration
// of a TTT layer (as opposed to a runtime data error).
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("ttt: invalid config field %s: %s", e.Field, e.Reason)
}

// Layer implements the per-token self-supervised update in place of
// attention. ProjDown maps hidden_dim -> inner_dim (the feature space
// the online objective reconstructs); ProjUp maps inner_dim back to
// hidden_dim for the residual branch.
type Layer struct {
	ProjDown *nn.BitLinear // [inner, hidden]
	ProjUp   *nn.BitLinear // [hidden, inner]
	InnerLR  float32
}

// Validate checks the innner learning rate is a finite, sane value at
// model-load time, before any sequence starts consuming this layer.
func (l *Layer) Validate() error {
	if math.IsNaN(float64(l.InnerLR)) || math.IsInf(float64(l.InnerLR), 0) {
		return &ConfigError{Field: "inner_lr", Reason: "must be finite"}
	}
	return nil
}

// InnerDim returns the dimension of the online-learned state matrix.
func (l *Layer) InnerDim() int { return l.ProjDown.OutDim() }

// State holds one sequence's W_state matrix as a gonum mat.Dense. The
// update/read operations (outer product, matrix-vector) run through the
// backend's ml.Tensor kernels on a copy of W, which Forward writes back.
type State struct {
	W *mat.Dense // [inner, inner]
}

// NewState allocates a zeroed W_state for a fresh sequence.
func NewState(inner int) *State {
	return &State{W: mat.NewDense(inner, inner, nil)}
}

// Reset zeroes W_state in place, so a State can be reused for a new
// generation run without reallocating.
func (s *State) Reset() {
	s.W.Zero()
}

// Forward performs one token's worth of the TTT update and returns the
// layer's output contribution y_inner (pre-ProjUp), following this step
// order exactly:
//
//  1. f = ProjDown(x_t)
//  2. f = L2Norm(f)
//  3. pred = W_state · f          (read BEFORE update, used only for error)
//  4. error = pred - f
//  5. grad = error ⊗ f
//  6. W_state -= inner_lr * grad
//  7. y_inner = W_state · f        (re-read AFTER update)
//
// Step 7 reads the state after applying the update, so a token
// immediately observes its own update rather than the pre-update
// prediction.
// If ‖f‖ is exactly zero (a degenerate all-zero projection), the
// update is skipped entirely and y_inner is the zero vector, since a
// zero-norm feature carries no gradient signal and normalizing it
// would divide by zero.
func (l *Layer) Forward(ctx ml.Context, state *State, x ml.Tensor) ml.Tensor {
	f := l.ProjDown.Forward(ctx, x)

	var normSq float64
	for _, v := range f.Floats() {
		normSq += float64(v) * float64(v)
	}
	if normSq == 0 {
		inner := l.InnerDim()
		return ctx.Zeros(ml.DTypeF32, inner)
	}

	f = f.L2Norm(ctx, 0)

	wTensor := matToTensor(ctx, state.W)
	pred := wTensor.Matvec(ctx, f)
	errVec := pred.Sub(ctx, f)
	grad := errVec.Outer(ctx, f)

	scaledGrad := grad.Scale(ctx, float64(l.InnerLR))
	newW := wTensor.Sub(ctx, scaledGrad)
	tensorToMat(newW, state.W)

	yInner := newW.Matvec(ctx, f)
	return yInner
}

func matToTensor(ctx ml.Context, m *mat.Dense) ml.Tensor {
	rows, cols := m.Dims()
	data := make([]float32, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			data[r*cols+c] = float32(m.At(r, c))
		}
	}
	return ctx.FromFloats(data, rows, cols)
}

func tensorToMat(t ml.Tensor, m *mat.Dense) {
	rows, cols := t.Shape()[0], t.Shape()[1]
	data := t.Floats()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m.Set(r, c, float64(data[r*cols+c]))
		}
	}
}
