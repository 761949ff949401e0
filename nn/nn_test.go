package nn

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/bitllama/engine/ml"
	_ "github.com/bitllama/engine/ml/backend/cpu"
	"github.com/bitllama/engine/ternary"
)

func newCtx(t *testing.T) ml.Context {
	t.Helper()
	backend, err := ml.NewBackend("cpu", ml.BackendParams{NumThreads: 2})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	return backend.NewContext()
}

func TestSwiGLUShape(t *testing.T) {
	ctx := newCtx(t)

	gateW, _ := ternary.Pack([]float32{1, -1, 0, 1, -1, 1, 0, -1, 1, -1, 0, 1, -1, 1, 0, -1}, 4, 4)
	upW, _ := ternary.Pack([]float32{1, 0, -1, 1, 0, 1, -1, 1, 1, 0, -1, 1, 0, 1, -1, 1}, 4, 4)
	downW, _ := ternary.Pack([]float32{1, -1, 1, 0, -1, 1, 0, 1, 1, -1, 1, 0, -1, 1, 0, 1}, 4, 4)

	block := &SwiGLU{
		Gate: &BitLinear{Weight: gateW},
		Up:   &BitLinear{Weight: upW},
		Down: &BitLinear{Weight: downW},
	}

	x := ctx.FromFloats([]float32{0.5, -0.5, 1.0, -1.0}, 4)
	out := block.Forward(ctx, x)

	if got, want := out.Shape(), []int{4}; !equalShape(got, want) {
		t.Errorf("SwiGLU output shape = %v, want %v", got, want)
	}
}

func equalShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRMSNormPreservesShape(t *testing.T) {
	ctx := newCtx(t)
	x := ctx.FromFloats([]float32{1, 2, 3, 4}, 4)
	gain := []float32{1, 1, 1, 1}
	norm := &RMSNorm{Gain: gain, Eps: 1e-6}

	out := norm.Forward(ctx, x).Floats()
	if len(out) != 4 {
		t.Fatalf("RMSNorm output length = %d, want 4", len(out))
	}

	var sumSq float64
	for _, v := range out {
		sumSq += float64(v) * float64(v)
	}
	if diff := cmp.Diff(4.0, sumSq, cmpopts.EquateApprox(0, 1e-2)); diff != "" {
		t.Errorf("normalized sum-of-squares mismatch (-want +got):\n%s", diff)
	}
}
