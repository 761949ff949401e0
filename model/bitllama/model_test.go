package bitllama

import (
	"testing"

	"github.com/bitllama/engine/ml"
	_ "github.com/bitllama/engine/ml/backend/cpu"
	_ "github.com/bitllama/engine/ml/backend/sim"
	"github.com/bitllama/engine/model"
	"github.com/bitllama/engine/ternary"
)

func ternaryWeight(t *testing.T, out, in int) *ternary.Tensor {
	t.Helper()
	src := make([]float32, out*in)
	for i := range src {
		switch i % 3 {
		case 0:
			src[i] = 1
		case 1:
			src[i] = -1
		}
	}
	tt, err := ternary.Pack(src, out, in)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	return tt
}

func buildTestModel(t *testing.T) *Model {
	t.Helper()
	return buildTestModelWithEmbedding(t, false)
}

// buildTestModelWithEmbedding builds a model whose embed.weight is
// either ternary-packed or dense float, matching whatever dtype the
// tensor was marked with on disk.
func buildTestModelWithEmbedding(t *testing.T, denseEmbedding bool) *Model {
	t.Helper()
	const (
		vocab  = 16
		hidden = 8
		inner  = 4
		mlp    = 8
		layers = 2
	)

	var embed RawTensor
	if denseEmbedding {
		embed = RawTensor{Shape: []int{vocab, hidden}, Floats: onesFloat(vocab * hidden)}
	} else {
		embed = RawTensor{Shape: []int{vocab, hidden}, Ternary: ternaryWeight(t, vocab, hidden)}
	}

	weights := map[string]RawTensor{
		"embed.weight":   embed,
		"lm_head.weight": {Shape: []int{vocab, hidden}, Ternary: ternaryWeight(t, vocab, hidden)},
		"norm_f.weight":  {Shape: []int{hidden}, Floats: onesFloat(hidden)},
	}
	for l := 0; l < layers; l++ {
		prefix := layerPrefix(l)
		weights[prefix+"norm1.weight"] = RawTensor{Floats: onesFloat(hidden)}
		weights[prefix+"norm2.weight"] = RawTensor{Floats: onesFloat(hidden)}
		weights[prefix+"ttt.down.weight"] = RawTensor{Ternary: ternaryWeight(t, inner, hidden)}
		weights[prefix+"ttt.up.weight"] = RawTensor{Ternary: ternaryWeight(t, hidden, inner)}
		weights[prefix+"mlp.gate.weight"] = RawTensor{Ternary: ternaryWeight(t, mlp, hidden)}
		weights[prefix+"mlp.up.weight"] = RawTensor{Ternary: ternaryWeight(t, mlp, hidden)}
		weights[prefix+"mlp.down.weight"] = RawTensor{Ternary: ternaryWeight(t, hidden, mlp)}
	}

	hostBackend, err := ml.NewBackend("cpu", ml.BackendParams{NumThreads: 2})
	if err != nil {
		t.Fatalf("cpu backend: %v", err)
	}
	accelBackend, err := ml.NewBackend("sim", ml.BackendParams{NumThreads: 2})
	if err != nil {
		t.Fatalf("sim backend: %v", err)
	}

	cfg := model.Config{VocabSize: vocab, HiddenDim: hidden, InnerDim: inner, NumLayers: layers, MLPHidden: mlp, InnerLR: 0.1, Eps: 1e-6}
	deviceMap := ml.DeviceMap{Layers: []ml.Device{ml.DeviceHost, ml.DeviceAccelerator}}

	m, err := Build(BackendSet{Host: hostBackend, Accelerator: accelBackend}, cfg, deviceMap, weights)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func onesFloat(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func layerPrefix(l int) string {
	return "layers." + itoa(l) + "."
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestForwardOneProducesVocabLogits(t *testing.T) {
	m := buildTestModel(t)
	ctx := m.Backend().NewContext()
	states := m.NewSequenceState()

	logits, err := m.ForwardOne(ctx, states, 3)
	if err != nil {
		t.Fatalf("ForwardOne: %v", err)
	}
	if logits.Shape()[0] != 16 {
		t.Errorf("logits shape = %v, want [16]", logits.Shape())
	}
}

func TestForwardOneWithDenseEmbedding(t *testing.T) {
	m := buildTestModelWithEmbedding(t, true)
	if m.Embedding.Ternary != nil {
		t.Fatal("expected a dense embedding, got a ternary one")
	}
	ctx := m.Backend().NewContext()
	states := m.NewSequenceState()

	logits, err := m.ForwardOne(ctx, states, 3)
	if err != nil {
		t.Fatalf("ForwardOne: %v", err)
	}
	if logits.Shape()[0] != 16 {
		t.Errorf("logits shape = %v, want [16]", logits.Shape())
	}
}

func TestForwardOneRejectsOutOfRangeToken(t *testing.T) {
	m := buildTestModel(t)
	ctx := m.Backend().NewContext()
	states := m.NewSequenceState()

	if _, err := m.ForwardOne(ctx, states, 100); err == nil {
		t.Fatal("ForwardOne should reject an out-of-vocab token id")
	}
}

func TestForwardOneMutatesLayerState(t *testing.T) {
	m := buildTestModel(t)
	ctx := m.Backend().NewContext()
	states := m.NewSequenceState()

	if _, err := m.ForwardOne(ctx, states, 1); err != nil {
		t.Fatalf("ForwardOne: %v", err)
	}
	// Feed the same token again; if TTT state actually updated, logits
	// for a repeat of the same token should differ from the first call.
	first, err := m.ForwardOne(ctx, states, 1)
	if err != nil {
		t.Fatalf("ForwardOne (2nd): %v", err)
	}
	fresh := m.NewSequenceState()
	second, err := m.ForwardOne(ctx, fresh, 1)
	if err != nil {
		t.Fatalf("ForwardOne (fresh state): %v", err)
	}
	same := true
	for i, v := range first.Floats() {
		if v != second.Floats()[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("logits identical across mutated vs fresh TTT state; expected divergence")
	}
}
