package runner

import (
	"testing"

	"github.com/bitllama/engine/ml"
	"github.com/bitllama/engine/model"
	"github.com/bitllama/engine/sample"
	"github.com/bitllama/engine/tokenizer/bytelevel"
)

// fakeModel is a minimal Model that returns fixed logits and records
// the sequence of fed tokens for assertions.
type fakeModel struct {
	fed        []int32
	vocabSize  int
	forwardErr error
}

func (f *fakeModel) ForwardOne(ctx ml.Context, states []model.LayerState, tokenID int32) (ml.Tensor, error) {
	if f.forwardErr != nil {
		return nil, f.forwardErr
	}
	f.fed = append(f.fed, tokenID)
	logits := make([]float32, f.vocabSize)
	logits[int(tokenID)%f.vocabSize] = 100 // greedy sampler always repeats last fed token
	return &fakeTensor{data: logits}, nil
}

func (f *fakeModel) NewSequenceState() []model.LayerState {
	return []model.LayerState{struct{}{}}
}

type fakeTensor struct{ data []float32 }

func (t *fakeTensor) Dim(int) int          { return len(t.data) }
func (t *fakeTensor) Shape() []int         { return []int{len(t.data)} }
func (t *fakeTensor) DType() ml.DType      { return ml.DTypeF32 }
func (t *fakeTensor) Device() ml.Device    { return ml.DeviceHost }
func (t *fakeTensor) Floats() []float32    { return t.data }
func (t *fakeTensor) Add(ml.Context, ml.Tensor) ml.Tensor    { panic("unused") }
func (t *fakeTensor) Mul(ml.Context, ml.Tensor) ml.Tensor    { panic("unused") }
func (t *fakeTensor) Sub(ml.Context, ml.Tensor) ml.Tensor    { panic("unused") }
func (t *fakeTensor) Scale(ml.Context, float64) ml.Tensor    { panic("unused") }
func (t *fakeTensor) BitLinear(ml.Context, ml.Tensor) ml.Tensor { panic("unused") }
func (t *fakeTensor) RMSNorm(ml.Context, ml.Tensor, float32) ml.Tensor { panic("unused") }
func (t *fakeTensor) SILU(ml.Context) ml.Tensor              { panic("unused") }
func (t *fakeTensor) Reshape(ml.Context, ...int) ml.Tensor   { panic("unused") }
func (t *fakeTensor) Concat(ml.Context, ml.Tensor, int) ml.Tensor { panic("unused") }
func (t *fakeTensor) Row(ml.Context, int) ml.Tensor          { panic("unused") }
func (t *fakeTensor) L2Norm(ml.Context, float32) ml.Tensor   { panic("unused") }
func (t *fakeTensor) Outer(ml.Context, ml.Tensor) ml.Tensor  { panic("unused") }
func (t *fakeTensor) Matvec(ml.Context, ml.Tensor) ml.Tensor { panic("unused") }

func TestGenerateMaxNewZeroReturnsEmptyWithoutForward(t *testing.T) {
	fm := &fakeModel{vocabSize: 8}
	seq := NewSequence(fm)
	sampler := sample.New(sample.Config{Temperature: 0})

	out, err := Generate(nil, fm, seq, []int32{1, 2}, sampler, Options{MaxNewTokens: 0}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("output = %v, want empty", out)
	}
	// prompt is still fed even though MaxNewTokens is 0
	if len(fm.fed) != 2 {
		t.Errorf("fed %d prompt tokens, want 2", len(fm.fed))
	}
}

func TestGenerateEmptyPromptFeedsBOS(t *testing.T) {
	fm := &fakeModel{vocabSize: 8}
	seq := NewSequence(fm)
	sampler := sample.New(sample.Config{Temperature: 0})

	_, err := Generate(nil, fm, seq, nil, sampler, Options{MaxNewTokens: 1, BOSToken: 5}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(fm.fed) == 0 || fm.fed[0] != 5 {
		t.Errorf("fed = %v, want first token to be BOS (5)", fm.fed)
	}
}

func TestGenerateStopsAtStopToken(t *testing.T) {
	fm := &fakeModel{vocabSize: 8}
	seq := NewSequence(fm)
	sampler := sample.New(sample.Config{Temperature: 0})

	out, err := Generate(nil, fm, seq, []int32{3}, sampler, Options{MaxNewTokens: 10, StopTokens: map[int32]bool{3: true}}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out) != 1 || out[0] != 3 {
		t.Errorf("output = %v, want [3] (greedy sampler repeats fed token, which is also the stop token)", out)
	}
}

func TestGenerateStopTokenPreemptsCallback(t *testing.T) {
	fm := &fakeModel{vocabSize: 8}
	seq := NewSequence(fm)
	sampler := sample.New(sample.Config{Temperature: 0})

	calls := 0
	out, err := Generate(nil, fm, seq, []int32{3}, sampler, Options{MaxNewTokens: 10, StopTokens: map[int32]bool{3: true}}, func(int32) bool {
		calls++
		return true
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if calls != 0 {
		t.Errorf("callback invoked %d times, want 0: a stop-token sample must terminate before reaching the callback", calls)
	}
	if len(out) != 1 || out[0] != 3 {
		t.Errorf("output = %v, want [3]: the stop token itself is still included in the output", out)
	}
}

func TestGenerateCancellationStopsWithoutFeedingCancelledToken(t *testing.T) {
	fm := &fakeModel{vocabSize: 8}
	seq := NewSequence(fm)
	sampler := sample.New(sample.Config{Temperature: 0})

	calls := 0
	out, err := Generate(nil, fm, seq, []int32{1}, sampler, Options{MaxNewTokens: 10}, func(int32) bool {
		calls++
		return false
	})
	if err != ErrCancelled {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if len(out) != 0 {
		t.Errorf("output = %v, want empty on immediate cancellation", out)
	}
	if calls != 1 {
		t.Errorf("callback invoked %d times, want 1", calls)
	}
	// the cancelled token must never have been fed back into the model
	if len(fm.fed) != 1 {
		t.Errorf("fed = %v, want only the original prompt token", fm.fed)
	}
}

func TestStopTokensFromIncludesEOS(t *testing.T) {
	tok := bytelevel.New()
	stop := StopTokensFrom(tok)
	if !stop[tok.EOS()] {
		t.Errorf("StopTokensFrom(tok) = %v, want it to include EOS (%d)", stop, tok.EOS())
	}
}

func TestFeedRejectsEmptyPrompt(t *testing.T) {
	fm := &fakeModel{vocabSize: 8}
	seq := NewSequence(fm)
	if _, err := Feed(nil, fm, seq, nil, Options{}); err == nil {
		t.Fatal("Feed should reject an empty prompt")
	}
}
