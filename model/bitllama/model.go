// model.go - Bit-Llama-Modellzusammenbau: Embedding, Bloecke, LM-Head
//
// Enthaelt:
// - RawTensor/BackendSet: Uebergabeformat vom Loader
// - Build: konstruiert ein lauffaehiges Model ueber model.Register/New
// - Model: Embedding-Lookup, gestapelte Bloecke, finale Norm, LM-Head
package bitllama

import (
	"fmt"
	"io"
	"sync"

	"github.com/bitllama/engine/ml"
	"github.com/bitllama/engine/model"
	"github.com/bitllama/engine/nn"
	"github.com/bitllama/engine/ternary"
	"github.com/bitllama/engine/ttt"
)

// RawTensor is the loader's decoded form of one weight-file tensor:
// either a packed ternary matrix or a dense float slice, tagged with
// its logical shape.
type RawTensor struct {
	Shape   []int
	Ternary *ternary.Tensor
	Floats  []float32
}

// Embedding is a tagged-variant [vocab, hidden] lookup table: the
// weight file may mark embed.weight as ternary-packed or leave it
// dense (f16/f32), and both are legal on disk.
type Embedding struct {
	Name string

	Ternary     *ternary.Tensor // set iff the tensor was ternary_2bit on disk
	DenseFloats []float32       // set iff the tensor was dense (f16/f32) on disk
	DenseShape  []int
}

func newEmbedding(name string, rt RawTensor) *Embedding {
	return &Embedding{
		Name:        name,
		Ternary:     rt.Ternary,
		DenseFloats: rt.Floats,
		DenseShape:  rt.Shape,
	}
}

// Row looks up one token's embedding vector, dispatching on whichever
// variant this weight file actually shipped.
func (e *Embedding) Row(ctx ml.Context, tokenID int) ml.Tensor {
	if e.Ternary != nil {
		return ctx.FromTernary(e.Ternary).Row(ctx, tokenID)
	}
	return ctx.FromFloats(e.DenseFloats, e.DenseShape...).Row(ctx, tokenID)
}

// BackendSet groups the two backends a loaded model spans: Host always
// runs the pure-Go kernels, Accelerator is whichever backend the
// DeviceMap says layer i should use (in this engine, the "sim"
// dequant-cache backend).
type BackendSet struct {
	Host        ml.Backend
	Accelerator ml.Backend
}

var (
	buildMu          sync.Mutex
	pendingWeights   map[string]RawTensor
	pendingDeviceMap ml.DeviceMap
	pendingBackends  BackendSet
)

func init() {
	model.Register("bitllama", func(backend ml.Backend, cfg model.Config) (model.Model, error) {
		return newModel(backend, cfg, pendingBackends, pendingDeviceMap, pendingWeights)
	})
}

// Build decodes weights into a Model, going through model.Register/New
// so architecture construction stays behind the same factory-map
// indirection every other architecture would use, even though this
// engine only ever registers one.
func Build(backends BackendSet, cfg model.Config, deviceMap ml.DeviceMap, weights map[string]RawTensor) (*Model, error) {
	buildMu.Lock()
	defer buildMu.Unlock()

	pendingWeights = weights
	pendingDeviceMap = deviceMap
	pendingBackends = backends
	defer func() {
		pendingWeights = nil
		pendingBackends = BackendSet{}
	}()

	m, err := model.New("bitllama", backends.Host, cfg)
	if err != nil {
		return nil, err
	}
	return m.(*Model), nil
}

// Model is the full Bit-Llama stack: an embedding lookup (ternary or dense),
// NumLayers transformer blocks, a final RMSNorm, and a ternary LM head.
type Model struct {
	model.Base

	backends  BackendSet
	deviceMap ml.DeviceMap

	// closer releases whatever host resource host-resident tensors
	// reference directly (the weight file's mmap and flock, in
	// practice). Nil when nothing in this model aliases such a
	// resource, e.g. in tests that build weights in-process.
	closer io.Closer

	Embedding *Embedding
	Blocks    []*Block
	FinalNorm *nn.RMSNorm
	LMHead    *nn.BitLinear
}

// SetCloser records the resource that must outlive every tensor built
// by referencing mapped bytes directly, so callers who own the
// weight file (fs/bitfile.Load) can hand off its teardown to the
// model instead of releasing it before the model is ever used.
func (m *Model) SetCloser(c io.Closer) { m.closer = c }

// Close releases the weight file's mapping and lock, if this model
// was built from one. Safe to call on a model with no such resource.
func (m *Model) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer.Close()
}

func newModel(backend ml.Backend, cfg model.Config, backends BackendSet, deviceMap ml.DeviceMap, weights map[string]RawTensor) (*Model, error) {
	get := func(name string) (RawTensor, error) {
		rt, ok := weights[name]
		if !ok {
			return RawTensor{}, fmt.Errorf("bitllama: missing tensor %q", name)
		}
		return rt, nil
	}

	embedRaw, err := get("embed.weight")
	if err != nil {
		return nil, err
	}

	lmHeadRaw, err := get("lm_head.weight")
	if err != nil {
		return nil, err
	}
	if lmHeadRaw.Ternary == nil {
		return nil, fmt.Errorf("bitllama: lm_head.weight must be ternary_2bit")
	}

	finalNormRaw, err := get("norm_f.weight")
	if err != nil {
		return nil, err
	}

	m := &Model{
		Base:      model.Base{B: backend, C: cfg},
		backends:  backends,
		deviceMap: deviceMap,
		Embedding: newEmbedding("embed.weight", embedRaw),
		LMHead:    &nn.BitLinear{Name: "lm_head.weight", Weight: lmHeadRaw.Ternary},
	}

	blocks := make([]*Block, cfg.NumLayers)
	for i := 0; i < cfg.NumLayers; i++ {
		block, err := buildBlock(i, cfg, get)
		if err != nil {
			return nil, err
		}
		blocks[i] = block
	}
	m.Blocks = blocks

	m.FinalNorm = &nn.RMSNorm{Name: "norm_f.weight", Gain: finalNormRaw.Floats, Eps: cfg.Eps}

	return m, nil
}

func (m *Model) Validate() error {
	for i, b := range m.Blocks {
		if err := b.TTT.Validate(); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return nil
}

// ctxForLayer returns the ml.Context a given layer index should use,
// per the DeviceMap computed at load time.
func (m *Model) ctxForLayer(i int) ml.Context {
	if m.deviceMap.LayerDevice(i) == ml.DeviceAccelerator {
		return m.backends.Accelerator.NewContext()
	}
	return m.backends.Host.NewContext()
}

func (m *Model) ctxForDevice(d ml.Device) ml.Context {
	if d == ml.DeviceAccelerator {
		return m.backends.Accelerator.NewContext()
	}
	return m.backends.Host.NewContext()
}

// NewSequenceState allocates one ttt.State per layer for a fresh
// generation sequence.
func (m *Model) NewSequenceState() []model.LayerState {
	states := make([]model.LayerState, len(m.Blocks))
	for i, b := range m.Blocks {
		states[i] = ttt.NewState(b.TTT.InnerDim())
	}
	return states
}

// ForwardOne runs one token through the embedding, every block (each
// mutating its own layer's TTTState in place), the final norm, and the
// LM head, returning unnormalized logits over the vocabulary.
func (m *Model) ForwardOne(ctx ml.Context, states []model.LayerState, tokenID int32) (ml.Tensor, error) {
	if int(tokenID) < 0 || int(tokenID) >= m.C.VocabSize {
		return nil, fmt.Errorf("bitllama: token id %d out of vocab range [0,%d)", tokenID, m.C.VocabSize)
	}
	if len(states) != len(m.Blocks) {
		return nil, fmt.Errorf("bitllama: got %d layer states, want %d", len(states), len(m.Blocks))
	}

	embedCtx := m.ctxForDevice(m.deviceMap.Embedding)
	x := m.Embedding.Row(embedCtx, int(tokenID))

	for i, b := range m.Blocks {
		layerCtx := m.ctxForLayer(i)
		// Re-materialize x under this layer's context so mixed
		// host/accelerator placement never mixes tensor types from
		// different backends inside one op.
		x = layerCtx.FromFloats(x.Floats(), x.Shape()...)

		state, ok := states[i].(*ttt.State)
		if !ok {
			return nil, fmt.Errorf("bitllama: layer %d state has wrong type", i)
		}
		var err error
		x, err = b.Forward(layerCtx, state, x)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}

	headCtx := m.ctxForDevice(m.deviceMap.LMHead)
	x = headCtx.FromFloats(x.Floats(), x.Shape()...)
	x = m.FinalNorm.Forward(headCtx, x)
	logits := m.LMHead.Forward(headCtx, x)
	return logits, nil
}
