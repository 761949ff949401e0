// block.go - Ein Transformer-Block: TTT-Zweig plus SwiGLU-Zweig
//
// h = x + TTT(RMSNorm(x, g1))
// y = h + SwiGLU(RMSNorm(h, g2))
package bitllama

import (
	"fmt"

	"github.com/bitllama/engine/ml"
	"github.com/bitllama/engine/model"
	"github.com/bitllama/engine/nn"
	"github.com/bitllama/engine/ttt"
)

// Block is one transformer layer: a TTT branch replacing attention,
// followed by a gated feed-forward branch, each with its own pre-norm
// and residual connection.
type Block struct {
	Norm1 *nn.RMSNorm
	TTT   *ttt.Layer
	Norm2 *nn.RMSNorm
	MLP   *nn.SwiGLU
}

func (b *Block) Forward(ctx ml.Context, state *ttt.State, x ml.Tensor) (ml.Tensor, error) {
	normed := b.Norm1.Forward(ctx, x)
	tttOut := b.TTT.Forward(ctx, state, normed)
	upProjected := b.TTT.ProjUp.Forward(ctx, tttOut)
	h := x.Add(ctx, upProjected)

	normed2 := b.Norm2.Forward(ctx, h)
	mlpOut := b.MLP.Forward(ctx, normed2)
	y := h.Add(ctx, mlpOut)
	return y, nil
}

func buildBlock(layer int, cfg model.Config, get func(string) (RawTensor, error)) (*Block, error) {
	prefix := fmt.Sprintf("layers.%d.", layer)

	norm1, err := get(prefix + "norm1.weight")
	if err != nil {
		return nil, err
	}
	norm2, err := get(prefix + "norm2.weight")
	if err != nil {
		return nil, err
	}
	projDown, err := get(prefix + "ttt.down.weight")
	if err != nil {
		return nil, err
	}
	projUp, err := get(prefix + "ttt.up.weight")
	if err != nil {
		return nil, err
	}
	gate, err := get(prefix + "mlp.gate.weight")
	if err != nil {
		return nil, err
	}
	up, err := get(prefix + "mlp.up.weight")
	if err != nil {
		return nil, err
	}
	down, err := get(prefix + "mlp.down.weight")
	if err != nil {
		return nil, err
	}

	for _, rt := range []RawTensor{projDown, projUp, gate, up, down} {
		if rt.Ternary == nil {
			return nil, fmt.Errorf("bitllama: layer %d: expected ternary_2bit weight, got dense", layer)
		}
	}

	// Norm gains and BitLinear weights are constructed lazily against
	// whichever ml.Context the block ends up running under (chosen per
	// the DeviceMap in Model.ctxForLayer), so Block itself only stores
	// backend-agnostic pieces (raw ternary tensors, plain float gains
	// wrapped into context tensors on every call).
	return &Block{
		Norm1: &nn.RMSNorm{Name: prefix + "norm1.weight", Gain: norm1.Floats, Eps: cfg.Eps},
		Norm2: &nn.RMSNorm{Name: prefix + "norm2.weight", Gain: norm2.Floats, Eps: cfg.Eps},
		TTT: &ttt.Layer{
			ProjDown: &nn.BitLinear{Name: prefix + "ttt.down.weight", Weight: projDown.Ternary},
			ProjUp:   &nn.BitLinear{Name: prefix + "ttt.up.weight", Weight: projUp.Ternary},
			InnerLR:  cfg.InnerLR,
		},
		MLP: &nn.SwiGLU{
			Gate: &nn.BitLinear{Name: prefix + "mlp.gate.weight", Weight: gate.Ternary},
			Up:   &nn.BitLinear{Name: prefix + "mlp.up.weight", Weight: up.Ternary},
			Down: &nn.BitLinear{Name: prefix + "mlp.down.weight", Weight: down.Ternary},
		},
	}, nil
}
