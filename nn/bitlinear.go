// bitlinear.go - BitLinear-Layer: ternaere Projektion ohne Bias
//
// Enthaelt:
// - BitLinear: haelt einen ternary.Tensor und dispatcht durch ml.Context
package nn

import (
	"github.com/bitllama/engine/ml"
	"github.com/bitllama/engine/ternary"
)

// BitLinear is a bias-free linear projection whose weight matrix is a
// ternary-packed tensor. It has no learnable float weights of its own;
// Weight is loaded once from a weight file and never mutated at
// inference time.
type BitLinear struct {
	Name   string
	Weight *ternary.Tensor // logical shape [out, in]
}

// Forward projects x (shape [in] or [batch,in]) to [out] or [batch,out].
func (l *BitLinear) Forward(ctx ml.Context, x ml.Tensor) ml.Tensor {
	w := ctx.FromTernary(l.Weight)
	return x.BitLinear(ctx, w)
}

// OutDim/InDim expose the logical shape for callers assembling a stack
// of layers (e.g. checking hidden_dim consistency at load time).
func (l *BitLinear) OutDim() int {
	out, _ := l.Weight.Shape()
	return out
}

func (l *BitLinear) InDim() int {
	_, in := l.Weight.Shape()
	return in
}
