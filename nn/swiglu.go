// swiglu.go - Gated Feed-Forward-Netzwerk (SwiGLU)
//
// down( SILU(gate(x)) * up(x) )
package nn

import "github.com/bitllama/engine/ml"

type SwiGLU struct {
	Gate *BitLinear // [mlp_hidden, hidden]
	Up   *BitLinear // [mlp_hidden, hidden]
	Down *BitLinear // [hidden, mlp_hidden]
}

func (s *SwiGLU) Forward(ctx ml.Context, x ml.Tensor) ml.Tensor {
	gated := s.Gate.Forward(ctx, x).SILU(ctx)
	up := s.Up.Forward(ctx, x)
	return s.Down.Forward(ctx, gated.Mul(ctx, up))
}
