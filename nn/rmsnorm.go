// rmsnorm.go - RMSNorm-Layer mit lernbarem Gain
package nn

import "github.com/bitllama/engine/ml"

// RMSNorm holds the learnable per-channel gain g used to rescale a
// unit-RMS activation vector back to a useful magnitude. Gain is kept
// as plain floats rather than a bound ml.Tensor so one RMSNorm can
// serve blocks whose ml.Context (and therefore backend) is chosen per
// call, per the DeviceMap.
type RMSNorm struct {
	Name string
	Gain []float32
	Eps  float32
}

// DefaultEps is used when Eps is left at zero.
const DefaultEps = 1e-5

func (n *RMSNorm) Forward(ctx ml.Context, x ml.Tensor) ml.Tensor {
	eps := n.Eps
	if eps == 0 {
		eps = DefaultEps
	}
	gain := ctx.FromFloats(n.Gain, len(n.Gain))
	return x.RMSNorm(ctx, gain, eps)
}
