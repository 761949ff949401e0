// sample.go - Temperatur-, Top-K-, Top-P-Sampling ueber Logits
//
// Enthaelt:
// - Config: Sampling-Parameter
// - Sample: temp -> top-k -> top-p -> gewichtete Ziehung, per Seed
//   deterministisch; temp==0 ist Greedy und verbraucht keinen RNG
package sample

import (
	"math"
	"math/rand"
	"sort"
)

// Config controls one sequence's sampling behavior. Zero Temperature
// means greedy argmax with no RNG consumption, so a seed is irrelevant
// in that case.
type Config struct {
	Temperature float32
	TopK        int // 0 disables the top-k filter
	TopP        float32 // 0 or 1 disables the nucleus filter
	Seed        int64
}

// Sampler draws token ids from logits according to Config, using a
// private *rand.Rand seeded once so a run is reproducible across
// identical (Config, logits-sequence) pairs regardless of what else
// is happening concurrently in the process.
type Sampler struct {
	cfg Config
	rng *rand.Rand
}

func New(cfg Config) *Sampler {
	return &Sampler{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

type candidate struct {
	id     int
	logit  float32
}

// Sample returns the chosen token id for one step's logits.
func (s *Sampler) Sample(logits []float32) int {
	if s.cfg.Temperature == 0 {
		return argmax(logits)
	}

	cands := make([]candidate, len(logits))
	invTemp := 1 / s.cfg.Temperature
	for i, v := range logits {
		cands[i] = candidate{id: i, logit: v * invTemp}
	}

	sort.Slice(cands, func(i, j int) bool { return cands[i].logit > cands[j].logit })

	if s.cfg.TopK > 0 && s.cfg.TopK < len(cands) {
		cands = cands[:s.cfg.TopK]
	}

	probs := softmax(cands)

	if s.cfg.TopP > 0 && s.cfg.TopP < 1 {
		probs = nucleus(cands, probs, s.cfg.TopP)
	}

	return draw(s.rng, cands, probs)
}

func argmax(logits []float32) int {
	best, bestIdx := logits[0], 0
	for i, v := range logits[1:] {
		if v > best {
			best, bestIdx = v, i+1
		}
	}
	return bestIdx
}

func softmax(cands []candidate) []float64 {
	max64 := float64(cands[0].logit)
	probs := make([]float64, len(cands))
	var sum float64
	for i, c := range cands {
		p := math.Exp(float64(c.logit) - max64)
		probs[i] = p
		sum += p
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// nucleus keeps the smallest prefix of the (already logit-sorted)
// candidates whose cumulative probability mass reaches TopP, and
// renormalizes over that prefix.
func nucleus(cands []candidate, probs []float64, topP float32) []float64 {
	var cumulative float64
	cutoff := len(probs)
	for i, p := range probs {
		cumulative += p
		if cumulative >= float64(topP) {
			cutoff = i + 1
			break
		}
	}
	kept := probs[:cutoff]
	var sum float64
	for _, p := range kept {
		sum += p
	}
	renorm := make([]float64, len(probs))
	for i, p := range kept {
		renorm[i] = p / sum
	}
	return renorm
}

func draw(rng *rand.Rand, cands []candidate, probs []float64) int {
	r := rng.Float64()
	var cumulative float64
	for i, p := range probs {
		if p == 0 {
			continue
		}
		cumulative += p
		if r <= cumulative {
			return cands[i].id
		}
	}
	// Floating point roundoff: fall back to the last nonzero-probability
	// candidate rather than the always-present-but-wrong index 0.
	for i := len(probs) - 1; i >= 0; i-- {
		if probs[i] > 0 {
			return cands[i].id
		}
	}
	return cands[0].id
}
