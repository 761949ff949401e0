// generate.go - Autoregressive Generierungsschleife
//
// Enthaelt: Feed (Prompt-Verarbeitung) und Generate (Sampling-Schleife),
// Schritt fuer Schritt: Prompt einspeisen, letztes Logit samplen,
// Token anhaengen, wiederholen bis ein Stop-Token kommt, MaxNewTokens
// erreicht ist oder der Callback abbricht. Ein Kontextlimit
// (ContextLimit der Konfiguration) wird hier nicht geprueft.
package runner

import (
	"fmt"

	"github.com/bitllama/engine/ml"
	"github.com/bitllama/engine/model"
	"github.com/bitllama/engine/sample"
	"github.com/bitllama/engine/tokenizer"
)

// Model is the subset of model.Model the generation loop needs.
type Model interface {
	ForwardOne(ctx ml.Context, states []model.LayerState, tokenID int32) (ml.Tensor, error)
}

// StopTokensFrom builds the Options.StopTokens set from a tokenizer's
// EOS id, per the interface's "-1 if this tokenizer defines none"
// contract. Callers that need additional stop ids can add to the
// returned map.
func StopTokensFrom(tok tokenizer.Tokenizer) map[int32]bool {
	stop := make(map[int32]bool)
	if eos := tok.EOS(); eos >= 0 {
		stop[eos] = true
	}
	return stop
}

// Options controls one Generate call.
type Options struct {
	// MaxNewTokens caps how many tokens are produced. Zero means the
	// prompt is fed (if non-empty) but no new tokens are generated and
	// ForwardOne is never called for a sampling step.
	MaxNewTokens int

	// StopTokens ends generation as soon as one of these ids is
	// sampled: the stop token is appended to the returned slice but is
	// never passed to onToken.
	StopTokens map[int32]bool

	// BOSToken is fed first when Prompt is empty, so the model never
	// has to run forward_one with no context at all.
	BOSToken int32
}

// OnToken is called once per newly generated token, in strict order:
// the callback for token i returns before ForwardOne is invoked for
// token i+1. Returning false requests cancellation; generation stops
// immediately without corrupting sequence state (the just-produced
// token is not fed back).
type OnToken func(token int32) (keepGoing bool)

// Feed runs the prompt through the model to advance every layer's TTT
// state, without generating or sampling anything, returning the
// logits produced by the last prompt token (needed as the seed for
// Generate).
func Feed(ctx ml.Context, m Model, seq *Sequence, prompt []int32, opts Options) (ml.Tensor, error) {
	if len(prompt) == 0 {
		return nil, &LogicalError{Msg: "Feed requires a non-empty prompt; use BOSToken via Generate for an empty prompt"}
	}
	var logits ml.Tensor
	for _, tok := range prompt {
		var err error
		logits, err = m.ForwardOne(ctx, seq.States(), tok)
		if err != nil {
			return nil, &RuntimeError{Msg: "forward pass over prompt token failed", Err: err}
		}
		seq.numTokens++
	}
	return logits, nil
}

// Generate feeds prompt (or BOSToken if prompt is empty), then samples
// up to MaxNewTokens further tokens, invoking onToken after each.
// MaxNewTokens == 0 returns an empty slice without ever calling
// ForwardOne for a sampling step (the prompt, if any, is still fed).
func Generate(ctx ml.Context, m Model, seq *Sequence, prompt []int32, sampler *sample.Sampler, opts Options, onToken OnToken) ([]int32, error) {
	var logits ml.Tensor
	var err error

	if len(prompt) > 0 {
		logits, err = Feed(ctx, m, seq, prompt, opts)
	} else {
		logits, err = m.ForwardOne(ctx, seq.States(), opts.BOSToken)
		if err == nil {
			seq.numTokens++
		}
	}
	if err != nil {
		return nil, err
	}

	if opts.MaxNewTokens <= 0 {
		return nil, nil
	}
	if logits == nil {
		return nil, fmt.Errorf("runner: internal error: no logits available to seed generation")
	}

	generated := make([]int32, 0, opts.MaxNewTokens)
	for i := 0; i < opts.MaxNewTokens; i++ {
		next := int32(sampler.Sample(logits.Floats()))

		if opts.StopTokens[next] {
			generated = append(generated, next)
			break
		}

		if onToken != nil && !onToken(next) {
			return generated, ErrCancelled
		}
		generated = append(generated, next)

		logits, err = m.ForwardOne(ctx, seq.States(), next)
		if err != nil {
			return generated, &RuntimeError{Msg: "forward pass during generation failed", Err: err}
		}
		seq.numTokens++
	}

	return generated, nil
}
