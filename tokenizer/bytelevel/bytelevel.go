// bytelevel.go - Referenz-Tokenizer: Byte-Fallback mit
// GPT2-artiger Vorsegmentierung
//
// Dient dazu, den Rest der Engine end-to-end testbar zu machen, ohne
// auf eine externe trainierte Vokabeldatei angewiesen zu sein. Jedes
// Byte bekommt eine feste Token-ID; es gibt keine Merges.
package bytelevel

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// pretokenPattern is the GPT-2 pretokenization regex (contractions,
// runs of letters/digits/other, whitespace runs). regexp2 is used
// because it supports the negative lookahead this pattern needs,
// which the standard library's RE2-based regexp cannot express.
const pretokenPattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`

const (
	bosID int32 = 256
	eosID int32 = 257
	vocab       = 258
)

// Tokenizer maps text to a fixed 256-byte alphabet plus two reserved
// boundary tokens. There is no learned vocabulary and no merges.
type Tokenizer struct {
	pattern *regexp2.Regexp
}

func New() *Tokenizer {
	return &Tokenizer{pattern: regexp2.MustCompile(pretokenPattern, regexp2.None)}
}

// NewFromBlob constructs the tokenizer from a weight file header's
// opaque tokenizer blob. The byte-level fallback has no vocabulary to
// load, so the blob is accepted (for interface parity with a real
// trained-vocabulary collaborator) and otherwise ignored.
func NewFromBlob(_ json.RawMessage) *Tokenizer {
	return New()
}

func (t *Tokenizer) VocabSize() int { return vocab }
func (t *Tokenizer) BOS() int32     { return bosID }
func (t *Tokenizer) EOS() int32     { return eosID }

// Encode pretokenizes with the GPT-2 pattern purely to keep whitespace
// and punctuation boundaries stable across runs, then emits one token
// per UTF-8 byte of each piece.
func (t *Tokenizer) Encode(text string) ([]int32, error) {
	pieces, err := t.split(text)
	if err != nil {
		return nil, err
	}
	ids := make([]int32, 0, len(text))
	for _, piece := range pieces {
		for _, b := range []byte(piece) {
			ids = append(ids, int32(b))
		}
	}
	return ids, nil
}

func (t *Tokenizer) split(text string) ([]string, error) {
	var pieces []string
	m, err := t.pattern.FindStringMatch(text)
	if err != nil {
		return nil, fmt.Errorf("bytelevel: pretokenize: %w", err)
	}
	for m != nil {
		pieces = append(pieces, m.String())
		m, err = t.pattern.FindNextMatch(m)
		if err != nil {
			return nil, fmt.Errorf("bytelevel: pretokenize: %w", err)
		}
	}
	return pieces, nil
}

// Decode drops BOS/EOS ids and reassembles bytes; boundary tokens
// simply don't appear in the output text.
func (t *Tokenizer) Decode(ids []int32) (string, error) {
	var sb strings.Builder
	for _, id := range ids {
		if id == bosID || id == eosID {
			continue
		}
		if id < 0 || id > 255 {
			return "", fmt.Errorf("bytelevel: token id %d out of byte range", id)
		}
		sb.WriteByte(byte(id))
	}
	return sb.String(), nil
}
