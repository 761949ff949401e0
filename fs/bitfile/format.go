// format.go - Binaeres Dateiformat: Magic, Header-Schema, Dtype-Konstanten
//
// Enthaelt:
// - Magic "BITT" plus laengenpraefigierter JSON-Header
// - Header/TensorInfo: Go-Spiegelung des Header-JSON-Schemas
// - Dtype-Konstanten exakt wie im Wire-Format
package bitfile

import "encoding/json"

// Magic is the fixed 4-byte prefix identifying a bitllama weight file.
var Magic = [4]byte{'B', 'I', 'T', 'T'}

// Dtype strings as they appear in the header JSON. Kept as plain
// strings (not an enum) because they round-trip through JSON verbatim
// and the format's own contract names them this way.
const (
	DTypeTernary2Bit = "ternary_2bit"
	DTypeF16         = "f16"
	DTypeF32         = "f32"
)

// Header is the JSON document immediately following the 4-byte magic
// and its own 8-byte little-endian length prefix.
type Header struct {
	Config ModelConfig `json:"config"`

	// Tokenizer is an opaque blob passed through verbatim to whichever
	// tokenizer collaborator the caller constructs; the engine itself
	// never inspects it.
	Tokenizer json.RawMessage `json:"tokenizer"`

	Tensors []TensorInfo `json:"tensors"`
}

// ModelConfig is the header's "config" object: the architecture
// parameters needed to reconstruct the model shape before any tensor
// is decoded.
type ModelConfig struct {
	Vocab        int     `json:"vocab"`
	Hidden       int     `json:"hidden"`
	Inner        int     `json:"inner"`
	NumLayers    int     `json:"num_layers"`
	MLPHidden    int     `json:"mlp_hidden"`
	InnerLR      float32 `json:"inner_lr"`
	ContextLimit int     `json:"context_limit"`
	Eps          float32 `json:"eps"`
}

// TensorInfo describes one tensor's placement within the payload that
// follows the header. Offset/Bytes are relative to the start of the
// payload (i.e. immediately after the header bytes), not the file.
type TensorInfo struct {
	Name   string   `json:"name"`
	DType  string   `json:"dtype"`
	Shape  []int    `json:"shape"`
	Offset int64    `json:"offset"`
	Bytes  int64    `json:"bytes"`
	Scale  *float32 `json:"scale"` // required for ternary_2bit, null otherwise
}
