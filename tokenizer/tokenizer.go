// tokenizer.go - Tokenizer-Schnittstelle
//
// Der Tokenizer ist ein externer Mitarbeiter: das Engine-Kernstueck
// (ternary/ml/ttt/model) ist tokenizer-agnostisch und arbeitet
// ausschliesslich mit Token-IDs.
package tokenizer

// Tokenizer converts between text and token ids. Implementations may
// be as simple as a byte-level fallback (see bytelevel) or a real
// trained vocabulary loaded alongside the weight file.
type Tokenizer interface {
	Encode(text string) ([]int32, error)
	Decode(ids []int32) (string, error)
	VocabSize() int

	// BOS/EOS return the reserved boundary token ids, or -1 if this
	// tokenizer defines none.
	BOS() int32
	EOS() int32
}
