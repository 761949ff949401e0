// dtype.go - Dekodierung von f16/f32-Tensor-Bytes
package bitfile

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

func decodeF32(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("f32 payload length %d is not a multiple of 4", len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}

// decodeF16 decodes IEEE-754 half precision values using x448/float16
// rather than a hand-rolled bit-twiddling decoder.
func decodeF16(raw []byte) ([]float32, error) {
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("f16 payload length %d is not a multiple of 2", len(raw))
	}
	out := make([]float32, len(raw)/2)
	for i := range out {
		bits := binary.LittleEndian.Uint16(raw[i*2:])
		out[i] = float16.Frombits(bits).Float32()
	}
	return out, nil
}
