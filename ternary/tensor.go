// tensor.go - Gepackter Ternary-Tensor: Layout und Quantisierung
//
// Enthaelt:
// - Tensor: 2-Bit-gepackte Gewichtsmatrix mit {-1, 0, +1} Werten
// - Pack: Quantisiert eine dichte float32-Matrix zu Tensor
// - DequantElement/ByteStride: Reine Index-Arithmetik fuer Kernel-Zugriff
package ternary

import (
	"fmt"
	"math"
)

// Code ist ein 2-Bit-Kode, wie er auf Disk und im gepackten Buffer liegt.
// 00 -> 0, 01 -> +1, 10 -> -1, 11 -> reserviert, wird als 0 gelesen.
type Code byte

const (
	codeZero     Code = 0b00
	codePositive Code = 0b01
	codeNegative Code = 0b10
	codeReserved Code = 0b11
)

// Tensor ist eine 2-Bit-gepackte ternaere Gewichtsmatrix mit logischer
// Form [Out, In]. In muss ein Vielfaches von 4 sein.
type Tensor struct {
	out, in int
	scale   float32
	packed  []byte // ceil(out*in/4) bytes, siehe ByteStride
}

// New erstellt einen Tensor direkt aus bereits gepackten Bytes, wie sie
// aus einer Gewichtsdatei gelesen werden. Es wird nicht neu quantisiert.
func New(out, in int, scale float32, packed []byte) (*Tensor, error) {
	if in%4 != 0 {
		return nil, fmt.Errorf("ternary: in dimension %d is not a multiple of 4", in)
	}
	want := ByteStride(in) * out
	if len(packed) != want {
		return nil, fmt.Errorf("ternary: packed buffer has %d bytes, want %d for shape [%d,%d]", len(packed), want, out, in)
	}
	return &Tensor{out: out, in: in, scale: scale, packed: packed}, nil
}

// Pack quantisiert eine dichte row-major [out,in] float32-Matrix zu einem
// Tensor. scale = mean(|source|); jedes Element wird auf das naechste
// von {-1, 0, +1} von clamp(source/scale, -1, 1) gerundet.
//
// Faellt source komplett auf 0 zusammen, wird scale=1 und ein
// vollstaendig-Null-Tensor emittiert statt durch Null zu teilen.
func Pack(source []float32, out, in int) (*Tensor, error) {
	if in%4 != 0 {
		return nil, fmt.Errorf("ternary: in dimension %d is not a multiple of 4", in)
	}
	if len(source) != out*in {
		return nil, fmt.Errorf("ternary: source has %d elements, want %d for shape [%d,%d]", len(source), out*in, out, in)
	}

	var absSum float64
	for _, v := range source {
		absSum += math.Abs(float64(v))
	}

	scale := float32(absSum / float64(len(source)))
	if scale == 0 {
		return &Tensor{
			out:    out,
			in:     in,
			scale:  1,
			packed: make([]byte, ByteStride(in)*out),
		}, nil
	}

	t := &Tensor{
		out:    out,
		in:     in,
		scale:  scale,
		packed: make([]byte, ByteStride(in)*out),
	}

	for i, v := range source {
		row, col := i/in, i%in
		q := v / scale
		var code Code
		switch {
		case q >= 0.5:
			code = codePositive
		case q <= -0.5:
			code = codeNegative
		default:
			code = codeZero
		}
		t.setCode(row, col, code)
	}
	return t, nil
}

func (t *Tensor) setCode(row, col int, code Code) {
	byteIdx := row*ByteStride(t.in) + col/4
	shift := uint((col % 4) * 2)
	t.packed[byteIdx] &^= 0b11 << shift
	t.packed[byteIdx] |= byte(code) << shift
}

// ByteStride is the number of bytes per row: four 2-bit codes per byte.
func ByteStride(in int) int {
	return (in + 3) / 4
}

// Shape returns [out, in].
func (t *Tensor) Shape() (out, in int) { return t.out, t.in }

// Scale returns the per-tensor scalar.
func (t *Tensor) Scale() float32 { return t.scale }

// Bytes returns the packed buffer. Callers must not mutate it; the
// tensor is immutable for the lifetime of the model.
func (t *Tensor) Bytes() []byte { return t.packed }

// DequantElement returns the decoded weight {-1, 0, +1} at (row, col),
// without the scale multiplied in. This is pure index arithmetic so
// kernels that prefer integer accumulation can use it without touching
// floating point.
func (t *Tensor) DequantElement(row, col int) int8 {
	byteIdx := row*ByteStride(t.in) + col/4
	shift := uint((col % 4) * 2)
	code := Code((t.packed[byteIdx] >> shift) & 0b11)
	switch code {
	case codePositive:
		return 1
	case codeNegative:
		return -1
	default: // codeZero, codeReserved
		return 0
	}
}

// Dequant materializes the full dense [out,in] matrix as scale*Q, where
// each Q element is the nearest of {-1, 0, +1}.
func (t *Tensor) Dequant() []float32 {
	dense := make([]float32, t.out*t.in)
	for row := 0; row < t.out; row++ {
		for col := 0; col < t.in; col++ {
			dense[row*t.in+col] = float32(t.DequantElement(row, col)) * t.scale
		}
	}
	return dense
}

// Row returns the packed bytes backing row i, sized ByteStride(in).
// Kernels stream this directly without touching the rest of the tensor.
func (t *Tensor) Row(i int) []byte {
	stride := ByteStride(t.in)
	return t.packed[i*stride : (i+1)*stride]
}
