package ternary

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Scenario S1 from the tensor format contract: an 8-wide row with a known
// scale, known codes, and known packed bytes.
func TestPackScenarioS1(t *testing.T) {
	source := []float32{0.9, -0.1, 0.0, 0.6, -0.8, 0.05, 1.1, -0.02}

	got, err := Pack(source, 1, 8)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	if diff := cmp.Diff(float32(0.44625), got.Scale(), cmpopts.EquateApprox(0, 1e-5)); diff != "" {
		t.Errorf("scale mismatch (-want +got):\n%s", diff)
	}

	wantBytes := []byte{0x41, 0x12}
	if diff := cmp.Diff(wantBytes, got.Bytes()); diff != "" {
		t.Errorf("packed bytes mismatch (-want +got):\n%s", diff)
	}

	wantDense := []float32{0.44625, 0, 0, 0.44625, -0.44625, 0, 0.44625, 0}
	gotDense := got.Dequant()
	if diff := cmp.Diff(wantDense, gotDense, cmpopts.EquateApprox(0, 1e-5)); diff != "" {
		t.Errorf("dequant mismatch (-want +got):\n%s", diff)
	}
}

// Testable property 1: packing then dequantizing never produces a value
// outside {-scale, 0, +scale} per element.
func TestDequantElementIsTernary(t *testing.T) {
	source := []float32{1, -1, 0.5, -0.5, 0.24, -0.24, 100, -100}
	tensor, err := Pack(source, 1, 8)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	for col := 0; col < 8; col++ {
		v := tensor.DequantElement(0, col)
		if v != -1 && v != 0 && v != 1 {
			t.Errorf("DequantElement(0,%d) = %d, want one of {-1,0,1}", col, v)
		}
	}
}

func TestPackAllZeroTensor(t *testing.T) {
	source := make([]float32, 16)
	tensor, err := Pack(source, 2, 8)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if tensor.Scale() != 1 {
		t.Errorf("scale = %v, want 1 for all-zero source", tensor.Scale())
	}
	for _, b := range tensor.Bytes() {
		if b != 0 {
			t.Errorf("packed byte = %#x, want 0x00 for all-zero source", b)
		}
	}
}

func TestPackRejectsNonMultipleOfFour(t *testing.T) {
	if _, err := Pack(make([]float32, 6), 1, 6); err == nil {
		t.Fatal("Pack with in=6 should fail, 6 is not a multiple of 4")
	}
}

func TestByteStride(t *testing.T) {
	cases := map[int]int{4: 1, 8: 2, 16: 4, 128: 32}
	for in, want := range cases {
		if got := ByteStride(in); got != want {
			t.Errorf("ByteStride(%d) = %d, want %d", in, got, want)
		}
	}
}

// Repacking an already-quantized dense tensor is a fixed point: values
// already at exactly {-scale, 0, +scale} round-trip unchanged in sign,
// so the packed codes are identical. The scale itself is mean(|x|) over
// all elements and shrinks on the second pass when zeros are present.
func TestPackIsFixedPointOnQuantizedInput(t *testing.T) {
	first, err := Pack([]float32{0.9, -0.1, 0.0, 0.6, -0.8, 0.05, 1.1, -0.02}, 1, 8)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	second, err := Pack(first.Dequant(), 1, 8)
	if err != nil {
		t.Fatalf("re-Pack: %v", err)
	}
	if diff := cmp.Diff(first.Bytes(), second.Bytes()); diff != "" {
		t.Errorf("re-pack of dequantized tensor drifted (-want +got):\n%s", diff)
	}
}

func TestNewValidatesBufferLength(t *testing.T) {
	if _, err := New(2, 8, 1, make([]byte, 3)); err == nil {
		t.Fatal("New with wrong buffer length should fail")
	}
	if _, err := New(2, 8, 1, make([]byte, 4)); err != nil {
		t.Fatalf("New with correct buffer length should succeed: %v", err)
	}
}
