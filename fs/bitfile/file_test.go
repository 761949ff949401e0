package bitfile

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitllama/engine/ternary"
)

func writeTestFile(t *testing.T, header Header, payload []byte) string {
	t.Helper()
	headerBytes, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.bitt")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	if _, err := f.Write(Magic[:]); err != nil {
		t.Fatalf("write magic: %v", err)
	}
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(headerBytes)))
	if _, err := f.Write(lenBuf[:]); err != nil {
		t.Fatalf("write header length: %v", err)
	}
	if _, err := f.Write(headerBytes); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := f.Write(payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	return path
}

func TestOpenRoundTripsTernaryTensor(t *testing.T) {
	weight, err := ternary.Pack([]float32{1, -1, 0, 1}, 1, 4)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	scale := weight.Scale()
	header := Header{
		Config: ModelConfig{Vocab: 4, Hidden: 4, Inner: 2, NumLayers: 0},
		Tensors: []TensorInfo{
			{Name: "w", DType: DTypeTernary2Bit, Shape: []int{1, 4}, Scale: &scale, Offset: 0, Bytes: int64(len(weight.Bytes()))},
		},
	}
	path := writeTestFile(t, header, weight.Bytes())

	file, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer file.Close()

	raw, info, err := file.TensorBytes("w")
	if err != nil {
		t.Fatalf("TensorBytes: %v", err)
	}
	if info.DType != DTypeTernary2Bit {
		t.Errorf("dtype = %q, want %q", info.DType, DTypeTernary2Bit)
	}
	if len(raw) != len(weight.Bytes()) {
		t.Errorf("payload length = %d, want %d", len(raw), len(weight.Bytes()))
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bitt")
	if err := os.WriteFile(path, []byte("NOTB\x00\x00\x00\x00\x00\x00\x00\x00{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("Open should reject a bad magic")
	}
}

func TestOpenRejectsUnsupportedDType(t *testing.T) {
	header := Header{Tensors: []TensorInfo{{Name: "w", DType: "int4", Shape: []int{1, 1}, Offset: 0, Bytes: 1}}}
	path := writeTestFile(t, header, []byte{0})
	if _, err := Open(path); err == nil {
		t.Fatal("Open should reject an unsupported dtype")
	}
}

func TestOpenRejectsOutOfBoundsTensor(t *testing.T) {
	header := Header{Tensors: []TensorInfo{{Name: "w", DType: DTypeF32, Shape: []int{10}, Offset: 0, Bytes: 1000}}}
	path := writeTestFile(t, header, []byte{0, 0, 0, 0})
	if _, err := Open(path); err == nil {
		t.Fatal("Open should reject a tensor whose bounds exceed the payload")
	}
}
