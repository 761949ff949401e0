// file.go - mmap-gestuetztes Laden einer Gewichtsdatei
//
// Enthaelt:
// - Open: mappt die Datei read-only, haelt einen shared lock waehrend
//   der gesamten Lebensdauer des Handles und liest dabei Magic +
//   laengenpraefigierten JSON-Header
// - TensorBytes: liefert die rohen Bytes eines benannten Tensors aus dem Mmap
package bitfile

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"syscall"
)

// File is an open, mmap-backed weight file. The underlying descriptor
// holds a shared (read) flock for the file's entire lifetime, so a
// concurrent writer replacing the file mid-read is refused by the OS
// rather than silently corrupting a running model.
type File struct {
	Header Header

	f        *os.File
	data     []byte // full mmap, including magic+header
	payload  []byte // data[headerEnd:]
}

// Open validates the magic, parses the header, and mmaps the payload.
// The mapping stays alive for the lifetime of File; call Close to
// unmap and release the lock.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Kind: LoadErrorIO, Path: path, Msg: "open", Err: err}
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH); err != nil {
		f.Close()
		return nil, &LoadError{Kind: LoadErrorIO, Path: path, Msg: "flock", Err: err}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &LoadError{Kind: LoadErrorIO, Path: path, Msg: "stat", Err: err}
	}
	size := int(info.Size())
	if size < 12 {
		f.Close()
		return nil, &LoadError{Kind: LoadErrorMagicMismatch, Path: path, Msg: "file too small to contain magic and header length"}
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		if err == syscall.ENOMEM {
			return nil, &LoadError{Kind: LoadErrorResource, Path: path, Msg: "mmap: insufficient memory", Err: err}
		}
		return nil, &LoadError{Kind: LoadErrorIO, Path: path, Msg: "mmap", Err: err}
	}

	if [4]byte(data[0:4]) != Magic {
		msg := fmt.Sprintf("bad magic %q, want %q", data[0:4], Magic[:])
		syscall.Munmap(data)
		f.Close()
		return nil, &LoadError{Kind: LoadErrorMagicMismatch, Path: path, Msg: msg}
	}

	headerLen := binary.LittleEndian.Uint64(data[4:12])
	headerStart, headerEnd := 12, 12+int(headerLen)
	if headerEnd > size {
		syscall.Munmap(data)
		f.Close()
		return nil, &LoadError{Kind: LoadErrorHeaderParse, Path: path, Msg: "header length exceeds file size"}
	}

	var header Header
	if err := json.Unmarshal(data[headerStart:headerEnd], &header); err != nil {
		syscall.Munmap(data)
		f.Close()
		return nil, &LoadError{Kind: LoadErrorHeaderParse, Path: path, Msg: "invalid header JSON", Err: err}
	}

	file := &File{
		Header:  header,
		f:       f,
		data:    data,
		payload: data[headerEnd:],
	}

	if err := file.validateTensors(); err != nil {
		file.Close()
		return nil, err
	}

	return file, nil
}

func (file *File) validateTensors() error {
	for _, ti := range file.Header.Tensors {
		if ti.Offset < 0 || ti.Bytes < 0 || ti.Offset+ti.Bytes > int64(len(file.payload)) {
			return &LoadError{Kind: LoadErrorShapeMismatch, Path: file.f.Name(), Msg: fmt.Sprintf("tensor %q offset/length out of bounds", ti.Name)}
		}
		switch ti.DType {
		case DTypeTernary2Bit, DTypeF16, DTypeF32:
		default:
			return &LoadError{Kind: LoadErrorUnsupportedDType, Path: file.f.Name(), Msg: fmt.Sprintf("tensor %q has unsupported dtype %q", ti.Name, ti.DType)}
		}
	}
	return nil
}

// TensorBytes returns the raw payload bytes for the named tensor. The
// slice aliases the mmap; callers that need to retain it past Close
// must copy.
func (file *File) TensorBytes(name string) ([]byte, *TensorInfo, error) {
	for i := range file.Header.Tensors {
		ti := &file.Header.Tensors[i]
		if ti.Name == name {
			return file.payload[ti.Offset : ti.Offset+ti.Bytes], ti, nil
		}
	}
	return nil, nil, &LoadError{Kind: LoadErrorHeaderParse, Path: file.f.Name(), Msg: fmt.Sprintf("tensor %q not found", name)}
}

// Close unmaps the payload and releases the shared lock.
func (file *File) Close() error {
	var err error
	if file.data != nil {
		err = syscall.Munmap(file.data)
		file.data = nil
	}
	if cerr := file.f.Close(); err == nil {
		err = cerr
	}
	return err
}
