// load.go - Laedt eine Gewichtsdatei zu einem lauffaehigen Modell
//
// Enthaelt:
// - AutoPlace: Geraete-Platzierungsheuristik nach freiem
//   Accelerator-Speicher
// - Load: oeffnet die Datei, baut Backends, dekodiert Tensoren und
//   konstruiert das bitllama-Modell
package bitfile

import (
	"encoding/json"
	"fmt"

	"github.com/bitllama/engine/ml"
	_ "github.com/bitllama/engine/ml/backend/cpu"
	_ "github.com/bitllama/engine/ml/backend/sim"
	"github.com/bitllama/engine/model"
	"github.com/bitllama/engine/model/bitllama"
	"github.com/bitllama/engine/ternary"
)

// LoadOptions controls backend construction and device placement.
type LoadOptions struct {
	NumThreads int

	// AcceleratorFreeBytes is the memory budget available to place
	// leading layers on the accelerator. Zero means no accelerator is
	// available and every layer stays on the host.
	AcceleratorFreeBytes int64

	// ForceDeviceMap overrides AutoPlace when non-nil, primarily for
	// tests.
	ForceDeviceMap *ml.DeviceMap
}

// AutoPlace reserves 20% of AcceleratorFreeBytes (or 1GB, whichever is
// larger) for activation working memory, then greedily places leading
// layers on the accelerator until the remaining budget can't fit the
// next layer's packed weight bytes. Embedding and LM head prefer the
// accelerator when anything fits there at all, since they're touched
// on every token.
func AutoPlace(h Header, availableBytes int64) ml.DeviceMap {
	reserve := availableBytes / 5
	if reserve < 1<<30 {
		reserve = 1 << 30
	}
	budget := availableBytes - reserve
	if budget <= 0 {
		return ml.DeviceMap{Layers: make([]ml.Device, h.Config.NumLayers)}
	}

	layerBytes := make([]int64, h.Config.NumLayers)
	for _, ti := range h.Tensors {
		layer := layerIndexOf(ti.Name)
		if layer >= 0 && layer < h.Config.NumLayers {
			layerBytes[layer] += ti.Bytes
		}
	}

	devices := make([]ml.Device, h.Config.NumLayers)
	for i := 0; i < h.Config.NumLayers; i++ {
		if budget < layerBytes[i] {
			break
		}
		devices[i] = ml.DeviceAccelerator
		budget -= layerBytes[i]
	}

	embed := ml.DeviceHost
	if budget > 0 {
		embed = ml.DeviceAccelerator
	}
	return ml.DeviceMap{Layers: devices, Embedding: embed, LMHead: embed}
}

// layerIndexOf extracts the layer index from a tensor name of the form
// "layers.<n>.<...>", returning -1 for names outside that convention
// (embedding, lm_head, final norm).
func layerIndexOf(name string) int {
	var n int
	if _, err := fmt.Sscanf(name, "layers.%d.", &n); err != nil {
		return -1
	}
	return n
}

// Load opens path, decodes its tensors, and returns a ready-to-run
// bitllama model, the DeviceMap actually used, and the header's opaque
// tokenizer blob for the caller to hand to its tokenizer collaborator.
//
// The returned model's Close releases the file's mmap and shared lock.
// Load itself never closes the file on the success path: host-resident
// ternary tensors reference the mapped bytes directly rather than
// copying them, so the mapping and its flock must outlive the model,
// not just the call to Load. Callers should defer m.Close() once
// they're done with the model.
func Load(path string, opts LoadOptions) (*bitllama.Model, ml.DeviceMap, json.RawMessage, error) {
	file, err := Open(path)
	if err != nil {
		return nil, ml.DeviceMap{}, nil, err
	}

	deviceMap := AutoPlace(file.Header, opts.AcceleratorFreeBytes)
	if opts.ForceDeviceMap != nil {
		deviceMap = *opts.ForceDeviceMap
	}

	hostBackend, err := ml.NewBackend("cpu", ml.BackendParams{NumThreads: opts.NumThreads})
	if err != nil {
		file.Close()
		return nil, ml.DeviceMap{}, nil, &LoadError{Kind: LoadErrorResource, Path: path, Msg: "construct host backend", Err: err}
	}
	accelBackend, err := ml.NewBackend("sim", ml.BackendParams{NumThreads: opts.NumThreads})
	if err != nil {
		file.Close()
		return nil, ml.DeviceMap{}, nil, &LoadError{Kind: LoadErrorResource, Path: path, Msg: "construct accelerator backend", Err: err}
	}

	cfg := model.Config{
		VocabSize:    file.Header.Config.Vocab,
		HiddenDim:    file.Header.Config.Hidden,
		InnerDim:     file.Header.Config.Inner,
		NumLayers:    file.Header.Config.NumLayers,
		MLPHidden:    file.Header.Config.MLPHidden,
		InnerLR:      file.Header.Config.InnerLR,
		ContextLimit: file.Header.Config.ContextLimit,
		Eps:          file.Header.Config.Eps,
	}

	weights, err := decodeAllTensors(file, deviceMap)
	if err != nil {
		file.Close()
		return nil, ml.DeviceMap{}, nil, err
	}

	backends := bitllama.BackendSet{Host: hostBackend, Accelerator: accelBackend}
	m, err := bitllama.Build(backends, cfg, deviceMap, weights)
	if err != nil {
		file.Close()
		return nil, ml.DeviceMap{}, nil, &LoadError{Kind: LoadErrorShapeMismatch, Path: path, Msg: "build model", Err: err}
	}
	m.SetCloser(file)

	return m, deviceMap, file.Header.Tokenizer, nil
}

// deviceOf reports which device a tensor's decoded weight ultimately
// runs on, so decodeAllTensors knows whether it can reference the mmap
// directly (host) or must copy out of it (accelerator, whose backend
// keeps its own memory independent of the mapping's lifetime).
func deviceOf(name string, deviceMap ml.DeviceMap) ml.Device {
	switch name {
	case "embed.weight":
		return deviceMap.Embedding
	case "lm_head.weight":
		return deviceMap.LMHead
	}
	if layer := layerIndexOf(name); layer >= 0 {
		return deviceMap.LayerDevice(layer)
	}
	return ml.DeviceHost
}

// decodeAllTensors materializes every tensor's payload into a
// *ternary.Tensor or a []float32, keyed by tensor name. A ternary
// tensor placed on the host references the mmap's bytes directly
// (per Load's mmap-lifetime contract, the model closes the file when
// it's done, not Load); one placed on the accelerator is copied,
// since that backend's memory doesn't share the mapping's lifetime.
// f16/f32 tensors are always converted into a freshly allocated
// []float32 regardless of device, since decoding already copies.
func decodeAllTensors(file *File, deviceMap ml.DeviceMap) (map[string]bitllama.RawTensor, error) {
	out := make(map[string]bitllama.RawTensor, len(file.Header.Tensors))
	for _, ti := range file.Header.Tensors {
		raw, info, err := file.TensorBytes(ti.Name)
		if err != nil {
			return nil, err
		}

		switch info.DType {
		case DTypeTernary2Bit:
			if len(info.Shape) != 2 {
				return nil, &LoadError{Kind: LoadErrorShapeMismatch, Path: file.f.Name(), Msg: fmt.Sprintf("tensor %q: ternary_2bit requires a 2D shape", ti.Name)}
			}
			if info.Scale == nil {
				return nil, &LoadError{Kind: LoadErrorShapeMismatch, Path: file.f.Name(), Msg: fmt.Sprintf("tensor %q: ternary_2bit requires a scale", ti.Name)}
			}
			packed := raw
			if deviceOf(ti.Name, deviceMap) == ml.DeviceAccelerator {
				packed = append([]byte{}, raw...)
			}
			tt, err := ternary.New(info.Shape[0], info.Shape[1], *info.Scale, packed)
			if err != nil {
				return nil, &LoadError{Kind: LoadErrorShapeMismatch, Path: file.f.Name(), Msg: fmt.Sprintf("tensor %q", ti.Name), Err: err}
			}
			out[ti.Name] = bitllama.RawTensor{Shape: info.Shape, Ternary: tt}
		case DTypeF32:
			floats, err := decodeF32(raw)
			if err != nil {
				return nil, &LoadError{Kind: LoadErrorShapeMismatch, Path: file.f.Name(), Msg: fmt.Sprintf("tensor %q", ti.Name), Err: err}
			}
			out[ti.Name] = bitllama.RawTensor{Shape: info.Shape, Floats: floats}
		case DTypeF16:
			floats, err := decodeF16(raw)
			if err != nil {
				return nil, &LoadError{Kind: LoadErrorShapeMismatch, Path: file.f.Name(), Msg: fmt.Sprintf("tensor %q", ti.Name), Err: err}
			}
			out[ti.Name] = bitllama.RawTensor{Shape: info.Shape, Floats: floats}
		default:
			return nil, &LoadError{Kind: LoadErrorUnsupportedDType, Path: file.f.Name(), Msg: fmt.Sprintf("tensor %q dtype %q", ti.Name, info.DType)}
		}
	}
	return out, nil
}
