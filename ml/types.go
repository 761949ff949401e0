// types.go - Datentypen und Konstanten fuer ML-Operationen
// Dieses Modul definiert grundlegende Typen wie DType und Device.
package ml

// DType represents the data type of tensor elements: the three dtypes
// the weight format carries (packed ternary weights and two floating
// point precisions for activations/norms), plus i32 and a catch-all
// DTypeOther.
type DType int

const (
	DTypeOther DType = iota
	DTypeF32
	DTypeF16
	DTypeTernary2Bit
	DTypeI32
)

// String names match the wire format's dtype strings.
func (d DType) String() string {
	switch d {
	case DTypeF32:
		return "f32"
	case DTypeF16:
		return "f16"
	case DTypeTernary2Bit:
		return "ternary_2bit"
	case DTypeI32:
		return "i32"
	default:
		return "other"
	}
}

// Device identifies where a tensor or layer physically resides.
type Device int

const (
	DeviceHost Device = iota
	DeviceAccelerator
)

func (d Device) String() string {
	if d == DeviceAccelerator {
		return "accelerator"
	}
	return "host"
}
