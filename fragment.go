package warptile

import (
	"math"
)

// Element types the iterators and MMA engines can be configured with. The
// engines carry logical values as float32 and quantize through the declared
// element type during operand transformation, reproducing the precision the
// hardware instruction would see.

// ElementType identifies the declared storage type of an operand.
type ElementType int

const (
	// ElementF32 is 32-bit floating point
	ElementF32 ElementType = iota
	// ElementF16 is IEEE half precision
	ElementF16
	// ElementBF16 is brain floating point
	ElementBF16
	// ElementS8 is signed 8-bit integer
	ElementS8
	// ElementS4 is signed 4-bit integer (sub-byte; accesses must pack to bytes)
	ElementS4
)

// Bits returns the storage width of the element type in bits.
func (t ElementType) Bits() int {
	switch t {
	case ElementF32:
		return 32
	case ElementF16, ElementBF16:
		return 16
	case ElementS8:
		return 8
	case ElementS4:
		return 4
	default:
		return 0
	}
}

// String returns the element type name.
func (t ElementType) String() string {
	switch t {
	case ElementF32:
		return "f32"
	case ElementF16:
		return "f16"
	case ElementBF16:
		return "bf16"
	case ElementS8:
		return "s8"
	case ElementS4:
		return "s4"
	default:
		return "unknown"
	}
}

// RoundStyle selects the rounding used when converting between element types.
type RoundStyle int

const (
	// RoundToNearest rounds to nearest, ties to even
	RoundToNearest RoundStyle = iota
	// RoundTowardZero truncates
	RoundTowardZero
)

// PreferredRoundStyle returns the rounding mode the instruction-operand
// conversion uses for a (destination, source) type pair. Floating-point
// narrowing rounds to nearest even; everything else truncates toward zero
// after saturation, which is what the integer instruction paths do.
func PreferredRoundStyle(dst, src ElementType) RoundStyle {
	if dst == src {
		return RoundTowardZero
	}
	switch dst {
	case ElementF16, ElementBF16, ElementF32:
		return RoundToNearest
	default:
		return RoundTowardZero
	}
}

// Fragment is a fixed-size per-thread (here: per-warp, since the warp is
// emulated collectively) register array holding the elements of one tile.
// Fragments are created fresh per tile iteration and overwritten in place.
type Fragment []float32

// NewFragment allocates a zeroed fragment of n elements.
func NewFragment(n int) Fragment {
	return make(Fragment, n)
}

// Clear zeroes the fragment.
func (f Fragment) Clear() {
	for i := range f {
		f[i] = 0
	}
}

// CopyFrom copies src into f. The fragments must have equal length.
func (f Fragment) CopyFrom(src Fragment) {
	copy(f, src)
}

// quantize rounds a value through the given element type, returning the value
// the hardware instruction would consume.
func quantize(v float32, t ElementType, round RoundStyle) float32 {
	switch t {
	case ElementF32:
		return v
	case ElementF16:
		if round == RoundTowardZero {
			return Float16FromFloat32RZ(v).ToFloat32()
		}
		return Float16FromFloat32(v).ToFloat32()
	case ElementBF16:
		if round == RoundTowardZero {
			return BFloat16FromFloat32RZ(v).ToFloat32()
		}
		return BFloat16FromFloat32(v).ToFloat32()
	case ElementS8:
		return clampRound(v, -128, 127, round)
	case ElementS4:
		return clampRound(v, -8, 7, round)
	default:
		return v
	}
}

func clampRound(v float32, lo, hi float32, round RoundStyle) float32 {
	var r float64
	if round == RoundTowardZero {
		r = math.Trunc(float64(v))
	} else {
		r = math.RoundToEven(float64(v))
	}
	r = math.Max(float64(lo), math.Min(float64(hi), r))
	return float32(r)
}

// ConvertFragment quantizes every element of src through the destination
// element type into dst. dst and src must have equal length.
func ConvertFragment(dst, src Fragment, to ElementType, round RoundStyle) {
	for i, v := range src {
		dst[i] = quantize(v, to, round)
	}
}
