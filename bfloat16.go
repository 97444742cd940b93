package warptile

import (
	"math"
)

// BFloat16 represents a 16-bit brain floating point number
// Format: 1 sign bit, 8 exponent bits, 7 mantissa bits
type BFloat16 uint16

// BFloat16FromFloat32 converts float32 to BFloat16 with round-to-nearest-even
func BFloat16FromFloat32(f float32) BFloat16 {
	bits := math.Float32bits(f)

	// NaN propagates without rounding (rounding could quiet it into infinity)
	if bits&0x7F800000 == 0x7F800000 && bits&0x7FFFFF != 0 {
		return BFloat16((bits >> 16) | 0x40)
	}

	round := bits & 0xFFFF
	bits >>= 16
	if round > 0x8000 || (round == 0x8000 && bits&1 == 1) {
		bits++
	}
	return BFloat16(bits)
}

// BFloat16FromFloat32RZ converts float32 to BFloat16 truncating toward zero
func BFloat16FromFloat32RZ(f float32) BFloat16 {
	bits := math.Float32bits(f)
	if bits&0x7F800000 == 0x7F800000 && bits&0x7FFFFF != 0 {
		return BFloat16((bits >> 16) | 0x40)
	}
	return BFloat16(bits >> 16)
}

// ToFloat32 converts BFloat16 to float32
func (b BFloat16) ToFloat32() float32 {
	// BFloat16 is the top 16 bits of a float32
	return math.Float32frombits(uint32(b) << 16)
}
