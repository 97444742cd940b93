package warptile

import (
	"math"
)

// Float16 represents a 16-bit floating point number (IEEE binary16)
type Float16 uint16

// Float16 conversion constants
const (
	float16SignMask     = 0x8000
	float16ExponentMask = 0x7C00
	float16MantissaMask = 0x03FF
	float16ExponentBias = 15
	float16MantissaBits = 10
)

// ToFloat32 converts Float16 to float32
func (f Float16) ToFloat32() float32 {
	sign := uint32(f&float16SignMask) << 16
	exponent := (f & float16ExponentMask) >> float16MantissaBits
	mantissa := f & float16MantissaMask

	if exponent == 0 {
		// Subnormal or zero
		if mantissa == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal - normalize it
		exp := uint32(1)
		for mantissa&0x200 == 0 {
			mantissa <<= 1
			exp++
		}
		mantissa &= 0x1FF
		exponentBits := 127 - 15 - uint16(exp) + 1
		return math.Float32frombits(sign | (uint32(exponentBits) << 23) | (uint32(mantissa) << 13))
	} else if exponent == 0x1F {
		// Infinity or NaN
		if mantissa == 0 {
			return math.Float32frombits(sign | 0x7F800000) // Infinity
		}
		return math.Float32frombits(sign | 0x7FC00000 | (uint32(mantissa) << 13)) // NaN
	}

	// Normal number
	return math.Float32frombits(sign | ((uint32(exponent) + 127 - 15) << 23) | (uint32(mantissa) << 13))
}

// Float16FromFloat32 converts float32 to Float16 with round-to-nearest-even,
// the rounding the tensor instructions use for operand conversion.
func Float16FromFloat32(f float32) Float16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & float16SignMask)
	exponent := (bits >> 23) & 0xFF
	mantissa := bits & 0x7FFFFF

	// Infinity or NaN
	if exponent == 0xFF {
		if mantissa == 0 {
			return Float16(sign | float16ExponentMask)
		}
		return Float16(sign | float16ExponentMask | uint16(mantissa>>13) | 1)
	}

	exp := int(exponent) - 127 + float16ExponentBias

	if exp >= 0x1F {
		// Overflow to infinity
		return Float16(sign | float16ExponentMask)
	}

	if exp <= 0 {
		// Subnormal range; shift the mantissa (with its implicit bit) into
		// place and round to nearest even.
		if exp < -10 {
			return Float16(sign)
		}
		m := mantissa | 0x800000
		shift := uint(14 - exp)
		q := m >> shift
		r := m & ((1 << shift) - 1)
		half := uint32(1) << (shift - 1)
		if r > half || (r == half && q&1 == 1) {
			q++
		}
		return Float16(sign | uint16(q))
	}

	// Normal number: round the 23-bit mantissa to 10 bits, nearest even.
	m := mantissa
	round := m & 0x1FFF
	m >>= 13
	if round > 0x1000 || (round == 0x1000 && m&1 == 1) {
		m++
		if m == 0x400 {
			m = 0
			exp++
			if exp >= 0x1F {
				return Float16(sign | float16ExponentMask)
			}
		}
	}
	return Float16(sign | uint16(exp)<<float16MantissaBits | uint16(m))
}

// Float16FromFloat32RZ converts float32 to Float16 truncating toward zero.
func Float16FromFloat32RZ(f float32) Float16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & float16SignMask)
	exponent := (bits >> 23) & 0xFF
	mantissa := bits & 0x7FFFFF

	if exponent == 0xFF {
		if mantissa == 0 {
			return Float16(sign | float16ExponentMask)
		}
		return Float16(sign | float16ExponentMask | uint16(mantissa>>13) | 1)
	}

	exp := int(exponent) - 127 + float16ExponentBias
	if exp <= 0 {
		// Underflow to zero
		return Float16(sign)
	}
	if exp >= 0x1F {
		// Magnitude too large; truncation clamps to the largest finite value
		return Float16(sign | (0x1E << float16MantissaBits) | float16MantissaMask)
	}
	return Float16(sign | uint16(exp)<<float16MantissaBits | uint16(mantissa>>13))
}
