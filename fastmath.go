package warptile

// Integer and bit arithmetic used by the address computation throughout the
// iterators and thread maps.

import (
	"math/bits"
)

// GCD returns the greatest common divisor of two non-negative integers.
func GCD(a, b int) int {
	for {
		if a == 0 {
			return b
		}
		b %= a
		if b == 0 {
			return a
		}
		a %= b
	}
}

// LCM returns the least common multiple of two positive integers.
func LCM(a, b int) int {
	return (a / GCD(a, b)) * b
}

// HasSingleBit reports whether x is an integral power of two.
func HasSingleBit(x uint32) bool {
	return x != 0 && x&(x-1) == 0
}

// BitWidth returns the smallest number of bits needed to represent x.
// BitWidth(0) == 0; otherwise it equals 1 + floor(log2(x)).
func BitWidth(x uint32) int {
	return bits.Len32(x)
}

// BitCeil returns the smallest integral power of two not less than x.
// BitCeil(0) == 1.
func BitCeil(x uint32) uint32 {
	if x == 0 {
		return 1
	}
	return 1 << BitWidth(x-1)
}

// BitFloor returns the largest integral power of two not greater than x.
// BitFloor(0) == 0.
func BitFloor(x uint32) uint32 {
	if x == 0 {
		return 0
	}
	return 1 << (BitWidth(x) - 1)
}

// Rotl circularly rotates x left by s bit positions. Negative s rotates right.
func Rotl(x uint32, s int) uint32 {
	return bits.RotateLeft32(x, s)
}

// Rotr circularly rotates x right by s bit positions. Negative s rotates left.
func Rotr(x uint32, s int) uint32 {
	return bits.RotateLeft32(x, -s)
}

// CountlZero counts consecutive zero bits starting from the most significant bit.
func CountlZero(x uint32) int {
	return bits.LeadingZeros32(x)
}

// CountlOne counts consecutive one bits starting from the most significant bit.
func CountlOne(x uint32) int {
	return bits.LeadingZeros32(^x)
}

// CountrZero counts consecutive zero bits starting from the least significant bit.
func CountrZero(x uint32) int {
	return bits.TrailingZeros32(x)
}

// CountrOne counts consecutive one bits starting from the least significant bit.
func CountrOne(x uint32) int {
	return bits.TrailingZeros32(^x)
}

// Popcount returns the number of one bits in x.
func Popcount(x uint32) int {
	return bits.OnesCount32(x)
}

// Shiftl shifts x left by s bit positions. Negative s shifts right.
func Shiftl(x uint32, s int) uint32 {
	if s >= 0 {
		return x << s
	}
	return x >> -s
}

// Shiftr shifts x right by s bit positions. Negative s shifts left.
func Shiftr(x uint32, s int) uint32 {
	if s >= 0 {
		return x >> s
	}
	return x << -s
}

// Log2 returns floor(log2(x)). Precondition: x > 0.
func Log2(x uint32) int {
	if x == 0 {
		panic("warptile: Log2 requires a strictly positive operand")
	}
	return BitWidth(x) - 1
}

// Log2Up returns ceil(log2(x)). Precondition: x > 0.
func Log2Up(x uint32) int {
	if x == 0 {
		panic("warptile: Log2Up requires a strictly positive operand")
	}
	return BitWidth(x - 1)
}

// SafeDiv returns a / b. Precondition: a % b == 0.
func SafeDiv(a, b int) int {
	return a / b
}

// MinInt returns the smaller of two ints.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// MaxInt returns the larger of two ints.
func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// AbsInt returns the absolute value of a.
func AbsInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// Signum returns 1 if x > 0, -1 if x < 0, and 0 if x is zero.
func Signum(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// FastDivmod replaces integer division by a fixed divisor with a
// multiply-shift sequence. The divisor is fixed when the FastDivmod is
// constructed; Div and Divmod are then branch-light and contain no hardware
// divide. Valid for dividends in [0, 2^31).
type FastDivmod struct {
	Divisor    uint32
	multiplier uint32
	shift      uint
}

// NewFastDivmod precomputes the multiply-shift constants for division by d.
// Precondition: d > 0.
func NewFastDivmod(d uint32) FastDivmod {
	if d == 0 {
		panic("warptile: NewFastDivmod requires a strictly positive divisor")
	}
	if d == 1 {
		return FastDivmod{Divisor: 1}
	}
	p := uint(31 + Log2Up(d))
	m := uint32(((uint64(1) << p) + uint64(d) - 1) / uint64(d))
	return FastDivmod{Divisor: d, multiplier: m, shift: p}
}

// Div returns x / Divisor.
func (f FastDivmod) Div(x uint32) uint32 {
	if f.multiplier == 0 {
		return x
	}
	return uint32((uint64(x) * uint64(f.multiplier)) >> f.shift)
}

// Divmod returns (x / Divisor, x % Divisor).
func (f FastDivmod) Divmod(x uint32) (quo, rem uint32) {
	quo = f.Div(x)
	rem = x - quo*f.Divisor
	return quo, rem
}
