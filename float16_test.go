package warptile

import (
	"math"
	"testing"
)

func TestFloat16RoundTrip(t *testing.T) {
	// Values exactly representable in binary16 survive the round trip.
	values := []float32{0, 1, -1, 0.5, 2, 1024, 65504, -65504, 0.0009765625}
	for _, v := range values {
		got := Float16FromFloat32(v).ToFloat32()
		if got != v {
			t.Errorf("roundtrip(%g) = %g", v, got)
		}
	}
}

func TestFloat16RoundToNearestEven(t *testing.T) {
	cases := []struct {
		in   float32
		want float32
	}{
		{1 + 0x1p-11, 1},           // tie resolves down to even
		{1 + 3*0x1p-11, 1 + 0x1p-9}, // tie resolves up to even
		{1 + 0x1p-11 + 0x1p-20, 1 + 0x1p-10}, // above the tie rounds up
	}
	for _, c := range cases {
		got := Float16FromFloat32(c.in).ToFloat32()
		if got != c.want {
			t.Errorf("RNE(%x) = %g, want %g", c.in, got, c.want)
		}
	}
}

func TestFloat16Overflow(t *testing.T) {
	inf := Float16FromFloat32(100000).ToFloat32()
	if !math.IsInf(float64(inf), 1) {
		t.Errorf("RNE overflow = %g, want +Inf", inf)
	}

	// Truncation clamps to the largest finite value instead.
	clamped := Float16FromFloat32RZ(100000).ToFloat32()
	if clamped != 65504 {
		t.Errorf("RZ overflow = %g, want 65504", clamped)
	}
	negClamped := Float16FromFloat32RZ(-100000).ToFloat32()
	if negClamped != -65504 {
		t.Errorf("RZ negative overflow = %g, want -65504", negClamped)
	}
}

func TestFloat16Subnormals(t *testing.T) {
	// Largest subnormal: (1023/1024) * 2^-14.
	maxSub := float32(1023.0 / 1024.0 * 0x1p-14)
	if got := Float16FromFloat32(maxSub).ToFloat32(); got != maxSub {
		t.Errorf("max subnormal roundtrip = %g, want %g", got, maxSub)
	}

	// Smallest subnormal: 2^-24.
	minSub := float32(0x1p-24)
	if got := Float16FromFloat32(minSub).ToFloat32(); got != minSub {
		t.Errorf("min subnormal roundtrip = %g, want %g", got, minSub)
	}

	// Half the smallest subnormal ties to even, which is zero.
	if got := Float16FromFloat32(0x1p-25).ToFloat32(); got != 0 {
		t.Errorf("2^-25 = %g, want 0", got)
	}

	// Just above the tie rounds up to the smallest subnormal.
	if got := Float16FromFloat32(0x1p-25 + 0x1p-40).ToFloat32(); got != minSub {
		t.Errorf("just above 2^-25 = %g, want %g", got, minSub)
	}
}

func TestFloat16SpecialValues(t *testing.T) {
	if got := Float16FromFloat32(float32(math.Inf(1))).ToFloat32(); !math.IsInf(float64(got), 1) {
		t.Errorf("+Inf = %g", got)
	}
	if got := Float16FromFloat32(float32(math.Inf(-1))).ToFloat32(); !math.IsInf(float64(got), -1) {
		t.Errorf("-Inf = %g", got)
	}
	if got := Float16FromFloat32(float32(math.NaN())).ToFloat32(); !math.IsNaN(float64(got)) {
		t.Errorf("NaN = %g", got)
	}

	// Negative zero keeps its sign.
	neg := Float16FromFloat32(float32(math.Copysign(0, -1)))
	if neg&float16SignMask == 0 {
		t.Error("negative zero lost its sign")
	}
}

func TestFloat16TruncateTowardZero(t *testing.T) {
	cases := []struct {
		in   float32
		want float32
	}{
		{1 + 0x1p-11, 1},
		{1 + 3*0x1p-11, 1 + 0x1p-10},
		{-(1 + 0x1p-11), -1},
		{0x1p-25, 0}, // underflow to zero
	}
	for _, c := range cases {
		got := Float16FromFloat32RZ(c.in).ToFloat32()
		if got != c.want {
			t.Errorf("RZ(%x) = %g, want %g", c.in, got, c.want)
		}
	}
}

func TestBFloat16Rounding(t *testing.T) {
	cases := []struct {
		in   float32
		want float32
	}{
		{1, 1},
		{1 + 0x1p-8, 1},              // tie resolves down to even mantissa
		{1 + 3*0x1p-8, 1 + 0x1p-6},   // tie resolves up to even mantissa
		{1 + 0x1p-9, 1},              // below the tie rounds down
		{2, 2},
		{-3.5, -3.5},
	}
	for _, c := range cases {
		got := BFloat16FromFloat32(c.in).ToFloat32()
		if got != c.want {
			t.Errorf("bf16 RNE(%g) = %g, want %g", c.in, got, c.want)
		}
	}

	if got := BFloat16FromFloat32RZ(1 + 0x1p-8).ToFloat32(); got != 1 {
		t.Errorf("bf16 RZ(1+2^-8) = %g, want 1", got)
	}

	if got := BFloat16FromFloat32(float32(math.NaN())).ToFloat32(); !math.IsNaN(float64(got)) {
		t.Errorf("bf16 NaN = %g", got)
	}
}
