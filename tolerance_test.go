package warptile

import (
	"math"
	"testing"
)

func TestFloat32NearEqual(t *testing.T) {
	tol := DefaultTolerance()

	cases := []struct {
		name string
		a, b float32
		want bool
	}{
		{"exact", 1.5, 1.5, true},
		{"signed zeros", 0, float32(math.Copysign(0, -1)), true},
		{"within abs", 1e-8, 2e-8, true},
		{"within rel", 1000, 1000.001, true},
		{"outside rel", 1000, 1001, false},
		{"both nan", float32(math.NaN()), float32(math.NaN()), true},
		{"nan vs number", float32(math.NaN()), 1, false},
		{"both +inf", float32(math.Inf(1)), float32(math.Inf(1)), true},
		{"opposite inf", float32(math.Inf(1)), float32(math.Inf(-1)), false},
		{"inf vs number", float32(math.Inf(1)), 1e30, false},
	}
	for _, c := range cases {
		if got := Float32NearEqual(c.a, c.b, tol); got != c.want {
			t.Errorf("%s: NearEqual(%g, %g) = %v, want %v", c.name, c.a, c.b, got, c.want)
		}
	}
}

func TestFloat32ULPDiff(t *testing.T) {
	if got := Float32ULPDiff(1, 1); got != 0 {
		t.Errorf("ULPDiff(1,1) = %d", got)
	}
	next := math.Float32frombits(math.Float32bits(1) + 1)
	if got := Float32ULPDiff(1, next); got != 1 {
		t.Errorf("ULPDiff to next float = %d, want 1", got)
	}
	if got := Float32ULPDiff(1, -1); got != math.MaxInt32 {
		t.Errorf("ULPDiff across signs = %d, want MaxInt32", got)
	}
}

func TestVerifyFloat32Array(t *testing.T) {
	expected := []float32{1, 2, 3, 4}
	actual := []float32{1, 2, 3, 4}

	r := VerifyFloat32Array(expected, actual, StrictTolerance())
	if !r.Pass() || r.FirstError != -1 {
		t.Errorf("identical arrays: %+v", r)
	}

	actual[2] = 5
	r = VerifyFloat32Array(expected, actual, StrictTolerance())
	if r.Pass() {
		t.Error("mismatch not detected")
	}
	if r.NumErrors != 1 || r.FirstError != 2 {
		t.Errorf("NumErrors=%d FirstError=%d, want 1 and 2", r.NumErrors, r.FirstError)
	}
	if r.MaxAbsError != 2 {
		t.Errorf("MaxAbsError=%g, want 2", r.MaxAbsError)
	}

	r = VerifyFloat32Array(expected, actual[:3], StrictTolerance())
	if r.Pass() {
		t.Error("length mismatch not detected")
	}
}
