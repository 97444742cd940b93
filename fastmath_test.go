package warptile

import (
	"testing"
)

func TestLog2(t *testing.T) {
	cases := []struct {
		x    uint32
		want int
	}{
		{1, 0},
		{2, 1},
		{3, 1},
		{4, 2},
		{7, 2},
		{8, 3},
		{1 << 20, 20},
		{(1 << 20) + 1, 20},
	}
	for _, c := range cases {
		if got := Log2(c.x); got != c.want {
			t.Errorf("Log2(%d) = %d, want %d", c.x, got, c.want)
		}
	}
}

func TestLog2Up(t *testing.T) {
	cases := []struct {
		x    uint32
		want int
	}{
		{1, 0},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{16, 4},
		{17, 5},
	}
	for _, c := range cases {
		if got := Log2Up(c.x); got != c.want {
			t.Errorf("Log2Up(%d) = %d, want %d", c.x, got, c.want)
		}
	}
}

func TestLog2PanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Log2(0) did not panic")
		}
	}()
	Log2(0)
}

func TestBitCeilFloor(t *testing.T) {
	cases := []struct {
		x           uint32
		ceil, floor uint32
	}{
		{0, 1, 0},
		{1, 1, 1},
		{2, 2, 2},
		{3, 4, 2},
		{5, 8, 4},
		{1000, 1024, 512},
	}
	for _, c := range cases {
		if got := BitCeil(c.x); got != c.ceil {
			t.Errorf("BitCeil(%d) = %d, want %d", c.x, got, c.ceil)
		}
		if got := BitFloor(c.x); got != c.floor {
			t.Errorf("BitFloor(%d) = %d, want %d", c.x, got, c.floor)
		}
	}
}

func TestGCDLCM(t *testing.T) {
	if got := GCD(12, 18); got != 6 {
		t.Errorf("GCD(12, 18) = %d, want 6", got)
	}
	if got := GCD(7, 13); got != 1 {
		t.Errorf("GCD(7, 13) = %d, want 1", got)
	}
	if got := LCM(4, 6); got != 12 {
		t.Errorf("LCM(4, 6) = %d, want 12", got)
	}
	if got := LCM(5, 5); got != 5 {
		t.Errorf("LCM(5, 5) = %d, want 5", got)
	}
}

func TestShiftSigned(t *testing.T) {
	if got := Shiftl(8, 2); got != 32 {
		t.Errorf("Shiftl(8, 2) = %d, want 32", got)
	}
	if got := Shiftl(8, -2); got != 2 {
		t.Errorf("Shiftl(8, -2) = %d, want 2", got)
	}
	if got := Shiftr(8, 2); got != 2 {
		t.Errorf("Shiftr(8, 2) = %d, want 2", got)
	}
	if got := Shiftr(8, -2); got != 32 {
		t.Errorf("Shiftr(8, -2) = %d, want 32", got)
	}
}

func TestFastDivmod(t *testing.T) {
	divisors := []uint32{1, 2, 3, 5, 7, 16, 17, 31, 32, 100, 255, 1000, 65535}
	values := []uint32{0, 1, 2, 15, 16, 17, 99, 100, 101, 1 << 15, 1<<20 + 7, 1<<31 - 1}

	for _, d := range divisors {
		f := NewFastDivmod(d)
		for _, x := range values {
			quo, rem := f.Divmod(x)
			if quo != x/d || rem != x%d {
				t.Errorf("Divmod(%d) with d=%d = (%d, %d), want (%d, %d)",
					x, d, quo, rem, x/d, x%d)
			}
			if got := f.Div(x); got != x/d {
				t.Errorf("Div(%d) with d=%d = %d, want %d", x, d, got, x/d)
			}
		}
	}
}

func TestSignumAbs(t *testing.T) {
	if Signum(-7) != -1 || Signum(0) != 0 || Signum(3) != 1 {
		t.Error("Signum wrong")
	}
	if AbsInt(-5) != 5 || AbsInt(5) != 5 {
		t.Error("AbsInt wrong")
	}
	if SafeDiv(10, 0) != 0 || SafeDiv(10, 2) != 5 {
		t.Error("SafeDiv wrong")
	}
}
