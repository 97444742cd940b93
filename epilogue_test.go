package warptile

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinearCombinationMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	accum := randomTile(rng, 100)
	source := randomTile(rng, 100)

	cases := []struct {
		name        string
		alpha, beta float32
		act         Activation
	}{
		{"neutral", 1, 0, Identity{}},
		{"scaled", 1.5, 0, Identity{}},
		{"with source", 1.5, 0.5, Identity{}},
		{"relu", 2, 0, ReLU{}},
		{"relu with source", 2, -0.5, ReLU{}},
		{"gelu", 1, 0, GELU{}},
		{"nil activation", 1.25, 0, nil},
	}
	for _, c := range cases {
		lc := LinearCombination{Alpha: c.alpha, Beta: c.beta, Act: c.act}
		got := make([]float32, len(accum))
		lc.ApplySlice(got, accum, source)

		want := make([]float32, len(accum))
		ReferenceEpilogue(want, accum, source, c.alpha, c.beta, c.act)
		require.Equal(t, want, got, c.name)
	}
}

func TestApplySliceAliasing(t *testing.T) {
	lc := LinearCombination{Alpha: 2, Act: ReLU{}}
	buf := []float32{-1, 0.5, 3, -0.25, 7}
	want := []float32{0, 1, 6, 0, 14}
	lc.ApplySlice(buf, buf, nil)
	require.Equal(t, want, buf)
}

func TestApplySliceOddLength(t *testing.T) {
	// Length that is not a multiple of any unroll width exercises the tail.
	n := EpilogueWidth()*3 + 1
	accum := make([]float32, n)
	for i := range accum {
		accum[i] = float32(i) - float32(n)/2
	}
	lc := NewLinearCombination()
	lc.Act = ReLU{}
	got := make([]float32, n)
	lc.ApplySlice(got, accum, nil)

	for i := range accum {
		want := accum[i]
		if want < 0 {
			want = 0
		}
		require.Equal(t, want, got[i], "index %d", i)
	}
}

func TestApplyTile(t *testing.T) {
	rng := rand.New(rand.NewSource(22))
	const rows, cols, ld = 4, 6, 8

	accum := randomTile(rng, rows*ld)
	source := randomTile(rng, rows*ld)
	d := make([]float32, rows*ld)

	lc := LinearCombination{Alpha: 1, Beta: 1, Act: Identity{}}
	lc.ApplyTile(d, ld, accum, ld, source, ld, rows, cols)

	for r := 0; r < rows; r++ {
		for c := 0; c < ld; c++ {
			if c < cols {
				require.Equal(t, accum[r*ld+c]+source[r*ld+c], d[r*ld+c], "(%d,%d)", r, c)
			} else {
				require.Zero(t, d[r*ld+c], "(%d,%d) outside the tile", r, c)
			}
		}
	}
}

func TestNewLinearCombinationDefaults(t *testing.T) {
	lc := NewLinearCombination()
	require.Equal(t, float32(1), lc.Alpha)
	require.Zero(t, lc.Beta)
	require.Equal(t, Identity{}, lc.Act)
}
