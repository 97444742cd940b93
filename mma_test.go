package warptile

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingMma captures the (row, column) sub-tile visitation order by
// reading markers planted in the first element of each operand, then
// delegates to the scalar instruction.
type recordingMma struct {
	order []MatrixCoord
}

func (r *recordingMma) Mma(d, a, b, c Fragment, shape GemmShape) {
	r.order = append(r.order, MatrixCoord{Row: int(a[0]), Column: int(b[0])})
	scalarMma{}.Mma(d, a, b, c, shape)
}

func markedOp(t *testing.T, vertical bool) (*MmaTensorOp, *recordingMma, Fragment, Fragment) {
	t.Helper()
	op, err := NewMmaTensorOp(MmaConfig{
		WarpShape:           GemmShape{M: 64, N: 32, K: 16},
		InstructionShape:    GemmShape{M: 16, N: 8, K: 16},
		ElementA:            ElementF32,
		ElementB:            ElementF32,
		ElementC:            ElementF32,
		InstructionElementA: ElementF32,
		InstructionElementB: ElementF32,
		VerticalVisit:       vertical,
	})
	require.NoError(t, err)

	rec := &recordingMma{}
	op.SetArchMma(rec)

	a := op.NewFragmentA()
	b := op.NewFragmentB()
	for m := 0; m < op.Iterations().Row; m++ {
		op.operandA(a, m)[0] = float32(m)
	}
	for n := 0; n < op.Iterations().Column; n++ {
		op.operandB(b, n)[0] = float32(n)
	}
	return op, rec, a, b
}

func TestSerpentineHorizontal(t *testing.T) {
	op, rec, a, b := markedOp(t, false)
	d := op.NewFragmentC()
	op.Multiply(d, a, b, op.NewFragmentC())

	// 4 rows by 4 columns: even rows left to right, odd rows right to left.
	want := []MatrixCoord{
		{0, 0}, {0, 1}, {0, 2}, {0, 3},
		{1, 3}, {1, 2}, {1, 1}, {1, 0},
		{2, 0}, {2, 1}, {2, 2}, {2, 3},
		{3, 3}, {3, 2}, {3, 1}, {3, 0},
	}
	require.Equal(t, want, rec.order)
}

func TestSerpentineVertical(t *testing.T) {
	op, rec, a, b := markedOp(t, true)
	d := op.NewFragmentC()
	op.Multiply(d, a, b, op.NewFragmentC())

	// 4 columns outer: even columns top to bottom, odd columns bottom up.
	want := []MatrixCoord{
		{0, 0}, {1, 0}, {2, 0}, {3, 0},
		{3, 1}, {2, 1}, {1, 1}, {0, 1},
		{0, 2}, {1, 2}, {2, 2}, {3, 2},
		{3, 3}, {2, 3}, {1, 3}, {0, 3},
	}
	require.Equal(t, want, rec.order)
}

func TestEveryPairVisitedOnce(t *testing.T) {
	for _, vertical := range []bool{false, true} {
		op, rec, a, b := markedOp(t, vertical)
		d := op.NewFragmentC()
		op.Multiply(d, a, b, op.NewFragmentC())

		seen := make(map[MatrixCoord]int)
		for _, p := range rec.order {
			seen[p]++
		}
		require.Len(t, seen, op.Iterations().Count(), "vertical=%v", vertical)
		for p, n := range seen {
			require.Equal(t, 1, n, "pair %+v vertical=%v", p, vertical)
		}
	}
}

func TestAccumulatorOrderingDoesNotChangeResult(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	base := MmaConfig{
		WarpShape:           GemmShape{M: 32, N: 32, K: 16},
		InstructionShape:    GemmShape{M: 16, N: 8, K: 16},
		ElementA:            ElementF32,
		ElementB:            ElementF32,
		ElementC:            ElementF32,
		InstructionElementA: ElementF32,
		InstructionElementB: ElementF32,
	}

	aTile := randomTile(rng, 32*16)
	bTile := randomTile(rng, 16*32)
	cTile := randomTile(rng, 32*32)

	var results [][]float32
	for _, rowMajorAcc := range []bool{false, true} {
		cfg := base
		cfg.AccumulatorsInRowMajor = rowMajorAcc
		op, err := NewMmaTensorOp(cfg)
		require.NoError(t, err)

		a := op.NewFragmentA()
		b := op.NewFragmentB()
		acc := op.NewFragmentC()
		op.PackA(a, aTile, 16)
		op.PackB(b, bTile, 32)
		op.PackC(acc, cTile, 32)
		op.Multiply(acc, a, b, acc)

		out := make([]float32, 32*32)
		op.UnpackC(out, 32, acc)
		results = append(results, out)
	}
	require.Equal(t, results[0], results[1])
}

func TestDenseMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	problem := GemmShape{M: 64, N: 64, K: 48}

	for _, elem := range []ElementType{ElementF32, ElementF16, ElementBF16} {
		cfg := MmaConfig{
			WarpShape:           GemmShape{M: 32, N: 32, K: 16},
			InstructionShape:    GemmShape{M: 16, N: 8, K: 16},
			ElementA:            ElementF32,
			ElementB:            ElementF32,
			ElementC:            ElementF32,
			InstructionElementA: elem,
			InstructionElementB: elem,
		}
		op, err := NewMmaTensorOp(cfg)
		require.NoError(t, err)

		a := randomTile(rng, problem.M*problem.K)
		b := randomTile(rng, problem.K*problem.N)
		c := randomTile(rng, problem.M*problem.N)
		d := make([]float32, problem.M*problem.N)

		fragA := op.NewFragmentA()
		fragB := op.NewFragmentB()
		xfA := op.NewFragmentA()
		xfB := op.NewFragmentB()
		acc := op.NewFragmentC()

		for wm := 0; wm < problem.M; wm += cfg.WarpShape.M {
			for wn := 0; wn < problem.N; wn += cfg.WarpShape.N {
				op.PackC(acc, c[wm*problem.N+wn:], problem.N)
				for kk := 0; kk < problem.K; kk += cfg.WarpShape.K {
					op.PackA(fragA, a[wm*problem.K+kk:], problem.K)
					op.PackB(fragB, b[kk*problem.N+wn:], problem.N)
					op.Transform(xfA, xfB, fragA, fragB)
					op.Multiply(acc, xfA, xfB, acc)
				}
				op.UnpackC(d[wm*problem.N+wn:], problem.N, acc)
			}
		}

		want := make([]float32, problem.M*problem.N)
		ReferenceGemmQuantized(problem, want, a, b, c, elem, elem)

		result := VerifyFloat32Array(want, d, DefaultTolerance())
		require.True(t, result.Pass(), "elem %v: %s", elem, result.String())
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	op, err := NewMmaTensorOp(MmaConfig{
		WarpShape:           GemmShape{M: 32, N: 32, K: 16},
		InstructionShape:    GemmShape{M: 16, N: 8, K: 16},
		InstructionElementA: ElementF32,
		InstructionElementB: ElementF32,
	})
	require.NoError(t, err)

	tile := randomTile(rng, 32*32)
	frag := op.NewFragmentC()
	op.PackC(frag, tile, 32)
	out := make([]float32, 32*32)
	op.UnpackC(out, 32, frag)
	require.Equal(t, tile, out)
}

func TestMmaConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  MmaConfig
	}{
		{"rows not divisible", MmaConfig{
			WarpShape:        GemmShape{M: 40, N: 32, K: 16},
			InstructionShape: GemmShape{M: 16, N: 8, K: 16},
		}},
		{"k mismatch", MmaConfig{
			WarpShape:        GemmShape{M: 32, N: 32, K: 32},
			InstructionShape: GemmShape{M: 16, N: 8, K: 16},
		}},
		{"zero instruction", MmaConfig{
			WarpShape: GemmShape{M: 32, N: 32, K: 16},
		}},
	}
	for _, c := range cases {
		_, err := NewMmaTensorOp(c.cfg)
		require.Error(t, err, c.name)
		var terr *TileError
		require.ErrorAs(t, err, &terr, c.name)
		require.Equal(t, ErrTypeConfig, terr.Type, c.name)
	}
}

func TestTransformRounding(t *testing.T) {
	op, err := NewMmaTensorOp(MmaConfig{
		WarpShape:           GemmShape{M: 16, N: 8, K: 16},
		InstructionShape:    GemmShape{M: 16, N: 8, K: 16},
		ElementA:            ElementF32,
		ElementB:            ElementF32,
		InstructionElementA: ElementF16,
		InstructionElementB: ElementF16,
	})
	require.NoError(t, err)

	a := op.NewFragmentA()
	b := op.NewFragmentB()
	// 1 + 2^-11 is exactly halfway between adjacent f16 values 1 and
	// 1 + 2^-10; nearest-even resolves down to 1. 1 + 3*2^-11 is halfway
	// between 1 + 2^-10 and 1 + 2^-9 and resolves up to the even mantissa.
	a[0] = 1 + 0x1p-11
	a[1] = 1 + 3*0x1p-11
	xfA := op.NewFragmentA()
	xfB := op.NewFragmentB()
	op.Transform(xfA, xfB, a, b)

	require.Equal(t, float32(1), xfA[0])
	require.Equal(t, float32(1+0x1p-9), xfA[1])
}

func randomTile(rng *rand.Rand, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = rng.Float32()*2 - 1
	}
	return s
}
