package warptile

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPipelineWithResidueK drives the full pipeline the way a threadblock
// mainloop would: predicated iterators stage k-slabs of A and B out of
// row-major matrices whose depth is not a multiple of the instruction depth,
// the staged slabs are packed into fragments, the warp engine accumulates
// across slabs, and the epilogue scales the result. The residue slab comes
// first, so A and B stay k-aligned without any per-access bound checks in
// steady state.
func TestPipelineWithResidueK(t *testing.T) {
	const (
		m = 32
		n = 32
		k = 37 // residue of 5 against the 16-deep instruction
	)
	rng := rand.New(rand.NewSource(13))

	problem := GemmShape{M: m, N: n, K: k}
	cfg := MmaConfig{
		WarpShape:           GemmShape{M: m, N: n, K: 16},
		InstructionShape:    GemmShape{M: 16, N: 8, K: 16},
		ElementA:            ElementF32,
		ElementB:            ElementF32,
		ElementC:            ElementF32,
		InstructionElementA: ElementF32,
		InstructionElementB: ElementF32,
	}
	op, err := NewMmaTensorOp(cfg)
	require.NoError(t, err)

	a := randomTile(rng, m*k)
	b := randomTile(rng, k*n)
	c := randomTile(rng, m*n)

	instK := cfg.InstructionShape.K
	residue := k % instK
	slabs := (k + instK - 1) / instK

	// A iterators advance along columns of an m-by-k row-major matrix.
	aCfg := MatrixIteratorConfig{
		Shape:       MatrixShape{Row: m, Column: instK},
		ElementBits: 32,
		AdvanceRank: 1,
		ThreadMap:   mustThreadMap(t, PitchLinearShape{Contiguous: instK, Strided: m}, WarpSize, 1),
		AccessWidth: 1,
	}
	// B iterators advance along rows of a k-by-n row-major matrix.
	bCfg := MatrixIteratorConfig{
		Shape:       MatrixShape{Row: instK, Column: n},
		ElementBits: 32,
		AdvanceRank: 0,
		ThreadMap:   mustThreadMap(t, PitchLinearShape{Contiguous: n, Strided: instK}, WarpSize, 1),
		AccessWidth: 1,
	}

	aIters := make([]*MatrixTileAccessIterator, WarpSize)
	bIters := make([]*MatrixTileAccessIterator, WarpSize)
	for tid := 0; tid < WarpSize; tid++ {
		aIters[tid], err = NewRowMajorIterator(aCfg, k, MatrixCoord{Row: m, Column: k}, tid, MatrixCoord{})
		require.NoError(t, err)
		bIters[tid], err = NewRowMajorIterator(bCfg, n, MatrixCoord{Row: k, Column: n}, tid, MatrixCoord{})
		require.NoError(t, err)
	}

	aSlab := make([]float32, m*instK)
	bSlab := make([]float32, instK*n)
	fragA := op.NewFragmentA()
	fragB := op.NewFragmentB()
	acc := op.NewFragmentC()
	op.PackC(acc, c, n)

	slabStart := func(slab int) int {
		if slab == 0 {
			return 0
		}
		return residue + (slab-1)*instK
	}

	aAccesses := aCfg.ThreadMap.Iterations.Count()
	bAccesses := bCfg.ThreadMap.Iterations.Count()

	for slab := 0; slab < slabs; slab++ {
		k0 := slabStart(slab)
		for i := range aSlab {
			aSlab[i] = 0
		}
		for i := range bSlab {
			bSlab[i] = 0
		}

		for tid := 0; tid < WarpSize; tid++ {
			it := aIters[tid]
			for a2 := 0; a2 < aAccesses; a2++ {
				if it.Valid() {
					off, ok := it.Get()
					require.True(t, ok)
					idx := int(off / 4)
					row, col := idx/k, idx%k
					aSlab[row*instK+(col-k0)] = a[idx]
				}
				it.Next()
			}
			it.AddTileOffset(MatrixCoord{Column: 1})

			it = bIters[tid]
			for a2 := 0; a2 < bAccesses; a2++ {
				if it.Valid() {
					off, ok := it.Get()
					require.True(t, ok)
					idx := int(off / 4)
					row, col := idx/n, idx%n
					bSlab[(row-k0)*n+col] = b[idx]
				}
				it.Next()
			}
			it.AddTileOffset(MatrixCoord{Row: 1})
		}

		op.PackA(fragA, aSlab, instK)
		op.PackB(fragB, bSlab, n)
		op.Multiply(acc, fragA, fragB, acc)
	}

	d := make([]float32, m*n)
	op.UnpackC(d, n, acc)

	lc := LinearCombination{Alpha: 1.5, Beta: 0.25, Act: ReLU{}}
	out := make([]float32, m*n)
	lc.ApplySlice(out, d, c)

	// The reference never sees slabs: it contracts the full depth directly.
	accumWant := make([]float32, m*n)
	ReferenceGemm(problem, accumWant, a, b, c)
	want := make([]float32, m*n)
	ReferenceEpilogue(want, accumWant, c, 1.5, 0.25, ReLU{})

	result := VerifyFloat32Array(want, out, ToleranceConfig{AbsTol: 1e-4, RelTol: 1e-4, ULPTol: 16})
	require.True(t, result.Pass(), result.String())
}

// TestPipelineSparse runs the sparse engine through the same staging path for
// the B operand while A is compressed offline, as a pruned-weights workload
// would do.
func TestPipelineSparse(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	cfg := sparseConfig(2, false)
	sop, err := NewSparseMmaTensorOp(cfg)
	require.NoError(t, err)

	ws := cfg.WarpShape
	dense := randomTile(rng, ws.M*ws.K)
	bTile := randomTile(rng, ws.K*ws.N)
	cTile := randomTile(rng, ws.M*ws.N)

	storedA := sop.NewFragmentA()
	meta := sop.NewFragmentE()
	sop.Compress(storedA, meta, dense, ws.K)

	fragB := sop.NewFragmentB()
	sop.PackB(fragB, bTile, ws.N)
	fragC := sop.NewFragmentC()

	dop, err := NewMmaTensorOp(cfg.MmaConfig)
	require.NoError(t, err)
	dop.PackC(fragC, cTile, ws.N)

	out := sop.NewFragmentC()
	sop.Multiply(out, storedA, fragB, fragC, meta)

	d := make([]float32, ws.M*ws.N)
	sop.UnpackC(d, ws.N, out)

	// Reference: expand the pruned operand and contract densely.
	expanded := make([]float32, ws.M*ws.K)
	sop.Expand(expanded, ws.K, storedA, meta)
	want := make([]float32, ws.M*ws.N)
	ReferenceGemm(GemmShape{M: ws.M, N: ws.N, K: ws.K}, want, expanded, bTile, cTile)

	result := VerifyFloat32Array(want, d, ToleranceConfig{AbsTol: 1e-5, RelTol: 1e-5, ULPTol: 8})
	require.True(t, result.Pass(), result.String())
}
