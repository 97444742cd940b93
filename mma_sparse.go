package warptile

import "math"

// Sparse warp-level MMA over 2:4 structured sparsity in the A operand. Out
// of every group of SparseGroupSize consecutive k elements of A, SparseRatio
// survive; A fragments hold only the survivors, at half the dense k extent,
// and a metadata fragment records which dense positions they came from as
// 2-bit indices.
//
// Metadata is packed one 32-bit word per instruction row. When MaxID2 is 2,
// two consecutive row sub-tiles share each word group: the sub-tile with
// id2 == 0 owns the low 16 bits of every word and id2 == 1 owns the high 16.

// SparseMmaConfig fixes the geometry of a sparse warp-level MMA engine.
type SparseMmaConfig struct {
	MmaConfig

	// MaxID2 is 1 when each row sub-tile owns whole metadata words, 2 when
	// adjacent row sub-tiles share them.
	MaxID2 int
}

func (c *SparseMmaConfig) validate(op string) error {
	if err := c.MmaConfig.validate(op); err != nil {
		return err
	}
	is := c.InstructionShape
	if is.K%SparseGroupSize != 0 {
		return NewConfigError(op, "instruction k extent %d must be divisible by the sparse group size %d",
			is.K, SparseGroupSize)
	}
	switch c.MaxID2 {
	case 1:
		if is.K > 32 {
			return NewConfigError(op, "instruction k extent %d exceeds one metadata word", is.K)
		}
	case 2:
		if is.K > 16 {
			return NewConfigError(op, "instruction k extent %d exceeds a shared metadata half-word", is.K)
		}
		if (c.WarpShape.M/is.M)%2 != 0 {
			return NewConfigError(op, "row sub-tile count %d must be even to pair metadata words",
				c.WarpShape.M/is.M)
		}
	default:
		return NewConfigError(op, "metadata sharing factor must be 1 or 2, got %d", c.MaxID2)
	}
	return nil
}

// SparseArchMma is the sparse warp-collective instruction. a holds the stored
// half of a 2:4 sparse M-by-K operand, M-by-K/2 row-major; e holds one
// metadata word per row of the sub-tile; id2 selects the half-word when words
// are shared between sub-tiles.
type SparseArchMma interface {
	Mma(d, a, b, c Fragment, e []uint32, id2, maxID2 int, shape GemmShape)
}

type scalarSparseMma struct{}

func (scalarSparseMma) Mma(d, a, b, c Fragment, e []uint32, id2, maxID2 int, shape GemmShape) {
	storedK := shape.K / SparseRatio
	groups := shape.K / SparseGroupSize
	for i := 0; i < shape.M; i++ {
		meta := e[i]
		if maxID2 == 2 {
			meta = (meta >> (16 * uint(id2))) & 0xFFFF
		}
		for j := 0; j < shape.N; j++ {
			sum := c[i*shape.N+j]
			for g := 0; g < groups; g++ {
				for s := 0; s < SparseRatio; s++ {
					idx := int((meta >> uint(MetaSizeInBits*(SparseRatio*g+s))) & 0x3)
					k := g*SparseGroupSize + idx
					sum += a[i*storedK+SparseRatio*g+s] * b[k*shape.N+j]
				}
			}
			d[i*shape.N+j] = sum
		}
	}
}

// SparseMmaTensorOp issues the sparse warp-level instruction sequence.
type SparseMmaTensorOp struct {
	cfg        SparseMmaConfig
	iterations MatrixShape
	mma        SparseArchMma
}

// NewSparseMmaTensorOp validates the configuration and constructs the engine.
func NewSparseMmaTensorOp(cfg SparseMmaConfig) (*SparseMmaTensorOp, error) {
	if err := cfg.validate("NewSparseMmaTensorOp"); err != nil {
		return nil, err
	}
	return &SparseMmaTensorOp{
		cfg: cfg,
		iterations: MatrixShape{
			Row:    cfg.WarpShape.M / cfg.InstructionShape.M,
			Column: cfg.WarpShape.N / cfg.InstructionShape.N,
		},
		mma: scalarSparseMma{},
	}, nil
}

// Config returns the engine configuration.
func (op *SparseMmaTensorOp) Config() SparseMmaConfig { return op.cfg }

// Iterations returns the sub-tile grid the engine visits.
func (op *SparseMmaTensorOp) Iterations() MatrixShape { return op.iterations }

// SetArchMma substitutes the underlying instruction, primarily for
// instrumentation and tests.
func (op *SparseMmaTensorOp) SetArchMma(m SparseArchMma) { op.mma = m }

// ElementsPerMetaWord returns how many stored A elements one 32-bit metadata
// word describes, a function of the instruction operand width.
func (op *SparseMmaTensorOp) ElementsPerMetaWord() int {
	return 128 / op.cfg.InstructionElementA.Bits()
}

// MetadataIndex maps a row sub-tile index to its metadata word group and the
// half-word selector within the group.
func (op *SparseMmaTensorOp) MetadataIndex(m int) (group, id2 int) {
	return m / op.cfg.MaxID2, m % op.cfg.MaxID2
}

// NewFragmentA allocates a stored-A fragment: one M-by-K/2 operand per row
// sub-tile.
func (op *SparseMmaTensorOp) NewFragmentA() Fragment {
	is := op.cfg.InstructionShape
	return NewFragment(op.iterations.Row * is.M * is.K / SparseRatio)
}

// NewFragmentB allocates a B fragment: one K-by-N operand per column sub-tile.
func (op *SparseMmaTensorOp) NewFragmentB() Fragment {
	is := op.cfg.InstructionShape
	return NewFragment(op.iterations.Column * is.K * is.N)
}

// NewFragmentC allocates an accumulator fragment.
func (op *SparseMmaTensorOp) NewFragmentC() Fragment {
	is := op.cfg.InstructionShape
	return NewFragment(op.iterations.Count() * is.M * is.N)
}

// NewFragmentE allocates a metadata fragment: one word per instruction row
// per word group.
func (op *SparseMmaTensorOp) NewFragmentE() []uint32 {
	groups := op.iterations.Row / op.cfg.MaxID2
	if op.iterations.Row%op.cfg.MaxID2 != 0 {
		groups++
	}
	return make([]uint32, groups*op.cfg.InstructionShape.M)
}

func (op *SparseMmaTensorOp) storedA(a Fragment, m int) Fragment {
	size := op.cfg.InstructionShape.M * op.cfg.InstructionShape.K / SparseRatio
	return a[m*size : (m+1)*size]
}

func (op *SparseMmaTensorOp) operandB(b Fragment, n int) Fragment {
	size := op.cfg.InstructionShape.K * op.cfg.InstructionShape.N
	return b[n*size : (n+1)*size]
}

func (op *SparseMmaTensorOp) accumIndex(m, n int) int {
	if op.cfg.AccumulatorsInRowMajor {
		return n + m*op.iterations.Column
	}
	return m + n*op.iterations.Row
}

func (op *SparseMmaTensorOp) operandC(c Fragment, m, n int) Fragment {
	size := op.cfg.InstructionShape.M * op.cfg.InstructionShape.N
	i := op.accumIndex(m, n)
	return c[i*size : (i+1)*size]
}

func (op *SparseMmaTensorOp) metaWords(e []uint32, group int) []uint32 {
	instM := op.cfg.InstructionShape.M
	return e[group*instM : (group+1)*instM]
}

// Transform converts the operand fragments to the element types the
// instruction consumes. The denser operand is converted in two halves, which
// keeps the live conversion working set at half a fragment.
func (op *SparseMmaTensorOp) Transform(dstA, dstB, srcA, srcB Fragment) {
	roundA := PreferredRoundStyle(op.cfg.InstructionElementA, op.cfg.ElementA)
	roundB := PreferredRoundStyle(op.cfg.InstructionElementB, op.cfg.ElementB)

	if op.cfg.VerticalVisit {
		half := len(srcB) / 2
		ConvertFragment(dstB[:half], srcB[:half], op.cfg.InstructionElementB, roundB)
		ConvertFragment(dstB[half:], srcB[half:], op.cfg.InstructionElementB, roundB)
		ConvertFragment(dstA, srcA, op.cfg.InstructionElementA, roundA)
		return
	}

	half := len(srcA) / 2
	ConvertFragment(dstA[:half], srcA[:half], op.cfg.InstructionElementA, roundA)
	ConvertFragment(dstA[half:], srcA[half:], op.cfg.InstructionElementA, roundA)
	ConvertFragment(dstB, srcB, op.cfg.InstructionElementB, roundB)
}

// Multiply performs the sparse warp-level multiply-accumulate D = A*B + C,
// expanding stored A values through the metadata fragment. Sub-tiles are
// visited in the same serpentine orders as the dense engine.
func (op *SparseMmaTensorOp) Multiply(d, a, b, c Fragment, e []uint32) {
	d.CopyFrom(c)
	shape := op.cfg.InstructionShape

	if op.cfg.VerticalVisit {
		for n := 0; n < op.iterations.Column; n++ {
			for m := 0; m < op.iterations.Row; m++ {
				mSerp := m
				if n%2 == 1 {
					mSerp = op.iterations.Row - 1 - m
				}
				group, id2 := op.MetadataIndex(mSerp)
				acc := op.operandC(d, mSerp, n)
				op.mma.Mma(acc, op.storedA(a, mSerp), op.operandB(b, n), acc,
					op.metaWords(e, group), id2, op.cfg.MaxID2, shape)
			}
		}
		return
	}

	for m := 0; m < op.iterations.Row; m++ {
		group, id2 := op.MetadataIndex(m)
		for n := 0; n < op.iterations.Column; n++ {
			nSerp := n
			if m%2 == 1 {
				nSerp = op.iterations.Column - 1 - n
			}
			acc := op.operandC(d, m, nSerp)
			op.mma.Mma(acc, op.storedA(a, m), op.operandB(b, nSerp), acc,
				op.metaWords(e, group), id2, op.cfg.MaxID2, shape)
		}
	}
}

// PackB fills a B fragment from a warp tile held K-by-N row-major with
// leading dimension ld.
func (op *SparseMmaTensorOp) PackB(frag Fragment, tile []float32, ld int) {
	instK, instN := op.cfg.InstructionShape.K, op.cfg.InstructionShape.N
	for n := 0; n < op.iterations.Column; n++ {
		dst := op.operandB(frag, n)
		for k := 0; k < instK; k++ {
			copy(dst[k*instN:(k+1)*instN], tile[k*ld+n*instN:k*ld+(n+1)*instN])
		}
	}
}

// UnpackC scatters an accumulator fragment into a warp tile held M-by-N
// row-major with leading dimension ld.
func (op *SparseMmaTensorOp) UnpackC(tile []float32, ld int, frag Fragment) {
	instM, instN := op.cfg.InstructionShape.M, op.cfg.InstructionShape.N
	for m := 0; m < op.iterations.Row; m++ {
		for n := 0; n < op.iterations.Column; n++ {
			src := op.operandC(frag, m, n)
			for i := 0; i < instM; i++ {
				row := m*instM + i
				copy(tile[row*ld+n*instN:row*ld+(n+1)*instN], src[i*instN:(i+1)*instN])
			}
		}
	}
}

// Compress fills the stored-A and metadata fragments from a dense warp A
// tile held M-by-K row-major with leading dimension ld. In each group of
// four k elements the two of largest magnitude survive, lower index first;
// on ties the lower index wins.
func (op *SparseMmaTensorOp) Compress(a Fragment, e []uint32, dense []float32, ld int) {
	instM, instK := op.cfg.InstructionShape.M, op.cfg.InstructionShape.K
	storedK := instK / SparseRatio
	groups := instK / SparseGroupSize

	for m := 0; m < op.iterations.Row; m++ {
		dst := op.storedA(a, m)
		group, id2 := op.MetadataIndex(m)
		words := op.metaWords(e, group)
		for i := 0; i < instM; i++ {
			row := dense[(m*instM+i)*ld:]
			var meta uint32
			for g := 0; g < groups; g++ {
				i0, i1 := pickSurvivors(row[g*SparseGroupSize : g*SparseGroupSize+SparseGroupSize])
				dst[i*storedK+SparseRatio*g] = row[g*SparseGroupSize+i0]
				dst[i*storedK+SparseRatio*g+1] = row[g*SparseGroupSize+i1]
				meta |= uint32(i0) << uint(MetaSizeInBits*SparseRatio*g)
				meta |= uint32(i1) << uint(MetaSizeInBits*(SparseRatio*g+1))
			}
			if op.cfg.MaxID2 == 2 {
				shift := 16 * uint(id2)
				words[i] = words[i]&^(uint32(0xFFFF)<<shift) | meta<<shift
			} else {
				words[i] = meta
			}
		}
	}
}

// pickSurvivors returns the indices of the two largest-magnitude entries of a
// four-element group, in ascending order.
func pickSurvivors(group []float32) (int, int) {
	i0, i1 := 0, 1
	if mag(group[1]) > mag(group[0]) {
		i0, i1 = 1, 0
	}
	for k := 2; k < SparseGroupSize; k++ {
		if mag(group[k]) > mag(group[i0]) {
			i1 = i0
			i0 = k
		} else if mag(group[k]) > mag(group[i1]) {
			i1 = k
		}
	}
	if i0 > i1 {
		i0, i1 = i1, i0
	}
	return i0, i1
}

func mag(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

// Expand reconstructs the dense warp A tile, M-by-K row-major with leading
// dimension ld, from the stored-A and metadata fragments. Positions not named
// by the metadata are zero.
func (op *SparseMmaTensorOp) Expand(dense []float32, ld int, a Fragment, e []uint32) {
	instM, instK := op.cfg.InstructionShape.M, op.cfg.InstructionShape.K
	storedK := instK / SparseRatio
	groups := instK / SparseGroupSize

	for m := 0; m < op.iterations.Row; m++ {
		src := op.storedA(a, m)
		group, id2 := op.MetadataIndex(m)
		words := op.metaWords(e, group)
		for i := 0; i < instM; i++ {
			row := dense[(m*instM+i)*ld:]
			for k := 0; k < instK; k++ {
				row[k] = 0
			}
			meta := words[i]
			if op.cfg.MaxID2 == 2 {
				meta = (meta >> (16 * uint(id2))) & 0xFFFF
			}
			for g := 0; g < groups; g++ {
				for s := 0; s < SparseRatio; s++ {
					idx := int((meta >> uint(MetaSizeInBits*(SparseRatio*g+s))) & 0x3)
					row[g*SparseGroupSize+idx] = src[i*storedK+SparseRatio*g+s]
				}
			}
		}
	}
}
