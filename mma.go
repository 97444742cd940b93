package warptile

// MmaTensorOp is the warp-level matrix multiply-accumulate engine. Given
// fully loaded, type-transformed operand fragments for one warp tile, it
// issues one instruction-shaped multiply-accumulate per (row, column)
// sub-tile pair, visiting sub-tiles in serpentine order so the operand
// fragment loaded for the previous issue is reused by the next.
//
// The warp's k extent equals the instruction k extent: walking the problem's
// K dimension is the operand iterators' job, one warp tile per step.

// MmaConfig fixes the geometry and element types of a warp-level MMA engine.
type MmaConfig struct {
	// WarpShape is the warp tile: M-by-N accumulator, K-deep product.
	WarpShape GemmShape

	// InstructionShape is the sub-tile one hardware instruction covers.
	InstructionShape GemmShape

	// ElementA, ElementB and ElementC are the source fragment element types.
	ElementA ElementType
	ElementB ElementType
	ElementC ElementType

	// InstructionElementA and InstructionElementB are the operand types the
	// instruction consumes; Transform converts source fragments into them.
	InstructionElementA ElementType
	InstructionElementB ElementType

	// AccumulatorsInRowMajor stores accumulator sub-tiles row-major. Used
	// when the output layout is interleaved. Controls indexing only, never
	// the mathematical result.
	AccumulatorsInRowMajor bool

	// VerticalVisit serpentines over rows within each column instead of
	// columns within each row.
	VerticalVisit bool
}

func (c *MmaConfig) validate(op string) error {
	is := c.InstructionShape
	if is.M <= 0 || is.N <= 0 || is.K <= 0 {
		return NewConfigError(op, "instruction shape must be positive, got %dx%dx%d", is.M, is.N, is.K)
	}
	ws := c.WarpShape
	if ws.M%is.M != 0 || ws.N%is.N != 0 {
		return NewConfigError(op, "warp shape %dx%d not divisible by instruction shape %dx%d",
			ws.M, ws.N, is.M, is.N)
	}
	if ws.K != is.K {
		return NewConfigError(op, "warp k extent %d must equal instruction k extent %d", ws.K, is.K)
	}
	return nil
}

// ArchMma is the warp-collective instruction the engine issues. The scalar
// implementation used by default computes the product exactly; tests and
// instrumentation may substitute their own.
type ArchMma interface {
	// Mma computes d = a*b + c for one instruction sub-tile. a is M-by-K
	// row-major, b is K-by-N row-major, c and d are M-by-N row-major. d may
	// alias c.
	Mma(d, a, b, c Fragment, shape GemmShape)
}

type scalarMma struct{}

func (scalarMma) Mma(d, a, b, c Fragment, shape GemmShape) {
	for i := 0; i < shape.M; i++ {
		for j := 0; j < shape.N; j++ {
			sum := c[i*shape.N+j]
			for k := 0; k < shape.K; k++ {
				sum += a[i*shape.K+k] * b[k*shape.N+j]
			}
			d[i*shape.N+j] = sum
		}
	}
}

// MmaTensorOp issues the dense warp-level instruction sequence.
type MmaTensorOp struct {
	cfg MmaConfig

	// iterations is the sub-tile grid: WarpShape / InstructionShape.
	iterations MatrixShape

	mma ArchMma
}

// NewMmaTensorOp validates the configuration and constructs the engine.
func NewMmaTensorOp(cfg MmaConfig) (*MmaTensorOp, error) {
	if err := cfg.validate("NewMmaTensorOp"); err != nil {
		return nil, err
	}
	return &MmaTensorOp{
		cfg: cfg,
		iterations: MatrixShape{
			Row:    cfg.WarpShape.M / cfg.InstructionShape.M,
			Column: cfg.WarpShape.N / cfg.InstructionShape.N,
		},
		mma: scalarMma{},
	}, nil
}

// Config returns the engine configuration.
func (op *MmaTensorOp) Config() MmaConfig { return op.cfg }

// Iterations returns the sub-tile grid the engine visits.
func (op *MmaTensorOp) Iterations() MatrixShape { return op.iterations }

// SetArchMma substitutes the underlying instruction, primarily for
// instrumentation and tests.
func (op *MmaTensorOp) SetArchMma(m ArchMma) { op.mma = m }

// Fragment extents.

// NewFragmentA allocates an A fragment: one M-by-K operand per row sub-tile.
func (op *MmaTensorOp) NewFragmentA() Fragment {
	return NewFragment(op.iterations.Row * op.cfg.InstructionShape.M * op.cfg.InstructionShape.K)
}

// NewFragmentB allocates a B fragment: one K-by-N operand per column sub-tile.
func (op *MmaTensorOp) NewFragmentB() Fragment {
	return NewFragment(op.iterations.Column * op.cfg.InstructionShape.K * op.cfg.InstructionShape.N)
}

// NewFragmentC allocates an accumulator fragment: one M-by-N operand per
// (row, column) sub-tile pair.
func (op *MmaTensorOp) NewFragmentC() Fragment {
	return NewFragment(op.iterations.Count() * op.cfg.InstructionShape.M * op.cfg.InstructionShape.N)
}

func (op *MmaTensorOp) operandA(a Fragment, m int) Fragment {
	size := op.cfg.InstructionShape.M * op.cfg.InstructionShape.K
	return a[m*size : (m+1)*size]
}

func (op *MmaTensorOp) operandB(b Fragment, n int) Fragment {
	size := op.cfg.InstructionShape.K * op.cfg.InstructionShape.N
	return b[n*size : (n+1)*size]
}

// accumIndex maps a sub-tile pair to its operand slot in the accumulator
// fragment. Row-major storage is used when the output layout is interleaved.
func (op *MmaTensorOp) accumIndex(m, n int) int {
	if op.cfg.AccumulatorsInRowMajor {
		return n + m*op.iterations.Column
	}
	return m + n*op.iterations.Row
}

func (op *MmaTensorOp) operandC(c Fragment, m, n int) Fragment {
	size := op.cfg.InstructionShape.M * op.cfg.InstructionShape.N
	i := op.accumIndex(m, n)
	return c[i*size : (i+1)*size]
}

// Transform converts the operand fragments to the element types the
// instruction consumes, with the rounding mode preferred for each type pair.
func (op *MmaTensorOp) Transform(dstA, dstB, srcA, srcB Fragment) {
	roundA := PreferredRoundStyle(op.cfg.InstructionElementA, op.cfg.ElementA)
	roundB := PreferredRoundStyle(op.cfg.InstructionElementB, op.cfg.ElementB)
	ConvertFragment(dstA, srcA, op.cfg.InstructionElementA, roundA)
	ConvertFragment(dstB, srcB, op.cfg.InstructionElementB, roundB)
}

// Multiply performs the warp-level matrix multiply-accumulate D = A*B + C.
// A and B must already be transformed. Every (row, column) sub-tile pair is
// visited exactly once, in serpentine order.
func (op *MmaTensorOp) Multiply(d, a, b, c Fragment) {
	d.CopyFrom(c)
	shape := op.cfg.InstructionShape

	if op.cfg.VerticalVisit {
		for n := 0; n < op.iterations.Column; n++ {
			for m := 0; m < op.iterations.Row; m++ {
				mSerp := m
				if n%2 == 1 {
					mSerp = op.iterations.Row - 1 - m
				}
				acc := op.operandC(d, mSerp, n)
				op.mma.Mma(acc, op.operandA(a, mSerp), op.operandB(b, n), acc, shape)
			}
		}
		return
	}

	for m := 0; m < op.iterations.Row; m++ {
		for n := 0; n < op.iterations.Column; n++ {
			nSerp := n
			if m%2 == 1 {
				nSerp = op.iterations.Column - 1 - n
			}
			acc := op.operandC(d, m, nSerp)
			op.mma.Mma(acc, op.operandA(a, m), op.operandB(b, nSerp), acc, shape)
		}
	}
}

// PackA fills an A fragment from a warp tile held M-by-K row-major with
// leading dimension ld.
func (op *MmaTensorOp) PackA(frag Fragment, tile []float32, ld int) {
	instM, instK := op.cfg.InstructionShape.M, op.cfg.InstructionShape.K
	for m := 0; m < op.iterations.Row; m++ {
		dst := op.operandA(frag, m)
		for i := 0; i < instM; i++ {
			row := m*instM + i
			copy(dst[i*instK:(i+1)*instK], tile[row*ld:row*ld+instK])
		}
	}
}

// PackB fills a B fragment from a warp tile held K-by-N row-major with
// leading dimension ld.
func (op *MmaTensorOp) PackB(frag Fragment, tile []float32, ld int) {
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
func (op *MmaTensorOp) UnpackC(tile []float32, ld int, frag Fragment) {
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

// PackC fills an accumulator fragment from a warp tile held M-by-N row-major
// with leading dimension ld.
func (op *MmaTensorOp) PackC(frag Fragment, tile []float32, ld int) {
	instM, instN := op.cfg.InstructionShape.M, op.cfg.InstructionShape.N
	for m := 0; m < op.iterations.Row; m++ {
		for n := 0; n < op.iterations.Column; n++ {
			dst := op.operandC(frag, m, n)
			for i := 0; i < instM; i++ {
				row := m*instM + i
				copy(dst[i*instN:(i+1)*instN], tile[row*ld+n*instN:row*ld+(n+1)*instN])
			}
		}
	}
}
