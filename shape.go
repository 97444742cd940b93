package warptile

// Tile and problem shapes. Shapes are fixed at configuration time; the
// divisibility relationships between them are checked once when a component
// is constructed, never in the per-access loops.

// PitchLinearShape is a 2D extent in pitch-linear space.
type PitchLinearShape struct {
	Contiguous int
	Strided    int
}

// Count returns the number of elements covered by the shape.
func (s PitchLinearShape) Count() int {
	return s.Contiguous * s.Strided
}

// At returns the size along the given rank (0 = contiguous, 1 = strided).
func (s PitchLinearShape) At(rank int) int {
	if rank == 0 {
		return s.Contiguous
	}
	return s.Strided
}

// MatrixShape is a rows-by-columns extent.
type MatrixShape struct {
	Row    int
	Column int
}

// Count returns the number of elements covered by the shape.
func (s MatrixShape) Count() int {
	return s.Row * s.Column
}

// GemmShape describes a matrix product: C[M,N] += A[M,K] * B[K,N].
type GemmShape struct {
	M, N, K int
}

// MN returns the accumulator extent of the shape.
func (s GemmShape) MN() MatrixShape { return MatrixShape{s.M, s.N} }

// MK returns the A operand extent of the shape.
func (s GemmShape) MK() MatrixShape { return MatrixShape{s.M, s.K} }

// KN returns the B operand extent of the shape.
func (s GemmShape) KN() MatrixShape { return MatrixShape{s.K, s.N} }
