package warptile

// Logical tensor coordinates. A coordinate is distinct from a linear offset:
// a Layout converts one into the other through its strides.

// PitchLinearCoord is a coordinate in the canonical pitch-linear space used
// by the tile iterators: the contiguous dimension is the one laid out
// consecutively in memory, the strided dimension steps by the layout stride.
type PitchLinearCoord struct {
	Contiguous int
	Strided    int
}

// Add returns the element-wise sum of two coordinates.
func (c PitchLinearCoord) Add(o PitchLinearCoord) PitchLinearCoord {
	return PitchLinearCoord{c.Contiguous + o.Contiguous, c.Strided + o.Strided}
}

// At returns the coordinate along the given rank (0 = contiguous, 1 = strided).
func (c PitchLinearCoord) At(rank int) int {
	if rank == 0 {
		return c.Contiguous
	}
	return c.Strided
}

// MatrixCoord is a (row, column) coordinate into a matrix.
type MatrixCoord struct {
	Row    int
	Column int
}

// Add returns the element-wise sum of two coordinates.
func (c MatrixCoord) Add(o MatrixCoord) MatrixCoord {
	return MatrixCoord{c.Row + o.Row, c.Column + o.Column}
}
