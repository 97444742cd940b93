package warptile

// Memory layouts map a logical coordinate to a linear element offset through
// one or more strides. The tile iterators operate in a canonical pitch-linear
// space; the matrix layouts (row-major, column-major, interleaved) are
// expressed as coordinate transforms into that space rather than as separate
// address-generation schemes. Affine rank-2 layouts carry two independent
// strides and have their own iterator.

// PitchLinear maps (contiguous, strided) to contiguous + strided*Stride.
// This is the canonical layout the tile iterators are written against.
type PitchLinear struct {
	// Stride is the element distance between consecutive strided coordinates.
	Stride int64
}

// NewPitchLinear constructs a pitch-linear layout with the given stride.
func NewPitchLinear(stride int64) PitchLinear {
	return PitchLinear{Stride: stride}
}

// Offset returns the linear element offset of a coordinate.
func (l PitchLinear) Offset(c PitchLinearCoord) int64 {
	return int64(c.Contiguous) + int64(c.Strided)*l.Stride
}

// AffineRank2 maps (contiguous, strided) through two independent strides.
// Unlike PitchLinear, neither dimension is assumed unit-stride, so the fast
// contiguous-pointer arithmetic of the pitch-linear iterator does not apply.
type AffineRank2 struct {
	StrideContiguous int64
	StrideStrided    int64
}

// Offset returns the linear element offset of a coordinate.
func (l AffineRank2) Offset(c PitchLinearCoord) int64 {
	return int64(c.Contiguous)*l.StrideContiguous + int64(c.Strided)*l.StrideStrided
}

// Coordinate transforms between matrix space and the canonical pitch-linear
// space. Column-major matrices are pitch-linear with rows contiguous;
// row-major matrices swap the coordinate order.

func columnMajorCoord(c MatrixCoord) PitchLinearCoord {
	return PitchLinearCoord{Contiguous: c.Row, Strided: c.Column}
}

func rowMajorCoord(c MatrixCoord) PitchLinearCoord {
	return PitchLinearCoord{Contiguous: c.Column, Strided: c.Row}
}

// Interleaved layouts pack Interleave consecutive strided coordinates into
// the contiguous dimension. A column-major matrix interleaved by k maps an
// (r, c) extent onto a pitch-linear extent of (r*k, c/k).

func columnMajorInterleavedCoord(c MatrixCoord, interleave int) PitchLinearCoord {
	return PitchLinearCoord{Contiguous: c.Row * interleave, Strided: c.Column / interleave}
}

func rowMajorInterleavedCoord(c MatrixCoord, interleave int) PitchLinearCoord {
	return PitchLinearCoord{Contiguous: c.Column * interleave, Strided: c.Row / interleave}
}

// PermuteLayout is a bijective coordinate transform applied before address
// computation when an iterator runs in permute mode. Implementations are
// constructed by the caller with whatever extent and stride information the
// permutation needs; the iterator only ever calls Offset.
type PermuteLayout interface {
	// Offset returns the linear element offset of the permuted coordinate.
	Offset(c PitchLinearCoord) int64
}

// TransposePermute exchanges the roles of the two coordinates: the access at
// (contiguous, strided) lands where (strided, contiguous) would under a
// pitch-linear layout with the given stride.
type TransposePermute struct {
	Stride int64
}

// Offset implements PermuteLayout.
func (p TransposePermute) Offset(c PitchLinearCoord) int64 {
	return int64(c.Strided) + int64(c.Contiguous)*p.Stride
}
