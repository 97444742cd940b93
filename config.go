// Package warptile configuration constants
package warptile

// Warp geometry
const (
	// WarpSize is the number of threads cooperating in one warp-collective
	// matrix instruction
	WarpSize = 32
)

// Predicate mask packing. The packing is chosen so that each predicate
// occupies the low bit of a nibble-aligned position within a byte, which is
// what the hardware's per-byte predicate selection expects.
const (
	// PredicatesPerByte is the number of predicate bits stored per byte
	PredicatesPerByte = 4

	// PredicatesPerWord is the number of predicate bits stored per 32-bit word
	PredicatesPerWord = 4 * PredicatesPerByte

	// MaxPredicateWords is the register budget for one iterator's mask
	MaxPredicateWords = 4
)

// Sparse tensor operation parameters
const (
	// SparseRatio is the density divisor for structured sparsity: the A
	// operand stores 1/SparseRatio of its logical elements (2:4 sparsity)
	SparseRatio = 2

	// SparseGroupSize is the logical group size over which the stored
	// elements are selected (2 stored out of every 4 logical)
	SparseGroupSize = 4

	// MetaSizeInBits is the width of one metadata column selector
	MetaSizeInBits = 2

	// MetaInterleave is the fixed interleaving of the metadata operand,
	// mapped onto a column-major tile
	MetaInterleave = 2
)

// Default tile dimensions used by the cmd tools and tests
const (
	// DefaultTileContiguous is the default threadblock tile size along the
	// contiguous dimension
	DefaultTileContiguous = 64

	// DefaultTileStrided is the default threadblock tile size along the
	// strided dimension
	DefaultTileStrided = 16

	// DefaultElementsPerAccess is the default vector access width in elements
	DefaultElementsPerAccess = 4
)
