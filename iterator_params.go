package warptile

// IteratorConfig fixes the geometry of a tile access iterator: tile shape,
// element width, advance dimension, thread-to-data mapping and vector access
// width. A config is validated once, when the iterator is constructed; the
// per-access methods trust it completely.
type IteratorConfig struct {
	// Shape is the threadblock tile extent in elements.
	Shape PitchLinearShape

	// ElementBits is the width of one element in bits. Sub-byte element
	// types are supported as long as every vector access is byte aligned.
	ElementBits int

	// AdvanceRank selects the dimension AddTileOffset advances along:
	// 0 = contiguous, 1 = strided.
	AdvanceRank int

	// ThreadMap distributes the tile's accesses across threads.
	ThreadMap *ThreadMap

	// AccessWidth is the element count of one hardware access vector. The
	// thread map's ElementsPerAccess must be a multiple of it.
	AccessWidth int

	// GatherIndices, when non-nil, replaces the strided coordinate with an
	// indexed lookup before address computation. Mutually exclusive with
	// Permute and with the fast pointer-advance path.
	GatherIndices []int32

	// Permute, when non-nil, passes both coordinates through a bijective
	// transform before address computation. Mutually exclusive with
	// GatherIndices and with the fast pointer-advance path.
	Permute PermuteLayout
}

// accessesPerVector is the number of access-width vectors per thread-map access.
func (c *IteratorConfig) accessesPerVector() int {
	return c.ThreadMap.ElementsPerAccess / c.AccessWidth
}

// predicateWordCount is the number of 32-bit words needed to hold one
// predicate bit per (vector, contiguous, strided) access.
func (c *IteratorConfig) predicateWordCount() int {
	count := c.ThreadMap.Iterations.Count() * c.accessesPerVector()
	byteCount := (count + PredicatesPerByte - 1) / PredicatesPerByte
	return (byteCount + 3) / 4
}

func (c *IteratorConfig) validate(op string) error {
	if c.Shape.Contiguous <= 0 || c.Shape.Strided <= 0 {
		return NewConfigError(op, "tile shape must be positive, got (%d, %d)", c.Shape.Contiguous, c.Shape.Strided)
	}
	if c.ElementBits <= 0 {
		return NewConfigError(op, "element width must be positive, got %d bits", c.ElementBits)
	}
	if c.AdvanceRank != 0 && c.AdvanceRank != 1 {
		return NewConfigError(op, "iterator may advance along the contiguous(rank=0) or strided(rank=1) dimension, got %d", c.AdvanceRank)
	}
	if c.ThreadMap == nil {
		return NewConfigError(op, "thread map is required")
	}
	if c.ThreadMap.Shape != c.Shape {
		return NewConfigError(op, "thread map shape (%d, %d) does not match tile shape (%d, %d)",
			c.ThreadMap.Shape.Contiguous, c.ThreadMap.Shape.Strided, c.Shape.Contiguous, c.Shape.Strided)
	}
	if c.AccessWidth <= 0 {
		return NewConfigError(op, "access width must be positive, got %d", c.AccessWidth)
	}
	if c.ThreadMap.ElementsPerAccess%c.AccessWidth != 0 {
		return NewConfigError(op, "vectors implied by the thread map (%d elements) must be divisible by the access width (%d)",
			c.ThreadMap.ElementsPerAccess, c.AccessWidth)
	}
	if (c.ElementBits*c.AccessWidth)%8 != 0 {
		return NewConfigError(op, "access of %d elements x %d bits is not byte aligned", c.AccessWidth, c.ElementBits)
	}
	if words := c.predicateWordCount(); words > MaxPredicateWords {
		return NewConfigError(op, "too many predicates: %d words needed, budget is %d", words, MaxPredicateWords)
	}
	if c.GatherIndices != nil && c.Permute != nil {
		return NewConfigError(op, "gather and permute modes are mutually exclusive")
	}
	return nil
}

// offsetBytes converts an element count to a byte count for a given element
// bit width. Callers guarantee byte alignment (validated at construction).
func offsetBytes(elementBits int, elements int64) int64 {
	return int64(elementBits) * elements / 8
}

// IteratorParams holds the precomputed pointer increments for a pitch-linear
// tile access iterator. All increments are in bytes. The iterator applies
// them without recomputation, so a Params value is only meaningful together
// with the config and layout it was derived from.
type IteratorParams struct {
	// stride is the layout stride in elements.
	stride int64

	// incStrided advances one thread-map strided step.
	incStrided int64

	// incNext moves from the last access of one tile to the first access of
	// the next tile along the advance dimension.
	incNext int64

	// incAdvance moves from the first access of one tile to the first access
	// of the next tile along the advance dimension.
	incAdvance int64
}

// NewIteratorParams precomputes the pointer increments for the given layout.
func NewIteratorParams(cfg IteratorConfig, layout PitchLinear) IteratorParams {
	var p IteratorParams
	p.stride = layout.Stride

	tm := cfg.ThreadMap
	p.incStrided = offsetBytes(cfg.ElementBits, p.stride*int64(tm.Delta.Strided))

	if cfg.AdvanceRank == 1 {
		p.incAdvance = offsetBytes(cfg.ElementBits, int64(cfg.Shape.Strided)*p.stride)
	} else {
		p.incAdvance = offsetBytes(cfg.ElementBits, int64(cfg.Shape.Contiguous))
	}

	// Returning from the last in-tile access to the next tile's first access
	// undoes the strided steps taken inside the tile.
	p.incNext = p.incAdvance - int64(tm.Iterations.Strided-1)*p.incStrided

	return p
}
