package warptile

// The predicate engine guards out-of-bounds accesses with a register-resident
// bit mask. The first tile an iterator visits may be partial; every later
// tile is complete along the advance dimension. Predicates are therefore
// computed exactly twice: once at construction against the residue extent,
// and once at the first tile advance against the full extent in steady-state
// mode, where only the non-advance dimension still needs checking.

// Mask is the fixed-size save/restore format of a predicate mask. One bit per
// (vector, contiguous, strided) access, packed four predicates per byte.
type Mask [MaxPredicateWords]uint32

// AccessPredicates computes and stores per-access validity for one tile
// instance. It also tracks the iterator's nested iteration counters, which
// the owning iterator advances directly.
type AccessPredicates struct {
	cfg *IteratorConfig

	wordCount  int
	predicates [MaxPredicateWords]uint32

	// extent is the logical bound of the tensor window.
	extent PitchLinearCoord

	// threadOffset is this thread's current logical offset in the tensor.
	threadOffset PitchLinearCoord

	// residueOffset is the offset to the first steady-state tile.
	residueOffset PitchLinearCoord

	iterVector     int
	iterContiguous int
	iterStrided    int
}

func newAccessPredicates(cfg *IteratorConfig, extent PitchLinearCoord) AccessPredicates {
	return AccessPredicates{
		cfg:       cfg,
		wordCount: cfg.predicateWordCount(),
		extent:    extent,
	}
}

// computePredicates recomputes every predicate bit against the given extent.
// In steady-state mode only the dimension not being advanced along is
// checked: once the residue tile has been consumed, the opposite boundary is
// guaranteed in range, halving the comparison work.
func (p *AccessPredicates) computePredicates(extent PitchLinearCoord, steadyState bool) {
	for i := 0; i < p.wordCount; i++ {
		p.predicates[i] = 0
	}

	tm := p.cfg.ThreadMap
	apv := p.cfg.accessesPerVector()
	perStrided := tm.Iterations.Contiguous * apv
	total := tm.Iterations.Count() * apv

	for accessIdx := 0; accessIdx < total; accessIdx++ {
		s := accessIdx / perStrided
		residual := accessIdx % perStrided
		c := residual / apv
		v := residual % apv

		coord := p.threadOffset.Add(PitchLinearCoord{
			Contiguous: c*tm.Delta.Contiguous + v*p.cfg.AccessWidth,
			Strided:    s * tm.Delta.Strided,
		})

		var guard bool
		if steadyState {
			if p.cfg.AdvanceRank == 0 {
				guard = coord.Strided < extent.Strided
			} else {
				guard = coord.Contiguous < extent.Contiguous
			}
		} else {
			guard = coord.Strided < extent.Strided && coord.Contiguous < extent.Contiguous
		}

		predIdx := v + apv*(c+tm.Iterations.Contiguous*s)
		wordIdx := predIdx / PredicatesPerWord
		residualBit := predIdx % PredicatesPerWord
		byteIdx := residualBit / PredicatesPerByte
		bitIdx := residualBit % PredicatesPerByte

		if guard {
			p.predicates[wordIdx] |= 1 << uint(byteIdx*8+bitIdx)
		}
	}
}

// SetPredicates derives the residue extent of the first, possibly-undersized
// tile from the threadblock offset, establishes this thread's logical offset
// and computes the initial predicate set against that residue extent.
func (p *AccessPredicates) SetPredicates(threadID int, blockOffset PitchLinearCoord) {
	var residueExtent PitchLinearCoord

	if p.cfg.AdvanceRank == 1 {
		residueSize := (p.extent.Strided - blockOffset.Strided) % p.cfg.Shape.Strided
		if residueSize == 0 {
			residueSize = p.cfg.Shape.Strided
		}
		p.residueOffset = PitchLinearCoord{Strided: residueSize}
		residueExtent = PitchLinearCoord{
			Contiguous: p.extent.Contiguous,
			Strided:    MinInt(blockOffset.Strided+residueSize, p.extent.Strided),
		}
	} else {
		residueSize := (p.extent.Contiguous - blockOffset.Contiguous) % p.cfg.Shape.Contiguous
		if residueSize == 0 {
			residueSize = p.cfg.Shape.Contiguous
		}
		p.residueOffset = PitchLinearCoord{Contiguous: residueSize}
		residueExtent = PitchLinearCoord{
			Contiguous: MinInt(blockOffset.Contiguous+residueSize, p.extent.Contiguous),
			Strided:    p.extent.Strided,
		}
	}

	p.threadOffset = blockOffset.Add(p.cfg.ThreadMap.InitialOffset(threadID))

	p.computePredicates(residueExtent, false)
	p.SetIterationIndex(0)
}

// SetIterationIndex overrides the internal iteration counters from a flat
// access index.
func (p *AccessPredicates) SetIterationIndex(index int) {
	apv := p.cfg.accessesPerVector()
	p.iterVector = index % apv
	residual := index / apv
	p.iterContiguous = residual % p.cfg.ThreadMap.Iterations.Contiguous
	p.iterStrided = residual / p.cfg.ThreadMap.Iterations.Contiguous
}

// Valid returns the predicate bit for the current iteration position.
func (p *AccessPredicates) Valid() bool {
	predIdx := p.iterVector + p.cfg.accessesPerVector()*
		(p.iterContiguous+p.iterStrided*p.cfg.ThreadMap.Iterations.Contiguous)

	wordIdx := predIdx / PredicatesPerWord
	residual := predIdx % PredicatesPerWord
	byteIdx := residual / PredicatesPerByte
	bitIdx := residual % PredicatesPerByte

	return p.predicates[wordIdx]&(1<<uint(byteIdx*8+bitIdx)) != 0
}

// ClearMask zeroes every predicate when enable is true, suppressing all
// accesses; it is a no-op otherwise. The conditional form lets callers guard
// a whole tile without branching around the call.
func (p *AccessPredicates) ClearMask(enable bool) {
	for i := 0; i < p.wordCount; i++ {
		if enable {
			p.predicates[i] = 0
		}
	}
}

// EnableMask sets every predicate, including unused tail bits.
func (p *AccessPredicates) EnableMask() {
	for i := 0; i < p.wordCount; i++ {
		p.predicates[i] = 0xffffffff
	}
}

// GetMask returns a copy of the predicate state for later restoration.
func (p *AccessPredicates) GetMask() Mask {
	var m Mask
	for i := 0; i < p.wordCount; i++ {
		m[i] = p.predicates[i]
	}
	return m
}

// SetMask overwrites the predicate state with a previously saved mask.
func (p *AccessPredicates) SetMask(m Mask) {
	for i := 0; i < p.wordCount; i++ {
		p.predicates[i] = m[i]
	}
}
