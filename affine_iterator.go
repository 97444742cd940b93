package warptile

// Affine rank-2 layouts carry two independent strides, so neither dimension
// can be folded into implicit unit-stride pointer arithmetic. The affine
// iterator replicates the pitch-linear iteration structure with both strides
// explicit: the contiguous dimension also needs a precomputed increment, and
// get() no longer recomputes the contiguous component per access.

// AffineIteratorParams holds the precomputed byte increments for an affine
// rank-2 tile access iterator.
type AffineIteratorParams struct {
	layout AffineRank2

	// incContiguous advances one thread-map contiguous step.
	incContiguous int64

	// incStrided moves from the first access of one strided step to the
	// first access of the next.
	incStrided int64

	// incNextStrided moves from the last contiguous access of one strided
	// step to the first access of the next.
	incNextStrided int64

	// incNext moves from the last access of one tile to the first access of
	// the next tile along the advance dimension.
	incNext int64

	// incAdvance moves between the first accesses of consecutive tiles
	// along the advance dimension.
	incAdvance int64
}

// NewAffineIteratorParams precomputes the pointer increments for the layout.
func NewAffineIteratorParams(cfg IteratorConfig, layout AffineRank2) AffineIteratorParams {
	var p AffineIteratorParams
	p.layout = layout

	tm := cfg.ThreadMap
	p.incContiguous = offsetBytes(cfg.ElementBits, layout.StrideContiguous*int64(tm.Delta.Contiguous))
	p.incStrided = offsetBytes(cfg.ElementBits, layout.StrideStrided*int64(tm.Delta.Strided))
	p.incNextStrided = p.incStrided - int64(tm.Iterations.Contiguous-1)*p.incContiguous

	if cfg.AdvanceRank == 1 {
		p.incAdvance = offsetBytes(cfg.ElementBits, int64(cfg.Shape.Strided)*layout.StrideStrided)
	} else {
		p.incAdvance = offsetBytes(cfg.ElementBits, int64(cfg.Shape.Contiguous)*layout.StrideContiguous)
	}

	p.incNext = p.incAdvance -
		int64(tm.Iterations.Contiguous-1)*p.incContiguous -
		int64(tm.Iterations.Strided-1)*p.incStrided

	return p
}

// AffineTileAccessIterator iterates the tiles of a tensor with an affine
// rank-2 layout. Gather and permute modes are not supported for affine data.
type AffineTileAccessIterator struct {
	cfg    IteratorConfig
	params AffineIteratorParams
	preds  AccessPredicates

	pointer       int64
	isResidueTile bool
}

// NewAffineTileAccessIterator validates the configuration and positions the
// iterator on the residue tile for the given thread.
func NewAffineTileAccessIterator(cfg IteratorConfig, params AffineIteratorParams,
	extent PitchLinearCoord, threadID int, blockOffset PitchLinearCoord) (*AffineTileAccessIterator, error) {

	const op = "NewAffineTileAccessIterator"
	if cfg.GatherIndices != nil || cfg.Permute != nil {
		return nil, NewConfigError(op, "gather and permute are not supported for affine rank-2 layouts")
	}
	it := &AffineTileAccessIterator{
		cfg:           cfg,
		params:        params,
		isResidueTile: true,
	}
	if err := it.cfg.validate(op); err != nil {
		return nil, err
	}
	if extent.Contiguous <= 0 || extent.Strided <= 0 {
		return nil, NewInvalidArgError(op, "tensor extent must be positive, got (%d, %d)", extent.Contiguous, extent.Strided)
	}

	it.preds = newAccessPredicates(&it.cfg, extent)
	it.preds.SetPredicates(threadID, blockOffset)
	it.AddPointerOffset(params.layout.Offset(it.preds.threadOffset))
	return it, nil
}

// SetIterationIndex overrides the internal iteration counters.
func (it *AffineTileAccessIterator) SetIterationIndex(index int) {
	it.preds.SetIterationIndex(index)
}

// AddPointerOffset advances the internal pointer by an offset in elements.
func (it *AffineTileAccessIterator) AddPointerOffset(elements int64) {
	it.pointer += offsetBytes(it.cfg.ElementBits, elements)
}

// AddTileOffset advances the iterator by whole tiles. As with the
// pitch-linear iterator, the first call performs the residue transition and
// every later call is a pure increment.
func (it *AffineTileAccessIterator) AddTileOffset(tileOffset PitchLinearCoord) {
	crossContiguous := offsetBytes(it.cfg.ElementBits, int64(it.cfg.Shape.Contiguous)*it.params.layout.StrideContiguous)
	crossStrided := offsetBytes(it.cfg.ElementBits, int64(it.cfg.Shape.Strided)*it.params.layout.StrideStrided)

	if it.isResidueTile {
		it.preds.threadOffset = it.preds.threadOffset.Add(it.preds.residueOffset)
		it.AddPointerOffset(it.params.layout.Offset(it.preds.residueOffset))
		it.preds.computePredicates(it.preds.extent, true)

		if it.cfg.AdvanceRank == 1 {
			it.pointer += it.params.incAdvance * int64(tileOffset.Strided-1)
			it.pointer += crossContiguous * int64(tileOffset.Contiguous)
		} else {
			it.pointer += it.params.incAdvance * int64(tileOffset.Contiguous-1)
			it.pointer += crossStrided * int64(tileOffset.Strided)
		}
	} else {
		if it.cfg.AdvanceRank == 1 {
			it.pointer += it.params.incAdvance * int64(tileOffset.Strided)
			it.pointer += crossContiguous * int64(tileOffset.Contiguous)
		} else {
			it.pointer += it.params.incAdvance * int64(tileOffset.Contiguous)
			it.pointer += crossStrided * int64(tileOffset.Strided)
		}
	}
	it.isResidueTile = false
}

// Get returns the byte offset of the current access. ok is always true; the
// affine iterator has no guarded addressing mode, so callers consult Valid.
// Elements within one access vector are assumed unit-stride along the
// contiguous dimension, as vectorized access requires.
func (it *AffineTileAccessIterator) Get() (offset int64, ok bool) {
	return it.pointer + offsetBytes(it.cfg.ElementBits, int64(it.preds.iterVector*it.cfg.AccessWidth)), true
}

// Next advances to the next access, bumping the pointer at every level since
// neither dimension is implicit for affine layouts.
func (it *AffineTileAccessIterator) Next() {
	it.preds.iterVector++
	if it.preds.iterVector < it.cfg.accessesPerVector() {
		return
	}

	it.preds.iterVector = 0
	it.preds.iterContiguous++
	if it.preds.iterContiguous < it.cfg.ThreadMap.Iterations.Contiguous {
		it.pointer += it.params.incContiguous
		return
	}

	it.preds.iterContiguous = 0
	it.preds.iterStrided++
	if it.preds.iterStrided < it.cfg.ThreadMap.Iterations.Strided {
		it.pointer += it.params.incNextStrided
		return
	}

	it.preds.iterStrided = 0
	it.pointer += it.params.incNext
	it.pointer -= it.params.incAdvance
}

// Valid returns whether the current access is within the tensor bounds.
func (it *AffineTileAccessIterator) Valid() bool {
	return it.preds.Valid()
}

// ClearMask suppresses every access when enable is true.
func (it *AffineTileAccessIterator) ClearMask(enable bool) {
	it.preds.ClearMask(enable)
}

// EnableMask enables every access.
func (it *AffineTileAccessIterator) EnableMask() {
	it.preds.EnableMask()
}

// GetMask returns a copy of the predicate state.
func (it *AffineTileAccessIterator) GetMask() Mask {
	return it.preds.GetMask()
}

// SetMask overwrites the predicate state.
func (it *AffineTileAccessIterator) SetMask(m Mask) {
	it.preds.SetMask(m)
}

// NewAffineColumnMajorIterator constructs an affine iterator over data whose
// rows are the contiguous dimension, with independent row and column strides.
func NewAffineColumnMajorIterator(cfg MatrixIteratorConfig, strideRow, strideColumn int64,
	extent MatrixCoord, threadID int, blockOffset MatrixCoord) (*AffineTileAccessIterator, error) {

	ucfg := cfg.pitchLinear(PitchLinearShape{Contiguous: cfg.Shape.Row, Strided: cfg.Shape.Column}, cfg.AdvanceRank)
	params := NewAffineIteratorParams(ucfg, AffineRank2{StrideContiguous: strideRow, StrideStrided: strideColumn})
	return NewAffineTileAccessIterator(ucfg, params, columnMajorCoord(extent), threadID, columnMajorCoord(blockOffset))
}

// NewAffineRowMajorIterator constructs an affine iterator over data whose
// columns are the contiguous dimension, with independent row and column strides.
func NewAffineRowMajorIterator(cfg MatrixIteratorConfig, strideRow, strideColumn int64,
	extent MatrixCoord, threadID int, blockOffset MatrixCoord) (*AffineTileAccessIterator, error) {

	advance := 1 - cfg.AdvanceRank
	ucfg := cfg.pitchLinear(PitchLinearShape{Contiguous: cfg.Shape.Column, Strided: cfg.Shape.Row}, advance)
	params := NewAffineIteratorParams(ucfg, AffineRank2{StrideContiguous: strideColumn, StrideStrided: strideRow})
	return NewAffineTileAccessIterator(ucfg, params, rowMajorCoord(extent), threadID, rowMajorCoord(blockOffset))
}
