package warptile

// TileAccessIterator computes the address and predicate for each per-thread
// access of a tile loaded from a pitch-linear rank-2 tensor, and advances
// that state across vector, contiguous, strided and tile boundaries.
//
// The iterator visits the possibly-partial residue tile first. The first call
// to AddTileOffset pays for the transition into steady state (predicates
// recomputed once, pointer repositioned); every subsequent call is a single
// precomputed increment. Addresses are byte offsets relative to the tensor
// base the caller holds; the iterator never touches memory itself.
type TileAccessIterator struct {
	cfg    IteratorConfig
	params IteratorParams
	preds  AccessPredicates

	// pointer is the byte offset of the current tile's first access.
	pointer int64

	// isResidueTile marks that the next AddTileOffset leaves the residue tile.
	isResidueTile bool

	// coordOffset tracks the thread's logical coordinate for the current
	// tile. Only maintained in gather mode (strided coordinate indexes the
	// gather table) and permute mode (both coordinates feed the transform).
	coordOffset PitchLinearCoord

	gather  bool
	permute bool
}

// NewTileAccessIterator validates the configuration and positions the
// iterator on the residue tile for the given thread.
func NewTileAccessIterator(cfg IteratorConfig, params IteratorParams, extent PitchLinearCoord,
	threadID int, blockOffset PitchLinearCoord) (*TileAccessIterator, error) {

	const op = "NewTileAccessIterator"
	it := &TileAccessIterator{
		cfg:           cfg,
		params:        params,
		isResidueTile: true,
		gather:        cfg.GatherIndices != nil,
		permute:       cfg.Permute != nil,
	}
	if err := it.cfg.validate(op); err != nil {
		return nil, err
	}
	if extent.Contiguous <= 0 || extent.Strided <= 0 {
		return nil, NewInvalidArgError(op, "tensor extent must be positive, got (%d, %d)", extent.Contiguous, extent.Strided)
	}

	it.preds = newAccessPredicates(&it.cfg, extent)
	it.preds.SetPredicates(threadID, blockOffset)

	layout := PitchLinear{Stride: params.stride}
	if !it.gather && !it.permute {
		it.AddPointerOffset(layout.Offset(it.preds.threadOffset))
	} else {
		it.coordOffset = it.preds.threadOffset
		if !it.permute {
			it.AddPointerOffset(layout.Offset(PitchLinearCoord{Contiguous: it.coordOffset.Contiguous}))
		}
	}
	return it, nil
}

// SetIterationIndex overrides the internal iteration counters.
func (it *TileAccessIterator) SetIterationIndex(index int) {
	it.preds.SetIterationIndex(index)
}

// AddPointerOffset advances the internal pointer by an offset in elements.
func (it *TileAccessIterator) AddPointerOffset(elements int64) {
	it.pointer += offsetBytes(it.cfg.ElementBits, elements)
}

// AddTileOffset advances the iterator by whole tiles.
//
// The first call transitions out of the residue tile: the thread offset
// absorbs the residue, predicates are recomputed once in steady-state mode,
// and the pointer lands on the requested tile. Subsequent calls reduce to
// precomputed pointer increments.
func (it *TileAccessIterator) AddTileOffset(tileOffset PitchLinearCoord) {
	bits := it.cfg.ElementBits
	if it.isResidueTile {
		it.preds.threadOffset = it.preds.threadOffset.Add(it.preds.residueOffset)
		it.preds.computePredicates(it.preds.extent, true)

		layout := PitchLinear{Stride: it.params.stride}
		if !it.gather && !it.permute {
			it.AddPointerOffset(layout.Offset(it.preds.residueOffset))

			if it.cfg.AdvanceRank == 1 {
				it.pointer += it.params.incAdvance * int64(tileOffset.Strided-1)
				it.pointer += offsetBytes(bits, int64(it.cfg.Shape.Contiguous)*int64(tileOffset.Contiguous))
			} else {
				it.pointer += it.params.incAdvance * int64(tileOffset.Contiguous-1)
				it.pointer += offsetBytes(bits, int64(it.cfg.Shape.Strided)*it.params.stride*int64(tileOffset.Strided))
			}
		} else {
			it.coordOffset.Strided = it.preds.threadOffset.Strided +
				it.cfg.Shape.Strided*(tileOffset.Strided-it.cfg.AdvanceRank)
			if !it.permute {
				it.AddPointerOffset(layout.Offset(PitchLinearCoord{Contiguous: it.preds.residueOffset.Contiguous}))
				it.AddPointerOffset(int64(it.cfg.Shape.Contiguous) * int64(tileOffset.Contiguous-(1-it.cfg.AdvanceRank)))
			} else {
				it.coordOffset.Contiguous = it.preds.threadOffset.Contiguous +
					it.cfg.Shape.Contiguous*(tileOffset.Contiguous-(1-it.cfg.AdvanceRank))
			}
		}
	} else {
		if !it.gather && !it.permute {
			if it.cfg.AdvanceRank == 1 {
				it.pointer += it.params.incAdvance * int64(tileOffset.Strided)
				it.pointer += offsetBytes(bits, int64(it.cfg.Shape.Contiguous)*int64(tileOffset.Contiguous))
			} else {
				it.pointer += it.params.incAdvance * int64(tileOffset.Contiguous)
				it.pointer += offsetBytes(bits, int64(it.cfg.Shape.Strided)*it.params.stride*int64(tileOffset.Strided))
			}
		} else {
			it.coordOffset.Strided += it.cfg.Shape.Strided * tileOffset.Strided
			if !it.permute {
				it.AddPointerOffset(int64(it.cfg.Shape.Contiguous) * int64(tileOffset.Contiguous))
			} else {
				it.coordOffset.Contiguous += it.cfg.Shape.Contiguous * tileOffset.Contiguous
			}
		}
	}
	it.isResidueTile = false
}

// Get returns the byte offset of the current access.
//
// On the fast path ok is always true and callers must consult Valid before
// touching memory. In gather or permute mode, Get additionally reports
// ok=false for masked accesses, since the coordinate lookup itself would be
// out of bounds.
func (it *TileAccessIterator) Get() (offset int64, ok bool) {
	tm := it.cfg.ThreadMap
	bits := it.cfg.ElementBits

	if it.gather || it.permute {
		if !it.preds.Valid() {
			return 0, false
		}

		coordC := it.preds.iterContiguous*tm.Delta.Contiguous + it.preds.iterVector*it.cfg.AccessWidth
		if it.permute {
			coordC += it.coordOffset.Contiguous
		}
		coordS := it.coordOffset.Strided + it.preds.iterStrided*tm.Delta.Strided
		if it.gather {
			coordS = int(it.cfg.GatherIndices[coordS])
		}

		var off int64
		if it.permute {
			off = it.cfg.Permute.Offset(PitchLinearCoord{Contiguous: coordC, Strided: coordS})
		} else {
			off = int64(coordS)*it.params.stride + int64(coordC)
		}
		return it.pointer + offsetBytes(bits, off), true
	}

	off := it.pointer +
		offsetBytes(bits, int64(it.preds.iterContiguous*tm.Delta.Contiguous)) +
		offsetBytes(bits, int64(it.preds.iterVector*it.cfg.AccessWidth))
	return off, true
}

// Next advances to the next access: the innermost vector counter first, then
// the contiguous counter, then the strided counter with a pointer bump. When
// every counter wraps, the pointer moves to the next tile and immediately
// backs off by one full tile advance, so that a following AddTileOffset is a
// plain increment.
func (it *TileAccessIterator) Next() {
	it.preds.iterVector++
	if it.preds.iterVector < it.cfg.accessesPerVector() {
		return
	}

	it.preds.iterVector = 0
	it.preds.iterContiguous++
	if it.preds.iterContiguous < it.cfg.ThreadMap.Iterations.Contiguous {
		return
	}

	it.preds.iterContiguous = 0
	it.preds.iterStrided++
	if it.preds.iterStrided < it.cfg.ThreadMap.Iterations.Strided {
		if !it.gather && !it.permute {
			it.pointer += it.params.incStrided
		}
		return
	}

	it.preds.iterStrided = 0
	if !it.gather && !it.permute {
		it.pointer += it.params.incNext
		it.pointer -= it.params.incAdvance
	}
}

// Valid returns whether the current access is within the tensor bounds.
func (it *TileAccessIterator) Valid() bool {
	return it.preds.Valid()
}

// ClearMask suppresses every access when enable is true.
func (it *TileAccessIterator) ClearMask(enable bool) {
	it.preds.ClearMask(enable)
}

// EnableMask enables every access.
func (it *TileAccessIterator) EnableMask() {
	it.preds.EnableMask()
}

// GetMask returns a copy of the predicate state.
func (it *TileAccessIterator) GetMask() Mask {
	return it.preds.GetMask()
}

// SetMask overwrites the predicate state.
func (it *TileAccessIterator) SetMask(m Mask) {
	it.preds.SetMask(m)
}

// MatrixIteratorConfig is the matrix-space counterpart of IteratorConfig.
// AdvanceRank 0 advances along rows, 1 along columns; the layout adapters
// translate both it and the coordinates into pitch-linear space.
type MatrixIteratorConfig struct {
	Shape         MatrixShape
	ElementBits   int
	AdvanceRank   int
	ThreadMap     *ThreadMap
	AccessWidth   int
	GatherIndices []int32
	Permute       PermuteLayout
}

// MatrixTileAccessIterator wraps the pitch-linear iterator with a coordinate
// transform for row-major, column-major and interleaved matrix layouts.
type MatrixTileAccessIterator struct {
	it *TileAccessIterator
	// swap reorders (row, column) tile offsets into (strided, contiguous)
	// space for layouts whose rows are the strided dimension.
	swap bool
}

func (c MatrixIteratorConfig) pitchLinear(shape PitchLinearShape, advanceRank int) IteratorConfig {
	return IteratorConfig{
		Shape:         shape,
		ElementBits:   c.ElementBits,
		AdvanceRank:   advanceRank,
		ThreadMap:     c.ThreadMap,
		AccessWidth:   c.AccessWidth,
		GatherIndices: c.GatherIndices,
		Permute:       c.Permute,
	}
}

// NewColumnMajorIterator constructs an iterator over column-major data, where
// rows are the contiguous dimension.
func NewColumnMajorIterator(cfg MatrixIteratorConfig, ld int64, extent MatrixCoord,
	threadID int, blockOffset MatrixCoord) (*MatrixTileAccessIterator, error) {

	ucfg := cfg.pitchLinear(PitchLinearShape{Contiguous: cfg.Shape.Row, Strided: cfg.Shape.Column}, cfg.AdvanceRank)
	params := NewIteratorParams(ucfg, NewPitchLinear(ld))
	it, err := NewTileAccessIterator(ucfg, params, columnMajorCoord(extent), threadID, columnMajorCoord(blockOffset))
	if err != nil {
		return nil, err
	}
	return &MatrixTileAccessIterator{it: it}, nil
}

// NewRowMajorIterator constructs an iterator over row-major data, where
// columns are the contiguous dimension.
func NewRowMajorIterator(cfg MatrixIteratorConfig, ld int64, extent MatrixCoord,
	threadID int, blockOffset MatrixCoord) (*MatrixTileAccessIterator, error) {

	advance := 1 - cfg.AdvanceRank
	ucfg := cfg.pitchLinear(PitchLinearShape{Contiguous: cfg.Shape.Column, Strided: cfg.Shape.Row}, advance)
	params := NewIteratorParams(ucfg, NewPitchLinear(ld))
	it, err := NewTileAccessIterator(ucfg, params, rowMajorCoord(extent), threadID, rowMajorCoord(blockOffset))
	if err != nil {
		return nil, err
	}
	return &MatrixTileAccessIterator{it: it, swap: true}, nil
}

// NewColumnMajorInterleavedIterator constructs an iterator over column-major
// data interleaved by k: k consecutive columns are packed into the contiguous
// dimension. The matrix extent's column count must be a multiple of k.
func NewColumnMajorInterleavedIterator(cfg MatrixIteratorConfig, ld int64, interleave int,
	extent MatrixCoord, threadID int, blockOffset MatrixCoord) (*MatrixTileAccessIterator, error) {

	const op = "NewColumnMajorInterleavedIterator"
	if interleave <= 0 || cfg.Shape.Column%interleave != 0 || extent.Column%interleave != 0 {
		return nil, NewConfigError(op, "column extent must be divisible by interleave factor %d", interleave)
	}
	ucfg := cfg.pitchLinear(PitchLinearShape{
		Contiguous: cfg.Shape.Row * interleave,
		Strided:    cfg.Shape.Column / interleave,
	}, cfg.AdvanceRank)
	params := NewIteratorParams(ucfg, NewPitchLinear(ld))
	it, err := NewTileAccessIterator(ucfg, params, columnMajorInterleavedCoord(extent, interleave),
		threadID, columnMajorInterleavedCoord(blockOffset, interleave))
	if err != nil {
		return nil, err
	}
	return &MatrixTileAccessIterator{it: it}, nil
}

// NewRowMajorInterleavedIterator constructs an iterator over row-major data
// interleaved by k: k consecutive rows are packed into the contiguous
// dimension. The matrix extent's row count must be a multiple of k.
func NewRowMajorInterleavedIterator(cfg MatrixIteratorConfig, ld int64, interleave int,
	extent MatrixCoord, threadID int, blockOffset MatrixCoord) (*MatrixTileAccessIterator, error) {

	const op = "NewRowMajorInterleavedIterator"
	if interleave <= 0 || cfg.Shape.Row%interleave != 0 || extent.Row%interleave != 0 {
		return nil, NewConfigError(op, "row extent must be divisible by interleave factor %d", interleave)
	}
	advance := 1 - cfg.AdvanceRank
	ucfg := cfg.pitchLinear(PitchLinearShape{
		Contiguous: cfg.Shape.Column * interleave,
		Strided:    cfg.Shape.Row / interleave,
	}, advance)
	params := NewIteratorParams(ucfg, NewPitchLinear(ld))
	it, err := NewTileAccessIterator(ucfg, params, rowMajorInterleavedCoord(extent, interleave),
		threadID, rowMajorInterleavedCoord(blockOffset, interleave))
	if err != nil {
		return nil, err
	}
	return &MatrixTileAccessIterator{it: it, swap: true}, nil
}

// AddTileOffset advances by whole tiles in matrix space.
func (m *MatrixTileAccessIterator) AddTileOffset(tileOffset MatrixCoord) {
	if m.swap {
		m.it.AddTileOffset(PitchLinearCoord{Contiguous: tileOffset.Column, Strided: tileOffset.Row})
	} else {
		m.it.AddTileOffset(PitchLinearCoord{Contiguous: tileOffset.Row, Strided: tileOffset.Column})
	}
}

// SetIterationIndex overrides the internal iteration counters.
func (m *MatrixTileAccessIterator) SetIterationIndex(index int) { m.it.SetIterationIndex(index) }

// AddPointerOffset advances the internal pointer by an offset in elements.
func (m *MatrixTileAccessIterator) AddPointerOffset(elements int64) { m.it.AddPointerOffset(elements) }

// Get returns the byte offset of the current access.
func (m *MatrixTileAccessIterator) Get() (int64, bool) { return m.it.Get() }

// Next advances to the next access.
func (m *MatrixTileAccessIterator) Next() { m.it.Next() }

// Valid returns whether the current access is within the tensor bounds.
func (m *MatrixTileAccessIterator) Valid() bool { return m.it.Valid() }

// ClearMask suppresses every access when enable is true.
func (m *MatrixTileAccessIterator) ClearMask(enable bool) { m.it.ClearMask(enable) }

// EnableMask enables every access.
func (m *MatrixTileAccessIterator) EnableMask() { m.it.EnableMask() }

// GetMask returns a copy of the predicate state.
func (m *MatrixTileAccessIterator) GetMask() Mask { return m.it.GetMask() }

// SetMask overwrites the predicate state.
func (m *MatrixTileAccessIterator) SetMask(mask Mask) { m.it.SetMask(mask) }
