package warptile

// ThreadMap assigns the accesses of a threadblock tile to individual threads.
// Threads are arranged across the contiguous dimension first (stripmined), so
// that consecutive threads issue adjacent vector accesses; each thread then
// revisits the tile at fixed deltas until its share is covered.
//
// All divisibility requirements are validated by NewThreadMap. The per-access
// loops trust Iterations and Delta without rechecking.
type ThreadMap struct {
	// Shape is the threadblock tile extent in elements.
	Shape PitchLinearShape

	// Threads is the number of participating threads.
	Threads int

	// ElementsPerAccess is the vector width of one access in elements.
	ElementsPerAccess int

	// Iterations is the number of accesses each thread performs along each
	// dimension.
	Iterations PitchLinearShape

	// Delta is the element distance between a thread's consecutive accesses.
	Delta PitchLinearShape

	threadsContiguous int
	divContiguous     FastDivmod
}

// NewThreadMap validates the geometry and precomputes the thread
// decomposition constants.
func NewThreadMap(shape PitchLinearShape, threads, elementsPerAccess int) (*ThreadMap, error) {
	const op = "NewThreadMap"
	if shape.Contiguous <= 0 || shape.Strided <= 0 {
		return nil, NewConfigError(op, "tile shape must be positive, got (%d, %d)", shape.Contiguous, shape.Strided)
	}
	if threads <= 0 {
		return nil, NewConfigError(op, "thread count must be positive, got %d", threads)
	}
	if elementsPerAccess <= 0 {
		return nil, NewConfigError(op, "elements per access must be positive, got %d", elementsPerAccess)
	}
	if shape.Contiguous%elementsPerAccess != 0 {
		return nil, NewConfigError(op, "tile contiguous extent %d not divisible by access width %d",
			shape.Contiguous, elementsPerAccess)
	}

	shapeVec := shape.Contiguous / elementsPerAccess

	threadsContiguous := MinInt(threads, shapeVec)
	if shapeVec%threadsContiguous != 0 {
		return nil, NewConfigError(op, "vector accesses %d not divisible across %d threads", shapeVec, threadsContiguous)
	}
	if threads%threadsContiguous != 0 {
		return nil, NewConfigError(op, "thread count %d not divisible by contiguous thread count %d",
			threads, threadsContiguous)
	}
	threadsStrided := threads / threadsContiguous
	if shape.Strided%threadsStrided != 0 {
		return nil, NewConfigError(op, "tile strided extent %d not divisible across %d threads",
			shape.Strided, threadsStrided)
	}

	return &ThreadMap{
		Shape:             shape,
		Threads:           threads,
		ElementsPerAccess: elementsPerAccess,
		Iterations: PitchLinearShape{
			Contiguous: shapeVec / threadsContiguous,
			Strided:    shape.Strided / threadsStrided,
		},
		Delta: PitchLinearShape{
			Contiguous: threadsContiguous * elementsPerAccess,
			Strided:    threadsStrided,
		},
		threadsContiguous: threadsContiguous,
		divContiguous:     NewFastDivmod(uint32(threadsContiguous)),
	}, nil
}

// InitialOffset returns the logical element coordinate of a thread's first
// access within the tile.
func (tm *ThreadMap) InitialOffset(threadID int) PitchLinearCoord {
	s, c := tm.divContiguous.Divmod(uint32(threadID))
	return PitchLinearCoord{
		Contiguous: int(c) * tm.ElementsPerAccess,
		Strided:    int(s),
	}
}
