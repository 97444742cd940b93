package warptile

// LinearCombination is the epilogue scaling functor:
//
//	d = act(alpha*accum + beta*source)
//
// When Beta is zero the source operand is never read, so callers may pass a
// nil source slice.
type LinearCombination struct {
	Alpha float32
	Beta  float32
	Act   Activation
}

// NewLinearCombination returns the neutral epilogue: alpha 1, beta 0,
// identity activation.
func NewLinearCombination() LinearCombination {
	return LinearCombination{Alpha: 1, Act: Identity{}}
}

// ApplySlice computes d[i] = act(alpha*accum[i] + beta*source[i]) for every
// element. d may alias accum. Cheap activations run through an unrolled loop
// sized for the CPU's vector width.
func (lc LinearCombination) ApplySlice(d, accum, source []float32) {
	act := lc.Act
	if act == nil {
		act = Identity{}
	}

	if lc.Beta == 0 {
		if !act.IsHeavy() {
			lc.applyUnrolled(d, accum, act)
			return
		}
		for i := range accum {
			d[i] = act.Apply(lc.Alpha * accum[i])
		}
		return
	}

	for i := range accum {
		d[i] = act.Apply(lc.Alpha*accum[i] + lc.Beta*source[i])
	}
}

// applyUnrolled is the beta-free path for cheap activations. The fixed-width
// inner loop keeps the body branch-free enough for the compiler to vectorize.
func (lc LinearCombination) applyUnrolled(d, accum []float32, act Activation) {
	w := EpilogueWidth()
	n := len(accum)
	i := 0
	for ; i+w <= n; i += w {
		for j := 0; j < w; j++ {
			d[i+j] = act.Apply(lc.Alpha * accum[i+j])
		}
	}
	for ; i < n; i++ {
		d[i] = act.Apply(lc.Alpha * accum[i])
	}
}

// ApplyTile applies the epilogue over an M-by-N row-major tile with leading
// dimension ld, in row segments.
func (lc LinearCombination) ApplyTile(d []float32, ldD int, accum []float32, ldAccum int, source []float32, ldSource int, rows, cols int) {
	for r := 0; r < rows; r++ {
		var src []float32
		if lc.Beta != 0 {
			src = source[r*ldSource : r*ldSource+cols]
		}
		lc.ApplySlice(d[r*ldD:r*ldD+cols], accum[r*ldAccum:r*ldAccum+cols], src)
	}
}
