package warptile

// Reference implementations the engine tests compare against. These are
// deliberately naive loop nests with no tiling, so the only thing they share
// with the engines is the arithmetic.

// ReferenceGemm computes d = a*b + c with a held M-by-K, b K-by-N, and c and
// d M-by-N, all row-major and densely packed. d may alias c.
func ReferenceGemm(shape GemmShape, d, a, b, c []float32) {
	for i := 0; i < shape.M; i++ {
		for j := 0; j < shape.N; j++ {
			sum := c[i*shape.N+j]
			for k := 0; k < shape.K; k++ {
				sum += a[i*shape.K+k] * b[k*shape.N+j]
			}
			d[i*shape.N+j] = sum
		}
	}
}

// ReferenceGemmQuantized is ReferenceGemm with the operands first quantized
// through the given element types, modeling the operand conversion the
// engine's Transform performs.
func ReferenceGemmQuantized(shape GemmShape, d, a, b, c []float32, ta, tb ElementType) {
	roundA := PreferredRoundStyle(ta, ElementF32)
	roundB := PreferredRoundStyle(tb, ElementF32)
	qa := make([]float32, len(a))
	qb := make([]float32, len(b))
	for i, v := range a {
		qa[i] = quantize(v, ta, roundA)
	}
	for i, v := range b {
		qb[i] = quantize(v, tb, roundB)
	}
	ReferenceGemm(shape, d, qa, qb, c)
}

// ReferenceEpilogue applies d = act(alpha*accum + beta*source) elementwise.
func ReferenceEpilogue(d, accum, source []float32, alpha, beta float32, act Activation) {
	if act == nil {
		act = Identity{}
	}
	for i := range accum {
		v := alpha * accum[i]
		if beta != 0 {
			v += beta * source[i]
		}
		d[i] = act.Apply(v)
	}
}
