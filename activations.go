package warptile

import "math"

// Elementwise activation functors applied by the epilogue after the warp
// product is scaled. Each functor carries its parameters as a struct whose
// zero value is adjusted by a NewXxx constructor where the neutral setting is
// not the zero value.
//
// IsHeavy distinguishes transcendental activations from cheap clamping ones;
// callers may use it to pick a wider accumulation tile for the cheap ones.

// Activation is an elementwise epilogue functor.
type Activation interface {
	Apply(x float32) float32
	IsHeavy() bool
}

// Identity passes values through unchanged.
type Identity struct{}

func (Identity) Apply(x float32) float32 { return x }
func (Identity) IsHeavy() bool           { return false }

// Scale multiplies by a constant factor.
type Scale struct {
	Factor float32
}

// NewScale returns the neutral scale, factor 1.
func NewScale() Scale { return Scale{Factor: 1} }

func (s Scale) Apply(x float32) float32 { return s.Factor * x }
func (Scale) IsHeavy() bool             { return false }

// ReLU clamps negative values to zero.
type ReLU struct{}

func (ReLU) Apply(x float32) float32 {
	if x < 0 {
		return 0
	}
	return x
}
func (ReLU) IsHeavy() bool { return false }

// Clamp bounds values to [Lo, Hi].
type Clamp struct {
	Lo, Hi float32
}

func (c Clamp) Apply(x float32) float32 {
	return float32(math.Min(float64(c.Hi), math.Max(float64(c.Lo), float64(x))))
}
func (Clamp) IsHeavy() bool { return false }

// LowerBound clamps values from below.
type LowerBound struct {
	Lo float32
}

func (l LowerBound) Apply(x float32) float32 {
	if x < l.Lo {
		return l.Lo
	}
	return x
}
func (LowerBound) IsHeavy() bool { return false }

// LeakyReLU scales negative values by a slope.
type LeakyReLU struct {
	Slope float32
}

// NewLeakyReLU returns the neutral functor, slope 1.
func NewLeakyReLU() LeakyReLU { return LeakyReLU{Slope: 1} }

func (l LeakyReLU) Apply(x float32) float32 {
	if x < 0 {
		return l.Slope * x
	}
	return x
}
func (LeakyReLU) IsHeavy() bool { return false }

// ThresholdReLU zeroes values below a threshold. The zero value thresholds
// at zero, matching ReLU.
type ThresholdReLU struct {
	Threshold float32
}

func (t ThresholdReLU) Apply(x float32) float32 {
	if x < t.Threshold {
		return 0
	}
	return x
}
func (ThresholdReLU) IsHeavy() bool { return false }

// Sigmoid is the logistic function.
type Sigmoid struct{}

func (Sigmoid) Apply(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}
func (Sigmoid) IsHeavy() bool { return true }

// Tanh is the hyperbolic tangent.
type Tanh struct{}

func (Tanh) Apply(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}
func (Tanh) IsHeavy() bool { return true }

// SiLU is x * sigmoid(x).
type SiLU struct{}

func (SiLU) Apply(x float32) float32 {
	return x * Sigmoid{}.Apply(x)
}
func (SiLU) IsHeavy() bool { return true }

// HardSwish is x * relu6(x+3) / 6.
type HardSwish struct{}

func (HardSwish) Apply(x float32) float32 {
	r := x + 3
	if r < 0 {
		r = 0
	} else if r > 6 {
		r = 6
	}
	return x * r / 6
}
func (HardSwish) IsHeavy() bool { return false }

// GELU is the Gaussian error linear unit, evaluated with erf.
type GELU struct{}

func (GELU) Apply(x float32) float32 {
	return float32(0.5 * float64(x) * (1 + math.Erf(float64(x)*math.Sqrt2/2)))
}
func (GELU) IsHeavy() bool { return true }

// GELUTanh is the tanh approximation of GELU.
type GELUTanh struct{}

func (GELUTanh) Apply(x float32) float32 {
	const k = 0.7978845608028654 // sqrt(2/pi)
	fx := float64(x)
	return float32(0.5 * fx * (1 + math.Tanh(k*(fx+0.044715*fx*fx*fx))))
}
func (GELUTanh) IsHeavy() bool { return true }
