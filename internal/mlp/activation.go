package mlp

import "math"

// Activation is an element-wise non-linearity.
// Derivative takes the pre-activation value.
type Activation interface {
	Activate(x float64) float64
	Derivative(x float64) float64
}

// ReLU activation: max(0, x)
type ReLU struct{}

func (ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func (ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

// Sigmoid activation: 1 / (1 + exp(-x))
type Sigmoid struct{}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	// Avoids overflow of exp(-x) for large negative inputs.
	e := math.Exp(x)
	return e / (1 + e)
}

func (Sigmoid) Activate(x float64) float64 { return sigmoid(x) }

func (Sigmoid) Derivative(x float64) float64 {
	s := sigmoid(x)
	return s * (1 - s)
}

// Tanh activation
type Tanh struct{}

func (Tanh) Activate(x float64) float64 { return math.Tanh(x) }

func (Tanh) Derivative(x float64) float64 {
	t := math.Tanh(x)
	return 1 - t*t
}

// activationByName resolves the names stored in saved models.
func activationByName(name string) Activation {
	switch name {
	case "Sigmoid":
		return Sigmoid{}
	case "Tanh":
		return Tanh{}
	default:
		return ReLU{}
	}
}
