package mlp

import "math"

// Adam optimizer with per-parameter first and second moment estimates.
type Adam struct {
	LearningRate float64
	Beta1        float64 // Exponential decay rate for first moment
	Beta2        float64 // Exponential decay rate for second moment
	Epsilon      float64 // Small constant for numerical stability

	t int
	m map[*float64][]float64
	v map[*float64][]float64
}

// NewAdam creates a new Adam optimizer with default decay rates.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		m:            make(map[*float64][]float64),
		v:            make(map[*float64][]float64),
	}
}

// Tick advances the time step. Call it once per optimisation step, before
// updating the parameter groups.
func (a *Adam) Tick() {
	a.t++
}

// Update applies one bias-corrected Adam step to params in place.
// Moment state is keyed by the parameter slice, which must keep its
// backing array between steps.
func (a *Adam) Update(params, grads []float64) {
	if len(params) == 0 {
		return
	}
	key := &params[0]
	m, ok := a.m[key]
	if !ok {
		m = make([]float64, len(params))
		a.m[key] = m
		a.v[key] = make([]float64, len(params))
	}
	v := a.v[key]

	t := float64(max(a.t, 1))
	c1 := 1 - math.Pow(a.Beta1, t)
	c2 := 1 - math.Pow(a.Beta2, t)
	for i, g := range grads {
		m[i] = a.Beta1*m[i] + (1-a.Beta1)*g
		v[i] = a.Beta2*v[i] + (1-a.Beta2)*g*g
		mHat := m[i] / c1
		vHat := v[i] / c2
		params[i] -= a.LearningRate * mHat / (math.Sqrt(vHat) + a.Epsilon)
	}
}
