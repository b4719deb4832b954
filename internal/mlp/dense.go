package mlp

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Dense is a fully connected layer.
// Weights are row-major: the weight from input j to output o is at
// Weights[o*In + j]. Exported fields are what gob persists.
type Dense struct {
	In         int
	Out        int
	Activation string
	Weights    []float64
	Biases     []float64

	act Activation

	// Training buffers, reused across samples.
	inputBuf  []float64
	preActBuf []float64
	outputBuf []float64
	dzBuf     []float64
	gradInBuf []float64
	// Gradients accumulate over a batch until zeroGrad.
	gradW []float64
	gradB []float64
}

// NewDense creates a layer with Xavier/Glorot initialised weights.
func NewDense(in, out int, activation string, rng *rand.Rand) *Dense {
	d := &Dense{
		In:         in,
		Out:        out,
		Activation: activation,
		Weights:    make([]float64, out*in),
		Biases:     make([]float64, out),
	}

	scale := math.Sqrt(2.0 / (float64(in) + float64(out)))
	for i := range d.Weights {
		d.Weights[i] = rng.Float64()*2*scale - scale
	}
	d.init()
	return d
}

// init allocates the unexported state; it runs after construction and
// after decoding a saved model.
func (d *Dense) init() {
	d.act = activationByName(d.Activation)
	d.inputBuf = make([]float64, d.In)
	d.preActBuf = make([]float64, d.Out)
	d.outputBuf = make([]float64, d.Out)
	d.dzBuf = make([]float64, d.Out)
	d.gradInBuf = make([]float64, d.In)
	d.gradW = make([]float64, d.Out*d.In)
	d.gradB = make([]float64, d.Out)
}

// forward runs the training pass, keeping inputs for backward.
// The returned slice is owned by the layer.
func (d *Dense) forward(x []float64) []float64 {
	copy(d.inputBuf, x)
	for o := 0; o < d.Out; o++ {
		row := d.Weights[o*d.In : (o+1)*d.In]
		z := floats.Dot(row, d.inputBuf) + d.Biases[o]
		d.preActBuf[o] = z
		d.outputBuf[o] = d.act.Activate(z)
	}
	return d.outputBuf
}

// infer computes the layer output into a fresh slice. It does not touch
// the training buffers, so concurrent calls are safe.
func (d *Dense) infer(x []float64) []float64 {
	out := make([]float64, d.Out)
	for o := 0; o < d.Out; o++ {
		row := d.Weights[o*d.In : (o+1)*d.In]
		out[o] = d.act.Activate(floats.Dot(row, x) + d.Biases[o])
	}
	return out
}

// backward accumulates parameter gradients for the last forward input and
// returns the gradient with respect to that input.
func (d *Dense) backward(grad []float64) []float64 {
	for o := 0; o < d.Out; o++ {
		d.dzBuf[o] = grad[o] * d.act.Derivative(d.preActBuf[o])
		d.gradB[o] += d.dzBuf[o]
	}

	for o := 0; o < d.Out; o++ {
		floats.AddScaled(d.gradW[o*d.In:(o+1)*d.In], d.dzBuf[o], d.inputBuf)
	}

	for i := 0; i < d.In; i++ {
		sum := 0.0
		for o := 0; o < d.Out; o++ {
			sum += d.dzBuf[o] * d.Weights[o*d.In+i]
		}
		d.gradInBuf[i] = sum
	}
	return d.gradInBuf
}

func (d *Dense) zeroGrad() {
	for i := range d.gradW {
		d.gradW[i] = 0
	}
	for i := range d.gradB {
		d.gradB[i] = 0
	}
}

func (d *Dense) numParams() int {
	return len(d.Weights) + len(d.Biases)
}
