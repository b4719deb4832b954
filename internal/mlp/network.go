// Package mlp provides a feed-forward neural network binary classifier.
//
// Inputs are standardised by a Scaler fitted during training, hidden layers
// use ReLU and the single output neuron uses Sigmoid, trained with binary
// cross entropy and Adam on shuffled mini-batches.
package mlp

import (
	"errors"
	"fmt"
	"math/rand"
)

var ErrNoData = errors.New("mlp: no training samples")

// Options controls training.
type Options struct {
	Hidden       []int
	LearningRate float64
	Epochs       int
	BatchSize    int
	Seed         int64
}

// Network is a stack of dense layers plus the input scaler.
// Exported fields are what gob persists.
type Network struct {
	Layers []*Dense
	Scaler Scaler
}

// New creates a network for numInputs features with the given hidden
// layer sizes and one sigmoid output.
func New(numInputs int, hidden []int, seed int64) *Network {
	rng := rand.New(rand.NewSource(seed))
	n := &Network{}
	in := numInputs
	for _, size := range hidden {
		n.Layers = append(n.Layers, NewDense(in, size, "ReLU", rng))
		in = size
	}
	n.Layers = append(n.Layers, NewDense(in, 1, "Sigmoid", rng))
	return n
}

// Init restores unexported layer state after decoding.
func (n *Network) Init() {
	for _, l := range n.Layers {
		l.init()
	}
}

// NumInputs returns the expected feature count.
func (n *Network) NumInputs() int {
	if len(n.Layers) == 0 {
		return 0
	}
	return n.Layers[0].In
}

func (n *Network) forward(x []float64) float64 {
	curr := x
	for _, l := range n.Layers {
		curr = l.forward(curr)
	}
	return curr[0]
}

func (n *Network) backward(grad []float64) {
	curr := grad
	for i := len(n.Layers) - 1; i >= 0; i-- {
		curr = n.Layers[i].backward(curr)
	}
}

// trainBatch accumulates gradients over the batch, averages them and
// takes one optimiser step. It returns the mean batch loss.
func (n *Network) trainBatch(batchX [][]float64, batchY []float64, optimizer *Adam) float64 {
	var totalLoss float64
	grad := make([]float64, 1)
	for i, x := range batchX {
		pred := n.forward(x)
		totalLoss += bce(pred, batchY[i])
		grad[0] = bceGrad(pred, batchY[i])
		n.backward(grad)
	}

	size := float64(len(batchX))
	optimizer.Tick()
	for _, l := range n.Layers {
		for i := range l.gradW {
			l.gradW[i] /= size
		}
		for i := range l.gradB {
			l.gradB[i] /= size
		}
		optimizer.Update(l.Weights, l.gradW)
		optimizer.Update(l.Biases, l.gradB)
		l.zeroGrad()
	}
	return totalLoss / size
}

// Fit trains the network and returns the mean loss of every epoch run.
func (n *Network) Fit(x [][]float64, y []int, opts Options, callbacks ...Callback) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrNoData
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("mlp: %d rows but %d labels", len(x), len(y))
	}
	if len(x[0]) != n.NumInputs() {
		return nil, fmt.Errorf("mlp: got %d features, network expects %d", len(x[0]), n.NumInputs())
	}
	batchSize := max(opts.BatchSize, 1)

	n.Scaler = FitScaler(x)
	scaled := make([][]float64, len(x))
	targets := make([]float64, len(y))
	for i := range x {
		scaled[i] = n.Scaler.Transform(x[i])
		targets[i] = float64(y[i])
	}

	optimizer := NewAdam(opts.LearningRate)
	rng := rand.New(rand.NewSource(opts.Seed))
	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}

	for _, cb := range callbacks {
		cb.OnTrainBegin(n)
	}
	defer func() {
		for _, cb := range callbacks {
			cb.OnTrainEnd(n)
		}
	}()

	var history []float64
	batchX := make([][]float64, 0, batchSize)
	batchY := make([]float64, 0, batchSize)
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		totalLoss := 0.0
		batchCount := 0
		for start := 0; start < len(order); start += batchSize {
			end := min(start+batchSize, len(order))
			batchX, batchY = batchX[:0], batchY[:0]
			for _, idx := range order[start:end] {
				batchX = append(batchX, scaled[idx])
				batchY = append(batchY, targets[idx])
			}
			totalLoss += n.trainBatch(batchX, batchY, optimizer)
			batchCount++
		}

		avgLoss := totalLoss / float64(batchCount)
		history = append(history, avgLoss)

		stop := false
		for _, cb := range callbacks {
			cb.OnEpochEnd(epoch, avgLoss, n)
			if s, ok := cb.(Stopper); ok && s.ShouldStop() {
				stop = true
			}
		}
		if stop {
			break
		}
	}
	return history, nil
}

// PredictProba returns the fraud probability of a raw (unscaled) row.
// It is safe for concurrent use.
func (n *Network) PredictProba(x []float64) float64 {
	curr := n.Scaler.Transform(x)
	for _, l := range n.Layers {
		curr = l.infer(curr)
	}
	return curr[0]
}

// Predict returns 1 when the fraud probability exceeds one half.
func (n *Network) Predict(x []float64) int {
	if n.PredictProba(x) > 0.5 {
		return 1
	}
	return 0
}
