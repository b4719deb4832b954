// Package forest provides a random forest classifier for binary labels.
package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
)

var (
	ErrNotFitted = errors.New("forest: model is not fitted")
	ErrNoData    = errors.New("forest: no training samples")
)

// Params configures tree growth. MaxDepth 0 grows until leaves are pure.
type Params struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MaxFeatures is the per-node feature subset: "sqrt", "log2" or "all".
	MaxFeatures string
	Bootstrap   bool
	// Workers bounds concurrent tree growth; 0 means runtime.NumCPU().
	Workers int
	Seed    int64
}

// DefaultParams returns 100 fully grown bootstrapped trees.
func DefaultParams() Params {
	return Params{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     "sqrt",
		Bootstrap:       true,
		Seed:            42,
	}
}

// Forest is an ensemble of CART trees. Its fields are exported for gob.
type Forest struct {
	Params      Params
	NumFeatures int
	Trees       []Tree
	// Importances holds normalised mean impurity decrease per feature.
	Importances []float64
}

// New creates an unfitted forest.
func New(p Params) *Forest {
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}
	if p.MinSamplesLeaf < 1 {
		p.MinSamplesLeaf = 1
	}
	return &Forest{Params: p}
}

func (f *Forest) mtry(numFeatures int) int {
	var m int
	switch f.Params.MaxFeatures {
	case "log2":
		m = int(math.Log2(float64(numFeatures)))
	case "all":
		m = numFeatures
	default:
		m = int(math.Sqrt(float64(numFeatures)))
	}
	return max(1, min(m, numFeatures))
}

// Fit grows NEstimators trees. Tree i is seeded with Seed+i, so the result
// does not depend on the number of workers.
func (f *Forest) Fit(x [][]float64, y []int) error {
	if len(x) == 0 {
		return ErrNoData
	}
	if len(x) != len(y) {
		return fmt.Errorf("forest: %d rows but %d labels", len(x), len(y))
	}
	numFeatures := len(x[0])
	for i, row := range x {
		if len(row) != numFeatures {
			return fmt.Errorf("forest: row %d has %d features, want %d", i, len(row), numFeatures)
		}
		if y[i] != 0 && y[i] != 1 {
			return fmt.Errorf("forest: label %d at row %d is not binary", y[i], i)
		}
	}

	nTrees := f.Params.NEstimators
	if nTrees < 1 {
		nTrees = 1
	}
	numWorkers := f.Params.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = min(numWorkers, nTrees)

	trees := make([]Tree, nTrees)
	importances := make([][]float64, nTrees)
	mtry := f.mtry(numFeatures)

	jobs := make(chan int)
	var wg sync.WaitGroup
	worker := func() {
		defer wg.Done()
		for t := range jobs {
			rng := rand.New(rand.NewSource(f.Params.Seed + int64(t)))
			g := &grower{
				x:          x,
				y:          y,
				params:     f.Params,
				mtry:       mtry,
				rng:        rng,
				importance: make([]float64, numFeatures),
			}
			trees[t] = g.grow(sampleIndices(len(x), f.Params.Bootstrap, rng))
			importances[t] = g.importance
		}
	}

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go worker()
	}
	for t := 0; t < nTrees; t++ {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	f.NumFeatures = numFeatures
	f.Trees = trees
	f.Importances = normalise(importances, numFeatures)
	return nil
}

func sampleIndices(n int, bootstrap bool, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		if bootstrap {
			idx[i] = rng.Intn(n)
		} else {
			idx[i] = i
		}
	}
	return idx
}

// normalise averages per-tree importances, each scaled to sum to 1.
func normalise(perTree [][]float64, numFeatures int) []float64 {
	out := make([]float64, numFeatures)
	for _, imp := range perTree {
		var total float64
		for _, v := range imp {
			total += v
		}
		if total == 0 {
			continue
		}
		for i, v := range imp {
			out[i] += v / total
		}
	}
	var total float64
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out
}

// PredictProba returns the mean fraud fraction of the leaves reached by x.
func (f *Forest) PredictProba(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].Leaf(x).Value
	}
	return sum / float64(len(f.Trees))
}

// Predict returns 1 when the fraud probability exceeds one half.
func (f *Forest) Predict(x []float64) int {
	if f.PredictProba(x) > 0.5 {
		return 1
	}
	return 0
}

// Validate reports whether the forest can predict vectors of n features.
func (f *Forest) Validate(n int) error {
	if len(f.Trees) == 0 {
		return ErrNotFitted
	}
	if n != f.NumFeatures {
		return fmt.Errorf("forest: got %d features, model expects %d", n, f.NumFeatures)
	}
	return nil
}
