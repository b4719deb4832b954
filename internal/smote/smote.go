// Package smote implements Synthetic Minority Over-sampling for binary labels.
package smote

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/kdtree"
)

var (
	ErrNotBinary     = errors.New("smote: labels must contain both classes 0 and 1 only")
	ErrTooFewSamples = errors.New("smote: not enough minority samples for the neighbourhood size")
)

// Resampler oversamples the minority class until it matches the majority.
type Resampler struct {
	// K is the number of nearest minority neighbours interpolated towards.
	K int
	// Seed drives sample, neighbour and gap selection.
	Seed int64
}

// New creates a Resampler.
func New(k int, seed int64) *Resampler {
	return &Resampler{K: k, Seed: seed}
}

// FitResample returns the input rows followed by synthetic minority rows.
// Each synthetic row lies on the segment between a random minority row and
// one of its K nearest minority neighbours. The input slices are not
// modified, and a balanced input comes back as a copy.
func (r *Resampler) FitResample(x [][]float64, y []int) ([][]float64, []int, error) {
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("smote: %d rows but %d labels", len(x), len(y))
	}

	var byClass [2][]int
	for i, label := range y {
		if label != 0 && label != 1 {
			return nil, nil, fmt.Errorf("%w: got label %d at row %d", ErrNotBinary, label, i)
		}
		byClass[label] = append(byClass[label], i)
	}
	if len(byClass[0]) == 0 || len(byClass[1]) == 0 {
		return nil, nil, ErrNotBinary
	}

	minority := 1
	if len(byClass[0]) < len(byClass[1]) {
		minority = 0
	}
	minIdx := byClass[minority]
	nSynthetic := len(byClass[1-minority]) - len(minIdx)

	outX := make([][]float64, len(x), len(x)+nSynthetic)
	for i, row := range x {
		outX[i] = append([]float64(nil), row...)
	}
	outY := make([]int, len(y), len(y)+nSynthetic)
	copy(outY, y)

	if nSynthetic == 0 {
		return outX, outY, nil
	}
	if len(minIdx) < r.K+1 {
		return nil, nil, fmt.Errorf("%w: %d minority rows, need at least %d", ErrTooFewSamples, len(minIdx), r.K+1)
	}

	samples := make([][]float64, len(minIdx))
	for i, idx := range minIdx {
		samples[i] = x[idx]
	}
	neighbours := nearest(samples, r.K)

	rng := rand.New(rand.NewSource(r.Seed))
	diff := make([]float64, len(samples[0]))
	for s := 0; s < nSynthetic; s++ {
		j := rng.Intn(len(samples) * r.K)
		row, col := j/r.K, j%r.K
		gap := rng.Float64()

		base := samples[row]
		nn := samples[neighbours[row][col]]
		floats.SubTo(diff, nn, base)
		synthetic := floats.AddScaledTo(make([]float64, len(base)), base, gap, diff)

		outX = append(outX, synthetic)
		outY = append(outY, minority)
	}
	return outX, outY, nil
}

// nearest returns, for every sample, the indices of its k nearest other
// samples ordered by distance (ties broken by index).
func nearest(samples [][]float64, k int) [][]int {
	pts := make(points, len(samples))
	for i, s := range samples {
		pts[i] = point{idx: i, x: s}
	}
	// The tree reorders its backing slice, so build it from a copy.
	tree := kdtree.New(append(points(nil), pts...), false)

	out := make([][]int, len(samples))
	for i, p := range pts {
		keeper := kdtree.NewNKeeper(k + 1)
		tree.NearestSet(keeper, p)

		found := make([]kdtree.ComparableDist, 0, len(keeper.Heap))
		for _, c := range keeper.Heap {
			if c.Comparable == nil || c.Comparable.(point).idx == i {
				continue
			}
			found = append(found, c)
		}
		sort.Slice(found, func(a, b int) bool {
			if found[a].Dist != found[b].Dist {
				return found[a].Dist < found[b].Dist
			}
			return found[a].Comparable.(point).idx < found[b].Comparable.(point).idx
		})
		if len(found) > k {
			found = found[:k]
		}

		out[i] = make([]int, len(found))
		for j, c := range found {
			out[i][j] = c.Comparable.(point).idx
		}
	}
	return out
}
