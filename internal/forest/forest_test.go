package forest

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
)

// blobs returns two Gaussian clusters; label 1 is centred at (3, 3).
func blobs(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]int, n)
	for i := range x {
		label := i % 2
		c := float64(label) * 3
		x[i] = []float64{c + rng.NormFloat64()*0.5, c + rng.NormFloat64()*0.5, rng.NormFloat64()}
		y[i] = label
	}
	return x, y
}

func accuracy(f *Forest, x [][]float64, y []int) float64 {
	correct := 0
	for i := range x {
		if f.Predict(x[i]) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x))
}

func TestForestSeparable(t *testing.T) {
	x, y := blobs(400, 1)
	p := DefaultParams()
	p.NEstimators = 20
	f := New(p)
	if err := f.Fit(x, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	testX, testY := blobs(200, 2)
	if acc := accuracy(f, testX, testY); acc < 0.95 {
		t.Errorf("accuracy = %.3f, want >= 0.95", acc)
	}

	if p := f.PredictProba([]float64{3, 3, 0}); p < 0.9 {
		t.Errorf("PredictProba(fraud centre) = %v, want > 0.9", p)
	}
	if p := f.PredictProba([]float64{0, 0, 0}); p > 0.1 {
		t.Errorf("PredictProba(legit centre) = %v, want < 0.1", p)
	}
}

func TestForestWorkerIndependence(t *testing.T) {
	x, y := blobs(200, 3)
	p := DefaultParams()
	p.NEstimators = 8

	p.Workers = 1
	a := New(p)
	if err := a.Fit(x, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	p.Workers = 4
	b := New(p)
	if err := b.Fit(x, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if !reflect.DeepEqual(a.Trees, b.Trees) {
		t.Error("trees differ between 1 and 4 workers")
	}
}

func TestForestImportances(t *testing.T) {
	x, y := blobs(300, 4)
	p := DefaultParams()
	p.NEstimators = 10
	p.MaxFeatures = "all"
	f := New(p)
	if err := f.Fit(x, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	var total float64
	for _, v := range f.Importances {
		total += v
	}
	if math.Abs(total-1) > 1e-9 {
		t.Errorf("importances sum = %v, want 1", total)
	}
	// The noise feature carries the least signal.
	if f.Importances[2] >= f.Importances[0] || f.Importances[2] >= f.Importances[1] {
		t.Errorf("importances = %v, want noise feature smallest", f.Importances)
	}
}

func TestForestMaxDepth(t *testing.T) {
	x, y := blobs(200, 5)
	p := DefaultParams()
	p.NEstimators = 3
	p.MaxDepth = 2
	f := New(p)
	if err := f.Fit(x, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	for i := range f.Trees {
		if d := f.Trees[i].Depth(); d > 2 {
			t.Errorf("tree %d depth = %d, want <= 2", i, d)
		}
	}
}

func TestForestMinSamplesLeaf(t *testing.T) {
	x, y := blobs(200, 6)
	p := DefaultParams()
	p.NEstimators = 3
	p.MinSamplesLeaf = 10
	p.Bootstrap = false
	f := New(p)
	if err := f.Fit(x, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	for i := range f.Trees {
		for _, n := range f.Trees[i].Nodes {
			if n.Feature < 0 && n.Samples < 10 {
				t.Errorf("tree %d has a leaf with %d samples", i, n.Samples)
			}
		}
	}
}

func TestTreeThresholdMidpoint(t *testing.T) {
	x := [][]float64{{1}, {2}, {4}, {5}}
	y := []int{0, 0, 1, 1}
	p := DefaultParams()
	p.NEstimators = 1
	p.Bootstrap = false
	f := New(p)
	if err := f.Fit(x, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	root := f.Trees[0].Nodes[0]
	if root.Feature != 0 || root.Threshold != 3 {
		t.Errorf("root split = (%d, %v), want (0, 3)", root.Feature, root.Threshold)
	}
	if f.Predict([]float64{3}) != 0 || f.Predict([]float64{3.01}) != 1 {
		t.Error("values equal to the threshold must go left")
	}
}

func TestForestGobRoundTrip(t *testing.T) {
	x, y := blobs(100, 7)
	p := DefaultParams()
	p.NEstimators = 5
	f := New(p)
	if err := f.Fit(x, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(f); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var loaded Forest
	if err := gob.NewDecoder(&buf).Decode(&loaded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	for i := range x {
		if a, b := f.PredictProba(x[i]), loaded.PredictProba(x[i]); a != b {
			t.Fatalf("sample %d: original %v, loaded %v", i, a, b)
		}
	}
}

func TestForestErrors(t *testing.T) {
	f := New(DefaultParams())
	if err := f.Validate(3); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Validate() on unfitted = %v, want ErrNotFitted", err)
	}
	if err := f.Fit(nil, nil); !errors.Is(err, ErrNoData) {
		t.Errorf("Fit(nil) = %v, want ErrNoData", err)
	}
	if err := f.Fit([][]float64{{1}, {2}}, []int{0, 3}); err == nil {
		t.Error("expected error for non-binary label")
	}
	if err := f.Fit([][]float64{{1}, {2, 3}}, []int{0, 1}); err == nil {
		t.Error("expected error for ragged rows")
	}
}

func TestMtry(t *testing.T) {
	tests := []struct {
		maxFeatures string
		n           int
		want        int
	}{
		{"sqrt", 36, 6},
		{"sqrt", 2, 1},
		{"log2", 36, 5},
		{"all", 36, 36},
	}
	for _, tt := range tests {
		f := New(Params{MaxFeatures: tt.maxFeatures})
		if got := f.mtry(tt.n); got != tt.want {
			t.Errorf("mtry(%s, %d) = %d, want %d", tt.maxFeatures, tt.n, got, tt.want)
		}
	}
}
