package metrics

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestConfusionMatrix(t *testing.T) {
	cm := ConfusionMatrix([]int{0, 0, 1, 1, 1}, []int{0, 1, 1, 1, 0})
	want := [2][2]int{{1, 1}, {1, 2}}
	if cm != want {
		t.Errorf("ConfusionMatrix = %v, want %v", cm, want)
	}
}

func TestClassificationReport(t *testing.T) {
	r := ClassificationReport([]int{0, 0, 1, 1, 1}, []int{0, 1, 1, 1, 0})

	tests := []struct {
		name      string
		got, want float64
	}{
		{"0 precision", r.Negative.Precision, 0.5},
		{"0 recall", r.Negative.Recall, 0.5},
		{"1 precision", r.Positive.Precision, 2.0 / 3},
		{"1 f1", r.Positive.F1, 2.0 / 3},
		{"accuracy", r.Accuracy, 0.6},
		{"macro precision", r.MacroAvg.Precision, (0.5 + 2.0/3) / 2},
		{"weighted precision", r.WeightedAvg.Precision, 0.4*0.5 + 0.6*2.0/3},
	}
	for _, tt := range tests {
		if !near(tt.got, tt.want) {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if r.Negative.Support != 2 || r.Positive.Support != 3 || r.MacroAvg.Support != 5 {
		t.Errorf("supports = %d/%d/%d, want 2/3/5", r.Negative.Support, r.Positive.Support, r.MacroAvg.Support)
	}
}

func TestClassificationReportZeroDivision(t *testing.T) {
	r := ClassificationReport([]int{0, 1}, []int{0, 0})
	if r.Positive.Precision != 0 || r.Positive.F1 != 0 {
		t.Errorf("positive precision/f1 = %v/%v, want 0/0", r.Positive.Precision, r.Positive.F1)
	}
	if r.Negative.Precision != 0.5 {
		t.Errorf("negative precision = %v, want 0.5", r.Negative.Precision)
	}
}

func TestROCAUCAndAveragePrecision(t *testing.T) {
	y := []int{0, 0, 1, 1}
	scores := []float64{0.1, 0.4, 0.35, 0.8}

	auc, err := ROCAUC(y, scores)
	if err != nil {
		t.Fatalf("ROCAUC failed: %v", err)
	}
	if !near(auc, 0.75) {
		t.Errorf("ROCAUC = %v, want 0.75", auc)
	}

	ap, err := AveragePrecision(y, scores)
	if err != nil {
		t.Fatalf("AveragePrecision failed: %v", err)
	}
	if !near(ap, 5.0/6) {
		t.Errorf("AveragePrecision = %v, want %v", ap, 5.0/6)
	}
}

func TestPerfectScores(t *testing.T) {
	y := []int{0, 1, 0, 1}
	scores := []float64{0.2, 0.9, 0.1, 0.7}
	if auc, _ := ROCAUC(y, scores); !near(auc, 1) {
		t.Errorf("ROCAUC = %v, want 1", auc)
	}
	if ap, _ := AveragePrecision(y, scores); !near(ap, 1) {
		t.Errorf("AveragePrecision = %v, want 1", ap)
	}
}

func TestTiedScores(t *testing.T) {
	y := []int{0, 1, 0, 1}
	scores := []float64{0.5, 0.5, 0.5, 0.5}
	if auc, _ := ROCAUC(y, scores); !near(auc, 0.5) {
		t.Errorf("ROCAUC = %v, want 0.5", auc)
	}
	if ap, _ := AveragePrecision(y, scores); !near(ap, 0.5) {
		t.Errorf("AveragePrecision = %v, want 0.5", ap)
	}
}

func TestSingleClass(t *testing.T) {
	if _, err := ROCAUC([]int{1, 1}, []float64{0.2, 0.3}); !errors.Is(err, ErrSingleClass) {
		t.Errorf("ROCAUC error = %v, want ErrSingleClass", err)
	}
	if _, err := AveragePrecision([]int{0, 0}, []float64{0.2, 0.3}); !errors.Is(err, ErrSingleClass) {
		t.Errorf("AveragePrecision error = %v, want ErrSingleClass", err)
	}
}

// threshold predicts the first feature as the fraud probability.
type threshold struct{}

func (threshold) PredictProba(x []float64) float64 { return x[0] }
func (threshold) Predict(x []float64) int {
	if x[0] > 0.5 {
		return 1
	}
	return 0
}

func TestEvaluateSaveLoad(t *testing.T) {
	x := [][]float64{{0.1}, {0.4}, {0.35}, {0.8}}
	y := []int{0, 0, 1, 1}

	r, err := Evaluate(threshold{}, x, y)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !near(r.ROCAUCScore, 0.75) {
		t.Errorf("ROCAUCScore = %v, want 0.75", r.ROCAUCScore)
	}
	if r.ConfusionMatrix != [2][2]int{{2, 0}, {1, 1}} {
		t.Errorf("ConfusionMatrix = %v", r.ConfusionMatrix)
	}
	r.RunID, r.Model = "run-1", "forest"

	path := filepath.Join(t.TempDir(), "results", "metrics.json")
	if err := r.SaveJSON(path); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read metrics: %v", err)
	}
	for _, key := range []string{`"classification_report"`, `"macro avg"`, `"f1-score"`, `"roc_auc_score"`, "\n    \"run_id\""} {
		if !strings.Contains(string(data), key) {
			t.Errorf("metrics file missing %s", key)
		}
	}

	loaded, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON failed: %v", err)
	}
	if loaded.RunID != "run-1" || loaded.ClassificationReport != r.ClassificationReport {
		t.Errorf("loaded report = %+v, want %+v", loaded, r)
	}
}

func TestEvaluateRejectsInvalidLabels(t *testing.T) {
	x := [][]float64{{0.1}, {0.9}, {0.6}}
	if _, err := Evaluate(threshold{}, x, []int{0, 1, 2}); !errors.Is(err, ErrInvalidLabel) {
		t.Errorf("Evaluate() error = %v, want ErrInvalidLabel", err)
	}
}

func TestEvaluateLengthMismatch(t *testing.T) {
	if _, err := Evaluate(threshold{}, [][]float64{{1}}, nil); err == nil {
		t.Error("expected error for mismatched labels")
	}
}
