// Package metrics scores binary classifiers on a labelled holdout.
package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrSingleClass  = errors.New("metrics: only one class present in labels")
	ErrInvalidLabel = errors.New("metrics: labels must be 0 or 1")
)

// ConfusionMatrix returns [[tn, fp], [fn, tp]]. Labels and predictions
// must be 0 or 1; Evaluate checks labels before calling it.
func ConfusionMatrix(y, pred []int) [2][2]int {
	var cm [2][2]int
	for i := range y {
		cm[y[i]][pred[i]]++
	}
	return cm
}

// ClassMetrics is one row of a classification report.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1-score"`
	Support   int     `json:"support"`
}

// ClassReport summarises per-class and averaged scores.
type ClassReport struct {
	Negative    ClassMetrics
	Positive    ClassMetrics
	Accuracy    float64
	MacroAvg    ClassMetrics
	WeightedAvg ClassMetrics
}

func (r ClassReport) fields() map[string]any {
	return map[string]any{
		"0":            r.Negative,
		"1":            r.Positive,
		"accuracy":     r.Accuracy,
		"macro avg":    r.MacroAvg,
		"weighted avg": r.WeightedAvg,
	}
}

// MarshalJSON encodes the report with label keys "0" and "1".
func (r ClassReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields())
}

func (r *ClassReport) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	targets := map[string]any{
		"0":            &r.Negative,
		"1":            &r.Positive,
		"accuracy":     &r.Accuracy,
		"macro avg":    &r.MacroAvg,
		"weighted avg": &r.WeightedAvg,
	}
	for key, dst := range targets {
		msg, ok := raw[key]
		if !ok {
			return fmt.Errorf("metrics: classification report has no %q entry", key)
		}
		if err := json.Unmarshal(msg, dst); err != nil {
			return fmt.Errorf("metrics: decoding %q: %w", key, err)
		}
	}
	return nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func classMetrics(tp, fp, fn int) ClassMetrics {
	m := ClassMetrics{
		Precision: ratio(tp, tp+fp),
		Recall:    ratio(tp, tp+fn),
		Support:   tp + fn,
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// ClassificationReport computes precision, recall and F1 for both classes.
// Undefined ratios are reported as zero.
func ClassificationReport(y, pred []int) ClassReport {
	cm := ConfusionMatrix(y, pred)
	tn, fp, fn, tp := cm[0][0], cm[0][1], cm[1][0], cm[1][1]

	r := ClassReport{
		Negative: classMetrics(tn, fn, fp),
		Positive: classMetrics(tp, fp, fn),
		Accuracy: ratio(tn+tp, len(y)),
	}

	total := r.Negative.Support + r.Positive.Support
	wn, wp := ratio(r.Negative.Support, total), ratio(r.Positive.Support, total)
	r.MacroAvg = ClassMetrics{
		Precision: (r.Negative.Precision + r.Positive.Precision) / 2,
		Recall:    (r.Negative.Recall + r.Positive.Recall) / 2,
		F1:        (r.Negative.F1 + r.Positive.F1) / 2,
		Support:   total,
	}
	r.WeightedAvg = ClassMetrics{
		Precision: wn*r.Negative.Precision + wp*r.Positive.Precision,
		Recall:    wn*r.Negative.Recall + wp*r.Positive.Recall,
		F1:        wn*r.Negative.F1 + wp*r.Positive.F1,
		Support:   total,
	}
	return r
}

func checkBinary(y []int) error {
	neg, pos := 0, 0
	for _, v := range y {
		if v == 1 {
			pos++
		} else {
			neg++
		}
	}
	if neg == 0 || pos == 0 {
		return ErrSingleClass
	}
	return nil
}

// ROCCurve returns false and true positive rates for every distinct score
// threshold, starting from (0, 0).
func ROCCurve(y []int, scores []float64) (fpr, tpr []float64, err error) {
	if err := checkBinary(y); err != nil {
		return nil, nil, err
	}
	s := append([]float64(nil), scores...)
	classes := make([]bool, len(y))
	for i, v := range y {
		classes[i] = v == 1
	}
	stat.SortWeightedLabeled(s, classes, nil)
	tpr, fpr, _ = stat.ROC(nil, s, classes, nil)
	return fpr, tpr, nil
}

// ROCAUC integrates the ROC curve with the trapezoidal rule.
func ROCAUC(y []int, scores []float64) (float64, error) {
	fpr, tpr, err := ROCCurve(y, scores)
	if err != nil {
		return 0, err
	}
	return integrate.Trapezoidal(fpr, tpr), nil
}

// AveragePrecision is the sum over descending distinct thresholds of the
// recall increase weighted by the precision at that threshold.
func AveragePrecision(y []int, scores []float64) (float64, error) {
	if err := checkBinary(y); err != nil {
		return 0, err
	}
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	positives := 0
	for _, v := range y {
		if v == 1 {
			positives++
		}
	}

	var ap, prevRecall float64
	tp, seen := 0, 0
	for i, idx := range order {
		seen++
		if y[idx] == 1 {
			tp++
		}
		if i+1 < len(order) && scores[order[i+1]] == scores[idx] {
			continue
		}
		recall := float64(tp) / float64(positives)
		precision := float64(tp) / float64(seen)
		ap += (recall - prevRecall) * precision
		prevRecall = recall
	}
	return ap, nil
}

// Classifier is what Evaluate needs from a fitted model.
type Classifier interface {
	PredictProba(x []float64) float64
	Predict(x []float64) int
}

// Report is the metrics file written after evaluation.
type Report struct {
	RunID                 string      `json:"run_id"`
	Model                 string      `json:"model"`
	EvaluatedAt           time.Time   `json:"evaluated_at"`
	ClassificationReport  ClassReport `json:"classification_report"`
	ConfusionMatrix       [2][2]int   `json:"confusion_matrix"`
	ROCAUCScore           float64     `json:"roc_auc_score"`
	AveragePrecisionScore float64     `json:"average_precision_score"`

	// Curve points for plotting; not persisted.
	FPR []float64 `json:"-"`
	TPR []float64 `json:"-"`
}

// Evaluate scores clf on x with true labels y.
func Evaluate(clf Classifier, x [][]float64, y []int) (*Report, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("metrics: %d rows but %d labels", len(x), len(y))
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("%w: got %d at row %d", ErrInvalidLabel, v, i)
		}
	}
	pred := make([]int, len(x))
	proba := make([]float64, len(x))
	for i, row := range x {
		proba[i] = clf.PredictProba(row)
		if proba[i] > 0.5 {
			pred[i] = 1
		}
	}

	r := &Report{
		EvaluatedAt:          time.Now().UTC(),
		ClassificationReport: ClassificationReport(y, pred),
		ConfusionMatrix:      ConfusionMatrix(y, pred),
	}
	var err error
	if r.FPR, r.TPR, err = ROCCurve(y, proba); err != nil {
		return nil, err
	}
	r.ROCAUCScore = integrate.Trapezoidal(r.FPR, r.TPR)
	if r.AveragePrecisionScore, err = AveragePrecision(y, proba); err != nil {
		return nil, err
	}
	return r, nil
}

// SaveJSON writes the report indented by four spaces.
func (r *Report) SaveJSON(filename string) error {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// LoadJSON reads a report written by SaveJSON.
func LoadJSON(filename string) (*Report, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode metrics: %w", err)
	}
	return &r, nil
}
