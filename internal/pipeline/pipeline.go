// Package pipeline runs the fraud detection stages over files named by
// the configuration: data preparation, training, evaluation and batch
// prediction.
package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/FlavioCFOliveira/GoFraud/internal/config"
	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
	"github.com/FlavioCFOliveira/GoFraud/internal/features"
	"github.com/FlavioCFOliveira/GoFraud/internal/metrics"
	"github.com/FlavioCFOliveira/GoFraud/internal/mlp"
	"github.com/FlavioCFOliveira/GoFraud/internal/model"
	"github.com/FlavioCFOliveira/GoFraud/internal/report"
	"github.com/FlavioCFOliveira/GoFraud/internal/smote"
)

// Prediction output columns.
const (
	PredictedClass   = "Predicted_Class"
	FraudProbability = "Fraud_Probability"
)

func loadFrame(path string, log logrus.FieldLogger) (*dataset.Frame, error) {
	log.Infof("Loading data from %s", path)
	f, err := dataset.LoadCSV(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	log.WithFields(logrus.Fields{"rows": f.Len(), "columns": len(f.Columns)}).Info("Data loaded")
	return f, nil
}

func saveFrame(path string, f *dataset.Frame, log logrus.FieldLogger) error {
	log.Infof("Saving data to %s", path)
	if err := dataset.SaveCSV(path, f); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// RunDataPipeline engineers features on the raw data, rebalances the
// classes with SMOTE and writes the processed dataset.
func RunDataPipeline(cfg *config.Config, log logrus.FieldLogger) (*dataset.Frame, error) {
	raw, err := loadFrame(cfg.Resolve(cfg.Paths.RawData), log)
	if err != nil {
		return nil, err
	}
	if err := features.Engineer(raw); err != nil {
		return nil, err
	}
	x, y, err := raw.XY(cfg.TargetColumn)
	if err != nil {
		return nil, err
	}

	neg, pos := dataset.CountClasses(y)
	log.WithFields(logrus.Fields{"negatives": neg, "positives": pos}).Info("Resampling with SMOTE")
	xr, yr, err := smote.New(cfg.SMOTE.KNeighbors, cfg.SMOTE.RandomState).FitResample(x.Rows, y)
	if err != nil {
		return nil, err
	}
	neg, pos = dataset.CountClasses(yr)
	log.WithFields(logrus.Fields{"negatives": neg, "positives": pos}).Info("Classes balanced")

	processed, err := dataset.WithTarget(x.Columns, xr, cfg.TargetColumn, yr)
	if err != nil {
		return nil, err
	}
	if err := saveFrame(cfg.Resolve(cfg.Paths.ProcessedData), processed, log); err != nil {
		return nil, err
	}
	log.Info("Data pipeline completed")
	return processed, nil
}

// holdout is the processed data split the same way for training and
// evaluation.
type holdout struct {
	columns       []string
	trainX, testX [][]float64
	trainY, testY []int
}

func loadHoldout(cfg *config.Config, log logrus.FieldLogger) (*holdout, error) {
	processed, err := loadFrame(cfg.Resolve(cfg.Paths.ProcessedData), log)
	if err != nil {
		return nil, err
	}
	x, y, err := processed.XY(cfg.TargetColumn)
	if err != nil {
		return nil, err
	}

	trainIdx, testIdx := dataset.TrainTestSplit(x.Len(), cfg.TestSize, cfg.RandomState)
	h := &holdout{
		columns: x.Columns,
		trainX:  x.Select(trainIdx).Rows,
		testX:   x.Select(testIdx).Rows,
		trainY:  make([]int, len(trainIdx)),
		testY:   make([]int, len(testIdx)),
	}
	for i, j := range trainIdx {
		h.trainY[i] = y[j]
	}
	for i, j := range testIdx {
		h.testY[i] = y[j]
	}
	log.WithFields(logrus.Fields{"train": len(trainIdx), "test": len(testIdx)}).Debug("Split data")
	return h, nil
}

// RunTraining fits the configured classifier on the training split and
// saves the model artifact.
func RunTraining(cfg *config.Config, log logrus.FieldLogger) (*model.Artifact, error) {
	h, err := loadHoldout(cfg, log)
	if err != nil {
		return nil, err
	}

	var callbacks []mlp.Callback
	var csvLog *mlp.CSVLogger
	if cfg.Model.Kind == model.KindMLP {
		csvLog = mlp.NewCSVLogger(cfg.Resolve(cfg.Paths.TrainingLog))
		callbacks = append(callbacks, mlp.LogCallback{Interval: 1, Logger: log}, csvLog)
	}

	log.WithFields(logrus.Fields{"model": cfg.Model.Kind, "samples": len(h.trainX)}).Info("Training model...")
	start := time.Now()
	a, err := model.Fit(cfg, h.columns, h.trainX, h.trainY, callbacks...)
	if err != nil {
		return nil, err
	}
	if csvLog != nil && csvLog.Err != nil {
		log.WithError(csvLog.Err).Warn("Training log could not be written")
	}
	log.WithFields(logrus.Fields{"run_id": a.RunID, "duration": time.Since(start).Round(time.Millisecond)}).Info("Model trained")
	if a.Forest != nil {
		logImportances(log, h.columns, a.Forest.Importances)
	}

	path := cfg.Resolve(cfg.Paths.Model)
	log.Infof("Saving model to %s", path)
	if err := a.Save(path); err != nil {
		return nil, err
	}
	log.Info("Model training completed")
	return a, nil
}

func logImportances(log logrus.FieldLogger, columns []string, importances []float64) {
	order := make([]int, len(importances))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return importances[order[a]] > importances[order[b]] })
	for _, i := range order[:min(5, len(order))] {
		log.WithFields(logrus.Fields{"feature": columns[i], "importance": importances[i]}).Debug("Feature importance")
	}
}

func loadModel(cfg *config.Config, log logrus.FieldLogger) (*model.Artifact, model.Classifier, error) {
	path := cfg.Resolve(cfg.Paths.Model)
	log.Infof("Loading model from %s", path)
	a, err := model.Load(path)
	if err != nil {
		return nil, nil, err
	}
	clf, err := a.Classifier()
	if err != nil {
		return nil, nil, err
	}
	return a, clf, nil
}

// RunEvaluation scores the saved model on the holdout split and writes the
// metrics file and plots.
func RunEvaluation(cfg *config.Config, log logrus.FieldLogger) (*metrics.Report, error) {
	a, clf, err := loadModel(cfg, log)
	if err != nil {
		return nil, err
	}
	h, err := loadHoldout(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := a.CheckColumns(h.columns); err != nil {
		return nil, err
	}

	log.Info("Evaluating model...")
	r, err := metrics.Evaluate(clf, h.testX, h.testY)
	if err != nil {
		return nil, err
	}
	r.RunID = a.RunID
	r.Model = a.Kind
	log.WithFields(logrus.Fields{
		"run_id":            r.RunID,
		"accuracy":          r.ClassificationReport.Accuracy,
		"roc_auc":           r.ROCAUCScore,
		"average_precision": r.AveragePrecisionScore,
	}).Info("Model evaluation completed")

	path := cfg.Resolve(cfg.Paths.Metrics)
	log.Infof("Saving metrics to %s", path)
	if err := r.SaveJSON(path); err != nil {
		return nil, err
	}
	path = cfg.Resolve(cfg.Paths.ConfusionMatrix)
	log.Infof("Saving confusion matrix plot to %s", path)
	if err := report.ConfusionMatrixPNG(path, r.ConfusionMatrix); err != nil {
		return nil, err
	}
	path = cfg.Resolve(cfg.Paths.ROCCurve)
	log.Infof("Saving ROC curve plot to %s", path)
	if err := report.ROCCurvePNG(path, r.FPR, r.TPR, r.ROCAUCScore); err != nil {
		return nil, err
	}
	return r, nil
}

// RunPredictions classifies every processed row and writes the predicted
// class and fraud probability per row.
func RunPredictions(cfg *config.Config, log logrus.FieldLogger) (*dataset.Frame, error) {
	a, clf, err := loadModel(cfg, log)
	if err != nil {
		return nil, err
	}
	data, err := loadFrame(cfg.Resolve(cfg.Paths.ProcessedData), log)
	if err != nil {
		return nil, err
	}
	if data.Index(cfg.TargetColumn) >= 0 {
		if data, err = data.Drop(cfg.TargetColumn); err != nil {
			return nil, err
		}
	}
	if err := a.CheckColumns(data.Columns); err != nil {
		return nil, err
	}

	out := &dataset.Frame{
		Columns: []string{PredictedClass, FraudProbability},
		Rows:    make([][]float64, data.Len()),
	}
	frauds := 0
	for i, row := range data.Rows {
		p := clf.PredictProba(row)
		class := 0.0
		if p > 0.5 {
			class = 1
			frauds++
		}
		out.Rows[i] = []float64{class, p}
	}
	log.WithFields(logrus.Fields{"rows": out.Len(), "fraud": frauds}).Info("Predictions completed")

	if err := saveFrame(cfg.Resolve(cfg.Paths.Predictions), out, log); err != nil {
		return nil, err
	}
	return out, nil
}

// RunAll runs data preparation, training and evaluation in sequence.
func RunAll(cfg *config.Config, log logrus.FieldLogger) (*metrics.Report, error) {
	if _, err := RunDataPipeline(cfg, log); err != nil {
		return nil, fmt.Errorf("data pipeline: %w", err)
	}
	if _, err := RunTraining(cfg, log); err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}
	r, err := RunEvaluation(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("evaluation: %w", err)
	}
	return r, nil
}
