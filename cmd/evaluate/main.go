// Command evaluate scores the saved model on the holdout split and writes
// the metrics file, confusion matrix and ROC curve.
package main

import (
	"github.com/FlavioCFOliveira/GoFraud/internal/cli"
	"github.com/FlavioCFOliveira/GoFraud/internal/pipeline"
)

func main() {
	cfg, log, closeLog := cli.Init("evaluate")
	defer closeLog()

	if _, err := pipeline.RunEvaluation(cfg, log); err != nil {
		log.Fatalf("Evaluation failed: %v", err)
	}
}
