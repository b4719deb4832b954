// Command predict classifies every row of the processed dataset and saves
// the predictions.
package main

import (
	"github.com/FlavioCFOliveira/GoFraud/internal/cli"
	"github.com/FlavioCFOliveira/GoFraud/internal/pipeline"
)

func main() {
	cfg, log, closeLog := cli.Init("predict")
	defer closeLog()

	if _, err := pipeline.RunPredictions(cfg, log); err != nil {
		log.Fatalf("Prediction failed: %v", err)
	}
}
