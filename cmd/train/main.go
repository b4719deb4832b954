// Command train fits the configured classifier on the processed dataset
// and saves the model.
package main

import (
	"github.com/FlavioCFOliveira/GoFraud/internal/cli"
	"github.com/FlavioCFOliveira/GoFraud/internal/pipeline"
)

func main() {
	cfg, log, closeLog := cli.Init("train")
	defer closeLog()

	if _, err := pipeline.RunTraining(cfg, log); err != nil {
		log.Fatalf("Training failed: %v", err)
	}
}
