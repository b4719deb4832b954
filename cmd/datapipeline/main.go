// Command datapipeline engineers features on the raw dataset, balances the
// classes with SMOTE and saves the processed dataset.
package main

import (
	"github.com/FlavioCFOliveira/GoFraud/internal/cli"
	"github.com/FlavioCFOliveira/GoFraud/internal/pipeline"
)

func main() {
	cfg, log, closeLog := cli.Init("datapipeline")
	defer closeLog()

	if _, err := pipeline.RunDataPipeline(cfg, log); err != nil {
		log.Fatalf("Data pipeline failed: %v", err)
	}
}
