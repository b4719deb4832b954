// Command gendata writes a synthetic card transaction dataset to the raw
// data path, for trying the pipeline without the real export.
package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/FlavioCFOliveira/GoFraud/internal/cli"
	"github.com/FlavioCFOliveira/GoFraud/internal/dataset"
)

var (
	rows      = flag.Int("n", 50000, "number of transactions")
	fraudRate = flag.Float64("fraud-rate", 0.0017, "fraction of fraudulent transactions")
	seed      = flag.Int64("seed", 42, "random seed")
)

func main() {
	cfg, log, closeLog := cli.Init("gendata")
	defer closeLog()

	if *rows <= 0 || *fraudRate <= 0 || *fraudRate >= 1 {
		log.Fatalf("Invalid flags: -n must be positive and -fraud-rate in (0, 1)")
	}

	f := dataset.Synthesize(*rows, *fraudRate, *seed, cfg.TargetColumn)
	path := cfg.Resolve(cfg.Paths.RawData)
	log.Infof("Saving data to %s", path)
	if err := dataset.SaveCSV(path, f); err != nil {
		log.Fatalf("Failed to save data: %v", err)
	}

	_, y, err := f.XY(cfg.TargetColumn)
	if err != nil {
		log.Fatalf("Failed to read labels: %v", err)
	}
	_, fraud := dataset.CountClasses(y)
	log.WithFields(logrus.Fields{"rows": f.Len(), "fraud": fraud}).Info("Synthetic dataset written")
}
