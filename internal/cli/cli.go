// Package cli holds the start-up shared by the command binaries.
package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/FlavioCFOliveira/GoFraud/internal/config"
	"github.com/FlavioCFOliveira/GoFraud/internal/logging"
)

var configPath = flag.String("config", "", "path to the YAML configuration (default $FRAUD_CONFIG or "+config.DefaultPath+")")

// Init parses the command line, loads and validates the configuration,
// creates the output directories and opens the logger. Commands declare
// their own flags before calling it. The returned function closes the
// log file.
func Init(name string) (*config.Config, *logrus.Entry, func()) {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}

	logger, closeLog, err := logging.New(cfg.Log.Level, cfg.Log.Format, cfg.Resolve(cfg.Paths.PipelineLog))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}
	log := logger.WithField("cmd", name)
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}
	return cfg, log, func() { closeLog() }
}
