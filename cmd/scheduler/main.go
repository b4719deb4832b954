// Command scheduler reruns data preparation, training and evaluation on
// the configured cron schedule.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/FlavioCFOliveira/GoFraud/internal/cli"
	"github.com/FlavioCFOliveira/GoFraud/internal/scheduler"
)

var now = flag.Bool("now", false, "run once immediately before scheduling")

func main() {
	cfg, log, closeLog := cli.Init("scheduler")
	defer closeLog()

	s, err := scheduler.New(cfg, log, nil)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	if *now {
		s.Run()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.Start()
	<-ctx.Done()
	log.Info("Stopping scheduler, waiting for a running job")
	<-s.Stop().Done()
}
