// Package scheduler retrains the model on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/FlavioCFOliveira/GoFraud/internal/config"
	"github.com/FlavioCFOliveira/GoFraud/internal/metrics"
	"github.com/FlavioCFOliveira/GoFraud/internal/pipeline"
)

// Job is one retraining run.
type Job func(cfg *config.Config, log logrus.FieldLogger) (*metrics.Report, error)

// Scheduler runs a Job on the configured schedule. A run that is still in
// progress when the next one is due causes that next run to be skipped.
type Scheduler struct {
	cfg  *config.Config
	log  logrus.FieldLogger
	job  Job
	cron *cron.Cron
	runs atomic.Int64
}

// New registers job on cfg.Schedule.Retrain. A nil job means pipeline.RunAll.
func New(cfg *config.Config, log logrus.FieldLogger, job Job) (*Scheduler, error) {
	if job == nil {
		job = pipeline.RunAll
	}
	logger := cron.PrintfLogger(log)
	s := &Scheduler{
		cfg: cfg,
		log: log,
		job: job,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
	if _, err := s.cron.AddFunc(cfg.Schedule.Retrain, s.Run); err != nil {
		return nil, fmt.Errorf("invalid retrain schedule %q: %w", cfg.Schedule.Retrain, err)
	}
	return s, nil
}

// Run executes the job once and logs its outcome.
func (s *Scheduler) Run() {
	n := s.runs.Add(1)
	log := s.log.WithField("run", n)
	log.Info("Retraining started")
	r, err := s.job(s.cfg, log)
	if err != nil {
		log.WithError(err).Error("Retraining failed")
		return
	}
	log.WithFields(logrus.Fields{
		"run_id":  r.RunID,
		"roc_auc": r.ROCAUCScore,
	}).Info("Retraining completed")
}

// Runs returns how many times the job has started.
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

// Start begins scheduling in the background.
func (s *Scheduler) Start() {
	s.log.WithField("schedule", s.cfg.Schedule.Retrain).Info("Scheduler started")
	s.cron.Start()
}

// Stop halts scheduling. The returned context is done once any running
// job has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
