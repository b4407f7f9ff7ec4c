package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amariwan/class-digest/internal/util"
	"github.com/robfig/cron/v3"
)

// Scheduler runs the digest on a cron expression until cancelled
type Scheduler struct {
	expr    string
	cron    *cron.Cron
	job     func(ctx context.Context) error
	secrets []string
	logger  util.Logger
}

// NewScheduler validates expr (standard five fields or @descriptors) and
// prepares a cron runner in loc. Overlapping runs are skipped. secrets are
// redacted from logged job errors.
func NewScheduler(expr string, loc *time.Location, job func(ctx context.Context) error, logger util.Logger, secrets ...string) (*Scheduler, error) {
	if _, err := cron.ParseStandard(expr); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	if loc == nil {
		loc = time.Local
	}

	cl := cronLogger{logger: logger}
	return &Scheduler{
		expr: expr,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		job:     job,
		secrets: secrets,
		logger:  logger,
	}, nil
}

// Start blocks until ctx is done or SIGINT/SIGTERM arrives, then waits for a
// running job to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting scheduler", "cron", s.expr)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	id, err := s.cron.AddFunc(s.expr, func() {
		s.runScheduled(runCtx)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Next run scheduled", "at", s.cron.Entry(id).Next.Format(time.RFC3339))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("Context cancelled, shutting down scheduler")
	case sig := <-sigChan:
		s.logger.Info("Received signal, shutting down scheduler", "signal", sig)
	}

	stopped := s.cron.Stop()
	<-stopped.Done()
	s.logger.Info("Scheduler stopped gracefully")
	return nil
}

// runScheduled executes one run. Failures are logged and the schedule keeps going.
func (s *Scheduler) runScheduled(ctx context.Context) {
	s.logger.Info("Running scheduled digest", "time", time.Now().Format(time.RFC3339))
	if err := s.job(ctx); err != nil {
		s.logger.Error("Scheduled digest failed", "error", util.FormatError(err, "digest", s.secrets...), "exit_code", exitCode(err))
	}
}

// cronLogger adapts util.Logger to cron.Logger
type cronLogger struct {
	logger util.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
