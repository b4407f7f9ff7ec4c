package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/amariwan/class-digest/internal/agenda"
	"github.com/amariwan/class-digest/internal/config"
	"github.com/amariwan/class-digest/internal/exceptions"
	"github.com/amariwan/class-digest/internal/models"
	"github.com/amariwan/class-digest/internal/notify"
	"github.com/amariwan/class-digest/internal/schedule"
	"github.com/amariwan/class-digest/internal/util"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Exit codes follow sysexits.h
const (
	exitGeneric     = 1
	exitUsage       = 64
	exitDataErr     = 65
	exitUnavailable = 69
)

// placeholder addresses so --dry-run works without mail settings
const dryRunAddress = "class-digest@localhost"

var (
	version = "dev"

	// CLI flags
	configFile     string
	scheduleFile   string
	exceptionsFile string
	dateFlag       string
	sendOnEmpty    bool
	dryRun         bool
	cronExpr       string
	logLevel       string
	logFile        string

	// set by persistentPreRunE
	logger util.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger == nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps the typed errors of each stage to a process exit status
func exitCode(err error) int {
	var (
		ue  *usageError
		dse *schedule.DataSourceError
		ede *exceptions.ExceptionDataError
		de  *notify.DeliveryError
	)
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ue):
		return exitUsage
	case errors.As(err, &dse), errors.As(err, &ede):
		return exitDataErr
	case errors.As(err, &de):
		return exitUnavailable
	default:
		return exitGeneric
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		logger.Error("Invalid configuration", "error", util.FormatError(err, "config"), "exit_code", exitUsage)
		return err
	}

	if err := execute(cmd.Context(), cfg); err != nil {
		logger.Error("Run failed",
			"error", util.FormatError(err, "class-digest", cfg.Secrets()...),
			"exit_code", exitCode(err))
		return err
	}
	return nil
}

// loadConfig reads the config file and applies flags that were set explicitly
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, &usageError{msg: err.Error()}
	}

	if cmd.Flags().Changed("schedule") {
		cfg.Schedule.Path = scheduleFile
	}
	if cmd.Flags().Changed("exceptions") {
		cfg.Exceptions = exceptionsFile
	}
	if cmd.Flags().Changed("send-on-empty") {
		cfg.SendOnEmpty = sendOnEmpty
	}
	if dryRun {
		if cfg.SMTP.From == "" {
			cfg.SMTP.From = dryRunAddress
		}
		if len(cfg.SMTP.To) == 0 {
			cfg.SMTP.To = []string{cfg.SMTP.From}
		}
	}
	return cfg, nil
}

func execute(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	semester, err := cfg.Semester.Parse(cfg.Location())
	if err != nil {
		return &usageError{msg: err.Error()}
	}

	sender := newSender(cfg, os.Stdout)

	logger.Info("Starting class digest", "version", version,
		"schedule", cfg.Schedule.Path, "exceptions", cfg.Exceptions, "dry_run", dryRun)

	if cronExpr != "" {
		sched, err := NewScheduler(cronExpr, cfg.Location(), func(ctx context.Context) error {
			_, err := digest(ctx, cfg, semester, sender, time.Now().In(cfg.Location()))
			return err
		}, logger, cfg.Secrets()...)
		if err != nil {
			return &usageError{msg: err.Error()}
		}
		return sched.Start(ctx)
	}

	date, err := targetDate(dateFlag, cfg.Location())
	if err != nil {
		return err
	}
	_, err = digest(ctx, cfg, semester, sender, date)
	return err
}

// newSender returns the SMTP sender, or a writer sender for --dry-run
func newSender(cfg *config.Config, out io.Writer) notify.Sender {
	if dryRun {
		logger.Info("Dry run mode: printing email instead of sending")
		return notify.NewWriterSender(cfg.SMTP, out)
	}
	return notify.NewSMTPSender(cfg.SMTP)
}

// targetDate returns today in loc unless raw names a YYYY-MM-DD date
func targetDate(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Now().In(loc), nil
	}
	date, err := time.ParseInLocation(models.DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, &usageError{msg: fmt.Sprintf("invalid --date %q: want YYYY-MM-DD", raw)}
	}
	return date, nil
}

// digest runs one load-resolve-notify pass for date and reports whether an email went out.
// Every pass gets its own run id.
func digest(ctx context.Context, cfg *config.Config, semester schedule.Semester, sender notify.Sender, date time.Time) (bool, error) {
	runID := uuid.New().String()
	log := logger.With("run_id", runID, "date", date.Format(models.DateLayout))
	start := time.Now()

	log.Info("Loading schedule", "file", cfg.Schedule.Path)
	week, err := schedule.NewLoader(cfg.Schedule.Sheet, log).Load(cfg.Schedule.Path)
	if err != nil {
		return false, err
	}

	log.Info("Loading exceptions", "file", cfg.Exceptions)
	set, err := exceptions.NewLoader(cfg.Location(), log).Load(cfg.Exceptions)
	if err != nil {
		return false, err
	}

	today := agenda.NewResolver(set, semester, log).Build(week, date)
	log.Info("Agenda resolved", "weekday", date.Weekday().String(),
		"outcome", today.Outcome, "classes", len(today.Entries), "dropped", today.Dropped)

	renderer, err := notify.NewRenderer(cfg.Subject)
	if err != nil {
		return false, fmt.Errorf("failed to load email template: %w", err)
	}

	sent, err := notify.NewNotifier(renderer, sender, cfg.SendOnEmpty, runID, log).Notify(ctx, today)
	if err != nil {
		return false, err
	}

	log.Info("Run complete", "sent", sent, "duration", time.Since(start))
	return sent, nil
}
