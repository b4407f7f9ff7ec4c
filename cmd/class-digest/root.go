package main

import (
	"fmt"

	"github.com/amariwan/class-digest/internal/util"
	"github.com/spf13/cobra"
)

// usageError signals bad flags or configuration which maps to exit code 64
type usageError struct {
	msg string
}

func (u *usageError) Error() string { return u.msg }

// rootCmd and flags live here. run (in main.go) is used as RunE.
var rootCmd *cobra.Command

func init() {
	rootCmd = &cobra.Command{
		Use:   "class-digest",
		Short: "Email today's class schedule",
		Long: `class-digest reads a weekly class schedule (CSV or XLSX), applies the
days off and partial cancellations from an exceptions file, and emails the
resulting agenda for today.

Run it once a day from cron, or pass --cron to keep it running.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: persistentPreRunE,
		RunE:              run,
	}

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	// Inputs
	rootCmd.Flags().StringVar(&configFile, "config", "class-digest.yaml", "Config file (YAML or JSON, optional unless given)")
	rootCmd.Flags().StringVar(&scheduleFile, "schedule", "", "Schedule file (.csv or .xlsx), overrides schedule.path")
	rootCmd.Flags().StringVar(&exceptionsFile, "exceptions", "", "Exceptions file (.json or .yaml), overrides exceptions")
	rootCmd.Flags().StringVar(&dateFlag, "date", "", "Target date YYYY-MM-DD (default: today)")

	// Delivery
	rootCmd.Flags().BoolVar(&sendOnEmpty, "send-on-empty", false, "Send a 'no classes' email when the agenda is empty")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the email to stdout instead of sending it")
	rootCmd.Flags().StringVar(&cronExpr, "cron", "", "Stay running and send on this cron expression (e.g. '0 7 * * 1-5')")

	// Logging
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Optional log file path (also mirrored to stderr)")
}

// persistentPreRunE initializes the logger and rejects conflicting flags
func persistentPreRunE(cmd *cobra.Command, args []string) error {
	lg, err := util.InitLogger(logLevel, logFile)
	if err != nil {
		// generic error, exit code 1
		return fmt.Errorf("logger init failed: %w", err)
	}
	logger = lg

	if cronExpr != "" && dateFlag != "" {
		err := &usageError{msg: "--date cannot be combined with --cron"}
		logger.Error("Invalid flags", "error", err, "exit_code", exitCode(err))
		return err
	}
	return nil
}
