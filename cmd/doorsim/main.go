package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/nvandessel/doorsim/internal/config"
	"github.com/nvandessel/doorsim/internal/logging"
	"github.com/nvandessel/doorsim/internal/store"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

// exitError ends the process with code. Without err nothing is printed;
// the command has already reported on stdout.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) Unwrap() error {
	return e.err
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "doorsim",
		Short: "Door sensor event log synthesizer and verifier",
		Long: `doorsim synthesizes realistic, reproducible door/floor sensor event logs
for testing a text-extraction pipeline, and verifies that the pipeline's
output reproduces the original log line for line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.doorsim/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: warn, info, debug, trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newGenerateCmd(),
		newVerifyCmd(),
		newStatsCmd(),
		newDistributionCmd(),
		newHistoryCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			if exitErr.err != nil {
				fmt.Fprintln(os.Stderr, "Error:", exitErr.err)
			}
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadSettings loads the file named by --config (or the default config
// file), then applies --log-level.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// openLedger opens the project's run ledger. With history disabled the
// ledger lives in memory and vanishes on Close.
func openLedger(root string, cfg *config.Config) (store.Ledger, error) {
	if !cfg.History.Enabled {
		return store.NewInMemoryLedger(), nil
	}
	ledger, err := store.NewSQLiteLedger(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open run ledger: %w", err)
	}
	return ledger, nil
}
