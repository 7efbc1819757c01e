package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvandessel/doorsim/internal/config"
	"github.com/nvandessel/doorsim/internal/distribution"
	"github.com/nvandessel/doorsim/internal/logging"
	"github.com/nvandessel/doorsim/internal/pathutil"
	"github.com/nvandessel/doorsim/internal/store"
	"github.com/nvandessel/doorsim/internal/synth"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Synthesize a door sensor event log",
		Long: `Synthesize a CSV log of door/floor sensor flips from an events-per-second
distribution.

Each line is HH:MM:SS,<seq>,<floor>,<door>,<state>. The log is written to a
temp file and renamed into place only when complete.

Examples:
  doorsim generate                          # mock_data.csv from the built-in table
  doorsim generate -o run.csv --seed 42     # reproducible log
  doorsim generate --distribution busy.yaml --doors 8 --floors 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			noHistory, _ := cmd.Flags().GetBool("no-history")

			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)

			opts := synth.Options{
				MaxDoors:       cfg.Grid.Doors,
				MaxFloors:      cfg.Grid.Floors,
				RetryThreshold: cfg.Synthesis.RetryThreshold,
				Seed:           cfg.Synthesis.Seed,
				Logger:         logger,
			}
			if cmd.Flags().Changed("doors") {
				opts.MaxDoors, _ = cmd.Flags().GetInt("doors")
			}
			if cmd.Flags().Changed("floors") {
				opts.MaxFloors, _ = cmd.Flags().GetInt("floors")
			}
			if cmd.Flags().Changed("retry-threshold") {
				opts.RetryThreshold, _ = cmd.Flags().GetInt("retry-threshold")
			}
			if cmd.Flags().Changed("seed") {
				opts.Seed, _ = cmd.Flags().GetUint64("seed")
			}

			output := cfg.Synthesis.Output
			if cmd.Flags().Changed("output") {
				output, _ = cmd.Flags().GetString("output")
			}
			output = pathutil.Resolve(root, output)

			distPath := cfg.Synthesis.Distribution
			if cmd.Flags().Changed("distribution") {
				distPath, _ = cmd.Flags().GetString("distribution")
			}
			distPath = pathutil.Resolve(root, distPath)

			table, err := distribution.Load(distPath)
			if err != nil {
				return fmt.Errorf("failed to load distribution: %w", err)
			}

			trace := logging.NewTraceLogger(store.LocalPath(root), cfg.Logging.Level)
			defer trace.Close()
			opts.Trace = trace

			start := time.Now()
			stats, err := synth.WriteFile(output, table, opts)
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}

			var runID string
			if !noHistory {
				runID = recordRun(cmd.Context(), root, cfg, logger, store.Run{
					Output:           output,
					Seed:             stats.Seed,
					Doors:            opts.MaxDoors,
					Floors:           opts.MaxFloors,
					RetryThreshold:   opts.RetryThreshold,
					DistributionHash: table.Hash(),
					Seconds:          stats.Seconds,
					Events:           stats.Events,
					Collisions:       stats.Collisions,
					RepairScans:      stats.RepairScans,
					Wraps:            stats.Wraps,
					DurationMS:       time.Since(start).Milliseconds(),
				})
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"run_id":            runID,
					"output":            output,
					"distribution_hash": table.Hash(),
					"stats":             stats,
				})
			}

			fmt.Fprintf(out, "Wrote %d events over %d seconds to %s\n", stats.Events, stats.Seconds, output)
			fmt.Fprintf(out, "  seed:         %d\n", stats.Seed)
			fmt.Fprintf(out, "  final clock:  %s\n", stats.FinalClock)
			fmt.Fprintf(out, "  collisions:   %d\n", stats.Collisions)
			fmt.Fprintf(out, "  repair scans: %d\n", stats.RepairScans)
			fmt.Fprintf(out, "  open sensors: %d\n", stats.OpenSensors)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output CSV path (default from config: mock_data.csv)")
	cmd.Flags().Uint64("seed", 0, "Random seed; 0 picks one and reports it")
	cmd.Flags().Int("doors", 0, fmt.Sprintf("Doors per floor (default from config: %d)", synth.DefaultMaxDoors))
	cmd.Flags().Int("floors", 0, fmt.Sprintf("Number of floors (default from config: %d)", synth.DefaultMaxFloors))
	cmd.Flags().Int("retry-threshold", 0, fmt.Sprintf("Consecutive collisions before a linear repair scan (default from config: %d)", synth.DefaultRetryThreshold))
	cmd.Flags().String("distribution", "", "YAML distribution table (default: built-in table)")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the ledger")

	return cmd
}

// recordRun stores run in the project ledger. Failures are logged; the
// log file has already been written.
func recordRun(ctx context.Context, root string, cfg *config.Config, logger *slog.Logger, run store.Run) string {
	ledger, err := openLedger(root, cfg)
	if err != nil {
		logger.Warn("run not recorded", "error", err)
		return ""
	}
	defer ledger.Close()

	id, err := ledger.RecordRun(ctx, run)
	if err != nil {
		logger.Warn("run not recorded", "error", err)
		return ""
	}
	return id
}
