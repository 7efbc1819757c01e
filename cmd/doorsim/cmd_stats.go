package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/doorsim/internal/eventlog"
	"github.com/nvandessel/doorsim/internal/pathutil"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [file.csv]",
		Short: "Check an event log and rebuild its distribution",
		Long: `Parse an event log, check its invariants (contiguous sequence ids,
non-decreasing clock, grid bounds, strict toggling) and rebuild the
events-per-second histogram.

Empty seconds after the last event leave no trace in the log, so they are
not counted.

Examples:
  doorsim stats                  # the configured output (mock_data.csv)
  doorsim stats run.csv --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			file := cfg.Synthesis.Output
			if len(args) == 1 {
				file = args[0]
			}
			file = pathutil.Resolve(root, file)

			events, err := eventlog.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read event log: %w", err)
			}
			sum := eventlog.Analyze(events, eventlog.Bounds{
				MaxFloors: cfg.Grid.Floors,
				MaxDoors:  cfg.Grid.Doors,
			})

			out := cmd.OutOrStdout()
			if jsonOut {
				result := map[string]any{
					"file":         file,
					"events":       sum.Events,
					"seconds":      sum.Seconds,
					"open_sensors": sum.OpenSensors,
					"histogram":    sum.Histogram,
					"problems":     sum.Problems,
					"ok":           sum.OK(),
				}
				if sum.Events > 0 {
					result["first"] = sum.First.String()
					result["last"] = sum.Last.String()
				}
				return json.NewEncoder(out).Encode(result)
			}

			fmt.Fprintf(out, "Event log: %s\n", file)
			fmt.Fprintf(out, "  events:       %d\n", sum.Events)
			fmt.Fprintf(out, "  seconds:      %d\n", sum.Seconds)
			if sum.Events > 0 {
				fmt.Fprintf(out, "  first:        %s\n", sum.First)
				fmt.Fprintf(out, "  last:         %s\n", sum.Last)
			}
			fmt.Fprintf(out, "  open sensors: %d\n", sum.OpenSensors)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Events/second  Seconds")
			for k, c := range sum.Histogram {
				if c > 0 {
					fmt.Fprintf(out, "  %12d  %d\n", k, c)
				}
			}

			if !sum.OK() {
				fmt.Fprintln(out)
				fmt.Fprintf(out, "%d problem(s):\n", len(sum.Problems))
				for _, p := range sum.Problems {
					fmt.Fprintf(out, "  %s\n", p)
				}
				return fmt.Errorf("event log %s violates %d invariant(s)", file, len(sum.Problems))
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "No problems found.")
			return nil
		},
	}

	return cmd
}
