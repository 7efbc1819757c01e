package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nvandessel/doorsim/internal/store"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generate runs and verifications",
		Long: `Show the run ledger kept in .doorsim/doorsim.db under the project root.

Examples:
  doorsim history                # last 10 of each
  doorsim history --limit 0      # everything
  doorsim history export > ledger.jsonl
  doorsim history clear --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			ledger, err := openHistory(cmd, root)
			if err != nil {
				return err
			}
			defer ledger.Close()

			ctx := cmd.Context()
			runs, err := ledger.Runs(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			verifications, err := ledger.Verifications(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to list verifications: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if runs == nil {
					runs = []store.Run{}
				}
				if verifications == nil {
					verifications = []store.Verification{}
				}
				return json.NewEncoder(out).Encode(map[string]any{
					"runs":          runs,
					"verifications": verifications,
				})
			}

			fmt.Fprintf(out, "Runs (%d):\n", len(runs))
			if len(runs) == 0 {
				fmt.Fprintln(out, "  (none)")
			}
			for _, r := range runs {
				fmt.Fprintf(out, "  %s  %s  seed=%d  %d events / %d s  grid=%dx%d  scans=%d  %s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"), shortID(r.ID), r.Seed,
					r.Events, r.Seconds, r.Floors, r.Doors, r.RepairScans, r.Output)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Verifications (%d):\n", len(verifications))
			if len(verifications) == 0 {
				fmt.Fprintln(out, "  (none)")
			}
			for _, v := range verifications {
				line := ""
				if v.Line > 0 {
					line = fmt.Sprintf(" at line %d", v.Line)
				}
				fmt.Fprintf(out, "  %s  %s  %s%s (exit %d)  %s\n",
					v.CreatedAt.Local().Format("2006-01-02 15:04:05"), shortID(v.ID), v.Outcome, line, v.ExitCode, v.Candidate)
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 10, "Maximum entries of each kind (0 for all)")

	cmd.AddCommand(
		newHistoryExportCmd(),
		newHistoryClearCmd(),
	)

	return cmd
}

// openHistory opens the SQLite ledger, refusing when history is disabled.
func openHistory(cmd *cobra.Command, root string) (*store.SQLiteLedger, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("history is disabled (set history.enabled to true)")
	}
	ledger, err := store.NewSQLiteLedger(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open run ledger: %w", err)
	}
	return ledger, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newHistoryExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger as JSONL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			output, _ := cmd.Flags().GetString("output")

			ledger, err := openHistory(cmd, root)
			if err != nil {
				return err
			}
			defer ledger.Close()

			if output == "" {
				_, err := store.ExportJSONL(cmd.Context(), ledger, cmd.OutOrStdout())
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			n, err := store.ExportJSONL(cmd.Context(), ledger, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d records to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newHistoryClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs and verifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				return fmt.Errorf("refusing to clear history without --force")
			}

			ledger, err := openHistory(cmd, root)
			if err != nil {
				return err
			}
			defer ledger.Close()

			if err := ledger.Reset(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared history in %s\n", ledger.Path())
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Confirm deletion")
	return cmd
}
