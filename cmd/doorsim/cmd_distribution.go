package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nvandessel/doorsim/internal/distribution"
	"github.com/nvandessel/doorsim/internal/pathutil"
	"github.com/spf13/cobra"
)

func newDistributionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distribution",
		Short: "Inspect events-per-second distribution tables",
		Long: `Inspect the distribution table that drives generation. Entry k is the
number of seconds in which exactly k events occur.

Examples:
  doorsim distribution show                      # the built-in table
  doorsim distribution show --file busy.yaml
  doorsim distribution export -o default.yaml    # starting point for a custom table`,
	}

	cmd.AddCommand(
		newDistributionShowCmd(),
		newDistributionExportCmd(),
	)

	return cmd
}

// loadTable loads the table named by --file, or the built-in one.
func loadTable(cmd *cobra.Command) (distribution.Table, string, error) {
	root, _ := cmd.Flags().GetString("root")
	file, _ := cmd.Flags().GetString("file")
	name := "default"
	if file != "" {
		name = file
		file = pathutil.Resolve(root, file)
	}
	table, err := distribution.Load(file)
	if err != nil {
		return nil, "", err
	}
	return table, name, nil
}

func newDistributionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a distribution table and its totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			table, name, err := loadTable(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"name":    name,
					"seconds": table.TotalSeconds(),
					"events":  table.TotalEvents(),
					"hash":    table.Hash(),
					"counts":  distribution.FromTable(name, table).Counts,
				})
			}

			fmt.Fprintf(out, "Distribution: %s (%s)\n", name, table.Hash())
			fmt.Fprintf(out, "  seconds: %d\n", table.TotalSeconds())
			fmt.Fprintf(out, "  events:  %d\n", table.TotalEvents())
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Events/second  Seconds")
			for k, c := range table {
				if c > 0 {
					fmt.Fprintf(out, "  %12d  %d\n", k, c)
				}
			}
			return nil
		},
	}
	cmd.Flags().String("file", "", "YAML distribution table (default: built-in table)")
	return cmd
}

func newDistributionExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a distribution table as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			output, _ := cmd.Flags().GetString("output")
			table, name, err := loadTable(cmd)
			if err != nil {
				return err
			}

			data, err := distribution.Marshal(name, table)
			if err != nil {
				return err
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			output = pathutil.Resolve(root, output)
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write distribution: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Distribution written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().String("file", "", "YAML distribution table (default: built-in table)")
	cmd.Flags().StringP("output", "o", "", "Output YAML path (default: stdout)")
	return cmd
}
