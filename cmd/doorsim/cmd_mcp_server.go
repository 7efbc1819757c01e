package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/doorsim/internal/logging"
	"github.com/nvandessel/doorsim/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run an MCP server on stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing the tools
doorsim_generate, doorsim_verify, doorsim_stats and doorsim_history, and
the resource doorsim://distribution/default.

Tool paths resolve against --root and must stay inside the root or its
parent directory, which holds the sibling pipeline stages. Logs go to
stderr; tool calls are audited in .doorsim/audit.jsonl.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			absRoot, err := filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("failed to resolve root: %w", err)
			}

			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			// stdout carries the protocol.
			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "doorsim",
				Version:  version,
				Root:     absRoot,
				Settings: cfg,
				Logger:   logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			return server.Run(cmd.Context())
		},
	}
}
