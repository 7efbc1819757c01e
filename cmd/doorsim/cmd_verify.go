package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nvandessel/doorsim/internal/logging"
	"github.com/nvandessel/doorsim/internal/pathutil"
	"github.com/nvandessel/doorsim/internal/store"
	"github.com/nvandessel/doorsim/internal/verify"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare extracted text against the original mock data",
		Long: `Compare an extracted CSV against the original mock data line by line,
including line terminators.

Exit status:
  0  extracted text matches the original
  1  a line differs (reported even when the lengths also differ)
  2  same content, but one file is longer
  3  the extracted file is missing or unreadable
  4  the original file is missing or unreadable
  5  no comparison was made (bad configuration or other failure)

Examples:
  doorsim verify
  doorsim verify -m mock_data.csv -e extracted_text.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadSettings(cmd)
			if err != nil {
				return &exitError{code: verify.ExitFailure, err: err}
			}
			logger := newLogger(cmd, cfg)

			refPath := cfg.Verify.Mock
			if cmd.Flags().Changed("mock") {
				refPath, _ = cmd.Flags().GetString("mock")
			}
			candPath := cfg.Verify.Extracted
			if cmd.Flags().Changed("extracted") {
				candPath, _ = cmd.Flags().GetString("extracted")
			}
			refPath = pathutil.Resolve(root, refPath)
			candPath = pathutil.Resolve(root, candPath)

			res, verr := verify.Files(refPath, candPath)
			var rerr *verify.ResourceError
			if verr != nil && !errors.As(verr, &rerr) {
				return &exitError{code: verify.ExitFailure, err: fmt.Errorf("verification failed: %w", verr)}
			}
			outcome := verify.OutcomeName(res, verr)
			code := verify.ExitCode(res, verr)
			logger.Debug("verification finished", "outcome", outcome, "exit_code", code)

			record := store.Verification{
				Reference: refPath,
				Candidate: candPath,
				Outcome:   outcome,
				ExitCode:  code,
			}
			if res != nil {
				record.Line = res.Line
				record.ReferenceLines = res.ReferenceLines
				record.CandidateLines = res.CandidateLines
			}
			if ledger, err := openLedger(root, cfg); err != nil {
				logger.Warn("verification not recorded", "error", err)
			} else {
				if _, err := ledger.RecordVerification(cmd.Context(), record); err != nil {
					logger.Warn("verification not recorded", "error", err)
				}
				ledger.Close()
			}

			trace := logging.NewTraceLogger(store.LocalPath(root), cfg.Logging.Level)
			trace.Log(map[string]any{
				"event":     "verification",
				"outcome":   outcome,
				"exit_code": code,
				"line":      record.Line,
			})
			trace.Close()

			out := cmd.OutOrStdout()
			switch {
			case jsonOut:
				result := map[string]any{
					"outcome":         outcome,
					"exit_code":       code,
					"reference_lines": record.ReferenceLines,
					"candidate_lines": record.CandidateLines,
				}
				if rerr != nil {
					result["error"] = rerr.Error()
				} else if res.Line > 0 {
					result["line"] = res.Line
					result["reference"] = res.Reference
					result["candidate"] = res.Candidate
				}
				if err := json.NewEncoder(out).Encode(result); err != nil {
					return err
				}
			case rerr != nil:
				fmt.Fprintf(out, "Error: %v\n", rerr)
			default:
				res.Report(out, refPath, candPath)
			}

			if code != verify.ExitMatch {
				return &exitError{code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringP("mock", "m", "", "Original mock data CSV (default from config: ../1_mock_data/mock_data.csv)")
	cmd.Flags().StringP("extracted", "e", "", "Extracted text CSV (default from config: ../4_extract_TEXT/extracted_text.csv)")

	return cmd
}
