package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/doorsim/internal/distribution"
	"github.com/nvandessel/doorsim/internal/eventlog"
	"github.com/nvandessel/doorsim/internal/pathutil"
	"github.com/nvandessel/doorsim/internal/ratelimit"
	"github.com/nvandessel/doorsim/internal/sanitize"
	"github.com/nvandessel/doorsim/internal/store"
	"github.com/nvandessel/doorsim/internal/synth"
	"github.com/nvandessel/doorsim/internal/verify"
)

// DistributionResourceURI serves the built-in distribution table as YAML.
const DistributionResourceURI = "doorsim://distribution/default"

const defaultHistoryLimit = 10

// registerTools registers all doorsim MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "doorsim_generate",
		Description: "Generate a synthetic door/floor sensor event log (CSV) from an events-per-second distribution",
	}, s.handleGenerate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "doorsim_verify",
		Description: "Compare an extracted CSV against the original mock data line by line",
	}, s.handleVerify)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "doorsim_stats",
		Description: "Summarize an event log and check it for ordering and toggle violations",
	}, s.handleStats)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "doorsim_history",
		Description: "List recent generate runs and verifications",
	}, s.handleHistory)
}

// registerResources registers MCP resources.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         DistributionResourceURI,
		Name:        "doorsim-default-distribution",
		Description: "The built-in events-per-second distribution, as a YAML table of event count to seconds.",
		MIMEType:    "application/yaml",
	}, s.handleDistributionResource)
}

func (s *Server) handleDistributionResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	data, err := distribution.Marshal("default", distribution.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to encode distribution: %w", err)
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{{
			URI:      DistributionResourceURI,
			MIMEType: "application/yaml",
			Text:     string(data),
		}},
	}, nil
}

// resolvePath joins path onto the project root and confines it to the
// pipeline directories.
func (s *Server) resolvePath(path string) (string, error) {
	resolved := pathutil.Resolve(s.root, path)
	if err := pathutil.ValidatePath(resolved, s.allowedDirs); err != nil {
		return "", err
	}
	return resolved, nil
}

func (s *Server) handleGenerate(ctx context.Context, req *sdk.CallToolRequest, args GenerateInput) (_ *sdk.CallToolResult, _ GenerateOutput, retErr error) {
	start := time.Now()
	defer func() {
		params := map[string]any{
			"output": args.Output, "distribution": args.Distribution,
		}
		if args.Seed != 0 {
			params["seed"] = args.Seed
		}
		if args.Doors != 0 {
			params["doors"] = args.Doors
		}
		if args.Floors != 0 {
			params["floors"] = args.Floors
		}
		if args.RetryThreshold != nil {
			params["retry_threshold"] = *args.RetryThreshold
		}
		s.auditTool("doorsim_generate", start, retErr, sanitizeToolParams(params))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "doorsim_generate"); err != nil {
		return nil, GenerateOutput{}, err
	}

	opts := synth.Options{
		MaxDoors:       s.settings.Grid.Doors,
		MaxFloors:      s.settings.Grid.Floors,
		RetryThreshold: s.settings.Synthesis.RetryThreshold,
		Seed:           s.settings.Synthesis.Seed,
		Logger:         s.logger,
		Trace:          s.trace,
	}
	if args.Doors != 0 {
		opts.MaxDoors = args.Doors
	}
	if args.Floors != 0 {
		opts.MaxFloors = args.Floors
	}
	if args.RetryThreshold != nil {
		opts.RetryThreshold = *args.RetryThreshold
	}
	if args.Seed != 0 {
		opts.Seed = args.Seed
	}

	output := args.Output
	if output == "" {
		output = s.settings.Synthesis.Output
	}
	output, err := s.resolvePath(output)
	if err != nil {
		return nil, GenerateOutput{}, fmt.Errorf("invalid output path: %w", err)
	}

	distPath := args.Distribution
	if distPath == "" {
		distPath = s.settings.Synthesis.Distribution
	}
	if distPath != "" {
		if distPath, err = s.resolvePath(distPath); err != nil {
			return nil, GenerateOutput{}, fmt.Errorf("invalid distribution path: %w", err)
		}
	}
	table, err := distribution.Load(distPath)
	if err != nil {
		return nil, GenerateOutput{}, fmt.Errorf("failed to load distribution: %w", err)
	}

	stats, err := synth.WriteFile(output, table, opts)
	if err != nil {
		return nil, GenerateOutput{}, fmt.Errorf("generation failed: %w", err)
	}

	hash := table.Hash()
	runID, err := s.ledger.RecordRun(ctx, store.Run{
		Output:           output,
		Seed:             stats.Seed,
		Doors:            opts.MaxDoors,
		Floors:           opts.MaxFloors,
		RetryThreshold:   opts.RetryThreshold,
		DistributionHash: hash,
		Seconds:          stats.Seconds,
		Events:           stats.Events,
		Collisions:       stats.Collisions,
		RepairScans:      stats.RepairScans,
		Wraps:            stats.Wraps,
		DurationMS:       time.Since(start).Milliseconds(),
	})
	if err != nil {
		// The CSV is already written; a ledger failure only loses history.
		s.logger.Warn("failed to record run", "error", err)
	}

	return nil, GenerateOutput{
		RunID:            runID,
		Output:           output,
		DistributionHash: hash,
		Stats:            stats,
		Message: fmt.Sprintf("Wrote %d events over %d seconds to %s (seed %d)",
			stats.Events, stats.Seconds, pathutil.RedactPath(output), stats.Seed),
	}, nil
}

func (s *Server) handleVerify(ctx context.Context, req *sdk.CallToolRequest, args VerifyInput) (_ *sdk.CallToolResult, _ VerifyOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("doorsim_verify", start, retErr, sanitizeToolParams(map[string]any{
			"mock": args.Mock, "extracted": args.Extracted,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "doorsim_verify"); err != nil {
		return nil, VerifyOutput{}, err
	}

	refPath := args.Mock
	if refPath == "" {
		refPath = s.settings.Verify.Mock
	}
	candPath := args.Extracted
	if candPath == "" {
		candPath = s.settings.Verify.Extracted
	}
	refPath, err := s.resolvePath(refPath)
	if err != nil {
		return nil, VerifyOutput{}, fmt.Errorf("invalid mock path: %w", err)
	}
	candPath, err = s.resolvePath(candPath)
	if err != nil {
		return nil, VerifyOutput{}, fmt.Errorf("invalid extracted path: %w", err)
	}

	res, verr := verify.Files(refPath, candPath)
	var rerr *verify.ResourceError
	if verr != nil && !errors.As(verr, &rerr) {
		return nil, VerifyOutput{}, fmt.Errorf("verification failed: %w", verr)
	}

	out := VerifyOutput{
		Outcome:  verify.OutcomeName(res, verr),
		ExitCode: verify.ExitCode(res, verr),
	}
	if rerr != nil {
		out.Message = fmt.Sprintf("Cannot open %s file %s", rerr.Role, pathutil.RedactPath(rerr.Path))
	} else {
		out.Line = res.Line
		out.ReferenceLines = res.ReferenceLines
		out.CandidateLines = res.CandidateLines
		out.Reference = sanitize.Line(res.Reference)
		out.Candidate = sanitize.Line(res.Candidate)
		out.Message = verdict(res)
	}

	if _, err := s.ledger.RecordVerification(ctx, store.Verification{
		Reference:      refPath,
		Candidate:      candPath,
		Outcome:        out.Outcome,
		ExitCode:       out.ExitCode,
		Line:           out.Line,
		ReferenceLines: out.ReferenceLines,
		CandidateLines: out.CandidateLines,
	}); err != nil {
		s.logger.Warn("failed to record verification", "error", err)
	}
	s.trace.Log(map[string]any{
		"event":     "verification",
		"outcome":   out.Outcome,
		"exit_code": out.ExitCode,
		"line":      out.Line,
	})

	return nil, out, nil
}

func verdict(res *verify.Result) string {
	switch res.Outcome {
	case verify.OutcomeMatch:
		return "Extracted text matches the original"
	case verify.OutcomeContentMismatch:
		return fmt.Sprintf("Extracted text differs from the original at line %d", res.Line)
	default:
		return fmt.Sprintf("Extracted text is %s than the original (%d vs %d lines)",
			res.Length, res.CandidateLines, res.ReferenceLines)
	}
}

func (s *Server) handleStats(ctx context.Context, req *sdk.CallToolRequest, args StatsInput) (_ *sdk.CallToolResult, _ StatsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("doorsim_stats", start, retErr, sanitizeToolParams(map[string]any{
			"file": args.File,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "doorsim_stats"); err != nil {
		return nil, StatsOutput{}, err
	}

	file := args.File
	if file == "" {
		file = s.settings.Synthesis.Output
	}
	path, err := s.resolvePath(file)
	if err != nil {
		return nil, StatsOutput{}, fmt.Errorf("invalid file path: %w", err)
	}

	events, err := eventlog.ReadFile(path)
	if err != nil {
		return nil, StatsOutput{}, fmt.Errorf("failed to read event log: %w", err)
	}
	sum := eventlog.Analyze(events, eventlog.Bounds{
		MaxFloors: s.settings.Grid.Floors,
		MaxDoors:  s.settings.Grid.Doors,
	})

	out := StatsOutput{
		Events:      sum.Events,
		Seconds:     sum.Seconds,
		OpenSensors: sum.OpenSensors,
		Histogram:   []int(sum.Histogram),
		OK:          sum.OK(),
	}
	if out.Histogram == nil {
		out.Histogram = []int{}
	}
	if sum.Events > 0 {
		out.First = sum.First.String()
		out.Last = sum.Last.String()
	}
	for _, p := range sum.Problems {
		out.Problems = append(out.Problems, p.String())
	}
	return nil, out, nil
}

func (s *Server) handleHistory(ctx context.Context, req *sdk.CallToolRequest, args HistoryInput) (_ *sdk.CallToolResult, _ HistoryOutput, retErr error) {
	start := time.Now()
	defer func() {
		params := map[string]any{}
		if args.Limit != 0 {
			params["limit"] = args.Limit
		}
		s.auditTool("doorsim_history", start, retErr, sanitizeToolParams(params))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "doorsim_history"); err != nil {
		return nil, HistoryOutput{}, err
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	runs, err := s.ledger.Runs(ctx, limit)
	if err != nil {
		return nil, HistoryOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}
	verifications, err := s.ledger.Verifications(ctx, limit)
	if err != nil {
		return nil, HistoryOutput{}, fmt.Errorf("failed to list verifications: %w", err)
	}
	if runs == nil {
		runs = []store.Run{}
	}
	if verifications == nil {
		verifications = []store.Verification{}
	}
	return nil, HistoryOutput{Runs: runs, Verifications: verifications}, nil
}
