package mcp

import (
	"github.com/nvandessel/doorsim/internal/store"
	"github.com/nvandessel/doorsim/internal/synth"
)

// GenerateInput defines the input for the doorsim_generate tool.
type GenerateInput struct {
	Output         string `json:"output,omitempty" jsonschema:"Path of the CSV to write, relative to the project root (default from config: mock_data.csv)"`
	Seed           uint64 `json:"seed,omitempty" jsonschema:"Random seed for a reproducible log; 0 picks one and reports it"`
	Doors          int    `json:"doors,omitempty" jsonschema:"Doors per floor (default 20)"`
	Floors         int    `json:"floors,omitempty" jsonschema:"Number of floors (default 10)"`
	RetryThreshold *int   `json:"retry_threshold,omitempty" jsonschema:"Consecutive collisions tolerated before a linear repair scan (default 1000)"`
	Distribution   string `json:"distribution,omitempty" jsonschema:"Optional YAML distribution table; empty uses the built-in table"`
}

// GenerateOutput defines the output for the doorsim_generate tool.
type GenerateOutput struct {
	RunID            string      `json:"run_id" jsonschema:"Ledger ID of this run"`
	Output           string      `json:"output" jsonschema:"Path of the written CSV"`
	DistributionHash string      `json:"distribution_hash" jsonschema:"Fingerprint of the distribution table used"`
	Stats            synth.Stats `json:"stats" jsonschema:"Run statistics including the effective seed"`
	Message          string      `json:"message" jsonschema:"Human-readable result message"`
}

// VerifyInput defines the input for the doorsim_verify tool.
type VerifyInput struct {
	Mock      string `json:"mock,omitempty" jsonschema:"Reference (original mock data) CSV path"`
	Extracted string `json:"extracted,omitempty" jsonschema:"Candidate (extracted text) CSV path"`
}

// VerifyOutput defines the output for the doorsim_verify tool.
type VerifyOutput struct {
	Outcome        string `json:"outcome" jsonschema:"match, content_mismatch, length_mismatch, candidate_missing or reference_missing"`
	ExitCode       int    `json:"exit_code" jsonschema:"Exit status the verify command would return (0-4)"`
	Line           int    `json:"line,omitempty" jsonschema:"1-based number of the first differing line"`
	ReferenceLines int    `json:"reference_lines" jsonschema:"Line count of the reference"`
	CandidateLines int    `json:"candidate_lines" jsonschema:"Line count of the candidate"`
	Reference      string `json:"reference,omitempty" jsonschema:"Reference line at the first difference (sanitized)"`
	Candidate      string `json:"candidate,omitempty" jsonschema:"Candidate line at the first difference (sanitized)"`
	Message        string `json:"message" jsonschema:"Human-readable verdict"`
}

// StatsInput defines the input for the doorsim_stats tool.
type StatsInput struct {
	File string `json:"file" jsonschema:"Event log CSV to analyze"`
}

// StatsOutput defines the output for the doorsim_stats tool.
type StatsOutput struct {
	Events      int      `json:"events" jsonschema:"Number of events"`
	Seconds     int      `json:"seconds" jsonschema:"Seconds from 00:00:00 to the last event, inclusive"`
	First       string   `json:"first,omitempty" jsonschema:"Timestamp of the first event"`
	Last        string   `json:"last,omitempty" jsonschema:"Timestamp of the last event"`
	OpenSensors int      `json:"open_sensors" jsonschema:"Sensors whose last state is 1"`
	Histogram   []int    `json:"histogram" jsonschema:"Seconds observed with k events, indexed by k"`
	Problems    []string `json:"problems,omitempty" jsonschema:"Invariant violations found"`
	OK          bool     `json:"ok" jsonschema:"True when no invariant is violated"`
}

// HistoryInput defines the input for the doorsim_history tool.
type HistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum entries of each kind (default 10)"`
}

// HistoryOutput defines the output for the doorsim_history tool.
type HistoryOutput struct {
	Runs          []store.Run          `json:"runs" jsonschema:"Recent generate runs, newest first"`
	Verifications []store.Verification `json:"verifications" jsonschema:"Recent verifications, newest first"`
}
