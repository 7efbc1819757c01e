package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/doorsim/internal/distribution"
	"github.com/nvandessel/doorsim/internal/synth"
	"github.com/nvandessel/doorsim/internal/verify"
)

// isolateHome sets HOME to a temp directory to avoid touching real ~/.doorsim/
// MUST be called for any test that loads config or opens the ledger
func isolateHome(t *testing.T, tmpDir string) {
	t.Helper()
	tmpHome := filepath.Join(tmpDir, "home")
	if err := os.MkdirAll(tmpHome, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)
}

// runCmd executes the root command with args and returns its stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := newRootCmd()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func setupProject(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	root := filepath.Join(tmpDir, "project")
	if err := os.MkdirAll(root, 0700); err != nil {
		t.Fatal(err)
	}
	data := "name: small\ncounts:\n  0: 2\n  1: 4\n  3: 2\n"
	if err := os.WriteFile(filepath.Join(root, "small.yaml"), []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestRootCmd_Subcommands(t *testing.T) {
	want := []string{"version", "generate", "verify", "stats", "distribution", "history", "config", "mcp-server"}
	rootCmd := newRootCmd()
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestVersionCmd_JSON(t *testing.T) {
	out, err := runCmd(t, "version", "--json")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got["version"] != version {
		t.Errorf("version = %q, want %q", got["version"], version)
	}
}

func TestGenerateCmd(t *testing.T) {
	root := setupProject(t)

	out, err := runCmd(t, "generate", "--root", root, "--distribution", "small.yaml", "--seed", "5")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !strings.Contains(out, "Wrote 10 events over 8 seconds") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "seed:         5") {
		t.Errorf("output does not report the seed:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(root, "mock_data.csv")); err != nil {
		t.Errorf("mock_data.csv not written: %v", err)
	}
}

func TestGenerateCmd_SameSeedSameLog(t *testing.T) {
	root := setupProject(t)

	for _, name := range []string{"a.csv", "b.csv"} {
		if _, err := runCmd(t, "generate", "--root", root, "-o", name, "--seed", "99", "--no-history"); err != nil {
			t.Fatalf("generate %s failed: %v", name, err)
		}
	}
	a, err := os.ReadFile(filepath.Join(root, "a.csv"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(root, "b.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("logs generated with the same seed differ")
	}
}

func TestGenerateCmd_EmptyGrid(t *testing.T) {
	root := setupProject(t)

	_, err := runCmd(t, "generate", "--root", root, "--doors", "0")
	if !errors.Is(err, synth.ErrEmptyGrid) {
		t.Errorf("error = %v, want ErrEmptyGrid", err)
	}
	if _, statErr := os.Stat(filepath.Join(root, "mock_data.csv")); !os.IsNotExist(statErr) {
		t.Errorf("output written despite error (stat err = %v)", statErr)
	}
}

func TestGenerateCmd_JSON(t *testing.T) {
	root := setupProject(t)

	out, err := runCmd(t, "generate", "--root", root, "--distribution", "small.yaml", "--seed", "5", "--json")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	var got struct {
		RunID string      `json:"run_id"`
		Stats synth.Stats `json:"stats"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got.RunID == "" {
		t.Error("run_id is empty")
	}
	if got.Stats.Events != 10 || got.Stats.Seed != 5 {
		t.Errorf("stats = %+v, want 10 events with seed 5", got.Stats)
	}
}

func TestVerifyCmd_ExitCodes(t *testing.T) {
	root := setupProject(t)
	if err := os.WriteFile(filepath.Join(root, "mock.csv"), []byte("a\nb\n"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		extracted string
		content   string
		code      int
		want      string
	}{
		{"match", "match.csv", "a\nb\n", verify.ExitMatch, "matches the original OK"},
		{"content", "content.csv", "a\nx\nc\n", verify.ExitContentMismatch, "at line: 2"},
		{"length", "length.csv", "a\n", verify.ExitLengthMismatch, "is shorter than"},
		{"missing", "missing.csv", "", verify.ExitCandidateMissing, "Error:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.content != "" {
				if err := os.WriteFile(filepath.Join(root, tt.extracted), []byte(tt.content), 0600); err != nil {
					t.Fatal(err)
				}
			}

			out, err := runCmd(t, "verify", "--root", root, "-m", "mock.csv", "-e", tt.extracted)
			code := verify.ExitMatch
			var exitErr *exitError
			if errors.As(err, &exitErr) {
				code = exitErr.code
			} else if err != nil {
				t.Fatalf("verify failed: %v", err)
			}
			if code != tt.code {
				t.Errorf("exit code = %d, want %d", code, tt.code)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestVerifyCmd_ReferenceCheckedFirst(t *testing.T) {
	root := setupProject(t)

	out, err := runCmd(t, "verify", "--root", root, "-m", "nope.csv", "-e", "gone.csv", "--json")
	var exitErr *exitError
	if !errors.As(err, &exitErr) || exitErr.code != verify.ExitReferenceMissing {
		t.Fatalf("error = %v, want exit status %d", err, verify.ExitReferenceMissing)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got["outcome"] != "reference_missing" {
		t.Errorf("outcome = %v, want reference_missing", got["outcome"])
	}
}

func TestVerifyCmd_BadConfigIsNotAMismatch(t *testing.T) {
	root := setupProject(t)
	if err := os.WriteFile(filepath.Join(root, "mock.csv"), []byte("a\n"), 0600); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(root, "bad.yaml")
	if err := os.WriteFile(bad, []byte("grid: [unclosed\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := runCmd(t, "verify", "--root", root, "--config", bad, "-m", "mock.csv", "-e", "mock.csv")
	var exitErr *exitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want an exit status", err)
	}
	if exitErr.code != verify.ExitFailure {
		t.Errorf("exit code = %d, want %d", exitErr.code, verify.ExitFailure)
	}
	if !strings.Contains(err.Error(), "failed to load config") {
		t.Errorf("error = %q, want the config failure", err)
	}
}

func TestStatsCmd(t *testing.T) {
	root := setupProject(t)
	if _, err := runCmd(t, "generate", "--root", root, "--distribution", "small.yaml", "--seed", "11"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	out, err := runCmd(t, "stats", "--root", root, "--json")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got["ok"] != true {
		t.Errorf("ok = %v, want true (problems: %v)", got["ok"], got["problems"])
	}
	if got["events"] != float64(10) {
		t.Errorf("events = %v, want 10", got["events"])
	}
}

func TestStatsCmd_ReportsProblems(t *testing.T) {
	root := setupProject(t)
	log := "00:00:00,1,1,1,1\n00:00:00,3,1,2,1\n"
	if err := os.WriteFile(filepath.Join(root, "gap.csv"), []byte(log), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "stats", "gap.csv", "--root", root)
	if err == nil {
		t.Fatal("expected an error for a log with a sequence gap")
	}
	if !strings.Contains(out, "problem(s)") {
		t.Errorf("output does not list problems:\n%s", out)
	}
}

func TestDistributionCmd_ExportRoundTrip(t *testing.T) {
	root := setupProject(t)

	if _, err := runCmd(t, "distribution", "export", "--root", root, "-o", "default.yaml"); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	table, err := distribution.LoadFile(filepath.Join(root, "default.yaml"))
	if err != nil {
		t.Fatalf("exported table does not load: %v", err)
	}
	if table.Hash() != distribution.Default().Hash() {
		t.Error("exported table differs from the built-in table")
	}

	out, err := runCmd(t, "distribution", "show", "--root", root, "--file", "default.yaml")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, "seconds: 10822") || !strings.Contains(out, "events:  67260") {
		t.Errorf("unexpected totals:\n%s", out)
	}
}

func TestHistoryCmd(t *testing.T) {
	root := setupProject(t)
	for _, seed := range []string{"1", "2"} {
		if _, err := runCmd(t, "generate", "--root", root, "--distribution", "small.yaml", "--seed", seed); err != nil {
			t.Fatalf("generate failed: %v", err)
		}
	}
	if _, err := runCmd(t, "generate", "--root", root, "--distribution", "small.yaml", "--no-history"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	out, err := runCmd(t, "history", "--root", root, "--json")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var got struct {
		Runs []struct {
			Seed uint64 `json:"seed"`
		} `json:"runs"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if len(got.Runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(got.Runs))
	}
	if got.Runs[0].Seed != 2 {
		t.Errorf("newest run seed = %d, want 2", got.Runs[0].Seed)
	}

	if _, err := runCmd(t, "history", "clear", "--root", root); err == nil {
		t.Error("clear without --force should fail")
	}
	if _, err := runCmd(t, "history", "clear", "--root", root, "--force"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	out, err = runCmd(t, "history", "export", "--root", root)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if out != "" {
		t.Errorf("export after clear = %q, want empty", out)
	}
}

func TestConfigCmd_SetGet(t *testing.T) {
	root := setupProject(t)
	cfgPath := filepath.Join(root, "doorsim.yaml")

	if _, err := runCmd(t, "config", "set", "grid.doors", "4", "--config", cfgPath); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	out, err := runCmd(t, "config", "get", "grid.doors", "--config", cfgPath)
	if err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	if strings.TrimSpace(out) != "grid.doors = 4" {
		t.Errorf("config get = %q, want grid.doors = 4", out)
	}

	if _, err := runCmd(t, "config", "set", "grid.doors", "0", "--config", cfgPath); err == nil {
		t.Error("expected error for grid.doors = 0")
	}
	if _, err := runCmd(t, "config", "get", "no.such.key", "--config", cfgPath); err == nil {
		t.Error("expected error for an unknown key")
	}
}

func TestConfigCmd_GridAppliesToGenerate(t *testing.T) {
	root := setupProject(t)
	cfgPath := filepath.Join(root, "doorsim.yaml")
	if _, err := runCmd(t, "config", "set", "grid.doors", "2", "--config", cfgPath); err != nil {
		t.Fatal(err)
	}
	if _, err := runCmd(t, "config", "set", "grid.floors", "1", "--config", cfgPath); err != nil {
		t.Fatal(err)
	}

	if _, err := runCmd(t, "generate", "--root", root, "--config", cfgPath, "--distribution", "small.yaml", "--seed", "3"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// stats checks the bounds from the same config.
	if _, err := runCmd(t, "stats", "--root", root, "--config", cfgPath); err != nil {
		t.Errorf("stats with a 1x2 grid failed: %v", err)
	}
}
