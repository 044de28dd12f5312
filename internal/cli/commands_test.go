package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cutflow/internal/store"
)

const (
	demoAnalysis = "testdata/analysis.yaml"
	demoEvents   = "testdata/events.jsonl"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(diag)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), diag.String(), err
}

// executeRun runs the run command with a fixed run ID sequence.
func executeRun(t *testing.T, format string, ids []string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: format},
		IDGenerator: store.NewFixedGenerator(ids...),
	})
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decode[T any](t *testing.T, raw string) T {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
		Data   T      `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &resp), raw)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func decodeError(t *testing.T, raw string) CLIError {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp), raw)
	require.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	return *resp.Error
}

func TestRun_Text(t *testing.T) {
	out, diag, err := execute(t, "run", demoAnalysis, demoEvents)
	require.NoError(t, err)
	assert.Empty(t, diag, "nothing below warn level is logged by default")
	newGoldie(t).Assert(t, "run", []byte(out))
}

func TestRun_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "run", demoAnalysis, demoEvents)
	require.NoError(t, err)

	res := decode[RunResult](t, out)
	assert.Equal(t, "demo", res.Analysis)
	assert.Equal(t, int64(5), res.Records)
	assert.Empty(t, res.RunID)
	require.Len(t, res.Histograms, 3)

	ptSum := res.Histograms[0]
	assert.Equal(t, "pt_sum", ptSum.Name)
	assert.Equal(t, []float64{1, 1, 2, 0}, ptSum.Contents)
	assert.Equal(t, 1.0, ptSum.Overflow)
	assert.Equal(t, []float64{0, 25, 50, 75, 100}, ptSum.Edges)

	charge := res.Histograms[1]
	assert.Equal(t, []string{"minus", "plus"}, charge.Labels)
	assert.Equal(t, []float64{1, 3}, charge.Contents)
	assert.Equal(t, int64(4), charge.Entries)

	ptEta := res.Histograms[2]
	assert.Equal(t, 3, ptEta.BinningID)
	assert.Equal(t, []float64{1, 0, 1, 2, 0, 0, 0, 1}, ptEta.Contents)
}

func TestRun_SinkCacheSameResult(t *testing.T) {
	plain, _, err := execute(t, "run", demoAnalysis, demoEvents)
	require.NoError(t, err)
	cached, _, err := execute(t, "run", "--sink-cache", demoAnalysis, demoEvents)
	require.NoError(t, err)
	assert.Equal(t, plain, cached)
}

func TestRun_Limit(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "run", "--limit", "2", demoAnalysis, demoEvents)
	require.NoError(t, err)

	res := decode[RunResult](t, out)
	assert.Equal(t, int64(2), res.Records)
	assert.Equal(t, []float64{1, 0, 1, 0}, res.Histograms[0].Contents)
}

func TestRun_CompressedRecords(t *testing.T) {
	plain, _, err := execute(t, "--format", "json", "run", demoAnalysis, demoEvents)
	require.NoError(t, err)

	gz := filepath.Join(t.TempDir(), "events.jsonl.gz")
	writeGzip(t, gz, demoEvents)
	compressed, _, err := execute(t, "--format", "json", "run", demoAnalysis, gz)
	require.NoError(t, err)
	assert.JSONEq(t, plain, compressed)
}

func TestRun_Verbose(t *testing.T) {
	_, diag, err := execute(t, "-v", "run", demoAnalysis, demoEvents)
	require.NoError(t, err)
	assert.Contains(t, diag, "pass finished")
	assert.Contains(t, diag, "wired 3 histograms")
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("vars:\n  - name: x\n    op: add\n    left: y\n    right: x\n"), 0644))
	broken := filepath.Join(dir, "broken.jsonl")
	require.NoError(t, os.WriteFile(broken, []byte("{\"pt1\": 1}\n{\"pt1\": \"high\"}\n"), 0644))

	tests := []struct {
		name     string
		args     []string
		exitCode int
		code     string
	}{
		{"missing analysis", []string{"missing.yaml", demoEvents}, ExitCommandError, ErrCodeLoadFailed},
		{"invalid analysis", []string{bad, demoEvents}, ExitCommandError, ErrCodeInvalid},
		{"missing records", []string{demoAnalysis, filepath.Join(dir, "none.jsonl")}, ExitCommandError, ErrCodeRecords},
		{"malformed record", []string{demoAnalysis, broken}, ExitFailure, ErrCodeRecords},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--format", "json", "run"}, tt.args...)
			out, _, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			assert.Equal(t, tt.code, decodeError(t, out).Code)
		})
	}
}

func TestRun_SaveAndShow(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := executeRun(t, "json", []string{"run-1"}, "--db", db, demoAnalysis, demoEvents)
	require.NoError(t, err)
	assert.Equal(t, "run-1", decode[RunResult](t, out).RunID)

	shown, _, err := execute(t, "show", db)
	require.NoError(t, err)
	newGoldie(t).Assert(t, "show", []byte(shown))
}

func TestShow_SelectAndList(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	_, err := executeRun(t, "text", []string{"run-1"}, "--db", db, demoAnalysis, demoEvents)
	require.NoError(t, err)
	_, err = executeRun(t, "text", []string{"run-2"}, "--db", db, "--limit", "1", demoAnalysis, demoEvents)
	require.NoError(t, err)

	out, _, err := execute(t, "--format", "json", "show", db)
	require.NoError(t, err)
	latest := decode[ShowResult](t, out)
	assert.Equal(t, "run-2", latest.Run.ID)
	assert.Equal(t, int64(2), latest.Run.Seq)
	assert.Equal(t, int64(1), latest.Run.Records)

	out, _, err = execute(t, "--format", "json", "show", "--run", "run-1", db)
	require.NoError(t, err)
	first := decode[ShowResult](t, out)
	assert.Equal(t, int64(5), first.Run.Records)
	require.Len(t, first.Histograms, 3)
	assert.Equal(t, "charge", first.Histograms[0].Name)
	assert.Equal(t, []float64{1, 3}, first.Histograms[0].Contents)

	out, _, err = execute(t, "show", "--list", db)
	require.NoError(t, err)
	assert.Equal(t,
		"run run-1 (seq 1): analysis demo, 5 records\n"+
			"run run-2 (seq 2): analysis demo, 1 records\n", out)
}

func TestShow_Errors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := execute(t, "show", filepath.Join(dir, "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	_, statErr := os.Stat(filepath.Join(dir, "missing.db"))
	assert.True(t, os.IsNotExist(statErr), "show must not create the database")

	db := filepath.Join(dir, "runs.db")
	_, err = executeRun(t, "text", []string{"run-1"}, "--db", db, demoAnalysis, demoEvents)
	require.NoError(t, err)

	out, _, err := execute(t, "--format", "json", "show", "--run", "nope", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeNotFound, decodeError(t, out).Code)
}

func TestBins_Text(t *testing.T) {
	out, _, err := execute(t, "bins", demoAnalysis)
	require.NoError(t, err)
	newGoldie(t).Assert(t, "bins", []byte(out))
}

func TestBins_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "bins", demoAnalysis)
	require.NoError(t, err)

	res := decode[[]BinningResult](t, out)
	require.Len(t, res, 4)
	assert.Equal(t, "q", res[2].Name)
	assert.Equal(t, "simple", res[2].Kind)
	assert.Equal(t, []string{"minus", "plus"}, res[2].Labels)
	assert.Equal(t, "custom", res[1].Kind)
	assert.Equal(t, "pt_eta/index", res[3].Name)
	assert.Equal(t, 8, res[3].NBins)

	seen := map[string]bool{}
	for _, b := range res {
		assert.NotEmpty(t, b.Fingerprint)
		assert.False(t, seen[b.Fingerprint], "distinct binnings have distinct fingerprints")
		seen[b.Fingerprint] = true
	}
}

func TestCheck_Text(t *testing.T) {
	out, _, err := execute(t, "check", demoAnalysis)
	require.NoError(t, err)
	newGoldie(t).Assert(t, "check", []byte(out))
}

func TestCheck_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "check", demoAnalysis)
	require.NoError(t, err)

	res := decode[CheckResult](t, out)
	assert.Equal(t, "demo", res.Analysis)
	assert.Empty(t, res.Pending)
	require.Len(t, res.Nodes, 6)
	for _, n := range res.Nodes {
		assert.True(t, n.Resolved, n.Name)
	}
}

func TestCheck_CycleRejected(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "cycle.yaml")
	body := "vars:\n" +
		"  - {name: a, op: add, left: b, right: b}\n" +
		"  - {name: b, op: mul, left: a, right: a}\n"
	require.NoError(t, os.WriteFile(bad, []byte(body), 0644))

	out, _, err := execute(t, "check", bad)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]: invalid analysis")
	assert.Contains(t, err.Error(), "reference cycle")
}
