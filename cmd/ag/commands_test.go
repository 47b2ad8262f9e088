package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
	"github.com/pankaj-dahiya-devops/accountguard/internal/render"
	"github.com/pankaj-dahiya-devops/accountguard/internal/store"
)

const postureFixture = `
mail:
  messages:
    - id: m1
      subject: "Your account will be suspended - verify immediately"
      from: "security@examp1e.com"
      unread: true
storage:
  files:
    - id: f1
      name: budget.xlsx
      mime_type: application/vnd.google-apps.spreadsheet
      permissions:
        - {id: owner, type: user, role: owner}
        - {id: anyone, type: anyone, role: writer}
`

// ── helpers ──────────────────────────────────────────────────────────────────

// testEnv is an isolated workspace: a fixture, a state directory for the
// file store, and a config path that does not exist.
type testEnv struct {
	dir      string
	fixture  string
	stateDir string
	config   string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	e := testEnv{
		dir:      dir,
		fixture:  filepath.Join(dir, "fixture.yaml"),
		stateDir: filepath.Join(dir, "state"),
		config:   filepath.Join(dir, "config.yaml"),
	}
	if err := os.WriteFile(e.fixture, []byte(postureFixture), 0o600); err != nil {
		t.Fatal(err)
	}
	return e
}

// run executes ag with args plus the env's global flags and returns stdout.
// Logs written to stderr are discarded.
func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args,
		"--config", e.config,
		"--fixture", e.fixture,
		"--state-dir", e.stateDir,
		"--log-level", "error",
	))
	err := root.Execute()
	return stdout.String(), err
}

func (e testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("ag %s: %v\noutput:\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func (e testEnv) writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return 1
}

// ── scan ─────────────────────────────────────────────────────────────────────

func TestScan_TableOutput(t *testing.T) {
	out := newTestEnv(t).mustRun(t, "scan")

	for _, want := range []string{
		"Security score: 65/100",
		"CRITICAL 1  HIGH 1  MEDIUM 2",
		"ISSUE ID",
		"email-m1",
		"DELETE_MESSAGE",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q;\ngot:\n%s", want, out)
		}
	}
}

func TestScan_JSONReport(t *testing.T) {
	out := newTestEnv(t).mustRun(t, "scan", "--report", "json")

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if result.Score != 65 {
		t.Errorf("Score = %d; want 65", result.Score)
	}
	if len(result.Issues) != 4 {
		t.Errorf("len(Issues) = %d; want 4", len(result.Issues))
	}
}

func TestScan_SourceFlag(t *testing.T) {
	out := newTestEnv(t).mustRun(t, "scan", "--source", "mail", "--report", "json")

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Issues) != 1 || result.Issues[0].ID != "email-m1" {
		t.Errorf("Issues = %+v; want only email-m1", result.Issues)
	}
	if result.Score != 90 {
		t.Errorf("Score = %d; want 90", result.Score)
	}
}

func TestScan_SeverityFilterKeepsScore(t *testing.T) {
	out := newTestEnv(t).mustRun(t, "scan", "--severity", "high", "--report", "json")

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Issues) != 1 || result.Issues[0].Severity != models.SeverityHigh {
		t.Errorf("Issues = %+v; want one HIGH issue", result.Issues)
	}
	if result.Score != 65 {
		t.Errorf("Score = %d; want 65 (filtering must not rescore)", result.Score)
	}
}

func TestScan_InvalidFlags(t *testing.T) {
	e := newTestEnv(t)
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"scan", "--source", "fax"}, `unknown source "fax"`},
		{[]string{"scan", "--severity", "severe"}, `unknown severity "severe"`},
		{[]string{"scan", "--category", "astrology"}, `unknown category "astrology"`},
	}
	for _, tc := range cases {
		_, err := e.run(t, tc.args...)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("ag %v: err = %v; want containing %q", tc.args, err, tc.want)
		}
	}
}

func TestScan_PolicyFailOnSeverity(t *testing.T) {
	e := newTestEnv(t)
	pol := e.writeFile(t, "ag.yaml", "version: 1\nenforcement:\n  default:\n    fail_on_severity: CRITICAL\n")

	out, err := e.run(t, "scan", "--policy", pol)
	if code := exitCode(err); code != 2 {
		t.Errorf("exit code = %d; want 2 (err: %v)", code, err)
	}
	if !strings.Contains(out, "Security score: 65/100") {
		t.Errorf("report should still be printed; got:\n%s", out)
	}

	// The mail issue is only HIGH.
	if _, err := e.run(t, "scan", "--policy", pol, "--source", "mail"); err != nil {
		t.Errorf("mail-only scan: err = %v; want nil", err)
	}
}

func TestScan_OutputFile(t *testing.T) {
	e := newTestEnv(t)
	path := filepath.Join(e.dir, "report.json")
	e.mustRun(t, "scan", "--output", path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var exp render.Export
	if err := json.Unmarshal(data, &exp); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if exp.Summary.Score != 65 || exp.Summary.TotalIssues != 4 {
		t.Errorf("Summary = %+v; want score 65 and 4 issues", exp.Summary)
	}
	if exp.GeneratedAt.IsZero() {
		t.Error("GeneratedAt should be set")
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	e := newTestEnv(t)
	e.writeFile(t, "config.yaml", "log:\n  format: xml\n")

	_, err := e.run(t, "scan")
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("err = %v; want invalid config", err)
	}
}

// ── remediate ────────────────────────────────────────────────────────────────

func TestRemediate_RequiresSelection(t *testing.T) {
	_, err := newTestEnv(t).run(t, "remediate")
	if err == nil || !strings.Contains(err.Error(), "--issue or --all") {
		t.Errorf("err = %v; want selection error", err)
	}
}

func TestRemediate_WithoutScan(t *testing.T) {
	_, err := newTestEnv(t).run(t, "remediate", "--all", "--delay", "0")
	if !errors.Is(err, store.ErrNoResult) {
		t.Errorf("err = %v; want ErrNoResult", err)
	}
}

func TestRemediate_SelectedIssue(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun(t, "scan")

	out := e.mustRun(t, "remediate", "--issue", "email-m1", "--delay", "0")
	if !strings.Contains(out, "1 total, 1 successful, 0 failed") {
		t.Errorf("report missing totals;\ngot:\n%s", out)
	}

	_, err := e.run(t, "report", "explain", "email-m1")
	if err == nil || !strings.Contains(err.Error(), "no issue found with id email-m1") {
		t.Errorf("explain after fix: err = %v; want not found", err)
	}
}

func TestRemediate_AllWithRescan(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun(t, "scan")

	out := e.mustRun(t, "remediate", "--all", "--delay", "0", "--rescan")
	for _, want := range []string{
		"4 total, 4 successful, 0 failed",
		"Security score: 100/100",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q;\ngot:\n%s", want, out)
		}
	}
}

// ── recommend ────────────────────────────────────────────────────────────────

func TestRecommend(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun(t, "recommend", "email-security")
	if !strings.HasPrefix(out, "1. [HIGH] Enable 2-Step Verification\n") {
		t.Errorf("recommend email-security = %q", out)
	}

	out = e.mustRun(t, "recommend", "astrology")
	if !strings.Contains(out, "Regular Security Audits") {
		t.Errorf("unknown category should get general advice; got %q", out)
	}
}

// ── report ───────────────────────────────────────────────────────────────────

func TestReportExport(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun(t, "scan")

	out := e.mustRun(t, "report", "export")
	var exp render.Export
	if err := json.Unmarshal([]byte(out), &exp); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if exp.Summary.TotalIssues != 4 {
		t.Errorf("TotalIssues = %d; want 4", exp.Summary.TotalIssues)
	}
	if len(exp.Summary.Advice) == 0 {
		t.Error("export should carry advice for the issue categories")
	}
}

func TestReportExplain(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun(t, "scan")

	out := e.mustRun(t, "report", "explain", "email-m1")
	for _, want := range []string{
		"ISSUE email-m1 (HIGH, EMAIL_SECURITY)",
		"Auto-fix: DELETE_MESSAGE (run: ag remediate --issue email-m1)",
		"✓ Enable 2-Step Verification",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q;\ngot:\n%s", want, out)
		}
	}

	out, err := e.run(t, "report", "explain", "nope", "--format", "json")
	if code := exitCode(err); code != 1 {
		t.Errorf("exit code = %d; want 1", code)
	}
	if !strings.Contains(out, "No issue found with id nope") {
		t.Errorf("json output = %q", out)
	}
}
