package policy_test

import (
	"strings"
	"testing"

	"github.com/pankaj-dahiya-devops/accountguard/internal/policy"
)

// knownRules is a fixed rule ID set used by all validator tests.
var knownRules = []string{"RULE_A", "RULE_B", "RULE_C"}

func boolPtr(b bool) *bool { return &b }

// ── happy path ────────────────────────────────────────────────────────────────

func TestValidate_ValidMinimalConfig(t *testing.T) {
	cfg := &policy.PolicyConfig{Version: 1}
	if errs := policy.Validate(cfg, knownRules); len(errs) != 0 {
		t.Errorf("expected no errors; got %d: %v", len(errs), errs)
	}
}

func TestValidate_ValidFullConfig(t *testing.T) {
	cfg := &policy.PolicyConfig{
		Version: 1,
		Sources: map[string]policy.SourceConfig{
			"mail":    {Enabled: boolPtr(true), MinSeverity: "medium"},
			"storage": {MinSeverity: "HIGH"},
		},
		Rules: map[string]policy.RuleConfig{
			"RULE_A": {Enabled: boolPtr(false)},
			"RULE_B": {Severity: "low"},
			"RULE_C": {Severity: "CRITICAL"},
		},
		Enforcement: map[string]policy.EnforcementConfig{
			"default":  {FailOnSeverity: "critical"},
			"calendar": {FailOnSeverity: "HIGH"},
		},
	}
	if errs := policy.Validate(cfg, knownRules); len(errs) != 0 {
		t.Errorf("expected no errors; got %d: %v", len(errs), errs)
	}
}

func TestValidate_SeverityCaseInsensitive(t *testing.T) {
	for _, sev := range []string{"critical", "High", "MEDIUM", "low", "Info"} {
		cfg := &policy.PolicyConfig{
			Version: 1,
			Rules:   map[string]policy.RuleConfig{"RULE_A": {Severity: sev}},
		}
		if errs := policy.Validate(cfg, knownRules); len(errs) != 0 {
			t.Errorf("severity %q: expected no errors; got %v", sev, errs)
		}
	}
}

// ── version ───────────────────────────────────────────────────────────────────

func TestValidate_InvalidVersion(t *testing.T) {
	errs := policy.Validate(&policy.PolicyConfig{Version: 2}, knownRules)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error; got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0].Error(), "version") {
		t.Errorf("error %q does not mention version", errs[0])
	}
}

func TestValidate_NilConfig(t *testing.T) {
	if errs := policy.Validate(nil, knownRules); len(errs) != 1 {
		t.Errorf("expected 1 error for nil config; got %v", errs)
	}
}

// ── sources ───────────────────────────────────────────────────────────────────

func TestValidate_UnknownSource(t *testing.T) {
	cfg := &policy.PolicyConfig{
		Version: 1,
		Sources: map[string]policy.SourceConfig{"networking": {}},
	}
	if errs := policy.Validate(cfg, knownRules); len(errs) == 0 {
		t.Fatal("expected source error; got none")
	}
}

func TestValidate_AllSourcesAccepted(t *testing.T) {
	for _, src := range []string{"mail", "media", "storage", "calendar", "identity"} {
		cfg := &policy.PolicyConfig{
			Version: 1,
			Sources: map[string]policy.SourceConfig{src: {Enabled: boolPtr(true)}},
		}
		if errs := policy.Validate(cfg, knownRules); len(errs) != 0 {
			t.Errorf("source %q: expected no errors; got %v", src, errs)
		}
	}
}

func TestValidate_InvalidMinSeverity(t *testing.T) {
	cfg := &policy.PolicyConfig{
		Version: 1,
		Sources: map[string]policy.SourceConfig{"mail": {MinSeverity: "severe"}},
	}
	if errs := policy.Validate(cfg, knownRules); len(errs) == 0 {
		t.Fatal("expected min_severity error; got none")
	}
}

// ── rules ─────────────────────────────────────────────────────────────────────

func TestValidate_UnknownRule(t *testing.T) {
	cfg := &policy.PolicyConfig{
		Version: 1,
		Rules:   map[string]policy.RuleConfig{"RULE_DOES_NOT_EXIST": {Severity: "low"}},
	}
	errs := policy.Validate(cfg, knownRules)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error; got %v", errs)
	}
	if !strings.Contains(errs[0].Error(), "RULE_DOES_NOT_EXIST") {
		t.Errorf("error %q does not name the rule", errs[0])
	}
}

// ── enforcement ───────────────────────────────────────────────────────────────

func TestValidate_EnforcementKeys(t *testing.T) {
	cfg := &policy.PolicyConfig{
		Version: 1,
		Enforcement: map[string]policy.EnforcementConfig{
			"everything": {FailOnSeverity: "HIGH"},
			"mail":       {FailOnSeverity: "urgent"},
		},
	}
	if errs := policy.Validate(cfg, knownRules); len(errs) != 2 {
		t.Errorf("expected 2 errors; got %d: %v", len(errs), errs)
	}
}

// ── error accumulation ────────────────────────────────────────────────────────

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &policy.PolicyConfig{
		Version: 3,
		Sources: map[string]policy.SourceConfig{"bogus": {MinSeverity: "nope"}},
		Rules:   map[string]policy.RuleConfig{"RULE_X": {Severity: "nope"}},
	}
	// version + unknown source + bad min_severity + unknown rule + bad severity
	if errs := policy.Validate(cfg, knownRules); len(errs) != 5 {
		t.Errorf("expected 5 errors; got %d: %v", len(errs), errs)
	}
}
