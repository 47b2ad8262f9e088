package policy

import (
	"fmt"
	"strings"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

const severityChoices = "CRITICAL, HIGH, MEDIUM, LOW, INFO"

func validSource(name string) bool {
	for _, s := range models.AllSources() {
		if string(s) == name {
			return true
		}
	}
	return false
}

func sourceChoices() string {
	names := make([]string, 0, len(models.AllSources()))
	for _, s := range models.AllSources() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func validSeverity(v string) bool {
	return models.Severity(strings.ToUpper(v)).Valid()
}

// Validate checks cfg for semantic correctness and returns all validation
// errors found. An empty slice means the config is valid.
//
// Checks performed:
//   - version must be 1
//   - source names must be known scan sources
//   - source min_severity must be a valid severity if set
//   - rule IDs must appear in availableRuleIDs
//   - rule severity overrides must be valid severities if set
//   - enforcement keys must be a source name or "default"
//   - enforcement fail_on_severity must be a valid severity if set
//
// All errors are collected before returning.
func Validate(cfg *PolicyConfig, availableRuleIDs []string) []error {
	if cfg == nil {
		return []error{fmt.Errorf("policy config is nil")}
	}

	knownIDs := make(map[string]struct{}, len(availableRuleIDs))
	for _, id := range availableRuleIDs {
		knownIDs[id] = struct{}{}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; must be 1", cfg.Version))
	}

	for name, scfg := range cfg.Sources {
		if !validSource(name) {
			errs = append(errs, fmt.Errorf("sources.%s: unknown source; valid values: %s", name, sourceChoices()))
		}
		if scfg.MinSeverity != "" && !validSeverity(scfg.MinSeverity) {
			errs = append(errs, fmt.Errorf("sources.%s.min_severity: invalid value %q; valid values: %s", name, scfg.MinSeverity, severityChoices))
		}
	}

	for ruleID, rcfg := range cfg.Rules {
		if _, ok := knownIDs[ruleID]; !ok {
			errs = append(errs, fmt.Errorf("rules.%s: unknown rule ID", ruleID))
		}
		if rcfg.Severity != "" && !validSeverity(rcfg.Severity) {
			errs = append(errs, fmt.Errorf("rules.%s.severity: invalid value %q; valid values: %s", ruleID, rcfg.Severity, severityChoices))
		}
	}

	for key, enf := range cfg.Enforcement {
		if key != DefaultEnforcementKey && !validSource(key) {
			errs = append(errs, fmt.Errorf("enforcement.%s: unknown source; valid values: %s, %s", key, sourceChoices(), DefaultEnforcementKey))
		}
		if enf.FailOnSeverity != "" && !validSeverity(enf.FailOnSeverity) {
			errs = append(errs, fmt.Errorf("enforcement.%s.fail_on_severity: invalid value %q; valid values: %s", key, enf.FailOnSeverity, severityChoices))
		}
	}

	return errs
}
