package policy

import (
	"strings"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// SourceEnabled reports whether src should be scanned. Sources are enabled
// unless the policy explicitly disables them.
func SourceEnabled(cfg *PolicyConfig, src models.Source) bool {
	if cfg == nil {
		return true
	}
	s, ok := cfg.Sources[string(src)]
	if !ok || s.Enabled == nil {
		return true
	}
	return *s.Enabled
}

// ApplyPolicy drops issues from disabled sources and rules, applies rule
// severity overrides, then drops issues below their source's min_severity.
// The input slice is not modified.
func ApplyPolicy(issues []models.SecurityIssue, cfg *PolicyConfig) []models.SecurityIssue {
	if cfg == nil {
		return issues
	}

	result := make([]models.SecurityIssue, 0, len(issues))
	for _, i := range issues {
		if !SourceEnabled(cfg, i.Source) {
			continue
		}

		ruleCfg, hasRule := cfg.Rules[i.RuleID]

		// Rule-level disable
		if hasRule && ruleCfg.Enabled != nil && !*ruleCfg.Enabled {
			continue
		}

		// Severity override
		if hasRule && ruleCfg.Severity != "" {
			i.Severity = models.Severity(strings.ToUpper(ruleCfg.Severity))
		}

		if floor := cfg.Sources[string(i.Source)].MinSeverity; floor != "" {
			threshold := models.Severity(strings.ToUpper(floor))
			if threshold.Valid() && i.Severity.Rank() > threshold.Rank() {
				continue
			}
		}

		result = append(result, i)
	}
	return result
}
