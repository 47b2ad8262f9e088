package policy

import (
	"strings"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// ShouldFail reports whether any issue has a severity at or above the
// fail_on_severity configured for its source, falling back to the "default"
// enforcement entry.
//
// It returns false when cfg is nil, when no entry applies, or when the
// configured value is not a recognised severity.
func ShouldFail(issues []models.SecurityIssue, cfg *PolicyConfig) bool {
	if cfg == nil {
		return false
	}
	for _, i := range issues {
		threshold, ok := failThreshold(cfg, i.Source)
		if ok && i.Severity.Valid() && i.Severity.Rank() <= threshold.Rank() {
			return true
		}
	}
	return false
}

func failThreshold(cfg *PolicyConfig, src models.Source) (models.Severity, bool) {
	enf, ok := cfg.Enforcement[string(src)]
	if !ok || enf.FailOnSeverity == "" {
		enf, ok = cfg.Enforcement[DefaultEnforcementKey]
	}
	if !ok || enf.FailOnSeverity == "" {
		return "", false
	}
	sev := models.Severity(strings.ToUpper(enf.FailOnSeverity))
	return sev, sev.Valid()
}
