package policy

// PolicyConfig is the parsed form of an ag.yaml policy file.
type PolicyConfig struct {
	Version     int                          `yaml:"version"`
	Sources     map[string]SourceConfig      `yaml:"sources"`
	Rules       map[string]RuleConfig        `yaml:"rules"`
	Enforcement map[string]EnforcementConfig `yaml:"enforcement"`
}

// SourceConfig controls a whole scan source (mail, media, storage, calendar,
// identity). A disabled source is not collected at all.
type SourceConfig struct {
	Enabled     *bool  `yaml:"enabled,omitempty"`
	MinSeverity string `yaml:"min_severity,omitempty"`
}

type RuleConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	Severity string `yaml:"severity,omitempty"`
}

// EnforcementConfig sets the severity at which `ag scan` exits non-zero.
// It is keyed by source name, or "default" for every source.
type EnforcementConfig struct {
	FailOnSeverity string `yaml:"fail_on_severity,omitempty"`
}

// DefaultEnforcementKey is the enforcement entry applied to sources without
// their own entry.
const DefaultEnforcementKey = "default"
