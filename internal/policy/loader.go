package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPolicy reads and parses the policy file at path. Only version 1 is
// accepted; semantic checks are left to Validate.
func LoadPolicy(path string) (*PolicyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy %q: %w", path, err)
	}

	var cfg PolicyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse policy %q: %w", path, err)
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("policy %q: unsupported version %d", path, cfg.Version)
	}

	if cfg.Sources == nil {
		cfg.Sources = make(map[string]SourceConfig)
	}
	if cfg.Rules == nil {
		cfg.Rules = make(map[string]RuleConfig)
	}
	if cfg.Enforcement == nil {
		cfg.Enforcement = make(map[string]EnforcementConfig)
	}

	return &cfg, nil
}
