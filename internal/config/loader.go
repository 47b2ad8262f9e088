package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults returns the configuration used when no file exists. Values set
// in a config file override these field by field.
func Defaults() *Config {
	return &Config{
		Log:  LogConfig{Level: "info", Format: "text"},
		Scan: ScanConfig{MaxUnread: 20, PageSize: 100, Concurrency: 4},
		Remediation: RemediationConfig{
			Delay:      time.Second,
			DedupeSize: 256,
			DedupeTTL:  10 * time.Minute,
		},
		Connector: ConnectorConfig{
			Provider:        "memory",
			ReadConcurrency: 4,
			Retry:           RetryConfig{Initial: 250 * time.Millisecond, Max: 8 * time.Second, Attempts: 4},
		},
		Store: StoreConfig{Kind: "file", Dir: defaultStateDir(), Name: "accountguard-latest"},
		Events: EventsConfig{
			ScanSubject:         "accountguard.scans",
			ActionSubject:       "accountguard.actions",
			CloudWatchNamespace: "AccountGuard",
		},
		AWS:    AWSConfig{DefaultRegion: "us-east-1"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Validate reports every invalid field in cfg.
func Validate(cfg *Config) []error {
	var errs []error
	if !oneOf(cfg.Log.Format, "text", "json") {
		errs = append(errs, fmt.Errorf("log.format %q: must be text or json", cfg.Log.Format))
	}
	if !oneOf(cfg.Log.Level, "debug", "info", "warn", "warning", "error") {
		errs = append(errs, fmt.Errorf("log.level %q: must be debug, info, warn or error", cfg.Log.Level))
	}
	if cfg.Scan.MaxUnread < 0 || cfg.Scan.PageSize < 0 || cfg.Scan.Concurrency < 0 {
		errs = append(errs, errors.New("scan: limits must not be negative"))
	}
	if cfg.Remediation.Delay < 0 {
		errs = append(errs, fmt.Errorf("remediation.delay %s: must not be negative", cfg.Remediation.Delay))
	}
	switch cfg.Connector.Provider {
	case "memory":
		if cfg.Connector.Fixture == "" {
			errs = append(errs, errors.New("connector.fixture: required for the memory provider"))
		}
	case "aws":
		if cfg.AWS.Bucket == "" {
			errs = append(errs, errors.New("aws.bucket: required for the aws provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("connector.provider %q: must be memory or aws", cfg.Connector.Provider))
	}
	if cfg.Connector.MutationRate < 0 {
		errs = append(errs, errors.New("connector.mutation_rate: must not be negative"))
	}
	switch cfg.Store.Kind {
	case "memory":
	case "file":
		if cfg.Store.Dir == "" {
			errs = append(errs, errors.New("store.dir: required for the file store"))
		}
	case "configmap":
		if cfg.Store.Name == "" {
			errs = append(errs, errors.New("store.name: required for the configmap store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.kind %q: must be file, configmap or memory", cfg.Store.Kind))
	}
	return errs
}

func oneOf(v string, choices ...string) bool {
	for _, c := range choices {
		if v == c {
			return true
		}
	}
	return false
}

// FileLoader reads Config from a YAML file.
type FileLoader struct {
	// Path overrides the default location when set.
	Path string
}

// ConfigPath returns the file FileLoader reads.
func (l FileLoader) ConfigPath() string {
	if l.Path != "" {
		return l.Path
	}
	return filepath.Join(configHome(), "accountguard", "config.yaml")
}

// Load returns Defaults() overlaid with the config file. A missing file is
// not an error. Validation is left to the caller since which fields are
// required depends on the command.
func (l FileLoader) Load() (*Config, error) {
	cfg := Defaults()
	path := l.ConfigPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config")
	}
	return "."
}

func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "accountguard")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "accountguard")
	}
	return "accountguard-state"
}
