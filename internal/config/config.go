package config

import "time"

// Config is the top-level application configuration.
// It is loaded from ~/.config/accountguard/config.yaml and must never be
// committed with real credentials.
type Config struct {
	Log         LogConfig         `yaml:"log"         json:"log"`
	Scan        ScanConfig        `yaml:"scan"        json:"scan"`
	Remediation RemediationConfig `yaml:"remediation" json:"remediation"`
	Connector   ConnectorConfig   `yaml:"connector"   json:"connector"`
	Store       StoreConfig       `yaml:"store"       json:"store"`
	Events      EventsConfig      `yaml:"events"      json:"events"`
	AWS         AWSConfig         `yaml:"aws"         json:"aws"`
	Server      ServerConfig      `yaml:"server"      json:"server"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format" json:"format"`
}

// ScanConfig bounds how much a scan reads.
type ScanConfig struct {
	// MaxUnread caps the unread messages inspected per scan.
	MaxUnread int `yaml:"max_unread" json:"max_unread"`

	// PageSize is the file listing page size.
	PageSize int `yaml:"page_size" json:"page_size"`

	// Concurrency bounds per-item detail fetches within one source.
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	// Policy is the path of an optional ag.yaml policy file.
	Policy string `yaml:"policy" json:"policy"`
}

// RemediationConfig paces and deduplicates remediation batches.
type RemediationConfig struct {
	// Delay is the minimum spacing between actions in one batch.
	Delay time.Duration `yaml:"delay" json:"delay"`

	// DedupeSize is the number of recent successful actions remembered.
	DedupeSize int `yaml:"dedupe_size" json:"dedupe_size"`

	// DedupeTTL is how long a successful action is remembered.
	DedupeTTL time.Duration `yaml:"dedupe_ttl" json:"dedupe_ttl"`
}

// ConnectorConfig selects the data provider and its resilience settings.
type ConnectorConfig struct {
	// Provider is "memory" (YAML fixture) or "aws".
	Provider string `yaml:"provider" json:"provider"`

	// Fixture is the YAML fixture read by the memory provider.
	Fixture string `yaml:"fixture" json:"fixture"`

	// ReadConcurrency bounds in-flight reads per connector.
	ReadConcurrency int64 `yaml:"read_concurrency" json:"read_concurrency"`

	// MutationRate limits mutations per second per connector. Zero is unlimited.
	MutationRate float64 `yaml:"mutation_rate" json:"mutation_rate"`

	Retry RetryConfig `yaml:"retry" json:"retry"`
}

// RetryConfig mirrors connector.Backoff.
type RetryConfig struct {
	Initial  time.Duration `yaml:"initial"  json:"initial"`
	Max      time.Duration `yaml:"max"      json:"max"`
	Attempts int           `yaml:"attempts" json:"attempts"`
}

// StoreConfig selects where the latest analysis result is kept.
type StoreConfig struct {
	// Kind is "file", "configmap", or "memory".
	Kind string `yaml:"kind" json:"kind"`

	// Dir is the directory used by the file store.
	Dir string `yaml:"dir" json:"dir"`

	// Kubeconfig, Context, Namespace and Name locate the configmap store.
	// An empty Namespace means the namespace of the kubeconfig context.
	Kubeconfig string `yaml:"kubeconfig" json:"kubeconfig"`
	Context    string `yaml:"context"    json:"context"`
	Namespace  string `yaml:"namespace"  json:"namespace"`
	Name       string `yaml:"name"       json:"name"`
}

// EventsConfig enables the optional audit event sinks. Scan and action
// events are always logged.
type EventsConfig struct {
	// NATSURL enables the NATS sink when set.
	NATSURL       string `yaml:"nats_url"       json:"nats_url"`
	ScanSubject   string `yaml:"scan_subject"   json:"scan_subject"`
	ActionSubject string `yaml:"action_subject" json:"action_subject"`

	// CloudWatch publishes the posture score and action outcomes as
	// CloudWatch metrics using the AWS profile below.
	CloudWatch          bool   `yaml:"cloudwatch"           json:"cloudwatch"`
	CloudWatchNamespace string `yaml:"cloudwatch_namespace" json:"cloudwatch_namespace"`
}

// AWSConfig holds AWS-specific defaults used when flags are not provided.
type AWSConfig struct {
	// DefaultRegion is used when no region flag or profile region is set.
	DefaultRegion string `yaml:"default_region" json:"default_region"`

	// DefaultProfile is used when no --profile flag is provided.
	DefaultProfile string `yaml:"default_profile" json:"default_profile"`

	// Bucket is the S3 bucket scanned as file storage.
	Bucket string `yaml:"bucket" json:"bucket"`
}

// ServerConfig configures ag serve.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Loader is the interface for reading Config from disk.
// Default implementation reads from ~/.config/accountguard/config.yaml.
type Loader interface {
	// Load reads, parses, and validates the configuration file.
	Load() (*Config, error)

	// ConfigPath returns the absolute path to the configuration file.
	ConfigPath() string
}
