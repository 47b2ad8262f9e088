package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestFileLoader_MissingFileReturnsDefaults(t *testing.T) {
	l := FileLoader{Path: filepath.Join(t.TempDir(), "absent.yaml")}
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Scan.MaxUnread != 20 || cfg.Remediation.Delay != time.Second {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestFileLoader_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  format: json
remediation:
  delay: 250ms
connector:
  provider: aws
  retry:
    attempts: 2
aws:
  bucket: family-photos
`)
	cfg, err := FileLoader{Path: path}.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Errorf("Log = %+v; want json format with default level", cfg.Log)
	}
	if cfg.Remediation.Delay != 250*time.Millisecond {
		t.Errorf("Remediation.Delay = %s; want 250ms", cfg.Remediation.Delay)
	}
	if cfg.Remediation.DedupeSize != 256 {
		t.Errorf("DedupeSize = %d; want default 256", cfg.Remediation.DedupeSize)
	}
	if cfg.Connector.Retry.Attempts != 2 || cfg.Connector.Retry.Initial != 250*time.Millisecond {
		t.Errorf("Retry = %+v; want attempts overridden and initial kept", cfg.Connector.Retry)
	}
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("Validate() = %v; want none", errs)
	}
}

func TestFileLoader_ParseError(t *testing.T) {
	path := writeConfig(t, "scan: [not, a, map]\n")
	_, err := FileLoader{Path: path}.Load()
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Errorf("Load() error = %v; want parse config error", err)
	}
}

func TestFileLoader_DefaultPathUsesXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	want := filepath.Join("/tmp/xdg", "accountguard", "config.yaml")
	if got := (FileLoader{}).ConfigPath(); got != want {
		t.Errorf("ConfigPath() = %q; want %q", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"memory needs fixture", func(c *Config) {}, "connector.fixture"},
		{"aws needs bucket", func(c *Config) { c.Connector.Provider = "aws" }, "aws.bucket"},
		{"unknown provider", func(c *Config) { c.Connector.Provider = "gdrive" }, "connector.provider"},
		{"unknown store", func(c *Config) { c.Connector.Fixture = "f.yaml"; c.Store.Kind = "s3" }, "store.kind"},
		{"bad format", func(c *Config) { c.Connector.Fixture = "f.yaml"; c.Log.Format = "xml" }, "log.format"},
		{"negative delay", func(c *Config) { c.Connector.Fixture = "f.yaml"; c.Remediation.Delay = -time.Second }, "remediation.delay"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			errs := Validate(cfg)
			if len(errs) != 1 || !strings.Contains(errs[0].Error(), tc.want) {
				t.Errorf("Validate() = %v; want one error mentioning %q", errs, tc.want)
			}
		})
	}
}
