// Package engine runs scans: it collects every configured source, evaluates
// the rules reading it, and aggregates the issues into an AnalysisResult.
//
// The engine never talks to a provider directly; it reads through the
// connector interfaces via internal/collector.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/pankaj-dahiya-devops/accountguard/internal/audit"
	"github.com/pankaj-dahiya-devops/accountguard/internal/collector"
	"github.com/pankaj-dahiya-devops/accountguard/internal/metrics"
	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
	"github.com/pankaj-dahiya-devops/accountguard/internal/policy"
)

// Scanner is the scan entry point used by the CLI and the HTTP API.
type Scanner interface {
	// Scan analyses every configured source.
	Scan(ctx context.Context) (*models.AnalysisResult, error)
	// ScanSources analyses only the named sources.
	ScanSources(ctx context.Context, sources ...models.Source) (*models.AnalysisResult, error)
}

// Config carries the optional collaborators of a Runner. The zero value is
// usable.
type Config struct {
	// Collect bounds how much each source reads. Zero means
	// collector.DefaultOptions().
	Collect collector.Options

	// Policy filters and re-grades issues and can disable whole sources.
	Policy *policy.PolicyConfig

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Events  audit.Sink

	// Clock defaults to time.Now.
	Clock func() time.Time
}
