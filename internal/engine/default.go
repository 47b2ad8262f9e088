package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/accountguard/internal/audit"
	"github.com/pankaj-dahiya-devops/accountguard/internal/collector"
	"github.com/pankaj-dahiya-devops/accountguard/internal/connector"
	"github.com/pankaj-dahiya-devops/accountguard/internal/logging"
	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
	"github.com/pankaj-dahiya-devops/accountguard/internal/policy"
	"github.com/pankaj-dahiya-devops/accountguard/internal/rules"
)

// Runner is the production Scanner. A Runner holds no per-scan state and may
// run concurrent scans.
type Runner struct {
	conns    connector.Set
	registry rules.RuleRegistry
	cfg      Config
}

// NewRunner returns a Runner reading through conns and evaluating the rules
// in registry.
func NewRunner(conns connector.Set, registry rules.RuleRegistry, cfg Config) *Runner {
	if cfg.Collect == (collector.Options{}) {
		cfg.Collect = collector.DefaultOptions()
	}
	cfg.Logger = logging.OrDiscard(cfg.Logger)
	if cfg.Events == nil {
		cfg.Events = audit.Nop{}
	}
	if cfg.Clock == nil {
		cfg.Clock = timeNow
	}
	return &Runner{conns: conns, registry: registry, cfg: cfg}
}

// Scan implements Scanner.
func (r *Runner) Scan(ctx context.Context) (*models.AnalysisResult, error) {
	return r.ScanSources(ctx, models.AllSources()...)
}

// ScanSources implements Scanner. Sources without a connector or disabled by
// policy are skipped. Each source is collected and evaluated in its own
// goroutine; a source that fails contributes whatever it collected and a
// warning, and never affects the others. The returned error is non-nil only
// for an unknown source name or a cancelled context, and in the latter case
// the partial result is still returned.
func (r *Runner) ScanSources(ctx context.Context, sources ...models.Source) (*models.AnalysisResult, error) {
	for _, src := range sources {
		if !knownSource(src) {
			return nil, fmt.Errorf("unknown source %q", src)
		}
	}
	start := r.cfg.Clock()

	var (
		mu       sync.Mutex
		perSrc   = make(map[models.Source][]models.SecurityIssue)
		warnings []models.ScanWarning
		g        errgroup.Group
	)
	for _, src := range uniqueSources(sources) {
		if !r.conns.Has(src) {
			r.cfg.Logger.Debug("source not configured", "source", src)
			continue
		}
		if !policy.SourceEnabled(r.cfg.Policy, src) {
			r.cfg.Logger.Debug("source disabled by policy", "source", src)
			continue
		}
		g.Go(func() error {
			issues, err := r.scanSource(ctx, src)
			mu.Lock()
			defer mu.Unlock()
			perSrc[src] = issues
			if err != nil {
				w := warningFor(src, err)
				warnings = append(warnings, w)
				r.cfg.Metrics.SourceFailed(src, w.Kind)
				r.cfg.Logger.Warn("source scan incomplete", "source", src, "kind", w.Kind, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	var issues []models.SecurityIssue
	for _, src := range models.AllSources() {
		issues = append(issues, perSrc[src]...)
	}
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Source < warnings[j].Source })

	result := buildResult(issues, warnings, r.cfg.Policy)
	result.ID = "scan-" + uuid.NewString()
	result.Timestamp = r.cfg.Clock().UTC()

	r.cfg.Metrics.ObserveScan(result, result.Timestamp.Sub(start))
	if err := r.cfg.Events.ScanCompleted(ctx, result); err != nil {
		r.cfg.Logger.Warn("scan event not delivered", "scan_id", result.ID, "error", err)
	}
	r.cfg.Logger.Info("scan finished",
		"scan_id", result.ID,
		"issues", len(result.Issues),
		"score", result.Score,
		"warnings", len(result.Warnings),
	)
	return result, ctx.Err()
}

// scanSource collects src and evaluates its rules against whatever was
// collected, including a partial snapshot. A panic in the connector, the
// collector or a rule is reported as an error for its source only.
func (r *Runner) scanSource(ctx context.Context, src models.Source) (issues []models.SecurityIssue, err error) {
	stage := "collect"
	defer func() {
		if p := recover(); p != nil {
			issues = nil
			err = errors.Join(err, fmt.Errorf("%s %s: panic: %v", stage, src, p))
		}
	}()
	rctx, err := r.collect(ctx, src)
	stage = "evaluate"
	issues = r.registry.EvaluateSource(src, rctx)
	return issues, err
}

func (r *Runner) collect(ctx context.Context, src models.Source) (rules.RuleContext, error) {
	opts := r.cfg.Collect
	switch src {
	case models.SourceMail:
		snap, err := collector.Mail(ctx, r.conns.Mail, opts)
		return rules.RuleContext{Mail: snap}, err
	case models.SourceMedia:
		snap, err := collector.Media(ctx, r.conns.Media, opts)
		return rules.RuleContext{Media: snap}, err
	case models.SourceStorage:
		snap, err := collector.Storage(ctx, r.conns.Storage, opts)
		return rules.RuleContext{Storage: snap}, err
	case models.SourceCalendar:
		snap, err := collector.Calendar(ctx, r.conns.Calendar, opts)
		return rules.RuleContext{Calendar: snap}, err
	case models.SourceIdentity:
		snap, err := collector.Identity(ctx, r.conns.Identity)
		return rules.RuleContext{Identity: snap}, err
	}
	return rules.RuleContext{}, fmt.Errorf("unknown source %q", src)
}

func warningFor(src models.Source, err error) models.ScanWarning {
	kind := string(connector.KindOf(err))
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = "canceled"
	}
	return models.ScanWarning{Source: src, Kind: kind, Message: err.Error()}
}

func knownSource(src models.Source) bool {
	for _, s := range models.AllSources() {
		if s == src {
			return true
		}
	}
	return false
}

func uniqueSources(sources []models.Source) []models.Source {
	seen := make(map[models.Source]struct{}, len(sources))
	out := make([]models.Source, 0, len(sources))
	for _, s := range sources {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
