// Package app wires configuration into a ready scanner, remediation
// orchestrator, result store, and event sinks. The CLI and the HTTP API both
// drive accountguard through an App.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/pankaj-dahiya-devops/accountguard/internal/audit"
	"github.com/pankaj-dahiya-devops/accountguard/internal/collector"
	"github.com/pankaj-dahiya-devops/accountguard/internal/config"
	"github.com/pankaj-dahiya-devops/accountguard/internal/connector"
	"github.com/pankaj-dahiya-devops/accountguard/internal/engine"
	"github.com/pankaj-dahiya-devops/accountguard/internal/logging"
	"github.com/pankaj-dahiya-devops/accountguard/internal/metrics"
	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
	"github.com/pankaj-dahiya-devops/accountguard/internal/policy"
	awscloudwatch "github.com/pankaj-dahiya-devops/accountguard/internal/providers/aws/cloudwatch"
	"github.com/pankaj-dahiya-devops/accountguard/internal/providers/aws/common"
	awsidentity "github.com/pankaj-dahiya-devops/accountguard/internal/providers/aws/identity"
	awsstorage "github.com/pankaj-dahiya-devops/accountguard/internal/providers/aws/storage"
	kube "github.com/pankaj-dahiya-devops/accountguard/internal/providers/kubernetes"
	"github.com/pankaj-dahiya-devops/accountguard/internal/providers/memory"
	"github.com/pankaj-dahiya-devops/accountguard/internal/remediation"
	"github.com/pankaj-dahiya-devops/accountguard/internal/rulepacks/posture"
	"github.com/pankaj-dahiya-devops/accountguard/internal/rules"
	"github.com/pankaj-dahiya-devops/accountguard/internal/store"
)

// ErrUnknownIssue is returned when a remediation names an issue that is not
// part of the latest stored result.
var ErrUnknownIssue = errors.New("unknown issue")

// Deps overrides the external clients App builds. Nil fields use the real
// implementations.
type Deps struct {
	AWS  common.AWSClientProvider
	Kube kube.ClientProvider

	// Connectors replaces provider selection entirely.
	Connectors *connector.Set

	// Store replaces the configured result store.
	Store store.Store

	// ConnectNATS dials the event bus.
	ConnectNATS func(url string) (audit.Publisher, func(), error)

	// Registry receives the Prometheus collectors. A fresh registry is used
	// when nil.
	Registry *prometheus.Registry
}

// App is a fully wired accountguard instance.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Policy   *policy.PolicyConfig
	Rules    *rules.DefaultRuleRegistry
	Scanner  *engine.Runner
	Fixer    *remediation.Orchestrator
	Store    store.Store

	// saveMu orders writes to Store so a remediation never replaces a
	// result saved by a newer scan.
	saveMu  sync.Mutex
	closers []func()
}

// New builds an App from cfg. The caller must Close it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps Deps) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logging.OrDiscard(logger),
		Registry: deps.Registry,
		Rules:    posture.NewRegistry(),
	}
	if a.Registry == nil {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	a.Metrics = metrics.New(a.Registry)

	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if cfg.Scan.Policy != "" {
		pol, err := loadPolicy(cfg.Scan.Policy, a.Rules.IDs())
		if err != nil {
			return nil, err
		}
		a.Policy = pol
	}

	var profile *common.ProfileConfig
	awsProfile := func() (*common.ProfileConfig, error) {
		if profile != nil {
			return profile, nil
		}
		provider := deps.AWS
		if provider == nil {
			provider = common.NewDefaultAWSClientProvider(cfg.AWS.DefaultRegion)
		}
		p, err := provider.LoadProfile(ctx, cfg.AWS.DefaultProfile)
		if err != nil {
			return nil, fmt.Errorf("load AWS profile: %w", err)
		}
		profile = p
		return p, nil
	}

	conns, err := a.connectors(cfg, deps, awsProfile)
	if err != nil {
		return nil, err
	}
	conns = connector.Wrap(conns, connector.Options{
		Backoff: connector.Backoff{
			Initial:  cfg.Connector.Retry.Initial,
			Max:      cfg.Connector.Retry.Max,
			Attempts: cfg.Connector.Retry.Attempts,
		},
		ReadConcurrency: cfg.Connector.ReadConcurrency,
		MutationRate:    rate.Limit(cfg.Connector.MutationRate),
	})

	sink, err := a.sinks(cfg, deps, awsProfile)
	if err != nil {
		return nil, err
	}

	a.Store = deps.Store
	if a.Store == nil {
		if a.Store, err = OpenStore(ctx, cfg.Store, deps.Kube); err != nil {
			return nil, err
		}
	}

	a.Scanner = engine.NewRunner(conns, a.Rules, engine.Config{
		Collect: collector.Options{
			MaxUnread:   cfg.Scan.MaxUnread,
			PageSize:    cfg.Scan.PageSize,
			Concurrency: cfg.Scan.Concurrency,
		},
		Policy:  a.Policy,
		Logger:  a.Logger.With("component", "engine"),
		Metrics: a.Metrics,
		Events:  sink,
	})
	a.Fixer = remediation.NewOrchestrator(conns, remediation.Config{
		Delay:      cfg.Remediation.Delay,
		DedupeSize: cfg.Remediation.DedupeSize,
		DedupeTTL:  cfg.Remediation.DedupeTTL,
		Logger:     a.Logger.With("component", "remediation"),
		Metrics:    a.Metrics,
		Sink:       sink,
	})

	ok = true
	return a, nil
}

func loadPolicy(path string, ruleIDs []string) (*policy.PolicyConfig, error) {
	pol, err := policy.LoadPolicy(path)
	if err != nil {
		return nil, err
	}
	if errs := policy.Validate(pol, ruleIDs); len(errs) > 0 {
		return nil, fmt.Errorf("invalid policy %q: %w", path, errors.Join(errs...))
	}
	return pol, nil
}

func (a *App) connectors(cfg *config.Config, deps Deps, awsProfile func() (*common.ProfileConfig, error)) (connector.Set, error) {
	if deps.Connectors != nil {
		return *deps.Connectors, nil
	}
	switch cfg.Connector.Provider {
	case "memory":
		f, err := memory.LoadFixture(cfg.Connector.Fixture)
		if err != nil {
			return connector.Set{}, err
		}
		return memory.New(f).Connectors(), nil
	case "aws":
		p, err := awsProfile()
		if err != nil {
			return connector.Set{}, err
		}
		a.Logger.Info("using AWS provider", "profile", p.ProfileName, "account", p.AccountID, "bucket", cfg.AWS.Bucket)
		return connector.Set{
			Storage:  awsstorage.New(p.Clients.S3, cfg.AWS.Bucket),
			Identity: awsidentity.New(p.Clients.STS, p.Clients.IAM),
		}, nil
	}
	return connector.Set{}, fmt.Errorf("unknown connector provider %q", cfg.Connector.Provider)
}

func (a *App) sinks(cfg *config.Config, deps Deps, awsProfile func() (*common.ProfileConfig, error)) (audit.Sink, error) {
	sinks := audit.Multi{audit.LogSink{Logger: a.Logger.With("component", "audit")}}

	if url := cfg.Events.NATSURL; url != "" {
		connect := deps.ConnectNATS
		if connect == nil {
			connect = connectNATS
		}
		pub, closeFn, err := connect(url)
		if err != nil {
			return nil, fmt.Errorf("connect to NATS %s: %w", url, err)
		}
		a.closers = append(a.closers, closeFn)
		sinks = append(sinks, audit.NewNATSSink(pub, cfg.Events.ScanSubject, cfg.Events.ActionSubject))
	}

	if cfg.Events.CloudWatch {
		p, err := awsProfile()
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, awscloudwatch.New(p.Clients.CloudWatch, cfg.Events.CloudWatchNamespace))
	}
	return sinks, nil
}

func connectNATS(url string) (audit.Publisher, func(), error) {
	nc, err := nats.Connect(url,
		nats.Name("accountguard"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, nil, err
	}
	return nc, func() { _ = nc.Drain() }, nil
}

// OpenStore opens the result store cfg selects. provider is only used by the
// configmap store; nil means the default kubeconfig.
func OpenStore(ctx context.Context, cfg config.StoreConfig, provider kube.ClientProvider) (store.Store, error) {
	switch cfg.Kind {
	case "memory":
		return store.NewMemory(), nil
	case "file":
		return store.NewFileStore(cfg.Dir), nil
	case "configmap":
		if provider == nil {
			provider = kube.DefaultClientProvider{Path: cfg.Kubeconfig}
		}
		clientset, info, err := provider.ClientsetForContext(cfg.Context)
		if err != nil {
			return nil, err
		}
		ns := cfg.Namespace
		if ns == "" {
			ns = info.Namespace
		}
		if err := kube.CheckStoreAccess(ctx, clientset, ns); err != nil {
			return nil, fmt.Errorf("configmap store in context %q: %w", info.ContextName, err)
		}
		return store.NewConfigMapStore(clientset, ns, cfg.Name), nil
	}
	return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
}

// Close releases event bus connections.
func (a *App) Close() {
	for _, c := range slices.Backward(a.closers) {
		c()
	}
	a.closers = nil
}

// Scan analyses the given sources, or every source when none is given, and
// persists the result. A failed save is logged; the result is still
// returned.
func (a *App) Scan(ctx context.Context, sources ...models.Source) (*models.AnalysisResult, error) {
	if len(sources) == 0 {
		sources = models.AllSources()
	}
	r, err := a.Scanner.ScanSources(ctx, sources...)
	if r == nil {
		return nil, err
	}
	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	if saveErr := a.Store.Save(context.WithoutCancel(ctx), r); saveErr != nil {
		a.Logger.Error("save scan result", "scan_id", r.ID, "error", saveErr)
	}
	return r, err
}

// Latest returns the stored result of the most recent scan.
func (a *App) Latest(ctx context.Context) (*models.AnalysisResult, error) {
	return a.Store.Latest(ctx)
}

// Remediate fixes the named issues of the latest stored result, or every
// auto-fixable issue when all is set. The remediated issues are removed
// from the stored result unless a newer scan was stored meanwhile.
func (a *App) Remediate(ctx context.Context, ids []string, all bool) (*models.RemediationReport, error) {
	latest, err := a.Store.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest scan: %w", err)
	}

	var issues []models.SecurityIssue
	if all {
		issues = latest.AutoFixable()
	} else {
		for _, id := range ids {
			issue, found := latest.Issue(id)
			if !found {
				return nil, fmt.Errorf("%w: %s", ErrUnknownIssue, id)
			}
			if err := issue.CheckFix(); err != nil {
				return nil, fmt.Errorf("issue %s: %w", id, err)
			}
			issues = append(issues, issue)
		}
	}

	report := a.Fixer.AutoFixMultiple(ctx, issues)
	if fixed := report.Remediated(); len(fixed) > 0 {
		a.saveRemediated(context.WithoutCancel(ctx), latest, fixed)
	}
	return report, nil
}

func (a *App) saveRemediated(ctx context.Context, base *models.AnalysisResult, fixed []string) {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	current, err := a.Store.Latest(ctx)
	if err != nil {
		a.Logger.Error("reload latest scan", "scan_id", base.ID, "error", err)
		return
	}
	if current.ID != base.ID {
		a.Logger.Info("newer scan stored during remediation; keeping it",
			"remediated_scan_id", base.ID,
			"stored_scan_id", current.ID,
		)
		return
	}
	next := engine.Without(current, fixed...)
	if err := a.Store.Save(ctx, next); err != nil {
		a.Logger.Error("save remediated result", "scan_id", next.ID, "error", err)
	}
}
