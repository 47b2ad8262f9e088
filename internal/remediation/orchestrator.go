// Package remediation executes the automated fix attached to an issue
// through the connector that owns the affected item.
package remediation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/pankaj-dahiya-devops/accountguard/internal/audit"
	"github.com/pankaj-dahiya-devops/accountguard/internal/connector"
	"github.com/pankaj-dahiya-devops/accountguard/internal/logging"
	"github.com/pankaj-dahiya-devops/accountguard/internal/metrics"
	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// DefaultDelay is the pause between two actions of a batch used by the
// configuration layer when none is set.
const DefaultDelay = time.Second

const (
	defaultDedupeSize = 256
	defaultDedupeTTL  = 10 * time.Minute
)

// Config carries the orchestrator's tunables and collaborators.
type Config struct {
	// Delay is the minimum spacing between actions of a batch. Zero
	// disables pacing.
	Delay time.Duration

	// DedupeSize and DedupeTTL bound the history of recent successful
	// fixes used to flag issues that come back. The history never skips a
	// provider call. Zero means 256 entries and 10 minutes.
	DedupeSize int
	DedupeTTL  time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Sink    audit.Sink

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Orchestrator dispatches fix actions. Batches run strictly sequentially,
// one at a time.
type Orchestrator struct {
	conns   connector.Set
	cfg     Config
	limiter *rate.Limiter
	recent  *expirable.LRU[string, models.RemediationDetail]
	batch   sync.Mutex
}

// NewOrchestrator returns an Orchestrator mutating through conns.
func NewOrchestrator(conns connector.Set, cfg Config) *Orchestrator {
	cfg.Logger = logging.OrDiscard(cfg.Logger)
	if cfg.Sink == nil {
		cfg.Sink = audit.Nop{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.DedupeSize <= 0 {
		cfg.DedupeSize = defaultDedupeSize
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = defaultDedupeTTL
	}
	every := rate.Inf
	if cfg.Delay > 0 {
		every = rate.Every(cfg.Delay)
	}
	return &Orchestrator{
		conns:   conns,
		cfg:     cfg,
		limiter: rate.NewLimiter(every, 1),
		recent:  expirable.NewLRU[string, models.RemediationDetail](cfg.DedupeSize, nil, cfg.DedupeTTL),
	}
}

// AutoFixIssue executes the fix attached to issue and reports the outcome.
// It never panics and never returns an error: every failure is described in
// the returned detail.
func (o *Orchestrator) AutoFixIssue(ctx context.Context, issue models.SecurityIssue) models.RemediationDetail {
	return o.fix(ctx, "", issue)
}

// AutoFixMultiple executes the fixes of every auto-fixable issue in order,
// pacing actions by the configured delay. A failed action never stops the
// batch; a cancelled context records every remaining issue as failed.
func (o *Orchestrator) AutoFixMultiple(ctx context.Context, issues []models.SecurityIssue) *models.RemediationReport {
	o.batch.Lock()
	defer o.batch.Unlock()

	report := &models.RemediationReport{
		ID:        "rem-" + uuid.NewString(),
		StartedAt: o.cfg.Clock().UTC(),
		Details:   []models.RemediationDetail{},
	}
	var fixable []models.SecurityIssue
	for _, i := range issues {
		if i.AutoFixAvailable && i.AutoFixAction != nil {
			fixable = append(fixable, i)
		}
	}

	for n, issue := range fixable {
		if err := o.limiter.Wait(ctx); err != nil {
			for _, rest := range fixable[n:] {
				report.Details = append(report.Details, o.cancelled(rest, ctxErr(ctx, err)))
			}
			break
		}
		report.Details = append(report.Details, o.fix(ctx, report.ID, issue))
	}

	report.FinishedAt = o.cfg.Clock().UTC()
	report.Total = len(report.Details)
	for _, d := range report.Details {
		if d.Success {
			report.Successful++
		} else {
			report.Failed++
		}
	}
	o.cfg.Logger.Info("remediation batch finished",
		"report_id", report.ID,
		"total", report.Total,
		"successful", report.Successful,
		"failed", report.Failed,
	)
	return report
}

func (o *Orchestrator) fix(ctx context.Context, reportID string, issue models.SecurityIssue) models.RemediationDetail {
	d := models.RemediationDetail{
		IssueID:    issue.ID,
		Title:      issue.Title,
		ExecutedAt: o.cfg.Clock().UTC(),
	}
	if issue.AutoFixAction != nil {
		d.Action = issue.AutoFixAction.Kind
	}

	if err := issue.CheckFix(); err != nil {
		d.Error = err.Error()
		return o.record(ctx, reportID, d)
	}

	if err := ctx.Err(); err != nil {
		d.Error = err.Error()
		return o.record(ctx, reportID, d)
	}

	err := o.execute(ctx, issue)
	switch {
	case err == nil:
		d.Success = true
		d.Message = successMessage(*issue.AutoFixAction)
	case connector.IsNotFound(err):
		d.Success = true
		d.AlreadyRemediated = true
		d.Message = "target no longer exists"
	default:
		d.Error = err.Error()
	}
	if d.Success {
		key := historyKey(issue)
		if prev, ok := o.recent.Get(key); ok && !d.AlreadyRemediated {
			d.Reapplied = true
			o.cfg.Logger.Warn("fix applied again within history window",
				"issue_id", d.IssueID,
				"action", d.Action,
				"previous_fix_at", prev.ExecutedAt,
			)
		}
		o.recent.Add(key, d)
	}
	return o.record(ctx, reportID, d)
}

// execute dispatches on the closed set of fix kinds. Adding a FixKind
// without a case here fails TestAutoFixIssue_EveryKindDispatched.
func (o *Orchestrator) execute(ctx context.Context, issue models.SecurityIssue) error {
	action, item := *issue.AutoFixAction, issue.AffectedItem
	switch action.Kind {
	case models.FixDeleteMessage:
		if o.conns.Mail == nil {
			return notAvailable(action.Kind)
		}
		return o.conns.Mail.DeleteMessage(ctx, item.MessageID)
	case models.FixMarkSpam:
		if o.conns.Mail == nil {
			return notAvailable(action.Kind)
		}
		return o.conns.Mail.MarkAsSpam(ctx, item.MessageID)
	case models.FixSetMediaPrivacy:
		if o.conns.Media == nil {
			return notAvailable(action.Kind)
		}
		return o.conns.Media.SetPrivacy(ctx, item.VideoID, action.Privacy)
	case models.FixRevokeSharing:
		if o.conns.Storage == nil {
			return notAvailable(action.Kind)
		}
		return o.conns.Storage.DeletePermission(ctx, item.FileID, item.PermissionID)
	case models.FixDowngradePermission:
		if o.conns.Storage == nil {
			return notAvailable(action.Kind)
		}
		return o.conns.Storage.SetPermissionRole(ctx, item.FileID, item.PermissionID, action.Role)
	case models.FixRemoveCalendarACL:
		if o.conns.Calendar == nil {
			return notAvailable(action.Kind)
		}
		return o.conns.Calendar.DeleteACLRule(ctx, item.CalendarID, item.RuleID)
	}
	return fmt.Errorf("%w: unknown action %q", models.ErrNoAutoFix, action.Kind)
}

func (o *Orchestrator) cancelled(issue models.SecurityIssue, err error) models.RemediationDetail {
	d := models.RemediationDetail{
		IssueID:    issue.ID,
		Title:      issue.Title,
		Action:     issue.AutoFixAction.Kind,
		Error:      err.Error(),
		ExecutedAt: o.cfg.Clock().UTC(),
	}
	o.cfg.Metrics.ObserveRemediation(d)
	return d
}

func (o *Orchestrator) record(ctx context.Context, reportID string, d models.RemediationDetail) models.RemediationDetail {
	o.cfg.Metrics.ObserveRemediation(d)
	level := slog.LevelInfo
	if !d.Success {
		level = slog.LevelWarn
	}
	o.cfg.Logger.Log(ctx, level, "remediation action",
		"issue_id", d.IssueID,
		"action", d.Action,
		"success", d.Success,
		"already_remediated", d.AlreadyRemediated,
		"error", d.Error,
	)
	if err := o.cfg.Sink.ActionExecuted(context.WithoutCancel(ctx), reportID, d); err != nil {
		o.cfg.Logger.Warn("remediation event not delivered", "issue_id", d.IssueID, "error", err)
	}
	return d
}

func historyKey(issue models.SecurityIssue) string {
	return issue.ID + "|" + issue.AutoFixAction.String()
}

func notAvailable(kind models.FixKind) error {
	return fmt.Errorf("%s: %w", kind, connector.ErrNotAvailable)
}

// ctxErr prefers the context's own error over the limiter's wrapping of it.
func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	return err
}

func successMessage(a models.FixAction) string {
	switch a.Kind {
	case models.FixDeleteMessage:
		return "message deleted"
	case models.FixMarkSpam:
		return "message marked as spam"
	case models.FixSetMediaPrivacy:
		return fmt.Sprintf("video set to %s", a.Privacy)
	case models.FixRevokeSharing:
		return "sharing permission removed"
	case models.FixDowngradePermission:
		return fmt.Sprintf("permission downgraded to %s", a.Role)
	case models.FixRemoveCalendarACL:
		return "calendar ACL rule removed"
	}
	return "done"
}
