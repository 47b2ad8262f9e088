package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// MailForwardingRule flags forwarding addresses that have been accepted and
// can therefore receive a copy of incoming mail.
type MailForwardingRule struct{}

func (r MailForwardingRule) ID() string            { return "MAIL_FORWARDING_ENABLED" }
func (r MailForwardingRule) Name() string          { return "Mail Forwarding Enabled" }
func (r MailForwardingRule) Source() models.Source { return models.SourceMail }

// Evaluate returns one CRITICAL issue per accepted forwarding address.
// Pending addresses are skipped. No automatic fix is offered.
func (r MailForwardingRule) Evaluate(ctx RuleContext) []models.SecurityIssue {
	if ctx.Mail == nil {
		return nil
	}
	var issues []models.SecurityIssue
	for _, addr := range ctx.Mail.Forwarding {
		if addr.VerificationStatus != models.VerificationAccepted {
			continue
		}
		issues = append(issues, models.SecurityIssue{
			ID:             "forward-" + addr.Email,
			RuleID:         r.ID(),
			Source:         r.Source(),
			Severity:       models.SeverityCritical,
			Category:       models.CategoryEmailSecurity,
			Title:          "Email Forwarding Enabled",
			Description:    fmt.Sprintf("Emails are being forwarded to %s", addr.Email),
			Recommendation: "Review and disable forwarding if not authorized",
			AffectedItem:   models.ForwardingItem(addr.Email),
		})
	}
	return issues
}

// MailFilterForwardRule flags mail filters whose action forwards messages.
type MailFilterForwardRule struct{}

func (r MailFilterForwardRule) ID() string            { return "MAIL_FILTER_FORWARDS" }
func (r MailFilterForwardRule) Name() string          { return "Mail Filter Forwards Messages" }
func (r MailFilterForwardRule) Source() models.Source { return models.SourceMail }

func (r MailFilterForwardRule) Evaluate(ctx RuleContext) []models.SecurityIssue {
	if ctx.Mail == nil {
		return nil
	}
	var issues []models.SecurityIssue
	for _, f := range ctx.Mail.Filters {
		if f.Forward == "" {
			continue
		}
		issues = append(issues, models.SecurityIssue{
			ID:             "filter-" + f.ID,
			RuleID:         r.ID(),
			Source:         r.Source(),
			Severity:       models.SeverityHigh,
			Category:       models.CategoryEmailSecurity,
			Title:          "Suspicious Email Filter Detected",
			Description:    fmt.Sprintf("Filter automatically forwarding emails to %s", f.Forward),
			Recommendation: "Review and remove unauthorized filters",
			AffectedItem:   models.FilterItem(f.ID),
		})
	}
	return issues
}
