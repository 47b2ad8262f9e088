package rules

import (
	"fmt"
	"regexp"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// phishingPatterns match subject lines using account-verification, urgency,
// prize and payment lures. Matching is case-insensitive.
var phishingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)verify.*account`),
	regexp.MustCompile(`(?i)account.*verif`),
	regexp.MustCompile(`(?i)confirm.*identity`),
	regexp.MustCompile(`(?i)suspend.*account`),
	regexp.MustCompile(`(?i)account.*suspend`),
	regexp.MustCompile(`(?i)verify.*immediately`),
	regexp.MustCompile(`(?i)urgent.*action`),
	regexp.MustCompile(`(?i)click.*here.*immediately`),
	regexp.MustCompile(`(?i)prize.*won`),
	regexp.MustCompile(`(?i)inheritance`),
	regexp.MustCompile(`(?i)nigerian prince`),
	regexp.MustCompile(`(?i)password.*expire`),
	regexp.MustCompile(`(?i)unusual.*activity`),
	regexp.MustCompile(`(?i)security.*alert`),
	regexp.MustCompile(`(?i)update.*payment`),
	regexp.MustCompile(`(?i)congratulations.*winner`),
}

// IsPhishingSubject reports whether subject matches any phishing pattern.
func IsPhishingSubject(subject string) bool {
	for _, p := range phishingPatterns {
		if p.MatchString(subject) {
			return true
		}
	}
	return false
}

// MailPhishingSubjectRule flags inspected unread messages whose subject looks
// like a phishing lure. A message produces at most one issue however many
// patterns it matches.
type MailPhishingSubjectRule struct{}

func (r MailPhishingSubjectRule) ID() string            { return "MAIL_PHISHING_SUBJECT" }
func (r MailPhishingSubjectRule) Name() string          { return "Phishing-Like Unread Message" }
func (r MailPhishingSubjectRule) Source() models.Source { return models.SourceMail }

// Evaluate returns one HIGH issue per matching message with a DeleteMessage fix.
func (r MailPhishingSubjectRule) Evaluate(ctx RuleContext) []models.SecurityIssue {
	if ctx.Mail == nil {
		return nil
	}
	var issues []models.SecurityIssue
	for _, m := range ctx.Mail.Messages {
		subject := m.Header("Subject")
		if !IsPhishingSubject(subject) {
			continue
		}
		issues = append(issues, models.SecurityIssue{
			ID:               "email-" + m.ID,
			RuleID:           r.ID(),
			Source:           r.Source(),
			Severity:         models.SeverityHigh,
			Category:         models.CategoryEmailSecurity,
			Title:            "Potential Phishing Email Detected",
			Description:      fmt.Sprintf("Email with subject %q from %s shows signs of phishing", subject, m.Header("From")),
			Recommendation:   "Delete this email and do not click any links",
			AffectedItem:     models.MessageItem(m.ID),
			AutoFixAvailable: true,
			AutoFixAction:    models.DeleteMessage(),
		})
	}
	return issues
}
