package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// CalendarPublicACLRule flags calendar ACL rules that share with everyone.
type CalendarPublicACLRule struct{}

func (r CalendarPublicACLRule) ID() string            { return "CALENDAR_PUBLIC_ACL" }
func (r CalendarPublicACLRule) Name() string          { return "Calendar Shared Publicly" }
func (r CalendarPublicACLRule) Source() models.Source { return models.SourceCalendar }

func (r CalendarPublicACLRule) Evaluate(ctx RuleContext) []models.SecurityIssue {
	if ctx.Calendar == nil {
		return nil
	}
	var issues []models.SecurityIssue
	for _, c := range ctx.Calendar.Calendars {
		for _, rule := range c.Rules {
			if !rule.Public() {
				continue
			}
			issues = append(issues, models.SecurityIssue{
				ID:               fmt.Sprintf("cal-%s-%s", c.Calendar.ID, rule.ID),
				RuleID:           r.ID(),
				Source:           r.Source(),
				Severity:         models.SeverityMedium,
				Category:         models.CategoryPrivacy,
				Title:            "Calendar Publicly Shared",
				Description:      fmt.Sprintf("Calendar %q is shared publicly", c.Calendar.Summary),
				Recommendation:   "Restrict calendar sharing to specific people",
				AffectedItem:     models.CalendarACLItem(c.Calendar.ID, rule.ID),
				AutoFixAvailable: true,
				AutoFixAction:    models.RemoveCalendarACL(),
			})
		}
	}
	return issues
}
