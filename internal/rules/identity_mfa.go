package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// IdentityMFADisabledRule flags a principal known to have no MFA device.
// Principals whose MFA status cannot be determined are skipped.
type IdentityMFADisabledRule struct{}

func (r IdentityMFADisabledRule) ID() string            { return "IDENTITY_MFA_DISABLED" }
func (r IdentityMFADisabledRule) Name() string          { return "Account Without MFA" }
func (r IdentityMFADisabledRule) Source() models.Source { return models.SourceIdentity }

func (r IdentityMFADisabledRule) Evaluate(ctx RuleContext) []models.SecurityIssue {
	if ctx.Identity == nil || ctx.Identity.Identity == nil {
		return nil
	}
	id := ctx.Identity.Identity
	if !id.MFAKnown || id.MFAEnabled {
		return nil
	}
	return []models.SecurityIssue{{
		ID:             "mfa-" + id.Principal,
		RuleID:         r.ID(),
		Source:         r.Source(),
		Severity:       models.SeverityHigh,
		Category:       models.CategoryAccountSecurity,
		Title:          "Multi-Factor Authentication Disabled",
		Description:    fmt.Sprintf("Principal %s signs in without a second factor", id.Principal),
		Recommendation: "Enable 2-Factor Authentication",
		AffectedItem:   models.PrincipalItem(id.Principal),
	}}
}
