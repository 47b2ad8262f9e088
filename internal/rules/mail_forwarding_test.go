package rules

import (
	"testing"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

func TestMailForwardingRule_AcceptedOnly(t *testing.T) {
	ctx := RuleContext{Mail: &models.MailSnapshot{Forwarding: []models.ForwardingAddress{
		{Email: "me@backup.example", VerificationStatus: models.VerificationAccepted},
		{Email: "pending@example", VerificationStatus: models.VerificationPending},
	}}}

	issues := MailForwardingRule{}.Evaluate(ctx)

	if len(issues) != 1 {
		t.Fatalf("want 1 issue, got %d", len(issues))
	}
	if issues[0].ID != "forward-me@backup.example" {
		t.Errorf("ID = %q; want forward-me@backup.example", issues[0].ID)
	}
	if issues[0].Severity != models.SeverityCritical {
		t.Errorf("Severity = %q; want CRITICAL", issues[0].Severity)
	}
	if issues[0].AutoFixAvailable {
		t.Error("forwarding issues must not offer an automatic fix")
	}
}

func TestMailFilterForwardRule(t *testing.T) {
	ctx := RuleContext{Mail: &models.MailSnapshot{Filters: []models.MailFilter{
		{ID: "f1", Criteria: "from:bank", Forward: "thief@evil.example"},
		{ID: "f2", Criteria: "from:newsletter"},
	}}}

	issues := MailFilterForwardRule{}.Evaluate(ctx)

	if len(issues) != 1 {
		t.Fatalf("want 1 issue, got %d", len(issues))
	}
	if issues[0].ID != "filter-f1" {
		t.Errorf("ID = %q; want filter-f1", issues[0].ID)
	}
	if issues[0].Severity != models.SeverityHigh {
		t.Errorf("Severity = %q; want HIGH", issues[0].Severity)
	}
	if issues[0].AffectedItem.Kind != models.ItemFilter {
		t.Errorf("AffectedItem.Kind = %q; want filter", issues[0].AffectedItem.Kind)
	}
}
