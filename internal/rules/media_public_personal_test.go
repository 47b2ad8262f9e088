package rules

import (
	"testing"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

func TestMediaPublicPersonalRule(t *testing.T) {
	ctx := RuleContext{Media: &models.MediaSnapshot{Videos: []models.Video{
		{ID: "v1", Title: "Family BBQ 2024", Privacy: models.PrivacyPublic},
		{ID: "v2", Title: "Kids birthday", Privacy: models.PrivacyPrivate},
		{ID: "v3", Title: "Conference talk", Privacy: models.PrivacyPublic},
		{ID: "v4", Title: "Our new HOME tour", Privacy: models.PrivacyPublic},
	}}}

	issues := MediaPublicPersonalRule{}.Evaluate(ctx)

	if len(issues) != 2 {
		t.Fatalf("want 2 issues (v1, v4), got %d", len(issues))
	}
	if issues[0].ID != "video-v1" || issues[1].ID != "video-v4" {
		t.Errorf("IDs = %q, %q; want video-v1, video-v4", issues[0].ID, issues[1].ID)
	}
	a := issues[0].AutoFixAction
	if a == nil || a.Kind != models.FixSetMediaPrivacy || a.Privacy != models.PrivacyPrivate {
		t.Errorf("AutoFixAction = %v; want SET_MEDIA_PRIVACY(private)", a)
	}
	if issues[0].Severity != models.SeverityMedium || issues[0].Category != models.CategoryPrivacy {
		t.Errorf("got %s/%s; want MEDIUM/PRIVACY", issues[0].Severity, issues[0].Category)
	}
}
