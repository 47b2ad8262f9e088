package rules

import (
	"fmt"
	"strings"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// personalKeywords mark a video title as likely personal content.
var personalKeywords = []string{"family", "private", "personal", "home", "kids", "children"}

// MediaPublicPersonalRule flags public videos whose title suggests personal
// content.
type MediaPublicPersonalRule struct{}

func (r MediaPublicPersonalRule) ID() string            { return "MEDIA_PUBLIC_PERSONAL" }
func (r MediaPublicPersonalRule) Name() string          { return "Personal Video Is Public" }
func (r MediaPublicPersonalRule) Source() models.Source { return models.SourceMedia }

// Evaluate returns one MEDIUM issue per matching public video, fixed by
// making the video private.
func (r MediaPublicPersonalRule) Evaluate(ctx RuleContext) []models.SecurityIssue {
	if ctx.Media == nil {
		return nil
	}
	var issues []models.SecurityIssue
	for _, v := range ctx.Media.Videos {
		if v.Privacy != models.PrivacyPublic || !hasPersonalKeyword(v.Title) {
			continue
		}
		issues = append(issues, models.SecurityIssue{
			ID:               "video-" + v.ID,
			RuleID:           r.ID(),
			Source:           r.Source(),
			Severity:         models.SeverityMedium,
			Category:         models.CategoryPrivacy,
			Title:            "Potentially Private Video is Public",
			Description:      fmt.Sprintf("Video %q is public but may contain personal content", v.Title),
			Recommendation:   `Change video privacy to "Private" or "Unlisted"`,
			AffectedItem:     models.VideoItem(v.ID),
			AutoFixAvailable: true,
			AutoFixAction:    models.SetMediaPrivacy(models.PrivacyPrivate),
		})
	}
	return issues
}

func hasPersonalKeyword(title string) bool {
	lower := strings.ToLower(title)
	for _, k := range personalKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
