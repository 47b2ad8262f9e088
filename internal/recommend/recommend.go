// Package recommend holds the static hardening advice shown next to scan
// results.
package recommend

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

var table = map[models.Category][]models.Recommendation{
	models.CategoryEmailSecurity: {
		{Title: "Enable 2-Step Verification", Description: "Add a second factor to the mailbox sign-in", Priority: models.PriorityHigh},
		{Title: "Review Email Filters", Description: "Look for forwarding or filtering rules you did not create", Priority: models.PriorityHigh},
		{Title: "Enable Advanced Protection", Description: "Use the strongest account protection offered for high-risk users", Priority: models.PriorityMedium},
	},
	models.CategoryFileSharing: {
		{Title: "Review All Shared Files", Description: "Audit shared files regularly and remove sharing that is no longer needed", Priority: models.PriorityHigh},
		{Title: "Use Link Sharing Carefully", Description: "Share with specific people rather than anyone with the link", Priority: models.PriorityMedium},
		{Title: "Set Expiration Dates", Description: "Prefer temporary access that expires on its own", Priority: models.PriorityLow},
	},
	models.CategoryPrivacy: {
		{Title: "Review Privacy Settings", Description: "Check the account privacy settings regularly", Priority: models.PriorityHigh},
		{Title: "Limit Public Content", Description: "Keep personal content private or unlisted", Priority: models.PriorityMedium},
	},
	models.CategoryAccountSecurity: {
		{Title: "Update Recovery Options", Description: "Keep the recovery email and phone number current", Priority: models.PriorityHigh},
		{Title: "Run a Security Checkup", Description: "Complete the provider's security checkup regularly", Priority: models.PriorityHigh},
	},
}

var fallback = []models.Recommendation{
	{Title: "Regular Security Audits", Description: "Run a posture scan at least monthly", Priority: models.PriorityMedium},
}

// For returns the recommendations for c. Categories without dedicated
// advice get the general entry.
func For(c models.Category) []models.Recommendation {
	if recs, ok := table[c]; ok {
		return slices.Clone(recs)
	}
	return slices.Clone(fallback)
}

// ForIssues returns the advice for every category present in issues, in
// category order, without duplicates.
func ForIssues(issues []models.SecurityIssue) []models.Recommendation {
	present := make(map[models.Category]bool)
	for _, i := range issues {
		present[i.Category] = true
	}
	var out []models.Recommendation
	seen := make(map[string]bool)
	for _, c := range models.AllCategories() {
		if !present[c] {
			continue
		}
		for _, r := range For(c) {
			if !seen[r.Title] {
				seen[r.Title] = true
				out = append(out, r)
			}
		}
	}
	return out
}

// ParseCategory accepts a category in any of the forms users type:
// "EMAIL_SECURITY", "email-security", "email security".
func ParseCategory(s string) (models.Category, error) {
	norm := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(s)))
	for _, c := range models.AllCategories() {
		if string(c) == norm {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}
