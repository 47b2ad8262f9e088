// Package render provides presentation-layer helpers for accountguard CLI output.
// It is a pure rendering package: no scoring, no connector calls.
package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// RenderIssueExplanation writes a structured breakdown of a single issue to
// w, followed by the hardening advice for its category.
//
// Example output:
//
//	ISSUE email-m1 (HIGH, EMAIL_SECURITY)
//	Title: Potential phishing email detected
//	Rule: MAIL_PHISHING_SUSPECTED
//	Affected: message:m1
//
//	Suspicious email from security@examp1e.com: "Your account will be suspended"
//
//	Fix: Delete this email and do not click any links.
//	Auto-fix: DELETE_MESSAGE (run: ag remediate --issue email-m1)
//
//	Related advice (3):
//	  ✓ Enable 2-Step Verification
func RenderIssueExplanation(w io.Writer, issue models.SecurityIssue, advice []models.Recommendation) {
	fmt.Fprintf(w, "ISSUE %s (%s, %s)\n", issue.ID, issue.Severity, issue.Category)
	fmt.Fprintf(w, "Title: %s\n", issue.Title)
	fmt.Fprintf(w, "Rule: %s\n", issue.RuleID)
	fmt.Fprintf(w, "Affected: %s\n", issue.AffectedItem)
	fmt.Fprintln(w)
	fmt.Fprintln(w, issue.Description)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Fix: %s\n", issue.Recommendation)

	if issue.CheckFix() == nil {
		fmt.Fprintf(w, "Auto-fix: %s (run: ag remediate --issue %s)\n", issue.AutoFixAction, issue.ID)
	} else {
		fmt.Fprintln(w, "Auto-fix: not available")
	}

	if len(advice) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Related advice (%d):\n", len(advice))
	for _, rec := range advice {
		fmt.Fprintf(w, "  ✓ %s\n", rec.Title)
	}
}

// WriteExplainJSON writes the issue explanation as indented JSON to w.
//
// When issue is non-nil, the output is:
//
//	{"issue": { ...issue fields... }, "advice": [ ... ]}
//
// When issue is nil (ID not found in the result), the output is:
//
//	{"error": "No issue found with id X"}
func WriteExplainJSON(w io.Writer, issue *models.SecurityIssue, advice []models.Recommendation, id string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if issue == nil {
		return enc.Encode(map[string]string{
			"error": fmt.Sprintf("No issue found with id %s", id),
		})
	}
	return enc.Encode(map[string]any{
		"issue":  issue,
		"advice": advice,
	})
}
