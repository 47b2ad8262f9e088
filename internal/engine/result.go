package engine

import (
	"sort"
	"time"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
	"github.com/pankaj-dahiya-devops/accountguard/internal/policy"
)

var timeNow = time.Now

// buildResult assembles an AnalysisResult from raw issues. Issues sharing an
// ID are collapsed (first wins), policy is applied, and the survivors are
// sorted CRITICAL → INFO with ties broken by ID so that two scans of the same
// state produce the same issue list.
func buildResult(issues []models.SecurityIssue, warnings []models.ScanWarning, pol *policy.PolicyConfig) *models.AnalysisResult {
	kept := policy.ApplyPolicy(dedupeIssues(issues), pol)
	out := make([]models.SecurityIssue, len(kept))
	copy(out, kept)
	sortIssues(out)

	counts := CountBySeverity(out)
	return &models.AnalysisResult{
		Issues:   out,
		Counts:   counts,
		Score:    Score(counts),
		Warnings: warnings,
	}
}

func dedupeIssues(issues []models.SecurityIssue) []models.SecurityIssue {
	seen := make(map[string]struct{}, len(issues))
	out := make([]models.SecurityIssue, 0, len(issues))
	for _, i := range issues {
		if _, dup := seen[i.ID]; dup {
			continue
		}
		seen[i.ID] = struct{}{}
		out = append(out, i)
	}
	return out
}

func sortIssues(issues []models.SecurityIssue) {
	sort.SliceStable(issues, func(a, b int) bool {
		ra, rb := issues[a].Severity.Rank(), issues[b].Severity.Rank()
		if ra != rb {
			return ra < rb
		}
		return issues[a].ID < issues[b].ID
	})
}

// Without returns a new result equal to r minus the issues whose IDs are
// listed, with counts and score recomputed. r is not modified.
func Without(r *models.AnalysisResult, ids ...string) *models.AnalysisResult {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := *r
	out.Issues = make([]models.SecurityIssue, 0, len(r.Issues))
	for _, i := range r.Issues {
		if _, ok := drop[i.ID]; !ok {
			out.Issues = append(out.Issues, i)
		}
	}
	out.Counts = CountBySeverity(out.Issues)
	out.Score = Score(out.Counts)
	return &out
}
