package engine

import "github.com/pankaj-dahiya-devops/accountguard/internal/models"

// Score weights per severity. INFO issues do not affect the score.
const (
	criticalWeight = 15
	highWeight     = 10
	mediumWeight   = 5
	lowWeight      = 2
)

// Score returns 100 minus the weighted issue counts, clamped to [0, 100].
func Score(c models.SeverityCounts) int {
	s := 100 - criticalWeight*c.Critical - highWeight*c.High - mediumWeight*c.Medium - lowWeight*c.Low
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// CountBySeverity tallies issues per severity.
func CountBySeverity(issues []models.SecurityIssue) models.SeverityCounts {
	var c models.SeverityCounts
	for _, i := range issues {
		switch i.Severity {
		case models.SeverityCritical:
			c.Critical++
		case models.SeverityHigh:
			c.High++
		case models.SeverityMedium:
			c.Medium++
		case models.SeverityLow:
			c.Low++
		case models.SeverityInfo:
			c.Info++
		}
	}
	return c
}
