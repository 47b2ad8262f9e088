package models

import "time"

// SeverityCounts holds the number of issues at each severity.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// Total returns the sum across all severities.
func (c SeverityCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low + c.Info
}

// Get returns the count for s.
func (c SeverityCounts) Get(s Severity) int {
	switch s {
	case SeverityCritical:
		return c.Critical
	case SeverityHigh:
		return c.High
	case SeverityMedium:
		return c.Medium
	case SeverityLow:
		return c.Low
	case SeverityInfo:
		return c.Info
	}
	return 0
}

// ScanWarning records a source whose detectors could not complete. Kind is
// the connector error kind (e.g. "unauthorized").
type ScanWarning struct {
	Source  Source `json:"source"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// AnalysisResult is the output of a single scan. A new value is produced per
// scan; callers never mutate one in place.
type AnalysisResult struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Issues    []SecurityIssue `json:"issues"`
	Counts    SeverityCounts  `json:"counts"`
	Score     int             `json:"score"`
	Warnings  []ScanWarning   `json:"warnings,omitempty"`
}

// Complete reports whether every scanned source finished without error.
func (r *AnalysisResult) Complete() bool {
	return len(r.Warnings) == 0
}

// Issue returns the issue with the given ID.
func (r *AnalysisResult) Issue(id string) (SecurityIssue, bool) {
	for _, i := range r.Issues {
		if i.ID == id {
			return i, true
		}
	}
	return SecurityIssue{}, false
}

// Filter returns the issues matching sev and cat. An empty value matches
// everything.
func (r *AnalysisResult) Filter(sev Severity, cat Category) []SecurityIssue {
	var out []SecurityIssue
	for _, i := range r.Issues {
		if sev != "" && i.Severity != sev {
			continue
		}
		if cat != "" && i.Category != cat {
			continue
		}
		out = append(out, i)
	}
	return out
}

// AutoFixable returns the issues that carry a dispatchable action.
func (r *AnalysisResult) AutoFixable() []SecurityIssue {
	var out []SecurityIssue
	for _, i := range r.Issues {
		if i.AutoFixAvailable && i.AutoFixAction != nil {
			out = append(out, i)
		}
	}
	return out
}

// RemediationDetail is the outcome of one remediation action.
type RemediationDetail struct {
	IssueID           string  `json:"issue_id"`
	Title             string  `json:"title"`
	Action            FixKind `json:"action,omitempty"`
	Success           bool    `json:"success"`
	Message           string  `json:"message,omitempty"`
	Error             string  `json:"error,omitempty"`
	AlreadyRemediated bool    `json:"already_remediated,omitempty"`
	// Reapplied marks a fix executed again after the same issue was
	// fixed recently.
	Reapplied  bool      `json:"reapplied,omitempty"`
	ExecutedAt time.Time `json:"executed_at"`
}

// RemediationReport summarises one batch of remediation actions.
// Successful + Failed always equals Total.
type RemediationReport struct {
	ID         string              `json:"id"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Total      int                 `json:"total"`
	Successful int                 `json:"successful"`
	Failed     int                 `json:"failed"`
	Details    []RemediationDetail `json:"details"`
}

// Remediated returns the IDs of issues whose action succeeded.
func (r *RemediationReport) Remediated() []string {
	var ids []string
	for _, d := range r.Details {
		if d.Success {
			ids = append(ids, d.IssueID)
		}
	}
	return ids
}

// Priority ranks a recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is static hardening advice for a category.
type Recommendation struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
}
