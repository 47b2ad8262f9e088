package render

import (
	"encoding/json"
	"io"
	"time"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// Summary is the header block of an exported report.
type Summary struct {
	ScanID      string                  `json:"scan_id"`
	ScannedAt   time.Time               `json:"scanned_at"`
	Score       int                     `json:"score"`
	TotalIssues int                     `json:"total_issues"`
	Counts      models.SeverityCounts   `json:"counts"`
	AutoFixable int                     `json:"auto_fixable"`
	Complete    bool                    `json:"complete"`
	Warnings    []models.ScanWarning    `json:"warnings,omitempty"`
	Advice      []models.Recommendation `json:"advice,omitempty"`
}

// Export is the downloadable report document.
type Export struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Summary     Summary                `json:"summary"`
	Issues      []models.SecurityIssue `json:"issues"`
}

// NewExport builds the export document for r. advice is attached to the
// summary unchanged; pass nil to omit it.
func NewExport(r *models.AnalysisResult, advice []models.Recommendation, now time.Time) Export {
	issues := r.Issues
	if issues == nil {
		issues = []models.SecurityIssue{}
	}
	return Export{
		GeneratedAt: now.UTC(),
		Summary: Summary{
			ScanID:      r.ID,
			ScannedAt:   r.Timestamp,
			Score:       r.Score,
			TotalIssues: r.Counts.Total(),
			Counts:      r.Counts,
			AutoFixable: len(r.AutoFixable()),
			Complete:    r.Complete(),
			Warnings:    r.Warnings,
			Advice:      advice,
		},
		Issues: issues,
	}
}

// WriteExportJSON writes the export document for r as indented JSON to w.
func WriteExportJSON(w io.Writer, r *models.AnalysisResult, advice []models.Recommendation, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewExport(r, advice, now))
}
