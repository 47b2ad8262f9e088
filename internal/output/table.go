package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// ANSI color codes for severity output (used when Colored=true).
const (
	ansiReset   = "\033[0m"
	ansiBoldRed = "\033[1;31m"
	ansiRed     = "\033[0;31m"
	ansiYellow  = "\033[0;33m"
	ansiBlue    = "\033[0;34m"
	ansiGreen   = "\033[0;32m"
)

// TableOptions controls which columns RenderIssues renders and how severity is coloured.
type TableOptions struct {
	// Colored wraps severity labels with ANSI codes. Default false (CI-safe).
	Colored bool

	// IncludeSource adds a SOURCE column.
	IncludeSource bool

	// IncludeFix adds a FIX column naming the auto-fix action, or "-".
	IncludeFix bool
}

// ColorSeverity wraps a severity string with ANSI codes when colored is true.
// When colored is false the string is returned unchanged (CI-safe default).
func ColorSeverity(sev models.Severity, colored bool) string {
	code := severityCode(sev)
	if !colored || code == "" {
		return string(sev)
	}
	return code + string(sev) + ansiReset
}

func severityCode(sev models.Severity) string {
	switch sev {
	case models.SeverityCritical:
		return ansiBoldRed
	case models.SeverityHigh:
		return ansiRed
	case models.SeverityMedium:
		return ansiYellow
	case models.SeverityLow:
		return ansiBlue
	}
	return ""
}

// ShortenMessage truncates msg to at most limit runes, appending "..." when truncated.
// limit is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, limit int) string {
	limit = max(limit, 4)
	runes := []rune(msg)
	if len(runes) <= limit {
		return msg
	}
	return string(runes[:limit-3]) + "..."
}

// severityCell returns the severity padded to width characters.
// When colored, ANSI codes wrap only the text; trailing padding spaces are plain
// so subsequent columns stay visually aligned regardless of terminal ANSI support.
func severityCell(sev models.Severity, width int, colored bool) string {
	text := string(sev)
	code := severityCode(sev)
	if !colored || code == "" {
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := max(width-len(text), 0)
	return code + text + ansiReset + strings.Repeat(" ", spaces)
}

// truncateField shortens s to at most limit runes for ID/label columns.
// A single-char ellipsis replaces the last rune when truncation occurs.
func truncateField(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

// RenderIssues writes a formatted issues table to w.
// Columns are dynamically selected based on opts; the separator line width is
// derived from the header row so all rows align correctly.
//
// Column order:
//
//	ISSUE ID  [SOURCE]  SEVERITY  CATEGORY  TITLE  [FIX]
func RenderIssues(w io.Writer, issues []models.SecurityIssue, opts TableOptions) {
	if len(issues) == 0 {
		fmt.Fprintln(w, "No issues.")
		return
	}

	const (
		wID       = 34
		wSource   = 9
		wSeverity = 9
		wCategory = 19
		wTitle    = 45
		wFix      = 32
	)

	var hb strings.Builder
	fmt.Fprintf(&hb, "%-*s", wID, "ISSUE ID")
	if opts.IncludeSource {
		fmt.Fprintf(&hb, "  %-*s", wSource, "SOURCE")
	}
	fmt.Fprintf(&hb, "  %-*s", wSeverity, "SEVERITY")
	fmt.Fprintf(&hb, "  %-*s", wCategory, "CATEGORY")
	fmt.Fprintf(&hb, "  %-*s", wTitle, "TITLE")
	if opts.IncludeFix {
		hb.WriteString("  FIX")
	}
	header := hb.String()

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, i := range issues {
		var rb strings.Builder
		fmt.Fprintf(&rb, "%-*s", wID, truncateField(i.ID, wID))
		if opts.IncludeSource {
			fmt.Fprintf(&rb, "  %-*s", wSource, i.Source)
		}
		rb.WriteString("  " + severityCell(i.Severity, wSeverity, opts.Colored))
		fmt.Fprintf(&rb, "  %-*s", wCategory, truncateField(string(i.Category), wCategory))
		fmt.Fprintf(&rb, "  %-*s", wTitle, ShortenMessage(i.Title, wTitle))
		if opts.IncludeFix {
			fix := "-"
			if i.AutoFixAvailable && i.AutoFixAction != nil {
				fix = truncateField(i.AutoFixAction.String(), wFix)
			}
			rb.WriteString("  " + fix)
		}
		fmt.Fprintln(w, strings.TrimRight(rb.String(), " "))
	}
}

// RenderSummary writes the score line, per-severity counts, and any source
// warnings of r.
//
// Example output:
//
//	Security score: 65/100 (scan scan-1c0e..., 4 issues)
//	CRITICAL 0  HIGH 2  MEDIUM 2  LOW 0  INFO 0
//	WARNING mail: unauthorized: list unread messages: ...
func RenderSummary(w io.Writer, r *models.AnalysisResult, colored bool) {
	fmt.Fprintf(w, "Security score: %d/100 (scan %s, %d issues)\n", r.Score, r.ID, r.Counts.Total())
	cells := make([]string, 0, len(models.AllSeverities()))
	for _, sev := range models.AllSeverities() {
		cells = append(cells, fmt.Sprintf("%s %d", ColorSeverity(sev, colored), r.Counts.Get(sev)))
	}
	fmt.Fprintln(w, strings.Join(cells, "  "))
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "WARNING %s: %s: %s\n", warn.Source, warn.Kind, warn.Message)
	}
}

// RenderReport writes one line per remediation action followed by the
// batch totals.
func RenderReport(w io.Writer, r *models.RemediationReport, colored bool) {
	if len(r.Details) == 0 {
		fmt.Fprintln(w, "No auto-fixable issues.")
		return
	}

	const (
		wID     = 34
		wAction = 20
		wResult = 8
	)

	header := fmt.Sprintf("%-*s  %-*s  %-*s  DETAIL", wID, "ISSUE ID", wAction, "ACTION", wResult, "RESULT")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, d := range r.Details {
		action := string(d.Action)
		if action == "" {
			action = "-"
		}
		result, code, detail := "FAILED", ansiRed, d.Error
		if d.Success {
			result, code, detail = "OK", ansiGreen, d.Message
		}
		cell := fmt.Sprintf("%-*s", wResult, result)
		if colored {
			cell = code + result + ansiReset + strings.Repeat(" ", wResult-len(result))
		}
		fmt.Fprintf(w, "%-*s  %-*s  %s  %s\n", wID, truncateField(d.IssueID, wID), wAction, action, cell, detail)
	}
	fmt.Fprintf(w, "\n%d total, %d successful, %d failed\n", r.Total, r.Successful, r.Failed)
}

// RenderRecommendations writes a numbered list of recommendations.
func RenderRecommendations(w io.Writer, recs []models.Recommendation) {
	for n, rec := range recs {
		fmt.Fprintf(w, "%d. [%s] %s\n", n+1, strings.ToUpper(string(rec.Priority)), rec.Title)
		fmt.Fprintf(w, "   %s\n", rec.Description)
	}
}
