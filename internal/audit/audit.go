// Package audit emits events for completed scans and executed remediation
// actions. Sinks never fail the operation that produced the event; delivery
// errors are returned for the caller to log.
package audit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// Sink receives audit events.
type Sink interface {
	ScanCompleted(ctx context.Context, r *models.AnalysisResult) error
	ActionExecuted(ctx context.Context, reportID string, d models.RemediationDetail) error
}

// LogSink writes every event as a structured log record.
type LogSink struct {
	Logger *slog.Logger
}

// ScanCompleted implements Sink.
func (s LogSink) ScanCompleted(ctx context.Context, r *models.AnalysisResult) error {
	s.Logger.InfoContext(ctx, "scan completed",
		"scan_id", r.ID,
		"issues", len(r.Issues),
		"score", r.Score,
		"warnings", len(r.Warnings),
	)
	return nil
}

// ActionExecuted implements Sink.
func (s LogSink) ActionExecuted(ctx context.Context, reportID string, d models.RemediationDetail) error {
	level := slog.LevelInfo
	if !d.Success {
		level = slog.LevelWarn
	}
	s.Logger.Log(ctx, level, "remediation action executed",
		"report_id", reportID,
		"issue_id", d.IssueID,
		"action", d.Action,
		"success", d.Success,
		"already_remediated", d.AlreadyRemediated,
		"reapplied", d.Reapplied,
		"error", d.Error,
	)
	return nil
}

// Multi fans every event out to all sinks and joins their errors.
type Multi []Sink

// ScanCompleted implements Sink.
func (m Multi) ScanCompleted(ctx context.Context, r *models.AnalysisResult) error {
	var errs []error
	for _, s := range m {
		if err := s.ScanCompleted(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ActionExecuted implements Sink.
func (m Multi) ActionExecuted(ctx context.Context, reportID string, d models.RemediationDetail) error {
	var errs []error
	for _, s := range m {
		if err := s.ActionExecuted(ctx, reportID, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every event.
type Nop struct{}

func (Nop) ScanCompleted(context.Context, *models.AnalysisResult) error { return nil }
func (Nop) ActionExecuted(context.Context, string, models.RemediationDetail) error {
	return nil
}
