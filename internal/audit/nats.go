package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// Default subjects for published events.
const (
	DefaultScanSubject   = "accountguard.scans"
	DefaultActionSubject = "accountguard.actions"
)

// Publisher is the subset of *nats.Conn the sink needs.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSSink publishes events as JSON messages.
type NATSSink struct {
	pub           Publisher
	scanSubject   string
	actionSubject string
}

// NewNATSSink returns a sink publishing through pub. Empty subjects fall back
// to the defaults.
func NewNATSSink(pub Publisher, scanSubject, actionSubject string) *NATSSink {
	if scanSubject == "" {
		scanSubject = DefaultScanSubject
	}
	if actionSubject == "" {
		actionSubject = DefaultActionSubject
	}
	return &NATSSink{pub: pub, scanSubject: scanSubject, actionSubject: actionSubject}
}

type scanEvent struct {
	ID       string                `json:"id"`
	Counts   models.SeverityCounts `json:"counts"`
	Score    int                   `json:"score"`
	Complete bool                  `json:"complete"`
	Warnings []models.ScanWarning  `json:"warnings,omitempty"`
}

type actionEvent struct {
	ReportID string `json:"report_id"`
	models.RemediationDetail
}

// ScanCompleted publishes a summary of r. Issue details stay local.
func (s *NATSSink) ScanCompleted(ctx context.Context, r *models.AnalysisResult) error {
	msg, err := s.message(ctx, s.scanSubject, scanEvent{
		ID:       r.ID,
		Counts:   r.Counts,
		Score:    r.Score,
		Complete: r.Complete(),
		Warnings: r.Warnings,
	})
	if err != nil {
		return err
	}
	msg.Header.Set("x-scan-id", r.ID)
	msg.Header.Set("x-score", strconv.Itoa(r.Score))
	return s.publish(msg)
}

// ActionExecuted publishes d.
func (s *NATSSink) ActionExecuted(ctx context.Context, reportID string, d models.RemediationDetail) error {
	msg, err := s.message(ctx, s.actionSubject, actionEvent{ReportID: reportID, RemediationDetail: d})
	if err != nil {
		return err
	}
	msg.Header.Set("x-report-id", reportID)
	msg.Header.Set("x-issue-id", d.IssueID)
	msg.Header.Set("x-action", string(d.Action))
	msg.Header.Set("x-success", strconv.FormatBool(d.Success))
	return s.publish(msg)
}

func (s *NATSSink) message(ctx context.Context, subject string, v any) (*nats.Msg, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal audit event: %w", err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	return msg, nil
}

func (s *NATSSink) publish(msg *nats.Msg) error {
	if err := s.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.Subject, err)
	}
	return nil
}
