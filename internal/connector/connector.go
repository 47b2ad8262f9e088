// Package connector defines the capability-bounded interfaces the scanner
// reads from and the remediation orchestrator mutates through.
//
// Implementations live under internal/providers. Every method takes a
// context; mutations must be idempotent or safely retryable, and every
// returned error should be a *Error so callers can branch on its Kind.
package connector

import (
	"context"
	"time"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// MailConnector reads a mailbox and applies message-level remediations.
type MailConnector interface {
	ListUnread(ctx context.Context, limit int) ([]models.MessageRef, error)
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	GetForwardingAddresses(ctx context.Context) ([]models.ForwardingAddress, error)
	ListFilters(ctx context.Context) ([]models.MailFilter, error)
	DeleteMessage(ctx context.Context, id string) error
	MarkAsSpam(ctx context.Context, id string) error
}

// MediaConnector reads owned videos and changes their visibility.
type MediaConnector interface {
	ListOwnedVideos(ctx context.Context) ([]models.VideoSummary, error)
	GetVideoDetails(ctx context.Context, id string) (*models.Video, error)
	// SetPrivacy changes only the privacy status; other metadata is preserved.
	SetPrivacy(ctx context.Context, id string, privacy models.MediaPrivacy) error
}

// FileStorageConnector reads files with their sharing permissions and
// revokes or narrows them.
type FileStorageConnector interface {
	ListFiles(ctx context.Context, pageSize int) ([]models.File, error)
	GetPermissions(ctx context.Context, fileID string) ([]models.Permission, error)
	DeletePermission(ctx context.Context, fileID, permID string) error
	SetPermissionRole(ctx context.Context, fileID, permID string, role models.PermissionRole) error
}

// CalendarConnector reads calendar ACLs and removes ACL rules.
type CalendarConnector interface {
	ListCalendars(ctx context.Context) ([]models.Calendar, error)
	GetACL(ctx context.Context, calendarID string) ([]models.ACLRule, error)
	DeleteACLRule(ctx context.Context, calendarID, ruleID string) error
}

// IdentityConnector describes the authenticated principal.
type IdentityConnector interface {
	GetIdentity(ctx context.Context) (*models.Identity, error)
}

// Set bundles the connectors of one scan session. A nil field means the
// source is not configured and is skipped by the scanner.
type Set struct {
	Mail     MailConnector
	Media    MediaConnector
	Storage  FileStorageConnector
	Calendar CalendarConnector
	Identity IdentityConnector
}

// Has reports whether the connector backing src is configured.
func (s Set) Has(src models.Source) bool {
	switch src {
	case models.SourceMail:
		return s.Mail != nil
	case models.SourceMedia:
		return s.Media != nil
	case models.SourceStorage:
		return s.Storage != nil
	case models.SourceCalendar:
		return s.Calendar != nil
	case models.SourceIdentity:
		return s.Identity != nil
	}
	return false
}

// Credentials is the explicit credential object a provider is built from.
// Token acquisition and refresh happen outside this module.
type Credentials struct {
	Subject   string    `json:"subject" yaml:"subject"`
	Token     string    `json:"-" yaml:"token"`
	ExpiresAt time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// Expired reports whether the credentials have a deadline that has passed.
func (c Credentials) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}
