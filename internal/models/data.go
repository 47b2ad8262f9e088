package models

import "strings"

// This file holds the raw data returned by connectors and the per-source
// snapshots collectors assemble from it. Rules read snapshots only.

// MessageRef identifies an unread message returned by a listing call.
type MessageRef struct {
	ID       string `json:"id" yaml:"id"`
	ThreadID string `json:"thread_id,omitempty" yaml:"thread_id,omitempty"`
}

// Header is a single message header.
type Header struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Message is a mail message including its headers.
type Message struct {
	ID       string   `json:"id" yaml:"id"`
	ThreadID string   `json:"thread_id,omitempty" yaml:"thread_id,omitempty"`
	Subject  string   `json:"subject,omitempty" yaml:"subject,omitempty"`
	From     string   `json:"from,omitempty" yaml:"from,omitempty"`
	Unread   bool     `json:"unread" yaml:"unread"`
	Labels   []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Headers  []Header `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Header returns the value of the first header called name (case-insensitive),
// falling back to the Subject/From fields for those two names.
func (m Message) Header(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	switch strings.ToLower(name) {
	case "subject":
		return m.Subject
	case "from":
		return m.From
	}
	return ""
}

const (
	VerificationAccepted = "accepted"
	VerificationPending  = "pending"
)

// ForwardingAddress is an address mail may be auto-forwarded to.
type ForwardingAddress struct {
	Email              string `json:"email" yaml:"email"`
	VerificationStatus string `json:"verification_status" yaml:"verification_status"`
}

// MailFilter is a server-side mail rule. Forward is the destination address
// when the filter's action forwards matching mail.
type MailFilter struct {
	ID       string `json:"id" yaml:"id"`
	Criteria string `json:"criteria,omitempty" yaml:"criteria,omitempty"`
	Forward  string `json:"forward,omitempty" yaml:"forward,omitempty"`
}

// VideoSummary is one entry from the owned-videos listing.
type VideoSummary struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

// Video carries the details needed to judge a video's exposure.
type Video struct {
	ID      string       `json:"id" yaml:"id"`
	Title   string       `json:"title" yaml:"title"`
	Privacy MediaPrivacy `json:"privacy" yaml:"privacy"`
}

// File is a stored file. Shared is true when anyone other than the owner
// holds a permission on it.
type File struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	MimeType string `json:"mime_type" yaml:"mime_type"`
	Shared   bool   `json:"shared" yaml:"shared"`
}

// PermissionType is the audience a permission is granted to.
type PermissionType string

const (
	PermissionAnyone PermissionType = "anyone"
	PermissionDomain PermissionType = "domain"
	PermissionUser   PermissionType = "user"
	PermissionGroup  PermissionType = "group"
)

// Permission is one sharing grant on a file.
type Permission struct {
	ID           string         `json:"id" yaml:"id"`
	Type         PermissionType `json:"type" yaml:"type"`
	Role         PermissionRole `json:"role" yaml:"role"`
	EmailAddress string         `json:"email_address,omitempty" yaml:"email_address,omitempty"`
	Domain       string         `json:"domain,omitempty" yaml:"domain,omitempty"`
}

// Calendar is a calendar the account can administer.
type Calendar struct {
	ID      string `json:"id" yaml:"id"`
	Summary string `json:"summary" yaml:"summary"`
}

// ScopeDefault is the ACL scope that applies to everyone.
const ScopeDefault = "default"

// ACLRule is one access-control entry on a calendar.
type ACLRule struct {
	ID         string `json:"id" yaml:"id"`
	Role       string `json:"role" yaml:"role"`
	ScopeType  string `json:"scope_type" yaml:"scope_type"`
	ScopeValue string `json:"scope_value,omitempty" yaml:"scope_value,omitempty"`
}

// Public reports whether the rule grants access to everyone.
func (r ACLRule) Public() bool {
	return r.ScopeType == ScopeDefault || r.ScopeType == "public"
}

// Identity describes the authenticated principal. MFAKnown is false when
// the provider cannot report MFA status for this kind of principal.
type Identity struct {
	Principal   string `json:"principal" yaml:"principal"`
	AccountID   string `json:"account_id,omitempty" yaml:"account_id,omitempty"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	MFAEnabled  bool   `json:"mfa_enabled" yaml:"mfa_enabled"`
	MFAKnown    bool   `json:"mfa_known" yaml:"mfa_known"`
}

// ── snapshots ────────────────────────────────────────────────────────────────

// MailSnapshot holds the inspected unread messages plus forwarding and
// filter configuration.
type MailSnapshot struct {
	Messages   []Message
	Forwarding []ForwardingAddress
	Filters    []MailFilter
	Skipped    int
}

// MediaSnapshot holds details for every owned video that could be read.
type MediaSnapshot struct {
	Videos  []Video
	Skipped int
}

// SharedFile pairs a shared file with its permission list.
type SharedFile struct {
	File        File
	Permissions []Permission
}

// StorageSnapshot holds every shared file and its permissions.
type StorageSnapshot struct {
	Files   []SharedFile
	Skipped int
}

// CalendarACL pairs a calendar with its ACL.
type CalendarACL struct {
	Calendar Calendar
	Rules    []ACLRule
}

// CalendarSnapshot holds the ACLs of every calendar the account could read.
// Skipped counts calendars whose ACL was forbidden.
type CalendarSnapshot struct {
	Calendars []CalendarACL
	Skipped   int
}

// IdentitySnapshot holds the authenticated principal.
type IdentitySnapshot struct {
	Identity *Identity
}
