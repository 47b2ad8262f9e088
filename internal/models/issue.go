package models

import "fmt"

// Severity represents the impact level of a security issue.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// severityRank maps Severity values to sort keys (lower = more severe).
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

// Rank returns the sort key for s. Unknown severities sort after INFO.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// Valid reports whether s is one of the five known severities.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// AllSeverities returns every severity from most to least severe.
func AllSeverities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
}

// Category classifies what kind of weakness an issue describes.
type Category string

const (
	CategoryEmailSecurity      Category = "EMAIL_SECURITY"
	CategoryFileSharing        Category = "FILE_SHARING"
	CategoryPrivacy            Category = "PRIVACY"
	CategoryAccountSecurity    Category = "ACCOUNT_SECURITY"
	CategoryPermissions        Category = "PERMISSIONS"
	CategorySuspiciousActivity Category = "SUSPICIOUS_ACTIVITY"
)

// AllCategories returns every issue category in declaration order.
func AllCategories() []Category {
	return []Category{
		CategoryEmailSecurity,
		CategoryFileSharing,
		CategoryPrivacy,
		CategoryAccountSecurity,
		CategoryPermissions,
		CategorySuspiciousActivity,
	}
}

// Source identifies the connector a detector reads from. A scan fans out
// one unit of work per source.
type Source string

const (
	SourceMail     Source = "mail"
	SourceMedia    Source = "media"
	SourceStorage  Source = "storage"
	SourceCalendar Source = "calendar"
	SourceIdentity Source = "identity"
)

// AllSources returns every source in scan order.
func AllSources() []Source {
	return []Source{SourceMail, SourceMedia, SourceStorage, SourceCalendar, SourceIdentity}
}

// ItemKind tags the variant held by an AffectedItem.
type ItemKind string

const (
	ItemMessage     ItemKind = "message"
	ItemForwarding  ItemKind = "forwarding"
	ItemFilter      ItemKind = "filter"
	ItemVideo       ItemKind = "video"
	ItemPermission  ItemKind = "permission"
	ItemCalendarACL ItemKind = "calendar_acl"
	ItemPrincipal   ItemKind = "principal"
)

// AffectedItem names the provider object an issue refers to. Only the fields
// belonging to Kind are populated; use the constructors below.
type AffectedItem struct {
	Kind         ItemKind `json:"kind"`
	MessageID    string   `json:"message_id,omitempty"`
	Address      string   `json:"address,omitempty"`
	FilterID     string   `json:"filter_id,omitempty"`
	VideoID      string   `json:"video_id,omitempty"`
	FileID       string   `json:"file_id,omitempty"`
	PermissionID string   `json:"permission_id,omitempty"`
	CalendarID   string   `json:"calendar_id,omitempty"`
	RuleID       string   `json:"rule_id,omitempty"`
	Principal    string   `json:"principal,omitempty"`
}

func MessageItem(id string) AffectedItem { return AffectedItem{Kind: ItemMessage, MessageID: id} }
func ForwardingItem(addr string) AffectedItem {
	return AffectedItem{Kind: ItemForwarding, Address: addr}
}
func FilterItem(id string) AffectedItem { return AffectedItem{Kind: ItemFilter, FilterID: id} }
func VideoItem(id string) AffectedItem  { return AffectedItem{Kind: ItemVideo, VideoID: id} }
func PermissionItem(fileID, permID string) AffectedItem {
	return AffectedItem{Kind: ItemPermission, FileID: fileID, PermissionID: permID}
}
func CalendarACLItem(calendarID, ruleID string) AffectedItem {
	return AffectedItem{Kind: ItemCalendarACL, CalendarID: calendarID, RuleID: ruleID}
}
func PrincipalItem(principal string) AffectedItem {
	return AffectedItem{Kind: ItemPrincipal, Principal: principal}
}

// String renders the item as "<kind>:<ids>" for tables and logs.
func (a AffectedItem) String() string {
	switch a.Kind {
	case ItemMessage:
		return "message:" + a.MessageID
	case ItemForwarding:
		return "forwarding:" + a.Address
	case ItemFilter:
		return "filter:" + a.FilterID
	case ItemVideo:
		return "video:" + a.VideoID
	case ItemPermission:
		return fmt.Sprintf("permission:%s/%s", a.FileID, a.PermissionID)
	case ItemCalendarACL:
		return fmt.Sprintf("calendar_acl:%s/%s", a.CalendarID, a.RuleID)
	case ItemPrincipal:
		return "principal:" + a.Principal
	}
	return string(a.Kind)
}

// SecurityIssue is a single detected weakness. It is the atomic output unit
// of the rule engine and is never mutated after creation.
type SecurityIssue struct {
	// ID is stable for the same (category, affected item) across scans,
	// e.g. "email-<messageId>" or "file-<fileId>-<permId>".
	ID             string       `json:"id"`
	RuleID         string       `json:"rule_id"`
	Source         Source       `json:"source"`
	Severity       Severity     `json:"severity"`
	Category       Category     `json:"category"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Recommendation string       `json:"recommendation"`
	AffectedItem   AffectedItem `json:"affected_item"`

	AutoFixAvailable bool       `json:"auto_fix_available"`
	AutoFixAction    *FixAction `json:"auto_fix_action,omitempty"`
}

// CheckFix reports whether the issue's fix action can be dispatched: the
// action must be present and its payload must fit the affected item.
func (i SecurityIssue) CheckFix() error {
	if !i.AutoFixAvailable || i.AutoFixAction == nil {
		return ErrNoAutoFix
	}
	want, ok := i.AutoFixAction.TargetKind()
	if !ok {
		return fmt.Errorf("%w: unknown action %q", ErrNoAutoFix, i.AutoFixAction.Kind)
	}
	if want != i.AffectedItem.Kind {
		return fmt.Errorf("%w: %s needs a %s item, issue %s has %s",
			ErrActionMismatch, i.AutoFixAction.Kind, want, i.ID, i.AffectedItem.Kind)
	}
	if err := i.AutoFixAction.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrActionMismatch, err)
	}
	return nil
}
