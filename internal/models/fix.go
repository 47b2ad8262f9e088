package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAutoFix is returned for issues that carry no dispatchable action.
	ErrNoAutoFix = errors.New("no auto-fix available")

	// ErrActionMismatch is returned when an action's payload does not fit
	// the issue's affected item (e.g. DeleteMessage on a permission).
	ErrActionMismatch = errors.New("fix action does not match affected item")
)

// FixKind is the closed set of automated remediations.
type FixKind string

const (
	FixDeleteMessage       FixKind = "DELETE_MESSAGE"
	FixMarkSpam            FixKind = "MARK_SPAM"
	FixSetMediaPrivacy     FixKind = "SET_MEDIA_PRIVACY"
	FixRevokeSharing       FixKind = "REVOKE_SHARING"
	FixDowngradePermission FixKind = "DOWNGRADE_PERMISSION"
	FixRemoveCalendarACL   FixKind = "REMOVE_CALENDAR_ACL"
)

// AllFixKinds returns every fix kind the orchestrator must dispatch.
func AllFixKinds() []FixKind {
	return []FixKind{
		FixDeleteMessage,
		FixMarkSpam,
		FixSetMediaPrivacy,
		FixRevokeSharing,
		FixDowngradePermission,
		FixRemoveCalendarACL,
	}
}

// MediaPrivacy is a video visibility level.
type MediaPrivacy string

const (
	PrivacyPublic   MediaPrivacy = "public"
	PrivacyUnlisted MediaPrivacy = "unlisted"
	PrivacyPrivate  MediaPrivacy = "private"
)

// PermissionRole is the access level granted by a sharing permission.
type PermissionRole string

const (
	RoleReader    PermissionRole = "reader"
	RoleCommenter PermissionRole = "commenter"
	RoleWriter    PermissionRole = "writer"
	RoleOwner     PermissionRole = "owner"
)

// CanWrite reports whether r grants modification rights.
func (r PermissionRole) CanWrite() bool {
	return r == RoleWriter || r == RoleOwner
}

// FixAction describes one remediation. Privacy is set only for
// SET_MEDIA_PRIVACY and Role only for DOWNGRADE_PERMISSION.
type FixAction struct {
	Kind    FixKind        `json:"kind"`
	Privacy MediaPrivacy   `json:"privacy,omitempty"`
	Role    PermissionRole `json:"role,omitempty"`
}

func DeleteMessage() *FixAction { return &FixAction{Kind: FixDeleteMessage} }
func MarkSpam() *FixAction      { return &FixAction{Kind: FixMarkSpam} }

// SetMediaPrivacy returns an action restricting a video to p, which must be
// private or unlisted.
func SetMediaPrivacy(p MediaPrivacy) *FixAction {
	return &FixAction{Kind: FixSetMediaPrivacy, Privacy: p}
}

func RevokeSharing() *FixAction { return &FixAction{Kind: FixRevokeSharing} }

func DowngradePermission(role PermissionRole) *FixAction {
	return &FixAction{Kind: FixDowngradePermission, Role: role}
}

func RemoveCalendarACL() *FixAction { return &FixAction{Kind: FixRemoveCalendarACL} }

// TargetKind returns the affected item kind the action operates on. ok is
// false for kinds outside the closed set.
func (a FixAction) TargetKind() (kind ItemKind, ok bool) {
	switch a.Kind {
	case FixDeleteMessage, FixMarkSpam:
		return ItemMessage, true
	case FixSetMediaPrivacy:
		return ItemVideo, true
	case FixRevokeSharing, FixDowngradePermission:
		return ItemPermission, true
	case FixRemoveCalendarACL:
		return ItemCalendarACL, true
	}
	return "", false
}

// Validate checks the action's own payload.
func (a FixAction) Validate() error {
	switch a.Kind {
	case FixSetMediaPrivacy:
		if a.Privacy != PrivacyPrivate && a.Privacy != PrivacyUnlisted {
			return fmt.Errorf("%s: privacy must be private or unlisted, got %q", a.Kind, a.Privacy)
		}
	case FixDowngradePermission:
		if a.Role == "" || a.Role.CanWrite() {
			return fmt.Errorf("%s: target role must be read-only, got %q", a.Kind, a.Role)
		}
	}
	return nil
}

func (a FixAction) String() string {
	switch a.Kind {
	case FixSetMediaPrivacy:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Privacy)
	case FixDowngradePermission:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Role)
	}
	return string(a.Kind)
}
