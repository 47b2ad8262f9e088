package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// sensitiveMimeTypes are spreadsheet, PDF and document formats.
var sensitiveMimeTypes = map[string]struct{}{
	"application/vnd.google-apps.spreadsheet":                                 {},
	"application/vnd.google-apps.document":                                    {},
	"application/pdf":                                                         {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel":                                                {},
	"application/msword":                                                      {},
}

// IsSensitiveMimeType reports whether files of this type warrant the
// write-access check.
func IsSensitiveMimeType(mime string) bool {
	_, ok := sensitiveMimeTypes[mime]
	return ok
}

// StoragePublicShareRule flags permissions granting access to anyone or to a
// whole domain.
type StoragePublicShareRule struct{}

func (r StoragePublicShareRule) ID() string            { return "STORAGE_PUBLIC_SHARE" }
func (r StoragePublicShareRule) Name() string          { return "File Shared Publicly" }
func (r StoragePublicShareRule) Source() models.Source { return models.SourceStorage }

// Evaluate returns one issue per anyone/domain permission: CRITICAL when the
// permission can write, HIGH otherwise. The fix revokes the permission.
func (r StoragePublicShareRule) Evaluate(ctx RuleContext) []models.SecurityIssue {
	if ctx.Storage == nil {
		return nil
	}
	var issues []models.SecurityIssue
	for _, sf := range ctx.Storage.Files {
		for _, perm := range sf.Permissions {
			if perm.Type != models.PermissionAnyone && perm.Type != models.PermissionDomain {
				continue
			}
			severity := models.SeverityHigh
			if perm.Role.CanWrite() {
				severity = models.SeverityCritical
			}
			issues = append(issues, models.SecurityIssue{
				ID:               fmt.Sprintf("file-%s-%s", sf.File.ID, perm.ID),
				RuleID:           r.ID(),
				Source:           r.Source(),
				Severity:         severity,
				Category:         models.CategoryFileSharing,
				Title:            "File Publicly Shared",
				Description:      fmt.Sprintf("File %q is shared with %s (%s access)", sf.File.Name, perm.Type, perm.Role),
				Recommendation:   "Restrict sharing to specific people only",
				AffectedItem:     models.PermissionItem(sf.File.ID, perm.ID),
				AutoFixAvailable: true,
				AutoFixAction:    models.RevokeSharing(),
			})
		}
	}
	return issues
}

// StorageSensitiveWriteRule flags write or owner permissions on sensitive
// file types. It fires independently of StoragePublicShareRule, so a public
// writable spreadsheet yields both issues.
type StorageSensitiveWriteRule struct{}

func (r StorageSensitiveWriteRule) ID() string            { return "STORAGE_SENSITIVE_WRITE" }
func (r StorageSensitiveWriteRule) Name() string          { return "Sensitive File With Write Access" }
func (r StorageSensitiveWriteRule) Source() models.Source { return models.SourceStorage }

// Evaluate returns one MEDIUM issue per writer or owner permission on a
// sensitive file, fixed by downgrading the permission to reader.
func (r StorageSensitiveWriteRule) Evaluate(ctx RuleContext) []models.SecurityIssue {
	if ctx.Storage == nil {
		return nil
	}
	var issues []models.SecurityIssue
	for _, sf := range ctx.Storage.Files {
		if !IsSensitiveMimeType(sf.File.MimeType) {
			continue
		}
		for _, perm := range sf.Permissions {
			if !perm.Role.CanWrite() {
				continue
			}
			issues = append(issues, models.SecurityIssue{
				ID:               fmt.Sprintf("perm-%s-%s", sf.File.ID, perm.ID),
				RuleID:           r.ID(),
				Source:           r.Source(),
				Severity:         models.SeverityMedium,
				Category:         models.CategoryPermissions,
				Title:            "Sensitive File with Write Access",
				Description:      fmt.Sprintf("File %q has write/owner permissions shared", sf.File.Name),
				Recommendation:   "Change to read-only access if possible",
				AffectedItem:     models.PermissionItem(sf.File.ID, perm.ID),
				AutoFixAvailable: true,
				AutoFixAction:    models.DowngradePermission(models.RoleReader),
			})
		}
	}
	return issues
}
