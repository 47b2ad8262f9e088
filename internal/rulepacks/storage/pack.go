// Package storage provides the file-sharing rule pack.
package storage

import "github.com/pankaj-dahiya-devops/accountguard/internal/rules"

// New returns the storage rule pack.
func New() []rules.Rule {
	return []rules.Rule{
		rules.StoragePublicShareRule{},    // CRITICAL/HIGH: file shared with anyone or a domain
		rules.StorageSensitiveWriteRule{}, // MEDIUM:        writable permission on sensitive file
	}
}
