// Package identity provides the account identity rule pack.
package identity

import "github.com/pankaj-dahiya-devops/accountguard/internal/rules"

// New returns the identity rule pack.
func New() []rules.Rule {
	return []rules.Rule{
		rules.IdentityMFADisabledRule{}, // HIGH: principal without MFA
	}
}
