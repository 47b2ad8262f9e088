// Package calendar provides the calendar-sharing rule pack.
package calendar

import "github.com/pankaj-dahiya-devops/accountguard/internal/rules"

// New returns the calendar rule pack.
func New() []rules.Rule {
	return []rules.Rule{
		rules.CalendarPublicACLRule{}, // MEDIUM: calendar shared with everyone
	}
}
