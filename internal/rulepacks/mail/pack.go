// Package mail provides the mailbox rule pack.
package mail

import "github.com/pankaj-dahiya-devops/accountguard/internal/rules"

// New returns the mail rule pack.
func New() []rules.Rule {
	return []rules.Rule{
		rules.MailForwardingRule{},      // CRITICAL: accepted forwarding address
		rules.MailPhishingSubjectRule{}, // HIGH:     unread message with phishing subject
		rules.MailFilterForwardRule{},   // HIGH:     filter forwards matching mail
	}
}
