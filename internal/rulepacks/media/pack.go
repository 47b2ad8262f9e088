// Package media provides the published-media rule pack.
package media

import "github.com/pankaj-dahiya-devops/accountguard/internal/rules"

// New returns the media rule pack.
func New() []rules.Rule {
	return []rules.Rule{
		rules.MediaPublicPersonalRule{}, // MEDIUM: public video with personal title
	}
}
