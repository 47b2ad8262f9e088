// Package posture assembles every source rule pack into the full posture
// rule set.
//
// Convention: every rule pack lives in internal/rulepacks/<source>/pack.go
// and exposes a single New() func returning []rules.Rule. New rules are
// added to their source pack, never here.
package posture

import (
	"github.com/pankaj-dahiya-devops/accountguard/internal/rulepacks/calendar"
	"github.com/pankaj-dahiya-devops/accountguard/internal/rulepacks/identity"
	"github.com/pankaj-dahiya-devops/accountguard/internal/rulepacks/mail"
	"github.com/pankaj-dahiya-devops/accountguard/internal/rulepacks/media"
	"github.com/pankaj-dahiya-devops/accountguard/internal/rulepacks/storage"
	"github.com/pankaj-dahiya-devops/accountguard/internal/rules"
)

// New returns all rules in source order.
func New() []rules.Rule {
	var all []rules.Rule
	for _, pack := range [][]rules.Rule{mail.New(), media.New(), storage.New(), calendar.New(), identity.New()} {
		all = append(all, pack...)
	}
	return all
}

// NewRegistry returns a registry with every posture rule registered.
func NewRegistry() *rules.DefaultRuleRegistry {
	reg := rules.NewDefaultRuleRegistry()
	for _, r := range New() {
		reg.Register(r)
	}
	return reg
}
