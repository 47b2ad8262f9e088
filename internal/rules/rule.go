package rules

import "github.com/pankaj-dahiya-devops/accountguard/internal/models"

// RuleContext carries every snapshot collected for one scan. It is the sole
// input to Rule.Evaluate; rules must never call a connector or read external
// state. A nil snapshot means its source was not collected.
type RuleContext struct {
	Mail     *models.MailSnapshot
	Media    *models.MediaSnapshot
	Storage  *models.StorageSnapshot
	Calendar *models.CalendarSnapshot
	Identity *models.IdentitySnapshot
}

// Rule is a single deterministic detector.
// Rules must be stateless and safe to call concurrently.
type Rule interface {
	// ID returns the unique, stable identifier for this rule (e.g. "MAIL_PHISHING_SUBJECT").
	ID() string

	// Name returns a short human-readable rule name.
	Name() string

	// Source returns the scan source whose snapshot the rule reads.
	Source() models.Source

	// Evaluate inspects the provided context and returns zero or more issues.
	Evaluate(ctx RuleContext) []models.SecurityIssue
}

// RuleRegistry manages the set of active rules and drives evaluation.
type RuleRegistry interface {
	// Register adds a rule to the registry. Panics on duplicate ID.
	Register(rule Rule)

	// All returns all registered rules in registration order.
	All() []Rule

	// EvaluateAll runs every registered rule against ctx and merges results.
	EvaluateAll(ctx RuleContext) []models.SecurityIssue

	// EvaluateSource runs only the rules reading src.
	EvaluateSource(src models.Source, ctx RuleContext) []models.SecurityIssue
}
