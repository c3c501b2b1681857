// Package policy manages versioned, per-organization moderation rule sets
// and their evaluation against submitted text.
package policy

import (
	"time"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
)

// Rules is the rule set carried by a policy version.
type Rules struct {
	BlockedPhrases []string `json:"blocked_phrases"`
	WatchPhrases   []string `json:"watch_phrases"`
	BlockedRegex   []string `json:"blocked_regex"`
}

// Version is one published rule set for an organization.
//
// Invariants:
//   - VersionNumber is monotonic per organization
//   - at most one version per organization has IsActive=true
//   - rows are deactivated when superseded, never deleted
type Version struct {
	ID            id.PolicyVersionID `json:"id"`
	OrgID         id.OrgID           `json:"organization_id"`
	VersionNumber int                `json:"version_number"`
	Title         string             `json:"title"`
	Rules         Rules              `json:"rules"`
	IsActive      bool               `json:"is_active"`
	PublishedBy   id.UserID          `json:"published_by_user_id"`
	CreatedAt     time.Time          `json:"created_at"`
}

// RuleFlags is the outcome of evaluating text against a rule set. Entries
// are tagged strings ("blocked_phrase:<p>", "watch_phrase:<p>",
// "blocked_regex:<e>", "invalid_rule_regex:<e>").
type RuleFlags struct {
	HardBlocks []string `json:"hard_blocks"`
	Warnings   []string `json:"warnings"`
}
