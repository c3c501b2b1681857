package moderation

import (
	"strings"

	"github.com/navigategovuk/telldoug2-sub001/internal/pii"
	"github.com/navigategovuk/telldoug2-sub001/internal/policy"
	"github.com/navigategovuk/telldoug2-sub001/internal/provider"
)

// severityCategories are the provider categories that block an artifact
// outright when flagged, regardless of the computed risk score. Names
// are matched after normalization, so "self-harm", "self_harm" and
// "sexual/minors" all land on the same entry. Harassment is scored but
// not severity-blocking; flagged harassment routes to review through
// the risk formula instead.
var severityCategories = map[string]struct{}{
	"violence":     {},
	"selfharm":     {},
	"hate":         {},
	"sexualminors": {},
}

// normalizeCategory lowercases a provider category name and strips
// every non-alphanumeric rune, collapsing the providers' varying
// separator conventions.
func normalizeCategory(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// severityTriggered reports whether any severity category is flagged
// true in the provider's classification.
func severityTriggered(categories map[string]bool) bool {
	for name, flagged := range categories {
		if !flagged {
			continue
		}
		if _, ok := severityCategories[normalizeCategory(name)]; ok {
			return true
		}
	}
	return false
}

// riskScore computes the composite risk in [0,1]:
// 60% of the provider's strongest category score, plus fixed increments
// for a provider-level flag, PII findings (capped), and policy warnings
// (capped).
func riskScore(ai *provider.ModerationResult, findings []pii.Finding, flags policy.RuleFlags) float64 {
	var maxModelScore float64
	for _, score := range ai.CategoryScores {
		if score > maxModelScore {
			maxModelScore = score
		}
	}

	score := maxModelScore * 0.6
	if ai.Flagged {
		score += 0.2
	}
	score += min(0.15, float64(len(findings))*0.03)
	score += min(0.2, float64(len(flags.Warnings))*0.05)
	return min(1, score)
}

// decide maps the combined signals onto the three-way decision. Hard
// policy blocks and severity categories short-circuit to blocked; a
// provider flag or a risk score of 0.5 or more queues the artifact for
// review; everything else is approved.
func decide(ai *provider.ModerationResult, flags policy.RuleFlags, score float64) (Decision, string) {
	if len(flags.HardBlocks) > 0 || severityTriggered(ai.Categories) {
		return DecisionBlocked, ReasonBlockedByPolicy
	}
	if ai.Flagged || score >= 0.5 {
		return DecisionPendingReview, ReasonQueuedForReview
	}
	return DecisionApproved, ReasonAutoApproved
}
