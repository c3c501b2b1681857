package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/navigategovuk/telldoug2-sub001/internal/pii"
	"github.com/navigategovuk/telldoug2-sub001/internal/policy"
	"github.com/navigategovuk/telldoug2-sub001/internal/provider"
)

func TestRiskScore(t *testing.T) {
	t.Run("benign input scores low", func(t *testing.T) {
		ai := &provider.ModerationResult{CategoryScores: map[string]float64{"benign": 0.05}}
		score := riskScore(ai, nil, policy.RuleFlags{})
		assert.InDelta(t, 0.03, score, 1e-9)
	})

	t.Run("provider flag adds a fixed increment", func(t *testing.T) {
		ai := &provider.ModerationResult{Flagged: true, CategoryScores: map[string]float64{"hate": 0.5}}
		score := riskScore(ai, nil, policy.RuleFlags{})
		assert.InDelta(t, 0.5, score, 1e-9)
	})

	t.Run("pii contribution caps at 0.15", func(t *testing.T) {
		findings := make([]pii.Finding, 10)
		score := riskScore(&provider.ModerationResult{}, findings, policy.RuleFlags{})
		assert.InDelta(t, 0.15, score, 1e-9)
	})

	t.Run("warning contribution caps at 0.2", func(t *testing.T) {
		flags := policy.RuleFlags{Warnings: make([]string, 10)}
		score := riskScore(&provider.ModerationResult{}, nil, flags)
		assert.InDelta(t, 0.2, score, 1e-9)
	})

	t.Run("never exceeds 1", func(t *testing.T) {
		ai := &provider.ModerationResult{Flagged: true, CategoryScores: map[string]float64{"violence": 1.0}}
		findings := make([]pii.Finding, 10)
		flags := policy.RuleFlags{Warnings: make([]string, 10)}
		score := riskScore(ai, findings, flags)
		assert.InDelta(t, 1.0, score, 1e-9)
	})

	t.Run("empty provider result scores zero", func(t *testing.T) {
		score := riskScore(&provider.ModerationResult{}, nil, policy.RuleFlags{})
		assert.Zero(t, score)
	})
}

func TestSeverityTriggered(t *testing.T) {
	t.Run("matches across naming conventions", func(t *testing.T) {
		for _, name := range []string{"violence", "self-harm", "self_harm", "hate", "sexual/minors", "sexual_minors"} {
			assert.True(t, severityTriggered(map[string]bool{name: true}), name)
		}
	})

	t.Run("harassment is not severity-blocking", func(t *testing.T) {
		assert.False(t, severityTriggered(map[string]bool{"harassment": true}))
	})

	t.Run("false flags do not trigger", func(t *testing.T) {
		assert.False(t, severityTriggered(map[string]bool{"violence": false}))
	})
}

func TestDecide(t *testing.T) {
	t.Run("scenario: benign text with no signals is approved", func(t *testing.T) {
		ai := &provider.ModerationResult{CategoryScores: map[string]float64{"benign": 0.05}}
		score := riskScore(ai, nil, policy.RuleFlags{})
		decision, reason := decide(ai, policy.RuleFlags{}, score)
		assert.InDelta(t, 0.03, score, 1e-9)
		assert.Equal(t, DecisionApproved, decision)
		assert.Equal(t, ReasonAutoApproved, reason)
	})

	t.Run("scenario: flagged harassment with warnings queues for review", func(t *testing.T) {
		ai := &provider.ModerationResult{
			Categories:     map[string]bool{"harassment": true},
			CategoryScores: map[string]float64{"harassment": 0.72},
		}
		flags := policy.RuleFlags{Warnings: []string{"watch_phrase:a", "watch_phrase:b"}}
		score := riskScore(ai, nil, flags)
		decision, reason := decide(ai, flags, score)
		assert.InDelta(t, 0.532, score, 1e-9)
		assert.Equal(t, DecisionPendingReview, decision)
		assert.Equal(t, ReasonQueuedForReview, reason)
	})

	t.Run("scenario: flagged violence blocks regardless of score", func(t *testing.T) {
		ai := &provider.ModerationResult{
			Categories:     map[string]bool{"violence": true},
			CategoryScores: map[string]float64{"violence": 0.98},
		}
		decision, reason := decide(ai, policy.RuleFlags{}, riskScore(ai, nil, policy.RuleFlags{}))
		assert.Equal(t, DecisionBlocked, decision)
		assert.Equal(t, ReasonBlockedByPolicy, reason)
	})

	t.Run("scenario: hard block wins over an all-clear provider", func(t *testing.T) {
		ai := &provider.ModerationResult{Categories: map[string]bool{}, CategoryScores: map[string]float64{}}
		flags := policy.RuleFlags{HardBlocks: []string{"blocked_phrase:banned-term"}}
		decision, reason := decide(ai, flags, riskScore(ai, nil, flags))
		assert.Equal(t, DecisionBlocked, decision)
		assert.Equal(t, ReasonBlockedByPolicy, reason)
	})

	t.Run("severity blocks even below the review threshold", func(t *testing.T) {
		ai := &provider.ModerationResult{
			Categories:     map[string]bool{"self-harm": true},
			CategoryScores: map[string]float64{"self-harm": 0.1},
		}
		score := riskScore(ai, nil, policy.RuleFlags{})
		decision, _ := decide(ai, policy.RuleFlags{}, score)
		assert.Less(t, score, 0.5)
		assert.Equal(t, DecisionBlocked, decision)
	})

	t.Run("provider flag alone queues for review", func(t *testing.T) {
		ai := &provider.ModerationResult{Flagged: true, CategoryScores: map[string]float64{"spam": 0.1}}
		decision, _ := decide(ai, policy.RuleFlags{}, riskScore(ai, nil, policy.RuleFlags{}))
		assert.Equal(t, DecisionPendingReview, decision)
	})

	t.Run("score at the threshold queues for review", func(t *testing.T) {
		decision, _ := decide(&provider.ModerationResult{}, policy.RuleFlags{}, 0.5)
		assert.Equal(t, DecisionPendingReview, decision)
	})
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, "selfharm", normalizeCategory("Self-Harm"))
	assert.Equal(t, "sexualminors", normalizeCategory("sexual/minors"))
	assert.Equal(t, "violence", normalizeCategory("violence"))
}
