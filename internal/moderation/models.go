// Package moderation is the portal's risk scoring and decision engine.
// It combines PII findings, per-organization policy rules, and the AI
// provider's classification into a single auditable decision per
// artifact, records the outcome as a moderation item with an
// append-only event log, and supports human overrides.
package moderation

import (
	"time"

	"github.com/navigategovuk/telldoug2-sub001/internal/pii"
	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
)

// Decision is the three-way moderation outcome for an artifact.
type Decision string

const (
	DecisionApproved      Decision = "approved"
	DecisionPendingReview Decision = "pending_review"
	DecisionBlocked       Decision = "blocked"
)

// Valid reports whether d is one of the three known decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApproved, DecisionPendingReview, DecisionBlocked:
		return true
	}
	return false
}

// TargetType identifies the kind of entity an artifact belongs to.
type TargetType string

const (
	TargetMessage          TargetType = "message"
	TargetDocument         TargetType = "document"
	TargetApplicationField TargetType = "application_field"
	TargetAssistantPrompt  TargetType = "assistant_prompt"
)

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	switch t {
	case TargetMessage, TargetDocument, TargetApplicationField, TargetAssistantPrompt:
		return true
	}
	return false
}

// ModelFlags is the AI provider's classification as recorded on the
// moderation item.
type ModelFlags struct {
	Flagged        bool               `json:"flagged"`
	Categories     map[string]bool    `json:"categories"`
	CategoryScores map[string]float64 `json:"categoryScores"`
}

// RuleFlags is the policy engine's evaluation as recorded on the item.
type RuleFlags struct {
	HardBlocks []string `json:"hardBlocks"`
	Warnings   []string `json:"warnings"`
}

// ModerationItem is the current-state record of one artifact
// evaluation. It is created exactly once per evaluation; only Decision
// and UpdatedAt are ever mutated afterwards, and only by a manual
// override that also appends the corresponding event.
type ModerationItem struct {
	ID              id.ModerationItemID
	OrgID           id.OrgID
	CreatedByUserID *id.UserID // nil for system-authored artifacts
	TargetType      TargetType
	TargetID        string
	RawText         string
	PIIFindings     []pii.Finding
	ModelFlags      ModelFlags
	RuleFlags       RuleFlags
	RiskScore       float64
	Decision        Decision
	PolicyVersionID *id.PolicyVersionID // nil when the org had no active policy
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Event types for the moderation log.
const (
	EventDecisionCreated = "decision_created"
	EventManualDecision  = "manual_decision"
)

// Reasons recorded on decision_created events.
const (
	ReasonAutoApproved    = "auto_approved"
	ReasonBlockedByPolicy = "blocked_by_policy_or_severity"
	ReasonQueuedForReview = "queued_for_review"
)

// ModerationEvent is one entry in an item's append-only log. Events
// are never mutated or deleted; the most recent event's resulting
// decision always equals the item's current decision.
type ModerationEvent struct {
	ID               id.ModerationEventID
	ModerationItemID id.ModerationItemID
	ActorUserID      *id.UserID // nil = system
	EventType        string
	Reason           string
	Metadata         map[string]any
	CreatedAt        time.Time
}

// ModerateRequest carries one artifact into the decision engine.
type ModerateRequest struct {
	OrgID           id.OrgID
	CreatedByUserID *id.UserID
	TargetType      TargetType
	TargetID        string
	Text            string
}

// ModerateResult is the outcome of one evaluation.
type ModerateResult struct {
	Decision  Decision
	RiskScore float64
	Item      *ModerationItem
	// Fallback is true when the AI provider failed and the safe-call
	// path substituted a pending_review decision.
	Fallback bool
}
