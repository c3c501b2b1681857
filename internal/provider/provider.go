// Package provider defines the portal's contract with the external AI
// service and an HTTP implementation of it. The rest of the system
// treats the provider as untrusted and possibly unavailable: no call is
// retried or cached here, and every caller owns its own fallback.
package provider

import "context"

// ModerationResult is the provider's classification of a text span.
type ModerationResult struct {
	Flagged        bool
	Categories     map[string]bool
	CategoryScores map[string]float64
}

// PrecheckResult summarizes an eligibility pre-assessment of an
// applicant's intake answers.
type PrecheckResult struct {
	LikelyEligible bool
	Summary        string
}

// DocumentExtraction holds structured fields pulled out of an uploaded
// document's text.
type DocumentExtraction struct {
	DocumentType string
	Fields       map[string]string
}

// Provider is the outbound AI contract. Implementations must be safe
// for concurrent use. Any method may fail; none retries internally.
type Provider interface {
	// ModerateText classifies text against the provider's content
	// categories.
	ModerateText(ctx context.Context, text string) (*ModerationResult, error)

	// EligibilityPrecheck gives a non-binding eligibility read on an
	// applicant's intake answers.
	EligibilityPrecheck(ctx context.Context, answers map[string]string) (*PrecheckResult, error)

	// ExtractDocument pulls structured fields from document text.
	ExtractDocument(ctx context.Context, text string) (*DocumentExtraction, error)

	// AssistantReply streams an assistant response to a prompt. The
	// returned channel is closed when the reply is complete or the
	// context is cancelled.
	AssistantReply(ctx context.Context, prompt string) (<-chan string, error)
}
