package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navigategovuk/telldoug2-sub001/internal/owners"
	"github.com/navigategovuk/telldoug2-sub001/internal/policy"
	"github.com/navigategovuk/telldoug2-sub001/internal/provider"
	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
	dErrors "github.com/navigategovuk/telldoug2-sub001/pkg/domain-errors"
	audit "github.com/navigategovuk/telldoug2-sub001/pkg/platform/audit"
	auditmemory "github.com/navigategovuk/telldoug2-sub001/pkg/platform/audit/store/memory"
)

type stubModerator struct {
	result *provider.ModerationResult
	err    error
	calls  int
}

func (s *stubModerator) ModerateText(_ context.Context, _ string) (*provider.ModerationResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func allClear() *provider.ModerationResult {
	return &provider.ModerationResult{
		Categories:     map[string]bool{},
		CategoryScores: map[string]float64{},
	}
}

type fixture struct {
	service    *Service
	store      *InMemoryStore
	policies   *policy.Service
	ai         *stubModerator
	owners     *owners.InMemoryStore
	auditStore *auditmemory.InMemoryStore
}

func newFixture(t *testing.T, ai *stubModerator) *fixture {
	t.Helper()

	auditStore := auditmemory.NewInMemoryStore()
	publisher := audit.NewPublisher(auditStore)

	policies, err := policy.New(policy.NewInMemoryStore())
	require.NoError(t, err)

	ownerStore := owners.NewInMemoryStore()
	store := NewInMemoryStore()

	service, err := New(store, policies, ai,
		WithOwnerStore(ownerStore),
		WithAuditPublisher(publisher),
	)
	require.NoError(t, err)

	return &fixture{
		service:    service,
		store:      store,
		policies:   policies,
		ai:         ai,
		owners:     ownerStore,
		auditStore: auditStore,
	}
}

func messageRequest(orgID id.OrgID, userID id.UserID, text string) ModerateRequest {
	return ModerateRequest{
		OrgID:           orgID,
		CreatedByUserID: &userID,
		TargetType:      TargetMessage,
		TargetID:        "msg-1",
		Text:            text,
	}
}

func TestService_ModerateArtifact(t *testing.T) {
	ctx := context.Background()
	orgID := id.NewOrgID()
	userID := id.NewUserID()

	t.Run("approves clean text and records item, event and audit", func(t *testing.T) {
		f := newFixture(t, &stubModerator{result: &provider.ModerationResult{
			Categories:     map[string]bool{},
			CategoryScores: map[string]float64{"benign": 0.05},
		}})

		result, err := f.service.ModerateArtifact(ctx, messageRequest(orgID, userID, "Safe content"))
		require.NoError(t, err)
		assert.Equal(t, DecisionApproved, result.Decision)
		assert.InDelta(t, 0.03, result.RiskScore, 1e-9)
		assert.False(t, result.Fallback)
		assert.Nil(t, result.Item.PolicyVersionID)

		stored, err := f.store.GetItem(ctx, orgID, result.Item.ID)
		require.NoError(t, err)
		assert.Equal(t, DecisionApproved, stored.Decision)
		assert.Equal(t, "Safe content", stored.RawText)

		events, err := f.store.ListEvents(ctx, result.Item.ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, EventDecisionCreated, events[0].EventType)
		assert.Equal(t, ReasonAutoApproved, events[0].Reason)
		assert.Nil(t, events[0].ActorUserID)
		assert.InDelta(t, 0.03, events[0].Metadata["riskScore"].(float64), 1e-9)

		audits, err := f.auditStore.ListRecent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, audits, 1)
		assert.Equal(t, audit.EventModerationEvaluated, audits[0].EventType)
		assert.Equal(t, string(TargetMessage), audits[0].EntityType)
		assert.Equal(t, "msg-1", audits[0].EntityID)
		assert.Equal(t, "approved", audits[0].Metadata["decision"])
	})

	t.Run("pii in the text is captured on the item", func(t *testing.T) {
		f := newFixture(t, &stubModerator{result: allClear()})

		result, err := f.service.ModerateArtifact(ctx, messageRequest(orgID, userID, "reach me at jo@example.com"))
		require.NoError(t, err)
		require.Len(t, result.Item.PIIFindings, 1)
		assert.Equal(t, "jo@example.com", result.Item.PIIFindings[0].Match)
		assert.InDelta(t, 0.03, result.RiskScore, 1e-9)
	})

	t.Run("active policy hard block wins over an all-clear provider", func(t *testing.T) {
		f := newFixture(t, &stubModerator{result: allClear()})
		_, err := f.policies.Publish(ctx, orgID, userID, "baseline", policy.Rules{
			BlockedPhrases: []string{"banned-term"},
		})
		require.NoError(t, err)

		result, err := f.service.ModerateArtifact(ctx, messageRequest(orgID, userID, "contains banned-term here"))
		require.NoError(t, err)
		assert.Equal(t, DecisionBlocked, result.Decision)
		assert.Equal(t, []string{"blocked_phrase:banned-term"}, result.Item.RuleFlags.HardBlocks)
		require.NotNil(t, result.Item.PolicyVersionID)

		events, err := f.store.ListEvents(ctx, result.Item.ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, ReasonBlockedByPolicy, events[0].Reason)
	})

	t.Run("severity category blocks", func(t *testing.T) {
		f := newFixture(t, &stubModerator{result: &provider.ModerationResult{
			Categories:     map[string]bool{"violence": true},
			CategoryScores: map[string]float64{"violence": 0.98},
		}})

		result, err := f.service.ModerateArtifact(ctx, messageRequest(orgID, userID, "threat"))
		require.NoError(t, err)
		assert.Equal(t, DecisionBlocked, result.Decision)
	})

	t.Run("provider failure propagates and persists nothing", func(t *testing.T) {
		f := newFixture(t, &stubModerator{err: &provider.ProviderError{Provider: "openai", StatusCode: 503, Message: "down"}})

		_, err := f.service.ModerateArtifact(ctx, messageRequest(orgID, userID, "anything"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
		assert.True(t, provider.IsProviderError(err))

		audits, err := f.auditStore.ListRecent(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, audits)
	})

	t.Run("rejects unknown target type", func(t *testing.T) {
		f := newFixture(t, &stubModerator{result: allClear()})

		req := messageRequest(orgID, userID, "text")
		req.TargetType = "thread"
		_, err := f.service.ModerateArtifact(ctx, req)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Zero(t, f.ai.calls)
	})
}

func TestService_ModerateArtifactSafe(t *testing.T) {
	ctx := context.Background()
	orgID := id.NewOrgID()
	userID := id.NewUserID()

	t.Run("provider failure falls back to pending review", func(t *testing.T) {
		f := newFixture(t, &stubModerator{err: &provider.ProviderError{Provider: "openai", Message: "timeout"}})

		result, err := f.service.ModerateArtifactSafe(ctx, messageRequest(orgID, userID, "ordinary text"))
		require.NoError(t, err)
		assert.Equal(t, DecisionPendingReview, result.Decision)
		assert.True(t, result.Fallback)

		events, err := f.store.ListEvents(ctx, result.Item.ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, true, events[0].Metadata["aiFallback"])

		audits, err := f.auditStore.ListRecent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, audits, 2)
		types := []string{audits[0].EventType, audits[1].EventType}
		assert.Contains(t, types, audit.EventAIFallback)
		assert.Contains(t, types, audit.EventModerationEvaluated)
	})

	t.Run("policy hard block still blocks during fallback", func(t *testing.T) {
		f := newFixture(t, &stubModerator{err: &provider.ProviderError{Provider: "openai", Message: "timeout"}})
		_, err := f.policies.Publish(ctx, orgID, userID, "baseline", policy.Rules{
			BlockedPhrases: []string{"banned-term"},
		})
		require.NoError(t, err)

		result, err := f.service.ModerateArtifactSafe(ctx, messageRequest(orgID, userID, "a banned-term"))
		require.NoError(t, err)
		assert.Equal(t, DecisionBlocked, result.Decision)
		assert.True(t, result.Fallback)
	})

	t.Run("non-provider errors still propagate", func(t *testing.T) {
		f := newFixture(t, &stubModerator{result: allClear()})

		_, err := f.service.ModerateArtifactSafe(ctx, ModerateRequest{TargetType: TargetMessage, TargetID: "msg-1"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("healthy provider passes straight through", func(t *testing.T) {
		f := newFixture(t, &stubModerator{result: allClear()})

		result, err := f.service.ModerateArtifactSafe(ctx, messageRequest(orgID, userID, "fine"))
		require.NoError(t, err)
		assert.Equal(t, DecisionApproved, result.Decision)
		assert.False(t, result.Fallback)
		assert.Equal(t, 1, f.ai.calls)
	})
}

func TestService_ApplyManualDecision(t *testing.T) {
	ctx := context.Background()
	orgID := id.NewOrgID()
	userID := id.NewUserID()
	reviewerID := id.NewUserID()

	moderateMessage := func(t *testing.T, f *fixture, messageID string) *ModerationItem {
		t.Helper()
		require.NoError(t, f.owners.CreateMessage(ctx, &owners.Message{
			ID:         messageID,
			OrgID:      orgID,
			Visibility: owners.VisibilityHidden,
			CreatedAt:  time.Now().UTC(),
		}))
		req := messageRequest(orgID, userID, "needs a look")
		req.TargetID = messageID
		result, err := f.service.ModerateArtifact(ctx, req)
		require.NoError(t, err)
		return result.Item
	}

	t.Run("approving a message makes it visible", func(t *testing.T) {
		f := newFixture(t, &stubModerator{result: &provider.ModerationResult{
			Flagged:        true,
			Categories:     map[string]bool{},
			CategoryScores: map[string]float64{"spam": 0.3},
		}})
		item := moderateMessage(t, f, "msg-approve")
		require.Equal(t, DecisionPendingReview, item.Decision)

		require.NoError(t, f.service.ApplyManualDecision(ctx, orgID, item.ID, DecisionApproved, "reviewed, fine", reviewerID))

		updated, err := f.service.GetItem(ctx, orgID, item.ID)
		require.NoError(t, err)
		assert.Equal(t, DecisionApproved, updated.Decision)

		message, err := f.owners.GetMessage(ctx, orgID, "msg-approve")
		require.NoError(t, err)
		assert.Equal(t, owners.VisibilityVisible, message.Visibility)
		assert.Equal(t, "approved", message.ModerationDecision)

		events, err := f.service.ListEvents(ctx, orgID, item.ID)
		require.NoError(t, err)
		require.Len(t, events, 2)
		last := events[len(events)-1]
		assert.Equal(t, EventManualDecision, last.EventType)
		assert.Equal(t, "pending_review", last.Metadata["previousDecision"])
		assert.Equal(t, "approved", last.Metadata["newDecision"])
		require.NotNil(t, last.ActorUserID)
		assert.Equal(t, reviewerID, *last.ActorUserID)
	})

	t.Run("blocking a message hides it", func(t *testing.T) {
		f := newFixture(t, &stubModerator{result: allClear()})
		item := moderateMessage(t, f, "msg-block")

		require.NoError(t, f.service.ApplyManualDecision(ctx, orgID, item.ID, DecisionBlocked, "abusive content", reviewerID))

		message, err := f.owners.GetMessage(ctx, orgID, "msg-block")
		require.NoError(t, err)
		assert.Equal(t, owners.VisibilityHidden, message.Visibility)
		assert.Equal(t, "blocked", message.ModerationDecision)
	})

	t.Run("document override copies the decision only", func(t *testing.T) {
		f := newFixture(t, &stubModerator{result: allClear()})
		require.NoError(t, f.owners.CreateDocument(ctx, &owners.Document{ID: "doc-1", OrgID: orgID}))

		req := ModerateRequest{OrgID: orgID, CreatedByUserID: &userID, TargetType: TargetDocument, TargetID: "doc-1", Text: "payslip"}
		result, err := f.service.ModerateArtifact(ctx, req)
		require.NoError(t, err)

		require.NoError(t, f.service.ApplyManualDecision(ctx, orgID, result.Item.ID, DecisionBlocked, "illegible scan", reviewerID))

		document, err := f.owners.GetDocument(ctx, orgID, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "blocked", document.ModerationDecision)
	})

	t.Run("application overrides move status asymmetrically", func(t *testing.T) {
		cases := []struct {
			name       string
			decision   Decision
			wantStatus owners.ApplicationStatus
		}{
			{"approval returns it to review", DecisionApproved, owners.StatusInReview},
			{"block requests more information", DecisionBlocked, owners.StatusNeedsInfo},
			{"pending review leaves status unchanged", DecisionPendingReview, owners.StatusSubmitted},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				f := newFixture(t, &stubModerator{result: allClear()})
				require.NoError(t, f.owners.CreateApplication(ctx, &owners.Application{
					ID: "app-1", OrgID: orgID, Status: owners.StatusSubmitted,
				}))

				req := ModerateRequest{OrgID: orgID, CreatedByUserID: &userID, TargetType: TargetApplicationField, TargetID: "app-1", Text: "situation"}
				result, err := f.service.ModerateArtifact(ctx, req)
				require.NoError(t, err)

				require.NoError(t, f.service.ApplyManualDecision(ctx, orgID, result.Item.ID, tc.decision, "caseworker review", reviewerID))

				application, err := f.owners.GetApplication(ctx, orgID, "app-1")
				require.NoError(t, err)
				assert.Equal(t, tc.wantStatus, application.Status)
				assert.Equal(t, string(tc.decision), application.ModerationDecision)
			})
		}
	})

	t.Run("assistant prompt overrides touch no owning entity", func(t *testing.T) {
		f := newFixture(t, &stubModerator{result: allClear()})

		req := ModerateRequest{OrgID: orgID, TargetType: TargetAssistantPrompt, TargetID: "prompt-1", Text: "hi"}
		result, err := f.service.ModerateArtifact(ctx, req)
		require.NoError(t, err)

		assert.NoError(t, f.service.ApplyManualDecision(ctx, orgID, result.Item.ID, DecisionBlocked, "prompt abuse", reviewerID))
	})

	t.Run("item in another organization is not found", func(t *testing.T) {
		f := newFixture(t, &stubModerator{result: allClear()})
		item := moderateMessage(t, f, "msg-other")

		err := f.service.ApplyManualDecision(ctx, id.NewOrgID(), item.ID, DecisionApproved, "looks fine", reviewerID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("missing item is not found", func(t *testing.T) {
		f := newFixture(t, &stubModerator{result: allClear()})

		err := f.service.ApplyManualDecision(ctx, orgID, id.NewModerationItemID(), DecisionApproved, "looks fine", reviewerID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("rejects a one-character reason", func(t *testing.T) {
		f := newFixture(t, &stubModerator{result: allClear()})
		item := moderateMessage(t, f, "msg-reason")

		err := f.service.ApplyManualDecision(ctx, orgID, item.ID, DecisionApproved, "x", reviewerID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects an unknown decision", func(t *testing.T) {
		f := newFixture(t, &stubModerator{result: allClear()})
		item := moderateMessage(t, f, "msg-decision")

		err := f.service.ApplyManualDecision(ctx, orgID, item.ID, "escalated", "needs a second look", reviewerID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestService_ListEvents(t *testing.T) {
	ctx := context.Background()
	orgID := id.NewOrgID()

	f := newFixture(t, &stubModerator{result: allClear()})

	t.Run("unknown item is not found", func(t *testing.T) {
		_, err := f.service.ListEvents(ctx, orgID, id.NewModerationItemID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
