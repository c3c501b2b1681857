//go:build integration

package moderation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/navigategovuk/telldoug2-sub001/internal/moderation"
	"github.com/navigategovuk/telldoug2-sub001/internal/pii"
	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
	"github.com/navigategovuk/telldoug2-sub001/pkg/platform/sentinel"
	"github.com/navigategovuk/telldoug2-sub001/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *moderation.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = moderation.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "moderation_events", "moderation_items")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newItem(orgID id.OrgID) *moderation.ModerationItem {
	now := time.Now().UTC().Truncate(time.Microsecond)
	userID := id.NewUserID()
	return &moderation.ModerationItem{
		ID:              id.NewModerationItemID(),
		OrgID:           orgID,
		CreatedByUserID: &userID,
		TargetType:      moderation.TargetMessage,
		TargetID:        "msg-001",
		RawText:         "call me on 07700 900123",
		PIIFindings:     []pii.Finding{{Type: pii.TypeUKMobile, Match: "07700 900123"}},
		ModelFlags: moderation.ModelFlags{
			Flagged:        true,
			Categories:     map[string]bool{"harassment": true},
			CategoryScores: map[string]float64{"harassment": 0.72},
		},
		RuleFlags: moderation.RuleFlags{
			Warnings: []string{"watch_phrase:no dss"},
		},
		RiskScore: 0.532,
		Decision:  moderation.DecisionPendingReview,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndGetItem() {
	ctx := context.Background()
	orgID := id.NewOrgID()

	item := s.newItem(orgID)
	s.Require().NoError(s.store.CreateItem(ctx, item))

	got, err := s.store.GetItem(ctx, orgID, item.ID)
	s.Require().NoError(err)
	s.Equal(item.ID, got.ID)
	s.Equal(item.PIIFindings, got.PIIFindings)
	s.Equal(item.ModelFlags, got.ModelFlags)
	s.Equal(item.RuleFlags, got.RuleFlags)
	s.InDelta(item.RiskScore, got.RiskScore, 1e-9)
	s.Equal(moderation.DecisionPendingReview, got.Decision)
	s.Require().NotNil(got.CreatedByUserID)
	s.Equal(*item.CreatedByUserID, *got.CreatedByUserID)
	s.Nil(got.PolicyVersionID)
}

func (s *PostgresStoreSuite) TestGetItemIsOrgScoped() {
	ctx := context.Background()

	item := s.newItem(id.NewOrgID())
	s.Require().NoError(s.store.CreateItem(ctx, item))

	_, err := s.store.GetItem(ctx, id.NewOrgID(), item.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateDecision() {
	ctx := context.Background()
	orgID := id.NewOrgID()

	item := s.newItem(orgID)
	s.Require().NoError(s.store.CreateItem(ctx, item))

	updatedAt := time.Now().UTC().Truncate(time.Microsecond)
	err := s.store.UpdateDecision(ctx, orgID, item.ID, moderation.DecisionApproved, updatedAt)
	s.Require().NoError(err)

	got, err := s.store.GetItem(ctx, orgID, item.ID)
	s.Require().NoError(err)
	s.Equal(moderation.DecisionApproved, got.Decision)
	s.WithinDuration(updatedAt, got.UpdatedAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestUpdateDecisionUnknownItem() {
	ctx := context.Background()

	err := s.store.UpdateDecision(ctx, id.NewOrgID(), id.NewModerationItemID(),
		moderation.DecisionBlocked, time.Now().UTC())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestEventLogOldestFirst() {
	ctx := context.Background()
	orgID := id.NewOrgID()

	item := s.newItem(orgID)
	s.Require().NoError(s.store.CreateItem(ctx, item))

	base := time.Now().UTC().Truncate(time.Microsecond)
	created := &moderation.ModerationEvent{
		ID:               id.NewModerationEventID(),
		ModerationItemID: item.ID,
		EventType:        moderation.EventDecisionCreated,
		Reason:           moderation.ReasonQueuedForReview,
		Metadata:         map[string]any{"decision": "pending_review"},
		CreatedAt:        base,
	}
	actor := id.NewUserID()
	override := &moderation.ModerationEvent{
		ID:               id.NewModerationEventID(),
		ModerationItemID: item.ID,
		ActorUserID:      &actor,
		EventType:        moderation.EventManualDecision,
		Reason:           "verified with tenant",
		Metadata:         map[string]any{"previousDecision": "pending_review", "newDecision": "approved"},
		CreatedAt:        base.Add(time.Second),
	}
	s.Require().NoError(s.store.AppendEvent(ctx, created))
	s.Require().NoError(s.store.AppendEvent(ctx, override))

	events, err := s.store.ListEvents(ctx, item.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(moderation.EventDecisionCreated, events[0].EventType)
	s.Nil(events[0].ActorUserID)
	s.Equal(moderation.EventManualDecision, events[1].EventType)
	s.Require().NotNil(events[1].ActorUserID)
	s.Equal(actor, *events[1].ActorUserID)
	s.Equal("approved", events[1].Metadata["newDecision"])
}
