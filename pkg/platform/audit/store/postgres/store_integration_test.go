//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
	audit "github.com/navigategovuk/telldoug2-sub001/pkg/platform/audit"
	auditpg "github.com/navigategovuk/telldoug2-sub001/pkg/platform/audit/store/postgres"
	"github.com/navigategovuk/telldoug2-sub001/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditpg.Store
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
	s.store = auditpg.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "audit_events")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestAppendAndListByEntity() {
	ctx := context.Background()
	orgID := id.NewOrgID()
	actor := id.NewUserID()
	itemID := id.NewModerationItemID().String()

	event := audit.Event{
		EventType:     audit.EventModerationOverride,
		EntityType:    audit.EntityModerationItem,
		EntityID:      itemID,
		OrgID:         orgID,
		ActorUserID:   &actor,
		Metadata:      map[string]any{"newDecision": "approved"},
		CorrelationID: "corr-123",
		Timestamp:     time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.Append(ctx, event))

	events, err := s.store.ListByEntity(ctx, audit.EntityModerationItem, itemID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.EventModerationOverride, events[0].EventType)
	s.Equal(orgID, events[0].OrgID)
	s.Require().NotNil(events[0].ActorUserID)
	s.Equal(actor, *events[0].ActorUserID)
	s.Equal("approved", events[0].Metadata["newDecision"])
	s.Equal("corr-123", events[0].CorrelationID)
}

func (s *PostgresStoreSuite) TestSystemEventsHaveNilActor() {
	ctx := context.Background()
	itemID := id.NewModerationItemID().String()

	event := audit.Event{
		EventType:  audit.EventModerationEvaluated,
		EntityType: audit.EntityModerationItem,
		EntityID:   itemID,
		OrgID:      id.NewOrgID(),
		Timestamp:  time.Now().UTC(),
	}
	s.Require().NoError(s.store.Append(ctx, event))

	events, err := s.store.ListByEntity(ctx, audit.EntityModerationItem, itemID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Nil(events[0].ActorUserID)
}

func (s *PostgresStoreSuite) TestListRecentNewestFirstWithLimit() {
	ctx := context.Background()
	orgID := id.NewOrgID()
	base := time.Now().UTC().Truncate(time.Microsecond)

	for i := 0; i < 3; i++ {
		event := audit.Event{
			EventType:  audit.EventPolicyPublished,
			EntityType: audit.EntityPolicyVersion,
			EntityID:   id.NewPolicyVersionID().String(),
			OrgID:      orgID,
			Metadata:   map[string]any{"version_number": i + 1},
			Timestamp:  base.Add(time.Duration(i) * time.Second),
		}
		s.Require().NoError(s.store.Append(ctx, event))
	}

	events, err := s.store.ListRecent(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(float64(3), events[0].Metadata["version_number"])
	s.Equal(float64(2), events[1].Metadata["version_number"])
}
