package owners

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
	"github.com/navigategovuk/telldoug2-sub001/pkg/platform/sentinel"
)

func TestInMemoryStore_Messages(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	orgID := id.NewOrgID()

	require.NoError(t, store.CreateMessage(ctx, &Message{
		ID:         "msg-1",
		OrgID:      orgID,
		Body:       "hello",
		Visibility: VisibilityVisible,
		CreatedAt:  time.Now().UTC(),
	}))

	t.Run("lookup is organization scoped", func(t *testing.T) {
		_, err := store.GetMessage(ctx, id.NewOrgID(), "msg-1")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("moderation update sets decision and visibility", func(t *testing.T) {
		require.NoError(t, store.SetMessageModeration(ctx, orgID, "msg-1", "blocked", VisibilityHidden))

		message, err := store.GetMessage(ctx, orgID, "msg-1")
		require.NoError(t, err)
		assert.Equal(t, "blocked", message.ModerationDecision)
		assert.Equal(t, VisibilityHidden, message.Visibility)
	})

	t.Run("update of missing message is not found", func(t *testing.T) {
		err := store.SetMessageModeration(ctx, orgID, "missing", "approved", VisibilityVisible)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestInMemoryStore_Applications(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	orgID := id.NewOrgID()

	require.NoError(t, store.CreateApplication(ctx, &Application{
		ID:     "app-1",
		OrgID:  orgID,
		Status: StatusSubmitted,
	}))

	t.Run("empty status leaves status untouched", func(t *testing.T) {
		require.NoError(t, store.SetApplicationModeration(ctx, orgID, "app-1", "pending_review", ""))

		application, err := store.GetApplication(ctx, orgID, "app-1")
		require.NoError(t, err)
		assert.Equal(t, StatusSubmitted, application.Status)
		assert.Equal(t, "pending_review", application.ModerationDecision)
	})

	t.Run("non-empty status moves the application", func(t *testing.T) {
		require.NoError(t, store.SetApplicationModeration(ctx, orgID, "app-1", "approved", StatusInReview))

		application, err := store.GetApplication(ctx, orgID, "app-1")
		require.NoError(t, err)
		assert.Equal(t, StatusInReview, application.Status)
	})
}
