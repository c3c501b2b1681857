package moderation

import (
	"context"
	"time"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
)

// Store persists moderation items and their append-only event logs.
// Item lookups are organization-scoped; a missing item is reported as
// sentinel.ErrNotFound. Implementations must join a transaction from
// the context when one is present so item writes and event appends
// commit atomically.
type Store interface {
	CreateItem(ctx context.Context, item *ModerationItem) error
	GetItem(ctx context.Context, orgID id.OrgID, itemID id.ModerationItemID) (*ModerationItem, error)
	// UpdateDecision mutates the only mutable fields of an item:
	// decision and updatedAt.
	UpdateDecision(ctx context.Context, orgID id.OrgID, itemID id.ModerationItemID, decision Decision, updatedAt time.Time) error

	AppendEvent(ctx context.Context, event *ModerationEvent) error
	// ListEvents returns an item's log, oldest first.
	ListEvents(ctx context.Context, itemID id.ModerationItemID) ([]*ModerationEvent, error)
}
