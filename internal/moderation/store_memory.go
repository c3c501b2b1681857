package moderation

import (
	"context"
	"sync"
	"time"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
	"github.com/navigategovuk/telldoug2-sub001/pkg/platform/sentinel"
)

// InMemoryStore is a map-backed Store for tests and local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	items  map[id.ModerationItemID]*ModerationItem
	events map[id.ModerationItemID][]*ModerationEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		items:  make(map[id.ModerationItemID]*ModerationItem),
		events: make(map[id.ModerationItemID][]*ModerationEvent),
	}
}

func (s *InMemoryStore) CreateItem(_ context.Context, item *ModerationItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *item
	s.items[item.ID] = &copied
	return nil
}

func (s *InMemoryStore) GetItem(_ context.Context, orgID id.OrgID, itemID id.ModerationItemID) (*ModerationItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[itemID]
	if !ok || item.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (s *InMemoryStore) UpdateDecision(_ context.Context, orgID id.OrgID, itemID id.ModerationItemID, decision Decision, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok || item.OrgID != orgID {
		return sentinel.ErrNotFound
	}
	item.Decision = decision
	item.UpdatedAt = updatedAt
	return nil
}

func (s *InMemoryStore) AppendEvent(_ context.Context, event *ModerationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *event
	s.events[event.ModerationItemID] = append(s.events[event.ModerationItemID], &copied)
	return nil
}

func (s *InMemoryStore) ListEvents(_ context.Context, itemID id.ModerationItemID) ([]*ModerationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events[itemID]
	out := make([]*ModerationEvent, 0, len(events))
	for _, event := range events {
		copied := *event
		out = append(out, &copied)
	}
	return out, nil
}
