package owners

import (
	"context"
	"sync"
	"time"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
	"github.com/navigategovuk/telldoug2-sub001/pkg/platform/sentinel"
)

type ownerKey struct {
	orgID    id.OrgID
	entityID string
}

// InMemoryStore is a map-backed Store for tests and local development.
type InMemoryStore struct {
	mu           sync.RWMutex
	messages     map[ownerKey]*Message
	documents    map[ownerKey]*Document
	applications map[ownerKey]*Application
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		messages:     make(map[ownerKey]*Message),
		documents:    make(map[ownerKey]*Document),
		applications: make(map[ownerKey]*Application),
	}
}

func (s *InMemoryStore) CreateMessage(_ context.Context, message *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *message
	s.messages[ownerKey{message.OrgID, message.ID}] = &copied
	return nil
}

func (s *InMemoryStore) GetMessage(_ context.Context, orgID id.OrgID, messageID string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	message, ok := s.messages[ownerKey{orgID, messageID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *message
	return &copied, nil
}

func (s *InMemoryStore) SetMessageModeration(_ context.Context, orgID id.OrgID, messageID string, decision string, visibility Visibility) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	message, ok := s.messages[ownerKey{orgID, messageID}]
	if !ok {
		return sentinel.ErrNotFound
	}
	message.ModerationDecision = decision
	message.Visibility = visibility
	message.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) CreateDocument(_ context.Context, document *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *document
	s.documents[ownerKey{document.OrgID, document.ID}] = &copied
	return nil
}

func (s *InMemoryStore) GetDocument(_ context.Context, orgID id.OrgID, documentID string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	document, ok := s.documents[ownerKey{orgID, documentID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *document
	return &copied, nil
}

func (s *InMemoryStore) SetDocumentModeration(_ context.Context, orgID id.OrgID, documentID string, decision string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	document, ok := s.documents[ownerKey{orgID, documentID}]
	if !ok {
		return sentinel.ErrNotFound
	}
	document.ModerationDecision = decision
	document.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) CreateApplication(_ context.Context, application *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *application
	s.applications[ownerKey{application.OrgID, application.ID}] = &copied
	return nil
}

func (s *InMemoryStore) GetApplication(_ context.Context, orgID id.OrgID, applicationID string) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	application, ok := s.applications[ownerKey{orgID, applicationID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *application
	return &copied, nil
}

func (s *InMemoryStore) SetApplicationModeration(_ context.Context, orgID id.OrgID, applicationID string, decision string, status ApplicationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	application, ok := s.applications[ownerKey{orgID, applicationID}]
	if !ok {
		return sentinel.ErrNotFound
	}
	application.ModerationDecision = decision
	if status != "" {
		application.Status = status
	}
	application.UpdatedAt = time.Now().UTC()
	return nil
}
