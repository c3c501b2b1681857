package policy

import (
	"context"
	"sort"
	"sync"

	id "github.com/navigategovuk/telldoug2-sub001/pkg/domain"
	"github.com/navigategovuk/telldoug2-sub001/pkg/platform/sentinel"
)

// InMemoryStore keeps policy versions in memory for tests and development
// runs. Publish serialization is a per-org mutex instead of an advisory
// lock.
type InMemoryStore struct {
	mu       sync.RWMutex
	versions map[id.OrgID][]*Version
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		versions: make(map[id.OrgID][]*Version),
	}
}

// AcquirePublishLock is a no-op in memory: the memory store is only used
// with the pass-through transaction runner, where the store-level mutex in
// each mutation provides the needed atomicity for single-process use.
func (s *InMemoryStore) AcquirePublishLock(_ context.Context, _ id.OrgID) error {
	return nil
}

func (s *InMemoryStore) MaxVersionNumber(_ context.Context, orgID id.OrgID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	max := 0
	for _, v := range s.versions[orgID] {
		if v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max, nil
}

func (s *InMemoryStore) DeactivateActive(_ context.Context, orgID id.OrgID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.versions[orgID] {
		v.IsActive = false
	}
	return nil
}

func (s *InMemoryStore) CreateVersion(_ context.Context, version *Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *version
	s.versions[version.OrgID] = append(s.versions[version.OrgID], &copied)
	return nil
}

func (s *InMemoryStore) ActiveVersion(_ context.Context, orgID id.OrgID) (*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active *Version
	for _, v := range s.versions[orgID] {
		if v.IsActive && (active == nil || v.VersionNumber > active.VersionNumber) {
			active = v
		}
	}
	if active == nil {
		return nil, sentinel.ErrNotFound
	}
	copied := *active
	return &copied, nil
}

func (s *InMemoryStore) ListVersions(_ context.Context, orgID id.OrgID) ([]*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Version, 0, len(s.versions[orgID]))
	for _, v := range s.versions[orgID] {
		copied := *v
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}
