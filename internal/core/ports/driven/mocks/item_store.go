package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

// MockItemStore is a mock implementation of ItemStore for testing.
// It enforces the (source_id, remote_id) uniqueness the same way the
// real store does, returning ErrAlreadyExists on a duplicate insert.
type MockItemStore struct {
	mu    sync.RWMutex
	items map[string]*domain.SourceItem
}

// NewMockItemStore creates a new MockItemStore
func NewMockItemStore() *MockItemStore {
	return &MockItemStore{
		items: make(map[string]*domain.SourceItem),
	}
}

func key(sourceID, remoteID string) string {
	return sourceID + "\x00" + remoteID
}

func (m *MockItemStore) Insert(ctx context.Context, item *domain.SourceItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(item.SourceID, item.RemoteID)
	if _, ok := m.items[k]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *item
	m.items[k] = &cp
	return nil
}

func (m *MockItemStore) Exists(ctx context.Context, sourceID, remoteID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[key(sourceID, remoteID)]
	return ok, nil
}

func (m *MockItemStore) ListBySource(ctx context.Context, sourceID string, limit int) ([]*domain.SourceItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.SourceItem
	for _, item := range m.items {
		if item.SourceID == sourceID {
			cp := *item
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ImportedAt.After(result[j].ImportedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockItemStore) CountBySource(ctx context.Context, sourceID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, item := range m.items {
		if item.SourceID == sourceID {
			count++
		}
	}
	return count, nil
}
