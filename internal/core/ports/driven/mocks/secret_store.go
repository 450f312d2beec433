package mocks

import (
	"context"
	"sync"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

// MockSecretStore is a mock implementation of SecretStore for testing
type MockSecretStore struct {
	mu      sync.RWMutex
	secrets map[string][]byte
}

// NewMockSecretStore creates a new MockSecretStore
func NewMockSecretStore() *MockSecretStore {
	return &MockSecretStore{
		secrets: make(map[string][]byte),
	}
}

func (m *MockSecretStore) Put(ctx context.Context, sourceID string, secret []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(secret))
	copy(cp, secret)
	m.secrets[sourceID] = cp
	return nil
}

func (m *MockSecretStore) Get(ctx context.Context, sourceID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	secret, ok := m.secrets[sourceID]
	if !ok || len(secret) == 0 {
		return nil, domain.ErrNotConnected
	}
	cp := make([]byte, len(secret))
	copy(cp, secret)
	return cp, nil
}

func (m *MockSecretStore) Clear(ctx context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[sourceID] = nil
	return nil
}

func (m *MockSecretStore) HasSecret(ctx context.Context, sourceID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.secrets[sourceID]) > 0, nil
}
