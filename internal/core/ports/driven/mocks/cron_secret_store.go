package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

// MockCronSecretStore is a mock implementation of CronSecretStore for testing
type MockCronSecretStore struct {
	mu      sync.RWMutex
	secrets map[string]*domain.CronSecret
}

// NewMockCronSecretStore creates a new MockCronSecretStore
func NewMockCronSecretStore() *MockCronSecretStore {
	return &MockCronSecretStore{
		secrets: make(map[string]*domain.CronSecret),
	}
}

func (m *MockCronSecretStore) Replace(ctx context.Context, secret *domain.CronSecret) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *secret
	m.secrets[secret.TenantID] = &cp
	return nil
}

func (m *MockCronSecretStore) Get(ctx context.Context, tenantID string) (*domain.CronSecret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	secret, ok := m.secrets[tenantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *secret
	return &cp, nil
}

func (m *MockCronSecretStore) SetEnabled(ctx context.Context, tenantID string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	secret, ok := m.secrets[tenantID]
	if !ok {
		return domain.ErrNotFound
	}
	secret.Enabled = enabled
	return nil
}

func (m *MockCronSecretStore) TouchLastUsed(ctx context.Context, tenantID string, usedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	secret, ok := m.secrets[tenantID]
	if !ok {
		return domain.ErrNotFound
	}
	secret.LastUsedAt = &usedAt
	return nil
}
