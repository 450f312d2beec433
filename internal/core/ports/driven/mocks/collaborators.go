package mocks

import (
	"context"
	"sync"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

// MockImportPipeline is a mock implementation of ImportPipeline for testing.
// By default it accepts everything and records what it saw.
type MockImportPipeline struct {
	mu       sync.Mutex
	ImportFn func(ctx context.Context, tenantID, filename string, data []byte, cfg domain.SourceConfig) (string, error)
	calls    []string
	nextID   int
}

func NewMockImportPipeline() *MockImportPipeline {
	return &MockImportPipeline{}
}

func (m *MockImportPipeline) Import(ctx context.Context, tenantID, filename string, data []byte, cfg domain.SourceConfig) (string, error) {
	if m.ImportFn != nil {
		return m.ImportFn(ctx, tenantID, filename, data, cfg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.calls = append(m.calls, filename)
	return "doc-" + filename, nil
}

// Calls returns the filenames imported so far.
func (m *MockImportPipeline) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockAuthorizer is a mock implementation of Authorizer for testing.
// Admin of everything unless IsTenantAdminFn is set.
type MockAuthorizer struct {
	IsTenantAdminFn func(ctx context.Context, userID, tenantID string) (bool, error)
}

func NewMockAuthorizer() *MockAuthorizer {
	return &MockAuthorizer{}
}

func (m *MockAuthorizer) IsTenantAdmin(ctx context.Context, userID, tenantID string) (bool, error) {
	if m.IsTenantAdminFn != nil {
		return m.IsTenantAdminFn(ctx, userID, tenantID)
	}
	return true, nil
}

// MockEntitlements is a mock implementation of Entitlements for testing.
// Every capability is granted unless TenantHasCapabilityFn is set.
type MockEntitlements struct {
	TenantHasCapabilityFn func(ctx context.Context, tenantID, capability string) (bool, error)
}

func NewMockEntitlements() *MockEntitlements {
	return &MockEntitlements{}
}

func (m *MockEntitlements) TenantHasCapability(ctx context.Context, tenantID, capability string) (bool, error) {
	if m.TenantHasCapabilityFn != nil {
		return m.TenantHasCapabilityFn(ctx, tenantID, capability)
	}
	return true, nil
}
