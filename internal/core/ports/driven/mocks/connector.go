package mocks

import (
	"context"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// MockConnector is a mock implementation of Connector for testing
type MockConnector struct {
	TypeFn     func() domain.ProviderType
	ListFn     func(ctx context.Context, cfg domain.SourceConfig) ([]domain.RemoteFile, error)
	DownloadFn func(ctx context.Context, cfg domain.SourceConfig, remoteID string) ([]byte, error)
}

func NewMockConnector() *MockConnector {
	return &MockConnector{}
}

func (m *MockConnector) Type() domain.ProviderType {
	if m.TypeFn != nil {
		return m.TypeFn()
	}
	return domain.ProviderTypeSFTP
}

func (m *MockConnector) List(ctx context.Context, cfg domain.SourceConfig) ([]domain.RemoteFile, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, cfg)
	}
	return nil, nil
}

func (m *MockConnector) Download(ctx context.Context, cfg domain.SourceConfig, remoteID string) ([]byte, error) {
	if m.DownloadFn != nil {
		return m.DownloadFn(ctx, cfg, remoteID)
	}
	return nil, nil
}

// MockConnectorFactory is a mock implementation of ConnectorFactory for testing
type MockConnectorFactory struct {
	CreateFn  func(ctx context.Context, source *domain.Source) (driven.Connector, error)
	connector *MockConnector
}

func NewMockConnectorFactory() *MockConnectorFactory {
	return &MockConnectorFactory{
		connector: NewMockConnector(),
	}
}

func (m *MockConnectorFactory) Create(ctx context.Context, source *domain.Source) (driven.Connector, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, source)
	}
	return m.connector, nil
}

// Connector returns the default connector handed out by Create.
func (m *MockConnectorFactory) Connector() *MockConnector {
	return m.connector
}

// MockOAuthHandler is a mock implementation of OAuthHandler for testing
type MockOAuthHandler struct {
	BuildAuthURLFn func(redirectURI, state string) string
	ExchangeCodeFn func(ctx context.Context, code, redirectURI string) (*driven.OAuthToken, error)
	RefreshFn      func(ctx context.Context, refreshToken string) (*driven.OAuthToken, error)
}

func NewMockOAuthHandler() *MockOAuthHandler {
	return &MockOAuthHandler{}
}

func (m *MockOAuthHandler) BuildAuthURL(redirectURI, state string) string {
	if m.BuildAuthURLFn != nil {
		return m.BuildAuthURLFn(redirectURI, state)
	}
	return "https://provider.example.com/authorize?state=" + state
}

func (m *MockOAuthHandler) ExchangeCode(ctx context.Context, code, redirectURI string) (*driven.OAuthToken, error) {
	if m.ExchangeCodeFn != nil {
		return m.ExchangeCodeFn(ctx, code, redirectURI)
	}
	return &driven.OAuthToken{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 3600, TokenType: "Bearer"}, nil
}

func (m *MockOAuthHandler) Refresh(ctx context.Context, refreshToken string) (*driven.OAuthToken, error) {
	if m.RefreshFn != nil {
		return m.RefreshFn(ctx, refreshToken)
	}
	return &driven.OAuthToken{AccessToken: "access", ExpiresIn: 3600, TokenType: "Bearer"}, nil
}
