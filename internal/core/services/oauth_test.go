package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven/mocks"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driving"
)

type oauthFixture struct {
	svc         driving.OAuthService
	sourceStore *mocks.MockSourceStore
	secretStore *mocks.MockSecretStore
	codec       *mocks.MockStateCodec
	authorizer  *mocks.MockAuthorizer
	handler     *mocks.MockOAuthHandler
	source      *domain.Source
}

func newOAuthFixture(t *testing.T) *oauthFixture {
	t.Helper()
	f := &oauthFixture{
		sourceStore: mocks.NewMockSourceStore(),
		secretStore: mocks.NewMockSecretStore(),
		codec:       mocks.NewMockStateCodec(),
		authorizer:  mocks.NewMockAuthorizer(),
		handler:     mocks.NewMockOAuthHandler(),
	}
	f.source = &domain.Source{
		ID:           "src-1",
		TenantID:     "tenant-1",
		Name:         "shared drive",
		ProviderType: domain.ProviderTypeGoogleDrive,
		Enabled:      true,
		Config:       domain.SourceConfig{FolderID: "folder-1"},
	}
	if err := f.sourceStore.Save(context.Background(), f.source); err != nil {
		t.Fatalf("seed source: %v", err)
	}
	f.svc = NewOAuthService(OAuthServiceConfig{
		SourceStore: f.sourceStore,
		SecretStore: f.secretStore,
		StateCodec:  f.codec,
		Authorizer:  f.authorizer,
		Handlers: map[domain.ProviderType]driven.OAuthHandler{
			domain.ProviderTypeGoogleDrive: f.handler,
		},
		BaseURL: "https://app.example.com",
	})
	return f
}

func TestOAuthService_Start(t *testing.T) {
	f := newOAuthFixture(t)

	resp, err := f.svc.Start(context.Background(), "user-1", "tenant-1", driving.StartRequest{
		SourceID: "src-1",
		ReturnTo: "/sources/src-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(resp.AuthorizationURL, "state=") {
		t.Errorf("expected state in auth url, got %s", resp.AuthorizationURL)
	}
}

func TestOAuthService_Start_Rejections(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	// Unknown source
	if _, err := f.svc.Start(ctx, "user-1", "tenant-1", driving.StartRequest{SourceID: "nope"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Foreign tenant
	if _, err := f.svc.Start(ctx, "user-1", "tenant-2", driving.StartRequest{SourceID: "src-1"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Non-admin
	f.authorizer.IsTenantAdminFn = func(ctx context.Context, userID, tenantID string) (bool, error) {
		return false, nil
	}
	if _, err := f.svc.Start(ctx, "user-1", "tenant-1", driving.StartRequest{SourceID: "src-1"}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	f.authorizer.IsTenantAdminFn = nil

	// Credential-based provider has no OAuth flow
	sftp := &domain.Source{
		ID:           "src-sftp",
		TenantID:     "tenant-1",
		ProviderType: domain.ProviderTypeSFTP,
		Config:       domain.SourceConfig{Host: "h", Username: "u"},
	}
	_ = f.sourceStore.Save(ctx, sftp)
	if _, err := f.svc.Start(ctx, "user-1", "tenant-1", driving.StartRequest{SourceID: "src-sftp"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSanitizeReturnTo(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/sources/abc", "/sources/abc"},
		{"", ""},
		{"//evil.example.com", ""},
		{"https://evil.example.com", ""},
		{"sources/abc", ""},
	}
	for _, tt := range tests {
		if got := sanitizeReturnTo(tt.in); got != tt.want {
			t.Errorf("sanitizeReturnTo(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOAuthService_Callback(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	f.handler.ExchangeCodeFn = func(ctx context.Context, code, redirectURI string) (*driven.OAuthToken, error) {
		if code != "auth-code" {
			t.Errorf("unexpected code %q", code)
		}
		return &driven.OAuthToken{AccessToken: "at", RefreshToken: "rt-secret", ExpiresIn: 3600}, nil
	}

	state, err := f.codec.Encode(domain.StateClaims{
		SourceID: "src-1",
		UserID:   "user-1",
		ReturnTo: "/after",
		IssuedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("encode state: %v", err)
	}

	resp, err := f.svc.Callback(ctx, "user-1", driving.CallbackRequest{Code: "auth-code", State: state})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.RedirectTo != "/after" {
		t.Errorf("expected redirect /after, got %s", resp.RedirectTo)
	}

	secret, err := f.secretStore.Get(ctx, "src-1")
	if err != nil {
		t.Fatalf("vault read: %v", err)
	}
	if string(secret) != "rt-secret" {
		t.Errorf("expected refresh token in vault, got %q", secret)
	}
}

func TestOAuthService_Callback_WrongUser(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	state, _ := f.codec.Encode(domain.StateClaims{
		SourceID: "src-1",
		UserID:   "user-1",
		IssuedAt: time.Now(),
	})

	_, err := f.svc.Callback(ctx, "user-2", driving.CallbackRequest{Code: "c", State: state})
	if !errors.Is(err, domain.ErrStateAudience) {
		t.Errorf("expected ErrStateAudience, got %v", err)
	}
	if has, _ := f.secretStore.HasSecret(ctx, "src-1"); has {
		t.Error("vault must stay empty after rejected callback")
	}
}

func TestOAuthService_Callback_ExpiredState(t *testing.T) {
	f := newOAuthFixture(t)

	state, _ := f.codec.Encode(domain.StateClaims{
		SourceID: "src-1",
		UserID:   "user-1",
		IssuedAt: time.Now().Add(-domain.DefaultStateTTL - time.Minute),
	})

	_, err := f.svc.Callback(context.Background(), "user-1", driving.CallbackRequest{Code: "c", State: state})
	if !errors.Is(err, domain.ErrStateExpired) {
		t.Errorf("expected ErrStateExpired, got %v", err)
	}
}

func TestOAuthService_Callback_NoRefreshToken(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	f.handler.ExchangeCodeFn = func(ctx context.Context, code, redirectURI string) (*driven.OAuthToken, error) {
		return &driven.OAuthToken{AccessToken: "at", ExpiresIn: 3600}, nil
	}

	state, _ := f.codec.Encode(domain.StateClaims{
		SourceID: "src-1",
		UserID:   "user-1",
		IssuedAt: time.Now(),
	})

	_, err := f.svc.Callback(ctx, "user-1", driving.CallbackRequest{Code: "c", State: state})
	if !errors.Is(err, domain.ErrNoRefreshToken) {
		t.Errorf("expected ErrNoRefreshToken, got %v", err)
	}
	if has, _ := f.secretStore.HasSecret(ctx, "src-1"); has {
		t.Error("vault must stay empty without a refresh token")
	}
}

func TestOAuthService_Disconnect(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	_ = f.secretStore.Put(ctx, "src-1", []byte("rt"))

	if err := f.svc.Disconnect(ctx, "user-1", "tenant-1", "src-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if has, _ := f.secretStore.HasSecret(ctx, "src-1"); has {
		t.Error("expected credential cleared")
	}

	// The source row survives
	if _, err := f.sourceStore.Get(ctx, "src-1"); err != nil {
		t.Errorf("source must survive disconnect: %v", err)
	}
}
