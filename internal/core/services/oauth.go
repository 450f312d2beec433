package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driving"
)

// Ensure oauthService implements OAuthService
var _ driving.OAuthService = (*oauthService)(nil)

// OAuthServiceConfig holds configuration for the OAuth service.
type OAuthServiceConfig struct {
	// SourceStore retrieves sources for validation.
	SourceStore driven.SourceStore

	// SecretStore is the credential vault that receives refresh tokens.
	SecretStore driven.SecretStore

	// StateCodec signs and verifies the state token carried across the
	// round trip.
	StateCodec driven.StateCodec

	// Authorizer checks tenant admin rights on both legs.
	Authorizer driven.Authorizer

	// Handlers maps each OAuth provider type to its handler.
	Handlers map[domain.ProviderType]driven.OAuthHandler

	// BaseURL is the application base URL for OAuth callbacks.
	// Example: "https://app.example.com" or "http://localhost:3000"
	BaseURL string
}

// oauthService implements the OAuthService interface.
type oauthService struct {
	sourceStore driven.SourceStore
	secretStore driven.SecretStore
	stateCodec  driven.StateCodec
	authorizer  driven.Authorizer
	handlers    map[domain.ProviderType]driven.OAuthHandler
	baseURL     string
}

// NewOAuthService creates a new OAuth service.
func NewOAuthService(cfg OAuthServiceConfig) driving.OAuthService {
	return &oauthService{
		sourceStore: cfg.SourceStore,
		secretStore: cfg.SecretStore,
		stateCodec:  cfg.StateCodec,
		authorizer:  cfg.Authorizer,
		handlers:    cfg.Handlers,
		baseURL:     cfg.BaseURL,
	}
}

func (s *oauthService) redirectURI() string {
	return s.baseURL + "/api/v1/oauth/callback"
}

// Start begins an OAuth authorization flow for a source.
// The state token binds the flow to the initiating admin; no server-side
// state row is written.
func (s *oauthService) Start(ctx context.Context, actorID, tenantID string, req driving.StartRequest) (*driving.StartResponse, error) {
	source, err := s.sourceStore.Get(ctx, req.SourceID)
	if err != nil {
		return nil, err
	}
	if source.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	if !source.ProviderType.UsesOAuth() {
		return nil, domain.ErrInvalidInput
	}

	ok, err := s.authorizer.IsTenantAdmin(ctx, actorID, tenantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrForbidden
	}

	handler, ok := s.handlers[source.ProviderType]
	if !ok {
		return nil, domain.ErrNotConfigured
	}

	state, err := s.stateCodec.Encode(domain.StateClaims{
		SourceID: source.ID,
		UserID:   actorID,
		ReturnTo: sanitizeReturnTo(req.ReturnTo),
		IssuedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}

	return &driving.StartResponse{
		AuthorizationURL: handler.BuildAuthURL(s.redirectURI(), state),
	}, nil
}

// Callback completes the flow: verify the state token, re-check the
// actor's rights, exchange the code and store the refresh credential.
// Verification order is fixed: signature, expiry, audience, then source
// existence and admin rights. Nothing persists on any failure.
func (s *oauthService) Callback(ctx context.Context, actorID string, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
	if req.Code == "" || req.State == "" {
		return nil, domain.ErrInvalidInput
	}

	claims, err := s.stateCodec.Decode(req.State)
	if err != nil {
		return nil, err
	}
	if claims.UserID != actorID {
		return nil, domain.ErrStateAudience
	}

	source, err := s.sourceStore.Get(ctx, claims.SourceID)
	if err != nil {
		return nil, err
	}
	ok, err := s.authorizer.IsTenantAdmin(ctx, actorID, source.TenantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrForbidden
	}

	handler, ok := s.handlers[source.ProviderType]
	if !ok {
		return nil, domain.ErrNotConfigured
	}

	token, err := handler.ExchangeCode(ctx, req.Code, s.redirectURI())
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	if token.RefreshToken == "" {
		// Without a refresh token unattended sync can never run. The
		// consent prompt must be forced so the provider issues one.
		return nil, domain.ErrNoRefreshToken
	}

	if err := s.secretStore.Put(ctx, source.ID, []byte(token.RefreshToken)); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}

	redirect := claims.ReturnTo
	if redirect == "" {
		redirect = "/sources/" + source.ID
	}
	return &driving.CallbackResponse{RedirectTo: redirect}, nil
}

// Disconnect clears the stored credential. The source row and its
// ledger survive; a later reconnect resumes deduplication where it was.
func (s *oauthService) Disconnect(ctx context.Context, actorID, tenantID, sourceID string) error {
	source, err := s.sourceStore.Get(ctx, sourceID)
	if err != nil {
		return err
	}
	if source.TenantID != tenantID {
		return domain.ErrNotFound
	}
	ok, err := s.authorizer.IsTenantAdmin(ctx, actorID, tenantID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return s.secretStore.Clear(ctx, sourceID)
}

// sanitizeReturnTo keeps only local paths. Anything that could redirect
// off-site (absolute URLs, protocol-relative "//host") is dropped.
func sanitizeReturnTo(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return ""
	}
	return p
}
