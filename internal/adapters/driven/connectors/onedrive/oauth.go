// Package onedrive connects to OneDrive via the Microsoft Graph API.
package onedrive

import (
	"context"
	"net/url"

	"github.com/tallybooks/docfeed-core/internal/adapters/driven/connectors/oauth2"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.OAuthHandler = (*OAuthHandler)(nil)

const (
	authURL  = "https://login.microsoftonline.com/common/oauth2/v2.0/authorize"
	tokenURL = "https://login.microsoftonline.com/common/oauth2/v2.0/token"

	// offline_access is what yields a refresh token on this platform.
	scope = "offline_access Files.Read.All"
)

// OAuthHandler implements the Microsoft leg of the authorization-code flow.
type OAuthHandler struct {
	creds    oauth2.ClientCredentials
	endpoint *oauth2.TokenEndpoint
}

// NewOAuthHandler creates a handler with the deployment's Microsoft
// OAuth app credentials.
func NewOAuthHandler(creds oauth2.ClientCredentials) *OAuthHandler {
	return &OAuthHandler{
		creds:    creds,
		endpoint: oauth2.NewTokenEndpoint(tokenURL, creds),
	}
}

// BuildAuthURL constructs the consent URL. prompt=consent forces the
// consent screen on repeat authorizations so a reconnect always yields
// a fresh refresh token.
func (h *OAuthHandler) BuildAuthURL(redirectURI, state string) string {
	q := url.Values{}
	q.Set("client_id", h.creds.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", scope)
	q.Set("prompt", "consent")
	q.Set("state", state)
	return authURL + "?" + q.Encode()
}

// ExchangeCode trades an authorization code for tokens.
func (h *OAuthHandler) ExchangeCode(ctx context.Context, code, redirectURI string) (*driven.OAuthToken, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("scope", scope)
	return h.endpoint.Post(ctx, form)
}

// Refresh trades a refresh token for a fresh access token. Microsoft
// rotates refresh tokens on every refresh; the caller must persist the
// returned replacement.
func (h *OAuthHandler) Refresh(ctx context.Context, refreshToken string) (*driven.OAuthToken, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("scope", scope)
	return h.endpoint.Post(ctx, form)
}
