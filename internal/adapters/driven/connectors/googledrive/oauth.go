// Package googledrive connects to Google Drive via the Drive v3 REST API.
package googledrive

import (
	"context"
	"net/url"

	"github.com/tallybooks/docfeed-core/internal/adapters/driven/connectors/oauth2"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.OAuthHandler = (*OAuthHandler)(nil)

const (
	authURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	tokenURL = "https://oauth2.googleapis.com/token"

	// Read-only Drive scope. Listing and downloading never needs more.
	scope = "https://www.googleapis.com/auth/drive.readonly"
)

// OAuthHandler implements the Google leg of the authorization-code flow.
type OAuthHandler struct {
	creds    oauth2.ClientCredentials
	endpoint *oauth2.TokenEndpoint
}

// NewOAuthHandler creates a handler with the deployment's Google OAuth
// app credentials.
func NewOAuthHandler(creds oauth2.ClientCredentials) *OAuthHandler {
	return &OAuthHandler{
		creds:    creds,
		endpoint: oauth2.NewTokenEndpoint(tokenURL, creds),
	}
}

// BuildAuthURL constructs the consent URL. access_type=offline plus
// prompt=consent makes Google return a refresh token even on repeat
// authorizations.
func (h *OAuthHandler) BuildAuthURL(redirectURI, state string) string {
	q := url.Values{}
	q.Set("client_id", h.creds.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", scope)
	q.Set("access_type", "offline")
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
	return h.endpoint.Post(ctx, form)
}

// Refresh trades a refresh token for a fresh access token. Google does
// not rotate refresh tokens, so RefreshToken is typically empty here.
func (h *OAuthHandler) Refresh(ctx context.Context, refreshToken string) (*driven.OAuthToken, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return h.endpoint.Post(ctx, form)
}
