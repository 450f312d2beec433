// Package oauth2 holds the token-endpoint client shared by the OAuth
// provider packages. It lives apart from the factory package so the
// provider packages can depend on it without a cycle.
package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// ClientCredentials are the OAuth app credentials for one provider,
// configured per deployment.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// TokenEndpoint posts form-encoded grants to a provider's token URL.
// Both OAuth providers share this wire shape; only URLs and scopes
// differ.
type TokenEndpoint struct {
	URL        string
	Creds      ClientCredentials
	HTTPClient *http.Client
}

// NewTokenEndpoint creates a token endpoint client.
func NewTokenEndpoint(tokenURL string, creds ClientCredentials) *TokenEndpoint {
	return &TokenEndpoint{
		URL:        tokenURL,
		Creds:      creds,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// tokenResponse is the provider's token endpoint reply.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// Post sends a grant request and parses the token response.
// invalid_grant means the credential itself was revoked or expired and
// maps to domain.ErrProviderAuth so callers can tell "reconnect needed"
// from transient failures.
func (e *TokenEndpoint) Post(ctx context.Context, form url.Values) (*driven.OAuthToken, error) {
	form.Set("client_id", e.Creds.ClientID)
	form.Set("client_secret", e.Creds.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	if parsed.Error != "" {
		if parsed.Error == "invalid_grant" {
			return nil, domain.NewProviderError("token", "reconnect the source to refresh its authorization", domain.ErrProviderAuth)
		}
		return nil, fmt.Errorf("oauth error: %s - %s", parsed.Error, parsed.ErrorDesc)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d", resp.StatusCode)
	}

	return &driven.OAuthToken{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		TokenType:    parsed.TokenType,
		Scope:        parsed.Scope,
		ExpiresIn:    parsed.ExpiresIn,
	}, nil
}
