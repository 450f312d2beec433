package driving

import "context"

// StartRequest begins an OAuth round trip for a source.
type StartRequest struct {
	SourceID string `json:"source_id"`
	// ReturnTo is an optional path to land on after the callback. It must
	// be a local path ("/..." but not "//...") or it is ignored.
	ReturnTo string `json:"return_to,omitempty"`
}

// StartResponse carries the provider consent URL to redirect the admin to.
type StartResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// CallbackRequest is the second leg of the round trip.
type CallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// CallbackResponse tells the HTTP layer where to send the browser.
type CallbackResponse struct {
	RedirectTo string `json:"redirect_to"`
}

// OAuthError is a structured OAuth failure with an actionable hint.
type OAuthError struct {
	Code string `json:"error"`
	Hint string `json:"hint,omitempty"`
}

func (e *OAuthError) Error() string {
	if e.Hint != "" {
		return e.Code + ": " + e.Hint
	}
	return e.Code
}

// OAuthService drives the authorization-code flow for OAuth providers.
type OAuthService interface {
	// Start builds the provider authorization URL with a signed state
	// token. The actor must administer the source's tenant.
	Start(ctx context.Context, actorID, tenantID string, req StartRequest) (*StartResponse, error)

	// Callback verifies the state token (signature, expiry, audience) and
	// the actor's admin rights, exchanges the code, and stores the refresh
	// credential in the vault. Nothing persists on any failure. A provider
	// response without a refresh token is a hard error.
	Callback(ctx context.Context, actorID string, req CallbackRequest) (*CallbackResponse, error)

	// Disconnect clears the source's vault blob. The source row survives.
	Disconnect(ctx context.Context, actorID, tenantID, sourceID string) error
}
