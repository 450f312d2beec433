package driven

import (
	"context"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

// Connector is the uniform list/download contract every provider
// implements. Connectors are created per call by the ConnectorFactory
// with the source's vault credential already resolved.
type Connector interface {
	// Type returns the provider type.
	Type() domain.ProviderType

	// List returns the files visible at the source's configured location.
	// The glob filter and preview cap are applied by the caller, not here.
	List(ctx context.Context, cfg domain.SourceConfig) ([]domain.RemoteFile, error)

	// Download fetches one file's bytes by its provider-specific remote id.
	Download(ctx context.Context, cfg domain.SourceConfig, remoteID string) ([]byte, error)
}

// ConnectorFactory builds a connector for a source. The provider set is
// closed; implementations dispatch over the four known types.
type ConnectorFactory interface {
	// Create resolves the source's credential from the vault and returns a
	// ready connector. Returns domain.ErrNotConnected when the vault holds
	// no credential, domain.ErrProviderAuth when the stored credential is
	// rejected during setup (e.g. refresh token revoked).
	Create(ctx context.Context, source *domain.Source) (Connector, error)
}

// OAuthHandler performs the provider-specific legs of an OAuth2
// authorization-code flow. One implementation per OAuth provider.
type OAuthHandler interface {
	// BuildAuthURL constructs the provider consent URL. The fixed
	// parameters (response_type=code, offline access, forced consent and a
	// minimal read-only scope) are supplied by the implementation; state is
	// the signed state token.
	BuildAuthURL(redirectURI, state string) string

	// ExchangeCode exchanges an authorization code for tokens.
	ExchangeCode(ctx context.Context, code, redirectURI string) (*OAuthToken, error)

	// Refresh exchanges a refresh token for a fresh access token. Providers
	// may rotate the refresh credential; when they do, the returned token
	// carries the replacement and the caller must persist it before any
	// further use of the old one.
	Refresh(ctx context.Context, refreshToken string) (*OAuthToken, error)
}

// OAuthToken represents tokens returned by a provider.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int    // Seconds until access token expiry
	TokenType    string // Usually "Bearer"
	Scope        string
}

// TokenSaver persists a rotated refresh credential. The connector
// factory wires this to the vault so rotation is durable before the new
// token is used.
type TokenSaver func(ctx context.Context, refreshToken string) error
