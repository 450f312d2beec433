// Package connectors builds provider connectors from a source's vault
// credential.
package connectors

import (
	"context"
	"fmt"

	"github.com/tallybooks/docfeed-core/internal/adapters/driven/connectors/ftps"
	"github.com/tallybooks/docfeed-core/internal/adapters/driven/connectors/googledrive"
	"github.com/tallybooks/docfeed-core/internal/adapters/driven/connectors/onedrive"
	"github.com/tallybooks/docfeed-core/internal/adapters/driven/connectors/sftp"
	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ConnectorFactory = (*Factory)(nil)

// Factory resolves a source's credential from the vault and constructs
// the matching connector. For OAuth providers this includes refreshing
// the access token, and persisting a rotated refresh token before the
// connector is handed out.
type Factory struct {
	secretStore driven.SecretStore
	handlers    map[domain.ProviderType]driven.OAuthHandler
}

// NewFactory creates a connector factory. handlers must contain an
// entry for each OAuth provider in use.
func NewFactory(secretStore driven.SecretStore, handlers map[domain.ProviderType]driven.OAuthHandler) *Factory {
	return &Factory{
		secretStore: secretStore,
		handlers:    handlers,
	}
}

// Create builds a ready connector for the source.
func (f *Factory) Create(ctx context.Context, source *domain.Source) (driven.Connector, error) {
	credential, err := f.secretStore.Get(ctx, source.ID)
	if err != nil {
		// ErrNotConnected passes through untouched so callers can
		// distinguish "never connected" from infrastructure failures.
		return nil, err
	}

	switch source.ProviderType {
	case domain.ProviderTypeSFTP:
		return sftp.New(credential), nil
	case domain.ProviderTypeFTPS:
		return ftps.New(credential), nil
	case domain.ProviderTypeGoogleDrive:
		token, err := f.refresh(ctx, source, string(credential), f.rotationSaver(source.ID))
		if err != nil {
			return nil, err
		}
		return googledrive.New(token.AccessToken), nil
	case domain.ProviderTypeOneDrive:
		token, err := f.refresh(ctx, source, string(credential), f.rotationSaver(source.ID))
		if err != nil {
			return nil, err
		}
		return onedrive.New(token.AccessToken), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q: %w", source.ProviderType, domain.ErrInvalidInput)
	}
}

// rotationSaver binds the source's vault slot into a TokenSaver so
// refresh can persist a rotated credential without knowing the store.
func (f *Factory) rotationSaver(sourceID string) driven.TokenSaver {
	return func(ctx context.Context, refreshToken string) error {
		return f.secretStore.Put(ctx, sourceID, []byte(refreshToken))
	}
}

// refresh obtains a fresh access token. When the provider rotates the
// refresh credential, the replacement is saved before the new access
// token is used; a save failure aborts the whole operation rather than
// risk losing the only valid credential.
func (f *Factory) refresh(ctx context.Context, source *domain.Source, refreshToken string, save driven.TokenSaver) (*driven.OAuthToken, error) {
	handler, ok := f.handlers[source.ProviderType]
	if !ok {
		return nil, fmt.Errorf("no oauth handler configured for %q", source.ProviderType)
	}

	token, err := handler.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		if err := save(ctx, token.RefreshToken); err != nil {
			return nil, fmt.Errorf("persist rotated refresh token: %w", err)
		}
	}
	return token, nil
}
