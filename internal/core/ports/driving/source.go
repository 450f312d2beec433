package driving

import (
	"context"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

// UpsertSourceRequest creates or updates a document feed.
type UpsertSourceRequest struct {
	ID              string              `json:"id,omitempty"`
	Name            string              `json:"name"`
	ProviderType    domain.ProviderType `json:"provider_type"`
	ScheduleMinutes int                 `json:"schedule_minutes"`
	Config          domain.SourceConfig `json:"config"`
	Enabled         *bool               `json:"enabled,omitempty"`

	// Secret carries the password/private key for credential-based
	// providers (SFTP, FTPS). It is written straight to the vault and
	// never echoed back. Ignored for OAuth providers.
	Secret string `json:"secret,omitempty"`
}

// SourceService manages document feed sources (admin operations).
// Every operation is tenant-scoped; secrets never appear in responses.
type SourceService interface {
	// Upsert creates or updates a source. The schedule interval is clamped
	// to the 5-minute floor. Provider config is validated up front.
	Upsert(ctx context.Context, tenantID, actorID string, req UpsertSourceRequest) (*domain.Source, error)

	// Get retrieves a source, enforcing tenant ownership.
	Get(ctx context.Context, tenantID, id string) (*domain.Source, error)

	// List retrieves all sources for a tenant.
	List(ctx context.Context, tenantID string) ([]*domain.Source, error)

	// SetEnabled toggles a source. Disabling is the deletion substitute;
	// sources are never hard-deleted.
	SetEnabled(ctx context.Context, tenantID, id string, enabled bool) error

	// Status reports whether the vault holds a credential for the source.
	Status(ctx context.Context, tenantID, id string) (*domain.SourceStatus, error)
}
