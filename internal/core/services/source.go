package services

import (
	"context"
	"strings"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driving"
)

// CapabilityDocumentFeeds is the plan capability gating all source
// management and sync operations.
const CapabilityDocumentFeeds = "document_feeds"

// Ensure sourceService implements SourceService
var _ driving.SourceService = (*sourceService)(nil)

// sourceService implements the SourceService interface
type sourceService struct {
	sourceStore  driven.SourceStore
	secretStore  driven.SecretStore
	authorizer   driven.Authorizer
	entitlements driven.Entitlements
}

// NewSourceService creates a new SourceService
func NewSourceService(
	sourceStore driven.SourceStore,
	secretStore driven.SecretStore,
	authorizer driven.Authorizer,
	entitlements driven.Entitlements,
) driving.SourceService {
	return &sourceService{
		sourceStore:  sourceStore,
		secretStore:  secretStore,
		authorizer:   authorizer,
		entitlements: entitlements,
	}
}

func (s *sourceService) checkAccess(ctx context.Context, actorID, tenantID string) error {
	ok, err := s.authorizer.IsTenantAdmin(ctx, actorID, tenantID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	ok, err = s.entitlements.TenantHasCapability(ctx, tenantID, CapabilityDocumentFeeds)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotEntitled
	}
	return nil
}

// Upsert creates or updates a source (admin only)
func (s *sourceService) Upsert(ctx context.Context, tenantID, actorID string, req driving.UpsertSourceRequest) (*domain.Source, error) {
	if err := s.checkAccess(ctx, actorID, tenantID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	if !req.ProviderType.IsValid() {
		return nil, domain.ErrInvalidInput
	}
	if err := req.Config.Validate(req.ProviderType); err != nil {
		return nil, err
	}

	now := time.Now()
	var source *domain.Source

	if req.ID == "" {
		source = &domain.Source{
			ID:           domain.GenerateID(),
			TenantID:     tenantID,
			Enabled:      true,
			CreatedAt:    now,
			CreatedBy:    actorID,
			ProviderType: req.ProviderType,
		}
	} else {
		existing, err := s.getOwned(ctx, tenantID, req.ID)
		if err != nil {
			return nil, err
		}
		// The provider type is fixed for the life of a source; changing it
		// would orphan the vault credential and the dedup ledger.
		if existing.ProviderType != req.ProviderType {
			return nil, domain.ErrInvalidInput
		}
		source = existing
	}

	source.Name = name
	source.Config = req.Config
	source.ScheduleMinutes = domain.ClampSchedule(req.ScheduleMinutes)
	if req.Enabled != nil {
		source.Enabled = *req.Enabled
	}
	source.UpdatedAt = now

	if err := s.sourceStore.Save(ctx, source); err != nil {
		return nil, err
	}

	// Credential-based providers take their secret inline. It goes to the
	// vault and nowhere else; OAuth providers connect via the OAuth flow.
	if req.Secret != "" && !source.ProviderType.UsesOAuth() {
		if err := s.secretStore.Put(ctx, source.ID, []byte(req.Secret)); err != nil {
			return nil, err
		}
	}

	return source, nil
}

// Get retrieves a source by ID, scoped to the tenant
func (s *sourceService) Get(ctx context.Context, tenantID, id string) (*domain.Source, error) {
	return s.getOwned(ctx, tenantID, id)
}

// List retrieves all sources for a tenant
func (s *sourceService) List(ctx context.Context, tenantID string) ([]*domain.Source, error) {
	return s.sourceStore.ListByTenant(ctx, tenantID)
}

// SetEnabled toggles a source
func (s *sourceService) SetEnabled(ctx context.Context, tenantID, id string, enabled bool) error {
	if _, err := s.getOwned(ctx, tenantID, id); err != nil {
		return err
	}
	return s.sourceStore.SetEnabled(ctx, id, enabled)
}

// Status reports whether a credential is stored for the source
func (s *sourceService) Status(ctx context.Context, tenantID, id string) (*domain.SourceStatus, error) {
	if _, err := s.getOwned(ctx, tenantID, id); err != nil {
		return nil, err
	}
	connected, err := s.secretStore.HasSecret(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.SourceStatus{Connected: connected}, nil
}

// getOwned fetches a source and hides its existence from other tenants.
func (s *sourceService) getOwned(ctx context.Context, tenantID, id string) (*domain.Source, error) {
	source, err := s.sourceStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if source.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return source, nil
}
