package driven

import (
	"context"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

// ImportPipeline is the external document-processing collaborator. It
// turns downloaded bytes into a stored document and returns its id.
// Content validation failures surface as errors.
type ImportPipeline interface {
	Import(ctx context.Context, tenantID, filename string, data []byte, cfg domain.SourceConfig) (documentID string, err error)
}

// Authorizer is the external membership/role collaborator.
type Authorizer interface {
	// IsTenantAdmin reports whether the user administers the tenant.
	IsTenantAdmin(ctx context.Context, userID, tenantID string) (bool, error)
}

// Entitlements is the external subscription/feature collaborator.
type Entitlements interface {
	// TenantHasCapability reports whether the tenant's plan includes the
	// named capability (e.g. "document_feeds").
	TenantHasCapability(ctx context.Context, tenantID, capability string) (bool, error)
}
