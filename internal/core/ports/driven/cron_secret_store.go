package driven

import (
	"context"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

// CronSecretStore persists the per-tenant automation credential.
type CronSecretStore interface {
	// Replace atomically upserts the tenant's cron secret row. The previous
	// hash is gone after this call; there is no overlap window.
	Replace(ctx context.Context, secret *domain.CronSecret) error

	// Get retrieves the tenant's cron secret record.
	Get(ctx context.Context, tenantID string) (*domain.CronSecret, error)

	// SetEnabled toggles the enabled flag without touching the hash.
	SetEnabled(ctx context.Context, tenantID string, enabled bool) error

	// TouchLastUsed records a successful automated call.
	TouchLastUsed(ctx context.Context, tenantID string, usedAt time.Time) error
}
