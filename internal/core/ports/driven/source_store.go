package driven

import (
	"context"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

// SourceStore handles source persistence (PostgreSQL)
type SourceStore interface {
	// Save creates or updates a source (upsert by id)
	Save(ctx context.Context, source *domain.Source) error

	// Get retrieves a source by ID
	Get(ctx context.Context, id string) (*domain.Source, error)

	// ListByTenant retrieves all sources owned by a tenant
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Source, error)

	// ListDue retrieves enabled sources whose next scheduled run is at or
	// before now. limit <= 0 means no limit.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.Source, error)

	// SetEnabled updates the enabled flag
	SetEnabled(ctx context.Context, id string, enabled bool) error

	// RecordRun updates the run bookkeeping after a sync attempt.
	// lastError is empty on a clean run; ranAt is stored as last_attempt_at
	// and, when the run was clean, also as last_run_at.
	RecordRun(ctx context.Context, id string, ranAt time.Time, lastError string) error
}
