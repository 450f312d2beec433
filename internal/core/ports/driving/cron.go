package driving

import (
	"context"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

// RotateResponse carries the raw secret exactly once. It is never
// retrievable again; only the prefix is stored for display.
type RotateResponse struct {
	Secret    string `json:"secret"`
	KeyPrefix string `json:"key_prefix"`
}

// RunResponse summarises a cron-triggered run.
type RunResponse struct {
	Enqueued int `json:"enqueued"`
}

// CronService manages the per-tenant automation credential and the
// unattended sync entry point.
type CronService interface {
	// Rotate replaces the tenant's cron secret and returns the raw value.
	// The previous secret is invalid immediately.
	Rotate(ctx context.Context, actorID, tenantID string) (*RotateResponse, error)

	// Authenticate verifies a supplied secret against the stored hash in
	// constant time. Disabled records always fail. A matching deployment
	// service key is an independent sufficient credential, checked by the
	// HTTP layer before this is consulted.
	Authenticate(ctx context.Context, tenantID, supplied string) error

	// Status reports the non-secret view of the tenant's cron credential.
	Status(ctx context.Context, tenantID string) (*domain.CronStatus, error)

	// RunDue enqueues sync tasks for the tenant's due sources, up to
	// limit (<=0 uses the record's default run limit).
	RunDue(ctx context.Context, tenantID string, limit int) (*RunResponse, error)

	// SetEnabled toggles unattended access without rotating.
	SetEnabled(ctx context.Context, actorID, tenantID string, enabled bool) error
}
