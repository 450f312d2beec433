package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CronSecretStore = (*CronSecretStore)(nil)

// CronSecretStore implements driven.CronSecretStore using PostgreSQL
type CronSecretStore struct {
	db *DB
}

// NewCronSecretStore creates a new CronSecretStore
func NewCronSecretStore(db *DB) *CronSecretStore {
	return &CronSecretStore{db: db}
}

// Replace atomically upserts the tenant's cron secret row.
// The single-statement upsert is what makes rotation atomic: there is
// never a moment where both the old and new hash are accepted.
func (s *CronSecretStore) Replace(ctx context.Context, secret *domain.CronSecret) error {
	query := `
		INSERT INTO cron_secrets (tenant_id, key_prefix, secret_hash, enabled, default_run_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id) DO UPDATE SET
			key_prefix = EXCLUDED.key_prefix,
			secret_hash = EXCLUDED.secret_hash,
			enabled = EXCLUDED.enabled,
			default_run_limit = EXCLUDED.default_run_limit,
			last_used_at = NULL,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		secret.TenantID,
		secret.KeyPrefix,
		secret.SecretHash,
		secret.Enabled,
		secret.DefaultRunLimit,
		secret.CreatedAt,
		secret.UpdatedAt,
	)
	return err
}

// Get retrieves the tenant's cron secret record
func (s *CronSecretStore) Get(ctx context.Context, tenantID string) (*domain.CronSecret, error) {
	query := `
		SELECT tenant_id, key_prefix, secret_hash, enabled, default_run_limit, last_used_at, created_at, updated_at
		FROM cron_secrets
		WHERE tenant_id = $1
	`

	var record domain.CronSecret
	var lastUsedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, tenantID).Scan(
		&record.TenantID,
		&record.KeyPrefix,
		&record.SecretHash,
		&record.Enabled,
		&record.DefaultRunLimit,
		&lastUsedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastUsedAt.Valid {
		record.LastUsedAt = &lastUsedAt.Time
	}
	return &record, nil
}

// SetEnabled toggles the enabled flag without touching the hash
func (s *CronSecretStore) SetEnabled(ctx context.Context, tenantID string, enabled bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE cron_secrets SET enabled = $2, updated_at = NOW() WHERE tenant_id = $1`,
		tenantID, enabled)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// TouchLastUsed records a successful automated call
func (s *CronSecretStore) TouchLastUsed(ctx context.Context, tenantID string, usedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE cron_secrets SET last_used_at = $2 WHERE tenant_id = $1`,
		tenantID, usedAt)
	return err
}
