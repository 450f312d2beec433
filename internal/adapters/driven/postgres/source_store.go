package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SourceStore = (*SourceStore)(nil)

// SourceStore implements driven.SourceStore using PostgreSQL
type SourceStore struct {
	db *DB
}

// NewSourceStore creates a new SourceStore
func NewSourceStore(db *DB) *SourceStore {
	return &SourceStore{db: db}
}

const sourceColumns = `id, tenant_id, name, provider_type, config, enabled, schedule_minutes,
       last_run_at, last_attempt_at, last_error, created_at, updated_at, created_by`

// Save creates or updates a source
func (s *SourceStore) Save(ctx context.Context, source *domain.Source) error {
	configJSON, err := json.Marshal(source.Config)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sources (id, tenant_id, name, provider_type, config, enabled, schedule_minutes, created_at, updated_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			config = EXCLUDED.config,
			enabled = EXCLUDED.enabled,
			schedule_minutes = EXCLUDED.schedule_minutes,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		source.ID,
		source.TenantID,
		source.Name,
		string(source.ProviderType),
		configJSON,
		source.Enabled,
		source.ScheduleMinutes,
		source.CreatedAt,
		source.UpdatedAt,
		sql.NullString{String: source.CreatedBy, Valid: source.CreatedBy != ""},
	)
	return err
}

// Get retrieves a source by ID
func (s *SourceStore) Get(ctx context.Context, id string) (*domain.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1`

	source, err := scanSource(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return source, nil
}

// ListByTenant retrieves all sources owned by a tenant
func (s *SourceStore) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE tenant_id = $1 ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSources(rows)
}

// ListDue retrieves enabled sources whose next run is at or before now.
// A source that has never run is always due.
func (s *SourceStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.Source, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		WHERE enabled
		  AND (last_run_at IS NULL OR last_run_at + make_interval(mins => schedule_minutes) <= $1)
		ORDER BY last_run_at NULLS FIRST
	`
	args := []any{now}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSources(rows)
}

// SetEnabled updates the enabled flag
func (s *SourceStore) SetEnabled(ctx context.Context, id string, enabled bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE sources SET enabled = $2, updated_at = NOW() WHERE id = $1`, id, enabled)
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

// RecordRun updates the run bookkeeping after a sync attempt.
// A clean run advances last_run_at; a failed one only records the
// attempt and the error, so the source stays due for retry.
func (s *SourceStore) RecordRun(ctx context.Context, id string, ranAt time.Time, lastError string) error {
	var result sql.Result
	var err error
	if lastError == "" {
		result, err = s.db.ExecContext(ctx, `
			UPDATE sources
			SET last_run_at = $2, last_attempt_at = $2, last_error = NULL, updated_at = NOW()
			WHERE id = $1`, id, ranAt)
	} else {
		result, err = s.db.ExecContext(ctx, `
			UPDATE sources
			SET last_attempt_at = $2, last_error = $3, updated_at = NOW()
			WHERE id = $1`, id, ranAt, lastError)
	}
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*domain.Source, error) {
	var source domain.Source
	var configJSON []byte
	var lastRunAt, lastAttemptAt sql.NullTime
	var lastError, createdBy sql.NullString

	err := row.Scan(
		&source.ID,
		&source.TenantID,
		&source.Name,
		&source.ProviderType,
		&configJSON,
		&source.Enabled,
		&source.ScheduleMinutes,
		&lastRunAt,
		&lastAttemptAt,
		&lastError,
		&source.CreatedAt,
		&source.UpdatedAt,
		&createdBy,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(configJSON, &source.Config); err != nil {
		return nil, err
	}
	if lastRunAt.Valid {
		source.LastRunAt = &lastRunAt.Time
	}
	if lastAttemptAt.Valid {
		source.LastAttemptAt = &lastAttemptAt.Time
	}
	if lastError.Valid {
		source.LastError = &lastError.String
	}
	source.CreatedBy = createdBy.String

	return &source, nil
}

func scanSources(rows *sql.Rows) ([]*domain.Source, error) {
	var sources []*domain.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}
