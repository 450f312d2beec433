package postgres

import (
	"context"

	"github.com/lib/pq"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ItemStore = (*ItemStore)(nil)

// ItemStore implements the dedup ledger on PostgreSQL.
// The (source_id, remote_id) primary key is the dedup guarantee; a
// unique violation surfaces as domain.ErrAlreadyExists.
type ItemStore struct {
	db *DB
}

// NewItemStore creates a new ItemStore
func NewItemStore(db *DB) *ItemStore {
	return &ItemStore{db: db}
}

// Insert records an imported item
func (s *ItemStore) Insert(ctx context.Context, item *domain.SourceItem) error {
	query := `
		INSERT INTO source_items (source_id, remote_id, modified_at, size_bytes, document_id, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		item.SourceID,
		item.RemoteID,
		item.ModifiedAt,
		item.SizeBytes,
		item.DocumentID,
		item.ImportedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Exists reports whether the pair is already in the ledger
func (s *ItemStore) Exists(ctx context.Context, sourceID, remoteID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM source_items WHERE source_id = $1 AND remote_id = $2)`,
		sourceID, remoteID).Scan(&exists)
	return exists, err
}

// ListBySource retrieves ledger rows for a source, newest first
func (s *ItemStore) ListBySource(ctx context.Context, sourceID string, limit int) ([]*domain.SourceItem, error) {
	query := `
		SELECT source_id, remote_id, modified_at, size_bytes, document_id, imported_at
		FROM source_items
		WHERE source_id = $1
		ORDER BY imported_at DESC
	`
	args := []any{sourceID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.SourceItem
	for rows.Next() {
		var item domain.SourceItem
		if err := rows.Scan(
			&item.SourceID,
			&item.RemoteID,
			&item.ModifiedAt,
			&item.SizeBytes,
			&item.DocumentID,
			&item.ImportedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// CountBySource returns the number of imported items for a source
func (s *ItemStore) CountBySource(ctx context.Context, sourceID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM source_items WHERE source_id = $1`, sourceID).Scan(&count)
	return count, err
}
