package postgres

import (
	"context"
	"database/sql"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SecretStore = (*SecretStore)(nil)

// SecretStore implements the credential vault on PostgreSQL.
// Blobs are encrypted at rest; the encryption key never reaches the
// database. An empty blob means "previously connected, now cleared".
type SecretStore struct {
	db  *DB
	enc *SecretEncryptor
}

// NewSecretStore creates a new SecretStore
func NewSecretStore(db *DB, enc *SecretEncryptor) *SecretStore {
	return &SecretStore{db: db, enc: enc}
}

// Put replaces the source's credential blob
func (s *SecretStore) Put(ctx context.Context, sourceID string, secret []byte) error {
	blob, err := s.enc.Seal(secret)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO source_secrets (source_id, secret, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (source_id) DO UPDATE SET
			secret = EXCLUDED.secret,
			updated_at = NOW()
	`
	_, err = s.db.ExecContext(ctx, query, sourceID, blob)
	return err
}

// Get returns the decrypted credential blob
func (s *SecretStore) Get(ctx context.Context, sourceID string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT secret FROM source_secrets WHERE source_id = $1`, sourceID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotConnected
	}
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		return nil, domain.ErrNotConnected
	}
	return s.enc.Open(blob)
}

// Clear empties the blob while keeping the row
func (s *SecretStore) Clear(ctx context.Context, sourceID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE source_secrets SET secret = ''::bytea, updated_at = NOW() WHERE source_id = $1`,
		sourceID)
	return err
}

// HasSecret reports whether a non-empty blob is stored
func (s *SecretStore) HasSecret(ctx context.Context, sourceID string) (bool, error) {
	var has bool
	err := s.db.QueryRowContext(ctx,
		`SELECT octet_length(secret) > 0 FROM source_secrets WHERE source_id = $1`,
		sourceID).Scan(&has)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return has, nil
}
