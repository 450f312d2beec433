package driven

import "context"

// SecretStore is the credential vault: one opaque blob per source.
// It is intentionally separate from SourceStore so the source read path
// cannot return credentials; only trusted service code holds this port.
type SecretStore interface {
	// Put replaces the source's credential blob (upsert by source id).
	Put(ctx context.Context, sourceID string, secret []byte) error

	// Get returns the credential blob. Returns domain.ErrNotConnected when
	// no blob is stored or the stored blob is empty.
	Get(ctx context.Context, sourceID string) ([]byte, error)

	// Clear empties the blob while keeping the row, so the source's own
	// lifecycle stays independent of credential presence.
	Clear(ctx context.Context, sourceID string) error

	// HasSecret reports whether a non-empty blob is stored.
	HasSecret(ctx context.Context, sourceID string) (bool, error)
}
