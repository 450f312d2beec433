package driven

import (
	"context"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

// ItemStore is the dedup ledger. (source_id, remote_id) is unique and
// that uniqueness is the sole mechanism preventing duplicate imports
// under retries and overlapping runs.
type ItemStore interface {
	// Insert records an imported item. Returns domain.ErrAlreadyExists when
	// the (source, remote id) pair is already in the ledger - callers treat
	// that as SKIPPED, never as a failure.
	Insert(ctx context.Context, item *domain.SourceItem) error

	// Exists reports whether the pair is already in the ledger.
	Exists(ctx context.Context, sourceID, remoteID string) (bool, error)

	// ListBySource retrieves the ledger rows for a source, newest first.
	ListBySource(ctx context.Context, sourceID string, limit int) ([]*domain.SourceItem, error)

	// CountBySource returns the number of imported items for a source.
	CountBySource(ctx context.Context, sourceID string) (int, error)
}
