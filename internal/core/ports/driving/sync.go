package driving

import (
	"context"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

// TestPreviewCap limits interactive test listings.
const TestPreviewCap = 25

// TestResponse is a capped, filtered preview of a source's remote files.
type TestResponse struct {
	OK   bool                `json:"ok"`
	List []domain.RemoteFile `json:"list"`
}

// FileRef names one remote file in an import request.
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ImportResponse is the aggregate outcome of an import batch.
type ImportResponse struct {
	OK       bool                  `json:"ok"`
	Inserted int                   `json:"inserted"`
	Results  []domain.ImportResult `json:"results"`
}

// SyncService lists and imports remote files for a source.
type SyncService interface {
	// Test lists remote files without importing: adapter list, glob
	// filter, capped at TestPreviewCap entries.
	Test(ctx context.Context, tenantID, sourceID string) (*TestResponse, error)

	// Import downloads and imports the requested files. Items already in
	// the ledger come back SKIPPED; a failing item is reported as ERROR
	// and never aborts the rest of the batch.
	Import(ctx context.Context, tenantID, sourceID string, files []FileRef) (*ImportResponse, error)

	// SyncSource is the unattended path: list everything, filter, import.
	// Guarded by a per-source lease so overlapping scheduled runs skip
	// rather than double-fetch.
	SyncSource(ctx context.Context, sourceID string) (*ImportResponse, error)
}
