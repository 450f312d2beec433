package domain

import "time"

// RemoteFile is a file visible through a provider's listing operation.
type RemoteFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	SizeBytes  int64     `json:"size"`
}

// SourceItem is one row of the dedup ledger: a remote file that has been
// imported into the tenant's document store. (source_id, remote_id) is
// unique; the row is written exactly once and never updated.
type SourceItem struct {
	SourceID   string    `json:"source_id"`
	RemoteID   string    `json:"remote_id"`
	ModifiedAt time.Time `json:"modified_at"`
	SizeBytes  int64     `json:"size_bytes"`
	DocumentID string    `json:"document_id"`
	ImportedAt time.Time `json:"imported_at"`
}

// ImportStatus classifies the outcome for a single requested item.
type ImportStatus string

const (
	ImportStatusImported ImportStatus = "IMPORTED"
	ImportStatusSkipped  ImportStatus = "SKIPPED"
	ImportStatusError    ImportStatus = "ERROR"
)

// ImportResult is the per-item outcome of an import batch.
type ImportResult struct {
	RemoteID   string       `json:"id"`
	Status     ImportStatus `json:"status"`
	DocumentID string       `json:"document_id,omitempty"`
	Message    string       `json:"message,omitempty"`
}

// ImportSummary aggregates an import batch. Inserted counts only items
// that produced a new ledger row in this run.
type ImportSummary struct {
	Inserted int            `json:"inserted"`
	Results  []ImportResult `json:"results"`
}
