package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driving"
)

// Ensure syncService implements SyncService
var _ driving.SyncService = (*syncService)(nil)

// syncLeaseTTL bounds how long a single source sync may hold its lease.
const syncLeaseTTL = 10 * time.Minute

// Per-call bounds on provider adapters. A stalled listing or transfer
// must not pin a worker for the lifetime of its task context.
const (
	defaultListTimeout     = 30 * time.Second
	defaultDownloadTimeout = 120 * time.Second
)

// SyncServiceConfig holds configuration for the sync service.
type SyncServiceConfig struct {
	SourceStore      driven.SourceStore
	ItemStore        driven.ItemStore
	ConnectorFactory driven.ConnectorFactory
	Importer         driven.ImportPipeline
	Entitlements     driven.Entitlements
	Lock             driven.DistributedLock
	Logger           *slog.Logger

	// ListTimeout and DownloadTimeout override the per-call adapter
	// bounds. Zero means the defaults.
	ListTimeout     time.Duration
	DownloadTimeout time.Duration
}

// syncService implements the SyncService interface.
type syncService struct {
	sourceStore     driven.SourceStore
	itemStore       driven.ItemStore
	factory         driven.ConnectorFactory
	importer        driven.ImportPipeline
	entitlements    driven.Entitlements
	lock            driven.DistributedLock
	logger          *slog.Logger
	listTimeout     time.Duration
	downloadTimeout time.Duration
}

// NewSyncService creates a new SyncService
func NewSyncService(cfg SyncServiceConfig) driving.SyncService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	listTimeout := cfg.ListTimeout
	if listTimeout <= 0 {
		listTimeout = defaultListTimeout
	}
	downloadTimeout := cfg.DownloadTimeout
	if downloadTimeout <= 0 {
		downloadTimeout = defaultDownloadTimeout
	}
	return &syncService{
		sourceStore:     cfg.SourceStore,
		itemStore:       cfg.ItemStore,
		factory:         cfg.ConnectorFactory,
		importer:        cfg.Importer,
		entitlements:    cfg.Entitlements,
		lock:            cfg.Lock,
		logger:          logger.With("service", "sync"),
		listTimeout:     listTimeout,
		downloadTimeout: downloadTimeout,
	}
}

// list and download bound each adapter call with its own deadline so a
// hung provider cannot hold the worker's task context open.
func (s *syncService) list(ctx context.Context, conn driven.Connector, cfg domain.SourceConfig) ([]domain.RemoteFile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.listTimeout)
	defer cancel()
	return conn.List(ctx, cfg)
}

func (s *syncService) download(ctx context.Context, conn driven.Connector, cfg domain.SourceConfig, remoteID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.downloadTimeout)
	defer cancel()
	return conn.Download(ctx, cfg, remoteID)
}

// Test lists the remote files a sync would see, without importing.
func (s *syncService) Test(ctx context.Context, tenantID, sourceID string) (*driving.TestResponse, error) {
	source, err := s.getOwned(ctx, tenantID, sourceID)
	if err != nil {
		return nil, err
	}
	if err := s.checkEntitled(ctx, tenantID); err != nil {
		return nil, err
	}

	files, err := s.listFiltered(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(files) > driving.TestPreviewCap {
		files = files[:driving.TestPreviewCap]
	}
	if files == nil {
		files = []domain.RemoteFile{}
	}
	return &driving.TestResponse{OK: true, List: files}, nil
}

// Import downloads and imports the requested files. One failing item
// never aborts the batch; it is reported as ERROR and the rest proceed.
func (s *syncService) Import(ctx context.Context, tenantID, sourceID string, files []driving.FileRef) (*driving.ImportResponse, error) {
	source, err := s.getOwned(ctx, tenantID, sourceID)
	if err != nil {
		return nil, err
	}
	if err := s.checkEntitled(ctx, tenantID); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, domain.ErrInvalidInput
	}

	conn, err := s.factory.Create(ctx, source)
	if err != nil {
		return nil, err
	}

	summary := s.importBatch(ctx, source, conn, files)
	return &driving.ImportResponse{OK: true, Inserted: summary.Inserted, Results: summary.Results}, nil
}

// SyncSource is the unattended path: list, filter, import everything not
// yet in the ledger. A per-source lease makes overlapping runs skip
// instead of double-fetching.
func (s *syncService) SyncSource(ctx context.Context, sourceID string) (*driving.ImportResponse, error) {
	acquired, err := s.lock.Acquire(ctx, "sync:source:"+sourceID, syncLeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lease: %w", err)
	}
	if !acquired {
		s.logger.Info("sync already running, skipping", "source_id", sourceID)
		return &driving.ImportResponse{OK: true, Results: []domain.ImportResult{}}, nil
	}
	defer func() {
		_ = s.lock.Release(context.WithoutCancel(ctx), "sync:source:"+sourceID)
	}()

	source, err := s.sourceStore.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if !source.Enabled {
		s.logger.Info("source disabled, skipping", "source_id", sourceID)
		return &driving.ImportResponse{OK: true, Results: []domain.ImportResult{}}, nil
	}
	if err := s.checkEntitled(ctx, source.TenantID); err != nil {
		return nil, err
	}

	started := time.Now()
	summary, runErr := s.syncOnce(ctx, source)

	lastError := ""
	if runErr != nil {
		lastError = runErr.Error()
	}
	if err := s.sourceStore.RecordRun(ctx, sourceID, started, lastError); err != nil {
		s.logger.Error("record run failed", "source_id", sourceID, "error", err)
	}
	if runErr != nil {
		return nil, runErr
	}

	s.logger.Info("sync completed",
		"source_id", sourceID,
		"inserted", summary.Inserted,
		"duration", time.Since(started).String())
	return &driving.ImportResponse{OK: true, Inserted: summary.Inserted, Results: summary.Results}, nil
}

func (s *syncService) syncOnce(ctx context.Context, source *domain.Source) (*domain.ImportSummary, error) {
	conn, err := s.factory.Create(ctx, source)
	if err != nil {
		return nil, err
	}
	files, err := s.list(ctx, conn, source.Config)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	var refs []driving.FileRef
	for _, f := range files {
		if !source.Config.MatchesGlob(f.Name) {
			continue
		}
		exists, err := s.itemStore.Exists(ctx, source.ID, f.ID)
		if err != nil {
			return nil, err
		}
		if !exists {
			refs = append(refs, driving.FileRef{ID: f.ID, Name: f.Name})
		}
	}

	summary := s.importBatch(ctx, source, conn, refs)
	return summary, nil
}

// importBatch runs the per-item download/import/record loop. The ledger
// insert is the dedup point: a unique violation means another run (or an
// earlier item in this batch) imported the file first, and the item is
// reported SKIPPED.
func (s *syncService) importBatch(ctx context.Context, source *domain.Source, conn driven.Connector, files []driving.FileRef) *domain.ImportSummary {
	summary := &domain.ImportSummary{Results: []domain.ImportResult{}}

	for _, f := range files {
		result := s.importOne(ctx, source, conn, f)
		if result.Status == domain.ImportStatusImported {
			summary.Inserted++
		}
		summary.Results = append(summary.Results, result)
	}
	return summary
}

func (s *syncService) importOne(ctx context.Context, source *domain.Source, conn driven.Connector, f driving.FileRef) domain.ImportResult {
	exists, err := s.itemStore.Exists(ctx, source.ID, f.ID)
	if err != nil {
		return domain.ImportResult{RemoteID: f.ID, Status: domain.ImportStatusError, Message: err.Error()}
	}
	if exists {
		return domain.ImportResult{RemoteID: f.ID, Status: domain.ImportStatusSkipped, Message: "already imported"}
	}

	data, err := s.download(ctx, conn, source.Config, f.ID)
	if err != nil {
		s.logger.Warn("download failed", "source_id", source.ID, "remote_id", f.ID, "error", err)
		return domain.ImportResult{RemoteID: f.ID, Status: domain.ImportStatusError, Message: err.Error()}
	}

	docID, err := s.importer.Import(ctx, source.TenantID, f.Name, data, source.Config)
	if err != nil {
		s.logger.Warn("import rejected", "source_id", source.ID, "remote_id", f.ID, "error", err)
		return domain.ImportResult{RemoteID: f.ID, Status: domain.ImportStatusError, Message: err.Error()}
	}

	item := &domain.SourceItem{
		SourceID:   source.ID,
		RemoteID:   f.ID,
		DocumentID: docID,
		ImportedAt: time.Now(),
	}
	if err := s.itemStore.Insert(ctx, item); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// A concurrent run won the race; the file is imported either way.
			return domain.ImportResult{RemoteID: f.ID, Status: domain.ImportStatusSkipped, Message: "already imported"}
		}
		return domain.ImportResult{RemoteID: f.ID, Status: domain.ImportStatusError, Message: err.Error()}
	}

	return domain.ImportResult{RemoteID: f.ID, Status: domain.ImportStatusImported, DocumentID: docID}
}

func (s *syncService) listFiltered(ctx context.Context, source *domain.Source) ([]domain.RemoteFile, error) {
	conn, err := s.factory.Create(ctx, source)
	if err != nil {
		return nil, err
	}
	files, err := s.list(ctx, conn, source.Config)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	var out []domain.RemoteFile
	for _, f := range files {
		if source.Config.MatchesGlob(f.Name) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *syncService) checkEntitled(ctx context.Context, tenantID string) error {
	ok, err := s.entitlements.TenantHasCapability(ctx, tenantID, CapabilityDocumentFeeds)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotEntitled
	}
	return nil
}

func (s *syncService) getOwned(ctx context.Context, tenantID, sourceID string) (*domain.Source, error) {
	source, err := s.sourceStore.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if source.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return source, nil
}
