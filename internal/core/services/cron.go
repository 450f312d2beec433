package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driving"
)

// Ensure cronService implements CronService
var _ driving.CronService = (*cronService)(nil)

const (
	// cronSecretPrefix marks the credential family in logs and UIs
	// without revealing anything.
	cronSecretPrefix = "dfc_"

	// cronPrefixDisplayLen is how much of the secret the key prefix keeps.
	cronPrefixDisplayLen = 10

	// defaultRunLimit caps how many sources one cron call may enqueue
	// when the record does not override it.
	defaultRunLimit = 25
)

// CronServiceConfig holds configuration for the cron service.
type CronServiceConfig struct {
	CronSecretStore driven.CronSecretStore
	SourceStore     driven.SourceStore
	Queue           driven.TaskQueue
	Hasher          driven.CronHasher
	Authorizer      driven.Authorizer
	Logger          *slog.Logger
}

// cronService implements the CronService interface.
type cronService struct {
	cronStore   driven.CronSecretStore
	sourceStore driven.SourceStore
	queue       driven.TaskQueue
	hasher      driven.CronHasher
	authorizer  driven.Authorizer
	logger      *slog.Logger
}

// NewCronService creates a new CronService
func NewCronService(cfg CronServiceConfig) driving.CronService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &cronService{
		cronStore:   cfg.CronSecretStore,
		sourceStore: cfg.SourceStore,
		queue:       cfg.Queue,
		hasher:      cfg.Hasher,
		authorizer:  cfg.Authorizer,
		logger:      logger.With("service", "cron"),
	}
}

// Rotate replaces the tenant's cron secret. The raw value is returned
// exactly once; only the hash and a display prefix are stored. The
// replacement is atomic, so the old secret stops working the moment the
// new one exists.
func (s *cronService) Rotate(ctx context.Context, actorID, tenantID string) (*driving.RotateResponse, error) {
	if err := s.requireAdmin(ctx, actorID, tenantID); err != nil {
		return nil, err
	}

	secret, err := generateCronSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	runLimit := defaultRunLimit
	if existing, err := s.cronStore.Get(ctx, tenantID); err == nil {
		runLimit = existing.DefaultRunLimit
	}

	now := time.Now()
	record := &domain.CronSecret{
		TenantID:        tenantID,
		KeyPrefix:       secret[:cronPrefixDisplayLen],
		SecretHash:      hash,
		Enabled:         true,
		DefaultRunLimit: runLimit,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.cronStore.Replace(ctx, record); err != nil {
		return nil, fmt.Errorf("store secret: %w", err)
	}

	s.logger.Info("cron secret rotated", "tenant_id", tenantID, "key_prefix", record.KeyPrefix)
	return &driving.RotateResponse{Secret: secret, KeyPrefix: record.KeyPrefix}, nil
}

// Authenticate verifies a supplied secret for a tenant. All failure
// modes collapse to ErrUnauthorized so callers cannot distinguish
// "no secret configured" from "wrong secret".
func (s *cronService) Authenticate(ctx context.Context, tenantID, supplied string) error {
	record, err := s.cronStore.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnauthorized
		}
		return err
	}
	if !record.Enabled {
		return domain.ErrUnauthorized
	}
	if !s.hasher.Verify(supplied, record.SecretHash) {
		return domain.ErrUnauthorized
	}
	if err := s.cronStore.TouchLastUsed(ctx, tenantID, time.Now()); err != nil {
		s.logger.Warn("touch last used failed", "tenant_id", tenantID, "error", err)
	}
	return nil
}

// Status reports the non-secret view of the tenant's credential.
func (s *cronService) Status(ctx context.Context, tenantID string) (*domain.CronStatus, error) {
	record, err := s.cronStore.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.CronStatus{Configured: false}, nil
		}
		return nil, err
	}
	return &domain.CronStatus{
		Configured:      true,
		Enabled:         record.Enabled,
		KeyPrefix:       record.KeyPrefix,
		DefaultRunLimit: record.DefaultRunLimit,
	}, nil
}

// RunDue enqueues sync tasks for the tenant's due sources.
func (s *cronService) RunDue(ctx context.Context, tenantID string, limit int) (*driving.RunResponse, error) {
	if limit <= 0 {
		limit = defaultRunLimit
		if record, err := s.cronStore.Get(ctx, tenantID); err == nil && record.DefaultRunLimit > 0 {
			limit = record.DefaultRunLimit
		}
	}

	sources, err := s.sourceStore.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	enqueued := 0
	for _, source := range sources {
		if enqueued >= limit {
			break
		}
		if !source.IsDue(now) {
			continue
		}
		task := domain.NewSyncTask(tenantID, source.ID)
		if err := s.queue.Enqueue(ctx, task); err != nil {
			s.logger.Error("enqueue failed", "source_id", source.ID, "error", err)
			continue
		}
		enqueued++
	}

	s.logger.Info("cron run", "tenant_id", tenantID, "enqueued", enqueued)
	return &driving.RunResponse{Enqueued: enqueued}, nil
}

// SetEnabled toggles unattended access without rotating the secret.
func (s *cronService) SetEnabled(ctx context.Context, actorID, tenantID string, enabled bool) error {
	if err := s.requireAdmin(ctx, actorID, tenantID); err != nil {
		return err
	}
	return s.cronStore.SetEnabled(ctx, tenantID, enabled)
}

func (s *cronService) requireAdmin(ctx context.Context, actorID, tenantID string) error {
	ok, err := s.authorizer.IsTenantAdmin(ctx, actorID, tenantID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}

// generateCronSecret produces a prefixed, URL-safe 256-bit secret.
func generateCronSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return cronSecretPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
