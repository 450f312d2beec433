package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// Scheduler polls for due sources and enqueues sync tasks.
// It runs on worker nodes.
//
// For multi-worker deployments, configure a DistributedLock to prevent
// duplicate task enqueuing across instances. Even without it, the
// per-source sync lease keeps overlapping runs from double-importing;
// the lock only avoids wasted queue traffic.
type Scheduler struct {
	sourceStore driven.SourceStore
	taskQueue   driven.TaskQueue
	lock        driven.DistributedLock
	logger      *slog.Logger

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	interval     time.Duration
	batchLimit   int
	lockTTL      time.Duration
	lockRequired bool
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	SourceStore  driven.SourceStore
	TaskQueue    driven.TaskQueue
	Lock         driven.DistributedLock // Optional: distributed lock for multi-instance coordination
	Logger       *slog.Logger
	PollInterval time.Duration // How often to check for due sources (default: 60s)
	BatchLimit   int           // Max sources enqueued per cycle (default: 100)
	LockTTL      time.Duration // TTL for the distributed lock (default: 2x poll interval)
	LockRequired bool          // If true, skip the cycle when the lock cannot be acquired
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.PollInterval
	if interval == 0 {
		interval = 60 * time.Second
	}
	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 2 * interval
	}
	batchLimit := cfg.BatchLimit
	if batchLimit == 0 {
		batchLimit = 100
	}

	lockRequired := cfg.LockRequired
	if cfg.Lock != nil && !cfg.LockRequired {
		lockRequired = true
	}

	return &Scheduler{
		sourceStore:  cfg.SourceStore,
		taskQueue:    cfg.TaskQueue,
		lock:         cfg.Lock,
		logger:       logger,
		interval:     interval,
		batchLimit:   batchLimit,
		lockTTL:      lockTTL,
		lockRequired: lockRequired,
	}
}

// Start begins the scheduler loop.
// It runs until Stop is called or context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "poll_interval", s.interval)

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.checkAndEnqueue(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkAndEnqueue(ctx)
		}
	}
}

// checkAndEnqueue finds due sources and enqueues a sync task for each.
// If a distributed lock is configured, it acquires the lock before
// polling to prevent duplicate enqueuing across scheduler instances.
func (s *Scheduler) checkAndEnqueue(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, "scheduler", s.lockTTL)
		if err != nil {
			s.logger.Warn("failed to acquire scheduler lock", "error", err)
			if s.lockRequired {
				return
			}
		} else if !acquired {
			s.logger.Debug("scheduler lock held by another instance, skipping cycle")
			return
		} else {
			defer func() {
				if err := s.lock.Release(ctx, "scheduler"); err != nil {
					s.logger.Warn("failed to release scheduler lock", "error", err)
				}
			}()
		}
	}

	sources, err := s.sourceStore.ListDue(ctx, time.Now(), s.batchLimit)
	if err != nil {
		s.logger.Error("failed to list due sources", "error", err)
		return
	}

	for _, source := range sources {
		task := domain.NewSyncTask(source.TenantID, source.ID)

		if err := s.taskQueue.Enqueue(ctx, task); err != nil {
			s.logger.Error("failed to enqueue sync task",
				"source_id", source.ID,
				"error", err,
			)
			continue
		}

		s.logger.Info("enqueued sync task",
			"source_id", source.ID,
			"task_id", task.ID,
		)
	}
}
