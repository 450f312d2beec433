package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven/mocks"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driving"
)

// stubSyncService records sync calls and returns a configurable error.
type stubSyncService struct {
	synced chan string
	err    error
}

func newStubSyncService() *stubSyncService {
	return &stubSyncService{synced: make(chan string, 16)}
}

func (s *stubSyncService) Test(ctx context.Context, tenantID, sourceID string) (*driving.TestResponse, error) {
	return &driving.TestResponse{OK: true}, nil
}

func (s *stubSyncService) Import(ctx context.Context, tenantID, sourceID string, files []driving.FileRef) (*driving.ImportResponse, error) {
	return &driving.ImportResponse{OK: true}, nil
}

func (s *stubSyncService) SyncSource(ctx context.Context, sourceID string) (*driving.ImportResponse, error) {
	s.synced <- sourceID
	if s.err != nil {
		return nil, s.err
	}
	return &driving.ImportResponse{OK: true}, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWorker_ProcessesSyncTask(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	syncSvc := newStubSyncService()

	task := domain.NewSyncTask("tenant-1", "src-1")
	queue.Enqueue(context.Background(), task)

	w := NewWorker(WorkerConfig{
		TaskQueue:   queue,
		SyncService: syncSvc,
		Concurrency: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	select {
	case got := <-syncSvc.synced:
		if got != "src-1" {
			t.Errorf("expected sync of src-1, got %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sync was not invoked")
	}

	waitFor(t, func() bool { return len(queue.Acked()) == 1 })
	if acked := queue.Acked(); acked[0] != task.ID {
		t.Errorf("expected ack of %s, got %s", task.ID, acked[0])
	}
}

func TestWorker_NacksFailedTask(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	syncSvc := newStubSyncService()
	syncSvc.err = errors.New("provider unreachable")

	queue.Enqueue(context.Background(), domain.NewSyncTask("tenant-1", "src-1"))

	w := NewWorker(WorkerConfig{
		TaskQueue:   queue,
		SyncService: syncSvc,
		Concurrency: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	waitFor(t, func() bool { return len(queue.Nacked()) == 1 })
	if len(queue.Acked()) != 0 {
		t.Error("failed task must not be acked")
	}
}

func TestWorker_NacksUnknownTaskType(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	syncSvc := newStubSyncService()

	queue.Enqueue(context.Background(), &domain.Task{
		ID:   "task-1",
		Type: domain.TaskType("reindex"),
	})

	w := NewWorker(WorkerConfig{
		TaskQueue:   queue,
		SyncService: syncSvc,
		Concurrency: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	waitFor(t, func() bool { return len(queue.Nacked()) == 1 })
}

func TestWorker_Health(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	w := NewWorker(WorkerConfig{
		TaskQueue:   queue,
		SyncService: newStubSyncService(),
	})

	health := w.Health(context.Background())
	if health.Running {
		t.Error("expected not running before Start")
	}
	if !health.QueueHealth {
		t.Error("expected healthy queue")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	health = w.Health(context.Background())
	if !health.Running {
		t.Error("expected running after Start")
	}
}
