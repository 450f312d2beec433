package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

func setupQueue(t *testing.T) *Queue {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	q, err := NewQueue(client, "test-worker")
	require.NoError(t, err)
	return q
}

func TestQueue_EnqueueDequeueAck(t *testing.T) {
	q := setupQueue(t)
	ctx := context.Background()

	task := domain.NewSyncTask("tenant-1", "src-1")
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got, "expected a task")

	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "src-1", got.SourceID())
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
	assert.Equal(t, 1, got.Attempts)

	require.NoError(t, q.Ack(ctx, got.ID))

	stored, err := q.GetTask(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)
}

func TestQueue_DelayedTaskNotVisible(t *testing.T) {
	q := setupQueue(t)
	ctx := context.Background()

	task := domain.NewSyncTask("tenant-1", "src-1")
	task.ScheduledFor = time.Now().Add(time.Hour)
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got, "delayed task must not be visible yet")
}

func TestQueue_NackExhaustsToFailed(t *testing.T) {
	q := setupQueue(t)
	ctx := context.Background()

	task := domain.NewSyncTask("tenant-1", "src-1")
	task.MaxAttempts = 1
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, q.Nack(ctx, got.ID, "connection refused"))

	stored, err := q.GetTask(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status, "task is failed after its last attempt")
	assert.Equal(t, "connection refused", stored.Error)
}
