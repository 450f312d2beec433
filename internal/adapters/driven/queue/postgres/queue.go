package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	pg "github.com/tallybooks/docfeed-core/internal/adapters/driven/postgres"
	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Queue implements TaskQueue on the tasks table.
// Dequeue uses FOR UPDATE SKIP LOCKED so multiple workers can poll the
// same table without fighting over rows. This is the fallback backend
// for deployments without Redis; it polls instead of blocking.
type Queue struct {
	db           *pg.DB
	pollInterval time.Duration
}

// NewQueue creates a new PostgreSQL-backed task queue.
func NewQueue(db *pg.DB) *Queue {
	return &Queue{
		db:           db,
		pollInterval: time.Second,
	}
}

// Enqueue adds a task for processing.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO tasks (id, type, tenant_id, payload, status, attempts, max_attempts, created_at, updated_at, scheduled_for)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = q.db.ExecContext(ctx, query,
		task.ID,
		string(task.Type),
		task.TenantID,
		payload,
		string(task.Status),
		task.Attempts,
		task.MaxAttempts,
		task.CreatedAt,
		task.UpdatedAt,
		task.ScheduledFor,
	)
	return err
}

// DequeueWithTimeout polls for the next due pending task, waiting up to
// timeout seconds. Returns nil, nil when nothing becomes available.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	deadline := time.Now().Add(time.Duration(timeout) * time.Second)

	for {
		task, err := q.tryDequeue(ctx)
		if err != nil {
			return nil, err
		}
		if task != nil {
			return task, nil
		}
		if timeout <= 0 || time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(q.pollInterval):
		}
	}
}

func (q *Queue) tryDequeue(ctx context.Context) (*domain.Task, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		SELECT id, type, tenant_id, payload, status, attempts, max_attempts, created_at, updated_at, scheduled_for
		FROM tasks
		WHERE status = 'pending' AND scheduled_for <= NOW()
		ORDER BY scheduled_for
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	var task domain.Task
	var payload []byte
	err = tx.QueryRowContext(ctx, query).Scan(
		&task.ID,
		&task.Type,
		&task.TenantID,
		&payload,
		&task.Status,
		&task.Attempts,
		&task.MaxAttempts,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.ScheduledFor,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &task.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	task.MarkProcessing()
	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET status = 'processing', attempts = $2, started_at = NOW(), updated_at = NOW() WHERE id = $1`,
		task.ID, task.Attempts)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &task, nil
}

// Ack acknowledges successful completion of a task.
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE tasks SET status = 'completed', completed_at = NOW(), updated_at = NOW() WHERE id = $1`,
		taskID)
	return err
}

// Nack reports failure; the task is rescheduled with backoff until
// attempts are exhausted, then marked failed.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	query := `
		UPDATE tasks
		SET status = CASE WHEN attempts < max_attempts THEN 'pending' ELSE 'failed' END,
		    scheduled_for = CASE WHEN attempts < max_attempts
		                         THEN NOW() + (attempts * interval '30 seconds')
		                         ELSE scheduled_for END,
		    completed_at = CASE WHEN attempts < max_attempts THEN NULL ELSE NOW() END,
		    error = $2,
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := q.db.ExecContext(ctx, query, taskID, reason)
	return err
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}
