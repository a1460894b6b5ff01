package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	provisioningdm "github.com/frahmantamala/number-provisioning/internal/core/datamodel/provisioning"
	"github.com/jmoiron/sqlx"
)

const taskColumns = `id, phone_number_id, account_id, number, region, status, attempts,
	last_error, next_attempt_at, completed_at, created_at, updated_at`

type OutboxRepository struct {
	db *sqlx.DB
}

func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Due(ctx context.Context, now time.Time, limit int) ([]provisioningdm.Task, error) {
	query := r.db.Rebind(`SELECT ` + taskColumns + `
		FROM provisioning_tasks
		WHERE status IN (?, ?) AND next_attempt_at <= ?
		ORDER BY next_attempt_at, id
		LIMIT ?`)

	var tasks []provisioningdm.Task
	if err := r.db.SelectContext(ctx, &tasks, query,
		provisioningdm.StatusPending, provisioningdm.StatusInProgress, now, limit); err != nil {
		return nil, fmt.Errorf("select due provisioning tasks: %w", err)
	}
	return tasks, nil
}

// Claim bumps attempts and leases the row. The attempts and next_attempt_at
// predicates make a concurrent claim of the same row affect zero rows.
func (r *OutboxRepository) Claim(ctx context.Context, task provisioningdm.Task, now, leaseUntil time.Time) (bool, error) {
	query := r.db.Rebind(`UPDATE provisioning_tasks
		SET status = ?, attempts = attempts + 1, next_attempt_at = ?, updated_at = ?
		WHERE id = ? AND attempts = ? AND status IN (?, ?) AND next_attempt_at <= ?`)

	res, err := r.db.ExecContext(ctx, query,
		provisioningdm.StatusInProgress, leaseUntil, now,
		task.ID, task.Attempts, provisioningdm.StatusPending, provisioningdm.StatusInProgress, now)
	if err != nil {
		return false, fmt.Errorf("claim provisioning task %d: %w", task.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *OutboxRepository) Complete(ctx context.Context, id int64, at time.Time) error {
	query := r.db.Rebind(`UPDATE provisioning_tasks
		SET status = ?, last_error = '', completed_at = ?, updated_at = ?
		WHERE id = ?`)
	return r.exec(ctx, id, query, provisioningdm.StatusDone, at, at, id)
}

func (r *OutboxRepository) Reschedule(ctx context.Context, id int64, lastErr string, next time.Time) error {
	query := r.db.Rebind(`UPDATE provisioning_tasks
		SET status = ?, last_error = ?, next_attempt_at = ?, updated_at = ?
		WHERE id = ?`)
	return r.exec(ctx, id, query, provisioningdm.StatusPending, lastErr, next, time.Now().UTC(), id)
}

func (r *OutboxRepository) Fail(ctx context.Context, id int64, lastErr string, at time.Time) error {
	query := r.db.Rebind(`UPDATE provisioning_tasks
		SET status = ?, last_error = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`)
	return r.exec(ctx, id, query, provisioningdm.StatusFailed, lastErr, at, at, id)
}

func (r *OutboxRepository) Get(ctx context.Context, id int64) (*provisioningdm.Task, error) {
	query := r.db.Rebind(`SELECT ` + taskColumns + ` FROM provisioning_tasks WHERE id = ?`)

	var task provisioningdm.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get provisioning task %d: %w", id, err)
	}
	return &task, nil
}

// CountByStatus backs the worker's startup log line.
func (r *OutboxRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT status, COUNT(*) FROM provisioning_tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count provisioning tasks: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *OutboxRepository) exec(ctx context.Context, id int64, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update provisioning task %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("provisioning task %d not found", id)
	}
	return nil
}
