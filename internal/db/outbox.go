package db

import (
	"context"
	"fmt"
	"time"

	"emergency-service/internal/models"
)

// EnqueueOutbox persists a pending alert delivery for the retry workers.
func (d *DB) EnqueueOutbox(ctx context.Context, m models.OutboxMessage) error {
	query := `
	INSERT INTO outbox (
		id, emergency_id, channel, recipients, subject, body,
		attempts, status, next_attempt_at, last_error, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := d.Pool.Exec(ctx, query,
		m.ID,
		m.EmergencyID,
		m.Channel,
		m.Recipients,
		m.Subject,
		m.Body,
		m.Attempts,
		m.Status,
		m.NextAttemptAt,
		m.LastError,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue outbox message: %w", err)
	}
	return nil
}

// DueOutbox claims up to limit pending messages whose next attempt is due.
// SKIP LOCKED keeps concurrent service instances from claiming the same row.
func (d *DB) DueOutbox(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	query := `
	UPDATE outbox SET attempts = attempts + 1
	WHERE id IN (
		SELECT id FROM outbox
		WHERE status = 'pending' AND next_attempt_at <= NOW()
		ORDER BY next_attempt_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	RETURNING id, emergency_id, channel, recipients, subject, body,
	          attempts, status, next_attempt_at, last_error, created_at`

	rows, err := d.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim outbox messages: %w", err)
	}
	defer rows.Close()

	var list []models.OutboxMessage
	for rows.Next() {
		var m models.OutboxMessage
		err := rows.Scan(
			&m.ID,
			&m.EmergencyID,
			&m.Channel,
			&m.Recipients,
			&m.Subject,
			&m.Body,
			&m.Attempts,
			&m.Status,
			&m.NextAttemptAt,
			&m.LastError,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outbox messages: %w", err)
	}
	return list, nil
}

// MarkOutboxSent finalizes a delivered message.
func (d *DB) MarkOutboxSent(ctx context.Context, id string) error {
	_, err := d.Pool.Exec(ctx,
		`UPDATE outbox SET status = 'sent', last_error = '' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox message %s sent: %w", id, err)
	}
	return nil
}

// MarkOutboxRetry reschedules a failed attempt.
func (d *DB) MarkOutboxRetry(ctx context.Context, id string, nextAttempt time.Time, lastErr string) error {
	_, err := d.Pool.Exec(ctx,
		`UPDATE outbox SET next_attempt_at = $2, last_error = $3 WHERE id = $1`,
		id, nextAttempt, lastErr)
	if err != nil {
		return fmt.Errorf("failed to reschedule outbox message %s: %w", id, err)
	}
	return nil
}

// MarkOutboxFailed gives up on a message after the attempt cap.
func (d *DB) MarkOutboxFailed(ctx context.Context, id, lastErr string) error {
	_, err := d.Pool.Exec(ctx,
		`UPDATE outbox SET status = 'failed', last_error = $2 WHERE id = $1`,
		id, lastErr)
	if err != nil {
		return fmt.Errorf("failed to mark outbox message %s failed: %w", id, err)
	}
	return nil
}
